// Package hclutil holds small helpers for working with HCL bodies and
// diagnostics.
package hclutil

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// FindUniqueBlock searches a slice of blocks for all blocks of a given name.
// It returns a diagnostic error if more than one block of that name is found.
// If no block is found, it returns nil.
func FindUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type == name {
			if found != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate \"" + name + "\" block",
					Detail:   "Only one \"" + name + "\" block is allowed.",
					Subject:  &block.DefRange,
				})
			}
			found = block
		}
	}

	return found, diags
}

// UniqueLabels reports a diagnostic for every block of the given type whose
// first label repeats an earlier one.
func UniqueLabels(blocks hcl.Blocks, name string) hcl.Diagnostics {
	var diags hcl.Diagnostics
	seen := make(map[string]*hcl.Block)
	for _, block := range blocks {
		if block.Type != name || len(block.Labels) == 0 {
			continue
		}
		label := block.Labels[0]
		if prev, ok := seen[label]; ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Duplicate %s %q", name, label),
				Detail:   fmt.Sprintf("A %s named %q was already declared at %s.", name, label, prev.DefRange),
				Subject:  &block.DefRange,
			})
			continue
		}
		seen[label] = block
	}
	return diags
}
