package hclutil

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// CallError returns the first error raised by a function implementation among
// diags, so that typed errors from nested calls survive evaluation. When no
// function produced an error, diags itself is returned as the error. It
// returns nil if diags has no errors.
func CallError(diags hcl.Diagnostics) error {
	if !diags.HasErrors() {
		return nil
	}
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](d); ok {
			if err := extra.FunctionCallError(); err != nil {
				return err
			}
		}
	}
	return diags
}
