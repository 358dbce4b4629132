package hclutil

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
)

// SortedAttributes returns the attributes in source order.
func SortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Byte < out[j].Range.Start.Byte
	})
	return out
}

// CheckRoots reports every variable reference in expr whose root name is not
// in allowed.
func CheckRoots(expr hcl.Expression, allowed ...string) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, traversal := range expr.Variables() {
		root := traversal.RootName()
		ok := false
		for _, a := range allowed {
			if root == a {
				ok = true
				break
			}
		}
		if !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown variable",
				Detail:   fmt.Sprintf("There is no variable named %q here; available: %v.", root, allowed),
				Subject:  traversal.SourceRange().Ptr(),
			})
		}
	}
	return diags
}
