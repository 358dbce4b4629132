// Package compiler turns raw function source into an artifact the engine can
// instantiate. Compilation is a pure function of the source and the name.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/burstfn/internal/model"
)

// Compiler transpiles raw source into an artifact.
type Compiler interface {
	Transpile(raw []byte, name string) (*model.Artifact, error)
}

// HCL compiles HCL function files.
type HCL struct{}

// New creates an HCL compiler.
func New() *HCL {
	return &HCL{}
}

// Transpile validates raw as a function module and returns its normalised
// artifact. Any failure is reported as *model.CompileError.
func (c *HCL) Transpile(raw []byte, name string) (*model.Artifact, error) {
	mod, err := Parse(raw, name)
	if err != nil {
		return nil, err
	}

	code := hclwrite.Format(raw)
	sum := sha256.Sum256(code)
	return &model.Artifact{
		Name:    name,
		Code:    code,
		Digest:  hex.EncodeToString(sum[:]),
		Exports: mod.ExportNames(),
	}, nil
}
