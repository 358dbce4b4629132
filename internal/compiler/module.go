package compiler

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/burstfn/internal/hclutil"
	"github.com/vk/burstfn/internal/model"
)

// Names of the variables visible to function code.
const (
	VarContext = "ctx"
	VarLocal   = "local"
)

// Entry point export names, in order of preference.
var EntryPoints = []string{"default", "main"}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "locals"},
		{Type: "export", LabelNames: []string{"name"}},
	},
}

var exportSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "error"},
		{Name: "result"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "locals"},
	},
}

// Module is the decoded structure of a function file.
type Module struct {
	Name    string
	Locals  []*hcl.Attribute
	Exports map[string]*Export
}

// Export is one export block. Error and Result are nil when absent.
type Export struct {
	Name   string
	Locals []*hcl.Attribute
	Error  hcl.Expression
	Result hcl.Expression
	Range  hcl.Range
}

// ExportNames returns the export labels, sorted.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.Exports))
	for n := range m.Exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entry returns the preferred entry point export.
func (m *Module) Entry() (*Export, error) {
	for _, name := range EntryPoints {
		if e, ok := m.Exports[name]; ok {
			return e, nil
		}
	}
	return nil, &model.MissingEntryPointError{Name: m.Name, Exports: m.ExportNames()}
}

// Parse decodes and validates raw as a function module.
func Parse(raw []byte, name string) (*Module, error) {
	// A fresh parser per call: hclparse caches files by name.
	file, diags := hclparse.NewParser().ParseHCL(raw, name+".hcl")
	if diags.HasErrors() {
		return nil, &model.CompileError{Name: name, Cause: diags}
	}

	mod, diags := decode(file.Body, name)
	if diags.HasErrors() {
		return nil, &model.CompileError{Name: name, Cause: diags}
	}
	return mod, nil
}

func decode(body hcl.Body, name string) (*Module, hcl.Diagnostics) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	mod := &Module{Name: name, Exports: make(map[string]*Export)}

	localsBlock, moreDiags := hclutil.FindUniqueBlock(content.Blocks, "locals")
	diags = append(diags, moreDiags...)
	if localsBlock != nil {
		attrs, moreDiags := localsBlock.Body.JustAttributes()
		diags = append(diags, moreDiags...)
		mod.Locals = hclutil.SortedAttributes(attrs)
		// Module locals run once per instantiation, before any call exists.
		for _, a := range mod.Locals {
			diags = append(diags, hclutil.CheckRoots(a.Expr, VarLocal)...)
		}
	}

	diags = append(diags, hclutil.UniqueLabels(content.Blocks, "export")...)
	for _, block := range content.Blocks {
		if block.Type != "export" {
			continue
		}
		exp, moreDiags := decodeExport(block)
		diags = append(diags, moreDiags...)
		if exp != nil {
			if _, dup := mod.Exports[exp.Name]; !dup {
				mod.Exports[exp.Name] = exp
			}
		}
	}

	return mod, diags
}

func decodeExport(block *hcl.Block) (*Export, hcl.Diagnostics) {
	content, diags := block.Body.Content(exportSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	exp := &Export{Name: block.Labels[0], Range: block.DefRange}

	localsBlock, moreDiags := hclutil.FindUniqueBlock(content.Blocks, "locals")
	diags = append(diags, moreDiags...)
	if localsBlock != nil {
		attrs, moreDiags := localsBlock.Body.JustAttributes()
		diags = append(diags, moreDiags...)
		exp.Locals = hclutil.SortedAttributes(attrs)
		for _, a := range exp.Locals {
			diags = append(diags, hclutil.CheckRoots(a.Expr, VarContext, VarLocal)...)
		}
	}

	if attr, ok := content.Attributes["error"]; ok {
		exp.Error = attr.Expr
		diags = append(diags, hclutil.CheckRoots(attr.Expr, VarContext, VarLocal)...)
	}
	if attr, ok := content.Attributes["result"]; ok {
		exp.Result = attr.Expr
		diags = append(diags, hclutil.CheckRoots(attr.Expr, VarContext, VarLocal)...)
	}

	return exp, diags
}
