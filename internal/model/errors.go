// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "fmt"

// CompileError reports source that the compiler bridge rejected.
type CompileError struct {
	Name  string
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %v", e.Name, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// MissingFunctionError reports a name that is not in the function cache.
type MissingFunctionError struct {
	Name string
}

func (e *MissingFunctionError) Error() string {
	return fmt.Sprintf("function %q not found", e.Name)
}

// MissingEntryPointError reports a module with neither a "default" nor a
// "main" export.
type MissingEntryPointError struct {
	Name    string
	Exports []string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("function %q has no \"default\" or \"main\" export (exports: %v)", e.Name, e.Exports)
}

// InvocationError wraps a failure raised by a function body.
type InvocationError struct {
	Name  string
	Cause error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %q: %v", e.Name, e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// RuntimeError is raised by a function body through its "error" attribute or
// the fail() function.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }
