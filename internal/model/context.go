// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"maps"

	"github.com/zclconf/go-cty/cty"
)

// Default values stamped by the executor when the caller leaves them empty.
const (
	DefaultRequestID = "invoke"
	DefaultMethod    = "call"
)

// ExecutionContext is the per-invocation context seen by a function body.
type ExecutionContext struct {
	RequestID    string
	Method       string
	FunctionName string
	User         *Identity
	Payload      cty.Value
	Query        map[string]string
	Headers      map[string]string
}

// Clone returns a copy that shares no mutable state with ec. A nil receiver
// yields an empty context.
func (ec *ExecutionContext) Clone() *ExecutionContext {
	if ec == nil {
		return &ExecutionContext{}
	}
	out := *ec
	out.Query = maps.Clone(ec.Query)
	out.Headers = maps.Clone(ec.Headers)
	if ec.User != nil {
		u := *ec.User
		u.Claims = maps.Clone(ec.User.Claims)
		out.User = &u
	}
	return &out
}

// PayloadValue returns the payload, or a dynamic null when none was set.
func (ec *ExecutionContext) PayloadValue() cty.Value {
	if ec == nil || ec.Payload == cty.NilVal {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	return ec.Payload
}
