// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines SharedState, the process-wide key/value store handed to
// every function through the SDK.
//
// SharedState is global and not namespaced: two functions that
// pick the same key see each other's data. The map itself is memory-safe
// under concurrent use, but nothing coordinates a read followed by a write
// across goroutines. Callers that need that must build it themselves.
package model

import (
	"sort"
	"sync"
)

// SharedState is a process-wide key/value store.
type SharedState struct {
	m sync.Map
}

// NewSharedState creates an empty store.
func NewSharedState() *SharedState {
	return &SharedState{}
}

// Get returns the value stored under key.
func (s *SharedState) Get(key string) (any, bool) {
	return s.m.Load(key)
}

// Set stores value under key, replacing any previous value.
func (s *SharedState) Set(key string, value any) {
	s.m.Store(key, value)
}

// Delete removes key.
func (s *SharedState) Delete(key string) {
	s.m.Delete(key)
}

// Keys returns all keys currently present, sorted.
func (s *SharedState) Keys() []string {
	var keys []string
	s.m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Clear removes every key.
func (s *SharedState) Clear() {
	s.m.Clear()
}
