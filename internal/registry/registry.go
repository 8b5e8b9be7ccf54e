// Copyright 2025 The vfscore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package registry implements the one named-lookup-table shape that both
// the backend registry and the block device registry need: a small,
// process-lifetime map guarded by a mutex, populated by explicit
// registration calls, typically from an init function.
package registry

import (
	"fmt"
	"sync"
)

// Registry is a process-wide table of named values of type T. The zero
// value is not usable; construct one with New.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]T
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Register adds name to the registry. It panics on a duplicate name, the
// same failure mode Go's own database/sql driver registry uses: a second
// registration under the same name is a programming error discovered at
// init time, not a runtime condition callers recover from.
func (r *Registry[T]) Register(name string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		panic(fmt.Sprintf("registry: %q already registered", name))
	}
	r.entries[name] = value
}

// Lookup returns the value registered under name, or false if none exists.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[name]
	return v, ok
}

// Names returns the registered names in no particular order. Intended for
// diagnostics, not for hot paths.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}
