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

package vfspath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: "/"},
		{name: "root", input: "/", expected: "/"},
		{name: "only_separators", input: "///", expected: "/"},
		{name: "duplicate_separators", input: "//a//b/", expected: "/a/b"},
		{name: "duplicate_separator_mid", input: "/a//b", expected: "/a/b"},
		{name: "single_dot", input: "/a/./b", expected: "/a/b"},
		{name: "dot_dot_pops", input: "/a/../b", expected: "/b"},
		{name: "dot_and_dot_dot", input: "/a/./b/../c", expected: "/a/c"},
		{name: "dot_dot_past_root", input: "/a/b/../../..", expected: "/"},
		{name: "dot_dot_at_root", input: "/..", expected: "/"},
		{name: "trailing_separator", input: "/a/b/", expected: "/a/b"},
		{name: "hidden_component", input: "/.hidden", expected: "/.hidden"},
		{name: "dot_dot_name", input: "/..name", expected: "/..name"},
		{name: "hidden_and_dot_dot_name", input: "/.hidden/..x", expected: "/.hidden/..x"},
		{name: "trailing_dot", input: "/a/.", expected: "/a"},
		{name: "trailing_dot_dot", input: "/a/b/..", expected: "/a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

// Normalize must be a fixpoint on its own output: running it twice never
// changes anything, and a canonical path passes through untouched.
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "/", "///", "//a//b/", "/a/./b/../c", "a/b/../c", "/..",
		"/.hidden/..x", "/a/b/c/d", "relative/./path", "/a//./../b/",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name     string
		cwd      string
		input    string
		expected string
	}{
		{name: "absolute_ignores_cwd", cwd: "/x", input: "/a/b", expected: "/a/b"},
		{name: "relative_appends", cwd: "/x", input: "a/b", expected: "/x/a/b"},
		{name: "relative_at_root", cwd: "/", input: "a", expected: "//a"},
		{name: "empty_input", cwd: "/x", input: "", expected: "/x/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Resolve(tc.cwd, tc.input))
		})
	}
}

// The facade always composes the two; the composition is what produces a
// canonical absolute path from a relative input.
func TestResolveThenNormalize(t *testing.T) {
	assert.Equal(t, "/x/a/b", Normalize(Resolve("/x", "a/b")))
	assert.Equal(t, "/a", Normalize(Resolve("/", "a")))
	assert.Equal(t, "/x", Normalize(Resolve("/x", "")))
	assert.Equal(t, "/b", Normalize(Resolve("/x", "../b")))
}
