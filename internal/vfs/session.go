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

package vfs

// Session carries the current working directory used to resolve relative
// paths. Go has no native thread-local storage, so a Session is passed
// explicitly to every facade call that resolves a path instead of being
// read from goroutine-local state.
type Session struct {
	cwd string
}

// NewSession returns a Session whose CWD is cwd, which must already be an
// absolute, canonical path.
func NewSession(cwd string) *Session {
	return &Session{cwd: cwd}
}

// CWD returns the session's current working directory.
func (s *Session) CWD() string { return s.cwd }

// WithCWD returns a derived session rooted at cwd. No chdir operation is
// specified or added; this exists so callers that need a different
// starting point (e.g. the CLI shell's "cd") can produce one without
// mutating a shared Session out from under concurrent users.
func (s *Session) WithCWD(cwd string) *Session {
	return &Session{cwd: cwd}
}

// RootSession returns a Session rooted at "/", the session every init
// sequence and most tests start from.
func RootSession() *Session {
	return &Session{cwd: "/"}
}
