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

// Package vfserr defines the error taxonomy shared by every layer of the
// VFS: the mount table, the facade, and every backend. Callers are expected
// to compare against these sentinels with errors.Is rather than matching
// strings or numeric codes.
package vfserr

import "errors"

var (
	// ErrNoMemory is returned where a backend refuses to exceed a
	// fixed-size buffer (e.g. dumbfs's lookup name bound in Open). Go's
	// allocator does not itself surface a failure value.
	ErrNoMemory = errors.New("vfs: no memory")

	// ErrNotFound is returned when a backend name, device name, or path
	// does not resolve to anything live.
	ErrNotFound = errors.New("vfs: not found")

	// ErrAlreadyMounted is returned by Mount when a mount already exists
	// at the canonical target path.
	ErrAlreadyMounted = errors.New("vfs: already mounted")

	// ErrTargetBusy is returned by Unmount while other holders (open
	// handles) still reference the mount.
	ErrTargetBusy = errors.New("vfs: target busy")

	// ErrNotDirectory is returned when Opendir is called on a handle
	// whose type does not include DIRECTORY.
	ErrNotDirectory = errors.New("vfs: not a directory")

	// ErrBadHandler is returned when an operation is invoked against a
	// handle of the wrong kind (e.g. Read on a directory handle).
	ErrBadHandler = errors.New("vfs: operation invoked on wrong handle kind")

	// ErrBadDevice wraps a short or failed block device read.
	ErrBadDevice = errors.New("vfs: bad device read")

	// ErrEndOfDirectory signals readdir exhaustion. It is not a failure;
	// callers treat it as the iteration terminator.
	ErrEndOfDirectory = errors.New("vfs: end of directory")
)
