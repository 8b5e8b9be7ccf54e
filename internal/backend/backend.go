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

// Package backend defines the operation-table contract every filesystem
// implementation fulfills, and the process-wide registry of backends keyed
// by name. It depends only on bdev and registry, never on the mount table or the
// facade, so that a backend can be unit-tested against a bare device.
package backend

import (
	"github.com/vfscore/vfscore/internal/bdev"
	"github.com/vfscore/vfscore/internal/registry"
)

// HandleType is the bitset a backend stamps onto a Handle during Open.
type HandleType uint8

const (
	// RegularFile marks a handle as a plain, readable file.
	RegularFile HandleType = 1 << iota
	// Directory marks a handle as eligible for Opendir.
	Directory
)

func (t HandleType) Has(bit HandleType) bool { return t&bit != 0 }

// Handle is the backend-visible half of a caller's open file. FileData is
// backend-owned and opaque to everyone else; only the backend that set it
// during Open may interpret it.
type Handle struct {
	// Device is the block device bound to the mount this handle was
	// opened against. Backends read through it directly; they never see
	// the mount or mount table types.
	Device bdev.Device

	// Type is set by Open to indicate what kind of handle this is.
	Type HandleType

	// FileData is opaque, backend-owned per-handle state.
	FileData any
}

// DirHandle wraps a Handle whose Type includes Directory, plus
// backend-owned cursor state for Readdir.
type DirHandle struct {
	File *Handle

	// DirData is opaque, backend-owned per-directory-handle state.
	DirData any
}

// Dirent is a single readdir yield.
type Dirent struct {
	// Name is bounded and never null-terminated in Go's representation;
	// backends are responsible for truncating to whatever on-disk name
	// capacity they advertise.
	Name string
	// IsDir reports whether this entry is itself a directory.
	IsDir bool
}

// Ops is the contract every backend must implement. Every method operates
// on state reachable from a Handle/DirHandle and a Device; none of them may
// reach back into the mount table or facade.
type Ops interface {
	// Mount produces opaque per-mount state from a freshly opened
	// device. Called exactly once, while the mount table's write lock is
	// held.
	Mount(dev bdev.Device) (fsData any, err error)

	// Unmount releases state produced by Mount. Called exactly once,
	// when a mount's reference count falls to zero.
	Unmount(fsData any)

	// Open resolves tail (the path remainder after the mount prefix) and
	// sets h.Type and h.FileData.
	Open(fsData any, h *Handle, tail string) error

	// Read transfers up to len(dest) bytes at the handle's current seek
	// position, returns the actual count, and advances the seek
	// position by that count.
	Read(h *Handle, dest []byte) (n int, err error)

	// Seek clamps offset to the file's length and returns the resulting,
	// possibly-clamped, offset. It never fails.
	Seek(h *Handle, offset int64) (newOffset int64)

	// Close releases per-handle backend state. Its return value reports
	// commit failure, not failure to close: the handle is gone either
	// way.
	Close(h *Handle) error

	// Opendir allocates a cursor for Readdir.
	Opendir(fsData any, dh *DirHandle) error

	// Readdir yields the next entry, or vfserr.ErrEndOfDirectory once
	// the directory is exhausted.
	Readdir(fsData any, dh *DirHandle) (Dirent, error)

	// Closedir releases cursor state. It cannot fail.
	Closedir(dh *DirHandle)
}

var registryInstance = registry.New[Ops]()

// Register adds ops under name. Call from an init function; registering
// the same name twice panics.
func Register(name string, ops Ops) {
	registryInstance.Register(name, ops)
}

// Lookup resolves name to its registered Ops table.
func Lookup(name string) (Ops, bool) {
	return registryInstance.Lookup(name)
}
