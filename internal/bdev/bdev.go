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

// Package bdev models the block device collaborator the VFS core consumes
// but does not own: a byte-addressable, random-access device located by
// name. The real kernel's device layer (interrupt-driven disk I/O, DMA,
// etc.) is out of scope; this package exists only so the reference backend
// and the facade's init sequence have something concrete to run against.
package bdev

import (
	"fmt"
	"io"

	"github.com/vfscore/vfscore/internal/registry"
	"github.com/vfscore/vfscore/internal/vfserr"
)

// Device is the full consumed interface: a bounded, synchronous,
// blocking read at an offset, and a close. There is deliberately no Write;
// the VFS core this module implements is read-only (see Non-goals).
type Device interface {
	// ReadAt transfers up to len(dest) bytes starting at offset. It
	// follows io.ReaderAt's contract: a short read without an error is
	// only permitted at EOF.
	ReadAt(dest []byte, offset int64) (n int, err error)

	// Close releases the device. Devices are exclusively owned by the
	// mount that opened them; Close is called exactly once: by the mount
	// table when the mount's reference count reaches zero, or by the
	// facade when the mount fails to be inserted or set up.
	Close() error
}

// Opener constructs a Device given the name it was registered under. It is
// invoked once per Open call, including the Open a Mount call makes
// before it knows whether the mount will succeed.
type Opener func(name string) (Device, error)

var openers = registry.New[Opener]()

// Register adds a device opener under name. Call from an init function;
// registering the same name twice panics.
func Register(name string, open Opener) {
	openers.Register(name, open)
}

// Open resolves name to a Device via the opener registered under it. It
// returns vfserr.ErrNotFound if no such device is registered, or whatever
// error the opener itself returns (e.g. a missing backing file).
func Open(name string) (Device, error) {
	open, ok := openers.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("bdev %q: %w", name, vfserr.ErrNotFound)
	}
	return open(name)
}

// ReadFull reads exactly len(dest) bytes at offset, treating a short read
// as vfserr.ErrBadDevice. It never returns io.EOF directly; an EOF from
// the underlying device is itself a short read here.
func ReadFull(dev Device, dest []byte, offset int64) error {
	n, err := dev.ReadAt(dest, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", vfserr.ErrBadDevice, err)
	}
	if n != len(dest) {
		return vfserr.ErrBadDevice
	}
	return nil
}
