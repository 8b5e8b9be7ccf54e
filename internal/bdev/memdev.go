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

package bdev

import "io"

// memDevice is an in-memory, read-only block device backed by a byte
// slice. It exists so unit tests can construct flat-archive images without
// touching a real filesystem.
type memDevice struct {
	data []byte
}

// NewMemDevice wraps data as a Device. The slice is not copied; callers
// must not mutate it while the device is in use.
func NewMemDevice(data []byte) Device {
	return &memDevice{data: data}
}

func (d *memDevice) ReadAt(dest []byte, offset int64) (int, error) {
	if offset < 0 || offset > int64(len(d.data)) {
		return 0, io.EOF
	}
	n := copy(dest, d.data[offset:])
	if n < len(dest) {
		return n, io.EOF
	}
	return n, nil
}

func (d *memDevice) Close() error {
	return nil
}

// RegisterMemDevice registers name so that bdev.Open(name) returns a fresh
// device over data. Intended for test setup and for small embedded images;
// registering the same name twice panics, per Registry.Register.
func RegisterMemDevice(name string, data []byte) {
	Register(name, func(string) (Device, error) {
		return NewMemDevice(data), nil
	})
}
