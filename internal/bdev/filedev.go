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

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileDevice is a block device backed by a read-only file descriptor. This
// is the device the kernel's init sequence mounts as "initrd": a flat
// archive image living on the host filesystem.
type fileDevice struct {
	f *os.File
}

// OpenFileDevice opens path read-only and returns it as a Device.
func OpenFileDevice(path string) (Device, error) {
	f, err := os.OpenFile(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &fileDevice{f: f}, nil
}

func (d *fileDevice) ReadAt(dest []byte, offset int64) (int, error) {
	return d.f.ReadAt(dest, offset)
}

func (d *fileDevice) Close() error {
	return d.f.Close()
}

// RegisterFileDevice registers name to open path as a fileDevice on every
// call to bdev.Open(name). The kernel's CLI uses this to bind the
// configured archive path to the device name "initrd" before running the
// init sequence.
func RegisterFileDevice(name, path string) {
	Register(name, func(string) (Device, error) {
		return OpenFileDevice(path)
	})
}
