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

// Package dumbfs implements the read-only flat archive backend.
//
// On-disk layout, little-endian:
//
//	offset 0:  uint32  file_count
//	offset 4:  repeated file_count times:
//	             uint32 entry_size   // bytes of entry body after this header
//	             uint32 file_size    // bytes of payload
//	             name[]              // null-terminated
//	             payload[file_size]
//
// The next entry begins entry_size bytes after its header, so in a
// well-formed image name length + 1 + file_size never exceeds entry_size.
// entry_size comes off the device and is untrusted: Open checks a matched
// entry against that relation before handing out its payload, Readdir
// reads no more than entry_size bytes of name, and a header offset it
// steers past the end of the device fails as a short read.
package dumbfs

import (
	"encoding/binary"
	"fmt"

	"github.com/vfscore/vfscore/internal/backend"
	"github.com/vfscore/vfscore/internal/bdev"
	"github.com/vfscore/vfscore/internal/vfserr"
)

const (
	// headerSize is the fixed per-entry header: entry_size and file_size.
	headerSize = 8

	// firstEntryOffset is where the first entry header lives, right
	// after the archive-wide file count.
	firstEntryOffset = 4

	// direntNameCap bounds the name a Readdir yield can carry, including
	// the terminator position; longer on-disk names are truncated to
	// direntNameCap-1 bytes.
	direntNameCap = 256

	// maxLookupName bounds the name buffer Open allocates for the
	// query-length-sized comparison read.
	maxLookupName = 4096
)

func init() {
	backend.Register("dumbfs", &dumbFS{})
}

// dumbFS is stateless; all per-mount state lives in the archive value
// produced by Mount.
type dumbFS struct{}

// archive is the per-mount state: the device and the entry count read
// from it at mount time.
type archive struct {
	dev   bdev.Device
	count uint32
}

// fileState is the per-handle state for an open regular file.
type fileState struct {
	payloadOff int64
	size       int64
	seek       int64
}

// dirCursor is the per-directory-handle state: the index of the next
// entry to yield and the device offset of its header.
type dirCursor struct {
	index uint32
	off   int64
}

type entryHeader struct {
	entrySize uint32
	fileSize  uint32
}

func readHeader(dev bdev.Device, off int64) (entryHeader, error) {
	var buf [headerSize]byte
	if err := bdev.ReadFull(dev, buf[:], off); err != nil {
		return entryHeader{}, err
	}
	return entryHeader{
		entrySize: binary.LittleEndian.Uint32(buf[0:4]),
		fileSize:  binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func (*dumbFS) Mount(dev bdev.Device) (any, error) {
	var buf [4]byte
	if err := bdev.ReadFull(dev, buf[:], 0); err != nil {
		return nil, fmt.Errorf("reading file count: %w", err)
	}
	return &archive{dev: dev, count: binary.LittleEndian.Uint32(buf[:])}, nil
}

func (*dumbFS) Unmount(fsData any) {
	// All archive state is device-backed; nothing to release beyond the
	// device itself, which the mount table owns.
}

// Open resolves tail against the archive. The empty tail is the archive
// root, a directory; anything else is matched byte-for-byte against entry
// names in a sequential scan.
func (*dumbFS) Open(fsData any, h *backend.Handle, tail string) error {
	if tail == "" {
		h.Type = backend.Directory
		return nil
	}

	if len(tail)+1 > maxLookupName {
		return vfserr.ErrNoMemory
	}
	// The comparison buffer holds the queried name plus its terminator,
	// so one equality check covers both content and length.
	want := make([]byte, len(tail)+1)
	copy(want, tail)

	fs := fsData.(*archive)
	got := make([]byte, len(want))
	off := int64(firstEntryOffset)
	for i := uint32(0); i < fs.count; i++ {
		hdr, err := readHeader(fs.dev, off)
		if err != nil {
			return err
		}
		nameOff := off + headerSize
		if int64(hdr.entrySize) >= int64(len(want)) {
			if err := bdev.ReadFull(fs.dev, got, nameOff); err != nil {
				return err
			}
			if string(got) == string(want) {
				if int64(len(want))+int64(hdr.fileSize) > int64(hdr.entrySize) {
					return vfserr.ErrBadDevice
				}
				h.Type = backend.RegularFile
				h.FileData = &fileState{
					payloadOff: nameOff + int64(len(want)),
					size:       int64(hdr.fileSize),
				}
				return nil
			}
		}
		off = nameOff + int64(hdr.entrySize)
	}
	return vfserr.ErrNotFound
}

// Read transfers up to len(dest) bytes from the current seek position,
// clamped to the end of the payload, and advances the seek position by
// the transferred count. A read at end of file transfers zero bytes.
func (*dumbFS) Read(h *backend.Handle, dest []byte) (int, error) {
	f := h.FileData.(*fileState)
	remaining := f.size - f.seek
	if remaining <= 0 {
		return 0, nil
	}
	n := int64(len(dest))
	if n > remaining {
		n = remaining
	}
	if err := bdev.ReadFull(h.Device, dest[:n], f.payloadOff+f.seek); err != nil {
		return 0, err
	}
	f.seek += n
	return int(n), nil
}

// Seek clamps offset to [0, file size] and returns the resulting
// position. Seeking past the end is not an error; it parks the handle at
// end of file.
func (*dumbFS) Seek(h *backend.Handle, offset int64) int64 {
	f := h.FileData.(*fileState)
	if offset < 0 {
		offset = 0
	}
	if offset > f.size {
		offset = f.size
	}
	f.seek = offset
	return offset
}

func (*dumbFS) Close(h *backend.Handle) error {
	h.FileData = nil
	return nil
}

func (*dumbFS) Opendir(fsData any, dh *backend.DirHandle) error {
	dh.DirData = &dirCursor{index: 0, off: firstEntryOffset}
	return nil
}

// Readdir yields the next entry name. Once the cursor is past the last
// entry it returns vfserr.ErrEndOfDirectory and leaves the cursor
// unchanged, so repeated calls keep reporting exhaustion.
func (*dumbFS) Readdir(fsData any, dh *backend.DirHandle) (backend.Dirent, error) {
	fs := fsData.(*archive)
	cur := dh.DirData.(*dirCursor)
	if cur.index >= fs.count {
		return backend.Dirent{}, vfserr.ErrEndOfDirectory
	}

	hdr, err := readHeader(fs.dev, cur.off)
	if err != nil {
		return backend.Dirent{}, err
	}
	nameSpace := int64(hdr.entrySize)
	if nameSpace > direntNameCap {
		nameSpace = direntNameCap
	}
	buf := make([]byte, nameSpace)
	if err := bdev.ReadFull(fs.dev, buf, cur.off+headerSize); err != nil {
		return backend.Dirent{}, err
	}
	name := buf
	for i, b := range buf {
		if b == 0 {
			name = buf[:i]
			break
		}
	}
	if len(name) >= direntNameCap {
		name = name[:direntNameCap-1]
	}

	cur.off += headerSize + int64(hdr.entrySize)
	cur.index++
	return backend.Dirent{Name: string(name), IsDir: false}, nil
}

func (*dumbFS) Closedir(dh *backend.DirHandle) {
	dh.DirData = nil
}
