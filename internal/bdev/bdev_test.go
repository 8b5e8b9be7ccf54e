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
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfscore/vfscore/internal/vfserr"
)

func TestMemDeviceReadAt(t *testing.T) {
	dev := NewMemDevice([]byte("hello world"))

	buf := make([]byte, 5)
	n, err := dev.ReadAt(buf, 6)

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
}

func TestMemDeviceShortReadAtEOF(t *testing.T) {
	dev := NewMemDevice([]byte("abc"))

	buf := make([]byte, 10)
	n, err := dev.ReadAt(buf, 1)

	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "bc", string(buf[:n]))
}

func TestMemDeviceReadPastEnd(t *testing.T) {
	dev := NewMemDevice([]byte("abc"))

	n, err := dev.ReadAt(make([]byte, 1), 99)

	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
}

func TestReadFull(t *testing.T) {
	dev := NewMemDevice([]byte("hello"))

	buf := make([]byte, 5)
	err := ReadFull(dev, buf, 0)

	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

// Any read the device cannot satisfy in full is a bad device, never a
// partial success.
func TestReadFullShortReadIsBadDevice(t *testing.T) {
	dev := NewMemDevice([]byte("hi"))

	err := ReadFull(dev, make([]byte, 5), 0)

	assert.ErrorIs(t, err, vfserr.ErrBadDevice)
}

func TestOpenUnknownName(t *testing.T) {
	_, err := Open("no-such-device")

	assert.ErrorIs(t, err, vfserr.ErrNotFound)
}

func TestOpenRegisteredMemDevice(t *testing.T) {
	RegisterMemDevice(t.Name(), []byte("payload"))

	dev, err := Open(t.Name())
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 7)
	require.NoError(t, ReadFull(dev, buf, 0))
	assert.Equal(t, "payload", string(buf))
}
