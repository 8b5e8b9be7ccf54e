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

package dumbfs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vfscore/vfscore/internal/backend"
	"github.com/vfscore/vfscore/internal/bdev"
	"github.com/vfscore/vfscore/internal/vfserr"
)

type archiveEntry struct {
	name    string
	payload string

	// pad appends extra slack to the entry body, exercising the rule
	// that the next entry starts entry_size bytes after the header
	// rather than right after the payload.
	pad int

	// entrySizeOverride forces a specific entry_size when nonzero,
	// for corrupt-image tests.
	entrySizeOverride uint32
}

func buildArchive(entries ...archiveEntry) []byte {
	image := binary.LittleEndian.AppendUint32(nil, uint32(len(entries)))
	for _, e := range entries {
		entrySize := uint32(len(e.name) + 1 + len(e.payload) + e.pad)
		if e.entrySizeOverride != 0 {
			entrySize = e.entrySizeOverride
		}
		image = binary.LittleEndian.AppendUint32(image, entrySize)
		image = binary.LittleEndian.AppendUint32(image, uint32(len(e.payload)))
		image = append(image, e.name...)
		image = append(image, 0)
		image = append(image, e.payload...)
		for i := 0; i < e.pad; i++ {
			image = append(image, 0)
		}
	}
	return image
}

type DumbFSTest struct {
	suite.Suite

	fs  backend.Ops
	dev bdev.Device

	fsData any
}

func TestDumbFSSuite(t *testing.T) {
	suite.Run(t, new(DumbFSTest))
}

// mountImage mounts the given image bytes, replacing any previously
// mounted one.
func (t *DumbFSTest) mountImage(image []byte) {
	t.dev = bdev.NewMemDevice(image)
	fsData, err := t.fs.Mount(t.dev)
	require.NoError(t.T(), err)
	t.fsData = fsData
}

func (t *DumbFSTest) open(tail string) (*backend.Handle, error) {
	h := &backend.Handle{Device: t.dev}
	err := t.fs.Open(t.fsData, h, tail)
	return h, err
}

func (t *DumbFSTest) SetupTest() {
	t.fs = &dumbFS{}
	// The two-entry image every scenario below starts from: "a" holding
	// "hello" and "bb" holding "world", each entry body carrying two
	// bytes of slack.
	t.mountImage(buildArchive(
		archiveEntry{name: "a", payload: "hello", pad: 2},
		archiveEntry{name: "bb", payload: "world", pad: 2},
	))
}

func (t *DumbFSTest) TestMountReadsFileCount() {
	assert.Equal(t.T(), uint32(2), t.fsData.(*archive).count)
}

func (t *DumbFSTest) TestMountShortDevice() {
	dev := bdev.NewMemDevice([]byte{1, 2})

	_, err := t.fs.Mount(dev)

	assert.ErrorIs(t.T(), err, vfserr.ErrBadDevice)
}

func (t *DumbFSTest) TestOpenEmptyTailIsRoot() {
	h, err := t.open("")

	require.NoError(t.T(), err)
	assert.True(t.T(), h.Type.Has(backend.Directory))
	assert.False(t.T(), h.Type.Has(backend.RegularFile))
}

func (t *DumbFSTest) TestOpenAndReadWholeFile() {
	h, err := t.open("a")
	require.NoError(t.T(), err)
	require.True(t.T(), h.Type.Has(backend.RegularFile))

	buf := make([]byte, 5)
	n, err := t.fs.Read(h, buf)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), 5, n)
	assert.Equal(t.T(), "hello", string(buf))
	// The read advanced the position to end of file.
	assert.Equal(t.T(), int64(5), h.FileData.(*fileState).seek)
}

func (t *DumbFSTest) TestOpenSecondEntry() {
	h, err := t.open("bb")
	require.NoError(t.T(), err)

	buf := make([]byte, 5)
	n, err := t.fs.Read(h, buf)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), 5, n)
	assert.Equal(t.T(), "world", string(buf))
}

func (t *DumbFSTest) TestOpenNotFound() {
	_, err := t.open("nope")

	assert.ErrorIs(t.T(), err, vfserr.ErrNotFound)
}

// "b" is a strict prefix of the entry name "bb"; the terminator byte in
// the comparison keeps it from matching.
func (t *DumbFSTest) TestOpenPrefixOfNameDoesNotMatch() {
	_, err := t.open("b")

	assert.ErrorIs(t.T(), err, vfserr.ErrNotFound)
}

func (t *DumbFSTest) TestReadClampsToRemaining() {
	h, err := t.open("a")
	require.NoError(t.T(), err)

	buf := make([]byte, 64)
	n, err := t.fs.Read(h, buf)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), 5, n)
	assert.Equal(t.T(), "hello", string(buf[:n]))
}

func (t *DumbFSTest) TestReadInChunks() {
	h, err := t.open("a")
	require.NoError(t.T(), err)

	buf := make([]byte, 3)
	n, err := t.fs.Read(h, buf)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), 3, n)
	assert.Equal(t.T(), "hel", string(buf))

	n, err = t.fs.Read(h, buf)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), 2, n)
	assert.Equal(t.T(), "lo", string(buf[:n]))
}

func (t *DumbFSTest) TestReadAtEOFTransfersNothing() {
	h, err := t.open("a")
	require.NoError(t.T(), err)
	t.fs.Seek(h, 5)

	n, err := t.fs.Read(h, make([]byte, 8))

	require.NoError(t.T(), err)
	assert.Zero(t.T(), n)
}

func (t *DumbFSTest) TestSeekClampsToFileSize() {
	h, err := t.open("a")
	require.NoError(t.T(), err)

	assert.Equal(t.T(), int64(5), t.fs.Seek(h, 100))
	assert.Equal(t.T(), int64(0), t.fs.Seek(h, -3))
	assert.Equal(t.T(), int64(2), t.fs.Seek(h, 2))
}

func (t *DumbFSTest) TestSeekThenRead() {
	h, err := t.open("a")
	require.NoError(t.T(), err)
	t.fs.Seek(h, 2)

	buf := make([]byte, 8)
	n, err := t.fs.Read(h, buf)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), "llo", string(buf[:n]))
}

func (t *DumbFSTest) TestReaddirYieldsAllEntriesThenEnd() {
	dh := &backend.DirHandle{}
	require.NoError(t.T(), t.fs.Opendir(t.fsData, dh))

	ent, err := t.fs.Readdir(t.fsData, dh)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), "a", ent.Name)
	assert.False(t.T(), ent.IsDir)

	ent, err = t.fs.Readdir(t.fsData, dh)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), "bb", ent.Name)

	_, err = t.fs.Readdir(t.fsData, dh)
	assert.ErrorIs(t.T(), err, vfserr.ErrEndOfDirectory)

	// Exhaustion leaves the cursor where it is; asking again keeps
	// reporting end of directory.
	_, err = t.fs.Readdir(t.fsData, dh)
	assert.ErrorIs(t.T(), err, vfserr.ErrEndOfDirectory)

	t.fs.Closedir(dh)
	assert.Nil(t.T(), dh.DirData)
}

func (t *DumbFSTest) TestReaddirEmptyArchive() {
	t.mountImage(buildArchive())

	dh := &backend.DirHandle{}
	require.NoError(t.T(), t.fs.Opendir(t.fsData, dh))

	_, err := t.fs.Readdir(t.fsData, dh)
	assert.ErrorIs(t.T(), err, vfserr.ErrEndOfDirectory)
}

func (t *DumbFSTest) TestOpenOnEmptyArchive() {
	t.mountImage(buildArchive())

	_, err := t.open("a")

	assert.ErrorIs(t.T(), err, vfserr.ErrNotFound)
}

// An entry_size too small to hold the name and payload it advertises is
// refused rather than used to read out of bounds.
func (t *DumbFSTest) TestOpenRefusesLyingEntrySize() {
	t.mountImage(buildArchive(
		archiveEntry{name: "evil", payload: "xxxxxxxx", entrySizeOverride: 6},
	))

	_, err := t.open("evil")

	assert.ErrorIs(t.T(), err, vfserr.ErrBadDevice)
}

// A truncated image whose second entry header is cut off surfaces as a
// bad device on that header read, not as a crash or a wild read.
func (t *DumbFSTest) TestOpenTruncatedArchive() {
	image := buildArchive(
		archiveEntry{name: "a", payload: "hello"},
		archiveEntry{name: "bb", payload: "world"},
	)
	t.mountImage(image[:len(image)-12])

	_, err := t.open("bb")

	assert.ErrorIs(t.T(), err, vfserr.ErrBadDevice)
}

func (t *DumbFSTest) TestReaddirTruncatesLongNames() {
	longName := make([]byte, 2*direntNameCap)
	for i := range longName {
		longName[i] = 'x'
	}
	t.mountImage(buildArchive(archiveEntry{name: string(longName), payload: "p"}))

	dh := &backend.DirHandle{}
	require.NoError(t.T(), t.fs.Opendir(t.fsData, dh))
	ent, err := t.fs.Readdir(t.fsData, dh)

	require.NoError(t.T(), err)
	assert.Len(t.T(), ent.Name, direntNameCap-1)
}

func (t *DumbFSTest) TestCloseClearsFileData() {
	h, err := t.open("a")
	require.NoError(t.T(), err)

	require.NoError(t.T(), t.fs.Close(h))

	assert.Nil(t.T(), h.FileData)
}
