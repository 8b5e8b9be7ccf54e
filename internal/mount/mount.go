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

// Package mount implements the VFS mount table: the set of live mount
// points, the read/write lock protecting it, and the reference-count
// handoff that delays backend teardown until every handle derived from a
// mount has been released.
//
// Lock order, enforced throughout this package: Find acquires a per-mount
// lock only while the table's read lock is held; Put and RefCount acquire
// it with no table lock held. The table's write lock is never acquired
// while holding the read lock or the lock of a mount linked into the
// table: Release drops the per-mount lock first, and InsertAndMount's
// caller holds only the lock of the mount being inserted, which is not yet
// linked. No operation ever holds two per-mount locks at once.
package mount

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jacobsa/syncutil"

	"github.com/vfscore/vfscore/internal/backend"
	"github.com/vfscore/vfscore/internal/bdev"
	"github.com/vfscore/vfscore/internal/vfserr"
)

// Mount is the association of an absolute, canonical mount-point path with
// a backend and a block device.
type Mount struct {
	// ID is a process-unique identifier assigned at creation, carried
	// into log messages and the Open trace span so that two mounts of the
	// same backend are distinguishable without parsing paths. Metric
	// labels do not include it.
	ID uuid.UUID

	// Path is owned by this mount for its whole lifetime: canonical,
	// absolute, never empty. Immutable after construction, so it may be
	// read without holding lock while the table's read lock is held.
	Path string

	Device bdev.Device
	Ops    backend.Ops
	FSData any

	// lock serializes mutation of refCount and guards against a mount
	// being torn down while in use. GUARDED_BY(lock): refCount.
	lock sync.Mutex

	// refCount starts at 1 at construction (the mount's own standing
	// reference, released only by Unmount) and gains one unit per
	// successful Find and per open handle that retains it. Once it
	// reaches zero it never rises again: Find refuses a zero-count
	// mount, so teardown may safely drop the per-mount lock before
	// escalating to the table's write lock.
	refCount int
}

// Table is the set of live mounts, guarded by a read/write lock with an
// invariant check: no two mounts may ever share a canonical path.
type Table struct {
	// mu wraps checkInvariants so that a corrupted table surfaces
	// immediately in tests rather than as a wrong lookup much later.
	//
	// Readers: Find. Writers: InsertAndMount, teardown.
	mu     syncutil.InvariantMutex
	mounts []*Mount
}

// NewTable returns an empty mount table.
func NewTable() *Table {
	t := &Table{}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *Table) checkInvariants() {
	seen := make(map[string]bool, len(t.mounts))
	for _, m := range t.mounts {
		if seen[m.Path] {
			panic("mount: duplicate path " + m.Path + " in table")
		}
		seen[m.Path] = true
	}
}

// New constructs a Mount with refCount 1, returned already locked: the
// caller owns the lock until it finishes wiring up the backend and
// explicitly unlocks.
func New(path string, dev bdev.Device, ops backend.Ops) *Mount {
	m := &Mount{
		ID:       uuid.New(),
		Path:     path,
		Device:   dev,
		Ops:      ops,
		refCount: 1,
	}
	m.lock.Lock()
	return m
}

// Unlock releases m's own lock. Exposed so the facade can release it once
// it has finished wiring up a freshly constructed mount.
func (m *Mount) Unlock() { m.lock.Unlock() }

// InsertAndMount appends m to the table and invokes the backend's Mount,
// both under the table's write lock, so that no concurrent Find can
// observe the mount in a half-constructed state. If the backend fails, m
// is removed again before the lock is dropped and the error is returned;
// the caller still owns m's device and lock and must clean both up.
//
// The duplicate-path check runs here, under the write lock, because two
// racing Mount calls can both pass the facade's lookup-based precheck.
func (t *Table) InsertAndMount(m *Mount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, candidate := range t.mounts {
		if candidate.Path == m.Path {
			return vfserr.ErrAlreadyMounted
		}
	}
	t.mounts = append(t.mounts, m)
	fsData, err := m.Ops.Mount(m.Device)
	if err != nil {
		t.removeLocked(m)
		return err
	}
	m.FSData = fsData
	return nil
}

// removeLocked unlinks m by identity. Callers must hold the write lock.
func (t *Table) removeLocked(m *Mount) {
	for i, candidate := range t.mounts {
		if candidate == m {
			t.mounts = append(t.mounts[:i], t.mounts[i+1:]...)
			return
		}
	}
}

// isPrefix reports whether mountPath is a path-component-aligned prefix of
// absPath: either an exact match, or a match followed immediately by a
// separator. A plain strings.HasPrefix would wrongly let "/ab" match
// "/abc".
func isPrefix(mountPath, absPath string) bool {
	if !strings.HasPrefix(absPath, mountPath) {
		return false
	}
	if mountPath == "/" {
		return true
	}
	return len(absPath) == len(mountPath) || absPath[len(mountPath)] == '/'
}

// Find scans all mounts for the longest path that prefixes absPath. On a
// hit it increments the mount's reference count and returns it with its
// own lock held; the caller must eventually balance this with exactly one
// Release (directly, or via Put once the lock has been dropped). The
// returned tail has the mount prefix and any leading separator removed, so
// the backend sees a root-relative path.
//
// A mount whose count has already fallen to zero is mid-teardown and is
// treated as a miss, never resurrected.
func (t *Table) Find(absPath string) (m *Mount, tail string, ok bool) {
	t.mu.RLock()
	var best *Mount
	for _, candidate := range t.mounts {
		if !isPrefix(candidate.Path, absPath) {
			continue
		}
		if best == nil || len(candidate.Path) > len(best.Path) {
			best = candidate
		}
	}
	if best == nil {
		t.mu.RUnlock()
		return nil, "", false
	}
	best.lock.Lock()
	if best.refCount == 0 {
		best.lock.Unlock()
		t.mu.RUnlock()
		return nil, "", false
	}
	best.refCount++
	t.mu.RUnlock()

	tail = absPath[len(best.Path):]
	tail = strings.TrimPrefix(tail, "/")
	return best, tail, true
}

// Release decrements m's reference count by one. The caller must hold m's
// lock on entry; in every case it is released before Release returns.
//
// If the count reaches zero the mount is torn down: first m's lock is
// dropped (a zero count is terminal, so no new reference can appear in the
// window), then under the table's write lock the backend is unmounted, the
// device closed, and the mount unlinked. Holding m's lock across the write
// lock acquisition would deadlock against Find, which takes per-mount
// locks while holding the read lock.
func (t *Table) Release(m *Mount) {
	m.refCount--
	if m.refCount > 0 {
		m.lock.Unlock()
		return
	}
	m.lock.Unlock()

	t.mu.Lock()
	m.Ops.Unmount(m.FSData)
	_ = m.Device.Close()
	t.removeLocked(m)
	t.mu.Unlock()
}

// Put acquires m's lock and releases one reference. This is the form used
// when closing a handle, where the caller does not already hold the lock.
func (t *Table) Put(m *Mount) {
	m.lock.Lock()
	t.Release(m)
}

// DropStandingReference decrements m's count without triggering teardown
// even if it would reach zero, and reports the remaining count. Unmount
// uses it to cancel the bump its own lookup acquired and then decide,
// while still holding the lock, whether other holders make the mount
// busy. The caller must hold m's lock on entry and continues to hold it on
// return.
func (t *Table) DropStandingReference(m *Mount) int {
	m.refCount--
	return m.refCount
}

// Len reports the number of live mounts. Intended for tests and metrics.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mounts)
}

// RefCount reports m's current reference count. Intended for tests.
func (m *Mount) RefCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.refCount
}
