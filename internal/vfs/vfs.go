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

// Package vfs is the facade over the mount table and the backends: the
// public Mount/Unmount/Open/Read/... operations that resolve a path to a
// mount and dispatch to its backend's operation table.
//
// Every operation accepts paths that may be relative; they are resolved
// against the session's working directory and canonicalized before any
// lookup. Instrumentation (logging, tracing, metrics) wraps each
// operation but never changes its return values or error taxonomy.
package vfs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jacobsa/timeutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vfscore/vfscore/internal/backend"
	"github.com/vfscore/vfscore/internal/bdev"
	"github.com/vfscore/vfscore/internal/logger"
	"github.com/vfscore/vfscore/internal/metrics"
	"github.com/vfscore/vfscore/internal/mount"
	"github.com/vfscore/vfscore/internal/vfspath"
	"github.com/vfscore/vfscore/internal/vfserr"
)

// VFS brokers access to files and directories across every mounted
// backend. Its zero value is not usable; construct with New.
type VFS struct {
	table        *mount.Table
	metricHandle metrics.MetricHandle
	clock        timeutil.Clock
	tracer       trace.Tracer
}

// New returns an empty VFS. A nil metricHandle records nothing; a nil
// clock means wall time.
func New(metricHandle metrics.MetricHandle, clock timeutil.Clock) *VFS {
	if metricHandle == nil {
		metricHandle = metrics.NewNoopMetrics()
	}
	if clock == nil {
		clock = timeutil.RealClock()
	}
	return &VFS{
		table:        mount.NewTable(),
		metricHandle: metricHandle,
		clock:        clock,
		tracer:       otel.Tracer("vfs"),
	}
}

// Handle is the caller-facing token for an open file or directory. It
// holds one unit of its mount's reference count until closed.
type Handle struct {
	// ID correlates log lines and trace spans for this handle.
	ID uuid.UUID

	mnt *mount.Mount
	b   backend.Handle
}

// IsDir reports whether the handle may be passed to Opendir.
func (h *Handle) IsDir() bool { return h.b.Type.Has(backend.Directory) }

// DirHandle wraps an open directory Handle plus the backend's iteration
// cursor.
type DirHandle struct {
	file *Handle
	b    backend.DirHandle
}

// resolve canonicalizes path relative to the session's working directory.
func resolve(sess *Session, path string) string {
	return vfspath.Normalize(vfspath.Resolve(sess.CWD(), path))
}

// Mount attaches the named backend at path, bound to the named block
// device. It fails with vfserr.ErrNotFound when the backend or device
// name does not resolve, and vfserr.ErrAlreadyMounted when a mount
// already lives at the canonical path.
func (v *VFS) Mount(ctx context.Context, sess *Session, path, backendName, deviceName string) (err error) {
	ctx, span := v.startOp(ctx, "Mount",
		attribute.String("path", path),
		attribute.String("backend", backendName),
		attribute.String("device", deviceName))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Mount", start, err) }()

	abs := resolve(sess, path)

	ops, ok := backend.Lookup(backendName)
	if !ok {
		return fmt.Errorf("backend %q: %w", backendName, vfserr.ErrNotFound)
	}

	// Fast precheck. The table re-checks under its write lock, since a
	// racing Mount can slip in after this release.
	if existing, _, found := v.table.Find(abs); found {
		same := existing.Path == abs
		v.table.Release(existing)
		if same {
			return fmt.Errorf("%q: %w", abs, vfserr.ErrAlreadyMounted)
		}
	}

	dev, err := bdev.Open(deviceName)
	if err != nil {
		return err
	}

	m := mount.New(abs, dev, ops)
	if err := v.table.InsertAndMount(m); err != nil {
		m.Unlock()
		_ = dev.Close()
		return err
	}
	m.Unlock()

	logger.Infof("vfs: mounted %s at %s (device %s, mount id %s)", backendName, abs, deviceName, m.ID)
	return nil
}

// Unmount detaches the mount whose path equals the canonical form of
// path. While open handles still reference the mount it fails with
// vfserr.ErrTargetBusy; the caller's lookup never counts against itself.
func (v *VFS) Unmount(ctx context.Context, sess *Session, path string) (err error) {
	ctx, span := v.startOp(ctx, "Unmount", attribute.String("path", path))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Unmount", start, err) }()

	abs := resolve(sess, path)

	m, _, found := v.table.Find(abs)
	if !found {
		return fmt.Errorf("%q: %w", abs, vfserr.ErrNotFound)
	}
	if m.Path != abs {
		// The longest-prefix match is some ancestor mount, not a mount
		// at the requested path itself.
		v.table.Release(m)
		return fmt.Errorf("%q: %w", abs, vfserr.ErrNotFound)
	}

	// Cancel the bump our own lookup acquired, still under m's lock, so
	// the busy check sees only genuinely foreign holders plus the
	// mount's standing reference.
	remaining := v.table.DropStandingReference(m)
	if remaining > 1 {
		m.Unlock()
		return fmt.Errorf("%q: %w", abs, vfserr.ErrTargetBusy)
	}

	// Sole holder: drop the standing reference and tear down.
	id := m.ID
	v.table.Release(m)
	logger.Infof("vfs: unmounted %s (mount id %s)", abs, id)
	return nil
}

// Open resolves path to a mount and asks its backend to open the tail.
// The returned handle keeps the mount alive until Close.
func (v *VFS) Open(ctx context.Context, sess *Session, path string) (h *Handle, err error) {
	ctx, span := v.startOp(ctx, "Open", attribute.String("path", path))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Open", start, err) }()

	abs := resolve(sess, path)

	m, tail, found := v.table.Find(abs)
	if !found {
		return nil, fmt.Errorf("%q: %w", abs, vfserr.ErrNotFound)
	}
	span.SetAttributes(attribute.String("mount_id", m.ID.String()))

	h = &Handle{ID: uuid.New(), mnt: m}
	h.b.Device = m.Device
	if err := m.Ops.Open(m.FSData, &h.b, tail); err != nil {
		// The failed open releases the bump the lookup acquired; the
		// handle itself was never published.
		v.table.Release(m)
		return nil, fmt.Errorf("open %q: %w", abs, err)
	}
	m.Unlock()

	logger.Tracef("vfs: opened %q (handle %s)", abs, h.ID)
	return h, nil
}

// Opendir prepares h, which must be a directory, for iteration with
// Readdir. A failed Opendir destroys the directory handle only; h stays
// open.
func (v *VFS) Opendir(ctx context.Context, h *Handle) (dh *DirHandle, err error) {
	ctx, span := v.startOp(ctx, "Opendir", attribute.String("handle_id", h.ID.String()))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Opendir", start, err) }()

	if !h.b.Type.Has(backend.Directory) {
		return nil, vfserr.ErrNotDirectory
	}
	dh = &DirHandle{file: h}
	dh.b.File = &h.b
	if err := h.mnt.Ops.Opendir(h.mnt.FSData, &dh.b); err != nil {
		return nil, err
	}
	return dh, nil
}

// Read transfers up to len(dest) bytes from h's current position,
// advancing it by the transferred count. h must be a regular file.
func (v *VFS) Read(ctx context.Context, h *Handle, dest []byte) (n int, err error) {
	ctx, span := v.startOp(ctx, "Read", attribute.String("handle_id", h.ID.String()))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Read", start, err) }()

	if !h.b.Type.Has(backend.RegularFile) {
		return 0, vfserr.ErrBadHandler
	}
	return h.mnt.Ops.Read(&h.b, dest)
}

// Seek moves h's position to offset, clamped to the file's length, and
// returns the resulting position. Seeking past end of file parks the
// handle at end of file rather than failing.
func (v *VFS) Seek(ctx context.Context, h *Handle, offset int64) (newOffset int64, err error) {
	ctx, span := v.startOp(ctx, "Seek", attribute.String("handle_id", h.ID.String()))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Seek", start, err) }()

	if !h.b.Type.Has(backend.RegularFile) {
		return 0, vfserr.ErrBadHandler
	}
	return h.mnt.Ops.Seek(&h.b, offset), nil
}

// Close releases h and the mount reference it holds. The handle is gone
// on return regardless of the backend's verdict; the returned error
// reports commit failure only.
func (v *VFS) Close(ctx context.Context, h *Handle) (err error) {
	ctx, span := v.startOp(ctx, "Close", attribute.String("handle_id", h.ID.String()))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Close", start, err) }()

	err = h.mnt.Ops.Close(&h.b)
	v.table.Put(h.mnt)
	logger.Tracef("vfs: closed handle %s", h.ID)
	return err
}

// Readdir yields the next directory entry, or vfserr.ErrEndOfDirectory
// once the directory is exhausted.
func (v *VFS) Readdir(ctx context.Context, dh *DirHandle) (ent backend.Dirent, err error) {
	ctx, span := v.startOp(ctx, "Readdir", attribute.String("handle_id", dh.file.ID.String()))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Readdir", start, err) }()

	if !dh.file.b.Type.Has(backend.Directory) {
		return backend.Dirent{}, vfserr.ErrBadHandler
	}
	return dh.file.mnt.Ops.Readdir(dh.file.mnt.FSData, &dh.b)
}

// Closedir releases the iteration cursor and then closes the underlying
// directory handle. Commit failure of that close is surfaced.
func (v *VFS) Closedir(ctx context.Context, dh *DirHandle) (err error) {
	ctx, span := v.startOp(ctx, "Closedir", attribute.String("handle_id", dh.file.ID.String()))
	start := v.clock.Now()
	defer func() { v.endOp(ctx, span, "Closedir", start, err) }()

	if !dh.file.b.Type.Has(backend.Directory) {
		return vfserr.ErrBadHandler
	}
	dh.file.mnt.Ops.Closedir(&dh.b)
	return v.Close(ctx, dh.file)
}

// MountCount reports the number of live mounts. Intended for tests and
// diagnostics.
func (v *VFS) MountCount() int { return v.table.Len() }

func (v *VFS) startOp(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return v.tracer.Start(ctx, "vfs/"+op, trace.WithAttributes(attrs...))
}

// endOp finishes the operation's span and records its metrics. End of
// directory is the iteration terminator, not a failure, and is excluded
// from the error instruments.
func (v *VFS) endOp(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	latency := v.clock.Now().Sub(start)
	v.metricHandle.OpsCount(ctx, 1, op)
	v.metricHandle.OpsLatency(ctx, latency, op)
	if err != nil && !errors.Is(err, vfserr.ErrEndOfDirectory) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.metricHandle.OpsErrorCount(ctx, 1, metrics.FSOpsErrorCategory{
			FSOps:         op,
			ErrorCategory: errorCategory(err),
		})
		logger.Warnf("vfs: %s failed: %v", op, err)
	}
	span.End()
}

// errorCategory folds an error into its taxonomy kind, bounding the
// cardinality of the error counter's label.
func errorCategory(err error) string {
	switch {
	case errors.Is(err, vfserr.ErrNoMemory):
		return "NO_MEMORY"
	case errors.Is(err, vfserr.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, vfserr.ErrAlreadyMounted):
		return "ALREADY_MOUNTED"
	case errors.Is(err, vfserr.ErrTargetBusy):
		return "TARGET_BUSY"
	case errors.Is(err, vfserr.ErrNotDirectory):
		return "NOT_DIRECTORY"
	case errors.Is(err, vfserr.ErrBadHandler):
		return "BAD_HANDLER"
	case errors.Is(err, vfserr.ErrBadDevice):
		return "BAD_DEVICE"
	default:
		return "OTHER"
	}
}
