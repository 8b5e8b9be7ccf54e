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

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/vfscore/vfscore/internal/vfs"
	"github.com/vfscore/vfscore/internal/vfserr"
	"github.com/vfscore/vfscore/internal/vfspath"
)

const readChunkSize = 4096

// runShell reads commands from in and executes them against fsys until
// EOF or an explicit exit. Command errors are printed, not fatal; the
// shell exists to poke at the mounted tree, not to script it.
func runShell(ctx context.Context, fsys *vfs.VFS, sess *vfs.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "vfscore shell; commands: ls [path], cat <path>, stat <path>, cd <path>, exit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s> ", sess.CWD())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch cmd, args := fields[0], fields[1:]; cmd {
		case "ls":
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			err = shellLs(ctx, fsys, sess, out, target)
		case "cat":
			if len(args) != 1 {
				err = errors.New("usage: cat <path>")
				break
			}
			err = shellCat(ctx, fsys, sess, out, args[0])
		case "stat":
			if len(args) != 1 {
				err = errors.New("usage: stat <path>")
				break
			}
			err = shellStat(ctx, fsys, sess, out, args[0])
		case "cd":
			if len(args) != 1 {
				err = errors.New("usage: cd <path>")
				break
			}
			sess, err = shellCd(ctx, fsys, sess, args[0])
		case "exit", "quit":
			return nil
		default:
			err = fmt.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func shellLs(ctx context.Context, fsys *vfs.VFS, sess *vfs.Session, out io.Writer, path string) error {
	h, err := fsys.Open(ctx, sess, path)
	if err != nil {
		return err
	}
	if !h.IsDir() {
		// A file lists as itself, the way ls treats non-directories.
		fmt.Fprintln(out, path)
		return fsys.Close(ctx, h)
	}

	dh, err := fsys.Opendir(ctx, h)
	if err != nil {
		_ = fsys.Close(ctx, h)
		return err
	}
	for {
		ent, err := fsys.Readdir(ctx, dh)
		if errors.Is(err, vfserr.ErrEndOfDirectory) {
			break
		}
		if err != nil {
			_ = fsys.Closedir(ctx, dh)
			return err
		}
		if ent.IsDir {
			fmt.Fprintf(out, "%s/\n", ent.Name)
		} else {
			fmt.Fprintln(out, ent.Name)
		}
	}
	return fsys.Closedir(ctx, dh)
}

func shellCat(ctx context.Context, fsys *vfs.VFS, sess *vfs.Session, out io.Writer, path string) error {
	h, err := fsys.Open(ctx, sess, path)
	if err != nil {
		return err
	}
	buf := make([]byte, readChunkSize)
	for {
		n, err := fsys.Read(ctx, h, buf)
		if err != nil {
			_ = fsys.Close(ctx, h)
			return err
		}
		if n == 0 {
			break
		}
		if _, err := out.Write(buf[:n]); err != nil {
			_ = fsys.Close(ctx, h)
			return err
		}
	}
	return fsys.Close(ctx, h)
}

func shellStat(ctx context.Context, fsys *vfs.VFS, sess *vfs.Session, out io.Writer, path string) error {
	h, err := fsys.Open(ctx, sess, path)
	if err != nil {
		return err
	}
	if h.IsDir() {
		fmt.Fprintf(out, "%s: directory\n", path)
		return fsys.Close(ctx, h)
	}
	// Seek clamps to the file's length, which is exactly its size.
	size, err := fsys.Seek(ctx, h, math.MaxInt64)
	if err != nil {
		_ = fsys.Close(ctx, h)
		return err
	}
	fmt.Fprintf(out, "%s: regular file, %d bytes\n", path, size)
	return fsys.Close(ctx, h)
}

// shellCd verifies the target resolves to a directory and returns a
// session rooted there.
func shellCd(ctx context.Context, fsys *vfs.VFS, sess *vfs.Session, path string) (*vfs.Session, error) {
	h, err := fsys.Open(ctx, sess, path)
	if err != nil {
		return sess, err
	}
	isDir := h.IsDir()
	if err := fsys.Close(ctx, h); err != nil {
		return sess, err
	}
	if !isDir {
		return sess, vfserr.ErrNotDirectory
	}
	abs := vfspath.Normalize(vfspath.Resolve(sess.CWD(), path))
	return sess.WithCWD(abs), nil
}
