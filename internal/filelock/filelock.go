// Copyright 2026 The Chainstore Authors
// This file is part of Chainstore.
//
// Chainstore is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Chainstore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Chainstore. If not, see <http://www.gnu.org/licenses/>.

// Package filelock implements the two advisory lock flavors described in
// spec.md §4.2: a flush lock (a bare marker file, whose presence at
// startup signals a prior crash) and a process lock (a real OS advisory
// lock held for the store's lifetime).
package filelock

import (
	"os"

	"github.com/gofrs/flock"

	"github.com/erigontech/chainstore/dberr"
)

// FlushLock is a marker-file lock. It is not an OS-level advisory lock:
// its only job is to exist or not exist. Construction does not touch the
// file — call Exists/Create/Destroy explicitly, mirroring the original
// libbitcoin-database file_lock contract (construction is side-effect
// free; create/destroy are the mutators).
type FlushLock struct {
	path string
}

// NewFlushLock records path without touching the filesystem.
func NewFlushLock(path string) *FlushLock {
	return &FlushLock{path: path}
}

// Path returns the lock file's path.
func (l *FlushLock) Path() string { return l.path }

// Exists reports whether the marker file is present.
func (l *FlushLock) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Create creates the marker file. It succeeds (returns true) if the file
// did not already exist and was created by this call.
func (l *FlushLock) Create() bool {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Destroy removes the marker file. It succeeds (returns true) if the file
// does not exist or was removed by this call.
func (l *FlushLock) Destroy() bool {
	err := os.Remove(l.path)
	return err == nil || os.IsNotExist(err)
}

// ProcessLock is an OS-level advisory lock held for the entire lifetime
// of an open store, excluding a second process from touching the same
// directory. Backed by github.com/gofrs/flock, a real interprocess file
// lock (unlike FlushLock's bare marker-file convention).
type ProcessLock struct {
	fl *flock.Flock
}

// NewProcessLock prepares (without acquiring) a process lock at path.
func NewProcessLock(path string) *ProcessLock {
	return &ProcessLock{fl: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. Failure to
// acquire is reported via dberr.LockFailure, fatal to store startup per
// spec.md §4.2.
func (l *ProcessLock) TryLock() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return dberr.Wrap(dberr.LockFailure, err, "acquire process lock")
	}
	if !ok {
		return dberr.New(dberr.LockFailure, nil)
	}
	return nil
}

// Unlock releases the process lock.
func (l *ProcessLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return dberr.Wrap(dberr.LockFailure, err, "release process lock")
	}
	return nil
}
