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

// Package dberr defines the error taxonomy of the storage substrate.
//
// Navigation (translate) operations never return these: a failed lookup
// surfaces as a terminal link or an empty slice, per spec. Only lifecycle
// operations (create/open/close/backup/restore/verify) and the storage
// primitives (get/put/allocate/flush) return error, and once a table's
// underlying storage observes one of the I/O codes it latches it as a
// sticky fault: every subsequent call is a no-op returning that fault.
package dberr

import "github.com/pkg/errors"

// Code is a taxonomy tag attached to every error this package produces.
// It lets callers branch on error class without string matching, the way
// a caller would switch on a sentinel from the standard library.
type Code int

const (
	Success Code = iota
	LockFailure
	FlushLock
	IntegrityFailure
	DiskFull
	FileOpen
	FileClose
	FileMap
	FileSync
	FileTruncate
	FileGrow
	NotFound
	InvalidLink
	ShutdownInProgress
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case LockFailure:
		return "lock_failure"
	case FlushLock:
		return "flush_lock"
	case IntegrityFailure:
		return "integrity_failure"
	case DiskFull:
		return "disk_full"
	case FileOpen:
		return "file_open"
	case FileClose:
		return "file_close"
	case FileMap:
		return "file_map"
	case FileSync:
		return "file_sync"
	case FileTruncate:
		return "file_truncate"
	case FileGrow:
		return "file_grow"
	case NotFound:
		return "not_found"
	case InvalidLink:
		return "invalid_link"
	case ShutdownInProgress:
		return "shutdown_in_progress"
	default:
		return "unknown"
	}
}

// Error pairs a Code with the underlying cause, so callers can both
// inspect the taxonomy and unwrap to the platform errno.
type Error struct {
	Code  Code
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// New wraps cause (which may be nil) with a taxonomy Code.
func New(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// Wrap attaches a stack-carrying wrap of cause (via pkg/errors) under code.
// Used at I/O boundaries where the platform errno should survive in the
// error chain for diagnostics.
func Wrap(code Code, cause error, msg string) *Error {
	if cause == nil {
		return New(code, errors.New(msg))
	}
	return New(code, errors.Wrap(cause, msg))
}

// Is reports whether err carries the given Code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Code == code
}

// Sentinel errors for the few cases callers compare directly.
var (
	ErrShutdown = New(ShutdownInProgress, nil)
)
