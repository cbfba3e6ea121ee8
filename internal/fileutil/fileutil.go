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

// Package fileutil ports the file-system operations spec.md §1 groups
// under "file utilities": atomic creation, directory lifecycle, rename,
// copy, size, space. Grounded on the exists/create/destroy surface of
// libbitcoin-database's src/file/utilities.cpp, translated to Go's single
// error-return idiom rather than that source's paired bool/`_ex` forms.
package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/erigontech/chainstore/dberr"
	"github.com/erigontech/chainstore/internal/storage"
)

// IsDirectory reports whether path exists and is a directory.
func IsDirectory(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// CreateDirectory creates path and any missing parents. It does not fail
// if the directory already exists, mirroring
// std::filesystem::create_directories semantics.
func CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return dberr.Wrap(dberr.FileOpen, err, "create directory")
	}
	return nil
}

// ClearDirectory removes path (recursively) and recreates it empty.
func ClearDirectory(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return dberr.Wrap(dberr.FileClose, err, "clear directory")
	}
	return CreateDirectory(path)
}

// CreateFile atomically creates filename containing data: write to a
// sibling temp file, fsync, then rename into place. This matches
// spec.md §6's "atomic creation" bullet. (Head-file backups in the table
// layer do not go through here; they rewrite the head's size field in
// place and flush it.)
func CreateFile(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp.*")
	if err != nil {
		return dberr.Wrap(dberr.FileOpen, err, "create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return dberr.Wrap(dberr.FileSync, err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return dberr.Wrap(dberr.FileSync, err, "fsync temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return dberr.Wrap(dberr.FileClose, err, "close temp file")
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		_ = os.Remove(tmpPath)
		return dberr.Wrap(dberr.FileOpen, err, "rename temp file into place")
	}
	return nil
}

// Remove deletes name. It does not fail if name is already absent.
func Remove(name string) error {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return dberr.Wrap(dberr.FileClose, err, "remove")
	}
	return nil
}

// Rename moves from to to.
func Rename(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return dberr.Wrap(dberr.FileOpen, err, "rename")
	}
	return nil
}

// Copy copies the file at from to to, overwriting to if it exists.
func Copy(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return dberr.Wrap(dberr.FileOpen, err, "open copy source")
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return dberr.Wrap(dberr.FileOpen, err, "create copy destination")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return dberr.Wrap(dberr.FileSync, err, "copy file contents")
	}
	return dst.Sync()
}

// CopyDirectory recursively copies the tree rooted at from to to.
func CopyDirectory(from, to string) error {
	return filepath.Walk(from, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(to, rel)
		if info.IsDir() {
			return CreateDirectory(dest)
		}
		return Copy(path, dest)
	})
}

// Size returns the size in bytes of the file at path.
func Size(path string) (int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, dberr.Wrap(dberr.FileOpen, err, "stat for size")
	}
	return st.Size(), nil
}

// Space returns the bytes available to an unprivileged writer on the
// filesystem hosting path.
func Space(path string) (uint64, error) {
	return storage.GetSpace(path)
}
