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

// Package headfile implements the shape every table's head file shares
// (spec.md §3.2): an 8-byte body_logical_size followed, for hashmap
// tables only, by a fixed array of bucket head links. Both table
// primitives (nomap, hashmap) build on this.
package headfile

import (
	"encoding/binary"

	"github.com/erigontech/chainstore/dberr"
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
)

const sizeFieldBytes = 8

// Head is the memory-mapped head file for one table. BucketBytes == 0
// means a nomap table (no bucket array, just the 8-byte count).
type Head struct {
	st          *storage.Storage
	buckets     uint32
	bucketBytes int
}

func fileSize(buckets uint32, bucketBytes int) int64 {
	return sizeFieldBytes + int64(buckets)*int64(bucketBytes)
}

// Create makes a new head file with the bucket array (if any)
// initialized to terminal, and body_logical_size set to 0.
func Create(path string, buckets uint32, bucketBytes int) (*Head, error) {
	size := fileSize(buckets, bucketBytes)
	st, err := storage.Create(path, storage.Options{MinCapacity: size})
	if err != nil {
		return nil, err
	}
	if err := st.SetLogicalSize(size); err != nil {
		return nil, err
	}

	h := &Head{st: st, buckets: buckets, bucketBytes: bucketBytes}
	if err := h.SetBodyLogicalSize(0); err != nil {
		return nil, err
	}
	if bucketBytes > 0 {
		terminal := linkkey.TerminalFor(bucketBytes)
		for b := uint32(0); b < buckets; b++ {
			if err := h.SetBucketHead(b, terminal); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

// Open maps an existing head file and validates its size matches the
// configured bucket layout.
func Open(path string, buckets uint32, bucketBytes int) (*Head, error) {
	size := fileSize(buckets, bucketBytes)
	st, err := storage.Open(path, storage.Options{MinCapacity: size})
	if err != nil {
		return nil, err
	}
	if st.Size() != size {
		return nil, dberr.New(dberr.IntegrityFailure, nil)
	}
	return &Head{st: st, buckets: buckets, bucketBytes: bucketBytes}, nil
}

// BodyLogicalSize reads the 8-byte body_logical_size field.
func (h *Head) BodyLogicalSize() (int64, error) {
	pin, err := h.st.Get(0, sizeFieldBytes)
	if err != nil {
		return 0, err
	}
	defer pin.Release()
	return int64(binary.LittleEndian.Uint64(pin.Bytes())), nil
}

// SetBodyLogicalSize writes the 8-byte body_logical_size field.
func (h *Head) SetBodyLogicalSize(n int64) error {
	pin, err := h.st.Get(0, sizeFieldBytes)
	if err != nil {
		return err
	}
	defer pin.Release()
	binary.LittleEndian.PutUint64(pin.Bytes(), uint64(n))
	return nil
}

func (h *Head) bucketOffset(b uint32) int64 {
	return sizeFieldBytes + int64(b)*int64(h.bucketBytes)
}

// BucketHead returns the current head link for bucket b.
func (h *Head) BucketHead(b uint32) (linkkey.Link, error) {
	pin, err := h.st.Get(h.bucketOffset(b), int64(h.bucketBytes))
	if err != nil {
		return 0, err
	}
	defer pin.Release()
	return linkkey.LinkLE(pin.Bytes(), h.bucketBytes), nil
}

// SetBucketHead overwrites bucket b's head link.
func (h *Head) SetBucketHead(b uint32, l linkkey.Link) error {
	pin, err := h.st.Get(h.bucketOffset(b), int64(h.bucketBytes))
	if err != nil {
		return err
	}
	defer pin.Release()
	l.PutLE(pin.Bytes(), h.bucketBytes)
	return nil
}

// Buckets returns the configured bucket count.
func (h *Head) Buckets() uint32 { return h.buckets }

// Size returns the head file's own size in bytes.
func (h *Head) Size() int64 { return h.st.Size() }

// Flush synchronizes the head mapping to disk.
func (h *Head) Flush() error { return h.st.Flush() }

// Close flushes and unmaps the head file.
func (h *Head) Close() error { return h.st.Close() }

// Fault returns the sticky fault code of the underlying storage.
func (h *Head) Fault() dberr.Code { return h.st.Fault() }
