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

// Package nomap implements the unordered, index-free table primitive
// (spec.md §4.3): records are addressed only by their position, with no
// in-file key index. Fixed and Slab are the two concrete instantiations
// spec.md §9 recommends over unifying fixed/variable length records
// behind one discriminated type.
package nomap

import (
	"path/filepath"

	"github.com/erigontech/chainstore/dberr"
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
	"github.com/erigontech/chainstore/internal/table/headfile"
)

// FixedCodec serializes a fixed-size element E to/from exactly Size
// bytes.
type FixedCodec[E any] struct {
	Size   int
	Encode func(E, []byte)
	Decode func([]byte) E
}

// SlabCodec serializes a variable-length element E to/from a byte slice.
// Encoding is schema-driven and self-delimiting: the table records no
// outer length at all, so Decode must determine how many bytes it
// consumed from the encoding itself.
type SlabCodec[E any] struct {
	Encode func(E) []byte
	Decode func([]byte) (E, error)
}

// Fixed is the fixed-size-record instantiation of the nomap primitive.
type Fixed[E any] struct {
	linkBytes int
	head      *headfile.Head
	body      *storage.Storage
	codec     FixedCodec[E]
}

// CreateFixed creates a new fixed nomap table rooted at dir/name.
func CreateFixed[E any](dir, name string, linkBytes int, codec FixedCodec[E], bodyOpts storage.Options) (*Fixed[E], error) {
	h, err := headfile.Create(filepath.Join(dir, "head_"+name), 0, 0)
	if err != nil {
		return nil, err
	}
	body, err := storage.Create(filepath.Join(dir, "body_"+name), bodyOpts)
	if err != nil {
		return nil, err
	}
	if err := body.SetLogicalSize(0); err != nil {
		return nil, err
	}
	return &Fixed[E]{linkBytes: linkBytes, head: h, body: body, codec: codec}, nil
}

// OpenFixed maps an existing fixed nomap table, performing crash recovery
// (truncating the body back to the head-recorded logical size, §3.4).
func OpenFixed[E any](dir, name string, linkBytes int, codec FixedCodec[E], bodyOpts storage.Options) (*Fixed[E], error) {
	h, err := headfile.Open(filepath.Join(dir, "head_"+name), 0, 0)
	if err != nil {
		return nil, err
	}
	body, err := storage.Open(filepath.Join(dir, "body_"+name), bodyOpts)
	if err != nil {
		return nil, err
	}
	logical, err := h.BodyLogicalSize()
	if err != nil {
		return nil, err
	}
	if body.Size() < logical {
		return nil, dberr.New(dberr.IntegrityFailure, nil)
	}
	if body.Size() > logical {
		if err := body.Truncate(logical); err != nil {
			return nil, err
		}
	}
	return &Fixed[E]{linkBytes: linkBytes, head: h, body: body, codec: codec}, nil
}

func (t *Fixed[E]) recordSize() int64 { return int64(t.codec.Size) }

// Terminal is the sentinel link for this table's configured link width.
func (t *Fixed[E]) Terminal() linkkey.Link { return linkkey.TerminalFor(t.linkBytes) }

// PutLink serializes element and returns the link of the new record.
func (t *Fixed[E]) PutLink(element E) (linkkey.Link, error) {
	offset, err := t.body.Allocate(t.recordSize())
	if err != nil {
		return t.Terminal(), err
	}
	pin, err := t.body.Get(offset, t.recordSize())
	if err != nil {
		return t.Terminal(), err
	}
	defer pin.Release()
	t.codec.Encode(element, pin.Bytes())
	return linkkey.Link(offset / t.recordSize()), nil
}

// Put is an alias for PutLink kept for symmetry with spec.md's `put`.
func (t *Fixed[E]) Put(element E) (linkkey.Link, error) { return t.PutLink(element) }

// Get deserializes the record at link into ok=false if link is terminal,
// out of range, or the table has a latched fault.
func (t *Fixed[E]) Get(link linkkey.Link) (element E, ok bool) {
	if link.IsTerminal(t.linkBytes) {
		return element, false
	}
	offset := int64(link) * t.recordSize()
	pin, err := t.body.Get(offset, t.recordSize())
	if err != nil {
		return element, false
	}
	defer pin.Release()
	return t.codec.Decode(pin.Bytes()), true
}

// Count returns the number of records in the body.
func (t *Fixed[E]) Count() int64 { return t.body.Count(t.recordSize()) }

// Size returns the body's logical size in bytes.
func (t *Fixed[E]) Size() int64 { return t.body.Size() }

// HeadSize returns the head file's size in bytes.
func (t *Fixed[E]) HeadSize() int64 { return t.head.Size() }

// Truncate shrinks the body to count records. Used by height tables
// (candidate/confirmed) to implement pop_* (§4.6).
func (t *Fixed[E]) Truncate(count int64) error {
	return t.body.Truncate(count * t.recordSize())
}

// Fault returns the first sticky fault observed by either file.
func (t *Fixed[E]) Fault() dberr.Code {
	if c := t.head.Fault(); c != dberr.Success {
		return c
	}
	return t.body.Fault()
}

// Backup flushes the body, records its logical size into the head, and
// flushes the head (§3.4).
func (t *Fixed[E]) Backup() error {
	if err := t.body.Flush(); err != nil {
		return err
	}
	if err := t.head.SetBodyLogicalSize(t.body.Size()); err != nil {
		return err
	}
	return t.head.Flush()
}

// Restore verifies the head and truncates the body back to the head's
// recorded size (crash recovery, §3.4).
func (t *Fixed[E]) Restore() error {
	logical, err := t.head.BodyLogicalSize()
	if err != nil {
		return err
	}
	if t.body.Size() < logical {
		return dberr.New(dberr.IntegrityFailure, nil)
	}
	return t.body.Truncate(logical)
}

// Verify succeeds iff the head's recorded size equals the body's actual
// size (§4.3).
func (t *Fixed[E]) Verify() error {
	logical, err := t.head.BodyLogicalSize()
	if err != nil {
		return err
	}
	if logical != t.body.Size() {
		return dberr.New(dberr.IntegrityFailure, nil)
	}
	return nil
}

// Close backs up, then unmaps both files (§3.4).
func (t *Fixed[E]) Close() error {
	if err := t.Backup(); err != nil {
		return err
	}
	if err := t.body.Close(); err != nil {
		return err
	}
	return t.head.Close()
}

// Slab is the variable-length-record instantiation of the nomap
// primitive. Records carry no outer length framing at all; each one is
// self-delimiting, decoded directly by the schema-driven codec (DESIGN.md
// Open Question 3). Link is the record's raw byte offset (spec.md §3.1).
type Slab[E any] struct {
	linkBytes int
	head      *headfile.Head
	body      *storage.Storage
	codec     SlabCodec[E]
}

// CreateSlab creates a new slab nomap table rooted at dir/name.
func CreateSlab[E any](dir, name string, linkBytes int, codec SlabCodec[E], bodyOpts storage.Options) (*Slab[E], error) {
	h, err := headfile.Create(filepath.Join(dir, "head_"+name), 0, 0)
	if err != nil {
		return nil, err
	}
	body, err := storage.Create(filepath.Join(dir, "body_"+name), bodyOpts)
	if err != nil {
		return nil, err
	}
	if err := body.SetLogicalSize(0); err != nil {
		return nil, err
	}
	return &Slab[E]{linkBytes: linkBytes, head: h, body: body, codec: codec}, nil
}

// OpenSlab maps an existing slab nomap table, performing crash recovery.
//
// Because slab records are schema-delimited (§6) rather than framed by
// any outer length field, a torn tail cannot in general be walked back
// to the last full record without a scan; we trust the head-recorded
// logical size directly, truncating the body to it (the same contract
// fixed tables use), which is exact as long as body_logical_size was
// only ever advanced by whole-record Allocate calls — true under the
// single-writer assumption (§9).
func OpenSlab[E any](dir, name string, linkBytes int, codec SlabCodec[E], bodyOpts storage.Options) (*Slab[E], error) {
	h, err := headfile.Open(filepath.Join(dir, "head_"+name), 0, 0)
	if err != nil {
		return nil, err
	}
	body, err := storage.Open(filepath.Join(dir, "body_"+name), bodyOpts)
	if err != nil {
		return nil, err
	}
	logical, err := h.BodyLogicalSize()
	if err != nil {
		return nil, err
	}
	if body.Size() < logical {
		return nil, dberr.New(dberr.IntegrityFailure, nil)
	}
	if body.Size() > logical {
		if err := body.Truncate(logical); err != nil {
			return nil, err
		}
	}
	return &Slab[E]{linkBytes: linkBytes, head: h, body: body, codec: codec}, nil
}

// Terminal is the sentinel link for this table's configured link width.
func (t *Slab[E]) Terminal() linkkey.Link { return linkkey.TerminalFor(t.linkBytes) }

// PutLink serializes element as a schema-delimited slab (no outer length
// field; the codec's own encoding marks its own extent, §6) and returns
// its link (raw byte offset).
func (t *Slab[E]) PutLink(element E) (linkkey.Link, error) {
	payload := t.codec.Encode(element)
	total := int64(len(payload))

	offset, err := t.body.Allocate(total)
	if err != nil {
		return t.Terminal(), err
	}
	if total == 0 {
		return linkkey.Link(offset), nil
	}
	pin, err := t.body.Get(offset, total)
	if err != nil {
		return t.Terminal(), err
	}
	defer pin.Release()

	copy(pin.Bytes(), payload)
	return linkkey.Link(offset), nil
}

// Put is an alias for PutLink.
func (t *Slab[E]) Put(element E) (linkkey.Link, error) { return t.PutLink(element) }

// Get deserializes the slab at link. Since the codec's serialization is
// self-delimiting, Get hands it every byte from link to the current end
// of the body and lets it decode only as much as it needs.
func (t *Slab[E]) Get(link linkkey.Link) (element E, ok bool) {
	if link.IsTerminal(t.linkBytes) {
		return element, false
	}
	remaining := t.body.Size() - int64(link)
	if remaining < 0 {
		return element, false
	}
	pin, err := t.body.Get(int64(link), remaining)
	if err != nil {
		return element, false
	}
	defer pin.Release()

	e, derr := t.codec.Decode(pin.Bytes())
	if derr != nil {
		return element, false
	}
	return e, true
}

// Size returns the body's logical size in bytes.
func (t *Slab[E]) Size() int64 { return t.body.Size() }

// HeadSize returns the head file's size in bytes.
func (t *Slab[E]) HeadSize() int64 { return t.head.Size() }

// Fault returns the first sticky fault observed by either file.
func (t *Slab[E]) Fault() dberr.Code {
	if c := t.head.Fault(); c != dberr.Success {
		return c
	}
	return t.body.Fault()
}

// Backup flushes the body, records its logical size into the head, and
// flushes the head (§3.4).
func (t *Slab[E]) Backup() error {
	if err := t.body.Flush(); err != nil {
		return err
	}
	if err := t.head.SetBodyLogicalSize(t.body.Size()); err != nil {
		return err
	}
	return t.head.Flush()
}

// Restore truncates the body back to the head's recorded size.
func (t *Slab[E]) Restore() error {
	logical, err := t.head.BodyLogicalSize()
	if err != nil {
		return err
	}
	if t.body.Size() < logical {
		return dberr.New(dberr.IntegrityFailure, nil)
	}
	return t.body.Truncate(logical)
}

// Verify succeeds iff the head's recorded size equals the body's actual
// size.
func (t *Slab[E]) Verify() error {
	logical, err := t.head.BodyLogicalSize()
	if err != nil {
		return err
	}
	if logical != t.body.Size() {
		return dberr.New(dberr.IntegrityFailure, nil)
	}
	return nil
}

// Close backs up, then unmaps both files.
func (t *Slab[E]) Close() error {
	if err := t.Backup(); err != nil {
		return err
	}
	if err := t.body.Close(); err != nil {
		return err
	}
	return t.head.Close()
}
