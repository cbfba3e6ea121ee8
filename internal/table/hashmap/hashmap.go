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

// Package hashmap implements the bucketed chained-hashmap table primitive
// (spec.md §4.4): records are addressed both by position and by key,
// through a fixed bucket-head array and a per-record `next` chain link.
// New records are pushed onto the front of their bucket's chain, so a
// bucket's chain iterates newest-first (§3.3).
package hashmap

import (
	"path/filepath"
	"sync"

	"github.com/erigontech/chainstore/dberr"
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
	"github.com/erigontech/chainstore/internal/table/headfile"
)

// bucketLocks shards the insert path so unrelated buckets don't serialize
// against each other; single-writer per bucket is still required.
type bucketLocks struct {
	mus []sync.Mutex
}

func newBucketLocks(n uint32) *bucketLocks {
	if n == 0 {
		n = 1
	}
	return &bucketLocks{mus: make([]sync.Mutex, n)}
}

func (b *bucketLocks) lock(bucket uint32) func() {
	m := &b.mus[bucket%uint32(len(b.mus))]
	m.Lock()
	return m.Unlock
}

// Fixed is the fixed-size-record instantiation of the hashmap primitive.
// Each on-disk record is laid out as: next Link (linkBytes) | key (K
// encoded via codec) | payload (recordSize bytes, element encoded via
// encode).
type Fixed[K comparable, E any] struct {
	linkBytes   int
	keyCodec    linkkey.Codec[K]
	recordSize  int // payload size only
	encode      func(E, []byte)
	decode      func([]byte) E
	head        *headfile.Head
	body        *storage.Storage
	locks       *bucketLocks
}

func (t *Fixed[K, E]) slotSize() int64 {
	return int64(t.linkBytes + t.keyCodec.Size + t.recordSize)
}

// CreateFixed creates a new fixed hashmap table with the given bucket
// count.
func CreateFixed[K comparable, E any](dir, name string, linkBytes int, buckets uint32, keyCodec linkkey.Codec[K], recordSize int, encode func(E, []byte), decode func([]byte) E, bodyOpts storage.Options) (*Fixed[K, E], error) {
	h, err := headfile.Create(filepath.Join(dir, "head_"+name), buckets, linkBytes)
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
	return &Fixed[K, E]{
		linkBytes: linkBytes, keyCodec: keyCodec, recordSize: recordSize,
		encode: encode, decode: decode, head: h, body: body, locks: newBucketLocks(buckets),
	}, nil
}

// OpenFixed maps an existing fixed hashmap table, performing crash
// recovery on the body.
func OpenFixed[K comparable, E any](dir, name string, linkBytes int, buckets uint32, keyCodec linkkey.Codec[K], recordSize int, encode func(E, []byte), decode func([]byte) E, bodyOpts storage.Options) (*Fixed[K, E], error) {
	h, err := headfile.Open(filepath.Join(dir, "head_"+name), buckets, linkBytes)
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
	return &Fixed[K, E]{
		linkBytes: linkBytes, keyCodec: keyCodec, recordSize: recordSize,
		encode: encode, decode: decode, head: h, body: body, locks: newBucketLocks(buckets),
	}, nil
}

// Terminal is the sentinel link for this table's configured link width.
func (t *Fixed[K, E]) Terminal() linkkey.Link { return linkkey.TerminalFor(t.linkBytes) }

func (t *Fixed[K, E]) bucketOf(key K) uint32 {
	return linkkey.Bucket(t.keyCodec.Hash(key), t.head.Buckets())
}

// Put inserts a new record keyed by key, pushing it onto the front of
// its bucket's chain (LIFO, §3.3), and returns its link.
func (t *Fixed[K, E]) Put(key K, element E) (linkkey.Link, error) {
	bucket := t.bucketOf(key)
	unlock := t.locks.lock(bucket)
	defer unlock()

	offset, err := t.body.Allocate(t.slotSize())
	if err != nil {
		return t.Terminal(), err
	}
	link := linkkey.Link(offset / t.slotSize())

	prior, err := t.head.BucketHead(bucket)
	if err != nil {
		return t.Terminal(), err
	}

	pin, err := t.body.Get(offset, t.slotSize())
	if err != nil {
		return t.Terminal(), err
	}
	buf := pin.Bytes()
	prior.PutLE(buf[:t.linkBytes], t.linkBytes)
	t.keyCodec.Encode(key, buf[t.linkBytes:t.linkBytes+t.keyCodec.Size])
	t.encode(element, buf[t.linkBytes+t.keyCodec.Size:])
	pin.Release()

	if err := t.head.SetBucketHead(bucket, link); err != nil {
		return t.Terminal(), err
	}
	return link, nil
}

// Update overwrites the payload of the record at link in place, leaving
// its next/key prefix untouched. This is the "rare in-place update of an
// explicitly mutable field" spec.md §3.3 allows — the fixed-size payload
// cannot change length, so no reallocation or chain relinking is
// involved. Used for foreign keys that are only known after a dependent
// record exists (e.g. a transaction's reference to its own outputs list,
// which cannot be written until the outputs — which in turn reference
// the transaction's link — have themselves been inserted).
func (t *Fixed[K, E]) Update(link linkkey.Link, element E) error {
	if link.IsTerminal(t.linkBytes) {
		return dberr.New(dberr.InvalidLink, nil)
	}
	offset := int64(link) * t.slotSize()
	pin, err := t.body.Get(offset, t.slotSize())
	if err != nil {
		return err
	}
	defer pin.Release()
	buf := pin.Bytes()
	t.encode(element, buf[t.linkBytes+t.keyCodec.Size:])
	return nil
}

// slotAt reads the full (next, key, payload) slot at link.
func (t *Fixed[K, E]) slotAt(link linkkey.Link) (next linkkey.Link, key K, element E, ok bool) {
	if link.IsTerminal(t.linkBytes) {
		return t.Terminal(), key, element, false
	}
	offset := int64(link) * t.slotSize()
	pin, err := t.body.Get(offset, t.slotSize())
	if err != nil {
		return t.Terminal(), key, element, false
	}
	defer pin.Release()

	buf := pin.Bytes()
	next = linkkey.LinkLE(buf[:t.linkBytes], t.linkBytes)
	key = t.keyCodec.Decode(buf[t.linkBytes : t.linkBytes+t.keyCodec.Size])
	element = t.decode(buf[t.linkBytes+t.keyCodec.Size:])
	return next, key, element, true
}

// First returns the newest record stored under key, matching spec.md
// §4.4's "first match wins" lookup semantics (LIFO ordering means first
// == newest).
func (t *Fixed[K, E]) First(key K) (element E, link linkkey.Link, ok bool) {
	link = t.Terminal()
	cur, err := t.head.BucketHead(t.bucketOf(key))
	if err != nil {
		return element, t.Terminal(), false
	}
	for !cur.IsTerminal(t.linkBytes) {
		next, k, e, ok2 := t.slotAt(cur)
		if !ok2 {
			return element, t.Terminal(), false
		}
		if k == key {
			return e, cur, true
		}
		cur = next
	}
	return element, t.Terminal(), false
}

// Find walks the full chain for key and calls visit for every match,
// newest-first, stopping early if visit returns false.
func (t *Fixed[K, E]) Find(key K, visit func(element E, link linkkey.Link) bool) error {
	cur, err := t.head.BucketHead(t.bucketOf(key))
	if err != nil {
		return err
	}
	for !cur.IsTerminal(t.linkBytes) {
		next, k, e, ok := t.slotAt(cur)
		if !ok {
			return dberr.New(dberr.IntegrityFailure, nil)
		}
		if k == key {
			if !visit(e, cur) {
				return nil
			}
		}
		cur = next
	}
	return nil
}

// Get reads the record at a known link directly, without chain walking.
func (t *Fixed[K, E]) Get(link linkkey.Link) (element E, ok bool) {
	_, _, e, ok := t.slotAt(link)
	return e, ok
}

// KeyAt reads the key stored at a known link, reversing the usual
// key-to-link direction. Used by reverse navigations that only carry a
// link (e.g. an output's owning tx link) but need the key that record
// was inserted under (the tx hash, spec.md §4.5 `to_spenders`).
func (t *Fixed[K, E]) KeyAt(link linkkey.Link) (key K, ok bool) {
	_, key, _, ok := t.slotAt(link)
	return key, ok
}

// Buckets returns the bucket count this table was created with.
func (t *Fixed[K, E]) Buckets() uint32 { return t.head.Buckets() }

// BucketHead returns the link at the head of bucket's chain (the most
// recently inserted record), or Terminal if the bucket is empty. Used by
// diagnostic bucket-walk enumeration (spec.md §4.5 "top_*").
func (t *Fixed[K, E]) BucketHead(bucket uint32) (linkkey.Link, error) {
	return t.head.BucketHead(bucket)
}

// Count returns the number of records in the body.
func (t *Fixed[K, E]) Count() int64 { return t.body.Count(t.slotSize()) }

// Size returns the body's logical size in bytes.
func (t *Fixed[K, E]) Size() int64 { return t.body.Size() }

// HeadSize returns the head file's size in bytes.
func (t *Fixed[K, E]) HeadSize() int64 { return t.head.Size() }

// Fault returns the first sticky fault observed by either file.
func (t *Fixed[K, E]) Fault() dberr.Code {
	if c := t.head.Fault(); c != dberr.Success {
		return c
	}
	return t.body.Fault()
}

// Backup flushes the body, records its logical size into the head, and
// flushes the head (§3.4).
func (t *Fixed[K, E]) Backup() error {
	if err := t.body.Flush(); err != nil {
		return err
	}
	if err := t.head.SetBodyLogicalSize(t.body.Size()); err != nil {
		return err
	}
	return t.head.Flush()
}

// Restore truncates the body back to the head's recorded size.
func (t *Fixed[K, E]) Restore() error {
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
func (t *Fixed[K, E]) Verify() error {
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
func (t *Fixed[K, E]) Close() error {
	if err := t.Backup(); err != nil {
		return err
	}
	if err := t.body.Close(); err != nil {
		return err
	}
	return t.head.Close()
}

// Slab is the variable-length-record instantiation of the hashmap
// primitive. Each on-disk record is: next Link | key K | payload, with
// no length field; the payload codec's own encoding marks its extent.
type Slab[K comparable, E any] struct {
	linkBytes int
	keyCodec  linkkey.Codec[K]
	encode    func(E) []byte
	decode    func([]byte) (E, error)
	head      *headfile.Head
	body      *storage.Storage
	locks     *bucketLocks
}

// CreateSlab creates a new slab hashmap table with the given bucket
// count.
func CreateSlab[K comparable, E any](dir, name string, linkBytes int, buckets uint32, keyCodec linkkey.Codec[K], encode func(E) []byte, decode func([]byte) (E, error), bodyOpts storage.Options) (*Slab[K, E], error) {
	h, err := headfile.Create(filepath.Join(dir, "head_"+name), buckets, linkBytes)
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
	return &Slab[K, E]{
		linkBytes: linkBytes, keyCodec: keyCodec, encode: encode, decode: decode,
		head: h, body: body, locks: newBucketLocks(buckets),
	}, nil
}

// OpenSlab maps an existing slab hashmap table, performing crash
// recovery on the body.
func OpenSlab[K comparable, E any](dir, name string, linkBytes int, buckets uint32, keyCodec linkkey.Codec[K], encode func(E) []byte, decode func([]byte) (E, error), bodyOpts storage.Options) (*Slab[K, E], error) {
	h, err := headfile.Open(filepath.Join(dir, "head_"+name), buckets, linkBytes)
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
	return &Slab[K, E]{
		linkBytes: linkBytes, keyCodec: keyCodec, encode: encode, decode: decode,
		head: h, body: body, locks: newBucketLocks(buckets),
	}, nil
}

// Terminal is the sentinel link for this table's configured link width.
func (t *Slab[K, E]) Terminal() linkkey.Link { return linkkey.TerminalFor(t.linkBytes) }

func (t *Slab[K, E]) bucketOf(key K) uint32 {
	return linkkey.Bucket(t.keyCodec.Hash(key), t.head.Buckets())
}

// Put inserts a new record keyed by key, pushing it onto the front of
// its bucket's chain, and returns its link (raw byte offset). The
// payload is schema-delimited (§6): no outer length field, the codec's
// own encoding marks its extent.
func (t *Slab[K, E]) Put(key K, element E) (linkkey.Link, error) {
	payload := t.encode(element)
	prefixLen := int64(t.linkBytes + t.keyCodec.Size)
	total := prefixLen + int64(len(payload))

	bucket := t.bucketOf(key)
	unlock := t.locks.lock(bucket)
	defer unlock()

	offset, err := t.body.Allocate(total)
	if err != nil {
		return t.Terminal(), err
	}
	link := linkkey.Link(offset)

	prior, err := t.head.BucketHead(bucket)
	if err != nil {
		return t.Terminal(), err
	}

	pin, err := t.body.Get(offset, total)
	if err != nil {
		return t.Terminal(), err
	}
	buf := pin.Bytes()
	prior.PutLE(buf[:t.linkBytes], t.linkBytes)
	t.keyCodec.Encode(key, buf[t.linkBytes:prefixLen])
	copy(buf[prefixLen:], payload)
	pin.Release()

	if err := t.head.SetBucketHead(bucket, link); err != nil {
		return t.Terminal(), err
	}
	return link, nil
}

// slotAt reads one (next, key, payload) slot at link. It reads the fixed
// next+key prefix, then hands the codec every remaining byte to the
// current end of the body and lets it self-delimit the payload.
func (t *Slab[K, E]) slotAt(link linkkey.Link) (next linkkey.Link, key K, element E, ok bool) {
	if link.IsTerminal(t.linkBytes) {
		return t.Terminal(), key, element, false
	}
	prefixLen := int64(t.linkBytes + t.keyCodec.Size)
	prefixPin, err := t.body.Get(int64(link), prefixLen)
	if err != nil {
		return t.Terminal(), key, element, false
	}
	buf := prefixPin.Bytes()
	next = linkkey.LinkLE(buf[:t.linkBytes], t.linkBytes)
	key = t.keyCodec.Decode(buf[t.linkBytes:prefixLen])
	prefixPin.Release()

	remaining := t.body.Size() - (int64(link) + prefixLen)
	if remaining < 0 {
		return t.Terminal(), key, element, false
	}
	payloadPin, err := t.body.Get(int64(link)+prefixLen, remaining)
	if err != nil {
		return t.Terminal(), key, element, false
	}
	defer payloadPin.Release()

	e, derr := t.decode(payloadPin.Bytes())
	if derr != nil {
		return t.Terminal(), key, element, false
	}
	return next, key, e, true
}

// First returns the newest record stored under key.
func (t *Slab[K, E]) First(key K) (element E, link linkkey.Link, ok bool) {
	cur, err := t.head.BucketHead(t.bucketOf(key))
	if err != nil {
		return element, t.Terminal(), false
	}
	for !cur.IsTerminal(t.linkBytes) {
		next, k, e, ok2 := t.slotAt(cur)
		if !ok2 {
			return element, t.Terminal(), false
		}
		if k == key {
			return e, cur, true
		}
		cur = next
	}
	return element, t.Terminal(), false
}

// Find walks the full chain for key, newest-first, calling visit for
// every match until visit returns false.
func (t *Slab[K, E]) Find(key K, visit func(element E, link linkkey.Link) bool) error {
	cur, err := t.head.BucketHead(t.bucketOf(key))
	if err != nil {
		return err
	}
	for !cur.IsTerminal(t.linkBytes) {
		next, k, e, ok := t.slotAt(cur)
		if !ok {
			return dberr.New(dberr.IntegrityFailure, nil)
		}
		if k == key {
			if !visit(e, cur) {
				return nil
			}
		}
		cur = next
	}
	return nil
}

// Get reads the record at a known link directly, without chain walking.
func (t *Slab[K, E]) Get(link linkkey.Link) (element E, ok bool) {
	_, _, e, ok := t.slotAt(link)
	return e, ok
}

// KeyAt reads the key stored at a known link, reversing the usual
// key-to-link direction.
func (t *Slab[K, E]) KeyAt(link linkkey.Link) (key K, ok bool) {
	_, key, _, ok := t.slotAt(link)
	return key, ok
}

// Buckets returns the bucket count this table was created with.
func (t *Slab[K, E]) Buckets() uint32 { return t.head.Buckets() }

// BucketHead returns the link at the head of bucket's chain (the most
// recently inserted record), or Terminal if the bucket is empty. Used by
// diagnostic bucket-walk enumeration (spec.md §4.5 "top_*").
func (t *Slab[K, E]) BucketHead(bucket uint32) (linkkey.Link, error) {
	return t.head.BucketHead(bucket)
}

// Size returns the body's logical size in bytes.
func (t *Slab[K, E]) Size() int64 { return t.body.Size() }

// HeadSize returns the head file's size in bytes.
func (t *Slab[K, E]) HeadSize() int64 { return t.head.Size() }

// Fault returns the first sticky fault observed by either file.
func (t *Slab[K, E]) Fault() dberr.Code {
	if c := t.head.Fault(); c != dberr.Success {
		return c
	}
	return t.body.Fault()
}

// Backup flushes the body, records its logical size into the head, and
// flushes the head (§3.4).
func (t *Slab[K, E]) Backup() error {
	if err := t.body.Flush(); err != nil {
		return err
	}
	if err := t.head.SetBodyLogicalSize(t.body.Size()); err != nil {
		return err
	}
	return t.head.Flush()
}

// Restore truncates the body back to the head's recorded size.
func (t *Slab[K, E]) Restore() error {
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
func (t *Slab[K, E]) Verify() error {
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
func (t *Slab[K, E]) Close() error {
	if err := t.Backup(); err != nil {
		return err
	}
	if err := t.body.Close(); err != nil {
		return err
	}
	return t.head.Close()
}
