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

// Package assoc implements the in-memory associations container
// (spec.md §4.7): an index of candidate headers that do not yet have a
// txs record (the block body hasn't been stored). The query layer
// consults it to serve get_unassociated_above and
// get_unassociated_count_above without a linear scan of the header
// table; get_top_associated reads the txs table directly instead.
//
// Entries are keyed three ways: by hash (a plain map is enough — no
// range queries are ever made over hashes), by height (a google/btree
// ordered tree, for the ascending walk get_unassociated_above needs),
// and by insertion order (a second btree, for iteration in the order
// blocks were learned about regardless of height). A RoaringBitmap of
// occupied heights, paired with a per-height entry count, backs
// get_unassociated_count_above without materializing any records.
package assoc

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/erigontech/chainstore/internal/linkkey"
)

// Context mirrors the original's association record context fields
// (SPEC_FULL.md SUPPLEMENT item 1): chain metadata carried alongside an
// unassociated header so callers don't need a second lookup to report
// it.
type Context struct {
	Flags          uint32
	Height         uint32
	Timestamp      uint32
	MedianTimePast uint32
}

// Record is one association container entry.
type Record struct {
	Link    linkkey.Link
	Hash    linkkey.Hash32
	Context Context
}

type heightItem struct{ rec Record }

func (a heightItem) Less(than btree.Item) bool {
	b := than.(heightItem)
	if a.rec.Context.Height != b.rec.Context.Height {
		return a.rec.Context.Height < b.rec.Context.Height
	}
	return string(a.rec.Hash[:]) < string(b.rec.Hash[:])
}

type insertionItem struct {
	seq uint64
	rec Record
}

func (a insertionItem) Less(than btree.Item) bool {
	return a.seq < than.(insertionItem).seq
}

const btreeDegree = 32

// Container is the associations index. The zero value is not usable;
// use New.
type Container struct {
	mu sync.RWMutex

	byHash      map[linkkey.Hash32]Record
	byHeight    *btree.BTree
	byInsert    *btree.BTree
	insertSeqs  map[linkkey.Hash32]uint64
	heights     *roaring.Bitmap
	heightCount map[uint32]int
	nextSeq     uint64
}

// New creates an empty associations container.
func New() *Container {
	return &Container{
		byHash:      make(map[linkkey.Hash32]Record),
		byHeight:    btree.New(btreeDegree),
		byInsert:    btree.New(btreeDegree),
		insertSeqs:  make(map[linkkey.Hash32]uint64),
		heights:     roaring.NewBitmap(),
		heightCount: make(map[uint32]int),
	}
}

// Insert adds or replaces the association entry for rec.Hash.
func (c *Container) Insert(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byHash[rec.Hash]; exists {
		c.removeLocked(rec.Hash)
	}

	c.byHash[rec.Hash] = rec
	c.byHeight.ReplaceOrInsert(heightItem{rec: rec})
	seq := c.nextSeq
	c.nextSeq++
	c.insertSeqs[rec.Hash] = seq
	c.byInsert.ReplaceOrInsert(insertionItem{seq: seq, rec: rec})
	if c.heightCount[rec.Context.Height] == 0 {
		c.heights.Add(rec.Context.Height)
	}
	c.heightCount[rec.Context.Height]++
}

// Remove drops the association entry for hash, if present (called once
// the header gains a txs record and is no longer "unassociated").
func (c *Container) Remove(hash linkkey.Hash32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(hash)
}

func (c *Container) removeLocked(hash linkkey.Hash32) {
	rec, ok := c.byHash[hash]
	if !ok {
		return
	}
	delete(c.byHash, hash)
	c.byHeight.Delete(heightItem{rec: rec})
	if seq, ok := c.insertSeqs[hash]; ok {
		c.byInsert.Delete(insertionItem{seq: seq, rec: rec})
		delete(c.insertSeqs, hash)
	}
	if c.heightCount[rec.Context.Height] > 0 {
		c.heightCount[rec.Context.Height]--
		if c.heightCount[rec.Context.Height] == 0 {
			delete(c.heightCount, rec.Context.Height)
			c.heights.Remove(rec.Context.Height)
		}
	}
}

// ByHash looks up the association entry for hash.
func (c *Container) ByHash(hash linkkey.Hash32) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byHash[hash]
	return rec, ok
}

// Contains reports whether height has an unassociated entry, in O(1)
// via the roaring bitmap rather than a btree lookup.
func (c *Container) Contains(height uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.heights.Contains(height)
}

// Len returns the number of tracked entries.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byHash)
}

// Above returns every entry with height strictly greater than height,
// ascending by height, truncated to limit entries if limit > 0.
func (c *Container) Above(height uint32, limit int) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Record
	pivot := heightItem{rec: Record{Context: Context{Height: height}, Hash: linkkey.Hash32{0xff}}}
	c.byHeight.AscendGreaterOrEqual(pivot, func(item btree.Item) bool {
		rec := item.(heightItem).rec
		if rec.Context.Height <= height {
			return true
		}
		out = append(out, rec)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// CountAbove returns the count of entries with height strictly greater
// than height, truncated to limit if limit > 0, without materializing
// the matching records. It walks the roaring bitmap of occupied heights
// and adds each height's entry count, so a height shared by several
// entries contributes one per entry, as in Above.
func (c *Container) CountAbove(height uint32, limit int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	above := 0
	it := c.heights.Iterator()
	for it.HasNext() {
		h := it.Next()
		if h <= height {
			continue
		}
		above += c.heightCount[h]
		if limit > 0 && above >= limit {
			return limit
		}
	}
	return above
}
