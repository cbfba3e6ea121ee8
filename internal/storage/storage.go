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

// Package storage implements the memory-mapped body/head file primitive
// that every table in this repository is built on. A Storage owns one
// file descriptor and one mmap mapping; it knows nothing about records,
// keys, or buckets — that's the table layer's job.
package storage

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/erigontech/chainstore/dberr"
)

// Options configures a Storage at open/create time.
type Options struct {
	// MinCapacity is the smallest mapped capacity a freshly created file
	// is granted, and the floor every geometric grow step respects.
	MinCapacity int64
	// GrowthRatio is the factor applied to capacity on each remap
	// triggered by Allocate outrunning the current mapping.
	GrowthRatio float64
}

func (o Options) normalized() Options {
	if o.MinCapacity <= 0 {
		o.MinCapacity = 1 << 16
	}
	if o.GrowthRatio <= 1.0 {
		o.GrowthRatio = 1.5
	}
	return o
}

// Storage is a memory-mapped file with monotonic single-writer allocation
// and reference-counted pinned reads. The zero value is not usable; build
// one with Create or Open.
type Storage struct {
	path string
	opts Options

	file *os.File

	// remapMu serializes remaps (Lock) against pinned readers (RLock).
	// A Pin returned by Get holds the RLock until Release is called; a
	// grow triggered by Allocate takes the write lock, which therefore
	// blocks until every outstanding Pin is released.
	remapMu  sync.RWMutex
	mapping  mmap.MMap
	capacity int64

	// allocMu serializes the single writer's Allocate calls. Readers never
	// touch it.
	allocMu sync.Mutex

	logicalSize atomic.Int64

	faultMu sync.Mutex
	fault   dberr.Code
}

// Pin is a borrowed view into the mapped region. The backing storage is
// guaranteed not to remap while any Pin is outstanding; callers must call
// Release promptly (a long-lived Pin blocks writer growth indefinitely).
type Pin struct {
	data    []byte
	release func()
	once    sync.Once
}

// Bytes returns the pinned byte range. The slice is invalidated the
// instant Release is called; do not retain it past that point.
func (p *Pin) Bytes() []byte { return p.data }

// Release drops the pin. Safe to call more than once.
func (p *Pin) Release() {
	p.once.Do(func() {
		if p.release != nil {
			p.release()
		}
	})
}

// Create makes a new, empty memory-mapped file at path. It fails if the
// file already exists.
func Create(path string, opts Options) (*Storage, error) {
	opts = opts.normalized()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, dberr.Wrap(dberr.FileOpen, err, "create storage file")
	}

	s := &Storage{path: path, opts: opts, file: f}
	if err := s.mapAt(opts.MinCapacity); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Open maps an existing file. The caller is responsible for reconciling
// the mapped capacity against a head-recorded logical size via
// SetLogicalSize/Truncate (crash recovery, §3.4).
func Open(path string, opts Options) (*Storage, error) {
	opts = opts.normalized()

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, dberr.Wrap(dberr.FileOpen, err, "open storage file")
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, dberr.Wrap(dberr.FileOpen, err, "stat storage file")
	}

	size := st.Size()
	if size < opts.MinCapacity {
		size = opts.MinCapacity
	}

	s := &Storage{path: path, opts: opts, file: f}
	if err := s.mapAt(size); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.logicalSize.Store(st.Size())
	return s, nil
}

// mapAt truncates the backing file to exactly capacity and (re)maps it.
// Caller must hold remapMu for writing, or be constructing s (no
// concurrent access possible yet).
func (s *Storage) mapAt(capacity int64) error {
	if err := s.file.Truncate(capacity); err != nil {
		s.setFault(dberr.FileTruncate)
		return dberr.Wrap(dberr.FileTruncate, err, "truncate storage file")
	}

	m, err := mmap.MapRegion(s.file, int(capacity), mmap.RDWR, 0, 0)
	if err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "mmap storage file")
	}

	s.mapping = m
	s.capacity = capacity
	return nil
}

// Path returns the backing file path.
func (s *Storage) Path() string { return s.path }

// Size returns the logical size in bytes (the count of bytes actually
// written, as distinct from mapped capacity).
func (s *Storage) Size() int64 { return s.logicalSize.Load() }

// Capacity returns the currently mapped capacity in bytes.
func (s *Storage) Capacity() int64 {
	s.remapMu.RLock()
	defer s.remapMu.RUnlock()
	return s.capacity
}

// Count returns Size()/recordSize for a fixed-size instantiation.
// recordSize of 0 (slab tables) makes Count meaningless; callers of a
// slab table never call this.
func (s *Storage) Count(recordSize int64) int64 {
	if recordSize <= 0 {
		return 0
	}
	return s.Size() / recordSize
}

// SetLogicalSize pins the logical size to n, growing the mapping first if
// n exceeds the current capacity. Used by the Create paths of the head
// file and of both table primitives to set a fresh file's logical size;
// the Open paths reconcile against the head via Truncate instead.
func (s *Storage) SetLogicalSize(n int64) error {
	if f := s.Fault(); f != dberr.Success {
		return dberr.New(f, nil)
	}
	if n > s.Capacity() {
		if err := s.growTo(n); err != nil {
			return err
		}
	}
	s.logicalSize.Store(n)
	return nil
}

// Allocate reserves n bytes starting at the current logical size,
// advancing it, and returns the starting byte offset. It is the only
// mutator of logical size outside of Truncate/SetLogicalSize. Concurrent
// Allocate calls are serialized by allocMu and receive disjoint ranges;
// Truncate and SetLogicalSize do not take allocMu (single-writer
// assumption, §9).
func (s *Storage) Allocate(n int64) (int64, error) {
	if f := s.Fault(); f != dberr.Success {
		return 0, dberr.New(f, nil)
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	start := s.logicalSize.Load()
	end := start + n
	if end > s.Capacity() {
		if err := s.growTo(end); err != nil {
			return 0, err
		}
	}
	s.logicalSize.Store(end)
	return start, nil
}

// growTo remaps the file so capacity >= minSize, using a geometric
// growth factor. Blocks until every outstanding Pin is released.
func (s *Storage) growTo(minSize int64) error {
	s.remapMu.Lock()
	defer s.remapMu.Unlock()

	if minSize <= s.capacity {
		return nil
	}

	newCap := s.capacity
	if newCap < s.opts.MinCapacity {
		newCap = s.opts.MinCapacity
	}
	for newCap < minSize {
		grown := int64(float64(newCap) * s.opts.GrowthRatio)
		if grown <= newCap {
			grown = newCap + s.opts.MinCapacity
		}
		newCap = grown
	}

	if err := s.mapping.Unmap(); err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "unmap before grow")
	}
	if err := s.file.Truncate(newCap); err != nil {
		s.setFault(dberr.FileGrow)
		return dberr.Wrap(dberr.FileGrow, err, "grow storage file")
	}
	m, err := mmap.MapRegion(s.file, int(newCap), mmap.RDWR, 0, 0)
	if err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "remap after grow")
	}

	s.mapping = m
	s.capacity = newCap
	return nil
}

// Get returns a Pin over [offset, offset+length) of the mapped region.
// The pin must be released by the caller. Get never blocks on I/O; it may
// briefly block on remapMu if a grow is in flight.
func (s *Storage) Get(offset, length int64) (*Pin, error) {
	if f := s.Fault(); f != dberr.Success {
		return nil, dberr.New(f, nil)
	}
	if offset < 0 || length < 0 {
		return nil, dberr.New(dberr.InvalidLink, nil)
	}

	s.remapMu.RLock()

	size := s.logicalSize.Load()
	if offset+length > size {
		s.remapMu.RUnlock()
		return nil, dberr.New(dberr.InvalidLink, nil)
	}

	data := s.mapping[offset : offset+length]
	p := &Pin{data: data}
	p.release = s.remapMu.RUnlock
	return p, nil
}

// Truncate changes the logical size to newSize, discarding everything
// beyond it from the backing file (used for crash recovery, §3.4, and by
// the nomap/hashmap `truncate(count)` operations). Unlike Allocate this
// always remaps: to newSize exactly, or to MinCapacity when newSize is
// smaller. No hot path calls it.
func (s *Storage) Truncate(newSize int64) error {
	if f := s.Fault(); f != dberr.Success {
		return dberr.New(f, nil)
	}
	if newSize < 0 {
		return dberr.New(dberr.InvalidLink, nil)
	}

	s.remapMu.Lock()
	defer s.remapMu.Unlock()

	capacity := newSize
	if capacity < s.opts.MinCapacity {
		capacity = s.opts.MinCapacity
	}

	if err := s.mapping.Unmap(); err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "unmap before truncate")
	}
	if err := s.file.Truncate(capacity); err != nil {
		s.setFault(dberr.FileTruncate)
		return dberr.Wrap(dberr.FileTruncate, err, "truncate storage file")
	}
	m, err := mmap.MapRegion(s.file, int(capacity), mmap.RDWR, 0, 0)
	if err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "remap after truncate")
	}

	s.mapping = m
	s.capacity = capacity
	s.logicalSize.Store(newSize)
	return nil
}

// Flush synchronizes the mapping to disk.
func (s *Storage) Flush() error {
	if f := s.Fault(); f != dberr.Success {
		return dberr.New(f, nil)
	}
	s.remapMu.RLock()
	defer s.remapMu.RUnlock()
	if err := s.mapping.Flush(); err != nil {
		s.setFault(dberr.FileSync)
		return dberr.Wrap(dberr.FileSync, err, "flush storage mapping")
	}
	return nil
}

// Reload re-establishes the mapping from the file's current on-disk size.
// Used if the backing file was replaced out from under the process.
func (s *Storage) Reload() error {
	s.remapMu.Lock()
	defer s.remapMu.Unlock()

	st, err := s.file.Stat()
	if err != nil {
		s.setFault(dberr.FileOpen)
		return dberr.Wrap(dberr.FileOpen, err, "stat storage file for reload")
	}
	if err := s.mapping.Unmap(); err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "unmap before reload")
	}
	m, err := mmap.MapRegion(s.file, int(st.Size()), mmap.RDWR, 0, 0)
	if err != nil {
		s.setFault(dberr.FileMap)
		return dberr.Wrap(dberr.FileMap, err, "remap on reload")
	}
	s.mapping = m
	s.capacity = st.Size()
	return nil
}

// Close flushes and unmaps the file, then closes the descriptor.
func (s *Storage) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	s.remapMu.Lock()
	defer s.remapMu.Unlock()
	if err := s.mapping.Unmap(); err != nil {
		s.setFault(dberr.FileClose)
		return dberr.Wrap(dberr.FileClose, err, "unmap storage file")
	}
	if err := s.file.Close(); err != nil {
		s.setFault(dberr.FileClose)
		return dberr.Wrap(dberr.FileClose, err, "close storage file")
	}
	return nil
}

// Fault returns the first non-success code this Storage has observed.
// Once set it never clears; every subsequent mutating call becomes a
// no-op returning it.
func (s *Storage) Fault() dberr.Code {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.fault
}

func (s *Storage) setFault(c dberr.Code) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.fault == dberr.Success {
		s.fault = c
	}
}
