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

package hashmap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
)

type record struct{ V uint64 }

func encodeRecord(r record, buf []byte) { binary.LittleEndian.PutUint64(buf, r.V) }
func decodeRecord(buf []byte) record    { return record{V: binary.LittleEndian.Uint64(buf)} }

func newTestFixed(t *testing.T, buckets uint32) *Fixed[linkkey.Hash32, record] {
	t.Helper()
	dir := t.TempDir()
	f, err := CreateFixed[linkkey.Hash32, record](dir, "t", 4, buckets, linkkey.Hash32Codec(), 8, encodeRecord, decodeRecord, storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func hash(b byte) linkkey.Hash32 {
	var h linkkey.Hash32
	h[0] = b
	return h
}

func TestFixedPutGetFind(t *testing.T) {
	f := newTestFixed(t, 8)

	k := hash(1)
	link0, err := f.Put(k, record{V: 10})
	require.NoError(t, err)
	link1, err := f.Put(k, record{V: 20})
	require.NoError(t, err)

	// LIFO chain order: First returns the most recently inserted record.
	got, link, ok := f.First(k)
	require.True(t, ok)
	require.Equal(t, record{V: 20}, got)
	require.Equal(t, link1, link)

	var seen []uint64
	require.NoError(t, f.Find(k, func(e record, l linkkey.Link) bool {
		seen = append(seen, e.V)
		return true
	}))
	require.Equal(t, []uint64{20, 10}, seen)

	got0, ok := f.Get(link0)
	require.True(t, ok)
	require.Equal(t, record{V: 10}, got0)
}

func TestFixedUpdateInPlace(t *testing.T) {
	f := newTestFixed(t, 4)

	k := hash(2)
	link, err := f.Put(k, record{V: 1})
	require.NoError(t, err)

	require.NoError(t, f.Update(link, record{V: 99}))

	got, ok := f.Get(link)
	require.True(t, ok)
	require.Equal(t, record{V: 99}, got)

	// The key and chain position are untouched by Update.
	key, ok := f.KeyAt(link)
	require.True(t, ok)
	require.Equal(t, k, key)
}

func TestFixedUpdateOnTerminalLinkFails(t *testing.T) {
	f := newTestFixed(t, 4)
	err := f.Update(f.Terminal(), record{V: 1})
	require.Error(t, err)
}

func TestFixedGetMissingLink(t *testing.T) {
	f := newTestFixed(t, 4)
	_, ok := f.Get(linkkey.Link(123))
	require.False(t, ok)
}
