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

package linkkey

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hash32 is a 32-byte digest key (block hash, transaction hash).
type Hash32 [32]byte

// Outpoint is the composite key (spent transaction hash, output index)
// used by the point table, both for forward allocation order and for
// reverse spender lookup (§4.6).
type Outpoint struct {
	Hash  Hash32
	Index uint32
}

// NullIndex is the all-ones sentinel marking a coinbase input, which has
// no real prevout (§4.6: "Coinbase outputs ... return the empty set").
const NullIndex uint32 = 0xFFFFFFFF

// LinkKey wraps a Link so a hashmap can be keyed directly by another
// table's link (used by the txs, strong_tx and neutrino tables, which are
// looked up by header_link/tx_link rather than by hash, §4.5).
type LinkKey struct {
	Link  Link
	Bytes int // encoded width, matching the referenced table's link width
}

// Codec describes how to serialize, compare and bucket a key type K.
// Hashmap tables take a Codec[K] at construction instead of requiring K
// to implement an interface, so the same concrete key type (e.g. Hash32)
// can back tables with different bucket counts without re-implementing
// hashing per table.
type Codec[K comparable] struct {
	Size   int
	Encode func(K, []byte)
	Decode func([]byte) K
	Hash   func(K) uint64
}

// Hash32Codec hashes the whole 32-byte digest with xxhash rather than
// taking its first 8 bytes little-endian (spec.md §3.1), for a better
// bit mix across the whole digest than a bare truncation would give.
func Hash32Codec() Codec[Hash32] {
	return Codec[Hash32]{
		Size: 32,
		Encode: func(k Hash32, buf []byte) {
			copy(buf[:32], k[:])
		},
		Decode: func(buf []byte) Hash32 {
			var h Hash32
			copy(h[:], buf[:32])
			return h
		},
		Hash: func(k Hash32) uint64 {
			return xxhash.Sum64(k[:])
		},
	}
}

// OutpointCodec encodes (hash32, index u32) and hashes over both fields.
func OutpointCodec() Codec[Outpoint] {
	return Codec[Outpoint]{
		Size: 36,
		Encode: func(k Outpoint, buf []byte) {
			copy(buf[:32], k.Hash[:])
			binary.LittleEndian.PutUint32(buf[32:36], k.Index)
		},
		Decode: func(buf []byte) Outpoint {
			var o Outpoint
			copy(o.Hash[:], buf[:32])
			o.Index = binary.LittleEndian.Uint32(buf[32:36])
			return o
		},
		Hash: func(k Outpoint) uint64 {
			var buf [36]byte
			copy(buf[:32], k.Hash[:])
			binary.LittleEndian.PutUint32(buf[32:36], k.Index)
			return xxhash.Sum64(buf[:])
		},
	}
}

// LinkCodec keys a hashmap directly by a Link of the given width (used
// when a table is looked up by another table's link rather than a hash).
func LinkCodec(width int) Codec[Link] {
	return Codec[Link]{
		Size: width,
		Encode: func(k Link, buf []byte) {
			k.PutLE(buf, width)
		},
		Decode: func(buf []byte) Link {
			return LinkLE(buf, width)
		},
		Hash: func(k Link) uint64 {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(k))
			return xxhash.Sum64(buf[:])
		},
	}
}

// Bucket computes bucket(key) = hash(key) mod B (§3.1).
func Bucket(h uint64, buckets uint32) uint32 {
	if buckets == 0 {
		return 0
	}
	return uint32(h % uint64(buckets))
}
