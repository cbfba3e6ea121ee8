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

package tables

import (
	"encoding/binary"

	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
	"github.com/erigontech/chainstore/internal/table/hashmap"
)

// Header is a block header record, keyed by its own hash. Fields are
// illustrative (spec.md §1 Non-goal on concrete schemas), enough to
// support the chain-management and association invariants of §4.6/§4.7.
type Header struct {
	PreviousHash liteHash
	MerkleRoot   liteHash
	Version      uint32
	Timestamp    uint32
	Bits         uint32
	Nonce        uint32
}

type liteHash = linkkey.Hash32

const headerRecordSize = 32 + 32 + 4 + 4 + 4 + 4

func encodeHeader(h Header, buf []byte) {
	copy(buf[0:32], h.PreviousHash[:])
	copy(buf[32:64], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[64:68], h.Version)
	binary.LittleEndian.PutUint32(buf[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
}

func decodeHeader(buf []byte) Header {
	var h Header
	copy(h.PreviousHash[:], buf[0:32])
	copy(h.MerkleRoot[:], buf[32:64])
	h.Version = binary.LittleEndian.Uint32(buf[64:68])
	h.Timestamp = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
	return h
}

// HeaderTable is the header hashmap: hash -> Header, §4.5 `to_header`.
type HeaderTable struct {
	*hashmap.Fixed[linkkey.Hash32, Header]
}

// CreateHeaderTable creates a new header table.
func CreateHeaderTable(dir string, buckets uint32, bodyOpts storage.Options) (*HeaderTable, error) {
	t, err := hashmap.CreateFixed[linkkey.Hash32, Header](dir, "header", LinkBytes, buckets, linkkey.Hash32Codec(), headerRecordSize, encodeHeader, decodeHeader, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &HeaderTable{t}, nil
}

// OpenHeaderTable maps an existing header table.
func OpenHeaderTable(dir string, buckets uint32, bodyOpts storage.Options) (*HeaderTable, error) {
	t, err := hashmap.OpenFixed[linkkey.Hash32, Header](dir, "header", LinkBytes, buckets, linkkey.Hash32Codec(), headerRecordSize, encodeHeader, decodeHeader, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &HeaderTable{t}, nil
}
