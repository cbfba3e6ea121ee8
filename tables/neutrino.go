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
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
	"github.com/erigontech/chainstore/internal/table/hashmap"
	"github.com/erigontech/chainstore/internal/varint"
)

// Neutrino is a BIP157-style compact filter blob for one block, keyed by
// header_link (spec.md §2 lists "filter indexes" among the tables this
// graph composes; `to_filter` resolves it the same way `to_txs` does).
type Neutrino struct {
	Filter []byte
}

func encodeNeutrino(n Neutrino) []byte {
	buf := varint.Append(make([]byte, 0, varint.Size(uint64(len(n.Filter)))+len(n.Filter)), uint64(len(n.Filter)))
	return append(buf, n.Filter...)
}

func decodeNeutrino(buf []byte) (Neutrino, error) {
	n, consumed, err := varint.Get(buf)
	if err != nil {
		return Neutrino{}, err
	}
	if uint64(len(buf)-consumed) < n {
		return Neutrino{}, varint.ErrTruncated
	}
	return Neutrino{Filter: append([]byte(nil), buf[consumed:consumed+int(n)]...)}, nil
}

// NeutrinoTable is the neutrino hashmap: header_link -> Neutrino.
type NeutrinoTable struct {
	*hashmap.Slab[linkkey.Link, Neutrino]
}

// CreateNeutrinoTable creates a new neutrino table.
func CreateNeutrinoTable(dir string, buckets uint32, bodyOpts storage.Options) (*NeutrinoTable, error) {
	t, err := hashmap.CreateSlab[linkkey.Link, Neutrino](dir, "neutrino", LinkBytes, buckets, linkkey.LinkCodec(LinkBytes), encodeNeutrino, decodeNeutrino, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &NeutrinoTable{t}, nil
}

// OpenNeutrinoTable maps an existing neutrino table.
func OpenNeutrinoTable(dir string, buckets uint32, bodyOpts storage.Options) (*NeutrinoTable, error) {
	t, err := hashmap.OpenSlab[linkkey.Link, Neutrino](dir, "neutrino", LinkBytes, buckets, linkkey.LinkCodec(LinkBytes), encodeNeutrino, decodeNeutrino, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &NeutrinoTable{t}, nil
}
