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

// Txs is the variable-length list of tx links belonging to one block, in
// block order, coinbase first; keyed by the owning header's link. Its
// mere presence in the table is what `get_top_associated`/
// `get_unassociated_above` test for "associated" (spec.md §4.6).
type Txs struct {
	Links []linkkey.Link
}

func encodeTxs(t Txs) []byte {
	buf := make([]byte, 0, varint.Size(uint64(len(t.Links)))+len(t.Links)*LinkBytes)
	buf = varint.Append(buf, uint64(len(t.Links)))
	for _, l := range t.Links {
		var tmp [LinkBytes]byte
		putLink(tmp[:], l)
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func decodeTxs(buf []byte) (Txs, error) {
	count, n, err := varint.Get(buf)
	if err != nil {
		return Txs{}, err
	}
	pos := n
	links := make([]linkkey.Link, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(buf)-pos < LinkBytes {
			return Txs{}, varint.ErrTruncated
		}
		links = append(links, getLink(buf[pos:pos+LinkBytes]))
		pos += LinkBytes
	}
	return Txs{Links: links}, nil
}

// TxsTable is the txs hashmap: header_link -> Txs (spec.md §4.5 `to_txs`).
type TxsTable struct {
	*hashmap.Slab[linkkey.Link, Txs]
}

// CreateTxsTable creates a new txs table.
func CreateTxsTable(dir string, buckets uint32, bodyOpts storage.Options) (*TxsTable, error) {
	t, err := hashmap.CreateSlab[linkkey.Link, Txs](dir, "txs", LinkBytes, buckets, linkkey.LinkCodec(LinkBytes), encodeTxs, decodeTxs, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &TxsTable{t}, nil
}

// OpenTxsTable maps an existing txs table.
func OpenTxsTable(dir string, buckets uint32, bodyOpts storage.Options) (*TxsTable, error) {
	t, err := hashmap.OpenSlab[linkkey.Link, Txs](dir, "txs", LinkBytes, buckets, linkkey.LinkCodec(LinkBytes), encodeTxs, decodeTxs, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &TxsTable{t}, nil
}
