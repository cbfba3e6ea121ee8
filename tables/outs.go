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
	"github.com/erigontech/chainstore/internal/table/nomap"
	"github.com/erigontech/chainstore/internal/varint"
)

// Outs is the variable-length list of output links belonging to one
// transaction, in output-index order; a Tx's OutsFK names one of these
// (spec.md §4.5 `to_outputs`).
type Outs struct {
	Links []linkkey.Link
}

func encodeOuts(o Outs) []byte {
	buf := make([]byte, 0, varint.Size(uint64(len(o.Links)))+len(o.Links)*LinkBytes)
	buf = varint.Append(buf, uint64(len(o.Links)))
	for _, l := range o.Links {
		var tmp [LinkBytes]byte
		putLink(tmp[:], l)
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func decodeOuts(buf []byte) (Outs, error) {
	count, n, err := varint.Get(buf)
	if err != nil {
		return Outs{}, err
	}
	pos := n
	links := make([]linkkey.Link, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(buf)-pos < LinkBytes {
			return Outs{}, varint.ErrTruncated
		}
		links = append(links, getLink(buf[pos:pos+LinkBytes]))
		pos += LinkBytes
	}
	return Outs{Links: links}, nil
}

var outsCodec = nomap.SlabCodec[Outs]{Encode: encodeOuts, Decode: decodeOuts}

// OutsTable is the outs slab table, addressed only by link.
type OutsTable struct {
	*nomap.Slab[Outs]
}

// CreateOutsTable creates a new outs table.
func CreateOutsTable(dir string, bodyOpts storage.Options) (*OutsTable, error) {
	t, err := nomap.CreateSlab[Outs](dir, "outs", LinkBytes, outsCodec, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &OutsTable{t}, nil
}

// OpenOutsTable maps an existing outs table.
func OpenOutsTable(dir string, bodyOpts storage.Options) (*OutsTable, error) {
	t, err := nomap.OpenSlab[Outs](dir, "outs", LinkBytes, outsCodec, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &OutsTable{t}, nil
}
