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

// Output is an unspent-or-spent transaction output slab record, keyed
// only by its position (the owning tx's outs record lists which output
// links belong to it). ParentFK names the owning tx so `to_spenders` can
// walk back from an output to the transaction that created it
// (spec.md §4.5). Layout, byte for byte:
//
//	u32 parent_fk | varint value | varint script_length | script bytes
//
// This matches test/tables/archives/output.cpp's fixture exactly: a
// plain little-endian u32 for parent_fk, Bitcoin CompactSize for value
// and for the script's own length prefix.
type Output struct {
	ParentFK linkkey.Link
	Value    uint64
	Script   []byte
}

func encodeOutput(o Output) []byte {
	buf := make([]byte, 4+varint.Size(o.Value)+varint.Size(uint64(len(o.Script)))+len(o.Script))
	putLink(buf[0:4], o.ParentFK)
	n := 4
	n += varint.Put(buf[n:], o.Value)
	n += varint.Put(buf[n:], uint64(len(o.Script)))
	copy(buf[n:], o.Script)
	return buf[:n+len(o.Script)]
}

func decodeOutput(buf []byte) (Output, error) {
	if len(buf) < 4 {
		return Output{}, varint.ErrTruncated
	}
	var o Output
	o.ParentFK = getLink(buf[0:4])
	pos := 4

	value, n, err := varint.Get(buf[pos:])
	if err != nil {
		return Output{}, err
	}
	o.Value = value
	pos += n

	scriptLen, n, err := varint.Get(buf[pos:])
	if err != nil {
		return Output{}, err
	}
	pos += n
	if uint64(len(buf)-pos) < scriptLen {
		return Output{}, varint.ErrTruncated
	}
	if scriptLen > 0 {
		o.Script = append([]byte(nil), buf[pos:pos+int(scriptLen)]...)
	}
	return o, nil
}

var outputCodec = nomap.SlabCodec[Output]{Encode: encodeOutput, Decode: decodeOutput}

// OutputTable is the output slab table, addressed only by link; see
// `outs` for the per-tx list of output links, and `to_spenders` for the
// reverse walk through ParentFK.
type OutputTable struct {
	*nomap.Slab[Output]
}

// CreateOutputTable creates a new output table.
func CreateOutputTable(dir string, bodyOpts storage.Options) (*OutputTable, error) {
	t, err := nomap.CreateSlab[Output](dir, "output", LinkBytes, outputCodec, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &OutputTable{t}, nil
}

// OpenOutputTable maps an existing output table.
func OpenOutputTable(dir string, bodyOpts storage.Options) (*OutputTable, error) {
	t, err := nomap.OpenSlab[Output](dir, "output", LinkBytes, outputCodec, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &OutputTable{t}, nil
}
