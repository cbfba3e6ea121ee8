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
)

// Height is a single entry in the candidate or confirmed chain: the
// header_link occupying that chain position (spec.md §3.3). Height
// tables are nomap-fixed, indexed purely by position — the record at
// link L is the entry at height L, entries contiguous from 0 to the
// chain tip.
type Height struct {
	HeaderFK linkkey.Link
}

const heightRecordSize = LinkBytes

func encodeHeight(h Height, buf []byte) { putLink(buf[0:LinkBytes], h.HeaderFK) }

func decodeHeight(buf []byte) Height { return Height{HeaderFK: getLink(buf[0:LinkBytes])} }

var heightCodec = nomap.FixedCodec[Height]{Size: heightRecordSize, Encode: encodeHeight, Decode: decodeHeight}

// HeightTable backs both the candidate and confirmed chains (spec.md
// §4.6); which one a given instance represents is purely a matter of
// which file name it was created/opened with.
type HeightTable struct {
	*nomap.Fixed[Height]
}

// CreateHeightTable creates a new height table named name ("candidate"
// or "confirmed").
func CreateHeightTable(dir, name string, bodyOpts storage.Options) (*HeightTable, error) {
	t, err := nomap.CreateFixed[Height](dir, name, LinkBytes, heightCodec, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &HeightTable{t}, nil
}

// OpenHeightTable maps an existing height table.
func OpenHeightTable(dir, name string, bodyOpts storage.Options) (*HeightTable, error) {
	t, err := nomap.OpenFixed[Height](dir, name, LinkBytes, heightCodec, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &HeightTable{t}, nil
}

// Top returns the highest occupied height, or -1 if the table is empty.
func (h *HeightTable) Top() int64 {
	return h.Count() - 1
}

// HeaderAt returns the header_link stored at height, or Terminal if
// height is out of range.
func (h *HeightTable) HeaderAt(height int64) linkkey.Link {
	if height < 0 {
		return Terminal()
	}
	rec, ok := h.Get(linkkey.Link(height))
	if !ok {
		return Terminal()
	}
	return rec.HeaderFK
}

// Push appends headerLink at the next height and returns that height.
func (h *HeightTable) Push(headerLink linkkey.Link) (int64, error) {
	link, err := h.Put(Height{HeaderFK: headerLink})
	if err != nil {
		return 0, err
	}
	return int64(link), nil
}

// Pop removes the chain tip. On an empty table it does nothing and
// returns nil.
func (h *HeightTable) Pop() error {
	top := h.Top()
	if top < 0 {
		return nil
	}
	return h.Truncate(top)
}
