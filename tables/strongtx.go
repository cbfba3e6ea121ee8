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
)

// StrongTx records whether a tx_link is (or was) part of a block on the
// confirmed chain (spec.md §4.5 `to_block`). Positive false means the tx
// has been reorganized out of the strong chain, but the record is kept
// rather than deleted (append-only, §3.3).
type StrongTx struct {
	HeaderFK linkkey.Link
	Positive bool
}

const strongTxRecordSize = LinkBytes + 1

func encodeStrongTx(s StrongTx, buf []byte) {
	putLink(buf[0:LinkBytes], s.HeaderFK)
	if s.Positive {
		buf[LinkBytes] = 1
	} else {
		buf[LinkBytes] = 0
	}
}

func decodeStrongTx(buf []byte) StrongTx {
	return StrongTx{
		HeaderFK: getLink(buf[0:LinkBytes]),
		Positive: buf[LinkBytes] != 0,
	}
}

// StrongTxTable is the strong_tx hashmap: tx_link -> StrongTx.
type StrongTxTable struct {
	*hashmap.Fixed[linkkey.Link, StrongTx]
}

// CreateStrongTxTable creates a new strong_tx table.
func CreateStrongTxTable(dir string, buckets uint32, bodyOpts storage.Options) (*StrongTxTable, error) {
	t, err := hashmap.CreateFixed[linkkey.Link, StrongTx](dir, "strong_tx", LinkBytes, buckets, linkkey.LinkCodec(LinkBytes), strongTxRecordSize, encodeStrongTx, decodeStrongTx, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &StrongTxTable{t}, nil
}

// OpenStrongTxTable maps an existing strong_tx table.
func OpenStrongTxTable(dir string, buckets uint32, bodyOpts storage.Options) (*StrongTxTable, error) {
	t, err := hashmap.OpenFixed[linkkey.Link, StrongTx](dir, "strong_tx", LinkBytes, buckets, linkkey.LinkCodec(LinkBytes), strongTxRecordSize, encodeStrongTx, decodeStrongTx, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &StrongTxTable{t}, nil
}
