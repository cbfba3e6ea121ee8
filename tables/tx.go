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

	"github.com/erigontech/chainstore/dberr"
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
	"github.com/erigontech/chainstore/internal/table/hashmap"
)

// Tx is a transaction record, keyed by its own hash. PointFK/PointCount
// identify the contiguous range of this tx's inputs in the point table
// (spec.md §4.5 `to_points`); OutsFK names the outs record listing this
// tx's outputs (`to_outputs`).
type Tx struct {
	PointFK    linkkey.Link
	PointCount uint32
	OutsFK     linkkey.Link
}

const txRecordSize = LinkBytes + 4 + LinkBytes

func encodeTx(tx Tx, buf []byte) {
	putLink(buf[0:LinkBytes], tx.PointFK)
	binary.LittleEndian.PutUint32(buf[LinkBytes:LinkBytes+4], tx.PointCount)
	putLink(buf[LinkBytes+4:LinkBytes+4+LinkBytes], tx.OutsFK)
}

func decodeTx(buf []byte) Tx {
	return Tx{
		PointFK:    getLink(buf[0:LinkBytes]),
		PointCount: binary.LittleEndian.Uint32(buf[LinkBytes : LinkBytes+4]),
		OutsFK:     getLink(buf[LinkBytes+4 : LinkBytes+4+LinkBytes]),
	}
}

// TxTable is the tx hashmap: hash -> Tx, §4.5 `to_tx`. Duplicate hashes
// (a transaction reappearing across reorged forks) are expected; LIFO
// chain order means `First` returns the most recent tx_link for a hash.
type TxTable struct {
	*hashmap.Fixed[linkkey.Hash32, Tx]
}

// CreateTxTable creates a new tx table.
func CreateTxTable(dir string, buckets uint32, bodyOpts storage.Options) (*TxTable, error) {
	t, err := hashmap.CreateFixed[linkkey.Hash32, Tx](dir, "tx", LinkBytes, buckets, linkkey.Hash32Codec(), txRecordSize, encodeTx, decodeTx, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &TxTable{t}, nil
}

// OpenTxTable maps an existing tx table.
func OpenTxTable(dir string, buckets uint32, bodyOpts storage.Options) (*TxTable, error) {
	t, err := hashmap.OpenFixed[linkkey.Hash32, Tx](dir, "tx", LinkBytes, buckets, linkkey.Hash32Codec(), txRecordSize, encodeTx, decodeTx, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &TxTable{t}, nil
}

// SetOutsFK mutates the OutsFK field of the tx at txLink in place
// (spec.md §3.3: "rare in-place updates of explicitly mutable fields,
// which must never change record length"). Used when a tx's outputs
// list can only be finalized after the tx's own link is known (each
// Output carries the owning tx's link as ParentFK).
func (t *TxTable) SetOutsFK(txLink linkkey.Link, outsFK linkkey.Link) error {
	tx, ok := t.Get(txLink)
	if !ok {
		return dberr.New(dberr.InvalidLink, nil)
	}
	tx.OutsFK = outsFK
	return t.Update(txLink, tx)
}
