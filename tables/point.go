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

// Point is an input record, keyed by the prevout it spends
// (hash, index). §4.5 `to_points` relies on points for one tx being
// allocated contiguously, in input order, by link arithmetic alone
// (PointFK..PointFK+PointCount-1) — it never needs to walk this
// hashmap's bucket chains. §4.6 `to_spenders` reverses the relationship:
// it walks the point hashmap by key to find every spender of a given
// prevout. Sequence records the input's position within its own
// transaction, matching the C++ source's point-to-input correspondence
// without needing a separate input table (DESIGN.md Open Question 1).
type Point struct {
	Sequence uint32
}

const pointRecordSize = 4

func encodePoint(p Point, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], p.Sequence)
}

func decodePoint(buf []byte) Point {
	return Point{Sequence: binary.LittleEndian.Uint32(buf[0:4])}
}

// PointTable is the point hashmap: (prevout hash, index) -> Point.
type PointTable struct {
	*hashmap.Fixed[linkkey.Outpoint, Point]
}

// CreatePointTable creates a new point table.
func CreatePointTable(dir string, buckets uint32, bodyOpts storage.Options) (*PointTable, error) {
	t, err := hashmap.CreateFixed[linkkey.Outpoint, Point](dir, "point", LinkBytes, buckets, linkkey.OutpointCodec(), pointRecordSize, encodePoint, decodePoint, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &PointTable{t}, nil
}

// OpenPointTable maps an existing point table.
func OpenPointTable(dir string, buckets uint32, bodyOpts storage.Options) (*PointTable, error) {
	t, err := hashmap.OpenFixed[linkkey.Outpoint, Point](dir, "point", LinkBytes, buckets, linkkey.OutpointCodec(), pointRecordSize, encodePoint, decodePoint, bodyOpts)
	if err != nil {
		return nil, err
	}
	return &PointTable{t}, nil
}
