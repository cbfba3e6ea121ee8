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

// Package varint implements Bitcoin's CompactSize variable-length
// integer encoding, the self-delimiting framing slab table schemas use
// for their variable-width fields (value, script length, link lists).
// Grounded on the byte layout exercised by
// test/tables/archives/output.cpp: values below 0xfd encode as a single
// byte; 0xfd/0xfe/0xff prefix a little-endian uint16/uint32/uint64.
package varint

import (
	"encoding/binary"
	"errors"
)

var ErrTruncated = errors.New("varint: truncated input")

// Size returns the number of bytes Put will write for v.
func Size(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// Put encodes v into buf (which must be at least Size(v) bytes) and
// returns the number of bytes written.
func Put(buf []byte, v uint64) int {
	switch {
	case v < 0xfd:
		buf[0] = byte(v)
		return 1
	case v <= 0xffff:
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:3], uint16(v))
		return 3
	case v <= 0xffffffff:
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:5], uint32(v))
		return 5
	default:
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:9], v)
		return 9
	}
}

// Append encodes v and appends it to buf.
func Append(buf []byte, v uint64) []byte {
	var tmp [9]byte
	n := Put(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Get decodes a varint from the front of buf, returning the value and
// the number of bytes consumed.
func Get(buf []byte) (uint64, int, error) {
	if len(buf) < 1 {
		return 0, 0, ErrTruncated
	}
	switch buf[0] {
	case 0xfd:
		if len(buf) < 3 {
			return 0, 0, ErrTruncated
		}
		return uint64(binary.LittleEndian.Uint16(buf[1:3])), 3, nil
	case 0xfe:
		if len(buf) < 5 {
			return 0, 0, ErrTruncated
		}
		return uint64(binary.LittleEndian.Uint32(buf[1:5])), 5, nil
	case 0xff:
		if len(buf) < 9 {
			return 0, 0, ErrTruncated
		}
		return binary.LittleEndian.Uint64(buf[1:9]), 9, nil
	default:
		return uint64(buf[0]), 1, nil
	}
}
