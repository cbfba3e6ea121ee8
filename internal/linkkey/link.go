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

// Package linkkey defines the Link type shared by every table (spec.md
// §3.1) and the Key codecs used to derive bucket indices for the hashmap
// primitive.
package linkkey

import "encoding/binary"

// Link identifies a record by its position: a record index for fixed-size
// tables, a raw byte offset for slab tables. The zero value is a valid
// link (the first record); Terminal is the sentinel for "absent".
type Link uint64

// TerminalFor returns the sentinel value for a link field encoded in the
// given number of bytes (spec.md §6: "Terminal Link = (1 << (bits*8)) - 1").
func TerminalFor(bytes int) Link {
	if bytes <= 0 || bytes >= 8 {
		return Link(^uint64(0))
	}
	return Link(uint64(1)<<(uint(bytes)*8) - 1)
}

// IsTerminal reports whether l is the terminal sentinel for the given
// link width.
func (l Link) IsTerminal(bytes int) bool { return l == TerminalFor(bytes) }

// PutLE encodes l into buf (which must be exactly bytes long) as
// little-endian, per spec.md §6 ("All integers are little-endian").
func (l Link) PutLE(buf []byte, bytes int) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(l))
	copy(buf[:bytes], tmp[:bytes])
}

// LinkLE decodes a link of the given width from buf's first bytes bytes.
func LinkLE(buf []byte, bytes int) Link {
	var tmp [8]byte
	copy(tmp[:bytes], buf[:bytes])
	return Link(binary.LittleEndian.Uint64(tmp[:]))
}
