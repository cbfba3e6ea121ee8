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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/internal/storage"
)

// Reproduces test/tables/archives/output.cpp's output__put__get__expected
// case byte for byte: an empty slab followed by a populated one, with no
// outer framing between them (DESIGN.md Open Question 3).
func TestOutputPutGetExpectedBytes(t *testing.T) {
	dir := t.TempDir()
	out, err := CreateOutputTable(dir, storage.Options{})
	require.NoError(t, err)
	defer out.Close()

	empty := Output{}
	expected := Output{
		ParentFK: linkkey.Link(0x56341201),
		Value:    0xdebc9a7856341202,
		Script:   nil,
	}

	link0, err := out.Put(empty)
	require.NoError(t, err)
	require.False(t, link0.IsTerminal(LinkBytes))
	require.EqualValues(t, 0, link0)

	link1, err := out.Put(expected)
	require.NoError(t, err)
	require.False(t, link1.IsTerminal(LinkBytes))
	require.EqualValues(t, 6, link1)

	require.NoError(t, out.Backup())
	raw, err := os.ReadFile(filepath.Join(dir, "body_output"))
	require.NoError(t, err)
	body := raw[:out.Size()] // the mapped file is padded to its capacity beyond logical size

	expectedFile := []byte{
		// slab 0 (empty)
		0x00, 0x00, 0x00, 0x00,
		0x00,
		0x00,

		// slab 1 (expected)
		0x01, 0x12, 0x34, 0x56,
		0xff, 0x02, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde,
		0x00,
	}
	require.Equal(t, expectedFile, body)

	got0, ok := out.Get(link0)
	require.True(t, ok)
	require.Equal(t, empty, got0)

	got1, ok := out.Get(link1)
	require.True(t, ok)
	require.Equal(t, expected, got1)
}
