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

package hashmap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/chainstore/internal/linkkey"
)

// TestPutGetRoundTrip is the round-trip law from spec.md §8: put then get
// is identity on serialized elements.
func TestPutGetRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newTestFixed(t, 8)

		k := hash(byte(rapid.IntRange(0, 255).Draw(rt, "keyByte")))
		v := record{V: rapid.Uint64().Draw(rt, "value")}

		link, err := f.Put(k, v)
		require.NoError(t, err)

		got, ok := f.Get(link)
		require.True(t, ok)
		require.Equal(t, v, got)
	})
}

// TestChainTerminationAndLIFOOrder is spec.md §8's bucket-chain
// invariant ("chain from head[b] terminates at terminal within ≤
// count(H) steps without revisit") and its duplicate-insert ordering law
// ("duplicate inserts of the same key produce iteration order
// newest-first"), exercised together over a forced-collision key domain
// small enough that every bucket accumulates multiple chains.
func TestChainTerminationAndLIFOOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newTestFixed(t, 4)

		const domain = 6
		inserts := rapid.SliceOfN(rapid.IntRange(0, domain-1), 0, 40).Draw(rt, "keys")

		byKey := make(map[int][]uint64)
		for i, kb := range inserts {
			k := hash(byte(kb))
			v := uint64(i)
			_, err := f.Put(k, record{V: v})
			require.NoError(t, err)
			byKey[kb] = append(byKey[kb], v)
		}

		total := int64(len(inserts))
		for kb, wantNewestFirst := range byKey {
			k := hash(byte(kb))

			var visited []uint64
			seen := make(map[uint64]bool)
			err := f.Find(k, func(e record, link linkkey.Link) bool {
				require.False(t, seen[uint64(link)], "bucket chain revisited a link")
				seen[uint64(link)] = true
				visited = append(visited, e.V)
				return int64(len(visited)) <= total // bounded walk; a buggy chain must not be allowed to loop forever
			})
			require.NoError(t, err)

			want := make([]uint64, len(wantNewestFirst))
			for i, v := range wantNewestFirst {
				want[len(wantNewestFirst)-1-i] = v
			}
			require.Equal(t, want, visited)
			require.LessOrEqual(t, int64(len(visited)), total)
		}
	})
}
