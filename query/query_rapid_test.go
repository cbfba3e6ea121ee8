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

package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestGetForkBound is spec.md §8's `get_fork() <= min(get_top_confirmed(),
// get_top_candidate())` invariant, checked over random interleavings of
// push/pop on both chains. The chains only ever store links, so synthetic
// Link values stand in for real header links.
func TestGetForkBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := newTestStore(t)
		q := New(s)

		steps := rapid.SliceOfN(rapid.IntRange(0, 3), 0, 60).Draw(rt, "steps")
		for _, step := range steps {
			// A small, overlapping link domain means candidate and
			// confirmed sometimes agree at the same height, exercising
			// get_fork's non-terminal path instead of only the
			// everything-diverges case.
			link := Link(rapid.IntRange(0, 5).Draw(rt, "link"))
			switch step {
			case 0:
				_, _ = q.PushCandidate(link)
			case 1:
				_, _ = q.PushConfirmed(link, false)
			case 2:
				_ = q.PopCandidate()
			case 3:
				_ = q.PopConfirmed()
			}

			fork := q.GetFork()
			tc := q.GetTopCandidate()
			tf := q.GetTopConfirmed()

			min := tc
			if tf < min {
				min = tf
			}
			if fork != TerminalHeight {
				require.LessOrEqual(t, fork, min)
			}
		}
	})
}
