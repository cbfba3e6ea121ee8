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

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/chainstore/assoc"
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/store"
	"github.com/erigontech/chainstore/tables"
)

// testConfig keeps every table small so test stores map quickly.
func testConfig(dir string) store.Config {
	small := store.TableConfig{Buckets: 16, Size: 64 * datasize.KB, Rate: 1.5}
	flat := store.TableConfig{Size: 64 * datasize.KB, Rate: 1.5}
	return store.Config{
		Path:      dir,
		Header:    small,
		Tx:        small,
		Point:     small,
		Output:    flat,
		Outs:      flat,
		Txs:       small,
		StrongTx:  small,
		Candidate: flat,
		Confirmed: flat,
		Neutrino:  small,
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Create(testConfig(dir), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func hashOf(b byte) Hash {
	var h Hash
	h[0] = b
	return h
}

// writeBlock inserts a header. When full is true it also inserts one
// coinbase transaction (no inputs, an empty outs record) and associates
// the block; otherwise the header stays unassociated. Returns the header
// link.
func writeBlock(t *testing.T, q *Query, s *store.Store, hash Hash, prev Hash, ctx assoc.Context, full bool) Link {
	t.Helper()
	header := tables.Header{PreviousHash: prev}

	if !full {
		link, err := q.SetHeader(hash, header, ctx)
		require.NoError(t, err)
		return link
	}

	outsLink, err := s.Outs.Put(tables.Outs{})
	require.NoError(t, err)
	txLink, err := s.Tx.Put(hash, tables.Tx{OutsFK: outsLink})
	require.NoError(t, err)

	headerLink, err := q.SetFull(hash, header, ctx, []Link{txLink})
	require.NoError(t, err)
	return headerLink
}

// Scenario 1: Initialize.
func TestScenarioInitialize(t *testing.T) {
	s := newTestStore(t)
	q := New(s)

	genesisHash := hashOf(0x01)
	outsLink, err := s.Outs.Put(tables.Outs{})
	require.NoError(t, err)
	coinbase, err := s.Tx.Put(genesisHash, tables.Tx{OutsFK: outsLink})
	require.NoError(t, err)

	require.NoError(t, q.Initialize(genesisHash, tables.Header{}, assoc.Context{Height: 0}, coinbase))

	require.True(t, q.IsInitialized())
	require.Equal(t, Height(0), q.GetTopCandidate())
	require.Equal(t, Height(0), q.GetTopConfirmed())
	require.Equal(t, Height(0), q.GetFork())

	txs := q.Transactions(q.ToHeader(genesisHash))
	require.Len(t, txs, 1)
	require.Equal(t, coinbase, txs[0])
}

// Scenario 2: candidate ahead of confirmed.
func TestScenarioCandidateAheadOfConfirmed(t *testing.T) {
	s := newTestStore(t)
	q := New(s)

	genesis := hashOf(0x00)
	block1 := hashOf(0x01)
	block2 := hashOf(0x02)

	genesisLink := writeBlock(t, q, s, genesis, Hash{}, assoc.Context{Height: 0}, true)
	block1Link := writeBlock(t, q, s, block1, genesis, assoc.Context{Height: 1}, true)
	block2Link := writeBlock(t, q, s, block2, block1, assoc.Context{Height: 2}, true)

	_, err := q.PushCandidate(genesisLink)
	require.NoError(t, err)
	_, err = q.PushConfirmed(genesisLink, false)
	require.NoError(t, err)

	_, err = q.PushCandidate(block1Link)
	require.NoError(t, err)
	_, err = q.PushConfirmed(block1Link, false)
	require.NoError(t, err)

	_, err = q.PushCandidate(block2Link)
	require.NoError(t, err)

	require.Equal(t, Height(2), q.GetTopCandidate())
	require.Equal(t, Height(1), q.GetTopConfirmed())
	require.Equal(t, Height(1), q.GetFork())
}

// Scenario 3: gapped association.
func TestScenarioGappedAssociation(t *testing.T) {
	s := newTestStore(t)
	q := New(s)

	genesis := hashOf(0x00)
	block1 := hashOf(0x01)
	block2 := hashOf(0x02)
	block3 := hashOf(0x03)

	genesisLink := writeBlock(t, q, s, genesis, Hash{}, assoc.Context{Height: 0}, true)
	block1Link := writeBlock(t, q, s, block1, genesis, assoc.Context{Height: 1}, true)
	block2Link := writeBlock(t, q, s, block2, block1, assoc.Context{Height: 2}, false) // header-only
	block3Link := writeBlock(t, q, s, block3, block2, assoc.Context{Height: 3}, true)

	for _, l := range []Link{genesisLink, block1Link, block2Link, block3Link} {
		_, err := q.PushCandidate(l)
		require.NoError(t, err)
	}

	require.Equal(t, Height(1), q.GetTopAssociated())
	require.Equal(t, Height(1), q.GetTopAssociatedFrom(0))
	require.Equal(t, Height(1), q.GetTopAssociatedFrom(1))
	require.Equal(t, Height(3), q.GetTopAssociatedFrom(2))
	require.Equal(t, Height(3), q.GetTopAssociatedFrom(3))

	unassoc := q.GetUnassociatedAbove(0, 0)
	require.Len(t, unassoc, 1)
	require.Equal(t, block2, unassoc[0].Hash)
	require.Equal(t, uint32(2), unassoc[0].Context.Height)
}

// Scenario 4 (output slab put/get) lives in tables/output_test.go.

// Scenario 5: reorg of candidate.
func TestScenarioReorgOfCandidate(t *testing.T) {
	s := newTestStore(t)
	q := New(s)

	genesis := hashOf(0x00)
	block1a := hashOf(0x11)
	block2a := hashOf(0x21)
	block2b := hashOf(0x22)

	genesisLink := writeBlock(t, q, s, genesis, Hash{}, assoc.Context{Height: 0}, true)
	block1aLink := writeBlock(t, q, s, block1a, genesis, assoc.Context{Height: 1}, true)
	block2aLink := writeBlock(t, q, s, block2a, block1a, assoc.Context{Height: 2}, true)
	block2bLink := writeBlock(t, q, s, block2b, block1a, assoc.Context{Height: 2}, true)

	_, err := q.PushCandidate(genesisLink)
	require.NoError(t, err)
	_, err = q.PushCandidate(block1aLink)
	require.NoError(t, err)
	_, err = q.PushCandidate(block2aLink)
	require.NoError(t, err)

	require.NoError(t, q.PopCandidate())
	require.Equal(t, Height(1), q.GetTopCandidate())

	_, err = q.PushCandidate(block2bLink)
	require.NoError(t, err)

	require.Equal(t, Height(2), q.GetTopCandidate())
	require.Equal(t, block2bLink, q.ToCandidate(2))
}

// Scenario 6: locator.
func TestScenarioLocator(t *testing.T) {
	s := newTestStore(t)
	q := New(s)

	genesis := hashOf(0x00)
	block1 := hashOf(0x01)
	block2 := hashOf(0x02)
	block3 := hashOf(0x03)

	links := []Link{
		writeBlock(t, q, s, genesis, Hash{}, assoc.Context{Height: 0}, true),
		writeBlock(t, q, s, block1, genesis, assoc.Context{Height: 1}, true),
		writeBlock(t, q, s, block2, block1, assoc.Context{Height: 2}, true),
		writeBlock(t, q, s, block3, block2, assoc.Context{Height: 3}, true),
	}
	for _, l := range links {
		_, err := q.PushCandidate(l)
		require.NoError(t, err)
	}

	hashes := q.GetCandidateHashes([]Height{0, 1, 3, 4})
	require.Equal(t, []Hash{genesis, block1, block3}, hashes)
}

// putTxWithOutputs breaks the tx<->output circular foreign key (an
// Output's ParentFK needs the owning tx's link; the tx's OutsFK needs
// the Outs record, which needs the output links) the way a real
// indexer must: insert the tx first with a Terminal OutsFK placeholder,
// insert its outputs referencing the now-known tx link, then mutate the
// tx's OutsFK in place via TxTable.SetOutsFK (spec.md §3.3).
func putTxWithOutputs(t *testing.T, s *store.Store, hash Hash, pointFK Link, pointCount uint32, values []uint64) (txLink Link, outputLinks []Link) {
	t.Helper()
	txLink, err := s.Tx.Put(hash, tables.Tx{PointFK: pointFK, PointCount: pointCount, OutsFK: Terminal()})
	require.NoError(t, err)

	outputLinks = make([]Link, len(values))
	for i, v := range values {
		l, err := s.Output.Put(tables.Output{ParentFK: txLink, Value: v})
		require.NoError(t, err)
		outputLinks[i] = l
	}

	outsLink, err := s.Outs.Put(tables.Outs{Links: outputLinks})
	require.NoError(t, err)
	require.NoError(t, s.Tx.SetOutsFK(txLink, outsLink))
	return txLink, outputLinks
}

// Transaction graph navigation: to_points, to_outputs, to_prevouts,
// to_spenders, to_block.
func TestTransactionGraphNavigation(t *testing.T) {
	s := newTestStore(t)
	q := New(s)

	// Coinbase tx for block A: one output, no inputs.
	txAHash := hashOf(0xA0)
	txALink, outsA := putTxWithOutputs(t, s, txAHash, Terminal(), 0, []uint64{50})
	outA0 := outsA[0]

	// Spending tx B: one input pointing at txA's output 0, one output.
	txBHash := hashOf(0xB0)
	pointLink, err := s.Point.Put(linkkey.Outpoint{Hash: txAHash, Index: 0}, tables.Point{Sequence: 0})
	require.NoError(t, err)
	txBLink, outsB := putTxWithOutputs(t, s, txBHash, pointLink, 1, []uint64{49})
	outB0 := outsB[0]

	require.Equal(t, []Link{outA0}, q.ToOutputs(txALink))
	require.Equal(t, []Link{pointLink}, q.ToPoints(txBLink))
	require.Equal(t, []Link{outA0}, q.ToPrevouts(txBLink))
	require.Equal(t, []Link{pointLink}, q.ToSpenders(outA0))
	require.Empty(t, q.ToSpenders(outB0))

	// Mark txB as confirmed in some block and verify ToBlock/ToStrong.
	headerLink := Link(7)
	_, err = s.StrongTx.Put(txBLink, tables.StrongTx{HeaderFK: headerLink, Positive: true})
	require.NoError(t, err)
	require.Equal(t, headerLink, q.ToBlock(txBLink))
	require.Equal(t, headerLink, q.ToStrong(txBHash))
}
