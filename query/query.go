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

// Package query is the translate layer (spec.md §4.5, §4.6): a stateless
// navigation facade over a *store.Store. None of its methods return
// error; a failed lookup surfaces as a Terminal link or an empty slice,
// per spec.md §7 ("Navigation operations do not propagate I/O codes").
// Only the chain-mutating and record-inserting methods (Push*, Pop*,
// SetHeader, Associate) return error, since those delegate directly to a
// table primitive's allocation path.
package query

import (
	"golang.org/x/sync/errgroup"

	"github.com/erigontech/chainstore/assoc"
	"github.com/erigontech/chainstore/internal/linkkey"
	"github.com/erigontech/chainstore/store"
	"github.com/erigontech/chainstore/tables"
)

// Link is the position/offset identifier shared by every table.
type Link = linkkey.Link

// Hash is a 32-byte block or transaction hash.
type Hash = linkkey.Hash32

// Height indexes a position in the candidate or confirmed chain.
// TerminalHeight plays the same "absent" role for heights that Terminal
// plays for links (spec.md §8 "get_top_associated_from(terminal) ==
// max_size_t").
type Height = uint64

// TerminalHeight is the sentinel for "no such height" / "unbounded".
const TerminalHeight Height = ^uint64(0)

// Terminal is the sentinel link for this repository's uniform link
// width (tables.LinkBytes).
func Terminal() Link { return tables.Terminal() }

// Query is a thin, stateless wrapper around a *store.Store. Multiple
// Querys may share one Store concurrently; Query itself holds no state
// of its own (spec.md §4.5 "stateless navigation").
type Query struct {
	store *store.Store
}

// New wraps s in a navigation facade.
func New(s *store.Store) *Query { return &Query{store: s} }

// ---- Key -> Link ----------------------------------------------------

// ToHeader returns the link of the most recently inserted header
// matching hash, or Terminal if none (spec.md §4.5 `to_header`).
func (q *Query) ToHeader(hash Hash) Link {
	_, link, ok := q.store.Header.First(hash)
	if !ok {
		return Terminal()
	}
	return link
}

// ToTx returns the link of the most recently inserted transaction
// matching hash, or Terminal if none (§4.5 `to_tx`). Because of the
// hashmap's LIFO chain order, duplicate transactions (the same hash
// across reorged forks) resolve to the newest tx_link.
func (q *Query) ToTx(hash Hash) Link {
	_, link, ok := q.store.Tx.First(hash)
	if !ok {
		return Terminal()
	}
	return link
}

// ToTxs returns the link of the txs record (the block's transaction
// list) for headerLink, or Terminal if the block is unassociated
// (§4.5 `to_txs`).
func (q *Query) ToTxs(headerLink Link) Link {
	_, link, ok := q.store.Txs.First(headerLink)
	if !ok {
		return Terminal()
	}
	return link
}

// ToFilter returns the link of the neutrino compact-filter record for
// headerLink, or Terminal if none (§4.5 `to_filter`).
func (q *Query) ToFilter(headerLink Link) Link {
	_, link, ok := q.store.Neutrino.First(headerLink)
	if !ok {
		return Terminal()
	}
	return link
}

// Header reads the header record at headerLink.
func (q *Query) Header(headerLink Link) (tables.Header, bool) {
	return q.store.Header.Get(headerLink)
}

// Transactions decodes the transaction link list for headerLink, or nil
// if the block is unassociated. The coinbase is always first within the
// returned slice, by construction of whoever called Associate.
func (q *Query) Transactions(headerLink Link) []Link {
	txs, _, ok := q.store.Txs.First(headerLink)
	if !ok {
		return nil
	}
	return txs.Links
}

// Filter decodes the compact filter bytes for headerLink, if present.
func (q *Query) Filter(headerLink Link) ([]byte, bool) {
	n, _, ok := q.store.Neutrino.First(headerLink)
	if !ok {
		return nil, false
	}
	return n.Filter, true
}

// ---- Height -> Link ---------------------------------------------------

// ToCandidate returns the header_link at height h in the candidate
// chain, or Terminal if h is beyond the chain tip (h >= the chain's
// entry count) (§4.5 `to_candidate`).
func (q *Query) ToCandidate(h Height) Link {
	if h == TerminalHeight {
		return Terminal()
	}
	return q.store.Candidate.HeaderAt(int64(h))
}

// ToConfirmed returns the header_link at height h in the confirmed
// chain, or Terminal if h is beyond the chain tip (h >= the chain's
// entry count) (§4.5 `to_confirmed`).
func (q *Query) ToConfirmed(h Height) Link {
	if h == TerminalHeight {
		return Terminal()
	}
	return q.store.Confirmed.HeaderAt(int64(h))
}

// ---- Transaction -> puts ----------------------------------------------

// ToPoints returns the contiguous range of point_links belonging to
// txLink, in input order (§4.5 `to_points`). The range is derived by
// link arithmetic alone (point_fk .. point_fk+count-1); it never walks
// the point hashmap's bucket chains.
func (q *Query) ToPoints(txLink Link) []Link {
	tx, ok := q.store.Tx.Get(txLink)
	if !ok || tx.PointCount == 0 {
		return nil
	}
	links := make([]Link, tx.PointCount)
	for i := uint32(0); i < tx.PointCount; i++ {
		links[i] = tx.PointFK + Link(i)
	}
	return links
}

// ToOutputs returns the output_links belonging to txLink, in output-index
// order (§4.5 `to_outputs`).
func (q *Query) ToOutputs(txLink Link) []Link {
	tx, ok := q.store.Tx.Get(txLink)
	if !ok {
		return nil
	}
	outs, ok := q.store.Outs.Get(tx.OutsFK)
	if !ok {
		return nil
	}
	return outs.Links
}

// resolvePrevout resolves one point's prevout output_link: the prevout
// hash+index is the point's own key; a coinbase point (index ==
// linkkey.NullIndex) has no real prevout and resolves to Terminal
// (§4.6 "coinbase outputs ... return the empty set" applied here to the
// spending side).
func (q *Query) resolvePrevout(pointLink Link) Link {
	outpoint, ok := q.store.Point.KeyAt(pointLink)
	if !ok || outpoint.Index == linkkey.NullIndex {
		return Terminal()
	}
	txLink := q.ToTx(outpoint.Hash)
	if txLink == Terminal() {
		return Terminal()
	}
	outs := q.ToOutputs(txLink)
	if int(outpoint.Index) >= len(outs) {
		return Terminal()
	}
	return outs[outpoint.Index]
}

// ToPrevouts resolves, for every point of txLink, the output_link it
// spends (§4.5 `to_prevouts`). Each point's resolution is independent
// and side-effect-free, so the per-point lookups run concurrently via
// errgroup (§5 "Parallel prevout resolution" is an explicit optimization
// point, not a requirement, but is exercised here since every lookup
// qualifies).
func (q *Query) ToPrevouts(txLink Link) []Link {
	points := q.ToPoints(txLink)
	if len(points) == 0 {
		return nil
	}
	result := make([]Link, len(points))
	var g errgroup.Group
	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			result[i] = q.resolvePrevout(p)
			return nil
		})
	}
	_ = g.Wait() // resolvePrevout never returns an error
	return result
}

// ---- Output -> spenders (reverse) --------------------------------------

// ToSpenders returns every point_link that spends outputLink (§4.6
// `to_spenders`). Coinbase outputs never appear as a point's key (their
// spending input carries linkkey.NullIndex instead of a real prevout
// index) and so the output index lookup below will never match one;
// more directly, an output whose own index cannot be recovered (it is
// not present in its owning tx's outs list) yields the empty set, the
// same guard spec.md describes for the null_index case.
func (q *Query) ToSpenders(outputLink Link) []Link {
	out, ok := q.store.Output.Get(outputLink)
	if !ok {
		return nil
	}
	txHash, ok := q.store.Tx.KeyAt(out.ParentFK)
	if !ok {
		return nil
	}

	outs := q.ToOutputs(out.ParentFK)
	index := linkkey.NullIndex
	for i, l := range outs {
		if l == outputLink {
			index = uint32(i)
			break
		}
	}
	if index == linkkey.NullIndex {
		return nil
	}

	var spenders []Link
	_ = q.store.Point.Find(linkkey.Outpoint{Hash: txHash, Index: index}, func(_ tables.Point, link Link) bool {
		spenders = append(spenders, link)
		return true
	})
	return spenders
}

// ---- Tx -> block --------------------------------------------------------

// ToBlock returns the confirmed block's header_link for txLink, or
// Terminal if the tx has been reorganized out of the strong chain
// (§4.5 `to_block`).
func (q *Query) ToBlock(txLink Link) Link {
	st, _, ok := q.store.StrongTx.First(txLink)
	if !ok || !st.Positive {
		return Terminal()
	}
	return st.HeaderFK
}

// ToStrong returns the block of the first tx_link sharing hash whose
// ToBlock is non-terminal, or Terminal if none (§4.5 `to_strong`;
// duplicates arise from the same hash recurring across reorged forks).
func (q *Query) ToStrong(hash Hash) Link {
	result := Terminal()
	_ = q.store.Tx.Find(hash, func(_ tables.Tx, link Link) bool {
		if b := q.ToBlock(link); b != Terminal() {
			result = b
			return false
		}
		return true
	})
	return result
}

// ---- Enumeration --------------------------------------------------------

// TopHeader returns the head-of-bucket link for the header table.
func (q *Query) TopHeader(bucket uint32) Link { return bucketHead(q.store.Header.BucketHead, bucket) }

// TopPoint returns the head-of-bucket link for the point table.
func (q *Query) TopPoint(bucket uint32) Link { return bucketHead(q.store.Point.BucketHead, bucket) }

// TopTxs returns the head-of-bucket link for the txs table.
func (q *Query) TopTxs(bucket uint32) Link { return bucketHead(q.store.Txs.BucketHead, bucket) }

// TopTx returns the head-of-bucket link for the tx table.
func (q *Query) TopTx(bucket uint32) Link { return bucketHead(q.store.Tx.BucketHead, bucket) }

func bucketHead(fn func(uint32) (Link, error), bucket uint32) Link {
	link, err := fn(bucket)
	if err != nil {
		return Terminal()
	}
	return link
}

// ---- Writing headers/associations ---------------------------------------

// SetHeader inserts a header keyed by hash and registers it as an
// unassociated candidate in the associations container (spec.md §4.7):
// a block learned about but whose transaction set has not yet been
// stored. Associate removes the entry once the txs record is written.
func (q *Query) SetHeader(hash Hash, h tables.Header, ctx assoc.Context) (Link, error) {
	link, err := q.store.Header.Put(hash, h)
	if err != nil {
		return Terminal(), err
	}
	q.store.Assoc.Insert(assoc.Record{Link: link, Hash: hash, Context: ctx})
	return link, nil
}

// Associate writes the txs record for headerLink and removes it from the
// associations container — the block is no longer "unassociated"
// (spec.md §4.6, "Association": "the existence of a transaction-set
// record for a given block header").
func (q *Query) Associate(headerLink Link, hash Hash, txLinks []Link) error {
	if _, err := q.store.Txs.Put(headerLink, tables.Txs{Links: txLinks}); err != nil {
		return err
	}
	q.store.Assoc.Remove(hash)
	return nil
}

// SetFull is SetHeader followed immediately by Associate, for callers
// that already have the full block body in hand.
func (q *Query) SetFull(hash Hash, h tables.Header, ctx assoc.Context, txLinks []Link) (Link, error) {
	link, err := q.SetHeader(hash, h, ctx)
	if err != nil {
		return Terminal(), err
	}
	if err := q.Associate(link, hash, txLinks); err != nil {
		return Terminal(), err
	}
	return link, nil
}

// ---- Chain management -----------------------------------------------------

// Initialize sets the genesis block (full, with its coinbase-only
// transaction list) and pushes it onto both the candidate and confirmed
// chains at height 0 (spec.md §4.6 `initialize`).
func (q *Query) Initialize(hash Hash, genesis tables.Header, ctx assoc.Context, coinbaseTx Link) error {
	link, err := q.SetFull(hash, genesis, ctx, []Link{coinbaseTx})
	if err != nil {
		return err
	}
	if _, err := q.store.Candidate.Push(link); err != nil {
		return err
	}
	if _, err := q.store.Confirmed.Push(link); err != nil {
		return err
	}
	return nil
}

// IsInitialized reports whether both the candidate and confirmed chains
// have at least one entry (§4.6 `is_initialized`).
func (q *Query) IsInitialized() bool {
	return q.store.Candidate.Count() > 0 && q.store.Confirmed.Count() > 0
}

// PushCandidate appends headerLink to the candidate chain at the next
// height, returning that height (§4.6 `push_candidate`).
func (q *Query) PushCandidate(headerLink Link) (Height, error) {
	h, err := q.store.Candidate.Push(headerLink)
	return Height(h), err
}

// PushConfirmed appends headerLink to the confirmed chain at the next
// height, returning that height (§4.6 `push_confirmed`). bypass is
// accepted for interface parity with the original (it gates validation
// a caller performs before confirming, not a storage-layer concern) and
// does not otherwise affect this method's behavior.
func (q *Query) PushConfirmed(headerLink Link, bypass bool) (Height, error) {
	h, err := q.store.Confirmed.Push(headerLink)
	return Height(h), err
}

// PopCandidate removes the candidate chain's tip (§4.6 `pop_candidate`).
func (q *Query) PopCandidate() error { return q.store.Candidate.Pop() }

// PopConfirmed removes the confirmed chain's tip (§4.6 `pop_confirmed`).
func (q *Query) PopConfirmed() error { return q.store.Confirmed.Pop() }

// GetTopCandidate returns the highest present candidate height, or
// TerminalHeight if the chain is empty (§4.6 `get_top_candidate`).
func (q *Query) GetTopCandidate() Height { return topHeight(q.store.Candidate.Count()) }

// GetTopConfirmed returns the highest present confirmed height, or
// TerminalHeight if the chain is empty (§4.6 `get_top_confirmed`).
func (q *Query) GetTopConfirmed() Height { return topHeight(q.store.Confirmed.Count()) }

func topHeight(count int64) Height {
	if count <= 0 {
		return TerminalHeight
	}
	return Height(count - 1)
}

func heightOrNegative(h Height) int64 {
	if h == TerminalHeight {
		return -1
	}
	return int64(h)
}

// GetFork returns the highest height at which the candidate and
// confirmed chains still agree (§4.6 `get_fork`), walking downward from
// min(top_candidate, top_confirmed). If neither chain has any entry in
// common (including the degenerate case where one chain is empty), it
// returns TerminalHeight.
func (q *Query) GetFork() Height {
	tc := heightOrNegative(q.GetTopCandidate())
	tf := heightOrNegative(q.GetTopConfirmed())
	top := tc
	if tf < top {
		top = tf
	}
	for h := top; h >= 0; h-- {
		if q.store.Candidate.HeaderAt(h) == q.store.Confirmed.HeaderAt(h) {
			return Height(h)
		}
	}
	return TerminalHeight
}

// GetTopAssociatedFrom walks the candidate chain upward from h, advancing
// one height at a time for as long as the *next* candidate header has a
// txs record, and returns the height it stops at (§4.6
// `get_top_associated_from`). Boundary cases per spec.md §8:
//   - h == TerminalHeight returns TerminalHeight.
//   - h beyond the current candidate tip returns h unchanged (there is
//     nothing to associate yet, but the request is well-formed).
func (q *Query) GetTopAssociatedFrom(h Height) Height {
	if h == TerminalHeight {
		return TerminalHeight
	}
	top := heightOrNegative(q.GetTopCandidate())
	if int64(h) > top {
		return h
	}
	cur := int64(h)
	for cur < top {
		next := q.store.Candidate.HeaderAt(cur + 1)
		if _, _, ok := q.store.Txs.First(next); !ok {
			break
		}
		cur++
	}
	return Height(cur)
}

// GetTopAssociated is GetTopAssociatedFrom(0) (§4.6).
func (q *Query) GetTopAssociated() Height { return q.GetTopAssociatedFrom(0) }

// GetUnassociatedAbove returns every candidate header above height
// lacking a txs record, ordered by height ascending, truncated to limit
// if limit > 0 (§4.6 `get_unassociated_above`).
func (q *Query) GetUnassociatedAbove(height Height, limit int) []assoc.Record {
	return q.store.Assoc.Above(uint32(height), limit)
}

// GetUnassociatedCountAbove is the counting variant of
// GetUnassociatedAbove, answered from the associations container's
// bitmap without materializing records (§4.6
// `get_unassociated_count_above`).
func (q *Query) GetUnassociatedCountAbove(height Height, limit int) int {
	return q.store.Assoc.CountAbove(uint32(height), limit)
}

// GetUnassociatedCount is the total count of tracked unassociated
// candidate headers.
func (q *Query) GetUnassociatedCount() int { return q.store.Assoc.Len() }

// GetCandidateHashes appends, for each height present in heights (in
// input order), the hash of the candidate header at that height; a
// height beyond the chain tip is silently skipped (§4.6
// `get_candidate_hashes`).
func (q *Query) GetCandidateHashes(heights []Height) []Hash {
	return q.chainHashes(q.store.Candidate, heights)
}

// GetConfirmedHashes is the confirmed-chain counterpart of
// GetCandidateHashes (§4.6 `get_confirmed_hashes`).
func (q *Query) GetConfirmedHashes(heights []Height) []Hash {
	return q.chainHashes(q.store.Confirmed, heights)
}

func (q *Query) chainHashes(chain *tables.HeightTable, heights []Height) []Hash {
	var out []Hash
	for _, h := range heights {
		if h == TerminalHeight {
			continue
		}
		link := chain.HeaderAt(int64(h))
		if link == Terminal() {
			continue
		}
		hash, ok := q.store.Header.KeyAt(link)
		if !ok {
			continue
		}
		out = append(out, hash)
	}
	return out
}
