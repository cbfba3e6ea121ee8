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

package store

// Event identifies a store lifecycle milestone (spec.md §6 "Events").
type Event int

const (
	EventCreateStart Event = iota
	EventCreateTable
	EventLoad
	EventRecover
	EventBackup
	EventUnload
)

func (e Event) String() string {
	switch e {
	case EventCreateStart:
		return "create_start"
	case EventCreateTable:
		return "create_table"
	case EventLoad:
		return "load"
	case EventRecover:
		return "recover"
	case EventBackup:
		return "backup"
	case EventUnload:
		return "unload"
	default:
		return "unknown"
	}
}

// Table names one of the store's logical tables.
type Table string

const (
	TableHeader    Table = "header"
	TableTx        Table = "tx"
	TablePoint     Table = "point"
	TableOutput    Table = "output"
	TableOuts      Table = "outs"
	TableTxs       Table = "txs"
	TableStrongTx  Table = "strong_tx"
	TableCandidate Table = "candidate"
	TableConfirmed Table = "confirmed"
	TableNeutrino  Table = "neutrino"
)

// Handler is invoked at significant lifecycle points. It must be
// non-throwing and fast; the store does not buffer events (spec.md §6).
type Handler func(event Event, table Table)

func nopHandler(Event, Table) {}
