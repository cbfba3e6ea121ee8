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

import (
	"github.com/c2h5oh/datasize"

	"github.com/erigontech/chainstore/internal/storage"
)

// TableConfig configures one table: its bucket count (hashmap tables
// only) and its body file's initial capacity/growth ratio (spec.md §6 "Configuration":
// "<table>_buckets, <table>_size, <table>_rate").
type TableConfig struct {
	Buckets uint32
	Size    datasize.ByteSize
	Rate    float64
}

func (c TableConfig) storageOptions() storage.Options {
	return storage.Options{
		MinCapacity: int64(c.Size.Bytes()),
		GrowthRatio: c.Rate,
	}
}

func (c TableConfig) normalized(defaultBuckets uint32) TableConfig {
	if c.Buckets == 0 {
		c.Buckets = defaultBuckets
	}
	if c.Size == 0 {
		c.Size = 64 * datasize.MB
	}
	if c.Rate == 0 {
		c.Rate = 1.5
	}
	return c
}

// Config is the directory-wide configuration for a store: one
// TableConfig per logical table, plus the hosting directory path.
// Height tables (candidate, confirmed) have no buckets; their TableConfig
// entries only use Size/Rate.
type Config struct {
	Path string

	Header    TableConfig
	Tx        TableConfig
	Point     TableConfig
	Output    TableConfig
	Outs      TableConfig
	Txs       TableConfig
	StrongTx  TableConfig
	Candidate TableConfig
	Confirmed TableConfig
	Neutrino  TableConfig
}

// Normalized returns a copy of cfg with every zero-valued TableConfig
// field filled with a usable default.
func (cfg Config) Normalized() Config {
	const defaultBuckets = 1 << 20
	cfg.Header = cfg.Header.normalized(defaultBuckets)
	cfg.Tx = cfg.Tx.normalized(defaultBuckets)
	cfg.Point = cfg.Point.normalized(defaultBuckets)
	cfg.Output = cfg.Output.normalized(0)
	cfg.Outs = cfg.Outs.normalized(0)
	cfg.Txs = cfg.Txs.normalized(defaultBuckets)
	cfg.StrongTx = cfg.StrongTx.normalized(defaultBuckets)
	cfg.Candidate = cfg.Candidate.normalized(0)
	cfg.Confirmed = cfg.Confirmed.normalized(0)
	cfg.Neutrino = cfg.Neutrino.normalized(defaultBuckets)
	return cfg
}
