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

// Package store owns one primitive instance per logical table, the
// directory-wide process/flush locks, and the lifecycle operations that
// sit above them (spec.md §3.4, §6). The query package is built on top
// of a *Store; store itself knows nothing about navigation.
package store

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/erigontech/chainstore/assoc"
	"github.com/erigontech/chainstore/dberr"
	"github.com/erigontech/chainstore/internal/fileutil"
	"github.com/erigontech/chainstore/internal/filelock"
	"github.com/erigontech/chainstore/tables"
)

const (
	flushLockName   = "flush.lock"
	processLockName = "process.lock"
)

// Store owns every table file pair plus the directory-wide locks.
type Store struct {
	cfg    Config
	logger *zap.Logger
	events Handler

	processLock *filelock.ProcessLock
	flushLock   *filelock.FlushLock

	Header    *tables.HeaderTable
	Tx        *tables.TxTable
	Point     *tables.PointTable
	Output    *tables.OutputTable
	Outs      *tables.OutsTable
	Txs       *tables.TxsTable
	StrongTx  *tables.StrongTxTable
	Candidate *tables.HeightTable
	Confirmed *tables.HeightTable
	Neutrino  *tables.NeutrinoTable

	Assoc *assoc.Container

	closed atomic.Bool
}

func normalizeDeps(logger *zap.Logger, events Handler) (*zap.Logger, Handler) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = nopHandler
	}
	return logger, events
}

// Create initializes a brand-new store directory: process lock, flush
// lock, and every table file pair, all zeroed (spec.md §3.4 "create").
func Create(cfg Config, logger *zap.Logger, events Handler) (*Store, error) {
	cfg = cfg.Normalized()
	logger, events = normalizeDeps(logger, events)

	if err := fileutil.CreateDirectory(cfg.Path); err != nil {
		return nil, err
	}

	processLock := filelock.NewProcessLock(joinPath(cfg.Path, processLockName))
	if err := processLock.TryLock(); err != nil {
		return nil, err
	}

	flushLock := filelock.NewFlushLock(joinPath(cfg.Path, flushLockName))
	if !flushLock.Create() {
		_ = processLock.Unlock()
		return nil, dberr.New(dberr.LockFailure, nil)
	}

	events(EventCreateStart, "")
	logger.Info("creating store", zap.String("path", cfg.Path))

	s := &Store{cfg: cfg, logger: logger, events: events, processLock: processLock, flushLock: flushLock, Assoc: assoc.New()}

	type creator struct {
		table Table
		fn    func() error
	}
	creators := []creator{
		{TableHeader, func() (err error) { s.Header, err = tables.CreateHeaderTable(cfg.Path, cfg.Header.Buckets, cfg.Header.storageOptions()); return }},
		{TableTx, func() (err error) { s.Tx, err = tables.CreateTxTable(cfg.Path, cfg.Tx.Buckets, cfg.Tx.storageOptions()); return }},
		{TablePoint, func() (err error) { s.Point, err = tables.CreatePointTable(cfg.Path, cfg.Point.Buckets, cfg.Point.storageOptions()); return }},
		{TableOutput, func() (err error) { s.Output, err = tables.CreateOutputTable(cfg.Path, cfg.Output.storageOptions()); return }},
		{TableOuts, func() (err error) { s.Outs, err = tables.CreateOutsTable(cfg.Path, cfg.Outs.storageOptions()); return }},
		{TableTxs, func() (err error) { s.Txs, err = tables.CreateTxsTable(cfg.Path, cfg.Txs.Buckets, cfg.Txs.storageOptions()); return }},
		{TableStrongTx, func() (err error) { s.StrongTx, err = tables.CreateStrongTxTable(cfg.Path, cfg.StrongTx.Buckets, cfg.StrongTx.storageOptions()); return }},
		{TableCandidate, func() (err error) { s.Candidate, err = tables.CreateHeightTable(cfg.Path, "candidate", cfg.Candidate.storageOptions()); return }},
		{TableConfirmed, func() (err error) { s.Confirmed, err = tables.CreateHeightTable(cfg.Path, "confirmed", cfg.Confirmed.storageOptions()); return }},
		{TableNeutrino, func() (err error) { s.Neutrino, err = tables.CreateNeutrinoTable(cfg.Path, cfg.Neutrino.Buckets, cfg.Neutrino.storageOptions()); return }},
	}
	for _, c := range creators {
		if err := c.fn(); err != nil {
			logger.Error("create table failed", zap.String("table", string(c.table)), zap.Error(err))
			return nil, err
		}
		events(EventCreateTable, c.table)
	}

	return s, nil
}

// Open maps an existing store directory, running crash recovery on
// every table if flush.lock is present (spec.md §3.4 "open", §6
// "Presence of flush.lock at startup means prior crash").
func Open(cfg Config, logger *zap.Logger, events Handler) (*Store, error) {
	cfg = cfg.Normalized()
	logger, events = normalizeDeps(logger, events)

	if !fileutil.IsDirectory(cfg.Path) {
		return nil, dberr.New(dberr.FileOpen, nil)
	}

	processLock := filelock.NewProcessLock(joinPath(cfg.Path, processLockName))
	if err := processLock.TryLock(); err != nil {
		return nil, err
	}

	flushLock := filelock.NewFlushLock(joinPath(cfg.Path, flushLockName))
	crashed := flushLock.Exists()
	if crashed {
		logger.Warn("flush lock present at open, recovering", zap.String("path", cfg.Path))
		events(EventRecover, "")
	} else if !flushLock.Create() {
		_ = processLock.Unlock()
		return nil, dberr.New(dberr.LockFailure, nil)
	}

	s := &Store{cfg: cfg, logger: logger, events: events, processLock: processLock, flushLock: flushLock, Assoc: assoc.New()}

	type opener struct {
		table   Table
		open    func() error
		restore func() error
	}
	var openers []opener
	openers = append(openers,
		opener{TableHeader, func() (err error) { s.Header, err = tables.OpenHeaderTable(cfg.Path, cfg.Header.Buckets, cfg.Header.storageOptions()); return }, func() error { return s.Header.Restore() }},
		opener{TableTx, func() (err error) { s.Tx, err = tables.OpenTxTable(cfg.Path, cfg.Tx.Buckets, cfg.Tx.storageOptions()); return }, func() error { return s.Tx.Restore() }},
		opener{TablePoint, func() (err error) { s.Point, err = tables.OpenPointTable(cfg.Path, cfg.Point.Buckets, cfg.Point.storageOptions()); return }, func() error { return s.Point.Restore() }},
		opener{TableOutput, func() (err error) { s.Output, err = tables.OpenOutputTable(cfg.Path, cfg.Output.storageOptions()); return }, func() error { return s.Output.Restore() }},
		opener{TableOuts, func() (err error) { s.Outs, err = tables.OpenOutsTable(cfg.Path, cfg.Outs.storageOptions()); return }, func() error { return s.Outs.Restore() }},
		opener{TableTxs, func() (err error) { s.Txs, err = tables.OpenTxsTable(cfg.Path, cfg.Txs.Buckets, cfg.Txs.storageOptions()); return }, func() error { return s.Txs.Restore() }},
		opener{TableStrongTx, func() (err error) { s.StrongTx, err = tables.OpenStrongTxTable(cfg.Path, cfg.StrongTx.Buckets, cfg.StrongTx.storageOptions()); return }, func() error { return s.StrongTx.Restore() }},
		opener{TableCandidate, func() (err error) { s.Candidate, err = tables.OpenHeightTable(cfg.Path, "candidate", cfg.Candidate.storageOptions()); return }, func() error { return s.Candidate.Restore() }},
		opener{TableConfirmed, func() (err error) { s.Confirmed, err = tables.OpenHeightTable(cfg.Path, "confirmed", cfg.Confirmed.storageOptions()); return }, func() error { return s.Confirmed.Restore() }},
		opener{TableNeutrino, func() (err error) { s.Neutrino, err = tables.OpenNeutrinoTable(cfg.Path, cfg.Neutrino.Buckets, cfg.Neutrino.storageOptions()); return }, func() error { return s.Neutrino.Restore() }},
	)

	for _, o := range openers {
		if err := o.open(); err != nil {
			logger.Error("open table failed", zap.String("table", string(o.table)), zap.Error(err))
			return nil, err
		}
		if crashed {
			if err := o.restore(); err != nil {
				logger.Error("restore table failed", zap.String("table", string(o.table)), zap.Error(err))
				return nil, err
			}
		}
	}

	events(EventLoad, "")
	logger.Info("store loaded", zap.String("path", cfg.Path), zap.Bool("recovered", crashed))
	return s, nil
}

// Backup flushes every table and records its logical size into its head
// (spec.md §3.4 "backup"), without releasing any lock.
func (s *Store) Backup() error {
	tabs := []struct {
		table Table
		fn    func() error
	}{
		{TableHeader, s.Header.Backup},
		{TableTx, s.Tx.Backup},
		{TablePoint, s.Point.Backup},
		{TableOutput, s.Output.Backup},
		{TableOuts, s.Outs.Backup},
		{TableTxs, s.Txs.Backup},
		{TableStrongTx, s.StrongTx.Backup},
		{TableCandidate, s.Candidate.Backup},
		{TableConfirmed, s.Confirmed.Backup},
		{TableNeutrino, s.Neutrino.Backup},
	}
	for _, t := range tabs {
		if err := t.fn(); err != nil {
			s.logger.Error("backup table failed", zap.String("table", string(t.table)), zap.Error(err))
			return err
		}
	}
	s.events(EventBackup, "")
	return nil
}

// Close backs up every table, unmaps them, destroys the flush lock
// (signaling a clean shutdown), and releases the process lock
// (spec.md §3.4 "close").
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return dberr.New(dberr.ShutdownInProgress, nil)
	}

	closers := []func() error{
		s.Header.Close, s.Tx.Close, s.Point.Close, s.Output.Close, s.Outs.Close,
		s.Txs.Close, s.StrongTx.Close, s.Candidate.Close, s.Confirmed.Close, s.Neutrino.Close,
	}
	var firstErr error
	for _, c := range closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		s.logger.Error("close encountered table error", zap.Error(firstErr))
		return firstErr
	}

	if !s.flushLock.Destroy() {
		return dberr.New(dberr.LockFailure, nil)
	}
	if err := s.processLock.Unlock(); err != nil {
		return err
	}
	s.events(EventUnload, "")
	s.logger.Info("store closed", zap.String("path", s.cfg.Path))
	return nil
}

// Fault returns the first sticky fault observed by any table, or
// dberr.Success if none.
func (s *Store) Fault() dberr.Code {
	tabs := []interface{ Fault() dberr.Code }{
		s.Header, s.Tx, s.Point, s.Output, s.Outs, s.Txs, s.StrongTx, s.Candidate, s.Confirmed, s.Neutrino,
	}
	for _, t := range tabs {
		if c := t.Fault(); c != dberr.Success {
			return c
		}
	}
	return dberr.Success
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	if dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}
