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

// Package tables holds the concrete per-table record schemas. spec.md
// names these only as illustration of the primitive layer's invariants
// (Non-goal: "concrete per-table schemas ... beyond their record shapes
// used to illustrate invariants"); the shapes below are the minimal ones
// needed to exercise every navigation in the query package.
package tables

import (
	"github.com/erigontech/chainstore/internal/linkkey"
)

// LinkBytes is the link width used uniformly across every table in this
// repository (DESIGN.md Open Question 4).
const LinkBytes = 4

func putLink(buf []byte, l linkkey.Link) { l.PutLE(buf, LinkBytes) }

func getLink(buf []byte) linkkey.Link { return linkkey.LinkLE(buf, LinkBytes) }

// Terminal is the sentinel link for the uniform LinkBytes width.
func Terminal() linkkey.Link { return linkkey.TerminalFor(LinkBytes) }
