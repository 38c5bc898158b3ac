// Copyright 2024 The vaultchain Authors
// This file is part of the vaultchain library.
//
// The vaultchain library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The vaultchain library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the vaultchain library. If not, see <http://www.gnu.org/licenses/>.

// Package bulkpush pushes blocks the legacy attempt discovered it has that
// the peer is missing (spec §4.11), grounded on
// original_source/futurehead/node/bootstrap/bootstrap_bulk_push.hpp. Unlike
// bulk_pull, this is driven entirely by a local target queue rather than a
// server-provided stream: the client walks each target chain backward from
// Start down to (but excluding) End, then pushes those blocks oldest first.
package bulkpush

import (
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/store"
)

// Target is one chain segment, identified by its newest block's hash
// (Start) and the hash the peer already has (End; push everything after it).
type Target struct {
	Start common.Hash
	End   common.Hash
}

// Sender transmits one outgoing block to the peer.
type Sender interface {
	SendBlock(block types.Block) error
}

// Client pushes every target's chain segment to the peer, in the order
// added, oldest-to-newest within each segment.
type Client struct {
	db      store.Store
	sender  Sender
	targets []Target
}

// NewClient constructs a push Client over already-discovered targets.
func NewClient(db store.Store, sender Sender, targets []Target) *Client {
	return &Client{db: db, sender: sender, targets: append([]Target(nil), targets...)}
}

// Run pushes every queued target's blocks, returning the total pushed.
func (c *Client) Run() (uint64, error) {
	var total uint64
	for _, t := range c.targets {
		n, err := c.pushTarget(t)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Client) pushTarget(t Target) (uint64, error) {
	// walk backward from Start to End, collecting hashes, then push
	// forward so the peer always receives a block before its children.
	var chain []common.Hash
	cur := t.Start
	txn := c.db.TxBeginRead()
	for !cur.IsZero() && cur != t.End {
		blk, ok := txn.Blocks().Get(cur)
		if !ok {
			break
		}
		chain = append(chain, cur)
		cur = blk.Previous()
	}
	defer txn.Rollback()

	var pushed uint64
	for i := len(chain) - 1; i >= 0; i-- {
		blk, ok := txn.Blocks().Get(chain[i])
		if !ok {
			continue
		}
		if err := c.sender.SendBlock(blk); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}
