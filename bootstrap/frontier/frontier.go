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

// Package frontier drives both sides of a frontier_req exchange (spec
// §4.11), grounded on
// original_source/futurehead/node/bootstrap/bootstrap_frontier.hpp's
// frontier_req_client/frontier_req_server pair. The client compares each
// (account, frontier-hash) the peer reports against the local ledger: an
// account we don't know about becomes a legacy pull target; an account the
// peer reports with a zero frontier becomes a bulk_push target so the peer
// catches up from us; an account whose heads differ becomes both.
package frontier

import (
	"errors"
	"sort"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
	"github.com/vaultchain/vaultchain/bootstrap/bulkpush"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/network/wire"
	"github.com/vaultchain/vaultchain/store"
)

// sizeFrontier mirrors frontier_req_client::size_frontier: the wire size of
// one (account, frontier-hash) pair, used to size the estimated push cost.
const sizeFrontier = common.HashLength * 2

// Transport is the client's view of the connection: Next returns the next
// (account, frontier) pair, or ok=false once the server sends the
// terminating zero/zero pair.
type Transport interface {
	Next() (wire.FrontierPair, bool, error)
}

// Ledger answers what the local node already knows about an account.
type Ledger interface {
	Head(account common.Account) (common.Hash, bool)
}

// ErrUnexpectedEnd is returned when the transport closes before the
// terminating zero/zero pair arrives.
var ErrUnexpectedEnd = errors.New("frontier: transport closed before the terminating pair")

// Client runs one frontier_req exchange to completion, classifying every
// reported account as either a legacy pull target (we're behind) or a
// bulk_push target (the peer is behind).
type Client struct {
	transport Transport
	ledger    Ledger
	legacy    *attempt.Legacy

	count        uint64
	bulkPushCost uint64
	pushTargets  []bulkpush.Target
}

// NewClient constructs a Client that classifies frontiers against ledger
// and queues pull work onto legacy.
func NewClient(transport Transport, ledger Ledger, legacy *attempt.Legacy) *Client {
	return &Client{transport: transport, ledger: ledger, legacy: legacy}
}

// Run consumes the stream until the terminating pair, or an error. It
// returns the number of frontier pairs classified.
func (c *Client) Run() (uint64, error) {
	for {
		pair, ok, err := c.transport.Next()
		if err != nil {
			return c.count, err
		}
		if !ok {
			return c.count, ErrUnexpectedEnd
		}
		if pair.Account.IsZero() {
			return c.count, nil
		}
		c.count++
		c.classify(pair)
	}
}

// PushTargets returns the bulk_push targets accumulated for accounts where
// the local ledger is ahead of what the peer reported.
func (c *Client) PushTargets() []bulkpush.Target {
	return append([]bulkpush.Target(nil), c.pushTargets...)
}

// BulkPushCost is a rough estimate (in frontier-pair-sized units) of the
// cost of bulk_push'ing every account queued in PushTargets.
func (c *Client) BulkPushCost() uint64 {
	return c.bulkPushCost
}

func (c *Client) classify(pair wire.FrontierPair) {
	localHead, known := c.ledger.Head(pair.Account)
	switch {
	case !known:
		// the peer has an account we've never seen: pull it whole.
		c.legacy.AddFrontier(attempt.NewPullInfo(common.Hash(pair.Account), pair.Head, common.ZeroHash, c.legacy.ID, attempt.DefaultRetryLimit))
	case pair.Head.IsZero():
		// the peer doesn't have this account at all: push our whole chain.
		c.unsynced(localHead, common.ZeroHash)
	case localHead != pair.Head:
		// both sides know the account but disagree on its head: pull
		// forward from the peer's frontier, and if we're also ahead of
		// it, push the segment the peer is missing.
		c.legacy.AddFrontier(attempt.NewPullInfo(common.Hash(pair.Account), pair.Head, localHead, c.legacy.ID, attempt.DefaultRetryLimit))
		c.unsynced(localHead, pair.Head)
	}
}

// unsynced queues a bulk_push of the local chain from head back to (but
// excluding) end, and bumps the rough push-cost estimate.
func (c *Client) unsynced(head, end common.Hash) {
	c.pushTargets = append(c.pushTargets, bulkpush.Target{Start: head, End: end})
	c.bulkPushCost += sizeFrontier
}

// Server streams every account's (account, frontier-hash) pair from the
// local ledger, in ascending account-key order, starting at StartAccount, capped at
// Count (0 means unbounded), terminated by a zero/zero pair.
type Server struct {
	pairs []wire.FrontierPair
	i     int
}

// NewServer snapshots db's account table (via a single read transaction)
// into the ordered stream the request asked for.
func NewServer(db store.Store, req wire.FrontierReq) *Server {
	txn := db.TxBeginRead()
	defer txn.Rollback()

	var all []wire.FrontierPair
	txn.Accounts().Iterate(func(acct common.Account, info types.AccountInfo) bool {
		all = append(all, wire.FrontierPair{Account: acct, Head: info.Head})
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		return lessAccount(all[i].Account, all[j].Account)
	})

	start := 0
	for start < len(all) && lessAccount(all[start].Account, req.StartAccount) {
		start++
	}
	all = all[start:]
	if req.Count != 0 && uint32(len(all)) > req.Count {
		all = all[:req.Count]
	}
	return &Server{pairs: all}
}

func lessAccount(a, b common.Account) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Next returns the next frontier pair, the terminating zero pair once the
// stream is exhausted, and ok=false only after the terminator has been
// returned.
func (s *Server) Next() (wire.FrontierPair, bool, error) {
	if s.i > len(s.pairs) {
		return wire.FrontierPair{}, false, nil
	}
	if s.i == len(s.pairs) {
		s.i++
		return wire.FrontierPair{}, true, nil
	}
	pair := s.pairs[s.i]
	s.i++
	return pair, true, nil
}
