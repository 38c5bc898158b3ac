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

// Package bulkpull drives both sides of a bulk_pull exchange (spec §4.11),
// grounded on
// original_source/futurehead/node/bootstrap/bootstrap_bulk_pull.hpp's
// bulk_pull_client/bulk_pull_server pair. The client walks blocks returned
// for one pull.PullInfo, verifying they chain correctly back to front;
// the server streams an account's chain within (start, end] to whatever
// peer requested it, rate-limited by internal/ratelimit.
package bulkpull

import (
	"errors"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/ratelimit"
	"github.com/vaultchain/vaultchain/store"
)

// ErrUnexpectedBlock is returned by Client.Receive when a delivered block
// does not chain back to the previously received one.
var ErrUnexpectedBlock = errors.New("bulkpull: block does not chain to the expected hash")

// Transport is the client's view of the connection: Next returns the next
// block in the stream, or ok=false once the server signals completion.
type Transport interface {
	Next() (types.Block, bool, error)
}

// Sink accepts a block pulled from the network for ledger processing
// (normally core/blockproc.Processor.Force).
type Sink func(block types.Block)

// Client drives one pull to completion over Transport, verifying the
// chain links front-to-back as blocks arrive (the server streams newest
// to oldest, i.e. from pull.Head down to pull.End).
type Client struct {
	transport Transport
	sink      Sink
	pull      attempt.PullInfo
	expected  common.Hash
	pulled    uint64
}

// NewClient constructs a Client for one pull. The first block received is
// expected to have hash equal to pull.Head.
func NewClient(transport Transport, sink Sink, pull attempt.PullInfo) *Client {
	return &Client{transport: transport, sink: sink, pull: pull, expected: pull.Head}
}

// Run consumes the stream until the transport reports completion or an
// unexpected block breaks the chain, returning the number of blocks
// forwarded to the sink.
func (c *Client) Run() (uint64, error) {
	for {
		blk, ok, err := c.transport.Next()
		if err != nil {
			return c.pulled, err
		}
		if !ok {
			return c.pulled, nil
		}
		if blk.Hash() != c.expected {
			return c.pulled, ErrUnexpectedBlock
		}
		c.sink(blk)
		c.pulled++
		if blk.Hash() == c.pull.End || blk.Previous().IsZero() {
			return c.pulled, nil
		}
		c.expected = blk.Previous()
	}
}

// Server streams one account's chain from its current head down to (and
// including) end, oldest-last, exactly as the client above expects.
type Server struct {
	db      store.Store
	limiter *ratelimit.Bucket

	account    common.Hash
	end        common.Hash
	maxCount   uint64
	sentCount  uint64
	current    common.Hash
	includeEnd bool
}

// NewServer constructs a Server that will stream account's chain from head
// down through (and including, if includeEnd) end, at most maxCount
// blocks, rate-limited by limiter.
func NewServer(db store.Store, limiter *ratelimit.Bucket, account common.Hash, head, end common.Hash, maxCount uint64, includeEnd bool) *Server {
	return &Server{db: db, limiter: limiter, account: account, end: end, maxCount: maxCount, current: head, includeEnd: includeEnd}
}

// Next returns the next block to send, or ok=false once the chain has been
// fully streamed, the count cap is reached, or the rate limiter is
// exhausted (ErrRateLimited).
var ErrRateLimited = errors.New("bulkpull: server rate limit exceeded")

func (s *Server) Next() (types.Block, bool, error) {
	if s.current.IsZero() || (s.maxCount != 0 && s.sentCount >= s.maxCount) {
		return nil, false, nil
	}
	if s.current == s.end && s.sentCount > 0 && !s.includeEnd {
		return nil, false, nil
	}
	if s.limiter != nil && !s.limiter.TryConsume(1) {
		return nil, false, ErrRateLimited
	}

	txn := s.db.TxBeginRead()
	blk, ok := txn.Blocks().Get(s.current)
	txn.Rollback()
	if !ok {
		return nil, false, nil
	}

	sent := blk
	s.sentCount++
	if s.current == s.end {
		s.current = common.ZeroHash
	} else {
		s.current = blk.Previous()
	}
	return sent, true, nil
}
