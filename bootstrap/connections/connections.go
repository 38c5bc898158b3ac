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

// Package connections pools outbound bootstrap client connections and the
// pull queue they drain (spec §4.11), grounded on
// original_source/futurehead/node/bootstrap/bootstrap_connections.hpp.
package connections

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
)

// DefaultMinConnections and DefaultMaxConnections bound how many
// connections the pool tries to keep open.
const (
	DefaultMinConnections = 2
	DefaultMaxConnections = 32
)

// Client is one pooled outbound connection; Dialer constructs new ones.
type Client interface {
	Endpoint() string
	Close()
}

// Dialer opens a new Client connection.
type Dialer func() (Client, error)

// Pool manages idle bootstrap client connections and the queue of pulls
// waiting to be served by one.
type Pool struct {
	dial Dialer

	minConnections int
	maxConnections int

	mu    sync.Mutex
	idle  deque.Deque[Client]
	count int
	pulls deque.Deque[attempt.PullInfo]
}

// Config bundles a Pool's tunables.
type Config struct {
	Dialer         Dialer
	MinConnections int
	MaxConnections int
}

func New(cfg Config) *Pool {
	min := cfg.MinConnections
	if min <= 0 {
		min = DefaultMinConnections
	}
	max := cfg.MaxConnections
	if max <= 0 {
		max = DefaultMaxConnections
	}
	return &Pool{dial: cfg.Dialer, minConnections: min, maxConnections: max}
}

// TargetConnections computes how many connections the pool should try to
// maintain given how many pulls remain and how many attempts are
// concurrently active. More outstanding work (and fewer attempts sharing
// the pool) pushes the target toward maxConnections; an attempt nearing
// completion relaxes back toward minConnections. This mirrors
// bootstrap_connections.hpp's target_connections without its exact
// constant weights, which were not present in the retrieval pack (only
// the header was) — see DESIGN.md.
func (p *Pool) TargetConnections(pullsRemaining, attemptsCount int) int {
	if attemptsCount < 1 {
		attemptsCount = 1
	}
	target := p.minConnections
	if pullsRemaining > 0 {
		// roughly one connection per 2 outstanding pulls, divided across
		// concurrently running attempts so they share the pool fairly.
		target = (pullsRemaining/2 + attemptsCount - 1) / attemptsCount
		if target < p.minConnections {
			target = p.minConnections
		}
	}
	if target > p.maxConnections {
		target = p.maxConnections
	}
	return target
}

// AddPull enqueues a pull to be served once a connection is available.
func (p *Pool) AddPull(pull attempt.PullInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pulls.PushBack(pull)
}

// RequeuePull puts pull back on the queue after a failed attempt,
// incrementing its attempt counter; callers should drop the pull instead
// once PullInfo.Exhausted reports true.
func (p *Pool) RequeuePull(pull attempt.PullInfo, networkError bool) {
	pull.Attempts++
	p.mu.Lock()
	defer p.mu.Unlock()
	if networkError {
		p.pulls.PushBack(pull)
	} else {
		p.pulls.PushFront(pull)
	}
}

// NextPull pops the next pull to serve, if any.
func (p *Pool) NextPull() (attempt.PullInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pulls.Len() == 0 {
		return attempt.PullInfo{}, false
	}
	return p.pulls.PopFront(), true
}

// PullsRemaining reports the current pull queue depth.
func (p *Pool) PullsRemaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulls.Len()
}

// ClearPulls discards every queued pull belonging to bootstrapID, used
// when an attempt is abandoned; pulls of other attempts stay queued.
func (p *Pool) ClearPulls(bootstrapID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var kept deque.Deque[attempt.PullInfo]
	for p.pulls.Len() > 0 {
		pull := p.pulls.PopFront()
		if pull.BootstrapID != bootstrapID {
			kept.PushBack(pull)
		}
	}
	p.pulls = kept
}

// Connection returns an idle client if one is available, else dials a new
// one if the pool has room under maxConnections.
func (p *Pool) Connection() (Client, error) {
	p.mu.Lock()
	if p.idle.Len() > 0 {
		c := p.idle.PopFront()
		p.mu.Unlock()
		return c, nil
	}
	if p.count >= p.maxConnections {
		p.mu.Unlock()
		return nil, nil
	}
	p.count++
	p.mu.Unlock()

	c, err := p.dial()
	if err != nil {
		p.mu.Lock()
		p.count--
		p.mu.Unlock()
		return nil, err
	}
	return c, nil
}

// PoolConnection returns client to the idle pool for reuse, or closes it
// if reusable is false (the connection errored and should not be
// reused).
func (p *Pool) PoolConnection(c Client, reusable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !reusable {
		p.count--
		c.Close()
		return
	}
	p.idle.PushBack(c)
}

// ConnectionsCount reports how many connections (idle + in use) the pool
// currently holds.
func (p *Pool) ConnectionsCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
