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

// Package aggregator pools confirm_req hash/root pairs per endpoint so a
// burst of requests from one peer is answered once, instead of once per
// request (spec §4.10). Each endpoint gets its own channel_pool; pools are
// kept in a deadline-ordered min-heap (container/heap — no ready-made
// deadline-heap library was found anywhere in the example pack, see
// DESIGN.md) so the background loop always knows which pool is due next
// without scanning.
package aggregator

import (
	"container/heap"
	"sync"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/network/wire"
)

// DefaultSmallDelay is how long a pool waits after its most recent request
// before it is flushed (up to DefaultMaxDelay from its first request),
// giving a short window for more requests from the same endpoint to
// coalesce.
const DefaultSmallDelay = 50 * time.Millisecond

// DefaultMaxDelay is the absolute ceiling on how long any pool is held,
// regardless of how recently a request last arrived.
const DefaultMaxDelay = 300 * time.Millisecond

// DefaultMaxChannelRequests bounds how many (hash, root) pairs one
// endpoint's pool retains; once full, the oldest queued pair is dropped to
// make room for the newest.
const DefaultMaxChannelRequests = 1024

// Channel is the transport-facing abstraction requests arrive on and
// aggregated replies are sent to.
type Channel interface {
	Endpoint() string
}

// Dispatcher is invoked once per flushed pool with its deduplicated,
// capped set of pending (hash, root) pairs. Cache lookup and vote
// generation for uncached hashes happen on the caller's side (vote/cache,
// vote/generator) — this package only owns the pooling and timing.
type Dispatcher func(channel Channel, pairs []wire.HashRootPair)

// Aggregator pools and times out per-endpoint confirm_req batches.
type Aggregator struct {
	smallDelay         time.Duration
	maxDelay           time.Duration
	maxChannelRequests int
	dispatch           Dispatcher

	mu      sync.Mutex
	byEndpoint map[string]*pool
	byDeadline poolHeap

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

type pool struct {
	channel  Channel
	pairs    []wire.HashRootPair
	seen     map[common.Hash]bool
	start    time.Time
	deadline time.Time
	index    int
}

type poolHeap []*pool

func (h poolHeap) Len() int            { return len(h) }
func (h poolHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h poolHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *poolHeap) Push(x interface{}) { p := x.(*pool); p.index = len(*h); *h = append(*h, p) }
func (h *poolHeap) Pop() interface{} {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}

// Config bundles an Aggregator's tunables and its dispatch callback.
type Config struct {
	SmallDelay         time.Duration
	MaxDelay           time.Duration
	MaxChannelRequests int
	Dispatcher         Dispatcher
}

func New(cfg Config) *Aggregator {
	small := cfg.SmallDelay
	if small <= 0 {
		small = DefaultSmallDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	maxReq := cfg.MaxChannelRequests
	if maxReq <= 0 {
		maxReq = DefaultMaxChannelRequests
	}
	return &Aggregator{
		smallDelay:         small,
		maxDelay:           maxDelay,
		maxChannelRequests: maxReq,
		dispatch:           cfg.Dispatcher,
		byEndpoint:         make(map[string]*pool),
		wake:               make(chan struct{}, 1),
		stop:               make(chan struct{}),
		done:               make(chan struct{}),
	}
}

// Add records a new confirm_req from channel, deduplicating against
// whatever that endpoint's pool already holds and dropping the oldest
// pending pair if the pool is already at capacity.
func (a *Aggregator) Add(channel Channel, pairs []wire.HashRootPair) {
	now := time.Now()
	a.mu.Lock()
	p, ok := a.byEndpoint[channel.Endpoint()]
	if !ok {
		p = &pool{
			channel:  channel,
			seen:     make(map[common.Hash]bool),
			start:    now,
			deadline: now.Add(a.smallDelay),
		}
		a.byEndpoint[channel.Endpoint()] = p
		heap.Push(&a.byDeadline, p)
	} else {
		// keep only the newest channel reference for this endpoint, and
		// cap how long a continuously-refreshed pool can be held open.
		p.channel = channel
		extended := now.Add(a.smallDelay)
		ceiling := p.start.Add(a.maxDelay)
		if extended.After(ceiling) {
			extended = ceiling
		}
		if extended.After(p.deadline) {
			p.deadline = extended
			heap.Fix(&a.byDeadline, p.index)
		}
	}

	for _, pr := range pairs {
		if p.seen[pr.Hash] {
			continue
		}
		if len(p.pairs) >= a.maxChannelRequests {
			a.dropOldestLocked(p)
		}
		p.seen[pr.Hash] = true
		p.pairs = append(p.pairs, pr)
	}
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *Aggregator) dropOldestLocked(p *pool) {
	if len(p.pairs) == 0 {
		return
	}
	delete(p.seen, p.pairs[0].Hash)
	p.pairs = p.pairs[1:]
}

// Size reports how many endpoint pools are currently queued.
func (a *Aggregator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byEndpoint)
}

// Run drains due pools, invoking the dispatcher for each, until Stop is
// called.
func (a *Aggregator) Run() {
	defer close(a.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		a.mu.Lock()
		var wait time.Duration
		if a.byDeadline.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(a.byDeadline[0].deadline)
			if wait < 0 {
				wait = 0
			}
		}
		a.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-a.stop:
			return
		case <-a.wake:
			continue
		case <-timer.C:
			a.flushDue()
		}
	}
}

func (a *Aggregator) flushDue() {
	now := time.Now()
	var due []*pool
	a.mu.Lock()
	for a.byDeadline.Len() > 0 && !a.byDeadline[0].deadline.After(now) {
		p := heap.Pop(&a.byDeadline).(*pool)
		delete(a.byEndpoint, p.channel.Endpoint())
		due = append(due, p)
	}
	a.mu.Unlock()

	for _, p := range due {
		if a.dispatch != nil {
			a.dispatch(p.channel, p.pairs)
		}
	}
}

// Stop signals Run to exit and waits for it to return.
func (a *Aggregator) Stop() {
	close(a.stop)
	<-a.done
}
