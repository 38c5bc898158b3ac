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

// Package gapcache tracks missing-block hashes and the distinct voters seen
// for them, triggering a deferred bootstrap once the combined vote weight
// crosses a threshold (spec §4.12).
package gapcache

import (
	"container/list"
	"sync"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/internal/alarm"
)

const (
	MaxEntries             = 256
	BootstrapDeferDelay    = 200 * time.Millisecond
	BootstrapFractionNumerator = 32
)

// OnlineStaker supplies the current trended online voting weight.
type OnlineStaker interface {
	OnlineStake() common.Amount
}

// WeightLookup supplies a voting account's delegated weight.
type WeightLookup interface {
	Weight(common.Account) common.Amount
}

// BlockExists reports whether hash is already present in the ledger, used
// to cancel a scheduled bootstrap that raced with normal block processing.
type BlockExists func(common.Hash) bool

type entry struct {
	hash        common.Hash
	arrival     time.Time
	voters      map[common.Account]struct{}
	tally       common.Amount
	bootstrapStarted bool
	elem        *list.Element // position in the arrival LRU
}

// Cache is the size-capped, LRU-by-arrival gap tracker.
type Cache struct {
	mu       sync.Mutex
	byHash   map[common.Hash]*entry
	arrival  *list.List // front = oldest

	online  OnlineStaker
	weights WeightLookup
	alarm   *alarm.Alarm
	exists  BlockExists

	lazyBootstrapEnabled bool
	bootstrap            func(common.Hash)
}

// Config bundles a Cache's collaborators.
type Config struct {
	Online               OnlineStaker
	Weights              WeightLookup
	Alarm                *alarm.Alarm
	Exists               BlockExists
	LazyBootstrapEnabled bool
	StartBootstrap       func(common.Hash)
}

func New(cfg Config) *Cache {
	return &Cache{
		byHash:               make(map[common.Hash]*entry),
		arrival:              list.New(),
		online:               cfg.Online,
		weights:              cfg.Weights,
		alarm:                cfg.Alarm,
		exists:               cfg.Exists,
		lazyBootstrapEnabled: cfg.LazyBootstrapEnabled,
		bootstrap:            cfg.StartBootstrap,
	}
}

// Add registers a gap for hash if not already tracked, evicting the oldest
// entry if the cache is at capacity.
func (c *Cache) Add(hash common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(hash)
}

func (c *Cache) addLocked(hash common.Hash) *entry {
	if e, ok := c.byHash[hash]; ok {
		return e
	}
	if len(c.byHash) >= MaxEntries {
		c.evictOldestLocked()
	}
	e := &entry{hash: hash, arrival: time.Now(), voters: make(map[common.Account]struct{})}
	e.elem = c.arrival.PushBack(e)
	c.byHash[hash] = e
	return e
}

func (c *Cache) evictOldestLocked() {
	front := c.arrival.Front()
	if front == nil {
		return
	}
	e := front.Value.(*entry)
	c.arrival.Remove(front)
	delete(c.byHash, e.hash)
}

// Vote registers voter's support for hash (a missing block), recomputes
// the tally, and — if the combined weight crosses the bootstrap threshold
// and no bootstrap has been scheduled yet — schedules one after
// BootstrapDeferDelay (spec §4.12, §8 scenario 3).
func (c *Cache) Vote(hash common.Hash, voter common.Account) {
	c.mu.Lock()
	e := c.addLocked(hash)
	if _, already := e.voters[voter]; already {
		c.mu.Unlock()
		return
	}
	e.voters[voter] = struct{}{}
	e.tally = e.tally.Add(c.weights.Weight(voter))

	threshold := c.threshold()
	shouldSchedule := !e.bootstrapStarted && e.tally.Cmp(threshold) >= 0
	if shouldSchedule {
		e.bootstrapStarted = true
	}
	c.mu.Unlock()

	if shouldSchedule && c.alarm != nil {
		c.alarm.After(BootstrapDeferDelay, func() {
			if c.exists != nil && c.exists(hash) {
				return
			}
			if c.bootstrap != nil {
				c.bootstrap(hash)
			}
		})
	}
}

func (c *Cache) threshold() common.Amount {
	stake := c.online.OnlineStake()
	if c.lazyBootstrapEnabled {
		return stake
	}
	// legacy: bootstrap_threshold = online_stake()/256 * bootstrap_fraction_numerator
	return stake.MulDiv(BootstrapFractionNumerator, 256)
}

// Len reports the number of tracked gap entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byHash)
}

// TallyFor returns the currently accumulated vote weight for hash, for
// tests and diagnostics.
func (c *Cache) TallyFor(hash common.Hash) common.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byHash[hash]; ok {
		return e.tally
	}
	return common.Amount{}
}
