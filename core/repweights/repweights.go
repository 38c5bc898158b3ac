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

// Package repweights is an in-memory cache of representative delegated
// weight, recovered from futurehead/lib/rep_weights.hpp (SPEC_FULL §8). It
// feeds the gap cache's vote tally (spec §4.12), the online-reps sampler
// (spec §4.7) and the vote processor's RED admission tiers (spec §4.8).
package repweights

import (
	"sync"

	"github.com/vaultchain/vaultchain/common"
)

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	byRep  map[common.Account]common.Amount
}

func New() *Cache {
	return &Cache{byRep: make(map[common.Account]common.Amount)}
}

// Weight returns the cached delegated weight for rep, zero if unknown.
func (c *Cache) Weight(rep common.Account) common.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byRep[rep]
}

// Tier reports whether rep's recorded delegated weight is at least
// minWeight.
func (c *Cache) Tier(rep common.Account, minWeight common.Amount) bool {
	return c.Weight(rep).Cmp(minWeight) >= 0
}

// Set replaces rep's delegated weight; a zero weight removes the entry.
func (c *Cache) Set(rep common.Account, weight common.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if weight.IsZero() {
		delete(c.byRep, rep)
		return
	}
	c.byRep[rep] = weight
}

// Adjust adds delta to rep's weight, or subtracts it when negative is true
// (flooring at zero).
func (c *Cache) Adjust(rep common.Account, delta common.Amount, negative bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.byRep[rep]
	if negative {
		if v, ok := cur.Sub(delta); ok {
			cur = v
		} else {
			cur = common.Amount{}
		}
	} else {
		cur = cur.Add(delta)
	}
	if cur.IsZero() {
		delete(c.byRep, rep)
	} else {
		c.byRep[rep] = cur
	}
}

// Snapshot returns a defensive copy of the whole table.
func (c *Cache) Snapshot() map[common.Account]common.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[common.Account]common.Amount, len(c.byRep))
	for k, v := range c.byRep {
		out[k] = v
	}
	return out
}
