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

// Package onlinereps trends the online voting weight (spec §4.7): the
// current sampling window's rep weights, persisted periodically, with a
// floor and a median trend over history.
package onlinereps

import (
	"sort"
	"sync"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/store"
)

// Tracker observes reps seen voting in the current window and periodically
// samples/persists the running total.
type Tracker struct {
	mu              sync.Mutex
	seen            map[common.Account]struct{}
	weights         *repweights.Cache
	maxSamples      int
	minimum         common.Amount
	persistedSample func(store.OnlineWeightSample)
	samples         func() []store.OnlineWeightSample
	trimOldest      func(keep int)
}

// Config bundles the storage hooks a Tracker needs, letting tests swap in
// an in-memory slice instead of a full store.Store.
type Config struct {
	Weights    *repweights.Cache
	MaxSamples int
	Minimum    common.Amount

	PersistSample func(store.OnlineWeightSample)
	AllSamples    func() []store.OnlineWeightSample
	TrimOldest    func(keep int)
}

func New(cfg Config) *Tracker {
	return &Tracker{
		seen:            make(map[common.Account]struct{}),
		weights:         cfg.Weights,
		maxSamples:      cfg.MaxSamples,
		minimum:         cfg.Minimum,
		persistedSample: cfg.PersistSample,
		samples:         cfg.AllSamples,
		trimOldest:      cfg.TrimOldest,
	}
}

// Observe notes a voting rep seen in this sampling window.
func (t *Tracker) Observe(rep common.Account) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[rep] = struct{}{}
}

// Sample runs the periodic sampling pass: evict down to MaxSamples, sum the
// current window's weights, persist (nowNanos, current), and return the
// freshly computed trend (spec §4.7, steps 1-4).
func (t *Tracker) Sample(nowNanos int64) common.Amount {
	t.mu.Lock()
	seen := t.seen
	t.seen = make(map[common.Account]struct{})
	t.mu.Unlock()

	t.trimOldest(t.maxSamples - 1)

	var current common.Amount
	for rep := range seen {
		current = current.Add(t.weights.Weight(rep))
	}

	t.persistedSample(store.OnlineWeightSample{UnixNanos: nowNanos, Weight: current})
	return t.trend()
}

func (t *Tracker) trend() common.Amount {
	all := t.samples()
	if len(all) == 0 {
		return common.Amount{}
	}
	vals := make([]common.Amount, len(all))
	for i, s := range all {
		vals[i] = s.Weight
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i].Cmp(vals[j]) < 0 })
	median := vals[len(vals)/2]
	return median.Add(t.minimum)
}

// OnlineStake is max(trend, minimum).
func (t *Tracker) OnlineStake() common.Amount {
	tr := t.trend()
	if tr.Cmp(t.minimum) < 0 {
		return t.minimum
	}
	return tr
}
