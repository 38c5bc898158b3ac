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

// Package ratelimit is a token bucket limiting how aggressively the
// bootstrap server answers bulk_pull requests from any one peer.
// Grounded on original_source/futurehead/lib/rate_limiting.cpp: a token
// count or refill rate of zero means unlimited capacity, modeled here with
// a sentinel rather than an unbounded bucket so largest-burst bookkeeping
// still works.
package ratelimit

import (
	"sync"
	"time"
)

// unlimitedSentinel mirrors the C++ 1e9 sentinel used when either
// parameter is zero ("unlimited").
const unlimitedSentinel = 1e9

// Bucket is a refilling token bucket, safe for concurrent use.
type Bucket struct {
	mu sync.Mutex

	maxTokens   float64
	refillRate  float64
	current     float64
	smallest    float64
	lastRefill  time.Time
	unlimited   bool
	now         func() time.Time
}

// New constructs a Bucket holding at most maxTokens, refilling at
// refillRate tokens/second. A zero maxTokens or refillRate means
// unlimited: TryConsume always succeeds.
func New(maxTokens, refillRate uint64) *Bucket {
	unlimited := maxTokens == 0 || refillRate == 0
	max := float64(maxTokens)
	rate := float64(refillRate)
	if unlimited {
		max, rate = unlimitedSentinel, unlimitedSentinel
	}
	return &Bucket{
		maxTokens:  max,
		refillRate: rate,
		current:    max,
		smallest:   max,
		lastRefill: time.Now(),
		unlimited:  unlimited,
		now:        time.Now,
	}
}

// TryConsume attempts to remove tokensRequired tokens, refilling first.
// It reports whether the bucket had enough tokens; an unlimited bucket
// always reports true.
func (b *Bucket) TryConsume(tokensRequired uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	required := float64(tokensRequired)
	possible := b.current >= required
	if possible {
		b.current -= required
	} else if b.unlimited {
		b.current = 0
	}

	if b.current < b.smallest {
		b.smallest = b.current
	}
	return possible || b.unlimited
}

func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.current += elapsed * b.refillRate
	if b.current > b.maxTokens {
		b.current = b.maxTokens
	}
	b.lastRefill = now
}

// LargestBurst returns the largest burst observed so far: the gap between
// full capacity and the smallest bucket size ever seen.
func (b *Bucket) LargestBurst() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(b.maxTokens - b.smallest)
}
