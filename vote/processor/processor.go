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

// Package processor is the bounded vote-intake worker (spec §4.8): incoming
// votes are admitted, tiered, or dropped (RED — representative early
// detection, here deterministic by weight tier rather than randomized)
// according to the voting representative's delegated weight before ever
// reaching the shared signature-check pool, so a flood of low-weight votes
// cannot starve high-weight representatives out of the queue.
package processor

import (
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/crypto/sigcheck"
)

// DefaultQueueCapacity bounds the number of votes admitted before lower
// tiers are dropped.
const DefaultQueueCapacity = 4096

// DefaultBatchSize caps how many admitted votes are verified together in
// one pass over the signature-check pool.
const DefaultBatchSize = 64

// Tier classifies a voting representative by delegated weight, determining
// how aggressively its votes are dropped under load.
type Tier int

const (
	// TierPrincipal representatives skip the high-water checks; they are
	// dropped only when the queue is full.
	TierPrincipal Tier = iota
	// TierOrdinary representatives are dropped once the queue crosses the
	// ordinary high-water fraction.
	TierOrdinary
	// TierNone carries negligible weight and is dropped first.
	TierNone
)

// String names a Tier for logging and metrics labels.
func (t Tier) String() string {
	switch t {
	case TierPrincipal:
		return "principal"
	case TierOrdinary:
		return "ordinary"
	default:
		return "none"
	}
}

// Thresholds configures the weight cutoffs separating tiers.
type Thresholds struct {
	Principal common.Amount
	Ordinary  common.Amount
}

// Downstream receives a vote once its signature has verified and it has
// been inserted into the vote cache; node wiring feeds it to the gap cache
// and the admitted-votes metric.
type Downstream func(v *types.Vote, newHashes []common.Hash)

// CacheInsert inserts v into the shared vote cache, returning the hashes
// for which it superseded the previously cached entry.
type CacheInsert func(v *types.Vote) []common.Hash

// Processor classifies, batches, verifies, and forwards incoming votes.
type Processor struct {
	weights    *repweights.Cache
	thresholds Thresholds
	checker    *sigcheck.Checker
	insert     CacheInsert
	downstream Downstream

	capacity  int
	batchSize int
	queue     chan queued

	principalHighWater float64
	ordinaryHighWater  float64

	stop chan struct{}
	done chan struct{}
}

type queued struct {
	vote *types.Vote
	tier Tier
}

// Config bundles a Processor's collaborators.
type Config struct {
	Weights    *repweights.Cache
	Thresholds Thresholds
	Checker    *sigcheck.Checker
	Insert     CacheInsert
	Downstream Downstream
	Capacity   int
	BatchSize  int
}

func New(cfg Config) *Processor {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > sigcheck.MaxBatchSize {
		batchSize = sigcheck.MaxBatchSize
	}
	return &Processor{
		weights:            cfg.Weights,
		thresholds:         cfg.Thresholds,
		checker:            cfg.Checker,
		insert:             cfg.Insert,
		downstream:         cfg.Downstream,
		capacity:           capacity,
		batchSize:          batchSize,
		queue:              make(chan queued, capacity),
		principalHighWater: 1.0,
		ordinaryHighWater:  0.5,
		stop:               make(chan struct{}),
		done:               make(chan struct{}),
	}
}

// TierOf classifies rep by its cached delegated weight.
func (p *Processor) TierOf(rep common.Account) Tier {
	w := p.weights.Weight(rep)
	if w.Cmp(p.thresholds.Principal) >= 0 {
		return TierPrincipal
	}
	if w.Cmp(p.thresholds.Ordinary) >= 0 {
		return TierOrdinary
	}
	return TierNone
}

// Admit applies the RED tiering rule and, if the vote is admitted, queues
// it for batched signature verification. Returns false if the vote was
// dropped under load.
func (p *Processor) Admit(v *types.Vote) bool {
	tier := p.TierOf(v.Account)
	occupancy := float64(len(p.queue)) / float64(p.capacity)

	switch tier {
	case TierOrdinary:
		if occupancy >= p.ordinaryHighWater {
			return false
		}
	case TierNone:
		if occupancy >= p.principalHighWater {
			return false
		}
	}

	select {
	case p.queue <- queued{vote: v, tier: tier}:
		return true
	default:
		return false
	}
}

// Run drains the admitted-vote queue, verifying signatures in batches of
// up to batchSize and forwarding the survivors downstream. It returns when
// Stop is called.
func (p *Processor) Run() {
	defer close(p.done)
	batch := make([]queued, 0, p.batchSize)
	for {
		batch = batch[:0]
		select {
		case <-p.stop:
			return
		case q := <-p.queue:
			batch = append(batch, q)
		}
	drain:
		for len(batch) < p.batchSize {
			select {
			case q := <-p.queue:
				batch = append(batch, q)
			default:
				break drain
			}
		}
		p.verifyAndForward(batch)
	}
}

func (p *Processor) verifyAndForward(batch []queued) {
	b := sigcheck.Batch{
		Messages: make([][]byte, len(batch)),
		Keys:     make([][32]byte, len(batch)),
		Sigs:     make([][]byte, len(batch)),
	}
	for i, q := range batch {
		b.Messages[i] = q.vote.SigningBytes()
		b.Keys[i] = q.vote.Account
		b.Sigs[i] = q.vote.Sig
	}
	results := make([]sigcheck.Result, len(batch))
	p.checker.Verify(b, results)

	for i, q := range batch {
		if results[i] != sigcheck.Valid {
			continue
		}
		var newHashes []common.Hash
		if p.insert != nil {
			newHashes = p.insert(q.vote)
		}
		if len(newHashes) == 0 {
			continue
		}
		if p.downstream != nil {
			p.downstream(q.vote, newHashes)
		}
	}
}

// Stop signals Run to exit and waits for it to return.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}
