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

// Package generator batches local confirmation votes before signing and
// broadcasting them (spec §4.8): hashes accumulate until either
// types.MaxVoteHashes is reached or vote_generator_delay elapses since the
// first hash in the batch arrived, whichever comes first, then the whole
// batch is signed as a single Vote.
package generator

import (
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/alarm"
)

// DefaultDelay is vote_generator_delay: how long a partial batch waits for
// more hashes before it is flushed anyway.
const DefaultDelay = 900 * time.Millisecond

// Broadcast is invoked with each signed, ready-to-send vote.
type Broadcast func(v *types.Vote)

// Generator accumulates local hashes for one representative and produces
// batched, signed votes.
type Generator struct {
	account common.Account
	priv    ed25519.PrivateKey
	delay   time.Duration
	alarm   *alarm.Alarm
	bcast   Broadcast

	mu       sync.Mutex
	pending  []common.Hash
	sequence uint64
	timerSet bool
	generation uint64
}

// Config bundles a Generator's collaborators.
type Config struct {
	Account    common.Account
	PrivateKey ed25519.PrivateKey
	Delay      time.Duration
	Alarm      *alarm.Alarm
	Broadcast  Broadcast
}

func New(cfg Config) *Generator {
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Generator{
		account: cfg.Account,
		priv:    cfg.PrivateKey,
		delay:   delay,
		alarm:   cfg.Alarm,
		bcast:   cfg.Broadcast,
	}
}

// Add queues hash for the next vote, flushing immediately if the batch
// reaches types.MaxVoteHashes, and otherwise arming (or leaving armed) the
// vote_generator_delay timer for this batch.
func (g *Generator) Add(hash common.Hash) {
	g.mu.Lock()
	g.pending = append(g.pending, hash)
	full := len(g.pending) >= types.MaxVoteHashes
	if full {
		g.generation++
		batch := g.pending
		g.pending = nil
		g.timerSet = false
		g.mu.Unlock()
		g.sign(batch)
		return
	}
	if !g.timerSet {
		g.timerSet = true
		gen := g.generation
		g.alarm.After(g.delay, func() { g.flushGeneration(gen) })
	}
	g.mu.Unlock()
}

func (g *Generator) flushGeneration(gen uint64) {
	g.mu.Lock()
	if gen != g.generation || len(g.pending) == 0 {
		g.mu.Unlock()
		return
	}
	g.generation++
	batch := g.pending
	g.pending = nil
	g.timerSet = false
	g.mu.Unlock()
	g.sign(batch)
}

func (g *Generator) sign(hashes []common.Hash) {
	g.mu.Lock()
	g.sequence++
	seq := g.sequence
	g.mu.Unlock()

	v, err := types.NewVote(g.account, seq, hashes, nil)
	if err != nil {
		return
	}
	v.Sig = ed25519.Sign(g.priv, v.SigningBytes())
	if g.bcast != nil {
		g.bcast(v)
	}
}

// Flush forces out any partial batch immediately, bypassing the delay
// timer. Used on shutdown so a representative's last votes aren't lost.
func (g *Generator) Flush() {
	g.mu.Lock()
	if len(g.pending) == 0 {
		g.mu.Unlock()
		return
	}
	g.generation++
	batch := g.pending
	g.pending = nil
	g.timerSet = false
	g.mu.Unlock()
	g.sign(batch)
}
