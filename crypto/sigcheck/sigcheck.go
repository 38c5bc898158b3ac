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

// Package sigcheck implements the batched Ed25519 signature verification
// pool shared by the block processor's state-block verifier and the vote
// processor (spec §4.3).
package sigcheck

import (
	"sync"

	"github.com/JekaMas/workerpool"
	"github.com/vaultchain/vaultchain/crypto"
)

const MaxBatchSize = 256

// Result is the tri-state outcome of verifying a single signature.
type Result int8

const (
	Unknown Result = -1
	Invalid Result = 0
	Valid   Result = 1
)

// Batch is a set of parallel arrays describing signatures to verify: message
// i was (allegedly) signed by Keys[i] producing Sigs[i].
type Batch struct {
	Messages [][]byte
	Keys     [][32]byte
	Sigs     [][]byte
}

func (b *Batch) Len() int { return len(b.Messages) }

// Checker is a bounded worker pool verifying batches of size <= MaxBatchSize.
// With a single worker it falls back to synchronous, in-call verification.
type Checker struct {
	pool    *workerpool.WorkerPool
	workers int
	wg      sync.WaitGroup
}

// New constructs a Checker with the given worker count. workers <= 1 runs
// every batch on the calling goroutine.
func New(workers int) *Checker {
	if workers < 1 {
		workers = 1
	}
	c := &Checker{workers: workers}
	if workers > 1 {
		c.pool = workerpool.New(workers)
	}
	return c
}

// Verify fills out with the per-signature verification result for b. It
// blocks until every entry in the batch has been checked, splitting work
// across the pool when there is more than one worker.
func (c *Checker) Verify(b Batch, out []Result) {
	n := b.Len()
	if n > MaxBatchSize {
		panic("sigcheck: batch exceeds MaxBatchSize")
	}
	if len(out) != n {
		panic("sigcheck: out slice length mismatch")
	}

	if c.pool == nil {
		for i := 0; i < n; i++ {
			out[i] = verifyOne(b, i)
		}
		return
	}

	c.wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		c.pool.Submit(func() {
			defer c.wg.Done()
			out[i] = verifyOne(b, i)
		})
	}
	c.wg.Wait()
}

func verifyOne(b Batch, i int) Result {
	ok := crypto.Verify(b.Keys[i], b.Messages[i], b.Sigs[i])
	if ok {
		return Valid
	}
	return Invalid
}

// Flush waits until all outstanding tasks submitted so far have finished.
func (c *Checker) Flush() {
	c.wg.Wait()
}

// Stop joins the worker pool. The Checker must not be used afterward.
func (c *Checker) Stop() {
	if c.pool != nil {
		c.pool.StopWait()
	}
}
