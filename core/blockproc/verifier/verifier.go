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

// Package verifier runs the state-block signature verification stage ahead
// of the block processor (spec §4.4): it drains incoming state blocks in
// batches, builds a sigcheck.Batch per drain (choosing the epoch signer's
// key instead of the block's own account for epoch-upgrade blocks), and
// forwards each block plus its verified status downstream.
package verifier

import (
	"time"

	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/crypto/sigcheck"
)

// DefaultVerificationSize caps how many blocks one drain pulls off the
// incoming channel before handing the whole batch to the Checker.
const DefaultVerificationSize = 256

// Verified is delivered for every block the stage has classified.
type Verified struct {
	Block types.Block
	Sig   types.SigStatus
}

// Downstream receives verified blocks (typically blockproc.Processor.Process).
type Downstream func(block types.Block, sig types.SigStatus)

// Stage runs on one dedicated goroutine.
type Stage struct {
	checker *sigcheck.Checker
	epochs  types.EpochTable
	incoming chan types.Block
	downstream Downstream

	verificationSize int

	onVerified func(n int)
	onIdle     func()

	stop chan struct{}
	done chan struct{}
}

// Config bundles a Stage's collaborators.
type Config struct {
	Checker          *sigcheck.Checker
	Epochs           types.EpochTable
	Downstream       Downstream
	VerificationSize int
	IncomingBuffer   int

	// BlocksVerifiedCallback and TransitionInactiveCallback mirror the
	// spec's blocks_verified_callback / transition_inactive_callback hooks.
	BlocksVerifiedCallback    func(n int)
	TransitionInactiveCallback func()
}

func New(cfg Config) *Stage {
	size := cfg.VerificationSize
	if size <= 0 {
		size = DefaultVerificationSize
	}
	buf := cfg.IncomingBuffer
	if buf <= 0 {
		buf = size * 4
	}
	return &Stage{
		checker:          cfg.Checker,
		epochs:           cfg.Epochs,
		incoming:         make(chan types.Block, buf),
		downstream:       cfg.Downstream,
		verificationSize: size,
		onVerified:       cfg.BlocksVerifiedCallback,
		onIdle:           cfg.TransitionInactiveCallback,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Submit hands block to the verifier. Blocks if the incoming buffer is full,
// exerting natural backpressure on the network receive path.
func (s *Stage) Submit(block types.Block) {
	s.incoming <- block
}

// Run processes incoming blocks until Stop is called. Intended to be run on
// its own goroutine.
func (s *Stage) Run() {
	defer close(s.done)
	idleTimer := time.NewTimer(50 * time.Millisecond)
	defer idleTimer.Stop()

	for {
		batch := s.collect(idleTimer)
		if batch == nil {
			return
		}
		if len(batch) == 0 {
			if s.onIdle != nil {
				s.onIdle()
			}
			continue
		}
		s.verifyBatch(batch)
	}
}

// Stop signals Run to exit and waits for it.
func (s *Stage) Stop() {
	close(s.stop)
	<-s.done
}

// collect waits for the first block (or the idle timer), then drains up to
// verificationSize blocks already queued without waiting for more, and
// returns the (possibly empty) batch; nil signals shutdown.
func (s *Stage) collect(idleTimer *time.Timer) []types.Block {
	var batch []types.Block

	select {
	case <-s.stop:
		return nil
	case b := <-s.incoming:
		batch = append(batch, b)
	case <-idleTimer.C:
		idleTimer.Reset(50 * time.Millisecond)
		return batch
	}

	for len(batch) < s.verificationSize {
		select {
		case b := <-s.incoming:
			batch = append(batch, b)
		default:
			return batch
		}
	}
	return batch
}

// verifyBatch builds the sigcheck.Batch, choosing each block's signer key
// (the epoch table's registered signer for epoch-upgrade state blocks,
// otherwise the block's own account), then forwards every block downstream
// with its resolved SigStatus.
func (s *Stage) verifyBatch(blocks []types.Block) {
	b := sigcheck.Batch{
		Messages: make([][]byte, len(blocks)),
		Keys:     make([][32]byte, len(blocks)),
		Sigs:     make([][]byte, len(blocks)),
	}
	for i, blk := range blocks {
		b.Messages[i] = blk.Hash().Bytes()
		b.Sigs[i] = blk.Signature()
		b.Keys[i] = signerFor(blk, s.epochs)
	}

	out := make([]sigcheck.Result, len(blocks))
	s.checker.Verify(b, out)

	for i, blk := range blocks {
		status := types.SigUnknown
		switch out[i] {
		case sigcheck.Valid:
			status = types.SigValid
		case sigcheck.Invalid:
			status = types.SigInvalid
		}
		if s.downstream != nil {
			s.downstream(blk, status)
		}
	}
	if s.onVerified != nil {
		s.onVerified(len(blocks))
	}
}

// signerFor picks the public key a block's signature must verify against:
// for a state block classified as an epoch upgrade, the registered epoch
// signer rather than the account itself (spec §4.4).
func signerFor(blk types.Block, epochs types.EpochTable) [32]byte {
	det := blk.Details()
	if det.IsEpoch {
		if info, ok := epochs[det.Epoch]; ok {
			return [32]byte(info.Signer)
		}
	}
	return [32]byte(blk.Account())
}
