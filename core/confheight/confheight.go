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

// Package confheight walks an account's chain from its last cemented
// (confirmed) block up to a newly-confirmed frontier, advancing
// ConfirmationHeight and notifying observers in height-ascending order
// (spec §4.6). Two strategies share one Processor: bounded mode commits in
// fixed-size batches, unbounded mode accumulates the whole pending chain in
// a bounded working set before committing it in one pass. The processor
// switches between them, but only when both are empty, so no confirmation
// is ever double counted.
package confheight

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/writequeue"
	"github.com/vaultchain/vaultchain/log"
	"github.com/vaultchain/vaultchain/store"
)

// Mode names which cementation strategy is currently active.
type Mode int

const (
	Bounded Mode = iota
	Unbounded
)

// DefaultBatchWriteSize bounds how many blocks one bounded-mode pass commits
// before yielding the write-queue grant.
const DefaultBatchWriteSize = 16384

// DefaultUnboundedCutoffHeight is the chain-length threshold past which the
// processor prefers unbounded mode's flat working-set walk over bounded
// mode's batch-by-batch commit (spec §4.6's dynamic switch).
const DefaultUnboundedCutoffHeight = 32768

// DefaultWorkingSetSize caps the unbounded mode's LRU of staged accounts
// (the LRU's value is unused; each account's target is kept separately).
const DefaultWorkingSetSize = 65536

// Cemented describes one block newly advanced to cemented status.
type Cemented struct {
	Account common.Account
	Hash    common.Hash
	Height  uint64
}

// Observer is notified for every cemented block, strictly in ascending
// height order per account.
type Observer func(Cemented)

// Processor is the confirmation-height engine.
type Processor struct {
	db store.Store
	wq *writequeue.Queue
	log *log.Logger

	batchWriteSize     int
	unboundedCutoff    uint64
	auto               bool

	mu                    sync.Mutex
	mode                  Mode
	boundedPending        []pendingChain
	unboundedWorkingSet   *lru.Cache[common.Account, uint64]
	unboundedTargets      map[common.Account]common.Hash

	cementedObservers              []Observer
	alreadyCementedObservers       []Observer

	writeFailures int
}

type pendingChain struct {
	account common.Account
	target  common.Hash
}

// Config bundles a Processor's collaborators.
type Config struct {
	Store                  store.Store
	WriteQueue             *writequeue.Queue
	BatchWriteSize         int
	UnboundedCutoffHeight  uint64
	WorkingSetSize         int
	Auto                   bool
	StartMode              Mode
}

func New(cfg Config) *Processor {
	if cfg.BatchWriteSize <= 0 {
		cfg.BatchWriteSize = DefaultBatchWriteSize
	}
	if cfg.UnboundedCutoffHeight == 0 {
		cfg.UnboundedCutoffHeight = DefaultUnboundedCutoffHeight
	}
	size := cfg.WorkingSetSize
	if size <= 0 {
		size = DefaultWorkingSetSize
	}
	working, _ := lru.New[common.Account, uint64](size)
	return &Processor{
		db:                  cfg.Store,
		wq:                  cfg.WriteQueue,
		log:                 log.New("component", "confheight"),
		batchWriteSize:      cfg.BatchWriteSize,
		unboundedCutoff:     cfg.UnboundedCutoffHeight,
		auto:                cfg.Auto,
		mode:                cfg.StartMode,
		unboundedWorkingSet: working,
		unboundedTargets:    make(map[common.Account]common.Hash),
	}
}

// OnCemented registers an observer invoked for each newly cemented block.
func (p *Processor) OnCemented(o Observer) { p.cementedObservers = append(p.cementedObservers, o) }

// OnAlreadyCemented registers an observer invoked when a requested target
// was already at or below the account's current confirmation height.
func (p *Processor) OnAlreadyCemented(o Observer) {
	p.alreadyCementedObservers = append(p.alreadyCementedObservers, o)
}

// Mode reports the currently active strategy.
func (p *Processor) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Confirm requests that account's chain be cemented up to and including
// target. It walks the chain length to decide (in auto mode) which strategy
// to use, then performs the walk and commit.
func (p *Processor) Confirm(account common.Account, target common.Hash) {
	read := p.db.TxBeginRead()
	info, hasAccount := read.Accounts().Get(account)
	confHeight, _ := read.ConfirmationHeight().Get(account)
	// target is already cemented if it is the cemented frontier or one of
	// its ancestors.
	alreadyCemented := false
	for cur := confHeight.Frontier; !cur.IsZero(); {
		if cur == target {
			alreadyCemented = true
			break
		}
		blk, ok := read.Blocks().Get(cur)
		if !ok {
			break
		}
		cur = blk.Previous()
	}
	read.Rollback()
	if !hasAccount {
		return
	}

	if alreadyCemented {
		p.notifyAlready(account, target, confHeight.Height)
		return
	}

	chainLen := info.BlockCount - confHeight.Height
	p.chooseMode(chainLen)

	p.mu.Lock()
	mode := p.mode
	p.mu.Unlock()

	if mode == Unbounded {
		p.stageUnbounded(account, target)
		return
	}
	p.runBoundedChain(account, target)
}

// chooseMode applies the auto-switch rule: only ever changes strategy when
// both buffers are empty, so no in-flight cementation straddles a mode
// change.
func (p *Processor) chooseMode(chainLen uint64) {
	if !p.auto {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.boundedPending) > 0 || p.unboundedWorkingSet.Len() > 0 {
		return
	}
	if chainLen > p.unboundedCutoff {
		p.mode = Unbounded
	} else {
		p.mode = Bounded
	}
}

func (p *Processor) notifyAlready(account common.Account, hash common.Hash, height uint64) {
	c := Cemented{Account: account, Hash: hash, Height: height}
	for _, o := range p.alreadyCementedObservers {
		o(c)
	}
}

// walkChain resolves the ordered list of (hash, height) pairs from just
// above the account's current confirmation height up to and including
// target, by walking Previous() pointers backward from target and
// reversing.
func (p *Processor) walkChain(txn store.Txn, account common.Account, target common.Hash) ([]common.Hash, uint64, bool) {
	confInfo, _ := txn.ConfirmationHeight().Get(account)
	blocks := txn.Blocks()

	var chain []common.Hash
	cur := target
	for {
		blk, ok := blocks.Get(cur)
		if !ok {
			return nil, 0, false
		}
		chain = append(chain, cur)
		if blk.Previous().IsZero() || confInfo.Frontier == blk.Previous() {
			break
		}
		cur = blk.Previous()
		if len(chain) > 1<<24 {
			// defensive bound against a corrupt/cyclic chain; the real node
			// treats this as a release assert.
			return nil, 0, false
		}
	}
	// reverse into ascending order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, confInfo.Height, true
}

// runBoundedChain commits the chain from account's current confirmation
// height to target in fixed-size batches, yielding the write-queue grant
// between batches.
func (p *Processor) runBoundedChain(account common.Account, target common.Hash) {
	for {
		read := p.db.TxBeginRead()
		chain, startHeight, ok := p.walkChain(read, account, target)
		read.Rollback()
		if !ok || len(chain) == 0 {
			return
		}

		batch := chain
		if len(batch) > p.batchWriteSize {
			batch = batch[:p.batchWriteSize]
		}

		grant := p.wq.Wait(writequeue.ConfirmationHeight)
		txn := p.db.TxBeginWrite(store.TableConfirmationHeight)
		height := startHeight
		for _, h := range batch {
			height++
			txn.ConfirmationHeight().Put(account, types.ConfirmationHeightInfo{Height: height, Frontier: h})
		}
		err := txn.Commit()
		grant.Release()

		if err != nil {
			p.writeFailures++
			txn.Rollback()
			if p.writeFailures >= 2 {
				p.log.Crit("confirmation height write failed twice in a row", "account", account, "err", err)
			}
			return
		}
		p.writeFailures = 0

		height = startHeight
		for _, h := range batch {
			height++
			p.emit(account, h, height)
		}

		if len(batch) == len(chain) {
			return
		}
	}
}

// stageUnbounded records account's pending target in the unbounded working
// set, then recurses through the receive-source graph: every receive block
// between the account's current confirmation height and target has its
// source account staged too, up to the send block it received from, so a
// pending chain that is short per account but wide across accounts still
// cements in one Flush pass (spec §4.6). Flush performs the actual chain
// walk and commit for every staged account.
func (p *Processor) stageUnbounded(account common.Account, target common.Hash) {
	p.stageUnboundedRecursive(account, target, make(map[common.Account]bool))
}

func (p *Processor) stageUnboundedRecursive(account common.Account, target common.Hash, visiting map[common.Account]bool) {
	if visiting[account] {
		return
	}
	visiting[account] = true

	p.mu.Lock()
	alreadyStaged := p.unboundedWorkingSet.Contains(account)
	p.unboundedWorkingSet.Add(account, 0)
	p.unboundedTargets[account] = target
	p.mu.Unlock()
	if alreadyStaged {
		return
	}

	read := p.db.TxBeginRead()
	defer read.Rollback()
	chain, _, ok := p.walkChain(read, account, target)
	if !ok {
		return
	}
	blocks := read.Blocks()
	for _, h := range chain {
		blk, ok := blocks.Get(h)
		if !ok || !blk.Details().IsReceive {
			continue
		}
		sourceHash := blk.Link()
		sourceAccount, ok := blocks.Owner(sourceHash)
		if !ok {
			continue
		}
		p.stageUnboundedRecursive(sourceAccount, sourceHash, visiting)
	}
}

// Flush commits every account staged in the unbounded working set, in the
// order they were added, then clears the working set.
func (p *Processor) Flush() {
	p.mu.Lock()
	accounts := p.unboundedWorkingSet.Keys()
	p.mu.Unlock()

	for _, account := range accounts {
		p.mu.Lock()
		target, ok := p.unboundedTargets[account]
		p.mu.Unlock()
		if !ok {
			continue
		}
		p.runBoundedChain(account, target)
		p.mu.Lock()
		p.unboundedWorkingSet.Remove(account)
		delete(p.unboundedTargets, account)
		p.mu.Unlock()
	}
}

func (p *Processor) emit(account common.Account, hash common.Hash, height uint64) {
	c := Cemented{Account: account, Hash: hash, Height: height}
	for _, o := range p.cementedObservers {
		o(c)
	}
}
