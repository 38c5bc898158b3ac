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

// Package blockproc is the single-threaded block processor main loop (spec
// §4.5): two FIFOs (incoming blocks and forced rollback applications),
// draining through ledger.ProcessOne under a write-queue grant, dequeuing
// unchecked dependents on progress, and logging the queue's high-water mark
// at most once per log interval.
package blockproc

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/ledger"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/writequeue"
	"github.com/vaultchain/vaultchain/log"
	"github.com/vaultchain/vaultchain/store"
)

// DefaultBatchTimeBudget bounds how long one drain pass may run before
// yielding the write-queue grant back, so other writers (confirmation
// height) are not starved.
const DefaultBatchTimeBudget = 140 * time.Millisecond

// DefaultLogInterval rate-limits the high-water-mark warning.
const DefaultLogInterval = 15 * time.Second

// queued is one pending unit of work: a block plus its pre-computed
// signature status (spec §4.4 feeds this in from the verifier).
type queued struct {
	block   types.Block
	sig     types.SigStatus
	local   bool
	arrival time.Time
}

// Processed is delivered to Processor.Results for every block that leaves
// the queues, whichever queue it came from.
type Processed struct {
	Block  types.Block
	Result ledger.ProcessResult
}

// Processor is the block processor. Construct with New, start its loop with
// Start, and feed it with Process/Force.
type Processor struct {
	db     store.Store
	ledger *ledger.Ledger
	wq     *writequeue.Queue

	batchTimeBudget time.Duration
	logInterval     time.Duration

	mu     sync.Mutex
	blocks deque.Deque[queued]
	forced deque.Deque[queued]
	wake   chan struct{}

	results chan Processed
	log     *log.Logger

	lastHighWaterLog time.Time
	highWaterMark    int

	stop chan struct{}
	done chan struct{}
}

// Config bundles a Processor's collaborators.
type Config struct {
	Store           store.Store
	Ledger          *ledger.Ledger
	WriteQueue      *writequeue.Queue
	BatchTimeBudget time.Duration
	LogInterval     time.Duration
	ResultsBuffer   int
}

func New(cfg Config) *Processor {
	if cfg.BatchTimeBudget <= 0 {
		cfg.BatchTimeBudget = DefaultBatchTimeBudget
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = DefaultLogInterval
	}
	p := &Processor{
		db:              cfg.Store,
		ledger:          cfg.Ledger,
		wq:              cfg.WriteQueue,
		batchTimeBudget: cfg.BatchTimeBudget,
		logInterval:     cfg.LogInterval,
		results:         make(chan Processed, max(cfg.ResultsBuffer, 64)),
		log:             log.New("component", "blockproc"),
		wake:            make(chan struct{}, 1),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	return p
}

func (p *Processor) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Results is the channel of per-block outcomes, read by the confirmation
// height processor and callers wanting commit notifications.
func (p *Processor) Results() <-chan Processed { return p.results }

// Process enqueues block for normal-priority processing.
func (p *Processor) Process(block types.Block, sig types.SigStatus, local bool) {
	p.mu.Lock()
	p.blocks.PushBack(queued{block: block, sig: sig, local: local, arrival: time.Now()})
	if n := p.blocks.Len(); n > p.highWaterMark {
		p.highWaterMark = n
	}
	p.signal()
	p.mu.Unlock()
}

// Force inserts block at the front of the forced (rollback-reapplication)
// queue, always drained ahead of the normal queue. Front insertion lets a
// forced rollback pre-empt any dependent replays dequeueUnchecked already
// staged behind it.
func (p *Processor) Force(block types.Block) {
	p.mu.Lock()
	p.forced.PushFront(queued{block: block, sig: types.SigValid, arrival: time.Now()})
	p.signal()
	p.mu.Unlock()
}

// Len reports the combined depth of both queues.
func (p *Processor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blocks.Len() + p.forced.Len()
}

// Start runs the processor loop until ctx is cancelled or Stop is called.
func (p *Processor) Start(ctx context.Context) {
	go p.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Processor) loop(ctx context.Context) {
	defer close(p.done)
	for {
		if p.Len() == 0 {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-p.wake:
			}
			continue
		}

		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		p.drainBatch(ctx)
		p.maybeLogHighWater()
	}
}

// drainBatch processes queued work under a single write-queue grant, up to
// batchTimeBudget, forced queue first.
func (p *Processor) drainBatch(ctx context.Context) {
	grant := p.wq.Wait(writequeue.ProcessBatch)
	defer grant.Release()

	deadline := time.Now().Add(p.batchTimeBudget)
	txn := p.db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending, store.TableUnchecked)
	applied := 0

	for time.Now().Before(deadline) {
		item, fromForced, ok := p.popNext()
		if !ok {
			break
		}
		res := p.ledger.ProcessOne(txn, item.block, item.sig)
		p.results <- Processed{Block: item.block, Result: res}
		applied++

		if res == ledger.Progress {
			p.dequeueUnchecked(txn, item.block.Hash())
		} else if !fromForced {
			p.stageUnchecked(txn, item, res)
		}
	}

	if applied == 0 {
		txn.Rollback()
		return
	}
	if err := txn.Commit(); err != nil {
		p.log.Error("block batch commit failed", "err", err, "applied", applied)
		txn.Rollback()
	}
}

func (p *Processor) popNext() (queued, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.forced.Len() > 0 {
		return p.forced.PopFront(), true, true
	}
	if p.blocks.Len() > 0 {
		return p.blocks.PopFront(), false, true
	}
	return queued{}, false, false
}

// stageUnchecked records block under whichever hash it is missing, so that
// when that dependency later lands with Progress it is replayed.
func (p *Processor) stageUnchecked(txn store.Txn, item queued, res ledger.ProcessResult) {
	var missing common.Hash
	switch res {
	case ledger.GapPrevious:
		missing = item.block.Previous()
	case ledger.GapSource:
		missing = item.block.Link()
	default:
		return
	}
	if missing.IsZero() {
		return
	}
	txn.Unchecked().Put(missing, types.UncheckedEntry{
		Block:       item.block,
		ArrivalUnix: item.arrival.Unix(),
		SigStatus:   item.sig,
		IsLocal:     item.local,
	})
}

// dequeueUnchecked re-queues every block that was staged against hash, now
// that it has progressed, back onto the forced queue for immediate replay.
func (p *Processor) dequeueUnchecked(txn store.Txn, hash common.Hash) {
	entries := txn.Unchecked().Get(hash)
	if len(entries) == 0 {
		return
	}
	txn.Unchecked().Del(hash)
	p.mu.Lock()
	for _, e := range entries {
		p.forced.PushBack(queued{block: e.Block, sig: e.SigStatus, local: e.IsLocal, arrival: time.Now()})
	}
	p.signal()
	p.mu.Unlock()
}

func (p *Processor) maybeLogHighWater() {
	p.mu.Lock()
	hw := p.highWaterMark
	since := time.Since(p.lastHighWaterLog)
	if hw > 0 && since >= p.logInterval {
		p.lastHighWaterLog = time.Now()
		p.highWaterMark = p.blocks.Len() + p.forced.Len()
	}
	p.mu.Unlock()

	if hw > 0 && since >= p.logInterval {
		p.log.Warn("block processor queue high-water mark", "depth", hw)
	}
}
