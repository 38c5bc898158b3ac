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

// Package attempt is the bootstrap engine's shared attempt bookkeeping
// (spec §4.11): one Attempt per in-progress bootstrap, in one of three
// modes (legacy frontier scan, lazy unchecked-dependency chase, wallet
// targeted account pull), tracking in-flight pull count, total blocks
// received, and requeue counts. Mode-specific pull-queue management lives
// in the LegacyAttempt/LazyAttempt/WalletAttempt wrappers below.
package attempt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gammazero/deque"

	"github.com/vaultchain/vaultchain/common"
)

// Mode names which bootstrap strategy an Attempt is running.
type Mode int

const (
	ModeLegacy Mode = iota
	ModeLazy
	ModeWallet
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeLazy:
		return "lazy"
	case ModeWallet:
		return "wallet"
	default:
		return "unknown"
	}
}

// DefaultRetryLimit bounds how many times a single pull is requeued before
// it is abandoned.
const DefaultRetryLimit = 16

// PullInfo describes one account's (or lazy hash's) outstanding bulk_pull,
// grounded on original_source/futurehead/node/bootstrap/bootstrap_bulk_pull.hpp's
// pull_info.
type PullInfo struct {
	AccountOrHead common.Hash
	Head          common.Hash
	HeadOriginal  common.Hash
	End           common.Hash
	Count         uint64
	Attempts      uint
	Processed     uint64
	RetryLimit    uint
	BootstrapID   string
}

// NewPullInfo constructs a PullInfo with DefaultRetryLimit unless
// retryLimit is explicitly given.
func NewPullInfo(accountOrHead, head, end common.Hash, bootstrapID string, retryLimit uint) PullInfo {
	if retryLimit == 0 {
		retryLimit = DefaultRetryLimit
	}
	return PullInfo{
		AccountOrHead: accountOrHead,
		Head:          head,
		HeadOriginal:  head,
		End:           end,
		RetryLimit:    retryLimit,
		BootstrapID:   bootstrapID,
	}
}

// Exhausted reports whether the pull has been retried past its limit.
func (p *PullInfo) Exhausted() bool { return p.Attempts >= p.RetryLimit }

// Attempt is the base bookkeeping shared by every bootstrap mode.
type Attempt struct {
	ID            string
	Mode          Mode
	IncrementalID uint64

	pulling       int32
	totalBlocks   uint64
	requeuedPulls uint32
	started       int32
	stopped       int32

	attemptStart time.Time

	logMu   sync.Mutex
	nextLog time.Time
}

// New constructs an Attempt, generating a fresh bootstrap_id via
// google/uuid when id is empty.
func New(mode Mode, incrementalID uint64, id string) *Attempt {
	if id == "" {
		id = uuid.NewString()
	}
	return &Attempt{
		ID:            id,
		Mode:          mode,
		IncrementalID: incrementalID,
		attemptStart:  time.Now(),
		nextLog:       time.Now(),
	}
}

// PullStarted records one more pull now in flight.
func (a *Attempt) PullStarted() { atomic.AddInt32(&a.pulling, 1) }

// PullFinished records one fewer pull in flight and counts the blocks it
// delivered.
func (a *Attempt) PullFinished(blocks uint64) {
	atomic.AddInt32(&a.pulling, -1)
	atomic.AddUint64(&a.totalBlocks, blocks)
}

// StillPulling reports whether the attempt has started, has not been
// stopped, and has at least one pull outstanding.
func (a *Attempt) StillPulling() bool {
	return atomic.LoadInt32(&a.started) != 0 && atomic.LoadInt32(&a.pulling) > 0 && atomic.LoadInt32(&a.stopped) == 0
}

// Start marks the attempt as running.
func (a *Attempt) Start() { atomic.StoreInt32(&a.started, 1) }

// Stop marks the attempt as stopped; Stop is idempotent.
func (a *Attempt) Stop() { atomic.StoreInt32(&a.stopped, 1) }

// Stopped reports whether Stop has been called.
func (a *Attempt) Stopped() bool { return atomic.LoadInt32(&a.stopped) != 0 }

// TotalBlocks reports the cumulative number of blocks received so far.
func (a *Attempt) TotalBlocks() uint64 { return atomic.LoadUint64(&a.totalBlocks) }

// RecordRequeue counts one more pull requeue across the attempt's
// lifetime.
func (a *Attempt) RecordRequeue() { atomic.AddUint32(&a.requeuedPulls, 1) }

// RequeuedPulls reports the cumulative requeue count.
func (a *Attempt) RequeuedPulls() uint32 { return atomic.LoadUint32(&a.requeuedPulls) }

// ShouldLog rate-limits progress logging to once every 15 seconds,
// matching the reference implementation's default log_interval for
// long-running attempts.
func (a *Attempt) ShouldLog() bool {
	a.logMu.Lock()
	defer a.logMu.Unlock()
	now := time.Now()
	if now.Before(a.nextLog) {
		return false
	}
	a.nextLog = now.Add(15 * time.Second)
	return true
}

// Legacy is the frontier-scan bootstrap mode: it walks the peer's account
// frontiers and schedules a pull for every account whose local head
// differs.
type Legacy struct {
	*Attempt
	mu            sync.Mutex
	frontierPulls deque.Deque[PullInfo]
	recentHeads   deque.Deque[common.Hash]
}

// NewLegacy constructs a Legacy attempt.
func NewLegacy(incrementalID uint64, id string) *Legacy {
	return &Legacy{Attempt: New(ModeLegacy, incrementalID, id)}
}

// AddFrontier queues a pull discovered from the peer's frontier response.
func (l *Legacy) AddFrontier(p PullInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frontierPulls.PushBack(p)
}

// AddRecentPull records a recently-pulled head, used to detect forks that
// invalidate an in-progress frontier scan.
func (l *Legacy) AddRecentPull(head common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recentHeads.PushBack(head)
	const maxRecent = 1000
	for l.recentHeads.Len() > maxRecent {
		l.recentHeads.PopFront()
	}
}

// NextFrontierPull pops the next queued pull, if any.
func (l *Legacy) NextFrontierPull() (PullInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frontierPulls.Len() == 0 {
		return PullInfo{}, false
	}
	return l.frontierPulls.PopFront(), true
}

// PendingFrontierPulls reports how many frontier-discovered pulls are
// still queued.
func (l *Legacy) PendingFrontierPulls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frontierPulls.Len()
}

// Lazy is the unchecked-dependency-chase bootstrap mode: started from one
// or more known hashes, it lazily discovers and pulls whatever blocks are
// needed to satisfy every dependency those hashes' chains require.
type Lazy struct {
	*Attempt
	mu        sync.Mutex
	queue     deque.Deque[common.Hash]
	processed map[common.Hash]bool
	batchSize uint32
	deadline  time.Time
}

// DefaultLazyBatchSize is the number of hashes pulled per lazy round.
const DefaultLazyBatchSize = 125

// DefaultLazyMaxDuration bounds how long a lazy attempt may run before it
// is considered expired and discarded.
const DefaultLazyMaxDuration = 5 * time.Minute

// NewLazy constructs a Lazy attempt.
func NewLazy(incrementalID uint64, id string) *Lazy {
	return &Lazy{
		Attempt:   New(ModeLazy, incrementalID, id),
		processed: make(map[common.Hash]bool),
		batchSize: DefaultLazyBatchSize,
		deadline:  time.Now().Add(DefaultLazyMaxDuration),
	}
}

// LazyStart seeds the lazy chase with a root hash or account.
func (l *Lazy) LazyStart(hashOrAccount common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.processed[hashOrAccount] {
		return
	}
	l.queue.PushBack(hashOrAccount)
}

// LazyAdd enqueues a dependency discovered while processing another pull.
func (l *Lazy) LazyAdd(p PullInfo) {
	l.LazyStart(p.AccountOrHead)
}

// LazyRequeue re-queues hash after a failed pull, marking it unprocessed
// again so a subsequent round retries it.
func (l *Lazy) LazyRequeue(hash common.Hash, networkError bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.processed, hash)
	l.queue.PushBack(hash)
	if networkError {
		l.RecordRequeue()
	}
}

// LazyProcessedOrExists reports whether hash has been marked processed by
// LazyMarkProcessed and so should be skipped. The local ledger is not
// consulted.
func (l *Lazy) LazyProcessedOrExists(hash common.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed[hash]
}

// LazyMarkProcessed records hash as resolved.
func (l *Lazy) LazyMarkProcessed(hash common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processed[hash] = true
}

// LazyBatchSize reports how many hashes one round should pull.
func (l *Lazy) LazyBatchSize() uint32 { return l.batchSize }

// LazyHasExpired reports whether the attempt has run past its maximum
// allotted duration.
func (l *Lazy) LazyHasExpired() bool { return time.Now().After(l.deadline) }

// LazyNextBatch pops up to LazyBatchSize unprocessed hashes.
func (l *Lazy) LazyNextBatch() []common.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := make([]common.Hash, 0, l.batchSize)
	for l.queue.Len() > 0 && uint32(len(batch)) < l.batchSize {
		h := l.queue.PopFront()
		if l.processed[h] {
			continue
		}
		batch = append(batch, h)
	}
	return batch
}

// Wallet is the targeted bootstrap mode driven by a known set of wallet
// accounts rather than frontier discovery.
type Wallet struct {
	*Attempt
	mu       sync.Mutex
	accounts deque.Deque[common.Account]
}

// NewWallet constructs a Wallet attempt.
func NewWallet(incrementalID uint64, id string) *Wallet {
	return &Wallet{Attempt: New(ModeWallet, incrementalID, id)}
}

// WalletStart seeds the accounts to pull.
func (w *Wallet) WalletStart(accounts []common.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range accounts {
		w.accounts.PushBack(a)
	}
}

// WalletSize reports how many accounts remain queued.
func (w *Wallet) WalletSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accounts.Len()
}

// WalletNext pops the next account to pull.
func (w *Wallet) WalletNext() (common.Account, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.accounts.Len() == 0 {
		return common.Account{}, false
	}
	return w.accounts.PopFront(), true
}
