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

// Package node wires the core's independently-constructible subsystems into
// one running instance (spec §5): a single shared internal/alarm and
// crypto/sigcheck worker pool, a single write-queue, the verifier -> block
// processor path for incoming blocks, and the confirmation-height -> vote
// generator hook for cemented blocks. Node does not pass processed blocks
// to confirmation-height itself; cementing takes an explicit
// ConfirmationHeight().Confirm call. RPC, CLI, and wallet
// surfaces are out of scope (spec.md §1) and are not modeled here; Node
// only owns the core pipeline and its collaborators.
package node

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/confirm/aggregator"
	"github.com/vaultchain/vaultchain/confirm/solicitor"
	"github.com/vaultchain/vaultchain/core/blockproc"
	"github.com/vaultchain/vaultchain/core/blockproc/verifier"
	"github.com/vaultchain/vaultchain/core/confheight"
	"github.com/vaultchain/vaultchain/core/ledger"
	"github.com/vaultchain/vaultchain/core/onlinereps"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/core/work"
	"github.com/vaultchain/vaultchain/crypto/sigcheck"
	"github.com/vaultchain/vaultchain/internal/alarm"
	"github.com/vaultchain/vaultchain/internal/writequeue"
	"github.com/vaultchain/vaultchain/log"
	"github.com/vaultchain/vaultchain/metrics"
	"github.com/vaultchain/vaultchain/network/filter"
	"github.com/vaultchain/vaultchain/network/gapcache"
	"github.com/vaultchain/vaultchain/network/peerset"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/vote/cache"
	"github.com/vaultchain/vaultchain/vote/generator"
	"github.com/vaultchain/vaultchain/vote/processor"
)

// DefaultSigcheckWorkers sizes the shared signature-verification pool
// consumed by both the state-block verifier and the vote processor.
const DefaultSigcheckWorkers = 4

// DefaultFilterSize is the network dedup filter's slot count.
const DefaultFilterSize = 1 << 17

// DefaultPeerSetSize and DefaultPeerCount bound the exclusion set relative
// to the configured peer count (spec §4.13).
const (
	DefaultPeerSetSize = 5000
	DefaultPeerCount   = 250
)

// DiagnosticsConfig bundles the txn-timing thresholds that tune how
// aggressively the block processor and confirmation-height processor batch
// their writes before yielding the write-queue grant back (spec §4.6's
// dynamic batch_write_size tuning), grounded on futurehead's
// lib/diagnosticsconfig.hpp.
type DiagnosticsConfig struct {
	// BlockProcessorBatchBudget bounds one block-processor drain pass.
	BlockProcessorBatchBudget time.Duration
	// ConfirmationHeightBatchSize bounds one bounded-mode cementation pass.
	ConfirmationHeightBatchSize int
}

// DefaultDiagnosticsConfig returns the production batching defaults.
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		BlockProcessorBatchBudget:   blockproc.DefaultBatchTimeBudget,
		ConfirmationHeightBatchSize: confheight.DefaultBatchWriteSize,
	}
}

// Config bundles every collaborator and tunable needed to construct a Node.
// Fields left zero take the package defaults of the subsystem they feed.
type Config struct {
	Store   store.Store
	Network common.Network
	Epochs  types.EpochTable

	Account    common.Account
	PrivateKey []byte

	WorkThresholds     work.Thresholds
	VoteThresholds     processor.Thresholds
	SigcheckWorkers    int
	FilterSize         int
	PeerSetSize        int
	PeerCount          int
	ConfirmationFanout int

	Diagnostics DiagnosticsConfig

	// LazyBootstrapEnabled wires the gap cache's deferred-bootstrap trigger
	// (spec §4.12) to StartLazyBootstrap below.
	LazyBootstrapEnabled bool
	// StartLazyBootstrap is invoked with a gap's hash once the gap cache
	// decides it has crossed its vote-weight threshold. Left nil, gaps are
	// tracked but never trigger a bootstrap attempt.
	StartLazyBootstrap func(common.Hash)

	// Broadcast and Flood are the network-facing hooks the vote generator
	// and confirmation solicitor need; Node owns no transport of its own.
	Broadcast generator.Broadcast
	Flood     solicitor.Flooder
	Dispatch  aggregator.Dispatcher
}

// Node is one running instance of the core pipeline: verifier ->
// blockproc -> confheight -> vote generator, plus the supporting caches
// (network filter, gap cache, peer exclusion, online reps) and the
// confirmation solicitor/request aggregator that drive peer-facing
// confirmation traffic.
type Node struct {
	log     *log.Logger
	metrics *metrics.Registry
	alarm   *alarm.Alarm

	store   store.Store
	ledger  *ledger.Ledger
	writeQ  *writequeue.Queue

	weights    *repweights.Cache
	workChk    *work.Checker
	sigChecker *sigcheck.Checker

	verifier   *verifier.Stage
	blockProc  *blockproc.Processor
	confHeight *confheight.Processor

	onlineReps *onlinereps.Tracker
	filter     *filter.Filter
	gapCache   *gapcache.Cache
	peers      *peerset.Set

	voteCache     *cache.Cache
	voteProcessor *processor.Processor
	voteGenerator *generator.Generator

	solicitor  *solicitor.Solicitor
	aggregator *aggregator.Aggregator

	legacyAttempt *attempt.Legacy

	wg   sync.WaitGroup
	stop chan struct{}
}

// New constructs every subsystem and wires their callbacks together. It
// does not start any goroutines; call Start for that.
func New(cfg Config) *Node {
	if cfg.Network != 0 {
		common.SetNetwork(cfg.Network)
	}
	if cfg.SigcheckWorkers <= 0 {
		cfg.SigcheckWorkers = DefaultSigcheckWorkers
	}
	if cfg.FilterSize <= 0 {
		cfg.FilterSize = DefaultFilterSize
	}
	if cfg.PeerSetSize <= 0 {
		cfg.PeerSetSize = DefaultPeerSetSize
	}
	if cfg.PeerCount <= 0 {
		cfg.PeerCount = DefaultPeerCount
	}
	if cfg.Diagnostics == (DiagnosticsConfig{}) {
		cfg.Diagnostics = DefaultDiagnosticsConfig()
	}
	if cfg.WorkThresholds == (work.Thresholds{}) {
		cfg.WorkThresholds = work.DefaultThresholds()
	}

	n := &Node{
		log:     log.New("component", "node"),
		metrics: metrics.New(),
		alarm:   alarm.New(),
		store:   cfg.Store,
		stop:    make(chan struct{}),
	}

	n.weights = repweights.New()
	n.workChk = work.NewChecker(cfg.WorkThresholds)
	n.sigChecker = sigcheck.New(cfg.SigcheckWorkers)
	n.ledger = &ledger.Ledger{Work: n.workChk, Epochs: cfg.Epochs, Weights: n.weights}
	n.writeQ = writequeue.New()

	n.blockProc = blockproc.New(blockproc.Config{
		Store:           n.store,
		Ledger:          n.ledger,
		WriteQueue:      n.writeQ,
		BatchTimeBudget: cfg.Diagnostics.BlockProcessorBatchBudget,
	})

	n.verifier = verifier.New(verifier.Config{
		Checker: n.sigChecker,
		Epochs:  cfg.Epochs,
		Downstream: func(block types.Block, sig types.SigStatus) {
			n.blockProc.Process(block, sig, false)
		},
	})

	n.confHeight = confheight.New(confheight.Config{
		Store:                 n.store,
		WriteQueue:            n.writeQ,
		BatchWriteSize:        cfg.Diagnostics.ConfirmationHeightBatchSize,
		UnboundedCutoffHeight: confheight.DefaultUnboundedCutoffHeight,
		Auto:                  true,
	})
	n.confHeight.OnCemented(func(c confheight.Cemented) {
		n.metrics.CementedBlocksTotal.Inc()
		if n.voteGenerator != nil {
			n.voteGenerator.Add(c.Hash)
		}
	})

	n.onlineReps = onlinereps.New(onlinereps.Config{Weights: n.weights})
	n.filter = filter.New(cfg.FilterSize)
	n.peers = peerset.New(cfg.PeerSetSize, cfg.PeerCount)

	n.legacyAttempt = attempt.NewLegacy(1, "")
	n.gapCache = gapcache.New(gapcache.Config{
		Online:  n.onlineReps,
		Weights: n.weights,
		Alarm:   n.alarm,
		Exists: func(h common.Hash) bool {
			txn := n.store.TxBeginRead()
			defer txn.Rollback()
			_, ok := txn.Blocks().Get(h)
			return ok
		},
		LazyBootstrapEnabled: cfg.LazyBootstrapEnabled,
		StartBootstrap:       cfg.StartLazyBootstrap,
	})

	n.voteCache = cache.New(cache.DefaultMaxHashes, cache.DefaultMaxVotersPerHash)
	n.voteProcessor = processor.New(processor.Config{
		Weights:    n.weights,
		Thresholds: cfg.VoteThresholds,
		Checker:    n.sigChecker,
		Insert:     n.voteCache.Insert,
		Downstream: func(v *types.Vote, newHashes []common.Hash) {
			for _, h := range newHashes {
				n.gapCache.Vote(h, v.Account)
			}
			n.metrics.VotesAdmitted.WithLabelValues(n.voteProcessor.TierOf(v.Account).String()).Inc()
		},
	})

	var priv ed25519.PrivateKey
	if len(cfg.PrivateKey) == ed25519.PrivateKeySize {
		priv = ed25519.PrivateKey(cfg.PrivateKey)
	}
	n.voteGenerator = generator.New(generator.Config{
		Account:    cfg.Account,
		PrivateKey: priv,
		Alarm:      n.alarm,
		Broadcast:  cfg.Broadcast,
	})

	n.solicitor = solicitor.New(solicitor.DefaultLimits(cfg.ConfirmationFanout), cfg.Flood)
	n.aggregator = aggregator.New(aggregator.Config{Dispatcher: cfg.Dispatch})

	return n
}

// Start launches every subsystem's background loop. ctx cancellation is
// observed by the block processor only; the verifier, vote processor and
// aggregator loops are stopped explicitly by Close.
func (n *Node) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.verifier.Run()
	}()
	n.blockProc.Start(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.voteProcessor.Run()
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.aggregator.Run()
	}()
}

// Close stops every running subsystem and waits for their loops to exit.
func (n *Node) Close() {
	n.verifier.Stop()
	n.blockProc.Stop()
	n.voteProcessor.Stop()
	n.confHeight.Flush()
	n.aggregator.Stop()
	n.alarm.Stop()
	n.wg.Wait()
}

// Metrics exposes the node's Prometheus collectors for an out-of-scope
// HTTP /metrics handler to serve.
func (n *Node) Metrics() *metrics.Registry { return n.metrics }

// Ledger exposes the shared ledger collaborator, e.g. for a bootstrap
// client feeding pulled blocks into Submit/Force.
func (n *Node) Ledger() *ledger.Ledger { return n.ledger }

// Verifier exposes the state-block verification stage new inbound network
// blocks should be submitted to.
func (n *Node) Verifier() *verifier.Stage { return n.verifier }

// BlockProcessor exposes the block processor, e.g. for a bootstrap client's
// Force path on pulled blocks.
func (n *Node) BlockProcessor() *blockproc.Processor { return n.blockProc }

// ConfirmationHeight exposes the cementation processor so an election
// winner can be confirmed.
func (n *Node) ConfirmationHeight() *confheight.Processor { return n.confHeight }

// VoteProcessor exposes the admission queue for inbound network votes.
func (n *Node) VoteProcessor() *processor.Processor { return n.voteProcessor }

// Filter exposes the network dedup filter inbound messages are checked
// against before reaching any processing stage.
func (n *Node) Filter() *filter.Filter { return n.filter }

// GapCache exposes the missing-block tracker inbound votes/blocks feed.
func (n *Node) GapCache() *gapcache.Cache { return n.gapCache }

// Peers exposes the peer exclusion set.
func (n *Node) Peers() *peerset.Set { return n.peers }

// Solicitor exposes the confirmation solicitor driving one election round's
// broadcast/request traffic.
func (n *Node) Solicitor() *solicitor.Solicitor { return n.solicitor }

// Aggregator exposes the request aggregator batching inbound confirm_req
// traffic from peers.
func (n *Node) Aggregator() *aggregator.Aggregator { return n.aggregator }

// LegacyAttempt exposes the node's legacy bootstrap attempt bookkeeping,
// shared across the lifetime of the process rather than per-attempt, since
// Node only ever runs one bootstrap attempt at a time.
func (n *Node) LegacyAttempt() *attempt.Legacy { return n.legacyAttempt }
