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

// Package solicitor bundles outstanding elections into confirm_req batches
// and winner-block broadcasts addressed to representatives who haven't yet
// voted for the current winner (spec §4.9). A Solicitor is reused across
// rounds: Prepare resets it for a new round's representative list, Add/
// Broadcast stage work per election, and Flush dispatches everything
// bundled per channel.
package solicitor

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/network/wire"
)

// Channel is the transport-facing abstraction a solicitor sends to. It is
// satisfied by a peer connection in node wiring.
type Channel interface {
	Endpoint() string
	SendPublish(block types.Block)
	SendConfirmReq(req *wire.ConfirmReq)
}

// Flooder broadcasts a block to a random fraction of all connected peers,
// independent of any single representative's channel.
type Flooder func(block types.Block, fanoutFraction float32)

// Representative is one rep eligible for direct solicitation this round.
type Representative struct {
	Account common.Account
	Channel Channel
}

// Election is the minimal view of in-progress election state the solicitor
// needs: the current winner and the latest hash each representative has
// been observed voting for.
type Election struct {
	Winner    types.Block
	LastVotes map[common.Account]common.Hash
}

// Limits bounds how aggressively the solicitor broadcasts/requests,
// mirroring futurehead's confirmation_solicitor constructor defaults.
type Limits struct {
	MaxConfirmReqBatches int
	MaxBlockBroadcasts   int
	MaxElectionRequests  int
	MaxElectionBroadcasts int
}

// DefaultLimits returns the production (non test-network) defaults.
func DefaultLimits(fanout int) Limits {
	broadcasts := fanout / 2
	if broadcasts < 1 {
		broadcasts = 1
	}
	return Limits{
		MaxConfirmReqBatches:  20,
		MaxBlockBroadcasts:    30,
		MaxElectionRequests:   30,
		MaxElectionBroadcasts: broadcasts,
	}
}

// Solicitor batches confirm_req/publish dispatch across one round of
// elections. It is not safe for concurrent use; callers run one round to
// completion (Prepare -> Add/Broadcast* -> Flush) before reusing it.
type Solicitor struct {
	limits Limits
	flood  Flooder

	rebroadcasted int
	repsRequests  []Representative
	repsBroadcast []Representative
	requests      map[string]*channelRequests
	prepared      bool
}

type channelRequests struct {
	channel Channel
	pairs   []wire.HashRootPair
}

func New(limits Limits, flood Flooder) *Solicitor {
	return &Solicitor{limits: limits, flood: flood}
}

// Prepare resets the solicitor for a new round with reps as the candidate
// representative set for both broadcasting and requesting.
func (s *Solicitor) Prepare(reps []Representative) {
	s.requests = make(map[string]*channelRequests)
	s.rebroadcasted = 0
	s.repsRequests = append([]Representative(nil), reps...)
	s.repsBroadcast = append([]Representative(nil), reps...)
	s.prepared = true
}

// Broadcast directly sends the election's winner block to up to
// MaxElectionBroadcasts representatives who have not already voted for it,
// then floods it at half fanout for general propagation. Returns false
// (matching the C++ convention: false means "broadcast happened") after
// broadcasting, and true without sending anything once the global
// MaxBlockBroadcasts budget for this round is exhausted.
func (s *Solicitor) Broadcast(e Election) bool {
	if !s.prepared {
		panic("solicitor: Broadcast called before Prepare")
	}
	if s.rebroadcasted >= s.limits.MaxBlockBroadcasts {
		return true
	}
	s.rebroadcasted++

	hash := e.Winner.Hash()
	alreadyVoted := AlreadyVotedSet(e.LastVotes, hash)
	count := 0
	for _, rep := range s.repsBroadcast {
		if count >= s.limits.MaxElectionBroadcasts {
			break
		}
		if alreadyVoted.Contains(rep.Account) {
			continue
		}
		rep.Channel.SendPublish(e.Winner)
		count++
	}
	if s.flood != nil {
		s.flood(e.Winner, 0.5)
	}
	return false
}

// Add stages a confirm_req (hash, root) pair for every representative who
// has not yet voted for the election's winner, dropping a representative
// for the rest of the round once its per-channel queue fills. Returns false
// (matching the C++ "add succeeded" convention) if at least one pair was
// queued.
func (s *Solicitor) Add(e Election) bool {
	if !s.prepared {
		panic("solicitor: Add called before Prepare")
	}
	maxChannelRequests := s.limits.MaxConfirmReqBatches * wire.MaxConfirmReqPairs
	hash := e.Winner.Hash()
	root := e.Winner.Root()
	alreadyVoted := AlreadyVotedSet(e.LastVotes, hash)

	count := 0
	kept := s.repsRequests[:0]
	for _, rep := range s.repsRequests {
		if count >= s.limits.MaxElectionRequests {
			kept = append(kept, rep)
			continue
		}
		if alreadyVoted.Contains(rep.Account) {
			kept = append(kept, rep)
			continue
		}
		rq, ok := s.requests[rep.Channel.Endpoint()]
		if !ok {
			rq = &channelRequests{channel: rep.Channel}
			s.requests[rep.Channel.Endpoint()] = rq
		}
		if len(rq.pairs) >= maxChannelRequests {
			// channel's queue is full; drop this representative for the
			// rest of the round, same as the reference implementation.
			continue
		}
		rq.pairs = append(rq.pairs, wire.HashRootPair{Hash: hash, Root: root})
		count++
		kept = append(kept, rep)
	}
	s.repsRequests = kept
	return count == 0
}

// Flush dispatches every staged confirm_req, split into batches of at most
// wire.MaxConfirmReqPairs pairs, and marks the solicitor unprepared; the
// staged requests are discarded by the next Prepare.
func (s *Solicitor) Flush() {
	if !s.prepared {
		panic("solicitor: Flush called before Prepare")
	}
	for _, rq := range s.requests {
		pairs := rq.pairs
		for len(pairs) > wire.MaxConfirmReqPairs {
			req, _ := wire.NewConfirmReq(pairs[:wire.MaxConfirmReqPairs])
			rq.channel.SendConfirmReq(req)
			pairs = pairs[wire.MaxConfirmReqPairs:]
		}
		if len(pairs) > 0 {
			req, _ := wire.NewConfirmReq(pairs)
			rq.channel.SendConfirmReq(req)
		}
	}
	s.prepared = false
}

// AlreadyVotedSet builds the set of representative accounts who have
// already voted for hash. Broadcast and Add both compute this once per call
// and skip any representative it contains.
func AlreadyVotedSet(lastVotes map[common.Account]common.Hash, hash common.Hash) mapset.Set[common.Account] {
	s := mapset.NewSet[common.Account]()
	for acc, voted := range lastVotes {
		if voted == hash {
			s.Add(acc)
		}
	}
	return s
}
