package solicitor

import (
	"testing"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/network/wire"
)

type fakeChannel struct {
	endpoint  string
	published []types.Block
	requests  []*wire.ConfirmReq
}

func (f *fakeChannel) Endpoint() string                  { return f.endpoint }
func (f *fakeChannel) SendPublish(b types.Block)         { f.published = append(f.published, b) }
func (f *fakeChannel) SendConfirmReq(r *wire.ConfirmReq) { f.requests = append(f.requests, r) }

func newWinner() types.Block {
	var acc, rep common.Account
	acc[0], rep[0] = 1, 2
	return types.NewOpenBlock(common.Hash{0x9}, rep, acc, nil, 0)
}

func TestBroadcastSkipsRepsWhoAlreadyVotedForWinner(t *testing.T) {
	var flooded int
	s := New(DefaultLimits(16), func(b types.Block, f float32) { flooded++ })
	winner := newWinner()

	var repA, repB common.Account
	repA[0], repB[0] = 10, 11
	chA := &fakeChannel{endpoint: "a"}
	chB := &fakeChannel{endpoint: "b"}

	s.Prepare([]Representative{{Account: repA, Channel: chA}, {Account: repB, Channel: chB}})
	election := Election{Winner: winner, LastVotes: map[common.Account]common.Hash{repA: winner.Hash()}}

	if s.Broadcast(election) {
		t.Fatal("expected broadcast to report success (false)")
	}

	if len(chA.published) != 0 {
		t.Fatalf("expected repA (already voted) to be skipped, got %d sends", len(chA.published))
	}
	if len(chB.published) != 1 {
		t.Fatalf("expected repB to receive the winner, got %d sends", len(chB.published))
	}
}

func TestAddThenFlushBatchesConfirmReq(t *testing.T) {
	s := New(Limits{MaxConfirmReqBatches: 1, MaxBlockBroadcasts: 4, MaxElectionRequests: 30, MaxElectionBroadcasts: 8}, nil)
	winner := newWinner()

	var rep common.Account
	rep[0] = 20
	ch := &fakeChannel{endpoint: "c"}

	s.Prepare([]Representative{{Account: rep, Channel: ch}})
	election := Election{Winner: winner, LastVotes: map[common.Account]common.Hash{}}

	if s.Add(election) {
		t.Fatal("expected Add to report at least one queued request (false)")
	}
	s.Flush()

	if len(ch.requests) != 1 {
		t.Fatalf("expected exactly one confirm_req batch, got %d", len(ch.requests))
	}
	if len(ch.requests[0].Pairs) != 1 {
		t.Fatalf("expected one pair in the batch, got %d", len(ch.requests[0].Pairs))
	}
}

func TestAddSkipsRepsWhoAlreadyVoted(t *testing.T) {
	var flooded int
	s := New(DefaultLimits(16), func(b types.Block, f float32) { flooded++ })
	winner := newWinner()

	var rep common.Account
	rep[0] = 30
	ch := &fakeChannel{endpoint: "d"}

	s.Prepare([]Representative{{Account: rep, Channel: ch}})
	election := Election{Winner: winner, LastVotes: map[common.Account]common.Hash{rep: winner.Hash()}}

	if !s.Add(election) {
		t.Fatal("expected Add to report nothing queued (true) since the rep already voted")
	}
	s.Flush()
	if len(ch.requests) != 0 {
		t.Fatalf("expected no confirm_req sent, got %d", len(ch.requests))
	}
}
