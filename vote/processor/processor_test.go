package processor

import (
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/crypto/sigcheck"
)

func signedVote(t *testing.T, seq uint64, hash common.Hash) (*types.Vote, common.Account) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var account common.Account
	copy(account[:], pub)
	v, err := types.NewVote(account, seq, []common.Hash{hash}, nil)
	if err != nil {
		t.Fatal(err)
	}
	v.Sig = ed25519.Sign(priv, v.SigningBytes())
	return v, account
}

func TestAdmitForwardsValidVote(t *testing.T) {
	weights := repweights.New()
	var hash common.Hash
	hash[0] = 1
	v, account := signedVote(t, 1, hash)
	weights.Set(account, common.NewAmount(1000))

	var mu sync.Mutex
	var forwarded []common.Hash

	p := New(Config{
		Weights:    weights,
		Thresholds: Thresholds{Principal: common.NewAmount(500), Ordinary: common.NewAmount(100)},
		Checker:    sigcheck.New(1),
		Insert: func(v *types.Vote) []common.Hash {
			return v.Hashes
		},
		Downstream: func(v *types.Vote, newHashes []common.Hash) {
			mu.Lock()
			forwarded = append(forwarded, newHashes...)
			mu.Unlock()
		},
	})
	go p.Run()
	defer p.Stop()

	if !p.Admit(v) {
		t.Fatal("expected vote to be admitted")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(forwarded)
		mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for vote to be forwarded")
}

func TestAdmitDropsUnweightedUnderLoad(t *testing.T) {
	weights := repweights.New()
	p := New(Config{
		Weights:    weights,
		Thresholds: Thresholds{Principal: common.NewAmount(500), Ordinary: common.NewAmount(100)},
		Checker:    sigcheck.New(1),
		Capacity:   4,
	})

	// Fill the queue to the principal high-water mark without a Run loop
	// draining it, then confirm a TierNone vote is rejected.
	for i := 0; i < 4; i++ {
		var h common.Hash
		h[0] = byte(i)
		v, _ := signedVote(t, 1, h)
		p.queue <- queued{vote: v, tier: TierPrincipal}
	}

	var h common.Hash
	h[0] = 99
	v, _ := signedVote(t, 1, h)
	if p.Admit(v) {
		t.Fatal("expected TierNone vote to be dropped once queue is full")
	}
}
