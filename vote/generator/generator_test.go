package generator

import (
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/alarm"
)

func newTestGenerator(t *testing.T, delay time.Duration) (*Generator, *sync.Mutex, *[]*types.Vote, func()) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var account common.Account
	copy(account[:], pub)

	a := alarm.New()
	var mu sync.Mutex
	var votes []*types.Vote
	g := New(Config{
		Account:    account,
		PrivateKey: priv,
		Delay:      delay,
		Alarm:      a,
		Broadcast: func(v *types.Vote) {
			mu.Lock()
			votes = append(votes, v)
			mu.Unlock()
		},
	})
	return g, &mu, &votes, a.Stop
}

func TestAddFlushesAtMaxHashes(t *testing.T) {
	g, mu, votes, stop := newTestGenerator(t, time.Hour)
	defer stop()

	for i := 0; i < types.MaxVoteHashes; i++ {
		var h common.Hash
		h[0] = byte(i + 1)
		g.Add(h)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*votes) != 1 {
		t.Fatalf("expected exactly one vote once the batch filled, got %d", len(*votes))
	}
	if len((*votes)[0].Hashes) != types.MaxVoteHashes {
		t.Fatalf("expected %d hashes in the batch, got %d", types.MaxVoteHashes, len((*votes)[0].Hashes))
	}
	if !(*votes)[0].Verify() {
		t.Fatal("expected a validly signed vote")
	}
}

func TestAddFlushesAfterDelay(t *testing.T) {
	g, mu, votes, stop := newTestGenerator(t, 30*time.Millisecond)
	defer stop()

	var h common.Hash
	h[0] = 1
	g.Add(h)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(*votes)
		mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for delay-triggered flush")
}
