package aggregator

import (
	"sync"
	"testing"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/network/wire"
)

type fakeChannel struct{ endpoint string }

func (f *fakeChannel) Endpoint() string { return f.endpoint }

func TestAddCoalescesWithinSmallDelay(t *testing.T) {
	var mu sync.Mutex
	var dispatched [][]wire.HashRootPair

	a := New(Config{
		SmallDelay: 30 * time.Millisecond,
		MaxDelay:   300 * time.Millisecond,
		Dispatcher: func(ch Channel, pairs []wire.HashRootPair) {
			mu.Lock()
			dispatched = append(dispatched, pairs)
			mu.Unlock()
		},
	})
	go a.Run()
	defer a.Stop()

	ch := &fakeChannel{endpoint: "peer1"}
	var h1, h2, r common.Hash
	h1[0], h2[0] = 1, 2

	a.Add(ch, []wire.HashRootPair{{Hash: h1, Root: r}})
	a.Add(ch, []wire.HashRootPair{{Hash: h2, Root: r}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(dispatched)
		mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(dispatched) != 1 {
		t.Fatalf("expected exactly one dispatch batching both requests, got %d", len(dispatched))
	}
	if len(dispatched[0]) != 2 {
		t.Fatalf("expected 2 coalesced pairs, got %d", len(dispatched[0]))
	}
}

func TestAddDeduplicatesSameHash(t *testing.T) {
	a := New(Config{SmallDelay: time.Hour, Dispatcher: func(Channel, []wire.HashRootPair) {}})
	ch := &fakeChannel{endpoint: "peer2"}
	var h, r common.Hash
	h[0] = 5

	a.Add(ch, []wire.HashRootPair{{Hash: h, Root: r}})
	a.Add(ch, []wire.HashRootPair{{Hash: h, Root: r}})

	a.mu.Lock()
	n := len(a.byEndpoint[ch.Endpoint()].pairs)
	a.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected duplicate hash to be ignored, got %d pairs", n)
	}
}

func TestAddDropsOldestWhenChannelFull(t *testing.T) {
	a := New(Config{SmallDelay: time.Hour, MaxChannelRequests: 2, Dispatcher: func(Channel, []wire.HashRootPair) {}})
	ch := &fakeChannel{endpoint: "peer3"}
	var r common.Hash

	for i := 0; i < 3; i++ {
		var h common.Hash
		h[0] = byte(i + 1)
		a.Add(ch, []wire.HashRootPair{{Hash: h, Root: r}})
	}

	a.mu.Lock()
	pairs := a.byEndpoint[ch.Endpoint()].pairs
	a.mu.Unlock()
	if len(pairs) != 2 {
		t.Fatalf("expected pool capped at 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Hash[0] != 2 {
		t.Fatalf("expected the oldest pair (hash 1) to have been dropped, got first hash byte %d", pairs[0].Hash[0])
	}
}
