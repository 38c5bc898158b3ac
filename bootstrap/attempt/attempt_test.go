package attempt

import (
	"testing"

	"github.com/vaultchain/vaultchain/common"
)

func TestPullLifecycleTracksCounts(t *testing.T) {
	a := New(ModeLegacy, 1, "")
	if a.ID == "" {
		t.Fatal("expected a generated bootstrap id")
	}
	a.Start()
	a.PullStarted()
	a.PullStarted()
	if !a.StillPulling() {
		t.Fatal("expected StillPulling to be true with 2 outstanding pulls")
	}
	a.PullFinished(10)
	a.PullFinished(5)
	if a.StillPulling() {
		t.Fatal("expected StillPulling to be false once all pulls finish")
	}
	if got := a.TotalBlocks(); got != 15 {
		t.Fatalf("expected 15 total blocks, got %d", got)
	}
}

func TestPullInfoExhaustion(t *testing.T) {
	p := NewPullInfo(common.Hash{1}, common.Hash{2}, common.Hash{3}, "boot-1", 2)
	if p.Exhausted() {
		t.Fatal("expected fresh pull to not be exhausted")
	}
	p.Attempts = 2
	if !p.Exhausted() {
		t.Fatal("expected pull at its retry limit to be exhausted")
	}
}

func TestLegacyFrontierQueue(t *testing.T) {
	l := NewLegacy(1, "")
	l.AddFrontier(NewPullInfo(common.Hash{1}, common.Hash{}, common.Hash{}, l.ID, 0))
	l.AddFrontier(NewPullInfo(common.Hash{2}, common.Hash{}, common.Hash{}, l.ID, 0))
	if n := l.PendingFrontierPulls(); n != 2 {
		t.Fatalf("expected 2 pending pulls, got %d", n)
	}
	first, ok := l.NextFrontierPull()
	if !ok || first.AccountOrHead != (common.Hash{1}) {
		t.Fatalf("expected FIFO order, got %v ok=%v", first, ok)
	}
}

func TestLazyDeduplicatesProcessed(t *testing.T) {
	l := NewLazy(1, "")
	var h common.Hash
	h[0] = 7
	l.LazyStart(h)
	l.LazyMarkProcessed(h)
	if !l.LazyProcessedOrExists(h) {
		t.Fatal("expected hash to be marked processed")
	}
	l.LazyStart(h)
	batch := l.LazyNextBatch()
	if len(batch) != 0 {
		t.Fatalf("expected no hashes in the batch since it was already processed, got %d", len(batch))
	}
}

func TestWalletQueue(t *testing.T) {
	w := NewWallet(1, "")
	var acc1, acc2 common.Account
	acc1[0], acc2[0] = 1, 2
	w.WalletStart([]common.Account{acc1, acc2})
	if w.WalletSize() != 2 {
		t.Fatalf("expected 2 queued accounts, got %d", w.WalletSize())
	}
	next, ok := w.WalletNext()
	if !ok || next != acc1 {
		t.Fatalf("expected FIFO order, got %v ok=%v", next, ok)
	}
}
