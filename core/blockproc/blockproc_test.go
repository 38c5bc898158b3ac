package blockproc

import (
	"context"
	"testing"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/ledger"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/writequeue"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/store/memstore"
)

func TestProcessorAppliesOpenBlock(t *testing.T) {
	db := memstore.New()
	l := newTestLedger(t)

	p := New(Config{
		Store:      db,
		Ledger:     l,
		WriteQueue: writequeue.New(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	var acc common.Account
	acc[0] = 1
	var source common.Hash
	source[0] = 2

	seed := db.TxBeginWrite(store.TablePending)
	seed.Pending().Put(types.PendingKey{Destination: acc, SendHash: source}, types.PendingInfo{
		Source: common.Account{0xaa}, Amount: common.NewAmount(5), Epoch: types.Epoch0,
	})
	if err := seed.Commit(); err != nil {
		t.Fatal(err)
	}

	open := types.NewOpenBlock(source, common.Account{0xbb}, acc, nil, 0)
	p.Process(open, types.SigValid, true)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case res := <-p.Results():
			if res.Result != ledger.Progress {
				t.Fatalf("expected progress, got %v", res.Result)
			}
			return
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatal("timed out waiting for a result")
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	return &ledger.Ledger{Weights: repweights.New(), Epochs: types.EpochTable{}}
}
