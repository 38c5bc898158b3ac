package ledger

import (
	"testing"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/store/memstore"
)

func newLedger() *Ledger {
	return &Ledger{Weights: repweights.New(), Epochs: types.EpochTable{}}
}

func seedPending(t *testing.T, db store.Store, dest common.Account, sendHash common.Hash, amount common.Amount) {
	t.Helper()
	txn := db.TxBeginWrite(store.TablePending)
	txn.Pending().Put(types.PendingKey{Destination: dest, SendHash: sendHash}, types.PendingInfo{
		Source: common.Account{0xaa},
		Amount: amount,
		Epoch:  types.Epoch0,
	})
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestProcessOpenProgress(t *testing.T) {
	db := memstore.New()
	var acc common.Account
	acc[0] = 1
	var source common.Hash
	source[0] = 2

	seedPending(t, db, acc, source, common.NewAmount(100))

	l := newLedger()
	open := types.NewOpenBlock(source, common.Account{0xbb}, acc, nil, 0)

	txn := db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	res := l.ProcessOne(txn, open, types.SigValid)
	if res != Progress {
		t.Fatalf("expected progress, got %v", res)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	read := db.TxBeginRead()
	defer read.Rollback()
	info, ok := read.Accounts().Get(acc)
	if !ok {
		t.Fatal("account not created")
	}
	if info.Balance.Cmp(common.NewAmount(100)) != 0 {
		t.Fatalf("unexpected balance: %s", info.Balance)
	}
	if info.Head != open.Hash() {
		t.Fatal("head not set to open block")
	}
}

func TestProcessOpenGapSourceWhenPendingMissing(t *testing.T) {
	db := memstore.New()
	var acc common.Account
	acc[0] = 1
	var source common.Hash
	source[0] = 9

	l := newLedger()
	open := types.NewOpenBlock(source, common.Account{0xbb}, acc, nil, 0)

	txn := db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	defer txn.Rollback()
	if res := l.ProcessOne(txn, open, types.SigValid); res != GapSource {
		t.Fatalf("expected gap_source, got %v", res)
	}
}

func TestProcessOpenBurnAccount(t *testing.T) {
	l := newLedger()
	db := memstore.New()
	var source common.Hash
	source[0] = 3
	open := types.NewOpenBlock(source, common.Account{0xbb}, common.ZeroAccount, nil, 0)

	txn := db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	defer txn.Rollback()
	if res := l.ProcessOne(txn, open, types.SigValid); res != OpenedBurnAccount {
		t.Fatalf("expected opened_burn_account, got %v", res)
	}
}

func TestProcessSendThenReceive(t *testing.T) {
	db := memstore.New()
	var acc common.Account
	acc[0] = 1
	var source common.Hash
	source[0] = 2
	l := newLedger()

	seedPending(t, db, acc, source, common.NewAmount(100))
	open := types.NewOpenBlock(source, common.Account{0xbb}, acc, nil, 0)

	txn := db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	if res := l.ProcessOne(txn, open, types.SigValid); res != Progress {
		t.Fatalf("open: expected progress, got %v", res)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	var dest common.Account
	dest[0] = 5
	send := types.NewSendBlock(open.Hash(), dest, common.NewAmount(40), nil, 0)

	txn = db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	if res := l.ProcessOne(txn, send, types.SigValid); res != Progress {
		t.Fatalf("send: expected progress, got %v", res)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	seedPending(t, db, dest, send.Hash(), common.Amount{})

	recvOpen := types.NewOpenBlock(send.Hash(), common.Account{0xcc}, dest, nil, 0)
	txn = db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	res := l.ProcessOne(txn, recvOpen, types.SigValid)
	if res != Progress {
		t.Fatalf("receive-open: expected progress, got %v", res)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	read := db.TxBeginRead()
	defer read.Rollback()
	senderInfo, _ := read.Accounts().Get(acc)
	if senderInfo.Balance.Cmp(common.NewAmount(40)) != 0 {
		t.Fatalf("sender balance after send: %s", senderInfo.Balance)
	}
}

func TestProcessSendNegativeSpend(t *testing.T) {
	db := memstore.New()
	var acc common.Account
	acc[0] = 1
	var source common.Hash
	source[0] = 2
	l := newLedger()

	seedPending(t, db, acc, source, common.NewAmount(10))
	open := types.NewOpenBlock(source, common.Account{0xbb}, acc, nil, 0)
	txn := db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	l.ProcessOne(txn, open, types.SigValid)
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	var dest common.Account
	dest[0] = 5
	send := types.NewSendBlock(open.Hash(), dest, common.NewAmount(50), nil, 0)
	txn = db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	defer txn.Rollback()
	if res := l.ProcessOne(txn, send, types.SigValid); res != NegativeSpend {
		t.Fatalf("expected negative_spend, got %v", res)
	}
}

func TestProcessBadSignature(t *testing.T) {
	l := newLedger()
	db := memstore.New()
	var source common.Hash
	source[0] = 1
	open := types.NewOpenBlock(source, common.Account{0xbb}, common.Account{0x01}, nil, 0)
	txn := db.TxBeginWrite(store.TableAccount, store.TableBlock, store.TablePending)
	defer txn.Rollback()
	if res := l.ProcessOne(txn, open, types.SigInvalid); res != BadSignature {
		t.Fatalf("expected bad_signature, got %v", res)
	}
}
