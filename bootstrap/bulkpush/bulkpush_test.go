package bulkpush

import (
	"testing"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/store/memstore"
)

type fakeSender struct{ sent []types.Block }

func (f *fakeSender) SendBlock(b types.Block) error {
	f.sent = append(f.sent, b)
	return nil
}

func TestClientPushesOldestFirst(t *testing.T) {
	db := memstore.New()
	var account common.Account
	account[0] = 1
	open := types.NewOpenBlock(common.Hash{0xaa}, common.Account{0xbb}, account, nil, 0)
	send := types.NewSendBlock(open.Hash(), common.Account{0xcc}, common.NewAmount(90), nil, 0)

	txn := db.TxBeginWrite(store.TableBlock)
	txn.Blocks().Put(open.Hash(), open, account)
	txn.Blocks().Put(send.Hash(), send, account)
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	c := NewClient(db, sender, []Target{{Start: send.Hash(), End: common.ZeroHash}})
	n, err := c.Run()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 blocks pushed, got %d", n)
	}
	if sender.sent[0].Hash() != open.Hash() {
		t.Fatal("expected the open block to be pushed before the send block")
	}
	if sender.sent[1].Hash() != send.Hash() {
		t.Fatal("expected the send block pushed second")
	}
}
