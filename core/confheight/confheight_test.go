package confheight

import (
	"testing"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/internal/writequeue"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/store/memstore"
)

// buildChain writes a 5-block open+send+send+send+send chain for account
// directly into the store, bypassing the ledger (confheight only needs
// Blocks()/Accounts()/ConfirmationHeight(), not ledger validation).
func buildChain(t *testing.T, db store.Store, account common.Account) []common.Hash {
	t.Helper()

	open := types.NewOpenBlock(common.Hash{0xaa}, common.Account{0xbb}, account, nil, 0)
	hashes := []common.Hash{open.Hash()}
	blockOf := map[common.Hash]types.Block{open.Hash(): open}

	prevHash := open.Hash()
	for i := 0; i < 4; i++ {
		var dest common.Account
		dest[0] = byte(i + 1)
		blk := types.NewSendBlock(prevHash, dest, common.NewAmount(uint64(100-i*10)), nil, 0)
		blockOf[blk.Hash()] = blk
		hashes = append(hashes, blk.Hash())
		prevHash = blk.Hash()
	}

	txn := db.TxBeginWrite(store.TableBlock, store.TableAccount)
	for h, b := range blockOf {
		txn.Blocks().Put(h, b, account)
	}
	txn.Accounts().Put(account, types.AccountInfo{Head: prevHash, Open: open.Hash(), BlockCount: uint64(len(hashes))})
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}
	return hashes
}

func TestConfirmMonotonicAscendingHeights(t *testing.T) {
	db := memstore.New()
	var account common.Account
	account[0] = 7
	chain := buildChain(t, db, account)

	p := New(Config{Store: db, WriteQueue: writequeue.New(), StartMode: Bounded})

	var heights []uint64
	p.OnCemented(func(c Cemented) { heights = append(heights, c.Height) })

	p.Confirm(account, chain[len(chain)-1])

	if len(heights) != len(chain) {
		t.Fatalf("expected %d cemented callbacks, got %d", len(chain), len(heights))
	}
	for i := 1; i < len(heights); i++ {
		if heights[i] <= heights[i-1] {
			t.Fatalf("heights not strictly ascending: %v", heights)
		}
	}

	read := db.TxBeginRead()
	defer read.Rollback()
	info, ok := read.ConfirmationHeight().Get(account)
	if !ok {
		t.Fatal("expected a confirmation height record")
	}
	if info.Frontier != chain[len(chain)-1] {
		t.Fatalf("frontier mismatch: got %v want %v", info.Frontier, chain[len(chain)-1])
	}
	if info.Height != uint64(len(chain)) {
		t.Fatalf("height mismatch: got %d want %d", info.Height, len(chain))
	}
}

func TestConfirmAlreadyCemented(t *testing.T) {
	db := memstore.New()
	var account common.Account
	account[0] = 9
	chain := buildChain(t, db, account)

	p := New(Config{Store: db, WriteQueue: writequeue.New(), StartMode: Bounded})
	p.Confirm(account, chain[len(chain)-1])

	var already []Cemented
	p.OnAlreadyCemented(func(c Cemented) { already = append(already, c) })
	p.Confirm(account, chain[len(chain)-1])

	if len(already) != 1 {
		t.Fatalf("expected exactly one already-cemented callback, got %d", len(already))
	}
}

// TestConfirmUnboundedRecursesIntoReceiveSource builds a wide-but-short
// pending graph: account B's one-block chain (an open block) receives from
// account A's two-block chain (an open, then a send). Confirming only B's frontier in
// unbounded mode must also cement A's send, since B's open depends on it
// (spec §4.6).
func TestConfirmUnboundedRecursesIntoReceiveSource(t *testing.T) {
	db := memstore.New()

	var sender common.Account
	sender[0] = 1
	var receiver common.Account
	receiver[0] = 2

	senderOpen := types.NewOpenBlock(common.Hash{0xaa}, common.Account{0xcc}, sender, nil, 0)
	send := types.NewSendBlock(senderOpen.Hash(), receiver, common.NewAmount(50), nil, 0)
	receiverOpen := types.NewOpenBlock(send.Hash(), common.Account{0xbb}, receiver, nil, 0)

	txn := db.TxBeginWrite(store.TableBlock, store.TableAccount)
	txn.Blocks().Put(senderOpen.Hash(), senderOpen, sender)
	txn.Blocks().Put(send.Hash(), send, sender)
	txn.Blocks().Put(receiverOpen.Hash(), receiverOpen, receiver)
	txn.Accounts().Put(sender, types.AccountInfo{Head: send.Hash(), Open: senderOpen.Hash(), BlockCount: 2})
	txn.Accounts().Put(receiver, types.AccountInfo{Head: receiverOpen.Hash(), Open: receiverOpen.Hash(), BlockCount: 1})
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	p := New(Config{Store: db, WriteQueue: writequeue.New(), StartMode: Unbounded})

	var cemented []Cemented
	p.OnCemented(func(c Cemented) { cemented = append(cemented, c) })

	p.Confirm(receiver, receiverOpen.Hash())
	p.Flush()

	// receiver's open block plus both of the sender's blocks (its own open
	// and the send receiverOpen depends on) must all cement in one pass.
	if len(cemented) != 3 {
		t.Fatalf("expected 3 cemented callbacks (sender's chain plus the receive), got %d: %+v", len(cemented), cemented)
	}

	read := db.TxBeginRead()
	defer read.Rollback()
	senderHeight, ok := read.ConfirmationHeight().Get(sender)
	if !ok || senderHeight.Frontier != send.Hash() {
		t.Fatalf("expected sender's chain cemented via source recursion, got %+v ok=%v", senderHeight, ok)
	}
	receiverHeight, ok := read.ConfirmationHeight().Get(receiver)
	if !ok || receiverHeight.Frontier != receiverOpen.Hash() {
		t.Fatalf("expected receiver's open block cemented, got %+v ok=%v", receiverHeight, ok)
	}
}
