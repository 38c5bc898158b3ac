package bulkpull

import (
	"testing"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/store/memstore"
)

type fakeTransport struct {
	blocks []types.Block
	i      int
}

func (f *fakeTransport) Next() (types.Block, bool, error) {
	if f.i >= len(f.blocks) {
		return nil, false, nil
	}
	b := f.blocks[f.i]
	f.i++
	return b, true, nil
}

func buildChain(account common.Account) []types.Block {
	open := types.NewOpenBlock(common.Hash{0xaa}, common.Account{0xbb}, account, nil, 0)
	send := types.NewSendBlock(open.Hash(), common.Account{0xcc}, common.NewAmount(90), nil, 0)
	// server streams newest-first: send, then open
	return []types.Block{send, open}
}

func TestClientForwardsChainedBlocks(t *testing.T) {
	var account common.Account
	account[0] = 1
	chain := buildChain(account)

	var received []types.Block
	transport := &fakeTransport{blocks: chain}
	pull := attempt.NewPullInfo(common.Hash(account), chain[0].Hash(), chain[len(chain)-1].Hash(), "boot-1", 16)

	c := NewClient(transport, func(b types.Block) { received = append(received, b) }, pull)
	n, err := c.Run()
	if err != nil {
		t.Fatal(err)
	}
	if n != uint64(len(chain)) || len(received) != len(chain) {
		t.Fatalf("expected %d blocks forwarded, got %d (received %d)", len(chain), n, len(received))
	}
}

func TestClientRejectsBrokenChain(t *testing.T) {
	var account common.Account
	account[0] = 1
	chain := buildChain(account)
	// swap order so the first block doesn't match pull.Head
	broken := []types.Block{chain[1], chain[0]}

	transport := &fakeTransport{blocks: broken}
	pull := attempt.NewPullInfo(common.Hash(account), chain[0].Hash(), chain[len(chain)-1].Hash(), "boot-1", 16)
	c := NewClient(transport, func(types.Block) {}, pull)
	if _, err := c.Run(); err != ErrUnexpectedBlock {
		t.Fatalf("expected ErrUnexpectedBlock, got %v", err)
	}
}

func TestServerStreamsNewestFirst(t *testing.T) {
	db := memstore.New()
	var account common.Account
	account[0] = 2
	chain := buildChain(account)

	txn := db.TxBeginWrite(store.TableBlock)
	for _, b := range chain {
		txn.Blocks().Put(b.Hash(), b, account)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	s := NewServer(db, nil, common.Hash(account), chain[0].Hash(), chain[len(chain)-1].Hash(), 0, true)
	var streamed []types.Block
	for {
		b, ok, err := s.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		streamed = append(streamed, b)
	}
	if len(streamed) != len(chain) {
		t.Fatalf("expected %d blocks streamed, got %d", len(chain), len(streamed))
	}
	if streamed[0].Hash() != chain[0].Hash() {
		t.Fatal("expected newest block streamed first")
	}
}
