package frontier

import (
	"testing"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/network/wire"
	"github.com/vaultchain/vaultchain/store"
	"github.com/vaultchain/vaultchain/store/memstore"
)

type fakeTransport struct {
	pairs []wire.FrontierPair
	i     int
}

func (f *fakeTransport) Next() (wire.FrontierPair, bool, error) {
	if f.i >= len(f.pairs) {
		return wire.FrontierPair{}, false, nil
	}
	p := f.pairs[f.i]
	f.i++
	return p, true, nil
}

type fakeLedger struct {
	heads map[common.Account]common.Hash
}

func (l *fakeLedger) Head(account common.Account) (common.Hash, bool) {
	h, ok := l.heads[account]
	return h, ok
}

func TestClientPullsUnknownAccount(t *testing.T) {
	var acct common.Account
	acct[0] = 1
	transport := &fakeTransport{pairs: []wire.FrontierPair{
		{Account: acct, Head: common.Hash{0xaa}},
		{}, // terminator
	}}
	legacy := attempt.NewLegacy(1, "boot-1")
	c := NewClient(transport, &fakeLedger{heads: map[common.Account]common.Hash{}}, legacy)
	n, err := c.Run()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pair classified, got %d", n)
	}
	pull, ok := legacy.NextFrontierPull()
	if !ok {
		t.Fatal("expected a queued frontier pull for the unknown account")
	}
	if pull.Head != (common.Hash{0xaa}) {
		t.Fatalf("expected pull head to match the reported frontier, got %v", pull.Head)
	}
}

func TestClientPushesWhenPeerMissingAccount(t *testing.T) {
	var acct common.Account
	acct[0] = 2
	transport := &fakeTransport{pairs: []wire.FrontierPair{
		{Account: acct, Head: common.ZeroHash},
		{},
	}}
	legacy := attempt.NewLegacy(1, "boot-1")
	localHead := common.Hash{0xbb}
	c := NewClient(transport, &fakeLedger{heads: map[common.Account]common.Hash{acct: localHead}}, legacy)
	if _, err := c.Run(); err != nil {
		t.Fatal(err)
	}
	targets := c.PushTargets()
	if len(targets) != 1 || targets[0].Start != localHead {
		t.Fatalf("expected one push target starting at the local head, got %+v", targets)
	}
	if c.BulkPushCost() == 0 {
		t.Fatal("expected a nonzero push cost estimate")
	}
}

func TestServerStreamsSortedWithTerminator(t *testing.T) {
	db := memstore.New()
	var a1, a2 common.Account
	a1[0] = 1
	a2[0] = 2

	txn := db.TxBeginWrite(store.TableAccount)
	txn.Accounts().Put(a2, types.AccountInfo{Head: common.Hash{0x22}})
	txn.Accounts().Put(a1, types.AccountInfo{Head: common.Hash{0x11}})
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	s := NewServer(db, wire.FrontierReq{})
	first, ok, err := s.Next()
	if err != nil || !ok || first.Account != a1 {
		t.Fatalf("expected a1 first, got %+v ok=%v err=%v", first, ok, err)
	}
	second, ok, err := s.Next()
	if err != nil || !ok || second.Account != a2 {
		t.Fatalf("expected a2 second, got %+v ok=%v err=%v", second, ok, err)
	}
	term, ok, err := s.Next()
	if err != nil || !ok || !term.Account.IsZero() {
		t.Fatalf("expected the terminating zero pair, got %+v ok=%v err=%v", term, ok, err)
	}
	_, ok, _ = s.Next()
	if ok {
		t.Fatal("expected no further pairs after the terminator")
	}
}
