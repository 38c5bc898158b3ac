package verifier

import (
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/crypto"
	"github.com/vaultchain/vaultchain/crypto/sigcheck"
)

func TestStageClassifiesValidAndInvalidSignatures(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var acc common.Account
	copy(acc[:], pub)

	good := types.NewOpenBlock(common.Hash{1}, common.Account{2}, acc, nil, 0)
	good.Sig = crypto.Sign(priv, good.Hash().Bytes())

	bad := types.NewOpenBlock(common.Hash{3}, common.Account{4}, acc, nil, 0)
	bad.Sig = make([]byte, ed25519.SignatureSize)

	var mu sync.Mutex
	results := map[common.Hash]types.SigStatus{}

	s := New(Config{
		Checker:          sigcheck.New(1),
		Epochs:           types.EpochTable{},
		VerificationSize: 8,
		Downstream: func(block types.Block, sig types.SigStatus) {
			mu.Lock()
			results[block.Hash()] = sig
			mu.Unlock()
		},
	})
	go s.Run()
	defer s.Stop()

	s.Submit(good)
	s.Submit(bad)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(results)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if results[good.Hash()] != types.SigValid {
		t.Fatalf("expected valid signature, got %v", results[good.Hash()])
	}
	if results[bad.Hash()] != types.SigInvalid {
		t.Fatalf("expected invalid signature, got %v", results[bad.Hash()])
	}
}
