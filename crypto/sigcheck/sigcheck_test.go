package sigcheck

import (
	"crypto/ed25519"
	"testing"
)

func TestVerifyBatch(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	msg := []byte("hello")
	sig := ed25519.Sign(priv, msg)

	var b Batch
	b.Messages = append(b.Messages, msg)
	var key [32]byte
	copy(key[:], pub)
	b.Keys = append(b.Keys, key)
	b.Sigs = append(b.Sigs, sig)

	// corrupt a second entry
	b.Messages = append(b.Messages, msg)
	b.Keys = append(b.Keys, key)
	bad := append([]byte(nil), sig...)
	bad[0] ^= 0xff
	b.Sigs = append(b.Sigs, bad)

	for _, workers := range []int{1, 4} {
		c := New(workers)
		out := make([]Result, b.Len())
		c.Verify(b, out)
		c.Stop()
		if out[0] != Valid {
			t.Fatalf("workers=%d: expected valid, got %v", workers, out[0])
		}
		if out[1] != Invalid {
			t.Fatalf("workers=%d: expected invalid, got %v", workers, out[1])
		}
	}
}
