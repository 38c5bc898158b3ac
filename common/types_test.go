package common

import "testing"

func TestAmountSub(t *testing.T) {
	a := NewAmount(10)
	b := NewAmount(3)
	r, ok := a.Sub(b)
	if !ok || r.Cmp(NewAmount(7)) != 0 {
		t.Fatalf("expected 7, got %v ok=%v", r, ok)
	}
	if _, ok := b.Sub(a); ok {
		t.Fatalf("expected negative-spend detection to fail the subtraction")
	}
}

func TestHashRoundTrip(t *testing.T) {
	h := BytesToHash([]byte{1, 2, 3})
	s := h.String()
	h2, err := HashFromHex(s)
	if err != nil {
		t.Fatal(err)
	}
	if h != h2 {
		t.Fatalf("round trip mismatch: %v != %v", h, h2)
	}
}

func TestAccountAsRoot(t *testing.T) {
	var a Account
	a[0] = 0xff
	if Hash(a) != a.AsRoot() {
		t.Fatalf("AsRoot must be a bit-identical view of the account key")
	}
}
