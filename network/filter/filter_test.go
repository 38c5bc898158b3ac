package filter

import "testing"

// TestDedupEleven mirrors spec §8 scenario 1: sending the same payload
// through a size=1 filter eleven times, only the first call returns false.
func TestDedupEleven(t *testing.T) {
	f := New(1)
	payload := []byte("genesis-open-publish")

	if dup := f.Apply(payload); dup {
		t.Fatal("first Apply must not report a duplicate")
	}
	for i := 0; i < 10; i++ {
		if dup := f.Apply(payload); !dup {
			t.Fatalf("call %d: expected duplicate", i+2)
		}
	}
}

func TestOverwriteOnCollision(t *testing.T) {
	f := New(1)
	a := []byte("a")
	b := []byte("b")

	if dup := f.Apply(a); dup {
		t.Fatal("first Apply(a) must not be a duplicate")
	}
	// b lands on the same (only) slot and overwrites it, so re-applying a
	// now reports as new, not a duplicate.
	f.Apply(b)
	if dup := f.Apply(a); dup {
		t.Fatal("a should read as new again after b overwrote its shared slot")
	}
}

func TestClear(t *testing.T) {
	f := New(4)
	payload := []byte("x")
	f.Apply(payload)
	f.Clear(payload)
	if dup := f.Apply(payload); dup {
		t.Fatal("cleared entry must not be reported as a duplicate")
	}
}
