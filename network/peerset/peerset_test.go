package peerset

import (
	"testing"
	"time"
)

// TestExclusionGrowth mirrors spec §8 scenario 4.
func TestExclusionGrowth(t *testing.T) {
	s := New(5000, 10000)
	fake := time.Now()
	s.now = func() time.Time { return fake }

	s.Add("peer1")
	if s.Check("peer1") {
		t.Fatal("single hit must not exclude")
	}

	s.Add("peer1")
	if !s.Check("peer1") {
		t.Fatal("second hit should exclude for 1 hour")
	}

	fake = fake.Add(61 * time.Minute)
	if s.Check("peer1") {
		t.Fatal("exclusion window should have lapsed")
	}
	if s.Len() != 1 {
		t.Fatal("entry should still be tracked during its grace window")
	}

	fake = fake.Add(2*time.Hour + time.Minute)
	if s.Check("peer1") {
		t.Fatal("should not be excluded")
	}
	if s.Len() != 0 {
		t.Fatal("entry should be evicted once the grace window elapses")
	}
}
