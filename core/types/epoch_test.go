package types

import "testing"

func TestIsSequential(t *testing.T) {
	cases := []struct {
		from, to Epoch
		want     bool
	}{
		{Epoch0, Epoch1, true},
		{Epoch0, Epoch2, false},
		{Epoch2, Epoch2, false},
		{Epoch1, Epoch2, true},
		{EpochUnspecified, Epoch1, false},
		{EpochUnspecified, Epoch0, false},
	}
	for _, c := range cases {
		if got := IsSequential(c.from, c.to); got != c.want {
			t.Errorf("IsSequential(%v, %v) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
