package metrics

import "testing"

func TestNewRegistersWithoutPanicking(t *testing.T) {
	m := New()
	m.BlocksProcessed.WithLabelValues("progress").Inc()
	m.VotesAdmitted.WithLabelValues("principal").Inc()
	m.BootstrapPullsInFlight.Set(3)

	gathered, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(gathered) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}
