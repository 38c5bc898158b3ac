package connections

import (
	"testing"

	"github.com/vaultchain/vaultchain/bootstrap/attempt"
	"github.com/vaultchain/vaultchain/common"
)

type fakeClient struct {
	endpoint string
	closed   bool
}

func (f *fakeClient) Endpoint() string { return f.endpoint }
func (f *fakeClient) Close()           { f.closed = true }

func TestTargetConnectionsScalesWithBacklog(t *testing.T) {
	p := New(Config{MinConnections: 2, MaxConnections: 16})
	if got := p.TargetConnections(0, 1); got != 2 {
		t.Fatalf("expected min connections with no backlog, got %d", got)
	}
	if got := p.TargetConnections(1000, 1); got != 16 {
		t.Fatalf("expected capped at max connections with a huge backlog, got %d", got)
	}
}

func TestConnectionDialsUpToMax(t *testing.T) {
	dials := 0
	p := New(Config{MaxConnections: 2, Dialer: func() (Client, error) {
		dials++
		return &fakeClient{endpoint: "x"}, nil
	}})
	c1, err := p.Connection()
	if err != nil || c1 == nil {
		t.Fatalf("expected a dialed connection, got %v %v", c1, err)
	}
	c2, err := p.Connection()
	if err != nil || c2 == nil {
		t.Fatalf("expected a second dialed connection, got %v %v", c2, err)
	}
	c3, err := p.Connection()
	if err != nil || c3 != nil {
		t.Fatalf("expected nil once at capacity, got %v %v", c3, err)
	}
	if dials != 2 {
		t.Fatalf("expected exactly 2 dials, got %d", dials)
	}
}

func TestPoolConnectionReuseAndClose(t *testing.T) {
	p := New(Config{MaxConnections: 1, Dialer: func() (Client, error) {
		return &fakeClient{endpoint: "x"}, nil
	}})
	c, _ := p.Connection()
	p.PoolConnection(c, true)
	if p.ConnectionsCount() != 1 {
		t.Fatalf("expected count to remain 1 after pooling for reuse, got %d", p.ConnectionsCount())
	}
	reused, err := p.Connection()
	if err != nil || reused != c {
		t.Fatalf("expected the pooled connection to be reused, got %v %v", reused, err)
	}

	p.PoolConnection(c, false)
	if p.ConnectionsCount() != 0 {
		t.Fatalf("expected count to drop to 0 after a non-reusable close, got %d", p.ConnectionsCount())
	}
	if !c.(*fakeClient).closed {
		t.Fatal("expected the client to have been closed")
	}
}

func TestRequeuePullIncrementsAttempts(t *testing.T) {
	p := New(Config{})
	pull := attempt.NewPullInfo(common.Hash{1}, common.Hash{}, common.Hash{}, "boot-1", 16)
	p.AddPull(pull)
	got, ok := p.NextPull()
	if !ok {
		t.Fatal("expected to pop the queued pull")
	}
	p.RequeuePull(got, true)
	requeued, ok := p.NextPull()
	if !ok || requeued.Attempts != 1 {
		t.Fatalf("expected requeued pull with Attempts=1, got %+v ok=%v", requeued, ok)
	}
}

func TestClearPullsDropsMatchingBootstrapID(t *testing.T) {
	p := New(Config{})
	p.AddPull(attempt.NewPullInfo(common.Hash{1}, common.Hash{}, common.Hash{}, "boot-a", 16))
	p.AddPull(attempt.NewPullInfo(common.Hash{2}, common.Hash{}, common.Hash{}, "boot-b", 16))
	p.ClearPulls("boot-a")
	if p.PullsRemaining() != 1 {
		t.Fatalf("expected only boot-b's pull to remain, got %d", p.PullsRemaining())
	}
}
