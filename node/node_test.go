package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultchain/vaultchain/store/memstore"
)

func TestNewWiresEveryCollaborator(t *testing.T) {
	n := New(Config{Store: memstore.New()})
	require.NotNil(t, n.Ledger())
	require.NotNil(t, n.Verifier())
	require.NotNil(t, n.BlockProcessor())
	require.NotNil(t, n.ConfirmationHeight())
	require.NotNil(t, n.VoteProcessor())
	require.NotNil(t, n.Filter())
	require.NotNil(t, n.GapCache())
	require.NotNil(t, n.Peers())
	require.NotNil(t, n.Solicitor())
	require.NotNil(t, n.Aggregator())
	require.NotNil(t, n.LegacyAttempt())
}

func TestStartAndCloseLifecycle(t *testing.T) {
	n := New(Config{Store: memstore.New()})
	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	cancel()
	n.Close()
}

