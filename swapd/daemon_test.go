package swapd

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/test"
	"github.com/stretchr/testify/require"
)

// TestOpenStore tests that every backend can be opened.
func TestOpenStore(t *testing.T) {
	backends := []string{
		DatabaseBackendBolt, DatabaseBackendSqlite,
		DatabaseBackendMemory,
	}

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.DatabaseBackend = backend
			require.NoError(t, Validate(&cfg))

			store, err := OpenStore(&cfg)
			require.NoError(t, err)
			require.NoError(t, store.Close())
		})
	}
}

// TestDaemon tests that the daemon spools the releases of claimed HTLCs and
// shuts down cleanly.
func TestDaemon(t *testing.T) {
	defer test.Guard(t)()

	cfg := testConfig(t)
	cfg.Release.Interval = 10 * time.Millisecond
	require.NoError(t, Validate(&cfg))

	daemon := New(&cfg)
	require.NoError(t, daemon.Start())
	require.Error(t, daemon.Start())

	ctx := context.Background()
	secret, hash := test.NewSecret(t)

	id, err := daemon.engine.CreateHTLC(ctx, &htlcswap.CreateHTLCRequest{
		Sender:     "alice",
		Recipient:  "bob",
		Amount:     100,
		Token:      "ETH",
		Hashlock:   hash.String(),
		Expiration: time.Now().Add(time.Hour),
		Chain:      swap.ChainEVM,
	})
	require.NoError(t, err)

	_, err = daemon.engine.ClaimHTLC(ctx, id, secret.String())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(cfg.Release.SpoolDir)
		return err == nil && len(entries) == 1
	}, test.Timeout, 10*time.Millisecond)

	daemon.Stop()
	require.NoError(t, <-daemon.ErrChan)
}
