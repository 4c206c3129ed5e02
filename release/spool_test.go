package release

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightninglabs/htlcswap/test"
	"github.com/stretchr/testify/require"
)

// TestSpoolExecutor tests that a release is spooled exactly once.
func TestSpoolExecutor(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	secret, _ := test.NewSecret(t)

	executor, err := NewSpoolExecutor(dir)
	require.NoError(t, err)

	intent := &swapdb.ReleaseIntent{
		Key:       swapdb.ReleaseKey(swapdb.ReleaseFill, "f1"),
		Kind:      swapdb.ReleaseFill,
		HTLCID:    "h1",
		FillID:    "f1",
		Chain:     swap.ChainSolana,
		Token:     "SOL",
		Recipient: "r1",
		Amount:    100,
		Secret:    secret,
	}

	txID, err := executor.Release(ctx, intent)
	require.NoError(t, err)
	require.Equal(t, "spool:fill:f1", txID)

	again, err := executor.Release(ctx, intent)
	require.NoError(t, err)
	require.Equal(t, txID, again)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "fill_f1.json", entries[0].Name())

	data, err := os.ReadFile(executor.fileName(intent.Key))
	require.NoError(t, err)

	var record spoolRecord
	require.NoError(t, json.Unmarshal(data, &record))
	require.Equal(t, "f1", record.FillID)
	require.Equal(t, swap.ChainSolana.String(), record.Chain)
	require.Equal(t, secret.String(), record.Secret)
}
