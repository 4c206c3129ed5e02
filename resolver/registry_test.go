package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightninglabs/htlcswap/test"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *clock.TestClock) {
	testClock := test.NewClock()

	return NewRegistry(&Config{
		Store: swapdb.NewMemStore(),
		Clock: testClock,
	}), testClock
}

// TestRegister tests resolver registration.
func TestRegister(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry()

	_, err := registry.Register(ctx, "", []swap.ChainType{swap.ChainEVM})
	require.ErrorIs(t, err, ErrInvalidResolver)

	_, err = registry.Register(ctx, "r1", nil)
	require.ErrorIs(t, err, ErrInvalidResolver)

	_, err = registry.Register(
		ctx, "r1", []swap.ChainType{swap.ChainUnknown},
	)
	require.ErrorIs(t, err, ErrInvalidResolver)

	resolver, err := registry.Register(ctx, "r1", []swap.ChainType{
		swap.ChainEVM, swap.ChainEVM, swap.ChainSolana,
	})
	require.NoError(t, err)
	require.True(t, resolver.IsActive)
	require.Equal(t, []swap.ChainType{
		swap.ChainEVM, swap.ChainSolana,
	}, resolver.SupportedChains)

	_, err = registry.Register(
		ctx, "r1", []swap.ChainType{swap.ChainEVM},
	)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

// TestRecordOutcome tests that the success rate is recomputed on every
// outcome.
func TestRecordOutcome(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry()

	_, err := registry.Register(
		ctx, "r1", []swap.ChainType{swap.ChainEVM},
	)
	require.NoError(t, err)

	outcomes := []struct {
		success bool
		rate    float64
	}{
		{success: true, rate: 1},
		{success: false, rate: 0.5},
		{success: true, rate: 2.0 / 3.0},
		{success: true, rate: 0.75},
	}
	for i, outcome := range outcomes {
		resolver, err := registry.RecordOutcome(
			ctx, "r1", outcome.success,
		)
		require.NoError(t, err)
		require.InDelta(t, outcome.rate, resolver.SuccessRate, 1e-9)
		require.EqualValues(t, i+1, resolver.TotalFills)
	}

	_, err = registry.RecordOutcome(ctx, "unknown", true)
	require.ErrorIs(t, err, ErrNotFound)

	require.Zero(t, SuccessRate(0, 0))
}

// TestCheckEligible tests the eligibility rules for fill assignment.
func TestCheckEligible(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry()

	_, err := registry.Register(
		ctx, "r1", []swap.ChainType{swap.ChainEVM},
	)
	require.NoError(t, err)

	_, err = registry.CheckEligible(ctx, "r1", swap.ChainEVM)
	require.NoError(t, err)

	_, err = registry.CheckEligible(ctx, "r1", swap.ChainSolana)
	require.ErrorIs(t, err, ErrUnsupportedChain)

	_, err = registry.CheckEligible(ctx, "r2", swap.ChainEVM)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = registry.UpdateStatus(ctx, "r1", false)
	require.NoError(t, err)

	_, err = registry.CheckEligible(ctx, "r1", swap.ChainEVM)
	require.ErrorIs(t, err, ErrInactive)
}

// TestSelectFor tests the ordering of resolver candidates.
func TestSelectFor(t *testing.T) {
	ctx := context.Background()
	registry, testClock := newTestRegistry()

	evm := []swap.ChainType{swap.ChainEVM}
	for _, address := range []string{"a", "b", "c", "d", "e"} {
		_, err := registry.Register(ctx, address, evm)
		require.NoError(t, err)
	}
	_, err := registry.Register(
		ctx, "sol", []swap.ChainType{swap.ChainSolana},
	)
	require.NoError(t, err)

	// a: 1/2, b: 1/1, c: 1/1 but more recent, d: inactive, e: no
	// outcome yet.
	_, err = registry.RecordOutcome(ctx, "a", true)
	require.NoError(t, err)
	_, err = registry.RecordOutcome(ctx, "a", false)
	require.NoError(t, err)
	_, err = registry.RecordOutcome(ctx, "b", true)
	require.NoError(t, err)

	testClock.SetTime(testClock.Now().Add(time.Minute))
	_, err = registry.RecordOutcome(ctx, "c", true)
	require.NoError(t, err)

	_, err = registry.UpdateStatus(ctx, "d", false)
	require.NoError(t, err)

	candidates, err := registry.SelectFor(ctx, swap.ChainEVM)
	require.NoError(t, err)

	var addresses []string
	for _, candidate := range candidates {
		addresses = append(addresses, candidate.Address)
	}
	require.Equal(t, []string{"c", "b", "a", "e"}, addresses)

	candidates, err = registry.SelectFor(ctx, swap.ChainNative)
	require.NoError(t, err)
	require.Empty(t, candidates)
}
