package htlc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightninglabs/htlcswap/test"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// mockNotifier records release wakeups.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Wake() {
	m.Called()
}

type testContext struct {
	registry *Registry
	clock    *clock.TestClock
	store    *swapdb.MemStore
	notifier *mockNotifier
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()

	testClock := test.NewClock()
	store := swapdb.NewMemStore()
	notifier := &mockNotifier{}

	return &testContext{
		registry: NewRegistry(&Config{
			Store:    store,
			Splits:   store,
			Clock:    testClock,
			Releases: notifier,
		}),
		clock:    testClock,
		store:    store,
		notifier: notifier,
	}
}

func (c *testContext) create(t *testing.T, amount uint64,
	hash lntypes.Hash, expiry time.Duration) string {

	t.Helper()

	id, err := c.registry.Create(context.Background(), CreateRequest{
		Sender:     "alice",
		Recipient:  "bob",
		Amount:     amount,
		Token:      "ETH",
		Hashlock:   hash,
		Expiration: c.clock.Now().Add(expiry),
		Chain:      swap.ChainEVM,
	})
	require.NoError(t, err)

	return id
}

// split stores a partial order for the HTLC.
func (c *testContext) split(t *testing.T, id string, remaining,
	reserved uint64) {

	t.Helper()

	htlc, err := c.store.FetchHTLC(context.Background(), id)
	require.NoError(t, err)

	err = c.store.CreatePartialOrder(context.Background(),
		&swapdb.PartialOrder{
			HTLCID:          id,
			TotalFilled:     htlc.Amount - remaining - reserved,
			RemainingAmount: remaining,
			ReservedAmount:  reserved,
			PartialFills:    []string{"fill"},
			CreatedAt:       c.clock.Now(),
		},
	)
	require.NoError(t, err)
}

func (c *testContext) releases(t *testing.T) []*swapdb.ReleaseIntent {
	t.Helper()

	intents, err := c.store.FetchReleaseIntents(
		context.Background(), false,
	)
	require.NoError(t, err)

	return intents
}

// TestCreateValidation tests that invalid lock requests are rejected.
func TestCreateValidation(t *testing.T) {
	c := newTestContext(t)
	_, hash := test.NewSecret(t)
	now := c.clock.Now()

	valid := CreateRequest{
		Sender:     "alice",
		Recipient:  "bob",
		Amount:     1,
		Hashlock:   hash,
		Expiration: now.Add(time.Hour),
		Chain:      swap.ChainNative,
	}

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		err    error
	}{
		{
			name:   "zero amount",
			mutate: func(r *CreateRequest) { r.Amount = 0 },
			err:    ErrInvalidAmount,
		},
		{
			name: "expiration now",
			mutate: func(r *CreateRequest) {
				r.Expiration = now
			},
			err: ErrInvalidExpiration,
		},
		{
			name: "expiration in the past",
			mutate: func(r *CreateRequest) {
				r.Expiration = now.Add(-time.Second)
			},
			err: ErrInvalidExpiration,
		},
		{
			name:   "no sender",
			mutate: func(r *CreateRequest) { r.Sender = "" },
			err:    ErrInvalidRequest,
		},
		{
			name: "unknown chain",
			mutate: func(r *CreateRequest) {
				r.Chain = swap.ChainUnknown
			},
			err: ErrInvalidRequest,
		},
		{
			name: "empty hashlock",
			mutate: func(r *CreateRequest) {
				r.Hashlock = lntypes.Hash{}
			},
			err: ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)

			_, err := c.registry.Create(context.Background(), req)
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, swap.KindInvalidInput, swap.KindOf(err))
		})
	}

	htlcs, err := c.registry.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Empty(t, htlcs)
}

// TestClaimScenario creates an HTLC, claims it with a wrong and a correct
// secret and checks that a second claim is rejected.
func TestClaimScenario(t *testing.T) {
	defer test.Guard(t)()

	ctx := context.Background()
	c := newTestContext(t)
	secret, hash := test.NewSecret(t)
	wrong, _ := test.NewSecret(t)

	id := c.create(t, 100, hash, time.Hour)

	htlc, err := c.registry.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, htlc.Status)
	require.Nil(t, htlc.Secret)

	_, err = c.registry.Claim(ctx, id, wrong)
	require.ErrorIs(t, err, ErrSecretMismatch)

	require.Empty(t, c.releases(t))

	c.notifier.On("Wake").Return().Once()

	htlc, err = c.registry.Claim(ctx, id, secret)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, htlc.Status)
	require.Equal(t, secret, *htlc.Secret)
	c.notifier.AssertExpectations(t)

	// The release was recorded together with the claim.
	intents := c.releases(t)
	require.Len(t, intents, 1)
	require.Equal(t, swapdb.ReleaseKey(swapdb.ReleaseHTLC, id),
		intents[0].Key)
	require.Equal(t, "bob", intents[0].Recipient)
	require.EqualValues(t, 100, intents[0].Amount)
	require.Equal(t, secret, intents[0].Secret)

	_, err = c.registry.Claim(ctx, id, secret)
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	_, err = c.registry.Refund(ctx, id, "alice")
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	// A claimed HTLC stays claimed after its expiry.
	c.clock.SetTime(c.clock.Now().Add(2 * time.Hour))
	htlc, err = c.registry.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, htlc.Status)

	history, err := c.registry.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, swapdb.HTLCLocked, history[0].Status)
	require.Equal(t, swapdb.HTLCClaimed, history[1].Status)
	require.Equal(t, string(OnClaim), history[1].Event)
}

// TestClaimExpired tests that an HTLC can't be claimed at or after its
// expiration and reads as Expired.
func TestClaimExpired(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	secret, hash := test.NewSecret(t)

	id := c.create(t, 100, hash, time.Hour)
	c.clock.SetTime(c.clock.Now().Add(time.Hour))

	_, err := c.registry.Claim(ctx, id, secret)
	require.ErrorIs(t, err, ErrExpired)

	htlc, err := c.registry.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCExpired, htlc.Status)

	// The derived view is never persisted.
	stored, err := c.store.FetchHTLC(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, stored.Status)

	expired, err := c.registry.List(ctx, Filter{
		Status: swapdb.HTLCExpired,
	})
	require.NoError(t, err)
	require.Len(t, expired, 1)
}

// TestRefundScenario tests the refund preconditions.
func TestRefundScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	_, hash := test.NewSecret(t)

	id := c.create(t, 50, hash, time.Hour)

	_, err := c.registry.Refund(ctx, id, "alice")
	require.ErrorIs(t, err, ErrNotYetExpired)

	_, err = c.registry.Refund(ctx, id, "mallory")
	require.ErrorIs(t, err, ErrUnauthorized)

	c.clock.SetTime(c.clock.Now().Add(time.Hour))

	_, err = c.registry.Refund(ctx, id, "mallory")
	require.ErrorIs(t, err, ErrUnauthorized)

	htlc, err := c.registry.Refund(ctx, id, "alice")
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCRefunded, htlc.Status)

	_, err = c.registry.Refund(ctx, id, "alice")
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	_, err = c.registry.Refund(ctx, "unknown", "alice")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, swap.KindNotFound, swap.KindOf(err))
}

// TestClaimSplit tests that an HTLC split into partial fills can't be
// claimed with the parent secret, and that the rejection leaves no release
// behind.
func TestClaimSplit(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	secret, hash := test.NewSecret(t)

	id := c.create(t, 100, hash, time.Hour)
	c.split(t, id, 60, 0)

	_, err := c.registry.Claim(ctx, id, secret)
	require.ErrorIs(t, err, ErrSplit)
	require.Equal(t, swap.KindAlreadyFinalized, swap.KindOf(err))

	htlc, err := c.registry.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, htlc.Status)
	require.Nil(t, htlc.Secret)
	require.Empty(t, c.releases(t))
	c.notifier.AssertNotCalled(t, "Wake")

	history, err := c.registry.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

// TestRefundSplit tests the refund of split HTLCs: pending fills block it, a
// completely filled HTLC can't be refunded and otherwise the unfilled
// remainder is returned.
func TestRefundSplit(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	_, hash := test.NewSecret(t)

	pending := c.create(t, 100, hash, time.Hour)
	c.split(t, pending, 20, 40)

	filled := c.create(t, 100, hash, time.Hour)
	c.split(t, filled, 0, 0)

	partial := c.create(t, 100, hash, time.Hour)
	c.split(t, partial, 60, 0)

	c.clock.SetTime(c.clock.Now().Add(time.Hour))

	_, err := c.registry.Refund(ctx, pending, "alice")
	require.ErrorIs(t, err, ErrFillsPending)
	require.Equal(t, swap.KindInvalidInput, swap.KindOf(err))

	_, err = c.registry.Refund(ctx, filled, "alice")
	require.ErrorIs(t, err, ErrSplit)

	for _, id := range []string{pending, filled} {
		stored, err := c.store.FetchHTLC(ctx, id)
		require.NoError(t, err)
		require.Equal(t, swapdb.HTLCLocked, stored.Status)
	}

	htlc, err := c.registry.Refund(ctx, partial, "alice")
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCRefunded, htlc.Status)
}

// TestClaimAggregate tests the aggregate claim used by split HTLCs.
func TestClaimAggregate(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	_, hash := test.NewSecret(t)

	id := c.create(t, 300, hash, time.Hour)

	// A failed commit leaves the HTLC locked.
	errCommit := errors.New("commit failed")
	_, err := c.registry.ClaimAggregate(ctx, id, nil, func(
		context.Context, *swapdb.HTLC, swapdb.HTLCUpdate) error {

		return errCommit
	})
	require.ErrorIs(t, err, errCommit)

	stored, err := c.store.FetchHTLC(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, stored.Status)

	var committed *swapdb.HTLC
	htlc, err := c.registry.ClaimAggregate(ctx, id, nil, func(
		ctx context.Context, htlc *swapdb.HTLC,
		update swapdb.HTLCUpdate) error {

		committed = htlc
		require.Equal(t, string(OnAggregateClaim), update.Event)

		return c.store.UpdateHTLC(ctx, htlc, update, nil)
	})
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, htlc.Status)
	require.Nil(t, htlc.Secret)
	require.Equal(t, swapdb.HTLCClaimed, committed.Status)

	// Aggregate claims don't record a single HTLC release.
	require.Empty(t, c.releases(t))
	c.notifier.AssertNotCalled(t, "Wake")

	_, err = c.registry.ClaimAggregate(ctx, id, nil, nil)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
}

// TestConcurrentClaimRefund tests that of many concurrent claims or refunds
// on one HTLC exactly one wins and the others observe AlreadyFinalized.
func TestConcurrentClaimRefund(t *testing.T) {
	defer test.Guard(t)()

	ctx := context.Background()
	c := newTestContext(t)
	secret, hash := test.NewSecret(t)

	c.notifier.On("Wake").Return()

	race := func(t *testing.T, op func() error) {
		var (
			wins      atomic.Int32
			finalized atomic.Int32
			group     errgroup.Group
		)
		for i := 0; i < 20; i++ {
			group.Go(func() error {
				err := op()
				switch {
				case err == nil:
					wins.Add(1)

				case swap.KindOf(err) == swap.KindAlreadyFinalized:
					finalized.Add(1)

				default:
					return err
				}

				return nil
			})
		}
		require.NoError(t, group.Wait())
		require.EqualValues(t, 1, wins.Load())
		require.EqualValues(t, 19, finalized.Load())
	}

	claimID := c.create(t, 10, hash, time.Hour)
	refundID := c.create(t, 10, hash, time.Hour/2)

	race(t, func() error {
		_, err := c.registry.Claim(ctx, claimID, secret)
		return err
	})

	c.clock.SetTime(c.clock.Now().Add(time.Hour / 2))

	race(t, func() error {
		_, err := c.registry.Refund(ctx, refundID, "alice")
		return err
	})

	for _, id := range []string{claimID, refundID} {
		history, err := c.registry.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 2)
	}
}

// TestHTLCStates tests the transition table of the HTLC state machine.
func TestHTLCStates(t *testing.T) {
	f := NewFSM(&Config{}, &swapdb.HTLC{ID: "x"})
	states := f.GetHTLCStates()

	require.False(t, states.IsTerminal(Locked))
	require.True(t, states.IsTerminal(Claimed))
	require.True(t, states.IsTerminal(Refunded))
	require.Equal(t, Claimed, states[Locked].Transitions[OnAggregateClaim])
	require.Equal(t, fsm.EmptyState, f.CurrentState())
}
