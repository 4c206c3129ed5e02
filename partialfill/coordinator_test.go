package partialfill

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/htlc"
	"github.com/lightninglabs/htlcswap/resolver"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightninglabs/htlcswap/test"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// countingReleaser counts release wakeups.
type countingReleaser struct {
	wakes atomic.Int32
}

func (r *countingReleaser) Wake() {
	r.wakes.Add(1)
}

// failingStore fails fill updates while failUpdates is set.
type failingStore struct {
	*swapdb.MemStore

	failUpdates atomic.Bool
}

var errStoreFailed = errors.New("store failed")

func (s *failingStore) UpdateFill(ctx context.Context,
	transition *swapdb.FillTransition) error {

	if s.failUpdates.Load() {
		return errStoreFailed
	}

	return s.MemStore.UpdateFill(ctx, transition)
}

type testContext struct {
	coordinator *Coordinator
	htlcs       *htlc.Registry
	resolvers   *resolver.Registry
	releases    *countingReleaser
	store       *failingStore
	clock       *clock.TestClock
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()

	store := &failingStore{MemStore: swapdb.NewMemStore()}
	testClock := test.NewClock()
	locks := swap.NewKeyedMutex()

	htlcs := htlc.NewRegistry(&htlc.Config{
		Store:  store,
		Splits: store,
		Locks:  locks,
		Clock:  testClock,
	})
	resolvers := resolver.NewRegistry(&resolver.Config{
		Store: store,
		Clock: testClock,
	})
	releases := &countingReleaser{}

	for _, address := range []string{"r1", "r2"} {
		_, err := resolvers.Register(
			context.Background(), address,
			[]swap.ChainType{swap.ChainEVM},
		)
		require.NoError(t, err)
	}

	return &testContext{
		coordinator: NewCoordinator(&Config{
			Store:     store,
			HTLCs:     htlcs,
			Resolvers: resolvers,
			Locks:     locks,
			Releases:  releases,
			Clock:     testClock,
		}),
		htlcs:     htlcs,
		resolvers: resolvers,
		releases:  releases,
		store:     store,
		clock:     testClock,
	}
}

// lock creates a parent HTLC on the EVM chain expiring in an hour.
func (c *testContext) lock(t *testing.T, amount uint64,
	hash lntypes.Hash) string {

	t.Helper()

	id, err := c.htlcs.Create(context.Background(), htlc.CreateRequest{
		Sender:     "alice",
		Recipient:  "bob",
		Amount:     amount,
		Token:      "USDC",
		Hashlock:   hash,
		Expiration: c.clock.Now().Add(time.Hour),
		Chain:      swap.ChainEVM,
	})
	require.NoError(t, err)

	return id
}

// openOrdered locks an HTLC and splits it along a fresh secret sequence.
func (c *testContext) openOrdered(t *testing.T, amount uint64,
	segments uint32) (string, *hashlock.SecretSequence) {

	t.Helper()

	seq := test.NewSequence(t, segments)
	id := c.lock(t, amount, seq.Hashlocks[segments-1])

	_, err := c.coordinator.OpenPartialOrder(
		context.Background(), OpenRequest{
			HTLCID:        id,
			MerkleRoot:    seq.Root,
			SegmentCount:  segments,
			IsSourceChain: true,
		},
	)
	require.NoError(t, err)

	return id, seq
}

// fillRequest builds the request of the given segment.
func fillRequest(t *testing.T, id string, seq *hashlock.SecretSequence,
	index uint32, amount uint64, resolver string) FillRequest {

	t.Helper()

	proof, err := seq.Proof(index)
	require.NoError(t, err)

	return FillRequest{
		HTLCID:   id,
		Amount:   amount,
		Secret:   seq.Secrets[index],
		Resolver: resolver,
		Proof:    proof,
	}
}

// intents returns all recorded release intents in creation order.
func (c *testContext) intents(t *testing.T) []*swapdb.ReleaseIntent {
	t.Helper()

	intents, err := c.store.FetchReleaseIntents(
		context.Background(), false,
	)
	require.NoError(t, err)

	return intents
}

// assertBalanced checks that the partial order's totals match its fills.
func (c *testContext) assertBalanced(t *testing.T, id string) {
	t.Helper()

	ctx := context.Background()

	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)

	order, err := c.coordinator.GetPartialOrder(ctx, id)
	require.NoError(t, err)

	fills, err := c.coordinator.GetHtlcPartialFills(ctx, id)
	require.NoError(t, err)

	var completed, pending uint64
	for _, fill := range fills {
		switch fill.Status {
		case swapdb.FillCompleted:
			completed += fill.Amount

		case swapdb.FillPending:
			pending += fill.Amount
		}
	}

	require.Equal(t, completed, order.TotalFilled)
	require.Equal(t, pending, order.ReservedAmount)
	require.Equal(t, parent.Amount, order.TotalFilled+order.RemainingAmount)
	require.Len(t, order.PartialFills, len(fills))
}

// TestOpenPartialOrder tests the preconditions of splitting an HTLC.
func TestOpenPartialOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	seq := test.NewSequence(t, 3)

	_, err := c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       "unknown",
		MerkleRoot:   seq.Root,
		SegmentCount: 3,
	})
	require.ErrorIs(t, err, htlc.ErrNotFound)

	id := c.lock(t, 2, seq.Hashlocks[2])

	_, err = c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:     id,
		MerkleRoot: seq.Root,
	})
	require.ErrorIs(t, err, ErrInvalidSegments)
	require.Equal(t, "InvalidSegmentCount", swap.CodeOf(err))

	_, err = c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       id,
		MerkleRoot:   seq.Root,
		SegmentCount: 3,
	})
	require.ErrorIs(t, err, ErrInvalidSegments)

	order, err := c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       id,
		MerkleRoot:   seq.Root,
		SegmentCount: 2,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(2), order.RemainingAmount)
	require.Zero(t, order.TotalFilled)
	require.True(t, order.Ordered())

	_, err = c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       id,
		MerkleRoot:   seq.Root,
		SegmentCount: 2,
	})
	require.ErrorIs(t, err, ErrAlreadyExists)

	// An expired parent can't be split.
	expired := c.lock(t, 100, seq.Hashlocks[0])
	c.clock.SetTime(test.StartTime.Add(2 * time.Hour))

	_, err = c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       expired,
		MerkleRoot:   seq.Root,
		SegmentCount: 2,
	})
	require.ErrorIs(t, err, ErrExpired)
	require.Equal(t, swap.KindExpired, swap.KindOf(err))
}

// TestOrderedFills walks an HTLC of 300 through three segments of 100 and
// checks that secrets are only accepted in their committed order.
func TestOrderedFills(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 300, 3)

	// Segment 1 can't be filled before segment 0.
	_, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 1, 100, "r1"),
	)
	require.ErrorIs(t, err, ErrSecretMismatch)

	var fills []*swapdb.PartialFill
	for i := uint32(0); i < 2; i++ {
		fill, err := c.coordinator.CreateFill(
			ctx, fillRequest(t, id, seq, i, 100, "r1"),
		)
		require.NoError(t, err)
		require.Equal(t, swapdb.FillPending, fill.Status)
		require.Equal(t, i, fill.SegmentIndex)
		require.Equal(t, seq.Hashlocks[i], fill.SecretHash)

		// The next segment is blocked while this one is pending.
		_, err = c.coordinator.CreateFill(
			ctx, fillRequest(t, id, seq, i+1, 100, "r2"),
		)
		require.ErrorIs(t, err, ErrFillOutOfOrder)

		fill, err = c.coordinator.CompleteFill(
			ctx, fill.ID, Confirmation{TxID: "0xabc"},
		)
		require.NoError(t, err)
		require.Equal(t, swapdb.FillCompleted, fill.Status)
		require.Equal(t, "0xabc", fill.ConfirmationTx)

		fills = append(fills, fill)
		c.assertBalanced(t, id)
	}

	order, err := c.coordinator.GetPartialOrder(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(100), order.RemainingAmount)
	require.Equal(t, uint64(200), order.TotalFilled)
	require.Equal(t, uint32(2), order.PartialFillIndex)

	// Replaying the first secret at segment 2 is rejected.
	req := fillRequest(t, id, seq, 2, 100, "r1")
	req.Secret = seq.Secrets[0]
	_, err = c.coordinator.CreateFill(ctx, req)
	require.ErrorIs(t, err, ErrSecretMismatch)
	require.Equal(t, swap.KindSecretMismatch, swap.KindOf(err))

	// The parent is still locked.
	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, parent.Status)

	// Every completed fill recorded a release to its resolver.
	intents := c.intents(t)
	require.Len(t, intents, 2)
	require.EqualValues(t, 2, c.releases.wakes.Load())
	for i, intent := range intents {
		require.Equal(t, swapdb.ReleaseFill, intent.Kind)
		require.Equal(t, fills[i].ID, intent.FillID)
		require.Equal(t, "fill:"+fills[i].ID, intent.Key)
		require.Equal(t, "r1", intent.Recipient)
		require.Equal(t, swap.ChainEVM, intent.Chain)
		require.Equal(t, uint64(100), intent.Amount)
	}

	r1, err := c.resolvers.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), r1.Completed)
	require.Equal(t, 1.0, r1.SuccessRate)
}

// TestSegmentAmounts tests that every segment leaves enough for the
// remaining segments and that the last one takes the rest.
func TestSegmentAmounts(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 10, 3)

	_, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 11, "r1"),
	)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// 9 would leave a single unit for two segments.
	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 9, "r1"),
	)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 0, "r1"),
	)
	require.ErrorIs(t, err, ErrInvalidAmount)

	for i, amount := range []uint64{5, 4} {
		fill, err := c.coordinator.CreateFill(
			ctx, fillRequest(t, id, seq, uint32(i), amount, "r1"),
		)
		require.NoError(t, err)

		_, err = c.coordinator.CompleteFill(
			ctx, fill.ID, Confirmation{TxID: "tx"},
		)
		require.NoError(t, err)
	}

	// The final segment must take exactly what is left.
	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 2, 2, "r1"),
	)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	fill, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 2, 1, "r1"),
	)
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(
		ctx, fill.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 2, 1, "r1"),
	)
	require.ErrorIs(t, err, ErrHTLCNotLocked)
}

// TestAggregateClaim tests that completing the last segment claims the
// parent HTLC with all revealed secrets.
func TestAggregateClaim(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 300, 3)

	for i := uint32(0); i < 3; i++ {
		fill, err := c.coordinator.CreateFill(
			ctx, fillRequest(t, id, seq, i, 100, "r2"),
		)
		require.NoError(t, err)

		_, err = c.coordinator.CompleteFill(
			ctx, fill.ID, Confirmation{
				TxID:  "tx",
				Chain: swap.ChainEVM,
			},
		)
		require.NoError(t, err)
	}

	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, parent.Status)

	history, err := c.htlcs.History(ctx, id)
	require.NoError(t, err)
	require.Equal(t, string(htlc.OnAggregateClaim),
		history[len(history)-1].Event)

	order, err := c.coordinator.GetPartialOrder(ctx, id)
	require.NoError(t, err)
	require.Zero(t, order.RemainingAmount)
	require.Equal(t, uint64(300), order.TotalFilled)
	require.Equal(t, seq.Secrets, order.Revealed)
	c.assertBalanced(t, id)
}

// TestFailAndRetry tests that a failed fill returns its amount and that
// its segment can be filled again by another resolver.
func TestFailAndRetry(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 300, 3)

	fill, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r1"),
	)
	require.NoError(t, err)

	failed, err := c.coordinator.FailFill(ctx, fill.ID, "reverted")
	require.NoError(t, err)
	require.Equal(t, swapdb.FillFailed, failed.Status)
	require.Equal(t, "reverted", failed.FailReason)
	c.assertBalanced(t, id)

	order, err := c.coordinator.GetPartialOrder(ctx, id)
	require.NoError(t, err)
	require.Zero(t, order.PartialFillIndex)
	require.Zero(t, order.ReservedAmount)
	require.Equal(t, uint64(300), order.RemainingAmount)

	// Final fills can't change anymore.
	_, err = c.coordinator.CompleteFill(
		ctx, fill.ID, Confirmation{TxID: "tx"},
	)
	require.ErrorIs(t, err, ErrFillFinalized)

	_, err = c.coordinator.FailFill(ctx, fill.ID, "again")
	require.ErrorIs(t, err, ErrFillFinalized)

	retry, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r2"),
	)
	require.NoError(t, err)
	require.Zero(t, retry.SegmentIndex)

	_, err = c.coordinator.CompleteFill(
		ctx, retry.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)
	c.assertBalanced(t, id)

	fills, err := c.coordinator.GetHtlcPartialFills(ctx, id)
	require.NoError(t, err)
	require.Len(t, fills, 2)

	r1, err := c.resolvers.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), r1.Failed)
	require.Zero(t, r1.SuccessRate)

	_, err = c.coordinator.CompleteFill(
		ctx, "unknown", Confirmation{TxID: "tx"},
	)
	require.ErrorIs(t, err, ErrFillNotFound)

	_, err = c.coordinator.CompleteFill(ctx, retry.ID, Confirmation{})
	require.ErrorIs(t, err, ErrInvalidConfirmation)
}

// TestConfirmationChain tests that a confirmation from another chain is
// rejected without touching the fill.
func TestConfirmationChain(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 300, 3)

	fill, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r1"),
	)
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(ctx, fill.ID, Confirmation{
		TxID:  "tx",
		Chain: swap.ChainSolana,
	})
	require.ErrorIs(t, err, ErrInvalidConfirmation)

	fill, err = c.coordinator.GetPartialFill(ctx, fill.ID)
	require.NoError(t, err)
	require.Equal(t, swapdb.FillPending, fill.Status)
}

// TestResolverEligibility tests that only active resolvers supporting the
// parent's chain may fill.
func TestResolverEligibility(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 300, 3)

	_, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "unknown"),
	)
	require.ErrorIs(t, err, resolver.ErrNotFound)

	_, err = c.resolvers.Register(
		ctx, "solana", []swap.ChainType{swap.ChainSolana},
	)
	require.NoError(t, err)

	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "solana"),
	)
	require.ErrorIs(t, err, resolver.ErrUnsupportedChain)

	_, err = c.resolvers.UpdateStatus(ctx, "r1", false)
	require.NoError(t, err)

	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r1"),
	)
	require.ErrorIs(t, err, resolver.ErrInactive)

	// Nothing was reserved by the rejected requests.
	order, err := c.coordinator.GetPartialOrder(ctx, id)
	require.NoError(t, err)
	require.Zero(t, order.ReservedAmount)
	require.Empty(t, order.PartialFills)
}

// TestUnorderedFills tests concurrent fills of an order without a
// committed sequence.
func TestUnorderedFills(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	secret, hash := test.NewSecret(t)
	id := c.lock(t, 1000, hash)

	_, err := c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       id,
		SegmentCount: 10,
	})
	require.NoError(t, err)

	wrong, _ := test.NewSecret(t)
	_, err = c.coordinator.CreateFill(ctx, FillRequest{
		HTLCID:   id,
		Amount:   100,
		Secret:   wrong,
		Resolver: "r1",
	})
	require.ErrorIs(t, err, ErrSecretMismatch)

	// Twenty fills of 100 race for 1000.
	var (
		accepted atomic.Int32
		eg       errgroup.Group
	)
	for i := 0; i < 20; i++ {
		eg.Go(func() error {
			fill, err := c.coordinator.CreateFill(ctx, FillRequest{
				HTLCID:   id,
				Amount:   100,
				Secret:   secret,
				Resolver: "r1",
			})
			// Late requests either find nothing left or the
			// parent already claimed.
			if errors.Is(err, ErrInsufficientFunds) ||
				errors.Is(err, ErrHTLCNotLocked) {

				return nil
			}
			if err != nil {
				return err
			}
			accepted.Add(1)

			_, err = c.coordinator.CompleteFill(
				ctx, fill.ID, Confirmation{TxID: "tx"},
			)

			return err
		})
	}
	require.NoError(t, eg.Wait())
	require.Equal(t, int32(10), accepted.Load())

	c.assertBalanced(t, id)

	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, parent.Status)
}

// TestSplitHTLCClaim tests that the parent secret can't claim an HTLC that
// was split, so an unordered fill and a direct claim never release more
// than the locked amount.
func TestSplitHTLCClaim(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	secret, hash := test.NewSecret(t)
	id := c.lock(t, 100, hash)

	_, err := c.coordinator.OpenPartialOrder(ctx, OpenRequest{
		HTLCID:       id,
		SegmentCount: 3,
	})
	require.NoError(t, err)

	fill, err := c.coordinator.CreateFill(ctx, FillRequest{
		HTLCID:   id,
		Amount:   40,
		Secret:   secret,
		Resolver: "r1",
	})
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(
		ctx, fill.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	_, err = c.htlcs.Claim(ctx, id, secret)
	require.ErrorIs(t, err, htlc.ErrSplit)
	require.Equal(t, swap.KindAlreadyFinalized, swap.KindOf(err))

	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, parent.Status)

	var released uint64
	for _, intent := range c.intents(t) {
		require.Equal(t, swapdb.ReleaseFill, intent.Kind)
		released += intent.Amount
	}
	require.EqualValues(t, 40, released)

	// The rest is still filled through the order.
	fill, err = c.coordinator.CreateFill(ctx, FillRequest{
		HTLCID:   id,
		Amount:   60,
		Secret:   secret,
		Resolver: "r2",
	})
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(
		ctx, fill.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	parent, err = c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, parent.Status)
	require.Len(t, c.intents(t), 2)
	c.assertBalanced(t, id)
}

// TestRefundPendingFill tests that an expired parent is not refunded while
// a fill is pending, and that the pending fill still completes after the
// expiry.
func TestRefundPendingFill(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 200, 2)

	first, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r1"),
	)
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(
		ctx, first.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	last, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 1, 100, "r2"),
	)
	require.NoError(t, err)

	c.clock.SetTime(test.StartTime.Add(2 * time.Hour))

	_, err = c.htlcs.Refund(ctx, id, "alice")
	require.ErrorIs(t, err, htlc.ErrFillsPending)

	stored, err := c.store.FetchHTLC(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, stored.Status)

	fill, err := c.coordinator.CompleteFill(
		ctx, last.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)
	require.Equal(t, swapdb.FillCompleted, fill.Status)

	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, parent.Status)
	c.assertBalanced(t, id)

	_, err = c.htlcs.Refund(ctx, id, "alice")
	require.ErrorIs(t, err, htlc.ErrAlreadyFinalized)
}

// TestRefundRemainder tests that a split parent with nothing pending is
// refunded and no further fill completes against it.
func TestRefundRemainder(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 300, 3)

	fill, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r1"),
	)
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(
		ctx, fill.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	c.clock.SetTime(test.StartTime.Add(2 * time.Hour))

	parent, err := c.htlcs.Refund(ctx, id, "alice")
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCRefunded, parent.Status)

	_, err = c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 1, 100, "r1"),
	)
	require.ErrorIs(t, err, ErrHTLCNotLocked)
}

// TestCompleteFillRollback tests that a failed write of a completion leaves
// the fill, its order, its release and the parent untouched.
func TestCompleteFillRollback(t *testing.T) {
	ctx := context.Background()
	c := newTestContext(t)
	id, seq := c.openOrdered(t, 200, 2)

	first, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 0, 100, "r1"),
	)
	require.NoError(t, err)

	_, err = c.coordinator.CompleteFill(
		ctx, first.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	last, err := c.coordinator.CreateFill(
		ctx, fillRequest(t, id, seq, 1, 100, "r1"),
	)
	require.NoError(t, err)

	// Completing the last fill claims the parent in the same write.
	c.store.failUpdates.Store(true)
	_, err = c.coordinator.CompleteFill(
		ctx, last.ID, Confirmation{TxID: "tx"},
	)
	require.ErrorIs(t, err, errStoreFailed)

	fill, err := c.coordinator.GetPartialFill(ctx, last.ID)
	require.NoError(t, err)
	require.Equal(t, swapdb.FillPending, fill.Status)

	parent, err := c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCLocked, parent.Status)

	order, err := c.coordinator.GetPartialOrder(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 100, order.ReservedAmount)
	require.Len(t, order.Revealed, 1)
	require.Len(t, c.intents(t), 1)
	c.assertBalanced(t, id)

	// The completion is retried once the store recovers.
	c.store.failUpdates.Store(false)
	_, err = c.coordinator.CompleteFill(
		ctx, last.ID, Confirmation{TxID: "tx"},
	)
	require.NoError(t, err)

	parent, err = c.htlcs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, swapdb.HTLCClaimed, parent.Status)
	require.Len(t, c.intents(t), 2)
}

// TestFillStates tests the transition table of the fill state machine.
func TestFillStates(t *testing.T) {
	fillFsm := NewFillFSM(&Config{}, &swapdb.PartialFill{}, nil)
	states := fillFsm.GetFillStates()

	require.False(t, states.IsTerminal(Pending))
	require.True(t, states.IsTerminal(Completed))
	require.True(t, states.IsTerminal(Failed))
	require.True(t, fillFsm.Can(OnCreate))
	require.False(t, fillFsm.Can(OnComplete))
}
