package swapdb

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/require"
)

var (
	testPreimage = lntypes.Preimage([32]byte{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	})

	testHash = lntypes.Hash(sha256.Sum256(testPreimage[:]))

	testTime = time.Date(2018, time.January, 9, 14, 0, 0, 0, time.UTC)
)

// storeBackends returns a constructor for every Store implementation.
func storeBackends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemStore()
		},
		"bolt": func(t *testing.T) Store {
			store, err := NewBoltStore(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() {
				require.NoError(t, store.Close())
			})

			return store
		},
		"sqlite": func(t *testing.T) Store {
			return NewTestSqliteDB(t)
		},
	}
}

// runStoreTest runs the test against all store backends.
func runStoreTest(t *testing.T, test func(t *testing.T, store Store)) {
	for name, newStore := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			test(t, newStore(t))
		})
	}
}

func newTestHTLC(id string) *HTLC {
	return &HTLC{
		ID:         id,
		Sender:     "alice",
		Recipient:  "bob",
		Amount:     1000,
		Token:      "ETH",
		Hashlock:   testHash,
		CreatedAt:  testTime,
		Expiration: testTime.Add(time.Hour),
		Chain:      swap.ChainEVM,
		Status:     HTLCLocked,
	}
}

// TestHTLCStore tests creating, updating and fetching HTLCs.
func TestHTLCStore(t *testing.T) {
	runStoreTest(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		htlcs, err := store.FetchHTLCs(ctx)
		require.NoError(t, err)
		require.Empty(t, htlcs)

		_, err = store.FetchHTLC(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)

		htlc := newTestHTLC("h1")
		require.NoError(t, store.CreateHTLC(ctx, htlc))
		require.ErrorIs(
			t, store.CreateHTLC(ctx, htlc), ErrAlreadyExists,
		)

		fetched, err := store.FetchHTLC(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, htlc, fetched)

		// Claim the HTLC and check that the update is appended.
		secret := testPreimage
		htlc.Secret = &secret
		htlc.Status = HTLCClaimed
		claimUpdate := HTLCUpdate{
			Time:   testTime.Add(time.Minute),
			Status: HTLCClaimed,
			Event:  "claim",
		}
		release := NewHTLCRelease(htlc, claimUpdate.Time)
		require.NoError(
			t, store.UpdateHTLC(ctx, htlc, claimUpdate, release),
		)

		fetched, err = store.FetchHTLC(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, htlc, fetched)

		updates, err := store.FetchHTLCUpdates(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, []HTLCUpdate{
			{Time: testTime, Status: HTLCLocked, Event: "created"},
			claimUpdate,
		}, updates)

		// The claim recorded its release in the same transaction.
		intents, err := store.FetchReleaseIntents(ctx, true)
		require.NoError(t, err)
		require.Len(t, intents, 1)
		require.Equal(t, "htlc:h1", intents[0].Key)
		require.Equal(t, testPreimage, intents[0].Secret)
		require.EqualValues(t, 1000, intents[0].Amount)

		// A failed update must not leave a release behind.
		missing := newTestHTLC("missing")
		err = store.UpdateHTLC(
			ctx, missing, claimUpdate,
			NewHTLCRelease(missing, claimUpdate.Time),
		)
		require.ErrorIs(t, err, ErrNotFound)

		intents, err = store.FetchReleaseIntents(ctx, false)
		require.NoError(t, err)
		require.Len(t, intents, 1)

		second := newTestHTLC("h0")
		second.CreatedAt = testTime.Add(time.Second)
		require.NoError(t, store.CreateHTLC(ctx, second))

		htlcs, err = store.FetchHTLCs(ctx)
		require.NoError(t, err)
		require.Len(t, htlcs, 2)
		require.Equal(t, "h1", htlcs[0].ID)
		require.Equal(t, "h0", htlcs[1].ID)
	})
}

// TestOrderStore tests orders and swaps.
func TestOrderStore(t *testing.T) {
	runStoreTest(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		order := &LimitOrder{
			ID:           "o1",
			Owner:        "alice",
			HashedSecret: testHash,
			TokenSell:    "ETH",
			AmountSell:   100,
			TokenBuy:     "BTC",
			AmountBuy:    5,
			IsEvmUser:    true,
			Timestamp:    testTime,
			Expiry:       testTime.Add(24 * time.Hour),
			Status:       OrderOpen,
			OriginChain:  swap.ChainEVM,
		}
		require.NoError(t, store.CreateOrder(ctx, order))
		require.ErrorIs(
			t, store.CreateOrder(ctx, order), ErrAlreadyExists,
		)

		fetched, err := store.FetchOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, order, fetched)

		require.NoError(t, store.CreateHTLC(ctx, newTestHTLC("m")))
		require.NoError(t, store.CreateHTLC(ctx, newTestHTLC("t")))

		swp := &Swap{
			ID:        "s1",
			OrderID:   "o1",
			MakerHTLC: "m",
			TakerHTLC: "t",
			Maker:     "alice",
			Taker:     "bob",
			CreatedAt: testTime,
		}
		order.Status = OrderMatched
		order.Taker = "bob"
		order.SwapID = "s1"
		require.NoError(t, store.CreateSwap(ctx, swp, order))

		// A swap for an unknown order is rolled back as a whole.
		orphan := *swp
		orphan.ID = "s2"
		missing := *order
		missing.ID = "o2"
		require.ErrorIs(
			t, store.CreateSwap(ctx, &orphan, &missing),
			ErrNotFound,
		)

		fetched, err = store.FetchOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, order, fetched)

		fetchedSwap, err := store.FetchSwap(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, swp, fetchedSwap)

		_, err = store.FetchSwap(ctx, "s2")
		require.ErrorIs(t, err, ErrNotFound)

		orders, err := store.FetchOrders(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 1)
	})
}

// TestPartialFillStore tests partial orders and fills.
func TestPartialFillStore(t *testing.T) {
	runStoreTest(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.CreateHTLC(ctx, newTestHTLC("h1")))

		order := &PartialOrder{
			HTLCID:          "h1",
			MerkleRoot:      testHash,
			SegmentCount:    3,
			RemainingAmount: 300,
			IsSourceChain:   true,
			CreatedAt:       testTime,
		}
		require.NoError(t, store.CreatePartialOrder(ctx, order))

		fills := []*PartialFill{
			{
				ID:            "f2",
				HTLCID:        "h1",
				SegmentIndex:  1,
				Amount:        100,
				SecretHash:    testHash,
				Secret:        testPreimage,
				Resolver:      "r1",
				FillTimestamp: testTime.Add(2 * time.Second),
				Status:        FillPending,
				UpdatedAt:     testTime.Add(2 * time.Second),
			},
			{
				ID:            "f1",
				HTLCID:        "h1",
				SegmentIndex:  0,
				Amount:        100,
				SecretHash:    testHash,
				Secret:        testPreimage,
				Resolver:      "r1",
				FillTimestamp: testTime.Add(time.Second),
				Status:        FillPending,
				UpdatedAt:     testTime.Add(time.Second),
			},
		}
		for i, fill := range fills {
			order.PartialFills = append(order.PartialFills, fill.ID)
			order.ReservedAmount += fill.Amount
			order.PartialFillIndex = uint32(i + 1)

			err := store.CreateFill(ctx, &FillTransition{
				Fill:  fill,
				Order: order,
			})
			require.NoError(t, err)
		}

		fetched, err := store.FetchPartialOrder(ctx, "h1")
		require.NoError(t, err)
		require.EqualValues(t, 200, fetched.ReservedAmount)

		fills[1].Status = FillCompleted
		fills[1].ConfirmationTx = "0xabc"
		order.TotalFilled = 100
		order.RemainingAmount = 200
		order.ReservedAmount = 100
		order.Revealed = []lntypes.Preimage{testPreimage}

		htlc, err := store.FetchHTLC(ctx, "h1")
		require.NoError(t, err)
		release := NewFillRelease(htlc, fills[1], testTime)
		err = store.UpdateFill(ctx, &FillTransition{
			Fill:    fills[1],
			Order:   order,
			Release: release,
		})
		require.NoError(t, err)

		intents, err := store.FetchReleaseIntents(ctx, true)
		require.NoError(t, err)
		require.Len(t, intents, 1)
		require.Equal(t, "fill:f1", intents[0].Key)
		require.Equal(t, "r1", intents[0].Recipient)

		fetched, err = store.FetchPartialOrder(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, order, fetched)

		fetchedFills, err := store.FetchFills(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, []*PartialFill{fills[1], fills[0]}, fetchedFills)

		fill, err := store.FetchFill(ctx, "f1")
		require.NoError(t, err)
		require.Equal(t, FillCompleted, fill.Status)

		none, err := store.FetchFills(ctx, "other")
		require.NoError(t, err)
		require.Empty(t, none)

		_, err = store.FetchPartialOrder(ctx, "other")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

// TestFillTransitionAtomic tests that a fill transition is applied as a
// whole or not at all, including the aggregate claim of the parent HTLC.
func TestFillTransitionAtomic(t *testing.T) {
	runStoreTest(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		htlc := newTestHTLC("h1")
		require.NoError(t, store.CreateHTLC(ctx, htlc))

		order := &PartialOrder{
			HTLCID:          "h1",
			SegmentCount:    1,
			RemainingAmount: htlc.Amount,
			CreatedAt:       testTime,
		}
		require.NoError(t, store.CreatePartialOrder(ctx, order))

		// A fill of an unsplit HTLC is rejected without a trace.
		stray := &PartialFill{
			ID:        "stray",
			HTLCID:    "h1",
			Amount:    1,
			Status:    FillPending,
			UpdatedAt: testTime,
		}
		strayOrder := order.Copy()
		strayOrder.HTLCID = "other"
		err := store.CreateFill(ctx, &FillTransition{
			Fill:  stray,
			Order: strayOrder,
		})
		require.Error(t, err)

		_, err = store.FetchFill(ctx, "stray")
		require.ErrorIs(t, err, ErrNotFound)

		fill := &PartialFill{
			ID:            "f1",
			HTLCID:        "h1",
			Amount:        htlc.Amount,
			SecretHash:    testHash,
			Secret:        testPreimage,
			Resolver:      "r1",
			FillTimestamp: testTime,
			Status:        FillPending,
			UpdatedAt:     testTime,
		}
		order.PartialFills = []string{"f1"}
		order.ReservedAmount = htlc.Amount
		order.PartialFillIndex = 1
		err = store.CreateFill(ctx, &FillTransition{
			Fill:  fill,
			Order: order,
		})
		require.NoError(t, err)

		completed := fill.Copy()
		completed.Status = FillCompleted
		done := order.Copy()
		done.ReservedAmount = 0
		done.RemainingAmount = 0
		done.TotalFilled = htlc.Amount

		claimed := htlc.Copy()
		claimed.Status = HTLCClaimed
		claimUpdate := HTLCUpdate{
			Time:   testTime.Add(time.Minute),
			Status: HTLCClaimed,
			Event:  "OnAggregateClaim",
		}

		// Claiming an unknown parent fails the whole transition.
		unknown := claimed.Copy()
		unknown.ID = "unknown"
		err = store.UpdateFill(ctx, &FillTransition{
			Fill:        completed,
			Order:       done,
			Release:     NewFillRelease(htlc, completed, testTime),
			Claimed:     unknown,
			ClaimUpdate: claimUpdate,
		})
		require.ErrorIs(t, err, ErrNotFound)

		stored, err := store.FetchFill(ctx, "f1")
		require.NoError(t, err)
		require.Equal(t, FillPending, stored.Status)

		storedOrder, err := store.FetchPartialOrder(ctx, "h1")
		require.NoError(t, err)
		require.EqualValues(t, htlc.Amount, storedOrder.ReservedAmount)

		intents, err := store.FetchReleaseIntents(ctx, false)
		require.NoError(t, err)
		require.Empty(t, intents)

		err = store.UpdateFill(ctx, &FillTransition{
			Fill:        completed,
			Order:       done,
			Release:     NewFillRelease(htlc, completed, testTime),
			Claimed:     claimed,
			ClaimUpdate: claimUpdate,
		})
		require.NoError(t, err)

		storedHTLC, err := store.FetchHTLC(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, HTLCClaimed, storedHTLC.Status)

		updates, err := store.FetchHTLCUpdates(ctx, "h1")
		require.NoError(t, err)
		require.Len(t, updates, 2)
		require.Equal(t, claimUpdate, updates[1])

		intents, err = store.FetchReleaseIntents(ctx, true)
		require.NoError(t, err)
		require.Len(t, intents, 1)
		require.Equal(t, "fill:f1", intents[0].Key)
	})
}

// TestResolverAndLinkStore tests resolvers and external links.
func TestResolverAndLinkStore(t *testing.T) {
	runStoreTest(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		resolver := &Resolver{
			Address: "r1",
			SupportedChains: []swap.ChainType{
				swap.ChainEVM, swap.ChainSolana,
			},
			IsActive:     true,
			SuccessRate:  1,
			RegisteredAt: testTime,
			LastActive:   testTime,
		}
		require.NoError(t, store.CreateResolver(ctx, resolver))
		require.ErrorIs(
			t, store.CreateResolver(ctx, resolver),
			ErrAlreadyExists,
		)

		resolver.TotalFills = 2
		resolver.Completed = 1
		resolver.Failed = 1
		resolver.SuccessRate = 0.5
		require.NoError(t, store.UpdateResolver(ctx, resolver))

		fetched, err := store.FetchResolver(ctx, "r1")
		require.NoError(t, err)
		require.Equal(t, resolver, fetched)

		resolvers, err := store.FetchResolvers(ctx)
		require.NoError(t, err)
		require.Len(t, resolvers, 1)

		require.NoError(t, store.CreateHTLC(ctx, newTestHTLC("h1")))

		link := &ExternalLink{
			HTLCID:        "h1",
			OrderHash:     "0xorder",
			Maker:         "alice",
			Chain:         swap.ChainEVM,
			Amount:        1000,
			Commitment:    testHash,
			SegmentCount:  4,
			IsSourceChain: true,
			LinkedAt:      testTime,
		}
		require.NoError(t, store.CreateLink(ctx, link))
		require.ErrorIs(
			t, store.CreateLink(ctx, link), ErrAlreadyExists,
		)

		fetchedLink, err := store.FetchLink(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, link, fetchedLink)
	})
}

// TestReleaseStore tests that release intents are idempotent and kept in
// insertion order.
func TestReleaseStore(t *testing.T) {
	runStoreTest(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		first := &ReleaseIntent{
			Key:         ReleaseKey(ReleaseHTLC, "h2"),
			Kind:        ReleaseHTLC,
			HTLCID:      "h2",
			Chain:       swap.ChainEVM,
			Token:       "ETH",
			Recipient:   "bob",
			Amount:      10,
			Secret:      testPreimage,
			NextAttempt: testTime,
			CreatedAt:   testTime,
		}
		second := first.Copy()
		second.Key = ReleaseKey(ReleaseFill, "f1")
		second.Kind = ReleaseFill
		second.FillID = "f1"

		added, err := store.PutReleaseIntent(ctx, first)
		require.NoError(t, err)
		require.True(t, added)

		added, err = store.PutReleaseIntent(ctx, first)
		require.NoError(t, err)
		require.False(t, added)

		added, err = store.PutReleaseIntent(ctx, second)
		require.NoError(t, err)
		require.True(t, added)

		first.Done = true
		first.TxID = "0xtx"
		first.Attempts = 1
		require.NoError(t, store.UpdateReleaseIntent(ctx, first))

		all, err := store.FetchReleaseIntents(ctx, false)
		require.NoError(t, err)
		require.Equal(t, []*ReleaseIntent{first, second}, all)

		pending, err := store.FetchReleaseIntents(ctx, true)
		require.NoError(t, err)
		require.Equal(t, []*ReleaseIntent{second}, pending)
	})
}

// TestBoltReopen tests that a reopened bolt database keeps its data and
// version.
func TestBoltReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.CreateHTLC(ctx, newTestHTLC("h1")))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	version, err := getDBVersion(store.db)
	require.NoError(t, err)
	require.Equal(t, latestDBVersion, version)

	_, err = store.FetchHTLC(ctx, "h1")
	require.NoError(t, err)
}
