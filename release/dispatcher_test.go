package release

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightninglabs/htlcswap/test"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

// mockExecutor fails the first failures calls and records all calls.
type mockExecutor struct {
	sync.Mutex

	failures int
	calls    []string
	released chan string
}

func (m *mockExecutor) Release(_ context.Context,
	intent *swapdb.ReleaseIntent) (string, error) {

	m.Lock()
	defer m.Unlock()

	m.calls = append(m.calls, intent.Key)
	if m.failures > 0 {
		m.failures--
		return "", errors.New("rpc unavailable")
	}

	if m.released != nil {
		m.released <- intent.Key
	}

	return "tx-" + intent.Key, nil
}

func (m *mockExecutor) numCalls() int {
	m.Lock()
	defer m.Unlock()

	return len(m.calls)
}

func newTestDispatcher(executor Executor) (*Dispatcher, *clock.TestClock,
	*swapdb.MemStore) {

	testClock := test.NewClock()
	store := swapdb.NewMemStore()

	return NewDispatcher(&Config{
		Store:       store,
		Executor:    executor,
		Clock:       testClock,
		BackoffBase: time.Minute,
		BackoffMax:  5 * time.Minute,
	}), testClock, store
}

func testClaimedHTLC() *swapdb.HTLC {
	secret := lntypes.Preimage{1, 2, 3}

	return &swapdb.HTLC{
		ID:        "htlc-1",
		Recipient: "bob",
		Amount:    100,
		Token:     "ETH",
		Chain:     swap.ChainEVM,
		Secret:    &secret,
		Status:    swapdb.HTLCClaimed,
	}
}

// recordClaim stores the release of the claimed test HTLC the way a claim
// does.
func recordClaim(t *testing.T, store swapdb.ReleaseStore,
	testClock clock.Clock) bool {

	t.Helper()

	added, err := store.PutReleaseIntent(
		context.Background(),
		swapdb.NewHTLCRelease(testClaimedHTLC(), testClock.Now()),
	)
	require.NoError(t, err)

	return added
}

// TestReleaseIdempotent tests that a release key is only recorded once.
func TestReleaseIdempotent(t *testing.T) {
	ctx := context.Background()
	dispatcher, testClock, store := newTestDispatcher(&mockExecutor{})

	require.True(t, recordClaim(t, store, testClock))
	require.False(t, recordClaim(t, store, testClock))

	pending, err := dispatcher.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "htlc:htlc-1", pending[0].Key)
	require.Equal(t, "bob", pending[0].Recipient)
	require.Equal(t, lntypes.Preimage{1, 2, 3}, pending[0].Secret)
}

// TestProcessDueBackoff tests that failed releases are retried with
// exponential backoff.
func TestProcessDueBackoff(t *testing.T) {
	ctx := context.Background()
	executor := &mockExecutor{failures: 2}
	dispatcher, testClock, store := newTestDispatcher(executor)

	require.True(t, recordClaim(t, store, testClock))

	done, err := dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	require.Zero(t, done)

	intents, err := store.FetchReleaseIntents(ctx, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, intents[0].Attempts)
	require.Equal(t, "rpc unavailable", intents[0].LastError)
	require.Equal(t, testClock.Now().Add(time.Minute),
		intents[0].NextAttempt)

	// Not due yet.
	done, err = dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	require.Zero(t, done)
	require.Equal(t, 1, executor.numCalls())

	testClock.SetTime(testClock.Now().Add(time.Minute))
	done, err = dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	require.Zero(t, done)

	intents, err = store.FetchReleaseIntents(ctx, true)
	require.NoError(t, err)
	require.Equal(t, testClock.Now().Add(2*time.Minute),
		intents[0].NextAttempt)

	testClock.SetTime(testClock.Now().Add(2 * time.Minute))
	done, err = dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, done)

	pending, err := dispatcher.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	all, err := store.FetchReleaseIntents(ctx, false)
	require.NoError(t, err)
	require.True(t, all[0].Done)
	require.Equal(t, "tx-htlc:htlc-1", all[0].TxID)
	require.Empty(t, all[0].LastError)
}

// TestBackoff tests the retry delay schedule.
func TestBackoff(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(nil)

	require.Equal(t, time.Minute, dispatcher.backoff(1))
	require.Equal(t, 2*time.Minute, dispatcher.backoff(2))
	require.Equal(t, 4*time.Minute, dispatcher.backoff(3))
	require.Equal(t, 5*time.Minute, dispatcher.backoff(4))
	require.Equal(t, 5*time.Minute, dispatcher.backoff(40))

	_, err := dispatcher.ProcessDue(context.Background())
	require.ErrorIs(t, err, ErrNoExecutor)
}

// TestRun tests that Run executes intents right after a wakeup and stops on
// cancellation.
func TestRun(t *testing.T) {
	defer test.Guard(t)()

	executor := &mockExecutor{released: make(chan string, 1)}
	dispatcher, testClock, store := newTestDispatcher(executor)

	forceTicker := ticker.NewForce(time.Hour)
	dispatcher.cfg.Ticker = forceTicker

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- dispatcher.Run(ctx)
	}()

	require.True(t, recordClaim(t, store, testClock))
	dispatcher.Wake()

	select {
	case key := <-executor.released:
		require.Equal(t, "htlc:htlc-1", key)

	case <-time.After(test.Timeout):
		t.Fatal("release not executed")
	}

	cancel()
	require.ErrorIs(t, <-errChan, context.Canceled)
}
