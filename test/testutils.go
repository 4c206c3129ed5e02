package test

import (
	"errors"
	"os"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

var (
	// Timeout is the default timeout when tests wait for something to
	// happen.
	Timeout = time.Second * 5

	// ErrTimeout is returned on timeout.
	ErrTimeout = errors.New("test timeout")

	// StartTime is the time test clocks start at.
	StartTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
)

// NewClock returns a test clock set to StartTime.
func NewClock() *clock.TestClock {
	return clock.NewTestClock(StartTime)
}

// NewSecret returns a fresh random secret and its hashlock.
func NewSecret(t *testing.T) (hashlock.Secret, hashlock.Hashlock) {
	t.Helper()

	secret, err := hashlock.NewSecret()
	require.NoError(t, err)

	return secret, hashlock.Hash(secret)
}

// NewSequence returns a fresh ordered secret sequence.
func NewSequence(t *testing.T, count uint32) *hashlock.SecretSequence {
	t.Helper()

	seq, err := hashlock.NewSecretSequence(count)
	require.NoError(t, err)

	return seq
}

// DumpGoroutines dumps all currently running goroutines.
func DumpGoroutines() {
	_ = pprof.Lookup("goroutine").WriteTo(os.Stdout, 1)
}
