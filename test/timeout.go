package test

import (
	"os"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

// GuardConfig alters the behaviour of Guard.
type GuardConfig struct {
	timeout time.Duration
}

// GuardOption is an option for Guard.
type GuardOption func(*GuardConfig)

// WithGuardTimeout overrides the default timeout of Guard.
func WithGuardTimeout(timeout time.Duration) GuardOption {
	return func(config *GuardConfig) {
		config.timeout = timeout
	}
}

// Guard implements a test level timeout and checks for leaked goroutines
// once the returned function is called.
func Guard(t *testing.T, opts ...GuardOption) func() {
	config := &GuardConfig{
		timeout: Timeout,
	}
	for _, opt := range opts {
		opt(config)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(config.timeout):
			err := pprof.Lookup("goroutine").WriteTo(os.Stdout, 1)
			if err != nil {
				panic(err)
			}

			panic("test timeout")

		case <-done:
		}
	}()

	fn := leaktest.Check(t)

	return func() {
		close(done)
		fn()
	}
}
