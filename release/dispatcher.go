package release

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultInterval is the default interval between two passes over
	// the pending intents.
	DefaultInterval = 30 * time.Second

	// DefaultBackoffBase is the delay before the first retry.
	DefaultBackoffBase = 10 * time.Second

	// DefaultBackoffMax caps the retry delay.
	DefaultBackoffMax = 30 * time.Minute
)

// ErrNoExecutor is returned when releases are processed without an executor.
var ErrNoExecutor = errors.New("no release executor configured")

// Executor executes a release on the external chain. Implementations must
// treat the intent key as idempotency key: executing the same key twice must
// not release funds twice.
type Executor interface {
	// Release submits the release and returns the external transaction
	// id.
	Release(ctx context.Context, intent *swapdb.ReleaseIntent) (string,
		error)
}

// Config contains the dependencies of the dispatcher.
type Config struct {
	// Store persists the intents.
	Store swapdb.ReleaseStore

	// Executor executes the releases. It may be nil, in which case
	// intents stay pending.
	Executor Executor

	// Clock is used to schedule retries.
	Clock clock.Clock

	// Ticker drives the periodic passes of Run.
	Ticker ticker.Ticker

	// BackoffBase is the delay before the first retry. Every further
	// failure doubles the delay.
	BackoffBase time.Duration

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration
}

// Dispatcher executes recorded release intents with retries.
type Dispatcher struct {
	cfg *Config

	// passMtx makes sure only one pass runs at a time.
	passMtx sync.Mutex

	// wakeup triggers a pass of Run right after a claim.
	wakeup chan struct{}
}

// NewDispatcher creates a new release dispatcher.
func NewDispatcher(cfg *Config) *Dispatcher {
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}

	return &Dispatcher{
		cfg:    cfg,
		wakeup: make(chan struct{}, 1),
	}
}

// Wake triggers a pass of Run. Intents are recorded by the store writes
// that claim an HTLC or complete a fill, the dispatcher only executes them.
func (d *Dispatcher) Wake() {
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

// Pending returns all intents that were not executed yet.
func (d *Dispatcher) Pending(ctx context.Context) ([]*swapdb.ReleaseIntent,
	error) {

	return d.cfg.Store.FetchReleaseIntents(ctx, true)
}

// backoff returns the retry delay after the given number of failed
// attempts.
func (d *Dispatcher) backoff(attempts uint32) time.Duration {
	delay := d.cfg.BackoffBase
	for i := uint32(1); i < attempts; i++ {
		delay *= 2
		if delay >= d.cfg.BackoffMax {
			return d.cfg.BackoffMax
		}
	}

	if delay > d.cfg.BackoffMax {
		return d.cfg.BackoffMax
	}

	return delay
}

// ProcessDue executes every pending intent whose next attempt is due. It
// returns the number of intents executed successfully.
func (d *Dispatcher) ProcessDue(ctx context.Context) (int, error) {
	if d.cfg.Executor == nil {
		return 0, ErrNoExecutor
	}

	d.passMtx.Lock()
	defer d.passMtx.Unlock()

	pending, err := d.cfg.Store.FetchReleaseIntents(ctx, true)
	if err != nil {
		return 0, err
	}

	var done int
	for _, intent := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}

		now := d.cfg.Clock.Now().UTC()
		if intent.NextAttempt.After(now) {
			continue
		}

		plog := &swap.PrefixLog{Logger: log, ID: intent.HTLCID}

		txID, err := d.cfg.Executor.Release(ctx, intent)
		if err != nil {
			intent.Attempts++
			intent.LastError = err.Error()
			intent.NextAttempt = now.Add(d.backoff(intent.Attempts))

			plog.Warnf("Release %v failed (attempt %d), retrying "+
				"at %v: %v", intent.Key, intent.Attempts,
				intent.NextAttempt, err)
		} else {
			intent.Done = true
			intent.TxID = txID
			intent.LastError = ""
			done++

			plog.Infof("Release %v executed in %v", intent.Key,
				txID)
		}

		err = d.cfg.Store.UpdateReleaseIntent(ctx, intent)
		if err != nil {
			return done, err
		}
	}

	return done, nil
}

// Run processes due intents on every tick and on every Wake, until the
// context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.cfg.Executor == nil {
		return ErrNoExecutor
	}
	if d.cfg.Ticker == nil {
		d.cfg.Ticker = ticker.New(DefaultInterval)
	}

	d.cfg.Ticker.Resume()
	defer d.cfg.Ticker.Stop()

	log.Infof("Release dispatcher started")
	defer log.Infof("Release dispatcher stopped")

	for {
		if _, err := d.ProcessDue(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			log.Errorf("Release pass failed: %v", err)
		}

		select {
		case <-d.cfg.Ticker.Ticks():
		case <-d.wakeup:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
