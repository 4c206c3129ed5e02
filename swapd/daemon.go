package swapd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lightninglabs/htlcswap"
	"github.com/lightninglabs/htlcswap/release"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

// Daemon is the swap daemon. It owns the store and the engine and runs the
// release dispatcher until it is stopped.
type Daemon struct {
	// To be used atomically.
	started int32
	stopped int32

	// ErrChan is an error channel that users of the Daemon struct must use
	// to detect runtime errors and also whether a shutdown is fully
	// completed.
	ErrChan chan error

	cfg *Config

	store  swapdb.Store
	engine *htlcswap.Engine

	mainCtxCancel func()
	wg            sync.WaitGroup
}

// New creates a new instance of the swap daemon.
func New(config *Config) *Daemon {
	return &Daemon{
		// We send exactly one message to this channel, so we buffer it
		// to make sure the sender never blocks.
		ErrChan: make(chan error, 1),
		cfg:     config,
	}
}

// OpenEngine opens the store and wires the engine on top of it.
func OpenEngine(ctx context.Context, cfg *Config) (swapdb.Store,
	*htlcswap.Engine, error) {

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	engineCfg := &htlcswap.Config{
		Store:             store,
		Clock:             clock.NewDefaultClock(),
		ReleaseTicker:     ticker.New(cfg.Release.Interval),
		MakerTimelock:     cfg.MakerTimelock,
		OrderTTL:          cfg.OrderTTL,
		ReleaseBackoff:    cfg.Release.BackoffBase,
		ReleaseBackoffMax: cfg.Release.BackoffMax,
	}

	if !cfg.Release.Disable {
		spool, err := release.NewSpoolExecutor(cfg.Release.SpoolDir)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		engineCfg.Executor = spool
	}

	engine, err := htlcswap.NewEngine(ctx, engineCfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return store, engine, nil
}

// Start starts the daemon. It does not block.
func (d *Daemon) Start() error {
	// There should be no reason to start the daemon twice. Therefore,
	// return an error if that's tried.
	if atomic.AddInt32(&d.started, 1) != 1 {
		return fmt.Errorf("daemon was already started")
	}

	mainCtx, cancel := context.WithCancel(context.Background())
	d.mainCtxCancel = cancel

	store, engine, err := OpenEngine(mainCtx, d.cfg)
	if err != nil {
		cancel()
		return err
	}
	d.store = store
	d.engine = engine

	if d.cfg.Release.Disable {
		log.Infof("Release execution disabled, releases are only " +
			"recorded")

		return nil
	}

	log.Infof("Spooling releases to %v", d.cfg.Release.SpoolDir)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		log.Infof("Starting release dispatcher")
		err := d.engine.Run(mainCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Release dispatcher failed: %v", err)

			// The channel is buffered with exactly one slot, a
			// concurrent Stop may have filled it already.
			select {
			case d.ErrChan <- err:
			default:
			}
		}
		log.Infof("Release dispatcher stopped")
	}()

	return nil
}

// Stop tells the daemon to shut down. The final result is delivered on
// ErrChan.
func (d *Daemon) Stop() {
	if atomic.AddInt32(&d.stopped, 1) != 1 {
		return
	}

	go d.stop()
}

// stop does the actual shutdown and blocks until all goroutines have exit.
func (d *Daemon) stop() {
	if d.mainCtxCancel != nil {
		d.mainCtxCancel()
	}

	d.wg.Wait()

	var err error
	if d.store != nil {
		log.Infof("Closing database")
		err = d.store.Close()
	}

	log.Infof("Daemon exited")

	select {
	case d.ErrChan <- err:
	default:
	}
}
