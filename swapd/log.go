package swapd

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/htlcswap"
	"github.com/lightninglabs/htlcswap/bridge"
	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/htlc"
	"github.com/lightninglabs/htlcswap/orderbook"
	"github.com/lightninglabs/htlcswap/partialfill"
	"github.com/lightninglabs/htlcswap/release"
	"github.com/lightninglabs/htlcswap/resolver"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/signal"
)

// Subsystem defines the logging code for this subsystem.
const Subsystem = "SWPD"

var (
	log         btclog.Logger = btclog.Disabled
	interceptor signal.Interceptor
)

// SetupLoggers initializes all package-global logger variables.
func SetupLoggers(root *build.SubLoggerManager, intercept signal.Interceptor) {
	genLogger := genSubLogger(root, intercept)

	interceptor = intercept
	log = build.NewSubLogger(Subsystem, genLogger)
	root.RegisterSubLogger(Subsystem, log)

	addSubLogger(root, htlcswap.Subsystem, intercept, htlcswap.UseLogger)
	addSubLogger(root, htlc.Subsystem, intercept, htlc.UseLogger)
	addSubLogger(root, orderbook.Subsystem, intercept, orderbook.UseLogger)
	addSubLogger(
		root, partialfill.Subsystem, intercept, partialfill.UseLogger,
	)
	addSubLogger(root, resolver.Subsystem, intercept, resolver.UseLogger)
	addSubLogger(root, bridge.Subsystem, intercept, bridge.UseLogger)
	addSubLogger(root, release.Subsystem, intercept, release.UseLogger)
	addSubLogger(root, swapdb.Subsystem, intercept, swapdb.UseLogger)
	addSubLogger(root, fsm.Subsystem, intercept, fsm.UseLogger)
}

// addSubLogger creates a sub logger for the subsystem, registers it with the
// root logger and hands it to the package.
func addSubLogger(root *build.SubLoggerManager, subsystem string,
	interceptor signal.Interceptor, useLoggers ...func(btclog.Logger)) {

	logger := build.NewSubLogger(
		subsystem, genSubLogger(root, interceptor),
	)
	root.RegisterSubLogger(subsystem, logger)

	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}

// genSubLogger creates a logger for a subsystem. We provide an instance of
// a signal.Interceptor to be able to shutdown in the case of a critical error.
func genSubLogger(root *build.SubLoggerManager,
	interceptor signal.Interceptor) func(string) btclog.Logger {

	// Create a shutdown function which will request shutdown from our
	// interceptor if it is listening.
	shutdown := func() {
		if !interceptor.Listening() {
			return
		}

		interceptor.RequestShutdown()
	}

	// Return a function which will create a sublogger from our root
	// logger without shutdown fn.
	return func(tag string) btclog.Logger {
		return root.GenSubLogger(tag, shutdown)
	}
}
