package test

import (
	"os"

	"github.com/btcsuite/btclog/v2"
)

// Logger returns a trace level logger for the given subsystem that writes to
// standard output. Tests use it to make a package under test verbose.
func Logger(subsystem string) btclog.Logger {
	logger := btclog.NewSLogger(btclog.NewDefaultHandler(os.Stdout))
	logger.SetLevel(btclog.LevelTrace)

	return logger.SubSystem(subsystem)
}
