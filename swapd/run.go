package swapd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/lightninglabs/htlcswap"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/lncfg"
	"github.com/lightningnetwork/lnd/signal"
)

// Run starts the swap daemon and blocks until it's shut down again.
func Run() error {
	config := DefaultConfig()

	// Parse command line flags.
	parser := flags.NewParser(&config, flags.Default)
	parser.SubcommandsOptional = true

	_, err := parser.Parse()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	}
	if err != nil {
		return err
	}

	// Parse ini file.
	swapDir := lncfg.CleanAndExpandPath(config.SwapDir)
	configFile := getConfigPath(config, swapDir)

	if err := flags.IniParse(configFile, &config); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return err
		}
	}

	// Parse command line flags again to restore flags overwritten by ini
	// parse.
	_, err = parser.Parse()
	if err != nil {
		return err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if config.ShowVersion {
		fmt.Println(appName, "version", htlcswap.Version())
		os.Exit(0)
	}

	// Start listening for signal interrupts regardless of which command
	// we are running. The interceptor is also handed to the loggers so a
	// critical error shuts the daemon down.
	intercept, err := signal.Intercept()
	if err != nil {
		return err
	}

	logWriter := build.NewRotatingLogWriter()
	logMgr := build.NewSubLoggerManager(build.NewDefaultLogHandlers(
		config.Logging, logWriter,
	)...)
	SetupLoggers(logMgr, intercept)

	// Special show command to list supported subsystems and exit.
	if config.DebugLevel == "show" {
		fmt.Printf("Supported subsystems: %v\n",
			logMgr.SupportedSubsystems())
		os.Exit(0)
	}

	// Validate our config before we proceed.
	if err := Validate(&config); err != nil {
		return err
	}

	// Initialize logging at the default logging level.
	err = logWriter.InitLogRotator(
		config.Logging.File,
		filepath.Join(config.LogDir, defaultLogFilename),
	)
	if err != nil {
		return err
	}
	err = build.ParseAndSetDebugLevels(config.DebugLevel, logMgr)
	if err != nil {
		return err
	}

	// Print the version before executing either primary directive.
	log.Infof("Version: %v", htlcswap.Version())

	// Execute command.
	if parser.Active == nil {
		daemon := New(&config)
		if err := daemon.Start(); err != nil {
			return err
		}

		select {
		case <-intercept.ShutdownChannel():
			log.Infof("Received SIGINT (Ctrl+C).")
			daemon.Stop()

			// The above stop will return immediately. But we'll be
			// notified on the error channel once the process is
			// complete.
			return <-daemon.ErrChan

		case err := <-daemon.ErrChan:
			daemon.Stop()
			return err
		}
	}

	if parser.Active.Name == "view" {
		return view(&config)
	}

	return fmt.Errorf("unimplemented command %v", parser.Active.Name)
}
