package swapd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/htlcswap/orderbook"
	"github.com/lightninglabs/htlcswap/release"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/lncfg"
)

const (
	// DatabaseBackendBolt selects the bbolt store.
	DatabaseBackendBolt = "bolt"

	// DatabaseBackendSqlite selects the sqlite store.
	DatabaseBackendSqlite = "sqlite"

	// DatabaseBackendMemory keeps all state in memory. It is meant for
	// testing only.
	DatabaseBackendMemory = "memory"
)

var (
	// SwapDirBase is the default main directory of the daemon.
	SwapDirBase = btcutil.AppDataDir("htlcswap", false)

	defaultNetwork        = "mainnet"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "swapd.log"
	defaultSpoolDirname   = "releases"
	defaultSqliteFilename = "htlcswap.db"
	defaultConfigFilename = "swapd.conf"

	defaultLogDir     = filepath.Join(SwapDirBase, defaultLogDirname)
	defaultConfigFile = filepath.Join(
		SwapDirBase, defaultNetwork, defaultConfigFilename,
	)
)

type releaseConfig struct {
	Interval    time.Duration `long:"interval" description:"How often pending releases are retried."`
	BackoffBase time.Duration `long:"backoffbase" description:"The delay before the first retry of a failed release."`
	BackoffMax  time.Duration `long:"backoffmax" description:"The maximum delay between release retries."`
	SpoolDir    string        `long:"spooldir" description:"Directory releases are spooled to for the external relayer. Defaults to <datadir>/releases."`
	Disable     bool          `long:"disable" description:"Only record releases, never hand them to the relayer."`
}

type viewParameters struct{}

// Config is the main configuration of the swap daemon.
type Config struct {
	ShowVersion bool   `long:"version" description:"Display version information and exit"`
	Network     string `long:"network" description:"network to run on" choice:"regtest" choice:"testnet" choice:"mainnet"`

	SwapDir    string `long:"swapdir" description:"The directory for all of the daemon's data."`
	ConfigFile string `long:"configfile" description:"Path to configuration file."`
	DataDir    string `long:"datadir" description:"Directory for the swap database."`
	LogDir     string `long:"logdir" description:"Directory to log output."`

	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	DatabaseBackend string               `long:"databasebackend" description:"The database backend to use for storing all swap state." choice:"bolt" choice:"sqlite" choice:"memory"`
	Sqlite          *swapdb.SqliteConfig `group:"sqlite" namespace:"sqlite"`

	MakerTimelock time.Duration `long:"makertimelock" description:"The lifetime of the owner's HTLC of a matched order. The taker's HTLC expires after half of it."`
	OrderTTL      time.Duration `long:"orderttl" description:"The default lifetime of an order. Zero means orders don't expire."`

	Release *releaseConfig `group:"release" namespace:"release"`

	Logging *build.LogConfig `group:"logging" namespace:"logging"`

	View viewParameters `command:"view" alias:"v" description:"View all HTLCs, orders and pending releases in the database. This command can only be executed when swapd is not running."`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		Network:         defaultNetwork,
		SwapDir:         SwapDirBase,
		ConfigFile:      defaultConfigFile,
		DataDir:         SwapDirBase,
		LogDir:          defaultLogDir,
		DebugLevel:      defaultLogLevel,
		DatabaseBackend: DatabaseBackendBolt,
		Sqlite: &swapdb.SqliteConfig{
			DatabaseFileName: defaultSqliteFilename,
		},
		MakerTimelock: orderbook.DefaultMakerTimelock,
		Release: &releaseConfig{
			Interval:    release.DefaultInterval,
			BackoffBase: release.DefaultBackoffBase,
			BackoffMax:  release.DefaultBackoffMax,
		},
		Logging: build.DefaultLogConfig(),
	}
}

// Validate cleans up paths in the config provided and validates it.
func Validate(cfg *Config) error {
	if _, err := swap.NetworkFromString(cfg.Network); err != nil {
		return fmt.Errorf("%w: %v", err, cfg.Network)
	}

	// Cleanup any paths before we use them.
	cfg.SwapDir = lncfg.CleanAndExpandPath(cfg.SwapDir)
	cfg.DataDir = lncfg.CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = lncfg.CleanAndExpandPath(cfg.LogDir)

	// Since our swap directory overrides our log/data dir values, make
	// sure that they are not set when swap dir is set. We fail hard here
	// rather than overwriting and potentially confusing the user.
	logDirSet := cfg.LogDir != defaultLogDir
	dataDirSet := cfg.DataDir != SwapDirBase
	swapDirSet := cfg.SwapDir != SwapDirBase

	if swapDirSet {
		if logDirSet {
			return fmt.Errorf("swapdir overwrites logdir, please " +
				"only set one value")
		}

		if dataDirSet {
			return fmt.Errorf("swapdir overwrites datadir, please " +
				"only set one value")
		}

		cfg.DataDir = cfg.SwapDir
		cfg.LogDir = filepath.Join(cfg.SwapDir, defaultLogDirname)
	}

	// Append the network type to the data and log directory so they are
	// "namespaced" per network.
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.Network)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.Network)

	switch cfg.DatabaseBackend {
	case DatabaseBackendBolt, DatabaseBackendMemory:

	case DatabaseBackendSqlite:
		// A relative database file lives in the data directory.
		if !filepath.IsAbs(cfg.Sqlite.DatabaseFileName) {
			cfg.Sqlite.DatabaseFileName = filepath.Join(
				cfg.DataDir, cfg.Sqlite.DatabaseFileName,
			)
		}

	default:
		return fmt.Errorf("unknown database backend: %v",
			cfg.DatabaseBackend)
	}

	if cfg.MakerTimelock <= 0 {
		return fmt.Errorf("makertimelock must be positive")
	}
	if cfg.OrderTTL < 0 {
		return fmt.Errorf("orderttl must not be negative")
	}

	if cfg.Release.Interval <= 0 {
		return fmt.Errorf("release interval must be positive")
	}
	if cfg.Release.BackoffBase <= 0 ||
		cfg.Release.BackoffMax < cfg.Release.BackoffBase {

		return fmt.Errorf("release backoff must be positive and not "+
			"exceed the maximum of %v", cfg.Release.BackoffMax)
	}

	if cfg.Release.SpoolDir == "" {
		cfg.Release.SpoolDir = filepath.Join(
			cfg.DataDir, defaultSpoolDirname,
		)
	}
	cfg.Release.SpoolDir = lncfg.CleanAndExpandPath(cfg.Release.SpoolDir)

	// If either of these directories do not exist, create them.
	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		return err
	}

	return os.MkdirAll(cfg.LogDir, os.ModePerm)
}

// getConfigPath gets our config path based on the values that are set in our
// config.
func getConfigPath(cfg Config, swapDir string) string {
	// If the config file path provided by the user is set, then we just
	// use this value.
	if cfg.ConfigFile != defaultConfigFile {
		return lncfg.CleanAndExpandPath(cfg.ConfigFile)
	}

	// If the user has set a swap directory that is different to the
	// default we will use this directory as the location of our config
	// file. We do not namespace by network, because this is a custom dir.
	if swapDir != SwapDirBase {
		return filepath.Join(swapDir, defaultConfigFilename)
	}

	// Otherwise, we are using our default directory, and the user did not
	// set a config file path. We use our default directory, namespaced by
	// network.
	return filepath.Join(swapDir, cfg.Network, defaultConfigFilename)
}
