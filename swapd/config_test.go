package swapd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testConfig returns a default config rooted in a temporary directory.
func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.SwapDir = t.TempDir()

	return cfg
}

// TestValidate tests path namespacing and the validation of the config.
func TestValidate(t *testing.T) {
	t.Run("swapdir", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, Validate(&cfg))

		require.Equal(
			t, filepath.Join(cfg.SwapDir, defaultNetwork),
			cfg.DataDir,
		)
		require.Equal(
			t, filepath.Join(
				cfg.SwapDir, defaultLogDirname, defaultNetwork,
			), cfg.LogDir,
		)
		require.Equal(
			t, filepath.Join(cfg.DataDir, defaultSpoolDirname),
			cfg.Release.SpoolDir,
		)
		require.DirExists(t, cfg.DataDir)
		require.DirExists(t, cfg.LogDir)
	})

	t.Run("swapdir and logdir", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LogDir = t.TempDir()

		require.ErrorContains(t, Validate(&cfg), "overwrites logdir")
	})

	t.Run("swapdir and datadir", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DataDir = t.TempDir()

		require.ErrorContains(t, Validate(&cfg), "overwrites datadir")
	})

	t.Run("sqlite path", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Network = "regtest"
		cfg.DatabaseBackend = DatabaseBackendSqlite
		require.NoError(t, Validate(&cfg))

		require.Equal(
			t, filepath.Join(cfg.DataDir, defaultSqliteFilename),
			cfg.Sqlite.DatabaseFileName,
		)
	})

	invalid := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "network",
			mutate: func(c *Config) {
				c.Network = "simnet"
			},
		},
		{
			name: "backend",
			mutate: func(c *Config) {
				c.DatabaseBackend = "postgres"
			},
		},
		{
			name: "maker timelock",
			mutate: func(c *Config) {
				c.MakerTimelock = 0
			},
		},
		{
			name: "order ttl",
			mutate: func(c *Config) {
				c.OrderTTL = -time.Second
			},
		},
		{
			name: "release interval",
			mutate: func(c *Config) {
				c.Release.Interval = 0
			},
		},
		{
			name: "release backoff",
			mutate: func(c *Config) {
				c.Release.BackoffMax = c.Release.BackoffBase / 2
			},
		},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)

			require.Error(t, Validate(&cfg))
		})
	}
}

// TestGetConfigPath tests where the config file is looked up.
func TestGetConfigPath(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(
		t, filepath.Join(SwapDirBase, "mainnet", defaultConfigFilename),
		getConfigPath(cfg, SwapDirBase),
	)

	require.Equal(
		t, filepath.Join("/custom", defaultConfigFilename),
		getConfigPath(cfg, "/custom"),
	)

	cfg.ConfigFile = "/etc/swapd.conf"
	require.Equal(t, "/etc/swapd.conf", getConfigPath(cfg, "/custom"))
}
