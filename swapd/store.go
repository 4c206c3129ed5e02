package swapd

import (
	"fmt"

	"github.com/lightninglabs/htlcswap/swapdb"
)

// OpenStore opens the database backend selected in the config. The config
// must have been validated.
func OpenStore(cfg *Config) (swapdb.Store, error) {
	switch cfg.DatabaseBackend {
	case DatabaseBackendBolt:
		log.Infof("Opening bolt database in %v", cfg.DataDir)
		return swapdb.NewBoltStore(cfg.DataDir)

	case DatabaseBackendSqlite:
		log.Infof("Opening sqlite database at %v",
			cfg.Sqlite.DatabaseFileName)
		return swapdb.NewSqliteStore(cfg.Sqlite)

	case DatabaseBackendMemory:
		log.Warnf("Using the in-memory database, all state is lost " +
			"on shutdown")
		return swapdb.NewMemStore(), nil

	default:
		return nil, fmt.Errorf("unknown database backend: %v",
			cfg.DatabaseBackend)
	}
}
