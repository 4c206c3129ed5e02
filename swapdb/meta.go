package swapdb

import (
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// metaBucketKey stores all the meta information concerning the state
	// of the database.
	metaBucketKey = []byte("metadata")

	// dbVersionKey is a boltdb key and it's used for storing/retrieving
	// current database version.
	dbVersionKey = []byte("dbp")

	// ErrDBReversion is returned when detecting an attempt to revert to a
	// prior database version.
	ErrDBReversion = fmt.Errorf("swap db cannot revert to prior version")
)

// migration is a function which takes a prior outdated version of the
// database instance and mutates the key/bucket structure to arrive at a more
// up-to-date version of the database.
type migration func(tx *bbolt.Tx) error

var (
	// migrations lists all migrations. Migration i moves the database
	// from version i to version i+1.
	migrations = []migration{
		migrateBridgeBuckets,
	}

	latestDBVersion = uint32(len(migrations))
)

// getDBVersion retrieves the current db version.
func getDBVersion(db *bbolt.DB) (uint32, error) {
	var version uint32

	err := db.View(func(tx *bbolt.Tx) error {
		metaBucket := tx.Bucket(metaBucketKey)
		if metaBucket == nil {
			return errors.New("bucket does not exist")
		}

		// If no version key found, assume version is 0.
		data := metaBucket.Get(dbVersionKey)
		if data != nil {
			version = byteOrder.Uint32(data)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setDBVersion updates the current db version.
func setDBVersion(tx *bbolt.Tx, version uint32) error {
	metaBucket, err := tx.CreateBucketIfNotExists(metaBucketKey)
	if err != nil {
		return fmt.Errorf("set db version: %w", err)
	}

	scratch := make([]byte, 4)
	byteOrder.PutUint32(scratch, version)

	return metaBucket.Put(dbVersionKey, scratch)
}

// syncVersions applies all outstanding migrations in a single transaction,
// so either all of them or none are applied.
func syncVersions(db *bbolt.DB) error {
	currentVersion, err := getDBVersion(db)
	if err != nil {
		return err
	}

	log.Infof("Checking for schema update: latest_version=%v, "+
		"db_version=%v", latestDBVersion, currentVersion)

	switch {
	// A higher version than we know of means the user is trying to run
	// an older binary against a newer database.
	case currentVersion > latestDBVersion:
		log.Errorf("Refusing to revert from db_version=%d to "+
			"lower version=%d", currentVersion, latestDBVersion)

		return ErrDBReversion

	case currentVersion == latestDBVersion:
		return nil
	}

	log.Infof("Performing database schema migration")

	return db.Update(func(tx *bbolt.Tx) error {
		for v := currentVersion; v < latestDBVersion; v++ {
			log.Infof("Applying migration #%v", v+1)

			if err := migrations[v](tx); err != nil {
				log.Errorf("Unable to apply migration #%v: %v",
					v+1, err)

				return err
			}
		}

		return setDBVersion(tx, latestDBVersion)
	})
}

// createBridgeBuckets creates the buckets used by the external order bridge
// and the release dispatcher.
func createBridgeBuckets(tx *bbolt.Tx) error {
	for _, key := range [][]byte{
		linkBucketKey, releaseBucketKey, releaseIndexBucketKey,
	} {
		if _, err := tx.CreateBucketIfNotExists(key); err != nil {
			return err
		}
	}

	return nil
}

// migrateBridgeBuckets adds the external link and release buckets to
// databases created before the bridge existed.
func migrateBridgeBuckets(tx *bbolt.Tx) error {
	return createBridgeBuckets(tx)
}
