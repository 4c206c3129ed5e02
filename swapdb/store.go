package swapdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.etcd.io/bbolt"
)

var (
	// dbFileName is the default file name of the swap database.
	dbFileName = "swap.db"

	// htlcBucketKey is a bucket that contains all HTLCs. It is keyed by
	// the HTLC id and leads to a nested sub-bucket that houses the state
	// and the update log of that HTLC.
	//
	// maps: htlcID -> htlcBucket
	htlcBucketKey = []byte("htlcs")

	// updatesBucketKey is a sub-bucket of an HTLC bucket holding all
	// updates of the HTLC. This list only ever grows.
	//
	// path: htlcBucket -> htlcBucket[id] -> updatesBucket
	//
	// maps: updateNumber -> update
	updatesBucketKey = []byte("updates")

	// stateKey holds the serialized current state of an HTLC.
	//
	// path: htlcBucket -> htlcBucket[id] -> stateKey
	stateKey = []byte("state")

	// orderBucketKey maps: orderID -> order
	orderBucketKey = []byte("orders")

	// swapBucketKey maps: swapID -> swap
	swapBucketKey = []byte("swaps")

	// partialOrderBucketKey maps: htlcID -> partial order
	partialOrderBucketKey = []byte("partial-orders")

	// fillBucketKey maps: fillID -> fill
	fillBucketKey = []byte("fills")

	// fillIndexBucketKey indexes fills by HTLC.
	//
	// maps: htlcID -> {fillID -> nil}
	fillIndexBucketKey = []byte("fill-index")

	// resolverBucketKey maps: address -> resolver
	resolverBucketKey = []byte("resolvers")

	// linkBucketKey maps: htlcID -> external link
	linkBucketKey = []byte("external-links")

	// releaseBucketKey maps: releaseKey -> release intent
	releaseBucketKey = []byte("releases")

	// releaseIndexBucketKey keeps the insertion order of release intents.
	//
	// maps: sequence -> releaseKey
	releaseIndexBucketKey = []byte("release-index")

	byteOrder = binary.BigEndian

	// topLevelBuckets are created when the database is opened.
	topLevelBuckets = [][]byte{
		htlcBucketKey, orderBucketKey, swapBucketKey,
		partialOrderBucketKey, fillBucketKey, fillIndexBucketKey,
		resolverBucketKey,
	}

	errBucketMissing = errors.New("bucket does not exist")
)

// fileExists returns true if the file exists, and false otherwise.
func fileExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}

	return true
}

// BoltStore stores swap engine state in boltdb.
type BoltStore struct {
	db *bbolt.DB
}

// A compile-time flag to ensure that BoltStore implements the Store
// interface.
var _ Store = (*BoltStore)(nil)

// NewBoltStore opens or creates the bolt database in the given directory.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	// If the target path for the store doesn't exist, then we'll create
	// it now before we proceed.
	if !fileExists(dbPath) {
		if err := os.MkdirAll(dbPath, 0700); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(dbPath, dbFileName)
	bdb, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		// If the meta bucket exists, we consider the database as
		// initialized and assume the meta bucket contains the db
		// version.
		metaBucket := tx.Bucket(metaBucketKey)
		if metaBucket == nil {
			log.Infof("Initializing new database with version %v",
				latestDBVersion)

			err := setDBVersion(tx, latestDBVersion)
			if err != nil {
				return err
			}

			if err := createBridgeBuckets(tx); err != nil {
				return err
			}
		}

		for _, key := range topLevelBuckets {
			_, err := tx.CreateBucketIfNotExists(key)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	// Finally, before we start, we'll sync the DB versions to pick up any
	// possible DB migrations.
	if err := syncVersions(bdb); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &BoltStore{db: bdb}, nil
}

// putValue serializes the value and stores it under the key.
func putValue(bucket *bbolt.Bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return bucket.Put(key, data)
}

// getValue deserializes the value stored under the key into a new T.
func getValue[T any](bucket *bbolt.Bucket, key []byte) (*T, error) {
	data := bucket.Get(key)
	if data == nil {
		return nil, ErrNotFound
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", key, err)
	}

	return &value, nil
}

// createValue stores a value in a top level bucket, failing if the key is
// already taken.
func (s *BoltStore) createValue(bucketKey []byte, key string,
	value any) error {

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKey)
		if bucket == nil {
			return errBucketMissing
		}

		if bucket.Get([]byte(key)) != nil {
			return ErrAlreadyExists
		}

		return putValue(bucket, []byte(key), value)
	})
}

// updateValue overwrites a value in a top level bucket, failing if the key
// is unknown.
func (s *BoltStore) updateValue(bucketKey []byte, key string,
	value any) error {

	return s.db.Update(func(tx *bbolt.Tx) error {
		return updateValueTx(tx, bucketKey, key, value)
	})
}

// updateValueTx is updateValue within an open write transaction.
func updateValueTx(tx *bbolt.Tx, bucketKey []byte, key string,
	value any) error {

	bucket := tx.Bucket(bucketKey)
	if bucket == nil {
		return errBucketMissing
	}

	if bucket.Get([]byte(key)) == nil {
		return ErrNotFound
	}

	return putValue(bucket, []byte(key), value)
}

// fetchValue reads a single value from a top level bucket.
func fetchValue[T any](db *bbolt.DB, bucketKey []byte, key string) (*T,
	error) {

	var value *T
	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKey)
		if bucket == nil {
			return errBucketMissing
		}

		var err error
		value, err = getValue[T](bucket, []byte(key))

		return err
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// fetchAll reads all values of a top level bucket in key order.
func fetchAll[T any](db *bbolt.DB, bucketKey []byte) ([]*T, error) {
	var values []*T
	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKey)
		if bucket == nil {
			return errBucketMissing
		}

		return bucket.ForEach(func(k, _ []byte) error {
			value, err := getValue[T](bucket, k)
			if err != nil {
				return err
			}
			values = append(values, value)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// CreateHTLC adds a new HTLC to the store.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreateHTLC(_ context.Context, htlc *HTLC) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(htlcBucketKey)
		if rootBucket == nil {
			return errBucketMissing
		}

		if rootBucket.Bucket([]byte(htlc.ID)) != nil {
			return ErrAlreadyExists
		}

		htlcBucket, err := rootBucket.CreateBucket([]byte(htlc.ID))
		if err != nil {
			return err
		}

		if err := putValue(htlcBucket, stateKey, htlc); err != nil {
			return err
		}

		updates, err := htlcBucket.CreateBucket(updatesBucketKey)
		if err != nil {
			return err
		}

		return appendUpdate(updates, HTLCUpdate{
			Time:   htlc.CreatedAt,
			Status: htlc.Status,
			Event:  "created",
		})
	})
}

// appendUpdate adds an update to the log under the next sequence number.
func appendUpdate(updates *bbolt.Bucket, update HTLCUpdate) error {
	id, err := updates.NextSequence()
	if err != nil {
		return err
	}

	var key [8]byte
	byteOrder.PutUint64(key[:], id)

	return putValue(updates, key[:], update)
}

// UpdateHTLC stores the new HTLC state and appends the update.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) UpdateHTLC(_ context.Context, htlc *HTLC,
	update HTLCUpdate, release *ReleaseIntent) error {

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := updateHTLC(tx, htlc, update); err != nil {
			return err
		}

		_, err := putRelease(tx, release)

		return err
	})
}

// updateHTLC stores the HTLC state and appends the update within an open
// write transaction.
func updateHTLC(tx *bbolt.Tx, htlc *HTLC, update HTLCUpdate) error {
	rootBucket := tx.Bucket(htlcBucketKey)
	if rootBucket == nil {
		return errBucketMissing
	}

	htlcBucket := rootBucket.Bucket([]byte(htlc.ID))
	if htlcBucket == nil {
		return ErrNotFound
	}

	if err := putValue(htlcBucket, stateKey, htlc); err != nil {
		return err
	}

	updates := htlcBucket.Bucket(updatesBucketKey)
	if updates == nil {
		return errBucketMissing
	}

	return appendUpdate(updates, update)
}

// FetchHTLC returns the HTLC with the given id.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchHTLC(_ context.Context, id string) (*HTLC, error) {
	var htlc *HTLC
	err := s.db.View(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(htlcBucketKey)
		if rootBucket == nil {
			return errBucketMissing
		}

		htlcBucket := rootBucket.Bucket([]byte(id))
		if htlcBucket == nil {
			return ErrNotFound
		}

		var err error
		htlc, err = getValue[HTLC](htlcBucket, stateKey)

		return err
	})
	if err != nil {
		return nil, err
	}

	return htlc, nil
}

// FetchHTLCs returns all HTLCs ordered by creation time.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchHTLCs(_ context.Context) ([]*HTLC, error) {
	var htlcs []*HTLC
	err := s.db.View(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(htlcBucketKey)
		if rootBucket == nil {
			return errBucketMissing
		}

		return rootBucket.ForEach(func(id, v []byte) error {
			// Only go into things that we know are sub-bucket
			// keys.
			if v != nil {
				return nil
			}

			htlcBucket := rootBucket.Bucket(id)
			if htlcBucket == nil {
				return fmt.Errorf("htlc bucket %s not found",
					id)
			}

			htlc, err := getValue[HTLC](htlcBucket, stateKey)
			if err != nil {
				return err
			}
			htlcs = append(htlcs, htlc)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(htlcs, func(i, j int) bool {
		return htlcs[i].CreatedAt.Before(htlcs[j].CreatedAt)
	})

	return htlcs, nil
}

// FetchHTLCUpdates returns the update log of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchHTLCUpdates(_ context.Context, id string) (
	[]HTLCUpdate, error) {

	var updates []HTLCUpdate
	err := s.db.View(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(htlcBucketKey)
		if rootBucket == nil {
			return errBucketMissing
		}

		htlcBucket := rootBucket.Bucket([]byte(id))
		if htlcBucket == nil {
			return ErrNotFound
		}

		updatesBucket := htlcBucket.Bucket(updatesBucketKey)
		if updatesBucket == nil {
			return errBucketMissing
		}

		return updatesBucket.ForEach(func(k, _ []byte) error {
			update, err := getValue[HTLCUpdate](updatesBucket, k)
			if err != nil {
				return err
			}
			updates = append(updates, *update)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return updates, nil
}

// CreateOrder adds a new order.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreateOrder(_ context.Context, order *LimitOrder) error {
	return s.createValue(orderBucketKey, order.ID, order)
}

// UpdateOrder overwrites an existing order.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) UpdateOrder(_ context.Context, order *LimitOrder) error {
	return s.updateValue(orderBucketKey, order.ID, order)
}

// FetchOrder returns the order with the given id.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchOrder(_ context.Context, id string) (*LimitOrder,
	error) {

	return fetchValue[LimitOrder](s.db, orderBucketKey, id)
}

// FetchOrders returns all orders ordered by placement time.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchOrders(_ context.Context) ([]*LimitOrder, error) {
	orders, err := fetchAll[LimitOrder](s.db, orderBucketKey)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp.Before(orders[j].Timestamp)
	})

	return orders, nil
}

// CreateSwap adds a swap record and stores its matched order.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreateSwap(_ context.Context, swap *Swap,
	order *LimitOrder) error {

	return s.db.Update(func(tx *bbolt.Tx) error {
		swaps := tx.Bucket(swapBucketKey)
		if swaps == nil {
			return errBucketMissing
		}

		if swaps.Get([]byte(swap.ID)) != nil {
			return ErrAlreadyExists
		}

		if err := putValue(swaps, []byte(swap.ID), swap); err != nil {
			return err
		}

		return updateValueTx(tx, orderBucketKey, order.ID, order)
	})
}

// FetchSwap returns the swap with the given id.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchSwap(_ context.Context, id string) (*Swap, error) {
	return fetchValue[Swap](s.db, swapBucketKey, id)
}

// CreatePartialOrder adds a partial order.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreatePartialOrder(_ context.Context,
	order *PartialOrder) error {

	return s.createValue(partialOrderBucketKey, order.HTLCID, order)
}

// FetchPartialOrder returns the partial order of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchPartialOrder(_ context.Context, htlcID string) (
	*PartialOrder, error) {

	return fetchValue[PartialOrder](s.db, partialOrderBucketKey, htlcID)
}

// CreateFill adds a new fill, indexes it by its HTLC and stores its partial
// order.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreateFill(_ context.Context,
	transition *FillTransition) error {

	fill, order := transition.Fill, transition.Order

	return s.db.Update(func(tx *bbolt.Tx) error {
		fills := tx.Bucket(fillBucketKey)
		index := tx.Bucket(fillIndexBucketKey)
		if fills == nil || index == nil {
			return errBucketMissing
		}

		if fills.Get([]byte(fill.ID)) != nil {
			return ErrAlreadyExists
		}

		if err := putValue(fills, []byte(fill.ID), fill); err != nil {
			return err
		}

		htlcIndex, err := index.CreateBucketIfNotExists(
			[]byte(fill.HTLCID),
		)
		if err != nil {
			return err
		}

		if err := htlcIndex.Put([]byte(fill.ID), []byte{}); err != nil {
			return err
		}

		return updateValueTx(
			tx, partialOrderBucketKey, order.HTLCID, order,
		)
	})
}

// UpdateFill overwrites an existing fill and applies the rest of the
// transition.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) UpdateFill(_ context.Context,
	transition *FillTransition) error {

	fill, order := transition.Fill, transition.Order

	return s.db.Update(func(tx *bbolt.Tx) error {
		err := updateValueTx(tx, fillBucketKey, fill.ID, fill)
		if err != nil {
			return err
		}

		err = updateValueTx(
			tx, partialOrderBucketKey, order.HTLCID, order,
		)
		if err != nil {
			return err
		}

		if transition.Claimed != nil {
			err := updateHTLC(
				tx, transition.Claimed, transition.ClaimUpdate,
			)
			if err != nil {
				return err
			}
		}

		_, err = putRelease(tx, transition.Release)

		return err
	})
}

// FetchFill returns the fill with the given id.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchFill(_ context.Context, id string) (*PartialFill,
	error) {

	return fetchValue[PartialFill](s.db, fillBucketKey, id)
}

// FetchFills returns the fills of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchFills(_ context.Context, htlcID string) (
	[]*PartialFill, error) {

	var result []*PartialFill
	err := s.db.View(func(tx *bbolt.Tx) error {
		fills := tx.Bucket(fillBucketKey)
		index := tx.Bucket(fillIndexBucketKey)
		if fills == nil || index == nil {
			return errBucketMissing
		}

		htlcIndex := index.Bucket([]byte(htlcID))
		if htlcIndex == nil {
			return nil
		}

		return htlcIndex.ForEach(func(id, _ []byte) error {
			fill, err := getValue[PartialFill](fills, id)
			if err != nil {
				return err
			}
			result = append(result, fill)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	SortFills(result)

	return result, nil
}

// CreateResolver adds a new resolver.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreateResolver(_ context.Context,
	resolver *Resolver) error {

	return s.createValue(resolverBucketKey, resolver.Address, resolver)
}

// UpdateResolver overwrites an existing resolver.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) UpdateResolver(_ context.Context,
	resolver *Resolver) error {

	return s.updateValue(resolverBucketKey, resolver.Address, resolver)
}

// FetchResolver returns the resolver with the given address.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchResolver(_ context.Context, address string) (
	*Resolver, error) {

	return fetchValue[Resolver](s.db, resolverBucketKey, address)
}

// FetchResolvers returns all resolvers ordered by address.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchResolvers(_ context.Context) ([]*Resolver, error) {
	return fetchAll[Resolver](s.db, resolverBucketKey)
}

// CreateLink adds a new external link.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) CreateLink(_ context.Context, link *ExternalLink) error {
	return s.createValue(linkBucketKey, link.HTLCID, link)
}

// FetchLink returns the link of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchLink(_ context.Context, htlcID string) (
	*ExternalLink, error) {

	return fetchValue[ExternalLink](s.db, linkBucketKey, htlcID)
}

// PutReleaseIntent adds the intent unless its key is already known.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) PutReleaseIntent(_ context.Context,
	intent *ReleaseIntent) (bool, error) {

	var added bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		added, err = putRelease(tx, intent)

		return err
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

// putRelease adds the intent within an open write transaction unless it is
// nil or its key is already known.
func putRelease(tx *bbolt.Tx, intent *ReleaseIntent) (bool, error) {
	if intent == nil {
		return false, nil
	}

	releases := tx.Bucket(releaseBucketKey)
	index := tx.Bucket(releaseIndexBucketKey)
	if releases == nil || index == nil {
		return false, errBucketMissing
	}

	key := []byte(intent.Key)
	if releases.Get(key) != nil {
		return false, nil
	}

	if err := putValue(releases, key, intent); err != nil {
		return false, err
	}

	seq, err := index.NextSequence()
	if err != nil {
		return false, err
	}

	var seqKey [8]byte
	byteOrder.PutUint64(seqKey[:], seq)

	return true, index.Put(seqKey[:], key)
}

// UpdateReleaseIntent overwrites an existing intent.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) UpdateReleaseIntent(_ context.Context,
	intent *ReleaseIntent) error {

	return s.updateValue(releaseBucketKey, intent.Key, intent)
}

// FetchReleaseIntents returns the intents in insertion order.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) FetchReleaseIntents(_ context.Context, pendingOnly bool) (
	[]*ReleaseIntent, error) {

	var result []*ReleaseIntent
	err := s.db.View(func(tx *bbolt.Tx) error {
		releases := tx.Bucket(releaseBucketKey)
		index := tx.Bucket(releaseIndexBucketKey)
		if releases == nil || index == nil {
			return errBucketMissing
		}

		return index.ForEach(func(_, key []byte) error {
			intent, err := getValue[ReleaseIntent](releases, key)
			if err != nil {
				return err
			}
			if pendingOnly && intent.Done {
				return nil
			}
			result = append(result, intent)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Close closes the underlying database.
//
// NOTE: Part of the Store interface.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
