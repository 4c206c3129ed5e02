package swapdb

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a record with the same key is
	// created twice.
	ErrAlreadyExists = errors.New("record already exists")
)

// HTLCStore persists HTLCs and their append-only update log.
type HTLCStore interface {
	// CreateHTLC adds a new HTLC to the store.
	CreateHTLC(ctx context.Context, htlc *HTLC) error

	// UpdateHTLC stores the new state of an HTLC and appends the update
	// to its event log. The log only ever grows. A non-nil release is
	// recorded in the same transaction unless its key is already known.
	UpdateHTLC(ctx context.Context, htlc *HTLC, update HTLCUpdate,
		release *ReleaseIntent) error

	// FetchHTLC returns the HTLC with the given id.
	FetchHTLC(ctx context.Context, id string) (*HTLC, error)

	// FetchHTLCs returns all HTLCs currently in the store.
	FetchHTLCs(ctx context.Context) ([]*HTLC, error)

	// FetchHTLCUpdates returns the update log of the given HTLC in the
	// order the updates were appended.
	FetchHTLCUpdates(ctx context.Context, id string) ([]HTLCUpdate, error)
}

// OrderStore persists limit orders and the swaps created from them.
type OrderStore interface {
	// CreateOrder adds a new order to the store.
	CreateOrder(ctx context.Context, order *LimitOrder) error

	// UpdateOrder overwrites an existing order.
	UpdateOrder(ctx context.Context, order *LimitOrder) error

	// FetchOrder returns the order with the given id.
	FetchOrder(ctx context.Context, id string) (*LimitOrder, error)

	// FetchOrders returns all orders currently in the store.
	FetchOrders(ctx context.Context) ([]*LimitOrder, error)

	// CreateSwap adds the record of a matched order and stores the
	// matched order in the same transaction.
	CreateSwap(ctx context.Context, swap *Swap, order *LimitOrder) error

	// FetchSwap returns the swap with the given id.
	FetchSwap(ctx context.Context, id string) (*Swap, error)
}

// PartialFillStore persists partial orders and their fills.
type PartialFillStore interface {
	// CreatePartialOrder adds a partial order for an HTLC.
	CreatePartialOrder(ctx context.Context, order *PartialOrder) error

	// FetchPartialOrder returns the partial order of the given HTLC.
	FetchPartialOrder(ctx context.Context, htlcID string) (*PartialOrder,
		error)

	// CreateFill adds the new fill of the transition and stores its
	// partial order in one transaction.
	CreateFill(ctx context.Context, transition *FillTransition) error

	// UpdateFill overwrites the fill of the transition and stores its
	// partial order, release and claimed parent HTLC in one transaction.
	UpdateFill(ctx context.Context, transition *FillTransition) error

	// FetchFill returns the fill with the given id.
	FetchFill(ctx context.Context, id string) (*PartialFill, error)

	// FetchFills returns all fills of the given HTLC ordered by segment
	// and creation time.
	FetchFills(ctx context.Context, htlcID string) ([]*PartialFill, error)
}

// ResolverStore persists resolver records.
type ResolverStore interface {
	// CreateResolver adds a new resolver.
	CreateResolver(ctx context.Context, resolver *Resolver) error

	// UpdateResolver overwrites an existing resolver.
	UpdateResolver(ctx context.Context, resolver *Resolver) error

	// FetchResolver returns the resolver with the given address.
	FetchResolver(ctx context.Context, address string) (*Resolver, error)

	// FetchResolvers returns all resolvers.
	FetchResolvers(ctx context.Context) ([]*Resolver, error)
}

// LinkStore persists links between HTLCs and external orders.
type LinkStore interface {
	// CreateLink adds a new link. Only one link per HTLC may exist.
	CreateLink(ctx context.Context, link *ExternalLink) error

	// FetchLink returns the link of the given HTLC.
	FetchLink(ctx context.Context, htlcID string) (*ExternalLink, error)
}

// ReleaseStore persists release intents for the external chain bridge.
type ReleaseStore interface {
	// PutReleaseIntent adds the intent if no intent with the same key
	// exists. It returns true if the intent was added.
	PutReleaseIntent(ctx context.Context, intent *ReleaseIntent) (bool,
		error)

	// UpdateReleaseIntent overwrites an existing intent.
	UpdateReleaseIntent(ctx context.Context, intent *ReleaseIntent) error

	// FetchReleaseIntents returns the stored intents. If pendingOnly is
	// set, intents that are done are skipped.
	FetchReleaseIntents(ctx context.Context, pendingOnly bool) (
		[]*ReleaseIntent, error)
}

// Store is the primary database interface used by the swap engine. It
// houses all entities the engine owns.
type Store interface {
	HTLCStore
	OrderStore
	PartialFillStore
	ResolverStore
	LinkStore
	ReleaseStore

	// Close closes the underlying database.
	Close() error
}
