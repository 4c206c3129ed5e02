package swapdb

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. It is the default arena for tests and for
// deployments that snapshot state through an external collaborator.
type MemStore struct {
	sync.RWMutex

	htlcs       map[string]*HTLC
	htlcUpdates map[string][]HTLCUpdate
	orders      map[string]*LimitOrder
	swaps       map[string]*Swap
	partials    map[string]*PartialOrder
	fills       map[string]*PartialFill
	resolvers   map[string]*Resolver
	links       map[string]*ExternalLink
	releases    map[string]*ReleaseIntent

	// releaseOrder keeps the insertion order of release intents.
	releaseOrder []string
}

// A compile-time flag to ensure that MemStore implements the Store
// interface.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		htlcs:       make(map[string]*HTLC),
		htlcUpdates: make(map[string][]HTLCUpdate),
		orders:      make(map[string]*LimitOrder),
		swaps:       make(map[string]*Swap),
		partials:    make(map[string]*PartialOrder),
		fills:       make(map[string]*PartialFill),
		resolvers:   make(map[string]*Resolver),
		links:       make(map[string]*ExternalLink),
		releases:    make(map[string]*ReleaseIntent),
	}
}

// CreateHTLC adds a new HTLC to the store.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreateHTLC(_ context.Context, htlc *HTLC) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.htlcs[htlc.ID]; ok {
		return ErrAlreadyExists
	}

	s.htlcs[htlc.ID] = htlc.Copy()
	s.htlcUpdates[htlc.ID] = []HTLCUpdate{{
		Time:   htlc.CreatedAt,
		Status: htlc.Status,
		Event:  "created",
	}}

	return nil
}

// UpdateHTLC stores the new HTLC state and appends the update.
//
// NOTE: Part of the Store interface.
func (s *MemStore) UpdateHTLC(_ context.Context, htlc *HTLC,
	update HTLCUpdate, release *ReleaseIntent) error {

	s.Lock()
	defer s.Unlock()

	if _, ok := s.htlcs[htlc.ID]; !ok {
		return ErrNotFound
	}

	s.htlcs[htlc.ID] = htlc.Copy()
	s.htlcUpdates[htlc.ID] = append(s.htlcUpdates[htlc.ID], update)
	s.putRelease(release)

	return nil
}

// FetchHTLC returns the HTLC with the given id.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchHTLC(_ context.Context, id string) (*HTLC, error) {
	s.RLock()
	defer s.RUnlock()

	htlc, ok := s.htlcs[id]
	if !ok {
		return nil, ErrNotFound
	}

	return htlc.Copy(), nil
}

// FetchHTLCs returns all HTLCs ordered by creation time.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchHTLCs(_ context.Context) ([]*HTLC, error) {
	s.RLock()
	defer s.RUnlock()

	result := make([]*HTLC, 0, len(s.htlcs))
	for _, htlc := range s.htlcs {
		result = append(result, htlc.Copy())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}

		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// FetchHTLCUpdates returns the update log of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchHTLCUpdates(_ context.Context, id string) (
	[]HTLCUpdate, error) {

	s.RLock()
	defer s.RUnlock()

	updates, ok := s.htlcUpdates[id]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]HTLCUpdate(nil), updates...), nil
}

// CreateOrder adds a new order.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreateOrder(_ context.Context, order *LimitOrder) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return ErrAlreadyExists
	}
	s.orders[order.ID] = order.Copy()

	return nil
}

// UpdateOrder overwrites an existing order.
//
// NOTE: Part of the Store interface.
func (s *MemStore) UpdateOrder(_ context.Context, order *LimitOrder) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return ErrNotFound
	}
	s.orders[order.ID] = order.Copy()

	return nil
}

// FetchOrder returns the order with the given id.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchOrder(_ context.Context, id string) (*LimitOrder,
	error) {

	s.RLock()
	defer s.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}

	return order.Copy(), nil
}

// FetchOrders returns all orders ordered by placement time.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchOrders(_ context.Context) ([]*LimitOrder, error) {
	s.RLock()
	defer s.RUnlock()

	result := make([]*LimitOrder, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, order.Copy())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID < result[j].ID
		}

		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// CreateSwap adds a swap record and stores its matched order.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreateSwap(_ context.Context, swap *Swap,
	order *LimitOrder) error {

	s.Lock()
	defer s.Unlock()

	if _, ok := s.swaps[swap.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.orders[order.ID]; !ok {
		return ErrNotFound
	}

	s.swaps[swap.ID] = swap.Copy()
	s.orders[order.ID] = order.Copy()

	return nil
}

// FetchSwap returns the swap with the given id.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchSwap(_ context.Context, id string) (*Swap, error) {
	s.RLock()
	defer s.RUnlock()

	swap, ok := s.swaps[id]
	if !ok {
		return nil, ErrNotFound
	}

	return swap.Copy(), nil
}

// CreatePartialOrder adds a partial order.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreatePartialOrder(_ context.Context,
	order *PartialOrder) error {

	s.Lock()
	defer s.Unlock()

	if _, ok := s.partials[order.HTLCID]; ok {
		return ErrAlreadyExists
	}
	s.partials[order.HTLCID] = order.Copy()

	return nil
}

// FetchPartialOrder returns the partial order of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchPartialOrder(_ context.Context, htlcID string) (
	*PartialOrder, error) {

	s.RLock()
	defer s.RUnlock()

	order, ok := s.partials[htlcID]
	if !ok {
		return nil, ErrNotFound
	}

	return order.Copy(), nil
}

// CreateFill adds a new fill and stores its partial order.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreateFill(_ context.Context,
	transition *FillTransition) error {

	s.Lock()
	defer s.Unlock()

	fill, order := transition.Fill, transition.Order
	if _, ok := s.fills[fill.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.partials[order.HTLCID]; !ok {
		return ErrNotFound
	}

	s.fills[fill.ID] = fill.Copy()
	s.partials[order.HTLCID] = order.Copy()

	return nil
}

// UpdateFill overwrites an existing fill and applies the rest of the
// transition.
//
// NOTE: Part of the Store interface.
func (s *MemStore) UpdateFill(_ context.Context,
	transition *FillTransition) error {

	s.Lock()
	defer s.Unlock()

	fill, order := transition.Fill, transition.Order
	if _, ok := s.fills[fill.ID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.partials[order.HTLCID]; !ok {
		return ErrNotFound
	}

	claimed := transition.Claimed
	if claimed != nil {
		if _, ok := s.htlcs[claimed.ID]; !ok {
			return ErrNotFound
		}

		s.htlcs[claimed.ID] = claimed.Copy()
		s.htlcUpdates[claimed.ID] = append(
			s.htlcUpdates[claimed.ID], transition.ClaimUpdate,
		)
	}

	s.fills[fill.ID] = fill.Copy()
	s.partials[order.HTLCID] = order.Copy()
	s.putRelease(transition.Release)

	return nil
}

// FetchFill returns the fill with the given id.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchFill(_ context.Context, id string) (*PartialFill,
	error) {

	s.RLock()
	defer s.RUnlock()

	fill, ok := s.fills[id]
	if !ok {
		return nil, ErrNotFound
	}

	return fill.Copy(), nil
}

// FetchFills returns the fills of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchFills(_ context.Context, htlcID string) (
	[]*PartialFill, error) {

	s.RLock()
	defer s.RUnlock()

	var result []*PartialFill
	for _, fill := range s.fills {
		if fill.HTLCID == htlcID {
			result = append(result, fill.Copy())
		}
	}
	SortFills(result)

	return result, nil
}

// CreateResolver adds a new resolver.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreateResolver(_ context.Context,
	resolver *Resolver) error {

	s.Lock()
	defer s.Unlock()

	if _, ok := s.resolvers[resolver.Address]; ok {
		return ErrAlreadyExists
	}
	s.resolvers[resolver.Address] = resolver.Copy()

	return nil
}

// UpdateResolver overwrites an existing resolver.
//
// NOTE: Part of the Store interface.
func (s *MemStore) UpdateResolver(_ context.Context,
	resolver *Resolver) error {

	s.Lock()
	defer s.Unlock()

	if _, ok := s.resolvers[resolver.Address]; !ok {
		return ErrNotFound
	}
	s.resolvers[resolver.Address] = resolver.Copy()

	return nil
}

// FetchResolver returns the resolver with the given address.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchResolver(_ context.Context, address string) (
	*Resolver, error) {

	s.RLock()
	defer s.RUnlock()

	resolver, ok := s.resolvers[address]
	if !ok {
		return nil, ErrNotFound
	}

	return resolver.Copy(), nil
}

// FetchResolvers returns all resolvers ordered by address.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchResolvers(_ context.Context) ([]*Resolver, error) {
	s.RLock()
	defer s.RUnlock()

	result := make([]*Resolver, 0, len(s.resolvers))
	for _, resolver := range s.resolvers {
		result = append(result, resolver.Copy())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// CreateLink adds a new external link.
//
// NOTE: Part of the Store interface.
func (s *MemStore) CreateLink(_ context.Context, link *ExternalLink) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.links[link.HTLCID]; ok {
		return ErrAlreadyExists
	}
	s.links[link.HTLCID] = link.Copy()

	return nil
}

// FetchLink returns the link of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchLink(_ context.Context, htlcID string) (
	*ExternalLink, error) {

	s.RLock()
	defer s.RUnlock()

	link, ok := s.links[htlcID]
	if !ok {
		return nil, ErrNotFound
	}

	return link.Copy(), nil
}

// PutReleaseIntent adds the intent unless its key is already known.
//
// NOTE: Part of the Store interface.
func (s *MemStore) PutReleaseIntent(_ context.Context,
	intent *ReleaseIntent) (bool, error) {

	s.Lock()
	defer s.Unlock()

	return s.putRelease(intent), nil
}

// putRelease adds the intent unless it is nil or its key is known. The
// caller must hold the write lock.
func (s *MemStore) putRelease(intent *ReleaseIntent) bool {
	if intent == nil {
		return false
	}
	if _, ok := s.releases[intent.Key]; ok {
		return false
	}

	s.releases[intent.Key] = intent.Copy()
	s.releaseOrder = append(s.releaseOrder, intent.Key)

	return true
}

// UpdateReleaseIntent overwrites an existing intent.
//
// NOTE: Part of the Store interface.
func (s *MemStore) UpdateReleaseIntent(_ context.Context,
	intent *ReleaseIntent) error {

	s.Lock()
	defer s.Unlock()

	if _, ok := s.releases[intent.Key]; !ok {
		return ErrNotFound
	}
	s.releases[intent.Key] = intent.Copy()

	return nil
}

// FetchReleaseIntents returns the intents in insertion order.
//
// NOTE: Part of the Store interface.
func (s *MemStore) FetchReleaseIntents(_ context.Context, pendingOnly bool) (
	[]*ReleaseIntent, error) {

	s.RLock()
	defer s.RUnlock()

	var result []*ReleaseIntent
	for _, key := range s.releaseOrder {
		intent := s.releases[key]
		if pendingOnly && intent.Done {
			continue
		}
		result = append(result, intent.Copy())
	}

	return result, nil
}

// Close is a no-op for the in-memory store.
//
// NOTE: Part of the Store interface.
func (s *MemStore) Close() error {
	return nil
}

// SortFills orders fills by segment index and creation time.
func SortFills(fills []*PartialFill) {
	sort.SliceStable(fills, func(i, j int) bool {
		if fills[i].SegmentIndex != fills[j].SegmentIndex {
			return fills[i].SegmentIndex < fills[j].SegmentIndex
		}
		if !fills[i].FillTimestamp.Equal(fills[j].FillTimestamp) {
			return fills[i].FillTimestamp.Before(
				fills[j].FillTimestamp,
			)
		}

		return fills[i].ID < fills[j].ID
	})
}
