package resolver

import (
	"context"
	"errors"
	"sort"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
)

var (
	// ErrNotFound is returned when no resolver is registered under the
	// address.
	ErrNotFound = swap.NewError(
		swap.KindNotFound, "ResolverNotFound", "resolver not found",
	)

	// ErrAlreadyExists is returned when the address is already
	// registered.
	ErrAlreadyExists = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyExists",
		"resolver already registered",
	)

	// ErrInactive is returned when an inactive resolver is assigned a
	// fill.
	ErrInactive = swap.NewError(
		swap.KindUnauthorized, "ResolverInactive", "resolver inactive",
	)

	// ErrUnsupportedChain is returned when a resolver is assigned a fill
	// on a chain it does not support.
	ErrUnsupportedChain = swap.NewError(
		swap.KindInvalidInput, "UnsupportedChain",
		"resolver does not support chain",
	)

	// ErrInvalidResolver is returned on a registration without address or
	// chains.
	ErrInvalidResolver = swap.NewError(
		swap.KindInvalidInput, "InvalidInput",
		"resolver needs an address and at least one chain",
	)
)

// Config contains the services the resolver registry needs.
type Config struct {
	// Store persists the resolvers.
	Store swapdb.ResolverStore

	// Clock is used to stamp registration and activity.
	Clock clock.Clock
}

// Registry tracks fulfillment agents, their chain coverage and their
// reliability.
type Registry struct {
	cfg *Config

	locks *swap.KeyedMutex
}

// NewRegistry creates a new resolver registry.
func NewRegistry(cfg *Config) *Registry {
	return &Registry{
		cfg:   cfg,
		locks: swap.NewKeyedMutex(),
	}
}

// Register adds a new active resolver for the given chains.
func (r *Registry) Register(ctx context.Context, address string,
	chains []swap.ChainType) (*swapdb.Resolver, error) {

	if address == "" || len(chains) == 0 {
		return nil, ErrInvalidResolver
	}

	seen := make(map[swap.ChainType]struct{}, len(chains))
	supported := make([]swap.ChainType, 0, len(chains))
	for _, chain := range chains {
		if !chain.Valid() {
			return nil, swap.Errorf(
				ErrInvalidResolver, "unknown chain %v", chain,
			)
		}
		if _, ok := seen[chain]; ok {
			continue
		}
		seen[chain] = struct{}{}
		supported = append(supported, chain)
	}

	unlock := r.locks.Lock(address)
	defer unlock()

	now := r.cfg.Clock.Now().UTC()
	resolver := &swapdb.Resolver{
		Address:         address,
		SupportedChains: supported,
		IsActive:        true,
		LastActive:      now,
		RegisteredAt:    now,
	}

	err := r.cfg.Store.CreateResolver(ctx, resolver)
	if errors.Is(err, swapdb.ErrAlreadyExists) {
		return nil, swap.Errorf(ErrAlreadyExists, "%v", address)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Registered resolver %v for %v", address, supported)

	return resolver, nil
}

// update applies the mutation to the resolver under its lock.
func (r *Registry) update(ctx context.Context, address string,
	mutate func(*swapdb.Resolver)) (*swapdb.Resolver, error) {

	unlock := r.locks.Lock(address)
	defer unlock()

	resolver, err := r.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	mutate(resolver)

	if err := r.cfg.Store.UpdateResolver(ctx, resolver); err != nil {
		return nil, err
	}

	return resolver, nil
}

// UpdateStatus activates or deactivates a resolver.
func (r *Registry) UpdateStatus(ctx context.Context, address string,
	active bool) (*swapdb.Resolver, error) {

	return r.update(ctx, address, func(resolver *swapdb.Resolver) {
		resolver.IsActive = active
	})
}

// RecordOutcome records a finished fill of the resolver and recomputes its
// success rate.
func (r *Registry) RecordOutcome(ctx context.Context, address string,
	success bool) (*swapdb.Resolver, error) {

	return r.update(ctx, address, func(resolver *swapdb.Resolver) {
		resolver.TotalFills++
		if success {
			resolver.Completed++
		} else {
			resolver.Failed++
		}

		resolver.SuccessRate = SuccessRate(
			resolver.Completed, resolver.Failed,
		)
		resolver.LastActive = r.cfg.Clock.Now().UTC()

		log.Debugf("Resolver %v success rate %.3f after %d fills",
			address, resolver.SuccessRate, resolver.TotalFills)
	})
}

// Touch marks the resolver as active now. It is called when a fill is
// assigned.
func (r *Registry) Touch(ctx context.Context, address string) error {
	_, err := r.update(ctx, address, func(resolver *swapdb.Resolver) {
		resolver.LastActive = r.cfg.Clock.Now().UTC()
	})

	return err
}

// SuccessRate returns completed / (completed + failed), or zero if there is
// no outcome yet.
func SuccessRate(completed, failed uint64) float64 {
	total := completed + failed
	if total == 0 {
		return 0
	}

	return float64(completed) / float64(total)
}

// Get returns the resolver registered under the address.
func (r *Registry) Get(ctx context.Context, address string) (
	*swapdb.Resolver, error) {

	resolver, err := r.cfg.Store.FetchResolver(ctx, address)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrNotFound, "%v", address)
	}
	if err != nil {
		return nil, err
	}

	return resolver, nil
}

// List returns all resolvers ordered by address.
func (r *Registry) List(ctx context.Context) ([]*swapdb.Resolver, error) {
	return r.cfg.Store.FetchResolvers(ctx)
}

// CheckEligible returns the resolver if it may be assigned a fill on the
// given chain.
func (r *Registry) CheckEligible(ctx context.Context, address string,
	chain swap.ChainType) (*swapdb.Resolver, error) {

	resolver, err := r.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	if !resolver.IsActive {
		return nil, swap.Errorf(ErrInactive, "%v", address)
	}

	if !resolver.Supports(chain) {
		return nil, swap.Errorf(
			ErrUnsupportedChain, "%v does not support %v", address,
			chain,
		)
	}

	return resolver, nil
}

// SelectFor returns the active resolvers supporting the chain, best first:
// highest success rate, then most recently active.
func (r *Registry) SelectFor(ctx context.Context, chain swap.ChainType) (
	[]*swapdb.Resolver, error) {

	resolvers, err := r.cfg.Store.FetchResolvers(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]*swapdb.Resolver, 0, len(resolvers))
	for _, resolver := range resolvers {
		if resolver.IsActive && resolver.Supports(chain) {
			candidates = append(candidates, resolver)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate > b.SuccessRate
		}
		if !a.LastActive.Equal(b.LastActive) {
			return a.LastActive.After(b.LastActive)
		}

		return a.Address < b.Address
	})

	return candidates, nil
}
