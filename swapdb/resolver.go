package swapdb

import (
	"time"

	"github.com/lightninglabs/htlcswap/swap"
)

// Resolver is a registered fulfillment agent.
type Resolver struct {
	// Address identifies the resolver.
	Address string

	// SupportedChains are the chains the resolver can execute fills on.
	SupportedChains []swap.ChainType

	// IsActive is set if the resolver may be assigned fills.
	IsActive bool

	// TotalFills is the number of fills with a recorded outcome.
	TotalFills uint64

	// Completed is the number of completed fills.
	Completed uint64

	// Failed is the number of failed fills.
	Failed uint64

	// SuccessRate is Completed / (Completed + Failed), zero without
	// outcomes.
	SuccessRate float64

	// LastActive is the last time the resolver was seen.
	LastActive time.Time

	// RegisteredAt is the registration time.
	RegisteredAt time.Time
}

// Supports returns true if the resolver supports the chain.
func (r *Resolver) Supports(chain swap.ChainType) bool {
	for _, c := range r.SupportedChains {
		if c == chain {
			return true
		}
	}

	return false
}

// Copy returns a deep copy of the resolver.
func (r *Resolver) Copy() *Resolver {
	c := *r
	c.SupportedChains = append([]swap.ChainType(nil), r.SupportedChains...)

	return &c
}
