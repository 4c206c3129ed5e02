package swapdb

import (
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightningnetwork/lnd/lntypes"
)

// OrderStatus is the status of a limit order.
type OrderStatus string

const (
	// OrderOpen is the status of an order waiting for a taker.
	OrderOpen OrderStatus = "Open"

	// OrderMatched is the final status of a taken order.
	OrderMatched OrderStatus = "Matched"

	// OrderCancelled is the final status of an order cancelled by its
	// owner.
	OrderCancelled OrderStatus = "Cancelled"

	// OrderExpired is the final status of an order that was not taken
	// before its expiry.
	OrderExpired OrderStatus = "Expired"
)

// IsFinal returns true if the order has left the Open state.
func (s OrderStatus) IsFinal() bool {
	return s != OrderOpen
}

// LimitOrder is a standing offer to trade.
type LimitOrder struct {
	// ID is the opaque order id.
	ID string

	// Owner is the party that placed the order.
	Owner string

	// HashedSecret commits the owner to the secret that is used for the
	// HTLCs created on match.
	HashedSecret lntypes.Hash

	// TokenSell is the asset the owner sells.
	TokenSell string

	// AmountSell is the amount the owner sells.
	AmountSell uint64

	// TokenBuy is the asset the owner buys.
	TokenBuy string

	// AmountBuy is the amount the owner buys.
	AmountBuy uint64

	// IsEvmUser is set if the owner originates from an EVM chain.
	IsEvmUser bool

	// Timestamp is the time the order was placed.
	Timestamp time.Time

	// Expiry is the time after which the order can no longer be taken.
	// The zero time means the order never expires.
	Expiry time.Time

	// Status is the order status.
	Status OrderStatus

	// External is set for orders that were signed on their origin chain.
	External bool

	// OriginChain is the chain that signed an external order.
	OriginChain swap.ChainType

	// Signature is the origin chain signature of an external order.
	Signature []byte

	// Taker is the party that took the order.
	Taker string

	// SwapID is the swap created when the order was matched.
	SwapID string
}

// Copy returns a deep copy of the order.
func (o *LimitOrder) Copy() *LimitOrder {
	c := *o
	if o.Signature != nil {
		c.Signature = append([]byte(nil), o.Signature...)
	}

	return &c
}

// Swap is the record of a matched order and the pair of HTLCs locking both
// sides of it.
type Swap struct {
	// ID is the opaque swap id.
	ID string

	// OrderID is the matched order.
	OrderID string

	// MakerHTLC locks the owner's sell side for the taker.
	MakerHTLC string

	// TakerHTLC locks the taker's side for the owner.
	TakerHTLC string

	// Maker is the order owner.
	Maker string

	// Taker is the party that took the order.
	Taker string

	// CreatedAt is the time of the match.
	CreatedAt time.Time
}

// Copy returns a copy of the swap.
func (s *Swap) Copy() *Swap {
	c := *s
	return &c
}
