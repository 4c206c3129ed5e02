package swapdb

import (
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightningnetwork/lnd/lntypes"
)

// ExternalLink records that a local HTLC is backed by an order signed on an
// external chain.
type ExternalLink struct {
	// HTLCID is the local HTLC.
	HTLCID string

	// OrderHash is the external order's own identifier.
	OrderHash string

	// Maker is the external order's maker.
	Maker string

	// Chain is the external order's chain.
	Chain swap.ChainType

	// Amount is the external order's amount.
	Amount uint64

	// Commitment is either the single hashlock or the merkle root of the
	// external order's secret sequence.
	Commitment lntypes.Hash

	// SegmentCount is the number of secrets of a multi fill order. It is
	// one for single fill orders.
	SegmentCount uint32

	// IsSourceChain is set if the HTLC lives on the order's source chain.
	IsSourceChain bool

	// LinkedAt is the time the link was created.
	LinkedAt time.Time
}

// Copy returns a copy of the link.
func (l *ExternalLink) Copy() *ExternalLink {
	c := *l
	return &c
}
