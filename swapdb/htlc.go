package swapdb

import (
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightningnetwork/lnd/lntypes"
)

// HTLCStatus is the persisted status of an HTLC.
type HTLCStatus string

const (
	// HTLCLocked is the status of an HTLC that can still be claimed or,
	// after expiry, refunded.
	HTLCLocked HTLCStatus = "Locked"

	// HTLCClaimed is the final status of an HTLC whose secret was
	// revealed before expiry.
	HTLCClaimed HTLCStatus = "Claimed"

	// HTLCRefunded is the final status of an HTLC refunded to its sender
	// after expiry.
	HTLCRefunded HTLCStatus = "Refunded"

	// HTLCExpired is never persisted. It is the derived view of a Locked
	// HTLC whose expiration has passed.
	HTLCExpired HTLCStatus = "Expired"
)

// IsFinal returns true if no further transition is possible.
func (s HTLCStatus) IsFinal() bool {
	return s == HTLCClaimed || s == HTLCRefunded
}

// HTLC is a locked-value commitment.
type HTLC struct {
	// ID is the opaque handle of the HTLC.
	ID string

	// Sender is the party that locked the funds and may refund them.
	Sender string

	// Recipient is the party that may claim the funds.
	Recipient string

	// Amount is the locked amount in the asset's smallest unit.
	Amount uint64

	// Token is the asset reference.
	Token string

	// Hashlock is the committed digest of the secret.
	Hashlock lntypes.Hash

	// Secret is the revealed secret once the HTLC is claimed with a
	// single secret.
	Secret *lntypes.Preimage

	// CreatedAt is the creation time.
	CreatedAt time.Time

	// Expiration is the timelock deadline.
	Expiration time.Time

	// Chain is the chain the HTLC lives on.
	Chain swap.ChainType

	// Status is the persisted status.
	Status HTLCStatus

	// OrderRef is the order this HTLC was created for, if any.
	OrderRef string
}

// Copy returns a deep copy of the HTLC.
func (h *HTLC) Copy() *HTLC {
	c := *h
	if h.Secret != nil {
		secret := *h.Secret
		c.Secret = &secret
	}

	return &c
}

// HTLCUpdate is a single entry of the HTLC event log.
type HTLCUpdate struct {
	// Time is the time of the update.
	Time time.Time

	// Status is the status after the update.
	Status HTLCStatus

	// Event is the event that caused the update.
	Event string
}
