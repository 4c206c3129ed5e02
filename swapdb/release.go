package swapdb

import (
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightningnetwork/lnd/lntypes"
)

// ReleaseKind is the kind of claim a release intent pays out.
type ReleaseKind string

const (
	// ReleaseHTLC releases a claimed HTLC.
	ReleaseHTLC ReleaseKind = "htlc"

	// ReleaseFill releases a completed partial fill.
	ReleaseFill ReleaseKind = "fill"
)

// ReleaseKey returns the idempotency key of a release.
func ReleaseKey(kind ReleaseKind, id string) string {
	return string(kind) + ":" + id
}

// ReleaseIntent instructs the external chain bridge to pay out a claim. The
// key makes repeated release attempts safe.
type ReleaseIntent struct {
	// Key is the idempotency key, see ReleaseKey.
	Key string

	// Kind is the kind of claim.
	Kind ReleaseKind

	// HTLCID is the HTLC being released.
	HTLCID string

	// FillID is the fill being released, for fill releases.
	FillID string

	// Chain is the chain the release is executed on.
	Chain swap.ChainType

	// Token is the released asset.
	Token string

	// Recipient receives the released funds.
	Recipient string

	// Amount is the released amount.
	Amount uint64

	// Secret is the claim material presented on the external chain.
	Secret lntypes.Preimage

	// Attempts is the number of failed release attempts.
	Attempts uint32

	// LastError is the error of the last failed attempt.
	LastError string

	// NextAttempt is the earliest time of the next attempt.
	NextAttempt time.Time

	// CreatedAt is the creation time.
	CreatedAt time.Time

	// Done is set once the release was executed.
	Done bool

	// TxID is the external transaction that executed the release.
	TxID string
}

// Copy returns a copy of the intent.
func (r *ReleaseIntent) Copy() *ReleaseIntent {
	c := *r
	return &c
}

// NewHTLCRelease returns the release of an HTLC claimed with its secret.
func NewHTLCRelease(htlc *HTLC, now time.Time) *ReleaseIntent {
	intent := &ReleaseIntent{
		Key:         ReleaseKey(ReleaseHTLC, htlc.ID),
		Kind:        ReleaseHTLC,
		HTLCID:      htlc.ID,
		Chain:       htlc.Chain,
		Token:       htlc.Token,
		Recipient:   htlc.Recipient,
		Amount:      htlc.Amount,
		NextAttempt: now,
		CreatedAt:   now,
	}
	if htlc.Secret != nil {
		intent.Secret = *htlc.Secret
	}

	return intent
}

// NewFillRelease returns the release of a completed fill of the HTLC.
func NewFillRelease(htlc *HTLC, fill *PartialFill,
	now time.Time) *ReleaseIntent {

	return &ReleaseIntent{
		Key:         ReleaseKey(ReleaseFill, fill.ID),
		Kind:        ReleaseFill,
		HTLCID:      fill.HTLCID,
		FillID:      fill.ID,
		Chain:       htlc.Chain,
		Token:       htlc.Token,
		Recipient:   fill.Resolver,
		Amount:      fill.Amount,
		Secret:      fill.Secret,
		NextAttempt: now,
		CreatedAt:   now,
	}
}
