package swapdb

import (
	"time"

	"github.com/lightningnetwork/lnd/lntypes"
)

// FillStatus is the status of a partial fill.
type FillStatus string

const (
	// FillPending is the status of a fill waiting for the external release
	// to be confirmed.
	FillPending FillStatus = "Pending"

	// FillCompleted is the final status of a confirmed fill.
	FillCompleted FillStatus = "Completed"

	// FillFailed is the final status of a failed fill.
	FillFailed FillStatus = "Failed"
)

// IsFinal returns true if the fill can no longer change.
func (s FillStatus) IsFinal() bool {
	return s == FillCompleted || s == FillFailed
}

// PartialOrder is the decomposition of a locked HTLC into independently
// claimable segments.
type PartialOrder struct {
	// HTLCID is the parent HTLC.
	HTLCID string

	// MerkleRoot commits to the ordered secret sequence. The zero value
	// means fills are not ordered and reveal the parent's secret.
	MerkleRoot lntypes.Hash

	// SegmentCount is the length of the committed secret sequence.
	SegmentCount uint32

	// PartialFillIndex is the cursor into the secret sequence.
	PartialFillIndex uint32

	// TotalFilled is the sum of all completed fill amounts.
	TotalFilled uint64

	// RemainingAmount is the parent amount minus TotalFilled.
	RemainingAmount uint64

	// ReservedAmount is the sum of all pending fill amounts.
	ReservedAmount uint64

	// PartialFills are the ids of all fills in creation order.
	PartialFills []string

	// Revealed are the secrets disclosed by completed fills in segment
	// order.
	Revealed []lntypes.Preimage

	// IsSourceChain is set if the parent HTLC lives on the chain the
	// order originated from.
	IsSourceChain bool

	// CreatedAt is the creation time.
	CreatedAt time.Time
}

// Ordered returns true if fills must disclose the committed secret sequence
// in order.
func (p *PartialOrder) Ordered() bool {
	return p.MerkleRoot != lntypes.Hash{}
}

// Copy returns a deep copy of the partial order.
func (p *PartialOrder) Copy() *PartialOrder {
	c := *p
	c.PartialFills = append([]string(nil), p.PartialFills...)
	c.Revealed = append([]lntypes.Preimage(nil), p.Revealed...)

	return &c
}

// PartialFill is a single segment of a partial order.
type PartialFill struct {
	// ID is the opaque fill id.
	ID string

	// HTLCID is the parent HTLC.
	HTLCID string

	// SegmentIndex is the position of the fill in the secret sequence.
	SegmentIndex uint32

	// Amount is the amount of the segment.
	Amount uint64

	// SecretHash is the hashlock of the secret revealed for this fill.
	SecretHash lntypes.Hash

	// Secret is the secret revealed for this fill.
	Secret lntypes.Preimage

	// Resolver is the address of the resolver executing the fill.
	Resolver string

	// FillTimestamp is the time the fill was created.
	FillTimestamp time.Time

	// Status is the fill status.
	Status FillStatus

	// ConfirmationTx is the external transaction that confirmed the
	// fill.
	ConfirmationTx string

	// FailReason describes why the fill failed.
	FailReason string

	// UpdatedAt is the time of the last status change.
	UpdatedAt time.Time
}

// Copy returns a copy of the fill.
func (f *PartialFill) Copy() *PartialFill {
	c := *f
	return &c
}

// FillTransition is a state change of a fill. All of its parts are written
// in a single transaction.
type FillTransition struct {
	// Fill is the new state of the fill.
	Fill *PartialFill

	// Order is the new state of the fill's partial order.
	Order *PartialOrder

	// Release is the release of a completed fill. It is skipped if its
	// key is already known.
	Release *ReleaseIntent

	// Claimed is set when the fill completed the partial order and the
	// parent HTLC is claimed in aggregate.
	Claimed *HTLC

	// ClaimUpdate is the log entry of the aggregate claim.
	ClaimUpdate HTLCUpdate
}
