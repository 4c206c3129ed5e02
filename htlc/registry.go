package htlc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
)

var (
	// ErrNotFound is returned when the HTLC does not exist.
	ErrNotFound = swap.NewError(
		swap.KindNotFound, "HtlcNotFound", "htlc not found",
	)

	// ErrAlreadyFinalized is returned when the HTLC was already claimed or
	// refunded.
	ErrAlreadyFinalized = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyFinalized",
		"htlc already finalized",
	)

	// ErrSecretMismatch is returned when the secret does not hash to the
	// hashlock.
	ErrSecretMismatch = swap.NewError(
		swap.KindSecretMismatch, "SecretMismatch",
		"secret does not match hashlock",
	)

	// ErrExpired is returned on a claim after the timelock elapsed.
	ErrExpired = swap.NewError(
		swap.KindExpired, "Expired", "htlc expired",
	)

	// ErrNotYetExpired is returned on a refund before the timelock
	// elapsed.
	ErrNotYetExpired = swap.NewError(
		swap.KindNotYetExpired, "NotYetExpired", "htlc not yet expired",
	)

	// ErrUnauthorized is returned when someone other than the sender
	// tries to refund.
	ErrUnauthorized = swap.NewError(
		swap.KindUnauthorized, "Unauthorized",
		"only the sender may refund",
	)

	// ErrInvalidAmount is returned when the amount is zero.
	ErrInvalidAmount = swap.NewError(
		swap.KindInvalidInput, "InvalidAmount",
		"amount must be positive",
	)

	// ErrInvalidExpiration is returned when the expiration is not in the
	// future.
	ErrInvalidExpiration = swap.NewError(
		swap.KindInvalidInput, "InvalidExpiration",
		"expiration must be in the future",
	)

	// ErrInvalidRequest is returned when a party, the chain or the
	// hashlock of a request is missing.
	ErrInvalidRequest = swap.NewError(
		swap.KindInvalidInput, "InvalidInput", "invalid htlc request",
	)

	// ErrSplit is returned on a direct claim of an HTLC that was split
	// into partial fills, or on the refund of one that was filled
	// completely. Such an HTLC is only claimed in aggregate.
	ErrSplit = swap.NewError(
		swap.KindAlreadyFinalized, "HtlcSplit",
		"htlc split into partial fills",
	)

	// ErrFillsPending is returned on the refund of a split HTLC while
	// some of its fills are still pending.
	ErrFillsPending = swap.NewError(
		swap.KindInvalidInput, "FillsPending",
		"htlc has pending partial fills",
	)
)

// SplitStore looks up the partial order of a split HTLC.
type SplitStore interface {
	// FetchPartialOrder returns swapdb.ErrNotFound if the HTLC was not
	// split.
	FetchPartialOrder(ctx context.Context, htlcID string) (
		*swapdb.PartialOrder, error)
}

// ReleaseNotifier is woken after a claim recorded its release, so the
// release is executed on the external chain right away.
type ReleaseNotifier interface {
	// Wake triggers a release pass.
	Wake()
}

// CommitFunc persists an aggregate claim together with the partial fill
// that completed the HTLC.
type CommitFunc = func(ctx context.Context, htlc *swapdb.HTLC,
	update swapdb.HTLCUpdate) error

// Config contains the services the registry needs to operate.
type Config struct {
	// Store persists the HTLCs and the releases of their claims.
	Store swapdb.HTLCStore

	// Splits exposes the partial orders of split HTLCs. It is optional,
	// without it no HTLC is considered split.
	Splits SplitStore

	// Locks serializes all mutations of one HTLC. It is shared with the
	// partial-fill coordinator and created if nil.
	Locks *swap.KeyedMutex

	// Clock is the trusted clock used for all timelock decisions.
	Clock clock.Clock

	// Releases is woken after claims. It is optional.
	Releases ReleaseNotifier
}

// CreateRequest contains the parameters of a new HTLC.
type CreateRequest struct {
	Sender     string
	Recipient  string
	Amount     uint64
	Token      string
	Hashlock   lntypes.Hash
	Expiration time.Time
	Chain      swap.ChainType

	// OrderRef optionally references the order the HTLC was created for.
	OrderRef string
}

// Filter restricts the HTLCs returned by List. Empty fields match
// everything.
type Filter struct {
	Sender    string
	Recipient string
	Status    swapdb.HTLCStatus
}

// Registry owns the lock, claim and refund lifecycle of all HTLCs. All
// mutations of one HTLC are serialized under its key in Config.Locks.
type Registry struct {
	cfg *Config
}

// NewRegistry creates a new HTLC registry.
func NewRegistry(cfg *Config) *Registry {
	if cfg.Locks == nil {
		cfg.Locks = swap.NewKeyedMutex()
	}

	return &Registry{
		cfg: cfg,
	}
}

// Status returns the status of the HTLC as seen at the given time. A Locked
// HTLC past its expiration reads as Expired.
func Status(htlc *swapdb.HTLC, now time.Time) swapdb.HTLCStatus {
	if htlc.Status == swapdb.HTLCLocked && !now.Before(htlc.Expiration) {
		return swapdb.HTLCExpired
	}

	return htlc.Status
}

// view returns a copy of the HTLC with its derived status.
func (r *Registry) view(htlc *swapdb.HTLC) *swapdb.HTLC {
	c := htlc.Copy()
	c.Status = Status(htlc, r.cfg.Clock.Now())

	return c
}

// Create validates the request and locks a new HTLC.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (string,
	error) {

	now := r.cfg.Clock.Now().UTC()

	switch {
	case req.Amount == 0:
		return "", ErrInvalidAmount

	case !req.Expiration.After(now):
		return "", swap.Errorf(
			ErrInvalidExpiration, "%v is not after %v",
			req.Expiration, now,
		)

	case req.Sender == "" || req.Recipient == "":
		return "", swap.Errorf(
			ErrInvalidRequest, "sender and recipient required",
		)

	case !req.Chain.Valid():
		return "", swap.Errorf(
			ErrInvalidRequest, "unknown chain %v", req.Chain,
		)

	case hashlock.IsZero(req.Hashlock):
		return "", swap.Errorf(ErrInvalidRequest, "empty hashlock")
	}

	htlc := &swapdb.HTLC{
		ID:         uuid.NewString(),
		Sender:     req.Sender,
		Recipient:  req.Recipient,
		Amount:     req.Amount,
		Token:      req.Token,
		Hashlock:   req.Hashlock,
		CreatedAt:  now,
		Expiration: req.Expiration.UTC(),
		Chain:      req.Chain,
		OrderRef:   req.OrderRef,
	}

	htlcFsm := NewFSM(r.cfg, htlc)
	if err := htlcFsm.SendEvent(ctx, OnCreate, nil); err != nil {
		return "", fmt.Errorf("unable to create htlc: %w", err)
	}

	return htlc.ID, nil
}

// load fetches the HTLC and rehydrates its state machine. The caller must
// hold the lock of the HTLC.
func (r *Registry) load(ctx context.Context, id string) (*FSM, error) {
	htlc, err := r.cfg.Store.FetchHTLC(ctx, id)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrNotFound, "%v", id)
	}
	if err != nil {
		return nil, err
	}

	return NewFSMFromHTLC(r.cfg, htlc), nil
}

// sendEvent loads the HTLC and sends the event under the HTLC's lock.
func (r *Registry) sendEvent(ctx context.Context, id string,
	event fsm.EventType, eventCtx fsm.EventContext) (*swapdb.HTLC, error) {

	unlock := r.cfg.Locks.Lock(id)
	defer unlock()

	return r.sendEventLocked(ctx, id, event, eventCtx)
}

// sendEventLocked loads the HTLC and sends the event. The caller must hold
// the lock of the HTLC.
func (r *Registry) sendEventLocked(ctx context.Context, id string,
	event fsm.EventType, eventCtx fsm.EventContext) (*swapdb.HTLC, error) {

	htlcFsm, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = htlcFsm.SendEvent(ctx, event, eventCtx)
	if errors.Is(err, fsm.ErrEventRejected) {
		return nil, swap.Errorf(
			ErrAlreadyFinalized, "%v is %v", id,
			htlcFsm.CurrentState(),
		)
	}
	if err != nil {
		return nil, err
	}

	return r.view(htlcFsm.HTLC()), nil
}

// Claim claims the HTLC by revealing its secret and records the release of
// the funds in the same transaction. The first of several concurrent claims
// or refunds wins, the others fail with ErrAlreadyFinalized. An HTLC split
// into partial fills can't be claimed directly.
func (r *Registry) Claim(ctx context.Context, id string,
	secret lntypes.Preimage) (*swapdb.HTLC, error) {

	htlc, err := r.sendEvent(ctx, id, OnClaim, &claimContext{
		secret: secret,
	})
	if err != nil {
		return nil, err
	}

	if r.cfg.Releases != nil {
		r.cfg.Releases.Wake()
	}

	return htlc, nil
}

// Refund returns the funds of an expired HTLC to its sender. A split HTLC
// is refunded only while none of its fills is pending, and only for the
// amount that was not filled.
func (r *Registry) Refund(ctx context.Context, id,
	caller string) (*swapdb.HTLC, error) {

	return r.sendEvent(ctx, id, OnRefund, &refundContext{caller: caller})
}

// ClaimAggregate marks a split HTLC claimed once all of its segments were
// completed. The segment secrets have already been verified one by one.
// The claim is persisted by commit, which writes it together with the
// completing fill.
//
// NOTE: The caller must hold the lock of the HTLC in Config.Locks.
func (r *Registry) ClaimAggregate(ctx context.Context, id string,
	secrets []lntypes.Preimage, commit CommitFunc) (*swapdb.HTLC, error) {

	return r.sendEventLocked(ctx, id, OnAggregateClaim, &aggregateContext{
		secrets: secrets,
		commit:  commit,
	})
}

// Get returns the HTLC with its derived status.
func (r *Registry) Get(ctx context.Context, id string) (*swapdb.HTLC, error) {
	htlc, err := r.cfg.Store.FetchHTLC(ctx, id)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrNotFound, "%v", id)
	}
	if err != nil {
		return nil, err
	}

	return r.view(htlc), nil
}

// List returns all HTLCs matching the filter, oldest first.
func (r *Registry) List(ctx context.Context, filter Filter) ([]*swapdb.HTLC,
	error) {

	htlcs, err := r.cfg.Store.FetchHTLCs(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*swapdb.HTLC, 0, len(htlcs))
	for _, htlc := range htlcs {
		htlc = r.view(htlc)

		switch {
		case filter.Sender != "" && htlc.Sender != filter.Sender:
			continue

		case filter.Recipient != "" &&
			htlc.Recipient != filter.Recipient:

			continue

		case filter.Status != "" && htlc.Status != filter.Status:
			continue
		}

		result = append(result, htlc)
	}

	return result, nil
}

// History returns the append-only update log of the HTLC.
func (r *Registry) History(ctx context.Context, id string) (
	[]swapdb.HTLCUpdate, error) {

	updates, err := r.cfg.Store.FetchHTLCUpdates(ctx, id)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrNotFound, "%v", id)
	}

	return updates, err
}
