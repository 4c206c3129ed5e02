package partialfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
)

var (
	// ErrPartialOrderNotFound is returned when the HTLC has not been
	// split.
	ErrPartialOrderNotFound = swap.NewError(
		swap.KindNotFound, "PartialOrderNotFound",
		"partial order not found",
	)

	// ErrFillNotFound is returned when the fill does not exist.
	ErrFillNotFound = swap.NewError(
		swap.KindNotFound, "FillNotFound", "fill not found",
	)

	// ErrAlreadyExists is returned when the HTLC was already split.
	ErrAlreadyExists = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyExists",
		"partial order already exists",
	)

	// ErrHTLCNotLocked is returned when the parent HTLC was already
	// claimed or refunded.
	ErrHTLCNotLocked = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyFinalized",
		"parent htlc not locked",
	)

	// ErrExpired is returned when the parent HTLC expired.
	ErrExpired = swap.NewError(
		swap.KindExpired, "Expired", "parent htlc expired",
	)

	// ErrInvalidAmount is returned when the fill amount is zero or does
	// not fit the remaining segments.
	ErrInvalidAmount = swap.NewError(
		swap.KindInvalidInput, "InvalidAmount", "invalid fill amount",
	)

	// ErrInvalidSegments is returned when the segment count can't be
	// used for the HTLC.
	ErrInvalidSegments = swap.NewError(
		swap.KindInvalidInput, "InvalidSegmentCount",
		"invalid segment count",
	)

	// ErrInsufficientFunds is returned when the fill amount exceeds the
	// unreserved remaining amount.
	ErrInsufficientFunds = swap.NewError(
		swap.KindInsufficientFunds, "InsufficientFunds",
		"amount exceeds remaining amount",
	)

	// ErrFillOutOfOrder is returned when a segment is filled before the
	// previous one completed.
	ErrFillOutOfOrder = swap.NewError(
		swap.KindInvalidInput, "FillOutOfOrder",
		"previous segment not completed",
	)

	// ErrSegmentsExhausted is returned when every committed segment was
	// filled.
	ErrSegmentsExhausted = swap.NewError(
		swap.KindInvalidInput, "SegmentsExhausted",
		"no segment left to fill",
	)

	// ErrSecretMismatch is returned when the secret is not the one
	// committed for the current segment.
	ErrSecretMismatch = swap.NewError(
		swap.KindSecretMismatch, "SecretMismatch",
		"secret does not match committed segment",
	)

	// ErrFillFinalized is returned when a fill was already completed or
	// failed.
	ErrFillFinalized = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyFinalized",
		"fill already finalized",
	)

	// ErrInvalidConfirmation is returned on a confirmation without
	// transaction or for the wrong chain.
	ErrInvalidConfirmation = swap.NewError(
		swap.KindInvalidInput, "InvalidConfirmation",
		"invalid confirmation",
	)
)

// HTLCRegistry is the view of the HTLC registry the coordinator needs.
type HTLCRegistry interface {
	// Get returns the HTLC with its derived status.
	Get(ctx context.Context, id string) (*swapdb.HTLC, error)

	// ClaimAggregate claims the HTLC once all segments completed. The
	// claim is persisted by commit. The caller holds the HTLC's lock.
	ClaimAggregate(ctx context.Context, id string,
		secrets []lntypes.Preimage,
		commit func(context.Context, *swapdb.HTLC,
			swapdb.HTLCUpdate) error) (*swapdb.HTLC, error)
}

// ResolverRegistry is the view of the resolver registry the coordinator
// needs.
type ResolverRegistry interface {
	// CheckEligible fails if the resolver may not fill on the chain.
	CheckEligible(ctx context.Context, address string,
		chain swap.ChainType) (*swapdb.Resolver, error)

	// Touch records an assignment.
	Touch(ctx context.Context, address string) error

	// RecordOutcome records a finished fill.
	RecordOutcome(ctx context.Context, address string,
		success bool) (*swapdb.Resolver, error)
}

// Releaser executes recorded release intents.
type Releaser interface {
	// Wake triggers a release pass.
	Wake()
}

// Config contains the services the coordinator needs.
type Config struct {
	// Store persists partial orders and fills.
	Store swapdb.PartialFillStore

	// HTLCs is the HTLC registry owning the parent HTLCs.
	HTLCs HTLCRegistry

	// Resolvers is the resolver registry.
	Resolvers ResolverRegistry

	// Locks serializes a partial order and its fills under the id of the
	// parent HTLC. It is shared with the HTLC registry and created if
	// nil.
	Locks *swap.KeyedMutex

	// Releases is woken after a fill completed. It is optional.
	Releases Releaser

	// Clock is the trusted clock.
	Clock clock.Clock
}

// OpenRequest splits an HTLC into segments.
type OpenRequest struct {
	HTLCID string

	// MerkleRoot commits to the ordered segment secrets. A zero root
	// selects unordered mode, in which every fill reveals the secret of
	// the parent HTLC.
	MerkleRoot lntypes.Hash

	SegmentCount uint32

	IsSourceChain bool
}

// FillRequest asks to fill the next segment of a partial order.
type FillRequest struct {
	HTLCID   string
	Amount   uint64
	Secret   lntypes.Preimage
	Resolver string

	// Proof is the merkle proof of the secret's hashlock at the current
	// segment index. It is ignored in unordered mode.
	Proof []lntypes.Hash
}

// Confirmation proves that the external release of a fill was executed.
type Confirmation struct {
	// TxID is the external transaction that executed the fill.
	TxID string

	// Chain is the chain TxID lives on. If set it must match the chain
	// of the parent HTLC.
	Chain swap.ChainType
}

// Coordinator splits HTLCs into independently filled segments and tracks
// their progress. A partial order and all of its fills are serialized under
// the lock of the parent HTLC id, together with the claim and refund of the
// parent.
type Coordinator struct {
	cfg *Config
}

// NewCoordinator creates a new partial-fill coordinator.
func NewCoordinator(cfg *Config) *Coordinator {
	if cfg.Locks == nil {
		cfg.Locks = swap.NewKeyedMutex()
	}

	return &Coordinator{
		cfg: cfg,
	}
}

// lockedHTLC returns the parent HTLC if it is still Locked.
func (c *Coordinator) lockedHTLC(ctx context.Context, id string) (
	*swapdb.HTLC, error) {

	htlc, err := c.cfg.HTLCs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch htlc.Status {
	case swapdb.HTLCLocked:
		return htlc, nil

	case swapdb.HTLCExpired:
		return nil, swap.Errorf(
			ErrExpired, "%v expired at %v", id, htlc.Expiration,
		)

	default:
		return nil, swap.Errorf(
			ErrHTLCNotLocked, "%v is %v", id, htlc.Status,
		)
	}
}

// OpenPartialOrder splits a locked HTLC into segments.
func (c *Coordinator) OpenPartialOrder(ctx context.Context,
	req OpenRequest) (*swapdb.PartialOrder, error) {

	unlock := c.cfg.Locks.Lock(req.HTLCID)
	defer unlock()

	htlc, err := c.lockedHTLC(ctx, req.HTLCID)
	if err != nil {
		return nil, err
	}

	switch {
	case req.SegmentCount == 0:
		return nil, swap.Errorf(
			ErrInvalidSegments, "at least one segment required",
		)

	// Every segment of an ordered order takes a non-zero amount.
	case !hashlock.IsZero(req.MerkleRoot) &&
		uint64(req.SegmentCount) > htlc.Amount:

		return nil, swap.Errorf(
			ErrInvalidSegments, "%d segments for amount %d",
			req.SegmentCount, htlc.Amount,
		)
	}

	order := &swapdb.PartialOrder{
		HTLCID:          req.HTLCID,
		MerkleRoot:      req.MerkleRoot,
		SegmentCount:    req.SegmentCount,
		RemainingAmount: htlc.Amount,
		IsSourceChain:   req.IsSourceChain,
		CreatedAt:       c.cfg.Clock.Now().UTC(),
	}

	err = c.cfg.Store.CreatePartialOrder(ctx, order)
	if errors.Is(err, swapdb.ErrAlreadyExists) {
		return nil, swap.Errorf(ErrAlreadyExists, "%v", req.HTLCID)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Split htlc %v into %d segments (ordered=%v)", req.HTLCID,
		req.SegmentCount, order.Ordered())

	return order, nil
}

// fetchOrder returns the partial order of the HTLC.
func (c *Coordinator) fetchOrder(ctx context.Context, htlcID string) (
	*swapdb.PartialOrder, error) {

	order, err := c.cfg.Store.FetchPartialOrder(ctx, htlcID)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrPartialOrderNotFound, "%v", htlcID)
	}

	return order, err
}

// CreateFill validates the fill request against the committed secret
// sequence and reserves the amount for the fill.
func (c *Coordinator) CreateFill(ctx context.Context,
	req FillRequest) (*swapdb.PartialFill, error) {

	unlock := c.cfg.Locks.Lock(req.HTLCID)
	defer unlock()

	order, err := c.fetchOrder(ctx, req.HTLCID)
	if err != nil {
		return nil, err
	}

	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	htlc, err := c.lockedHTLC(ctx, req.HTLCID)
	if err != nil {
		return nil, err
	}

	available := order.RemainingAmount - order.ReservedAmount
	if req.Amount > available {
		return nil, swap.Errorf(
			ErrInsufficientFunds, "%d requested, %d available",
			req.Amount, available,
		)
	}

	segment := order.PartialFillIndex
	if order.Ordered() {
		if err := checkSegment(order, req, available); err != nil {
			return nil, err
		}
	} else if !hashlock.Verify(req.Secret, htlc.Hashlock) {
		return nil, ErrSecretMismatch
	}

	_, err = c.cfg.Resolvers.CheckEligible(ctx, req.Resolver, htlc.Chain)
	if err != nil {
		return nil, err
	}

	now := c.cfg.Clock.Now().UTC()
	fill := &swapdb.PartialFill{
		ID:            uuid.NewString(),
		HTLCID:        req.HTLCID,
		SegmentIndex:  segment,
		Amount:        req.Amount,
		SecretHash:    hashlock.Hash(req.Secret),
		Secret:        req.Secret,
		Resolver:      req.Resolver,
		FillTimestamp: now,
		UpdatedAt:     now,
	}

	fillFsm := NewFillFSM(c.cfg, fill, order)
	if err := fillFsm.SendEvent(ctx, OnCreate, nil); err != nil {
		return nil, fmt.Errorf("unable to create fill: %w", err)
	}

	if err := c.cfg.Resolvers.Touch(ctx, req.Resolver); err != nil {
		log.Errorf("Unable to update activity of resolver %v: %v",
			req.Resolver, err)
	}

	return fillFsm.fill.Copy(), nil
}

// checkSegment validates an ordered fill request at the current cursor.
func checkSegment(order *swapdb.PartialOrder, req FillRequest,
	available uint64) error {

	segment := order.PartialFillIndex

	switch {
	// Only one segment may be in flight, the next secret must not be
	// honored before the previous one is revealed.
	case order.ReservedAmount > 0:
		return swap.Errorf(
			ErrFillOutOfOrder, "segment %d still pending",
			segment-1,
		)

	case segment >= order.SegmentCount:
		return swap.Errorf(
			ErrSegmentsExhausted, "%d of %d segments filled",
			segment, order.SegmentCount,
		)

	case segment == order.SegmentCount-1 && req.Amount != available:
		return swap.Errorf(
			ErrInvalidAmount, "final segment must fill %d",
			available,
		)

	// Leave at least one unit for every later segment.
	case available-req.Amount < uint64(order.SegmentCount-segment-1):
		return swap.Errorf(
			ErrInvalidAmount, "%d leaves too little for %d "+
				"segments", req.Amount,
			order.SegmentCount-segment-1,
		)
	}

	ok := hashlock.VerifySegment(
		order.MerkleRoot, order.SegmentCount, segment, req.Secret,
		req.Proof,
	)
	if !ok {
		return swap.Errorf(
			ErrSecretMismatch, "not the secret of segment %d",
			segment,
		)
	}

	return nil
}

// loadFill fetches the fill and its partial order and rehydrates the fill
// state machine. The caller must hold the lock of the fill's HTLC.
func (c *Coordinator) loadFill(ctx context.Context, fillID string) (
	*FillFSM, error) {

	fill, err := c.cfg.Store.FetchFill(ctx, fillID)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrFillNotFound, "%v", fillID)
	}
	if err != nil {
		return nil, err
	}

	order, err := c.fetchOrder(ctx, fill.HTLCID)
	if err != nil {
		return nil, err
	}

	return NewFillFSM(c.cfg, fill, order), nil
}

// fillEvent sends the event to the fill under the lock of its HTLC.
func (c *Coordinator) fillEvent(ctx context.Context, fillID string,
	event fsm.EventType, eventCtx fsm.EventContext,
	check func(*swapdb.PartialFill) error) (*FillFSM, error) {

	fill, err := c.GetPartialFill(ctx, fillID)
	if err != nil {
		return nil, err
	}

	unlock := c.cfg.Locks.Lock(fill.HTLCID)
	defer unlock()

	fillFsm, err := c.loadFill(ctx, fillID)
	if err != nil {
		return nil, err
	}

	if !fillFsm.Can(event) {
		return nil, swap.Errorf(
			ErrFillFinalized, "fill %v is %v", fillID,
			fillFsm.CurrentState(),
		)
	}

	if check != nil {
		if err := check(fillFsm.fill); err != nil {
			return nil, err
		}
	}

	if err := fillFsm.SendEvent(ctx, event, eventCtx); err != nil {
		return nil, err
	}

	return fillFsm, nil
}

// CompleteFill marks a pending fill completed once its external release was
// confirmed. Completing the last outstanding amount claims the parent HTLC.
func (c *Coordinator) CompleteFill(ctx context.Context, fillID string,
	confirmation Confirmation) (*swapdb.PartialFill, error) {

	if confirmation.TxID == "" {
		return nil, swap.Errorf(
			ErrInvalidConfirmation, "missing transaction id",
		)
	}

	eventCtx := &completeContext{
		confirmation: confirmation,
	}
	check := func(fill *swapdb.PartialFill) error {
		htlc, err := c.cfg.HTLCs.Get(ctx, fill.HTLCID)
		if err != nil {
			return err
		}

		// A fill reserved before expiry may still complete after it,
		// the parent can't be refunded while the fill is pending.
		if htlc.Status != swapdb.HTLCLocked &&
			htlc.Status != swapdb.HTLCExpired {

			return swap.Errorf(
				ErrHTLCNotLocked, "%v is %v", fill.HTLCID,
				htlc.Status,
			)
		}

		if confirmation.Chain != swap.ChainUnknown &&
			confirmation.Chain != htlc.Chain {

			return swap.Errorf(
				ErrInvalidConfirmation, "fill on %v confirmed "+
					"on %v", htlc.Chain, confirmation.Chain,
			)
		}
		eventCtx.htlc = htlc

		return nil
	}

	fillFsm, err := c.fillEvent(ctx, fillID, OnComplete, eventCtx, check)
	if err != nil {
		return nil, err
	}

	fill := fillFsm.fill

	_, err = c.cfg.Resolvers.RecordOutcome(ctx, fill.Resolver, true)
	if err != nil {
		log.Errorf("Unable to record success of resolver %v: %v",
			fill.Resolver, err)
	}

	if c.cfg.Releases != nil {
		c.cfg.Releases.Wake()
	}

	return fill.Copy(), nil
}

// FailFill marks a pending fill failed and returns its amount to the pool.
func (c *Coordinator) FailFill(ctx context.Context, fillID,
	reason string) (*swapdb.PartialFill, error) {

	fillFsm, err := c.fillEvent(
		ctx, fillID, OnFail, &failContext{reason: reason}, nil,
	)
	if err != nil {
		return nil, err
	}

	fill := fillFsm.fill

	_, err = c.cfg.Resolvers.RecordOutcome(ctx, fill.Resolver, false)
	if err != nil {
		log.Errorf("Unable to record failure of resolver %v: %v",
			fill.Resolver, err)
	}

	return fill.Copy(), nil
}

// GetPartialFill returns the fill with the given id.
func (c *Coordinator) GetPartialFill(ctx context.Context, fillID string) (
	*swapdb.PartialFill, error) {

	fill, err := c.cfg.Store.FetchFill(ctx, fillID)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrFillNotFound, "%v", fillID)
	}

	return fill, err
}

// GetHtlcPartialFills returns all fills of the HTLC ordered by segment.
func (c *Coordinator) GetHtlcPartialFills(ctx context.Context,
	htlcID string) ([]*swapdb.PartialFill, error) {

	if _, err := c.fetchOrder(ctx, htlcID); err != nil {
		return nil, err
	}

	return c.cfg.Store.FetchFills(ctx, htlcID)
}

// GetPartialOrder returns the partial order of the HTLC.
func (c *Coordinator) GetPartialOrder(ctx context.Context, htlcID string) (
	*swapdb.PartialOrder, error) {

	return c.fetchOrder(ctx, htlcID)
}
