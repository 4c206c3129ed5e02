package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightninglabs/htlcswap/partialfill"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
)

var (
	// ErrSwapNotFound is returned when the local HTLC does not exist.
	ErrSwapNotFound = swap.NewError(
		swap.KindNotFound, "SwapNotFound", "swap not found",
	)

	// ErrAlreadyFinalized is returned when the local HTLC was already
	// claimed or refunded.
	ErrAlreadyFinalized = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyFinalized",
		"htlc already finalized",
	)

	// ErrExpired is returned when the local HTLC expired.
	ErrExpired = swap.NewError(
		swap.KindExpired, "Expired", "htlc expired",
	)

	// ErrInvalidAmount is returned when the external order amount
	// differs from the HTLC amount.
	ErrInvalidAmount = swap.NewError(
		swap.KindInvalidInput, "InvalidAmount",
		"external order amount mismatch",
	)

	// ErrHashlockMismatch is returned when the external order commits to
	// different secrets than the HTLC.
	ErrHashlockMismatch = swap.NewError(
		swap.KindInvalidInput, "HashlockMismatch",
		"external order commitment mismatch",
	)

	// ErrInvalidOrder is returned on a malformed external order.
	ErrInvalidOrder = swap.NewError(
		swap.KindInvalidInput, "InvalidInput",
		"invalid external order",
	)

	// ErrInvalidSignature is returned when the external order signature
	// can't be verified.
	ErrInvalidSignature = swap.NewError(
		swap.KindInvalidSignature, "InvalidSignature",
		"invalid signature",
	)

	// ErrAlreadyLinked is returned when the HTLC is already linked.
	ErrAlreadyLinked = swap.NewError(
		swap.KindAlreadyFinalized, "AlreadyLinked",
		"htlc already linked",
	)

	// ErrSecretsUnavailable is returned when the secrets of an HTLC have
	// not all been revealed yet.
	ErrSecretsUnavailable = swap.NewError(
		swap.KindNotFound, "SecretsUnavailable",
		"secrets not revealed",
	)
)

// HTLCSource returns local HTLCs.
type HTLCSource interface {
	// Get returns the HTLC with its derived status.
	Get(ctx context.Context, id string) (*swapdb.HTLC, error)
}

// PartialOrders is the view of the partial-fill coordinator the bridge
// needs.
type PartialOrders interface {
	// OpenPartialOrder splits an HTLC into segments.
	OpenPartialOrder(ctx context.Context,
		req partialfill.OpenRequest) (*swapdb.PartialOrder, error)

	// GetPartialOrder returns the partial order of an HTLC.
	GetPartialOrder(ctx context.Context,
		htlcID string) (*swapdb.PartialOrder, error)

	// GetHtlcPartialFills returns all fills of an HTLC.
	GetHtlcPartialFills(ctx context.Context,
		htlcID string) ([]*swapdb.PartialFill, error)
}

// Verifier verifies external order signatures by chain.
type Verifier interface {
	// Verify returns an error if sig is not a valid signature of msg by
	// owner on the chain.
	Verify(chain swap.ChainType, owner string, msg, sig []byte) error
}

// ExternalOrder is an order created on an external chain.
type ExternalOrder struct {
	// OrderHash is the order's identifier on its chain.
	OrderHash string

	// Maker is the address of the order's maker on its chain.
	Maker string

	// Chain is the chain the order was created on.
	Chain swap.ChainType

	// Amount is the amount the order locks.
	Amount uint64

	// Commitment is the order's hashlock, or the merkle root of its
	// secret sequence for multi fill orders.
	Commitment lntypes.Hash

	// Signature is the maker's signature over SigningMessage. It is
	// optional.
	Signature []byte
}

// SigningMessage returns the canonical message the maker signs.
func (o *ExternalOrder) SigningMessage(segments uint32) []byte {
	return []byte(fmt.Sprintf("htlcswap external order\nhash:%s\n"+
		"maker:%s\nchain:%v\namount:%d\ncommitment:%s\nsegments:%d",
		o.OrderHash, o.Maker, o.Chain, o.Amount, o.Commitment,
		segments))
}

// Config contains the services the bridge needs.
type Config struct {
	// Store persists links.
	Store swapdb.LinkStore

	// HTLCs returns local HTLCs.
	HTLCs HTLCSource

	// Partials is the partial-fill coordinator.
	Partials PartialOrders

	// Verifier verifies signed external orders. Without a verifier
	// signed orders are rejected.
	Verifier Verifier

	// Clock is the trusted clock.
	Clock clock.Clock
}

// Bridge links local HTLCs to orders living on external chains and exposes
// the secrets the external chain needs to settle them.
type Bridge struct {
	cfg *Config

	locks *swap.KeyedMutex
}

// NewBridge creates a new external order bridge.
func NewBridge(cfg *Config) *Bridge {
	return &Bridge{
		cfg:   cfg,
		locks: swap.NewKeyedMutex(),
	}
}

// fetchHTLC returns the HTLC, translating a missing HTLC.
func (b *Bridge) fetchHTLC(ctx context.Context, id string) (*swapdb.HTLC,
	error) {

	htlc, err := b.cfg.HTLCs.Get(ctx, id)
	if swap.KindOf(err) == swap.KindNotFound {
		return nil, swap.Errorf(ErrSwapNotFound, "%v", id)
	}

	return htlc, err
}

// LinkExternalOrder checks that the external order locks the same amount
// behind the same commitment as the HTLC and records the link. An order
// with more than one segment opens a partial order over the HTLC.
func (b *Bridge) LinkExternalOrder(ctx context.Context, htlcID string,
	order ExternalOrder, isSourceChain bool,
	segmentCount uint32) (*swapdb.ExternalLink, error) {

	if segmentCount == 0 {
		segmentCount = 1
	}

	unlock := b.locks.Lock(htlcID)
	defer unlock()

	htlc, err := b.fetchHTLC(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	switch {
	case htlc.Status == swapdb.HTLCExpired:
		return nil, swap.Errorf(ErrExpired, "%v", htlcID)

	case htlc.Status != swapdb.HTLCLocked:
		return nil, swap.Errorf(
			ErrAlreadyFinalized, "%v is %v", htlcID, htlc.Status,
		)

	case order.OrderHash == "" || !order.Chain.Valid():
		return nil, swap.Errorf(
			ErrInvalidOrder, "order hash and chain required",
		)

	case order.Amount != htlc.Amount:
		return nil, swap.Errorf(
			ErrInvalidAmount, "order locks %d, htlc %d",
			order.Amount, htlc.Amount,
		)

	case order.Commitment != htlc.Hashlock:
		return nil, swap.Errorf(
			ErrHashlockMismatch, "order commits to %v, htlc to %v",
			order.Commitment, htlc.Hashlock,
		)
	}

	if len(order.Signature) > 0 {
		if b.cfg.Verifier == nil {
			return nil, swap.Errorf(
				ErrInvalidSignature, "no verifier configured",
			)
		}

		err := b.cfg.Verifier.Verify(
			order.Chain, order.Maker,
			order.SigningMessage(segmentCount), order.Signature,
		)
		if err != nil {
			return nil, swap.Errorf(ErrInvalidSignature, "%v", err)
		}
	}

	_, err = b.cfg.Store.FetchLink(ctx, htlcID)
	switch {
	case err == nil:
		return nil, swap.Errorf(ErrAlreadyLinked, "%v", htlcID)

	case !errors.Is(err, swapdb.ErrNotFound):
		return nil, err
	}

	if segmentCount > 1 {
		_, err := b.cfg.Partials.OpenPartialOrder(
			ctx, partialfill.OpenRequest{
				HTLCID:        htlcID,
				MerkleRoot:    order.Commitment,
				SegmentCount:  segmentCount,
				IsSourceChain: isSourceChain,
			},
		)
		if err != nil {
			return nil, err
		}
	}

	link := &swapdb.ExternalLink{
		HTLCID:        htlcID,
		OrderHash:     order.OrderHash,
		Maker:         order.Maker,
		Chain:         order.Chain,
		Amount:        order.Amount,
		Commitment:    order.Commitment,
		SegmentCount:  segmentCount,
		IsSourceChain: isSourceChain,
		LinkedAt:      b.cfg.Clock.Now().UTC(),
	}
	err = b.cfg.Store.CreateLink(ctx, link)
	if errors.Is(err, swapdb.ErrAlreadyExists) {
		return nil, swap.Errorf(ErrAlreadyLinked, "%v", htlcID)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Linked htlc %v to %v order %v (%d segments)", htlcID,
		order.Chain, order.OrderHash, segmentCount)

	return link, nil
}

// GetLink returns the external order link of the HTLC.
func (b *Bridge) GetLink(ctx context.Context, htlcID string) (
	*swapdb.ExternalLink, error) {

	link, err := b.cfg.Store.FetchLink(ctx, htlcID)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrSwapNotFound, "no link for %v",
			htlcID)
	}

	return link, err
}

// GetSecrets returns the secrets the external chain presents to settle the
// HTLC: the claimed secret of a single HTLC, or the ordered secrets of a
// partial order once every fill completed.
func (b *Bridge) GetSecrets(ctx context.Context, htlcID string) (
	[]lntypes.Preimage, error) {

	htlc, err := b.fetchHTLC(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	order, err := b.cfg.Partials.GetPartialOrder(ctx, htlcID)
	switch {
	case swap.KindOf(err) == swap.KindNotFound:
		if htlc.Secret == nil {
			return nil, swap.Errorf(
				ErrSecretsUnavailable, "%v is %v", htlcID,
				htlc.Status,
			)
		}

		return []lntypes.Preimage{*htlc.Secret}, nil

	case err != nil:
		return nil, err
	}

	if order.RemainingAmount != 0 || order.ReservedAmount != 0 {
		return nil, swap.Errorf(
			ErrSecretsUnavailable, "%d of %d outstanding",
			order.RemainingAmount,
			order.RemainingAmount+order.TotalFilled,
		)
	}

	fills, err := b.cfg.Partials.GetHtlcPartialFills(ctx, htlcID)
	if err != nil {
		return nil, err
	}
	for _, fill := range fills {
		if fill.Status == swapdb.FillPending {
			return nil, swap.Errorf(
				ErrSecretsUnavailable, "fill %v pending",
				fill.ID,
			)
		}
	}

	return order.Revealed, nil
}
