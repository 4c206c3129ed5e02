package orderbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/htlc"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
)

const (
	// DefaultMakerTimelock is the lifetime of the owner's HTLC created on
	// match. The taker's HTLC lives half as long.
	DefaultMakerTimelock = 24 * time.Hour
)

var (
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = swap.NewError(
		swap.KindNotFound, "OrderNotFound", "order not found",
	)

	// ErrSwapNotFound is returned when the swap does not exist.
	ErrSwapNotFound = swap.NewError(
		swap.KindNotFound, "SwapNotFound", "swap not found",
	)

	// ErrOrderAlreadyMatched is returned when the order was taken.
	ErrOrderAlreadyMatched = swap.NewError(
		swap.KindOrderAlreadyMatched, "OrderAlreadyMatched",
		"order already matched",
	)

	// ErrOrderCancelled is returned when the order was cancelled.
	ErrOrderCancelled = swap.NewError(
		swap.KindAlreadyFinalized, "OrderCancelled",
		"order cancelled",
	)

	// ErrOrderExpired is returned when the order expired.
	ErrOrderExpired = swap.NewError(
		swap.KindExpired, "OrderExpired", "order expired",
	)

	// ErrUnauthorized is returned when the caller may not act on the
	// order.
	ErrUnauthorized = swap.NewError(
		swap.KindUnauthorized, "Unauthorized", "unauthorized",
	)

	// ErrInvalidAmount is returned when an order amount is zero.
	ErrInvalidAmount = swap.NewError(
		swap.KindInvalidInput, "InvalidAmount",
		"amounts must be positive",
	)

	// ErrInvalidOrder is returned on any other malformed order.
	ErrInvalidOrder = swap.NewError(
		swap.KindInvalidInput, "InvalidInput", "invalid order",
	)

	// ErrInvalidSignature is returned when the origin chain signature of
	// an external order can't be verified.
	ErrInvalidSignature = swap.NewError(
		swap.KindInvalidSignature, "InvalidSignature",
		"invalid signature",
	)
)

// HTLCCreator creates the HTLCs of a matched order.
type HTLCCreator interface {
	// Create locks a new HTLC and returns its id.
	Create(ctx context.Context, req htlc.CreateRequest) (string, error)
}

// SignatureVerifier verifies that an owner signed a message on a chain.
type SignatureVerifier interface {
	// Verify returns an error if sig is not a valid signature of msg by
	// owner on the given chain.
	Verify(chain swap.ChainType, owner string, msg, sig []byte) error
}

// Config contains the services the order book needs.
type Config struct {
	// Store persists orders and swaps.
	Store swapdb.OrderStore

	// HTLCs creates the HTLCs on match.
	HTLCs HTLCCreator

	// Verifier verifies external orders. Without a verifier every
	// external order is rejected.
	Verifier SignatureVerifier

	// Clock is the trusted clock.
	Clock clock.Clock

	// MakerTimelock is the lifetime of the owner's HTLC. The taker's HTLC
	// expires after half of it.
	MakerTimelock time.Duration

	// OrderTTL is the default lifetime of an order placed without an
	// explicit expiry. Zero means orders don't expire.
	OrderTTL time.Duration
}

// PlaceRequest describes a new limit order.
type PlaceRequest struct {
	Owner        string
	TokenSell    string
	AmountSell   uint64
	TokenBuy     string
	AmountBuy    uint64
	HashedSecret lntypes.Hash
	IsEvmUser    bool

	// Expiry overrides the default order lifetime if set.
	Expiry time.Time
}

// SigningMessage returns the canonical message an owner signs to submit the
// order from an external chain.
func (r *PlaceRequest) SigningMessage() []byte {
	var expiry int64
	if !r.Expiry.IsZero() {
		expiry = r.Expiry.Unix()
	}

	return []byte(fmt.Sprintf("htlcswap order\nowner:%s\nsell:%d %s\n"+
		"buy:%d %s\nhashlock:%s\nevm:%t\nexpiry:%d", r.Owner,
		r.AmountSell, r.TokenSell, r.AmountBuy, r.TokenBuy,
		r.HashedSecret, r.IsEvmUser, expiry))
}

// Book is the limit-order book. Orders are matched first-taker-wins, every
// operation on an order is serialized under the order's lock.
type Book struct {
	cfg *Config

	locks *swap.KeyedMutex

	open *openIndex
}

// NewBook creates an order book and indexes the open orders of the store.
func NewBook(ctx context.Context, cfg *Config) (*Book, error) {
	if cfg.MakerTimelock == 0 {
		cfg.MakerTimelock = DefaultMakerTimelock
	}

	book := &Book{
		cfg:   cfg,
		locks: swap.NewKeyedMutex(),
		open:  newOpenIndex(),
	}

	orders, err := cfg.Store.FetchOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch orders: %w", err)
	}
	for _, order := range orders {
		if order.Status == swapdb.OrderOpen {
			book.open.add(order.ID, order.Timestamp)
		}
	}

	log.Infof("Order book loaded with %d open orders", book.open.len())

	return book, nil
}

// validate checks the request and returns the new order.
func (b *Book) validate(req PlaceRequest) (*swapdb.LimitOrder, error) {
	now := b.cfg.Clock.Now().UTC()

	switch {
	case req.AmountSell == 0 || req.AmountBuy == 0:
		return nil, ErrInvalidAmount

	case req.Owner == "":
		return nil, swap.Errorf(ErrInvalidOrder, "owner required")

	case req.TokenSell == "" || req.TokenBuy == "":
		return nil, swap.Errorf(ErrInvalidOrder, "tokens required")

	case hashlock.IsZero(req.HashedSecret):
		return nil, swap.Errorf(ErrInvalidOrder, "empty hashed secret")

	case !req.Expiry.IsZero() && !req.Expiry.After(now):
		return nil, swap.Errorf(
			ErrInvalidOrder, "expiry %v is not after %v",
			req.Expiry, now,
		)
	}

	expiry := req.Expiry.UTC()
	if req.Expiry.IsZero() && b.cfg.OrderTTL > 0 {
		expiry = now.Add(b.cfg.OrderTTL)
	}

	return &swapdb.LimitOrder{
		ID:           uuid.NewString(),
		Owner:        req.Owner,
		HashedSecret: req.HashedSecret,
		TokenSell:    req.TokenSell,
		AmountSell:   req.AmountSell,
		TokenBuy:     req.TokenBuy,
		AmountBuy:    req.AmountBuy,
		IsEvmUser:    req.IsEvmUser,
		Timestamp:    now,
		Expiry:       expiry,
	}, nil
}

// place persists the new order and indexes it.
func (b *Book) place(ctx context.Context, order *swapdb.LimitOrder) (string,
	error) {

	orderFsm := NewOrderFSM(b.cfg, order)
	if err := orderFsm.SendEvent(ctx, OnPlace, nil); err != nil {
		return "", fmt.Errorf("unable to place order: %w", err)
	}
	b.open.add(order.ID, order.Timestamp)

	return order.ID, nil
}

// PlaceOrder admits a new limit order.
func (b *Book) PlaceOrder(ctx context.Context, req PlaceRequest) (string,
	error) {

	order, err := b.validate(req)
	if err != nil {
		return "", err
	}

	return b.place(ctx, order)
}

// SubmitExternalOrder admits an order that was signed by its owner on the
// origin chain.
func (b *Book) SubmitExternalOrder(ctx context.Context, req PlaceRequest,
	origin swap.ChainType, signature []byte) (string, error) {

	order, err := b.validate(req)
	if err != nil {
		return "", err
	}

	switch {
	case !origin.Valid():
		return "", swap.Errorf(
			ErrInvalidOrder, "unknown origin chain %v", origin,
		)

	case b.cfg.Verifier == nil:
		return "", swap.Errorf(
			ErrInvalidSignature, "no verifier for %v", origin,
		)
	}

	err = b.cfg.Verifier.Verify(
		origin, req.Owner, req.SigningMessage(), signature,
	)
	if err != nil {
		return "", swap.Errorf(ErrInvalidSignature, "%v", err)
	}

	order.External = true
	order.OriginChain = origin
	order.Signature = append([]byte(nil), signature...)

	return b.place(ctx, order)
}

// expired returns true if the order can no longer be taken.
func (b *Book) expired(order *swapdb.LimitOrder) bool {
	return !order.Expiry.IsZero() && !b.cfg.Clock.Now().Before(order.Expiry)
}

// load fetches the order and rehydrates its state machine. An open order
// past its expiry is persisted as expired first. The caller must hold the
// order's lock.
func (b *Book) load(ctx context.Context, id string) (*OrderFSM, error) {
	order, err := b.cfg.Store.FetchOrder(ctx, id)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrOrderNotFound, "%v", id)
	}
	if err != nil {
		return nil, err
	}

	orderFsm := NewOrderFSM(b.cfg, order)
	if order.Status == swapdb.OrderOpen && b.expired(order) {
		if err := orderFsm.SendEvent(ctx, OnExpire, nil); err != nil {
			return nil, err
		}
		b.open.remove(order.ID, order.Timestamp)
	}

	return orderFsm, nil
}

// finalError maps the status of an order that left Open to its error.
func finalError(order *swapdb.LimitOrder) error {
	switch order.Status {
	case swapdb.OrderMatched:
		return swap.Errorf(
			ErrOrderAlreadyMatched, "%v taken by %v", order.ID,
			order.Taker,
		)

	case swapdb.OrderCancelled:
		return swap.Errorf(ErrOrderCancelled, "%v", order.ID)

	case swapdb.OrderExpired:
		return swap.Errorf(
			ErrOrderExpired, "%v expired at %v", order.ID,
			order.Expiry,
		)

	default:
		return fmt.Errorf("unexpected order status %v", order.Status)
	}
}

// TakeOrder matches the order with the taker. Of several concurrent takers
// the first wins, the others fail with ErrOrderAlreadyMatched.
func (b *Book) TakeOrder(ctx context.Context, id, taker string) (
	*swapdb.Swap, error) {

	if taker == "" {
		return nil, swap.Errorf(ErrInvalidOrder, "taker required")
	}

	unlock := b.locks.Lock(id)
	defer unlock()

	orderFsm, err := b.load(ctx, id)
	if err != nil {
		return nil, err
	}

	order := orderFsm.order
	if order.Status != swapdb.OrderOpen {
		return nil, finalError(order)
	}

	if taker == order.Owner {
		return nil, swap.Errorf(
			ErrUnauthorized, "owner can't take own order",
		)
	}

	err = orderFsm.SendEvent(ctx, OnTake, &takeContext{taker: taker})
	if err != nil {
		return nil, err
	}
	b.open.remove(order.ID, order.Timestamp)

	return orderFsm.swap.Copy(), nil
}

// CancelOrder withdraws an open order. Only the owner may cancel.
func (b *Book) CancelOrder(ctx context.Context, id, caller string) error {
	unlock := b.locks.Lock(id)
	defer unlock()

	orderFsm, err := b.load(ctx, id)
	if err != nil {
		return err
	}

	order := orderFsm.order
	if caller != order.Owner {
		return swap.Errorf(
			ErrUnauthorized, "%v is not the owner of %v", caller,
			id,
		)
	}

	if order.Status != swapdb.OrderOpen {
		return finalError(order)
	}

	if err := orderFsm.SendEvent(ctx, OnCancel, nil); err != nil {
		return err
	}
	b.open.remove(order.ID, order.Timestamp)

	return nil
}

// GetOrder returns the order.
func (b *Book) GetOrder(ctx context.Context, id string) (*swapdb.LimitOrder,
	error) {

	unlock := b.locks.Lock(id)
	defer unlock()

	orderFsm, err := b.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return orderFsm.order.Copy(), nil
}

// GetOpenOrders returns all open orders oldest first. Orders found expired
// are finalized on the way.
func (b *Book) GetOpenOrders(ctx context.Context) ([]*swapdb.LimitOrder,
	error) {

	var orders []*swapdb.LimitOrder
	for _, id := range b.open.ids() {
		order, err := b.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}

		if order.Status == swapdb.OrderOpen {
			orders = append(orders, order)
		}
	}

	return orders, nil
}

// GetUserOrders returns all orders of the owner oldest first.
func (b *Book) GetUserOrders(ctx context.Context, owner string) (
	[]*swapdb.LimitOrder, error) {

	orders, err := b.cfg.Store.FetchOrders(ctx)
	if err != nil {
		return nil, err
	}

	var owned []*swapdb.LimitOrder
	for _, order := range orders {
		if order.Owner != owner {
			continue
		}

		if order.Status == swapdb.OrderOpen && b.expired(order) {
			order, err = b.GetOrder(ctx, order.ID)
			if err != nil {
				return nil, err
			}
		}
		owned = append(owned, order)
	}

	return owned, nil
}

// GetSwap returns the swap created by a match.
func (b *Book) GetSwap(ctx context.Context, id string) (*swapdb.Swap,
	error) {

	swp, err := b.cfg.Store.FetchSwap(ctx, id)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, swap.Errorf(ErrSwapNotFound, "%v", id)
	}

	return swp, err
}
