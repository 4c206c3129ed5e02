package htlcswap

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/lightninglabs/htlcswap/bridge"
	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/htlc"
	"github.com/lightninglabs/htlcswap/orderbook"
	"github.com/lightninglabs/htlcswap/partialfill"
	"github.com/lightninglabs/htlcswap/release"
	"github.com/lightninglabs/htlcswap/resolver"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/ticker"
)

// errInvalidHex is returned when a hex encoded boundary value can't be
// decoded.
var errInvalidHex = swap.NewError(
	swap.KindInvalidInput, "InvalidInput", "invalid hex encoding",
)

// Config contains everything the engine needs.
type Config struct {
	// Store persists every entity of the engine.
	Store swapdb.Store

	// Clock is the trusted clock. The system clock is used if nil.
	Clock clock.Clock

	// Verifiers verify the signatures of external orders. The EVM and
	// Solana verifiers are used if nil.
	Verifiers *bridge.VerifierSet

	// Executor executes releases on external chains. Without an executor
	// releases are only recorded.
	Executor release.Executor

	// ReleaseTicker drives the release dispatcher. A ticker with
	// release.DefaultInterval is used if nil.
	ReleaseTicker ticker.Ticker

	// MakerTimelock is the lifetime of the owner's HTLC of a matched
	// order.
	MakerTimelock time.Duration

	// OrderTTL is the default lifetime of an order. Zero means orders
	// don't expire.
	OrderTTL time.Duration

	// ReleaseBackoff is the delay before the first release retry.
	ReleaseBackoff time.Duration

	// ReleaseBackoffMax caps the release retry delay.
	ReleaseBackoffMax time.Duration
}

// Engine is the swap-state engine. It owns the HTLC registry, the order
// book, the partial-fill coordinator, the resolver registry and the
// external order bridge, and exposes their operations with hex encoded
// secrets and hashlocks. Every error it returns is a *swap.Error.
type Engine struct {
	cfg *Config

	htlcs     *htlc.Registry
	book      *orderbook.Book
	partials  *partialfill.Coordinator
	resolvers *resolver.Registry
	bridge    *bridge.Bridge
	releases  *release.Dispatcher
}

// NewEngine wires all components on top of the store.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Verifiers == nil {
		cfg.Verifiers = bridge.DefaultVerifiers()
	}

	releases := release.NewDispatcher(&release.Config{
		Store:       cfg.Store,
		Executor:    cfg.Executor,
		Clock:       cfg.Clock,
		Ticker:      cfg.ReleaseTicker,
		BackoffBase: cfg.ReleaseBackoff,
		BackoffMax:  cfg.ReleaseBackoffMax,
	})

	// The registry and the coordinator serialize an HTLC and its partial
	// order under the same lock.
	locks := swap.NewKeyedMutex()

	htlcs := htlc.NewRegistry(&htlc.Config{
		Store:    cfg.Store,
		Splits:   cfg.Store,
		Locks:    locks,
		Clock:    cfg.Clock,
		Releases: releases,
	})

	resolvers := resolver.NewRegistry(&resolver.Config{
		Store: cfg.Store,
		Clock: cfg.Clock,
	})

	book, err := orderbook.NewBook(ctx, &orderbook.Config{
		Store:         cfg.Store,
		HTLCs:         htlcs,
		Verifier:      cfg.Verifiers,
		Clock:         cfg.Clock,
		MakerTimelock: cfg.MakerTimelock,
		OrderTTL:      cfg.OrderTTL,
	})
	if err != nil {
		return nil, err
	}

	partials := partialfill.NewCoordinator(&partialfill.Config{
		Store:     cfg.Store,
		HTLCs:     htlcs,
		Resolvers: resolvers,
		Locks:     locks,
		Releases:  releases,
		Clock:     cfg.Clock,
	})

	return &Engine{
		cfg:       cfg,
		htlcs:     htlcs,
		book:      book,
		partials:  partials,
		resolvers: resolvers,
		bridge: bridge.NewBridge(&bridge.Config{
			Store:    cfg.Store,
			HTLCs:    htlcs,
			Partials: partials,
			Verifier: cfg.Verifiers,
			Clock:    cfg.Clock,
		}),
		releases: releases,
	}, nil
}

// Run executes recorded releases until the context is canceled. It returns
// release.ErrNoExecutor if the engine has no executor.
func (e *Engine) Run(ctx context.Context) error {
	return e.releases.Run(ctx)
}

// guard turns every error leaving the engine into a *swap.Error and
// recovers panics as internal errors.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		log.Criticalf("%v panicked: %v\n%s", op, r, debug.Stack())
		*err = fmt.Errorf("%v: internal error: %v", op, r)
	}

	if *err != nil {
		wrapped := swap.Wrap(*err)
		if wrapped.Kind == swap.KindInternal {
			log.Errorf("%v failed: %v", op, *err)
		}
		*err = wrapped
	}
}

// CreateHTLC locks a new HTLC and returns its id.
func (e *Engine) CreateHTLC(ctx context.Context,
	req *CreateHTLCRequest) (_ string, err error) {

	defer guard("CreateHTLC", &err)

	hash, err := hashlock.ParseHashlock(req.Hashlock)
	if err != nil {
		return "", err
	}

	return e.htlcs.Create(ctx, htlc.CreateRequest{
		Sender:     req.Sender,
		Recipient:  req.Recipient,
		Amount:     req.Amount,
		Token:      req.Token,
		Hashlock:   hash,
		Expiration: req.Expiration,
		Chain:      req.Chain,
		OrderRef:   req.OrderRef,
	})
}

// ClaimHTLC claims the HTLC with its hex encoded secret.
func (e *Engine) ClaimHTLC(ctx context.Context, id,
	secretHex string) (_ *HTLCInfo, err error) {

	defer guard("ClaimHTLC", &err)

	secret, err := hashlock.ParseSecret(secretHex)
	if err != nil {
		return nil, err
	}

	h, err := e.htlcs.Claim(ctx, id, secret)
	if err != nil {
		return nil, err
	}

	return marshalHTLC(h), nil
}

// RefundHTLC returns an expired HTLC to its sender.
func (e *Engine) RefundHTLC(ctx context.Context, id,
	caller string) (_ *HTLCInfo, err error) {

	defer guard("RefundHTLC", &err)

	h, err := e.htlcs.Refund(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	return marshalHTLC(h), nil
}

// GetHTLC returns the HTLC with its derived status.
func (e *Engine) GetHTLC(ctx context.Context, id string) (_ *HTLCInfo,
	err error) {

	defer guard("GetHTLC", &err)

	h, err := e.htlcs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return marshalHTLC(h), nil
}

// ListHTLCs returns the HTLCs matching the request, oldest first.
func (e *Engine) ListHTLCs(ctx context.Context,
	req *ListHTLCsRequest) (_ []*HTLCInfo, err error) {

	defer guard("ListHTLCs", &err)

	htlcs, err := e.htlcs.List(ctx, htlc.Filter{
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Status:    req.Status,
	})
	if err != nil {
		return nil, err
	}

	infos := make([]*HTLCInfo, 0, len(htlcs))
	for _, h := range htlcs {
		infos = append(infos, marshalHTLC(h))
	}

	return infos, nil
}

// HTLCHistory returns the append-only event log of the HTLC.
func (e *Engine) HTLCHistory(ctx context.Context, id string) (
	_ []*HTLCEvent, err error) {

	defer guard("HTLCHistory", &err)

	updates, err := e.htlcs.History(ctx, id)
	if err != nil {
		return nil, err
	}

	events := make([]*HTLCEvent, 0, len(updates))
	for _, u := range updates {
		events = append(events, &HTLCEvent{
			Time:   u.Time,
			Status: u.Status,
			Event:  u.Event,
		})
	}

	return events, nil
}

// placeRequest converts the boundary request.
func placeRequest(req *PlaceOrderRequest) (orderbook.PlaceRequest, error) {
	hash, err := hashlock.ParseHashlock(req.HashedSecret)
	if err != nil {
		return orderbook.PlaceRequest{}, err
	}

	return orderbook.PlaceRequest{
		Owner:        req.Owner,
		TokenSell:    req.TokenSell,
		AmountSell:   req.AmountSell,
		TokenBuy:     req.TokenBuy,
		AmountBuy:    req.AmountBuy,
		HashedSecret: hash,
		IsEvmUser:    req.IsEvmUser,
		Expiry:       req.Expiry,
	}, nil
}

// PlaceOrder places a limit order and returns its id.
func (e *Engine) PlaceOrder(ctx context.Context,
	req *PlaceOrderRequest) (_ string, err error) {

	defer guard("PlaceOrder", &err)

	placeReq, err := placeRequest(req)
	if err != nil {
		return "", err
	}

	return e.book.PlaceOrder(ctx, placeReq)
}

// OrderSigningMessage returns the message the owner of an external order
// signs on the origin chain.
func (e *Engine) OrderSigningMessage(req *PlaceOrderRequest) (_ []byte,
	err error) {

	defer guard("OrderSigningMessage", &err)

	placeReq, err := placeRequest(req)
	if err != nil {
		return nil, err
	}

	return placeReq.SigningMessage(), nil
}

// SubmitExternalOrder admits an order signed on its origin chain.
func (e *Engine) SubmitExternalOrder(ctx context.Context,
	req *ExternalOrderRequest) (_ string, err error) {

	defer guard("SubmitExternalOrder", &err)

	placeReq, err := placeRequest(&req.PlaceOrderRequest)
	if err != nil {
		return "", err
	}

	sig, err := parseBytes(req.Signature)
	if err != nil {
		return "", err
	}

	return e.book.SubmitExternalOrder(ctx, placeReq, req.OriginChain, sig)
}

// TakeOrder matches the order with the taker.
func (e *Engine) TakeOrder(ctx context.Context, orderID,
	taker string) (_ *SwapInfo, err error) {

	defer guard("TakeOrder", &err)

	s, err := e.book.TakeOrder(ctx, orderID, taker)
	if err != nil {
		return nil, err
	}

	return marshalSwap(s), nil
}

// CancelOrder withdraws an open order.
func (e *Engine) CancelOrder(ctx context.Context, orderID,
	caller string) (err error) {

	defer guard("CancelOrder", &err)

	return e.book.CancelOrder(ctx, orderID, caller)
}

// GetOpenOrders returns all open orders oldest first.
func (e *Engine) GetOpenOrders(ctx context.Context) (_ []*OrderInfo,
	err error) {

	defer guard("GetOpenOrders", &err)

	orders, err := e.book.GetOpenOrders(ctx)
	if err != nil {
		return nil, err
	}

	return marshalOrders(orders), nil
}

// GetOrder returns the order.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (
	_ *OrderInfo, err error) {

	defer guard("GetOrder", &err)

	order, err := e.book.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return marshalOrder(order), nil
}

// GetUserOrders returns all orders of the owner.
func (e *Engine) GetUserOrders(ctx context.Context, owner string) (
	_ []*OrderInfo, err error) {

	defer guard("GetUserOrders", &err)

	orders, err := e.book.GetUserOrders(ctx, owner)
	if err != nil {
		return nil, err
	}

	return marshalOrders(orders), nil
}

// GetSwap returns the swap of a matched order.
func (e *Engine) GetSwap(ctx context.Context, swapID string) (_ *SwapInfo,
	err error) {

	defer guard("GetSwap", &err)

	s, err := e.book.GetSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}

	return marshalSwap(s), nil
}

// OpenPartialOrder splits a locked HTLC into segments.
func (e *Engine) OpenPartialOrder(ctx context.Context,
	req *OpenPartialOrderRequest) (_ *PartialOrderInfo, err error) {

	defer guard("OpenPartialOrder", &err)

	var root lntypes.Hash
	if req.MerkleRoot != "" {
		root, err = hashlock.ParseHashlock(req.MerkleRoot)
		if err != nil {
			return nil, err
		}
	}

	order, err := e.partials.OpenPartialOrder(ctx, partialfill.OpenRequest{
		HTLCID:        req.HTLCID,
		MerkleRoot:    root,
		SegmentCount:  req.SegmentCount,
		IsSourceChain: req.IsSourceChain,
	})
	if err != nil {
		return nil, err
	}

	return marshalPartialOrder(order), nil
}

// CreateFill fills the next segment of a partial order and returns the fill
// id.
func (e *Engine) CreateFill(ctx context.Context,
	req *CreateFillRequest) (_ string, err error) {

	defer guard("CreateFill", &err)

	secret, err := hashlock.ParseSecret(req.Secret)
	if err != nil {
		return "", err
	}

	proof, err := parseProof(req.Proof)
	if err != nil {
		return "", err
	}

	fill, err := e.partials.CreateFill(ctx, partialfill.FillRequest{
		HTLCID:   req.HTLCID,
		Amount:   req.Amount,
		Secret:   secret,
		Resolver: req.Resolver,
		Proof:    proof,
	})
	if err != nil {
		return "", err
	}

	return fill.ID, nil
}

// CompleteFill confirms the external release of a fill.
func (e *Engine) CompleteFill(ctx context.Context,
	req *CompleteFillRequest) (_ *FillInfo, err error) {

	defer guard("CompleteFill", &err)

	fill, err := e.partials.CompleteFill(
		ctx, req.FillID, partialfill.Confirmation{
			TxID:  req.TxID,
			Chain: req.Chain,
		},
	)
	if err != nil {
		return nil, err
	}

	return marshalFill(fill), nil
}

// FailFill marks a fill failed and returns its amount to the pool.
func (e *Engine) FailFill(ctx context.Context, fillID,
	reason string) (_ *FillInfo, err error) {

	defer guard("FailFill", &err)

	fill, err := e.partials.FailFill(ctx, fillID, reason)
	if err != nil {
		return nil, err
	}

	return marshalFill(fill), nil
}

// GetPartialFill returns the fill.
func (e *Engine) GetPartialFill(ctx context.Context, fillID string) (
	_ *FillInfo, err error) {

	defer guard("GetPartialFill", &err)

	fill, err := e.partials.GetPartialFill(ctx, fillID)
	if err != nil {
		return nil, err
	}

	return marshalFill(fill), nil
}

// GetHtlcPartialFills returns all fills of the HTLC.
func (e *Engine) GetHtlcPartialFills(ctx context.Context, htlcID string) (
	_ []*FillInfo, err error) {

	defer guard("GetHtlcPartialFills", &err)

	fills, err := e.partials.GetHtlcPartialFills(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	infos := make([]*FillInfo, 0, len(fills))
	for _, fill := range fills {
		infos = append(infos, marshalFill(fill))
	}

	return infos, nil
}

// GetPartialOrder returns the partial order of the HTLC.
func (e *Engine) GetPartialOrder(ctx context.Context, htlcID string) (
	_ *PartialOrderInfo, err error) {

	defer guard("GetPartialOrder", &err)

	order, err := e.partials.GetPartialOrder(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	return marshalPartialOrder(order), nil
}

// RegisterResolver registers a new resolver.
func (e *Engine) RegisterResolver(ctx context.Context, address string,
	chains []swap.ChainType) (_ *ResolverInfo, err error) {

	defer guard("RegisterResolver", &err)

	r, err := e.resolvers.Register(ctx, address, chains)
	if err != nil {
		return nil, err
	}

	return marshalResolver(r), nil
}

// UpdateResolverStatus activates or deactivates a resolver.
func (e *Engine) UpdateResolverStatus(ctx context.Context, address string,
	active bool) (_ *ResolverInfo, err error) {

	defer guard("UpdateResolverStatus", &err)

	r, err := e.resolvers.UpdateStatus(ctx, address, active)
	if err != nil {
		return nil, err
	}

	return marshalResolver(r), nil
}

// SelectResolvers returns the candidates for fills on the chain, best
// first.
func (e *Engine) SelectResolvers(ctx context.Context,
	chain swap.ChainType) (_ []*ResolverInfo, err error) {

	defer guard("SelectResolvers", &err)

	resolvers, err := e.resolvers.SelectFor(ctx, chain)
	if err != nil {
		return nil, err
	}

	return marshalResolvers(resolvers), nil
}

// GetResolver returns the resolver.
func (e *Engine) GetResolver(ctx context.Context, address string) (
	_ *ResolverInfo, err error) {

	defer guard("GetResolver", &err)

	r, err := e.resolvers.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	return marshalResolver(r), nil
}

// ListResolvers returns all resolvers.
func (e *Engine) ListResolvers(ctx context.Context) (_ []*ResolverInfo,
	err error) {

	defer guard("ListResolvers", &err)

	resolvers, err := e.resolvers.List(ctx)
	if err != nil {
		return nil, err
	}

	return marshalResolvers(resolvers), nil
}

// LinkExternalOrder links an HTLC to an order on an external chain.
func (e *Engine) LinkExternalOrder(ctx context.Context,
	req *LinkExternalOrderRequest) (_ *LinkInfo, err error) {

	defer guard("LinkExternalOrder", &err)

	commitment, err := hashlock.ParseHashlock(req.Commitment)
	if err != nil {
		return nil, err
	}

	var sig []byte
	if req.Signature != "" {
		sig, err = parseBytes(req.Signature)
		if err != nil {
			return nil, err
		}
	}

	link, err := e.bridge.LinkExternalOrder(ctx, req.HTLCID,
		bridge.ExternalOrder{
			OrderHash:  req.OrderHash,
			Maker:      req.Maker,
			Chain:      req.Chain,
			Amount:     req.Amount,
			Commitment: commitment,
			Signature:  sig,
		}, req.IsSourceChain, req.SegmentCount,
	)
	if err != nil {
		return nil, err
	}

	return marshalLink(link), nil
}

// GetLink returns the external order link of the HTLC.
func (e *Engine) GetLink(ctx context.Context, htlcID string) (_ *LinkInfo,
	err error) {

	defer guard("GetLink", &err)

	link, err := e.bridge.GetLink(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	return marshalLink(link), nil
}

// GetSecrets returns the hex encoded secrets that settle the HTLC on the
// external chain.
func (e *Engine) GetSecrets(ctx context.Context, htlcID string) (
	_ []string, err error) {

	defer guard("GetSecrets", &err)

	secrets, err := e.bridge.GetSecrets(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	encoded := make([]string, 0, len(secrets))
	for _, s := range secrets {
		encoded = append(encoded, s.String())
	}

	return encoded, nil
}

// PendingReleases returns the releases that were not executed yet.
func (e *Engine) PendingReleases(ctx context.Context) (_ []*ReleaseInfo,
	err error) {

	defer guard("PendingReleases", &err)

	intents, err := e.releases.Pending(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*ReleaseInfo, 0, len(intents))
	for _, intent := range intents {
		infos = append(infos, marshalRelease(intent))
	}

	return infos, nil
}

// ProcessReleases runs a single pass over the due releases and returns the
// number of executed releases.
func (e *Engine) ProcessReleases(ctx context.Context) (_ int, err error) {
	defer guard("ProcessReleases", &err)

	return e.releases.ProcessDue(ctx)
}
