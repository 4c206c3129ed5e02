package orderbook

import (
	"context"

	"github.com/google/uuid"
	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/htlc"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
)

// States.
var (
	// Open is the state of an order waiting for a taker.
	Open = fsm.StateType(swapdb.OrderOpen)

	// Matched is the terminal state of a taken order.
	Matched = fsm.StateType(swapdb.OrderMatched)

	// Cancelled is the terminal state of an order withdrawn by its owner.
	Cancelled = fsm.StateType(swapdb.OrderCancelled)

	// Expired is the terminal state of an order that was not taken in
	// time.
	Expired = fsm.StateType(swapdb.OrderExpired)
)

// Events.
var (
	// OnPlace is sent when a new order is admitted.
	OnPlace = fsm.EventType("OnPlace")

	// OnTake is sent when a taker claims the order.
	OnTake = fsm.EventType("OnTake")

	// OnCancel is sent when the owner withdraws the order.
	OnCancel = fsm.EventType("OnCancel")

	// OnExpire is sent when an expired order is observed.
	OnExpire = fsm.EventType("OnExpire")
)

// takeContext is the event context of OnTake.
type takeContext struct {
	taker string
}

// OrderFSM is the state machine of a single limit order.
type OrderFSM struct {
	*fsm.StateMachine

	cfg *Config

	order *swapdb.LimitOrder

	// swap is set once the order was matched.
	swap *swapdb.Swap

	log *swap.PrefixLog
}

// NewOrderFSM creates the state machine of an order. An order that was not
// persisted yet starts in the empty state.
func NewOrderFSM(cfg *Config, order *swapdb.LimitOrder) *OrderFSM {
	orderFsm := &OrderFSM{
		cfg:   cfg,
		order: order,
		log: &swap.PrefixLog{
			Logger: log,
			ID:     order.ID,
		},
	}

	orderFsm.StateMachine = fsm.NewStateMachineWithState(
		orderFsm.GetOrderStates(), fsm.StateType(order.Status),
	)
	orderFsm.ActionEntryFunc = func(n fsm.Notification) {
		orderFsm.log.Debugf("%v -> %v on %v", n.PreviousState,
			n.NextState, n.Event)
	}

	return orderFsm
}

// GetOrderStates returns the transition table of the order state machine.
func (f *OrderFSM) GetOrderStates() fsm.States {
	return fsm.States{
		fsm.EmptyState: fsm.State{
			Transitions: fsm.Transitions{
				OnPlace: Open,
			},
		},
		Open: fsm.State{
			Action: f.PlaceAction,
			Transitions: fsm.Transitions{
				OnTake:   Matched,
				OnCancel: Cancelled,
				OnExpire: Expired,
			},
		},
		Matched: fsm.State{
			Action: f.TakeAction,
		},
		Cancelled: fsm.State{
			Action: f.finalize(swapdb.OrderCancelled),
		},
		Expired: fsm.State{
			Action: f.finalize(swapdb.OrderExpired),
		},
	}
}

// PlaceAction persists a new order.
func (f *OrderFSM) PlaceAction(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	order := f.order.Copy()
	order.Status = swapdb.OrderOpen

	if err := f.cfg.Store.CreateOrder(ctx, order); err != nil {
		return f.HandleError(err)
	}
	f.order = order

	f.log.Infof("Placed by %v: %v %v for %v %v", order.Owner,
		order.AmountSell, order.TokenSell, order.AmountBuy,
		order.TokenBuy)

	return fsm.NoOp
}

// TakeAction locks both sides of the trade and records the swap. The order
// is only marked matched once both HTLCs exist, a failure leaves it open.
func (f *OrderFSM) TakeAction(ctx context.Context,
	eventCtx fsm.EventContext) fsm.EventType {

	req, ok := eventCtx.(*takeContext)
	if !ok {
		return f.HandleError(fsm.ErrInvalidContextType)
	}

	order := f.order.Copy()
	now := f.cfg.Clock.Now().UTC()
	ownerChain, takerChain := swap.CounterChain(order.IsEvmUser)
	if order.External {
		ownerChain = order.OriginChain
	}

	// The owner knows the secret and claims first, so the taker's lock
	// must expire well before the owner's.
	makerHTLC, err := f.cfg.HTLCs.Create(ctx, htlc.CreateRequest{
		Sender:     order.Owner,
		Recipient:  req.taker,
		Amount:     order.AmountSell,
		Token:      order.TokenSell,
		Hashlock:   order.HashedSecret,
		Expiration: now.Add(f.cfg.MakerTimelock),
		Chain:      ownerChain,
		OrderRef:   order.ID,
	})
	if err != nil {
		return f.HandleError(err)
	}

	takerHTLC, err := f.cfg.HTLCs.Create(ctx, htlc.CreateRequest{
		Sender:     req.taker,
		Recipient:  order.Owner,
		Amount:     order.AmountBuy,
		Token:      order.TokenBuy,
		Hashlock:   order.HashedSecret,
		Expiration: now.Add(f.cfg.MakerTimelock / 2),
		Chain:      takerChain,
		OrderRef:   order.ID,
	})
	if err != nil {
		f.log.Warnf("Maker htlc %v locked without counterpart: %v",
			makerHTLC, err)

		return f.HandleError(err)
	}

	swp := &swapdb.Swap{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		MakerHTLC: makerHTLC,
		TakerHTLC: takerHTLC,
		Maker:     order.Owner,
		Taker:     req.taker,
		CreatedAt: now,
	}

	order.Status = swapdb.OrderMatched
	order.Taker = req.taker
	order.SwapID = swp.ID
	if err := f.cfg.Store.CreateSwap(ctx, swp, order); err != nil {
		return f.HandleError(err)
	}
	f.order, f.swap = order, swp

	f.log.Infof("Taken by %v in swap %v (maker htlc %v, taker htlc %v)",
		req.taker, swp.ID, makerHTLC, takerHTLC)

	return fsm.NoOp
}

// finalize returns the action that persists the order in a terminal status
// without side effects.
func (f *OrderFSM) finalize(status swapdb.OrderStatus) fsm.Action {
	return func(ctx context.Context, _ fsm.EventContext) fsm.EventType {
		order := f.order.Copy()
		order.Status = status

		if err := f.cfg.Store.UpdateOrder(ctx, order); err != nil {
			return f.HandleError(err)
		}
		f.order = order

		f.log.Infof("Order %v", status)

		return fsm.NoOp
	}
}
