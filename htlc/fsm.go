package htlc

import (
	"context"
	"errors"

	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/lntypes"
)

// States.
var (
	// Locked is the state of an HTLC whose funds are locked behind the
	// hashlock and the timelock.
	Locked = fsm.StateType(swapdb.HTLCLocked)

	// Claimed is the terminal state of an HTLC claimed by revealing the
	// secret, or in aggregate by its partial fills.
	Claimed = fsm.StateType(swapdb.HTLCClaimed)

	// Refunded is the terminal state of an HTLC refunded to its sender
	// after expiry.
	Refunded = fsm.StateType(swapdb.HTLCRefunded)
)

// Events.
var (
	// OnCreate is sent when a new lock is accepted.
	OnCreate = fsm.EventType("OnCreate")

	// OnClaim is sent when the recipient presents the secret.
	OnClaim = fsm.EventType("OnClaim")

	// OnRefund is sent when the sender reclaims the funds.
	OnRefund = fsm.EventType("OnRefund")

	// OnAggregateClaim is sent by the partial-fill coordinator once every
	// segment of the HTLC has been completed.
	OnAggregateClaim = fsm.EventType("OnAggregateClaim")
)

// claimContext is the event context of OnClaim.
type claimContext struct {
	secret lntypes.Preimage
}

// refundContext is the event context of OnRefund.
type refundContext struct {
	caller string
}

// aggregateContext is the event context of OnAggregateClaim.
type aggregateContext struct {
	secrets []lntypes.Preimage

	// commit persists the claim together with the completing fill. If
	// nil the claim is written on its own.
	commit CommitFunc
}

// FSM is the state machine of a single HTLC. It is rehydrated from the
// persisted HTLC for every operation.
type FSM struct {
	*fsm.StateMachine

	cfg *Config

	htlc *swapdb.HTLC

	log *swap.PrefixLog
}

// NewFSM creates the state machine for a new HTLC that has not been
// persisted yet.
func NewFSM(cfg *Config, htlc *swapdb.HTLC) *FSM {
	return newFSM(cfg, htlc, fsm.EmptyState)
}

// NewFSMFromHTLC creates the state machine of a persisted HTLC.
func NewFSMFromHTLC(cfg *Config, htlc *swapdb.HTLC) *FSM {
	return newFSM(cfg, htlc, fsm.StateType(htlc.Status))
}

func newFSM(cfg *Config, htlc *swapdb.HTLC, state fsm.StateType) *FSM {
	htlcFsm := &FSM{
		cfg:  cfg,
		htlc: htlc,
		log: &swap.PrefixLog{
			Logger: log,
			ID:     htlc.ID,
		},
	}

	htlcFsm.StateMachine = fsm.NewStateMachineWithState(
		htlcFsm.GetHTLCStates(), state,
	)
	htlcFsm.ActionEntryFunc = htlcFsm.logTransition

	return htlcFsm
}

// GetHTLCStates returns the transition table of the HTLC state machine.
// Expired is not a state: it is derived from Locked and the clock.
func (f *FSM) GetHTLCStates() fsm.States {
	return fsm.States{
		fsm.EmptyState: fsm.State{
			Transitions: fsm.Transitions{
				OnCreate: Locked,
			},
		},
		Locked: fsm.State{
			Action: f.CreateAction,
			Transitions: fsm.Transitions{
				OnClaim:          Claimed,
				OnRefund:         Refunded,
				OnAggregateClaim: Claimed,
			},
		},
		Claimed: fsm.State{
			Action: f.ClaimAction,
		},
		Refunded: fsm.State{
			Action: f.RefundAction,
		},
	}
}

// HTLC returns a copy of the HTLC as last persisted by the state machine.
func (f *FSM) HTLC() *swapdb.HTLC {
	return f.htlc.Copy()
}

// logTransition logs every transition of the HTLC.
func (f *FSM) logTransition(notification fsm.Notification) {
	f.log.Debugf("%v -> %v on %v", notification.PreviousState,
		notification.NextState, notification.Event)
}

// CreateAction persists a new HTLC.
func (f *FSM) CreateAction(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	htlc := f.htlc.Copy()
	htlc.Status = swapdb.HTLCLocked

	if err := f.cfg.Store.CreateHTLC(ctx, htlc); err != nil {
		return f.HandleError(err)
	}
	f.htlc = htlc

	f.log.Infof("Locked %v %v on %v until %v", htlc.Amount, htlc.Token,
		htlc.Chain, htlc.Expiration)

	return fsm.NoOp
}

// partialOrder returns the partial order of the HTLC, or nil if it was not
// split.
func (f *FSM) partialOrder(ctx context.Context) (*swapdb.PartialOrder,
	error) {

	if f.cfg.Splits == nil {
		return nil, nil
	}

	order, err := f.cfg.Splits.FetchPartialOrder(ctx, f.htlc.ID)
	if errors.Is(err, swapdb.ErrNotFound) {
		return nil, nil
	}

	return order, err
}

// ClaimAction checks the claim material and marks the HTLC claimed. It
// serves both the single secret claim and the aggregate claim of a split
// HTLC. A single secret claim records the release of the full amount in the
// same transaction.
func (f *FSM) ClaimAction(ctx context.Context,
	eventCtx fsm.EventContext) fsm.EventType {

	htlc := f.htlc.Copy()
	now := f.cfg.Clock.Now().UTC()

	var (
		event   string
		release *swapdb.ReleaseIntent
		commit  CommitFunc
	)
	switch req := eventCtx.(type) {
	case *claimContext:
		order, err := f.partialOrder(ctx)
		if err != nil {
			return f.HandleError(err)
		}
		if order != nil {
			return f.HandleError(swap.Errorf(
				ErrSplit, "%v split into %d fills", htlc.ID,
				len(order.PartialFills),
			))
		}

		if !hashlock.Verify(req.secret, htlc.Hashlock) {
			return f.HandleError(ErrSecretMismatch)
		}
		if !now.Before(htlc.Expiration) {
			return f.HandleError(swap.Errorf(
				ErrExpired, "expired at %v", htlc.Expiration,
			))
		}

		secret := req.secret
		htlc.Secret = &secret
		event = string(OnClaim)

		release = swapdb.NewHTLCRelease(htlc, now)

	case *aggregateContext:
		f.log.Debugf("Aggregate claim with %d revealed secrets",
			len(req.secrets))

		event = string(OnAggregateClaim)
		commit = req.commit

	default:
		return f.HandleError(fsm.ErrInvalidContextType)
	}

	htlc.Status = swapdb.HTLCClaimed
	update := swapdb.HTLCUpdate{
		Time:   now,
		Status: htlc.Status,
		Event:  event,
	}

	var err error
	if commit != nil {
		err = commit(ctx, htlc, update)
	} else {
		err = f.cfg.Store.UpdateHTLC(ctx, htlc, update, release)
	}
	if err != nil {
		return f.HandleError(err)
	}
	f.htlc = htlc

	f.log.Infof("Claimed")

	return fsm.NoOp
}

// RefundAction checks the caller and the timelock and marks the HTLC
// refunded. A split HTLC is refunded for its unfilled remainder once no
// fill is pending.
func (f *FSM) RefundAction(ctx context.Context,
	eventCtx fsm.EventContext) fsm.EventType {

	req, ok := eventCtx.(*refundContext)
	if !ok {
		return f.HandleError(fsm.ErrInvalidContextType)
	}

	htlc := f.htlc.Copy()
	now := f.cfg.Clock.Now().UTC()

	if req.caller != htlc.Sender {
		return f.HandleError(ErrUnauthorized)
	}
	if now.Before(htlc.Expiration) {
		return f.HandleError(swap.Errorf(
			ErrNotYetExpired, "expires at %v", htlc.Expiration,
		))
	}

	amount := htlc.Amount
	order, err := f.partialOrder(ctx)
	if err != nil {
		return f.HandleError(err)
	}
	if order != nil {
		switch {
		case order.ReservedAmount > 0:
			return f.HandleError(swap.Errorf(
				ErrFillsPending, "%v of %v reserved",
				order.ReservedAmount, htlc.ID,
			))

		case order.RemainingAmount == 0:
			return f.HandleError(swap.Errorf(
				ErrSplit, "%v filled completely", htlc.ID,
			))
		}

		amount = order.RemainingAmount
	}

	htlc.Status = swapdb.HTLCRefunded
	err = f.cfg.Store.UpdateHTLC(ctx, htlc, swapdb.HTLCUpdate{
		Time:   now,
		Status: htlc.Status,
		Event:  string(OnRefund),
	}, nil)
	if err != nil {
		return f.HandleError(err)
	}
	f.htlc = htlc

	f.log.Infof("Refunded %v %v to %v", amount, htlc.Token, htlc.Sender)

	return fsm.NoOp
}
