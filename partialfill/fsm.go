package partialfill

import (
	"context"

	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
)

// States.
var (
	// Pending is the state of a fill whose external release has not been
	// confirmed yet. Its amount is reserved on the partial order.
	Pending = fsm.StateType(swapdb.FillPending)

	// Completed is the terminal state of a confirmed fill.
	Completed = fsm.StateType(swapdb.FillCompleted)

	// Failed is the terminal state of a fill that could not be executed.
	// Its segment may be retried by another resolver.
	Failed = fsm.StateType(swapdb.FillFailed)
)

// Events.
var (
	// OnCreate is sent when a fill is accepted.
	OnCreate = fsm.EventType("OnCreate")

	// OnComplete is sent with the confirmation of the external release.
	OnComplete = fsm.EventType("OnComplete")

	// OnFail is sent when the fill could not be executed.
	OnFail = fsm.EventType("OnFail")
)

// completeContext is the event context of OnComplete.
type completeContext struct {
	confirmation Confirmation

	// htlc is the parent HTLC as loaded under its lock.
	htlc *swapdb.HTLC
}

// failContext is the event context of OnFail.
type failContext struct {
	reason string
}

// FillFSM is the state machine of a single fill. Its actions update the fill
// and the partial order it belongs to together.
type FillFSM struct {
	*fsm.StateMachine

	cfg *Config

	fill *swapdb.PartialFill

	order *swapdb.PartialOrder

	log *swap.PrefixLog
}

// NewFillFSM creates the state machine of a fill. A fill that was not
// persisted yet starts in the empty state.
func NewFillFSM(cfg *Config, fill *swapdb.PartialFill,
	order *swapdb.PartialOrder) *FillFSM {

	fillFsm := &FillFSM{
		cfg:   cfg,
		fill:  fill,
		order: order,
		log: &swap.PrefixLog{
			Logger: log,
			ID:     fill.HTLCID,
		},
	}

	fillFsm.StateMachine = fsm.NewStateMachineWithState(
		fillFsm.GetFillStates(), fsm.StateType(fill.Status),
	)
	fillFsm.ActionEntryFunc = func(n fsm.Notification) {
		fillFsm.log.Debugf("Fill %v: %v -> %v on %v", fill.ID,
			n.PreviousState, n.NextState, n.Event)
	}

	return fillFsm
}

// GetFillStates returns the transition table of the fill state machine.
func (f *FillFSM) GetFillStates() fsm.States {
	return fsm.States{
		fsm.EmptyState: fsm.State{
			Transitions: fsm.Transitions{
				OnCreate: Pending,
			},
		},
		Pending: fsm.State{
			Action: f.CreateAction,
			Transitions: fsm.Transitions{
				OnComplete: Completed,
				OnFail:     Failed,
			},
		},
		Completed: fsm.State{
			Action: f.CompleteAction,
		},
		Failed: fsm.State{
			Action: f.FailAction,
		},
	}
}

// CreateAction persists a new fill, reserves its amount and advances the
// segment cursor.
func (f *FillFSM) CreateAction(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	fill := f.fill.Copy()
	fill.Status = swapdb.FillPending

	order := f.order.Copy()
	order.PartialFills = append(order.PartialFills, fill.ID)
	order.ReservedAmount += fill.Amount
	if order.Ordered() {
		order.PartialFillIndex = fill.SegmentIndex + 1
	} else {
		order.PartialFillIndex++
	}

	err := f.cfg.Store.CreateFill(ctx, &swapdb.FillTransition{
		Fill:  fill,
		Order: order,
	})
	if err != nil {
		return f.HandleError(err)
	}
	f.fill, f.order = fill, order

	f.log.Infof("Fill %v of segment %d for %v by %v", fill.ID,
		fill.SegmentIndex, fill.Amount, fill.Resolver)

	return fsm.NoOp
}

// CompleteAction commits the reserved amount, records the revealed secret
// and the release of the fill. If the fill completes the order, the parent
// HTLC is claimed in aggregate in the same transaction.
func (f *FillFSM) CompleteAction(ctx context.Context,
	eventCtx fsm.EventContext) fsm.EventType {

	req, ok := eventCtx.(*completeContext)
	if !ok || req.htlc == nil {
		return f.HandleError(fsm.ErrInvalidContextType)
	}

	now := f.cfg.Clock.Now().UTC()

	fill := f.fill.Copy()
	fill.Status = swapdb.FillCompleted
	fill.ConfirmationTx = req.confirmation.TxID
	fill.UpdatedAt = now

	order := f.order.Copy()
	order.ReservedAmount -= fill.Amount
	order.TotalFilled += fill.Amount
	order.RemainingAmount -= fill.Amount
	order.Revealed = append(order.Revealed, fill.Secret)

	transition := &swapdb.FillTransition{
		Fill:    fill,
		Order:   order,
		Release: swapdb.NewFillRelease(req.htlc, fill, now),
	}

	// With nothing remaining and nothing reserved every fill that is not
	// Failed is Completed.
	var err error
	if order.RemainingAmount == 0 && order.ReservedAmount == 0 {
		commit := func(ctx context.Context, htlc *swapdb.HTLC,
			update swapdb.HTLCUpdate) error {

			transition.Claimed = htlc
			transition.ClaimUpdate = update

			return f.cfg.Store.UpdateFill(ctx, transition)
		}

		_, err = f.cfg.HTLCs.ClaimAggregate(
			ctx, fill.HTLCID, order.Revealed, commit,
		)
	} else {
		err = f.cfg.Store.UpdateFill(ctx, transition)
	}
	if err != nil {
		return f.HandleError(err)
	}
	f.fill, f.order = fill, order

	f.log.Infof("Fill %v completed in %v, filled %v, remaining %v",
		fill.ID, fill.ConfirmationTx, order.TotalFilled,
		order.RemainingAmount)

	if transition.Claimed != nil {
		f.log.Infof("Claimed by %d fills", len(order.Revealed))
	}

	return fsm.NoOp
}

// FailAction returns the reserved amount to the pool and rewinds the cursor
// so the segment can be retried.
func (f *FillFSM) FailAction(ctx context.Context,
	eventCtx fsm.EventContext) fsm.EventType {

	req, ok := eventCtx.(*failContext)
	if !ok {
		return f.HandleError(fsm.ErrInvalidContextType)
	}

	fill := f.fill.Copy()
	fill.Status = swapdb.FillFailed
	fill.FailReason = req.reason
	fill.UpdatedAt = f.cfg.Clock.Now().UTC()

	order := f.order.Copy()
	order.ReservedAmount -= fill.Amount
	if order.Ordered() {
		order.PartialFillIndex = fill.SegmentIndex
	}

	err := f.cfg.Store.UpdateFill(ctx, &swapdb.FillTransition{
		Fill:  fill,
		Order: order,
	})
	if err != nil {
		return f.HandleError(err)
	}
	f.fill, f.order = fill, order

	f.log.Warnf("Fill %v of segment %d failed: %v", fill.ID,
		fill.SegmentIndex, req.reason)

	return fsm.NoOp
}
