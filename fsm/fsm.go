package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrEventRejected is the error returned when the state machine cannot
	// process an event in the state that it is in.
	ErrEventRejected = errors.New("event rejected")

	// ErrActionFailed is returned when an action signals an error without
	// setting LastActionError.
	ErrActionFailed = errors.New("action failed")

	// ErrInvalidContextType is returned when an action receives an event
	// context of an unexpected type.
	ErrInvalidContextType = errors.New("invalid context")
)

const (
	// EmptyState represents the default state of the system. Entities
	// that have not been created yet are in this state.
	EmptyState StateType = ""

	// NoOp represents a no-op event.
	NoOp EventType = "NoOp"

	// OnError can be used when an action returns a generic error.
	OnError EventType = "OnError"
)

// StateType represents an extensible state type in the state machine.
type StateType string

// EventType represents an extensible event type in the state machine.
type EventType string

// EventContext represents the context to be passed to the action
// implementation.
type EventContext interface{}

// Action represents the action to be executed in a given state.
type Action func(ctx context.Context, eventCtx EventContext) EventType

// Transitions represents a mapping of events and states.
type Transitions map[EventType]StateType

// State binds a state with an action and a set of events it can handle. A
// state without transitions is terminal.
type State struct {
	// Action is the action to be executed in the state.
	Action Action

	// Transitions is a mapping of events and states.
	Transitions Transitions
}

// States represents a mapping of states and their implementations.
type States map[StateType]State

// Notification describes a transition. It is handed to the machine's
// ActionEntryFunc before the action of the next state runs.
type Notification struct {
	// PreviousState is the state the state machine was in before the event
	// was processed.
	PreviousState StateType

	// NextState is the state the state machine is in after the event was
	// processed.
	NextState StateType

	// Event is the event that was processed.
	Event EventType

	// LastActionError is the error of the last action, if any.
	LastActionError error
}

// StateMachine represents the state machine.
type StateMachine struct {
	// States is the transition table of the state machine.
	States States

	// ActionEntryFunc is a function that is called before an action is
	// executed.
	ActionEntryFunc func(Notification)

	// mutex ensures that only 1 event is processed by the state machine at
	// any given time.
	mutex sync.Mutex

	// LastActionError is an error set by the last action executed.
	LastActionError error

	// previous represents the previous state.
	previous StateType

	// current represents the current state.
	current StateType
}

// NewStateMachine creates a new state machine in the empty state.
func NewStateMachine(states States) *StateMachine {
	return NewStateMachineWithState(states, EmptyState)
}

// NewStateMachineWithState creates a new state machine and sets the initial
// state. This is used to rehydrate a state machine from a persisted entity.
func NewStateMachineWithState(states States,
	current StateType) *StateMachine {

	return &StateMachine{
		States:  states,
		current: current,
	}
}

// getNextState returns the next state for the event given the machine's current
// state, or an error if the event can't be handled in the given state.
func (s *StateMachine) getNextState(event EventType) (State, error) {
	var (
		state State
		ok    bool
	)

	stateMap := s.States

	if state, ok = stateMap[s.current]; !ok {
		return State{}, NewErrConfigError("current state not found")
	}

	if state.Transitions == nil {
		return State{}, fmt.Errorf("%w: %v is terminal",
			ErrEventRejected, s.current)
	}

	var next StateType
	if next, ok = state.Transitions[event]; !ok {
		return State{}, fmt.Errorf("%w: %v not allowed in state %v",
			ErrEventRejected, event, s.current)
	}

	// Identify the state definition for the next state.
	state, ok = stateMap[next]
	if !ok {
		return State{}, NewErrConfigError("next state not found")
	}

	if state.Action == nil {
		return State{}, NewErrConfigError("next state has no action")
	}

	// Transition over to the next state.
	s.previous = s.current
	s.current = next

	return state, nil
}

// SendEvent sends an event to the state machine. It returns an error if the
// event cannot be processed in the current state. If an action fails and the
// state it ran in has no OnError transition, the machine is rolled back to
// the state it was in before the event was sent and the action's error is
// returned. This keeps a failed action from leaving a half applied
// transition behind.
func (s *StateMachine) SendEvent(ctx context.Context, event EventType,
	eventCtx EventContext) error {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.States == nil {
		return NewErrConfigError("state machine config is nil")
	}

	var (
		origin     = s.current
		originPrev = s.previous
	)

	s.LastActionError = nil

	for {
		// Determine the next state for the event given the machine's
		// current state.
		state, err := s.getNextState(event)
		if err != nil {
			return err
		}

		notification := Notification{
			PreviousState:   s.previous,
			NextState:       s.current,
			Event:           event,
			LastActionError: s.LastActionError,
		}

		// Execute the state machines ActionEntryFunc.
		if s.ActionEntryFunc != nil {
			s.ActionEntryFunc(notification)
		}

		// Execute the next state's action and loop over again if the
		// event returned is not a no-op.
		nextEvent := state.Action(ctx, eventCtx)

		// A failed action without an error transition leaves the
		// machine untouched.
		if nextEvent == OnError {
			if _, ok := state.Transitions[OnError]; !ok {
				actionErr := s.LastActionError
				if actionErr == nil {
					actionErr = ErrActionFailed
				}
				s.current, s.previous = origin, originPrev

				return actionErr
			}
		}

		// If the next event is a no-op, we're done.
		if nextEvent == NoOp {
			return nil
		}

		event = nextEvent
	}
}

// CurrentState returns the state the machine is in.
func (s *StateMachine) CurrentState() StateType {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.current
}

// Can returns true if the event is accepted in the current state.
func (s *StateMachine) Can(event EventType) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, ok := s.States[s.current]
	if !ok {
		return false
	}

	_, ok = state.Transitions[event]

	return ok
}

// IsTerminal returns true if the given state of the machine has no outgoing
// transitions.
func (s States) IsTerminal(state StateType) bool {
	return len(s[state].Transitions) == 0
}

// HandleError is a helper function that can be used by actions to handle
// errors.
func (s *StateMachine) HandleError(err error) EventType {
	log.Debugf("StateMachine action error: %v", err)
	s.LastActionError = err

	return OnError
}

// NoOpAction is a no-op action that can be used by states that don't need to
// execute any action.
func NoOpAction(_ context.Context, _ EventContext) EventType {
	return NoOp
}

// ErrConfigError is an error returned when the state machine is misconfigured.
type ErrConfigError error

// NewErrConfigError creates a new ErrConfigError.
func NewErrConfigError(msg string) ErrConfigError {
	return (ErrConfigError)(fmt.Errorf("config error: %s", msg))
}
