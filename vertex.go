package vertexfsm

import (
	"context"
	"fmt"
	"reflect"
)

// EventType is the tag of one event variant. Transitions are matched on it.
type EventType string

// Event is implemented by every variant of a machine's event union.
//
// A machine's events are normally declared as a sealed interface embedding Event,
// with one struct type per variant:
//
//	type calcEvent interface {
//		vertexfsm.Event
//		isCalcEvent()
//	}
//
// When E is a concrete type rather than an interface, its zero value means "no
// event" (see HasEvent): ProcessEvent rejects it with ErrNilEvent, and a
// Definition over a type with no non-zero value, such as struct{}, fails to
// build. Empty variants are fine behind an interface event type.
type Event interface {
	EventType() EventType
}

// TransitionTaskResult is what a TransitionTask hands back to the engine.
// A nil NextState keeps the transition's declared target.
type TransitionTaskResult[S comparable, X any] struct {
	ExtendedState X
	NextState     *S
}

// TransitionTask runs when a matching event arrives, before the transition commits.
type TransitionTask[S comparable, X any, E Event] func(ctx context.Context, event E, store *ExtendedStateStore[X]) (TransitionTaskResult[S, X], error)

// ActionResult is what an arrival or exit action hands back to the engine.
// An empty EventToTrigger (see HasEvent) means no follow-up event.
type ActionResult[X any, E Event] struct {
	ExtendedState  X
	EventToTrigger E
}

// Action runs when a vertex becomes or ceases to be current.
type Action[X any, E Event] func(ctx context.Context, event E, store *ExtendedStateStore[X]) (ActionResult[X, E], error)

// Next returns a pointer to s, for use as TransitionTaskResult.NextState.
func Next[S comparable](s S) *S {
	return &s
}

// StateTransition pairs a declared target with an optional task. Both may be absent:
// a transition with neither only re-runs the arrival action of the current vertex.
type StateTransition[S comparable, X any, E Event] struct {
	next *S
	task TransitionTask[S, X, E]
}

// NewStateTransition creates an immutable transition. next may be nil.
func NewStateTransition[S comparable, X any, E Event](next *S, task TransitionTask[S, X, E]) StateTransition[S, X, E] {
	if next != nil {
		n := *next
		next = &n
	}
	return StateTransition[S, X, E]{next: next, task: task}
}

// Next returns the declared target and whether one is set.
func (t StateTransition[S, X, E]) Next() (S, bool) {
	if t.next == nil {
		var zero S
		return zero, false
	}
	return *t.next, true
}

// HasTask reports whether the transition carries a task.
func (t StateTransition[S, X, E]) HasTask() bool {
	return t.task != nil
}

// Vertex is a state together with its transition table and arrival/exit actions.
// The wildcard vertex has no state and applies to every state.
type Vertex[S comparable, X any, E Event] struct {
	state       S
	wildcard    bool
	transitions map[EventType]StateTransition[S, X, E]
	order       []EventType
	arrival     Action[X, E]
	exit        Action[X, E]
}

// NewVertex creates an empty vertex for state.
func NewVertex[S comparable, X any, E Event](state S) *Vertex[S, X, E] {
	return &Vertex[S, X, E]{
		state:       state,
		transitions: make(map[EventType]StateTransition[S, X, E]),
	}
}

// NewWildcardVertex creates an empty "apply to all states" vertex.
func NewWildcardVertex[S comparable, X any, E Event]() *Vertex[S, X, E] {
	v := NewVertex[S, X, E](*new(S))
	v.wildcard = true
	return v
}

// State returns the vertex's state. Meaningless for the wildcard vertex.
func (v *Vertex[S, X, E]) State() S {
	return v.state
}

func (v *Vertex[S, X, E]) IsWildcard() bool {
	return v.wildcard
}

// On registers a transition for eventType. Each event type may be registered once.
func (v *Vertex[S, X, E]) On(eventType EventType, transition StateTransition[S, X, E]) error {
	if eventType == "" {
		return configErrorf("empty event type in %s", v.name())
	}
	if _, exists := v.transitions[eventType]; exists {
		return configErrorf("event '%s' registered more than once in %s", eventType, v.name())
	}
	v.transitions[eventType] = transition
	v.order = append(v.order, eventType)
	return nil
}

// Transition returns the transition registered for eventType.
func (v *Vertex[S, X, E]) Transition(eventType EventType) (StateTransition[S, X, E], bool) {
	t, ok := v.transitions[eventType]
	return t, ok
}

// EventTypes returns the registered event types in registration order.
func (v *Vertex[S, X, E]) EventTypes() []EventType {
	return append([]EventType(nil), v.order...)
}

// AddArrival adds an arrival action. Repeated calls compose in registration order.
func (v *Vertex[S, X, E]) AddArrival(action Action[X, E]) {
	v.arrival = compose(v.arrival, action)
}

// AddExit adds an exit action. Repeated calls compose in registration order.
func (v *Vertex[S, X, E]) AddExit(action Action[X, E]) {
	v.exit = compose(v.exit, action)
}

func (v *Vertex[S, X, E]) HasArrival() bool { return v.arrival != nil }
func (v *Vertex[S, X, E]) HasExit() bool    { return v.exit != nil }

func (v *Vertex[S, X, E]) name() string {
	if v.wildcard {
		return "wildcard vertex"
	}
	return fmt.Sprintf("state '%v'", v.state)
}

// compose chains two actions. The second one reads the first one's extended state
// from a detached store; the last follow-up event requested wins.
func compose[X any, E Event](first, second Action[X, E]) Action[X, E] {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, event E, store *ExtendedStateStore[X]) (ActionResult[X, E], error) {
		r1, err := first(ctx, event, store)
		if err != nil {
			return r1, err
		}
		if err := ctx.Err(); err != nil {
			return r1, err
		}
		r2, err := second(ctx, event, detached(r1.ExtendedState))
		if err != nil {
			return r2, err
		}
		if !HasEvent(r2.EventToTrigger) {
			r2.EventToTrigger = r1.EventToTrigger
		}
		return r2, nil
	}
}

// HasEvent reports whether e holds an event. For interface event types a nil
// interface or a nil pointer means "none"; for concrete event types the zero
// value does.
func HasEvent[E Event](e E) bool {
	if reflect.TypeFor[E]().Kind() != reflect.Interface {
		return !reflect.ValueOf(&e).Elem().IsZero()
	}
	v := reflect.ValueOf(any(e))
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !v.IsNil()
	}
	return true
}
