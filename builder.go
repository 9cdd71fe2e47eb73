package vertexfsm

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// Builder provides a fluent API for declaring a state machine. It only produces a
// Definition; every "only once" rule is checked and reported together by Build.
type Builder[S comparable, X any, E Event] struct {
	vertices []*Vertex[S, X, E]
	seen     map[S]bool
	wildcard *Vertex[S, X, E]

	startingState    S
	hasStartingState bool
	startingExt      X
	hasStartingExt   bool
	config           StateMachineConfig

	errs *multierror.Error
}

// StateBuilder configures one vertex.
type StateBuilder[S comparable, X any, E Event] struct {
	b      *Builder[S, X, E]
	vertex *Vertex[S, X, E]
}

// NewBuilder creates an empty builder.
func NewBuilder[S comparable, X any, E Event]() *Builder[S, X, E] {
	return &Builder[S, X, E]{
		seen: make(map[S]bool),
	}
}

// StartingState sets the state the machine starts in. It may be set once.
func (b *Builder[S, X, E]) StartingState(state S) *Builder[S, X, E] {
	if b.hasStartingState {
		b.fail(configErrorf("state machine can only have one starting state"))
		return b
	}
	b.startingState = state
	b.hasStartingState = true
	return b
}

// StartingExtendedState sets the initial extended state. It may be set once.
func (b *Builder[S, X, E]) StartingExtendedState(value X) *Builder[S, X, E] {
	if b.hasStartingExt {
		b.fail(configErrorf("state machine can only have one starting extended state"))
		return b
	}
	b.startingExt = value
	b.hasStartingExt = true
	return b
}

// WithConfig sets the runtime policy.
func (b *Builder[S, X, E]) WithConfig(config StateMachineConfig) *Builder[S, X, E] {
	b.config = config
	return b
}

// State declares a state. Each state may be declared once.
func (b *Builder[S, X, E]) State(state S) *StateBuilder[S, X, E] {
	v := NewVertex[S, X, E](state)
	if b.seen[state] {
		b.fail(configErrorf("state '%v' defined more than once", state))
		// Keep the chain usable; the detached vertex is never built.
		return &StateBuilder[S, X, E]{b: b, vertex: v}
	}
	b.seen[state] = true
	b.vertices = append(b.vertices, v)
	return &StateBuilder[S, X, E]{b: b, vertex: v}
}

// ApplyToAll declares the wildcard vertex, consulted whenever a state has no
// transition, arrival or exit action of its own. It may be declared once.
func (b *Builder[S, X, E]) ApplyToAll() *StateBuilder[S, X, E] {
	v := NewWildcardVertex[S, X, E]()
	if b.wildcard != nil {
		b.fail(configErrorf("apply-to-all definitions can only be declared once"))
		return &StateBuilder[S, X, E]{b: b, vertex: v}
	}
	b.wildcard = v
	return &StateBuilder[S, X, E]{b: b, vertex: v}
}

// Build validates the declarations and returns the immutable Definition.
func (b *Builder[S, X, E]) Build() (*Definition[S, X, E], error) {
	errs := b.errs
	if !b.hasStartingState {
		errs = multierror.Append(errs, configErrorf("no starting state defined"))
	}
	if !b.hasStartingExt {
		errs = multierror.Append(errs, configErrorf("no starting extended state defined"))
	}
	if errs.ErrorOrNil() != nil {
		if b.hasStartingState {
			// Surface target/starting-state problems in the same report.
			if _, err := NewDefinition(b.vertices, b.wildcard, b.startingState, b.startingExt, b.config); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		return nil, errs
	}
	return NewDefinition(b.vertices, b.wildcard, b.startingState, b.startingExt, b.config)
}

func (b *Builder[S, X, E]) fail(err error) {
	b.errs = multierror.Append(b.errs, err)
}

// On adds a transition to target when eventType arrives. task may be nil. A
// non-nil NextState returned by the task takes precedence over target.
func (sb *StateBuilder[S, X, E]) On(eventType EventType, target S, task TransitionTask[S, X, E]) *StateBuilder[S, X, E] {
	return sb.on(eventType, &target, task)
}

// OnStay adds a transition with no declared target: the machine stays in its
// current state unless the task names a next state.
func (sb *StateBuilder[S, X, E]) OnStay(eventType EventType, task TransitionTask[S, X, E]) *StateBuilder[S, X, E] {
	return sb.on(eventType, nil, task)
}

func (sb *StateBuilder[S, X, E]) on(eventType EventType, target *S, task TransitionTask[S, X, E]) *StateBuilder[S, X, E] {
	if err := sb.vertex.On(eventType, NewStateTransition(target, task)); err != nil {
		sb.b.fail(err)
	}
	return sb
}

// UponArrival adds an arrival action. Repeated calls compose.
func (sb *StateBuilder[S, X, E]) UponArrival(action Action[X, E]) *StateBuilder[S, X, E] {
	if action == nil {
		sb.b.fail(configErrorf("nil arrival action in %s", sb.vertex.name()))
		return sb
	}
	sb.vertex.AddArrival(action)
	return sb
}

// UponExit adds an exit action. Repeated calls compose.
func (sb *StateBuilder[S, X, E]) UponExit(action Action[X, E]) *StateBuilder[S, X, E] {
	if action == nil {
		sb.b.fail(configErrorf("nil exit action in %s", sb.vertex.name()))
		return sb
	}
	sb.vertex.AddExit(action)
	return sb
}

// Then wires a pipeline step: arriving in this state propagates event (after the
// arrival actions registered so far), and event moves the machine on to next.
func (sb *StateBuilder[S, X, E]) Then(event E, next S) *StateBuilder[S, X, E] {
	sb.UponArrival(func(_ context.Context, _ E, store *ExtendedStateStore[X]) (ActionResult[X, E], error) {
		return ActionResult[X, E]{ExtendedState: store.Read(), EventToTrigger: event}, nil
	})
	return sb.On(event.EventType(), next, nil)
}

// Done returns the parent builder.
func (sb *StateBuilder[S, X, E]) Done() *Builder[S, X, E] {
	return sb.b
}
