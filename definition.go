package vertexfsm

import (
	"reflect"

	"github.com/hashicorp/go-multierror"
)

// Definition is the validated, immutable input of a state machine: its vertices,
// the optional wildcard vertex, the starting state and extended state, and config.
// It is produced once (usually by a Builder) and shared read-only by every machine
// created from it.
type Definition[S comparable, X any, E Event] struct {
	vertices      map[S]*Vertex[S, X, E]
	order         []S
	wildcard      *Vertex[S, X, E]
	startingState S
	startingExt   X
	config        StateMachineConfig
}

// NewDefinition assembles and validates a definition from already-built vertices.
// wildcard may be nil.
func NewDefinition[S comparable, X any, E Event](
	vertices []*Vertex[S, X, E],
	wildcard *Vertex[S, X, E],
	startingState S,
	startingExtendedState X,
	config StateMachineConfig,
) (*Definition[S, X, E], error) {
	d := &Definition[S, X, E]{
		vertices:      make(map[S]*Vertex[S, X, E], len(vertices)),
		wildcard:      wildcard,
		startingState: startingState,
		startingExt:   startingExtendedState,
		config:        config,
	}

	var result *multierror.Error
	for _, v := range vertices {
		if v == nil {
			result = multierror.Append(result, configErrorf("nil vertex"))
			continue
		}
		if v.wildcard {
			result = multierror.Append(result, configErrorf("wildcard vertex registered as a state"))
			continue
		}
		if _, exists := d.vertices[v.state]; exists {
			result = multierror.Append(result, configErrorf("state '%v' defined more than once", v.state))
			continue
		}
		d.vertices[v.state] = v
		d.order = append(d.order, v.state)
	}
	if d.wildcard == nil {
		d.wildcard = NewWildcardVertex[S, X, E]()
	}

	if err := d.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the cross-vertex invariants: the starting state has a vertex and
// every declared target names a defined state. It also rejects concrete event
// types whose every value is the zero value, since no such event could be
// dispatched.
func (d *Definition[S, X, E]) Validate() error {
	var result *multierror.Error
	if et := reflect.TypeFor[E](); et.Kind() != reflect.Interface && et.Size() == 0 {
		result = multierror.Append(result, configErrorf("event type %v has no non-zero value; use a sealed interface instead", et))
	}
	if _, ok := d.vertices[d.startingState]; !ok {
		result = multierror.Append(result, configErrorf("starting state '%v' has no state definition", d.startingState))
	}
	check := func(v *Vertex[S, X, E]) {
		for _, et := range v.order {
			next, ok := v.transitions[et].Next()
			if !ok {
				continue
			}
			if _, exists := d.vertices[next]; !exists {
				result = multierror.Append(result, configErrorf("%s: event '%s' targets undeclared state '%v'", v.name(), et, next))
			}
		}
	}
	for _, s := range d.order {
		check(d.vertices[s])
	}
	check(d.wildcard)
	if err := d.config.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// States returns the defined states in definition order.
func (d *Definition[S, X, E]) States() []S {
	return append([]S(nil), d.order...)
}

// Vertex returns the vertex of state.
func (d *Definition[S, X, E]) Vertex(state S) (*Vertex[S, X, E], bool) {
	v, ok := d.vertices[state]
	return v, ok
}

// Wildcard returns the wildcard vertex. It is never nil.
func (d *Definition[S, X, E]) Wildcard() *Vertex[S, X, E] {
	return d.wildcard
}

func (d *Definition[S, X, E]) StartingState() S {
	return d.startingState
}

func (d *Definition[S, X, E]) StartingExtendedState() X {
	return d.startingExt
}

func (d *Definition[S, X, E]) Config() StateMachineConfig {
	return d.config
}

// resolve finds the transition for eventType from vertex, falling back to the
// wildcard vertex.
func (d *Definition[S, X, E]) resolve(v *Vertex[S, X, E], eventType EventType) (StateTransition[S, X, E], bool) {
	if t, ok := v.transitions[eventType]; ok {
		return t, true
	}
	t, ok := d.wildcard.transitions[eventType]
	return t, ok
}

func (d *Definition[S, X, E]) arrivalOf(v *Vertex[S, X, E]) Action[X, E] {
	if v.arrival != nil {
		return v.arrival
	}
	return d.wildcard.arrival
}

func (d *Definition[S, X, E]) exitOf(v *Vertex[S, X, E]) Action[X, E] {
	if v.exit != nil {
		return v.exit
	}
	return d.wildcard.exit
}
