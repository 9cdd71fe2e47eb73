package vertexfsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// StateMachine runs a Definition with exactly one active state.
// It is safe for concurrent use: ProcessEvent calls are serialized, and the
// read accessors never block.
type StateMachine[S comparable, X any, E Event] struct {
	*engine[S, X, E]
	current atomic.Pointer[Vertex[S, X, E]]
	sem     chan struct{}

	life context.Context
	stop context.CancelFunc
}

// New creates a machine positioned on the definition's starting state with its
// starting extended state. No action runs on construction.
func New[S comparable, X any, E Event](def *Definition[S, X, E], opts ...Option) (*StateMachine[S, X, E], error) {
	e, err := newEngine(def, opts)
	if err != nil {
		return nil, err
	}
	m := &StateMachine[S, X, E]{
		engine: e,
		sem:    make(chan struct{}, 1),
	}
	m.current.Store(def.vertices[def.startingState])
	m.life, m.stop = context.WithCancel(context.Background())
	return m, nil
}

// ID returns the machine instance ID.
func (m *StateMachine[S, X, E]) ID() string {
	return m.opts.machineID
}

// CurrentState returns the active state.
func (m *StateMachine[S, X, E]) CurrentState() S {
	return m.current.Load().state
}

// CurrentExtendedState returns the latest committed extended state.
func (m *StateMachine[S, X, E]) CurrentExtendedState() X {
	return m.store.Read()
}

// ExtendedStateVersion returns the number of extended-state commits so far.
func (m *StateMachine[S, X, E]) ExtendedStateVersion() uint64 {
	return m.store.Version()
}

// CanHandle reports whether the active state or the wildcard vertex has a
// transition for event.
func (m *StateMachine[S, X, E]) CanHandle(event E) bool {
	_, ok := m.def.resolve(m.current.Load(), event.EventType())
	return ok
}

// ProcessEvent dispatches event, and every follow-up event it propagates, before
// returning. Callbacks must not call ProcessEvent on the same machine; they
// request follow-ups through ActionResult.EventToTrigger instead.
//
// Cancelling ctx or stopping the machine abandons the remaining work; the
// extended state keeps its last committed value.
func (m *StateMachine[S, X, E]) ProcessEvent(ctx context.Context, event E) error {
	if !HasEvent(event) {
		return ErrNilEvent
	}
	if m.life.Err() != nil {
		return ErrStopped
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.life.Done():
		return ErrStopped
	}
	defer func() { <-m.sem }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(m.life, cancel)()

	r := &region[S, X, E]{
		vertex: m.current.Load(),
		move:   func(v *Vertex[S, X, E]) { m.current.Store(v) },
	}
	m.logger.Debug("processing event",
		slog.String("event", string(event.EventType())),
		slog.Any("state", r.vertex.state))

	matched, err := m.run(ctx, r, event)
	if err != nil {
		if m.life.Err() != nil && errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}
		m.logger.Warn("event processing failed",
			slog.String("event", string(event.EventType())),
			slog.Any("error", err))
		return err
	}
	if !matched {
		return m.unrecognized(r.vertex, event)
	}
	return nil
}

// Stop cancels any in-flight ProcessEvent call and rejects later ones.
// Safe to call multiple times.
func (m *StateMachine[S, X, E]) Stop() error {
	m.stop()
	return nil
}
