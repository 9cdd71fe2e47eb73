package vertexfsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ConcurrentStateMachine runs a Definition with several simultaneously active
// states ("regions") sharing one event stream and one extended-state store.
//
// Each ProcessEvent call fans the event out to every active region in parallel.
// A region without a matching transition is left alone; a region that matches
// runs the full transition protocol, follow-ups included, and is replaced in the
// active set by the state it ends on.
type ConcurrentStateMachine[S comparable, X any, E Event] struct {
	*engine[S, X, E]
	mu     sync.RWMutex
	active []*Vertex[S, X, E]
	sem    chan struct{}

	life context.Context
	stop context.CancelFunc
}

// NewConcurrent creates a multi-region machine. The starting state is always
// active; regions adds further initially active states.
func NewConcurrent[S comparable, X any, E Event](def *Definition[S, X, E], regions []S, opts ...Option) (*ConcurrentStateMachine[S, X, E], error) {
	e, err := newEngine(def, opts)
	if err != nil {
		return nil, err
	}
	m := &ConcurrentStateMachine[S, X, E]{
		engine: e,
		sem:    make(chan struct{}, 1),
	}
	m.active = []*Vertex[S, X, E]{def.vertices[def.startingState]}
	for _, s := range regions {
		v, ok := def.vertices[s]
		if !ok {
			return nil, configErrorf("region state '%v' has no state definition", s)
		}
		m.active = insertRegion(m.active, v)
	}
	m.life, m.stop = context.WithCancel(context.Background())
	return m, nil
}

func (m *ConcurrentStateMachine[S, X, E]) ID() string {
	return m.opts.machineID
}

// ActiveStates returns the active states in the order they became active.
func (m *ConcurrentStateMachine[S, X, E]) ActiveStates() []S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make([]S, len(m.active))
	for i, v := range m.active {
		states[i] = v.state
	}
	return states
}

// IsActive reports whether state is one of the active regions.
func (m *ConcurrentStateMachine[S, X, E]) IsActive(state S) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.active {
		if v.state == state {
			return true
		}
	}
	return false
}

func (m *ConcurrentStateMachine[S, X, E]) CurrentExtendedState() X {
	return m.store.Read()
}

func (m *ConcurrentStateMachine[S, X, E]) ExtendedStateVersion() uint64 {
	return m.store.Version()
}

type regionOutcome[S comparable, X any, E Event] struct {
	from    *Vertex[S, X, E]
	end     *Vertex[S, X, E]
	matched bool
	err     error
}

// ProcessEvent dispatches event to every active region and waits for all of
// them. A failing region does not cancel its siblings; every regional failure is
// returned, each wrapped in a RegionError. Regions that moved before failing keep
// the position they reached.
func (m *ConcurrentStateMachine[S, X, E]) ProcessEvent(ctx context.Context, event E) error {
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

	m.mu.RLock()
	snapshot := append([]*Vertex[S, X, E](nil), m.active...)
	m.mu.RUnlock()

	m.logger.Debug("processing event",
		slog.String("event", string(event.EventType())),
		slog.Int("regions", len(snapshot)))

	outcomes := make([]regionOutcome[S, X, E], len(snapshot))
	var g errgroup.Group
	if m.config.MaxParallelRegions > 0 {
		g.SetLimit(m.config.MaxParallelRegions)
	}
	for i, v := range snapshot {
		g.Go(func() error {
			r := &region[S, X, E]{vertex: v}
			matched, err := m.run(ctx, r, event)
			outcomes[i] = regionOutcome[S, X, E]{from: v, end: r.vertex, matched: matched, err: err}
			// Siblings keep running; failures are collected from outcomes.
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	anyMatched := false
	for _, o := range outcomes {
		if o.err != nil {
			result = multierror.Append(result, &RegionError{State: fmt.Sprint(o.from.state), Err: o.err})
		}
		anyMatched = anyMatched || o.matched
	}
	m.mu.Lock()
	m.active = mergeRegions(m.active, outcomes)
	m.mu.Unlock()

	if err := result.ErrorOrNil(); err != nil {
		if m.life.Err() != nil && errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}
		m.logger.Warn("event processing failed",
			slog.String("event", string(event.EventType())),
			slog.Any("error", err))
		return err
	}
	if !anyMatched && m.config.ThrowOnUnrecognizedEvent {
		return &UnrecognizedEventError{ActiveStates: stateNames(snapshot), EventType: event.EventType()}
	}
	if !anyMatched {
		m.logger.Debug("no region handled event", slog.String("event", string(event.EventType())))
	}
	return nil
}

// Stop cancels any in-flight ProcessEvent call and rejects later ones.
func (m *ConcurrentStateMachine[S, X, E]) Stop() error {
	m.stop()
	return nil
}

// mergeRegions applies every region's move as of the same snapshot: all moved
// regions leave the active set before any target is inserted. Regions that
// stayed put keep their position; targets follow in snapshot order.
func mergeRegions[S comparable, X any, E Event](active []*Vertex[S, X, E], outcomes []regionOutcome[S, X, E]) []*Vertex[S, X, E] {
	moved := make(map[*Vertex[S, X, E]]bool, len(outcomes))
	for _, o := range outcomes {
		if o.matched && o.end != o.from {
			moved[o.from] = true
		}
	}
	if len(moved) == 0 {
		return active
	}
	out := make([]*Vertex[S, X, E], 0, len(active))
	for _, v := range active {
		if !moved[v] {
			out = append(out, v)
		}
	}
	for _, o := range outcomes {
		if o.matched && o.end != o.from {
			out = insertRegion(out, o.end)
		}
	}
	return out
}

func stateNames[S comparable, X any, E Event](vertices []*Vertex[S, X, E]) []string {
	names := make([]string, len(vertices))
	for i, v := range vertices {
		names[i] = fmt.Sprint(v.state)
	}
	return names
}

func insertRegion[S comparable, X any, E Event](active []*Vertex[S, X, E], v *Vertex[S, X, E]) []*Vertex[S, X, E] {
	for _, a := range active {
		if a == v {
			return active
		}
	}
	return append(active, v)
}
