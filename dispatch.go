package vertexfsm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// engine carries what the single- and multi-region machines share: the
// definition, the one extended-state store and the ambient hooks. Only the store
// is mutated after construction.
type engine[S comparable, X any, E Event] struct {
	def    *Definition[S, X, E]
	store  *ExtendedStateStore[X]
	config StateMachineConfig
	opts   options
	logger *slog.Logger
}

func newEngine[S comparable, X any, E Event](def *Definition[S, X, E], opts []Option) (*engine[S, X, E], error) {
	if def == nil {
		return nil, configErrorf("nil definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &engine[S, X, E]{
		def:    def,
		store:  NewExtendedStateStore(def.startingExt),
		config: def.config,
		opts:   o,
		logger: o.logger.With(slog.String("machine_id", o.machineID)),
	}, nil
}

// region is the cursor of one dispatch sequence: the vertex it is on and how it
// reports a move.
type region[S comparable, X any, E Event] struct {
	vertex *Vertex[S, X, E]
	move   func(*Vertex[S, X, E])
}

// run dispatches event and every follow-up it propagates, in order, on r. It
// reports whether the external event matched a transition; an unmatched external
// event is left to the caller's policy, an unmatched follow-up is handled here.
func (e *engine[S, X, E]) run(ctx context.Context, r *region[S, X, E], event E) (bool, error) {
	limit := e.config.chainDepth()
	pending := []E{event}
	matched := false

	for depth := 1; len(pending) > 0; depth++ {
		ev := pending[0]
		pending = pending[1:]

		if depth > limit {
			e.logger.Warn("follow-up chain too deep",
				slog.Int("limit", limit),
				slog.String("event", string(ev.EventType())))
			return matched, &ChainDepthError{Limit: limit, EventType: ev.EventType()}
		}
		if err := ctx.Err(); err != nil {
			return matched, err
		}

		t, ok := e.def.resolve(r.vertex, ev.EventType())
		if !ok {
			if depth == 1 {
				return false, nil
			}
			if err := e.unrecognized(r.vertex, ev); err != nil {
				return matched, err
			}
			continue
		}
		if depth == 1 {
			matched = true
		}

		follow, err := e.step(ctx, r, t, ev, depth)
		if err != nil {
			return matched, err
		}
		if HasEvent(follow) {
			pending = append(pending, follow)
		}
	}
	return matched, nil
}

// unrecognized applies the unrecognized-event policy.
func (e *engine[S, X, E]) unrecognized(v *Vertex[S, X, E], ev E) error {
	if e.config.ThrowOnUnrecognizedEvent {
		return &UnrecognizedEventError{State: fmt.Sprint(v.state), EventType: ev.EventType()}
	}
	e.logger.Debug("no transition found, ignoring event",
		slog.Any("state", v.state),
		slog.String("event", string(ev.EventType())))
	return nil
}

// step runs one transition: task, commit, exit, move, arrival. It returns the
// follow-up event requested by the arrival action, if any.
func (e *engine[S, X, E]) step(ctx context.Context, r *region[S, X, E], t StateTransition[S, X, E], ev E, depth int) (E, error) {
	var none E
	from := r.vertex
	et := ev.EventType()

	nextState, hasNext := t.Next()
	if t.task != nil {
		res, err := transact(ctx, e.store, KindTask, from.state, et,
			func(store *ExtendedStateStore[X]) (TransitionTaskResult[S, X], error) {
				return t.task(ctx, ev, store)
			},
			func(tr TransitionTaskResult[S, X]) X { return tr.ExtendedState })
		if err != nil {
			return none, err
		}
		if res.NextState != nil {
			nextState, hasNext = *res.NextState, true
		}
	}
	if !hasNext {
		nextState = from.state
	}

	to, ok := e.def.vertices[nextState]
	if !ok {
		return none, &CallbackError{
			Kind:      KindTask,
			State:     fmt.Sprint(from.state),
			EventType: et,
			Err:       fmt.Errorf("next state '%v' has no state definition", nextState),
		}
	}

	if nextState != from.state {
		if exit := e.def.exitOf(from); exit != nil {
			if _, err := transact(ctx, e.store, KindExit, from.state, et, bind(ctx, ev, exit), actionState[X, E]); err != nil {
				return none, err
			}
		}
	}

	r.vertex = to
	if r.move != nil {
		r.move(to)
	}
	e.logger.Debug("transition",
		slog.Any("from", from.state),
		slog.Any("to", to.state),
		slog.String("event", string(et)),
		slog.Int("depth", depth))
	e.publish(ctx, TransitionRecord{
		MachineID: e.opts.machineID,
		From:      fmt.Sprint(from.state),
		To:        fmt.Sprint(to.state),
		EventType: et,
		Depth:     depth,
		Version:   e.store.Version(),
		Timestamp: time.Now(),
	})

	arrival := e.def.arrivalOf(to)
	if arrival == nil {
		return none, nil
	}
	res, err := transact(ctx, e.store, KindArrival, to.state, et, bind(ctx, ev, arrival), actionState[X, E])
	if err != nil {
		return none, err
	}
	return res.EventToTrigger, nil
}

func (e *engine[S, X, E]) publish(ctx context.Context, record TransitionRecord) {
	if e.opts.publisher == nil {
		return
	}
	if err := e.opts.publisher.Publish(ctx, record); err != nil {
		e.logger.Warn("publish transition failed",
			slog.String("from", record.From),
			slog.String("to", record.To),
			slog.Any("error", err))
	}
}

// transact runs fn against a view of store and commits the extended state it
// yields. Nothing is committed when fn fails or ctx is done by the time it
// returns; the view's commit slot is released either way.
func transact[S comparable, X, T any](ctx context.Context, store *ExtendedStateStore[X], kind CallbackKind, state S, et EventType,
	fn func(*ExtendedStateStore[X]) (T, error), extended func(T) X) (T, error) {
	v := store.view()
	defer v.release()
	res, err := invoke(kind, state, et, func() (T, error) { return fn(v) })
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	v.publish(extended(res))
	return res, nil
}

func bind[X any, E Event](ctx context.Context, ev E, action Action[X, E]) func(*ExtendedStateStore[X]) (ActionResult[X, E], error) {
	return func(store *ExtendedStateStore[X]) (ActionResult[X, E], error) {
		return action(ctx, ev, store)
	}
}

func actionState[X any, E Event](r ActionResult[X, E]) X {
	return r.ExtendedState
}

// invoke calls a user callback, turning both returned errors and panics into a
// CallbackError.
func invoke[S comparable, T any](kind CallbackKind, state S, et EventType, fn func() (T, error)) (res T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &CallbackError{Kind: kind, State: fmt.Sprint(state), EventType: et, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	res, err = fn()
	if err != nil {
		err = &CallbackError{Kind: kind, State: fmt.Sprint(state), EventType: et, Err: err}
	}
	return res, err
}
