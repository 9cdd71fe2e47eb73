package vertexfsm

import (
	"context"
	"sync"
)

// Light-bulb fixtures shared by the machine tests.

type bulbState string

const (
	bulbOff bulbState = "Off"
	bulbOn  bulbState = "On"
)

type bulbEvent interface {
	Event
	isBulbEvent()
}

type powerToggled struct{ On bool }

func (powerToggled) EventType() EventType { return "PowerToggled" }
func (powerToggled) isBulbEvent()         {}

type reset struct{}

func (reset) EventType() EventType { return "Reset" }
func (reset) isBulbEvent()         {}

// sideEffects is a goroutine-safe log of observed effects.
type sideEffects struct {
	mu      sync.Mutex
	entries []string
}

func (s *sideEffects) add(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *sideEffects) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// name is a plain string event used by the generic engine tests.
type name string

func (n name) EventType() EventType { return EventType(n) }

func trigger[X any, E Event](next E) Action[X, E] {
	return func(_ context.Context, _ E, store *ExtendedStateStore[X]) (ActionResult[X, E], error) {
		return ActionResult[X, E]{ExtendedState: store.Read(), EventToTrigger: next}, nil
	}
}

func appendTask[S comparable](entry string) TransitionTask[S, []string, name] {
	return func(_ context.Context, _ name, store *ExtendedStateStore[[]string]) (TransitionTaskResult[S, []string], error) {
		return TransitionTaskResult[S, []string]{ExtendedState: append(append([]string(nil), store.Read()...), entry)}, nil
	}
}

func appendAction(entry string) Action[[]string, name] {
	return func(_ context.Context, _ name, store *ExtendedStateStore[[]string]) (ActionResult[[]string, name], error) {
		return ActionResult[[]string, name]{ExtendedState: append(append([]string(nil), store.Read()...), entry)}, nil
	}
}
