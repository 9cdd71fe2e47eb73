package production

import (
	"context"
	"testing"

	"github.com/comalice/vertexfsm"
)

type testEvent string

func (e testEvent) EventType() vertexfsm.EventType { return vertexfsm.EventType(e) }

func noopArrival(_ context.Context, _ testEvent, store *vertexfsm.ExtendedStateStore[int]) (vertexfsm.ActionResult[int, testEvent], error) {
	return vertexfsm.ActionResult[int, testEvent]{ExtendedState: store.Read() + 1}, nil
}

// twoStateDefinition: s1 --e1--> s2, s2 stays on poke, reset from anywhere goes to s1.
func twoStateDefinition(t *testing.T) *vertexfsm.Definition[string, int, testEvent] {
	t.Helper()
	def, err := vertexfsm.NewBuilder[string, int, testEvent]().
		StartingState("s1").
		StartingExtendedState(0).
		State("s1").On("e1", "s2", nil).Done().
		State("s2").OnStay("poke", nil).UponArrival(noopArrival).Done().
		ApplyToAll().On("reset", "s1", nil).Done().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return def
}
