// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"context"
	"fmt"

	"github.com/comalice/vertexfsm"
)

// Tick is the only event the generated machines react to.
type Tick string

func (t Tick) EventType() vertexfsm.EventType { return vertexfsm.EventType(t) }

const tick Tick = "tick"

func count(_ context.Context, _ Tick, store *vertexfsm.ExtendedStateStore[int]) (vertexfsm.ActionResult[int, Tick], error) {
	return vertexfsm.ActionResult[int, Tick]{ExtendedState: store.Read() + 1}, nil
}

// GenFlatDefinition creates a ring of n states cycling via "tick" events.
// Every state counts its arrivals in the extended state.
func GenFlatDefinition(n int) *vertexfsm.Definition[string, int, Tick] {
	if n < 1 {
		n = 1
	}
	b := vertexfsm.NewBuilder[string, int, Tick]().
		StartingState("s0").
		StartingExtendedState(0)
	for i := 0; i < n; i++ {
		b.State(fmt.Sprintf("s%d", i)).
			On("tick", fmt.Sprintf("s%d", (i+1)%n), nil).
			UponArrival(count)
	}
	return mustBuild(b)
}

// GenWildcardDefinition creates n states without transitions of their own; a
// single wildcard "tick" transition moves every state back to s0.
func GenWildcardDefinition(n int) *vertexfsm.Definition[string, int, Tick] {
	if n < 1 {
		n = 1
	}
	b := vertexfsm.NewBuilder[string, int, Tick]().
		StartingState("s0").
		StartingExtendedState(0)
	for i := 0; i < n; i++ {
		b.State(fmt.Sprintf("s%d", i))
	}
	b.ApplyToAll().On("tick", "s0", nil).UponArrival(count)
	return mustBuild(b)
}

// GenChainDefinition creates a pipeline of depth stages: one external "tick"
// walks through every stage via propagated follow-ups and ends back at the start.
func GenChainDefinition(depth int) *vertexfsm.Definition[string, int, Tick] {
	if depth < 1 {
		depth = 1
	}
	b := vertexfsm.NewBuilder[string, int, Tick]().
		StartingState("idle").
		StartingExtendedState(0).
		WithConfig(vertexfsm.StateMachineConfig{MaxChainDepth: depth + 2})
	b.State("idle").On("tick", "stage0", nil)
	for i := 0; i < depth; i++ {
		next := fmt.Sprintf("stage%d", i+1)
		if i == depth-1 {
			next = "idle"
		}
		b.State(fmt.Sprintf("stage%d", i)).UponArrival(count).Then("next", next)
	}
	return mustBuild(b)
}

// GenRegionsDefinition creates n independent two-state regions r<i>a <-> r<i>b.
// It returns the definition and the initially active states.
func GenRegionsDefinition(n int) (*vertexfsm.Definition[string, int, Tick], []string) {
	if n < 1 {
		n = 1
	}
	b := vertexfsm.NewBuilder[string, int, Tick]().
		StartingState("r0a").
		StartingExtendedState(0)
	var active []string
	for i := 0; i < n; i++ {
		a, z := fmt.Sprintf("r%da", i), fmt.Sprintf("r%db", i)
		b.State(a).On("tick", z, nil)
		b.State(z).On("tick", a, nil)
		active = append(active, a)
	}
	return mustBuild(b), active
}

func mustBuild(b *vertexfsm.Builder[string, int, Tick]) *vertexfsm.Definition[string, int, Tick] {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
