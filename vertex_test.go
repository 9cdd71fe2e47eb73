package vertexfsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertex_On(t *testing.T) {
	v := NewVertex[string, int, name]("a")
	require.NoError(t, v.On("go", NewStateTransition[string, int, name](Next("b"), nil)))
	require.NoError(t, v.On("stay", NewStateTransition[string, int, name](nil, nil)))

	err := v.On("go", NewStateTransition[string, int, name](Next("c"), nil))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "event 'go' registered more than once in state 'a'")

	assert.ErrorIs(t, v.On("", NewStateTransition[string, int, name](nil, nil)), ErrConfiguration)

	tr, ok := v.Transition("go")
	require.True(t, ok)
	next, ok := tr.Next()
	assert.True(t, ok)
	assert.Equal(t, "b", next, "first registration wins")

	tr, _ = v.Transition("stay")
	_, ok = tr.Next()
	assert.False(t, ok)
	assert.False(t, tr.HasTask())

	assert.Equal(t, []EventType{"go", "stay"}, v.EventTypes())
}

func TestStateTransition_CopiesTarget(t *testing.T) {
	target := "b"
	tr := NewStateTransition[string, int, name](&target, nil)
	target = "mutated"

	next, _ := tr.Next()
	assert.Equal(t, "b", next)
}

func TestWildcardVertex(t *testing.T) {
	w := NewWildcardVertex[string, int, name]()
	assert.True(t, w.IsWildcard())
	assert.Equal(t, "wildcard vertex", w.name())
	assert.False(t, NewVertex[string, int, name]("x").IsWildcard())
}

func TestComposedActions(t *testing.T) {
	v := NewVertex[string, []string, name]("a")
	assert.False(t, v.HasArrival())

	v.AddArrival(appendAction("first"))
	v.AddArrival(func(_ context.Context, _ name, store *ExtendedStateStore[[]string]) (ActionResult[[]string, name], error) {
		// Sees the first action's result.
		return ActionResult[[]string, name]{ExtendedState: append(store.Read(), "second"), EventToTrigger: "from-second"}, nil
	})
	v.AddArrival(appendAction("third"))
	require.True(t, v.HasArrival())

	store := NewExtendedStateStore([]string{})
	res, err := v.arrival(context.Background(), "go", store)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, res.ExtendedState)
	assert.Equal(t, name("from-second"), res.EventToTrigger, "last requested follow-up wins")
	assert.Empty(t, store.Read(), "composition does not commit")
}

func TestComposedActions_StopAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	v := NewVertex[string, int, name]("a")
	v.AddExit(func(context.Context, name, *ExtendedStateStore[int]) (ActionResult[int, name], error) {
		calls++
		return ActionResult[int, name]{}, boom
	})
	v.AddExit(func(context.Context, name, *ExtendedStateStore[int]) (ActionResult[int, name], error) {
		calls++
		return ActionResult[int, name]{}, nil
	})

	_, err := v.exit(context.Background(), "go", NewExtendedStateStore(0))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestHasEvent(t *testing.T) {
	assert.False(t, HasEvent[bulbEvent](nil))
	assert.True(t, HasEvent[bulbEvent](reset{}), "zero-size struct variant is a real event")
	assert.True(t, HasEvent[bulbEvent](powerToggled{}))

	var nilPtr *powerToggled
	assert.False(t, HasEvent[Event](nilPtr))
	assert.False(t, HasEvent[*powerToggled](nil))
	assert.True(t, HasEvent(&powerToggled{}))

	assert.False(t, HasEvent(name("")))
	assert.True(t, HasEvent(name("go")))
}
