// Package testutil holds helpers shared by the tests of machines built on
// vertexfsm.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/comalice/vertexfsm"
)

// Recorder is a Publisher that keeps every record it receives.
type Recorder struct {
	mu      sync.Mutex
	records []vertexfsm.TransitionRecord
}

func (r *Recorder) Publish(_ context.Context, record vertexfsm.TransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// Records returns a copy of the records received so far.
func (r *Recorder) Records() []vertexfsm.TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]vertexfsm.TransitionRecord(nil), r.records...)
}

// Visited returns the target state of every record, in order.
func (r *Recorder) Visited() []string {
	records := r.Records()
	visited := make([]string, len(records))
	for i, rec := range records {
		visited[i] = rec.To
	}
	return visited
}

// Dispatcher is satisfied by both machine kinds.
type Dispatcher[E vertexfsm.Event] interface {
	ProcessEvent(ctx context.Context, event E) error
}

// Dispatch processes events in order and stops at the first failure, naming the
// event that failed.
func Dispatch[E vertexfsm.Event](ctx context.Context, d Dispatcher[E], events ...E) error {
	for i, ev := range events {
		if err := d.ProcessEvent(ctx, ev); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.EventType(), err)
		}
	}
	return nil
}

// WaitForState polls current until it returns want or timeout elapses.
func WaitForState[S comparable](current func() S, want S, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		got := current()
		if got == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("state %v not reached within %v, still in %v", want, timeout, got)
		}
		time.Sleep(time.Millisecond)
	}
}
