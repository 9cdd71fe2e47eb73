// Package benchmarks provides performance benchmarks for event throughput.
package benchmarks

import (
	"context"
	"testing"

	"github.com/comalice/vertexfsm"
)

// BenchmarkContendedCallers measures ProcessEvent with many goroutines
// competing for the same machine.
func BenchmarkContendedCallers(b *testing.B) {
	m, err := vertexfsm.New(GenFlatDefinition(2))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := m.ProcessEvent(ctx, tick); err != nil {
				b.Error(err)
				return
			}
		}
	})
	b.StopTimer()
	if got := m.CurrentExtendedState(); got != b.N {
		b.Errorf("lost updates: counted %d arrivals, want %d", got, b.N)
	}
}

// BenchmarkReadsDuringWrites measures the lock-free accessors while one
// goroutine keeps dispatching.
func BenchmarkReadsDuringWrites(b *testing.B) {
	m, err := vertexfsm.New(GenFlatDefinition(10))
	if err != nil {
		b.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			_ = m.ProcessEvent(ctx, tick)
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = m.CurrentState()
			_ = m.CurrentExtendedState()
		}
	})
	b.StopTimer()
	cancel()
	<-done
}
