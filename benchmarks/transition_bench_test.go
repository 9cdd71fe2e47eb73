// Package benchmarks provides performance benchmarks for transition resolution.
package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/comalice/vertexfsm"
)

func BenchmarkFlatTransition(b *testing.B) {
	for _, n := range []int{2, 100, 1000} {
		b.Run(fmt.Sprintf("states=%d", n), func(b *testing.B) {
			m, err := vertexfsm.New(GenFlatDefinition(n))
			if err != nil {
				b.Fatal(err)
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := m.ProcessEvent(ctx, tick); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			if got := m.CurrentExtendedState(); got != b.N {
				b.Errorf("counted %d arrivals, want %d", got, b.N)
			}
		})
	}
}

func BenchmarkWildcardFallback(b *testing.B) {
	m, err := vertexfsm.New(GenWildcardDefinition(100))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.ProcessEvent(ctx, tick); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFollowUpChain(b *testing.B) {
	for _, depth := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			m, err := vertexfsm.New(GenChainDefinition(depth))
			if err != nil {
				b.Fatal(err)
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := m.ProcessEvent(ctx, tick); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			if m.CurrentState() != "idle" {
				b.Errorf("chain ended in %s", m.CurrentState())
			}
		})
	}
}

func BenchmarkRegions(b *testing.B) {
	for _, n := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("regions=%d", n), func(b *testing.B) {
			def, active := GenRegionsDefinition(n)
			m, err := vertexfsm.NewConcurrent(def, active)
			if err != nil {
				b.Fatal(err)
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := m.ProcessEvent(ctx, tick); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			if got := len(m.ActiveStates()); got != n {
				b.Errorf("%d regions active, want %d", got, n)
			}
		})
	}
}
