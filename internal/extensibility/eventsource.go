package extensibility

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/comalice/vertexfsm"
)

// EventSource supplies external events to a machine.
type EventSource[E vertexfsm.Event] interface {
	Events() <-chan E
}

// Dispatcher is satisfied by both StateMachine and ConcurrentStateMachine.
type Dispatcher[E vertexfsm.Event] interface {
	ProcessEvent(ctx context.Context, event E) error
}

// ChannelEventSource is an EventSource backed by a Go channel.
// Feed it with Send or by writing to the channel directly.
type ChannelEventSource[E vertexfsm.Event] struct {
	ch chan E
}

// NewChannelEventSource creates a ChannelEventSource with the given channel.
// The channel should be buffered if backpressure handling is needed.
func NewChannelEventSource[E vertexfsm.Event](ch chan E) *ChannelEventSource[E] {
	return &ChannelEventSource[E]{ch: ch}
}

// Events returns the receive-only channel for events.
func (s *ChannelEventSource[E]) Events() <-chan E {
	return s.ch
}

// Send blocks until event is queued or ctx is done.
func (s *ChannelEventSource[E]) Send(ctx context.Context, event E) error {
	select {
	case s.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel, which ends any Pump reading from it.
func (s *ChannelEventSource[E]) Close() {
	close(s.ch)
}

// TickerEventSource emits the event returned by next every interval. Ticks are
// dropped while the buffer is full.
type TickerEventSource[E vertexfsm.Event] struct {
	ch     chan E
	next   func(time.Time) E
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// NewTickerEventSource starts a TickerEventSource.
func NewTickerEventSource[E vertexfsm.Event](d time.Duration, next func(time.Time) E) *TickerEventSource[E] {
	t := &TickerEventSource[E]{
		ch:     make(chan E, 10),
		next:   next,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TickerEventSource[E]) run() {
	defer close(t.done)
	for {
		select {
		case now := <-t.ticker.C:
			select {
			case t.ch <- t.next(now):
			default:
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Events returns the event channel. It is closed by Stop.
func (t *TickerEventSource[E]) Events() <-chan E {
	return t.ch
}

// Stop stops the ticker and closes the channel. Call it once.
func (t *TickerEventSource[E]) Stop() {
	close(t.stop)
	<-t.done
}

// Pump feeds every event from src into d until the source closes or ctx is done.
// Dispatch errors are passed to onError when it is non-nil, and logged otherwise;
// they never stop the pump. A stopped machine ends it with vertexfsm.ErrStopped.
func Pump[E vertexfsm.Event](ctx context.Context, src EventSource[E], d Dispatcher[E], logger *slog.Logger, onError func(E, error)) error {
	if logger == nil {
		logger = vertexfsm.Logger
	}
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			err := d.ProcessEvent(ctx, ev)
			switch {
			case err == nil:
			case errors.Is(err, vertexfsm.ErrStopped):
				return err
			case ctx.Err() != nil:
				return ctx.Err()
			case onError != nil:
				onError(ev, err)
			default:
				logger.WarnContext(ctx, "event dispatch failed",
					slog.String("event", string(ev.EventType())),
					slog.Any("error", err))
			}
		}
	}
}
