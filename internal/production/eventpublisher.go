package production

import (
	"context"
	"sync/atomic"

	"github.com/comalice/vertexfsm"
)

// ChannelPublisher forwards transition records to a Go channel.
// Publish never blocks: when the channel is full the record is dropped and counted.
type ChannelPublisher struct {
	ch      chan<- vertexfsm.TransitionRecord
	dropped atomic.Uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- vertexfsm.TransitionRecord) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, record vertexfsm.TransitionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.ch <- record:
	default:
		p.dropped.Add(1)
	}
	return nil
}

// Dropped returns how many records were discarded because the channel was full.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the output channel. The machine must not publish afterwards.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}

// MultiPublisher fans a record out to several publishers. Every publisher is
// called; the first error is returned.
type MultiPublisher []vertexfsm.Publisher

func (m MultiPublisher) Publish(ctx context.Context, record vertexfsm.TransitionRecord) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}
