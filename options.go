package vertexfsm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Logger is used by machines created without WithLogger. It discards everything.
var Logger = slog.New(slog.DiscardHandler)

// TransitionRecord describes one committed move of a region's current-state pointer.
type TransitionRecord struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	EventType EventType `json:"eventType" yaml:"eventType"`
	// Depth is 1 for the external event and grows with each propagated follow-up.
	Depth     int       `json:"depth" yaml:"depth"`
	Version   uint64    `json:"version" yaml:"version"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Publisher receives a record for every transition. Publish runs inside the
// machine's critical section and must not block for long; failures are logged
// and never abort the transition.
type Publisher interface {
	Publish(ctx context.Context, record TransitionRecord) error
}

// Option applies configuration to a machine via the functional options pattern.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	publisher Publisher
	machineID string
}

func newOptions(opts []Option) options {
	o := options{
		logger: Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.machineID == "" {
		o.machineID = uuid.NewString()
	}
	return o
}

// WithLogger sets the logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPublisher configures the machine to report every transition.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithMachineID overrides the generated machine instance ID.
func WithMachineID(id string) Option {
	return func(o *options) {
		o.machineID = id
	}
}
