package vertexfsm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every build-time error.
	ErrConfiguration = errors.New("vertexfsm: invalid state machine configuration")
	// ErrUnrecognizedEvent is matched by UnrecognizedEventError.
	ErrUnrecognizedEvent = errors.New("vertexfsm: unrecognized event")
	// ErrChainDepthExceeded is matched by ChainDepthError.
	ErrChainDepthExceeded = errors.New("vertexfsm: event propagation chain too deep")
	// ErrStopped is returned by ProcessEvent once the machine has been stopped.
	ErrStopped = errors.New("vertexfsm: state machine stopped")
	// ErrNilEvent is returned by ProcessEvent for an empty event (see HasEvent).
	ErrNilEvent = errors.New("vertexfsm: nil event")
)

// ConfigurationError describes one problem found while building a Definition.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// UnrecognizedEventError is returned when neither the active vertex nor the
// wildcard vertex has a transition for the event and the machine is configured
// to report it. A ConcurrentStateMachine sets ActiveStates instead of State.
type UnrecognizedEventError struct {
	State        string
	ActiveStates []string
	EventType    EventType
}

func (e *UnrecognizedEventError) Error() string {
	if len(e.ActiveStates) > 0 {
		return fmt.Sprintf("no transition from active states %s for event '%s'", strings.Join(e.ActiveStates, ", "), e.EventType)
	}
	return fmt.Sprintf("no transition from state '%s' for event '%s'", e.State, e.EventType)
}

func (e *UnrecognizedEventError) Is(target error) bool {
	return target == ErrUnrecognizedEvent
}

// CallbackKind names the user callback that failed.
type CallbackKind string

const (
	KindTask    CallbackKind = "transition task"
	KindArrival CallbackKind = "arrival action"
	KindExit    CallbackKind = "exit action"
)

// CallbackError wraps a failure returned (or panicked) by a task or action.
type CallbackError struct {
	Kind      CallbackKind
	State     string
	EventType EventType
	Err       error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s failed in state '%s' for event '%s': %v", e.Kind, e.State, e.EventType, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// ChainDepthError reports a follow-up chain longer than the configured limit.
type ChainDepthError struct {
	Limit     int
	EventType EventType
}

func (e *ChainDepthError) Error() string {
	return fmt.Sprintf("follow-up chain exceeded %d events at event '%s'", e.Limit, e.EventType)
}

func (e *ChainDepthError) Is(target error) bool {
	return target == ErrChainDepthExceeded
}

// RegionError wraps the failure of a single region of a ConcurrentStateMachine.
type RegionError struct {
	State string
	Err   error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region '%s': %v", e.State, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

func IsUnrecognizedEvent(err error) bool {
	var e *UnrecognizedEventError
	return errors.As(err, &e)
}

func IsCallbackError(err error) bool {
	var e *CallbackError
	return errors.As(err, &e)
}
