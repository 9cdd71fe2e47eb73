// Package extensibility adds cross-cutting behavior around a machine: callback
// decorators and external event sources.
package extensibility

import (
	"context"
	"log/slog"
	"time"

	"github.com/comalice/vertexfsm"
)

// LoggingTask wraps task so that every run is logged with its duration and error.
func LoggingTask[S comparable, X any, E vertexfsm.Event](logger *slog.Logger, name string, task vertexfsm.TransitionTask[S, X, E]) vertexfsm.TransitionTask[S, X, E] {
	return func(ctx context.Context, event E, store *vertexfsm.ExtendedStateStore[X]) (vertexfsm.TransitionTaskResult[S, X], error) {
		start := time.Now()
		res, err := task(ctx, event, store)
		attrs := []any{
			slog.String("task", name),
			slog.String("event", string(event.EventType())),
			slog.Duration("elapsed", time.Since(start)),
		}
		if res.NextState != nil {
			attrs = append(attrs, slog.Any("next", *res.NextState))
		}
		logResult(ctx, logger, "task", err, attrs)
		return res, err
	}
}

// LoggingAction wraps an arrival or exit action the same way LoggingTask wraps a task.
func LoggingAction[X any, E vertexfsm.Event](logger *slog.Logger, name string, action vertexfsm.Action[X, E]) vertexfsm.Action[X, E] {
	return func(ctx context.Context, event E, store *vertexfsm.ExtendedStateStore[X]) (vertexfsm.ActionResult[X, E], error) {
		start := time.Now()
		res, err := action(ctx, event, store)
		attrs := []any{
			slog.String("action", name),
			slog.String("event", string(event.EventType())),
			slog.Duration("elapsed", time.Since(start)),
		}
		if vertexfsm.HasEvent(res.EventToTrigger) {
			attrs = append(attrs, slog.String("follow_up", string(res.EventToTrigger.EventType())))
		}
		logResult(ctx, logger, "action", err, attrs)
		return res, err
	}
}

func logResult(ctx context.Context, logger *slog.Logger, kind string, err error, attrs []any) {
	if err != nil {
		logger.WarnContext(ctx, kind+" failed", append(attrs, slog.Any("error", err))...)
		return
	}
	logger.DebugContext(ctx, kind+" completed", attrs...)
}
