package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/media-gateway/internal/domain"
)

// Sink receives lifecycle events. Delivery is best effort.
type Sink interface {
	Emit(ctx context.Context, event domain.Event) error
}

// Noop discards every event
type Noop struct{}

func (Noop) Emit(context.Context, domain.Event) error { return nil }

// Fanout delivers each event to every sink and never fails.
// Sink errors are logged so a broken broker cannot fail a download.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

// NewFanout creates a Fanout; timeout bounds each sink call when positive.
func NewFanout(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
	}
}

// Emit stamps the event time if unset and forwards it
func (f *Fanout) Emit(ctx context.Context, event domain.Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	for _, sink := range f.sinks {
		f.emitOne(ctx, sink, event)
	}
	return nil
}

func (f *Fanout) emitOne(ctx context.Context, sink Sink, event domain.Event) {
	// Events outlive the request that caused them.
	ctx = context.WithoutCancel(ctx)
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if err := sink.Emit(ctx, event); err != nil {
		f.logger.Warn("Failed to emit event",
			slog.String("type", string(event.Type)),
			slog.String("job_id", event.JobID),
			slog.String("error", err.Error()),
		)
	}
}
