package events

import (
	"context"

	"github.com/cuongbtq/media-gateway/internal/domain"
)

// Recorder persists job history
type Recorder interface {
	Record(ctx context.Context, event domain.Event) error
}

// LedgerSink writes events into the job history ledger
type LedgerSink struct {
	recorder Recorder
}

// NewLedgerSink creates a new LedgerSink
func NewLedgerSink(recorder Recorder) *LedgerSink {
	return &LedgerSink{recorder: recorder}
}

func (l *LedgerSink) Emit(ctx context.Context, event domain.Event) error {
	if event.Status() == "" {
		return nil
	}
	return l.recorder.Record(ctx, event)
}
