package retention

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/cuongbtq/media-gateway/internal/events"
	"github.com/cuongbtq/media-gateway/internal/metrics"
)

// State of the sweeper
type State int32

const (
	StateIdle State = iota
	StateSweeping
)

func (s State) String() string {
	if s == StateSweeping {
		return "sweeping"
	}
	return "idle"
}

// Store is the part of the storage layer the sweeper needs
type Store interface {
	ScanAll() iter.Seq[domain.Entry]
	Remove(filename string) error
}

// Config holds sweeper configuration
type Config struct {
	Logger   *slog.Logger
	Store    Store
	Events   events.Sink
	Metrics  metrics.Metrics
	MaxAge   time.Duration
	Interval time.Duration
	// SweepOnStart runs one sweep before the first tick
	SweepOnStart bool
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

// Report summarizes one sweep
type Report struct {
	Scanned int
	Removed int
	Failed  int
}

// Sweeper periodically deletes artifacts older than MaxAge
type Sweeper struct {
	logger       *slog.Logger
	store        Store
	events       events.Sink
	metrics      metrics.Metrics
	maxAge       time.Duration
	interval     time.Duration
	sweepOnStart bool
	now          func() time.Time
	state        atomic.Int32
}

// NewSweeper creates a sweeper; zero durations take the package defaults
func NewSweeper(cfg *Config) *Sweeper {
	s := &Sweeper{
		logger:       cfg.Logger,
		store:        cfg.Store,
		events:       cfg.Events,
		metrics:      cfg.Metrics,
		maxAge:       cfg.MaxAge,
		interval:     cfg.Interval,
		sweepOnStart: cfg.SweepOnStart,
		now:          cfg.Now,
	}
	if s.maxAge <= 0 {
		s.maxAge = domain.DefaultRetention
	}
	if s.interval <= 0 {
		s.interval = domain.DefaultSweepInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	return s
}

// State reports whether a sweep is in progress
func (s *Sweeper) State() State {
	return State(s.state.Load())
}

// Run sweeps on every tick until ctx is canceled
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Retention sweeper started",
		slog.Duration("max_age", s.maxAge),
		slog.Duration("interval", s.interval),
	)

	if s.sweepOnStart {
		s.Sweep(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes every entry whose age is strictly greater than MaxAge.
// A failed deletion is logged and does not stop the sweep. Overlapping
// calls are skipped.
func (s *Sweeper) Sweep(ctx context.Context) Report {
	var report Report

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSweeping)) {
		s.logger.Warn("Sweep already in progress, skipping")
		return report
	}
	defer s.state.Store(int32(StateIdle))

	started := time.Now()
	now := s.now()

	for entry := range s.store.ScanAll() {
		if ctx.Err() != nil {
			break
		}
		report.Scanned++

		if entry.Age(now) <= s.maxAge {
			continue
		}

		if err := s.store.Remove(entry.Filename); err != nil {
			report.Failed++
			s.metrics.IncSweepErrors()
			s.logger.Error("Failed to remove expired artifact",
				slog.String("filename", entry.Filename),
				slog.String("error", err.Error()),
			)
			continue
		}

		report.Removed++
		s.metrics.IncArtifactsRemoved("expired")
		s.logger.Info("Expired artifact removed",
			slog.String("filename", entry.Filename),
			slog.Duration("age", entry.Age(now)),
		)

		if err := s.events.Emit(ctx, domain.Event{
			Type:     domain.EventArtifactExpired,
			JobID:    domain.JobIDFromFilename(entry.Filename),
			Filename: entry.Filename,
			At:       now.UTC(),
		}); err != nil {
			s.logger.Warn("Failed to emit expiry event",
				slog.String("filename", entry.Filename),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.ObserveSweepDuration(time.Since(started).Seconds())
	s.logger.Info("Retention sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("removed", report.Removed),
		slog.Int("failed", report.Failed),
	)
	return report
}
