package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/cuongbtq/media-gateway/internal/events"
	"github.com/cuongbtq/media-gateway/internal/metrics"
	"github.com/cuongbtq/media-gateway/internal/transform"
	"github.com/google/uuid"
)

// ArtifactStore is the part of the storage layer the runner needs
type ArtifactStore interface {
	OutputTemplate(jobID string) string
	Find(jobID, ext string) (*domain.Artifact, error)
	Resolve(filename string) (*domain.Artifact, error)
}

// Config holds runner configuration
type Config struct {
	Logger      *slog.Logger
	Store       ArtifactStore
	Transformer transform.Transformer
	Events      events.Sink
	Metrics     metrics.Metrics
	Concurrency int
	QueueSize   int
	// JobTimeout bounds a single transform; zero means no limit
	JobTimeout time.Duration
}

// Runner turns download requests into artifacts through a bounded pool
// of transform slots. Callers block until their job finishes.
type Runner struct {
	logger      *slog.Logger
	store       ArtifactStore
	transformer transform.Transformer
	events      events.Sink
	metrics     metrics.Metrics
	concurrency int
	jobTimeout  time.Duration
	jobsChan    chan *request
	// slots holds one token per admitted job, queued or running
	slots    chan struct{}
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

type request struct {
	ctx     context.Context
	id      string
	url     string
	profile domain.Profile
	reply   chan result
}

type result struct {
	handle *domain.Handle
	err    error
}

var errStopped = fmt.Errorf("%w: runner stopped", domain.ErrBusy)

// NewRunner creates a new runner; call SpawnPool before Start
func NewRunner(cfg *Config) *Runner {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}

	sink := cfg.Events
	if sink == nil {
		sink = events.Noop{}
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	return &Runner{
		logger:      cfg.Logger,
		store:       cfg.Store,
		transformer: cfg.Transformer,
		events:      sink,
		metrics:     m,
		concurrency: concurrency,
		jobTimeout:  cfg.JobTimeout,
		jobsChan:    make(chan *request, concurrency+queueSize),
		slots:       make(chan struct{}, concurrency+queueSize),
		stopChan:    make(chan struct{}),
	}
}

// Start validates the request, runs the transform and returns the handle of
// the produced artifact. Unknown tiers fall back to the kind's default.
func (r *Runner) Start(ctx context.Context, kind domain.Kind, sourceURL, tier string) (*domain.Handle, error) {
	if err := domain.ValidateSource(sourceURL); err != nil {
		r.metrics.IncJobsFinished(string(kind), metrics.OutcomeRejected)
		return nil, err
	}

	req := &request{
		ctx:     ctx,
		id:      uuid.NewString(),
		url:     strings.TrimSpace(sourceURL),
		profile: domain.ResolveProfile(kind, tier),
		reply:   make(chan result, 1),
	}

	if err := r.enqueue(req); err != nil {
		r.metrics.IncJobsFinished(string(kind), metrics.OutcomeRejected)
		return nil, err
	}

	select {
	case res := <-req.reply:
		return res.handle, res.err
	case <-ctx.Done():
		r.logger.Warn("Caller gave up waiting for job",
			slog.String("job_id", req.id),
			slog.String("error", ctx.Err().Error()),
		)
		return nil, ctx.Err()
	}
}

func (r *Runner) enqueue(req *request) error {
	if r.stopped() {
		return errStopped
	}

	// Admission is bounded by busy workers plus queue_size; once a slot is
	// taken the send below cannot block.
	select {
	case r.slots <- struct{}{}:
	default:
		r.logger.Warn("Transform queue full, rejecting job",
			slog.String("job_id", req.id),
			slog.Int("queue_size", r.queueSize()),
		)
		return domain.ErrBusy
	}
	r.jobsChan <- req

	r.metrics.SetQueueDepth(len(r.jobsChan))
	r.logger.Debug("Job queued",
		slog.String("job_id", req.id),
		slog.String("kind", string(req.profile.Kind)),
		slog.String("tier", req.profile.Tier),
	)
	return nil
}

// Stop stops accepting jobs, waits for running transforms and fails
// anything still queued.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("Stopping job runner...")
		close(r.stopChan)
		r.wg.Wait()

		for {
			select {
			case req := <-r.jobsChan:
				r.release()
				req.reply <- result{err: errStopped}
			default:
				r.metrics.SetQueueDepth(0)
				r.logger.Info("Job runner stopped")
				return
			}
		}
	})
}

func (r *Runner) stopped() bool {
	select {
	case <-r.stopChan:
		return true
	default:
		return false
	}
}

func (r *Runner) release() {
	<-r.slots
}

func (r *Runner) queueSize() int {
	return cap(r.slots) - r.concurrency
}
