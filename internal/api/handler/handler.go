package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/cuongbtq/media-gateway/internal/events"
	"github.com/cuongbtq/media-gateway/internal/ledger"
	"github.com/cuongbtq/media-gateway/internal/transform"
)

// Downloader runs download jobs to completion
type Downloader interface {
	Start(ctx context.Context, kind domain.Kind, sourceURL, tier string) (*domain.Handle, error)
}

// ArtifactStore is the part of the storage layer the handlers read and delete through
type ArtifactStore interface {
	Exists(jobID string) (*domain.Artifact, error)
	Delete(jobID string) (*domain.Artifact, error)
	Resolve(filename string) (*domain.Artifact, error)
}

// JobLister reads job history
type JobLister interface {
	List(ctx context.Context, filter ledger.Filter) ([]ledger.Job, error)
}

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Runner       Downloader
	Store        ArtifactStore
	Prober       transform.Prober
	ProbeTimeout time.Duration
	// Ledger is nil when job history is disabled
	Ledger  JobLister
	Events  events.Sink
	Version string
	Checks  map[string]HealthCheck
}

// DownloadHandler handles download and artifact requests
type DownloadHandler struct {
	logger *slog.Logger
	runner Downloader
	store  ArtifactStore
	events events.Sink
}

// NewDownloadHandler creates a new DownloadHandler instance
func NewDownloadHandler(deps *Dependencies) *DownloadHandler {
	sink := deps.Events
	if sink == nil {
		sink = events.Noop{}
	}
	return &DownloadHandler{
		logger: deps.Logger,
		runner: deps.Runner,
		store:  deps.Store,
		events: sink,
	}
}

// InfoHandler handles metadata requests
type InfoHandler struct {
	logger  *slog.Logger
	prober  transform.Prober
	timeout time.Duration
}

// NewInfoHandler creates a new InfoHandler instance
func NewInfoHandler(deps *Dependencies) *InfoHandler {
	return &InfoHandler{
		logger:  deps.Logger,
		prober:  deps.Prober,
		timeout: deps.ProbeTimeout,
	}
}

// JobHandler handles job history requests
type JobHandler struct {
	logger *slog.Logger
	ledger JobLister
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		ledger: deps.Ledger,
	}
}

// HealthHandler handles liveness requests
type HealthHandler struct {
	version string
	checks  map[string]HealthCheck
	now     func() time.Time
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		version: deps.Version,
		checks:  deps.Checks,
		now:     time.Now,
	}
}
