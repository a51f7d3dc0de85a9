package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/cuongbtq/media-gateway/internal/metrics"
	"github.com/cuongbtq/media-gateway/internal/transform"
)

// processJob runs one transform to completion and correlates it with the
// artifact it produced. There is no retry.
func (r *Runner) processJob(ctx context.Context, workerName string, req *request) result {
	kind := string(req.profile.Kind)

	if err := req.ctx.Err(); err != nil {
		r.logger.Info("Skipping job abandoned while queued",
			slog.String("worker_name", workerName),
			slog.String("job_id", req.id),
		)
		return result{err: err}
	}

	r.logger.Info("Processing job",
		slog.String("worker_name", workerName),
		slog.String("job_id", req.id),
		slog.String("kind", kind),
		slog.String("tier", req.profile.Tier),
	)
	r.metrics.IncJobsStarted(kind)
	r.emit(ctx, req, domain.EventJobStarted, "", nil)

	jobCtx := ctx
	if r.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.jobTimeout)
		defer cancel()
	}

	inv := transform.InvocationFor(req.url, r.store.OutputTemplate(req.id), req.profile)

	started := time.Now()
	exit, ok := <-r.transformer.Invoke(jobCtx, inv)
	r.metrics.ObserveTransformDuration(kind, time.Since(started).Seconds())

	if !ok {
		exit = transform.Exit{Code: -1, Err: errors.New("transform finished without exit status")}
	}

	if !exit.Success() {
		err := transformError(exit)
		r.logger.Error("Transform failed",
			slog.String("job_id", req.id),
			slog.Int("exit_code", exit.Code),
			slog.String("detail", exit.Detail),
			slog.String("error", err.Error()),
		)
		r.metrics.IncJobsFinished(kind, metrics.OutcomeTransformFailed)
		r.emit(ctx, req, domain.EventJobFailed, "", err)
		return result{err: err}
	}

	artifact, err := r.locate(req, exit.OutputPath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%w: job %s", domain.ErrMissingArtifact, req.id)
		}
		r.logger.Error("Transform succeeded but no artifact found",
			slog.String("job_id", req.id),
			slog.String("reported_output", exit.OutputPath),
			slog.String("error", err.Error()),
		)
		r.metrics.IncJobsFinished(kind, metrics.OutcomeMissingArtifact)
		r.emit(ctx, req, domain.EventJobFailed, "", err)
		return result{err: err}
	}

	r.logger.Info("Job completed successfully",
		slog.String("job_id", req.id),
		slog.String("filename", artifact.Filename),
		slog.Int64("size", artifact.Size),
		slog.Duration("elapsed", time.Since(started)),
	)
	r.metrics.IncJobsFinished(kind, metrics.OutcomeCompleted)
	r.emit(ctx, req, domain.EventJobCompleted, artifact.Filename, nil)

	return result{handle: &domain.Handle{
		ID:          req.id,
		Filename:    artifact.Filename,
		DownloadURL: artifact.DownloadURL(),
		Profile:     req.profile,
	}}
}

// locate prefers the output the transform reported and falls back to a
// prefix scan of the store.
func (r *Runner) locate(req *request, reported string) (*domain.Artifact, error) {
	ext := req.profile.Extension()

	if reported != "" {
		name := filepath.Base(reported)
		if strings.HasPrefix(name, req.id) && strings.HasSuffix(name, ext) {
			artifact, err := r.store.Resolve(name)
			if err == nil {
				return artifact, nil
			}
			r.logger.Debug("Reported output not in store, scanning",
				slog.String("job_id", req.id),
				slog.String("reported_output", reported),
			)
		}
	}

	return r.store.Find(req.id, ext)
}

func (r *Runner) emit(ctx context.Context, req *request, typ domain.EventType, filename string, err error) {
	event := domain.Event{
		Type:      typ,
		JobID:     req.id,
		Kind:      req.profile.Kind,
		Tier:      req.profile.Tier,
		SourceURL: req.url,
		Filename:  filename,
		At:        time.Now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	if emitErr := r.events.Emit(ctx, event); emitErr != nil {
		r.logger.Warn("Failed to emit job event",
			slog.String("job_id", req.id),
			slog.String("type", string(typ)),
			slog.String("error", emitErr.Error()),
		)
	}
}

func transformError(exit transform.Exit) error {
	if exit.Err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransformFailed, exit.Err)
	}
	return fmt.Errorf("%w: exit code %d", domain.ErrTransformFailed, exit.Code)
}
