package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS media_jobs (
	job_id        TEXT PRIMARY KEY,
	kind          TEXT NOT NULL DEFAULT '',
	tier          TEXT NOT NULL DEFAULT '',
	source_url    TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	filename      TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS media_jobs_created_at_idx ON media_jobs (created_at DESC, job_id DESC);
`

// Job is one row of job history
type Job struct {
	JobID        string    `db:"job_id" json:"jobId"`
	Kind         string    `db:"kind" json:"kind"`
	Tier         string    `db:"tier" json:"tier"`
	SourceURL    string    `db:"source_url" json:"sourceUrl"`
	Status       string    `db:"status" json:"status"`
	Filename     string    `db:"filename" json:"filename,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Filter narrows a List call
type Filter struct {
	Kind     string
	Status   string
	PageSize int
	Cursor   *Cursor
}

// Ledger stores job history in PostgreSQL
type Ledger struct {
	db *sqlx.DB
}

// New creates a Ledger over db
func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureSchema creates the history table if it does not exist
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// Record applies a lifecycle event to the job's row. Job events upsert;
// artifact events only touch rows that already exist.
func (l *Ledger) Record(ctx context.Context, event domain.Event) error {
	status := event.Status()
	if status == "" {
		return nil
	}

	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	switch event.Type {
	case domain.EventArtifactDeleted, domain.EventArtifactExpired:
		query := `
			UPDATE media_jobs
			SET status = $2, updated_at = $3
			WHERE job_id = $1
		`
		if _, err := l.db.ExecContext(ctx, query, event.JobID, status, at); err != nil {
			return fmt.Errorf("failed to record %s: %w", event.Type, err)
		}
		return nil
	}

	query := `
		INSERT INTO media_jobs (
			job_id, kind, tier, source_url,
			status, filename, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $8
		)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			filename = COALESCE(NULLIF(EXCLUDED.filename, ''), media_jobs.filename),
			error_message = COALESCE(NULLIF(EXCLUDED.error_message, ''), media_jobs.error_message),
			updated_at = EXCLUDED.updated_at
	`

	_, err := l.db.ExecContext(
		ctx,
		query,
		event.JobID,
		string(event.Kind),
		event.Tier,
		event.SourceURL,
		status,
		event.Filename,
		event.Error,
		at,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", event.Type, err)
	}
	return nil
}

// Get returns one job by id
func (l *Ledger) Get(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	query := `
		SELECT
			job_id, kind, tier, source_url,
			status, filename, error_message, created_at, updated_at
		FROM media_jobs
		WHERE job_id = $1
	`

	if err := l.db.GetContext(ctx, &job, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// List returns up to PageSize+1 jobs, newest first. The extra row tells the
// caller whether another page exists.
func (l *Ledger) List(ctx context.Context, filter Filter) ([]Job, error) {
	query, args := listQuery(filter)

	var jobs []Job
	if err := l.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func listQuery(filter Filter) (string, []any) {
	query := `
        SELECT
            job_id, kind, tier, source_url,
            status, filename, error_message, created_at, updated_at
        FROM media_jobs
        WHERE 1=1
    `
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, filter.Kind)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	return query, args
}
