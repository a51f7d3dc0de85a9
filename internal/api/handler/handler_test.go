package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/cuongbtq/media-gateway/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobID = "0b8f6a52-3f7e-4c1a-9d0e-5a1b2c3d4e5f"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	handle *domain.Handle
	err    error

	kind domain.Kind
	url  string
	tier string
}

func (f *fakeRunner) Start(_ context.Context, kind domain.Kind, sourceURL, tier string) (*domain.Handle, error) {
	f.kind, f.url, f.tier = kind, sourceURL, tier
	return f.handle, f.err
}

type fakeStore struct {
	artifacts map[string]*domain.Artifact
	deleted   []string
}

func (f *fakeStore) Exists(id string) (*domain.Artifact, error) {
	if a, ok := f.artifacts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) Delete(id string) (*domain.Artifact, error) {
	a, ok := f.artifacts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.artifacts, id)
	f.deleted = append(f.deleted, id)
	return a, nil
}

func (f *fakeStore) Resolve(filename string) (*domain.Artifact, error) {
	for _, a := range f.artifacts {
		if a.Filename == filename {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeProber struct {
	info *domain.MediaInfo
	err  error
}

func (f *fakeProber) Probe(context.Context, string) (*domain.MediaInfo, error) {
	return f.info, f.err
}

type fakeLister struct {
	jobs   []ledger.Job
	err    error
	filter ledger.Filter
}

func (f *fakeLister) List(_ context.Context, filter ledger.Filter) ([]ledger.Job, error) {
	f.filter = filter
	return f.jobs, f.err
}

type recordingSink struct {
	events []domain.Event
}

func (s *recordingSink) Emit(_ context.Context, e domain.Event) error {
	s.events = append(s.events, e)
	return nil
}

func testDeps() *Dependencies {
	return &Dependencies{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Runner:  &fakeRunner{},
		Store:   &fakeStore{artifacts: map[string]*domain.Artifact{}},
		Prober:  &fakeProber{},
		Version: "1.0.0",
	}
}

func perform(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewBufferString(s)
	} else if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func downloadRouter(deps *Dependencies) *gin.Engine {
	h := NewDownloadHandler(deps)
	r := gin.New()
	r.POST("/api/download/video", h.DownloadVideo)
	r.POST("/api/download/audio", h.DownloadAudio)
	r.GET("/api/download/status/:id", h.Status)
	r.DELETE("/api/download/:id", h.Delete)
	r.GET("/downloads/:filename", h.ServeFile)
	return r
}

func TestDownloadVideo_Success(t *testing.T) {
	deps := testDeps()
	runner := &fakeRunner{handle: &domain.Handle{
		ID:          jobID,
		Filename:    jobID + ".mp4",
		DownloadURL: "/downloads/" + jobID + ".mp4",
		Profile:     domain.ResolveProfile(domain.KindVideo, "720"),
	}}
	deps.Runner = runner

	rec := perform(downloadRouter(deps), http.MethodPost, "/api/download/video",
		dto.VideoDownloadRequest{URL: "https://youtu.be/abc123", Quality: "720"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.VideoDownloadResponse](t, rec)
	assert.Equal(t, dto.VideoDownloadResponse{
		Success:     true,
		ID:          jobID,
		Filename:    jobID + ".mp4",
		DownloadURL: "/downloads/" + jobID + ".mp4",
		Quality:     "720",
	}, resp)

	assert.Equal(t, domain.KindVideo, runner.kind)
	assert.Equal(t, "https://youtu.be/abc123", runner.url)
	assert.Equal(t, "720", runner.tier)
}

func TestDownloadAudio_Success(t *testing.T) {
	deps := testDeps()
	runner := &fakeRunner{handle: &domain.Handle{
		ID:          jobID,
		Filename:    jobID + ".mp3",
		DownloadURL: "/downloads/" + jobID + ".mp3",
		Profile:     domain.ResolveProfile(domain.KindAudio, ""),
	}}
	deps.Runner = runner

	rec := perform(downloadRouter(deps), http.MethodPost, "/api/download/audio",
		map[string]string{"url": "https://youtu.be/abc123"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.AudioDownloadResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "192", resp.Bitrate)
	assert.Equal(t, jobID+".mp3", resp.Filename)
	assert.Equal(t, domain.KindAudio, runner.kind)
	assert.Equal(t, "", runner.tier)
}

func TestDownload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "missing url",
			err:        domain.NewInputError("url is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.CodeInvalidInput,
			wantMsg:    "url is required",
		},
		{
			name:       "transform failed",
			err:        fmt.Errorf("%w: exit code 1", domain.ErrTransformFailed),
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.CodeTransformFailed,
			wantMsg:    "download failed",
		},
		{
			name:       "missing artifact hides details",
			err:        fmt.Errorf("%w: job %s", domain.ErrMissingArtifact, jobID),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.CodeMissingArtifact,
		},
		{
			name:       "busy",
			err:        domain.ErrBusy,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   dto.CodeBusy,
		},
		{
			name:       "unexpected",
			err:        errors.New("disk on fire at /var/lib/downloads"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.CodeInternal,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps()
			deps.Runner = &fakeRunner{err: tt.err}

			rec := perform(downloadRouter(deps), http.MethodPost, "/api/download/video",
				dto.VideoDownloadRequest{URL: "https://youtu.be/abc123"})

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[dto.ErrorResponse](t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error.Message)
			}
			assert.NotContains(t, rec.Body.String(), jobID)
			assert.NotContains(t, rec.Body.String(), "/var/lib")
		})
	}
}

func TestDownload_InvalidBody(t *testing.T) {
	deps := testDeps()
	runner := &fakeRunner{}
	deps.Runner = runner

	rec := perform(downloadRouter(deps), http.MethodPost, "/api/download/video", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.CodeInvalidInput, decode[dto.ErrorResponse](t, rec).Error.Code)
	assert.Empty(t, runner.url)
}

func TestStatus(t *testing.T) {
	deps := testDeps()
	deps.Store = &fakeStore{artifacts: map[string]*domain.Artifact{
		jobID: {JobID: jobID, Filename: jobID + ".mp4", Size: 1024},
	}}
	r := downloadRouter(deps)

	t.Run("exists", func(t *testing.T) {
		rec := perform(r, http.MethodGet, "/api/download/status/"+jobID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, dto.StatusResponse{
			Exists:      true,
			Filename:    jobID + ".mp4",
			Size:        1024,
			DownloadURL: "/downloads/" + jobID + ".mp4",
		}, decode[dto.StatusResponse](t, rec))
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := perform(r, http.MethodGet, "/api/download/status/ffffffff-0000-4000-8000-000000000000", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"exists":false}`, rec.Body.String())
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := perform(r, http.MethodGet, "/api/download/status/0b8f", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDelete(t *testing.T) {
	deps := testDeps()
	store := &fakeStore{artifacts: map[string]*domain.Artifact{
		jobID: {JobID: jobID, Filename: jobID + ".mp3"},
	}}
	sink := &recordingSink{}
	deps.Store = store
	deps.Events = sink
	r := downloadRouter(deps)

	rec := perform(r, http.MethodDelete, "/api/download/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.DeleteResponse{Success: true, Message: "file deleted"}, decode[dto.DeleteResponse](t, rec))
	assert.Equal(t, []string{jobID}, store.deleted)

	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.EventArtifactDeleted, sink.events[0].Type)
	assert.Equal(t, jobID+".mp3", sink.events[0].Filename)

	rec = perform(r, http.MethodDelete, "/api/download/"+jobID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, dto.CodeNotFound, decode[dto.ErrorResponse](t, rec).Error.Code)

	rec = perform(r, http.MethodDelete, "/api/download/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeFile(t *testing.T) {
	dir := t.TempDir()
	name := jobID + ".mp4"
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0o644))

	deps := testDeps()
	deps.Store = &fakeStore{artifacts: map[string]*domain.Artifact{
		jobID: {JobID: jobID, Filename: name, Path: path},
	}}
	r := downloadRouter(deps)

	rec := perform(r, http.MethodGet, "/downloads/"+name, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), name)

	rec = perform(r, http.MethodGet, "/downloads/missing.mp4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func infoRouter(deps *Dependencies) *gin.Engine {
	h := NewInfoHandler(deps)
	r := gin.New()
	r.POST("/api/info/video", h.VideoInfo)
	r.POST("/api/info/validate", h.Validate)
	return r
}

func TestVideoInfo(t *testing.T) {
	deps := testDeps()
	deps.Prober = &fakeProber{info: &domain.MediaInfo{
		ID:       "abc123",
		Title:    "A video",
		Duration: 212,
		VideoFormats: []domain.VideoFormat{
			{Quality: "1080p", Height: 1080},
		},
	}}
	deps.ProbeTimeout = time.Second
	r := infoRouter(deps)

	rec := perform(r, http.MethodPost, "/api/info/video", dto.InfoRequest{URL: "https://youtu.be/abc123"})
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[domain.MediaInfo](t, rec)
	assert.Equal(t, "A video", info.Title)
	require.Len(t, info.VideoFormats, 1)
	assert.Equal(t, 1080, info.VideoFormats[0].Height)

	rec = perform(r, http.MethodPost, "/api/info/video", dto.InfoRequest{URL: "https://vimeo.com/1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	deps.Prober = &fakeProber{err: fmt.Errorf("%w: private video", domain.ErrTransformFailed)}
	rec = perform(infoRouter(deps), http.MethodPost, "/api/info/video", dto.InfoRequest{URL: "https://youtu.be/abc123"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		prober *fakeProber
		want   string
	}{
		{
			name:   "invalid pattern",
			url:    "https://example.com/video",
			prober: &fakeProber{},
			want:   `{"valid":false}`,
		},
		{
			name:   "exists",
			url:    "https://www.youtube.com/watch?v=abc123",
			prober: &fakeProber{info: &domain.MediaInfo{ID: "abc123"}},
			want:   `{"valid":true,"exists":true}`,
		},
		{
			name:   "private",
			url:    "https://youtu.be/abc123",
			prober: &fakeProber{err: domain.ErrTransformFailed},
			want:   `{"valid":true,"exists":false,"error":"video not found or private"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps()
			deps.Prober = tt.prober

			rec := perform(infoRouter(deps), http.MethodPost, "/api/info/validate", dto.InfoRequest{URL: tt.url})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestListJobs(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{jobs: []ledger.Job{
		{JobID: "c", Kind: "video", Status: domain.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base},
		{JobID: "b", Kind: "video", Status: domain.JobStatusCompleted, CreatedAt: base.Add(time.Minute), UpdatedAt: base},
		{JobID: "a", Kind: "video", Status: domain.JobStatusCompleted, CreatedAt: base, UpdatedAt: base},
	}}

	deps := testDeps()
	deps.Ledger = lister
	h := NewJobHandler(deps)
	r := gin.New()
	r.GET("/api/jobs", h.ListJobs)

	rec := perform(r, http.MethodGet, "/api/jobs?page_size=2&kind=video&status=COMPLETED", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[dto.ListJobsResponse](t, rec)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "c", resp.Jobs[0].JobID)
	assert.Equal(t, "b", resp.Jobs[1].JobID)
	require.NotEmpty(t, resp.NextCursor)

	assert.Equal(t, 2, lister.filter.PageSize)
	assert.Equal(t, "video", lister.filter.Kind)
	assert.Equal(t, "COMPLETED", lister.filter.Status)
	assert.Nil(t, lister.filter.Cursor)

	cursor, err := ledger.DecodeCursor(resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "b", cursor.JobID)

	rec = perform(r, http.MethodGet, "/api/jobs?cursor="+resp.NextCursor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, lister.filter.Cursor)
	assert.Equal(t, "b", lister.filter.Cursor.JobID)
	assert.Equal(t, defaultPageSize, lister.filter.PageSize)

	rec = perform(r, http.MethodGet, "/api/jobs?page_size=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxPageSize, lister.filter.PageSize)

	rec = perform(r, http.MethodGet, "/api/jobs?cursor=%25%25%25", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListJobs_LedgerDisabled(t *testing.T) {
	h := NewJobHandler(testDeps())
	r := gin.New()
	r.GET("/api/jobs", h.ListJobs)

	rec := perform(r, http.MethodGet, "/api/jobs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, dto.CodeLedgerDisabled, decode[dto.ErrorResponse](t, rec).Error.Code)
}

func TestListJobs_LedgerError(t *testing.T) {
	deps := testDeps()
	deps.Ledger = &fakeLister{err: errors.New("connection refused")}
	h := NewJobHandler(deps)
	r := gin.New()
	r.GET("/api/jobs", h.ListJobs)

	rec := perform(r, http.MethodGet, "/api/jobs", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestHealth(t *testing.T) {
	deps := testDeps()
	h := NewHealthHandler(deps)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	r := gin.New()
	r.GET("/health", h.Health)

	rec := perform(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","timestamp":"2024-05-01T12:00:00.000Z","version":"1.0.0"}`, rec.Body.String())
}

func TestHealth_Checks(t *testing.T) {
	deps := testDeps()
	deps.Checks = map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"events":   func(context.Context) error { return errors.New("not connected") },
	}
	r := gin.New()
	r.GET("/health", NewHealthHandler(deps).Health)

	rec := perform(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[dto.HealthResponse](t, rec)
	assert.Equal(t, "DEGRADED", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "events": "not connected"}, resp.Checks)
}

func TestClassify_ClientGone(t *testing.T) {
	status, _, _ := classify(context.Canceled)
	assert.Equal(t, statusClientClosed, status)
}
