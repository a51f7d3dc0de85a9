package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/cuongbtq/media-gateway/internal/ledger"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListJobs handles GET /api/jobs
// Lists job history newest first with cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Failure(dto.CodeLedgerDisabled, "job history is not enabled"))
		return
	}

	h.logger.Info("ListJobs called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.Failure(dto.CodeInvalidInput, "invalid query parameters"))
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}

	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := ledger.DecodeCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.Failure(dto.CodeInvalidInput, "invalid cursor"))
		return
	}

	jobs, err := h.ledger.List(c.Request.Context(), ledger.Filter{
		Kind:     req.Kind,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.Failure(dto.CodeInternal, "failed to list jobs"))
		return
	}

	jobs, next := ledger.Paginate(jobs, req.PageSize)

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.JobDTO{
			JobID:     job.JobID,
			Kind:      job.Kind,
			Tier:      job.Tier,
			SourceURL: job.SourceURL,
			Status:    job.Status,
			Filename:  job.Filename,
			Error:     job.ErrorMessage,
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
			UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if next != nil {
		nextCursor = next.Encode()
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}
