package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusClientClosed is written when the caller went away before the job finished
const statusClientClosed = 499

// respondError maps a domain error onto its HTTP status and failure body.
// Internal detail such as paths and downloader output stays in the log.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code, message := classify(err)

	attrs := []any{
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", attrs...)
	} else {
		logger.Warn("Request rejected", attrs...)
	}

	if status == statusClientClosed {
		c.AbortWithStatus(status)
		return
	}
	c.AbortWithStatusJSON(status, dto.Failure(code, message))
}

func classify(err error) (int, string, string) {
	var inputErr *domain.InputError

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, dto.CodeInvalidInput, inputErr.Reason
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, dto.CodeInvalidInput, "invalid input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, dto.CodeNotFound, "file not found"
	case errors.Is(err, domain.ErrTransformFailed):
		return http.StatusBadGateway, dto.CodeTransformFailed, "download failed"
	case errors.Is(err, domain.ErrMissingArtifact):
		return http.StatusInternalServerError, dto.CodeMissingArtifact, "download finished but the file could not be found"
	case errors.Is(err, domain.ErrBusy):
		return http.StatusServiceUnavailable, dto.CodeBusy, "server is busy, try again later"
	case errors.Is(err, context.Canceled):
		return statusClientClosed, dto.CodeInternal, "request canceled"
	default:
		return http.StatusInternalServerError, dto.CodeInternal, "internal server error"
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
