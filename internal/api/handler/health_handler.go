package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/gin-gonic/gin"
)

const (
	statusOK       = "OK"
	statusDegraded = "DEGRADED"

	healthCheckTimeout = 2 * time.Second
)

// Health handles GET /health
// Optional dependency checks only change the reported status, never the HTTP code
func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:    statusOK,
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Version:   h.version,
	}

	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = statusDegraded
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	c.JSON(http.StatusOK, resp)
}
