package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/gin-gonic/gin"
)

// VideoInfo handles POST /api/info/video
// Returns title, duration and the available formats without downloading
func (h *InfoHandler) VideoInfo(c *gin.Context) {
	var req dto.InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domain.NewInputError("invalid request body"))
		return
	}

	if err := domain.ValidateSource(req.URL); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx, cancel := h.probeContext(c.Request.Context())
	defer cancel()

	info, err := h.prober.Probe(ctx, req.URL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// Validate handles POST /api/info/validate
// Checks the URL pattern and then whether the video can be probed
func (h *InfoHandler) Validate(c *gin.Context) {
	var req dto.InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, domain.NewInputError("invalid request body"))
		return
	}

	if domain.ValidateSource(req.URL) != nil {
		c.JSON(http.StatusOK, dto.ValidateResponse{Valid: false})
		return
	}

	ctx, cancel := h.probeContext(c.Request.Context())
	defer cancel()

	exists := true
	if _, err := h.prober.Probe(ctx, req.URL); err != nil {
		h.logger.Info("Probe failed during validation",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		exists = false
		c.JSON(http.StatusOK, dto.ValidateResponse{
			Valid:  true,
			Exists: &exists,
			Error:  "video not found or private",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ValidateResponse{Valid: true, Exists: &exists})
}

func (h *InfoHandler) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(ctx, h.timeout)
	}
	return context.WithCancel(ctx)
}
