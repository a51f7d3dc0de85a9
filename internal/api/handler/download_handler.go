package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/media-gateway/internal/api/dto"
	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DownloadVideo handles POST /api/download/video
// Downloads a video at the requested quality and returns where to fetch it
func (h *DownloadHandler) DownloadVideo(c *gin.Context) {
	var req dto.VideoDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		respondError(c, h.logger, domain.NewInputError("invalid request body"))
		return
	}

	h.logger.Info("DownloadVideo called",
		slog.String("url", req.URL),
		slog.String("quality", req.Quality),
	)

	handle, err := h.runner.Start(c.Request.Context(), domain.KindVideo, req.URL, req.Quality)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.VideoDownloadResponse{
		Success:     true,
		ID:          handle.ID,
		Filename:    handle.Filename,
		DownloadURL: handle.DownloadURL,
		Quality:     handle.Profile.Tier,
	})
}

// DownloadAudio handles POST /api/download/audio
// Extracts audio as mp3 at the requested bitrate
func (h *DownloadHandler) DownloadAudio(c *gin.Context) {
	var req dto.AudioDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		respondError(c, h.logger, domain.NewInputError("invalid request body"))
		return
	}

	h.logger.Info("DownloadAudio called",
		slog.String("url", req.URL),
		slog.String("bitrate", req.Bitrate),
	)

	handle, err := h.runner.Start(c.Request.Context(), domain.KindAudio, req.URL, req.Bitrate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.AudioDownloadResponse{
		Success:     true,
		ID:          handle.ID,
		Filename:    handle.Filename,
		DownloadURL: handle.DownloadURL,
		Bitrate:     handle.Profile.Tier,
	})
}

// Status handles GET /api/download/status/:id
func (h *DownloadHandler) Status(c *gin.Context) {
	jobID := c.Param("id")

	if !validJobID(jobID) {
		h.logger.Warn("Invalid job id format", slog.String("job_id", jobID))
		respondError(c, h.logger, domain.NewInputError("id must be a valid UUID"))
		return
	}

	artifact, err := h.store.Exists(jobID)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusOK, dto.StatusResponse{Exists: false})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		Exists:      true,
		Filename:    artifact.Filename,
		Size:        artifact.Size,
		DownloadURL: artifact.DownloadURL(),
	})
}

// Delete handles DELETE /api/download/:id
func (h *DownloadHandler) Delete(c *gin.Context) {
	jobID := c.Param("id")

	h.logger.Info("Delete called", slog.String("job_id", jobID))

	if !validJobID(jobID) {
		h.logger.Warn("Invalid job id format", slog.String("job_id", jobID))
		respondError(c, h.logger, domain.NewInputError("id must be a valid UUID"))
		return
	}

	artifact, err := h.store.Delete(jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.events.Emit(c.Request.Context(), domain.Event{
		Type:     domain.EventArtifactDeleted,
		JobID:    jobID,
		Filename: artifact.Filename,
		At:       time.Now().UTC(),
	}); err != nil {
		h.logger.Warn("Failed to emit delete event", slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, dto.DeleteResponse{
		Success: true,
		Message: "file deleted",
	})
}

// ServeFile handles GET /downloads/:filename
// Streams a finished artifact as an attachment
func (h *DownloadHandler) ServeFile(c *gin.Context) {
	filename := c.Param("filename")

	artifact, err := h.store.Resolve(filename)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.FileAttachment(artifact.Path, artifact.Filename)
}

func validJobID(jobID string) bool {
	_, err := uuid.Parse(jobID)
	return err == nil
}
