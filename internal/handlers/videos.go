package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"estate-video-backend/internal/models"
	"estate-video-backend/internal/pipeline"
	"estate-video-backend/internal/store"
)

type VideosHandler struct {
	store        *store.Store
	orchestrator *pipeline.Orchestrator
}

func NewVideosHandler(st *store.Store, orch *pipeline.Orchestrator) *VideosHandler {
	return &VideosHandler{store: st, orchestrator: orch}
}

// Status reports the current state of one video iteration.
func (h *VideosHandler) Status(c *gin.Context) {
	videoID, err := strconv.ParseInt(c.Param("video_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid video id"})
		return
	}

	video, err := h.store.GetVideo(videoID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "video not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load video", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.VideoStatusResponse{
		VideoID:     video.ID,
		ImageID:     video.ImageID,
		Status:      string(video.Status),
		Prompt:      video.Prompt,
		RemoteJobID: video.RemoteJobID.String,
		VideoURL:    video.VideoURL.String,
		VideoPath:   video.VideoPath.String,
		Iteration:   video.Iteration,
		CreatedAt:   video.CreatedAt,
		UpdatedAt:   video.UpdatedAt,
	})
}

// Feedback takes free-text client feedback on a video and starts a new
// iteration with a revised prompt. Runs synchronously when regeneration
// on feedback is enabled, so the response already carries the outcome.
func (h *VideosHandler) Feedback(c *gin.Context) {
	videoID, err := strconv.ParseInt(c.Param("video_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid video id"})
		return
	}

	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	feedback, child, err := h.orchestrator.RegenerateFromFeedback(context.Background(), videoID, req.FeedbackText)
	if err != nil {
		var vErr *pipeline.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid feedback", Message: vErr.Msg})
			return
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "video not found"})
			return
		case child != nil:
			// Generation failed after the iteration was recorded; the
			// client still learns which video row to watch.
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process feedback", Message: err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, models.FeedbackResponse{
		FeedbackID: feedback.ID,
		NewVideoID: child.ID,
		Status:     string(child.Status),
		NewPrompt:  child.Prompt,
		Iteration:  child.Iteration,
	})
}
