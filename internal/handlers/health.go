package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"estate-video-backend/internal/config"
	"estate-video-backend/internal/models"
)

type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}

// GenerationStatus reports the generation provider wiring without making
// external calls, so operators can confirm whether live (billable)
// generation is active.
func (h *HealthHandler) GenerationStatus(c *gin.Context) {
	videosDir, _ := filepath.Abs(h.cfg.VideosDir)
	uploadsDir, _ := filepath.Abs(h.cfg.UploadsDir)

	c.JSON(http.StatusOK, models.GenerationStatusResponse{
		Mock:          h.cfg.RunwayMock,
		APIKeyPresent: h.cfg.RunwayAPIKey != "",
		Model:         h.cfg.RunwayModel,
		WillCharge:    !h.cfg.RunwayMock,
		VideosDir:     videosDir,
		UploadsDir:    uploadsDir,
	})
}
