package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"estate-video-backend/internal/models"
	"estate-video-backend/internal/pipeline"
	"estate-video-backend/internal/storage"
	"estate-video-backend/internal/store"
)

type AdminHandler struct {
	store         *store.Store
	orchestrator  *pipeline.Orchestrator
	storageClient *storage.Client
	videosDir     string
	baseURL       string
}

func NewAdminHandler(st *store.Store, orch *pipeline.Orchestrator, storageClient *storage.Client, videosDir, baseURL string) *AdminHandler {
	return &AdminHandler{
		store:         st,
		orchestrator:  orch,
		storageClient: storageClient,
		videosDir:     videosDir,
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

// Orders renders the review queue: every order with its photo count,
// latest video per image, and a derived order status. Statuses use the
// admin vocabulary (completed/pending), not the internal one.
func (h *AdminHandler) Orders(c *gin.Context) {
	orders, err := h.store.ListOrders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load orders", Message: err.Error()})
		return
	}

	summaries := []models.AdminOrderSummary{}
	for _, order := range orders {
		images, err := h.store.ListImagesByOrder(order.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load images", Message: err.Error()})
			return
		}
		videos, err := h.store.ListLatestVideosByOrder(order.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load videos", Message: err.Error()})
			return
		}

		infos := []models.AdminVideoInfo{}
		for _, v := range videos {
			infos = append(infos, models.AdminVideoInfo{
				VideoID:   v.ID,
				ImageID:   v.ImageID,
				Filename:  filepath.Base(v.VideoPath.String),
				URL:       v.VideoURL.String,
				Status:    v.Status.AdminStatus(),
				Iteration: v.Iteration,
			})
		}

		summary := models.AdminOrderSummary{
			OrderID:    order.ID,
			Package:    order.Package,
			AddOns:     order.AddOns.String,
			PhotoCount: len(images),
			Status:     deriveOrderStatus(videos),
			Date:       order.CreatedAt,
			Videos:     infos,
		}
		if order.UserID.Valid {
			id := order.UserID.Int64
			summary.ClientID = &id
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, models.AdminOrdersResponse{Orders: summaries, Count: len(summaries)})
}

// deriveOrderStatus folds the latest per-image video statuses into one
// order-level status: completed when every video succeeded, processing
// when any is still being generated, submitted otherwise.
func deriveOrderStatus(videos []models.Video) string {
	if len(videos) == 0 {
		return "submitted"
	}
	allSucceeded := true
	for _, v := range videos {
		if v.Status == models.StatusProcessing {
			return "processing"
		}
		if v.Status != models.StatusSucceeded {
			allSucceeded = false
		}
	}
	if allSucceeded {
		return "completed"
	}
	return "submitted"
}

// UpdateStatus forces the latest video of an image into an
// admin-supplied status. Re-applying the current status succeeds without
// a write.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	imageID, err := strconv.ParseInt(c.Param("image_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image id"})
		return
	}

	var req models.AdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	status, err := models.ParseAdminStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid status", Message: err.Error()})
		return
	}

	video, err := h.orchestrator.OverrideStatus(imageID, status)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update status", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.AdminStatusResponse{
		ImageID:   imageID,
		VideoID:   video.ID,
		Status:    string(video.Status),
		VideoPath: video.VideoPath.String,
		VideoURL:  video.VideoURL.String,
	})
}

// Regenerate starts a new iteration for an image with an admin-supplied
// prompt, bypassing the prompt engine.
func (h *AdminHandler) Regenerate(c *gin.Context) {
	imageID, err := strconv.ParseInt(c.Param("image_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image id"})
		return
	}

	var req models.AdminRegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	video, err := h.orchestrator.RegenerateWithPrompt(context.Background(), imageID, req.Prompt)
	if err != nil {
		var vErr *pipeline.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid prompt", Message: vErr.Msg})
			return
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "image not found"})
			return
		case video != nil:
			// Generation failed; the recorded iteration still tells the
			// admin what to retry.
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to regenerate", Message: err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, models.AdminStatusResponse{
		ImageID:   imageID,
		VideoID:   video.ID,
		Status:    string(video.Status),
		VideoPath: video.VideoPath.String,
		VideoURL:  video.VideoURL.String,
	})
}

// UploadFinalVideo replaces an image's deliverable with an
// admin-rendered video. The file lands in the videos directory, and in
// the Supabase bucket when storage is configured; the latest video row
// is marked succeeded and the image mirror updated.
func (h *AdminHandler) UploadFinalVideo(c *gin.Context) {
	imageID, err := strconv.ParseInt(c.Param("image_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image id"})
		return
	}

	img, err := h.store.GetUploadedImage(imageID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load image", Message: err.Error()})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing video file", Message: err.Error()})
		return
	}

	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read video file", Message: err.Error()})
		return
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read video file", Message: err.Error()})
		return
	}

	filename := fmt.Sprintf("final_%d_%d.mp4", imageID, time.Now().Unix())
	videoPath := filepath.Join(h.videosDir, filename)
	if err := os.WriteFile(videoPath, data, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to save video file", Message: err.Error()})
		return
	}

	videoURL := h.baseURL + "/videos/" + filename
	if h.storageClient != nil {
		if _, publicURL, err := h.storageClient.UploadFinalVideo(img.OrderID, filename, data); err != nil {
			log.WithField("image_id", imageID).Errorf("failed to upload final video to storage: %v", err)
		} else {
			videoURL = publicURL
		}
	}

	video, err := h.store.LatestVideoForImage(imageID)
	if errors.Is(err, store.ErrNotFound) {
		video = &models.Video{
			ImageID: imageID,
			Prompt:  img.Prompt.String,
			Status:  models.StatusSucceeded,
		}
		if err := h.store.CreateVideo(video); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create video record", Message: err.Error()})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load video", Message: err.Error()})
		return
	}

	if err := h.store.UpdateVideoResult(video.ID, models.StatusSucceeded, videoPath, videoURL, ""); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update video record", Message: err.Error()})
		return
	}
	if err := h.store.SetImageVideo(imageID, videoPath, videoURL, time.Now()); err != nil {
		log.WithField("image_id", imageID).Errorf("failed to mirror final video onto image: %v", err)
	}

	c.JSON(http.StatusOK, models.AdminStatusResponse{
		ImageID:   imageID,
		VideoID:   video.ID,
		Status:    string(models.StatusSucceeded),
		VideoPath: videoPath,
		VideoURL:  videoURL,
	})
}
