package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"estate-video-backend/internal/models"
	"estate-video-backend/internal/runway"
	"estate-video-backend/internal/store"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence surface the orchestrator drives.
type Store interface {
	GetOrder(orderID int64) (*models.Order, error)
	CreateUploadedImage(img *models.UploadedImage) error
	GetUploadedImage(imageID int64) (*models.UploadedImage, error)
	UpdateImagePrompt(imageID int64, prompt string) error
	SetImageVideo(imageID int64, videoPath, videoURL string, generatedAt time.Time) error
	CreateVideo(v *models.Video) error
	GetVideo(videoID int64) (*models.Video, error)
	LatestVideoForImage(imageID int64) (*models.Video, error)
	MarkVideoProcessing(videoID int64, remoteJobID string) error
	UpdateVideoStatus(videoID int64, status models.VideoStatus) error
	UpdateVideoResult(videoID int64, status models.VideoStatus, videoPath, videoURL, remoteJobID string) error
	CreateFeedback(f *models.Feedback) error
}

// PromptEngine derives and revises generation prompts. Implementations
// degrade to fallbacks instead of erroring so the pipeline never stalls
// on prompt work.
type PromptEngine interface {
	Describe(ctx context.Context, image []byte) string
	Revise(ctx context.Context, original, feedback string) string
}

// Notifier records user-facing events. Best-effort.
type Notifier interface {
	Notify(userID int64, category, message string)
}

// UploadedFile is one file the upload handler already wrote to the
// uploads directory.
type UploadedFile struct {
	OriginalName string
	StoredName   string
}

// Orchestrator runs the image-to-video production pipeline: prompt
// derivation, generation submission, polling, persistence of results,
// and feedback-driven regeneration.
type Orchestrator struct {
	store     Store
	generator runway.Generator
	prompts   PromptEngine
	notifier  Notifier

	uploadsDir           string
	videosDir            string
	baseURL              string
	regenerateOnFeedback bool
}

func New(st Store, gen runway.Generator, prompts PromptEngine, notifier Notifier, uploadsDir, videosDir, baseURL string, regenerateOnFeedback bool) *Orchestrator {
	return &Orchestrator{
		store:                st,
		generator:            gen,
		prompts:              prompts,
		notifier:             notifier,
		uploadsDir:           uploadsDir,
		videosDir:            videosDir,
		baseURL:              strings.TrimRight(baseURL, "/"),
		regenerateOnFeedback: regenerateOnFeedback,
	}
}

// ProcessOrder runs the full pipeline for every uploaded file of an
// order, strictly in upload order, one generation in flight at a time.
// A failure on one image marks that image's video failed and moves on;
// it never aborts the rest of the batch.
func (o *Orchestrator) ProcessOrder(ctx context.Context, order *models.Order, files []UploadedFile) {
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(o.uploadsDir, f.StoredName))
		if err != nil {
			log.WithField("order_id", order.ID).Errorf("failed to read uploaded file %s: %v", f.OriginalName, err)
			continue
		}

		img := &models.UploadedImage{
			OrderID:        order.ID,
			Filename:       f.OriginalName,
			StoredFilename: f.StoredName,
		}
		if err := o.store.CreateUploadedImage(img); err != nil {
			log.WithField("order_id", order.ID).Errorf("failed to record uploaded image %s: %v", f.OriginalName, err)
			continue
		}

		prompt := o.prompts.Describe(ctx, data)
		if err := o.store.UpdateImagePrompt(img.ID, prompt); err != nil {
			log.WithField("image_id", img.ID).Errorf("failed to persist prompt: %v", err)
		}

		video := &models.Video{
			ImageID: img.ID,
			Prompt:  prompt,
			Status:  models.StatusQueued,
		}
		if err := o.store.CreateVideo(video); err != nil {
			log.WithField("image_id", img.ID).Errorf("failed to create video record: %v", err)
			continue
		}

		if err := o.runGeneration(ctx, order.UserID.Int64, img, video, data); err != nil {
			log.WithFields(log.Fields{
				"order_id": order.ID,
				"image_id": img.ID,
				"video_id": video.ID,
			}).Errorf("generation failed: %v", err)
		}
	}
}

// RegenerateFromFeedback merges client feedback into the video's prompt
// and starts a new iteration chained to the original. Blank feedback is
// rejected before any row is written.
func (o *Orchestrator) RegenerateFromFeedback(ctx context.Context, videoID int64, feedbackText string) (*models.Feedback, *models.Video, error) {
	if strings.TrimSpace(feedbackText) == "" {
		return nil, nil, &ValidationError{Msg: "feedback text is required"}
	}

	parent, err := o.store.GetVideo(videoID)
	if err != nil {
		return nil, nil, err
	}

	img, err := o.store.GetUploadedImage(parent.ImageID)
	if err != nil {
		return nil, nil, err
	}

	order, err := o.store.GetOrder(img.OrderID)
	if err != nil {
		return nil, nil, err
	}

	newPrompt := o.prompts.Revise(ctx, parent.Prompt, feedbackText)

	feedback := &models.Feedback{
		VideoID:      parent.ID,
		FeedbackText: feedbackText,
		NewPrompt:    newPrompt,
	}
	if err := o.store.CreateFeedback(feedback); err != nil {
		return nil, nil, fmt.Errorf("failed to record feedback: %w", err)
	}

	child, err := o.startIteration(ctx, order, img, parent, newPrompt)
	return feedback, child, err
}

// RegenerateWithPrompt starts a new iteration for the image with an
// admin-supplied prompt, chained to the latest iteration if one exists.
func (o *Orchestrator) RegenerateWithPrompt(ctx context.Context, imageID int64, prompt string) (*models.Video, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &ValidationError{Msg: "prompt is required"}
	}

	img, err := o.store.GetUploadedImage(imageID)
	if err != nil {
		return nil, err
	}

	order, err := o.store.GetOrder(img.OrderID)
	if err != nil {
		return nil, err
	}

	parent, err := o.store.LatestVideoForImage(imageID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return o.startIteration(ctx, order, img, parent, prompt)
}

// OverrideStatus forces the latest iteration of an image into the given
// status. Re-applying the current status is a no-op. If the image has no
// video row yet, one is created carrying the forced status so the order
// view reflects the override.
func (o *Orchestrator) OverrideStatus(imageID int64, status models.VideoStatus) (*models.Video, error) {
	if !status.Valid() {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid status %q", status)}
	}

	video, err := o.store.LatestVideoForImage(imageID)
	if errors.Is(err, store.ErrNotFound) {
		img, imgErr := o.store.GetUploadedImage(imageID)
		if imgErr != nil {
			return nil, imgErr
		}
		video = &models.Video{
			ImageID: img.ID,
			Prompt:  img.Prompt.String,
			Status:  status,
		}
		if err := o.store.CreateVideo(video); err != nil {
			return nil, fmt.Errorf("failed to create video record: %w", err)
		}
		return video, nil
	}
	if err != nil {
		return nil, err
	}

	if video.Status == status {
		return video, nil
	}

	if err := o.store.UpdateVideoStatus(video.ID, status); err != nil {
		return nil, err
	}
	video.Status = status
	return video, nil
}

// startIteration creates the child video row and, when synchronous
// regeneration is enabled, runs the generation before returning.
func (o *Orchestrator) startIteration(ctx context.Context, order *models.Order, img *models.UploadedImage, parent *models.Video, prompt string) (*models.Video, error) {
	child := &models.Video{
		ImageID: img.ID,
		Prompt:  prompt,
		Status:  models.StatusQueued,
	}
	if parent != nil {
		child.ParentVideoID.Int64 = parent.ID
		child.ParentVideoID.Valid = true
		child.Iteration = parent.Iteration + 1
	}
	if err := o.store.CreateVideo(child); err != nil {
		return nil, fmt.Errorf("failed to create video record: %w", err)
	}

	if !o.regenerateOnFeedback {
		return child, nil
	}

	data, err := os.ReadFile(filepath.Join(o.uploadsDir, img.StoredFilename))
	if err != nil {
		if updErr := o.store.UpdateVideoStatus(child.ID, models.StatusFailed); updErr != nil {
			log.WithField("video_id", child.ID).Errorf("failed to mark video failed: %v", updErr)
		}
		child.Status = models.StatusFailed
		return child, fmt.Errorf("failed to read source image: %w", err)
	}

	if err := o.runGeneration(ctx, order.UserID.Int64, img, child, data); err != nil {
		return child, err
	}
	return child, nil
}

// runGeneration submits the video's prompt and image to the generation
// provider, blocks on the outcome, and persists it. On success the
// owning image row mirrors the latest deliverable.
func (o *Orchestrator) runGeneration(ctx context.Context, userID int64, img *models.UploadedImage, video *models.Video, imageData []byte) error {
	result, err := o.generator.SubmitAndAwait(ctx, runway.Request{
		Prompt: video.Prompt,
		Image:  imageData,
		Ratio:  ratioFor(imageData),
		OnJobAccepted: func(jobID string) {
			if err := o.store.MarkVideoProcessing(video.ID, jobID); err != nil {
				log.WithField("video_id", video.ID).Errorf("failed to mark video processing: %v", err)
			}
		},
	})
	if err != nil {
		if updErr := o.store.UpdateVideoStatus(video.ID, models.StatusFailed); updErr != nil {
			log.WithField("video_id", video.ID).Errorf("failed to mark video failed: %v", updErr)
		}
		video.Status = models.StatusFailed
		o.notifier.Notify(userID, "generation_failed",
			fmt.Sprintf("Video generation for %s did not complete. Our team has been notified.", img.Filename))
		return err
	}

	filename := uuid.New().String() + ".mp4"
	videoPath := filepath.Join(o.videosDir, filename)
	if err := os.WriteFile(videoPath, result.Data, 0644); err != nil {
		if updErr := o.store.UpdateVideoStatus(video.ID, models.StatusFailed); updErr != nil {
			log.WithField("video_id", video.ID).Errorf("failed to mark video failed: %v", updErr)
		}
		video.Status = models.StatusFailed
		return fmt.Errorf("failed to save generated video: %w", err)
	}

	videoURL := o.baseURL + "/videos/" + filename
	if err := o.store.UpdateVideoResult(video.ID, models.StatusSucceeded, videoPath, videoURL, result.JobID); err != nil {
		return fmt.Errorf("failed to persist video result: %w", err)
	}
	video.Status = models.StatusSucceeded
	video.VideoPath.String, video.VideoPath.Valid = videoPath, true
	video.VideoURL.String, video.VideoURL.Valid = videoURL, true

	if err := o.store.SetImageVideo(img.ID, videoPath, videoURL, time.Now()); err != nil {
		log.WithField("image_id", img.ID).Errorf("failed to mirror video onto image: %v", err)
	}

	o.notifier.Notify(userID, "video_ready",
		fmt.Sprintf("Your video for %s is ready to view.", img.Filename))
	return nil
}

// ratioFor picks the output aspect ratio from the source image
// dimensions. Square images and undecodable files fall back to
// landscape.
func ratioFor(imageData []byte) runway.AspectRatio {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil || cfg.Width >= cfg.Height {
		return runway.RatioLandscape
	}
	return runway.RatioPortrait
}
