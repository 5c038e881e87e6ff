package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"estate-video-backend/internal/models"
	"estate-video-backend/internal/pipeline"
	"estate-video-backend/internal/runway"
	"estate-video-backend/internal/store"
)

// fakeStore is an in-memory stand-in for the Postgres store, matching
// its defaulting behavior for new video rows.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[int64]*models.Order
	images   map[int64]*models.UploadedImage
	videos   map[int64]*models.Video
	feedback []*models.Feedback
	nextID   int64

	statusWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[int64]*models.Order),
		images: make(map[int64]*models.UploadedImage),
		videos: make(map[int64]*models.Video),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addOrder(userID int64) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := &models.Order{ID: f.id(), Package: "Starter", CreatedAt: time.Now()}
	if userID != 0 {
		order.UserID.Int64, order.UserID.Valid = userID, true
	}
	f.orders[order.ID] = order
	return order
}

func (f *fakeStore) GetOrder(orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) CreateUploadedImage(img *models.UploadedImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img.ID = f.id()
	img.UploadTime = time.Now()
	cp := *img
	f.images[img.ID] = &cp
	return nil
}

func (f *fakeStore) GetUploadedImage(imageID int64) (*models.UploadedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[imageID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeStore) UpdateImagePrompt(imageID int64, prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[imageID]
	if !ok {
		return store.ErrNotFound
	}
	img.Prompt.String, img.Prompt.Valid = prompt, true
	return nil
}

func (f *fakeStore) SetImageVideo(imageID int64, videoPath, videoURL string, generatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[imageID]
	if !ok {
		return store.ErrNotFound
	}
	img.VideoPath.String, img.VideoPath.Valid = videoPath, true
	img.VideoURL.String, img.VideoURL.Valid = videoURL, true
	img.VideoGeneratedAt.Time, img.VideoGeneratedAt.Valid = generatedAt, true
	return nil
}

func (f *fakeStore) CreateVideo(v *models.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.Iteration == 0 {
		v.Iteration = 1
	}
	if v.Status == "" {
		v.Status = models.StatusQueued
	}
	v.ID = f.id()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	cp := *v
	f.videos[v.ID] = &cp
	return nil
}

func (f *fakeStore) GetVideo(videoID int64) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[videoID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) LatestVideoForImage(imageID int64) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Video
	for _, v := range f.videos {
		if v.ImageID != imageID {
			continue
		}
		if latest == nil || v.Iteration > latest.Iteration ||
			(v.Iteration == latest.Iteration && v.ID > latest.ID) {
			latest = v
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeStore) MarkVideoProcessing(videoID int64, remoteJobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[videoID]
	if !ok {
		return store.ErrNotFound
	}
	v.Status = models.StatusProcessing
	v.RemoteJobID.String, v.RemoteJobID.Valid = remoteJobID, true
	return nil
}

func (f *fakeStore) UpdateVideoStatus(videoID int64, status models.VideoStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[videoID]
	if !ok {
		return store.ErrNotFound
	}
	v.Status = status
	f.statusWrites++
	return nil
}

func (f *fakeStore) UpdateVideoResult(videoID int64, status models.VideoStatus, videoPath, videoURL, remoteJobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[videoID]
	if !ok {
		return store.ErrNotFound
	}
	v.Status = status
	v.VideoPath.String, v.VideoPath.Valid = videoPath, true
	v.VideoURL.String, v.VideoURL.Valid = videoURL, true
	if remoteJobID != "" {
		v.RemoteJobID.String, v.RemoteJobID.Valid = remoteJobID, true
	}
	return nil
}

func (f *fakeStore) CreateFeedback(fb *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb.ID = f.id()
	fb.CreatedAt = time.Now()
	cp := *fb
	f.feedback = append(f.feedback, &cp)
	return nil
}

func (f *fakeStore) videosForImage(imageID int64) []*models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Video
	for _, v := range f.videos {
		if v.ImageID == imageID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out
}

type staticPrompts struct {
	describe string
	revise   string
}

func (s staticPrompts) Describe(ctx context.Context, image []byte) string {
	return s.describe
}

func (s staticPrompts) Revise(ctx context.Context, original, feedback string) string {
	if s.revise != "" {
		return s.revise
	}
	return original + " Incorporate this revision: " + feedback + "."
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(userID int64, category, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, category)
}

type failingGenerator struct{}

func (failingGenerator) SubmitAndAwait(ctx context.Context, req runway.Request) (*runway.Result, error) {
	return nil, &runway.GenerationError{Stage: runway.StageProvider, JobID: "job-x", Err: assert.AnError}
}

// flakyGenerator fails on selected prompts and succeeds otherwise.
type flakyGenerator struct {
	failOn string
}

func (g flakyGenerator) SubmitAndAwait(ctx context.Context, req runway.Request) (*runway.Result, error) {
	if req.Prompt == g.failOn {
		return nil, &runway.GenerationError{Stage: runway.StageProvider, Err: assert.AnError}
	}
	return &runway.Result{JobID: "job-ok", Data: []byte("video")}, nil
}

type testEnv struct {
	store      *fakeStore
	notifier   *recordingNotifier
	uploadsDir string
	videosDir  string
}

func newOrchestrator(t *testing.T, gen runway.Generator, regenerate bool) (*pipeline.Orchestrator, *testEnv) {
	t.Helper()
	env := &testEnv{
		store:      newFakeStore(),
		notifier:   &recordingNotifier{},
		uploadsDir: t.TempDir(),
		videosDir:  t.TempDir(),
	}
	orch := pipeline.New(env.store, gen, staticPrompts{describe: "cinematic orbit"}, env.notifier,
		env.uploadsDir, env.videosDir, "http://localhost:8080", regenerate)
	return orch, env
}

func (e *testEnv) writeUpload(t *testing.T, name string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(e.uploadsDir, name), []byte("not-a-real-jpeg"), 0644)
	assert.NoError(t, err)
}

func TestProcessOrder_AllImagesSucceed(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)
	order := env.store.addOrder(7)

	var files []pipeline.UploadedFile
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("photo-%d.jpg", i)
		env.writeUpload(t, name)
		files = append(files, pipeline.UploadedFile{OriginalName: name, StoredName: name})
	}

	orch.ProcessOrder(context.Background(), order, files)

	assert.Len(t, env.store.images, 3)
	for id, img := range env.store.images {
		assert.Equal(t, "cinematic orbit", img.Prompt.String)
		assert.True(t, img.VideoPath.Valid, "image %d should mirror its video", id)
		assert.True(t, img.VideoGeneratedAt.Valid)

		videos := env.store.videosForImage(id)
		assert.Len(t, videos, 1)
		assert.Equal(t, models.StatusSucceeded, videos[0].Status)
		assert.Equal(t, 1, videos[0].Iteration)

		_, err := os.Stat(videos[0].VideoPath.String)
		assert.NoError(t, err, "generated video file should exist")
	}

	assert.Len(t, env.notifier.events, 3)
	assert.Equal(t, "video_ready", env.notifier.events[0])
}

func TestProcessOrder_UnreadableFileSkipped(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)
	order := env.store.addOrder(7)

	env.writeUpload(t, "ok.jpg")
	files := []pipeline.UploadedFile{
		{OriginalName: "missing.jpg", StoredName: "missing.jpg"},
		{OriginalName: "ok.jpg", StoredName: "ok.jpg"},
	}

	orch.ProcessOrder(context.Background(), order, files)

	assert.Len(t, env.store.images, 1)
	for _, img := range env.store.images {
		assert.Equal(t, "ok.jpg", img.Filename)
	}
}

func TestProcessOrder_FailureDoesNotAbortBatch(t *testing.T) {
	orch, env := newOrchestrator(t, failingGenerator{}, true)
	order := env.store.addOrder(7)

	env.writeUpload(t, "a.jpg")
	env.writeUpload(t, "b.jpg")
	files := []pipeline.UploadedFile{
		{OriginalName: "a.jpg", StoredName: "a.jpg"},
		{OriginalName: "b.jpg", StoredName: "b.jpg"},
	}

	orch.ProcessOrder(context.Background(), order, files)

	assert.Len(t, env.store.images, 2)
	for id, img := range env.store.images {
		videos := env.store.videosForImage(id)
		assert.Len(t, videos, 1)
		assert.Equal(t, models.StatusFailed, videos[0].Status)
		assert.False(t, img.VideoPath.Valid, "failed generation must not touch the image mirror")
	}

	assert.Equal(t, []string{"generation_failed", "generation_failed"}, env.notifier.events)
}

func TestRegenerateFromFeedback_CreatesChainedIteration(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)
	order := env.store.addOrder(7)

	env.writeUpload(t, "a.jpg")
	orch.ProcessOrder(context.Background(), order, []pipeline.UploadedFile{
		{OriginalName: "a.jpg", StoredName: "a.jpg"},
	})

	parent, err := env.store.LatestVideoForImage(1 + order.ID)
	assert.NoError(t, err)

	feedback, child, err := orch.RegenerateFromFeedback(context.Background(), parent.ID, "warmer light")
	assert.NoError(t, err)

	assert.Equal(t, parent.ID, feedback.VideoID)
	assert.Equal(t, "warmer light", feedback.FeedbackText)
	assert.Contains(t, feedback.NewPrompt, "warmer light")

	assert.Equal(t, parent.ImageID, child.ImageID)
	assert.Equal(t, parent.Iteration+1, child.Iteration)
	assert.True(t, child.ParentVideoID.Valid)
	assert.Equal(t, parent.ID, child.ParentVideoID.Int64)
	assert.Equal(t, models.StatusSucceeded, child.Status)

	latest, err := env.store.LatestVideoForImage(parent.ImageID)
	assert.NoError(t, err)
	assert.Equal(t, child.ID, latest.ID)
}

func TestRegenerateFromFeedback_BlankRejected(t *testing.T) {
	orch, _ := newOrchestrator(t, runway.NewMockGenerator(), true)

	_, _, err := orch.RegenerateFromFeedback(context.Background(), 1, "   ")

	var vErr *pipeline.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestRegenerateFromFeedback_UnknownVideo(t *testing.T) {
	orch, _ := newOrchestrator(t, runway.NewMockGenerator(), true)

	_, _, err := orch.RegenerateFromFeedback(context.Background(), 42, "warmer light")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRegenerateFromFeedback_DeferredWhenDisabled(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), false)
	order := env.store.addOrder(7)

	env.writeUpload(t, "a.jpg")
	orch.ProcessOrder(context.Background(), order, []pipeline.UploadedFile{
		{OriginalName: "a.jpg", StoredName: "a.jpg"},
	})

	parent, err := env.store.LatestVideoForImage(1 + order.ID)
	assert.NoError(t, err)

	_, child, err := orch.RegenerateFromFeedback(context.Background(), parent.ID, "warmer light")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusQueued, child.Status)
}

func TestRegenerateFromFeedback_GenerationFailureRecorded(t *testing.T) {
	gen := flakyGenerator{failOn: "cinematic orbit Incorporate this revision: warmer light."}
	orch, env := newOrchestrator(t, gen, true)
	order := env.store.addOrder(7)

	env.writeUpload(t, "a.jpg")
	orch.ProcessOrder(context.Background(), order, []pipeline.UploadedFile{
		{OriginalName: "a.jpg", StoredName: "a.jpg"},
	})

	parent, err := env.store.LatestVideoForImage(1 + order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, parent.Status)

	_, child, err := orch.RegenerateFromFeedback(context.Background(), parent.ID, "warmer light")
	assert.Error(t, err)
	assert.NotNil(t, child)
	assert.Equal(t, models.StatusFailed, child.Status)

	// The failed child is still the latest iteration; the parent's
	// succeeded output stays untouched.
	stored, err := env.store.GetVideo(parent.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, stored.Status)
}

func TestRegenerateWithPrompt_ChainsFromLatest(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)
	order := env.store.addOrder(7)

	env.writeUpload(t, "a.jpg")
	orch.ProcessOrder(context.Background(), order, []pipeline.UploadedFile{
		{OriginalName: "a.jpg", StoredName: "a.jpg"},
	})

	first, err := env.store.LatestVideoForImage(1 + order.ID)
	assert.NoError(t, err)

	child, err := orch.RegenerateWithPrompt(context.Background(), first.ImageID, "dramatic night fly-over")
	assert.NoError(t, err)
	assert.Equal(t, "dramatic night fly-over", child.Prompt)
	assert.Equal(t, first.Iteration+1, child.Iteration)
	assert.Equal(t, models.StatusSucceeded, child.Status)
}

func TestOverrideStatus_Idempotent(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)
	order := env.store.addOrder(7)

	env.writeUpload(t, "a.jpg")
	orch.ProcessOrder(context.Background(), order, []pipeline.UploadedFile{
		{OriginalName: "a.jpg", StoredName: "a.jpg"},
	})

	video, err := env.store.LatestVideoForImage(1 + order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, video.Status)

	writesBefore := env.store.statusWrites
	same, err := orch.OverrideStatus(video.ImageID, models.StatusSucceeded)
	assert.NoError(t, err)
	assert.Equal(t, video.ID, same.ID)
	assert.Equal(t, writesBefore, env.store.statusWrites, "re-applying the current status must not write")

	changed, err := orch.OverrideStatus(video.ImageID, models.StatusFailed)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, changed.Status)
	assert.Equal(t, writesBefore+1, env.store.statusWrites)
}

func TestOverrideStatus_CreatesRowWhenMissing(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)

	img := &models.UploadedImage{OrderID: 1, Filename: "a.jpg", StoredFilename: "a.jpg"}
	assert.NoError(t, env.store.CreateUploadedImage(img))

	video, err := orch.OverrideStatus(img.ID, models.StatusProcessing)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, video.Status)
	assert.Equal(t, 1, video.Iteration)

	latest, err := env.store.LatestVideoForImage(img.ID)
	assert.NoError(t, err)
	assert.Equal(t, video.ID, latest.ID)
}

func TestOverrideStatus_UnknownImage(t *testing.T) {
	orch, _ := newOrchestrator(t, runway.NewMockGenerator(), true)

	_, err := orch.OverrideStatus(99, models.StatusFailed)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestOverrideStatus_InvalidStatus(t *testing.T) {
	orch, _ := newOrchestrator(t, runway.NewMockGenerator(), true)

	_, err := orch.OverrideStatus(1, models.VideoStatus("done"))

	var vErr *pipeline.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestProcessOrder_NoFiles(t *testing.T) {
	orch, env := newOrchestrator(t, runway.NewMockGenerator(), true)
	order := env.store.addOrder(7)

	orch.ProcessOrder(context.Background(), order, nil)

	assert.Empty(t, env.store.images)
	assert.Empty(t, env.store.videos)
	assert.Empty(t, env.notifier.events)
}
