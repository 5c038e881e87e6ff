package runway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"estate-video-backend/internal/runway"
)

type taskResponse struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Output  []string `json:"output,omitempty"`
	Failure string   `json:"failure,omitempty"`
}

// newProviderServer serves the submit endpoint plus a sequence of poll
// responses, one per poll request.
func newProviderServer(t *testing.T, polls []taskResponse) *httptest.Server {
	t.Helper()
	var pollCount int64

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/image_to_video", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gen4_turbo", body["model"])
		assert.NotEmpty(t, body["promptImage"])

		json.NewEncoder(w).Encode(taskResponse{ID: "task-1", Status: "PENDING"})
	})
	mux.HandleFunc("/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&pollCount, 1)
		idx := int(n) - 1
		if idx >= len(polls) {
			idx = len(polls) - 1
		}
		resp := polls[idx]
		for i, out := range resp.Output {
			resp.Output[i] = server.URL + out
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/output.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	})

	server = httptest.NewServer(mux)
	return server
}

func newTestClient(baseURL string, maxAttempts int) *runway.Client {
	return runway.NewClient(baseURL, "test-key", "gen4_turbo", 5*time.Millisecond, maxAttempts)
}

func TestClient_SubmitAndAwait_Success(t *testing.T) {
	server := newProviderServer(t, []taskResponse{
		{ID: "task-1", Status: "RUNNING"},
		{ID: "task-1", Status: "SUCCEEDED", Output: []string{"/output.mp4"}},
	})
	defer server.Close()

	client := newTestClient(server.URL, 10)

	var acceptedJobID string
	result, err := client.SubmitAndAwait(context.Background(), runway.Request{
		Prompt: "slow cinematic orbit",
		Image:  []byte{0xFF, 0xD8},
		Ratio:  runway.RatioLandscape,
		OnJobAccepted: func(jobID string) {
			acceptedJobID = jobID
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, "task-1", acceptedJobID)
	assert.Equal(t, "task-1", result.JobID)
	assert.Equal(t, []byte("video-bytes"), result.Data)
	assert.Contains(t, result.OutputURL, "/output.mp4")
}

func TestClient_SubmitAndAwait_ProviderFailure(t *testing.T) {
	server := newProviderServer(t, []taskResponse{
		{ID: "task-1", Status: "FAILED", Failure: "content moderation"},
	})
	defer server.Close()

	client := newTestClient(server.URL, 10)

	_, err := client.SubmitAndAwait(context.Background(), runway.Request{
		Prompt: "p", Image: []byte{1}, Ratio: runway.RatioPortrait,
	})

	var genErr *runway.GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, runway.StageProvider, genErr.Stage)
	assert.Equal(t, "task-1", genErr.JobID)
	assert.Contains(t, genErr.Error(), "content moderation")
}

func TestClient_SubmitAndAwait_MissingOutput(t *testing.T) {
	server := newProviderServer(t, []taskResponse{
		{ID: "task-1", Status: "SUCCEEDED"},
	})
	defer server.Close()

	client := newTestClient(server.URL, 10)

	_, err := client.SubmitAndAwait(context.Background(), runway.Request{
		Prompt: "p", Image: []byte{1}, Ratio: runway.RatioLandscape,
	})

	var genErr *runway.GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, runway.StageMissingOutput, genErr.Stage)
}

func TestClient_SubmitAndAwait_Timeout(t *testing.T) {
	server := newProviderServer(t, []taskResponse{
		{ID: "task-1", Status: "RUNNING"},
	})
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.SubmitAndAwait(context.Background(), runway.Request{
		Prompt: "p", Image: []byte{1}, Ratio: runway.RatioLandscape,
	})

	var genErr *runway.GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, runway.StageTimeout, genErr.Stage)
}

func TestClient_SubmitAndAwait_SubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.SubmitAndAwait(context.Background(), runway.Request{
		Prompt: "p", Image: []byte{1}, Ratio: runway.RatioLandscape,
	})

	var genErr *runway.GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, runway.StageSubmit, genErr.Stage)
}

func TestClient_SubmitAndAwait_ContextCanceled(t *testing.T) {
	server := newProviderServer(t, []taskResponse{
		{ID: "task-1", Status: "RUNNING"},
	})
	defer server.Close()

	client := runway.NewClient(server.URL, "test-key", "gen4_turbo", time.Second, 100)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.SubmitAndAwait(ctx, runway.Request{
		Prompt: "p", Image: []byte{1}, Ratio: runway.RatioLandscape,
	})

	var genErr *runway.GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, runway.StagePoll, genErr.Stage)
}

func TestClient_RetryWithBackoff(t *testing.T) {
	client := newTestClient("https://api.test.com/v1", 3)

	callCount := 0
	err := client.RetryWithBackoff(func() error {
		callCount++
		if callCount < 3 {
			return assert.AnError
		}
		return nil
	}, 3)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestMockGenerator_Immediate(t *testing.T) {
	mock := runway.NewMockGenerator()

	callbackFired := false
	result, err := mock.SubmitAndAwait(context.Background(), runway.Request{
		Prompt: "p",
		Image:  []byte{1},
		Ratio:  runway.RatioLandscape,
		OnJobAccepted: func(string) {
			callbackFired = true
		},
	})

	assert.NoError(t, err)
	assert.False(t, callbackFired)
	assert.Contains(t, result.JobID, "mock-")
	assert.NotNil(t, result.Data)
}
