package runway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a RunwayML-compatible image-to-video API: submit a
// task, poll it to a terminal state, download the output asset.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	pollInterval time.Duration
	maxAttempts  int
	httpClient   *http.Client
}

type taskIn struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText"`
	Ratio       string `json:"ratio"`
}

type taskOut struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Output  []string `json:"output"`
	Failure string   `json:"failure,omitempty"`
}

func NewClient(baseURL, apiKey, model string, pollInterval time.Duration, maxAttempts int) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SubmitAndAwait submits the job, polls to a terminal state, and
// downloads the output. Every failure carries a distinct stage so the
// caller can mark the owning video row failed.
func (c *Client) SubmitAndAwait(ctx context.Context, genReq Request) (*Result, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(genReq.Image)

	task, err := c.createTask(ctx, taskIn{
		Model:       c.model,
		PromptImage: dataURL,
		PromptText:  genReq.Prompt,
		Ratio:       string(genReq.Ratio),
	})
	if err != nil {
		return nil, &GenerationError{Stage: StageSubmit, Err: err}
	}
	if task.ID == "" {
		return nil, &GenerationError{Stage: StageSubmit, Err: fmt.Errorf("provider returned no job id")}
	}

	if genReq.OnJobAccepted != nil {
		genReq.OnJobAccepted(task.ID)
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		status, err := c.getTask(ctx, task.ID)
		if err != nil {
			return nil, &GenerationError{Stage: StagePoll, JobID: task.ID, Err: err}
		}

		switch strings.ToUpper(status.Status) {
		case "SUCCEEDED":
			if len(status.Output) == 0 || status.Output[0] == "" {
				return nil, &GenerationError{
					Stage: StageMissingOutput,
					JobID: task.ID,
					Err:   fmt.Errorf("task succeeded but returned no output url"),
				}
			}
			data, err := c.download(ctx, status.Output[0])
			if err != nil {
				return nil, &GenerationError{Stage: StageDownload, JobID: task.ID, Err: err}
			}
			return &Result{JobID: task.ID, OutputURL: status.Output[0], Data: data}, nil
		case "FAILED":
			reason := status.Failure
			if reason == "" {
				reason = "provider reported failure"
			}
			return nil, &GenerationError{Stage: StageProvider, JobID: task.ID, Err: fmt.Errorf("%s", reason)}
		}

		select {
		case <-ctx.Done():
			return nil, &GenerationError{Stage: StagePoll, JobID: task.ID, Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}
	}

	return nil, &GenerationError{
		Stage: StageTimeout,
		JobID: task.ID,
		Err:   fmt.Errorf("no terminal status after %d attempts", c.maxAttempts),
	}
}

func (c *Client) createTask(ctx context.Context, in taskIn) (*taskOut, error) {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/image_to_video"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to create task: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result taskOut
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

func (c *Client) getTask(ctx context.Context, taskID string) (*taskOut, error) {
	url := c.baseURL + "/tasks/" + taskID
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get task: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result taskOut
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

func (c *Client) download(ctx context.Context, assetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", assetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to download asset: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// RetryWithBackoff executes a function with exponential backoff retry logic.
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < len(backoffs) {
			time.Sleep(backoffs[i])
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
