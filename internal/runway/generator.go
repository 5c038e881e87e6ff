package runway

import (
	"context"
	"fmt"
)

// AspectRatio is decided by the caller from the source image dimensions,
// never by the generation client.
type AspectRatio string

const (
	RatioLandscape AspectRatio = "1280:720"
	RatioPortrait  AspectRatio = "720:1280"
)

// Request carries one image-to-video generation job.
type Request struct {
	Prompt string
	Image  []byte
	Ratio  AspectRatio

	// OnJobAccepted fires once the provider acknowledges the submission
	// with a remote job id, before polling begins. The mock generator
	// never calls it.
	OnJobAccepted func(jobID string)
}

// Result is the terminal outcome of a successful generation.
type Result struct {
	JobID     string
	OutputURL string
	Data      []byte
}

// Generator submits a generation job and blocks until a terminal outcome.
type Generator interface {
	SubmitAndAwait(ctx context.Context, req Request) (*Result, error)
}

// Stages at which a generation can fail. Each is distinguishable so the
// caller can mark the owning video failed instead of leaving it stuck.
type FailureStage string

const (
	StageSubmit        FailureStage = "submit"
	StagePoll          FailureStage = "poll"
	StageProvider      FailureStage = "provider"
	StageTimeout       FailureStage = "timeout"
	StageMissingOutput FailureStage = "missing_output"
	StageDownload      FailureStage = "download"
)

type GenerationError struct {
	Stage FailureStage
	JobID string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("generation failed at %s (job %s): %v", e.Stage, e.JobID, e.Err)
	}
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
