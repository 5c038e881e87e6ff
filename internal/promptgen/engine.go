package promptgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// describeInstruction encodes the house style for generated video
// prompts: mood and lighting always described, camera motion built from
// at least two distinct stages, drone vocabulary for exteriors,
// steadicam/dolly vocabulary for interiors, and at least two elements of
// the scene explicitly animated.
const describeInstruction = "You are an award-winning film director creating cinematic real estate ads. " +
	"Given an image, write a detailed cinematic video prompt for an image-to-video model. " +
	"Rules: " +
	"1. Always describe mood and lighting. " +
	"2. Strong camera motion must use at least TWO distinct stages (e.g., orbit, arc, spiral, pull-back, tilt, reveal, fly-over). " +
	"Never default to only zooming. " +
	"3. For EXTERIOR: always use drone shots with varied movements (orbit, spiral, fly-over, pull-back, dive, sweeping arc). " +
	"Randomize the motion type so no two outputs feel repetitive. " +
	"4. For INTERIOR: use steadicam or dolly with smooth pans, tilts, and pivots that reveal depth and flow. " +
	"5. Every visible element must show natural animation - fans spin, curtains ripple, trees sway, chairs shift subtly, reflections shimmer, water ripples, clouds drift. " +
	"6. End every prompt by explicitly describing at least two of these animations, so the scene feels alive and realistic. " +
	"7. The overall tone must feel like a luxury property trailer - immersive, dynamic, and cinematic."

const reviseInstruction = "You improve prompts for an image-to-video model. " +
	"Rewrite the prompt concisely (<= 2 sentences), keep the original intent, strictly integrate the feedback, " +
	"avoid filler, and avoid technical camera jargon unless explicitly requested."

// FallbackPrompt is substituted whenever the vision model is unavailable
// or errors. The pipeline never stalls on prompt generation.
const FallbackPrompt = "Short, cinematic shot with warm lighting and smooth, elegant camera movement."

// ContentGenerator is the narrow slice of the Gemini model the engine
// needs. It exists so failures can be simulated in tests.
type ContentGenerator interface {
	Generate(ctx context.Context, parts ...genai.Part) (string, error)
}

// Engine derives cinematic prompts from images and revises prompts from
// client feedback. Both operations degrade to deterministic fallbacks on
// any failure; neither ever returns an error.
type Engine struct {
	vision  ContentGenerator
	reviser ContentGenerator
}

// NewEngine wires the engine to Gemini: a vision-capable model for image
// description and a cheaper model for prompt revision.
func NewEngine(apiKey string) (*Engine, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	vision := client.GenerativeModel("gemini-1.5-flash")
	vision.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(describeInstruction)}}
	vision.SetTemperature(0.8)
	vision.SetMaxOutputTokens(160)

	reviser := client.GenerativeModel("gemini-1.5-flash-8b")
	reviser.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(reviseInstruction)}}
	reviser.SetTemperature(0.6)
	reviser.SetMaxOutputTokens(200)

	return NewEngineWith(&geminiGenerator{model: vision}, &geminiGenerator{model: reviser}), nil
}

// NewEngineWith builds an engine from explicit generators.
func NewEngineWith(vision, reviser ContentGenerator) *Engine {
	return &Engine{vision: vision, reviser: reviser}
}

// Describe produces a cinematic prompt for the image. On any model
// failure it returns FallbackPrompt.
func (e *Engine) Describe(ctx context.Context, image []byte) string {
	if e.vision == nil {
		return FallbackPrompt
	}

	out, err := e.vision.Generate(ctx,
		genai.ImageData("jpeg", image),
		genai.Text("Analyze this image and output the cinematic video prompt."),
	)
	if err != nil {
		log.Errorf("prompt describe failed, using fallback: %v", err)
		return FallbackPrompt
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return FallbackPrompt
	}
	return out
}

// Revise merges free-text feedback into an existing prompt. On any model
// failure it falls back to a plain concatenation, so it never fails.
func (e *Engine) Revise(ctx context.Context, original, feedback string) string {
	merged := strings.TrimSpace(original + " Incorporate this revision: " + feedback + ".")

	if e.reviser == nil {
		return merged
	}

	out, err := e.reviser.Generate(ctx, genai.Text(
		"Original prompt: "+original+"\nUser feedback: "+feedback+"\nRewrite the prompt.",
	))
	if err != nil {
		log.Errorf("prompt revise failed, using concatenation fallback: %v", err)
		return merged
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return merged
	}
	return out
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

func (g *geminiGenerator) Generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini API returned no content")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("gemini API returned non-text content")
	}

	return string(text), nil
}
