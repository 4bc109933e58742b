// Package gateway defines the contract with the generative provider: video
// generation, narration, script expansion and summarization, shot extraction,
// and document and image analysis. Every call is independent and awaited.
package gateway

import (
	"context"

	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

// Operation names, used in errors and logs.
const (
	OpGenerateVideo     = "generate_video"
	OpGenerateNarration = "generate_narration"
	OpExpandScript      = "expand_script"
	OpSummarizeScript   = "summarize_script"
	OpExtractShots      = "extract_shots"
	OpAnalyzeDocument   = "analyze_document"
	OpAnalyzeImages     = "analyze_images"
)

// MediaFile is an uploaded image or document passed through to the provider.
type MediaFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Video is a generated clip in its container format.
type Video struct {
	MIMEType string
	Data     []byte
}

type VideoGenerator interface {
	// GenerateVideo blocks until the provider's long-running operation finishes.
	// image is optional and used as the first frame reference.
	GenerateVideo(ctx context.Context, prompt string, image *MediaFile) (*Video, error)
}

type NarrationGenerator interface {
	GenerateNarration(ctx context.Context, prompt string) (string, error)
}

type ScriptWriter interface {
	ExpandScript(ctx context.Context, idea string) (string, error)
	SummarizeScript(ctx context.Context, script string) (string, error)
}

type StoryboardAnalyzer interface {
	ExtractShots(ctx context.Context, script string) ([]storyboard.Beat, error)
	AnalyzeDocument(ctx context.Context, doc MediaFile) (string, error)
	AnalyzeImages(ctx context.Context, images []MediaFile) ([]storyboard.Beat, error)
}

// Gateway is the full set of provider operations.
type Gateway interface {
	VideoGenerator
	NarrationGenerator
	ScriptWriter
	StoryboardAnalyzer
}
