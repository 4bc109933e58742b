// Package gemini implements the generation gateway on top of the Gemini API:
// Veo for image-to-video and Gemini for text and document understanding.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

const (
	DefaultTextModel    = "gemini-2.5-flash"
	DefaultVideoModel   = "veo-2.0-generate-001"
	DefaultPollInterval = 10 * time.Second
)

type Config struct {
	APIKey       string
	TextModel    string
	VideoModel   string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Provider holds the provider credential and talks to the Gemini API.
type Provider struct {
	backend      backend
	textModel    string
	videoModel   string
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ gateway.Gateway = (*Provider)(nil)

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	b, err := newSDKBackend(ctx, cfg.APIKey, httpClient)
	if err != nil {
		return nil, err
	}
	return newProvider(b, cfg), nil
}

func newProvider(b backend, cfg Config) *Provider {
	p := &Provider{
		backend:      b,
		textModel:    cfg.TextModel,
		videoModel:   cfg.VideoModel,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}
	if p.textModel == "" {
		p.textModel = DefaultTextModel
	}
	if p.videoModel == "" {
		p.videoModel = DefaultVideoModel
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = logging.WithComponent(p.logger, "gemini")
	return p
}

// GenerateVideo starts a Veo operation, polls it until done and returns the
// first generated video.
func (p *Provider) GenerateVideo(ctx context.Context, prompt string, image *gateway.MediaFile) (*gateway.Video, error) {
	const op = gateway.OpGenerateVideo
	if strings.TrimSpace(prompt) == "" {
		return nil, gateway.InvalidRequest(op, "a prompt is required to generate a video")
	}

	var img *genai.Image
	if image != nil {
		img = &genai.Image{ImageBytes: image.Data, MIMEType: image.MIMEType}
	}

	start := time.Now()
	operation, err := p.backend.generateVideos(ctx, p.videoModel, prompt, img, &genai.GenerateVideosConfig{NumberOfVideos: 1})
	if err != nil {
		return nil, classify(op, err)
	}
	p.logger.Info("video operation started", "operation", operation.Name, "model", p.videoModel, "with_image", img != nil)

	for !operation.Done {
		timer := time.NewTimer(p.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		operation, err = p.backend.getVideosOperation(ctx, operation)
		if err != nil {
			return nil, classify(op, err)
		}
		p.logger.Debug("video operation polled", "operation", operation.Name, "done", operation.Done)
	}

	if operation.Error != nil {
		msg, _ := operation.Error["message"].(string)
		if msg == "" {
			msg = "An unknown error occurred during video generation."
		}
		return nil, classify(op, errors.New(msg))
	}

	if operation.Response == nil || len(operation.Response.GeneratedVideos) == 0 ||
		operation.Response.GeneratedVideos[0].Video == nil {
		return nil, gateway.EmptyResult(op, "No download link was found for the video. The request may be inappropriate.")
	}

	video := operation.Response.GeneratedVideos[0].Video
	data, mimeType := video.VideoBytes, video.MIMEType
	if len(data) == 0 {
		if video.URI == "" {
			return nil, gateway.EmptyResult(op, "No download link was found for the video. The request may be inappropriate.")
		}
		data, mimeType, err = p.backend.download(ctx, video.URI)
		if err != nil {
			return nil, classify(op, err)
		}
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	p.logger.Info("video generated",
		"operation", operation.Name,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &gateway.Video{MIMEType: mimeType, Data: data}, nil
}

func (p *Provider) GenerateNarration(ctx context.Context, prompt string) (string, error) {
	return p.generateText(ctx, gateway.OpGenerateNarration, genai.Text(narrationPrompt(prompt)),
		"The AI could not generate the narration.")
}

func (p *Provider) ExpandScript(ctx context.Context, idea string) (string, error) {
	if strings.TrimSpace(idea) == "" {
		return "", gateway.InvalidRequest(gateway.OpExpandScript, "an idea is required")
	}
	return p.generateText(ctx, gateway.OpExpandScript, genai.Text(expandScriptPrompt(idea)),
		"The AI could not create a script.")
}

func (p *Provider) SummarizeScript(ctx context.Context, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", gateway.InvalidRequest(gateway.OpSummarizeScript, "a script is required")
	}
	return p.generateText(ctx, gateway.OpSummarizeScript, genai.Text(summarizeScriptPrompt(script)),
		"The AI could not summarize the script.")
}

func (p *Provider) AnalyzeDocument(ctx context.Context, doc gateway.MediaFile) (string, error) {
	if len(doc.Data) == 0 {
		return "", gateway.InvalidRequest(gateway.OpAnalyzeDocument, "a document is required")
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(doc.Data, doc.MIMEType),
		genai.NewPartFromText(analyzeDocumentPrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return p.generateText(ctx, gateway.OpAnalyzeDocument, contents,
		"The AI could not create a script from the document.")
}

func (p *Provider) ExtractShots(ctx context.Context, script string) ([]storyboard.Beat, error) {
	if strings.TrimSpace(script) == "" {
		return nil, gateway.InvalidRequest(gateway.OpExtractShots, "a script is required")
	}
	return p.generateBeats(ctx, gateway.OpExtractShots, genai.Text(extractShotsPrompt(script)))
}

func (p *Provider) AnalyzeImages(ctx context.Context, images []gateway.MediaFile) ([]storyboard.Beat, error) {
	if len(images) == 0 {
		return nil, gateway.InvalidRequest(gateway.OpAnalyzeImages, "at least one image is required")
	}
	parts := []*genai.Part{genai.NewPartFromText(analyzeImagesPrompt)}
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return p.generateBeats(ctx, gateway.OpAnalyzeImages, contents)
}

func (p *Provider) generateText(ctx context.Context, op string, contents []*genai.Content, emptyMsg string) (string, error) {
	text, err := p.backend.generateContent(ctx, p.textModel, contents, nil)
	if err != nil {
		return "", classify(op, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", gateway.EmptyResult(op, emptyMsg)
	}
	return text, nil
}

func (p *Provider) generateBeats(ctx context.Context, op string, contents []*genai.Content) ([]storyboard.Beat, error) {
	text, err := p.backend.generateContent(ctx, p.textModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   beatsSchema,
	})
	if err != nil {
		return nil, classify(op, err)
	}

	var beats []storyboard.Beat
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &beats); err != nil {
		return nil, gateway.Upstream(op, 0, fmt.Errorf("parse storyboard JSON: %w", err))
	}
	if len(beats) == 0 {
		return nil, gateway.EmptyResult(op, "The AI did not return any shots.")
	}
	return beats, nil
}

func classify(op string, err error) error {
	code, status := apiStatus(err)
	return gateway.Classify(op, code, status, err)
}
