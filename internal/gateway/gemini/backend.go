package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/genai"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
)

var maxVideoBytes int64 = 512 << 20

// backend is the slice of the SDK the provider needs. Tests swap it for a fake.
type backend interface {
	generateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
	generateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	getVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	download(ctx context.Context, uri string) ([]byte, string, error)
}

type sdkBackend struct {
	client     *genai.Client
	apiKey     string
	httpClient *http.Client
}

func newSDKBackend(ctx context.Context, apiKey string, httpClient *http.Client) (*sdkBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &sdkBackend{client: client, apiKey: apiKey, httpClient: httpClient}, nil
}

func (b *sdkBackend) generateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (b *sdkBackend) generateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, image, cfg)
}

func (b *sdkBackend) getVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

// download fetches a generated video from its file URI. The key travels in a
// header so it never shows up in URLs or access logs.
func (b *sdkBackend) download(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", &downloadError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	data, err := gateway.ReadVideo(resp.Body, maxVideoBytes)
	if err != nil {
		return nil, "", fmt.Errorf("read video body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type downloadError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *downloadError) Error() string {
	return fmt.Sprintf("failed to download the generated video: %s: %s", e.Status, e.Body)
}

// apiStatus extracts the HTTP code and provider status carried by SDK errors.
func apiStatus(err error) (int, string) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status
	}
	var dlErr *downloadError
	if errors.As(err, &dlErr) {
		return dlErr.StatusCode, ""
	}
	return 0, ""
}
