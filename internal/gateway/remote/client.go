// Package remote is a Gateway that talks to a deployed generation proxy over
// HTTP, so the studio process never needs the provider credential.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

var maxVideoBytes int64 = 512 << 20

// StatusError is a non-2xx answer from the proxy.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("proxy request failed: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client implements gateway.Gateway against the proxy endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// NewClient builds a client. Video generation can take minutes, so the HTTP
// timeout is generous; callers bound individual calls with their context.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) GenerateVideo(ctx context.Context, prompt string, image *gateway.MediaFile) (*gateway.Video, error) {
	req := gateway.GenerateVideoRequest{Prompt: prompt}
	if image != nil {
		payload := gateway.EncodeFile(*image)
		req.Image = &payload
	}

	resp, err := c.post(ctx, gateway.OpGenerateVideo, gateway.PathGenerateVideo, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := gateway.ReadVideo(resp.Body, maxVideoBytes)
	if err != nil {
		return nil, gateway.Upstream(gateway.OpGenerateVideo, 0, fmt.Errorf("read video body: %w", err))
	}
	if len(data) == 0 {
		return nil, gateway.EmptyResult(gateway.OpGenerateVideo, "The server returned an empty video.")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return &gateway.Video{MIMEType: mimeType, Data: data}, nil
}

func (c *Client) GenerateNarration(ctx context.Context, prompt string) (string, error) {
	var out gateway.NarrationResponse
	if err := c.postJSON(ctx, gateway.OpGenerateNarration, gateway.PathGenerateNarration, gateway.NarrationRequest{Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return nonEmpty(gateway.OpGenerateNarration, out.Narration)
}

func (c *Client) ExpandScript(ctx context.Context, idea string) (string, error) {
	var out gateway.ScriptResponse
	if err := c.postJSON(ctx, gateway.OpExpandScript, gateway.PathExpandScript, gateway.ExpandScriptRequest{Idea: idea}, &out); err != nil {
		return "", err
	}
	return nonEmpty(gateway.OpExpandScript, out.Script)
}

func (c *Client) SummarizeScript(ctx context.Context, script string) (string, error) {
	var out gateway.SummaryResponse
	if err := c.postJSON(ctx, gateway.OpSummarizeScript, gateway.PathSummarizeScript, gateway.ScriptRequest{Script: script}, &out); err != nil {
		return "", err
	}
	return nonEmpty(gateway.OpSummarizeScript, out.Summary)
}

func (c *Client) AnalyzeDocument(ctx context.Context, doc gateway.MediaFile) (string, error) {
	var out gateway.ScriptResponse
	req := gateway.AnalyzeDocumentRequest{FileData: gateway.EncodeFile(doc)}
	if err := c.postJSON(ctx, gateway.OpAnalyzeDocument, gateway.PathAnalyzeDocument, req, &out); err != nil {
		return "", err
	}
	return nonEmpty(gateway.OpAnalyzeDocument, out.Script)
}

func (c *Client) ExtractShots(ctx context.Context, script string) ([]storyboard.Beat, error) {
	var out []storyboard.Beat
	if err := c.postJSON(ctx, gateway.OpExtractShots, gateway.PathExtractShots, gateway.ScriptRequest{Script: script}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, gateway.EmptyResult(gateway.OpExtractShots, "The AI did not return any shots.")
	}
	return out, nil
}

func (c *Client) AnalyzeImages(ctx context.Context, images []gateway.MediaFile) ([]storyboard.Beat, error) {
	req := gateway.AnalyzeImagesRequest{Images: make([]gateway.FilePayload, len(images))}
	for i, img := range images {
		req.Images[i] = gateway.EncodeFile(img)
	}

	var out []storyboard.Beat
	if err := c.postJSON(ctx, gateway.OpAnalyzeImages, gateway.PathAnalyzeImages, req, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, gateway.EmptyResult(gateway.OpAnalyzeImages, "The AI did not return any shots.")
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.post(ctx, op, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return gateway.Upstream(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// post sends the request and turns non-2xx answers into gateway errors. The
// caller owns the body of a successful response.
func (c *Client) post(ctx context.Context, op, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, gateway.Upstream(op, 0, fmt.Errorf("http request failed: %w", err))
	}

	c.logger.Debug("proxy call finished",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"body_bytes", len(payload),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	var errBody gateway.ErrorResponse
	if json.Unmarshal(respBody, &errBody) == nil && errBody.Error != "" {
		statusErr.Message = errBody.Error
	}

	gwErr := &gateway.Error{
		Op:         op,
		Kind:       gateway.KindUpstream,
		StatusCode: resp.StatusCode,
		Message:    statusErr.Message,
		Relayed:    true,
		Err:        statusErr,
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		gwErr.Kind = gateway.KindRateLimited
	case http.StatusBadRequest:
		gwErr.Kind = gateway.KindInvalidRequest
	}
	return nil, gwErr
}

func nonEmpty(op, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", gateway.EmptyResult(op, "The server returned an empty result.")
	}
	return s, nil
}

// IsStatus reports whether err came from a proxy answer with the given status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
