package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClient_GenerateVideo_Success(t *testing.T) {
	var received gateway.GenerateVideoRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != gateway.PathGenerateVideo {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake-mp4"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", testLogger())
	image := &gateway.MediaFile{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	video, err := client.GenerateVideo(context.Background(), "a lighthouse at dusk", image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(video.Data) != "fake-mp4" || video.MIMEType != "video/mp4" {
		t.Errorf("video = %+v", video)
	}
	if received.Prompt != "a lighthouse at dusk" {
		t.Errorf("prompt = %q", received.Prompt)
	}
	if received.Image == nil || received.Image.MIMEType != "image/png" {
		t.Fatalf("image = %+v, want png payload", received.Image)
	}
	decoded, err := received.Image.Decode()
	if err != nil || string(decoded.Data) != string(image.Data) {
		t.Errorf("decoded image = %v, %v", decoded.Data, err)
	}
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(gateway.ErrorResponse{Error: gateway.RateLimitMessage})
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.GenerateNarration(context.Background(), "prompt")

	if !errors.Is(err, gateway.ErrRateLimited) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if got := gateway.UserMessage(err); got != gateway.RateLimitMessage {
		t.Errorf("user message = %q", got)
	}
	if !IsStatus(err, http.StatusTooManyRequests) {
		t.Error("expected StatusError with 429 in chain")
	}
}

func TestClient_UpstreamErrorRelaysMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"An error occurred while contacting the server: boom"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.ExpandScript(context.Background(), "idea")

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) || gwErr.Kind != gateway.KindUpstream {
		t.Fatalf("error = %v, want upstream gateway error", err)
	}
	if got := gateway.UserMessage(err); got != "An error occurred while contacting the server: boom" {
		t.Errorf("user message = %q, should not be wrapped twice", got)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream connect error"))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.SummarizeScript(context.Background(), "script")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError in chain, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusBadGateway || se.Message != "upstream connect error" {
		t.Errorf("status error = %+v", se)
	}
}

func TestClient_ExtractShots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gateway.ScriptRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Script != "the script" {
			t.Errorf("script = %q", req.Script)
		}
		w.Write([]byte(`[{"id":0,"visual":"v0","overlay":"o0","cameraMotion":"none","motionAmount":2},{"id":1,"visual":"v1","overlay":""}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	beats, err := client.ExtractShots(context.Background(), "the script")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(beats) != 2 || beats[1].Visual != "v1" || beats[0].Overlay != "o0" {
		t.Errorf("beats = %+v", beats)
	}
}

func TestClient_EmptyNarration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"narration":"   "}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	if _, err := client.GenerateNarration(context.Background(), "p"); !errors.Is(err, gateway.ErrEmptyResult) {
		t.Fatalf("error = %v, want empty result", err)
	}
}

func TestClient_AnalyzeImagesSendsAllImages(t *testing.T) {
	var received gateway.AnalyzeImagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`[{"visual":"a","overlay":"b"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	images := []gateway.MediaFile{
		{Data: []byte("one"), MIMEType: "image/jpeg"},
		{Data: []byte("two"), MIMEType: "image/webp"},
	}
	if _, err := client.AnalyzeImages(context.Background(), images); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received.Images) != 2 || received.Images[1].MIMEType != "image/webp" {
		t.Errorf("received = %+v", received)
	}
}

func TestClient_GenerateVideo_TooLarge(t *testing.T) {
	orig := maxVideoBytes
	maxVideoBytes = 4
	t.Cleanup(func() { maxVideoBytes = orig })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake-mp4"))
	}))
	defer server.Close()

	video, err := NewClient(server.URL, testLogger()).GenerateVideo(context.Background(), "waves", nil)
	if !errors.Is(err, gateway.ErrVideoTooLarge) {
		t.Fatalf("error = %v, want ErrVideoTooLarge", err)
	}
	if video != nil {
		t.Errorf("video = %+v, want nil", video)
	}
}
