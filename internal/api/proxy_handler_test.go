package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

func proxyRouter(gw *fakeGateway) http.Handler {
	return NewRouter(ServerConfig{Gateway: gw, Logger: testLogger(), StartTime: time.Now()})
}

func TestProxy_Endpoints(t *testing.T) {
	gw := &fakeGateway{beats: []storyboard.Beat{{Visual: "a pier", Overlay: "Dawn"}, {Visual: "gulls"}}}
	router := proxyRouter(gw)
	png := gateway.EncodeFile(gateway.MediaFile{MIMEType: "image/png", Data: []byte{1}})
	pdf := gateway.EncodeFile(gateway.MediaFile{MIMEType: "application/pdf", Data: []byte("%PDF")})

	tests := []struct {
		name  string
		path  string
		body  any
		check func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name: "narration",
			path: gateway.PathGenerateNarration,
			body: gateway.NarrationRequest{Prompt: "a pier"},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				if body := decodeJSONBody(t, rr); body["narration"] != "Narration." {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name: "expand script",
			path: gateway.PathExpandScript,
			body: gateway.ExpandScriptRequest{Idea: "whales"},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				if body := decodeJSONBody(t, rr); body["script"] != "Script about whales" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name: "summarize script",
			path: gateway.PathSummarizeScript,
			body: gateway.ScriptRequest{Script: "long"},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				if body := decodeJSONBody(t, rr); body["summary"] != "summary" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name: "extract shots",
			path: gateway.PathExtractShots,
			body: gateway.ScriptRequest{Script: "a script"},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var shots []storyboard.Shot
				if err := json.Unmarshal(rr.Body.Bytes(), &shots); err != nil {
					t.Fatalf("decode shots: %v", err)
				}
				if len(shots) != 2 || shots[1].ID != 1 || shots[0].Overlay != "Dawn" {
					t.Errorf("shots = %+v", shots)
				}
				if shots[0].CameraMotion != storyboard.MotionNone || shots[0].MotionAmount != storyboard.DefaultMotionAmount {
					t.Errorf("camera defaults = %s/%d", shots[0].CameraMotion, shots[0].MotionAmount)
				}
			},
		},
		{
			name: "analyze document",
			path: gateway.PathAnalyzeDocument,
			body: gateway.AnalyzeDocumentRequest{FileData: pdf},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				if body := decodeJSONBody(t, rr); body["script"] != "Script from application/pdf" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name: "analyze images",
			path: gateway.PathAnalyzeImages,
			body: gateway.AnalyzeImagesRequest{Images: []gateway.FilePayload{png, png, png}},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var shots []storyboard.Shot
				if err := json.Unmarshal(rr.Body.Bytes(), &shots); err != nil {
					t.Fatalf("decode shots: %v", err)
				}
				if len(shots) != 3 || shots[2].ID != 2 {
					t.Errorf("shots = %+v", shots)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, tc.path, tc.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
			}
			tc.check(t, rr)
		})
	}
}

func TestProxy_GenerateVideoReturnsBytes(t *testing.T) {
	gw := &fakeGateway{}
	router := proxyRouter(gw)

	img := gateway.EncodeFile(gateway.MediaFile{MIMEType: "image/png", Data: []byte{9}})
	rr := doJSON(t, router, http.MethodPost, gateway.PathGenerateVideo, gateway.GenerateVideoRequest{Prompt: "waves", Image: &img})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Body.String() != "video:waves" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if gw.videoCalled.Load() != 1 {
		t.Errorf("video calls = %d", gw.videoCalled.Load())
	}
}

func TestProxy_MethodNotAllowed(t *testing.T) {
	router := proxyRouter(&fakeGateway{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rr := doJSON(t, router, method, gateway.PathExpandScript, nil)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want %d", method, rr.Code, http.StatusMethodNotAllowed)
			continue
		}
		if body := decodeJSONBody(t, rr); body["error"] != "Method Not Allowed" {
			t.Errorf("%s body = %v", method, body)
		}
	}
}

func TestProxy_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "rate limited",
			err:      gateway.RateLimited(gateway.OpExpandScript, gateway.RateLimitMessage, errors.New("quota")),
			wantCode: http.StatusTooManyRequests,
			wantMsg:  gateway.RateLimitMessage,
		},
		{
			name:     "upstream",
			err:      gateway.Upstream(gateway.OpExpandScript, 503, errors.New("backend unavailable")),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "An error occurred while contacting the server: backend unavailable",
		},
		{
			name:     "unexpected",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "An unexpected error occurred: boom",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := proxyRouter(&fakeGateway{textErr: tc.err})
			rr := doJSON(t, router, http.MethodPost, gateway.PathExpandScript, gateway.ExpandScriptRequest{Idea: "x"})
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantCode)
			}
			if body := decodeJSONBody(t, rr); body["error"] != tc.wantMsg {
				t.Errorf("error = %q, want %q", body["error"], tc.wantMsg)
			}
		})
	}
}

func TestProxy_BadRequests(t *testing.T) {
	router := proxyRouter(&fakeGateway{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty body", gateway.PathExpandScript, ""},
		{"malformed json", gateway.PathExpandScript, "{"},
		{"missing idea", gateway.PathExpandScript, `{}`},
		{"missing prompt", gateway.PathGenerateVideo, `{"prompt":""}`},
		{"bad image", gateway.PathGenerateVideo, `{"prompt":"x","image":{"base64":"!!","mimeType":"image/png"}}`},
		{"missing file", gateway.PathAnalyzeDocument, `{"fileData":{"base64":"","mimeType":"application/pdf"}}`},
		{"no images", gateway.PathAnalyzeImages, `{"images":[]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if body := decodeJSONBody(t, rr); strings.TrimSpace(body["error"].(string)) == "" {
				t.Error("error message missing")
			}
		})
	}
}
