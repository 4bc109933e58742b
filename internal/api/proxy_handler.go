package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

// Uploaded documents and images arrive inline as base64.
const maxProxyBody = 64 << 20

// mountProxy registers the generation proxy endpoints. Other methods get the
// router's 405 answer.
func mountProxy(r chi.Router, gw gateway.Gateway, logger *slog.Logger) {
	routes := map[string]http.HandlerFunc{
		gateway.PathGenerateVideo:     generateVideoHandler(gw, logger),
		gateway.PathGenerateNarration: generateNarrationHandler(gw, logger),
		gateway.PathExpandScript:      expandScriptHandler(gw, logger),
		gateway.PathSummarizeScript:   summarizeScriptHandler(gw, logger),
		gateway.PathExtractShots:      extractShotsHandler(gw, logger),
		gateway.PathAnalyzeDocument:   analyzeDocumentHandler(gw, logger),
		gateway.PathAnalyzeImages:     analyzeImagesHandler(gw, logger),
	}
	for path, h := range routes {
		r.Post(path, h)
	}
}

func generateVideoHandler(gw gateway.VideoGenerator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.GenerateVideoRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		if req.Prompt == "" {
			writeProxyBadRequest(w, "prompt is required")
			return
		}

		var image *gateway.MediaFile
		if req.Image != nil {
			f, err := req.Image.Decode()
			if err != nil {
				writeProxyBadRequest(w, err.Error())
				return
			}
			image = &f
		}

		video, err := gw.GenerateVideo(r.Context(), req.Prompt, image)
		if err != nil {
			writeProxyError(w, logger, gateway.OpGenerateVideo, err)
			return
		}

		w.Header().Set("Content-Type", video.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(video.Data)))
		w.WriteHeader(http.StatusOK)
		w.Write(video.Data)
	}
}

func generateNarrationHandler(gw gateway.NarrationGenerator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.NarrationRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		if req.Prompt == "" {
			writeProxyBadRequest(w, "prompt is required")
			return
		}
		narration, err := gw.GenerateNarration(r.Context(), req.Prompt)
		if err != nil {
			writeProxyError(w, logger, gateway.OpGenerateNarration, err)
			return
		}
		WriteJSON(w, http.StatusOK, gateway.NarrationResponse{Narration: narration})
	}
}

func expandScriptHandler(gw gateway.ScriptWriter, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.ExpandScriptRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		if req.Idea == "" {
			writeProxyBadRequest(w, "idea is required")
			return
		}
		script, err := gw.ExpandScript(r.Context(), req.Idea)
		if err != nil {
			writeProxyError(w, logger, gateway.OpExpandScript, err)
			return
		}
		WriteJSON(w, http.StatusOK, gateway.ScriptResponse{Script: script})
	}
}

func summarizeScriptHandler(gw gateway.ScriptWriter, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.ScriptRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		if req.Script == "" {
			writeProxyBadRequest(w, "script is required")
			return
		}
		summary, err := gw.SummarizeScript(r.Context(), req.Script)
		if err != nil {
			writeProxyError(w, logger, gateway.OpSummarizeScript, err)
			return
		}
		WriteJSON(w, http.StatusOK, gateway.SummaryResponse{Summary: summary})
	}
}

func extractShotsHandler(gw gateway.StoryboardAnalyzer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.ScriptRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		if req.Script == "" {
			writeProxyBadRequest(w, "script is required")
			return
		}
		beats, err := gw.ExtractShots(r.Context(), req.Script)
		if err != nil {
			writeProxyError(w, logger, gateway.OpExtractShots, err)
			return
		}
		WriteJSON(w, http.StatusOK, storyboard.New(beats))
	}
}

func analyzeDocumentHandler(gw gateway.StoryboardAnalyzer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.AnalyzeDocumentRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		doc, err := req.FileData.Decode()
		if err != nil || len(doc.Data) == 0 {
			writeProxyBadRequest(w, "fileData is required")
			return
		}
		script, err := gw.AnalyzeDocument(r.Context(), doc)
		if err != nil {
			writeProxyError(w, logger, gateway.OpAnalyzeDocument, err)
			return
		}
		WriteJSON(w, http.StatusOK, gateway.ScriptResponse{Script: script})
	}
}

func analyzeImagesHandler(gw gateway.StoryboardAnalyzer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gateway.AnalyzeImagesRequest
		if !decodeProxyRequest(w, r, &req) {
			return
		}
		if len(req.Images) == 0 {
			writeProxyBadRequest(w, "images are required")
			return
		}
		images, err := decodeFiles(req.Images)
		if err != nil {
			writeProxyBadRequest(w, err.Error())
			return
		}
		beats, err := gw.AnalyzeImages(r.Context(), images)
		if err != nil {
			writeProxyError(w, logger, gateway.OpAnalyzeImages, err)
			return
		}
		WriteJSON(w, http.StatusOK, storyboard.New(beats))
	}
}

func decodeFiles(payloads []gateway.FilePayload) ([]gateway.MediaFile, error) {
	files := make([]gateway.MediaFile, 0, len(payloads))
	for _, p := range payloads {
		f, err := p.Decode()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func decodeProxyRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxProxyBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			WriteJSON(w, http.StatusRequestEntityTooLarge, gateway.ErrorResponse{Error: "request body too large"})
		case errors.Is(err, io.EOF):
			writeProxyBadRequest(w, "request body is required")
		default:
			writeProxyBadRequest(w, "invalid request body")
		}
		return false
	}
	return true
}

func writeProxyBadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, gateway.ErrorResponse{Error: msg})
}

// writeProxyError answers with the same user-facing text the studio would
// show, so a remote client can relay it unchanged.
func writeProxyError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status := gateway.HTTPStatus(err)
	logger.Error("proxy call failed", "op", op, "status", status, "error", err)
	WriteJSON(w, status, gateway.ErrorResponse{Error: gateway.UserMessage(err)})
}
