package api

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelsmith/reelsmith-studio/internal/export"
)

const defaultTimelineTitle = "reelsmith_timeline"

// timelineParams reads the optional title and fps query parameters.
func timelineParams(r *http.Request) (title string, frameRate float64, ok bool) {
	title = export.SanitizeName(r.URL.Query().Get("title"), 120)
	if title == "" {
		title = defaultTimelineTitle
	}

	frameRate = export.DefaultFrameRate
	if v := r.URL.Query().Get("fps"); v != "" {
		fps, err := strconv.ParseFloat(v, 64)
		if err != nil || fps <= 0 || fps > 120 {
			return "", 0, false
		}
		frameRate = fps
	}
	return title, frameRate, true
}

func timelineSummaryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title, frameRate, ok := timelineParams(r)
		if !ok {
			WriteError(w, http.StatusBadRequest, "fps must be a positive number up to 120", "BAD_REQUEST")
			return
		}
		clips, err := cfg.Studio.Timeline(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, export.Summary(clips, title, frameRate))
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title, frameRate, ok := timelineParams(r)
		if !ok {
			WriteError(w, http.StatusBadRequest, "fps must be a positive number up to 120", "BAD_REQUEST")
			return
		}

		clips, err := cfg.Studio.Timeline(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "the queue has not produced any clips yet", "NO_CLIPS")
			return
		}

		edl := export.GenerateEDL(clips, title, frameRate)
		writeAttachment(w, export.FileName(title, defaultTimelineTitle, ".edl"), "text/plain; charset=utf-8", edl)
	}
}

func exportSRTHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title, _, ok := timelineParams(r)
		if !ok {
			WriteError(w, http.StatusBadRequest, "fps must be a positive number up to 120", "BAD_REQUEST")
			return
		}

		clips, err := cfg.Studio.Timeline(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		cues := export.Cues(clips)
		if len(cues) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no narration to export", "NO_NARRATION")
			return
		}

		writeAttachment(w, export.FileName(title, defaultTimelineTitle, ".srt"), "application/x-subrip", export.GenerateSRT(cues))
	}
}

func writeAttachment(w http.ResponseWriter, name, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
