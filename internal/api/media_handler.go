package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/reelsmith/reelsmith-studio/internal/playback"
	"github.com/reelsmith/reelsmith-studio/internal/share"
)

const qrCodeSize = 256

func clipMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, err := cfg.Studio.Clip(r.Context(), chi.URLParam(r, "clipID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		opts := playback.FileOptions{ContentType: clip.MIMEType}
		if r.URL.Query().Get("download") != "" {
			opts.DownloadName = clip.Name
		}
		if err := cfg.PlaybackServer.ServeFile(w, r, clip.Path, opts); err != nil {
			cfg.Logger.Error("playback error", "error", err, "clip_id", clip.ID)
		}
	}
}

func getRecordingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.Studio.Recording(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		opts := playback.FileOptions{ContentType: rec.MIMEType, DownloadName: rec.Name}
		if err := cfg.PlaybackServer.ServeFile(w, r, rec.Path, opts); err != nil {
			cfg.Logger.Error("recording download error", "error", err, "recording_id", rec.ID)
		}
	}
}

// recordingQRHandler renders a QR code for the share link, or for the
// download link on PublicURL when the recording has not been shared.
func recordingQRHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.Studio.Recording(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		target := rec.ShareURL
		if target == "" {
			target = cfg.PublicURL + recordingDownloadPath(rec.ID)
		}

		png, err := qrcode.Encode(target, qrcode.Medium, qrCodeSize)
		if err != nil {
			cfg.Logger.Error("qr code encoding failed", "error", err, "recording_id", rec.ID)
			WriteError(w, http.StatusInternalServerError, "failed to render qr code", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

func shareRecordingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Publisher == nil || !cfg.Publisher.Enabled() {
			WriteError(w, http.StatusNotImplemented, "sharing is not configured", "SHARE_DISABLED")
			return
		}

		rec, err := cfg.Studio.Recording(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if rec.ShareURL != "" {
			WriteJSON(w, http.StatusOK, RecordingToResponse(rec))
			return
		}

		link, err := cfg.Publisher.Publish(r.Context(), share.Item{
			ID:       rec.ID,
			Name:     rec.Name,
			Path:     rec.Path,
			MIMEType: rec.MIMEType,
		})
		if err != nil {
			if errors.Is(err, share.ErrDisabled) {
				WriteError(w, http.StatusNotImplemented, "sharing is not configured", "SHARE_DISABLED")
				return
			}
			cfg.Logger.Error("share failed", "error", err, "recording_id", rec.ID)
			WriteError(w, http.StatusBadGateway, "The recording could not be shared. Please try again.", "SHARE_FAILED")
			return
		}

		rec, err = cfg.Studio.SetRecordingShareURL(r.Context(), rec.ID, link)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, RecordingToResponse(rec))
	}
}
