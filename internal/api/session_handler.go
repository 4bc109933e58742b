package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/queue"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
	"github.com/reelsmith/reelsmith-studio/internal/studio"
)

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Studio.CreateSession(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, sess)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Studio.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func deleteSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func resetSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Studio.Reset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func updateSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		u := studio.SettingsUpdate{
			Prompt:          req.Prompt,
			OverlayText:     req.OverlayText,
			TextPosition:    req.TextPosition,
			DurationSeconds: req.DurationSeconds,
			DirectorMode:    req.DirectorMode,
			Language:        req.Language,
			VoiceID:         req.VoiceID,
		}
		if req.Mode != nil {
			mode := studio.Mode(*req.Mode)
			u.Mode = &mode
		}

		sess, err := cfg.Studio.UpdateSettings(r.Context(), chi.URLParam(r, "id"), u)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func setImagesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImagesRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		images := make([]gateway.MediaFile, 0, len(req.Images))
		for i, img := range req.Images {
			f, err := img.Decode()
			if err != nil {
				WriteError(w, http.StatusBadRequest, "image "+strconv.Itoa(i+1)+" is not valid base64", "BAD_REQUEST")
				return
			}
			f.Name = img.Name
			if f.Name == "" {
				f.Name = "image " + strconv.Itoa(i+1)
			}
			images = append(images, f)
		}

		sess, err := cfg.Studio.SetImages(r.Context(), chi.URLParam(r, "id"), images)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func expandScriptActionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Studio.ExpandScript(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func analyzeDocumentActionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DocumentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		doc, err := req.FileData.Decode()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "document is not valid base64", "BAD_REQUEST")
			return
		}

		sess, err := cfg.Studio.AnalyzeDocument(r.Context(), chi.URLParam(r, "id"), doc)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func analyzeImagesActionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Studio.AnalyzeImages(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func extractShotsActionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Studio.ExtractShots(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess)
	}
}

func updateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shotID, err := strconv.Atoi(chi.URLParam(r, "shotID"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "shot id must be a number", "BAD_REQUEST")
			return
		}

		var req ShotUpdateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var u storyboard.CameraUpdate
		if req.CameraMotion != nil {
			motion, err := storyboard.ParseCameraMotion(*req.CameraMotion)
			if err != nil {
				writeServiceError(w, cfg.Logger, err)
				return
			}
			u.Motion = &motion
		}
		if req.MotionAmount != nil {
			amount := storyboard.MotionAmount(*req.MotionAmount)
			u.Amount = &amount
		}

		shot, err := cfg.Studio.UpdateShot(r.Context(), chi.URLParam(r, "id"), shotID, u)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, shot)
	}
}

func setSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ids, err := cfg.Studio.SetSelection(r.Context(), chi.URLParam(r, "id"), req.ShotIDs, req.All)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if ids == nil {
			ids = []int{}
		}
		WriteJSON(w, http.StatusOK, SelectionResponse{ShotIDs: ids})
	}
}

func generateActionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Studio.Generate(r.Context(), id); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, AcceptedResponse{SessionID: id, Activity: studio.ActivityGenerating})
	}
}

func produceQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Studio.ProduceQueue(r.Context(), id); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, AcceptedResponse{SessionID: id, Activity: studio.ActivityProducingQueue})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxProxyBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "request body too large", "TOO_LARGE")
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

// writeServiceError maps studio, storyboard, queue and gateway errors to a
// status and the message shown to the user.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var inputErr *studio.InputError
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &inputErr):
		WriteError(w, http.StatusBadRequest, inputErr.Message, "BAD_REQUEST")
	case errors.Is(err, studio.ErrNotFound), errors.Is(err, storyboard.ErrShotNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, studio.ErrBusy):
		WriteError(w, http.StatusConflict, "This session is busy. Please wait for the current action to finish.", "BUSY")
	case errors.Is(err, queue.ErrEmptySelection):
		WriteError(w, http.StatusBadRequest, "Please select at least one shot.", "EMPTY_SELECTION")
	case errors.Is(err, storyboard.ErrUnknownMotion), errors.Is(err, storyboard.ErrInvalidAmount):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.As(err, &gwErr):
		WriteError(w, gateway.HTTPStatus(err), gateway.UserMessage(err), "GATEWAY_"+strings.ToUpper(gwErr.Kind.String()))
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
