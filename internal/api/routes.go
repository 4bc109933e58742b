package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/reelsmith/reelsmith-studio/internal/studio"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins...))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not Found", "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "METHOD_NOT_ALLOWED")
	})

	r.Get("/health", healthHandler(cfg))

	if cfg.Gateway != nil {
		mountProxy(r, cfg.Gateway, cfg.Logger)
	}

	if cfg.Studio == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthToken, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Post("/sessions", createSessionHandler(cfg))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", getSessionHandler(cfg))
			r.Delete("/", deleteSessionHandler(cfg))
			r.Post("/reset", resetSessionHandler(cfg))
			r.Put("/settings", updateSettingsHandler(cfg))
			r.Put("/images", setImagesHandler(cfg))
			r.Post("/expand-script", expandScriptActionHandler(cfg))
			r.Post("/analyze-document", analyzeDocumentActionHandler(cfg))
			r.Post("/analyze-images", analyzeImagesActionHandler(cfg))
			r.Post("/extract-shots", extractShotsActionHandler(cfg))
			r.Patch("/shots/{shotID}", updateShotHandler(cfg))
			r.Put("/selection", setSelectionHandler(cfg))
			r.Post("/generate", generateActionHandler(cfg))
			r.Post("/queue", produceQueueHandler(cfg))
			r.Get("/preview", previewHandler(cfg))
			r.Get("/timeline", timelineSummaryHandler(cfg))
			r.Get("/timeline.edl", exportEDLHandler(cfg))
			r.Get("/timeline.srt", exportSRTHandler(cfg))
		})

		r.Group(func(r chi.Router) {
			r.Use(LoopbackGuard())
			r.Get("/media/clips/{clipID}", clipMediaHandler(cfg))
			r.Head("/media/clips/{clipID}", clipMediaHandler(cfg))
		})

		r.Get("/recordings/{id}", getRecordingHandler(cfg))
		r.Head("/recordings/{id}", getRecordingHandler(cfg))
		r.Get("/recordings/{id}/qr.png", recordingQRHandler(cfg))
		r.Post("/recordings/{id}/share", shareRecordingHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessions, err := cfg.Studio.SessionCount(ctx)
		if err != nil {
			cfg.Logger.Warn("failed to count sessions", "error", err)
		}

		runs := cfg.Studio.Runs()
		if runs == nil {
			runs = []studio.RunStatus{}
		}
		state := "idle"
		if len(runs) > 0 {
			state = "busy"
		}

		resp := StatusResponse{
			State:      state,
			Sessions:   sessions,
			ActiveRuns: len(runs),
			Runs:       runs,
		}

		if cfg.DataDir != "" {
			usage, err := disk.UsageWithContext(ctx, cfg.DataDir)
			if err == nil {
				resp.Disk = &DiskResponse{
					Path:        cfg.DataDir,
					TotalBytes:  usage.Total,
					FreeBytes:   usage.Free,
					UsedPercent: usage.UsedPercent,
				}
			} else {
				cfg.Logger.Debug("disk usage unavailable", "error", err)
			}
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(ctx)
			if err == nil && caps != nil {
				resp.Media = MediaToolsToResponse(caps)
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}
