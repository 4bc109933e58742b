package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/preview"
	"github.com/reelsmith/reelsmith-studio/internal/preview/remote"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
	"github.com/reelsmith/reelsmith-studio/internal/studio"
)

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return isAllowedOrigin(origin, allowedOrigins) || sameHost(r, origin)
		},
	}
}

func sameHost(r *http.Request, origin string) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// previewHandler drives the page's player and speech engine over a
// websocket until the page disconnects.
func previewHandler(cfg ServerConfig) http.HandlerFunc {
	upgrader := newUpgrader(cfg.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := chi.URLParam(r, "id")

		sess, err := cfg.Studio.GetSession(ctx, sessionID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		clips, err := cfg.Studio.PreviewClips(ctx, sessionID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the client.
			cfg.Logger.Warn("preview upgrade failed", "session_id", sessionID, "error", err)
			return
		}
		defer conn.Close()

		logger := logging.WithSessionID(cfg.Logger, sessionID)
		screen := remote.NewScreen(conn, logger)

		syncer := preview.New(clips, screen, screen, cfg.Recorder, preview.Options{
			Language: narrationLocale(sess.Language, cfg.NarrationLanguage),
			VoiceID:  sess.VoiceID,
			OnChange: screen.SendState,
			OnRecording: func(ctx context.Context, rec *preview.Recording) error {
				stored, err := cfg.Studio.SaveRecording(context.WithoutCancel(ctx), sessionID, rec)
				if err != nil {
					return err
				}
				screen.SendRecording(recordingLinks(cfg, stored))
				return nil
			},
			Logger: logger,
		})
		defer syncer.Close()

		logger.Info("preview connected", "clips", len(clips))
		if err := screen.Serve(ctx, syncer); err != nil {
			logger.Warn("preview disconnected", "error", err)
			return
		}
		logger.Info("preview disconnected")
	}
}

// narrationLocale picks a speech locale for the session language, keeping
// the configured locale when it already speaks that language.
func narrationLocale(lang storyboard.Language, configured string) string {
	if strings.HasPrefix(configured, string(lang)) {
		return configured
	}
	if lang == storyboard.Arabic {
		return "ar-SA"
	}
	return "en-US"
}

func recordingLinks(cfg ServerConfig, rec *studio.Recording) remote.RecordingLinks {
	return remote.RecordingLinks{
		ID:          rec.ID,
		Name:        rec.Name,
		DownloadURL: recordingDownloadPath(rec.ID),
		QRCodeURL:   recordingQRPath(rec.ID),
		ShareURL:    rec.ShareURL,
		CanShare:    cfg.Publisher != nil && cfg.Publisher.Enabled(),
	}
}
