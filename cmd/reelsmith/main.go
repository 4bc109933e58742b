package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/api"
	"github.com/reelsmith/reelsmith-studio/internal/config"
	"github.com/reelsmith/reelsmith-studio/internal/db"
	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/gateway/gemini"
	"github.com/reelsmith/reelsmith-studio/internal/gateway/remote"
	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/media"
	"github.com/reelsmith/reelsmith-studio/internal/playback"
	"github.com/reelsmith/reelsmith-studio/internal/queue"
	"github.com/reelsmith/reelsmith-studio/internal/recording"
	"github.com/reelsmith/reelsmith-studio/internal/share"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
	"github.com/reelsmith/reelsmith-studio/internal/studio"
	"github.com/reelsmith/reelsmith-studio/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelsmith studio", "version", api.Version, "data_dir", cfg.DataDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	store := studio.NewFileMediaStore(cfg.MediaDir(), logger)
	if err := store.Reset(); err != nil {
		return fmt.Errorf("failed to prepare media dir: %w", err)
	}

	repo := studio.NewRepository(database.Conn())
	if err := repo.DropMedia(ctx); err != nil {
		return fmt.Errorf("failed to forget previous media: %w", err)
	}

	tools := media.NewExecutor(media.DefaultConfig(logger))
	doctor := media.NewCachedDoctor(tools, logger)
	if caps, err := doctor.Refresh(ctx); err != nil {
		logger.Warn("initial media tools probe failed", "error", err)
	} else {
		logger.Info("media tools detected",
			"ffmpeg", caps.FFmpeg,
			"ffprobe", caps.FFprobe,
			"can_record", caps.CanCompose(),
		)
	}

	publisher := newPublisher(cfg, logger)

	orch := queue.New(gw, store, logger, queue.WithConcurrency(cfg.QueueConcurrency()))
	svc := studio.NewService(repo, gw, orch, store, studio.Defaults{
		Language:        storyboard.ParseLanguage(cfg.PromptLanguage()),
		DurationSeconds: cfg.DefaultDuration(),
		TextPosition:    storyboard.ParseTextPosition(cfg.DefaultTextPosition()),
	}, logger, studio.WithProber(tools))

	apiServer := api.NewServer(api.ServerConfig{
		Port:              cfg.Port(),
		Gateway:           gw,
		Studio:            svc,
		PlaybackServer:    playback.NewServer(logger),
		Recorder:          recording.NewComposer(tools, doctor, store.RecordingsDir(), logger),
		Publisher:         publisher,
		Doctor:            doctor,
		AuthToken:         cfg.AuthToken(),
		AllowedOrigins:    cfg.AllowedOrigins(),
		PublicURL:         cfg.PublicURL(),
		DataDir:           cfg.DataDir(),
		NarrationLanguage: cfg.NarrationLanguage(),
		Logger:            logger,
		StartTime:         startTime,
	})

	studioURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port())
	authState := "disabled"
	if cfg.AuthToken() != "" {
		authState = logging.SanitizeToken(cfg.AuthToken())
	}
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                 REELSMITH STUDIO v%-24s║\n", api.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    %-45s ║\n", studioURL)
	fmt.Printf("║  Auth Token: %-45s ║\n", authState)
	fmt.Printf("║  Sharing:    %-45t ║\n", publisher.Enabled())
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Source: svc,
			URL:    studioURL,
			Logger: logger,
			OnQuit: quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown", "active_runs", svc.ActiveRuns())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("studio runs did not finish", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newGateway talks to the provider directly when an API key is configured,
// and to a deployed proxy otherwise.
func newGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (gateway.Gateway, error) {
	if cfg.APIKey() != "" {
		provider, err := gemini.New(ctx, gemini.Config{
			APIKey:       cfg.APIKey(),
			TextModel:    cfg.TextModel(),
			VideoModel:   cfg.VideoModel(),
			PollInterval: cfg.VideoPollInterval(),
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		logger.Info("using gemini provider", "text_model", cfg.TextModel(), "video_model", cfg.VideoModel())
		return provider, nil
	}
	if cfg.GatewayURL() != "" {
		logger.Info("using remote gateway", "url", cfg.GatewayURL())
		return remote.NewClient(cfg.GatewayURL(), logger), nil
	}
	return nil, errors.New("no generation backend: set REELSMITH_API_KEY or REELSMITH_GATEWAY_URL")
}

func newPublisher(cfg config.Config, logger *slog.Logger) share.Publisher {
	if cfg.S3Bucket() == "" {
		return share.NewDisabled(logger)
	}
	p, err := share.NewS3Publisher(cfg.S3Bucket(), cfg.S3Region(), logger)
	if err != nil {
		logger.Warn("sharing unavailable", "bucket", cfg.S3Bucket(), "error", err)
		return share.NewDisabled(logger)
	}
	logger.Info("sharing enabled", "bucket", cfg.S3Bucket(), "region", cfg.S3Region())
	return p
}
