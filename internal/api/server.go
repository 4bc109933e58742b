package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/media"
	"github.com/reelsmith/reelsmith-studio/internal/playback"
	"github.com/reelsmith/reelsmith-studio/internal/preview"
	"github.com/reelsmith/reelsmith-studio/internal/share"
	"github.com/reelsmith/reelsmith-studio/internal/studio"
)

// Version is reported by /health.
const Version = "0.1.0"

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port int

	// Gateway backs the proxy endpoints. Nil leaves them unmounted.
	Gateway gateway.Gateway
	// Studio backs the session endpoints. Nil leaves them unmounted.
	Studio *studio.Service

	PlaybackServer playback.PlaybackService
	Recorder       preview.Recorder
	Publisher      share.Publisher
	Doctor         *media.CachedDoctor

	AuthToken         string
	AllowedOrigins    []string
	PublicURL         string
	DataDir           string
	NarrationLanguage string

	Logger    *slog.Logger
	StartTime time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			// Uploads of images and documents can be large.
			ReadTimeout: 60 * time.Second,
			// Clip streams and the preview websocket stay open.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start binds the loopback port and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Listen binds the configured address. Port 0 picks a free port, which Addr
// then reports.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.httpServer.Addr = ln.Addr().String()
	return ln, nil
}

// Serve accepts connections on ln. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
