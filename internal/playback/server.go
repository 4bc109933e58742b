// Package playback streams stored clips and recordings with HTTP Range
// support so the preview page can seek and browsers can resume downloads.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
)

// mediaTypes covers containers missing from minimal mime tables.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".srt":  "application/x-subrip",
}

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string, opts FileOptions) error
}

// FileOptions override what is derived from the file itself.
type FileOptions struct {
	// ContentType defaults to the type of the file extension.
	ContentType string
	// DownloadName, when set, serves the file as an attachment.
	DownloadName string
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{logger: logging.WithComponent(logger, "playback")}
}

// ServeFile answers GET and HEAD for a stored file, honouring a single
// byte range. A missing file is a 404, not an error.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string, opts FileOptions) error {
	file, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat media: %w", err)
	}
	size := info.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType(filePath, opts.ContentType))
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	if opts.DownloadName != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": opts.DownloadName}))
	}

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		// Malformed ranges are ignored.
		rng = nil
	case err != nil:
		return err
	}

	status, body := http.StatusOK, io.Reader(file)
	length := size
	if rng != nil {
		status, length = http.StatusPartialContent, rng.ContentLength()
		body = io.NewSectionReader(file, rng.Start, length)
		h.Set("Content-Range", rng.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := io.CopyN(w, body, length); err != nil {
		s.logger.Debug("client stopped reading", "path", logging.SanitizePath(filePath), "error", err)
	}
	return nil
}

func contentType(filePath, override string) string {
	if override != "" {
		return override
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
