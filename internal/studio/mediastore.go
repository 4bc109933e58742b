package studio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/queue"
)

// FileMediaStore keeps generated clips as files under a media directory.
// Clip handles are absolute file paths.
type FileMediaStore struct {
	root   string
	logger *slog.Logger
}

var _ queue.ClipStore = (*FileMediaStore)(nil)

func NewFileMediaStore(root string, logger *slog.Logger) *FileMediaStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FileMediaStore{root: root, logger: logging.WithComponent(logger, "media_store")}
}

func (s *FileMediaStore) ClipsDir() string {
	return filepath.Join(s.root, "clips")
}

func (s *FileMediaStore) RecordingsDir() string {
	return filepath.Join(s.root, "recordings")
}

// Reset empties the media directory. Media never outlives the process.
func (s *FileMediaStore) Reset() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("clear media dir: %w", err)
	}
	for _, dir := range []string{s.ClipsDir(), s.RecordingsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create media dir: %w", err)
		}
	}
	return nil
}

func (s *FileMediaStore) SaveClip(ctx context.Context, name string, video *gateway.Video) (string, error) {
	if video == nil || len(video.Data) == 0 {
		return "", errors.New("empty video")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.ClipsDir(), 0755); err != nil {
		return "", fmt.Errorf("create clips dir: %w", err)
	}

	path := filepath.Join(s.ClipsDir(), uuid.NewString()+clipExt(name, video.MIMEType))
	tmp := path + ".part"
	if err := os.WriteFile(tmp, video.Data, 0644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write clip %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize clip %s: %w", name, err)
	}

	s.logger.Debug("clip stored", "name", name, "path", logging.SanitizePath(path), "size", len(video.Data))
	return path, nil
}

// RemoveClip deletes a stored clip. Removing a missing clip is not an error.
func (s *FileMediaStore) RemoveClip(src string) error {
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Remove deletes any file under the media directory, ignoring paths outside it.
func (s *FileMediaStore) Remove(path string) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		s.logger.Warn("refusing to remove file outside media dir", "path", logging.SanitizePath(path))
		return
	}
	if err := s.RemoveClip(path); err != nil {
		s.logger.Warn("failed to remove media file", "path", logging.SanitizePath(path), "error", err)
	}
}

func clipExt(name, mimeType string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".mp4"
}
