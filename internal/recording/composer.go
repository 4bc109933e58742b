// Package recording captures a preview on the server side: it notes which
// clips were shown and, when stopped, joins them into one video with the
// narration as a subtitle track.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelsmith/reelsmith-studio/internal/export"
	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/media"
	"github.com/reelsmith/reelsmith-studio/internal/preview"
)

// MIMEType of every assembled recording.
const MIMEType = "video/mp4"

// FileName is the download name of a recording finalized at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("assembled_video_%d.mp4", t.Unix())
}

// Composer is a preview.Recorder built on ffmpeg.
type Composer struct {
	tools  media.FFmpeg
	doctor *media.CachedDoctor
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

var _ preview.Recorder = (*Composer)(nil)

// NewComposer writes recordings under dir. doctor may be nil, in which case
// missing tools surface when the capture is stopped.
func NewComposer(tools media.FFmpeg, doctor *media.CachedDoctor, dir string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Composer{
		tools:  tools,
		doctor: doctor,
		dir:    dir,
		logger: logging.WithComponent(logger, "recording"),
		now:    time.Now,
	}
}

// Start begins a capture. The capture ends on its own when ctx is done.
func (c *Composer) Start(ctx context.Context, clips []preview.Clip) (preview.Capture, error) {
	if len(clips) == 0 {
		return nil, preview.ErrNoClips
	}
	if c.doctor != nil {
		caps, err := c.doctor.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", preview.ErrCaptureUnavailable, err)
		}
		if !caps.CanCompose() {
			return nil, fmt.Errorf("%w: ffmpeg and ffprobe are required", preview.ErrCaptureUnavailable)
		}
	}

	capt := &capture{
		composer: c,
		ended:    make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go func() {
		select {
		case <-ctx.Done():
			capt.endOnce.Do(func() { close(capt.ended) })
		case <-capt.stopped:
		}
	}()
	return capt, nil
}

type capture struct {
	composer *Composer

	ended    chan struct{}
	endOnce  sync.Once
	stopped  chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	shown []preview.Clip
}

func (c *capture) Ended() <-chan struct{} {
	return c.ended
}

func (c *capture) ClipStarted(index int, clip preview.Clip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = append(c.shown, clip)
}

// Stop composes every clip shown since the capture started, in the order
// shown.
func (c *capture) Stop(ctx context.Context) (*preview.Recording, error) {
	c.stopOnce.Do(func() { close(c.stopped) })

	c.mu.Lock()
	shown := append([]preview.Clip(nil), c.shown...)
	c.mu.Unlock()

	if len(shown) == 0 {
		return nil, preview.ErrNoClips
	}
	return c.composer.compose(ctx, shown)
}

func (c *Composer) compose(ctx context.Context, shown []preview.Clip) (*preview.Recording, error) {
	start := c.now()
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}

	timeline := make([]export.TimelineClip, 0, len(shown))
	inputs := make([]string, 0, len(shown))
	durations := make(map[string]time.Duration)
	for _, clip := range shown {
		d, ok := durations[clip.Path]
		if !ok {
			probe, err := c.tools.Probe(ctx, clip.Path)
			if err != nil {
				return nil, wrapToolErr(fmt.Errorf("probe %s: %w", clip.Name, err))
			}
			d = probe.Duration
			durations[clip.Path] = d
		}
		timeline = append(timeline, export.TimelineClip{
			Name:       clip.Name,
			MediaPath:  clip.Path,
			DurationMs: int(d.Milliseconds()),
			Narration:  clip.Narration,
		})
		inputs = append(inputs, clip.Path)
	}

	id := uuid.NewString()
	req := media.ConcatRequest{
		Inputs: inputs,
		Output: filepath.Join(c.dir, id+".mp4"),
	}

	if cues := export.Cues(timeline); len(cues) > 0 {
		srtPath := filepath.Join(c.dir, id+".srt")
		if err := os.WriteFile(srtPath, []byte(export.GenerateSRT(cues)), 0644); err != nil {
			return nil, fmt.Errorf("write narration subtitles: %w", err)
		}
		defer os.Remove(srtPath)
		req.Subtitles = srtPath
	}

	if _, err := c.tools.Concat(ctx, req); err != nil {
		return nil, wrapToolErr(err)
	}

	info, err := os.Stat(req.Output)
	if err != nil {
		return nil, fmt.Errorf("stat recording: %w", err)
	}

	finished := c.now()
	rec := &preview.Recording{
		ID:        id,
		Name:      FileName(finished),
		MIMEType:  MIMEType,
		Path:      req.Output,
		Size:      info.Size(),
		CreatedAt: finished,
	}
	c.logger.Info("recording composed",
		"recording_id", id,
		"clips", len(shown),
		"subtitled", req.Subtitles != "",
		"size", rec.Size,
		"duration_ms", finished.Sub(start).Milliseconds(),
	)
	return rec, nil
}

func wrapToolErr(err error) error {
	if errors.Is(err, media.ErrUnavailable) {
		return fmt.Errorf("%w: %v", preview.ErrCaptureUnavailable, err)
	}
	return err
}
