package media

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
)

const defaultCacheTTL = 5 * time.Minute

// CachedDoctor remembers the last tool probe so that status polling and
// recorder checks do not spawn ffmpeg on every call. Concurrent probes are
// collapsed into one.
type CachedDoctor struct {
	tools  FFmpeg
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group

	mu       sync.RWMutex
	caps     *Capabilities
	probedAt time.Time
}

func NewCachedDoctor(tools FFmpeg, logger *slog.Logger) *CachedDoctor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CachedDoctor{tools: tools, ttl: defaultCacheTTL, logger: logger}
}

// Get returns the cached capabilities while they are fresh and probes
// otherwise.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	if caps := d.fresh(); caps != nil {
		return caps, nil
	}
	return d.Refresh(ctx)
}

// Refresh probes the tools now. When the probe fails the previous result,
// if any, is returned instead of the error.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	v, err, _ := d.group.Do("probe", func() (any, error) {
		caps, err := d.tools.Doctor(ctx)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.caps, d.probedAt = caps, time.Now()
		d.mu.Unlock()
		return caps, nil
	})
	if err == nil {
		return v.(*Capabilities), nil
	}

	d.logger.Warn("media doctor probe failed", "error", err)
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.caps != nil {
		return d.caps, nil
	}
	return nil, err
}

// Invalidate forgets the cached result.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.caps, d.probedAt = nil, time.Time{}
	d.mu.Unlock()
}

func (d *CachedDoctor) fresh() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.caps == nil || time.Since(d.probedAt) >= d.ttl {
		return nil
	}
	return d.caps
}
