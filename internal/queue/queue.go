// Package queue produces one generated clip per selected shot of a storyboard,
// in storyboard order, stopping at the first shot whose video cannot be made.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

// ErrEmptySelection is returned when a run is requested with no shots selected.
var ErrEmptySelection = errors.New("no shots selected")

// Generator is the slice of the gateway the queue drives.
type Generator interface {
	gateway.VideoGenerator
	gateway.NarrationGenerator
}

// ClipStore persists generated videos and hands back a playable source.
type ClipStore interface {
	SaveClip(ctx context.Context, name string, video *gateway.Video) (string, error)
	RemoveClip(src string) error
}

// Clip is one generated video tied to the shot that produced it.
type Clip struct {
	ShotID    int     `json:"shotId"`
	Name      string  `json:"name"`
	Src       string  `json:"src"`
	MIMEType  string  `json:"mimeType"`
	Narration *string `json:"narration,omitempty"`
}

// Progress is reported before each shot's video request.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// State of a queue run as seen by the session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ShotError reports the shot that stopped the queue.
type ShotError struct {
	ShotID int
	Err    error
}

func (e *ShotError) Error() string {
	return fmt.Sprintf("shot %d: %v", e.ShotID+1, e.Err)
}

func (e *ShotError) Unwrap() error {
	return e.Err
}

// UserMessage is the single message shown when the queue stops.
func (e *ShotError) UserMessage() string {
	return fmt.Sprintf("Failed to generate shot #%d. The queue was stopped.", e.ShotID+1)
}

// Orchestrator runs queues against a generator and a clip store.
type Orchestrator struct {
	gen         Generator
	store       ClipStore
	logger      *slog.Logger
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency allows up to n shots in flight. Values below 2 keep the
// queue strictly serial.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 1 {
			o.concurrency = n
		}
	}
}

// New creates an orchestrator.
func New(gen Generator, store ClipStore, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	o := &Orchestrator{
		gen:         gen,
		store:       store,
		logger:      logging.WithComponent(logger, "queue"),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Concurrency returns the number of shots allowed in flight.
func (o *Orchestrator) Concurrency() int {
	return o.concurrency
}

// Run produces clips for the selected shots. On failure it returns the clips
// completed before the failing shot together with a *ShotError.
func (o *Orchestrator) Run(ctx context.Context, shots []storyboard.Shot, sel storyboard.Selection, settings storyboard.Settings, onProgress func(Progress)) ([]Clip, error) {
	if sel.Empty() {
		return nil, ErrEmptySelection
	}
	if err := sel.Validate(shots); err != nil {
		return nil, err
	}
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	queued := sel.Filter(shots)
	start := time.Now()
	o.logger.Info("queue started", "shots", len(queued), "concurrency", o.concurrency)

	var (
		clips []Clip
		err   error
	)
	if o.concurrency > 1 {
		clips, err = o.runParallel(ctx, queued, settings, onProgress)
	} else {
		clips, err = o.runSerial(ctx, queued, settings, onProgress)
	}

	if err != nil {
		o.logger.Warn("queue stopped",
			"completed", len(clips),
			"total", len(queued),
			"error", err,
		)
		return clips, err
	}
	o.logger.Info("queue completed",
		"clips", len(clips),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return clips, nil
}

func (o *Orchestrator) runSerial(ctx context.Context, queued []storyboard.Shot, settings storyboard.Settings, onProgress func(Progress)) ([]Clip, error) {
	clips := make([]Clip, 0, len(queued))
	for i, shot := range queued {
		onProgress(Progress{Current: i + 1, Total: len(queued)})
		clip, err := o.produce(ctx, shot, settings)
		if err != nil {
			return clips, err
		}
		clips = append(clips, *clip)
	}
	return clips, nil
}

// runParallel keeps clip order and abort semantics of the serial run. The
// first failure in storyboard order wins, nothing new starts after any
// failure, and shots behind a failure are cancelled and their clips
// discarded. Shots ahead of it run to completion.
func (o *Orchestrator) runParallel(ctx context.Context, queued []storyboard.Shot, settings storyboard.Settings, onProgress func(Progress)) ([]Clip, error) {
	n := len(queued)
	results := make([]*Clip, n)
	errs := make([]error, n)
	cancels := make([]context.CancelFunc, n)

	var mu sync.Mutex
	firstFailed := n
	failedBefore := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return firstFailed < i
	}
	fail := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs[i] = err
		if i >= firstFailed {
			return
		}
		firstFailed = i
		for _, cancel := range cancels[i+1:] {
			if cancel != nil {
				cancel()
			}
		}
	}

	slots := make(chan struct{}, o.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i, shot := range queued {
		select {
		case slots <- struct{}{}:
		case <-gctx.Done():
		}
		if failedBefore(i) {
			break
		}
		if err := ctx.Err(); err != nil {
			fail(i, &ShotError{ShotID: shot.ID, Err: err})
			break
		}
		if gctx.Err() != nil {
			// A running shot failed and every later one is cancelled.
			break
		}

		shotCtx, cancel := context.WithCancel(ctx)
		mu.Lock()
		cancels[i] = cancel
		mu.Unlock()

		onProgress(Progress{Current: i + 1, Total: n})
		g.Go(func() error {
			defer func() { <-slots }()
			defer cancel()
			if failedBefore(i) {
				return nil
			}
			clip, err := o.produce(shotCtx, shot, settings)
			if err != nil {
				fail(i, err)
				return err
			}
			results[i] = clip
			return nil
		})
	}
	// Storyboard order, not completion order, decides which error is reported.
	_ = g.Wait()

	firstErr := -1
	for i, err := range errs {
		if err != nil {
			firstErr = i
			break
		}
	}
	if firstErr < 0 {
		clips := make([]Clip, 0, len(results))
		for _, c := range results {
			clips = append(clips, *c)
		}
		return clips, nil
	}

	clips := make([]Clip, 0, firstErr)
	for _, c := range results[:firstErr] {
		clips = append(clips, *c)
	}
	for _, c := range results[firstErr+1:] {
		if c == nil {
			continue
		}
		if err := o.store.RemoveClip(c.Src); err != nil {
			o.logger.Warn("failed to discard clip", "src", c.Src, "error", err)
		}
	}
	return clips, errs[firstErr]
}

// produce generates the video and narration for one shot.
func (o *Orchestrator) produce(ctx context.Context, shot storyboard.Shot, settings storyboard.Settings) (*Clip, error) {
	logger := logging.WithShotID(o.logger, shot.ID)
	prompt := storyboard.ShotPrompt(shot, settings)

	video, err := o.gen.GenerateVideo(ctx, prompt, nil)
	if err != nil {
		logger.Error("video generation failed", "error", err)
		return nil, &ShotError{ShotID: shot.ID, Err: err}
	}

	name := shot.ClipName()
	src, err := o.store.SaveClip(ctx, name, video)
	if err != nil {
		logger.Error("failed to store clip", "error", err)
		return nil, &ShotError{ShotID: shot.ID, Err: err}
	}

	clip := &Clip{ShotID: shot.ID, Name: name, Src: src, MIMEType: video.MIMEType}
	narration, err := o.gen.GenerateNarration(ctx, prompt)
	if err != nil {
		logger.Warn("narration generation failed", "error", err)
	} else {
		clip.Narration = &narration
	}

	logger.Debug("shot produced", "src", src, "bytes", len(video.Data), "narrated", clip.Narration != nil)
	return clip, nil
}
