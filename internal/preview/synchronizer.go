package preview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
)

// Options configures a Synchronizer.
type Options struct {
	// Language is used for utterances when the selected voice is unknown.
	Language string
	// VoiceID selects the narrator voice. Empty picks the first reported voice.
	VoiceID string
	// OnChange receives every state change. It runs under the synchronizer
	// lock and must not call back into it.
	OnChange func(Snapshot)
	// OnRecording receives each finalized recording.
	OnRecording func(ctx context.Context, rec *Recording) error
	Logger      *slog.Logger
}

// Synchronizer drives a Player and a Narrator through the clip list and owns
// at most one running Capture.
type Synchronizer struct {
	clips    []Clip
	player   Player
	narrator Narrator
	recorder Recorder
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	playing  bool
	index    int
	recState RecordingState
	capture  Capture
	detach   chan struct{}
	output   *Recording
	lastErr  string
	closed   bool
}

// New creates a stopped, not recording synchronizer. recorder may be nil
// when capture is not supported.
func New(clips []Clip, player Player, narrator Narrator, recorder Recorder, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Synchronizer{
		clips:    append([]Clip(nil), clips...),
		player:   player,
		narrator: narrator,
		recorder: recorder,
		opts:     opts,
		logger:   logging.WithComponent(logger, "preview"),
		recState: RecordingIdle,
	}
}

// Clips returns the playlist.
func (s *Synchronizer) Clips() []Clip {
	return append([]Clip(nil), s.clips...)
}

// SetVoice selects the narrator voice used from the next utterance on.
func (s *Synchronizer) SetVoice(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.VoiceID = id
	s.changed()
}

// Play restarts playback from the first clip.
func (s *Synchronizer) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.playLocked()
}

func (s *Synchronizer) playLocked() error {
	if len(s.clips) == 0 {
		return ErrNoClips
	}
	s.index = 0
	s.playing = true
	s.lastErr = ""
	err := s.loadLocked()
	s.changed()
	return err
}

// ClipEnded advances past the clip at index. Events for any clip other than
// the current one are stale and ignored.
func (s *Synchronizer) ClipEnded(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.playing || index != s.index {
		return nil
	}

	s.narrator.Cancel()
	if s.index+1 >= len(s.clips) {
		s.playing = false
		s.changed()
		return nil
	}

	s.index++
	err := s.loadLocked()
	s.changed()
	return err
}

// Stop halts playback and any narration in progress.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.narrator.Cancel()
	if s.playing {
		s.playing = false
		s.changed()
	}
}

// StartRecording requests a capture and restarts playback from the first
// clip. Failures leave the synchronizer not recording.
func (s *Synchronizer) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.capture != nil {
		return ErrAlreadyRecording
	}
	if len(s.clips) == 0 {
		return s.failLocked(ErrNoClips)
	}
	if s.recorder == nil {
		return s.failLocked(ErrCaptureUnavailable)
	}

	c, err := s.recorder.Start(ctx, s.Clips())
	if err != nil {
		return s.failLocked(err)
	}

	s.capture = c
	s.detach = make(chan struct{})
	s.recState = RecordingActive
	s.output = nil
	s.logger.Info("recording started", "clips", len(s.clips))

	go s.watch(c, s.detach)

	return s.playLocked()
}

func (s *Synchronizer) failLocked(err error) error {
	s.lastErr = UserMessage(err)
	if s.capture == nil && s.recState == RecordingActive {
		s.recState = RecordingIdle
	}
	s.logger.Warn("recording failed", "error", err)
	s.changed()
	return err
}

// watch stops the recording when the capture source ends on its own.
func (s *Synchronizer) watch(c Capture, detach <-chan struct{}) {
	select {
	case <-c.Ended():
		if _, err := s.StopRecording(context.Background()); err != nil && !errors.Is(err, ErrNotRecording) {
			s.logger.Warn("auto stop of recording failed", "error", err)
		}
	case <-detach:
	}
}

// StopRecording finalizes the running capture into a single recording.
func (s *Synchronizer) StopRecording(ctx context.Context) (*Recording, error) {
	s.mu.Lock()
	if s.capture == nil {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	c := s.capture
	s.capture = nil
	close(s.detach)
	s.detach = nil
	s.mu.Unlock()

	rec, err := c.Stop(ctx)
	if err == nil && s.opts.OnRecording != nil {
		err = s.opts.OnRecording(ctx, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.recState = RecordingIdle
		s.lastErr = UserMessage(err)
		s.logger.Error("failed to finalize recording", "error", err)
		s.changed()
		return nil, err
	}
	s.recState = RecordingStopped
	s.output = rec
	s.lastErr = ""
	s.logger.Info("recording finalized", "recording_id", rec.ID, "size", rec.Size)
	s.changed()
	return rec, nil
}

// Close cancels narration and finalizes a capture still running. The
// synchronizer is unusable afterwards.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.playing = false
	s.narrator.Cancel()
	recording := s.capture != nil
	s.mu.Unlock()

	if recording {
		if _, err := s.StopRecording(context.Background()); err != nil && !errors.Is(err, ErrNotRecording) {
			s.logger.Warn("failed to finalize recording on close", "error", err)
		}
	}
}

// Snapshot returns the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	snap := Snapshot{
		Playback:  PlaybackStopped,
		Index:     s.index,
		ClipCount: len(s.clips),
		Recording: s.recState,
		Output:    s.output,
		VoiceID:   s.opts.VoiceID,
		Error:     s.lastErr,
	}
	if s.playing {
		snap.Playback = PlaybackPlaying
	}
	return snap
}

func (s *Synchronizer) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.snapshotLocked())
	}
}

// loadLocked shows the current clip and starts its narration.
func (s *Synchronizer) loadLocked() error {
	clip := s.clips[s.index]
	if obs, ok := s.capture.(ClipObserver); ok {
		obs.ClipStarted(s.index, clip)
	}
	if err := s.player.Load(s.index, clip); err != nil {
		s.logger.Warn("failed to load clip", "index", s.index, "error", err)
		return err
	}
	if clip.Narration == "" {
		return nil
	}

	s.narrator.Cancel()
	u := Utterance{Text: clip.Narration, Lang: s.opts.Language, Rate: NarrationRate}
	if v := s.selectVoice(); v != nil {
		u.Voice = v
		u.Lang = v.Lang
	}
	if err := s.narrator.Speak(u); err != nil {
		// Playback continues without narration.
		s.logger.Warn("narration failed", "index", s.index, "error", err)
	}
	return nil
}

func (s *Synchronizer) selectVoice() *Voice {
	voices := s.narrator.Voices()
	if len(voices) == 0 {
		return nil
	}
	if s.opts.VoiceID == "" {
		v := voices[0]
		return &v
	}
	for _, v := range voices {
		if v.ID == s.opts.VoiceID {
			return &v
		}
	}
	return nil
}
