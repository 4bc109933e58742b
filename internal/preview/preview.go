// Package preview plays generated clips back to back with narration and
// captures the result as a single recording.
package preview

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPermissionDenied   = errors.New("screen capture permission denied")
	ErrCaptureUnavailable = errors.New("screen capture unavailable")
	ErrAlreadyRecording   = errors.New("already recording")
	ErrNotRecording       = errors.New("not recording")
	ErrNoClips            = errors.New("no clips to preview")
	ErrClosed             = errors.New("preview closed")
)

// NarrationRate is the speaking rate used for every utterance.
const NarrationRate = 0.9

// Clip is one playable clip of the preview.
type Clip struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Path      string `json:"-"`
	MIMEType  string `json:"mimeType"`
	Narration string `json:"narration,omitempty"`
}

// Voice is a narrator voice reported by the playback client.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Utterance is one narration request. Voice is nil when the selected voice
// is unknown, in which case Lang picks a generic voice.
type Utterance struct {
	Text  string  `json:"text"`
	Voice *Voice  `json:"voice,omitempty"`
	Lang  string  `json:"lang"`
	Rate  float64 `json:"rate"`
}

// Player shows a clip. Load must not call back into the Synchronizer.
type Player interface {
	Load(index int, clip Clip) error
}

// Narrator speaks narration text.
type Narrator interface {
	Voices() []Voice
	Speak(u Utterance) error
	Cancel()
}

// Recorder starts a capture of the preview.
type Recorder interface {
	Start(ctx context.Context, clips []Clip) (Capture, error)
}

// Capture is a running recording. Ended is closed when the capture source
// goes away on its own.
type Capture interface {
	Ended() <-chan struct{}
	Stop(ctx context.Context) (*Recording, error)
}

// ClipObserver is implemented by captures that compose their output from
// the clips actually shown.
type ClipObserver interface {
	ClipStarted(index int, clip Clip)
}

// Recording is a finalized capture.
type Recording struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIMEType  string    `json:"mimeType"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaybackState of the preview.
type PlaybackState string

const (
	PlaybackStopped PlaybackState = "stopped"
	PlaybackPlaying PlaybackState = "playing"
)

// RecordingState of the preview.
type RecordingState string

const (
	RecordingIdle    RecordingState = "not_recording"
	RecordingActive  RecordingState = "recording"
	RecordingStopped RecordingState = "stopped"
)

// Snapshot is the observable state of a Synchronizer.
type Snapshot struct {
	Playback  PlaybackState  `json:"playback"`
	Index     int            `json:"index"`
	ClipCount int            `json:"clipCount"`
	Recording RecordingState `json:"recording"`
	Output    *Recording     `json:"output,omitempty"`
	VoiceID   string         `json:"voiceId,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// UserMessage renders a recording failure for display. Every recording
// failure is recoverable.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Screen recording permission was denied. You can try again."
	case errors.Is(err, ErrCaptureUnavailable):
		return "Screen recording is not available in this environment."
	case errors.Is(err, ErrAlreadyRecording):
		return "A recording is already in progress."
	case errors.Is(err, ErrNotRecording):
		return "No recording is in progress."
	case errors.Is(err, ErrNoClips):
		return "There are no clips to play."
	default:
		return "An unexpected error occurred while recording: " + err.Error()
	}
}
