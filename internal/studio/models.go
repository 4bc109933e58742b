package studio

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reelsmith/reelsmith-studio/internal/queue"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

// Mode is the input tab the session generates from.
type Mode string

const (
	ModePrompt   Mode = "prompt"
	ModeImages   Mode = "images"
	ModeDocument Mode = "document"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePrompt, ModeImages, ModeDocument:
		return true
	}
	return false
}

// Activity is the long-running action a session is busy with.
type Activity string

const (
	ActivityIdle              Activity = "idle"
	ActivityExpanding         Activity = "expanding"
	ActivityAnalyzingDocument Activity = "analyzing_document"
	ActivityAnalyzingImages   Activity = "analyzing_images"
	ActivityExtractingShots   Activity = "extracting_shots"
	ActivityGenerating        Activity = "generating"
	ActivityProducingQueue    Activity = "producing_queue"
	ActivityResetting         Activity = "resetting"
	ActivityDeleting          Activity = "deleting"
)

const (
	MinDurationSeconds = 2
	MaxDurationSeconds = 10

	// SingleClipName is the file name of a free-form generation.
	SingleClipName = "generated_video.mp4"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrBusy is returned when a session already runs a long action.
	ErrBusy = errors.New("session is busy")
)

// InputError is a request the user can fix. Its message is shown as is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func inputErr(msg string) error { return &InputError{Message: msg} }

type Session struct {
	ID              string                  `json:"id"`
	Mode            Mode                    `json:"mode"`
	Prompt          string                  `json:"prompt"`
	OverlayText     string                  `json:"overlay_text"`
	TextPosition    storyboard.TextPosition `json:"text_position"`
	DurationSeconds int                     `json:"duration_seconds"`
	DirectorMode    bool                    `json:"director_mode"`
	Language        storyboard.Language     `json:"language"`
	VoiceID         string                  `json:"voice_id,omitempty"`
	QueueState      queue.State             `json:"queue_state"`
	LastError       string                  `json:"last_error,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`

	Shots      []storyboard.Shot `json:"shots"`
	Selected   []int             `json:"selected"`
	Video      *Clip             `json:"video,omitempty"`
	Clips      []*Clip           `json:"clips"`
	Recordings []*Recording      `json:"recordings"`

	Activity   Activity        `json:"activity"`
	Progress   *queue.Progress `json:"progress,omitempty"`
	ImageCount int             `json:"image_count"`
}

// Settings are the prompt settings of the session.
func (s *Session) Settings() storyboard.Settings {
	return storyboard.Settings{
		DurationSeconds: s.DurationSeconds,
		OverlayText:     s.OverlayText,
		TextPosition:    s.TextPosition,
		Language:        s.Language,
	}
}

// Clip is a stored video. ShotID is nil for a free-form generation.
type Clip struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Position  int       `json:"position"`
	ShotID    *int      `json:"shot_id,omitempty"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	MIMEType  string    `json:"mime_type"`
	Narration *string   `json:"narration,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type Recording struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	ShareURL  string    `json:"share_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Defaults seed new sessions and resets.
type Defaults struct {
	Language        storyboard.Language
	DurationSeconds int
	TextPosition    storyboard.TextPosition
}

func (d Defaults) normalize() Defaults {
	if d.Language == "" {
		d.Language = storyboard.English
	}
	if d.DurationSeconds < MinDurationSeconds || d.DurationSeconds > MaxDurationSeconds {
		d.DurationSeconds = storyboard.DefaultDurationSeconds
	}
	if d.TextPosition == "" {
		d.TextPosition = storyboard.DefaultTextPosition
	}
	return d
}

// SettingsUpdate is a partial change to a session's settings.
type SettingsUpdate struct {
	Mode            *Mode
	Prompt          *string
	OverlayText     *string
	TextPosition    *string
	DurationSeconds *int
	DirectorMode    *bool
	Language        *string
	VoiceID         *string
}

func NewID() string {
	return uuid.NewString()
}

// ClipURL is where the browser fetches a stored clip.
func ClipURL(id string) string {
	return "/media/clips/" + id
}
