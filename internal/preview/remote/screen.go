// Package remote drives a browser preview page over a websocket. The page
// plays the clips and speaks narration; the server keeps the state machine.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/preview"
)

// Message types sent to the page.
const (
	TypeLoad         = "load"
	TypeSpeak        = "speak"
	TypeCancelSpeech = "cancel_speech"
	TypeState        = "state"
	TypeRecording    = "recording"
	TypeError        = "error"
)

// Message types received from the page.
const (
	TypeHello          = "hello"
	TypePlay           = "play"
	TypeStop           = "stop"
	TypeEnded          = "ended"
	TypeStartRecording = "start_recording"
	TypeStopRecording  = "stop_recording"
	TypeSelectVoice    = "select_voice"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 << 10
)

// RecordingLinks is what the page needs to offer a finished recording.
type RecordingLinks struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DownloadURL string `json:"downloadUrl"`
	QRCodeURL   string `json:"qrCodeUrl,omitempty"`
	ShareURL    string `json:"shareUrl,omitempty"`
	CanShare    bool   `json:"canShare"`
}

// Message is the envelope for both directions. Only the fields relevant to
// Type are set.
type Message struct {
	Type      string             `json:"type"`
	Index     int                `json:"index"`
	Clip      *preview.Clip      `json:"clip,omitempty"`
	Utterance *preview.Utterance `json:"utterance,omitempty"`
	State     *preview.Snapshot  `json:"state,omitempty"`
	Recording *RecordingLinks    `json:"recording,omitempty"`
	Error     string             `json:"error,omitempty"`
	Voices    []preview.Voice    `json:"voices,omitempty"`
	VoiceID   string             `json:"voiceId,omitempty"`
}

// Screen is a preview.Player and preview.Narrator backed by a websocket.
type Screen struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	voicesMu sync.RWMutex
	voices   []preview.Voice
}

var (
	_ preview.Player   = (*Screen)(nil)
	_ preview.Narrator = (*Screen)(nil)
)

// NewScreen wraps an upgraded connection.
func NewScreen(conn *websocket.Conn, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Screen{conn: conn, logger: logging.WithComponent(logger, "preview_screen")}
}

func (s *Screen) Load(index int, clip preview.Clip) error {
	return s.send(Message{Type: TypeLoad, Index: index, Clip: &clip})
}

func (s *Screen) Voices() []preview.Voice {
	s.voicesMu.RLock()
	defer s.voicesMu.RUnlock()
	return append([]preview.Voice(nil), s.voices...)
}

func (s *Screen) Speak(u preview.Utterance) error {
	return s.send(Message{Type: TypeSpeak, Utterance: &u})
}

func (s *Screen) Cancel() {
	if err := s.send(Message{Type: TypeCancelSpeech}); err != nil {
		s.logger.Debug("failed to cancel speech", "error", err)
	}
}

// SendState pushes a state snapshot to the page.
func (s *Screen) SendState(snap preview.Snapshot) {
	if err := s.send(Message{Type: TypeState, State: &snap}); err != nil {
		s.logger.Debug("failed to send state", "error", err)
	}
}

// SendRecording offers a finished recording to the page.
func (s *Screen) SendRecording(links RecordingLinks) {
	if err := s.send(Message{Type: TypeRecording, Recording: &links}); err != nil {
		s.logger.Debug("failed to send recording", "error", err)
	}
}

// SendError shows a message on the page.
func (s *Screen) SendError(msg string) {
	if err := s.send(Message{Type: TypeError, Error: msg}); err != nil {
		s.logger.Debug("failed to send error", "error", err)
	}
}

func (s *Screen) send(m Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(m)
}

// Serve reads page events and applies them to syncer until the connection
// closes or ctx is done. A normal close returns nil.
func (s *Screen) Serve(ctx context.Context, syncer *preview.Synchronizer) error {
	s.conn.SetReadLimit(maxMessage)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ctx, done)

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("preview connection closed: %w", err)
			}
			return fmt.Errorf("read preview message: %w", err)
		}
		s.handle(ctx, syncer, msg)
	}
}

func (s *Screen) handle(ctx context.Context, syncer *preview.Synchronizer, msg Message) {
	var err error
	switch msg.Type {
	case TypeHello:
		s.voicesMu.Lock()
		s.voices = msg.Voices
		s.voicesMu.Unlock()
		s.SendState(syncer.Snapshot())
	case TypePlay:
		err = syncer.Play()
	case TypeStop:
		syncer.Stop()
	case TypeEnded:
		err = syncer.ClipEnded(msg.Index)
	case TypeSelectVoice:
		syncer.SetVoice(msg.VoiceID)
	case TypeStartRecording:
		err = syncer.StartRecording(ctx)
	case TypeStopRecording:
		_, err = syncer.StopRecording(ctx)
	default:
		s.SendError(fmt.Sprintf("Unknown message type %q.", msg.Type))
		return
	}
	if err != nil {
		s.logger.Warn("preview event failed", "type", msg.Type, "error", err)
		s.SendError(preview.UserMessage(err))
	}
}

// keepAlive pings the page and closes the socket once ctx is done.
func (s *Screen) keepAlive(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			s.conn.Close()
			return
		case <-done:
			return
		}
	}
}
