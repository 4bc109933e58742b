// Package studio owns the per-session state of the app: settings, the
// storyboard and its selection, generated clips and recordings. Long
// generations run in the background, one at a time per session.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/export"
	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/logging"
	"github.com/reelsmith/reelsmith-studio/internal/media"
	"github.com/reelsmith/reelsmith-studio/internal/preview"
	"github.com/reelsmith/reelsmith-studio/internal/queue"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

const defaultVideoMIME = "video/mp4"

// RunStatus describes a session that is busy.
type RunStatus struct {
	SessionID string          `json:"session_id"`
	Activity  Activity        `json:"activity"`
	Progress  *queue.Progress `json:"progress,omitempty"`
}

type runtime struct {
	activity Activity
	progress *queue.Progress
	images   []gateway.MediaFile
}

type Service struct {
	repo     Repository
	gw       gateway.Gateway
	queue    *queue.Orchestrator
	store    *FileMediaStore
	prober   media.FFmpeg
	defaults Defaults
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	runtimes map[string]*runtime
}

type Option func(*Service)

// WithProber measures clip durations for timeline exports. Without it every
// clip counts as the session's target duration.
func WithProber(tools media.FFmpeg) Option {
	return func(s *Service) { s.prober = tools }
}

func NewService(repo Repository, gw gateway.Gateway, orch *queue.Orchestrator, store *FileMediaStore, defaults Defaults, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		repo:     repo,
		gw:       gw,
		queue:    orch,
		store:    store,
		defaults: defaults.normalize(),
		logger:   logging.WithComponent(logger, "studio"),
		ctx:      ctx,
		cancel:   cancel,
		runtimes: make(map[string]*runtime),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        NewID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.applyDefaults(sess)
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session created", "session_id", sess.ID)
	return s.GetSession(ctx, sess.ID)
}

func (s *Service) applyDefaults(sess *Session) {
	sess.Mode = ModePrompt
	sess.Prompt = ""
	sess.OverlayText = ""
	sess.TextPosition = s.defaults.TextPosition
	sess.DurationSeconds = s.defaults.DurationSeconds
	sess.DirectorMode = false
	sess.Language = s.defaults.Language
	sess.VoiceID = ""
	sess.QueueState = queue.StateIdle
	sess.LastError = ""
}

// GetSession returns the full session view including the storyboard, clips,
// recordings and the current activity.
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	shots, sel, err := s.repo.ListShots(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	sess.Shots = shots
	sess.Selected = sel.IDs()

	clips, err := s.repo.ListClips(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	sess.Clips = []*Clip{}
	for _, c := range clips {
		if c.ShotID == nil {
			sess.Video = c
			continue
		}
		sess.Clips = append(sess.Clips, c)
	}

	recs, err := s.repo.ListRecordings(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	sess.Recordings = append([]*Recording{}, recs...)

	s.mu.Lock()
	sess.Activity = ActivityIdle
	if rt, ok := s.runtimes[id]; ok {
		sess.Activity = rt.activity
		if rt.progress != nil {
			p := *rt.progress
			sess.Progress = &p
		}
		sess.ImageCount = len(rt.images)
	}
	s.mu.Unlock()
	return sess, nil
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, nil
}

func (s *Service) UpdateSettings(ctx context.Context, id string, u SettingsUpdate) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Mode != nil {
		if !u.Mode.Valid() {
			return nil, inputErr(fmt.Sprintf("Unknown input mode %q.", *u.Mode))
		}
		sess.Mode = *u.Mode
	}
	if u.DurationSeconds != nil {
		if *u.DurationSeconds < MinDurationSeconds || *u.DurationSeconds > MaxDurationSeconds {
			return nil, inputErr(fmt.Sprintf("Duration must be between %d and %d seconds.", MinDurationSeconds, MaxDurationSeconds))
		}
		sess.DurationSeconds = *u.DurationSeconds
	}
	if u.Prompt != nil {
		sess.Prompt = *u.Prompt
	}
	if u.OverlayText != nil {
		sess.OverlayText = strings.TrimSpace(*u.OverlayText)
	}
	if u.TextPosition != nil {
		sess.TextPosition = storyboard.ParseTextPosition(*u.TextPosition)
	}
	if u.DirectorMode != nil {
		sess.DirectorMode = *u.DirectorMode
	}
	if u.Language != nil {
		sess.Language = storyboard.ParseLanguage(*u.Language)
	}
	if u.VoiceID != nil {
		sess.VoiceID = *u.VoiceID
	}

	sess.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// SetImages replaces the uploaded images used by image analysis and image
// mode generation.
func (s *Service) SetImages(ctx context.Context, id string, images []gateway.MediaFile) (*Session, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	for _, img := range images {
		if !strings.HasPrefix(img.MIMEType, "image/") {
			return nil, inputErr(fmt.Sprintf("%s is not an image.", img.Name))
		}
		if len(img.Data) == 0 {
			return nil, inputErr(fmt.Sprintf("%s is empty.", img.Name))
		}
	}

	s.mu.Lock()
	rt := s.runtimeLocked(id)
	if rt.activity == ActivityAnalyzingImages {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	rt.images = append([]gateway.MediaFile(nil), images...)
	s.mu.Unlock()

	return s.GetSession(ctx, id)
}

// ExpandScript turns the session prompt, read as an idea, into a full
// script. The storyboard is discarded.
func (s *Service) ExpandScript(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sess.Prompt) == "" {
		return nil, inputErr("Please enter an idea to expand.")
	}
	if err := s.begin(ctx, id, ActivityExpanding); err != nil {
		return nil, err
	}
	defer s.finish(id)

	script, err := s.gw.ExpandScript(ctx, sess.Prompt)
	if err != nil {
		return nil, s.fail(ctx, id, gateway.OpExpandScript, err)
	}

	sess.Prompt = script
	if err := s.replaceStoryboard(ctx, sess, nil); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// AnalyzeDocument writes a script from an uploaded document and switches the
// session to prompt mode.
func (s *Service) AnalyzeDocument(ctx context.Context, id string, doc gateway.MediaFile) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, inputErr("Please upload a document to analyze.")
	}
	if err := s.begin(ctx, id, ActivityAnalyzingDocument); err != nil {
		return nil, err
	}
	defer s.finish(id)

	script, err := s.gw.AnalyzeDocument(ctx, doc)
	if err != nil {
		return nil, s.fail(ctx, id, gateway.OpAnalyzeDocument, err)
	}

	sess.Prompt = script
	sess.Mode = ModePrompt
	if err := s.replaceStoryboard(ctx, sess, nil); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// AnalyzeImages builds a storyboard from the uploaded images. The images
// and the prompt are consumed.
func (s *Service) AnalyzeImages(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	images := s.images(id)
	if len(images) == 0 {
		return nil, inputErr("Please upload at least one image.")
	}
	if err := s.begin(ctx, id, ActivityAnalyzingImages); err != nil {
		return nil, err
	}
	defer s.finish(id)

	beats, err := s.gw.AnalyzeImages(ctx, images)
	if err != nil {
		return nil, s.fail(ctx, id, gateway.OpAnalyzeImages, err)
	}

	s.mu.Lock()
	s.runtimeLocked(id).images = nil
	s.mu.Unlock()

	sess.Prompt = ""
	sess.Mode = ModePrompt
	if err := s.replaceStoryboard(ctx, sess, storyboard.New(beats)); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// ExtractShots splits the session script into a new storyboard.
func (s *Service) ExtractShots(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sess.Prompt) == "" {
		return nil, inputErr("Please enter a script to split into shots.")
	}
	if err := s.begin(ctx, id, ActivityExtractingShots); err != nil {
		return nil, err
	}
	defer s.finish(id)

	beats, err := s.gw.ExtractShots(ctx, sess.Prompt)
	if err != nil {
		return nil, s.fail(ctx, id, gateway.OpExtractShots, err)
	}

	if err := s.replaceStoryboard(ctx, sess, storyboard.New(beats)); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

func (s *Service) replaceStoryboard(ctx context.Context, sess *Session, shots []storyboard.Shot) error {
	if err := s.repo.ReplaceShots(ctx, sess.ID, shots); err != nil {
		return fmt.Errorf("replace shots: %w", err)
	}
	sess.LastError = ""
	sess.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// UpdateShot changes the camera fields of one shot.
func (s *Service) UpdateShot(ctx context.Context, id string, shotID int, u storyboard.CameraUpdate) (*storyboard.Shot, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	shots, _, err := s.repo.ListShots(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	shot, err := storyboard.UpdateCamera(shots, shotID, u)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShot(ctx, id, *shot); err != nil {
		return nil, fmt.Errorf("update shot: %w", err)
	}
	return shot, nil
}

// SetSelection replaces the selected shots. all selects the whole storyboard.
func (s *Service) SetSelection(ctx context.Context, id string, ids []int, all bool) ([]int, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	shots, _, err := s.repo.ListShots(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}

	sel := storyboard.NewSelection(ids...)
	if all {
		sel = storyboard.SelectAll(shots)
	}
	if err := sel.Validate(shots); err != nil {
		return nil, err
	}
	if err := s.repo.SetSelection(ctx, id, sel.IDs()); err != nil {
		return nil, fmt.Errorf("set selection: %w", err)
	}
	return sel.IDs(), nil
}

// Generate starts a single free-form generation in the background and
// replaces the previous one.
func (s *Service) Generate(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	var image *gateway.MediaFile
	switch sess.Mode {
	case ModePrompt:
		if strings.TrimSpace(sess.Prompt) == "" {
			return inputErr("Please enter a description to generate the video.")
		}
	case ModeImages:
		images := s.images(id)
		if len(images) == 0 {
			return inputErr("Please upload at least one image.")
		}
		image = &images[0]
	default:
		return inputErr("Analyze the document into a script before generating.")
	}

	if err := s.begin(ctx, id, ActivityGenerating); err != nil {
		return err
	}
	if err := s.removeClips(ctx, id, true); err != nil {
		s.finish(id)
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish(id)
		s.runGenerate(sess, image)
	}()
	return nil
}

func (s *Service) runGenerate(sess *Session, image *gateway.MediaFile) {
	ctx := s.ctx
	persist := context.WithoutCancel(ctx)
	logger := logging.WithSessionID(s.logger, sess.ID)
	settings := sess.Settings()

	var prompt string
	if image != nil {
		prompt = storyboard.AdHocPrompt(storyboard.ImageBasePrompt(sess.Prompt, sess.Language), settings)
	} else {
		working := sess.Prompt
		if sess.DirectorMode {
			summary, err := s.gw.SummarizeScript(ctx, working)
			if err != nil {
				s.fail(persist, sess.ID, gateway.OpSummarizeScript, err)
				return
			}
			working = summary
		}
		prompt = storyboard.AdHocPrompt(working, settings)
	}

	video, err := s.gw.GenerateVideo(ctx, prompt, image)
	if err != nil {
		s.fail(persist, sess.ID, gateway.OpGenerateVideo, err)
		return
	}
	path, err := s.store.SaveClip(ctx, SingleClipName, video)
	if err != nil {
		s.fail(persist, sess.ID, gateway.OpGenerateVideo, err)
		return
	}

	var narration *string
	if text, err := s.gw.GenerateNarration(ctx, prompt); err != nil {
		logger.Warn("narration failed, keeping video without it", "error", err)
	} else {
		narration = &text
	}

	clip := &Clip{
		ID:        NewID(),
		SessionID: sess.ID,
		Name:      SingleClipName,
		Path:      path,
		MIMEType:  mimeOrDefault(video.MIMEType),
		Narration: narration,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateClip(persist, clip); err != nil {
		s.store.Remove(path)
		s.fail(persist, sess.ID, gateway.OpGenerateVideo, fmt.Errorf("save clip: %w", err))
		return
	}
	logger.Info("video generated", "clip_id", clip.ID, "narrated", narration != nil, "image", image != nil)
}

// ProduceQueue starts a queue run over the selected shots in the background.
// The previous queue clips are discarded.
func (s *Service) ProduceQueue(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	shots, sel, err := s.repo.ListShots(ctx, id)
	if err != nil {
		return fmt.Errorf("list shots: %w", err)
	}
	if sel.Empty() {
		return queue.ErrEmptySelection
	}
	if err := sel.Validate(shots); err != nil {
		return err
	}

	if err := s.begin(ctx, id, ActivityProducingQueue); err != nil {
		return err
	}
	if err := s.removeClips(ctx, id, false); err != nil {
		s.finish(id)
		return err
	}
	if err := s.repo.UpdateQueueState(ctx, id, queue.StateRunning, ""); err != nil {
		s.finish(id)
		return fmt.Errorf("update queue state: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish(id)
		s.runQueue(sess, shots, sel)
	}()
	return nil
}

func (s *Service) runQueue(sess *Session, shots []storyboard.Shot, sel storyboard.Selection) {
	persist := context.WithoutCancel(s.ctx)
	logger := logging.WithSessionID(s.logger, sess.ID)

	clips, runErr := s.queue.Run(s.ctx, shots, sel, sess.Settings(), func(p queue.Progress) {
		s.mu.Lock()
		s.runtimeLocked(sess.ID).progress = &p
		s.mu.Unlock()
	})

	now := time.Now().UTC()
	for i, c := range clips {
		shotID := c.ShotID
		clip := &Clip{
			ID:        NewID(),
			SessionID: sess.ID,
			Position:  i,
			ShotID:    &shotID,
			Name:      c.Name,
			Path:      c.Src,
			MIMEType:  mimeOrDefault(c.MIMEType),
			Narration: c.Narration,
			CreatedAt: now,
		}
		if err := s.repo.CreateClip(persist, clip); err != nil {
			logger.Error("failed to save queue clip", "name", c.Name, "error", err)
			s.store.Remove(c.Src)
		}
	}

	if runErr != nil {
		msg := gateway.UserMessage(runErr)
		var shotErr *queue.ShotError
		if errors.As(runErr, &shotErr) {
			msg = shotErr.UserMessage()
		}
		if err := s.repo.UpdateQueueState(persist, sess.ID, queue.StateFailed, msg); err != nil {
			logger.Error("failed to record queue failure", "error", err)
		}
		return
	}
	if err := s.repo.UpdateQueueState(persist, sess.ID, queue.StateCompleted, ""); err != nil {
		logger.Error("failed to record queue completion", "error", err)
	}
}

// Reset starts the session over with default settings. Shots, clips and
// recordings are discarded.
func (s *Service) Reset(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.begin(ctx, id, ActivityResetting); err != nil {
		return nil, err
	}
	defer s.finish(id)

	s.mu.Lock()
	s.runtimeLocked(id).images = nil
	s.mu.Unlock()

	if err := s.removeMedia(ctx, id); err != nil {
		return nil, err
	}
	s.applyDefaults(sess)
	if err := s.replaceStoryboard(ctx, sess, nil); err != nil {
		return nil, err
	}
	s.logger.Info("session reset", "session_id", id)
	return s.GetSession(ctx, id)
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.begin(ctx, id, ActivityDeleting); err != nil {
		return err
	}
	defer s.finish(id)
	if err := s.removeMedia(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.mu.Lock()
	delete(s.runtimes, id)
	s.mu.Unlock()
	s.logger.Info("session deleted", "session_id", id)
	return nil
}

func (s *Service) removeMedia(ctx context.Context, id string) error {
	if err := s.removeClips(ctx, id, true); err != nil {
		return err
	}
	if err := s.removeClips(ctx, id, false); err != nil {
		return err
	}
	recs, err := s.repo.ListRecordings(ctx, id)
	if err != nil {
		return fmt.Errorf("list recordings: %w", err)
	}
	for _, rec := range recs {
		s.store.Remove(rec.Path)
	}
	if err := s.repo.DeleteRecordings(ctx, id); err != nil {
		return fmt.Errorf("delete recordings: %w", err)
	}
	return nil
}

func (s *Service) removeClips(ctx context.Context, id string, single bool) error {
	clips, err := s.repo.ListClips(ctx, id)
	if err != nil {
		return fmt.Errorf("list clips: %w", err)
	}
	for _, c := range clips {
		if (c.ShotID == nil) == single {
			s.store.Remove(c.Path)
		}
	}
	if err := s.repo.DeleteClips(ctx, id, single); err != nil {
		return fmt.Errorf("delete clips: %w", err)
	}
	return nil
}

// PreviewClips are the queue clips in playback order.
func (s *Service) PreviewClips(ctx context.Context, id string) ([]preview.Clip, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	clips, err := s.repo.ListClips(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	out := make([]preview.Clip, 0, len(clips))
	for _, c := range clips {
		if c.ShotID == nil {
			continue
		}
		pc := preview.Clip{ID: c.ID, Name: c.Name, URL: c.URL, Path: c.Path, MIMEType: c.MIMEType}
		if c.Narration != nil {
			pc.Narration = *c.Narration
		}
		out = append(out, pc)
	}
	return out, nil
}

// Timeline lays the queue clips end to end for export.
func (s *Service) Timeline(ctx context.Context, id string) ([]export.TimelineClip, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	clips, err := s.PreviewClips(ctx, id)
	if err != nil {
		return nil, err
	}

	timeline := make([]export.TimelineClip, 0, len(clips))
	for _, c := range clips {
		durationMs := sess.DurationSeconds * 1000
		if s.prober != nil {
			if probe, err := s.prober.Probe(ctx, c.Path); err == nil && probe.Duration > 0 {
				durationMs = int(probe.Duration.Milliseconds())
			} else if err != nil {
				s.logger.Debug("probe failed, using target duration", "clip_id", c.ID, "error", err)
			}
		}
		timeline = append(timeline, export.TimelineClip{
			Name:       c.Name,
			MediaPath:  c.Name,
			DurationMs: durationMs,
			Narration:  c.Narration,
		})
	}
	return timeline, nil
}

func (s *Service) Clip(ctx context.Context, clipID string) (*Clip, error) {
	c, err := s.repo.GetClip(ctx, clipID)
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("clip %s: %w", clipID, ErrNotFound)
	}
	return c, nil
}

// SaveRecording keeps a finalized preview capture with the session.
func (s *Service) SaveRecording(ctx context.Context, sessionID string, rec *preview.Recording) (*Recording, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	stored := &Recording{
		ID:        rec.ID,
		SessionID: sessionID,
		Name:      rec.Name,
		Path:      rec.Path,
		MIMEType:  rec.MIMEType,
		Size:      rec.Size,
		CreatedAt: rec.CreatedAt.UTC(),
	}
	if stored.ID == "" {
		stored.ID = NewID()
	}
	if err := s.repo.CreateRecording(ctx, stored); err != nil {
		return nil, fmt.Errorf("save recording: %w", err)
	}
	s.logger.Info("recording saved", "session_id", sessionID, "recording_id", stored.ID, "size", stored.Size)
	return stored, nil
}

func (s *Service) Recording(ctx context.Context, id string) (*Recording, error) {
	rec, err := s.repo.GetRecording(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *Service) SetRecordingShareURL(ctx context.Context, id, shareURL string) (*Recording, error) {
	rec, err := s.Recording(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRecordingShareURL(ctx, id, shareURL); err != nil {
		return nil, fmt.Errorf("update share url: %w", err)
	}
	rec.ShareURL = shareURL
	return rec, nil
}

func (s *Service) SessionCount(ctx context.Context) (int, error) {
	return s.repo.CountSessions(ctx)
}

// Runs lists the sessions that are busy, ordered by session id.
func (s *Service) Runs() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	var runs []RunStatus
	for id, rt := range s.runtimes {
		if rt.activity == ActivityIdle {
			continue
		}
		run := RunStatus{SessionID: id, Activity: rt.activity}
		if rt.progress != nil {
			p := *rt.progress
			run.Progress = &p
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].SessionID < runs[j].SessionID })
	return runs
}

func (s *Service) ActiveRuns() int {
	return len(s.Runs())
}

// Shutdown cancels background generations and waits for them to record
// their outcome.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin reserves the session for act and clears its last error. Every
// successful begin must be paired with finish.
func (s *Service) begin(ctx context.Context, id string, act Activity) error {
	s.mu.Lock()
	rt := s.runtimeLocked(id)
	if rt.activity != ActivityIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, rt.activity)
	}
	rt.activity = act
	rt.progress = nil
	s.mu.Unlock()

	if err := s.repo.SetLastError(ctx, id, ""); err != nil {
		s.finish(id)
		return fmt.Errorf("clear last error: %w", err)
	}
	return nil
}

func (s *Service) finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.runtimes[id]; ok {
		rt.activity = ActivityIdle
		rt.progress = nil
	}
}

func (s *Service) runtimeLocked(id string) *runtime {
	rt, ok := s.runtimes[id]
	if !ok {
		rt = &runtime{activity: ActivityIdle}
		s.runtimes[id] = rt
	}
	return rt
}

func (s *Service) images(id string) []gateway.MediaFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.runtimes[id]; ok {
		return append([]gateway.MediaFile(nil), rt.images...)
	}
	return nil
}

// fail records the user-facing message of err on the session and returns err.
func (s *Service) fail(ctx context.Context, id, op string, err error) error {
	msg := gateway.UserMessage(err)
	s.logger.Warn("session action failed", "session_id", id, "op", op, "error", err)
	if recErr := s.repo.SetLastError(ctx, id, msg); recErr != nil {
		s.logger.Error("failed to record session error", "session_id", id, "error", recErr)
	}
	return err
}

func mimeOrDefault(mimeType string) string {
	if mimeType == "" {
		return defaultVideoMIME
	}
	return mimeType
}
