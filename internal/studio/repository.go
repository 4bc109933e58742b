package studio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/queue"
	"github.com/reelsmith/reelsmith-studio/internal/storyboard"
)

type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	UpdateQueueState(ctx context.Context, id string, state queue.State, lastError string) error
	SetLastError(ctx context.Context, id, lastError string) error
	CountSessions(ctx context.Context) (int, error)
	DeleteSession(ctx context.Context, id string) error

	ReplaceShots(ctx context.Context, sessionID string, shots []storyboard.Shot) error
	ListShots(ctx context.Context, sessionID string) ([]storyboard.Shot, storyboard.Selection, error)
	UpdateShot(ctx context.Context, sessionID string, shot storyboard.Shot) error
	SetSelection(ctx context.Context, sessionID string, ids []int) error

	CreateClip(ctx context.Context, c *Clip) error
	GetClip(ctx context.Context, id string) (*Clip, error)
	ListClips(ctx context.Context, sessionID string) ([]*Clip, error)
	DeleteClips(ctx context.Context, sessionID string, single bool) error

	CreateRecording(ctx context.Context, r *Recording) error
	GetRecording(ctx context.Context, id string) (*Recording, error)
	ListRecordings(ctx context.Context, sessionID string) ([]*Recording, error)
	UpdateRecordingShareURL(ctx context.Context, id, shareURL string) error
	DeleteRecordings(ctx context.Context, sessionID string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sessionColumns = `id, mode, prompt, overlay_text, text_position, duration_seconds, director_mode,
	language, voice_id, queue_state, last_error, created_at, updated_at`

func (r *SQLiteRepository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, string(s.Mode), s.Prompt, s.OverlayText, string(s.TextPosition), s.DurationSeconds, boolToInt(s.DirectorMode),
		string(s.Language), s.VoiceID, string(s.QueueState), nullString(s.LastError),
		s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	var s Session
	var mode, textPosition, language, queueState, createdAt, updatedAt string
	var directorMode int
	var lastError sql.NullString

	err := row.Scan(&s.ID, &mode, &s.Prompt, &s.OverlayText, &textPosition, &s.DurationSeconds, &directorMode,
		&language, &s.VoiceID, &queueState, &lastError, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Mode = Mode(mode)
	s.TextPosition = storyboard.TextPosition(textPosition)
	s.Language = storyboard.Language(language)
	s.QueueState = queue.State(queueState)
	s.DirectorMode = directorMode == 1
	s.LastError = lastError.String
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

func (r *SQLiteRepository) UpdateSession(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET mode = ?, prompt = ?, overlay_text = ?, text_position = ?, duration_seconds = ?,
			director_mode = ?, language = ?, voice_id = ?, queue_state = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, string(s.Mode), s.Prompt, s.OverlayText, string(s.TextPosition), s.DurationSeconds,
		boolToInt(s.DirectorMode), string(s.Language), s.VoiceID, string(s.QueueState), nullString(s.LastError),
		s.UpdatedAt.Format(time.RFC3339), s.ID)
	return err
}

func (r *SQLiteRepository) UpdateQueueState(ctx context.Context, id string, state queue.State, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET queue_state = ?, last_error = ?, updated_at = ? WHERE id = ?
	`, string(state), nullString(lastError), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) SetLastError(ctx context.Context, id, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_error = ?, updated_at = ? WHERE id = ?
	`, nullString(lastError), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// DropMedia forgets the clips and recordings of every session. Used at
// startup, after the media directory has been emptied.
func (r *SQLiteRepository) DropMedia(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM clips", "DELETE FROM recordings"} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// ReplaceShots swaps the storyboard of a session. The new shots start unselected.
func (r *SQLiteRepository) ReplaceShots(ctx context.Context, sessionID string, shots []storyboard.Shot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM shots WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	for _, shot := range shots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shots (session_id, shot_id, visual, overlay, camera_motion, motion_amount, selected)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, sessionID, shot.ID, shot.Visual, shot.Overlay, string(shot.CameraMotion), int(shot.MotionAmount)); err != nil {
			return fmt.Errorf("insert shot %d: %w", shot.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListShots(ctx context.Context, sessionID string) ([]storyboard.Shot, storyboard.Selection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT shot_id, visual, overlay, camera_motion, motion_amount, selected
		FROM shots WHERE session_id = ? ORDER BY shot_id
	`, sessionID)
	if err != nil {
		return nil, storyboard.Selection{}, err
	}
	defer rows.Close()

	shots := []storyboard.Shot{}
	var selected []int
	for rows.Next() {
		var shot storyboard.Shot
		var motion string
		var amount, sel int
		if err := rows.Scan(&shot.ID, &shot.Visual, &shot.Overlay, &motion, &amount, &sel); err != nil {
			return nil, storyboard.Selection{}, err
		}
		shot.CameraMotion = storyboard.CameraMotion(motion)
		shot.MotionAmount = storyboard.MotionAmount(amount)
		shots = append(shots, shot)
		if sel == 1 {
			selected = append(selected, shot.ID)
		}
	}
	return shots, storyboard.NewSelection(selected...), rows.Err()
}

func (r *SQLiteRepository) UpdateShot(ctx context.Context, sessionID string, shot storyboard.Shot) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shots SET camera_motion = ?, motion_amount = ? WHERE session_id = ? AND shot_id = ?
	`, string(shot.CameraMotion), int(shot.MotionAmount), sessionID, shot.ID)
	return err
}

func (r *SQLiteRepository) SetSelection(ctx context.Context, sessionID string, ids []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE shots SET selected = 0 WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE shots SET selected = 1 WHERE session_id = ? AND shot_id = ?
		`, sessionID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateClip(ctx context.Context, c *Clip) error {
	var shotID sql.NullInt64
	if c.ShotID != nil {
		shotID = sql.NullInt64{Int64: int64(*c.ShotID), Valid: true}
	}
	var narration sql.NullString
	if c.Narration != nil {
		narration = sql.NullString{String: *c.Narration, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clips (id, session_id, position, shot_id, name, path, mime_type, narration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SessionID, c.Position, shotID, c.Name, c.Path, c.MIMEType, narration, c.CreatedAt.Format(time.RFC3339))
	return err
}

const clipColumns = "id, session_id, position, shot_id, name, path, mime_type, narration, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanClip(row scanner) (*Clip, error) {
	var c Clip
	var shotID sql.NullInt64
	var narration sql.NullString
	var createdAt string

	if err := row.Scan(&c.ID, &c.SessionID, &c.Position, &shotID, &c.Name, &c.Path, &c.MIMEType, &narration, &createdAt); err != nil {
		return nil, err
	}
	if shotID.Valid {
		id := int(shotID.Int64)
		c.ShotID = &id
	}
	if narration.Valid {
		text := narration.String
		c.Narration = &text
	}
	c.URL = ClipURL(c.ID)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func (r *SQLiteRepository) GetClip(ctx context.Context, id string) (*Clip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	c, err := scanClip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *SQLiteRepository) ListClips(ctx context.Context, sessionID string) ([]*Clip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE session_id = ? ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

// DeleteClips removes either the free-form clip (single) or the queue clips.
func (r *SQLiteRepository) DeleteClips(ctx context.Context, sessionID string, single bool) error {
	query := "DELETE FROM clips WHERE session_id = ? AND shot_id IS NOT NULL"
	if single {
		query = "DELETE FROM clips WHERE session_id = ? AND shot_id IS NULL"
	}
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}

func (r *SQLiteRepository) CreateRecording(ctx context.Context, rec *Recording) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recordings (id, session_id, name, path, mime_type, size, share_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.SessionID, rec.Name, rec.Path, rec.MIMEType, rec.Size, nullString(rec.ShareURL), rec.CreatedAt.Format(time.RFC3339))
	return err
}

const recordingColumns = "id, session_id, name, path, mime_type, size, share_url, created_at"

func scanRecording(row scanner) (*Recording, error) {
	var rec Recording
	var shareURL sql.NullString
	var createdAt string

	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.Name, &rec.Path, &rec.MIMEType, &rec.Size, &shareURL, &createdAt); err != nil {
		return nil, err
	}
	rec.ShareURL = shareURL.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

func (r *SQLiteRepository) GetRecording(ctx context.Context, id string) (*Recording, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *SQLiteRepository) ListRecordings(ctx context.Context, sessionID string) ([]*Recording, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordingColumns+` FROM recordings WHERE session_id = ? ORDER BY created_at, rowid
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteRepository) UpdateRecordingShareURL(ctx context.Context, id, shareURL string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE recordings SET share_url = ? WHERE id = ?", nullString(shareURL), id)
	return err
}

func (r *SQLiteRepository) DeleteRecordings(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM recordings WHERE session_id = ?", sessionID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
