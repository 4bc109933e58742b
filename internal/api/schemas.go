package api

import (
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/gateway"
	"github.com/reelsmith/reelsmith-studio/internal/media"
	"github.com/reelsmith/reelsmith-studio/internal/studio"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State      string              `json:"state"`
	Sessions   int                 `json:"sessions"`
	ActiveRuns int                 `json:"active_runs"`
	Runs       []studio.RunStatus  `json:"runs"`
	Disk       *DiskResponse       `json:"disk,omitempty"`
	Media      *MediaToolsResponse `json:"media,omitempty"`
}

type DiskResponse struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type MediaToolsResponse struct {
	FFmpeg        bool   `json:"ffmpeg"`
	FFprobe       bool   `json:"ffprobe"`
	FFmpegVersion string `json:"ffmpeg_version,omitempty"`
	CanRecord     bool   `json:"can_record"`
	LastProbeAt   string `json:"last_probe_at,omitempty"`
}

// SettingsRequest carries a partial settings update. Absent fields are kept.
type SettingsRequest struct {
	Mode            *string `json:"mode,omitempty"`
	Prompt          *string `json:"prompt,omitempty"`
	OverlayText     *string `json:"overlay_text,omitempty"`
	TextPosition    *string `json:"text_position,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	DirectorMode    *bool   `json:"director_mode,omitempty"`
	Language        *string `json:"language,omitempty"`
	VoiceID         *string `json:"voice_id,omitempty"`
}

// ImageUpload is one image-mode upload.
type ImageUpload struct {
	Name string `json:"name,omitempty"`
	gateway.FilePayload
}

type ImagesRequest struct {
	Images []ImageUpload `json:"images"`
}

type DocumentRequest struct {
	FileData gateway.FilePayload `json:"fileData"`
}

type ShotUpdateRequest struct {
	CameraMotion *string `json:"cameraMotion,omitempty"`
	MotionAmount *int    `json:"motionAmount,omitempty"`
}

type SelectionRequest struct {
	ShotIDs []int `json:"shot_ids"`
	All     bool  `json:"all,omitempty"`
}

type SelectionResponse struct {
	ShotIDs []int `json:"shot_ids"`
}

type AcceptedResponse struct {
	SessionID string          `json:"session_id"`
	Activity  studio.Activity `json:"activity"`
}

type RecordingResponse struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	MIMEType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
	QRCodeURL   string `json:"qr_code_url"`
	ShareURL    string `json:"share_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func recordingDownloadPath(id string) string {
	return "/recordings/" + id
}

func recordingQRPath(id string) string {
	return "/recordings/" + id + "/qr.png"
}

func RecordingToResponse(r *studio.Recording) RecordingResponse {
	return RecordingResponse{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Name:        r.Name,
		MIMEType:    r.MIMEType,
		Size:        r.Size,
		DownloadURL: recordingDownloadPath(r.ID),
		QRCodeURL:   recordingQRPath(r.ID),
		ShareURL:    r.ShareURL,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func MediaToolsToResponse(c *media.Capabilities) *MediaToolsResponse {
	resp := &MediaToolsResponse{
		FFmpeg:        c.FFmpeg,
		FFprobe:       c.FFprobe,
		FFmpegVersion: c.FFmpegVersion,
		CanRecord:     c.CanCompose(),
	}
	if !c.ProbedAt.IsZero() {
		resp.LastProbeAt = c.ProbedAt.Format(time.RFC3339)
	}
	return resp
}
