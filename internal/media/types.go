// Package media wraps the ffmpeg and ffprobe executables used to probe
// generated clips and compose recordings from them.
package media

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when ffmpeg or ffprobe cannot be found.
var ErrUnavailable = errors.New("ffmpeg is not available")

// ProbeResult describes a media file as reported by ffprobe.
type ProbeResult struct {
	Duration   time.Duration `json:"duration"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Codec      string        `json:"codec"`
	AudioCodec string        `json:"audio_codec,omitempty"`
	FormatName string        `json:"format_name"`
	Size       int64         `json:"size"`
}

// ConcatRequest joins Inputs in order into Output. Subtitles is an optional
// SRT file muxed as a soft subtitle track.
type ConcatRequest struct {
	Inputs    []string
	Subtitles string
	Output    string
}

// RunResult is the structured outcome of executing an ffmpeg subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"` // last N bytes of stderr
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// Capabilities reports which media tools are installed.
type Capabilities struct {
	FFmpeg        bool      `json:"ffmpeg"`
	FFprobe       bool      `json:"ffprobe"`
	FFmpegVersion string    `json:"ffmpeg_version,omitempty"`
	ProbedAt      time.Time `json:"probed_at"`
}

// CanCompose reports whether recordings can be assembled.
func (c Capabilities) CanCompose() bool {
	return c.FFmpeg && c.FFprobe
}

// ffprobe JSON output, only the fields we read.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}
