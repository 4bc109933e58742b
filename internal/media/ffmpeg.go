package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
	maxProbeBytes  = 1 << 20
)

// FFmpeg is the media tool contract used by the recorder.
type FFmpeg interface {
	// Probe reads duration, dimensions and codecs of a media file.
	Probe(ctx context.Context, path string) (*ProbeResult, error)

	// Concat joins clips in order into one file.
	Concat(ctx context.Context, req ConcatRequest) (RunResult, error)

	// Doctor reports which tools are installed.
	Doctor(ctx context.Context) (*Capabilities, error)
}

// Config holds the executor's configuration.
type Config struct {
	FFmpegPath    string // empty = look up "ffmpeg" on PATH
	FFprobePath   string // empty = look up "ffprobe" on PATH
	ProbeTimeout  time.Duration
	ConcatTimeout time.Duration
	Logger        *slog.Logger
	DebugPaths    bool // if true, log full file paths; otherwise sanitise
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		ProbeTimeout:  30 * time.Second,
		ConcatTimeout: 10 * time.Minute,
		Logger:        logger,
	}
}

// Executor runs the ffmpeg and ffprobe binaries as subprocesses.
type Executor struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

var _ FFmpeg = (*Executor)(nil)

// NewExecutor resolves both binaries. A missing binary is reported through
// ErrUnavailable from the operations that need it, not here.
func NewExecutor(cfg Config) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	cfg.Logger = logging.WithComponent(cfg.Logger, "media")
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}
	if cfg.ConcatTimeout <= 0 {
		cfg.ConcatTimeout = 10 * time.Minute
	}

	e := &Executor{cfg: cfg}
	e.ffmpeg, _ = resolveBinary(cfg.FFmpegPath, "ffmpeg")
	e.ffprobe, _ = resolveBinary(cfg.FFprobePath, "ffprobe")

	cfg.Logger.Info("media executor initialised",
		"ffmpeg", e.ffmpeg != "",
		"ffprobe", e.ffprobe != "",
	)
	return e
}

// Probe runs ffprobe and parses its JSON report.
func (e *Executor) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if e.ffprobe == "" {
		return nil, fmt.Errorf("probe %s: %w", e.safePath(path), ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	result := e.exec(ctx, e.ffprobe, "", &stdout,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, result.StderrTail)
	}
	return parseProbe(stdout.Bytes())
}

// Concat joins the inputs with the concat demuxer, copying streams. When a
// subtitle file is given it is muxed as a mov_text track.
func (e *Executor) Concat(ctx context.Context, req ConcatRequest) (RunResult, error) {
	if e.ffmpeg == "" {
		return RunResult{ExitCode: -1}, ErrUnavailable
	}
	if len(req.Inputs) == 0 {
		return RunResult{ExitCode: -1}, errors.New("concat: no inputs")
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0755); err != nil {
		return RunResult{ExitCode: -1}, fmt.Errorf("cannot create output dir: %w", err)
	}

	listFile, err := os.CreateTemp(filepath.Dir(req.Output), ".concat-*.txt")
	if err != nil {
		return RunResult{ExitCode: -1}, fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(listFile.Name())

	if err := writeConcatList(listFile, req.Inputs); err != nil {
		listFile.Close()
		return RunResult{ExitCode: -1}, err
	}
	if err := listFile.Close(); err != nil {
		return RunResult{ExitCode: -1}, fmt.Errorf("close concat list: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConcatTimeout)
	defer cancel()

	result := e.exec(ctx, e.ffmpeg, req.Output, io.Discard, buildConcatArgs(listFile.Name(), req)...)
	if !result.IsSuccess() {
		os.Remove(req.Output)
		return result, fmt.Errorf("ffmpeg exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return result, nil
}

// Doctor checks the installed tools.
func (e *Executor) Doctor(ctx context.Context) (*Capabilities, error) {
	caps := &Capabilities{
		FFmpeg:   e.ffmpeg != "",
		FFprobe:  e.ffprobe != "",
		ProbedAt: time.Now(),
	}
	if !caps.FFmpeg {
		return caps, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	result := e.exec(ctx, e.ffmpeg, "", &stdout, "-hide_banner", "-version")
	if !result.IsSuccess() {
		return nil, fmt.Errorf("ffmpeg -version exited %d: %s", result.ExitCode, result.StderrTail)
	}
	caps.FFmpegVersion = parseVersion(stdout.String())
	return caps, nil
}

func buildConcatArgs(listPath string, req ConcatRequest) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
	}
	if req.Subtitles != "" {
		args = append(args, "-i", req.Subtitles)
	}
	args = append(args, "-map", "0:v", "-map", "0:a?")
	if req.Subtitles != "" {
		args = append(args, "-map", "1:s", "-c:s", "mov_text")
	}
	args = append(args,
		"-c:v", "copy",
		"-c:a", "copy",
		"-movflags", "+faststart",
		req.Output,
	)
	return args
}

// writeConcatList writes the concat demuxer script. Paths are quoted with the
// demuxer's single-quote escaping.
func writeConcatList(w io.Writer, inputs []string) error {
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", in, err)
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(w, "file '%s'\n", escaped); err != nil {
			return fmt.Errorf("write concat list: %w", err)
		}
	}
	return nil
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	res := &ProbeResult{FormatName: out.Format.FormatName}
	if out.Format.Duration != "" {
		secs, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", out.Format.Duration, err)
		}
		res.Duration = time.Duration(secs * float64(time.Second))
	}
	if out.Format.Size != "" {
		res.Size, _ = strconv.ParseInt(out.Format.Size, 10, 64)
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if res.Codec == "" {
				res.Codec = s.CodecName
				res.Width = s.Width
				res.Height = s.Height
			}
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = s.CodecName
			}
		}
	}
	if res.Codec == "" {
		return nil, errors.New("no video stream found")
	}
	return res, nil
}

func parseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
		return fields[2]
	}
	return ""
}

// exec is the core subprocess execution helper.
func (e *Executor) exec(ctx context.Context, bin, outPath string, stdout io.Writer, args ...string) RunResult {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = &capWriter{w: stdout, limit: maxProbeBytes}

	e.cfg.Logger.Debug("executing media command",
		"bin", filepath.Base(bin),
		"args", len(args),
	)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	stderrTail := stderrBuf.String()
	if exitCode == 0 && err == nil {
		e.cfg.Logger.Info("media command succeeded",
			"bin", filepath.Base(bin),
			"duration_ms", elapsed.Milliseconds(),
			"output", e.safePath(outPath),
		)
	} else {
		if stderrTail == "" && err != nil {
			stderrTail = err.Error()
		}
		e.cfg.Logger.Warn("media command failed",
			"bin", filepath.Base(bin),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: outPath,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func (e *Executor) safePath(path string) string {
	if path == "" || e.cfg.DebugPaths {
		return path
	}
	sanitized := logging.SanitizePath(path)
	if sanitized == path {
		return filepath.Base(path)
	}
	return sanitized
}

// resolveBinary finds a usable executable.
func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found: %w", name, preferred, ErrUnavailable)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", name, ErrUnavailable)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}

// capWriter forwards at most limit bytes and silently drops the rest.
type capWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (cw *capWriter) Write(p []byte) (int, error) {
	n := len(p)
	if room := cw.limit - cw.written; room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		m, err := cw.w.Write(p)
		cw.written += m
		if err != nil {
			return m, err
		}
	}
	return n, nil
}
