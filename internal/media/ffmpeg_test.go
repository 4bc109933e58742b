package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunResult_IsSuccess(t *testing.T) {
	tests := []struct {
		exitCode int
		want     bool
	}{
		{0, true},
		{1, false},
		{-1, false},
	}
	for _, tt := range tests {
		r := RunResult{ExitCode: tt.exitCode}
		if got := r.IsSuccess(); got != tt.want {
			t.Errorf("RunResult{ExitCode: %d}.IsSuccess() = %v, want %v", tt.exitCode, got, tt.want)
		}
	}
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "8.041000", "size": "2048"}
	}`)

	res, err := parseProbe(data)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if res.Codec != "h264" || res.AudioCodec != "aac" {
		t.Errorf("codecs = %q %q", res.Codec, res.AudioCodec)
	}
	if res.Width != 1280 || res.Height != 720 {
		t.Errorf("size = %dx%d", res.Width, res.Height)
	}
	if res.Duration != 8041*time.Millisecond {
		t.Errorf("Duration = %v", res.Duration)
	}
	if res.Size != 2048 {
		t.Errorf("Size = %d", res.Size)
	}
}

func TestParseProbe_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "nope"},
		{"bad duration", `{"streams":[{"codec_type":"video","codec_name":"h264"}],"format":{"duration":"N/A"}}`},
		{"audio only", `{"streams":[{"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"1.0"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseProbe([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	out := "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc 13\n"
	if got := parseVersion(out); got != "6.1.1-3ubuntu5" {
		t.Errorf("parseVersion = %q", got)
	}
	if got := parseVersion("garbage"); got != "" {
		t.Errorf("parseVersion(garbage) = %q", got)
	}
}

func TestBuildConcatArgs(t *testing.T) {
	args := buildConcatArgs("/tmp/list.txt", ConcatRequest{Output: "/tmp/out.mp4"})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-f concat -safe 0 -i /tmp/list.txt") {
		t.Errorf("args = %q", joined)
	}
	if strings.Contains(joined, "mov_text") {
		t.Error("no subtitle track expected without subtitles")
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("output should be last, got %q", args[len(args)-1])
	}

	args = buildConcatArgs("/tmp/list.txt", ConcatRequest{Output: "/tmp/out.mp4", Subtitles: "/tmp/n.srt"})
	joined = strings.Join(args, " ")
	if !strings.Contains(joined, "-i /tmp/n.srt") || !strings.Contains(joined, "-map 1:s -c:s mov_text") {
		t.Errorf("args with subtitles = %q", joined)
	}
}

func TestWriteConcatList_Escapes(t *testing.T) {
	var buf bytes.Buffer
	if err := writeConcatList(&buf, []string{"/media/shot_1.mp4", "/media/it's.mp4"}); err != nil {
		t.Fatalf("writeConcatList: %v", err)
	}
	want := "file '/media/shot_1.mp4'\nfile '/media/it'\\''s.mp4'\n"
	if buf.String() != want {
		t.Errorf("list = %q, want %q", buf.String(), want)
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	lw.Write([]byte(" world of test data"))
	if got := buf.String(); got != " test data" {
		t.Errorf("after overflow got %q, want %q", got, " test data")
	}
}

func TestCapWriter_DropsOverflow(t *testing.T) {
	var buf bytes.Buffer
	cw := &capWriter{w: &buf, limit: 4}

	n, err := cw.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	cw.Write([]byte("gh"))
	if buf.String() != "abcd" {
		t.Errorf("buffer = %q, want abcd", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 5); got != "...world" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("hi", 5); got != "hi" {
		t.Errorf("truncate = %q", got)
	}
}

func TestResolveBinary_PreferredNotFound(t *testing.T) {
	_, err := resolveBinary("/nonexistent/ffmpeg999", "ffmpeg")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestExecutor_MissingBinaries(t *testing.T) {
	cfg := DefaultConfig(nil)
	cfg.FFmpegPath = "/nonexistent/ffmpeg999"
	cfg.FFprobePath = "/nonexistent/ffprobe999"
	e := NewExecutor(cfg)

	if _, err := e.Probe(context.Background(), "clip.mp4"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Probe error = %v", err)
	}
	if _, err := e.Concat(context.Background(), ConcatRequest{Inputs: []string{"a.mp4"}, Output: filepath.Join(t.TempDir(), "o.mp4")}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Concat error = %v", err)
	}
	caps, err := e.Doctor(context.Background())
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	if caps.CanCompose() {
		t.Error("CanCompose should be false without binaries")
	}
}

func TestExecutor_ConcatAndProbe(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not on PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not on PATH")
	}

	dir := t.TempDir()
	var inputs []string
	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "clip"+string(rune('a'+i))+".mp4")
		cmd := exec.Command("ffmpeg", "-hide_banner", "-nostdin", "-y",
			"-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=10",
			"-c:v", "mpeg4", "-pix_fmt", "yuv420p", path)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("cannot synthesise test clip: %v: %s", err, truncate(string(out), 200))
		}
		inputs = append(inputs, path)
	}

	srt := filepath.Join(dir, "n.srt")
	os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n\n"), 0644)

	e := NewExecutor(DefaultConfig(nil))
	out := filepath.Join(dir, "out", "assembled.mp4")
	if _, err := e.Concat(context.Background(), ConcatRequest{Inputs: inputs, Subtitles: srt, Output: out}); err != nil {
		t.Fatalf("Concat: %v", err)
	}

	res, err := e.Probe(context.Background(), out)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Duration < 1500*time.Millisecond {
		t.Errorf("Duration = %v, want about 2s", res.Duration)
	}
	if res.Width != 64 {
		t.Errorf("Width = %d", res.Width)
	}
}

type fakeTools struct {
	doctorCalled atomic.Int32
	doctorFn     func(ctx context.Context) (*Capabilities, error)
}

func (f *fakeTools) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	return &ProbeResult{Duration: time.Second, Codec: "h264"}, nil
}

func (f *fakeTools) Concat(ctx context.Context, req ConcatRequest) (RunResult, error) {
	return RunResult{OutputPath: req.Output}, nil
}

func (f *fakeTools) Doctor(ctx context.Context) (*Capabilities, error) {
	f.doctorCalled.Add(1)
	return f.doctorFn(ctx)
}

func TestCachedDoctor_TTL(t *testing.T) {
	fake := &fakeTools{
		doctorFn: func(ctx context.Context) (*Capabilities, error) {
			return &Capabilities{FFmpeg: true, FFprobe: true, ProbedAt: time.Now()}, nil
		},
	}

	doc := NewCachedDoctor(fake, nil)
	doc.ttl = 100 * time.Millisecond
	ctx := context.Background()

	caps1, err := doc.Get(ctx)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if !caps1.CanCompose() {
		t.Error("expected CanCompose")
	}
	caps2, _ := doc.Get(ctx)
	if caps2.ProbedAt != caps1.ProbedAt {
		t.Error("expected cached result on second call")
	}
	if fake.doctorCalled.Load() != 1 {
		t.Errorf("expected 1 call (cached), got %d", fake.doctorCalled.Load())
	}

	time.Sleep(150 * time.Millisecond)
	doc.Get(ctx)
	if fake.doctorCalled.Load() != 2 {
		t.Errorf("expected 2 calls after TTL expiry, got %d", fake.doctorCalled.Load())
	}
}

func TestCachedDoctor_StaleOnError(t *testing.T) {
	fail := false
	fake := &fakeTools{
		doctorFn: func(ctx context.Context) (*Capabilities, error) {
			if fail {
				return nil, errors.New("spawn failed")
			}
			return &Capabilities{FFmpeg: true, ProbedAt: time.Now()}, nil
		},
	}
	doc := NewCachedDoctor(fake, nil)
	ctx := context.Background()

	if _, err := doc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	fail = true
	caps, err := doc.Refresh(ctx)
	if err != nil || caps == nil || !caps.FFmpeg {
		t.Errorf("expected stale capabilities, got %+v, %v", caps, err)
	}

	doc.Invalidate()
	if _, err := doc.Refresh(ctx); err == nil {
		t.Error("expected error with empty cache")
	}
}

func TestCachedDoctor_CollapsesConcurrentProbes(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeTools{
		doctorFn: func(ctx context.Context) (*Capabilities, error) {
			<-release
			return &Capabilities{FFmpeg: true, FFprobe: true, ProbedAt: time.Now()}, nil
		},
	}
	doc := NewCachedDoctor(fake, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if caps, err := doc.Get(context.Background()); err != nil || !caps.FFmpeg {
				t.Errorf("Get = %+v, %v", caps, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := fake.doctorCalled.Load(); n != 1 {
		t.Errorf("doctor calls = %d, want 1", n)
	}
}
