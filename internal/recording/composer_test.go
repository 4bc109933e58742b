package recording

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelsmith/reelsmith-studio/internal/media"
	"github.com/reelsmith/reelsmith-studio/internal/preview"
)

type fakeTools struct {
	probeCalled  atomic.Int32
	concatCalled atomic.Int32

	durations  map[string]time.Duration
	lastConcat media.ConcatRequest
	subtitles  string
	concatErr  error
	caps       media.Capabilities
}

func (f *fakeTools) Probe(ctx context.Context, path string) (*media.ProbeResult, error) {
	f.probeCalled.Add(1)
	d, ok := f.durations[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return &media.ProbeResult{Duration: d, Codec: "h264"}, nil
}

func (f *fakeTools) Concat(ctx context.Context, req media.ConcatRequest) (media.RunResult, error) {
	f.concatCalled.Add(1)
	f.lastConcat = req
	if req.Subtitles != "" {
		data, _ := os.ReadFile(req.Subtitles)
		f.subtitles = string(data)
	}
	if f.concatErr != nil {
		return media.RunResult{ExitCode: 1}, f.concatErr
	}
	os.WriteFile(req.Output, []byte("assembled"), 0644)
	return media.RunResult{OutputPath: req.Output}, nil
}

func (f *fakeTools) Doctor(ctx context.Context) (*media.Capabilities, error) {
	caps := f.caps
	caps.ProbedAt = time.Now()
	return &caps, nil
}

func testClips() []preview.Clip {
	return []preview.Clip{
		{ID: "a", Name: "shot_1.mp4", Path: "/clips/a.mp4", Narration: "Opening line."},
		{ID: "b", Name: "shot_2.mp4", Path: "/clips/b.mp4"},
	}
}

func newTestComposer(t *testing.T, tools *fakeTools) *Composer {
	t.Helper()
	c := NewComposer(tools, nil, t.TempDir(), nil)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestComposer_ComposesShownClips(t *testing.T) {
	tools := &fakeTools{durations: map[string]time.Duration{
		"/clips/a.mp4": 5 * time.Second,
		"/clips/b.mp4": 4 * time.Second,
	}}
	c := newTestComposer(t, tools)
	clips := testClips()

	capt, err := c.Start(context.Background(), clips)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	obs := capt.(preview.ClipObserver)
	obs.ClipStarted(0, clips[0])
	obs.ClipStarted(1, clips[1])

	rec, err := capt.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if rec.Name != "assembled_video_1700000000.mp4" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.MIMEType != "video/mp4" || rec.Size != int64(len("assembled")) || rec.ID == "" {
		t.Errorf("recording = %+v", rec)
	}
	if strings.Join(tools.lastConcat.Inputs, ",") != "/clips/a.mp4,/clips/b.mp4" {
		t.Errorf("inputs = %v", tools.lastConcat.Inputs)
	}
	wantSRT := "1\n00:00:00,000 --> 00:00:05,000\nOpening line.\n\n"
	if tools.subtitles != wantSRT {
		t.Errorf("subtitles = %q, want %q", tools.subtitles, wantSRT)
	}
	if _, err := os.Stat(tools.lastConcat.Subtitles); !os.IsNotExist(err) {
		t.Error("subtitle file should be removed after composing")
	}
}

func TestComposer_ProbesEachClipOnce(t *testing.T) {
	tools := &fakeTools{durations: map[string]time.Duration{"/clips/a.mp4": time.Second, "/clips/b.mp4": time.Second}}
	c := newTestComposer(t, tools)
	clips := testClips()

	capt, _ := c.Start(context.Background(), clips)
	obs := capt.(preview.ClipObserver)
	obs.ClipStarted(0, clips[0])
	obs.ClipStarted(0, clips[0])
	obs.ClipStarted(1, clips[1])

	if _, err := capt.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if tools.probeCalled.Load() != 2 {
		t.Errorf("probe calls = %d, want 2", tools.probeCalled.Load())
	}
	if len(tools.lastConcat.Inputs) != 3 {
		t.Errorf("inputs = %v, want replayed clip included", tools.lastConcat.Inputs)
	}
}

func TestComposer_NothingShown(t *testing.T) {
	c := newTestComposer(t, &fakeTools{})
	capt, _ := c.Start(context.Background(), testClips())
	if _, err := capt.Stop(context.Background()); !errors.Is(err, preview.ErrNoClips) {
		t.Errorf("Stop error = %v, want ErrNoClips", err)
	}
}

func TestComposer_StartRequiresClips(t *testing.T) {
	c := newTestComposer(t, &fakeTools{})
	if _, err := c.Start(context.Background(), nil); !errors.Is(err, preview.ErrNoClips) {
		t.Errorf("Start error = %v", err)
	}
}

func TestComposer_UnavailableTools(t *testing.T) {
	tools := &fakeTools{caps: media.Capabilities{FFmpeg: true}}
	c := NewComposer(tools, media.NewCachedDoctor(tools, nil), t.TempDir(), nil)

	if _, err := c.Start(context.Background(), testClips()); !errors.Is(err, preview.ErrCaptureUnavailable) {
		t.Errorf("Start error = %v, want ErrCaptureUnavailable", err)
	}
}

func TestComposer_ConcatUnavailableMapsToCapture(t *testing.T) {
	tools := &fakeTools{
		durations: map[string]time.Duration{"/clips/a.mp4": time.Second},
		concatErr: media.ErrUnavailable,
	}
	c := newTestComposer(t, tools)
	clips := testClips()
	capt, _ := c.Start(context.Background(), clips)
	capt.(preview.ClipObserver).ClipStarted(0, clips[0])

	if _, err := capt.Stop(context.Background()); !errors.Is(err, preview.ErrCaptureUnavailable) {
		t.Errorf("Stop error = %v, want ErrCaptureUnavailable", err)
	}
}

func TestComposer_EndedWhenContextDone(t *testing.T) {
	c := newTestComposer(t, &fakeTools{})
	ctx, cancel := context.WithCancel(context.Background())
	capt, err := c.Start(ctx, testClips())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-capt.Ended():
		t.Fatal("capture ended before context was cancelled")
	default:
	}

	cancel()
	select {
	case <-capt.Ended():
	case <-time.After(time.Second):
		t.Fatal("capture did not end after context was cancelled")
	}
}
