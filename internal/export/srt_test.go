package export

import "testing"

func TestCues_SkipsSilentClips(t *testing.T) {
	clips := []TimelineClip{
		{Name: "shot_1.mp4", DurationMs: 5000, Narration: "First."},
		{Name: "shot_2.mp4", DurationMs: 4000},
		{Name: "shot_3.mp4", DurationMs: 6000, Narration: "  Third.  "},
	}

	cues := Cues(clips)
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
	if cues[0] != (Cue{Index: 1, StartMs: 0, EndMs: 5000, Text: "First."}) {
		t.Errorf("cue 1 = %+v", cues[0])
	}
	if cues[1] != (Cue{Index: 2, StartMs: 9000, EndMs: 15000, Text: "Third."}) {
		t.Errorf("cue 2 = %+v", cues[1])
	}
}

func TestGenerateSRT(t *testing.T) {
	got := GenerateSRT([]Cue{
		{Index: 1, StartMs: 0, EndMs: 5000, Text: "First."},
		{Index: 2, StartMs: 3723456, EndMs: 3725000, Text: "Later."},
	})
	want := "1\n00:00:00,000 --> 00:00:05,000\nFirst.\n\n" +
		"2\n01:02:03,456 --> 01:02:05,000\nLater.\n\n"
	if got != want {
		t.Errorf("GenerateSRT = %q, want %q", got, want)
	}
	if GenerateSRT(nil) != "" {
		t.Error("no cues should render empty")
	}
}
