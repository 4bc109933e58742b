package export

import (
	"strings"
	"testing"
)

func TestGenerateEDL(t *testing.T) {
	tests := []struct {
		name    string
		clips   []TimelineClip
		title   string
		fps     float64
		want    []string
		notWant []string
	}{
		{
			name:  "single clip",
			clips: []TimelineClip{{Name: "shot_1.mp4", MediaPath: "/media/clips/shot_1.mp4", DurationMs: 2000}},
			title: "Lighthouse",
			fps:   30,
			want: []string{
				"TITLE: Lighthouse\nFCM: NON-DROP FRAME\n\n",
				"001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00\n",
				"* FROM CLIP NAME:  shot_1.mp4\n",
				"* MEDIA PATH:  /media/clips/shot_1.mp4\n",
			},
			notWant: []string{"* COMMENT:"},
		},
		{
			name: "record offsets accumulate",
			clips: []TimelineClip{
				{Name: "shot_1.mp4", MediaPath: "/a.mp4", DurationMs: 1000},
				{Name: "shot_2.mp4", MediaPath: "/b.mp4", DurationMs: 1500, Narration: "The tide\nrolls   in."},
			},
			title: "Multi",
			fps:   30,
			want: []string{
				"001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00",
				"002  AX       V     C        00:00:00:00 00:00:01:15 00:00:01:00 00:00:02:15",
				"* COMMENT:  The tide rolls in.\n",
			},
		},
		{
			name:  "drop frame",
			clips: []TimelineClip{{Name: "Clip", MediaPath: "/x.mp4", DurationMs: 1000}},
			title: "Drop",
			fps:   29.97,
			want:  []string{"FCM: DROP FRAME", "00:00:00:00 00:00:01:00"},
		},
		{
			name:  "unset rate uses the clip rate",
			clips: []TimelineClip{{Name: "c", MediaPath: "/c.mp4", DurationMs: 500}},
			title: "Default",
			fps:   0,
			want:  []string{"FCM: NON-DROP FRAME", "00:00:00:00 00:00:00:12"},
		},
		{
			name:    "no clips",
			title:   "Empty",
			fps:     24,
			want:    []string{"TITLE: Empty\nFCM: NON-DROP FRAME\n\n"},
			notWant: []string{"001"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			edl := GenerateEDL(tc.clips, tc.title, tc.fps)
			for _, w := range tc.want {
				if !strings.Contains(edl, w) {
					t.Errorf("EDL missing %q:\n%s", w, edl)
				}
			}
			for _, w := range tc.notWant {
				if strings.Contains(edl, w) {
					t.Errorf("EDL unexpectedly contains %q:\n%s", w, edl)
				}
			}
		})
	}
}

func TestSummary(t *testing.T) {
	info := Summary([]TimelineClip{{DurationMs: 5000}, {DurationMs: 4200}}, "T", 24)
	if info.ClipCount != 2 || info.DurationMs != 9200 || info.Title != "T" || info.FrameRate != 24 {
		t.Errorf("Summary = %+v", info)
	}
}

func TestTimecode(t *testing.T) {
	tests := []struct {
		ms, fps int
		want    string
	}{
		{0, 30, "00:00:00:00"},
		{1000, 30, "00:00:01:00"},
		{500, 24, "00:00:00:12"},
		{60000, 30, "00:01:00:00"},
		{3600000, 30, "01:00:00:00"},
		{3723480, 25, "01:02:03:12"},
	}
	for _, tc := range tests {
		if got := timecode(tc.ms, tc.fps); got != tc.want {
			t.Errorf("timecode(%d, %d) = %q, want %q", tc.ms, tc.fps, got, tc.want)
		}
	}
}

func TestIsDropFrame(t *testing.T) {
	for rate, want := range map[float64]bool{29.97: true, 59.94: true, 30: false, 24: false, 23.976: false} {
		if got := isDropFrame(rate); got != want {
			t.Errorf("isDropFrame(%v) = %v, want %v", rate, got, want)
		}
	}
}
