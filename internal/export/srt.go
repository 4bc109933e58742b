package export

import (
	"fmt"
	"strings"
)

// Cues turns the narration of each clip into a subtitle cue spanning that
// clip on the assembled timeline. Clips without narration get no cue.
func Cues(clips []TimelineClip) []Cue {
	var cues []Cue
	offset := 0
	for _, clip := range clips {
		if text := strings.TrimSpace(clip.Narration); text != "" && clip.DurationMs > 0 {
			cues = append(cues, Cue{
				Index:   len(cues) + 1,
				StartMs: offset,
				EndMs:   offset + clip.DurationMs,
				Text:    text,
			})
		}
		offset += clip.DurationMs
	}
	return cues
}

// GenerateSRT renders cues in SubRip format.
func GenerateSRT(cues []Cue) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", c.Index, msToSRT(c.StartMs), msToSRT(c.EndMs), c.Text)
	}
	return b.String()
}

func msToSRT(ms int) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := ms / 60000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
