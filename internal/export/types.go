package export

// DefaultFrameRate is the frame rate of generated clips.
const DefaultFrameRate = 24.0

// TimelineClip is one generated clip placed on the assembled timeline.
type TimelineClip struct {
	Name       string
	MediaPath  string
	DurationMs int
	Narration  string
}

// Cue is one subtitle entry.
type Cue struct {
	Index   int
	StartMs int
	EndMs   int
	Text    string
}

// TimelineInfo summarises an exported timeline.
type TimelineInfo struct {
	Title      string  `json:"title"`
	FrameRate  float64 `json:"frame_rate"`
	ClipCount  int     `json:"clip_count"`
	DurationMs int     `json:"duration_ms"`
}
