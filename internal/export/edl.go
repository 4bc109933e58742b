package export

import (
	"fmt"
	"math"
	"strings"
)

// dropFrameRates are the NTSC rates whose timecode drops frame numbers.
var dropFrameRates = []float64{29.97, 59.94}

// GenerateEDL lays the clips end to end in a CMX3600 edit decision list.
// Every clip is used whole, so each source range starts at zero.
func GenerateEDL(clips []TimelineClip, title string, frameRate float64) string {
	fps := timebase(frameRate)

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if isDropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	var record int
	for i, clip := range clips {
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, "AX", "V",
			timecode(0, fps), timecode(clip.DurationMs, fps),
			timecode(record, fps), timecode(record+clip.DurationMs, fps),
		)
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", clip.Name)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", clip.MediaPath)
		if clip.Narration != "" {
			fmt.Fprintf(&b, "* COMMENT:  %s\n", strings.Join(strings.Fields(clip.Narration), " "))
		}
		record += clip.DurationMs
	}
	return b.String()
}

// Summary describes the timeline GenerateEDL would write.
func Summary(clips []TimelineClip, title string, frameRate float64) TimelineInfo {
	info := TimelineInfo{Title: title, FrameRate: frameRate, ClipCount: len(clips)}
	for _, c := range clips {
		info.DurationMs += c.DurationMs
	}
	return info
}

// timebase is the whole frame count per timecode second.
func timebase(frameRate float64) int {
	if fps := int(math.Round(frameRate)); fps > 0 {
		return fps
	}
	return int(DefaultFrameRate)
}

func isDropFrame(frameRate float64) bool {
	for _, r := range dropFrameRates {
		if math.Abs(frameRate-r) < 0.01 {
			return true
		}
	}
	return false
}

// timecode formats ms as HH:MM:SS:FF at fps frames per second.
func timecode(ms, fps int) string {
	frames := int(math.Round(float64(ms) * float64(fps) / 1000))
	secs := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, secs/60%60, secs%60, frames%fps)
}
