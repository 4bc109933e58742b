package storyboard

import (
	"fmt"
	"strings"
)

const DefaultDurationSeconds = 5

// TextPosition is where the overlay caption is placed on screen.
type TextPosition string

const (
	TextTop    TextPosition = "top"
	TextMiddle TextPosition = "middle"
	TextBottom TextPosition = "bottom"

	DefaultTextPosition = TextBottom
)

// ParseTextPosition never fails: unknown values fall back to the bottom of the screen.
func ParseTextPosition(s string) TextPosition {
	switch p := TextPosition(strings.ToLower(strings.TrimSpace(s))); p {
	case TextTop, TextMiddle, TextBottom:
		return p
	default:
		return DefaultTextPosition
	}
}

// Language selects the wording of the directives appended to prompts.
type Language string

const (
	English Language = "en"
	Arabic  Language = "ar"
)

func ParseLanguage(s string) Language {
	if Language(strings.ToLower(strings.TrimSpace(s))) == Arabic {
		return Arabic
	}
	return English
}

// Settings are the session-wide values that shape every prompt.
type Settings struct {
	DurationSeconds int
	OverlayText     string
	TextPosition    TextPosition
	Language        Language
}

func DefaultSettings() Settings {
	return Settings{
		DurationSeconds: DefaultDurationSeconds,
		TextPosition:    DefaultTextPosition,
		Language:        English,
	}
}

// BuildAugmentations returns the motion directive (only when shot is non-nil and
// moves) followed by the duration directive.
func BuildAugmentations(shot *Shot, s Settings) []string {
	pb := phrasebookFor(s.Language)
	var augs []string
	if shot != nil && shot.CameraMotion != "" && shot.CameraMotion != MotionNone {
		augs = append(augs, pb.motion(shot.CameraMotion, shot.MotionAmount))
	}
	augs = append(augs, pb.duration(s.DurationSeconds))
	return augs
}

// OverlayDirective asks the model to burn text into the video verbatim.
func OverlayDirective(text string, pos TextPosition, lang Language) string {
	return phrasebookFor(lang).overlay(text, ParseTextPosition(string(pos)))
}

// ComposePrompt joins a base description and its directives.
func ComposePrompt(base string, augs []string) string {
	return base + " " + strings.Join(augs, " ")
}

// ShotPrompt is the final prompt sent for a queued shot. The overlay comes from
// the shot itself; position comes from the session settings.
func ShotPrompt(shot Shot, s Settings) string {
	augs := BuildAugmentations(&shot, s)
	if shot.Overlay != "" {
		augs = append(augs, OverlayDirective(shot.Overlay, s.TextPosition, s.Language))
	}
	return ComposePrompt(shot.Visual, augs)
}

// AdHocPrompt is the final prompt for a single free-form generation.
func AdHocPrompt(base string, s Settings) string {
	augs := BuildAugmentations(nil, s)
	if s.OverlayText != "" {
		augs = append(augs, OverlayDirective(s.OverlayText, s.TextPosition, s.Language))
	}
	return ComposePrompt(base, augs)
}

// ImageBasePrompt is the base description used when animating an uploaded image.
func ImageBasePrompt(extra string, lang Language) string {
	return phrasebookFor(lang).imageBase(strings.TrimSpace(extra))
}

type phrasebook struct {
	motions       map[CameraMotion]string
	amounts       map[MotionAmount]string
	positions     map[TextPosition]string
	motionFmt     string
	durationFmt   string
	overlayFmt    string
	imageExtraFmt string
	imageDefault  string
}

func (p phrasebook) motion(m CameraMotion, a MotionAmount) string {
	name, ok := p.motions[m]
	if !ok {
		name = string(m)
	}
	amount, ok := p.amounts[a]
	if !ok {
		amount = p.amounts[MotionMedium]
	}
	return fmt.Sprintf(p.motionFmt, name, amount)
}

func (p phrasebook) duration(seconds int) string {
	return fmt.Sprintf(p.durationFmt, seconds)
}

func (p phrasebook) overlay(text string, pos TextPosition) string {
	return fmt.Sprintf(p.overlayFmt, text, p.positions[pos])
}

func (p phrasebook) imageBase(extra string) string {
	if extra == "" {
		return p.imageDefault
	}
	return fmt.Sprintf(p.imageExtraFmt, extra)
}

func phrasebookFor(lang Language) phrasebook {
	if lang == Arabic {
		return arabicPhrases
	}
	return englishPhrases
}

var englishPhrases = phrasebook{
	motions: map[CameraMotion]string{
		MotionZoomIn:       "zoom in",
		MotionZoomOut:      "zoom out",
		MotionPanLeft:      "horizontal pan to the left",
		MotionPanRight:     "horizontal pan to the right",
		MotionTiltUp:       "vertical tilt upward",
		MotionTiltDown:     "vertical tilt downward",
		MotionDroneUp:      "drone shot rising upward",
		MotionDroneForward: "drone shot moving forward",
		MotionOrbitLeft:    "orbit to the left",
		MotionOrbitRight:   "orbit to the right",
	},
	amounts: map[MotionAmount]string{
		MotionLight:  "slowly and lightly",
		MotionMedium: "at a medium pace",
		MotionStrong: "fast and strong",
	},
	positions: map[TextPosition]string{
		TextTop:    "the top of the screen",
		TextMiddle: "the middle of the screen",
		TextBottom: "the bottom of the screen",
	},
	motionFmt:   "Perform a camera movement: %s %s.",
	durationFmt: "The target duration for this video is about %d seconds.",
	overlayFmt: "Mandatory, highest priority: the following text must appear written on the video. " +
		"Keep the text exactly as given, without any translation or change. " +
		"Use an elegant, small font. If the text is long, split it across several lines. " +
		"The text is: \"%s\". Place it at %s.",
	imageExtraFmt: "Additional description: \"%s\".",
	imageDefault:  "Animate this image in a stunning, cinematic way.",
}

var arabicPhrases = phrasebook{
	motions: map[CameraMotion]string{
		MotionZoomIn:       "تكبير للداخل",
		MotionZoomOut:      "تكبير للخارج",
		MotionPanLeft:      "تحريك أفقي لليسار",
		MotionPanRight:     "تحريك أفقي لليمين",
		MotionTiltUp:       "إمالة عمودية للأعلى",
		MotionTiltDown:     "إمالة عمودية للأسفل",
		MotionDroneUp:      "لقطة درون ترتفع للأعلى",
		MotionDroneForward: "لقطة درون تتقدم للأمام",
		MotionOrbitLeft:    "دوران في مدار لليسار",
		MotionOrbitRight:   "دوران في مدار لليمين",
	},
	amounts: map[MotionAmount]string{
		MotionLight:  "بشكل بطيء وخفيف",
		MotionMedium: "بشكل متوسط",
		MotionStrong: "بشكل سريع وقوي",
	},
	positions: map[TextPosition]string{
		TextTop:    "أعلى الشاشة",
		TextMiddle: "منتصف الشاشة",
		TextBottom: "أسفل الشاشة",
	},
	motionFmt:   "نفذ حركة كاميرا: %s %s.",
	durationFmt: "المدة المستهدفة لهذا الفيديو هي حوالي %d ثوانٍ.",
	overlayFmt: "إلزامي وبأقصى أولوية: يجب أن يظهر النص التالي مكتوباً بالخط العربي على الفيديو. " +
		"حافظ على النص باللغة العربية تمامًا كما هو دون أي ترجمة أو تغيير. " +
		"استخدم خطًا أنيقًا وصغيرًا. إذا كان النص طويلاً، قم بتقسيمه على عدة أسطر. " +
		"النص هو: \"%s\". ضعه في %s.",
	imageExtraFmt: "الوصف الإضافي هو: \"%s\".",
	imageDefault:  "قم بتحريك هذه الصورة بشكل سينمائي مذهل.",
}
