// Package storyboard holds the shot model and the prompt augmentation rules
// used to turn a shot into a video generation prompt.
package storyboard

import (
	"errors"
	"fmt"
)

// CameraMotion is the per-shot camera movement requested from the video model.
type CameraMotion string

const (
	MotionNone         CameraMotion = "none"
	MotionZoomIn       CameraMotion = "zoom-in"
	MotionZoomOut      CameraMotion = "zoom-out"
	MotionPanLeft      CameraMotion = "pan-left"
	MotionPanRight     CameraMotion = "pan-right"
	MotionTiltUp       CameraMotion = "tilt-up"
	MotionTiltDown     CameraMotion = "tilt-down"
	MotionDroneUp      CameraMotion = "drone-up"
	MotionDroneForward CameraMotion = "drone-forward"
	MotionOrbitLeft    CameraMotion = "orbit-left"
	MotionOrbitRight   CameraMotion = "orbit-right"
)

var cameraMotions = []CameraMotion{
	MotionNone,
	MotionZoomIn,
	MotionZoomOut,
	MotionPanLeft,
	MotionPanRight,
	MotionTiltUp,
	MotionTiltDown,
	MotionDroneUp,
	MotionDroneForward,
	MotionOrbitLeft,
	MotionOrbitRight,
}

// CameraMotions returns every supported motion, "none" first.
func CameraMotions() []CameraMotion {
	out := make([]CameraMotion, len(cameraMotions))
	copy(out, cameraMotions)
	return out
}

func (m CameraMotion) Valid() bool {
	for _, known := range cameraMotions {
		if m == known {
			return true
		}
	}
	return false
}

// ParseCameraMotion maps an API value to a CameraMotion. The empty string is "none".
func ParseCameraMotion(s string) (CameraMotion, error) {
	if s == "" {
		return MotionNone, nil
	}
	m := CameraMotion(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMotion, s)
	}
	return m, nil
}

// MotionAmount is the intensity of a camera motion: 1 light, 2 medium, 3 strong.
type MotionAmount int

const (
	MotionLight  MotionAmount = 1
	MotionMedium MotionAmount = 2
	MotionStrong MotionAmount = 3

	DefaultMotionAmount = MotionMedium
)

func (a MotionAmount) Valid() bool {
	return a >= MotionLight && a <= MotionStrong
}

var (
	ErrUnknownMotion   = errors.New("unknown camera motion")
	ErrInvalidAmount   = errors.New("motion amount must be between 1 and 3")
	ErrShotNotFound    = errors.New("shot not found")
	ErrDuplicateShotID = errors.New("duplicate shot id")
)

// Beat is one visual/overlay pair as returned by script or image analysis.
type Beat struct {
	Visual  string `json:"visual"`
	Overlay string `json:"overlay"`
}

// Shot is a single unit of the storyboard. Only the camera fields change after creation.
type Shot struct {
	ID           int          `json:"id"`
	Visual       string       `json:"visual"`
	Overlay      string       `json:"overlay"`
	CameraMotion CameraMotion `json:"cameraMotion"`
	MotionAmount MotionAmount `json:"motionAmount"`
}

// New builds a storyboard from beats. IDs follow beat order starting at 0.
func New(beats []Beat) []Shot {
	shots := make([]Shot, len(beats))
	for i, b := range beats {
		shots[i] = Shot{
			ID:           i,
			Visual:       b.Visual,
			Overlay:      b.Overlay,
			CameraMotion: MotionNone,
			MotionAmount: DefaultMotionAmount,
		}
	}
	return shots
}

// ClipName is the file name given to the clip produced for a shot.
func ClipName(id int) string {
	return fmt.Sprintf("shot_%d.mp4", id+1)
}

func (s Shot) ClipName() string {
	return ClipName(s.ID)
}

// Validate checks that shot ids are unique.
func Validate(shots []Shot) error {
	seen := make(map[int]bool, len(shots))
	for _, s := range shots {
		if seen[s.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateShotID, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// CameraUpdate carries a partial change to a shot's camera fields.
type CameraUpdate struct {
	Motion *CameraMotion
	Amount *MotionAmount
}

// UpdateCamera applies an update to the shot with the given id, in place.
func UpdateCamera(shots []Shot, id int, u CameraUpdate) (*Shot, error) {
	if u.Motion != nil && !u.Motion.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMotion, *u.Motion)
	}
	if u.Amount != nil && !u.Amount.Valid() {
		return nil, ErrInvalidAmount
	}
	for i := range shots {
		if shots[i].ID != id {
			continue
		}
		if u.Motion != nil {
			shots[i].CameraMotion = *u.Motion
		}
		if u.Amount != nil {
			shots[i].MotionAmount = *u.Amount
		}
		return &shots[i], nil
	}
	return nil, fmt.Errorf("%w: %d", ErrShotNotFound, id)
}
