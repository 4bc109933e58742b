package storyboard

import (
	"errors"
	"testing"
)

func TestNew_AssignsIDsInOrder(t *testing.T) {
	shots := New([]Beat{
		{Visual: "first", Overlay: "one"},
		{Visual: "second"},
		{Visual: "third", Overlay: "three"},
	})

	if len(shots) != 3 {
		t.Fatalf("len = %d, want 3", len(shots))
	}
	for i, s := range shots {
		if s.ID != i {
			t.Errorf("shots[%d].ID = %d", i, s.ID)
		}
		if s.CameraMotion != MotionNone {
			t.Errorf("shots[%d].CameraMotion = %q, want none", i, s.CameraMotion)
		}
		if s.MotionAmount != MotionMedium {
			t.Errorf("shots[%d].MotionAmount = %d, want 2", i, s.MotionAmount)
		}
	}
	if shots[1].Overlay != "" {
		t.Errorf("missing overlay should stay empty, got %q", shots[1].Overlay)
	}
}

func TestClipName(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "shot_1.mp4"},
		{4, "shot_5.mp4"},
		{41, "shot_42.mp4"},
	}
	for _, tt := range tests {
		if got := ClipName(tt.id); got != tt.want {
			t.Errorf("ClipName(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestParseCameraMotion(t *testing.T) {
	for _, m := range CameraMotions() {
		got, err := ParseCameraMotion(string(m))
		if err != nil || got != m {
			t.Errorf("ParseCameraMotion(%q) = %q, %v", m, got, err)
		}
	}

	if got, err := ParseCameraMotion(""); err != nil || got != MotionNone {
		t.Errorf("empty motion = %q, %v; want none", got, err)
	}

	if _, err := ParseCameraMotion("barrel-roll"); !errors.Is(err, ErrUnknownMotion) {
		t.Errorf("unknown motion error = %v, want ErrUnknownMotion", err)
	}
}

func TestUpdateCamera(t *testing.T) {
	shots := New([]Beat{{Visual: "a"}, {Visual: "b"}})

	motion := MotionTiltUp
	amount := MotionStrong
	updated, err := UpdateCamera(shots, 1, CameraUpdate{Motion: &motion, Amount: &amount})
	if err != nil {
		t.Fatalf("UpdateCamera() error = %v", err)
	}
	if updated.CameraMotion != MotionTiltUp || updated.MotionAmount != MotionStrong {
		t.Errorf("updated = %+v", updated)
	}
	if shots[1].CameraMotion != MotionTiltUp {
		t.Error("update should apply in place")
	}
	if shots[0].CameraMotion != MotionNone {
		t.Error("other shots must not change")
	}
	if shots[1].Visual != "b" {
		t.Error("visual must not change")
	}
}

func TestUpdateCamera_Errors(t *testing.T) {
	shots := New([]Beat{{Visual: "a"}})

	bad := MotionAmount(5)
	if _, err := UpdateCamera(shots, 0, CameraUpdate{Amount: &bad}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}

	unknown := CameraMotion("spin")
	if _, err := UpdateCamera(shots, 0, CameraUpdate{Motion: &unknown}); !errors.Is(err, ErrUnknownMotion) {
		t.Errorf("error = %v, want ErrUnknownMotion", err)
	}

	if _, err := UpdateCamera(shots, 3, CameraUpdate{}); !errors.Is(err, ErrShotNotFound) {
		t.Errorf("error = %v, want ErrShotNotFound", err)
	}
}

func TestValidate_DuplicateIDs(t *testing.T) {
	shots := []Shot{{ID: 0}, {ID: 1}, {ID: 0}}
	if err := Validate(shots); !errors.Is(err, ErrDuplicateShotID) {
		t.Errorf("Validate() = %v, want ErrDuplicateShotID", err)
	}
	if err := Validate(New([]Beat{{}, {}})); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestSelection(t *testing.T) {
	shots := New([]Beat{{Visual: "a"}, {Visual: "b"}, {Visual: "c"}, {Visual: "d"}})

	sel := NewSelection(3, 1)
	got := sel.Filter(shots)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("Filter() = %+v, want ids [1 3]", got)
	}

	sel.Toggle(1)
	sel.Toggle(0)
	if ids := sel.IDs(); len(ids) != 2 || ids[0] != 0 || ids[1] != 3 {
		t.Errorf("IDs() after toggles = %v, want [0 3]", ids)
	}

	if err := NewSelection(9).Validate(shots); !errors.Is(err, ErrShotNotFound) {
		t.Errorf("Validate() = %v, want ErrShotNotFound", err)
	}

	all := SelectAll(shots)
	if all.Len() != 4 {
		t.Errorf("SelectAll().Len() = %d, want 4", all.Len())
	}

	var empty Selection
	if !empty.Empty() || len(empty.Filter(shots)) != 0 {
		t.Error("zero Selection should be empty")
	}
	empty.Toggle(2)
	if !empty.Has(2) {
		t.Error("Toggle on zero Selection should add")
	}
}
