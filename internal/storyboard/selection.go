package storyboard

import (
	"fmt"
	"sort"
)

// Selection is the set of shot ids chosen for production. Membership is by id,
// never by position, so the order ids were picked in does not matter.
type Selection struct {
	ids map[int]struct{}
}

func NewSelection(ids ...int) Selection {
	s := Selection{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// SelectAll selects every shot of the storyboard.
func SelectAll(shots []Shot) Selection {
	s := Selection{ids: make(map[int]struct{}, len(shots))}
	for _, shot := range shots {
		s.ids[shot.ID] = struct{}{}
	}
	return s
}

func (s Selection) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Selection) Len() int {
	return len(s.ids)
}

func (s Selection) Empty() bool {
	return len(s.ids) == 0
}

// Toggle adds id if absent and removes it otherwise.
func (s *Selection) Toggle(id int) {
	if s.ids == nil {
		s.ids = make(map[int]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// IDs returns the selected ids in ascending order.
func (s Selection) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Validate reports an error if the selection names a shot not in the storyboard.
func (s Selection) Validate(shots []Shot) error {
	known := make(map[int]bool, len(shots))
	for _, shot := range shots {
		known[shot.ID] = true
	}
	for id := range s.ids {
		if !known[id] {
			return fmt.Errorf("%w: %d", ErrShotNotFound, id)
		}
	}
	return nil
}

// Filter returns the selected shots in storyboard order.
func (s Selection) Filter(shots []Shot) []Shot {
	out := make([]Shot, 0, len(s.ids))
	for _, shot := range shots {
		if s.Has(shot.ID) {
			out = append(out, shot)
		}
	}
	return out
}
