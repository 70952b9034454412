// Package progress tracks which content items a learner has finished and
// derives the locked/unlocked/completed view of each section from that set.
package progress

import "github.com/suraksha-edu/suraksha/internal/catalog"

// State is the render state of one content item.
type State string

const (
	StateLocked    State = "locked"
	StateUnlocked  State = "unlocked"
	StateCompleted State = "completed"
)

// Set is a learner's completed item IDs.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// ItemState pairs a content item with its derived state.
type ItemState struct {
	Item  catalog.ContentItem `json:"item"`
	State State               `json:"state"`
}

// SectionState is the derived view of one section for one learner.
type SectionState struct {
	SectionID  string      `json:"section_id"`
	Name       string      `json:"name"`
	Items      []ItemState `json:"items"`
	Completed  int         `json:"completed"`
	Total      int         `json:"total"`
	Percentage int         `json:"percentage"`
}

// ComputeSectionState applies the linear unlock chain: the first item is
// always open, every later item opens once its predecessor is complete,
// and anything in completions reports completed regardless of neighbours.
//
// Items must be sorted by Order starting at 1, which the catalog loader
// guarantees.
func ComputeSectionState(section catalog.Section, completions Set) SectionState {
	st := SectionState{
		SectionID: section.ID,
		Name:      section.Name,
		Items:     make([]ItemState, len(section.Items)),
		Total:     len(section.Items),
	}

	prevDone := true
	for i, item := range section.Items {
		done := completions.Has(item.ID)
		switch {
		case done:
			st.Items[i] = ItemState{Item: item, State: StateCompleted}
			st.Completed++
		case prevDone:
			st.Items[i] = ItemState{Item: item, State: StateUnlocked}
		default:
			st.Items[i] = ItemState{Item: item, State: StateLocked}
		}
		prevDone = done
	}

	st.Percentage = Percent(st.Completed, st.Total)
	return st
}

// IsUnlocked reports whether itemID may be started given completions. It
// returns false for items outside section.
func IsUnlocked(section catalog.Section, itemID string, completions Set) bool {
	for i, item := range section.Items {
		if item.ID != itemID {
			continue
		}
		return i == 0 || completions.Has(section.Items[i-1].ID) || completions.Has(itemID)
	}
	return false
}

// Percent returns round-half-up(100*part/whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}
