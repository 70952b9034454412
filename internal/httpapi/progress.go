package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/suraksha-edu/suraksha/internal/activity"
	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/persist"
	"github.com/suraksha-edu/suraksha/internal/progress"
)

type sectionView struct {
	ID          string                `json:"id"`
	Track       catalog.Track         `json:"track"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	State       progress.SectionState `json:"state"`
}

func newSectionView(sec catalog.Section, state progress.SectionState) sectionView {
	return sectionView{
		ID:          sec.ID,
		Track:       sec.Track,
		Name:        sec.Name,
		Description: sec.Description,
		State:       state,
	}
}

// handleSections lists every section with the caller's unlock state.
// ?track= narrows the list to one page.
func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	tracker, err := s.deps.Progress.Tracker(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sections := s.deps.Catalog.Sections()
	if track := r.URL.Query().Get("track"); track != "" {
		sections = s.deps.Catalog.SectionsByTrack(catalog.Track(track))
	}

	out := make([]sectionView, 0, len(sections))
	for _, sec := range sections {
		out = append(out, newSectionView(sec, tracker.SectionState(sec)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.deps.Catalog.Section(r.PathValue("id"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: section %s", errNotFound, r.PathValue("id")))
		return
	}
	tracker, err := s.deps.Progress.Tracker(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSectionView(sec, tracker.SectionState(sec)))
}

type completeRequest struct {
	Score *int `json:"score"`
}

// handleComplete marks an item complete. A failed write is rolled back so
// the learner sees the item as still open and can retry.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	sec, ok := s.deps.Catalog.SectionOf(itemID)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %s", progress.ErrUnknownItem, itemID))
		return
	}

	var in completeRequest
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 100) {
		writeError(w, r, fmt.Errorf("%w: score must be within 0..100", errBadRequest))
		return
	}

	userID := accountFrom(r.Context()).ID
	tracker, err := s.deps.Progress.Tracker(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := tracker.MarkComplete(r.Context(), itemID, in.Score); err != nil {
		if persist.Is(err) && tracker.Rollback(itemID) {
			slog.Warn("completion rolled back", "user_id", userID, "item_id", itemID)
		}
		writeError(w, r, err)
		return
	}

	data := map[string]any{"item_id": itemID, "section_id": sec.ID}
	if in.Score != nil {
		data["score"] = *in.Score
	}
	activity.Log(r.Context(), s.deps.Events, activity.Event{
		UserID:    userID,
		EventType: activity.ItemCompleted,
		Data:      data,
	})

	writeJSON(w, http.StatusOK, newSectionView(sec, tracker.SectionState(sec)))
}
