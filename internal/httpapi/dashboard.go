package httpapi

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/suraksha-edu/suraksha/internal/dashboard"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Dashboard.StudentSummary(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := s.deps.Dashboard.TeacherRoster(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// handleRosterExport renders the workbook in memory first so a failure
// can still be reported as JSON.
func (s *Server) handleRosterExport(w http.ResponseWriter, r *http.Request) {
	roster, err := s.deps.Dashboard.TeacherRoster(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := dashboard.ExportXLSX(&buf, roster); err != nil {
		writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("roster-%s.xlsx", roster.GeneratedAt.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write roster export", "error", err)
	}
}
