package dashboard

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	rosterSheet  = "Roster"
	summarySheet = "Summary"
)

var rosterHeader = []any{
	"Name", "Enrollment No.", "Institute", "Email", "Items Completed",
	"Quizzes Passed", "Average Score", "Performance", "Badges", "Last Activity",
}

// ExportXLSX writes the roster as a workbook with a per-student sheet and
// a summary sheet.
func ExportXLSX(w io.Writer, r Roster) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(rosterHeader))
	if err := f.SetCellStyle(rosterSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(rosterSheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	for i, s := range r.Students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			s.FullName, s.EnrollmentNumber, s.Institute, s.Email, s.ItemsCompleted,
			s.QuizzesPassed, s.AverageScore, s.Performance(), s.Badges,
			s.LastActivity.UTC().Format(time.DateTime),
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("adding summary sheet: %w", err)
	}
	summary := [][]any{
		{"Total Students", r.TotalStudents},
		{"Active (7 days)", r.ActiveStudents},
		{"Average Completion", r.AverageCompletion},
		{"Top Performer", r.TopPerformer},
		{"Generated At", r.GeneratedAt.UTC().Format(time.DateTime)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 22); err != nil {
		return fmt.Errorf("sizing summary columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
