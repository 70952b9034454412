// Package dashboard aggregates progress and quiz history into the student
// summary and the teacher roster.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/suraksha-edu/suraksha/internal/account"
	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/progress"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

const (
	recentResults  = 5
	activeWindow   = 7 * 24 * time.Hour
	noTopPerformer = "None"
)

// Achievement is a milestone shown on the student dashboard.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var achievements = []struct {
	Achievement
	earned func(items, passed int) bool
}{
	{Achievement{"first-drill", "First Steps", "Completed your first drill"}, func(items, _ int) bool { return items >= 1 }},
	{Achievement{"drill-expert", "Drill Expert", "Completed 5 drills"}, func(items, _ int) bool { return items >= 5 }},
	{Achievement{"quiz-master", "Quiz Master", "Passed your first quiz"}, func(_, passed int) bool { return passed >= 1 }},
	{Achievement{"knowledge-seeker", "Knowledge Seeker", "Passed 3 quizzes"}, func(_, passed int) bool { return passed >= 3 }},
}

// Achievements returns the milestones earned for the given counts.
func Achievements(items, passed int) []Achievement {
	out := []Achievement{}
	for _, a := range achievements {
		if a.earned(items, passed) {
			out = append(out, a.Achievement)
		}
	}
	return out
}

// OverallProgress weights item completion and quiz pass rate equally:
// round(50*items/total + 50*passed/attempts), halves rounding up. A zero
// denominator contributes nothing.
func OverallProgress(items, total, passed, attempts int) int {
	// Sum the two terms as one fraction num/den before rounding.
	num, den := 0, 1
	if total > 0 && attempts > 0 {
		num = 50*items*attempts + 50*passed*total
		den = total * attempts
	} else if total > 0 {
		num, den = 50*items, total
	} else if attempts > 0 {
		num, den = 50*passed, attempts
	}
	return (2*num + den) / (2 * den)
}

// CompletedItem is one finished drill or lesson.
type CompletedItem struct {
	ItemID      string    `json:"item_id"`
	Title       string    `json:"title"`
	SectionID   string    `json:"section_id"`
	Score       *int      `json:"score,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Summary is the student dashboard.
type Summary struct {
	UserID          string               `json:"user_id"`
	CompletedItems  []CompletedItem      `json:"completed_items"`
	TotalItems      int                  `json:"total_items"`
	QuizzesTaken    int                  `json:"quizzes_taken"`
	QuizzesPassed   int                  `json:"quizzes_passed"`
	RecentResults   []quiz.AttemptResult `json:"recent_results"`
	Achievements    []Achievement        `json:"achievements"`
	OverallProgress int                  `json:"overall_progress"`
}

// StudentLister lists the students shown on the roster.
type StudentLister interface {
	Students(ctx context.Context) ([]account.Account, error)
}

// Service builds dashboards from the progress store and result sink.
type Service struct {
	catalog  *catalog.Catalog
	progress progress.Store
	results  quiz.ResultSink
	students StudentLister
	now      func() time.Time
}

// New creates a dashboard service.
func New(cat *catalog.Catalog, store progress.Store, results quiz.ResultSink, students StudentLister) *Service {
	return &Service{
		catalog:  cat,
		progress: store,
		results:  results,
		students: students,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for the active window.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

type history struct {
	records []progress.CompletionRecord
	results []quiz.AttemptResult // newest first
	passed  int
}

func (s *Service) load(ctx context.Context, userID string) (history, error) {
	records, err := s.progress.Records(ctx, userID)
	if err != nil {
		return history{}, fmt.Errorf("loading completions: %w", err)
	}
	results, err := s.results.Recent(ctx, userID, 0)
	if err != nil {
		return history{}, fmt.Errorf("loading results: %w", err)
	}
	h := history{results: results}
	for _, r := range records {
		if r.Completed {
			h.records = append(h.records, r)
		}
	}
	for _, r := range results {
		if r.Passed {
			h.passed++
		}
	}
	return h, nil
}

// StudentSummary builds the dashboard for one learner.
func (s *Service) StudentSummary(ctx context.Context, userID string) (Summary, error) {
	h, err := s.load(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	items := make([]CompletedItem, 0, len(h.records))
	for _, r := range h.records {
		item := CompletedItem{ItemID: r.ItemID, Title: r.ItemID, Score: r.Score, CompletedAt: r.CompletedAt}
		if sec, ok := s.catalog.SectionOf(r.ItemID); ok {
			item.SectionID = sec.ID
			for _, ci := range sec.Items {
				if ci.ID == r.ItemID {
					item.Title = ci.Title
					break
				}
			}
		}
		items = append(items, item)
	}

	recent := h.results
	if len(recent) > recentResults {
		recent = recent[:recentResults]
	}

	total := s.catalog.TotalItems()
	return Summary{
		UserID:          userID,
		CompletedItems:  items,
		TotalItems:      total,
		QuizzesTaken:    len(h.results),
		QuizzesPassed:   h.passed,
		RecentResults:   recent,
		Achievements:    Achievements(len(items), h.passed),
		OverallProgress: OverallProgress(len(items), total, h.passed, len(h.results)),
	}, nil
}

// StudentRow is one line of the teacher roster.
type StudentRow struct {
	UserID           string    `json:"user_id"`
	FullName         string    `json:"full_name"`
	Institute        string    `json:"institute"`
	EnrollmentNumber string    `json:"enrollment_number"`
	Email            string    `json:"email"`
	ItemsCompleted   int       `json:"items_completed"`
	QuizzesPassed    int       `json:"quizzes_passed"`
	AverageScore     int       `json:"average_score"`
	Badges           int       `json:"badges"`
	LastActivity     time.Time `json:"last_activity"`
}

// Performance labels the average score the way the roster table does.
func (r StudentRow) Performance() string {
	switch {
	case r.AverageScore >= 80:
		return "Excellent"
	case r.AverageScore >= 60:
		return "Good"
	default:
		return "Needs Improvement"
	}
}

// Roster is the teacher dashboard.
type Roster struct {
	Students          []StudentRow `json:"students"`
	TotalStudents     int          `json:"total_students"`
	ActiveStudents    int          `json:"active_students"`
	AverageCompletion int          `json:"average_completion"`
	TopPerformer      string       `json:"top_performer"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// TeacherRoster builds the roster over every student, ranked by average
// score.
func (s *Service) TeacherRoster(ctx context.Context) (Roster, error) {
	accounts, err := s.students.Students(ctx)
	if err != nil {
		return Roster{}, fmt.Errorf("listing students: %w", err)
	}

	now := s.now().UTC()
	roster := Roster{Students: []StudentRow{}, TopPerformer: noTopPerformer, GeneratedAt: now}

	for _, a := range accounts {
		h, err := s.load(ctx, a.ID)
		if err != nil {
			return Roster{}, err
		}

		var scores []int
		last := a.CreatedAt
		for _, r := range h.records {
			if r.Score != nil {
				scores = append(scores, *r.Score)
			}
			if r.CompletedAt.After(last) {
				last = r.CompletedAt
			}
		}
		for _, r := range h.results {
			scores = append(scores, r.Percentage)
			if r.CompletedAt.After(last) {
				last = r.CompletedAt
			}
		}

		roster.Students = append(roster.Students, StudentRow{
			UserID:           a.ID,
			FullName:         a.Profile.FullName,
			Institute:        a.Profile.Institute,
			EnrollmentNumber: a.Profile.EnrollmentNumber,
			Email:            a.Email,
			ItemsCompleted:   len(h.records),
			QuizzesPassed:    h.passed,
			AverageScore:     mean(scores),
			Badges:           len(h.records)/2 + h.passed/2,
			LastActivity:     last,
		})
	}

	var averages []int
	best := -1
	for i, row := range roster.Students {
		if row.LastActivity.After(now.Add(-activeWindow)) {
			roster.ActiveStudents++
		}
		averages = append(averages, row.AverageScore)
		if best < 0 || row.AverageScore > roster.Students[best].AverageScore {
			best = i
		}
	}
	if best >= 0 {
		roster.TopPerformer = roster.Students[best].FullName
	}
	roster.TotalStudents = len(roster.Students)
	roster.AverageCompletion = mean(averages)

	sort.SliceStable(roster.Students, func(i, j int) bool {
		return roster.Students[i].AverageScore > roster.Students[j].AverageScore
	})
	return roster, nil
}

// mean rounds half up; an empty slice averages to zero.
func mean(xs []int) int {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return (2*sum + len(xs)) / (2 * len(xs))
}
