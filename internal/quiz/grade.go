package quiz

import "time"

// DefaultPassingThreshold is used when a bank does not set one.
const DefaultPassingThreshold = 70

// Badge is the tier awarded for a graded attempt.
type Badge string

const (
	BadgeExpert       Badge = "Expert"
	BadgeChampion     Badge = "Champion"
	BadgePrepared     Badge = "Prepared"
	BadgeConscious    Badge = "Conscious"
	BadgeKeepLearning Badge = "Keep-Learning"
)

var badgeTiers = []struct {
	min   int
	badge Badge
}{
	{90, BadgeExpert},
	{80, BadgeChampion},
	{70, BadgePrepared},
	{60, BadgeConscious},
}

// BadgeFor maps a percentage to its tier, highest first.
func BadgeFor(percentage int) Badge {
	for _, t := range badgeTiers {
		if percentage >= t.min {
			return t.badge
		}
	}
	return BadgeKeepLearning
}

// Title is the learner-facing name of the badge.
func (b Badge) Title() string {
	switch b {
	case BadgeExpert:
		return "Disaster Response Expert"
	case BadgeChampion:
		return "Safety Champion"
	case BadgePrepared:
		return "Emergency Prepared"
	case BadgeConscious:
		return "Safety Conscious"
	default:
		return "Keep Learning"
	}
}

// QuestionOutcome is the review line for one sampled question.
type QuestionOutcome struct {
	Position       int      `json:"position"`
	BankQuestionID string   `json:"bank_question_id"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	Selected       int      `json:"selected"` // -1 when unanswered
	Correct        int      `json:"correct"`
	IsCorrect      bool     `json:"is_correct"`
	Explanation    string   `json:"explanation,omitempty"`
	Points         int      `json:"points"`
}

// AttemptResult is the immutable outcome of a terminated attempt.
type AttemptResult struct {
	AttemptID      string            `json:"attempt_id"`
	UserID         string            `json:"user_id"`
	BankID         string            `json:"bank_id"`
	Status         Status            `json:"status"`
	Outcomes       []QuestionOutcome `json:"outcomes"`
	Score          int               `json:"score"`
	MaxScore       int               `json:"max_score"`
	Points         int               `json:"points"`
	MaxPoints      int               `json:"max_points"`
	Percentage     int               `json:"percentage"`
	Passed         bool              `json:"passed"`
	Badge          Badge             `json:"badge"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	CompletedAt    time.Time         `json:"completed_at"`
}

// Grade scores a with the time still on the clock at submission. It has no
// side effects and returns the same result for the same input; CompletedAt
// is left for the caller to stamp.
//
// Unanswered questions count as incorrect. Percentage is based on the count
// of correct answers; weighted points are reported alongside. A threshold
// of zero or less means DefaultPassingThreshold.
func Grade(a *Attempt, remaining time.Duration, threshold int) AttemptResult {
	if threshold <= 0 {
		threshold = DefaultPassingThreshold
	}

	r := AttemptResult{
		AttemptID: a.ID,
		UserID:    a.UserID,
		BankID:    a.BankID,
		Status:    a.Status,
		Outcomes:  make([]QuestionOutcome, len(a.Questions)),
		MaxScore:  len(a.Questions),
	}

	for i, q := range a.Questions {
		selected, answered := a.Answers[q.Position]
		if !answered {
			selected = -1
		}
		correct := answered && selected == q.correctAnswer

		r.Outcomes[i] = QuestionOutcome{
			Position:       q.Position,
			BankQuestionID: q.BankQuestionID,
			Prompt:         q.Prompt,
			Options:        q.Options,
			Selected:       selected,
			Correct:        q.correctAnswer,
			IsCorrect:      correct,
			Explanation:    q.explanation,
			Points:         q.Points,
		}
		r.MaxPoints += q.Points
		if correct {
			r.Score++
			r.Points += q.Points
		}
	}

	r.Percentage = percent(r.Score, r.MaxScore)
	r.Passed = r.Percentage >= threshold
	r.Badge = BadgeFor(r.Percentage)
	r.ElapsedSeconds = elapsedSeconds(a.TimeLimit, remaining)
	return r
}

// elapsedSeconds is limit-remaining clamped to [0, limit], in whole seconds.
func elapsedSeconds(limit, remaining time.Duration) int {
	elapsed := limit - remaining
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > limit {
		elapsed = limit
	}
	return int(elapsed / time.Second)
}

// percent is round-half-up(100*part/whole); 0 when whole is 0.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}
