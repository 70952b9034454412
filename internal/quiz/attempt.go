package quiz

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an attempt.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusSubmitted  Status = "submitted"
	StatusTimedOut   Status = "timed-out"
)

var (
	// ErrAttemptClosed is returned for input after the attempt terminated.
	ErrAttemptClosed = errors.New("attempt is closed")
	// ErrInvalidPosition is returned for a position outside 1..n.
	ErrInvalidPosition = errors.New("invalid question position")
	// ErrInvalidOption is returned for an option index the question lacks.
	ErrInvalidOption = errors.New("invalid option")
)

// Attempt is one learner's run through a sampled quiz. Answers maps a
// position to the chosen option index; unanswered positions are absent.
// An Attempt is not safe for concurrent use; Session serialises access.
type Attempt struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	BankID           string            `json:"bank_id"`
	Questions        []SampledQuestion `json:"questions"`
	Answers          map[int]int       `json:"answers"`
	StartedAt        time.Time         `json:"started_at"`
	TimeLimit        time.Duration     `json:"-"`
	PassingThreshold int               `json:"passing_threshold"`
	Status           Status            `json:"status"`
}

// NewAttempt starts an in-progress attempt over questions.
func NewAttempt(userID, bankID string, questions []SampledQuestion, limit time.Duration, threshold int, startedAt time.Time) *Attempt {
	return &Attempt{
		ID:               uuid.NewString(),
		UserID:           userID,
		BankID:           bankID,
		Questions:        questions,
		Answers:          make(map[int]int),
		StartedAt:        startedAt,
		TimeLimit:        limit,
		PassingThreshold: threshold,
		Status:           StatusInProgress,
	}
}

// Select records option for the question at position, replacing any
// earlier choice.
func (a *Attempt) Select(position, option int) error {
	if a.Status != StatusInProgress {
		return fmt.Errorf("%w: %s", ErrAttemptClosed, a.Status)
	}
	if position < 1 || position > len(a.Questions) {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidPosition, position, len(a.Questions))
	}
	q := a.Questions[position-1]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: %d for question %d", ErrInvalidOption, option, position)
	}
	a.Answers[position] = option
	return nil
}

// Answered returns how many positions have a selection.
func (a *Attempt) Answered() int {
	return len(a.Answers)
}

// Open reports whether the attempt still accepts answers.
func (a *Attempt) Open() bool {
	return a.Status == StatusInProgress
}

// close moves the attempt into a terminal status exactly once.
func (a *Attempt) close(status Status) error {
	if a.Status != StatusInProgress {
		return fmt.Errorf("%w: %s", ErrAttemptClosed, a.Status)
	}
	a.Status = status
	return nil
}
