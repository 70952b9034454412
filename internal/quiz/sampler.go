// Package quiz runs timed multiple-choice attempts: it samples questions
// from a bank, records answers, grades the attempt into a badge tier and
// hands the result to a sink.
package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/suraksha-edu/suraksha/internal/catalog"
)

// ErrInsufficientBankSize is matched by *InsufficientBankSizeError.
var ErrInsufficientBankSize = errors.New("insufficient bank size")

// InsufficientBankSizeError reports a sample request the bank cannot serve.
type InsufficientBankSizeError struct {
	BankID    string
	Requested int
	Available int
}

func (e *InsufficientBankSizeError) Error() string {
	return fmt.Sprintf("bank %q: cannot sample %d of %d questions", e.BankID, e.Requested, e.Available)
}

func (e *InsufficientBankSizeError) Is(target error) bool {
	return target == ErrInsufficientBankSize
}

// SampledQuestion is a bank question placed at an attempt-local position.
// Position runs 1..n within one attempt; BankQuestionID identifies the
// source question and is never used as the position.
type SampledQuestion struct {
	Position       int      `json:"position"`
	BankQuestionID string   `json:"bank_question_id"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	Points         int      `json:"points"`

	correctAnswer int
	explanation   string
}

// CorrectAnswer returns the index of the right option.
func (q SampledQuestion) CorrectAnswer() int { return q.correctAnswer }

// Explanation returns the text shown on the review screen.
func (q SampledQuestion) Explanation() string { return q.explanation }

// Sample draws n distinct questions uniformly at random, in random order.
// A nil rng uses the process-wide source. Every call is independent; no
// exclusion of previously drawn questions is applied.
func Sample(rng *rand.Rand, bank catalog.QuestionBank, n int) ([]SampledQuestion, error) {
	if n < 1 || n > len(bank.Questions) {
		return nil, &InsufficientBankSizeError{BankID: bank.ID, Requested: n, Available: len(bank.Questions)}
	}

	idx := make([]int, len(bank.Questions))
	for i := range idx {
		idx[i] = i
	}
	swap := func(i, j int) { idx[i], idx[j] = idx[j], idx[i] }
	if rng != nil {
		rng.Shuffle(len(idx), swap)
	} else {
		rand.Shuffle(len(idx), swap)
	}

	out := make([]SampledQuestion, n)
	for pos, i := range idx[:n] {
		q := bank.Questions[i]
		out[pos] = SampledQuestion{
			Position:       pos + 1,
			BankQuestionID: q.ID,
			Prompt:         q.Prompt,
			Options:        append([]string(nil), q.Options...),
			Points:         q.Points,
			correctAnswer:  q.CorrectAnswer,
			explanation:    q.Explanation,
		}
	}
	return out, nil
}

// NewSampledQuestion builds a question directly, for callers that restore
// attempts or assemble fixed quizzes.
func NewSampledQuestion(position int, q catalog.Question) SampledQuestion {
	points := q.Points
	if points == 0 {
		points = 1
	}
	return SampledQuestion{
		Position:       position,
		BankQuestionID: q.ID,
		Prompt:         q.Prompt,
		Options:        append([]string(nil), q.Options...),
		Points:         points,
		correctAnswer:  q.CorrectAnswer,
		explanation:    q.Explanation,
	}
}
