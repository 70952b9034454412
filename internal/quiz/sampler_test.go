package quiz_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

func testBank(n int) catalog.QuestionBank {
	b := catalog.QuestionBank{ID: "bank", Title: "Bank", SampleSize: n}
	for i := range n {
		b.Questions = append(b.Questions, catalog.Question{
			ID:            fmt.Sprintf("q%02d", i+1),
			Prompt:        fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			Points:        1,
		})
	}
	return b
}

func TestSample_DistinctWithLocalPositions(t *testing.T) {
	bank := testBank(30)
	rng := rand.New(rand.NewPCG(1, 2))

	got, err := quiz.Sample(rng, bank, 25)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("len = %d, want 25", len(got))
	}

	seen := make(map[string]bool)
	for i, q := range got {
		if q.Position != i+1 {
			t.Errorf("question %d Position = %d, want %d", i, q.Position, i+1)
		}
		if seen[q.BankQuestionID] {
			t.Errorf("question %s sampled twice", q.BankQuestionID)
		}
		seen[q.BankQuestionID] = true
	}
}

func TestSample_KeepsAnswerKey(t *testing.T) {
	bank := testBank(8)
	byID := make(map[string]catalog.Question)
	for _, q := range bank.Questions {
		byID[q.ID] = q
	}

	got, err := quiz.Sample(nil, bank, 8)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	for _, q := range got {
		if q.CorrectAnswer() != byID[q.BankQuestionID].CorrectAnswer {
			t.Errorf("%s CorrectAnswer = %d, want %d", q.BankQuestionID, q.CorrectAnswer(), byID[q.BankQuestionID].CorrectAnswer)
		}
	}
}

func TestSample_InsufficientBankSize(t *testing.T) {
	bank := testBank(5)

	for _, n := range []int{6, 0, -1} {
		_, err := quiz.Sample(nil, bank, n)
		if !errors.Is(err, quiz.ErrInsufficientBankSize) {
			t.Errorf("Sample(n=%d) error = %v, want ErrInsufficientBankSize", n, err)
		}
		var sizeErr *quiz.InsufficientBankSizeError
		if !errors.As(err, &sizeErr) || sizeErr.Available != 5 || sizeErr.Requested != n {
			t.Errorf("Sample(n=%d) error = %#v", n, err)
		}
	}

	if _, err := quiz.Sample(nil, bank, 5); err != nil {
		t.Errorf("Sample(n=|bank|) error = %v", err)
	}
}

func TestSample_SeededIsReproducible(t *testing.T) {
	bank := testBank(20)
	a, _ := quiz.Sample(rand.New(rand.NewPCG(7, 7)), bank, 10)
	b, _ := quiz.Sample(rand.New(rand.NewPCG(7, 7)), bank, 10)
	for i := range a {
		if a[i].BankQuestionID != b[i].BankQuestionID {
			t.Fatalf("same seed diverged at %d: %s vs %s", i, a[i].BankQuestionID, b[i].BankQuestionID)
		}
	}
}

func TestSample_RoughlyUniform(t *testing.T) {
	bank := testBank(4)
	rng := rand.New(rand.NewPCG(42, 99))
	const draws = 4000

	counts := make(map[string]int)
	for range draws {
		got, err := quiz.Sample(rng, bank, 1)
		if err != nil {
			t.Fatalf("Sample() error = %v", err)
		}
		counts[got[0].BankQuestionID]++
	}

	for id, c := range counts {
		if c < 800 || c > 1200 {
			t.Errorf("question %s drawn %d/%d times, want about %d", id, c, draws, draws/4)
		}
	}
	if len(counts) != 4 {
		t.Errorf("only %d of 4 questions ever drawn", len(counts))
	}
}
