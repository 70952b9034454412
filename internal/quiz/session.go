package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/suraksha-edu/suraksha/internal/activity"
	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/persist"
)

var (
	// ErrNoAttempt is returned when the learner has no current attempt.
	ErrNoAttempt = errors.New("no attempt in progress")
	// ErrUnknownBank is returned for a bank ID missing from the catalog.
	ErrUnknownBank = errors.New("unknown question bank")
)

// UpdateType distinguishes pushed session updates.
type UpdateType string

const (
	UpdateTick   UpdateType = "tick"
	UpdateResult UpdateType = "result"
)

// Update is pushed to subscribers on every countdown tick and once when
// the attempt is graded.
type Update struct {
	Type             UpdateType     `json:"type"`
	AttemptID        string         `json:"attempt_id"`
	RemainingSeconds int            `json:"remaining_seconds"`
	Result           *AttemptResult `json:"result,omitempty"`
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Catalog *catalog.Catalog
	Sink    ResultSink
	Events  activity.Logger
	// Rand seeds sampling; nil uses the process-wide source.
	Rand *rand.Rand
	// Now stamps start and completion times; nil uses time.Now.
	Now func() time.Time
	// TimerOptions are appended to every attempt timer.
	TimerOptions []TimerOption
}

// Session is one learner's quiz state: at most one attempt and one running
// timer at a time.
type Session struct {
	userID string
	deps   Deps

	mu      sync.Mutex
	attempt *Attempt
	timer   *Timer
	// expired is the ID of the attempt whose clock reached zero.
	expired string
	last    *AttemptResult
	subs    map[chan Update]struct{}
}

// NewSession creates an idle session for userID.
func NewSession(userID string, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = activity.NopLogger{}
	}
	return &Session{
		userID: userID,
		deps:   deps,
		subs:   make(map[chan Update]struct{}),
	}
}

// Start samples a new attempt from bankID and starts its timer. Any
// previous attempt is discarded and its timer cancelled.
func (s *Session) Start(ctx context.Context, bankID string) (Attempt, error) {
	bank, ok := s.deps.Catalog.Bank(bankID)
	if !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrUnknownBank, bankID)
	}

	questions, err := Sample(s.deps.Rand, bank, bank.SampleSize)
	if err != nil {
		return Attempt{}, err
	}

	a := NewAttempt(s.userID, bank.ID, questions, bank.TimeLimit(), bank.PassingThreshold, s.deps.Now())
	id := a.ID

	opts := append([]TimerOption{
		OnTick(func(remaining time.Duration) { s.tick(id, remaining) }),
		OnExpire(func() { s.expire(id) }),
	}, s.deps.TimerOptions...)
	timer := NewTimer(a.TimeLimit, opts...)

	s.mu.Lock()
	prev := s.timer
	s.attempt = a
	s.timer = timer
	snapshot := a.snapshot()
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	if err := timer.Start(); err != nil {
		if !errors.Is(err, ErrTimerCancelled) {
			return Attempt{}, err
		}
		// A concurrent Start replaced this attempt before its clock ran.
		cur, _, ok := s.Current()
		if !ok {
			return Attempt{}, fmt.Errorf("%w: attempt %s superseded", ErrAttemptClosed, id)
		}
		slog.Debug("attempt superseded", "user_id", s.userID, "attempt_id", id, "current", cur.ID)
		return cur, nil
	}

	slog.Info("attempt started", "user_id", s.userID, "attempt_id", id, "bank_id", bank.ID, "questions", len(questions))
	activity.Log(ctx, s.deps.Events, activity.Event{
		UserID:    s.userID,
		EventType: activity.AttemptStarted,
		Data:      map[string]any{"attempt_id": id, "bank_id": bank.ID, "questions": len(questions)},
	})
	return snapshot, nil
}

// Answer records option for the question at position in the current attempt.
func (s *Session) Answer(position, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil {
		return ErrNoAttempt
	}
	if s.expired == s.attempt.ID {
		return fmt.Errorf("%w: time is up", ErrAttemptClosed)
	}
	return s.attempt.Select(position, option)
}

// Submit stops the timer and grades the current attempt. If the result
// cannot be stored the returned error is a *persist.Error and the result
// is still returned for display.
func (s *Session) Submit(ctx context.Context) (AttemptResult, error) {
	s.mu.Lock()
	a, timer := s.attempt, s.timer
	s.mu.Unlock()
	if a == nil {
		return AttemptResult{}, ErrNoAttempt
	}

	remaining, ok := timer.Stop()
	if !ok {
		return AttemptResult{}, fmt.Errorf("%w: timer %s", ErrAttemptClosed, timer.State())
	}
	return s.finish(ctx, a.ID, StatusSubmitted, remaining)
}

// tick runs on the timer goroutine with the timer locked. Ticks of an
// attempt that was abandoned or replaced are dropped.
func (s *Session) tick(attemptID string, remaining time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt == nil || s.attempt.ID != attemptID {
		return
	}
	if remaining == 0 {
		s.expired = attemptID
	}
	s.broadcast(Update{Type: UpdateTick, AttemptID: attemptID, RemainingSeconds: seconds(remaining)})
}

// expire runs on the timer goroutine when the countdown reaches zero.
func (s *Session) expire(attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := s.finish(ctx, attemptID, StatusTimedOut, 0); err != nil && !errors.Is(err, ErrAttemptClosed) {
		slog.Error("timed-out attempt not stored", "user_id", s.userID, "attempt_id", attemptID, "error", err)
	}
}

// finish terminates attemptID with status, grades it and forwards the
// result to the sink. Grading happens at most once per attempt.
func (s *Session) finish(ctx context.Context, attemptID string, status Status, remaining time.Duration) (AttemptResult, error) {
	s.mu.Lock()
	a := s.attempt
	if a == nil || a.ID != attemptID {
		s.mu.Unlock()
		return AttemptResult{}, fmt.Errorf("%w: attempt %s replaced", ErrAttemptClosed, attemptID)
	}
	if err := a.close(status); err != nil {
		s.mu.Unlock()
		return AttemptResult{}, err
	}
	result := Grade(a, remaining, a.PassingThreshold)
	result.CompletedAt = s.deps.Now()
	s.last = &result
	s.mu.Unlock()

	s.publish(Update{Type: UpdateResult, AttemptID: attemptID, RemainingSeconds: seconds(remaining), Result: &result})

	slog.Info("attempt graded",
		"user_id", s.userID,
		"attempt_id", attemptID,
		"status", status,
		"percentage", result.Percentage,
		"badge", result.Badge,
	)
	activity.Log(ctx, s.deps.Events, activity.Event{
		UserID:    s.userID,
		EventType: activity.AttemptGraded,
		Data: map[string]any{
			"attempt_id": attemptID,
			"bank_id":    result.BankID,
			"status":     string(status),
			"percentage": result.Percentage,
			"passed":     result.Passed,
		},
	})

	if err := s.deps.Sink.Record(ctx, s.userID, result); err != nil {
		return result, persist.Wrap("record result", s.userID, err)
	}
	return result, nil
}

// Abandon cancels the current attempt without grading it.
func (s *Session) Abandon() error {
	s.mu.Lock()
	a, timer := s.attempt, s.timer
	if a == nil {
		s.mu.Unlock()
		return ErrNoAttempt
	}
	s.attempt, s.timer = nil, nil
	s.mu.Unlock()

	timer.Cancel()
	slog.Info("attempt abandoned", "user_id", s.userID, "attempt_id", a.ID)
	return nil
}

// Current returns a copy of the current attempt and the time left.
func (s *Session) Current() (Attempt, time.Duration, bool) {
	s.mu.Lock()
	a, timer := s.attempt, s.timer
	var snapshot Attempt
	if a != nil {
		snapshot = a.snapshot()
	}
	s.mu.Unlock()

	if a == nil {
		return Attempt{}, 0, false
	}
	return snapshot, timer.Remaining(), true
}

// LastResult returns the most recent graded result of this session.
func (s *Session) LastResult() (AttemptResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return AttemptResult{}, false
	}
	return *s.last, true
}

// Subscribe returns a channel of updates and a function that ends the
// subscription. Slow subscribers miss ticks rather than block the timer.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast(u)
}

// broadcast sends u to every subscriber; s.mu must be held.
func (s *Session) broadcast(u Update) {
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// close cancels any running timer; used at shutdown.
func (s *Session) close() {
	s.mu.Lock()
	timer := s.timer
	s.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
}

func (a *Attempt) snapshot() Attempt {
	cp := *a
	cp.Answers = make(map[int]int, len(a.Answers))
	for k, v := range a.Answers {
		cp.Answers[k] = v
	}
	cp.Questions = append([]SampledQuestion(nil), a.Questions...)
	return cp
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
