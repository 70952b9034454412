package quiz

import (
	"errors"
	"sync"
	"time"
)

// TimerState is the lifecycle state of a Timer.
type TimerState string

const (
	TimerIdle      TimerState = "idle"
	TimerRunning   TimerState = "running"
	TimerSubmitted TimerState = "submitted"
	TimerTimedOut  TimerState = "timed-out"
	TimerCancelled TimerState = "cancelled"
)

var (
	// ErrTimerStarted is returned by Start on a timer that already ran.
	ErrTimerStarted = errors.New("timer already started")
	// ErrTimerCancelled is returned by Start on a timer cancelled while idle.
	ErrTimerCancelled = errors.New("timer cancelled before start")
)

// DefaultTickInterval is how often a running timer counts down.
const DefaultTickInterval = time.Second

// Ticker delivers ticks; *time.Ticker is adapted by realTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// TimerOption configures a Timer.
type TimerOption func(*Timer)

// WithTickInterval sets the countdown step.
func WithTickInterval(d time.Duration) TimerOption {
	return func(t *Timer) { t.interval = d }
}

// WithTicker replaces the ticker factory, for deterministic tests.
func WithTicker(newTicker func(time.Duration) Ticker) TimerOption {
	return func(t *Timer) { t.newTicker = newTicker }
}

// OnTick registers a callback receiving the time left after each tick.
func OnTick(fn func(remaining time.Duration)) TimerOption {
	return func(t *Timer) { t.onTick = fn }
}

// OnExpire registers a callback run once when the countdown reaches zero.
func OnExpire(fn func()) TimerOption {
	return func(t *Timer) { t.onExpire = fn }
}

// Timer counts an attempt down one interval per tick:
//
//	idle -> running -> submitted | timed-out
//	idle | running -> cancelled
//
// OnTick callbacks run with the timer locked, so once Stop or Cancel
// returns no tick callback is running or will run; they must not call back
// into the timer. OnExpire runs once, after the timer has unlocked in the
// timed-out state, and may block or query the timer.
type Timer struct {
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	onTick    func(time.Duration)
	onExpire  func()

	mu        sync.Mutex
	state     TimerState
	remaining time.Duration
	quit      chan struct{}
}

// NewTimer returns an idle timer for limit.
func NewTimer(limit time.Duration, opts ...TimerOption) *Timer {
	t := &Timer{
		interval:  DefaultTickInterval,
		newTicker: newRealTicker,
		state:     TimerIdle,
		remaining: limit,
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the countdown.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TimerIdle:
	case TimerCancelled:
		return ErrTimerCancelled
	default:
		return ErrTimerStarted
	}
	t.state = TimerRunning
	tk := t.newTicker(t.interval)
	go t.run(tk)
	return nil
}

func (t *Timer) run(tk Ticker) {
	defer tk.Stop()
	for {
		select {
		case <-t.quit:
			return
		case <-tk.C():
			if !t.tick() {
				return
			}
		}
	}
}

// tick advances the countdown and reports whether the timer keeps running.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.state != TimerRunning {
		t.mu.Unlock()
		return false
	}
	t.remaining -= t.interval
	if t.remaining > 0 {
		if t.onTick != nil {
			t.onTick(t.remaining)
		}
		t.mu.Unlock()
		return true
	}

	t.remaining = 0
	t.state = TimerTimedOut
	if t.onTick != nil {
		t.onTick(0)
	}
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire()
	}
	return false
}

// Stop ends a running countdown for a manual submission and returns the
// time left. ok is false if the timer was not running.
func (t *Timer) Stop() (remaining time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerRunning {
		return t.remaining, false
	}
	t.state = TimerSubmitted
	close(t.quit)
	return t.remaining, true
}

// Cancel abandons the timer; no callback fires afterwards. Cancelling a
// finished timer is a no-op.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TimerIdle:
		t.state = TimerCancelled
	case TimerRunning:
		t.state = TimerCancelled
		close(t.quit)
	}
}

// Remaining returns the time left on the clock.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// State returns the current lifecycle state.
func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
