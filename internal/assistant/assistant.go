// Package assistant is the server side of the multilingual chat widget.
// It keeps API keys off the browser, answers in the learner's language and
// holds each learner to a daily token budget.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/suraksha-edu/suraksha/internal/ai"
)

const (
	defaultHistoryLength = 10
	defaultMaxTokens     = 512
	maxMessageLength     = 2000
)

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// ErrMessageTooLong is returned when input exceeds the widget limit.
var ErrMessageTooLong = errors.New("message is too long")

// FallbackText is shown when no provider answers.
const FallbackText = "Sorry, I encountered an error. Please try again."

const systemPrompt = "You are Suraksha, a disaster-preparedness assistant for school students. " +
	"You can communicate in English, Hindi, Punjabi, Tamil and Malayalam. " +
	"Answer in %s. Be friendly and accurate, keep answers short, and for " +
	"any emergency in progress tell the student to call 112 first."

const translatePrompt = "You are a professional translator. Translate the following text to %s. " +
	"Only return the translation, nothing else."

// Completer is satisfied by *ai.Router.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Config holds dependencies for the assistant.
type Config struct {
	Router        Completer
	Budget        ai.BudgetChecker // nil disables budgeting
	HistoryLength int              // messages kept per learner (default 10)
	MaxTokens     int              // completion cap per reply (default 512)
}

// Reply is one assistant answer.
type Reply struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Provider string `json:"provider,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Assistant answers learner questions through the AI router.
type Assistant struct {
	router     Completer
	budget     ai.BudgetChecker
	historyLen int
	maxTokens  int

	mu      sync.Mutex
	history map[string][]ai.Message
}

// New creates an assistant.
func New(cfg Config) *Assistant {
	historyLen := cfg.HistoryLength
	if historyLen <= 0 {
		historyLen = defaultHistoryLength
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Assistant{
		router:     cfg.Router,
		budget:     cfg.Budget,
		historyLen: historyLen,
		maxTokens:  maxTokens,
		history:    make(map[string][]ai.Message),
	}
}

// Reply answers text for userID. lang is the widget's selected language
// or an Accept-Language value; a message typed in an Indic script
// overrides it. Provider failures produce FallbackText rather than an
// error; an exhausted budget returns ai.ErrBudgetExceeded.
func (a *Assistant) Reply(ctx context.Context, userID, text, lang string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	if len([]rune(text)) > maxMessageLength {
		return Reply{}, ErrMessageTooLong
	}

	tag := Resolve(text, lang)
	out := Reply{Language: tag.String()}

	if err := a.checkBudget(ctx, userID); err != nil {
		return Reply{}, err
	}

	messages := []ai.Message{{Role: ai.RoleSystem, Content: fmt.Sprintf(systemPrompt, EnglishName(tag))}}
	messages = append(messages, a.recent(userID)...)
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: text})

	resp, err := a.router.Complete(ctx, ai.CompletionRequest{
		Messages:  messages,
		Task:      ai.TaskAssistant,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		slog.Error("assistant completion failed", "user_id", userID, "error", err)
		out.Text = FallbackText
		out.Fallback = true
		return out, nil
	}

	a.remember(userID,
		ai.Message{Role: ai.RoleUser, Content: text},
		ai.Message{Role: ai.RoleAssistant, Content: resp.Content},
	)
	a.recordUsage(ctx, userID, resp.TotalTokens())

	slog.Info("assistant replied",
		"user_id", userID,
		"language", out.Language,
		"provider", resp.Provider,
		"tokens", resp.TotalTokens(),
	)

	out.Text = resp.Content
	out.Provider = resp.Provider
	return out, nil
}

// Translate renders text in lang. On any provider failure it returns the
// input unchanged.
func (a *Assistant) Translate(ctx context.Context, text, lang string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	tag := Resolve("", lang)
	resp, err := a.router.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: fmt.Sprintf(translatePrompt, EnglishName(tag))},
			{Role: ai.RoleUser, Content: text},
		},
		Task:        ai.TaskTranslate,
		MaxTokens:   a.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		slog.Warn("translation failed, returning original text", "language", tag.String(), "error", err)
		return text
	}
	if out := strings.TrimSpace(resp.Content); out != "" {
		return out
	}
	return text
}

// Languages returns the supported tags paired with their native names.
func (a *Assistant) Languages() map[string]string {
	out := make(map[string]string, len(Supported))
	for _, tag := range Supported {
		out[tag.String()] = NativeName(tag)
	}
	return out
}

// History returns a copy of the stored conversation for userID.
func (a *Assistant) History(userID string) []ai.Message {
	return a.recent(userID)
}

// Forget drops the stored conversation for userID.
func (a *Assistant) Forget(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, userID)
}

func (a *Assistant) checkBudget(ctx context.Context, userID string) error {
	if a.budget == nil {
		return nil
	}
	ok, err := a.budget.Check(ctx, userID)
	if err != nil {
		slog.Warn("budget check failed, allowing request", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		return ai.ErrBudgetExceeded
	}
	return nil
}

func (a *Assistant) recordUsage(ctx context.Context, userID string, tokens int) {
	if a.budget == nil {
		return
	}
	if err := a.budget.Record(ctx, userID, tokens); err != nil {
		slog.Warn("failed to record token usage", "user_id", userID, "tokens", tokens, "error", err)
	}
}

func (a *Assistant) recent(userID string) []ai.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ai.Message(nil), a.history[userID]...)
}

func (a *Assistant) remember(userID string, msgs ...ai.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := append(a.history[userID], msgs...)
	if len(h) > a.historyLen {
		h = append([]ai.Message(nil), h[len(h)-a.historyLen:]...)
	}
	a.history[userID] = h
}
