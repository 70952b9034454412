// Package ai is the upstream model gateway behind the preparedness
// assistant: a provider interface, OpenAI-compatible providers, ordered
// fallback routing and per-learner token budgets.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidRequest is wrapped by CompletionRequest.Validate failures.
var ErrInvalidRequest = errors.New("invalid completion request")

// TaskType tells providers what a request is for, so routing and model
// choice can differ between chatting and translating.
type TaskType int

const (
	TaskAssistant TaskType = iota
	TaskTranslate
)

func (t TaskType) String() string {
	switch t {
	case TaskAssistant:
		return "assistant"
	case TaskTranslate:
		return "translate"
	default:
		return "unknown"
	}
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
}

// CompletionResponse is the output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Provider     string `json:"provider,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Validate rejects requests no provider could answer: no messages, an
// unknown role, or a conversation that does not end with the user.
func (r CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidRequest)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidRequest, i, m.Role)
		}
	}
	if last := r.Messages[len(r.Messages)-1]; last.Role != RoleUser {
		return fmt.Errorf("%w: last message is from %s", ErrInvalidRequest, last.Role)
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f outside 0..2", ErrInvalidRequest, r.Temperature)
	}
	return nil
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is implemented by every upstream model service.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}
