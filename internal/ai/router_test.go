package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/suraksha-edu/suraksha/internal/ai"
)

func TestRouter_SingleProvider(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("Hello!")
	router.Register("openai", mock)

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
}

func TestRouter_Fallback(t *testing.T) {
	router := ai.NewRouter()

	failing := &ai.MockProvider{Err: errors.New("rate limited")}
	fallback := ai.NewMockProvider("Fallback response")

	router.Register("openai", failing)
	router.Register("ollama", fallback)

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Fallback response" {
		t.Errorf("Content = %q, want %q", resp.Content, "Fallback response")
	}
}

func TestRouter_AllProvidersFail(t *testing.T) {
	router := ai.NewRouter()

	router.Register("openai", &ai.MockProvider{Err: errors.New("fail 1")})
	router.Register("ollama", &ai.MockProvider{Err: errors.New("fail 2")})

	_, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error when all providers fail")
	}
	for _, want := range []string{"openai: fail 1", "ollama: fail 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}
}

func TestRouter_NoProviders(t *testing.T) {
	router := ai.NewRouter()

	_, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if !errors.Is(err, ai.ErrNoProvider) {
		t.Fatalf("Complete() error = %v, want ErrNoProvider", err)
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() should be false with no providers")
	}

	router.Register("mock", ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() should be true after Register")
	}
}

func TestRouter_FallbackOrder(t *testing.T) {
	router := ai.NewRouter()

	// First registered should be tried first.
	first := ai.NewMockProvider("first")
	second := ai.NewMockProvider("second")

	router.Register("first", first)
	router.Register("second", second)

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("Content = %q, want %q (first registered should be tried first)", resp.Content, "first")
	}
}

func TestRouter_FallbackSetsProviderName(t *testing.T) {
	router := ai.NewRouter()
	router.Register("openai", &ai.MockProvider{Err: errors.New("down")})
	router.Register("ollama", ai.NewMockProvider("local"))

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", resp.Provider)
	}
}

func TestRouter_ReRegisterKeepsOrder(t *testing.T) {
	router := ai.NewRouter()
	router.Register("a", ai.NewMockProvider("a1"))
	router.Register("b", ai.NewMockProvider("b"))
	router.Register("a", ai.NewMockProvider("a2"))

	names := router.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Names() = %v, want [a b]", names)
	}
	resp, _ := router.Complete(context.Background(), hello)
	if resp.Content != "a2" {
		t.Errorf("Content = %q, want a2", resp.Content)
	}
}

func TestRouter_CancelledContext(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("never")
	router.Register("mock", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := router.Complete(ctx, hello); !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() error = %v, want context.Canceled", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("provider called %d times after cancel", mock.Calls())
	}
}

func TestRouter_RejectsInvalidRequest(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("never")
	router.Register("mock", mock)

	_, err := router.Complete(context.Background(), ai.CompletionRequest{})
	if !errors.Is(err, ai.ErrInvalidRequest) {
		t.Fatalf("Complete() error = %v, want ErrInvalidRequest", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("provider called %d times for an invalid request", mock.Calls())
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := ai.NewRouter()
	if err := router.HealthCheck(context.Background()); !errors.Is(err, ai.ErrNoProvider) {
		t.Errorf("HealthCheck() with no providers = %v", err)
	}
	router.Register("down", &ai.MockProvider{Err: errors.New("down")})
	if err := router.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail when every provider is down")
	}
	router.Register("up", ai.NewMockProvider("ok"))
	if err := router.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v, want nil with one healthy provider", err)
	}
}

var hello = ai.CompletionRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}}
