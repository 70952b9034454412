package ai

import (
	"context"
	"fmt"
	"net/http"
)

// OllamaProvider implements Provider for self-hosted Ollama through its
// OpenAI-compatible /v1/chat/completions endpoint. It needs no API key,
// which makes it the offline fallback for schools without cloud access.
type OllamaProvider struct {
	baseURL      string
	client       *http.Client
	defaultModel string
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *OllamaProvider) {
		p.client = client
	}
}

// WithOllamaModel sets the model used when a request names none.
func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.defaultModel = model
	}
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(baseURL string, opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL:      baseURL,
		client:       http.DefaultClient,
		defaultModel: "llama3:8b",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if req.Model == "" {
		req.Model = p.defaultModel
	}
	resp, err := chatCompletion(ctx, p.client, p.baseURL+"/v1/chat/completions", "", nil, req)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("ollama: %w", err)
	}
	resp.Provider = "ollama"
	return resp, nil
}

func (p *OllamaProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: p.defaultModel, Name: p.defaultModel, MaxTokens: 8192, Description: "Self-hosted model via Ollama"},
	}
}

func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	return getOK(ctx, p.client, p.baseURL+"/api/tags", "")
}
