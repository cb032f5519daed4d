// Package llm builds the model backends the agent runtime talks to.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"myfirstagent/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/adk/model"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// New returns the model.LLM described by cfg.
func New(ctx context.Context, cfg *config.LLMConfig) (model.LLM, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGemini(ctx, cfg.Model, cfg.APIKey)
	case ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func tracedHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
