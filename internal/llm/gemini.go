package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

var errMissingGeminiKey = errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")

func NewGemini(ctx context.Context, modelName, apiKey string) (model.LLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errMissingGeminiKey
	}

	m, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tracedHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return m, nil
}
