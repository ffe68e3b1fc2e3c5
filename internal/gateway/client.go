// Package gateway owns all model interaction: prompt construction, the
// strict-then-relaxed structured output sequence, and upstream failure
// classification.
package gateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Invoker is the slice of the genai client the gateway depends on. Tests
// substitute a fake to simulate upstream behaviour without network access.
type Invoker interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiInvoker struct {
	client *genai.Client
}

// NewInvoker creates an Invoker backed by the Gemini API.
func NewInvoker(ctx context.Context, apiKey string) (Invoker, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiInvoker{client: client}, nil
}

func (g *geminiInvoker) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.client.Models.GenerateContent(ctx, model, contents, cfg)
}
