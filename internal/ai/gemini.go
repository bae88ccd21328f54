package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient generates text through the Gemini API. It satisfies both the
// synchronous and the chunked generation contracts used by the AI service.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGeminiClient constructs a Gemini-backed generation client.
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

// Generate returns the full generated text for the prompt.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.generateConfig())
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("generation returned empty response")
	}
	return text, nil
}

// GenerateStream emits generated text incrementally as the model produces it.
func (g *GeminiClient) GenerateStream(ctx context.Context, prompt string, emit func(chunk string) error) error {
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.generateConfig()) {
		if err != nil {
			return fmt.Errorf("stream content: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (g *GeminiClient) generateConfig() *genai.GenerateContentConfig {
	if g.maxTokens <= 0 {
		return nil
	}
	return &genai.GenerateContentConfig{MaxOutputTokens: g.maxTokens}
}
