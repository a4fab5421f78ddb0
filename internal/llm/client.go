// Package llm wraps the Gemini API behind small interfaces so the
// modules that talk to a language model can be tested with fakes.
package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nextstep-care/platform/internal/shared/config"
)

// TextGenerator produces free-form text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client implements TextGenerator and Embedder over Gemini.
type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	timeout        func(context.Context) (context.Context, context.CancelFunc)
}

// NewClient creates a Gemini-backed client.
func NewClient(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}

	inner, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create client: %w", err)
	}

	return &Client{
		client:         inner,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, cfg.Timeout)
		},
	}, nil
}

// Generate runs the prompt through the configured chat model.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("llm: failed to generate content: %w", err)
	}
	return extractText(resp)
}

// GenerateJSON is Generate with markdown code fences stripped, for
// prompts that ask for a JSON answer.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// Embed produces an embedding vector for the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	model := c.client.EmbeddingModel(c.embeddingModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to embed content: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("llm: empty embedding response")
	}
	return resp.Embedding.Values, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("llm: no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("llm: candidate has no content")
	}

	var out string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", fmt.Errorf("llm: no text parts in response")
	}
	return out, nil
}
