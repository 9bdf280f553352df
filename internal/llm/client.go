package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ErrNoContent means the model answered without usable text, for example
// after a safety block. The provider itself is healthy.
var ErrNoContent = errors.New("llm: response has no text")

// Client is an abstraction over LLM providers. Implementations are safe for
// concurrent use.
type Client interface {
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON asks for a JSON reply and strips any wrapping around it.
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// StreamContent hands each text chunk to onChunk as it arrives.
	// An error from onChunk stops the stream and is returned.
	StreamContent(ctx context.Context, prompt string, tier ModelTier, onChunk func(string) error) error
	GetModel(tier ModelTier) string
	Close() error
}

// NewClient creates the client for config.Provider
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider == ProviderGenAI {
		return NewGenAIClient(ctx, config, apiKey)
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// GeminiClient implements Client on the generative-ai-go SDK
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, config: config}, nil
}

// model returns a fresh handle; handles are cheap and carry per-call settings.
func (c *GeminiClient) model(tier ModelTier, mime string) (*genai.GenerativeModel, error) {
	name := c.config.GetModel(tier)
	if name == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}
	m := c.client.GenerativeModel(name)
	m.SetTemperature(c.config.temperature())
	m.ResponseMIMEType = mime
	return m, nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, tier ModelTier, mime string) (string, error) {
	m, err := c.model(tier, mime)
	if err != nil {
		return "", err
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	var blocked *genai.BlockedError
	switch {
	case errors.As(err, &blocked):
		return "", fmt.Errorf("gemini %s: %v: %w", c.GetModel(tier), blocked, ErrNoContent)
	case err != nil:
		return "", fmt.Errorf("gemini %s: %w", c.GetModel(tier), err)
	}
	return geminiText(resp)
}

// GenerateContent implements Client
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, prompt, tier, "")
}

// GenerateJSON implements Client
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, prompt, tier, "application/json")
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// StreamContent implements Client
func (c *GeminiClient) StreamContent(ctx context.Context, prompt string, tier ModelTier, onChunk func(string) error) error {
	m, err := c.model(tier, "")
	if err != nil {
		return err
	}

	it := m.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream %s: %w", c.GetModel(tier), err)
		}
		for _, text := range textParts(resp) {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
}

// GetModel implements Client
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close implements Client
func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// textParts returns the non-empty text parts of the first candidate that has any.
func textParts(resp *genai.GenerateContentResponse) []string {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var parts []string
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok && text != "" {
				parts = append(parts, string(text))
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	parts := textParts(resp)
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrNoContent)
	}
	return strings.Join(parts, ""), nil
}
