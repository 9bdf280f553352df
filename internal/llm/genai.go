package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogenai "google.golang.org/genai"
)

// GenAIClient implements Client on the unified Google GenAI SDK
type GenAIClient struct {
	client *gogenai.Client
	config *Config
}

// NewGenAIClient creates a client for the Gemini API backend
func NewGenAIClient(ctx context.Context, config *Config, apiKey string) (*GenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	client, err := gogenai.NewClient(ctx, &gogenai.ClientConfig{
		APIKey:  apiKey,
		Backend: gogenai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIClient{client: client, config: config}, nil
}

func (c *GenAIClient) request(tier ModelTier, mime string) (string, *gogenai.GenerateContentConfig, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", nil, fmt.Errorf("no model configured for tier %s", tier)
	}

	temperature := c.config.temperature()
	cfg := &gogenai.GenerateContentConfig{Temperature: &temperature}
	if mime != "" {
		cfg.ResponseMIMEType = mime
	}
	return modelName, cfg, nil
}

// GenerateContent generates text content using the specified model tier
func (c *GenAIClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName, cfg, err := c.request(tier, "")
	if err != nil {
		return "", err
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, gogenai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return joinGenAIText(resp)
}

// GenerateJSON generates JSON content using the specified model tier
func (c *GenAIClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName, cfg, err := c.request(tier, "application/json")
	if err != nil {
		return "", err
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, gogenai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text, err := joinGenAIText(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// StreamContent streams text chunks from the model
func (c *GenAIClient) StreamContent(ctx context.Context, prompt string, tier ModelTier, onChunk func(string) error) error {
	modelName, cfg, err := c.request(tier, "")
	if err != nil {
		return err
	}

	for resp, err := range c.client.Models.GenerateContentStream(ctx, modelName, gogenai.Text(prompt), cfg) {
		if err != nil {
			return fmt.Errorf("stream content: %w", err)
		}
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Text == "" {
					continue
				}
				if err := onChunk(part.Text); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// GetModel returns the model name for a tier
func (c *GenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the GenAI client holds no closable resources.
func (c *GenAIClient) Close() error {
	return nil
}

func joinGenAIText(resp *gogenai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("genai returned nil response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
		// First candidate with content wins
		if builder.Len() > 0 {
			break
		}
	}

	if builder.Len() == 0 {
		return "", fmt.Errorf("genai: %w", ErrNoContent)
	}
	return builder.String(), nil
}
