// Package llm provides LLM configuration, provider clients and the guarded
// client used by the pipeline.
package llm

import (
	"fmt"
	"maps"
)

// ModelTier selects a model by how much reasoning a call needs
type ModelTier string

const (
	// TierLite serves classification and per-document scoring
	TierLite ModelTier = "lite"
	// TierStandard serves research synthesis, calibration and the summary
	TierStandard ModelTier = "standard"
	// TierAdvanced serves the skeptical comparison
	TierAdvanced ModelTier = "advanced"
)

// fallbackOrder is walked when a tier has no model configured.
var fallbackOrder = []ModelTier{TierStandard, TierLite, TierAdvanced}

// Provider names an SDK backend
type Provider string

const (
	// ProviderGemini uses github.com/google/generative-ai-go
	ProviderGemini Provider = "gemini"
	// ProviderGenAI uses google.golang.org/genai
	ProviderGenAI Provider = "genai"
)

const defaultTemperature float32 = 0.1

// Config maps tiers to model names for one provider
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the Gemini 2.5 family at a low temperature.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: defaultTemperature,
	}
}

// Validate reports an unknown provider or a config with no models at all.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderGenAI, "":
	default:
		return fmt.Errorf("unsupported LLM provider %q", c.Provider)
	}
	for _, tier := range fallbackOrder {
		if c.Models[tier] != "" {
			return nil
		}
	}
	return fmt.Errorf("no models configured for provider %q", c.Provider)
}

// GetModel returns the model for tier, or the first configured model in
// fallback order. It returns "" when nothing is configured.
func (c *Config) GetModel(tier ModelTier) string {
	if m := c.Models[tier]; m != "" {
		return m
	}
	for _, t := range fallbackOrder {
		if m := c.Models[t]; m != "" {
			return m
		}
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := *c
	out.Models = maps.Clone(c.Models)
	if out.Models == nil {
		out.Models = make(map[ModelTier]string, 1)
	}
	out.Models[tier] = model
	return &out
}

func (c *Config) temperature() float32 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return defaultTemperature
}
