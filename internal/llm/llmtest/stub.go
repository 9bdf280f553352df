// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/fit-agent/internal/llm"
)

// Responder produces a reply for one prompt
type Responder func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)

// Stub is an llm.Client driven by a Responder. Calls are recorded.
type Stub struct {
	Respond Responder
	// ChunkSize splits streamed replies; zero streams the reply in one chunk.
	ChunkSize int

	mu      sync.Mutex
	prompts []string
}

// New returns a stub using respond
func New(respond Responder) *Stub {
	return &Stub{Respond: respond}
}

// Routes returns a Responder that answers with the first route whose key
// appears in the prompt, or fallback when none matches.
func Routes(routes map[string]string, fallback string) Responder {
	return func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
		for key, reply := range routes {
			if strings.Contains(prompt, key) {
				return reply, nil
			}
		}
		return fallback, nil
	}
}

func (s *Stub) reply(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Respond == nil {
		return "", nil
	}
	return s.Respond(ctx, prompt, tier)
}

// GenerateContent returns the scripted reply
func (s *Stub) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return s.reply(ctx, prompt, tier)
}

// GenerateJSON returns the scripted reply with fences stripped
func (s *Stub) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	out, err := s.reply(ctx, prompt, tier)
	if err != nil {
		return "", err
	}
	return llm.CleanJSONBlock(out), nil
}

// StreamContent delivers the scripted reply in chunks
func (s *Stub) StreamContent(ctx context.Context, prompt string, tier llm.ModelTier, onChunk func(string) error) error {
	out, err := s.reply(ctx, prompt, tier)
	if err != nil {
		return err
	}
	size := s.ChunkSize
	if size <= 0 {
		size = len(out)
	}
	for len(out) > 0 {
		n := size
		if n > len(out) {
			n = len(out)
		}
		if err := onChunk(out[:n]); err != nil {
			return err
		}
		out = out[n:]
	}
	return nil
}

// GetModel returns a fixed name per tier
func (s *Stub) GetModel(tier llm.ModelTier) string {
	return "stub-" + string(tier)
}

// Close does nothing
func (s *Stub) Close() error { return nil }

// Prompts returns every prompt received so far
func (s *Stub) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns the number of prompts received
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
