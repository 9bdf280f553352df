package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/fit-agent/internal/breaker"
)

// DefaultMaxConcurrent is the process-wide limit on in-flight LLM calls.
const DefaultMaxConcurrent = 8

// Guarded wraps a Client with the global concurrency limit and the LLM
// circuit breaker. Waiting for a permit never counts as a breaker failure.
type Guarded struct {
	next    Client
	breaker *breaker.Breaker
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewGuarded creates a guarded client shared by all requests
func NewGuarded(next Client, b *breaker.Breaker, maxConcurrent int64, logger *zap.Logger) *Guarded {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guarded{
		next:    next,
		breaker: b,
		sem:     semaphore.NewWeighted(maxConcurrent),
		logger:  logger,
	}
}

// consumerError marks errors raised by a stream consumer rather than the provider.
type consumerError struct{ err error }

func (e *consumerError) Error() string { return e.err.Error() }
func (e *consumerError) Unwrap() error { return e.err }

func (g *Guarded) call(ctx context.Context, op string, tier ModelTier, fn func(context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	permit, err := g.breaker.Allow()
	if err != nil {
		return err
	}

	start := time.Now()
	err = fn(ctx)

	var ce *consumerError
	switch {
	case err == nil:
		permit.Success()
	case errors.As(err, &ce):
		permit.Release()
		return ce.err
	case errors.Is(err, ErrNoContent):
		// the provider answered
		permit.Success()
	case ctx.Err() != nil:
		permit.Release()
	default:
		permit.Failure()
		g.logger.Warn("llm call failed",
			zap.String("op", op),
			zap.String("model", g.next.GetModel(tier)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	g.logger.Debug("llm call",
		zap.String("op", op),
		zap.String("model", g.next.GetModel(tier)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return err
}

// GenerateContent generates text through the guard
func (g *Guarded) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	var out string
	err := g.call(ctx, "generate", tier, func(ctx context.Context) error {
		var err error
		out, err = g.next.GenerateContent(ctx, prompt, tier)
		return err
	})
	return out, err
}

// GenerateJSON generates JSON through the guard
func (g *Guarded) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	var out string
	err := g.call(ctx, "generate_json", tier, func(ctx context.Context) error {
		var err error
		out, err = g.next.GenerateJSON(ctx, prompt, tier)
		return err
	})
	return out, err
}

// StreamContent streams through the guard. Errors returned by onChunk are
// passed back unchanged and do not count against the breaker.
func (g *Guarded) StreamContent(ctx context.Context, prompt string, tier ModelTier, onChunk func(string) error) error {
	return g.call(ctx, "stream", tier, func(ctx context.Context) error {
		return g.next.StreamContent(ctx, prompt, tier, func(chunk string) error {
			if err := onChunk(chunk); err != nil {
				return &consumerError{err: err}
			}
			return nil
		})
	})
}

// GetModel returns the wrapped client's model for a tier
func (g *Guarded) GetModel(tier ModelTier) string {
	return g.next.GetModel(tier)
}

// Close closes the wrapped client
func (g *Guarded) Close() error {
	return g.next.Close()
}
