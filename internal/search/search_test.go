package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fit-agent/internal/breaker"
)

type providerFunc func(ctx context.Context, query string, limit int) ([]Result, error)

func (f providerFunc) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	return f(ctx, query, limit)
}

func TestRun_MergesAndDedupes(t *testing.T) {
	p := providerFunc(func(_ context.Context, q string, _ int) ([]Result, error) {
		switch q {
		case "a":
			return []Result{{URL: "https://acme.com/"}, {URL: "https://blog.acme.com"}}, nil
		default:
			return []Result{{URL: "https://ACME.com#team"}, {URL: "https://news.test/acme"}, {URL: ""}}, nil
		}
	})

	batch, err := Run(context.Background(), p, []string{"a", "b"}, 5)
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, "a", batch.Results[0].Query)
	assert.Equal(t, "https://news.test/acme", batch.Results[2].URL)
	assert.Equal(t, "b", batch.Results[2].Query)
	assert.Empty(t, batch.Failed)
}

func TestRun_RecordsFailures(t *testing.T) {
	p := providerFunc(func(_ context.Context, q string, _ int) ([]Result, error) {
		if q == "bad" {
			return nil, errors.New("quota")
		}
		return []Result{{URL: "https://" + q + ".test"}}, nil
	})

	batch, err := Run(context.Background(), p, []string{"bad", "ok"}, 5)
	require.NoError(t, err)
	assert.Len(t, batch.Results, 1)
	require.Len(t, batch.Failed, 1)
	assert.Contains(t, batch.Failed[0], "quota")
	assert.False(t, batch.Unavailable)
}

func TestRun_BreakerOpenMarksUnavailable(t *testing.T) {
	b := breaker.New(breaker.Settings{Name: breaker.Search, Threshold: 1, ResetTimeout: time.Minute})
	var calls int
	g := NewGuarded(providerFunc(func(context.Context, string, int) ([]Result, error) {
		calls++
		return nil, errors.New("503")
	}), b)

	batch, err := Run(context.Background(), g, []string{"q1", "q2", "q3"}, 5)
	require.NoError(t, err)
	assert.True(t, batch.Unavailable)
	assert.Len(t, batch.Failed, 3)
	assert.Equal(t, 1, calls)
	assert.Equal(t, breaker.Open, b.State())
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := providerFunc(func(context.Context, string, int) ([]Result, error) {
		cancel()
		return []Result{{URL: "https://x.test"}}, nil
	})

	batch, err := Run(ctx, p, []string{"a", "b"}, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, batch.Results, 1)
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})
	require.NoError(t, r.Wait(context.Background()))

	r.Backoff(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
