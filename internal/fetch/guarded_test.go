package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fit-agent/internal/breaker"
)

type fetcherFunc func(ctx context.Context, url string) (*Page, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) (*Page, error) { return f(ctx, url) }

func newFetchBreaker(threshold int) *breaker.Breaker {
	return breaker.New(breaker.Settings{Name: breaker.Fetch, Threshold: threshold, ResetTimeout: time.Minute})
}

func TestGuarded_NetworkFailuresTrip(t *testing.T) {
	var calls int
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		calls++
		return nil, &Error{URL: url, Message: "HTTP request failed", Cause: errors.New("connection refused")}
	})
	b := newFetchBreaker(2)
	g := NewGuarded(next, b)

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(context.Background(), "https://acme.com")
		require.Error(t, err)
	}
	_, err := g.Fetch(context.Background(), "https://acme.com")
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, calls)
}

func TestGuarded_PageFaultsDoNotTrip(t *testing.T) {
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		return nil, &Error{URL: url, Message: "HTTP status 404", StatusCode: 404}
	})
	b := newFetchBreaker(1)
	g := NewGuarded(next, b)

	for i := 0; i < 3; i++ {
		_, err := g.Fetch(context.Background(), "https://acme.com/missing")
		assert.Error(t, err)
	}
	assert.Equal(t, breaker.Closed, b.State())
}

func TestGuarded_SuccessResetsCount(t *testing.T) {
	fail := true
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		if fail {
			return nil, errors.New("timeout")
		}
		return &Page{URL: url}, nil
	})
	b := newFetchBreaker(2)
	g := NewGuarded(next, b)

	_, _ = g.Fetch(context.Background(), "u")
	fail = false
	page, err := g.Fetch(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "u", page.URL)
	assert.Equal(t, 0, b.Snapshot().Failures)
}
