package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/cache"
)

func TestCachedFetcher_ServesFreshFromCache(t *testing.T) {
	var calls int
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		calls++
		return &Page{URL: url, Text: "hello", FetchedAt: time.Now()}, nil
	})
	f := NewCachedFetcher(cache.NewMemory(), next, time.Hour, nil)

	first, err := f.Fetch(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.Fetch(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "hello", second.Text)
	assert.Equal(t, 1, calls)
}

func TestCachedFetcher_RefetchesExpired(t *testing.T) {
	var calls int
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		calls++
		return &Page{URL: url, FetchedAt: time.Now()}, nil
	})
	f := NewCachedFetcher(cache.NewMemory(), next, time.Hour, nil)
	f.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := f.Fetch(context.Background(), "u")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedFetcher_StaleOnOpenBreaker(t *testing.T) {
	store := cache.NewMemory()
	open := false
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		if open {
			return nil, &breaker.OpenError{Name: breaker.Fetch, RetryAfter: time.Minute}
		}
		return &Page{URL: url, Text: "old news", FetchedAt: time.Now().Add(-48 * time.Hour)}, nil
	})
	f := NewCachedFetcher(store, next, time.Hour, nil)

	_, err := f.Fetch(context.Background(), "u")
	require.NoError(t, err)

	open = true
	page, err := f.Fetch(context.Background(), "u")
	require.NoError(t, err)
	assert.True(t, page.Stale)
	assert.Equal(t, "old news", page.Text)
}

func TestCachedFetcher_OtherErrorsNotMasked(t *testing.T) {
	boom := errors.New("boom")
	next := fetcherFunc(func(context.Context, string) (*Page, error) { return nil, boom })
	f := NewCachedFetcher(cache.NewMemory(), next, 0, nil)

	_, err := f.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, boom)
}

func TestCachedFetcher_GonePageDropsCachedCopy(t *testing.T) {
	store := cache.NewMemory()
	gone := false
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		if gone {
			return nil, &Error{URL: url, Message: "HTTP status 404", StatusCode: 404}
		}
		return &Page{URL: url, Text: "old posting", FetchedAt: time.Now().Add(-48 * time.Hour)}, nil
	})
	f := NewCachedFetcher(store, next, time.Hour, nil)

	_, err := f.Fetch(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	gone = true
	_, err = f.Fetch(context.Background(), "u")
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 0, store.Len())
}

func TestCachedFetcher_NetworkErrorKeepsCachedCopy(t *testing.T) {
	store := cache.NewMemory()
	down := false
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		if down {
			return nil, &Error{URL: url, Message: "HTTP request failed", Cause: errors.New("connection reset")}
		}
		return &Page{URL: url, FetchedAt: time.Now().Add(-48 * time.Hour)}, nil
	})
	f := NewCachedFetcher(store, next, time.Hour, nil)

	_, _ = f.Fetch(context.Background(), "u")
	down = true
	_, err := f.Fetch(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestCachedFetcher_CorruptEntryIsDropped(t *testing.T) {
	store := cache.NewMemory()
	require.NoError(t, store.Put(context.Background(), "u", []byte("{not json")))
	next := fetcherFunc(func(_ context.Context, url string) (*Page, error) {
		return nil, errors.New("offline")
	})
	f := NewCachedFetcher(store, next, time.Hour, nil)

	_, err := f.Fetch(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}
