package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_ExtractsPage(t *testing.T) {
	body := strings.Repeat("We run Go and Postgres in production. ", 20)
	srv := serveHTML(t, "<html><head><title>Acme Engineering</title></head><body><main>"+body+"</main></body></html>")

	page, err := NewHTTPFetcher(nil, nil, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Engineering", page.Title)
	assert.Contains(t, page.Text, "Go and Postgres")
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.False(t, page.Rendered)
	assert.False(t, page.FetchedAt.IsZero())
}

func TestHTTPFetcher_BrowserFallbackForThinPages(t *testing.T) {
	srv := serveHTML(t, `<html><body><div id="root"></div></body></html>`)
	rendered := "<html><body><main>" + strings.Repeat("Rendered culture text. ", 40) + "</main></body></html>"

	var calls int
	render := func(_ context.Context, url string) (string, error) {
		calls++
		assert.Equal(t, srv.URL, url)
		return rendered, nil
	}

	page, err := NewHTTPFetcher(nil, render, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, page.Rendered)
	assert.Contains(t, page.Text, "Rendered culture text")
}

func TestHTTPFetcher_BrowserFailureKeepsHTTPText(t *testing.T) {
	srv := serveHTML(t, `<html><body><p>short</p></body></html>`)
	render := func(context.Context, string) (string, error) { return "", errors.New("no chrome") }

	page, err := NewHTTPFetcher(nil, render, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "short", page.Text)
	assert.False(t, page.Rendered)
}

func TestHTTPFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(nil, nil, nil).Fetch(context.Background(), srv.URL)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusGone, fe.StatusCode)
}
