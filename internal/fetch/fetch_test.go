package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestURL(t *testing.T) {
	ok := pageServer(t, http.StatusOK, "<html><body><p>Hiring Go engineers</p></body></html>")

	result, err := URL(context.Background(), ok.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, ok.URL, result.URL)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", result.ContentType)
	assert.Contains(t, result.HTML, "Hiring Go engineers")
}

func TestURL_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		pageFault bool
	}{
		{http.StatusNotFound, true},
		{http.StatusGone, true},
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := pageServer(t, tt.status, "nope")

			result, err := URL(context.Background(), srv.URL, nil)
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			// the partial result still carries the status
			require.NotNil(t, result)
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, tt.pageFault, fetchErr.PageFault())
		})
	}
}

func TestURL_RejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"not-a-valid-url", "file:///etc/passwd", "ftp://example.com/jobs", "https://"} {
		t.Run(raw, func(t *testing.T) {
			result, err := URL(context.Background(), raw, nil)
			assert.Nil(t, result)
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.True(t, fetchErr.PageFault())
			assert.Contains(t, err.Error(), "invalid URL")
		})
	}
}

func TestURL_Options(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fit-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.UserAgent = "fit-test"
	opts.Headers = map[string]string{"Accept-Language": "en"}
	opts.MaxBodyBytes = 64

	result, err := URL(context.Background(), srv.URL, opts)
	require.NoError(t, err)
	assert.Len(t, result.HTML, 64)
}

func TestURL_NetworkFailureIsNotPageFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := URL(context.Background(), addr, nil)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, fetchErr.PageFault())
	assert.NotNil(t, fetchErr.Unwrap())
}

func TestExtractMainText(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		selectors []string
		wantTitle string
		want      []string
		dropped   []string
	}{
		{
			name: "main wins over chrome",
			html: `<html><head><title>Acme Careers</title></head><body>
				<nav>Menu</nav>
				<main><h1>About Acme</h1><p>We build   payment rails.</p></main>
				<footer>Copyright</footer></body></html>`,
			selectors: DefaultTextSelectors(),
			wantTitle: "Acme Careers",
			want:      []string{"About Acme", "We build payment rails."},
			dropped:   []string{"Menu", "Copyright"},
		},
		{
			name:      "article",
			html:      `<html><body><aside>x</aside><article><p>Our values</p></article></body></html>`,
			selectors: CompanyPageSelectors(),
			want:      []string{"Our values"},
		},
		{
			name:      "company selector",
			html:      `<html><body><div class="sidebar">Ads</div><div class="values-content">Ownership first</div></body></html>`,
			selectors: CompanyPageSelectors(),
			want:      []string{"Ownership first"},
			dropped:   []string{"Ads"},
		},
		{
			name:      "body fallback and heading title",
			html:      `<html><body><h1> Globex </h1><div>Remote friendly</div><script>track()</script></body></html>`,
			wantTitle: "Globex",
			want:      []string{"Globex", "Remote friendly"},
			dropped:   []string{"track()"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, text, err := ExtractMainText(tt.html, tt.selectors)
			require.NoError(t, err)
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, title)
			}
			for _, s := range tt.want {
				assert.Contains(t, text, s)
			}
			for _, s := range tt.dropped {
				assert.NotContains(t, text, s)
			}
		})
	}
}

func TestExtractMainText_JobBoard(t *testing.T) {
	html := `<html><head><title>Senior Go Engineer - Acme</title></head><body>
		<div id="content">
			<div class="job__description">
				<h2>Requirements</h2>
				<p>5 years   experience in Go</p>
			</div>
			<div class="application--wrapper">Upload resume</div>
			<form class="application-form">Apply now</form>
		</div></body></html>`

	content, noise := SelectorsFor("https://boards.greenhouse.io/acme/jobs/1")
	title, text, err := ExtractMainText(html, content, noise...)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer - Acme", title)
	assert.Equal(t, "Requirements\n5 years experience in Go", text)
}

func TestURL_UnsupportedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	result, err := URL(context.Background(), srv.URL, nil)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.PageFault())
	assert.Contains(t, err.Error(), "application/pdf")
	require.NotNil(t, result)
	assert.Empty(t, result.HTML)
}

func TestTextual(t *testing.T) {
	for ct, want := range map[string]bool{
		"":                         true,
		"text/html; charset=utf-8": true,
		"text/plain":               true,
		"application/xhtml+xml":    true,
		"application/pdf":          false,
		"image/png":                false,
		"application/json":         false,
		"not a media type;;":       true,
	} {
		assert.Equal(t, want, textual(ct), ct)
	}
}

func TestSelectorsAreCopies(t *testing.T) {
	s := DefaultTextSelectors()
	s[0] = "changed"
	assert.Equal(t, "main", DefaultTextSelectors()[0])
}

func TestCleanWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", cleanWhitespace("  a \t b \n\n   \n c  "))
	assert.Empty(t, cleanWhitespace(" \n\t\n"))
}

func TestError_Message(t *testing.T) {
	plain := &Error{URL: "https://acme.test", Message: "HTTP status 500", StatusCode: 500}
	assert.Equal(t, "fetch https://acme.test: HTTP status 500", plain.Error())
	assert.Nil(t, plain.Unwrap())

	wrapped := &Error{URL: "https://acme.test", Message: "HTTP request failed", Cause: context.DeadlineExceeded}
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.False(t, wrapped.PageFault())
}
