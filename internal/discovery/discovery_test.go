package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.acme.io%2Fabout&rut=abc">Acme Analytics - Supply chain dashboards</a>
</div>
<div class="result">
  <a class="result__a" href="https://globex.com/">Globex | Home</a>
</div>
<div class="result">
  <a class="result__a" href="https://acme.io/pricing">Acme Analytics : Pricing</a>
</div>
<div class="result">
  <a class="result__a">No link here</a>
</div>
<div class="result">
  <a class="result__a" href="http://[::1">Broken</a>
</div>
<a class="result__snippet" href="https://ignored.example">snippet</a>
</body></html>`

func TestParseResults(t *testing.T) {
	c, err := ParseResults(resultsPage, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme Analytics", "Globex"}, c.Names)
	assert.Equal(t, []string{"acme.io", "globex.com"}, c.Domains)
	assert.Equal(t, 2, c.Skipped)
	assert.False(t, c.Empty())
}

func TestParseResults_Limit(t *testing.T) {
	c, err := ParseResults(resultsPage, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Analytics"}, c.Names)
	assert.Equal(t, []string{"acme.io"}, c.Domains)
}

func TestParseResults_NoResults(t *testing.T) {
	c, err := ParseResults(`<html><body><div class="no-results">No results.</div></body></html>`, 0)
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.Zero(t, c.Skipped)
}

func TestLeadingSegment(t *testing.T) {
	tests := map[string]string{
		"Acme - Home":            "Acme",
		"  Acme\n Corp | About ": "Acme Corp",
		"Acme: the best":         "Acme: the best",
		"Acme — Rockets - Blog":  "Acme",
		"- Leading separator":    "- Leading separator",
	}
	for in, want := range tests {
		assert.Equal(t, want, leadingSegment(in), in)
	}
}

func TestFindCandidates(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	finder := NewDuckDuckGo(Options{SearchURL: server.URL, Timeout: time.Second}, nil)
	c, err := finder.FindCandidates(context.Background(), "  supply chain analytics ")
	require.NoError(t, err)
	assert.Equal(t, "supply chain analytics", gotQuery)
	assert.Len(t, c.Domains, 2)
}

func TestFindCandidates_EmptyQuerySkipsSearch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer server.Close()

	c, err := NewDuckDuckGo(Options{SearchURL: server.URL}, nil).FindCandidates(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.Zero(t, calls)
}

func TestFindCandidates_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewDuckDuckGo(Options{SearchURL: server.URL}, nil).FindCandidates(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFindCandidates_RateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	finder := NewDuckDuckGo(Options{SearchURL: server.URL, RequestsPerSecond: 0.001, Burst: 1}, nil)
	_, err := finder.FindCandidates(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = finder.FindCandidates(ctx, "second")
	require.Error(t, err)
}
