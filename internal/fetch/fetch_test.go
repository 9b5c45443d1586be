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

func TestURL_Success(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, DefaultUserAgent, gotAgent)
}

func TestURL_CustomHeaders(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Headers = map[string]string{"Accept-Language": "en-US"}
	opts.Client = server.Client()
	_, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
	assert.Equal(t, "en-US", gotHeader)
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not-a-valid-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
}

func TestExtractText_PrefersMain(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Acme Analytics</h1>
				<p>Dashboards for supply chain teams.</p>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractText(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Acme Analytics")
	assert.Contains(t, text, "supply chain")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer")
}

func TestExtractText_FallsBackToBody(t *testing.T) {
	html := `<html><body><script>var x = 1;</script><div>Plain page</div><style>p{}</style></body></html>`

	text, err := ExtractText(html)
	require.NoError(t, err)
	assert.Equal(t, "Plain page", text)
}

func TestExtractText_SkipsEmptyMain(t *testing.T) {
	html := `<html><body><main>  </main><article>Real content</article></body></html>`

	text, err := ExtractText(html)
	require.NoError(t, err)
	assert.Equal(t, "Real content", text)
}

func TestFirstWords(t *testing.T) {
	assert.Equal(t, "one two", FirstWords("one\ntwo   three", 2))
	assert.Equal(t, "one two three", FirstWords("  one two three ", 10))
	assert.Equal(t, "", FirstWords("", 5))

	long := strings.Repeat("word ", 800)
	assert.Len(t, strings.Fields(FirstWords(long, 500)), 500)
}

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme.io", "https://acme.io"},
		{"www.acme.io/about", "https://www.acme.io/about"},
		{"http://acme.io", "http://acme.io"},
		{"https://acme.io", "https://acme.io"},
		{"//acme.io", "https://acme.io"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWebsite(tt.in))
		})
	}
}
