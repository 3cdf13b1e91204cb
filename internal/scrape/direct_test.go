package scrape

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

type stubRenderer struct {
	html  string
	err   error
	calls int
}

func (r *stubRenderer) Render(context.Context, string) (string, error) {
	r.calls++
	return r.html, r.err
}

func serveHTML(t *testing.T, html string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestDirectScrape_ConvertsMainContent(t *testing.T) {
	url := serveHTML(t, `<html><head><title>Acme Pricing</title></head><body>
		<nav>Menu</nav>
		<main>
			<h1>Pricing</h1>
			<p>Starter plan is <strong>$10</strong> per month.</p>
			<table><tr><th>Plan</th><th>Price</th></tr><tr><td>Pro</td><td>$20</td></tr></table>
		</main>
		<footer>Copyright</footer>
	</body></html>`)

	page := NewDirectScraper().Scrape(context.Background(), url)
	require.True(t, page.OK(), page.Error)
	assert.Contains(t, page.Markdown, "# Pricing")
	assert.Contains(t, page.Markdown, "**$10**")
	assert.Contains(t, page.Markdown, "| Pro")
	assert.NotContains(t, page.Markdown, "Menu")
	assert.NotContains(t, page.Markdown, "Copyright")
}

func TestDirectScrape_BrowserFallbackForThinPages(t *testing.T) {
	url := serveHTML(t, `<html><body><div id="root"></div></body></html>`)
	renderer := &stubRenderer{html: `<html><body><main><h2>Rendered</h2><p>` + strings.Repeat("content ", 100) + `</p></main></body></html>`}

	page := NewDirectScraper(WithRenderer(renderer)).Scrape(context.Background(), url)
	require.True(t, page.OK(), page.Error)
	assert.Equal(t, 1, renderer.calls)
	assert.Contains(t, page.Markdown, "## Rendered")
}

func TestDirectScrape_NoBrowserForRichPages(t *testing.T) {
	url := serveHTML(t, `<html><body><main><p>`+strings.Repeat("word ", 200)+`</p></main></body></html>`)
	renderer := &stubRenderer{}

	page := NewDirectScraper(WithRenderer(renderer)).Scrape(context.Background(), url)
	require.True(t, page.OK(), page.Error)
	assert.Equal(t, 0, renderer.calls)
}

func TestDirectScrape_RenderFailureKeepsHTTPContent(t *testing.T) {
	url := serveHTML(t, `<html><body><main><p>Short but real.</p></main></body></html>`)
	renderer := &stubRenderer{err: errors.New("chrome not found")}

	page := NewDirectScraper(WithRenderer(renderer)).Scrape(context.Background(), url)
	require.True(t, page.OK(), page.Error)
	assert.Contains(t, page.Markdown, "Short but real.")
}

func TestDirectScrape_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	page := NewDirectScraper().Scrape(context.Background(), server.URL)
	assert.False(t, page.OK())
	assert.Contains(t, page.Error, "404")

	page = NewDirectScraper().Scrape(context.Background(), "")
	assert.Equal(t, "No URL provided", page.Error)

	emptyURL := serveHTML(t, `<html><body></body></html>`)
	page = NewDirectScraper().Scrape(context.Background(), emptyURL)
	assert.False(t, page.OK())
	assert.Contains(t, page.Error, "No content could be extracted")
}

func TestNew_SelectsProvider(t *testing.T) {
	s, err := New(Settings{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FirecrawlClient{}, s)

	s, err = New(Settings{Provider: "direct", UseBrowser: true}, nil)
	require.NoError(t, err)
	direct, ok := s.(*DirectScraper)
	require.True(t, ok)
	assert.NotNil(t, direct.renderer)

	_, err = New(Settings{Provider: "wget"}, nil)
	assert.ErrorContains(t, err, "unknown scrape provider")
}
