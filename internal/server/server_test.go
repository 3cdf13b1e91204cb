package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/geo-toolkit/internal/audit"
	"github.com/jonathan/geo-toolkit/internal/comparative"
	"github.com/jonathan/geo-toolkit/internal/factcheck"
	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/llm/llmtest"
	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/server/ratelimit"
	"github.com/jonathan/geo-toolkit/internal/types"
)

type searchFunc func(ctx context.Context, query string) ([]types.SearchResult, error)

func (f searchFunc) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	return f(ctx, query)
}

type scrapeFunc func(ctx context.Context, url string) types.ScrapedPage

func (f scrapeFunc) Scrape(ctx context.Context, url string) types.ScrapedPage {
	return f(ctx, url)
}

func twoResults(context.Context, string) ([]types.SearchResult, error) {
	return []types.SearchResult{
		{Title: "A", URL: "https://a.example", ContentSnippet: "Acme rocks"},
		{Title: "B", URL: "https://b.example", ContentSnippet: "nothing"},
	}, nil
}

const comparisonJSON = `{
	"metrics": {
		"client": {"wordCount": 300, "headerCount": 2, "dataDensityScore": 3},
		"competitor": {"wordCount": 1200, "headerCount": 9, "dataDensityScore": 8}
	},
	"verdict": "Competitor wins",
	"analysisPoints": ["More headers"],
	"recommendedFix": {"description": "Add FAQ schema", "codeBlock": "<script></script>", "language": "html"}
}`

// pipelineClient answers every pipeline's calls with fixed, valid output.
func pipelineClient() *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier, schema *llm.Schema) (string, error) {
			switch {
			case schema != nil && schema.Type == llm.TypeArray:
				return `["Does Acme ship abroad?"]`, nil
			case strings.Contains(prompt, "Acme rocks"):
				return `{"mentioned": true, "sentiment": "positive", "summary": "Acme is featured."}`, nil
			case strings.Contains(prompt, "Web content:"):
				return `{"mentioned": false, "sentiment": "neutral", "summary": "No mention."}`, nil
			case strings.Contains(prompt, "strict fact-checker"):
				return `{"status": "ACCURATE", "reasoning": "Matches."}`, nil
			default:
				return comparisonJSON, nil
			}
		},
		GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return "Yes.", nil
		},
		GenerateGroundedFunc: func(context.Context, string, llm.ModelTier) (*llm.GroundedResponse, error) {
			return &llm.GroundedResponse{Text: "Yes, worldwide.", Sources: []string{"https://acme.example/shipping"}}, nil
		},
	}
}

func newTestServer(t *testing.T, cfg Config, searcher searchFunc) *Server {
	t.Helper()
	client := pipelineClient()
	scraper := scrapeFunc(func(_ context.Context, url string) types.ScrapedPage {
		return types.ScrapedPage{URL: url, Markdown: "# Page\n\ncontent of " + url}
	})
	s := New(cfg, Pipelines{
		Auditor:  audit.New(searcher, client),
		Comparer: comparative.New(scraper, client),
		Checker:  factcheck.New(client),
	})
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type sseEvent struct {
	Name string
	Data string
}

func readEvents(t *testing.T, r io.Reader) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = strings.TrimPrefix(line, "data: ")
		case line == "" && current.Name != "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, Config{AccessToken: "secret"}, twoResults)

	w := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestAudit_Sync(t *testing.T) {
	s := newTestServer(t, Config{}, twoResults)

	w := do(t, s.Handler(), http.MethodPost, "/audit", `{"brand":"Acme","query":"best widgets"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run types.AuditRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, types.AuditComplete, run.Status)
	assert.Equal(t, 1, run.Score)
	assert.Len(t, run.Items, 2)

	// The snapshot reflects the finished run
	w = do(t, s.Handler(), http.MethodGet, "/audit", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap types.AuditRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, run, snap)
}

func TestAudit_BadRequests(t *testing.T) {
	s := newTestServer(t, Config{}, twoResults)

	tests := []struct {
		name    string
		path    string
		body    string
		wantMsg string
	}{
		{name: "malformed json", path: "/audit", body: `{`, wantMsg: "Invalid request body"},
		{name: "blank brand", path: "/audit", body: `{"brand":"  ","query":"q"}`, wantMsg: "Please enter a brand and a search query."},
		{name: "missing competitor", path: "/compare", body: `{"clientUrl":"https://a.example"}`, wantMsg: "Please enter both URLs."},
		{name: "stream validation", path: "/fact-check/stream", body: `{"brandName":"Acme"}`, wantMsg: "Please enter a brand name and an official URL."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.wantMsg)
		})
	}

	// Nothing ran
	_, state := s.auditor.Tracker().Snapshot()
	assert.Equal(t, types.AuditIdle, state.Status)
}

func TestCompare_Sync(t *testing.T) {
	s := newTestServer(t, Config{}, twoResults)

	w := do(t, s.Handler(), http.MethodPost, "/compare", `{"clientUrl":"https://a.example","competitorUrl":"https://b.example"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run types.ComparativeRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, types.ComparativeComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, "Competitor wins", run.Result.Verdict)
}

func TestFactCheck_Stream(t *testing.T) {
	s := newTestServer(t, Config{}, twoResults)

	w := do(t, s.Handler(), http.MethodPost, "/fact-check/stream", `{"brandName":"Acme","officialUrl":"acme.example"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readEvents(t, w.Body)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "complete", last.Name)

	var final StateEvent[types.FactCheckRun]
	require.NoError(t, json.Unmarshal([]byte(last.Data), &final))
	assert.Equal(t, types.FactCheckComplete, final.State.Status)
	require.Len(t, final.State.Questions, 1)
	assert.Equal(t, types.ItemDone, final.State.Questions[0].ItemStatus)
	assert.Equal(t, w.Header().Get(requestIDHeader), final.RequestID)

	var statuses []types.FactCheckStatus
	for _, ev := range events[:len(events)-1] {
		require.Equal(t, "state", ev.Name)
		var se StateEvent[types.FactCheckRun]
		require.NoError(t, json.Unmarshal([]byte(ev.Data), &se))
		assert.Equal(t, final.Generation, se.Generation)
		statuses = append(statuses, se.State.Status)
	}
	require.NotEmpty(t, statuses)
	assert.Equal(t, types.FactCheckGeneratingQuestions, statuses[0])
	assert.Equal(t, types.FactCheckComplete, statuses[len(statuses)-1])
}

func TestAuditStream_Superseded(t *testing.T) {
	release := make(chan struct{})
	searcher := func(ctx context.Context, query string) ([]types.SearchResult, error) {
		if query == "first" {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return twoResults(ctx, query)
	}
	s := newTestServer(t, Config{}, searcher)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	type streamResult struct {
		body string
		err  error
	}
	streamDone := make(chan streamResult, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/audit/stream", "application/json", strings.NewReader(`{"brand":"Acme","query":"first"}`))
		if err != nil {
			streamDone <- streamResult{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		streamDone <- streamResult{body: string(body), err: err}
	}()

	require.Eventually(t, func() bool {
		gen, _ := s.auditor.Tracker().Snapshot()
		return gen == 1
	}, 2*time.Second, 5*time.Millisecond)

	// A newer run takes over and finishes
	w := do(t, s.Handler(), http.MethodPost, "/audit", `{"brand":"Acme","query":"second"}`)
	require.Equal(t, http.StatusOK, w.Code)

	close(release)

	var res streamResult
	select {
	case res = <-streamDone:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
	require.NoError(t, res.err)
	events := readEvents(t, strings.NewReader(res.body))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "superseded", last.Name)
	var sup SupersededEvent
	require.NoError(t, json.Unmarshal([]byte(last.Data), &sup))
	assert.Equal(t, uint64(1), sup.Generation)

	for _, ev := range events[:len(events)-1] {
		require.Equal(t, "state", ev.Name)
		var se StateEvent[types.AuditRun]
		require.NoError(t, json.Unmarshal([]byte(ev.Data), &se))
		assert.Equal(t, uint64(1), se.Generation, "stream leaked a state of another run")
		assert.Equal(t, "first", se.State.Query)
	}

	// The newer run's result survives
	_, state := s.auditor.Tracker().Snapshot()
	assert.Equal(t, "second", state.Query)
	assert.Equal(t, types.AuditComplete, state.Status)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, Config{AccessToken: "secret"}, twoResults)

	w := do(t, s.Handler(), http.MethodPost, "/audit", `{"brand":"Acme","query":"q"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s.Handler(), http.MethodGet, "/audit", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s.Handler(), http.MethodPost, "/audit", `{"brand":"Acme","query":"q"}`, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := Config{RateLimit: ratelimit.NewConfig(ratelimit.Settings{
		Enabled: true,
		Limit:   1,
		Window:  time.Hour,
		Burst:   1,
	})}
	s := newTestServer(t, cfg, twoResults)

	w := do(t, s.Handler(), http.MethodPost, "/audit", `{"brand":"Acme","query":"q"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = do(t, s.Handler(), http.MethodPost, "/audit", `{"brand":"Acme","query":"q"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// Snapshot reads are not throttled by the pipeline budget
	w = do(t, s.Handler(), http.MethodGet, "/audit", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Config{AccessToken: "secret"}, twoResults)

	w := do(t, s.Handler(), http.MethodOptions, "/audit", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, Config{}, twoResults)
	id := "7c9e6679-7425-40de-944b-e07fc1f90ae7"

	w := do(t, s.Handler(), http.MethodGet, "/health", "", requestIDHeader, id)
	assert.Equal(t, id, w.Header().Get(requestIDHeader))

	w = do(t, s.Handler(), http.MethodGet, "/health", "", requestIDHeader, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(requestIDHeader))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&types.ValidationError{Field: "Brand", Message: "m"}))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("wrap: %w", runstate.ErrSuperseded)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestRunResponse_Superseded(t *testing.T) {
	s := newTestServer(t, Config{}, twoResults)
	w := httptest.NewRecorder()

	s.runResponse(w, types.AuditRun{Generation: 3, Status: types.AuditComplete}, runstate.ErrSuperseded)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"generation":3`)
}
