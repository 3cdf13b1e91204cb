package factcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/llm/llmtest"
	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/types"
)

const (
	questionsMarker = "prospective customer"
	verifyMarker    = "strict fact-checker"
)

// scriptedClient builds a mock whose answers are keyed by question text.
type scriptedClient struct {
	questions []string
	naive     map[string]func() (string, error)
	grounded  map[string]func() (*llm.GroundedResponse, error)
	verdicts  map[string]func() (string, error)
}

func (s scriptedClient) mock() *llmtest.MockClient {
	find := func(prompt string, keys []string) string {
		for _, k := range keys {
			if strings.Contains(prompt, k) {
				return k
			}
		}
		return ""
	}
	return &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier, _ *llm.Schema) (string, error) {
			if strings.Contains(prompt, questionsMarker) {
				b, _ := json.Marshal(s.questions)
				return string(b), nil
			}
			if strings.Contains(prompt, verifyMarker) {
				if fn, ok := s.verdicts[find(prompt, s.questions)]; ok {
					return fn()
				}
				return `{"status":"ACCURATE","reasoning":"Matches the site."}`, nil
			}
			return "", errors.New("unexpected JSON prompt")
		},
		GenerateContentFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if fn, ok := s.naive[find(prompt, s.questions)]; ok {
				return fn()
			}
			return "From memory.", nil
		},
		GenerateGroundedFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (*llm.GroundedResponse, error) {
			if fn, ok := s.grounded[find(prompt, s.questions)]; ok {
				return fn()
			}
			return &llm.GroundedResponse{Text: "From the site.", Sources: []string{"https://acme.com/faq"}}, nil
		},
	}
}

func TestRun_FullFlow(t *testing.T) {
	script := scriptedClient{
		questions: []string{"Does Acme ship to Canada?", "   ", "What is the Acme warranty?"},
		grounded: map[string]func() (*llm.GroundedResponse, error){
			"Does Acme ship to Canada?": func() (*llm.GroundedResponse, error) {
				return &llm.GroundedResponse{
					Text:    "Yes, Acme ships to Canada.",
					Sources: []string{"https://x.com/a", "https://x.com/a", "https://x.com/b"},
				}, nil
			},
		},
		verdicts: map[string]func() (string, error){
			"Does Acme ship to Canada?": func() (string, error) {
				return `{"status":"ACCURATE","reasoning":"Same.","patch":"ignored","remediation":{"summary":"ignored","steps":["x"],"preventionTips":[]}}`, nil
			},
			"What is the Acme warranty?": func() (string, error) {
				return `{"status":"HALLUCINATION","reasoning":"Wrong length.","patch":"**2 years**","remediation":{"summary":"Model invents a 5 year warranty.","steps":["Publish warranty page"],"preventionTips":["Add FAQ schema"],"suggestedFaqQuestion":"How long is the warranty?","suggestedFaqAnswer":"2 years."}}`, nil
			},
		},
	}
	client := script.mock()
	c := New(client)

	run, err := c.Run(context.Background(), "Acme", "acme.com")
	require.NoError(t, err)

	assert.Equal(t, types.FactCheckComplete, run.Status)
	assert.Equal(t, CompleteProgress, run.Progress)
	require.Len(t, run.Questions, 2, "blank questions are skipped")

	first, second := run.Questions[0], run.Questions[1]
	assert.Equal(t, "q-0", first.ID)
	assert.Equal(t, "q-1", second.ID)
	assert.Equal(t, "Does Acme ship to Canada?", first.QuestionText)

	assert.Equal(t, []string{"https://x.com/a", "https://x.com/b"}, first.GroundTruthSources)
	require.NotNil(t, first.Verification)
	assert.True(t, first.Verification.IsAccurate)
	assert.Empty(t, first.Verification.Patch)
	assert.Nil(t, first.Verification.Remediation)

	require.NotNil(t, second.Verification)
	assert.False(t, second.Verification.IsAccurate)
	assert.Equal(t, "**2 years**", second.Verification.Patch)
	require.NotNil(t, second.Verification.Remediation)
	assert.Equal(t, []string{"Publish warranty page"}, second.Verification.Remediation.Steps)
	assert.Equal(t, 1, run.HallucinationCount())

	for _, q := range run.Questions {
		assert.Equal(t, types.ItemDone, q.ItemStatus)
		require.NotNil(t, q.NaiveAnswer)
		require.NotNil(t, q.GroundTruthAnswer)
	}

	// Strictly sequential: questions in order, naive → grounded → verify within each.
	var methods []string
	for _, call := range client.Calls() {
		methods = append(methods, call.Method)
	}
	want := []string{
		"GenerateJSON",
		"GenerateContent", "GenerateGrounded", "GenerateJSON",
		"GenerateContent", "GenerateGrounded", "GenerateJSON",
	}
	if diff := cmp.Diff(want, methods); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	calls := client.Calls()
	assert.Contains(t, calls[1].Prompt, "Does Acme ship to Canada?")
	assert.Contains(t, calls[4].Prompt, "What is the Acme warranty?")
	assert.Equal(t, llm.TierAdvanced, calls[2].Tier)
	assert.Contains(t, calls[2].Prompt, "site:acme.com Does Acme ship to Canada?")
}

func TestRun_StepFailuresAreContained(t *testing.T) {
	script := scriptedClient{
		questions: []string{"Q-naive-error", "Q-naive-empty", "Q-ground-error", "Q-ground-empty", "Q-verify-error"},
		naive: map[string]func() (string, error){
			"Q-naive-error": func() (string, error) { return "", errors.New("boom") },
			"Q-naive-empty": func() (string, error) { return "  \n", nil },
		},
		grounded: map[string]func() (*llm.GroundedResponse, error){
			"Q-ground-error": func() (*llm.GroundedResponse, error) { return nil, errors.New("search tool down") },
			"Q-ground-empty": func() (*llm.GroundedResponse, error) {
				return &llm.GroundedResponse{Sources: []string{"https://acme.com"}}, nil
			},
		},
		verdicts: map[string]func() (string, error){
			"Q-verify-error": func() (string, error) { return `{"status":"UNSURE"}`, nil },
		},
	}

	run, err := New(script.mock()).Run(context.Background(), "Acme", "acme.com")
	require.NoError(t, err)
	require.Equal(t, types.FactCheckComplete, run.Status)
	require.Len(t, run.Questions, 5)

	byText := map[string]types.FactCheckQuestion{}
	for _, q := range run.Questions {
		assert.Equal(t, types.ItemDone, q.ItemStatus, q.QuestionText)
		byText[q.QuestionText] = q
	}

	assert.Equal(t, types.NaiveAnswerError, *byText["Q-naive-error"].NaiveAnswer)
	assert.Equal(t, types.NaiveAnswerEmpty, *byText["Q-naive-empty"].NaiveAnswer)

	assert.Equal(t, types.GroundTruthError, *byText["Q-ground-error"].GroundTruthAnswer)
	assert.NotNil(t, byText["Q-ground-error"].GroundTruthSources)
	assert.Empty(t, byText["Q-ground-error"].GroundTruthSources)

	assert.Equal(t, types.GroundTruthEmpty, *byText["Q-ground-empty"].GroundTruthAnswer)
	assert.Equal(t, []string{"https://acme.com"}, byText["Q-ground-empty"].GroundTruthSources)

	assert.Equal(t, types.FallbackVerification(), *byText["Q-verify-error"].Verification)
}

func TestRun_QuestionGenerationFailure(t *testing.T) {
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier, *llm.Schema) (string, error) {
			return `{"questions": "not an array"}`, nil
		},
	}

	run, err := New(client).Run(context.Background(), "Acme", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, types.FactCheckError, run.Status)
	assert.Equal(t, QuestionsFailedMessage, run.Error)
	assert.Equal(t, ErrorProgress, run.Progress)
	assert.Empty(t, run.Questions)
	assert.Len(t, client.Calls(), 1)
}

func TestRun_EmptyQuestionResponseCompletes(t *testing.T) {
	tests := []struct {
		name string
		resp func() (string, error)
	}{
		{"blank text", func() (string, error) { return "", nil }},
		{"no text parts", func() (string, error) {
			return "", fmt.Errorf("no text parts in response: %w", llm.ErrEmptyResponse)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &llmtest.MockClient{
				GenerateJSONFunc: func(context.Context, string, llm.ModelTier, *llm.Schema) (string, error) {
					return tt.resp()
				},
			}

			run, err := New(client).Run(context.Background(), "Acme", "acme.com")
			require.NoError(t, err)
			assert.Equal(t, types.FactCheckComplete, run.Status)
			assert.Empty(t, run.Error)
			assert.NotNil(t, run.Questions)
			assert.Empty(t, run.Questions)
			assert.Zero(t, run.HallucinationCount())
			assert.Len(t, client.Calls(), 1)
		})
	}
}

func TestRun_NaiveAnswerCallSettings(t *testing.T) {
	script := scriptedClient{questions: []string{"Does Acme ship to Canada?"}}
	client := script.mock()

	_, err := New(client).Run(context.Background(), "Acme", "acme.com")
	require.NoError(t, err)

	var naive []llmtest.Call
	for _, call := range client.Calls() {
		if call.Method == "GenerateContent" {
			naive = append(naive, call)
		}
	}
	require.Len(t, naive, 1)

	settings := naive[0].Settings
	assert.Equal(t, int32(NaiveAnswerMaxTokens), settings.MaxOutputTokens)
	require.NotNil(t, settings.ThinkingBudget)
	assert.Equal(t, int32(NaiveAnswerThinkingBudget), *settings.ThinkingBudget)
	assert.Greater(t, settings.MaxOutputTokens, *settings.ThinkingBudget, "answer text must fit after reasoning")
}

func TestRun_NaiveAnswerWithoutTextIsEmpty(t *testing.T) {
	script := scriptedClient{
		questions: []string{"Where is Acme based?"},
		naive: map[string]func() (string, error){
			"Where is Acme based?": func() (string, error) {
				return "", fmt.Errorf("no text parts in response: %w", llm.ErrEmptyResponse)
			},
		},
	}

	run, err := New(script.mock()).Run(context.Background(), "Acme", "acme.com")
	require.NoError(t, err)
	require.Len(t, run.Questions, 1)
	assert.Equal(t, types.NaiveAnswerEmpty, *run.Questions[0].NaiveAnswer)
}

func TestRun_ItemStatusMonotonic(t *testing.T) {
	script := scriptedClient{questions: []string{
		"What is the warranty period for Acme products?",
		"Where is Acme based?",
	}}
	c := New(script.mock())

	rank := map[types.ItemStatus]int{types.ItemPending: 0, types.ItemLoading: 1, types.ItemDone: 2}
	last := map[string]int{}
	var progress []string
	var regressions []string
	defer c.Tracker().Subscribe(func(u runstate.Update[types.FactCheckRun]) {
		if n := len(progress); n == 0 || progress[n-1] != u.State.Progress {
			progress = append(progress, u.State.Progress)
		}
		for _, q := range u.State.Questions {
			r := rank[q.ItemStatus]
			if r < last[q.ID] {
				regressions = append(regressions, q.ID)
			}
			last[q.ID] = r
		}
		// Question i+1 may not start before question i is done.
		for i := 1; i < len(u.State.Questions); i++ {
			if u.State.Questions[i].ItemStatus != types.ItemPending {
				assert.Equal(t, types.ItemDone, u.State.Questions[i-1].ItemStatus)
			}
		}
	})()

	_, err := c.Run(context.Background(), "Acme", "acme.com")
	require.NoError(t, err)

	assert.Empty(t, regressions)
	assert.Equal(t, []string{
		GeneratingProgress,
		`Analyzing question 1 of 2: "What is the warranty period fo..."`,
		`Analyzing question 2 of 2: "Where is Acme based?..."`,
		CompleteProgress,
	}, progress)
}

func TestRun_CancelMarksCurrentQuestion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	script := scriptedClient{
		questions: []string{"First?", "Second?", "Third?"},
		grounded: map[string]func() (*llm.GroundedResponse, error){
			"Second?": func() (*llm.GroundedResponse, error) {
				cancel()
				return nil, context.Canceled
			},
		},
	}

	run, err := New(script.mock()).Run(ctx, "Acme", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, types.FactCheckError, run.Status)
	assert.Equal(t, CancelledMessage, run.Error)
	require.Len(t, run.Questions, 3)
	assert.Equal(t, types.ItemDone, run.Questions[0].ItemStatus)
	assert.Equal(t, types.ItemError, run.Questions[1].ItemStatus)
	assert.Equal(t, types.ItemPending, run.Questions[2].ItemStatus)
}

func TestRun_SupersededStopsBeforeNextQuestion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	var mu sync.Mutex
	naiveCalls := map[string]int{}
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier, _ *llm.Schema) (string, error) {
			if strings.Contains(prompt, questionsMarker) {
				return `["One?", "Two?", "Three?"]`, nil
			}
			return `{"status":"ACCURATE","reasoning":"ok"}`, nil
		},
		GenerateContentFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			brand := "New"
			if strings.Contains(prompt, `"Old"`) {
				brand = "Old"
				once.Do(func() { close(started) })
				<-release
			}
			mu.Lock()
			naiveCalls[brand]++
			mu.Unlock()
			return "answer", nil
		},
	}
	c := New(client)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), "Old", "old.com")
		errs <- err
	}()
	<-started

	newer, err := c.Run(context.Background(), "New", "new.com")
	require.NoError(t, err)
	assert.Equal(t, types.FactCheckComplete, newer.Status)

	close(release)
	assert.ErrorIs(t, <-errs, runstate.ErrSuperseded)

	mu.Lock()
	assert.Equal(t, 1, naiveCalls["Old"], "stale run stops before its next question")
	assert.Equal(t, 3, naiveCalls["New"])
	mu.Unlock()

	_, state := c.Tracker().Snapshot()
	assert.Equal(t, "New", state.BrandName)
	assert.Equal(t, types.FactCheckComplete, state.Status)
}

func TestRun_Validation(t *testing.T) {
	client := &llmtest.MockClient{}
	c := New(client)

	_, err := c.Run(context.Background(), "Acme", "")
	var vErr *types.ValidationError
	require.True(t, errors.As(err, &vErr))

	gen, _ := c.Tracker().Snapshot()
	assert.Zero(t, gen)
	assert.Empty(t, client.Calls())
}

func TestDedupSources(t *testing.T) {
	assert.Equal(t, []string{"https://x.com/a"}, DedupSources([]string{"https://x.com/a", "https://x.com/a"}))
	assert.Equal(t, []string{"b", "a", "c"}, DedupSources([]string{"b", "a", "b", "c", "a"}))
	assert.NotNil(t, DedupSources(nil))
}
