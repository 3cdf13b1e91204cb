// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/geo-toolkit/internal/llm"
)

// Call records one invocation of the mock.
type Call struct {
	Method   string
	Prompt   string
	Tier     llm.ModelTier
	Settings llm.CallSettings
}

// MockClient implements llm.Client with optional func fields. Unset funcs
// return empty results.
type MockClient struct {
	GenerateContentFunc  func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc     func(ctx context.Context, prompt string, tier llm.ModelTier, schema *llm.Schema) (string, error)
	GenerateGroundedFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.GroundedResponse, error)
	GetModelFunc         func(tier llm.ModelTier) string
	CloseFunc            func() error

	mu    sync.Mutex
	calls []Call
}

var _ llm.Client = (*MockClient)(nil)

func (m *MockClient) record(method, prompt string, tier llm.ModelTier, opts []llm.CallOption) {
	settings := llm.ResolveCallOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Prompt: prompt, Tier: tier, Settings: settings})
}

// Calls returns a copy of the recorded invocations in call order.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier, opts ...llm.CallOption) (string, error) {
	m.record("GenerateContent", prompt, tier, opts)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, schema *llm.Schema, opts ...llm.CallOption) (string, error) {
	m.record("GenerateJSON", prompt, tier, opts)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier, schema)
	}
	return "", nil
}

func (m *MockClient) GenerateGrounded(ctx context.Context, prompt string, tier llm.ModelTier, opts ...llm.CallOption) (*llm.GroundedResponse, error) {
	m.record("GenerateGrounded", prompt, tier, opts)
	if m.GenerateGroundedFunc != nil {
		return m.GenerateGroundedFunc(ctx, prompt, tier)
	}
	return &llm.GroundedResponse{}, nil
}

func (m *MockClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
