package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates free text using the specified model tier
	GenerateContent(ctx context.Context, prompt string, tier ModelTier, opts ...CallOption) (string, error)
	// GenerateJSON generates a JSON document constrained to schema
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier, schema *Schema, opts ...CallOption) (string, error)
	// GenerateGrounded generates text backed by live web search and returns the cited sources
	GenerateGrounded(ctx context.Context, prompt string, tier ModelTier, opts ...CallOption) (*GroundedResponse, error)
	// GetModel returns the provider model name used for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// GroundedResponse is the text of a search-grounded answer plus the source
// URIs the provider cited, in the order it reported them.
type GroundedResponse struct {
	Text    string
	Sources []string
}

// CallOption tunes a single generation call.
type CallOption func(*CallSettings)

// CallSettings is the resolved form of a call's options.
type CallSettings struct {
	SystemInstruction string
	MaxOutputTokens   int32
	Temperature       float32
	// ThinkingBudget caps reasoning tokens on thinking models. Nil leaves
	// the model default.
	ThinkingBudget *int32
}

// ResolveCallOptions applies opts over the defaults.
func ResolveCallOptions(opts ...CallOption) CallSettings {
	// Low temperature for consistent output
	s := CallSettings{Temperature: 0.1}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithSystemInstruction sets the system instruction for the call.
func WithSystemInstruction(text string) CallOption {
	return func(s *CallSettings) { s.SystemInstruction = text }
}

// WithMaxOutputTokens caps the number of generated tokens. On thinking
// models the cap includes reasoning tokens.
func WithMaxOutputTokens(n int32) CallOption {
	return func(s *CallSettings) { s.MaxOutputTokens = n }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) CallOption {
	return func(s *CallSettings) { s.Temperature = t }
}

// WithThinkingBudget caps the reasoning tokens a thinking model may spend.
func WithThinkingBudget(n int32) CallOption {
	return func(s *CallSettings) { s.ThinkingBudget = &n }
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// GenerateContent generates text content using the specified model tier
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier, opts ...CallOption) (string, error) {
	resp, err := c.generate(ctx, prompt, tier, nil, opts)
	if err != nil {
		return "", err
	}
	return extractTextFromResponse(resp)
}

// GenerateJSON generates JSON content using the specified model tier
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier, schema *Schema, opts ...CallOption) (string, error) {
	resp, err := c.generate(ctx, prompt, tier, func(cfg *genai.GenerateContentConfig) {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schema.ToGenAI()
	}, opts)
	if err != nil {
		return "", err
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}

	// Clean any markdown code block wrappers
	return CleanJSONBlock(text), nil
}

// GenerateGrounded generates text with the Google Search tool enabled and
// collects the web sources from the grounding metadata.
func (c *GeminiClient) GenerateGrounded(ctx context.Context, prompt string, tier ModelTier, opts ...CallOption) (*GroundedResponse, error) {
	resp, err := c.generate(ctx, prompt, tier, func(cfg *genai.GenerateContentConfig) {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}, opts)
	if err != nil {
		return nil, err
	}

	out := &GroundedResponse{}
	// An answer with no text is not an error here; callers decide how to present it.
	out.Text, _ = extractTextFromResponse(resp)
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			out.Sources = append(out.Sources, chunk.Web.URI)
		}
	}
	return out, nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client. The genai client holds no
// long-lived connections of its own.
func (c *GeminiClient) Close() error {
	return nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, tier ModelTier, configure func(*genai.GenerateContentConfig), opts []CallOption) (*genai.GenerateContentResponse, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}

	o := ResolveCallOptions(opts...)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(o.Temperature),
	}
	if o.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(o.SystemInstruction, genai.RoleUser)
	}
	if o.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = o.MaxOutputTokens
	}
	if o.ThinkingBudget != nil {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(*o.ThinkingBudget)}
	}
	if configure != nil {
		configure(cfg)
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), cfg)
	if err != nil {
		return nil, &APICallError{Message: fmt.Sprintf("generate content with %s", modelName), Cause: err}
	}
	return resp, nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response: %w", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response: %w", ErrEmptyResponse)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		parts = append(parts, part.Text)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response: %w", ErrEmptyResponse)
	}

	return strings.Join(parts, ""), nil
}
