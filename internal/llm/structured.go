package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/geo-toolkit/internal/schemas"
)

// GenerateStructured asks the client for a JSON document shaped by schema,
// validates it against the same schema and decodes it into T.
// Transport failures are returned as-is; every problem with the returned
// document is reported as a *ParseError. Both forms wrap ErrEmptyResponse
// when the model produced no text.
func GenerateStructured[T any](ctx context.Context, client Client, prompt string, tier ModelTier, schema *Schema, opts ...CallOption) (T, error) {
	var zero T

	raw, err := client.GenerateJSON(ctx, prompt, tier, schema, opts...)
	if err != nil {
		return zero, err
	}

	content := CleanJSONBlock(raw)
	if strings.TrimSpace(content) == "" {
		return zero, &ParseError{Message: "no JSON content", Cause: ErrEmptyResponse}
	}

	if err := schemas.ValidateDocument(schema.JSONSchema(), content); err != nil {
		return zero, &ParseError{Message: "response does not match schema", Content: content, Cause: err}
	}

	var out T
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return zero, &ParseError{Message: "failed to decode response", Content: content, Cause: err}
	}
	return out, nil
}
