package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"mentioned": {Type: TypeBoolean},
			"sentiment": {Type: TypeString, Enum: []string{"positive", "neutral"}},
			"tags":      {Type: TypeArray, Items: &Schema{Type: TypeString}},
			"score":     {Type: TypeInteger, Description: "1 to 10"},
		},
		Required: []string{"mentioned", "sentiment"},
	}
}

func TestSchema_ToGenAI(t *testing.T) {
	out := testSchema().ToGenAI()

	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, []string{"mentioned", "sentiment"}, out.Required)
	require.Contains(t, out.Properties, "sentiment")
	assert.Equal(t, []string{"positive", "neutral"}, out.Properties["sentiment"].Enum)
	assert.Equal(t, genai.TypeBoolean, out.Properties["mentioned"].Type)
	assert.Equal(t, genai.TypeArray, out.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, out.Properties["tags"].Items.Type)
	assert.Equal(t, "1 to 10", out.Properties["score"].Description)
}

func TestSchema_JSONSchema(t *testing.T) {
	out := testSchema().JSONSchema()

	assert.Equal(t, "object", out["type"])
	assert.Equal(t, []any{"mentioned", "sentiment"}, out["required"])

	props := out["properties"].(map[string]any)
	sentiment := props["sentiment"].(map[string]any)
	assert.Equal(t, []any{"positive", "neutral"}, sentiment["enum"])
	tags := props["tags"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, tags["items"])
}

func TestSchema_Nil(t *testing.T) {
	var s *Schema
	assert.Nil(t, s.ToGenAI())
	assert.Empty(t, s.JSONSchema())
}
