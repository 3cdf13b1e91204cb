package audit

import (
	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// AnalysisSchema is the JSON shape of one page analysis.
func AnalysisSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"mentioned": {
				Type:        llm.TypeBoolean,
				Description: "True only if the target brand is named explicitly in the text.",
			},
			"sentiment": {
				Type:        llm.TypeString,
				Enum:        types.Sentiments(),
				Description: "Overall sentiment towards the brand. Use neutral when the brand is not mentioned.",
			},
			"summary": {
				Type:        llm.TypeString,
				Description: "One sentence on how the brand is portrayed, or what the page promotes instead when it is absent.",
			},
			"authorName": {
				Type:        llm.TypeString,
				Description: "Author name from a byline, or an empty string.",
			},
			"authorEmail": {
				Type:        llm.TypeString,
				Description: "Author email address found in the content, or an empty string.",
			},
			"outreachEmail": {
				Type:        llm.TypeString,
				Description: "Outreach email asking the author to include the brand. Empty string when the brand is mentioned.",
			},
		},
		Required: []string{"mentioned", "sentiment", "summary"},
	}
}
