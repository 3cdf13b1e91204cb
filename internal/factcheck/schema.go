package factcheck

import "github.com/jonathan/geo-toolkit/internal/llm"

// Verification statuses returned by the model.
const (
	StatusAccurate      = "ACCURATE"
	StatusHallucination = "HALLUCINATION"
)

// QuestionsSchema is the JSON shape of the generated questions.
func QuestionsSchema() *llm.Schema {
	return &llm.Schema{
		Type:  llm.TypeArray,
		Items: &llm.Schema{Type: llm.TypeString},
	}
}

// VerificationSchema is the JSON shape of a verification verdict.
func VerificationSchema() *llm.Schema {
	stringList := func() *llm.Schema {
		return &llm.Schema{Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}}
	}
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"status":    {Type: llm.TypeString, Enum: []string{StatusAccurate, StatusHallucination}},
			"reasoning": {Type: llm.TypeString},
			"patch": {
				Type:        llm.TypeString,
				Description: "Markdown correction. Only for HALLUCINATION.",
			},
			"remediation": {
				Type:        llm.TypeObject,
				Description: "Only for HALLUCINATION.",
				Properties: map[string]*llm.Schema{
					"summary":              {Type: llm.TypeString},
					"steps":                stringList(),
					"preventionTips":       stringList(),
					"suggestedFaqQuestion": {Type: llm.TypeString},
					"suggestedFaqAnswer":   {Type: llm.TypeString},
				},
			},
		},
		Required: []string{"status", "reasoning"},
	}
}
