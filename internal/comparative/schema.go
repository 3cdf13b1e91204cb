package comparative

import "github.com/jonathan/geo-toolkit/internal/llm"

func metricsSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"wordCount":        {Type: llm.TypeInteger},
			"headerCount":      {Type: llm.TypeInteger, Description: "Number of H1 and H2 headers."},
			"dataDensityScore": {Type: llm.TypeInteger, Description: "Score from 1 to 10."},
		},
		Required: []string{"wordCount", "headerCount", "dataDensityScore"},
	}
}

// ResultSchema is the JSON shape of a comparison result.
func ResultSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"metrics": {
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"client":     metricsSchema(),
					"competitor": metricsSchema(),
				},
				Required: []string{"client", "competitor"},
			},
			"verdict": {Type: llm.TypeString},
			"analysisPoints": {
				Type:  llm.TypeArray,
				Items: &llm.Schema{Type: llm.TypeString},
			},
			"recommendedFix": {
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"description": {Type: llm.TypeString},
					"codeBlock":   {Type: llm.TypeString, Description: "Complete HTML ready to paste into the page head."},
					"language":    {Type: llm.TypeString},
				},
				Required: []string{"description", "codeBlock", "language"},
			},
		},
		Required: []string{"metrics", "verdict", "analysisPoints", "recommendedFix"},
	}
}
