package prompts

import "encoding/json"

// ClauseSchema is the JSON schema every gateway response must satisfy.
var ClauseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"clauses": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page": map[string]any{
						"type":        "integer",
						"description": "Page of the attached PDF where the clause starts",
					},
					"clause_number": map[string]any{
						"type":        "string",
						"description": "Clause identifier as printed, e.g. '1.' or 'Clause 1'",
					},
					"text": map[string]any{
						"type":        "string",
						"description": "Complete clause text",
					},
					"title": map[string]any{
						"type":        []string{"string", "null"},
						"description": "Clause heading if printed",
					},
				},
				"required": []string{"page", "clause_number", "text"},
			},
		},
	},
	"required": []string{"clauses"},
}

// ClauseSchemaJSON returns ClauseSchema encoded as JSON.
func ClauseSchemaJSON() json.RawMessage {
	b, err := json.Marshal(ClauseSchema)
	if err != nil {
		panic("prompts: clause schema is not serializable: " + err.Error())
	}
	return b
}
