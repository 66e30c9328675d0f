package toolimpl

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"mnemex/internal/tools"
)

const extractorSystemPrompt = `Extract entities, tags, and actions from the document. Respond with JSON only: {"entities":[{"type":"Person|Org|Place|Project|Technology|Component|Topic","name":"...","confidence":0.0-1.0}],"tags":["..."],"actions":["..."]}`

type extractedEntity struct {
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type extractionResult struct {
	Entities []extractedEntity `json:"entities"`
	Tags     []string          `json:"tags"`
	Actions  []string          `json:"actions"`
}

// capitalizedRun matches a run of one or more capitalized words, the
// heuristic fallback's only signal when no model is reachable.
var capitalizedRun = regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)\b`)

var orgMarkers = regexp.MustCompile(`(?i)\b(inc|corp|llc|ltd|company|co)\b`)

// ExtractorTool harvests entities/tags/actions from content_text, via the
// generative model when reachable, otherwise a capitalized-word-run
// heuristic. Failure here is non-fatal; an empty
// structured output is a valid success.
func ExtractorTool(gen *GenerativeClient) *tools.Tool {
	return &tools.Tool{
		Name:        "extractor",
		Version:     "1.0.0",
		Description: "Extracts entities, tags, and actions from content_text.",
		InputSchema: tools.ToolSchema{
			Required: []string{"content_text"},
			Properties: map[string]tools.Property{
				"content_text": {Type: "string"},
				"title":        {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"entities", "tags", "actions"},
			Properties: map[string]tools.Property{
				"entities": {Type: "array"},
				"tags":     {Type: "array"},
				"actions":  {Type: "array"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			contentText, _ := env.Inputs["content_text"].(string)

			if gen != nil && gen.Reachable(ctx) {
				raw, err := gen.Generate(ctx, extractorSystemPrompt, contentText, true)
				if err == nil {
					var parsed extractionResult
					if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
						return extractionOutputs(parsed), nil
					}
				}
			}

			return extractionOutputs(heuristicExtract(contentText)), nil
		},
	}
}

func extractionOutputs(r extractionResult) map[string]any {
	entities := make([]any, 0, len(r.Entities))
	for _, e := range r.Entities {
		entities = append(entities, map[string]any{
			"type":       e.Type,
			"name":       e.Name,
			"confidence": e.Confidence,
		})
	}
	tags := make([]any, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, t)
	}
	actions := make([]any, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, a)
	}
	return map[string]any{"entities": entities, "tags": tags, "actions": actions}
}

// heuristicExtract finds capitalized word runs and guesses a coarse type:
// a run followed by an org marker word becomes Org, a two-or-more-word run
// becomes Person, a single word becomes Topic. This is a best-effort
// fallback, not a substitute for a real NER model.
func heuristicExtract(text string) extractionResult {
	seen := make(map[string]bool)
	var result extractionResult

	for _, loc := range capitalizedRun.FindAllStringIndex(text, -1) {
		name := strings.TrimSpace(text[loc[0]:loc[1]])
		key := strings.ToLower(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		tail := text[loc[1]:]
		if len(tail) > 32 {
			tail = tail[:32]
		}

		entityType := "Topic"
		wordCount := len(strings.Fields(name))
		switch {
		case orgMarkers.MatchString(tail):
			entityType = "Org"
		case wordCount >= 2:
			entityType = "Person"
		}

		result.Entities = append(result.Entities, extractedEntity{
			Type:       entityType,
			Name:       name,
			Confidence: 0.4,
		})
	}
	return result
}
