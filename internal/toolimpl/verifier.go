package toolimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mnemex/internal/tools"
)

// VerifierSystemPrompt is exported so the orchestrator's chat operation
// can precompute the same call the tool would make.
const VerifierSystemPrompt = `Check whether the answer is supported by the evidence. Respond with JSON only: {"verdict":"pass|revise|abstain","revised_answer":"...","issues":["..."]}`

// AbstainMessage is the canonical answer substituted by the chat
// pipeline when the verifier abstains.
const AbstainMessage = "I don't have enough evidence to answer that confidently."

type verifierResult struct {
	Verdict        string   `json:"verdict"`
	RevisedAnswer  string   `json:"revised_answer"`
	Issues         []string `json:"issues"`
}

// VerifierTool checks an answer against its evidence and citations,
// via the generative model when reachable, otherwise a deterministic
// stub that passes whenever at least one citation survived weaving and
// abstains otherwise. Honors _llm_override the same way
// WeaverTool does.
func VerifierTool(gen *GenerativeClient) *tools.Tool {
	return &tools.Tool{
		Name:        "verifier",
		Version:     "1.0.0",
		Description: "Checks whether a weaved answer is supported by its evidence and citations.",
		InputSchema: tools.ToolSchema{
			Required: []string{"question", "answer", "evidence"},
			Properties: map[string]tools.Property{
				"question":      {Type: "string"},
				"answer":        {Type: "string"},
				"evidence":      {Type: "array"},
				"citations":     {Type: "array"},
				"_llm_override": {Type: "string"},
			},
		},
		OutputSchema: tools.ToolSchema{
			Required: []string{"verdict", "revised_answer", "issues"},
			Properties: map[string]tools.Property{
				"verdict":        {Type: "string", Enum: []any{"pass", "revise", "abstain"}},
				"revised_answer": {Type: "string"},
				"issues":         {Type: "array"},
			},
		},
		Execute: func(ctx context.Context, env *tools.Envelope) (map[string]any, error) {
			answer, _ := env.Inputs["answer"].(string)
			question, _ := env.Inputs["question"].(string)
			evidence, _ := env.Inputs["evidence"].([]any)
			citations, _ := env.Inputs["citations"].([]any)

			if override, ok := env.Inputs["_llm_override"].(string); ok && override != "" {
				var parsed verifierResult
				if err := json.Unmarshal([]byte(override), &parsed); err == nil {
					return verifierOutputs(parsed), nil
				}
			}

			if gen != nil && gen.Reachable(ctx) {
				prompt := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nEvidence:\n%s", question, answer, formatEvidence(evidence))
				raw, err := gen.Generate(ctx, VerifierSystemPrompt, prompt, true)
				if err == nil {
					var parsed verifierResult
					if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
						return verifierOutputs(parsed), nil
					}
				}
			}

			return verifierOutputs(stubVerify(answer, evidence, citations)), nil
		},
	}
}

// stubVerify passes whenever the weaver produced at least one citation
// and a non-empty evidence list; otherwise abstains. This is a coarse
// grounding check, not a semantic one, but is deterministic and
// offline.
func stubVerify(answer string, evidence, citations []any) verifierResult {
	if strings.TrimSpace(answer) == "" || len(evidence) == 0 {
		return verifierResult{Verdict: "abstain", Issues: []string{"no evidence available"}}
	}
	if len(citations) == 0 {
		return verifierResult{Verdict: "abstain", Issues: []string{"answer carries no supporting citation"}}
	}
	return verifierResult{Verdict: "pass"}
}

func verifierOutputs(r verifierResult) map[string]any {
	verdict := r.Verdict
	switch verdict {
	case "pass", "revise", "abstain":
	default:
		verdict = "abstain"
	}
	issues := make([]any, 0, len(r.Issues))
	for _, i := range r.Issues {
		issues = append(issues, i)
	}
	return map[string]any{
		"verdict":        verdict,
		"revised_answer": r.RevisedAnswer,
		"issues":         issues,
	}
}
