package orchestrator

import (
	"context"
	"fmt"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
	"mnemex/internal/tools"
)

// dispatch builds an envelope for a single tool call, runs it through
// the registry, and — when predecessor is non-empty — records a
// sequential exec-edge from predecessor's call id to this call's id.
// Parallel siblings pass the same predecessor and never link to each
// other. The returned *tools.Result carries the call id (its SpanID)
// callers need to pass as the next step's predecessor.
func (o *Orchestrator) dispatch(ctx context.Context, traceID, toolName string, inputs map[string]any, predecessor string) (*tools.Result, error) {
	env := &tools.Envelope{
		TraceID: traceID,
		SpanID:  idgen.New(),
		Caller:  "orchestrator",
		Callee:  toolName,
		Intent:  toolName,
		Inputs:  inputs,
	}
	if o.cfg.ToolTimeoutMs > 0 {
		env.Constraints.TimeoutMs = o.cfg.ToolTimeoutMs
	}

	result, err := o.registry.Dispatch(ctx, env)
	if result == nil {
		return nil, err
	}

	if predecessor != "" {
		if linkErr := o.store.LinkExecNodes(ctx, traceID, predecessor, env.SpanID, "sequential"); linkErr != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("link exec nodes %s -> %s: %v", predecessor, env.SpanID, linkErr)
		}
	}
	return result, err
}

// stepString reads a string output key, defaulting to "".
func stepString(outputs map[string]any, key string) string {
	v, _ := outputs[key].(string)
	return v
}

// stepBool reads a bool output key, defaulting to false.
func stepBool(outputs map[string]any, key string) bool {
	v, _ := outputs[key].(bool)
	return v
}

// stepFloat reads a float output key and whether it was present at all
// — the image pipeline's OCR confidence gate treats "absent" and
// "zero" differently.
func stepFloat(outputs map[string]any, key string) (float64, bool) {
	v, ok := outputs[key].(float64)
	return v, ok
}

// fatalStepError wraps a failed required step with the tool name, so a
// caller that aborts the pipeline reports which step failed.
func fatalStepError(toolName string, err error) error {
	return fmt.Errorf("%s: %w", toolName, err)
}
