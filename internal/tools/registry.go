package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"mnemex/internal/logging"
)

// Tracer persists tool-call and exec-node records around an
// invocation. internal/store implements this against the trace
// tables; tests may pass nil to skip persistence entirely.
type Tracer interface {
	// RecordStart persists a tool-call record (status "running") and an
	// exec-node record (state "running") for the given envelope.
	RecordStart(ctx context.Context, env *Envelope) error
	// RecordFinish atomically updates both records to their terminal state.
	RecordFinish(ctx context.Context, result *Result) error
}

// Registry holds all available tools and dispatches calls through the
// uniform Envelope/Result contract.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	tracer Tracer
}

// NewRegistry creates an empty tool registry. tracer may be nil.
func NewRegistry(tracer Tracer) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		tracer: tracer,
	}
}

// SetTracer wires (or replaces) the registry's trace persistence sink.
func (r *Registry) SetTracer(tracer Tracer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer = tracer
}

// Register adds a tool to the registry. Returns an error if a tool
// with the same name is already registered.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	logging.ToolsDebug("registered tool: %s v%s", tool.Name, tool.Version)
	return nil
}

// MustRegister registers a tool and panics on error. Use for static
// registration at process init.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Dispatch runs the named tool against env through the uniform
// dispatch wrapper: it persists a running trace record, invokes the
// tool with a wall-clock cancellation at env.Constraints.TimeoutMs,
// enforces the output-size cap, classifies failures into a status,
// and persists the terminal trace record before returning.
//
// This is the single point where timeout enforcement, output-size
// enforcement, and trace persistence live; tool implementations must
// not replicate any of these concerns.
func (r *Registry) Dispatch(ctx context.Context, env *Envelope) (*Result, error) {
	tool := r.Get(env.Callee)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, env.Callee)
	}
	return r.dispatchTool(ctx, tool, env)
}

func (r *Registry) dispatchTool(ctx context.Context, tool *Tool, env *Envelope) (*Result, error) {
	env.Constraints = env.Constraints.withDefaults()
	started := time.Now()

	r.mu.RLock()
	tracer := r.tracer
	r.mu.RUnlock()

	if tracer != nil {
		if err := tracer.RecordStart(ctx, env); err != nil {
			logging.Get(logging.CategoryTools).Warn("failed to persist trace start for %s: %v", tool.Name, err)
		}
	}

	result := &Result{
		TraceID:   env.TraceID,
		SpanID:    env.SpanID,
		ToolName:  tool.Name,
		StartedAt: started,
	}

	if err := tool.validateArgs(env.Inputs); err != nil {
		r.finish(ctx, tracer, result, StatusError, nil, "invalid_input", err.Error())
		return result, err
	}

	timeout := time.Duration(env.Constraints.TimeoutMs) * time.Millisecond
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryTools, tool.Name)
	outputs, err := tool.Execute(execCtx, env)
	timer.Stop()

	if execCtx.Err() == context.DeadlineExceeded {
		r.finish(ctx, tracer, result, StatusTimeout, nil, "timeout", fmt.Sprintf("exceeded %v", timeout))
		return result, context.DeadlineExceeded
	}
	if err != nil {
		r.finish(ctx, tracer, result, StatusError, nil, classifyError(err), err.Error())
		return result, err
	}

	encoded, encErr := json.Marshal(outputs)
	if encErr == nil && len(encoded) > env.Constraints.MaxOutputBytes {
		preview := encoded
		if len(preview) > 500 {
			preview = preview[:500]
		}
		truncated := map[string]any{"truncated": true, "preview": string(preview)}
		r.finish(ctx, tracer, result, StatusError, truncated, "max_output_bytes_exceeded",
			fmt.Sprintf("outputs (%d bytes) exceed max_output_bytes (%d)", len(encoded), env.Constraints.MaxOutputBytes))
		return result, ErrMaxOutputBytesExceeded
	}

	r.finish(ctx, tracer, result, StatusOK, outputs, "", "")
	return result, nil
}

func (r *Registry) finish(ctx context.Context, tracer Tracer, result *Result, status Status, outputs map[string]any, errType, errMsg string) {
	result.Status = status
	result.Outputs = outputs
	result.FinishedAt = time.Now()
	result.ElapsedMs = result.FinishedAt.Sub(result.StartedAt).Milliseconds()
	if errType != "" {
		result.Error = &ResultError{Type: errType, Message: errMsg}
	}
	if tracer != nil {
		if err := tracer.RecordFinish(ctx, result); err != nil {
			logging.Get(logging.CategoryTools).Warn("failed to persist trace finish for %s: %v", result.ToolName, err)
		}
	}
}

// classifyError picks a coarse error-type tag for the trace record.
// Tool implementations return plain errors; this is a best-effort
// classification, not a substitute for a typed error from the tool.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	return "tool_error"
}
