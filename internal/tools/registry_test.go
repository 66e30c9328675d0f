package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(nil)
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry(nil)

	tool := &Tool{
		Name:        "test_tool",
		Version:     "1.0.0",
		Description: "A test tool",
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry(nil)

	tool := &Tool{
		Name: "dupe",
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			return nil, nil
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	if err := reg.Register(tool); !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Fatalf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry(nil)

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{
			name:    "empty name",
			tool:    &Tool{Name: "", Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) { return nil, nil }},
			wantErr: ErrToolNameEmpty,
		},
		{
			name:    "nil execute",
			tool:    &Tool{Name: "test"},
			wantErr: ErrToolExecuteNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.tool)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDispatchSuccess(t *testing.T) {
	reg := NewRegistry(nil)

	reg.MustRegister(&Tool{
		Name: "echo",
		InputSchema: ToolSchema{
			Required:   []string{"message"},
			Properties: map[string]Property{"message": {Type: "string"}},
		},
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			msg, _ := env.Inputs["message"].(string)
			return map[string]any{"echoed": "Echo: " + msg}, nil
		},
	})

	env := &Envelope{TraceID: "t1", SpanID: "s1", Callee: "echo", Inputs: map[string]any{"message": "hello"}}
	result, err := reg.Dispatch(context.Background(), env)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !result.IsSuccess() {
		t.Fatalf("expected success, got status %s (%v)", result.Status, result.Error)
	}
	if result.Outputs["echoed"] != "Echo: hello" {
		t.Errorf("got outputs %v", result.Outputs)
	}
	if result.ElapsedMs < 0 {
		t.Errorf("expected non-negative elapsed ms")
	}
}

func TestDispatchMissingRequiredArg(t *testing.T) {
	reg := NewRegistry(nil)
	reg.MustRegister(&Tool{
		Name:        "echo",
		InputSchema: ToolSchema{Required: []string{"message"}},
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			return map[string]any{}, nil
		},
	})

	env := &Envelope{Callee: "echo", Inputs: map[string]any{}}
	result, err := reg.Dispatch(context.Background(), env)
	if err == nil {
		t.Fatal("expected error for missing required arg")
	}
	if result.Status != StatusError {
		t.Errorf("expected status error, got %s", result.Status)
	}
}

func TestDispatchNotFound(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Dispatch(context.Background(), &Envelope{Callee: "nonexistent"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestDispatchTimeout(t *testing.T) {
	reg := NewRegistry(nil)
	reg.MustRegister(&Tool{
		Name: "slow",
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			select {
			case <-time.After(100 * time.Millisecond):
				return map[string]any{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	env := &Envelope{Callee: "slow", Constraints: Constraints{TimeoutMs: 10}}
	result, err := reg.Dispatch(context.Background(), env)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if result.Status != StatusTimeout {
		t.Errorf("expected status timeout, got %s", result.Status)
	}
}

func TestDispatchMaxOutputBytesExceeded(t *testing.T) {
	reg := NewRegistry(nil)
	big := strings.Repeat("x", 1000)
	reg.MustRegister(&Tool{
		Name: "verbose",
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			return map[string]any{"blob": big}, nil
		},
	})

	env := &Envelope{Callee: "verbose", Constraints: Constraints{MaxOutputBytes: 50}}
	result, err := reg.Dispatch(context.Background(), env)
	if !errors.Is(err, ErrMaxOutputBytesExceeded) {
		t.Fatalf("expected ErrMaxOutputBytesExceeded, got %v", err)
	}
	if result.Error.Type != "max_output_bytes_exceeded" {
		t.Errorf("expected error type max_output_bytes_exceeded, got %s", result.Error.Type)
	}
	if result.Outputs["truncated"] != true {
		t.Errorf("expected truncated outputs, got %v", result.Outputs)
	}
}

type recordingTracer struct {
	starts  int
	finishes int
}

func (r *recordingTracer) RecordStart(ctx context.Context, env *Envelope) error {
	r.starts++
	return nil
}

func (r *recordingTracer) RecordFinish(ctx context.Context, result *Result) error {
	r.finishes++
	return nil
}

func TestDispatchPersistsTrace(t *testing.T) {
	tracer := &recordingTracer{}
	reg := NewRegistry(tracer)
	reg.MustRegister(&Tool{
		Name: "noop",
		Execute: func(ctx context.Context, env *Envelope) (map[string]any, error) {
			return map[string]any{}, nil
		},
	})

	_, err := reg.Dispatch(context.Background(), &Envelope{Callee: "noop"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if tracer.starts != 1 || tracer.finishes != 1 {
		t.Errorf("expected 1 start and 1 finish, got starts=%d finishes=%d", tracer.starts, tracer.finishes)
	}
}
