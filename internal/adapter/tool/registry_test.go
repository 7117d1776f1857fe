package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"canvasd/internal/domain"
)

// stubTool is a minimal tool with a configurable schema.
type stubTool struct {
	name   string
	schema json.RawMessage
	calls  int
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Description: "stub", Parameters: s.schema}
}
func (s *stubTool) Execute(_ context.Context, _ json.RawMessage) (*domain.ToolResult, error) {
	s.calls++
	return &domain.ToolResult{Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	st := &stubTool{name: "echo"}
	if err := r.Register(st); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Get("echo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name() != "echo" {
		t.Errorf("Name() = %q", got.Name())
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&stubTool{name: "echo"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(&stubTool{name: "echo"}); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Get("ghost")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistryListAndSchemas(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubTool{name: "a"})
	r.Register(&stubTool{name: "b"})
	if len(r.List()) != 2 {
		t.Errorf("List() = %d tools", len(r.List()))
	}
	if len(r.Schemas()) != 2 {
		t.Errorf("Schemas() = %d", len(r.Schemas()))
	}
}

func TestRegistryWrapsWithSchemaValidation(t *testing.T) {
	r := NewRegistry(toolTestLogger())
	st := &stubTool{name: "strict", schema: json.RawMessage(`{
		"type": "object",
		"properties": {"action": {"type": "string"}},
		"required": ["action"]
	}`)}
	if err := r.Register(st); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Get("strict")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Missing required field is rejected before the tool runs.
	result, err := got.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "schema validation failed") {
		t.Errorf("result = %+v, want schema validation failure", result)
	}
	if st.calls != 0 {
		t.Error("inner tool should not run on invalid params")
	}

	// Valid params pass through.
	result, err = got.Execute(context.Background(), json.RawMessage(`{"action": "go"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError || st.calls != 1 {
		t.Errorf("result = %+v, calls = %d", result, st.calls)
	}
}

func TestSchemaValidationNoSchemaPassthrough(t *testing.T) {
	st := &stubTool{name: "loose"}
	wrapped, err := WithSchemaValidation(st)
	if err != nil {
		t.Fatalf("WithSchemaValidation: %v", err)
	}
	if wrapped != domain.Tool(st) {
		t.Error("tool without a schema should be returned unwrapped")
	}
}

func TestSchemaValidationRejectsBadJSON(t *testing.T) {
	st := &stubTool{name: "strict", schema: json.RawMessage(`{"type": "object"}`)}
	wrapped, err := WithSchemaValidation(st)
	if err != nil {
		t.Fatalf("WithSchemaValidation: %v", err)
	}
	result, err := wrapped.Execute(context.Background(), json.RawMessage(`{broken`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "invalid JSON") {
		t.Errorf("result = %+v", result)
	}
}
