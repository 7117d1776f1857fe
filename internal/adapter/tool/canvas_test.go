package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

func toolTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCanvasTool() (*CanvasTool, *canvas.Ops) {
	store := canvas.NewStore(domain.CanvasState{}, nil)
	ops := canvas.NewOps(store, canvas.NewUIStore(), nil, toolTestLogger())
	return NewCanvasTool(ops, nil, toolTestLogger()), ops
}

// ctxWithSession returns a context carrying the given session ID.
func ctxWithSession(sessionID string) context.Context {
	return domain.ContextWithSessionID(context.Background(), sessionID)
}

func execTool(t *testing.T, tl domain.Tool, params interface{}) (string, bool) {
	t.Helper()
	data, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	result, err := tl.Execute(ctxWithSession("test-session"), data)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	return result.Content, result.IsError
}

func TestCanvasToolName(t *testing.T) {
	ct, _ := newTestCanvasTool()
	if ct.Name() != "canvas" {
		t.Errorf("Name() = %q, want %q", ct.Name(), "canvas")
	}
}

func TestCanvasToolSchema(t *testing.T) {
	ct, _ := newTestCanvasTool()
	schema := ct.Schema()
	if schema.Name != "canvas" {
		t.Errorf("Schema().Name = %q, want %q", schema.Name, "canvas")
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(schema.Parameters, &parsed); err != nil {
		t.Errorf("Schema().Parameters is not valid JSON: %v", err)
	}
}

func TestCanvasToolInvalidJSON(t *testing.T) {
	ct, _ := newTestCanvasTool()
	result, err := ct.Execute(ctxWithSession("test-session"), json.RawMessage(`{invalid`))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for invalid JSON")
	}
}

func TestCanvasToolUnknownAction(t *testing.T) {
	ct, _ := newTestCanvasTool()
	content, isErr := execTool(t, ct, map[string]string{"action": "explode"})
	if !isErr {
		t.Error("expected error for unknown action")
	}
	if !strings.Contains(content, "unknown action") {
		t.Errorf("content = %q, want unknown action hint", content)
	}
}

func TestCanvasToolCreateItem(t *testing.T) {
	ct, ops := newTestCanvasTool()
	content, isErr := execTool(t, ct, map[string]string{"action": "create_item", "name": "Notes"})
	if isErr {
		t.Fatalf("create_item failed: %s", content)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out["item_id"] != "0001" {
		t.Errorf("item_id = %q, want 0001", out["item_id"])
	}
	state := ops.Store().State()
	if len(state.Items) != 1 || state.Items[0].Name != "Notes" {
		t.Errorf("unexpected state after create: %+v", state.Items)
	}
}

func TestCanvasToolCreateItemNameTooLong(t *testing.T) {
	ct, ops := newTestCanvasTool()
	content, isErr := execTool(t, ct, map[string]string{
		"action": "create_item",
		"name":   strings.Repeat("x", maxItemNameLen+1),
	})
	if !isErr {
		t.Fatalf("expected error, got %s", content)
	}
	if len(ops.Store().State().Items) != 0 {
		t.Error("item should not be created when validation fails")
	}
}

func TestCanvasToolSetContent(t *testing.T) {
	ct, ops := newTestCanvasTool()
	id := ops.CreateItem(domain.ItemTypeDocument, "Draft")
	_, isErr := execTool(t, ct, map[string]string{
		"action": "set_document_content", "item_id": id, "content": "hello world",
	})
	if isErr {
		t.Fatal("set_document_content failed")
	}
	state := ops.Store().State()
	idx := state.FindItem(id)
	if idx < 0 {
		t.Fatal("item missing")
	}
	item := state.Items[idx]
	doc, _ := item.Document()
	if doc.Content != "hello world" || doc.WordCount != 2 {
		t.Errorf("content = %q wordCount = %d", doc.Content, doc.WordCount)
	}
}

func TestCanvasToolMutationRequiresItemID(t *testing.T) {
	ct, _ := newTestCanvasTool()
	for _, action := range []string{
		"rename_item", "set_item_subtitle", "set_document_content",
		"append_document_content", "clear_document_content", "delete_item",
	} {
		content, isErr := execTool(t, ct, map[string]string{"action": action})
		if !isErr {
			t.Errorf("%s without item_id should error, got %s", action, content)
		}
	}
}

func TestCanvasToolDeleteOutcomes(t *testing.T) {
	ct, ops := newTestCanvasTool()
	id := ops.CreateItem(domain.ItemTypeDocument, "Temp")

	content, isErr := execTool(t, ct, map[string]string{"action": "delete_item", "item_id": id})
	if isErr {
		t.Fatalf("delete failed: %s", content)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out["outcome"] != "deleted:"+id {
		t.Errorf("outcome = %q, want deleted:%s", out["outcome"], id)
	}

	content, isErr = execTool(t, ct, map[string]string{"action": "delete_item", "item_id": id})
	if isErr {
		t.Fatalf("second delete errored: %s", content)
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out["outcome"] != "not_found:"+id {
		t.Errorf("outcome = %q, want not_found:%s", out["outcome"], id)
	}
}

func TestCanvasToolGlobalFields(t *testing.T) {
	ct, ops := newTestCanvasTool()
	execTool(t, ct, map[string]string{"action": "set_global_title", "text": "Plan"})
	execTool(t, ct, map[string]string{"action": "set_global_description", "text": "Q3 roadmap"})
	state := ops.Store().State()
	if state.GlobalTitle != "Plan" || state.GlobalDescription != "Q3 roadmap" {
		t.Errorf("globals = %q / %q", state.GlobalTitle, state.GlobalDescription)
	}
}

func TestCanvasToolReadState(t *testing.T) {
	ct, ops := newTestCanvasTool()
	ops.SetGlobalTitle("Plan")
	ops.CreateItem(domain.ItemTypeDocument, "Notes")

	content, isErr := execTool(t, ct, map[string]string{"action": "read_state"})
	if isErr {
		t.Fatalf("read_state failed: %s", content)
	}
	var proj domain.Projection
	if err := json.Unmarshal([]byte(content), &proj); err != nil {
		t.Fatalf("unmarshal projection: %v", err)
	}
	if proj.GlobalTitle != "Plan" || len(proj.Items) != 1 {
		t.Errorf("projection = %+v", proj)
	}
}

func TestCanvasToolListItemsEmpty(t *testing.T) {
	ct, _ := newTestCanvasTool()
	content, isErr := execTool(t, ct, map[string]string{"action": "list_items"})
	if isErr {
		t.Fatal("list_items errored on empty canvas")
	}
	if content != "canvas is empty" {
		t.Errorf("content = %q", content)
	}
}

func TestCanvasToolListItems(t *testing.T) {
	ct, ops := newTestCanvasTool()
	id := ops.CreateItem(domain.ItemTypeDocument, "Notes")
	ops.SetContent(id, "one two three")

	content, isErr := execTool(t, ct, map[string]string{"action": "list_items"})
	if isErr {
		t.Fatalf("list_items failed: %s", content)
	}
	var out []itemSummary
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(out) != 1 || out[0].ID != id || out[0].WordCount != 3 {
		t.Errorf("summaries = %+v", out)
	}
}
