package tool

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
	"canvasd/internal/usecase/syncer"
)

// mockRelay implements domain.WorkspaceRelay for tool tests.
type mockRelay struct {
	mu sync.Mutex

	createdSheets []string
	sheetWrites   [][][]string
	docWrites     []string

	doc       domain.DocPayload
	sheetRows [][]string
	names     []string
	err       error
}

func (m *mockRelay) CreateDocument(_ context.Context, title, _ string) (domain.WorkspaceRef, error) {
	return domain.WorkspaceRef{ID: "doc-" + title, Title: title}, m.err
}

func (m *mockRelay) CreateSpreadsheet(_ context.Context, title string) (domain.WorkspaceRef, error) {
	m.mu.Lock()
	m.createdSheets = append(m.createdSheets, title)
	m.mu.Unlock()
	return domain.WorkspaceRef{ID: "sheet-new", Title: title}, m.err
}

func (m *mockRelay) FetchDocument(_ context.Context, _ string) (domain.DocPayload, error) {
	return m.doc, m.err
}

func (m *mockRelay) FetchSheet(_ context.Context, _, _ string) ([][]string, error) {
	return m.sheetRows, m.err
}

func (m *mockRelay) FetchDriveFile(_ context.Context, fileRef string) (domain.DriveFile, error) {
	return domain.DriveFile{ID: fileRef, Name: "report.txt", MimeType: "text/plain", Content: "hello"}, m.err
}

func (m *mockRelay) WriteDocument(_ context.Context, _, markdown string) error {
	m.mu.Lock()
	m.docWrites = append(m.docWrites, markdown)
	m.mu.Unlock()
	return m.err
}

func (m *mockRelay) WriteSheet(_ context.Context, _, _ string, rows [][]string) error {
	m.mu.Lock()
	m.sheetWrites = append(m.sheetWrites, rows)
	m.mu.Unlock()
	return m.err
}

func (m *mockRelay) ListSheetNames(_ context.Context, _ string) ([]string, error) {
	return m.names, m.err
}

func newTestSyncTool(relay *mockRelay) (*SyncTool, *canvas.Ops) {
	logger := toolTestLogger()
	store := canvas.NewStore(domain.CanvasState{}, nil)
	ops := canvas.NewOps(store, canvas.NewUIStore(), nil, logger)
	engine := syncer.NewEngine(ops, relay, nil, logger, 0)
	importer := syncer.NewImporter(ops, nil, logger)
	return NewSyncTool(engine, importer, 100, logger), ops
}

func TestSyncToolSchema(t *testing.T) {
	st, _ := newTestSyncTool(&mockRelay{})
	schema := st.Schema()
	if schema.Name != "sync" {
		t.Errorf("Schema().Name = %q, want %q", schema.Name, "sync")
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(schema.Parameters, &parsed); err != nil {
		t.Errorf("Schema().Parameters is not valid JSON: %v", err)
	}
}

func TestSyncToolLinkSheetRequiresID(t *testing.T) {
	st, _ := newTestSyncTool(&mockRelay{})
	content, isErr := execTool(t, st, map[string]string{"action": "link_sheet"})
	if !isErr {
		t.Errorf("link_sheet without sheet_id should error, got %s", content)
	}
}

func TestSyncToolLinkSheetExports(t *testing.T) {
	relay := &mockRelay{}
	st, ops := newTestSyncTool(relay)
	ops.CreateItem(domain.ItemTypeDocument, "Notes")

	content, isErr := execTool(t, st, map[string]string{"action": "link_sheet", "sheet_id": "sheet-1"})
	if isErr {
		t.Fatalf("link_sheet failed: %s", content)
	}
	state := ops.Store().State()
	if state.SyncSheetID != "sheet-1" {
		t.Errorf("SyncSheetID = %q", state.SyncSheetID)
	}
	if len(relay.sheetWrites) != 1 {
		t.Fatalf("sheetWrites = %d, want 1", len(relay.sheetWrites))
	}
}

func TestSyncToolExportSheetUnlinked(t *testing.T) {
	st, _ := newTestSyncTool(&mockRelay{})
	content, isErr := execTool(t, st, map[string]string{"action": "export_sheet"})
	if !isErr {
		t.Errorf("export_sheet without a link should error, got %s", content)
	}
}

func TestSyncToolCreateAndLinkSheet(t *testing.T) {
	relay := &mockRelay{}
	st, ops := newTestSyncTool(relay)

	content, isErr := execTool(t, st, map[string]string{"action": "create_and_link_sheet", "title": "My Canvas"})
	if isErr {
		t.Fatalf("create_and_link_sheet failed: %s", content)
	}
	var ref domain.WorkspaceRef
	if err := json.Unmarshal([]byte(content), &ref); err != nil {
		t.Fatalf("unmarshal ref: %v", err)
	}
	if ref.ID != "sheet-new" {
		t.Errorf("ref.ID = %q", ref.ID)
	}
	if ops.Store().State().SyncSheetID != "sheet-new" {
		t.Error("canvas not linked to created sheet")
	}
}

func TestSyncToolUnlinkSheet(t *testing.T) {
	relay := &mockRelay{}
	st, ops := newTestSyncTool(relay)
	ops.SetSyncTarget("sheet-1", "")

	_, isErr := execTool(t, st, map[string]string{"action": "unlink_sheet"})
	if isErr {
		t.Fatal("unlink_sheet errored")
	}
	if ops.Store().State().SyncSheetID != "" {
		t.Error("sheet still linked")
	}
}

func TestSyncToolImportSheetMerge(t *testing.T) {
	relay := &mockRelay{sheetRows: [][]string{
		{"ID", "Type", "Name", "Subtitle", "Content", "Word Count"},
		{"0001", "document", "Agenda", "", "one two", "2"},
	}}
	st, ops := newTestSyncTool(relay)

	content, isErr := execTool(t, st, map[string]string{"action": "import_sheet", "sheet_id": "sheet-1"})
	if isErr {
		t.Fatalf("import_sheet failed: %s", content)
	}
	var out map[string]int
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out["items_imported"] != 1 {
		t.Errorf("items_imported = %d, want 1", out["items_imported"])
	}
	if len(ops.Store().State().Items) != 1 {
		t.Error("item not merged into canvas")
	}
}

func TestSyncToolImportBadMode(t *testing.T) {
	st, _ := newTestSyncTool(&mockRelay{})
	content, isErr := execTool(t, st, map[string]string{
		"action": "import_sheet", "sheet_id": "sheet-1", "mode": "overwrite",
	})
	if !isErr {
		t.Errorf("unknown mode should error, got %s", content)
	}
	if !strings.Contains(content, "import mode") {
		t.Errorf("content = %q, want import mode complaint", content)
	}
}

func TestSyncToolImportDriveFile(t *testing.T) {
	st, ops := newTestSyncTool(&mockRelay{})
	content, isErr := execTool(t, st, map[string]string{"action": "import_drive_file", "file_id": "file-9"})
	if isErr {
		t.Fatalf("import_drive_file failed: %s", content)
	}
	state := ops.Store().State()
	if len(state.Items) != 1 || state.Items[0].Name != "report.txt" {
		t.Errorf("items = %+v", state.Items)
	}
}

func TestSyncToolListSheetNames(t *testing.T) {
	st, _ := newTestSyncTool(&mockRelay{names: []string{"Sheet1", "Archive"}})
	content, isErr := execTool(t, st, map[string]string{"action": "list_sheet_names", "sheet_id": "sheet-1"})
	if isErr {
		t.Fatalf("list_sheet_names failed: %s", content)
	}
	var out map[string][]string
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(out["sheet_names"]) != 2 {
		t.Errorf("sheet_names = %v", out["sheet_names"])
	}
}

func TestSyncToolRelayRateLimited(t *testing.T) {
	logger := toolTestLogger()
	relay := &mockRelay{names: []string{"Sheet1"}}
	store := canvas.NewStore(domain.CanvasState{}, nil)
	ops := canvas.NewOps(store, canvas.NewUIStore(), nil, logger)
	engine := syncer.NewEngine(ops, relay, nil, logger, 0)
	st := NewSyncTool(engine, syncer.NewImporter(ops, nil, logger), 1, logger)

	content, isErr := execTool(t, st, map[string]string{"action": "list_sheet_names", "sheet_id": "s1"})
	if isErr {
		t.Fatalf("first call should pass: %s", content)
	}

	content, isErr = execTool(t, st, map[string]string{"action": "list_sheet_names", "sheet_id": "s1"})
	if !isErr {
		t.Fatal("second call should exceed the relay budget")
	}
	if !strings.Contains(content, "rate limit") {
		t.Errorf("content = %q, want rate limit message", content)
	}
	if !strings.Contains(content, "may succeed on retry") {
		t.Errorf("content = %q, want retryable annotation", content)
	}

	// Local actions stay outside the relay budget.
	content, isErr = execTool(t, st, map[string]string{"action": "unlink_sheet"})
	if isErr {
		t.Errorf("unlink_sheet should not be rate limited: %s", content)
	}
}

func TestSyncToolImportRecordsItemCount(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	relay := &mockRelay{sheetRows: [][]string{
		{"ID", "Type", "Name", "Subtitle", "Content", "Word Count"},
		{"0001", "document", "Notes", "", "hello world", "2"},
	}}
	st, _ := newTestSyncTool(relay)

	content, isErr := execTool(t, st, map[string]string{"action": "import_sheet", "sheet_id": "s1"})
	if isErr {
		t.Fatalf("import_sheet failed: %s", content)
	}

	var found bool
	for _, span := range sr.Ended() {
		if span.Name() != "tool.sync" {
			continue
		}
		for _, attr := range span.Attributes() {
			if attr.Key == "sync.items_imported" {
				found = true
				if attr.Value.AsInt64() != 1 {
					t.Errorf("sync.items_imported = %d, want 1", attr.Value.AsInt64())
				}
			}
		}
	}
	if !found {
		t.Error("tool.sync span missing sync.items_imported attribute")
	}
}

var _ domain.WorkspaceRelay = (*mockRelay)(nil)
