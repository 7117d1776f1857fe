package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"canvasd/internal/domain"
	"canvasd/internal/infra/tracer"
	"canvasd/internal/usecase/syncer"
)

// SyncTool exposes the export/import merge logic to the remote agent.
// Import carries an explicit mode parameter: "merge" appends with fresh
// ids, "replace" swaps the whole snapshot and is subject to the
// format-conflict guard.
type SyncTool struct {
	engine       *syncer.Engine
	importer     *syncer.Importer
	logger       *slog.Logger
	relayLimiter *RateLimiter
}

// NewSyncTool creates the sync tool over the sync engine and importer.
// maxRelayPerMinute caps relay-facing actions per sliding minute.
func NewSyncTool(engine *syncer.Engine, importer *syncer.Importer, maxRelayPerMinute int, logger *slog.Logger) *SyncTool {
	return &SyncTool{
		engine:       engine,
		importer:     importer,
		logger:       logger,
		relayLimiter: NewRateLimiter(maxRelayPerMinute, time.Minute),
	}
}

// allowRelay gates every action that reaches the workspace relay. The
// unlink action is local and stays outside the budget.
func (t *SyncTool) allowRelay(op string) error {
	if !t.relayLimiter.Allow() {
		return domain.NewSubSystemError("sync", op, domain.ErrRateLimit, "relay call budget exhausted")
	}
	return nil
}

func (t *SyncTool) Name() string { return "sync" }
func (t *SyncTool) Description() string {
	return "Link the canvas to an external spreadsheet, export the canvas to " +
		"sheets or documents, and import external documents, sheets and drive " +
		"files. Imports default to non-destructive merge; pass mode \"replace\" " +
		"to swap the whole canvas (a conflicting replace asks the operator first)."
}

func (t *SyncTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {
					"type": "string",
					"enum": ["link_sheet", "create_and_link_sheet", "unlink_sheet", "export_sheet", "export_document", "create_document_export", "export_item", "import_document", "import_sheet", "import_drive_file", "list_sheet_names"],
					"description": "The sync action to perform"
				},
				"sheet_id": {
					"type": "string",
					"description": "Spreadsheet id or full URL"
				},
				"sheet_name": {
					"type": "string",
					"description": "Spreadsheet tab name (default tab when empty)"
				},
				"doc_id": {
					"type": "string",
					"description": "Document id or full URL"
				},
				"file_id": {
					"type": "string",
					"description": "Drive file id for import_drive_file"
				},
				"item_id": {
					"type": "string",
					"description": "Item id for export_item"
				},
				"title": {
					"type": "string",
					"description": "Title for create_and_link_sheet"
				},
				"mode": {
					"type": "string",
					"enum": ["merge", "replace"],
					"description": "Import policy (default: merge)"
				},
				"sectioned": {
					"type": "boolean",
					"description": "Split an imported document into titled sections"
				}
			},
			"required": ["action"]
		}`),
	}
}

type syncParams struct {
	Action    string `json:"action"`
	SheetID   string `json:"sheet_id,omitempty"`
	SheetName string `json:"sheet_name,omitempty"`
	DocID     string `json:"doc_id,omitempty"`
	FileID    string `json:"file_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Sectioned bool   `json:"sectioned,omitempty"`
}

func (t *SyncTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.sync", t.logger, params,
		Dispatch(func(p syncParams) string { return p.Action }, ActionMap[syncParams]{
			"link_sheet":             t.linkSheet,
			"create_and_link_sheet":  t.createAndLinkSheet,
			"unlink_sheet":           t.unlinkSheet,
			"export_sheet":           t.exportSheet,
			"export_document":        t.exportDocument,
			"create_document_export": t.createDocumentExport,
			"export_item":            t.exportItem,
			"import_document":        t.importDocument,
			"import_sheet":           t.importSheet,
			"import_drive_file":      t.importDriveFile,
			"list_sheet_names":       t.listSheetNames,
		}),
	)
}

func (t *SyncTool) linkSheet(ctx context.Context, p syncParams) (any, error) {
	if p.SheetID == "" {
		return ErrResult("sheet_id is required")
	}
	if err := t.allowRelay("link_sheet"); err != nil {
		return nil, err
	}
	if err := t.engine.LinkSheet(ctx, p.SheetID, p.SheetName); err != nil {
		return nil, err
	}
	return TextResult("sheet linked and canvas exported"), nil
}

func (t *SyncTool) createAndLinkSheet(ctx context.Context, p syncParams) (any, error) {
	if err := t.allowRelay("create_and_link_sheet"); err != nil {
		return nil, err
	}
	ref, err := t.engine.CreateAndLinkSheet(ctx, p.Title)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (t *SyncTool) unlinkSheet(ctx context.Context, _ syncParams) (any, error) {
	t.engine.UnlinkSheet(ctx)
	return TextResult("sheet unlinked"), nil
}

func (t *SyncTool) exportSheet(ctx context.Context, _ syncParams) (any, error) {
	if err := t.allowRelay("export_sheet"); err != nil {
		return nil, err
	}
	if err := t.engine.ExportSheet(ctx); err != nil {
		return nil, err
	}
	return TextResult("canvas exported to linked sheet"), nil
}

func (t *SyncTool) exportDocument(ctx context.Context, p syncParams) (any, error) {
	if p.DocID == "" {
		return ErrResult("doc_id is required")
	}
	if err := t.allowRelay("export_document"); err != nil {
		return nil, err
	}
	if err := t.engine.ExportDocument(ctx, p.DocID); err != nil {
		return nil, err
	}
	return TextResult("canvas exported to document"), nil
}

func (t *SyncTool) createDocumentExport(ctx context.Context, _ syncParams) (any, error) {
	if err := t.allowRelay("create_document_export"); err != nil {
		return nil, err
	}
	ref, err := t.engine.CreateDocumentExport(ctx)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (t *SyncTool) exportItem(ctx context.Context, p syncParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	if err := t.allowRelay("export_item"); err != nil {
		return nil, err
	}
	ref, err := t.engine.ExportItem(ctx, p.ItemID)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (t *SyncTool) importDocument(ctx context.Context, p syncParams) (any, error) {
	if p.DocID == "" {
		return ErrResult("doc_id is required")
	}
	mode, err := syncer.ParseImportMode(p.Mode)
	if err != nil {
		return nil, err
	}
	if err := t.allowRelay("import_document"); err != nil {
		return nil, err
	}
	n, err := t.engine.ImportDocument(ctx, t.importer, p.DocID, mode, p.Sectioned)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(tracer.IntAttr("sync.items_imported", n))
	if n == 0 && mode == syncer.ImportReplace {
		return TextResult("replace declined, canvas unchanged"), nil
	}
	return map[string]int{"items_imported": n}, nil
}

func (t *SyncTool) importSheet(ctx context.Context, p syncParams) (any, error) {
	if p.SheetID == "" {
		return ErrResult("sheet_id is required")
	}
	mode, err := syncer.ParseImportMode(p.Mode)
	if err != nil {
		return nil, err
	}
	if err := t.allowRelay("import_sheet"); err != nil {
		return nil, err
	}
	n, err := t.engine.ImportSheet(ctx, t.importer, p.SheetID, p.SheetName, mode)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(tracer.IntAttr("sync.items_imported", n))
	if n == 0 && mode == syncer.ImportReplace {
		return TextResult("replace declined, canvas unchanged"), nil
	}
	return map[string]int{"items_imported": n}, nil
}

func (t *SyncTool) importDriveFile(ctx context.Context, p syncParams) (any, error) {
	if p.FileID == "" {
		return ErrResult("file_id is required")
	}
	if err := t.allowRelay("import_drive_file"); err != nil {
		return nil, err
	}
	n, err := t.engine.ImportDriveFile(ctx, t.importer, p.FileID)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(tracer.IntAttr("sync.items_imported", n))
	return map[string]int{"items_imported": n}, nil
}

func (t *SyncTool) listSheetNames(ctx context.Context, p syncParams) (any, error) {
	if p.SheetID == "" {
		return ErrResult("sheet_id is required")
	}
	if err := t.allowRelay("list_sheet_names"); err != nil {
		return nil, err
	}
	names, err := t.engine.ListSheetNames(ctx, p.SheetID)
	if err != nil {
		return nil, err
	}
	return map[string][]string{"sheet_names": names}, nil
}

var _ domain.Tool = (*SyncTool)(nil)
