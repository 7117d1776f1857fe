package syncer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

// Engine owns the canvas-to-workspace reconciliation: it watches the
// store and exports the linked sheet after a debounce quiet period, and
// serves the manual export/import paths. Export never mutates local
// state on failure; the canvas always stays at its last-good snapshot.
type Engine struct {
	ops    *canvas.Ops
	relay  domain.WorkspaceRelay
	bus    domain.EventBus
	logger *slog.Logger
	deb    *Debouncer
	unsub  func()
}

// NewEngine wires the sync engine. debounce <= 0 falls back to
// DefaultDebounce.
func NewEngine(ops *canvas.Ops, relay domain.WorkspaceRelay, bus domain.EventBus, logger *slog.Logger, debounce time.Duration) *Engine {
	e := &Engine{
		ops:    ops,
		relay:  relay,
		bus:    bus,
		logger: logger,
	}
	e.deb = NewDebouncer(debounce, e.exportLatest)
	return e
}

// Start subscribes to store changes. Every change while a sheet is
// linked re-arms the debounce timer; when it fires, the snapshot current
// at that moment is exported once.
func (e *Engine) Start() {
	e.unsub = e.ops.Store().Subscribe(func(state domain.CanvasState) {
		if state.Linked() {
			e.deb.Trigger()
		}
	})
}

// Stop detaches from the store and cancels any pending export.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.deb.Stop()
}

func (e *Engine) exportLatest() {
	state := e.ops.Store().State()
	if !state.Linked() {
		return
	}
	if err := e.ExportSheet(context.Background()); err != nil {
		e.logger.Error("debounced sheet export failed", "sheet_id", state.SyncSheetID, "error", err)
	}
}

// ExportSheet writes the current snapshot to the linked sheet. Fails
// before any network call when no sheet is linked.
func (e *Engine) ExportSheet(ctx context.Context) error {
	state := e.ops.Store().State()
	if !state.Linked() {
		return domain.NewSubSystemError("sheet", "export_sheet", domain.ErrInvalidInput, "no sheet linked")
	}

	e.publish(ctx, domain.EventSyncStarted, syncEventPayload{Target: state.SyncSheetID, Items: len(state.Items)})

	if err := e.relay.WriteSheet(ctx, state.SyncSheetID, state.SyncSheetName, SheetRows(state)); err != nil {
		wrapped := domain.NewSubSystemError("sheet", "export_sheet", err, "")
		e.publish(ctx, domain.EventSyncFailed, syncEventPayload{Target: state.SyncSheetID, Error: wrapped.Error()})
		return wrapped
	}

	e.publish(ctx, domain.EventSyncCompleted, syncEventPayload{Target: state.SyncSheetID, Items: len(state.Items)})
	e.logger.Info("canvas exported to sheet", "sheet_id", state.SyncSheetID, "items", len(state.Items))
	return nil
}

// LinkSheet binds the canvas to an existing sheet and exports once
// immediately.
func (e *Engine) LinkSheet(ctx context.Context, sheetRef, sheetName string) error {
	if sheetRef == "" {
		return domain.NewSubSystemError("sheet", "link_sheet", domain.ErrInvalidInput, "sheet id required")
	}
	e.ops.SetSyncTarget(sheetRef, sheetName)
	// The link transition itself arms the debouncer; the immediate
	// export below already carries this snapshot.
	e.deb.Stop()
	e.publish(ctx, domain.EventSheetLinked, syncEventPayload{Target: sheetRef})
	return e.ExportSheet(ctx)
}

// CreateAndLinkSheet creates a fresh sheet, binds to it and exports once
// immediately.
func (e *Engine) CreateAndLinkSheet(ctx context.Context, title string) (domain.WorkspaceRef, error) {
	if title == "" {
		title = "Canvas Export"
	}
	ref, err := e.relay.CreateSpreadsheet(ctx, title)
	if err != nil {
		return domain.WorkspaceRef{}, domain.NewSubSystemError("sheet", "create_sheet", err, "")
	}
	if err := e.LinkSheet(ctx, ref.ID, ""); err != nil {
		return ref, err
	}
	return ref, nil
}

// UnlinkSheet drops the sync target and cancels any pending export.
func (e *Engine) UnlinkSheet(ctx context.Context) {
	state := e.ops.Store().State()
	e.ops.ClearSyncTarget()
	e.deb.Stop()
	e.publish(ctx, domain.EventSheetUnlinked, syncEventPayload{Target: state.SyncSheetID})
}

// ListSheetNames returns the tab names of a spreadsheet.
func (e *Engine) ListSheetNames(ctx context.Context, sheetRef string) ([]string, error) {
	if sheetRef == "" {
		return nil, domain.NewSubSystemError("sheet", "list_sheet_names", domain.ErrInvalidInput, "sheet id required")
	}
	names, err := e.relay.ListSheetNames(ctx, sheetRef)
	if err != nil {
		return nil, domain.NewSubSystemError("sheet", "list_sheet_names", err, "")
	}
	return names, nil
}

// ExportDocument writes the whole canvas as markdown to an existing
// document.
func (e *Engine) ExportDocument(ctx context.Context, docRef string) error {
	if docRef == "" {
		return domain.NewSubSystemError("document", "export_document", domain.ErrInvalidInput, "document id required")
	}
	state := e.ops.Store().State()

	e.publish(ctx, domain.EventSyncStarted, syncEventPayload{Target: docRef, Items: len(state.Items)})
	if err := e.relay.WriteDocument(ctx, docRef, CanvasMarkdown(state)); err != nil {
		wrapped := domain.NewSubSystemError("document", "export_document", err, "")
		e.publish(ctx, domain.EventSyncFailed, syncEventPayload{Target: docRef, Error: wrapped.Error()})
		return wrapped
	}
	e.publish(ctx, domain.EventSyncCompleted, syncEventPayload{Target: docRef, Items: len(state.Items)})
	return nil
}

// CreateDocumentExport creates a fresh document holding the whole canvas
// as markdown.
func (e *Engine) CreateDocumentExport(ctx context.Context) (domain.WorkspaceRef, error) {
	state := e.ops.Store().State()
	title := state.GlobalTitle
	if title == "" {
		title = "Canvas Export"
	}
	ref, err := e.relay.CreateDocument(ctx, EnsureGdocTitle(title), CanvasMarkdown(state))
	if err != nil {
		return domain.WorkspaceRef{}, domain.NewSubSystemError("document", "create_document", err, "")
	}
	return ref, nil
}

// ExportItem writes one item's content to its own document: updating the
// document already bound to the item, or creating one and recording its
// id on the item.
func (e *Engine) ExportItem(ctx context.Context, itemID string) (domain.WorkspaceRef, error) {
	state := e.ops.Store().State()
	idx := state.FindItem(itemID)
	if idx < 0 {
		return domain.WorkspaceRef{}, domain.NewSubSystemError("canvas", "export_item", domain.ErrNotFound, "item "+itemID)
	}
	item := state.Items[idx]

	if d, ok := item.Document(); ok && d.GoogleDocsID != "" {
		if err := e.relay.WriteDocument(ctx, d.GoogleDocsID, ItemMarkdown(item)); err != nil {
			return domain.WorkspaceRef{}, domain.NewSubSystemError("document", "export_item", err, "")
		}
		return domain.WorkspaceRef{ID: d.GoogleDocsID}, nil
	}

	title := item.Name
	if title == "" {
		title = "Untitled Document"
	}
	ref, err := e.relay.CreateDocument(ctx, EnsureGdocTitle(title), ItemMarkdown(item))
	if err != nil {
		return domain.WorkspaceRef{}, domain.NewSubSystemError("document", "export_item", err, "")
	}
	e.ops.SetDocsRef(itemID, ref.ID)
	return ref, nil
}

// ImportDocument fetches a document, converts it and applies the
// requested import policy through the importer. Returns how many items
// landed on the canvas (zero when a conflicting replace was declined).
func (e *Engine) ImportDocument(ctx context.Context, im *Importer, docRef string, mode ImportMode, sectioned bool) (int, error) {
	if docRef == "" {
		return 0, domain.NewSubSystemError("document", "import_document", domain.ErrInvalidInput, "document id required")
	}
	doc, err := e.relay.FetchDocument(ctx, docRef)
	if err != nil {
		return 0, domain.NewSubSystemError("document", "import_document", err, "")
	}

	if mode == ImportReplace && !sectioned {
		next := DocCanvas(doc, docRef)
		replaced, err := im.Replace(ctx, next)
		if err != nil {
			return 0, err
		}
		if !replaced {
			return 0, nil
		}
		e.publish(ctx, domain.EventImported, syncEventPayload{Target: docRef, Items: len(next.Items)})
		return len(next.Items), nil
	}

	items := DocItems(doc, docRef, sectioned)
	n, err := im.Apply(ctx, mode, items, "Canvas: "+doc.Title)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.publish(ctx, domain.EventImported, syncEventPayload{Target: docRef, Items: n})
	}
	return n, nil
}

// ImportSheet fetches sheet rows, converts them and applies the
// requested import policy. The replace path carries the legacy full-sheet
// semantics and is therefore subject to the conflict guard.
func (e *Engine) ImportSheet(ctx context.Context, im *Importer, sheetRef, sheetName string, mode ImportMode) (int, error) {
	if sheetRef == "" {
		return 0, domain.NewSubSystemError("sheet", "import_sheet", domain.ErrInvalidInput, "sheet id required")
	}
	rows, err := e.relay.FetchSheet(ctx, sheetRef, sheetName)
	if err != nil {
		return 0, domain.NewSubSystemError("sheet", "import_sheet", err, "")
	}

	items := SheetItems(rows)
	title := "Imported Sheet"
	if sheetName != "" {
		title = "Canvas: " + sheetName
	}
	n, err := im.Apply(ctx, mode, items, title)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.publish(ctx, domain.EventImported, syncEventPayload{Target: sheetRef, Items: n})
	}
	return n, nil
}

// ImportDriveFile fetches one stored file and merges it as a single
// document item. Always additive.
func (e *Engine) ImportDriveFile(ctx context.Context, im *Importer, fileRef string) (int, error) {
	if fileRef == "" {
		return 0, domain.NewSubSystemError("document", "import_drive_file", domain.ErrInvalidInput, "file id required")
	}
	file, err := e.relay.FetchDriveFile(ctx, fileRef)
	if err != nil {
		return 0, domain.NewSubSystemError("document", "import_drive_file", err, "")
	}
	n := im.Merge([]domain.Item{DriveItem(file)})
	e.publish(ctx, domain.EventImported, syncEventPayload{Target: fileRef, Items: n})
	return n, nil
}

type syncEventPayload struct {
	Target string `json:"target,omitempty"`
	Items  int    `json:"items,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (e *Engine) publish(ctx context.Context, typ domain.EventType, payload syncEventPayload) {
	if e.bus == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	e.bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		SessionID: domain.SessionIDFromContext(ctx),
		Payload:   raw,
	})
}
