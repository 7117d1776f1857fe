package canvas

import (
	"log/slog"
	"time"

	"canvasd/internal/domain"
)

// Ops is the mutation catalog over the Store. Every method builds its
// effect as a pure reducer over the previous snapshot and commits it
// through the store's single functional-update entry point.
//
// Operations targeting a missing item id are silent no-ops (delete records
// a not_found tag instead). A remote agent may legitimately reference an
// id the operator has already removed.
type Ops struct {
	store  *Store
	ui     *UIStore
	guard  *CreateGuard
	logger *slog.Logger
	now    func() time.Time // injectable for tests
}

// NewOps wires the mutation catalog. ui and guard may be nil.
func NewOps(store *Store, ui *UIStore, guard *CreateGuard, logger *slog.Logger) *Ops {
	return &Ops{
		store:  store,
		ui:     ui,
		guard:  guard,
		logger: logger,
		now:    time.Now,
	}
}

// Store exposes the underlying state store for read access and subscription.
func (o *Ops) Store() *Store { return o.store }

// CreateItem allocates an id, appends an item with a default payload, and
// returns the new id. When the idempotency guard is armed and recognizes
// the (type, name) pair, the prior item's id is returned without creating
// anything.
func (o *Ops) CreateItem(typ domain.ItemType, name string) string {
	if o.guard != nil {
		if id, ok := o.guard.Existing(o.store.State(), typ, name); ok {
			o.logger.Debug("create suppressed by guard", "type", string(typ), "name", name, "id", id)
			return id
		}
	}

	var created string
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		id, next := domain.NextItemID(s.Items, s.ItemsCreated)
		created = id
		item := domain.Item{ID: id, Type: typ, Name: name}
		if typ == domain.ItemTypeDocument {
			item.Data = domain.NewDocumentData(o.now())
		}
		s.Items = append(s.Items, item)
		s.ItemsCreated = next
		s.LastAction = domain.ActionCreated(id)
		return s
	})

	if o.guard != nil {
		o.guard.Record(typ, name, created)
	}
	o.logger.Debug("item created", "id", created, "type", string(typ))
	return created
}

// RenameItem replaces the item's display name. Silent no-op when the id
// is not found.
func (o *Ops) RenameItem(itemID, name string) {
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		if i := s.FindItem(itemID); i >= 0 {
			s.Items[i].Name = name
		}
		return s
	})
}

// SetItemSubtitle replaces the item's subtitle. Silent no-op when the id
// is not found.
func (o *Ops) SetItemSubtitle(itemID, subtitle string) {
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		if i := s.FindItem(itemID); i >= 0 {
			s.Items[i].Subtitle = subtitle
		}
		return s
	})
}

// SetContent replaces a document item's content, refreshing the derived
// word count and modification timestamp.
func (o *Ops) SetContent(itemID, content string) {
	o.mutateDocument(itemID, func(d domain.DocumentData) domain.DocumentData {
		return d.WithContent(content, o.now())
	})
}

// AppendContent concatenates text onto a document item's content,
// prefixed with a newline when requested.
func (o *Ops) AppendContent(itemID, text string, withNewline bool) {
	o.mutateDocument(itemID, func(d domain.DocumentData) domain.DocumentData {
		next := d.Content
		if withNewline {
			next += "\n"
		}
		next += text
		return d.WithContent(next, o.now())
	})
}

// ClearContent empties a document item's content.
func (o *Ops) ClearContent(itemID string) {
	o.SetContent(itemID, "")
}

// SetDocsRef records the external document linked to an item.
func (o *Ops) SetDocsRef(itemID, docsID string) {
	o.mutateDocument(itemID, func(d domain.DocumentData) domain.DocumentData {
		d.GoogleDocsID = docsID
		return d
	})
}

func (o *Ops) mutateDocument(itemID string, fn func(domain.DocumentData) domain.DocumentData) {
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		i := s.FindItem(itemID)
		if i < 0 {
			return s
		}
		d, ok := s.Items[i].Document()
		if !ok {
			return s
		}
		s.Items[i].Data = fn(d)
		return s
	})
}

// DeleteItem removes the item if present and returns the recorded action
// tag: deleted:<id> when it existed, not_found:<id> otherwise. Delete is
// idempotent; the tag is how callers distinguish "just removed" from
// "already gone". Item-scoped UI flags are dropped alongside.
func (o *Ops) DeleteItem(itemID string) string {
	var tag string
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		i := s.FindItem(itemID)
		if i < 0 {
			tag = domain.ActionNotFound(itemID)
			s.LastAction = tag
			return s
		}
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		tag = domain.ActionDeleted(itemID)
		s.LastAction = tag
		return s
	})

	if o.ui != nil {
		o.ui.Drop(itemID)
	}
	o.logger.Debug("item delete", "id", itemID, "outcome", tag)
	return tag
}

// SetGlobalTitle replaces the canvas title.
func (o *Ops) SetGlobalTitle(title string) {
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		s.GlobalTitle = title
		return s
	})
}

// SetGlobalDescription replaces the canvas description.
func (o *Ops) SetGlobalDescription(desc string) {
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		s.GlobalDescription = desc
		return s
	})
}

// SetSyncTarget links the canvas to an external spreadsheet. Once linked,
// every state transition schedules a debounced export.
func (o *Ops) SetSyncTarget(sheetID, sheetName string) {
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		s.SyncSheetID = sheetID
		s.SyncSheetName = sheetName
		return s
	})
}

// ClearSyncTarget unlinks the canvas from its spreadsheet.
func (o *Ops) ClearSyncTarget() {
	o.SetSyncTarget("", "")
}

// MergeItems appends imported items with freshly reallocated ids — source
// ids are never reused, so existing local items cannot collide. Returns
// the number of items merged.
func (o *Ops) MergeItems(incoming []domain.Item) int {
	if len(incoming) == 0 {
		return 0
	}
	o.store.Update(func(s domain.CanvasState) domain.CanvasState {
		for _, item := range incoming {
			id, next := domain.NextItemID(s.Items, s.ItemsCreated)
			item.ID = id
			s.Items = append(s.Items, item)
			s.ItemsCreated = next
		}
		s.LastAction = domain.ActionImported(len(incoming))
		return s
	})
	o.logger.Info("items merged", "count", len(incoming))
	return len(incoming)
}

// ReplaceAll swaps in an entirely new snapshot. This is the legacy
// full-sheet import path; callers must run the format-conflict guard
// before reaching for it.
func (o *Ops) ReplaceAll(next domain.CanvasState) {
	o.store.Update(func(prev domain.CanvasState) domain.CanvasState {
		// The counter never goes backwards, even across a replace.
		if next.ItemsCreated < prev.ItemsCreated {
			next.ItemsCreated = prev.ItemsCreated
		}
		return next.Clone()
	})
	o.logger.Info("canvas replaced", "items", len(next.Items))
}
