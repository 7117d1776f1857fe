package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

// Canvas content limits.
const (
	maxDocumentContentSize = 512 * 1024 // 512KB
	maxItemNameLen         = 256
)

// CanvasTool exposes the canvas mutation catalog to the remote agent.
// Every action maps 1:1 to a reducer; results return synchronously.
type CanvasTool struct {
	ops    *canvas.Ops
	bus    domain.EventBus
	logger *slog.Logger
}

// NewCanvasTool creates the canvas tool over the mutation catalog.
func NewCanvasTool(ops *canvas.Ops, bus domain.EventBus, logger *slog.Logger) *CanvasTool {
	return &CanvasTool{ops: ops, bus: bus, logger: logger}
}

func (t *CanvasTool) Name() string { return "canvas" }
func (t *CanvasTool) Description() string {
	return "Read and mutate the shared canvas: create, rename and delete items, " +
		"edit document content, and set the canvas title and description. " +
		"Always read the current state before deciding the next mutation."
}

func (t *CanvasTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {
					"type": "string",
					"enum": ["create_item", "rename_item", "set_item_subtitle", "set_document_content", "append_document_content", "clear_document_content", "delete_item", "set_global_title", "set_global_description", "read_state", "list_items"],
					"description": "The canvas action to perform"
				},
				"item_id": {
					"type": "string",
					"description": "Target item id (e.g. 0001)"
				},
				"item_type": {
					"type": "string",
					"description": "Item type for create_item (default: document)"
				},
				"name": {
					"type": "string",
					"description": "Item name for create_item/rename_item"
				},
				"subtitle": {
					"type": "string",
					"description": "Subtitle for set_item_subtitle"
				},
				"content": {
					"type": "string",
					"description": "Document content for set/append actions"
				},
				"with_newline": {
					"type": "boolean",
					"description": "Prefix appended content with a newline"
				},
				"text": {
					"type": "string",
					"description": "Text for set_global_title/set_global_description"
				}
			},
			"required": ["action"]
		}`),
	}
}

type canvasParams struct {
	Action      string `json:"action"`
	ItemID      string `json:"item_id,omitempty"`
	ItemType    string `json:"item_type,omitempty"`
	Name        string `json:"name,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Content     string `json:"content,omitempty"`
	WithNewline bool   `json:"with_newline,omitempty"`
	Text        string `json:"text,omitempty"`
}

func (t *CanvasTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.canvas", t.logger, params,
		Dispatch(func(p canvasParams) string { return p.Action }, ActionMap[canvasParams]{
			"create_item":             t.createItem,
			"rename_item":             t.renameItem,
			"set_item_subtitle":       t.setSubtitle,
			"set_document_content":    t.setContent,
			"append_document_content": t.appendContent,
			"clear_document_content":  t.clearContent,
			"delete_item":             t.deleteItem,
			"set_global_title":        t.setGlobalTitle,
			"set_global_description":  t.setGlobalDescription,
			"read_state":              t.readState,
			"list_items":              t.listItems,
		}),
	)
}

func (t *CanvasTool) createItem(ctx context.Context, p canvasParams) (any, error) {
	if len(p.Name) > maxItemNameLen {
		return ErrResult("name too long (max %d characters)", maxItemNameLen)
	}
	typ := domain.ItemType(p.ItemType)
	if typ == "" {
		typ = domain.ItemTypeDocument
	}

	id := t.ops.CreateItem(typ, p.Name)
	PublishToolEvent(ctx, t.bus, domain.EventItemCreated, map[string]string{
		"item_id": id,
		"type":    string(typ),
	})
	return map[string]string{"item_id": id}, nil
}

func (t *CanvasTool) renameItem(_ context.Context, p canvasParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	if len(p.Name) > maxItemNameLen {
		return ErrResult("name too long (max %d characters)", maxItemNameLen)
	}
	t.ops.RenameItem(p.ItemID, p.Name)
	return TextResult("renamed " + p.ItemID), nil
}

func (t *CanvasTool) setSubtitle(_ context.Context, p canvasParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	t.ops.SetItemSubtitle(p.ItemID, p.Subtitle)
	return TextResult("subtitle set on " + p.ItemID), nil
}

func (t *CanvasTool) setContent(_ context.Context, p canvasParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	if len(p.Content) > maxDocumentContentSize {
		return ErrResult("content exceeds %d bytes", maxDocumentContentSize)
	}
	t.ops.SetContent(p.ItemID, p.Content)
	return TextResult("content set on " + p.ItemID), nil
}

func (t *CanvasTool) appendContent(_ context.Context, p canvasParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	if len(p.Content) > maxDocumentContentSize {
		return ErrResult("content exceeds %d bytes", maxDocumentContentSize)
	}
	t.ops.AppendContent(p.ItemID, p.Content, p.WithNewline)
	return TextResult("content appended to " + p.ItemID), nil
}

func (t *CanvasTool) clearContent(_ context.Context, p canvasParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	t.ops.ClearContent(p.ItemID)
	return TextResult("content cleared on " + p.ItemID), nil
}

func (t *CanvasTool) deleteItem(ctx context.Context, p canvasParams) (any, error) {
	if p.ItemID == "" {
		return ErrResult("item_id is required")
	}
	tag := t.ops.DeleteItem(p.ItemID)
	PublishToolEvent(ctx, t.bus, domain.EventItemDeleted, map[string]string{
		"item_id": p.ItemID,
		"outcome": tag,
	})
	// The tag distinguishes "just removed" from "already gone".
	return map[string]string{"outcome": tag}, nil
}

func (t *CanvasTool) setGlobalTitle(_ context.Context, p canvasParams) (any, error) {
	t.ops.SetGlobalTitle(p.Text)
	return TextResult("global title set"), nil
}

func (t *CanvasTool) setGlobalDescription(_ context.Context, p canvasParams) (any, error) {
	t.ops.SetGlobalDescription(p.Text)
	return TextResult("global description set"), nil
}

func (t *CanvasTool) readState(_ context.Context, _ canvasParams) (any, error) {
	return t.ops.Store().State().Project(), nil
}

type itemSummary struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Subtitle  string `json:"subtitle,omitempty"`
	WordCount int    `json:"word_count"`
}

func (t *CanvasTool) listItems(_ context.Context, _ canvasParams) (any, error) {
	state := t.ops.Store().State()
	out := make([]itemSummary, 0, len(state.Items))
	for _, item := range state.Items {
		s := itemSummary{
			ID:       item.ID,
			Type:     string(item.Type),
			Name:     item.Name,
			Subtitle: item.Subtitle,
		}
		if d, ok := item.Document(); ok {
			s.WordCount = d.WordCount
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return TextResult("canvas is empty"), nil
	}
	return out, nil
}

var _ domain.Tool = (*CanvasTool)(nil)
