package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemType tags the payload variant carried by an Item.
type ItemType string

// ItemTypeDocument is the only variant the running system produces today.
// The model stays open to further variants: unknown tags round-trip as
// RawData and the reducer catalog ignores items whose type it does not handle.
const ItemTypeDocument ItemType = "document"

// ItemTypeNames lists the type tags offered when the operator is asked
// to pick a card type.
func ItemTypeNames() []string {
	return []string{string(ItemTypeDocument)}
}

// minIDWidth is the zero-padding floor for item identifiers ("0007").
// Identifiers grow past four digits naturally once the counter exceeds 9999.
const minIDWidth = 4

// CanvasState is the shared document root. It is a value type: every
// mutation produces a new snapshot, and snapshots are never modified
// after being committed to the store.
type CanvasState struct {
	Items             []Item `json:"items"`
	GlobalTitle       string `json:"globalTitle"`
	GlobalDescription string `json:"globalDescription"`
	// ItemsCreated never decreases, even when items are deleted. It is the
	// basis for identifier allocation.
	ItemsCreated int `json:"itemsCreated"`
	// LastAction is a diagnostic tag describing the most recent mutation.
	// Advisory only; never used for correctness.
	LastAction string `json:"lastAction,omitempty"`
	// SyncSheetID links the canvas to an external spreadsheet. When set,
	// every state transition schedules a debounced export.
	SyncSheetID   string `json:"syncSheetId,omitempty"`
	SyncSheetName string `json:"syncSheetName,omitempty"`
}

// Item is one addressable unit within the canvas.
type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Name     string   `json:"name"`
	Subtitle string   `json:"subtitle,omitempty"`
	Data     ItemData `json:"data"`
}

// ItemData is the type-specific payload of an Item. Concrete payloads are
// selected by the item's Type tag during unmarshaling.
type ItemData interface {
	isItemData()
}

// DocumentData is the payload of ItemTypeDocument items.
// Timestamps are RFC 3339 strings; CreatedAt is set once and never
// overwritten as long as a value exists.
type DocumentData struct {
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt,omitempty"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
	// WordCount is derived from Content and recomputed on every content
	// mutation. It is never allowed to go stale across a mutation boundary.
	WordCount    int    `json:"wordCount"`
	GoogleDocsID string `json:"googleDocsId,omitempty"`

	// Provenance of drive-file imports.
	GoogleDriveID       string `json:"googleDriveId,omitempty"`
	GoogleDriveMimeType string `json:"googleDriveMimeType,omitempty"`
	GoogleDriveLink     string `json:"googleDriveLink,omitempty"`
}

func (DocumentData) isItemData() {}

// RawData preserves payloads of item types this build does not know about.
type RawData json.RawMessage

func (RawData) isItemData() {}

func (r RawData) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(r).MarshalJSON()
}

// UnmarshalJSON dispatches the data payload on the item's type tag.
func (it *Item) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Type     ItemType        `json:"type"`
		Name     string          `json:"name"`
		Subtitle string          `json:"subtitle"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	it.ID = raw.ID
	it.Type = raw.Type
	it.Name = raw.Name
	it.Subtitle = raw.Subtitle

	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		it.Data = nil
		return nil
	}
	switch raw.Type {
	case ItemTypeDocument:
		var d DocumentData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return fmt.Errorf("item %q: decode document data: %w", raw.ID, err)
		}
		it.Data = d
	default:
		it.Data = RawData(append([]byte(nil), raw.Data...))
	}
	return nil
}

// Document returns the item's document payload, or a zero value if the
// item carries a different variant.
func (it Item) Document() (DocumentData, bool) {
	d, ok := it.Data.(DocumentData)
	return d, ok
}

// Clone returns a deep copy of the state. Items hold value-type payloads
// (or immutable RawData), so copying the slice is sufficient.
func (s CanvasState) Clone() CanvasState {
	out := s
	out.Items = make([]Item, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

// FindItem returns the index of the item with the given id, or -1.
func (s CanvasState) FindItem(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Linked reports whether the canvas is bound to an external spreadsheet.
func (s CanvasState) Linked() bool { return s.SyncSheetID != "" }

// Projection is the JSON-serializable view of the canvas exchanged with
// the remote agent and external services.
type Projection struct {
	GlobalTitle       string `json:"globalTitle"`
	GlobalDescription string `json:"globalDescription"`
	Items             []Item `json:"items"`
}

// Project produces the wire/debug view of the state.
func (s CanvasState) Project() Projection {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return Projection{
		GlobalTitle:       s.GlobalTitle,
		GlobalDescription: s.GlobalDescription,
		Items:             items,
	}
}

// CountWords counts whitespace-delimited non-empty tokens in the trimmed
// content. Empty or whitespace-only content counts as zero words.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// WithContent returns a copy of the data with the new content, a refreshed
// modification timestamp and a recomputed word count. CreatedAt is filled
// only if it was empty.
func (d DocumentData) WithContent(content string, now time.Time) DocumentData {
	out := d
	out.Content = content
	out.ModifiedAt = now.UTC().Format(time.RFC3339)
	out.WordCount = CountWords(content)
	if out.CreatedAt == "" {
		out.CreatedAt = out.ModifiedAt
	}
	return out
}

// NewDocumentData builds an empty document payload stamped with now.
func NewDocumentData(now time.Time) DocumentData {
	ts := now.UTC().Format(time.RFC3339)
	return DocumentData{CreatedAt: ts, ModifiedAt: ts}
}

// FormatItemID renders an allocated counter value as a zero-padded
// (minimum four digit) decimal identifier.
func FormatItemID(n int) string {
	return fmt.Sprintf("%0*d", minIDWidth, n)
}

// NextItemID computes the next collision-free identifier. The result is
// always greater than the stored counter and greater than every numeric id
// present in items; malformed ids count as zero rather than failing.
func NextItemID(items []Item, counter int) (id string, next int) {
	highest := counter
	for i := range items {
		if n, err := strconv.Atoi(items[i].ID); err == nil && n > highest {
			highest = n
		}
	}
	next = highest + 1
	return FormatItemID(next), next
}

// Mutation tags recorded in CanvasState.LastAction.
func ActionCreated(id string) string  { return "created:" + id }
func ActionDeleted(id string) string  { return "deleted:" + id }
func ActionNotFound(id string) string { return "not_found:" + id }
func ActionImported(n int) string     { return fmt.Sprintf("imported:%d_documents", n) }
