package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

// ImportMode selects which of the two import policies applies. The two
// are reachable from similar caller actions on purpose, so the mode is
// an explicit parameter rather than an inferred default.
type ImportMode string

const (
	// ImportMerge appends converted items with freshly allocated ids.
	ImportMerge ImportMode = "merge"
	// ImportReplace swaps the whole snapshot for the converted result,
	// subject to the conflict guard.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode validates a caller-supplied mode string. Empty defaults
// to merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", domain.NewDomainError("parse_import_mode", domain.ErrInvalidInput,
			fmt.Sprintf("unknown import mode %q", s))
	}
}

// ConflictDecider resolves the destructive-replace conflict: both the
// local canvas and the incoming source hold items, and one set must win.
// Implementations block until the operator answers or ctx is done.
type ConflictDecider interface {
	// ConfirmReplace returns true to discard local state in favor of the
	// incoming items, false to keep local state.
	ConfirmReplace(ctx context.Context, localItems, incomingItems int) (bool, error)
}

// ChoiceConflictDecider asks through the disambiguation channel. A
// cancelled choice keeps local state.
type ChoiceConflictDecider struct {
	Requester domain.ChoiceRequester
}

func (d ChoiceConflictDecider) ConfirmReplace(ctx context.Context, localItems, incomingItems int) (bool, error) {
	value, err := d.Requester.RequestChoice(ctx, domain.ChoiceRequest{
		ID:   ulid.Make().String(),
		Kind: domain.ChoiceReplaceConfirm,
		Prompt: fmt.Sprintf("Importing replaces %d local items with %d imported items. Replace or keep?",
			localItems, incomingItems),
		Options: []string{"replace", "keep"},
	})
	if err != nil {
		return false, err
	}
	return value == "replace", nil
}

// Importer applies converted external items to the canvas under one of
// the two import policies.
type Importer struct {
	ops     *canvas.Ops
	decider ConflictDecider
	logger  *slog.Logger
}

// NewImporter wires the importer. decider may be nil, in which case a
// conflicting replace is refused outright.
func NewImporter(ops *canvas.Ops, decider ConflictDecider, logger *slog.Logger) *Importer {
	return &Importer{ops: ops, decider: decider, logger: logger}
}

// Merge appends the items with freshly allocated ids and returns how many
// were added. Existing items are never touched.
func (im *Importer) Merge(items []domain.Item) int {
	n := im.ops.MergeItems(items)
	im.logger.Info("items merged into canvas", "count", n)
	return n
}

// Replace swaps the snapshot for next. When both the local canvas and
// next hold items, the conflict decider is consulted first; a "keep"
// answer leaves local state untouched and returns false.
func (im *Importer) Replace(ctx context.Context, next domain.CanvasState) (bool, error) {
	local := im.ops.Store().State()
	if len(local.Items) > 0 && len(next.Items) > 0 {
		if im.decider == nil {
			return false, domain.NewDomainError("import_replace", domain.ErrInvalidInput,
				"replace would discard local items and no conflict decider is configured")
		}
		replace, err := im.decider.ConfirmReplace(ctx, len(local.Items), len(next.Items))
		if err != nil {
			return false, domain.WrapOp("import_replace", err)
		}
		if !replace {
			im.logger.Info("replace import declined, local canvas kept",
				"local_items", len(local.Items), "incoming_items", len(next.Items))
			return false, nil
		}
	}

	im.ops.ReplaceAll(next)
	im.logger.Info("canvas replaced from import", "items", len(next.Items))
	return true, nil
}

// Apply runs the requested policy over the converted items. For replace,
// the incoming state is built from the items with a fresh counter.
func (im *Importer) Apply(ctx context.Context, mode ImportMode, items []domain.Item, title string) (int, error) {
	switch mode {
	case ImportReplace:
		next := domain.CanvasState{
			Items:        items,
			GlobalTitle:  title,
			ItemsCreated: len(items),
			LastAction:   domain.ActionImported(len(items)),
		}
		replaced, err := im.Replace(ctx, next)
		if err != nil {
			return 0, err
		}
		if !replaced {
			return 0, nil
		}
		return len(items), nil
	default:
		return im.Merge(items), nil
	}
}
