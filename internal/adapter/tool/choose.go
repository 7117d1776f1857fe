package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

// ChooseItemTool suspends the remote invocation until the operator picks
// one of the current canvas items. An empty value means the operator
// cancelled; that is a normal completion, not an error.
type ChooseItemTool struct {
	ops       *canvas.Ops
	requester domain.ChoiceRequester
	logger    *slog.Logger
}

func NewChooseItemTool(ops *canvas.Ops, requester domain.ChoiceRequester, logger *slog.Logger) *ChooseItemTool {
	return &ChooseItemTool{ops: ops, requester: requester, logger: logger}
}

func (t *ChooseItemTool) Name() string { return "choose_item" }
func (t *ChooseItemTool) Description() string {
	return "Ask the human operator to pick one of the current canvas items. " +
		"Returns the chosen item id, or an empty string if the operator cancelled."
}

func (t *ChooseItemTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {
					"type": "string",
					"description": "Question shown to the operator"
				}
			}
		}`),
	}
}

type chooseParams struct {
	Prompt string `json:"prompt,omitempty"`
}

func (t *ChooseItemTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.choose_item", t.logger, params, func(ctx context.Context, _ trace.Span, p chooseParams) (any, error) {
		state := t.ops.Store().State()
		if len(state.Items) == 0 {
			return ErrResult("canvas is empty, nothing to choose from")
		}
		options := make([]string, 0, len(state.Items))
		for _, item := range state.Items {
			options = append(options, item.ID)
		}
		prompt := p.Prompt
		if prompt == "" {
			prompt = "Which item?"
		}
		value, err := t.requester.RequestChoice(ctx, domain.ChoiceRequest{
			ID:      ulid.Make().String(),
			Kind:    domain.ChoiceItem,
			Prompt:  prompt,
			Options: options,
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"item_id": value}, nil
	})
}

// ChooseCardTypeTool asks the operator to pick an item type for a card
// the remote agent is about to create.
type ChooseCardTypeTool struct {
	requester domain.ChoiceRequester
	logger    *slog.Logger
}

func NewChooseCardTypeTool(requester domain.ChoiceRequester, logger *slog.Logger) *ChooseCardTypeTool {
	return &ChooseCardTypeTool{requester: requester, logger: logger}
}

func (t *ChooseCardTypeTool) Name() string { return "choose_card_type" }
func (t *ChooseCardTypeTool) Description() string {
	return "Ask the human operator to pick a card type for a new item. " +
		"Returns the chosen type, or an empty string if the operator cancelled."
}

func (t *ChooseCardTypeTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {
					"type": "string",
					"description": "Question shown to the operator"
				}
			}
		}`),
	}
}

func (t *ChooseCardTypeTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.choose_card_type", t.logger, params, func(ctx context.Context, _ trace.Span, p chooseParams) (any, error) {
		prompt := p.Prompt
		if prompt == "" {
			prompt = "Which card type?"
		}
		value, err := t.requester.RequestChoice(ctx, domain.ChoiceRequest{
			ID:      ulid.Make().String(),
			Kind:    domain.ChoiceCardType,
			Prompt:  prompt,
			Options: domain.ItemTypeNames(),
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"card_type": value}, nil
	})
}

var (
	_ domain.Tool = (*ChooseItemTool)(nil)
	_ domain.Tool = (*ChooseCardTypeTool)(nil)
)
