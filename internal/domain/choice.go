package domain

import "context"

// ChoiceKind identifies what a pending disambiguation asks for.
type ChoiceKind string

const (
	ChoiceItem           ChoiceKind = "item"
	ChoiceCardType       ChoiceKind = "card_type"
	ChoiceReplaceConfirm ChoiceKind = "replace_confirm"
)

// ChoiceRequest is a suspend point: a remote tool invocation that cannot
// proceed without a human decision.
type ChoiceRequest struct {
	ID      string     `json:"id"`
	Kind    ChoiceKind `json:"kind"`
	Prompt  string     `json:"prompt,omitempty"`
	Options []string   `json:"options,omitempty"`
}

// ChoiceResponse carries the operator's answer. By convention an empty
// Value means the interaction was cancelled; Cancelled is derived from
// that so a distinct cancellation signal can be added later without
// changing callers.
type ChoiceResponse struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Cancelled reports whether the response is a cancellation.
func (r ChoiceResponse) Cancelled() bool { return r.Value == "" }

// ChoiceRequester presents a choice to the human operator and blocks the
// calling tool invocation until a response value is supplied, the
// interaction is cancelled, or ctx is done. Cancellation is a non-error
// completion: the returned value is "".
type ChoiceRequester interface {
	RequestChoice(ctx context.Context, req ChoiceRequest) (string, error)
}
