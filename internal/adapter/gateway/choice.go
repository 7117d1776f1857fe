package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"canvasd/internal/domain"
)

// ChoiceBroker implements the suspend point for remote tool calls that
// need a human decision. RequestChoice publishes a choice.requested event
// to the UI and blocks the calling goroutine until the UI answers via the
// choice.resolve RPC, the operator cancels (empty value), or ctx is done.
type ChoiceBroker struct {
	bus    domain.EventBus
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]chan string
}

// NewChoiceBroker creates a broker publishing on the given bus.
func NewChoiceBroker(bus domain.EventBus, logger *slog.Logger) *ChoiceBroker {
	return &ChoiceBroker{
		bus:     bus,
		logger:  logger,
		pending: make(map[string]chan string),
	}
}

// RequestChoice blocks until the operator answers or ctx is done.
// A cancellation arrives as the empty string and is not an error.
func (b *ChoiceBroker) RequestChoice(ctx context.Context, req domain.ChoiceRequest) (string, error) {
	answer := make(chan string, 1)

	b.mu.Lock()
	b.pending[req.ID] = answer
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return "", domain.NewDomainError("request_choice", domain.ErrInvalidInput, err.Error())
	}
	b.bus.Publish(ctx, domain.Event{
		Type:      domain.EventChoiceRequested,
		Timestamp: time.Now(),
		SessionID: domain.SessionIDFromContext(ctx),
		Payload:   payload,
	})

	select {
	case value := <-answer:
		b.publishResolved(ctx, req.ID, value)
		return value, nil
	case <-ctx.Done():
		b.logger.Warn("choice abandoned", "choice_id", req.ID)
		return "", domain.WrapOp("request_choice", domain.ErrCancelled)
	}
}

// Resolve delivers the operator's answer for a pending choice. Returns
// false when no invocation is waiting on the given id.
func (b *ChoiceBroker) Resolve(resp domain.ChoiceResponse) bool {
	b.mu.Lock()
	answer, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	answer <- resp.Value
	return true
}

// PendingCount reports the number of invocations waiting on a choice.
func (b *ChoiceBroker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *ChoiceBroker) publishResolved(ctx context.Context, id, value string) {
	payload, err := json.Marshal(domain.ChoiceResponse{ID: id, Value: value})
	if err != nil {
		return
	}
	b.bus.Publish(ctx, domain.Event{
		Type:      domain.EventChoiceResolved,
		Timestamp: time.Now(),
		SessionID: domain.SessionIDFromContext(ctx),
		Payload:   payload,
	})
}

var _ domain.ChoiceRequester = (*ChoiceBroker)(nil)
