package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"canvasd/internal/domain"
	"canvasd/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerRelay wraps a WorkspaceRelay with circuit breaker protection.
// When the relay fails repeatedly, the circuit opens and subsequent calls
// fail fast without reaching it. The breaker does not retry: failure is
// reported to the caller and local state stays untouched.
type BreakerRelay struct {
	inner   domain.WorkspaceRelay
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewBreakerRelay wraps inner with a circuit breaker. Zero-valued config
// fields fall back to defaults.
func NewBreakerRelay(inner domain.WorkspaceRelay, cfg config.BreakerConfig, logger *slog.Logger) *BreakerRelay {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "workspace-relay",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BreakerRelay{inner: inner, breaker: cb, logger: logger}
}

func (b *BreakerRelay) execute(fn func() (any, error)) (any, error) {
	out, err := b.breaker.Execute(fn)
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open: %v", domain.ErrRelayUnreachable, err)
		}
		return nil, err
	}
	return out, nil
}

func (b *BreakerRelay) CreateDocument(ctx context.Context, title, markdown string) (domain.WorkspaceRef, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.CreateDocument(ctx, title, markdown)
	})
	if err != nil {
		return domain.WorkspaceRef{}, err
	}
	return out.(domain.WorkspaceRef), nil
}

func (b *BreakerRelay) CreateSpreadsheet(ctx context.Context, title string) (domain.WorkspaceRef, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.CreateSpreadsheet(ctx, title)
	})
	if err != nil {
		return domain.WorkspaceRef{}, err
	}
	return out.(domain.WorkspaceRef), nil
}

func (b *BreakerRelay) FetchDocument(ctx context.Context, docRef string) (domain.DocPayload, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.FetchDocument(ctx, docRef)
	})
	if err != nil {
		return domain.DocPayload{}, err
	}
	return out.(domain.DocPayload), nil
}

func (b *BreakerRelay) FetchSheet(ctx context.Context, sheetRef, sheetName string) ([][]string, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.FetchSheet(ctx, sheetRef, sheetName)
	})
	if err != nil {
		return nil, err
	}
	return out.([][]string), nil
}

func (b *BreakerRelay) FetchDriveFile(ctx context.Context, fileRef string) (domain.DriveFile, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.FetchDriveFile(ctx, fileRef)
	})
	if err != nil {
		return domain.DriveFile{}, err
	}
	return out.(domain.DriveFile), nil
}

func (b *BreakerRelay) WriteDocument(ctx context.Context, docRef, markdown string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.WriteDocument(ctx, docRef, markdown)
	})
	return err
}

func (b *BreakerRelay) WriteSheet(ctx context.Context, sheetRef, sheetName string, rows [][]string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.WriteSheet(ctx, sheetRef, sheetName, rows)
	})
	return err
}

func (b *BreakerRelay) ListSheetNames(ctx context.Context, sheetRef string) ([]string, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.ListSheetNames(ctx, sheetRef)
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

// State returns the current circuit breaker state for monitoring.
func (b *BreakerRelay) State() gobreaker.State {
	return b.breaker.State()
}

var _ domain.WorkspaceRelay = (*BreakerRelay)(nil)
