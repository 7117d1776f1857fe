package canvas

import (
	"strings"
	"sync"
	"time"

	"canvasd/internal/domain"
)

// DefaultCreateWindow is how long a just-created (type, name) pair
// suppresses a repeated create.
const DefaultCreateWindow = 5000 * time.Millisecond

type creationRecord struct {
	typ  domain.ItemType
	name string // normalized
	id   string
	at   time.Time
}

// CreateGuard suppresses duplicate item creation triggered redundantly:
// either an item of the same type with the same trimmed name already
// exists, or one was created within the last window. The guard keeps a
// single most-recent-creation record, not a history — it prevents rapid
// repeated tool calls within one agent turn, not all duplicates across a
// session.
type CreateGuard struct {
	mu     sync.Mutex
	last   *creationRecord
	window time.Duration
	now    func() time.Time // injectable for tests
}

// NewCreateGuard creates a guard with the given suppression window.
// A non-positive window falls back to DefaultCreateWindow.
func NewCreateGuard(window time.Duration) *CreateGuard {
	if window <= 0 {
		window = DefaultCreateWindow
	}
	return &CreateGuard{window: window, now: time.Now}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Existing returns the id to reuse instead of creating, if any: first an
// already-existing item of the same type and normalized name, then the
// most-recent-creation record when it matches and is still inside the
// window.
func (g *CreateGuard) Existing(state domain.CanvasState, typ domain.ItemType, name string) (string, bool) {
	normalized := normalizeName(name)
	if normalized != "" {
		for i := range state.Items {
			if state.Items[i].Type == typ && normalizeName(state.Items[i].Name) == normalized {
				return state.Items[i].ID, true
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last != nil &&
		g.last.typ == typ &&
		g.last.name == normalizeName(name) &&
		g.now().Sub(g.last.at) < g.window {
		// The item may have been deleted since; only reuse live ids.
		if state.FindItem(g.last.id) >= 0 {
			return g.last.id, true
		}
	}
	return "", false
}

// Record notes a completed creation as the most recent one.
func (g *CreateGuard) Record(typ domain.ItemType, name, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = &creationRecord{typ: typ, name: normalizeName(name), id: id, at: g.now()}
}
