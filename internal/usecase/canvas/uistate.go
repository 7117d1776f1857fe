package canvas

import "sync"

// ItemFlags holds UI-local presentation state for one item. It is kept
// apart from the canonical document state on purpose: expansion and
// visibility are per-operator concerns and never travel over the wire.
type ItemFlags struct {
	Expanded bool
	Visible  bool
}

// UIStore is the narrow store for item-scoped UI flags, keyed by item id.
// Entries are dropped when the item they belong to is deleted.
type UIStore struct {
	mu    sync.RWMutex
	flags map[string]ItemFlags
}

// NewUIStore creates an empty UI flag store.
func NewUIStore() *UIStore {
	return &UIStore{flags: make(map[string]ItemFlags)}
}

// Get returns the flags for the given item id. Missing entries read as the
// zero value.
func (u *UIStore) Get(itemID string) ItemFlags {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.flags[itemID]
}

// Set replaces the flags for the given item id.
func (u *UIStore) Set(itemID string, f ItemFlags) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.flags[itemID] = f
}

// Drop removes any flags recorded for the given item id.
func (u *UIStore) Drop(itemID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.flags, itemID)
}

// Len returns the number of tracked items.
func (u *UIStore) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.flags)
}
