package canvas

import (
	"testing"
	"time"

	"canvasd/internal/domain"
)

func guardedOps(window time.Duration) (*Ops, *CreateGuard, *time.Time) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guard := NewCreateGuard(window)
	guard.now = func() time.Time { return clock }
	o := NewOps(NewStore(domain.CanvasState{}, nil), NewUIStore(), guard, testLogger())
	o.now = guard.now
	return o, guard, &clock
}

func TestGuardSuppressesRapidDuplicate(t *testing.T) {
	o, _, _ := guardedOps(DefaultCreateWindow)

	first := o.CreateItem(domain.ItemTypeDocument, "Plan")
	second := o.CreateItem(domain.ItemTypeDocument, "Plan")
	if second != first {
		t.Errorf("duplicate create within window: got %q, want %q", second, first)
	}
	if n := len(o.Store().State().Items); n != 1 {
		t.Errorf("items = %d, want 1", n)
	}
}

func TestGuardExpiresAfterWindow(t *testing.T) {
	o, _, clock := guardedOps(DefaultCreateWindow)

	first := o.CreateItem(domain.ItemTypeDocument, "")
	*clock = clock.Add(DefaultCreateWindow + time.Millisecond)

	second := o.CreateItem(domain.ItemTypeDocument, "")
	if second == first {
		t.Error("create after window should allocate a fresh item")
	}
}

func TestGuardNameMatchIgnoresCaseAndSpace(t *testing.T) {
	o, _, clock := guardedOps(DefaultCreateWindow)

	first := o.CreateItem(domain.ItemTypeDocument, "Meeting Notes")
	*clock = clock.Add(time.Hour) // window long gone; name match carries

	second := o.CreateItem(domain.ItemTypeDocument, "  meeting notes ")
	if second != first {
		t.Errorf("name match: got %q, want %q", second, first)
	}
}

func TestGuardReleasedByRename(t *testing.T) {
	o, _, clock := guardedOps(DefaultCreateWindow)

	first := o.CreateItem(domain.ItemTypeDocument, "Draft")
	o.RenameItem(first, "Final")
	*clock = clock.Add(time.Hour)

	second := o.CreateItem(domain.ItemTypeDocument, "Draft")
	if second == first {
		t.Error("renamed item should no longer absorb creates under the old name")
	}
}

func TestGuardIgnoresDeletedRecord(t *testing.T) {
	o, _, _ := guardedOps(DefaultCreateWindow)

	first := o.CreateItem(domain.ItemTypeDocument, "")
	o.DeleteItem(first)

	second := o.CreateItem(domain.ItemTypeDocument, "")
	if second == first {
		t.Error("guard must not resurrect a deleted id")
	}
	if idx := o.Store().State().FindItem(second); idx < 0 {
		t.Error("second create left no item")
	}
}

func TestGuardUnarmedOpsAlwaysCreate(t *testing.T) {
	o := newTestOps() // nil guard
	a := o.CreateItem(domain.ItemTypeDocument, "same")
	b := o.CreateItem(domain.ItemTypeDocument, "same")
	if a == b {
		t.Error("without a guard every create allocates")
	}
}
