package syncer

import (
	"context"
	"errors"
	"testing"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

type stubDecider struct {
	answer bool
	err    error
	asked  int
}

func (d *stubDecider) ConfirmReplace(_ context.Context, _, _ int) (bool, error) {
	d.asked++
	return d.answer, d.err
}

func seededOps(names ...string) *canvas.Ops {
	o := canvas.NewOps(canvas.NewStore(domain.CanvasState{}, nil), canvas.NewUIStore(), nil, testLogger())
	for _, n := range names {
		o.CreateItem(domain.ItemTypeDocument, n)
	}
	return o
}

func incoming(n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:   domain.FormatItemID(i + 1),
			Type: domain.ItemTypeDocument,
			Name: "in",
			Data: domain.DocumentData{},
		}
	}
	return items
}

func TestParseImportMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ImportMode
		ok   bool
	}{
		{"", ImportMerge, true},
		{"merge", ImportMerge, true},
		{"replace", ImportReplace, true},
		{"overwrite", "", false},
	} {
		got, err := ParseImportMode(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseImportMode(%q) = %q, %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("ParseImportMode(%q) err = %v, want invalid input", tc.in, err)
		}
	}
}

func TestReplaceConflictGuardFires(t *testing.T) {
	ops := seededOps("a", "b")
	dec := &stubDecider{answer: false}
	im := NewImporter(ops, dec, testLogger())

	next := domain.CanvasState{Items: incoming(3), ItemsCreated: 3}
	replaced, err := im.Replace(context.Background(), next)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replaced {
		t.Error("keep answer must not replace")
	}
	if dec.asked != 1 {
		t.Errorf("decider asked %d times, want 1", dec.asked)
	}
	if n := len(ops.Store().State().Items); n != 2 {
		t.Errorf("local items = %d, want 2 untouched", n)
	}
}

func TestReplaceProceedsOnConfirm(t *testing.T) {
	ops := seededOps("a", "b")
	dec := &stubDecider{answer: true}
	im := NewImporter(ops, dec, testLogger())

	next := domain.CanvasState{Items: incoming(3), ItemsCreated: 3}
	replaced, err := im.Replace(context.Background(), next)
	if err != nil || !replaced {
		t.Fatalf("Replace = %v, %v", replaced, err)
	}

	s := ops.Store().State()
	if len(s.Items) != 3 {
		t.Errorf("items = %d, want 3", len(s.Items))
	}
	if s.ItemsCreated < 3 {
		t.Errorf("counter = %d regressed", s.ItemsCreated)
	}
}

func TestReplaceSkipsGuardWhenEitherSideEmpty(t *testing.T) {
	// Empty local canvas: no decision needed.
	dec := &stubDecider{}
	im := NewImporter(seededOps(), dec, testLogger())
	replaced, err := im.Replace(context.Background(), domain.CanvasState{Items: incoming(2), ItemsCreated: 2})
	if err != nil || !replaced {
		t.Fatalf("empty-local replace = %v, %v", replaced, err)
	}
	if dec.asked != 0 {
		t.Error("guard should not fire when local canvas is empty")
	}

	// Empty incoming set: also no decision.
	dec2 := &stubDecider{}
	im2 := NewImporter(seededOps("a"), dec2, testLogger())
	replaced, err = im2.Replace(context.Background(), domain.CanvasState{})
	if err != nil || !replaced {
		t.Fatalf("empty-incoming replace = %v, %v", replaced, err)
	}
	if dec2.asked != 0 {
		t.Error("guard should not fire when incoming set is empty")
	}
}

func TestReplaceWithoutDeciderRefuses(t *testing.T) {
	im := NewImporter(seededOps("a"), nil, testLogger())
	_, err := im.Replace(context.Background(), domain.CanvasState{Items: incoming(1), ItemsCreated: 1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestApplyMergeAddsWithFreshIDs(t *testing.T) {
	ops := seededOps("a", "b")
	im := NewImporter(ops, nil, testLogger())

	n, err := im.Apply(context.Background(), ImportMerge, incoming(2), "ignored")
	if err != nil || n != 2 {
		t.Fatalf("Apply = %d, %v", n, err)
	}

	s := ops.Store().State()
	if len(s.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(s.Items))
	}
	ids := map[string]bool{}
	for _, it := range s.Items {
		if ids[it.ID] {
			t.Fatalf("duplicate id %q after merge", it.ID)
		}
		ids[it.ID] = true
	}
}
