package policy

import (
	"context"
	"errors"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	return r
}

func TestRegistry_CreateAssignsID(t *testing.T) {
	r := newTestRegistry(t)

	created, err := r.Create(context.Background(), &Policy{
		Name:    "old promos",
		Enabled: true,
		Action:  ActionDelete,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Create() should assign an id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create() should set timestamps")
	}

	got, err := r.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "old promos" {
		t.Errorf("Name = %q, want %q", got.Name, "old promos")
	}
}

func TestRegistry_CreateValidates(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Create(context.Background(), &Policy{Name: "", Action: ActionDelete})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Create(empty name) error = %v, want ValidationError", err)
	}

	_, err = r.Create(context.Background(), &Policy{Name: "x", Action: "purge"})
	if !errors.As(err, &verr) {
		t.Errorf("Create(bad action) error = %v, want ValidationError", err)
	}
}

func TestRegistry_UpdateMissing(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Update(context.Background(), &Policy{ID: "nope", Name: "x", Action: ActionArchive})
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Errorf("Update(missing) error = %v, want NotFoundError", err)
	}
}

func TestRegistry_ActiveSortedByPriority(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	specs := []struct {
		name     string
		priority int
		enabled  bool
	}{
		{"low", 1, true},
		{"high", 10, true},
		{"mid", 5, true},
		{"disabled", 99, false},
	}
	for _, s := range specs {
		_, err := r.Create(ctx, &Policy{
			Name:     s.name,
			Priority: s.priority,
			Enabled:  s.enabled,
			Action:   ActionArchive,
		})
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", s.name, err)
		}
	}

	active := r.Active()
	if len(active) != 3 {
		t.Fatalf("len(Active()) = %d, want 3", len(active))
	}
	wantOrder := []string{"high", "mid", "low"}
	for i, want := range wantOrder {
		if active[i].Name != want {
			t.Errorf("Active()[%d] = %s, want %s", i, active[i].Name, want)
		}
	}

	if len(r.List()) != 4 {
		t.Errorf("len(List()) = %d, want 4", len(r.List()))
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	created, _ := r.Create(ctx, &Policy{Name: "gone soon", Action: ActionDelete})
	if err := r.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := r.Get(created.ID); err == nil {
		t.Error("Get() after Delete() should fail")
	}

	var nferr *NotFoundError
	if err := r.Delete(ctx, "missing"); !errors.As(err, &nferr) {
		t.Errorf("Delete(missing) error = %v, want NotFoundError", err)
	}
}

func TestRegistry_RecordRun(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	created, _ := r.Create(ctx, &Policy{Name: "stats", Enabled: true, Action: ActionDelete})
	if err := r.RecordRun(ctx, created.ID, 42); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	got, _ := r.Get(created.ID)
	if got.RunStats.TotalRuns != 1 || got.RunStats.TotalCleaned != 42 {
		t.Errorf("RunStats = %+v, want 1 run / 42 cleaned", got.RunStats)
	}
	if got.RunStats.LastRunAt.IsZero() {
		t.Error("LastRunAt should be set")
	}
}
