package jobs

import (
	"context"
	"errors"
	"testing"
)

func TestQueue_OwnerRetrieval(t *testing.T) {
	q := NewQueue()
	q.Add("j1", "alice")
	q.Add("j2", "alice")
	q.Add("j3", "bob")

	if got, ok := q.Retrieve("alice"); !ok || got != "j1" {
		t.Errorf("Retrieve(alice) = %q/%v, want j1", got, ok)
	}
	if got, ok := q.Retrieve("alice"); !ok || got != "j2" {
		t.Errorf("Retrieve(alice) = %q/%v, want j2", got, ok)
	}
	if _, ok := q.Retrieve("alice"); ok {
		t.Error("Retrieve(alice) on empty list should report no job")
	}
	if got, ok := q.Retrieve("bob"); !ok || got != "j3" {
		t.Errorf("Retrieve(bob) = %q/%v, want j3", got, ok)
	}
}

func TestQueue_SystemListFirst(t *testing.T) {
	q := NewQueue()
	q.Add("owned", "alice")
	q.Add("system", "")

	if got, _ := q.Retrieve(""); got != "system" {
		t.Errorf("Retrieve() = %q, want system job first", got)
	}
	if got, _ := q.Retrieve(""); got != "owned" {
		t.Errorf("Retrieve() = %q, want fallback to owned job", got)
	}
}

// Polling without an owner must drain every owner's list eventually,
// not just the first owner's.
func TestQueue_RoundRobinNoStarvation(t *testing.T) {
	q := NewQueue()
	q.Add("a1", "alice")
	q.Add("a2", "alice")
	q.Add("b1", "bob")
	q.Add("c1", "carol")

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		jobID, ok := q.Retrieve("")
		if !ok {
			t.Fatalf("Retrieve() #%d found no job", i)
		}
		seen[jobID] = true
	}

	for _, want := range []string{"a1", "a2", "b1", "c1"} {
		if !seen[want] {
			t.Errorf("job %s was never retrieved", want)
		}
	}
	if _, ok := q.Retrieve(""); ok {
		t.Error("queue should be empty")
	}

	// bob's job must come out before alice's second one.
	q.Add("a1", "alice")
	q.Add("a2", "alice")
	q.Add("b1", "bob")

	first, _ := q.Retrieve("")
	second, _ := q.Retrieve("")
	got := map[string]bool{first: true, second: true}
	if !got["b1"] || got["a2"] {
		t.Errorf("first two retrievals = %s, %s; bob must be served before alice repeats", first, second)
	}
}

func TestQueue_Len(t *testing.T) {
	q := NewQueue()
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	q.Add("j1", "alice")
	q.Add("j2", "")
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

func TestQueue_Handlers(t *testing.T) {
	q := NewQueue()

	_, err := q.HandlerFor(TypeEventCleanup)
	var herr *HandlerNotFoundError
	if !errors.As(err, &herr) {
		t.Errorf("HandlerFor(unbound) error = %v, want HandlerNotFoundError", err)
	}

	var called string
	q.RegisterHandler(TypeEventCleanup, func(_ context.Context, jobID string) error {
		called = jobID
		return nil
	})

	handler, err := q.HandlerFor(TypeEventCleanup)
	if err != nil {
		t.Fatalf("HandlerFor() failed: %v", err)
	}
	if err := handler(context.Background(), "j1"); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if called != "j1" {
		t.Errorf("handler called with %q, want j1", called)
	}
}
