package access_test

import (
	"context"
	"testing"
	"time"

	"mailkeep-hq/mailkeep/pkg/access"
	"mailkeep-hq/mailkeep/pkg/access/storage"
)

func TestTracker_SummaryNeverAccessed(t *testing.T) {
	tracker := access.NewTracker(storage.NewMemoryStore())

	summary, err := tracker.Summary(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if summary != nil {
		t.Errorf("Summary() = %+v, want nil for never-accessed record", summary)
	}
}

func TestTracker_SummaryCounts(t *testing.T) {
	store := storage.NewMemoryStore()
	tracker := access.NewTracker(store)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	events := []*access.AccessEvent{
		{RecordID: "m1", Type: access.AccessDirectView, Timestamp: base},
		{RecordID: "m1", Type: access.AccessThreadView, Timestamp: base.Add(48 * time.Hour)},
		{RecordID: "m1", Type: access.AccessSearchResult, Timestamp: base.Add(24 * time.Hour), Query: "invoices"},
		{RecordID: "m2", Type: access.AccessDirectView, Timestamp: base},
	}
	for _, event := range events {
		if err := tracker.LogAccess(ctx, event); err != nil {
			t.Fatalf("LogAccess() failed: %v", err)
		}
	}

	searches := []*access.SearchRecord{
		{Query: "invoices", Timestamp: base, ResultIDs: []string{"m1", "m2"}, InteractedIDs: []string{"m1"}},
		{Query: "receipts", Timestamp: base.Add(time.Hour), ResultIDs: []string{"m1"}},
	}
	for _, search := range searches {
		if err := tracker.LogSearchActivity(ctx, search); err != nil {
			t.Fatalf("LogSearchActivity() failed: %v", err)
		}
	}

	summary, err := tracker.Summary(ctx, "m1")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if summary == nil {
		t.Fatal("Summary() returned nil for accessed record")
	}

	if summary.TotalAccesses != 3 {
		t.Errorf("TotalAccesses = %d, want 3", summary.TotalAccesses)
	}
	if !summary.LastAccessed.Equal(base.Add(48 * time.Hour)) {
		t.Errorf("LastAccessed = %v, want %v", summary.LastAccessed, base.Add(48*time.Hour))
	}
	if summary.SearchAppearances != 2 {
		t.Errorf("SearchAppearances = %d, want 2", summary.SearchAppearances)
	}
	if summary.SearchInteractions != 1 {
		t.Errorf("SearchInteractions = %d, want 1", summary.SearchInteractions)
	}
	if summary.AccessScore != 0.3 {
		t.Errorf("AccessScore = %v, want 0.3", summary.AccessScore)
	}
}

func TestTracker_AccessScoreCapped(t *testing.T) {
	store := storage.NewMemoryStore()
	tracker := access.NewTracker(store)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		event := &access.AccessEvent{
			RecordID:  "busy",
			Type:      access.AccessDirectView,
			Timestamp: time.Now().Add(-time.Duration(i) * time.Hour),
		}
		if err := tracker.LogAccess(ctx, event); err != nil {
			t.Fatalf("LogAccess() failed: %v", err)
		}
	}

	summary, err := tracker.Summary(ctx, "busy")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if summary.AccessScore != 1.0 {
		t.Errorf("AccessScore = %v, want capped at 1.0", summary.AccessScore)
	}
}

func TestTracker_RejectsEmptyRecordID(t *testing.T) {
	tracker := access.NewTracker(storage.NewMemoryStore())

	if err := tracker.LogAccess(context.Background(), &access.AccessEvent{}); err == nil {
		t.Error("LogAccess() should reject events without a record id")
	}
}
