package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/policy"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "jobs.db")

	store, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_JobRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job := jobs.NewJob(jobs.TypeScheduledCleanup, jobs.Params{DryRun: true, MaxEmails: 25}, jobs.CleanupMetadata{
		PolicyID:         "pol-1",
		TriggerReason:    "manual",
		Priority:         jobs.PriorityNormal,
		BatchSize:        25,
		TargetEmailCount: 25,
	}, now)

	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() failed: %v", err)
	}

	loaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() failed: %v", err)
	}
	if loaded.Status != jobs.StatusPending {
		t.Errorf("status = %s, want PENDING", loaded.Status)
	}
	if !loaded.Params.DryRun || loaded.Params.MaxEmails != 25 {
		t.Errorf("params = %+v, want dry_run with max 25", loaded.Params)
	}
	if loaded.Metadata.PolicyID != "pol-1" || loaded.Metadata.TriggerReason != "manual" {
		t.Errorf("metadata = %+v", loaded.Metadata)
	}
	if loaded.StartedAt != nil || loaded.CompletedAt != nil {
		t.Error("pending job should have no start or completion timestamp")
	}

	// Drive the job to completion and save again; SaveJob is an upsert.
	if err := job.Start(now.Add(time.Second)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	job.Progress = jobs.Progress{
		EmailsAnalyzed:  25,
		EmailsCleaned:   10,
		PercentComplete: 40,
		CurrentBatch:    2,
		TotalBatches:    5,
	}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob(in progress) failed: %v", err)
	}

	results := &jobs.Results{
		Success:           true,
		EmailsAnalyzed:    25,
		EmailsDeleted:     8,
		EmailsArchived:    2,
		StorageFreedBytes: 4096,
		CandidateIDs:      []string{"r1", "r2"},
	}
	if err := job.Complete(results, now.Add(time.Minute)); err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob(completed) failed: %v", err)
	}

	loaded, err = store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() after completion failed: %v", err)
	}
	if loaded.Status != jobs.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", loaded.Status)
	}
	if loaded.Results == nil || loaded.Results.EmailsDeleted != 8 {
		t.Errorf("results = %+v, want 8 deleted", loaded.Results)
	}
	if len(loaded.Results.CandidateIDs) != 2 {
		t.Errorf("candidate ids = %v, want 2 entries", loaded.Results.CandidateIDs)
	}
	if loaded.StartedAt == nil || loaded.CompletedAt == nil {
		t.Fatal("terminal job must carry both timestamps")
	}
	if loaded.StartedAt.After(*loaded.CompletedAt) {
		t.Errorf("started_at %v after completed_at %v", loaded.StartedAt, loaded.CompletedAt)
	}
}

func TestSQLiteStore_GetJobNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetJob(context.Background(), "missing")
	var nferr *jobs.NotFoundError
	if !errors.As(err, &nferr) {
		t.Errorf("GetJob(missing) error = %v, want NotFoundError", err)
	}
}

func TestSQLiteStore_ListJobsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	meta := jobs.CleanupMetadata{TriggerReason: "continuous", Priority: jobs.PriorityNormal, BatchSize: 50}
	for i := 0; i < 3; i++ {
		job := jobs.NewJob(jobs.TypeContinuousCleanup, jobs.Params{}, meta, now.Add(time.Duration(i)*time.Minute))
		if i == 2 {
			if err := job.Start(now.Add(time.Hour)); err != nil {
				t.Fatalf("Start() failed: %v", err)
			}
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob() failed: %v", err)
		}
	}

	pending, err := store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusPending})
	if err != nil {
		t.Fatalf("ListJobs() failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("len(pending) = %d, want 2", len(pending))
	}

	running, err := store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusInProgress})
	if err != nil {
		t.Fatalf("ListJobs() failed: %v", err)
	}
	if len(running) != 1 {
		t.Errorf("len(running) = %d, want 1", len(running))
	}

	limited, err := store.ListJobs(ctx, jobs.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs() failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestSQLiteStore_PolicyPersistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ageMin := 90
	p := &policy.Policy{
		ID:       "pol-1",
		Name:     "old promos",
		Enabled:  true,
		Priority: 5,
		Criteria: policy.Criteria{AgeDaysMin: &ageMin},
		Action:   policy.ActionArchive,
		Safety:   policy.Safety{MaxEmailsPerRun: 100, PreserveImportant: true},
		Schedule: "0 3 * * *",

		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.SavePolicy(ctx, p); err != nil {
		t.Fatalf("SavePolicy() failed: %v", err)
	}

	policies, err := store.LoadPolicies(ctx)
	if err != nil {
		t.Fatalf("LoadPolicies() failed: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("len(policies) = %d, want 1", len(policies))
	}
	got := policies[0]
	if got.Name != "old promos" || got.Criteria.AgeDaysMin == nil || *got.Criteria.AgeDaysMin != 90 {
		t.Errorf("loaded policy = %+v", got)
	}
	if got.Schedule != "0 3 * * *" || !got.Safety.PreserveImportant {
		t.Errorf("policy details lost in round trip: %+v", got)
	}

	if err := store.DeletePolicy(ctx, "pol-1"); err != nil {
		t.Fatalf("DeletePolicy() failed: %v", err)
	}
	policies, err = store.LoadPolicies(ctx)
	if err != nil {
		t.Fatalf("LoadPolicies() failed: %v", err)
	}
	if len(policies) != 0 {
		t.Errorf("len(policies) after delete = %d, want 0", len(policies))
	}
}

func TestSQLiteStore_ExecutionHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	meta := jobs.CleanupMetadata{PolicyID: "pol-1", TriggerReason: "manual", Priority: jobs.PriorityNormal, BatchSize: 50}
	for i := 0; i < 3; i++ {
		job := jobs.NewJob(jobs.TypeScheduledCleanup, jobs.Params{}, meta, now)
		job.Results = &jobs.Results{EmailsAnalyzed: 10, EmailsDeleted: 5}
		exec := jobs.NewExecution(job, now.Add(time.Duration(i)*time.Minute))
		if i == 2 {
			exec.PolicyID = "pol-2"
		}
		if err := store.AppendExecution(ctx, exec); err != nil {
			t.Fatalf("AppendExecution() failed: %v", err)
		}
	}

	all, err := store.ListExecutions(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListExecutions() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].CompletedAt.Before(all[1].CompletedAt) {
		t.Error("executions must come back newest first")
	}
	if all[0].Effectiveness != 0.5 {
		t.Errorf("Effectiveness = %v, want 0.5", all[0].Effectiveness)
	}

	scoped, err := store.ListExecutions(ctx, "pol-1", 0)
	if err != nil {
		t.Fatalf("ListExecutions(pol-1) failed: %v", err)
	}
	if len(scoped) != 2 {
		t.Errorf("len(scoped) = %d, want 2", len(scoped))
	}
}
