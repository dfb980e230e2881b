package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/jobs/storage"
	"mailkeep-hq/mailkeep/pkg/mail"
	"mailkeep-hq/mailkeep/pkg/mailstore"
	"mailkeep-hq/mailkeep/pkg/policy"
	"mailkeep-hq/mailkeep/pkg/staleness"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// harness wires an engine against in-memory collaborators.
type harness struct {
	engine  *Engine
	store   *storage.MemoryStore
	queue   *jobs.Queue
	records *mailstore.MemoryStore
	deleter *flakyDeleter
}

// flakyDeleter wraps the record store's raw deleter and fails the
// configured sub-batch numbers.
type flakyDeleter struct {
	raw       mailstore.RawDeleter
	failBatch map[int]bool
	calls     int
}

func (d *flakyDeleter) BatchDelete(ctx context.Context, ids []string) error {
	d.calls++
	if d.failBatch[d.calls] {
		return errors.New("provider rejected the request")
	}
	return d.raw.BatchDelete(ctx, ids)
}

func newHarness(t *testing.T, config *Config) *harness {
	t.Helper()

	store := storage.NewMemoryStore()
	records := mailstore.NewMemoryStore()
	records.SetClock(func() time.Time { return testNow })

	registry, err := policy.NewRegistry(context.Background(), store)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	registry.SetClock(func() time.Time { return testNow })

	scorer := staleness.NewScorer(nil, nil)
	scorer.SetClock(func() time.Time { return testNow })

	polEngine := policy.NewEngine(registry, scorer, nil, records, nil, nil)
	polEngine.SetClock(func() time.Time { return testNow })

	flaky := &flakyDeleter{raw: records, failBatch: map[int]bool{}}
	queue := jobs.NewQueue()

	if config == nil {
		config = DefaultConfig()
		config.InterBatchDelay = 0
	}

	eng, err := New(config, Dependencies{
		Store:    store,
		Queue:    queue,
		Policies: polEngine,
		Records:  records,
		Deleter:  mailstore.NewBatchDeleter(flaky, mailstore.DefaultDeleteBatchSize),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	eng.SetClock(func() time.Time { return testNow })

	return &harness{
		engine:  eng,
		store:   store,
		queue:   queue,
		records: records,
		deleter: flaky,
	}
}

func (h *harness) createPolicy(t *testing.T, p *policy.Policy) *policy.Policy {
	t.Helper()
	created, err := h.engine.policies.Registry().Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return created
}

// seedStaleRecords adds n old low-importance promotional records that
// score above the archive threshold.
func (h *harness) seedStaleRecords(t *testing.T, n int, ageDays int) {
	t.Helper()
	for i := 0; i < n; i++ {
		record := &mail.EmailRecord{
			ID:        "rec-" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Sender:    "deals@shop.test",
			Subject:   "weekend sale",
			Category:  mail.CategoryLow,
			Date:      testNow.AddDate(0, 0, -ageDays),
			SizeBytes: 50_000,
			Analysis: &mail.Analysis{
				ImportanceScore: 0.2,
				ImportanceLevel: mail.ImportanceLow,
				SpamScore:       0.9,
			},
		}
		if err := h.records.Upsert(context.Background(), record); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}
}

func agePtr(days int) *int { return &days }

func TestTriggerManualCleanup_Validation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.engine.TriggerManualCleanup(ctx, "missing", jobs.Params{})
	var nferr *policy.NotFoundError
	if !errors.As(err, &nferr) {
		t.Errorf("trigger(missing policy) error = %v, want NotFoundError", err)
	}

	disabled := h.createPolicy(t, &policy.Policy{
		Name:    "disabled",
		Enabled: false,
		Action:  policy.ActionArchive,
	})

	_, err = h.engine.TriggerManualCleanup(ctx, disabled.ID, jobs.Params{})
	var derr *policy.DisabledError
	if !errors.As(err, &derr) {
		t.Errorf("trigger(disabled) error = %v, want DisabledError", err)
	}

	// force overrides the enabled check.
	if _, err := h.engine.TriggerManualCleanup(ctx, disabled.ID, jobs.Params{Force: true}); err != nil {
		t.Errorf("trigger(disabled, force) failed: %v", err)
	}
}

func TestTriggerManualCleanup_BatchSizeCap(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:    "capped",
		Enabled: true,
		Action:  policy.ActionArchive,
		Safety:  policy.Safety{MaxEmailsPerRun: 300},
	})

	jobID, err := h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() failed: %v", err)
	}
	if job.Metadata.BatchSize != 100 {
		t.Errorf("batch size = %d, want capped at 100", job.Metadata.BatchSize)
	}
	if job.Status != jobs.StatusPending {
		t.Errorf("status = %s, want PENDING", job.Status)
	}
	if job.Type != jobs.TypeScheduledCleanup {
		t.Errorf("type = %s, want scheduled_cleanup", job.Type)
	}

	// Explicit max_emails below the cap wins.
	jobID, err = h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{MaxEmails: 25})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	job, _ = h.store.GetJob(ctx, jobID)
	if job.Metadata.BatchSize != 25 {
		t.Errorf("batch size = %d, want 25", job.Metadata.BatchSize)
	}
}

func TestProcessJob_ArchiveRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:     "old promos",
		Enabled:  true,
		Priority: 5,
		Criteria: policy.Criteria{AgeDaysMin: agePtr(90)},
		Action:   policy.ActionArchive,
		Safety:   policy.Safety{MaxEmailsPerRun: 50},
	})
	h.seedStaleRecords(t, 8, 180)

	jobID, err := h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if err := h.engine.ProcessJob(ctx, jobID); err != nil {
		t.Fatalf("ProcessJob() failed: %v", err)
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() failed: %v", err)
	}
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %s)", job.Status, job.ErrorDetails)
	}
	if job.StartedAt == nil || job.CompletedAt == nil || job.StartedAt.After(*job.CompletedAt) {
		t.Errorf("timestamps wrong: started %v completed %v", job.StartedAt, job.CompletedAt)
	}
	if job.Progress.PercentComplete != 100 {
		t.Errorf("PercentComplete = %v, want 100", job.Progress.PercentComplete)
	}

	res := job.Results
	if res == nil || !res.Success {
		t.Fatalf("results = %+v, want success", res)
	}
	if res.EmailsArchived != 8 || res.EmailsDeleted != 0 {
		t.Errorf("archived/deleted = %d/%d, want 8/0", res.EmailsArchived, res.EmailsDeleted)
	}
	if res.StorageFreedBytes != 8*50_000 {
		t.Errorf("StorageFreedBytes = %d, want %d", res.StorageFreedBytes, 8*50_000)
	}

	// Records were actually flipped.
	for _, id := range res.CandidateIDs {
		if rec := h.records.Get(id); rec == nil || !rec.Archived {
			t.Errorf("record %s not archived", id)
		}
	}

	// A completed run lands in execution history with run stats.
	execs, err := h.store.ListExecutions(ctx, pol.ID, 0)
	if err != nil {
		t.Fatalf("ListExecutions() failed: %v", err)
	}
	if len(execs) != 1 || execs[0].EmailsCleaned != 8 {
		t.Errorf("executions = %+v, want one with 8 cleaned", execs)
	}
	updated, _ := h.engine.policies.Registry().Get(pol.ID)
	if updated.RunStats.TotalRuns != 1 || updated.RunStats.TotalCleaned != 8 {
		t.Errorf("run stats = %+v, want 1 run / 8 cleaned", updated.RunStats)
	}
}

// Dry run reports the would-be outcome but mutates nothing.
func TestProcessJob_DryRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:     "old promos",
		Enabled:  true,
		Criteria: policy.Criteria{AgeDaysMin: agePtr(90)},
		Action:   policy.ActionArchive,
		Safety:   policy.Safety{MaxEmailsPerRun: 50},
	})
	h.seedStaleRecords(t, 5, 200)

	jobID, err := h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{DryRun: true})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if err := h.engine.ProcessJob(ctx, jobID); err != nil {
		t.Fatalf("ProcessJob() failed: %v", err)
	}

	job, _ := h.store.GetJob(ctx, jobID)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", job.Status)
	}
	res := job.Results
	if res == nil || !res.DryRun {
		t.Fatalf("results = %+v, want dry run", res)
	}
	if len(res.CandidateIDs) != 5 || res.EmailsArchived != 5 {
		t.Errorf("candidates/archived = %d/%d, want 5/5", len(res.CandidateIDs), res.EmailsArchived)
	}

	// No archived flag moved.
	for _, id := range res.CandidateIDs {
		if rec := h.records.Get(id); rec == nil || rec.Archived {
			t.Errorf("dry run mutated record %s", id)
		}
	}

	// Dry runs do not touch policy run stats.
	updated, _ := h.engine.policies.Registry().Get(pol.ID)
	if updated.RunStats.TotalRuns != 0 {
		t.Errorf("TotalRuns = %d, want 0 after dry run", updated.RunStats.TotalRuns)
	}
}

func TestProcessJob_ContinuesPastBatchErrors(t *testing.T) {
	config := DefaultConfig()
	config.InterBatchDelay = 0
	config.BatchSize = 2
	h := newHarness(t, config)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:     "purge",
		Enabled:  true,
		Criteria: policy.Criteria{AgeDaysMin: agePtr(90)},
		Action:   policy.ActionDelete,
		Safety:   policy.Safety{MaxEmailsPerRun: 50},
	})
	h.seedStaleRecords(t, 6, 400)

	// Job batches are 2 candidates each; the deleter sees one sub-batch
	// per job batch. Fail the second one.
	h.deleter.failBatch[2] = true

	jobID, err := h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	jobBatched, _ := h.store.GetJob(ctx, jobID)
	jobBatched.Metadata.BatchSize = 2
	if err := h.store.SaveJob(ctx, jobBatched); err != nil {
		t.Fatalf("SaveJob() failed: %v", err)
	}

	if err := h.engine.ProcessJob(ctx, jobID); err != nil {
		t.Fatalf("ProcessJob() failed: %v", err)
	}

	job, _ := h.store.GetJob(ctx, jobID)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED despite batch error", job.Status)
	}
	res := job.Results
	if res == nil {
		t.Fatal("results missing")
	}
	if res.Success {
		t.Error("Success must be false when a batch failed")
	}
	if res.EmailsDeleted != 4 {
		t.Errorf("EmailsDeleted = %d, want 4 (batches 1 and 3)", res.EmailsDeleted)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "batch 2") {
		t.Errorf("Errors = %v, want one entry naming batch 2", res.Errors)
	}
}

func TestProcessJob_StopOnBatchError(t *testing.T) {
	config := DefaultConfig()
	config.InterBatchDelay = 0
	config.BatchSize = 2
	config.ContinueOnBatchError = false
	h := newHarness(t, config)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:     "purge",
		Enabled:  true,
		Criteria: policy.Criteria{AgeDaysMin: agePtr(90)},
		Action:   policy.ActionDelete,
		Safety:   policy.Safety{MaxEmailsPerRun: 50},
	})
	h.seedStaleRecords(t, 6, 400)
	h.deleter.failBatch[2] = true

	jobID, err := h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	job, _ := h.store.GetJob(ctx, jobID)
	job.Metadata.BatchSize = 2
	if err := h.store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() failed: %v", err)
	}

	if err := h.engine.ProcessJob(ctx, jobID); err != nil {
		t.Fatalf("ProcessJob() failed: %v", err)
	}

	job, _ = h.store.GetJob(ctx, jobID)
	if job.Results == nil || job.Results.EmailsDeleted != 2 {
		t.Errorf("EmailsDeleted = %d, want 2 (run stopped after batch 2 failed)",
			job.Results.EmailsDeleted)
	}
}

// A continuous run iterates every active policy; a policy whose batch
// fails is recorded in the merged results and does not stop the rest.
func TestProcessJob_ContinuousRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.createPolicy(t, &policy.Policy{
		Name:     "purge bulky",
		Enabled:  true,
		Priority: 20,
		Criteria: policy.Criteria{SizeBytesMin: sizePtr(1_000_000)},
		Action:   policy.ActionDelete,
	})
	h.createPolicy(t, &policy.Policy{
		Name:     "archive promos",
		Enabled:  true,
		Priority: 10,
		Criteria: policy.Criteria{PromotionalScoreMin: scorePtr(0.7)},
		Action:   policy.ActionArchive,
	})

	for i := 0; i < 3; i++ {
		record := &mail.EmailRecord{
			ID:        "bulky-" + string(rune('0'+i)),
			Sender:    "noreply@bigfiles.test",
			Subject:   "your export is ready",
			Category:  mail.CategoryLow,
			Date:      testNow.AddDate(0, 0, -300),
			SizeBytes: 2_000_000,
			Analysis: &mail.Analysis{
				ImportanceScore: 0.2,
				ImportanceLevel: mail.ImportanceLow,
				SpamScore:       0.9,
			},
		}
		if err := h.records.Upsert(ctx, record); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		record := &mail.EmailRecord{
			ID:        "promo-" + string(rune('0'+i)),
			Sender:    "deals@shop.test",
			Subject:   "weekend sale",
			Category:  mail.CategoryLow,
			Date:      testNow.AddDate(0, 0, -180),
			SizeBytes: 50_000,
			Analysis: &mail.Analysis{
				ImportanceScore:  0.2,
				ImportanceLevel:  mail.ImportanceLow,
				SpamScore:        0.9,
				PromotionalScore: 0.9,
			},
		}
		if err := h.records.Upsert(ctx, record); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}

	// The only deletion in the run comes from the purge policy; fail it.
	h.deleter.failBatch[1] = true

	job := jobs.NewJob(jobs.TypeContinuousCleanup, jobs.Params{}, jobs.CleanupMetadata{
		TriggerReason:    "continuous",
		Priority:         jobs.PriorityNormal,
		BatchSize:        50,
		TargetEmailCount: 10,
	}, testNow)
	if err := h.store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() failed: %v", err)
	}

	if err := h.engine.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob() failed: %v", err)
	}

	reloaded, err := h.store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() failed: %v", err)
	}
	if reloaded.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %s)", reloaded.Status, reloaded.ErrorDetails)
	}

	res := reloaded.Results
	if res == nil {
		t.Fatal("results missing")
	}
	if res.Success {
		t.Error("Success must be false when a policy's batch failed")
	}
	if res.EmailsAnalyzed != 7 {
		t.Errorf("EmailsAnalyzed = %d, want 7 across both policies", res.EmailsAnalyzed)
	}
	if res.EmailsDeleted != 0 || res.EmailsArchived != 4 {
		t.Errorf("deleted/archived = %d/%d, want 0/4", res.EmailsDeleted, res.EmailsArchived)
	}
	if res.StorageFreedBytes != 4*50_000 {
		t.Errorf("StorageFreedBytes = %d, want %d", res.StorageFreedBytes, 4*50_000)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "deletion stopped early") {
		t.Errorf("Errors = %v, want one deletion failure", res.Errors)
	}

	// The failed policy left its records alone; the archive policy still ran.
	for i := 0; i < 3; i++ {
		id := "bulky-" + string(rune('0'+i))
		if rec := h.records.Get(id); rec == nil || rec.Archived {
			t.Errorf("record %s should survive the failed delete unarchived", id)
		}
	}
	for i := 0; i < 4; i++ {
		id := "promo-" + string(rune('0'+i))
		if rec := h.records.Get(id); rec == nil || !rec.Archived {
			t.Errorf("record %s not archived", id)
		}
	}
}

func sizePtr(n int64) *int64 { return &n }

func scorePtr(v float64) *float64 { return &v }

func TestCancelPendingJob(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:    "idle",
		Enabled: true,
		Action:  policy.ActionArchive,
	})

	jobID, err := h.engine.TriggerManualCleanup(ctx, pol.ID, jobs.Params{})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if err := h.engine.CancelJob(ctx, jobID); err != nil {
		t.Fatalf("CancelJob() failed: %v", err)
	}

	job, _ := h.store.GetJob(ctx, jobID)
	if job.Status != jobs.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", job.Status)
	}

	// Processing a cancelled job is a no-op.
	if err := h.engine.ProcessJob(ctx, jobID); err != nil {
		t.Errorf("ProcessJob(cancelled) failed: %v", err)
	}
	job, _ = h.store.GetJob(ctx, jobID)
	if job.Status != jobs.StatusCancelled {
		t.Errorf("status after process = %s, want CANCELLED", job.Status)
	}

	// Terminal jobs cannot be cancelled again.
	var terr *jobs.InvalidTransitionError
	if err := h.engine.CancelJob(ctx, jobID); !errors.As(err, &terr) {
		t.Errorf("CancelJob(terminal) error = %v, want InvalidTransitionError", err)
	}
}

func TestReconcile(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	meta := jobs.CleanupMetadata{TriggerReason: "manual", Priority: jobs.PriorityNormal, BatchSize: 50}

	orphan := jobs.NewJob(jobs.TypeContinuousCleanup, jobs.Params{}, meta, testNow.Add(-time.Hour))
	if err := orphan.Start(testNow.Add(-time.Hour)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := h.store.SaveJob(ctx, orphan); err != nil {
		t.Fatalf("SaveJob() failed: %v", err)
	}

	pending := jobs.NewJob(jobs.TypeScheduledCleanup, jobs.Params{}, meta, testNow.Add(-time.Minute))
	if err := h.store.SaveJob(ctx, pending); err != nil {
		t.Fatalf("SaveJob() failed: %v", err)
	}

	if err := h.engine.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}

	reloaded, _ := h.store.GetJob(ctx, orphan.ID)
	if reloaded.Status != jobs.StatusFailed {
		t.Errorf("orphan status = %s, want FAILED", reloaded.Status)
	}
	if !strings.Contains(reloaded.ErrorDetails, "orphaned") {
		t.Errorf("ErrorDetails = %q, want orphan marker", reloaded.ErrorDetails)
	}

	// The pending job is back on the queue.
	got, ok := h.queue.Retrieve("")
	if !ok || got != pending.ID {
		t.Errorf("Retrieve() = %q/%v, want requeued pending job %s", got, ok, pending.ID)
	}
}

// Policies gaining or losing a schedule while the scheduler runs take
// effect without an engine restart.
func TestScheduler_RefreshOnPolicyChange(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.engine.scheduler.Start(ctx); err != nil {
		t.Fatalf("scheduler Start() failed: %v", err)
	}
	defer h.engine.scheduler.Stop()

	if next := h.engine.scheduler.NextRun(); next != nil {
		t.Fatalf("NextRun() = %v, want none before any scheduled policy", next)
	}

	pol := h.createPolicy(t, &policy.Policy{
		Name:     "nightly",
		Enabled:  true,
		Action:   policy.ActionArchive,
		Schedule: "0 3 * * *",
	})

	if next := h.engine.scheduler.NextRun(); next == nil {
		t.Fatal("NextRun() = nil, want an entry after creating a scheduled policy")
	}

	if err := h.engine.policies.Registry().Delete(ctx, pol.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if next := h.engine.scheduler.NextRun(); next != nil {
		t.Errorf("NextRun() = %v, want none after deleting the policy", next)
	}
}

func TestUpdateConfiguration_Validation(t *testing.T) {
	h := newHarness(t, nil)

	bad := DefaultConfig()
	bad.TargetEmailsPerMinute = 0
	if err := h.engine.UpdateConfiguration(context.Background(), bad); err == nil {
		t.Error("UpdateConfiguration(invalid) should fail")
	}

	good := DefaultConfig()
	good.TargetEmailsPerMinute = 30
	good.ContinueOnBatchError = false
	if err := h.engine.UpdateConfiguration(context.Background(), good); err != nil {
		t.Fatalf("UpdateConfiguration() failed: %v", err)
	}
	if got := h.engine.Config(); got.TargetEmailsPerMinute != 30 || got.ContinueOnBatchError {
		t.Errorf("config not swapped: %+v", got)
	}
}
