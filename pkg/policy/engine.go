package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mailkeep-hq/mailkeep/pkg/access"
	"mailkeep-hq/mailkeep/pkg/mail"
	"mailkeep-hq/mailkeep/pkg/mailstore"
	"mailkeep-hq/mailkeep/pkg/staleness"
)

// Candidate is a record claimed by a policy for cleanup.
type Candidate struct {
	Record *mail.EmailRecord `json:"record"`

	// PolicyID is the winning policy.
	PolicyID string `json:"policy_id"`

	// Action is the winning policy's action.
	Action Action `json:"action"`

	// Score is the staleness score that qualified the record.
	Score *staleness.Score `json:"score"`
}

// ProtectedRecord is a record a safety check kept out of candidacy.
type ProtectedRecord struct {
	Record *mail.EmailRecord `json:"record"`

	// Protection names the safety check that applied.
	Protection string `json:"protection"`

	// PolicyID is the policy under which the protection triggered.
	PolicyID string `json:"policy_id"`
}

// EvaluationSummary aggregates one evaluation pass.
type EvaluationSummary struct {
	TotalEvaluated  int `json:"total_evaluated"`
	CandidateCount  int `json:"candidate_count"`
	ProtectedCount  int `json:"protected_count"`
	PoliciesApplied int `json:"policies_applied"`
}

// Evaluation is the result of evaluating records against all active
// policies. A record never appears in both Candidates and Protected.
type Evaluation struct {
	Candidates []*Candidate       `json:"candidates"`
	Protected  []*ProtectedRecord `json:"protected"`
	Summary    EvaluationSummary  `json:"summary"`
}

// Engine combines the registry, the staleness scorer, and the safety
// chain into candidate selection.
type Engine struct {
	registry *Registry
	scorer   *staleness.Scorer
	tracker  staleness.SummarySource
	records  mailstore.RecordStore
	chain    *Chain
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine creates a policy engine. tracker may equal the scorer's
// summary source; it is used for the in-memory access criteria.
func NewEngine(registry *Registry, scorer *staleness.Scorer, tracker staleness.SummarySource, records mailstore.RecordStore, chain *Chain, logger *slog.Logger) *Engine {
	if chain == nil {
		chain = NewChain(DefaultProtectionConfig())
	}
	if logger == nil {
		logger = slog.Default().With("component", "policy.engine")
	}
	return &Engine{
		registry: registry,
		scorer:   scorer,
		tracker:  tracker,
		records:  records,
		chain:    chain,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Registry returns the engine's policy registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Evaluate runs all active policies over the given records in priority
// order. Each record is claimed by at most one policy; lower-priority
// policies do not re-evaluate claimed records. Protected records are
// globally protected: once a safety check applies, no other policy may
// claim the record.
func (e *Engine) Evaluate(ctx context.Context, records []*mail.EmailRecord) (*Evaluation, error) {
	return e.EvaluatePolicies(ctx, records, e.registry.Active())
}

// EvaluatePolicies runs a fixed policy set over the records, in the order
// given. Used by forced runs that must include a disabled policy.
func (e *Engine) EvaluatePolicies(ctx context.Context, records []*mail.EmailRecord, active []*Policy) (*Evaluation, error) {
	now := e.now()

	eval := &Evaluation{
		Summary: EvaluationSummary{
			TotalEvaluated:  len(records),
			PoliciesApplied: len(active),
		},
	}

	claimed := make(map[string]bool)

	for _, pol := range active {
		for _, record := range records {
			if claimed[record.ID] || record.Archived {
				continue
			}

			summary, err := e.summaryFor(ctx, record.ID)
			if err != nil {
				return nil, err
			}
			if !e.matchesCriteria(record, &pol.Criteria, summary, now) {
				continue
			}

			// Safety gate runs before any score-based candidacy.
			if protection := e.chain.Check(record, pol.Safety.PreserveImportant, now); protection != "" {
				claimed[record.ID] = true
				eval.Protected = append(eval.Protected, &ProtectedRecord{
					Record:     record,
					Protection: protection,
					PolicyID:   pol.ID,
				})
				continue
			}

			score, err := e.scorer.Calculate(ctx, record, summary)
			if err != nil {
				return nil, fmt.Errorf("staleness calculation failed for %s: %w", record.ID, err)
			}
			if score.Recommendation == staleness.RecommendKeep {
				continue
			}

			claimed[record.ID] = true
			eval.Candidates = append(eval.Candidates, &Candidate{
				Record:   record,
				PolicyID: pol.ID,
				Action:   pol.Action,
				Score:    score,
			})
		}
	}

	eval.Summary.CandidateCount = len(eval.Candidates)
	eval.Summary.ProtectedCount = len(eval.Protected)

	e.logger.Debug("policy evaluation completed",
		"evaluated", eval.Summary.TotalEvaluated,
		"candidates", eval.Summary.CandidateCount,
		"protected", eval.Summary.ProtectedCount,
		"policies", eval.Summary.PoliciesApplied,
	)

	return eval, nil
}

// EligibleRecords queries the record store for records matching the
// policy's criteria, pushing the filter down to the store. Results come
// back least-important and oldest first. limit <= 0 falls back to the
// policy's per-run cap.
func (e *Engine) EligibleRecords(ctx context.Context, pol *Policy, limit int) ([]*mail.EmailRecord, error) {
	if limit <= 0 {
		limit = pol.Safety.MaxEmailsPerRun
	}
	records, err := e.records.SearchEligible(ctx, pol.Criteria.StoreCriteria(), limit)
	if err != nil {
		return nil, fmt.Errorf("eligible-record query failed for policy %s: %w", pol.ID, err)
	}
	return records, nil
}

// summaryFor fetches the access summary, tolerating a nil tracker.
func (e *Engine) summaryFor(ctx context.Context, recordID string) (*access.AccessSummary, error) {
	if e.tracker == nil {
		return nil, nil
	}
	summary, err := e.tracker.Summary(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access summary for %s: %w", recordID, err)
	}
	return summary, nil
}

// matchesCriteria applies the full criteria set, including the
// access-based filters that cannot be pushed down to the record store.
func (e *Engine) matchesCriteria(record *mail.EmailRecord, c *Criteria, summary *access.AccessSummary, now time.Time) bool {
	if c.AgeDaysMin != nil && record.AgeDays(now) < *c.AgeDaysMin {
		return false
	}
	if c.ImportanceLevelMax != "" &&
		mail.CompareImportance(record.EffectiveImportance(), c.ImportanceLevelMax) > 0 {
		return false
	}
	if c.SizeBytesMin != nil && record.SizeBytes < *c.SizeBytesMin {
		return false
	}
	if c.SpamScoreMin != nil {
		if record.Analysis == nil || record.Analysis.SpamScore < *c.SpamScoreMin {
			return false
		}
	}
	if c.PromotionalScoreMin != nil {
		if record.Analysis == nil || record.Analysis.PromotionalScore < *c.PromotionalScoreMin {
			return false
		}
	}
	if c.AccessScoreMax != nil {
		var accessScore float64
		if summary != nil {
			accessScore = summary.AccessScore
		}
		if accessScore > *c.AccessScoreMax {
			return false
		}
	}
	if c.NoAccessDays != nil && summary != nil && !summary.LastAccessed.IsZero() {
		idleDays := int(now.Sub(summary.LastAccessed).Hours() / 24)
		if idleDays < *c.NoAccessDays {
			return false
		}
	}
	return true
}
