package staleness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"mailkeep-hq/mailkeep/pkg/access"
	"mailkeep-hq/mailkeep/pkg/mail"
)

// Recommendation is the scorer's verdict for a record.
type Recommendation string

const (
	RecommendKeep    Recommendation = "keep"
	RecommendArchive Recommendation = "archive"
	RecommendDelete  Recommendation = "delete"
)

// Recommendation thresholds on the total score.
const (
	deleteThreshold  = 0.8
	archiveThreshold = 0.6
)

// recentKeepDays is the hard safety floor: records younger than this are
// always recommended keep, independent of score.
const recentKeepDays = 7

// Score is the composite staleness result for one record. It is ephemeral;
// the engine persists it only transiently inside job results.
type Score struct {
	RecordID string `json:"record_id"`

	// Per-factor scores, each in [0,1].
	AgeScore        float64 `json:"age_score"`
	ImportanceScore float64 `json:"importance_score"`
	SizeScore       float64 `json:"size_score"`
	SpamScore       float64 `json:"spam_score"`
	AccessScore     float64 `json:"access_score"`

	// TotalScore is the weighted sum of the factor scores, in [0,1].
	TotalScore float64 `json:"total_score"`

	// Recommendation is keep, archive, or delete.
	Recommendation Recommendation `json:"recommendation"`

	// Confidence reflects factor agreement, in [0,1].
	Confidence float64 `json:"confidence"`
}

// SummarySource provides access summaries; satisfied by *access.Tracker.
type SummarySource interface {
	Summary(ctx context.Context, recordID string) (*access.AccessSummary, error)
}

// Scorer computes staleness scores.
type Scorer struct {
	summaries SummarySource

	mu      sync.RWMutex
	weights Weights

	logger *slog.Logger
	now    func() time.Time
}

// NewScorer creates a scorer with default weights. summaries may be nil,
// in which case records without a supplied summary score as never accessed.
func NewScorer(summaries SummarySource, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default().With("component", "staleness")
	}
	return &Scorer{
		summaries: summaries,
		weights:   DefaultWeights(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the scorer's clock. Tests only.
func (s *Scorer) SetClock(now func() time.Time) {
	s.now = now
}

// Weights returns the current weight set.
func (s *Scorer) Weights() Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// UpdateWeights merges the partial overrides into the current weight set.
// A weight sum deviating from 1.0 by more than the tolerance is accepted
// but logged as a warning.
func (s *Scorer) UpdateWeights(overrides WeightOverrides) Weights {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weights = s.weights.merge(overrides)
	if !s.weights.Balanced() {
		s.logger.Warn("staleness weights do not sum to 1.0",
			"sum", s.weights.Sum(),
			"tolerance", WeightTolerance,
		)
	}
	return s.weights
}

// Calculate computes the staleness score for a record. When summary is nil
// the scorer fetches one from its summary source.
func (s *Scorer) Calculate(ctx context.Context, record *mail.EmailRecord, summary *access.AccessSummary) (*Score, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}

	if summary == nil && s.summaries != nil {
		var err error
		summary, err = s.summaries.Summary(ctx, record.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch access summary for %s: %w", record.ID, err)
		}
	}

	now := s.now()
	ageDays := record.AgeDays(now)

	score := &Score{
		RecordID:        record.ID,
		AgeScore:        ageFactor(ageDays),
		ImportanceScore: importanceFactor(record),
		SizeScore:       sizeFactor(record.SizeBytes),
		SpamScore:       spamFactor(record),
		AccessScore:     accessFactor(summary, now),
	}

	weights := s.Weights()
	score.TotalScore = score.AgeScore*weights.Age +
		score.ImportanceScore*weights.Importance +
		score.SizeScore*weights.Size +
		score.SpamScore*weights.Spam +
		score.AccessScore*weights.Access
	score.TotalScore = clamp01(score.TotalScore)

	score.Recommendation = recommend(record, ageDays, score.TotalScore)
	score.Confidence = confidence(score.factors())

	return score, nil
}

// factors returns the five sub-factor scores in canonical order.
func (sc *Score) factors() [5]float64 {
	return [5]float64{sc.AgeScore, sc.ImportanceScore, sc.SizeScore, sc.SpamScore, sc.AccessScore}
}

// recommend applies the safety floor and the score thresholds.
func recommend(record *mail.EmailRecord, ageDays int, total float64) Recommendation {
	// Hard floors, independent of score.
	if record.IsHighImportance() {
		return RecommendKeep
	}
	if ageDays < recentKeepDays {
		return RecommendKeep
	}

	switch {
	case total >= deleteThreshold:
		return RecommendDelete
	case total >= archiveThreshold:
		return RecommendArchive
	default:
		return RecommendKeep
	}
}

// confidence is 1 - 2*stddev of the factors, boosted by 0.2 when at least
// three factors agree on high (>0.7) or low (<0.3) staleness.
func confidence(factors [5]float64) float64 {
	var sum float64
	for _, f := range factors {
		sum += f
	}
	mean := sum / float64(len(factors))

	var variance float64
	for _, f := range factors {
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(len(factors))

	conf := 1 - 2*math.Sqrt(variance)

	var high, low int
	for _, f := range factors {
		if f > 0.7 {
			high++
		}
		if f < 0.3 {
			low++
		}
	}
	if high >= 3 || low >= 3 {
		conf += 0.2
	}

	return clamp01(conf)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
