package staleness

import (
	"context"
	"fmt"
	"sync"

	"mailkeep-hq/mailkeep/pkg/mail"
)

// batchChunkSize is the number of records scored concurrently per chunk.
const batchChunkSize = 50

// CalculateBatch scores a set of records in fixed-size chunks, with full
// parallelism inside a chunk. Results preserve input order. The first
// error aborts the remaining chunks.
func (s *Scorer) CalculateBatch(ctx context.Context, records []*mail.EmailRecord) ([]*Score, error) {
	scores := make([]*Score, len(records))

	for start := 0; start < len(records); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(records) {
			end = len(records)
		}

		var wg sync.WaitGroup
		errs := make([]error, end-start)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				score, err := s.Calculate(ctx, records[i], nil)
				if err != nil {
					errs[i-start] = err
					return
				}
				scores[i] = score
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("batch staleness calculation failed: %w", err)
			}
		}
	}

	return scores, nil
}

// Statistics aggregates a set of scores: recommendation distribution and
// per-factor averages.
type Statistics struct {
	Total           int                    `json:"total"`
	Recommendations map[Recommendation]int `json:"recommendations"`
	AverageTotal    float64                `json:"average_total"`

	AverageAge        float64 `json:"average_age"`
	AverageImportance float64 `json:"average_importance"`
	AverageSize       float64 `json:"average_size"`
	AverageSpam       float64 `json:"average_spam"`
	AverageAccess     float64 `json:"average_access"`
}

// ComputeStatistics aggregates the given scores.
func ComputeStatistics(scores []*Score) *Statistics {
	stats := &Statistics{
		Total: len(scores),
		Recommendations: map[Recommendation]int{
			RecommendKeep:    0,
			RecommendArchive: 0,
			RecommendDelete:  0,
		},
	}
	if len(scores) == 0 {
		return stats
	}

	for _, score := range scores {
		stats.Recommendations[score.Recommendation]++
		stats.AverageTotal += score.TotalScore
		stats.AverageAge += score.AgeScore
		stats.AverageImportance += score.ImportanceScore
		stats.AverageSize += score.SizeScore
		stats.AverageSpam += score.SpamScore
		stats.AverageAccess += score.AccessScore
	}

	n := float64(len(scores))
	stats.AverageTotal /= n
	stats.AverageAge /= n
	stats.AverageImportance /= n
	stats.AverageSize /= n
	stats.AverageSpam /= n
	stats.AverageAccess /= n

	return stats
}
