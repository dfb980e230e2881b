package mailstore

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultDeleteBatchSize is the number of ids submitted to the raw deleter
// per sub-batch.
const DefaultDeleteBatchSize = 50

// RawDeleter deletes a single batch of records in one provider call.
type RawDeleter interface {
	BatchDelete(ctx context.Context, ids []string) error
}

// BatchDeleter implements Deleter over a RawDeleter, splitting requests
// into fixed-size sub-batches. It stops at the first failing sub-batch and
// returns the partial count plus an error entry for the failed batch.
type BatchDeleter struct {
	raw       RawDeleter
	batchSize int
	logger    *slog.Logger
}

// NewBatchDeleter creates a batch deleter. batchSize <= 0 selects
// DefaultDeleteBatchSize.
func NewBatchDeleter(raw RawDeleter, batchSize int) *BatchDeleter {
	if batchSize <= 0 {
		batchSize = DefaultDeleteBatchSize
	}
	return &BatchDeleter{
		raw:       raw,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "mailstore.deleter"),
	}
}

// DeleteRecords deletes the given ids in sub-batches. On the first
// sub-batch failure it records the batch number and stops; already-deleted
// counts are preserved in the result.
func (d *BatchDeleter) DeleteRecords(ctx context.Context, ids []string) (*DeleteResult, error) {
	result := &DeleteResult{}

	for i := 0; i < len(ids); i += d.batchSize {
		end := i + d.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batchNum := i/d.batchSize + 1

		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, BatchError{
				Batch:   batchNum,
				Message: err.Error(),
			})
			return result, nil
		}

		if err := d.raw.BatchDelete(ctx, ids[i:end]); err != nil {
			d.logger.Warn("delete batch failed, stopping",
				"batch", batchNum,
				"batch_size", end-i,
				"error", err,
			)
			result.Errors = append(result.Errors, BatchError{
				Batch:   batchNum,
				Message: fmt.Sprintf("batch %d failed: %v", batchNum, err),
			})
			return result, nil
		}

		result.Deleted += end - i
	}

	return result, nil
}
