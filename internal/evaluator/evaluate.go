package evaluator

import (
	"context"
	"fmt"
)

const DefaultBatchSize = 100

type Result struct {
	Correct int
	Total   int
}

// Accuracy is the truncated percentage of correct predictions.
func (r Result) Accuracy() int {
	if r.Total == 0 {
		return 0
	}
	return 100 * r.Correct / r.Total
}

// Evaluate scores every batch of split in order and tallies correct predictions.
func Evaluate(ctx context.Context, split *Split, scorer Scorer, batchSize int) (Result, error) {
	var res Result
	for i, b := range split.Batches(batchSize) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		predicted, err := scorer.Predict(ctx, b)
		if err != nil {
			return res, fmt.Errorf("batch %d: %w", i, err)
		}
		if len(predicted) != len(b.Labels) {
			return res, fmt.Errorf("batch %d: got %d predictions for %d labels", i, len(predicted), len(b.Labels))
		}
		for j, p := range predicted {
			if p == b.Labels[j] {
				res.Correct++
			}
		}
		res.Total += len(b.Labels)
	}
	return res, nil
}
