package dedup

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Batcher runs many merge instructions, isolating per-instruction failures.
type Batcher struct {
	executor *Executor
	planner  *Planner
	logger   ectologger.Logger
}

// NewBatcher creates a new batch orchestrator
func NewBatcher(executor *Executor, planner *Planner, logger ectologger.Logger) *Batcher {
	return &Batcher{
		executor: executor,
		planner:  planner,
		logger:   logger,
	}
}

// ExecuteBatch processes instructions sequentially, in the order supplied.
// An instruction failing (bad primary, per-duplicate rollback) never stops
// its siblings; only a lost store connection aborts the call, returning the
// results accumulated so far alongside the error.
func (b *Batcher) ExecuteBatch(ctx context.Context, instructions []models.MergeInstruction, dryRun bool) ([]models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Batcher.ExecuteBatch")
	defer span.End()

	results := make([]models.MergeResult, 0, len(instructions))
	for _, instruction := range instructions {
		result, err := b.executor.Execute(ctx, instruction, dryRun)
		results = append(results, result)
		if err != nil {
			metrics.BatchRunsTotal.WithLabelValues("aborted").Inc()
			return results, err
		}
	}

	metrics.BatchRunsTotal.WithLabelValues("completed").Inc()
	return results, nil
}

// RunAll discovers duplicate groups, plans them with strategy, and executes
// (or, with dryRun, previews) every resulting instruction.
func (b *Batcher) RunAll(ctx context.Context, mode models.MatchMode, strategy models.MergeStrategy, limit int, dryRun bool) (*models.BatchSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Batcher.RunAll")
	defer span.End()

	suggestions, err := b.planner.SuggestAll(ctx, mode, strategy, limit)
	if err != nil {
		return nil, err
	}

	results, err := b.ExecuteBatch(ctx, Instructions(suggestions), dryRun)
	if err != nil {
		return nil, err
	}

	summary := &models.BatchSummary{
		Groups:  len(suggestions),
		DryRun:  dryRun,
		Results: results,
	}
	for _, result := range results {
		summary.TotalMerged += result.MergedCount
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"mode":         string(mode),
		"strategy":     string(strategy),
		"groups":       summary.Groups,
		"total_merged": summary.TotalMerged,
		"dry_run":      dryRun,
	}).Info("Batch merge run complete")

	return summary, nil
}
