package dedup

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DefaultLockTTL bounds how long a distributed merge lock is held before it
// expires on its own.
const DefaultLockTTL = 30 * time.Second

const lockKeyPrefix = "merge:client:"

// Executor applies merge instructions. Each duplicate is consolidated inside
// its own transaction: the primary row is locked, every dependent table is
// relinked, blank primary fields are coalesced from the duplicate, and the
// duplicate row is deleted. One duplicate's failure rolls back only that
// duplicate.
type Executor struct {
	clients    ClientStore
	dependents DependentStore
	tx         TxRunner
	locker     Locker
	events     EventSink
	logger     ectologger.Logger
	lockTTL    time.Duration
}

// NewExecutor creates a new merge executor. locker and events may be nil;
// a zero lockTTL falls back to DefaultLockTTL.
func NewExecutor(
	clients ClientStore,
	dependents DependentStore,
	tx TxRunner,
	locker Locker,
	events EventSink,
	logger ectologger.Logger,
	lockTTL time.Duration,
) *Executor {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Executor{
		clients:    clients,
		dependents: dependents,
		tx:         tx,
		locker:     locker,
		events:     events,
		logger:     logger,
		lockTTL:    lockTTL,
	}
}

// Execute applies one merge instruction. With dryRun set, no writes occur
// and MergedCount reports how many duplicates would be consolidated.
//
// The returned error is non-nil only when the store itself is unreachable;
// every per-record problem is reported on the MergeResult instead.
func (e *Executor) Execute(ctx context.Context, instruction models.MergeInstruction, dryRun bool) (models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Executor.Execute")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_id": instruction.PrimaryID,
		"duplicates": len(instruction.DuplicateIDs),
		"dry_run":    dryRun,
	})

	result := models.MergeResult{PrimaryID: instruction.PrimaryID, DryRun: dryRun}

	primary, err := e.clients.Get(ctx, instruction.PrimaryID)
	if err != nil {
		storeErr := models.NewMergeError(models.ErrorKindStoreUnavailable, "loading primary %s: %v", instruction.PrimaryID, err)
		result.Error = storeErr
		return result, storeErr
	}
	if primary == nil {
		log.Warn("Merge rejected: primary client does not exist")
		result.Error = models.NewMergeError(models.ErrorKindPrimaryNotFound, "client %s does not exist", instruction.PrimaryID)
		return result, nil
	}

	seen := map[string]bool{instruction.PrimaryID: true}
	for _, duplicateID := range instruction.DuplicateIDs {
		if seen[duplicateID] {
			continue
		}
		seen[duplicateID] = true

		duplicate, err := e.clients.Get(ctx, duplicateID)
		if err != nil {
			storeErr := models.NewMergeError(models.ErrorKindStoreUnavailable, "loading duplicate %s: %v", duplicateID, err)
			result.Error = storeErr
			return result, storeErr
		}
		if duplicate == nil {
			// Already merged or never existed; re-running an instruction is
			// safe and the id is reported as skipped.
			result.SkippedIDs = append(result.SkippedIDs, duplicateID)
			metrics.MergesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		if dryRun {
			result.MergedCount++
			result.MergedIDs = append(result.MergedIDs, duplicateID)
			continue
		}

		if mergeErr := e.mergeOne(ctx, instruction.PrimaryID, duplicateID); mergeErr != nil {
			log.WithFields(map[string]any{
				"duplicate_id": duplicateID,
				"kind":         string(mergeErr.Kind),
			}).WithError(mergeErr).Error("Failed to merge duplicate; transaction rolled back")
			result.Failures = append(result.Failures, models.DuplicateFailure{
				DuplicateID: duplicateID,
				Kind:        mergeErr.Kind,
				Detail:      mergeErr.Detail,
			})
			metrics.MergesTotal.WithLabelValues("failed").Inc()
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result.MergedCount++
		result.MergedIDs = append(result.MergedIDs, duplicateID)
		metrics.MergesTotal.WithLabelValues("merged").Inc()
	}

	if !dryRun && result.MergedCount > 0 {
		log.WithFields(map[string]any{"merged_count": result.MergedCount}).Info("Merged duplicate clients")
		if e.events != nil {
			// Best effort; the merge is already committed.
			if err := e.events.EmitClientMerged(ctx, instruction.PrimaryID, result.MergedIDs, result.MergedCount); err != nil {
				log.WithError(err).Warn("Failed to emit client.merged event")
			}
			for _, mergedID := range result.MergedIDs {
				if err := e.events.EmitClientDeleted(ctx, mergedID); err != nil {
					log.WithError(err).Warn("Failed to emit client.deleted event")
				}
			}
		}
	}

	return result, nil
}

// mergeOne consolidates a single duplicate into the primary inside one
// transaction, optionally guarded by a distributed lock keyed by primary id.
func (e *Executor) mergeOne(ctx context.Context, primaryID, duplicateID string) *models.MergeError {
	start := time.Now()

	run := func() error {
		return e.tx.InTx(ctx, func(ctx context.Context) error {
			if err := e.clients.LockForMerge(ctx, primaryID); err != nil {
				return models.NewMergeError(models.ErrorKindTransactionAborted, "locking primary %s: %v", primaryID, err)
			}

			for _, table := range e.dependents.Tables() {
				rows, err := e.dependents.Relink(ctx, table, duplicateID, primaryID)
				if err != nil {
					return models.NewMergeError(models.ErrorKindRelinkFailed, "relinking %s from %s to %s: %v", table, duplicateID, primaryID, err)
				}
				metrics.RelinkedRowsTotal.WithLabelValues(table).Add(float64(rows))
			}

			// Every dependent table must be clear of the duplicate before its
			// row may be removed.
			for _, table := range e.dependents.Tables() {
				remaining, err := e.dependents.CountRefs(ctx, table, duplicateID)
				if err != nil {
					return models.NewMergeError(models.ErrorKindRelinkFailed, "verifying %s references to %s: %v", table, duplicateID, err)
				}
				if remaining > 0 {
					return models.NewMergeError(models.ErrorKindRelinkFailed, "%d %s rows still reference %s after relink", remaining, table, duplicateID)
				}
			}

			if err := e.clients.CoalesceInto(ctx, primaryID, duplicateID); err != nil {
				return models.NewMergeError(models.ErrorKindTransactionAborted, "coalescing fields from %s: %v", duplicateID, err)
			}

			if err := e.clients.Delete(ctx, duplicateID); err != nil {
				return models.NewMergeError(models.ErrorKindTransactionAborted, "deleting duplicate %s: %v", duplicateID, err)
			}

			return nil
		})
	}

	var err error
	if e.locker != nil {
		err = e.locker.WithLock(ctx, lockKeyPrefix+primaryID, e.lockTTL, run)
	} else {
		err = run()
	}

	metrics.MergeDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	if mergeErr, ok := err.(*models.MergeError); ok {
		return mergeErr
	}
	return models.NewMergeError(models.ErrorKindTransactionAborted, "%v", err)
}
