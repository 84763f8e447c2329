package dedup

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Options configures the optional parts of a Service.
type Options struct {
	// CountryCode prefixes phone numbers written in national format.
	CountryCode string
	// Locker, when set, serializes merges on the same primary across instances.
	Locker Locker
	// Events, when set, receives a merged event after each committed merge.
	Events EventSink
	// LockTTL bounds how long a merge lock is held. Zero means DefaultLockTTL.
	LockTTL time.Duration
	Logger  ectologger.Logger
}

// Service bundles the grouper, planner, executor, and batcher behind one API.
type Service struct {
	grouper  *Grouper
	planner  *Planner
	executor *Executor
	batcher  *Batcher
}

// NewService wires a Service from its stores.
func NewService(clients ClientStore, dependents DependentStore, tx TxRunner, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	}

	grouper := NewGrouper(clients, logger, opts.CountryCode)
	planner := NewPlanner(clients, grouper, logger)
	executor := NewExecutor(clients, dependents, tx, opts.Locker, opts.Events, logger, opts.LockTTL)
	batcher := NewBatcher(executor, planner, logger)

	return &Service{
		grouper:  grouper,
		planner:  planner,
		executor: executor,
		batcher:  batcher,
	}
}

// FindGroups lists duplicate groups for the given match mode.
func (s *Service) FindGroups(ctx context.Context, mode models.MatchMode, limit int) ([]models.MergeGroup, error) {
	return s.grouper.FindGroups(ctx, mode, limit)
}

// Suggest plans a merge for one duplicate group.
func (s *Service) Suggest(ctx context.Context, group models.MergeGroup, strategy models.MergeStrategy) (*models.MergeSuggestion, error) {
	return s.planner.Plan(ctx, group, strategy)
}

// SuggestAll plans merges for every discovered duplicate group.
func (s *Service) SuggestAll(ctx context.Context, mode models.MatchMode, strategy models.MergeStrategy, limit int) ([]models.MergeSuggestion, error) {
	return s.planner.SuggestAll(ctx, mode, strategy, limit)
}

// Merge executes one merge instruction.
func (s *Service) Merge(ctx context.Context, instruction models.MergeInstruction, dryRun bool) (models.MergeResult, error) {
	return s.executor.Execute(ctx, instruction, dryRun)
}

// MergeBatch executes many merge instructions sequentially.
func (s *Service) MergeBatch(ctx context.Context, instructions []models.MergeInstruction, dryRun bool) ([]models.MergeResult, error) {
	return s.batcher.ExecuteBatch(ctx, instructions, dryRun)
}

// RunAll discovers, plans, and merges every duplicate group in one pass.
func (s *Service) RunAll(ctx context.Context, mode models.MatchMode, strategy models.MergeStrategy, limit int, dryRun bool) (*models.BatchSummary, error) {
	return s.batcher.RunAll(ctx, mode, strategy, limit, dryRun)
}
