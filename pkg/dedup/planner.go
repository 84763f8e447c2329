package dedup

import (
	"context"
	"sort"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Planner turns duplicate groups into reviewable merge suggestions without
// mutating anything.
type Planner struct {
	clients ClientStore
	grouper *Grouper
	logger  ectologger.Logger
}

// NewPlanner creates a new merge planner
func NewPlanner(clients ClientStore, grouper *Grouper, logger ectologger.Logger) *Planner {
	return &Planner{
		clients: clients,
		grouper: grouper,
		logger:  logger,
	}
}

// Plan fetches the group's member records and designates a primary by
// strategy: keep-oldest picks the smallest creation timestamp, keep-newest
// the largest, ties broken by id. Returns nil (no error) when fewer than two
// members still exist; the group is simply dropped.
func (p *Planner) Plan(ctx context.Context, group models.MergeGroup, strategy models.MergeStrategy) (*models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Planner.Plan")
	defer span.End()

	records, err := p.clients.GetByIDs(ctx, group.MemberIDs)
	if err != nil {
		return nil, models.NewMergeError(models.ErrorKindStoreUnavailable, "loading group members: %v", err)
	}

	if len(records) < 2 {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"key":     group.Key,
			"fetched": len(records),
		}).Debug("Dropping group with fewer than two live members")
		return nil, nil
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if strategy == models.StrategyKeepNewest {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return &models.MergeSuggestion{
		Key:        group.Key,
		Primary:    records[0],
		Duplicates: records[1:],
		Strategy:   strategy,
	}, nil
}

// SuggestAll composes the grouper and Plan: it discovers duplicate groups
// for mode and plans each one. Groups that no longer resolve to two live
// records are dropped, not errors.
func (p *Planner) SuggestAll(ctx context.Context, mode models.MatchMode, strategy models.MergeStrategy, limit int) ([]models.MergeSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Planner.SuggestAll")
	defer span.End()

	groups, err := p.grouper.FindGroups(ctx, mode, limit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.MergeSuggestion, 0, len(groups))
	for _, group := range groups {
		suggestion, err := p.Plan(ctx, group, strategy)
		if err != nil {
			return nil, err
		}
		if suggestion == nil {
			continue
		}
		suggestions = append(suggestions, *suggestion)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"mode":        string(mode),
		"strategy":    string(strategy),
		"suggestions": len(suggestions),
	}).Debug("Merge suggestions planned")

	return suggestions, nil
}

// Instructions converts suggestions into executor input.
func Instructions(suggestions []models.MergeSuggestion) []models.MergeInstruction {
	return ectolinq.Map(suggestions, func(s models.MergeSuggestion) models.MergeInstruction {
		return models.MergeInstruction{
			PrimaryID:    s.Primary.ID,
			DuplicateIDs: ectolinq.Map(s.Duplicates, func(c models.Client) string { return c.ID }),
		}
	})
}
