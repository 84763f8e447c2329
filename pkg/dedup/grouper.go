package dedup

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Grouper finds clients sharing a non-empty normalized contact key.
type Grouper struct {
	clients     ClientStore
	logger      ectologger.Logger
	countryCode string
}

// NewGrouper creates a new duplicate grouper. countryCode is the default
// country code applied when normalizing national-format phone numbers; it
// may be empty.
func NewGrouper(clients ClientStore, logger ectologger.Logger, countryCode string) *Grouper {
	return &Grouper{
		clients:     clients,
		logger:      logger,
		countryCode: countryCode,
	}
}

// FindGroups returns all groups of 2+ clients sharing a normalized key for
// the given mode, ordered by descending size and capped to limit (limit <= 0
// means no cap). Mode "both" returns the union of the independent email and
// phone groupings; a client may appear in one group of each kind.
func (g *Grouper) FindGroups(ctx context.Context, mode models.MatchMode, limit int) ([]models.MergeGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Grouper.FindGroups")
	defer span.End()

	rows, err := g.clients.ContactRows(ctx)
	if err != nil {
		return nil, models.NewMergeError(models.ErrorKindStoreUnavailable, "loading client contact rows: %v", err)
	}

	var groups []models.MergeGroup
	if mode == models.MatchModeEmail || mode == models.MatchModeBoth {
		groups = append(groups, g.groupBy(rows, models.KeyKindEmail)...)
	}
	if mode == models.MatchModePhone || mode == models.MatchModeBoth {
		groups = append(groups, g.groupBy(rows, models.KeyKindPhone)...)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		if groups[i].Key.Kind != groups[j].Key.Kind {
			return groups[i].Key.Kind < groups[j].Key.Kind
		}
		return groups[i].Key.Value < groups[j].Key.Value
	})

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"mode":   string(mode),
		"groups": len(groups),
	}).Debug("Duplicate groups discovered")

	return groups, nil
}

// groupBy buckets contact rows by one key kind. Rows arrive ordered by
// created_at then id, so member order inside a group is deterministic.
func (g *Grouper) groupBy(rows []models.ClientContact, kind models.KeyKind) []models.MergeGroup {
	members := make(map[string][]string)
	var keys []string

	for _, row := range rows {
		key := g.keyFor(row, kind)
		if key == "" {
			continue
		}
		if _, seen := members[key]; !seen {
			keys = append(keys, key)
		}
		members[key] = append(members[key], row.ID)
	}

	groups := make([]models.MergeGroup, 0)
	for _, key := range keys {
		ids := members[key]
		if len(ids) < 2 {
			continue
		}
		groups = append(groups, models.MergeGroup{
			Key:       models.DedupKey{Kind: kind, Value: key},
			MemberIDs: ids,
			Size:      len(ids),
		})
		metrics.DuplicateGroupsFound.WithLabelValues(string(kind)).Inc()
	}
	return groups
}

func (g *Grouper) keyFor(row models.ClientContact, kind models.KeyKind) string {
	switch kind {
	case models.KeyKindEmail:
		if row.Email == nil {
			return ""
		}
		return normalizers.EmailKey(*row.Email)
	case models.KeyKindPhone:
		if row.Phone == nil {
			return ""
		}
		return normalizers.PhoneKey(*row.Phone, g.countryCode)
	default:
		return ""
	}
}
