package dependent

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// tables is the full, fixed set of tables that may reference a client.
// A merge must relink every one of them before the duplicate row may be
// deleted; the allowlist also keeps table names out of parameter position.
var tables = []string{"invoices", "messages", "galleries", "files"}

// Repository relinks dependent-table references between client ids
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dependent-table repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Tables returns the fixed set of dependent tables.
func (r *Repository) Tables() []string {
	return append([]string(nil), tables...)
}

// Relink points every row in table that references fromID at toID instead.
// Returns the number of rows updated.
func (r *Repository) Relink(ctx context.Context, table, fromID, toID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "dependent.Repository.Relink")
	defer span.End()

	if !allowed(table) {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown dependent table %q", table)
	}

	query := fmt.Sprintf(`UPDATE %s SET client_id = $1 WHERE client_id = $2`, table)

	q := database.FromContext(ctx, r.db)
	result, err := q.ExecContext(ctx, query, toID, fromID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": table, "from_id": fromID, "to_id": toID}).Error("Failed to relink dependent rows")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to relink %s", table)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// CountRefs returns the number of rows in table referencing clientID.
func (r *Repository) CountRefs(ctx context.Context, table, clientID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "dependent.Repository.CountRefs")
	defer span.End()

	if !allowed(table) {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown dependent table %q", table)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE client_id = $1`, table)

	q := database.FromContext(ctx, r.db)
	var count int64
	if err := q.GetContext(ctx, &count, query, clientID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": table, "client_id": clientID}).Error("Failed to count dependent rows")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count %s rows", table)
	}
	return count, nil
}

func allowed(table string) bool {
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}
