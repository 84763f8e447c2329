package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const clientColumns = "id, email, phone, address, city, state, zip, country, created_at, updated_at"

// coalesceFields are the client columns a merge may fill on the primary from
// a duplicate. A value already set on the primary is never overwritten;
// empty strings count as blank.
var coalesceFields = []string{"email", "phone", "address", "city", "state", "zip", "country"}

// Repository handles client persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new client repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a client by ID. Returns nil without error when the client
// does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(clientColumns)
	sb.From("clients")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	q := database.FromContext(ctx, r.db)

	var client models.Client
	if err := q.GetContext(ctx, &client, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get client")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get client")
	}

	return &client, nil
}

// GetByIDs retrieves all clients matching the given IDs. Missing IDs are
// silently absent from the result.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(clientColumns)
	sb.From("clients")
	sb.Where(sb.In("id", sqlbuilder.Flatten(ids)...))

	query, args := sb.Build()
	var clients []models.Client
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"ids": ids}).Error("Failed to get clients by IDs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get clients")
	}
	return clients, nil
}

// ContactRows returns the contact projection of every client, ordered by
// created_at then id so grouping output is deterministic.
func (r *Repository) ContactRows(ctx context.Context) ([]models.ClientContact, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.ContactRows")
	defer span.End()

	query := `
		SELECT id, email, phone, created_at
		FROM clients
		ORDER BY created_at, id
	`

	var rows []models.ClientContact
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load client contact rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load client contact rows")
	}
	return rows, nil
}

// LockForMerge takes a row lock on the primary client for the duration of
// the surrounding transaction, serializing concurrent merges per primary id.
func (r *Repository) LockForMerge(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.LockForMerge")
	defer span.End()

	q := database.FromContext(ctx, r.db)

	var locked string
	if err := q.GetContext(ctx, &locked, `SELECT id FROM clients WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return httperror.NewHTTPErrorf(http.StatusNotFound, "client %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to lock client for merge")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock client")
	}
	return nil
}

// CoalesceInto fills blank fields on the primary from the duplicate. Fields
// the primary already has keep their value; empty strings count as blank.
func (r *Repository) CoalesceInto(ctx context.Context, primaryID, duplicateID string) error {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.CoalesceInto")
	defer span.End()

	assignments := make([]string, 0, len(coalesceFields))
	for _, field := range coalesceFields {
		assignments = append(assignments, fmt.Sprintf("%s = COALESCE(NULLIF(p.%s, ''), d.%s)", field, field, field))
	}

	query := fmt.Sprintf(`
		UPDATE clients AS p
		SET %s, updated_at = $3
		FROM clients AS d
		WHERE p.id = $1 AND d.id = $2
	`, strings.Join(assignments, ", "))

	q := database.FromContext(ctx, r.db)
	result, err := q.ExecContext(ctx, query, primaryID, duplicateID, time.Now().UTC())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"primary_id": primaryID, "duplicate_id": duplicateID}).Error("Failed to coalesce client fields")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to coalesce client fields")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "client %s or %s not found", primaryID, duplicateID)
	}
	return nil
}

// Delete removes a client row. Only called for duplicates after their
// dependent references have been relinked.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("clients")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	q := database.FromContext(ctx, r.db)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete client")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete client")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "client %s not found", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted client")
	return nil
}
