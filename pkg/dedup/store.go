// Package dedup implements the client identity deduplication and merge engine:
// duplicate discovery over normalized contact keys, strategy-driven merge
// planning, and transactional merge execution that relinks every dependent
// table before a duplicate row is removed.
package dedup

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ClientStore is the persistence surface the engine needs for client rows.
// The postgres implementation lives in internal/repositories/client; tests
// substitute an in-memory store.
type ClientStore interface {
	Get(ctx context.Context, id string) (*models.Client, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Client, error)
	ContactRows(ctx context.Context) ([]models.ClientContact, error)
	LockForMerge(ctx context.Context, id string) error
	CoalesceInto(ctx context.Context, primaryID, duplicateID string) error
	Delete(ctx context.Context, id string) error
}

// DependentStore relinks the fixed set of tables holding client references.
type DependentStore interface {
	Tables() []string
	Relink(ctx context.Context, table, fromID, toID string) (int64, error)
	CountRefs(ctx context.Context, table, clientID string) (int64, error)
}

// TxRunner scopes a function to one atomic transaction. The context passed
// to fn carries the transaction; fn returning an error rolls everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes merges across instances, keyed by primary id. Optional;
// the row lock taken inside each merge transaction covers a single instance.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// EventSink receives notifications about committed merges and the duplicate
// rows they removed.
type EventSink interface {
	EmitClientMerged(ctx context.Context, primaryID string, duplicateIDs []string, mergedCount int) error
	EmitClientDeleted(ctx context.Context, clientID string) error
}

// SQLTxRunner runs transactions on the shared connection pool.
type SQLTxRunner struct {
	db     database.DB
	logger ectologger.Logger
}

// NewSQLTxRunner creates a TxRunner backed by the database kit.
func NewSQLTxRunner(db database.DB, logger ectologger.Logger) *SQLTxRunner {
	return &SQLTxRunner{db: db, logger: logger}
}

// InTx implements TxRunner.
func (r *SQLTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.RunInTx(ctx, r.logger, r.db, &sql.TxOptions{}, fn)
}
