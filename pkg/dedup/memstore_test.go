package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
)

// memStore is an in-memory ClientStore, DependentStore, and TxRunner used to
// exercise the engine without postgres. InTx snapshots state up front and
// restores it when fn fails, mimicking a rolled-back transaction.
type memStore struct {
	clients map[string]models.Client
	// refs holds dependent rows per table, row id -> client id.
	refs map[string]map[string]string

	contactErr   error
	getErr       error
	relinkErr    map[string]error
	countRefsErr error
	coalesceErr  error
	deleteErr    error
	// leftoverRefs makes CountRefs report rows relinking never moved.
	leftoverRefs map[string]int64

	lockedIDs []string
}

func newMemStore() *memStore {
	refs := make(map[string]map[string]string)
	for _, table := range []string{"invoices", "messages", "galleries", "files"} {
		refs[table] = make(map[string]string)
	}
	return &memStore{
		clients:   make(map[string]models.Client),
		refs:      refs,
		relinkErr: make(map[string]error),
	}
}

func (s *memStore) addClient(c models.Client) {
	s.clients[c.ID] = c
}

func (s *memStore) addRef(table, rowID, clientID string) {
	s.refs[table][rowID] = clientID
}

func (s *memStore) refCount(table, clientID string) int {
	count := 0
	for _, owner := range s.refs[table] {
		if owner == clientID {
			count++
		}
	}
	return count
}

func (s *memStore) Get(ctx context.Context, id string) (*models.Client, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *memStore) GetByIDs(ctx context.Context, ids []string) ([]models.Client, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	records := make([]models.Client, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.clients[id]; ok {
			records = append(records, c)
		}
	}
	return records, nil
}

func (s *memStore) ContactRows(ctx context.Context) ([]models.ClientContact, error) {
	if s.contactErr != nil {
		return nil, s.contactErr
	}
	rows := make([]models.ClientContact, 0, len(s.clients))
	for _, c := range s.clients {
		rows = append(rows, models.ClientContact{
			ID:        c.ID,
			Email:     c.Email,
			Phone:     c.Phone,
			CreatedAt: c.CreatedAt,
		})
	}
	// Match the repository's ORDER BY created_at, id.
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (s *memStore) LockForMerge(ctx context.Context, id string) error {
	if _, ok := s.clients[id]; !ok {
		return fmt.Errorf("client %s not found", id)
	}
	s.lockedIDs = append(s.lockedIDs, id)
	return nil
}

func (s *memStore) CoalesceInto(ctx context.Context, primaryID, duplicateID string) error {
	if s.coalesceErr != nil {
		return s.coalesceErr
	}
	p, ok := s.clients[primaryID]
	if !ok {
		return fmt.Errorf("client %s not found", primaryID)
	}
	d, ok := s.clients[duplicateID]
	if !ok {
		return fmt.Errorf("client %s not found", duplicateID)
	}
	p.Email = coalesce(p.Email, d.Email)
	p.Phone = coalesce(p.Phone, d.Phone)
	p.Address = coalesce(p.Address, d.Address)
	p.City = coalesce(p.City, d.City)
	p.State = coalesce(p.State, d.State)
	p.Zip = coalesce(p.Zip, d.Zip)
	p.Country = coalesce(p.Country, d.Country)
	p.UpdatedAt = time.Now().UTC()
	s.clients[primaryID] = p
	return nil
}

// coalesce mirrors COALESCE(NULLIF(p.field, ''), d.field).
func coalesce(p, d *string) *string {
	if p != nil && *p != "" {
		return p
	}
	return d
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.clients[id]; !ok {
		return fmt.Errorf("client %s not found", id)
	}
	delete(s.clients, id)
	return nil
}

func (s *memStore) Tables() []string {
	return []string{"invoices", "messages", "galleries", "files"}
}

func (s *memStore) Relink(ctx context.Context, table, fromID, toID string) (int64, error) {
	rows, ok := s.refs[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %s", table)
	}
	// An injected failure fires only when fromID actually owns rows in the
	// table, so a sibling duplicate with nothing to relink is unaffected.
	if err := s.relinkErr[table]; err != nil {
		for _, owner := range rows {
			if owner == fromID {
				return 0, err
			}
		}
	}
	var moved int64
	for rowID, owner := range rows {
		if owner == fromID {
			rows[rowID] = toID
			moved++
		}
	}
	return moved, nil
}

func (s *memStore) CountRefs(ctx context.Context, table, clientID string) (int64, error) {
	if s.countRefsErr != nil {
		return 0, s.countRefsErr
	}
	return int64(s.refCount(table, clientID)) + s.leftoverRefs[table], nil
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Mirror BeginTx: a cancelled context refuses the transaction.
	if err := ctx.Err(); err != nil {
		return err
	}

	clientsBak := make(map[string]models.Client, len(s.clients))
	for id, c := range s.clients {
		clientsBak[id] = c
	}
	refsBak := make(map[string]map[string]string, len(s.refs))
	for table, rows := range s.refs {
		rowsBak := make(map[string]string, len(rows))
		for rowID, owner := range rows {
			rowsBak[rowID] = owner
		}
		refsBak[table] = rowsBak
	}

	if err := fn(ctx); err != nil {
		s.clients = clientsBak
		s.refs = refsBak
		return err
	}
	return nil
}

// recordingLocker tracks every lock taken.
type recordingLocker struct {
	keys []string
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	l.keys = append(l.keys, key)
	return fn()
}

// recordingSink captures emitted merge events.
type recordingSink struct {
	primaryIDs  []string
	deletedIDs  []string
	mergedCount int
}

func (s *recordingSink) EmitClientMerged(ctx context.Context, primaryID string, duplicateIDs []string, mergedCount int) error {
	s.primaryIDs = append(s.primaryIDs, primaryID)
	s.mergedCount += mergedCount
	return nil
}

func (s *recordingSink) EmitClientDeleted(ctx context.Context, clientID string) error {
	s.deletedIDs = append(s.deletedIDs, clientID)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strptr(s string) *string {
	return &s
}

func testClient(id, email, phone string, createdAt time.Time) models.Client {
	c := models.Client{ID: id, CreatedAt: createdAt, UpdatedAt: createdAt}
	if email != "" {
		c.Email = strptr(email)
	}
	if phone != "" {
		c.Phone = strptr(phone)
	}
	return c
}
