package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func newTestBatcher(store *memStore) *Batcher {
	logger := testLogger()
	grouper := NewGrouper(store, logger, "")
	planner := NewPlanner(store, grouper, logger)
	executor := NewExecutor(store, store, store, nil, nil, logger, 0)
	return NewBatcher(executor, planner, logger)
}

func TestExecuteBatch_BadInstructionDoesNotStopOthers(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("p1", "a@example.com", "", base))
	store.addClient(testClient("d1", "a@example.com", "", base.Add(time.Hour)))
	store.addClient(testClient("p2", "b@example.com", "", base))
	store.addClient(testClient("d2", "b@example.com", "", base.Add(time.Hour)))

	batcher := newTestBatcher(store)
	results, err := batcher.ExecuteBatch(context.Background(), []models.MergeInstruction{
		{PrimaryID: "p1", DuplicateIDs: []string{"d1"}},
		{PrimaryID: "ghost", DuplicateIDs: []string{"d2"}},
		{PrimaryID: "p2", DuplicateIDs: []string{"d2"}},
	}, false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].MergedCount)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, models.ErrorKindPrimaryNotFound, results[1].Error.Kind)
	assert.Equal(t, 1, results[2].MergedCount)
}

func TestExecuteBatch_StoreUnavailableAborts(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")

	batcher := newTestBatcher(store)
	results, err := batcher.ExecuteBatch(context.Background(), []models.MergeInstruction{
		{PrimaryID: "p1", DuplicateIDs: []string{"d1"}},
		{PrimaryID: "p2", DuplicateIDs: []string{"d2"}},
	}, false)
	require.Error(t, err)

	var mergeErr *models.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, models.ErrorKindStoreUnavailable, mergeErr.Kind)
	// The aborted call still reports what it got through.
	assert.Len(t, results, 1)
}

func TestRunAll_MergesEveryDiscoveredGroup(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "dup@example.com", "", base))
	store.addClient(testClient("b", "dup@example.com", "", base.Add(time.Hour)))
	store.addClient(testClient("c", "dup@example.com", "", base.Add(2*time.Hour)))
	store.addClient(testClient("d", "", "5551234", base.Add(3*time.Hour)))
	store.addClient(testClient("e", "", "5551234", base.Add(4*time.Hour)))
	store.addClient(testClient("solo", "solo@example.com", "", base))

	batcher := newTestBatcher(store)
	summary, err := batcher.RunAll(context.Background(), models.MatchModeBoth, models.StrategyKeepOldest, 0, false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Groups)
	assert.Equal(t, 3, summary.TotalMerged)
	assert.False(t, summary.DryRun)

	// keep-oldest left "a" and "d" standing, plus the unmatched client.
	for _, id := range []string{"a", "d", "solo"} {
		c, getErr := store.Get(context.Background(), id)
		require.NoError(t, getErr)
		assert.NotNil(t, c, id)
	}
	for _, id := range []string{"b", "c", "e"} {
		c, getErr := store.Get(context.Background(), id)
		require.NoError(t, getErr)
		assert.Nil(t, c, id)
	}
}

func TestRunAll_DryRunPreviewsWithoutWriting(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "dup@example.com", "", base))
	store.addClient(testClient("b", "dup@example.com", "", base.Add(time.Hour)))

	batcher := newTestBatcher(store)
	summary, err := batcher.RunAll(context.Background(), models.MatchModeEmail, models.StrategyKeepOldest, 0, true)
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Groups)
	assert.Equal(t, 1, summary.TotalMerged)

	assert.Len(t, store.clients, 2)
}

func TestService_EndToEnd(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "dup@example.com", "", base))
	store.addClient(testClient("b", "dup@example.com", "5551234", base.Add(time.Hour)))
	store.addRef("invoices", "inv-1", "b")

	sink := &recordingSink{}
	service := NewService(store, store, store, Options{Events: sink, Logger: testLogger()})

	groups, err := service.FindGroups(context.Background(), models.MatchModeBoth, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	suggestion, err := service.Suggest(context.Background(), groups[0], models.StrategyKeepOldest)
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "a", suggestion.Primary.ID)

	result, err := service.Merge(context.Background(), models.MergeInstruction{
		PrimaryID:    suggestion.Primary.ID,
		DuplicateIDs: []string{"b"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MergedCount)

	assert.Equal(t, 1, store.refCount("invoices", "a"))
	merged, _ := store.Get(context.Background(), "a")
	require.NotNil(t, merged)
	assert.Equal(t, "5551234", *merged.Phone)
	assert.Equal(t, []string{"a"}, sink.primaryIDs)
}
