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

func TestFindGroups_EmailCaseAndWhitespace(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "John@Example.com", "", base))
	store.addClient(testClient("b", " john@example.com ", "", base.Add(time.Hour)))
	store.addClient(testClient("c", "other@example.com", "", base.Add(2*time.Hour)))

	grouper := NewGrouper(store, testLogger(), "")
	groups, err := grouper.FindGroups(context.Background(), models.MatchModeEmail, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	assert.Equal(t, models.KeyKindEmail, groups[0].Key.Kind)
	assert.Equal(t, "john@example.com", groups[0].Key.Value)
	assert.Equal(t, []string{"a", "b"}, groups[0].MemberIDs)
	assert.Equal(t, 2, groups[0].Size)
}

func TestFindGroups_PhoneNationalAndInternationalFormats(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "", "0664 123 4567", base))
	store.addClient(testClient("b", "", "+43 664 123 4567", base.Add(time.Hour)))
	store.addClient(testClient("c", "", "00436641234567", base.Add(2*time.Hour)))

	grouper := NewGrouper(store, testLogger(), "43")
	groups, err := grouper.FindGroups(context.Background(), models.MatchModePhone, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	assert.Equal(t, "436641234567", groups[0].Key.Value)
	assert.Equal(t, []string{"a", "b", "c"}, groups[0].MemberIDs)
}

func TestFindGroups_BlankKeysNeverGroup(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "", "", base))
	store.addClient(testClient("b", "", "", base.Add(time.Hour)))
	store.addClient(testClient("c", "   ", "", base.Add(2*time.Hour)))

	grouper := NewGrouper(store, testLogger(), "")
	groups, err := grouper.FindGroups(context.Background(), models.MatchModeBoth, 0)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindGroups_SingletonsDropped(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "a@example.com", "", base))
	store.addClient(testClient("b", "b@example.com", "", base))

	grouper := NewGrouper(store, testLogger(), "")
	groups, err := grouper.FindGroups(context.Background(), models.MatchModeEmail, 0)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindGroups_BothModeClientInEmailAndPhoneGroups(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.addClient(testClient("a", "shared@example.com", "5551234", base))
	store.addClient(testClient("b", "shared@example.com", "", base.Add(time.Hour)))
	store.addClient(testClient("c", "", "5551234", base.Add(2*time.Hour)))

	grouper := NewGrouper(store, testLogger(), "")
	groups, err := grouper.FindGroups(context.Background(), models.MatchModeBoth, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	kinds := []models.KeyKind{groups[0].Key.Kind, groups[1].Key.Kind}
	assert.Contains(t, kinds, models.KeyKindEmail)
	assert.Contains(t, kinds, models.KeyKindPhone)
	for _, group := range groups {
		assert.Contains(t, group.MemberIDs, "a")
	}
}

func TestFindGroups_OrderedBySizeAndCapped(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"big@x.com", "big@x.com", "big@x.com", "small@x.com", "small@x.com"} {
		store.addClient(testClient(string(rune('a'+i)), email, "", base.Add(time.Duration(i)*time.Minute)))
	}

	grouper := NewGrouper(store, testLogger(), "")
	groups, err := grouper.FindGroups(context.Background(), models.MatchModeEmail, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 3, groups[0].Size)
	assert.Equal(t, 2, groups[1].Size)

	capped, err := grouper.FindGroups(context.Background(), models.MatchModeEmail, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "big@x.com", capped[0].Key.Value)
}

func TestFindGroups_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.contactErr = errors.New("connection refused")

	grouper := NewGrouper(store, testLogger(), "")
	_, err := grouper.FindGroups(context.Background(), models.MatchModeBoth, 0)
	require.Error(t, err)

	var mergeErr *models.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, models.ErrorKindStoreUnavailable, mergeErr.Kind)
}
