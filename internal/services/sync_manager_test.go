package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/models"
)

type managerFixture struct {
	manager  *SyncManager
	client   *fakeClient
	accounts *fakeAccountRepo
	statuses *fakeStatusRepo
	houses   *fakeHouseholdRepo
	bus      *events.Bus
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	client := &fakeClient{}
	accounts := newFakeAccountRepo()
	statuses := newFakeStatusRepo()
	houses := newFakeHouseholdRepo()
	bus := events.NewBus()
	manager := NewSyncManager(accounts, statuses, houses, &fakeFactory{client: client}, bus, "https://meals.example.com")
	return &managerFixture{
		manager:  manager,
		client:   client,
		accounts: accounts,
		statuses: statuses,
		houses:   houses,
		bus:      bus,
	}
}

func TestSyncPlannedItemNotConfigured(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	err := f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	assert.ErrorIs(t, err, ErrNotConfigured)

	// disabled account behaves like a missing one
	account := testAccount("u-1", time.Now())
	account.Enabled = false
	require.NoError(t, f.accounts.Upsert(ctx, account))

	err = f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	assert.ErrorIs(t, err, ErrNotConfigured)

	// no status row was touched either way
	row, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSyncPlannedItemSuccess(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	recipeID := "r-9"
	req := testRequest("u-1", "item-1", "Spaghetti Carbonara")
	req.ItemType = models.ItemTypeRecipe
	req.RecipeID = &recipeID

	require.NoError(t, f.manager.SyncPlannedItem(ctx, req))
	f.bus.Wait()

	created := f.client.created()
	require.Len(t, created, 1)
	assert.Equal(t, "Spaghetti Carbonara", created[0].Title)
	assert.Equal(t, "https://meals.example.com/recipes/r-9", created[0].Link)
	assert.Equal(t, "https://meals.example.com/recipes/r-9", created[0].Description)
	// dinner window 18:00-19:00 combined with the date as UTC wall clock
	assert.Equal(t, time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC), created[0].Start)
	assert.Equal(t, time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC), created[0].End)

	row, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.SyncStateSynced, row.Status)
	require.NotNil(t, row.CaldavEventUID)
	assert.Equal(t, "uid-1", *row.CaldavEventUID)
	assert.Zero(t, row.RetryCount)
	assert.Nil(t, row.ErrorMessage)
	assert.NotNil(t, row.LastSyncAt)
}

func TestSyncPlannedItemNoteHasNoDeepLink(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "leftovers")))
	f.bus.Wait()

	created := f.client.created()
	require.Len(t, created, 1)
	assert.Empty(t, created[0].Link)
	assert.Empty(t, created[0].Description)
}

func TestSyncPlannedItemFailure(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))
	f.client.createErr = errors.New("connection refused")

	err := f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
	f.bus.Wait()

	row, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.SyncStateFailed, row.Status)
	assert.Nil(t, row.CaldavEventUID)
	assert.Zero(t, row.RetryCount) // first failure of a brand-new row
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "connection refused", *row.ErrorMessage)
	assert.NotNil(t, row.LastSyncAt)
}

func TestSyncPlannedItemFailureIncrementsRetryCount(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))
	f.client.createErr = errors.New("boom")

	_ = f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	_ = f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	_ = f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	f.bus.Wait()

	row, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.RetryCount)
}

func TestSyncPlannedItemTruncatesLongErrors(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))
	f.client.createErr = errors.New(strings.Repeat("x", 600))

	_ = f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal"))
	f.bus.Wait()

	row, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	require.NotNil(t, row.ErrorMessage)
	assert.Len(t, *row.ErrorMessage, 500)
	assert.True(t, strings.HasSuffix(*row.ErrorMessage, "..."))
}

func TestSyncPlannedItemRenameRecreatesEvent(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Old Title")))
	before, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	oldUID := *before.CaldavEventUID

	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "New Title")))
	f.bus.Wait()

	assert.Equal(t, []string{oldUID}, f.client.deleted())
	require.Len(t, f.client.created(), 2)

	after, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	require.NotNil(t, after.CaldavEventUID)
	assert.NotEqual(t, oldUID, *after.CaldavEventUID)
	assert.Equal(t, "New Title", after.EventTitle)
}

func TestSyncPlannedItemSameTitleDoesNotDelete(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Same Title")))
	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Same Title")))
	f.bus.Wait()

	assert.Empty(t, f.client.deleted())
	assert.Len(t, f.client.created(), 2)
}

func TestDeletePlannedItemNoRowIsNoop(t *testing.T) {
	f := newManagerFixture(t)
	assert.NoError(t, f.manager.DeletePlannedItem(context.Background(), "u-1", "missing"))
	assert.Empty(t, f.client.deleted())
}

func TestDeletePlannedItemWithoutUIDSkipsNetwork(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	row := models.NewSyncStatus("u-1", "item-1", models.ItemTypeNote, nil, "Oatmeal")
	row.Status = models.SyncStateFailed
	require.NoError(t, f.statuses.Upsert(ctx, row))

	require.NoError(t, f.manager.DeletePlannedItem(ctx, "u-1", "item-1"))
	f.bus.Wait()

	assert.Empty(t, f.client.deleted())
	after, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateRemoved, after.Status)
}

func TestDeletePlannedItemConfigDisabledStillTombstones(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal")))

	account, _ := f.accounts.GetByUserID(ctx, "u-1")
	account.Enabled = false
	require.NoError(t, f.accounts.Upsert(ctx, account))

	require.NoError(t, f.manager.DeletePlannedItem(ctx, "u-1", "item-1"))
	f.bus.Wait()

	// the remote event is abandoned, no delete call goes out
	assert.Empty(t, f.client.deleted())
	after, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateRemoved, after.Status)
	assert.Nil(t, after.CaldavEventUID)
}

func TestDeletePlannedItemRemoteFailureSwallowedButRecorded(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal")))
	f.client.deleteErr = errors.New("server exploded")

	require.NoError(t, f.manager.DeletePlannedItem(ctx, "u-1", "item-1"))
	f.bus.Wait()

	after, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateRemoved, after.Status)
	require.NotNil(t, after.ErrorMessage)
	assert.Contains(t, *after.ErrorMessage, "server exploded")
}

func TestSyncToHouseholdServersDedupesByURL(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.houses.AddMember(ctx, "h-1", "u-1"))
	require.NoError(t, f.houses.AddMember(ctx, "h-1", "u-2"))

	first := testAccount("u-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	second := testAccount("u-2", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	second.ServerURL = first.ServerURL // same server, different credentials
	require.NoError(t, f.accounts.Upsert(ctx, first))
	require.NoError(t, f.accounts.Upsert(ctx, second))

	results, err := f.manager.SyncToHouseholdServers(ctx, "h-1", testRequest("u-1", "item-1", "Taco Night"))
	require.NoError(t, err)
	f.bus.Wait()

	require.Len(t, results, 1)
	assert.Equal(t, "u-1", results[0].UserID) // first registered wins
	assert.NoError(t, results[0].Err)
	assert.Len(t, f.client.created(), 1)
}

func TestSyncToHouseholdServersIndependentFailures(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.houses.AddMember(ctx, "h-1", "u-1"))
	require.NoError(t, f.houses.AddMember(ctx, "h-1", "u-2"))
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-2", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))))

	// distinct server URLs, so both members get a call; make every
	// create fail and verify both outcomes are collected
	f.client.createErr = errors.New("down")

	results, err := f.manager.SyncToHouseholdServers(ctx, "h-1", testRequest("u-1", "item-1", "Taco Night"))
	require.NoError(t, err)
	f.bus.Wait()

	require.Len(t, results, 2)
	for _, result := range results {
		assert.Error(t, result.Err)
	}
}

func TestSyncPlannedItemNeverRevivesTombstone(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	row := models.NewSyncStatus("u-1", "item-1", models.ItemTypeNote, nil, "Oatmeal")
	row.Status = models.SyncStateRemoved
	require.NoError(t, f.statuses.Upsert(ctx, row))

	// a stale update arriving after the delete must not recreate the event
	require.NoError(t, f.manager.SyncPlannedItem(ctx, testRequest("u-1", "item-1", "Oatmeal")))

	assert.Empty(t, f.client.created())
	got, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateRemoved, got.Status)
	assert.Nil(t, got.CaldavEventUID)
}
