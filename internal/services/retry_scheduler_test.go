package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealsync/server/internal/models"
)

type schedulerFixture struct {
	*managerFixture
	scheduler *RetryScheduler
	items     *fakeItemRepo
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	mf := newManagerFixture(t)
	items := newFakeItemRepo()
	scheduler := NewRetryScheduler(mf.manager, mf.statuses, items, NewRetryPolicy(), time.Minute)
	return &schedulerFixture{managerFixture: mf, scheduler: scheduler, items: items}
}

func failedRow(userID, itemID string, retryCount int, lastSyncAgo time.Duration) *models.SyncStatus {
	row := models.NewSyncStatus(userID, itemID, models.ItemTypeNote, nil, "t")
	row.Status = models.SyncStateFailed
	row.RetryCount = retryCount
	ts := time.Now().UTC().Add(-lastSyncAgo)
	row.LastSyncAt = &ts
	return row
}

func TestRunSweepRetriesEligibleRows(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.items.Add(ctx, plannedNote("u-1", "item-1", "t", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, f.statuses.Upsert(ctx, failedRow("u-1", "item-1", 1, time.Hour)))

	result := f.scheduler.RunSweep(ctx)
	f.bus.Wait()

	assert.Equal(t, 1, result.Retried)
	assert.Zero(t, result.Skipped)
	assert.Len(t, f.client.created(), 1)

	row, err := f.statuses.Get(ctx, "u-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateSynced, row.Status)
	assert.Zero(t, row.RetryCount)
}

func TestRunSweepSkipsRowsInsideBackoff(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.items.Add(ctx, plannedNote("u-1", "item-1", "t", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))))
	// retryCount 5 needs 32 minutes of backoff; only 10 have passed
	require.NoError(t, f.statuses.Upsert(ctx, failedRow("u-1", "item-1", 5, 10*time.Minute)))

	result := f.scheduler.RunSweep(ctx)

	assert.Zero(t, result.Retried)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.client.created())
}

func TestRunSweepSkipsRowsAtRetryCeiling(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.items.Add(ctx, plannedNote("u-1", "item-1", "t", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, f.statuses.Upsert(ctx, failedRow("u-1", "item-1", 10, 48*time.Hour)))

	result := f.scheduler.RunSweep(ctx)

	assert.Zero(t, result.Retried)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunSweepSkipsRowsWhoseItemIsGone(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.statuses.Upsert(ctx, failedRow("u-1", "item-gone", 1, time.Hour)))

	result := f.scheduler.RunSweep(ctx)

	assert.Zero(t, result.Retried)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.client.created())

	// row survives untouched for the next pass
	row, err := f.statuses.Get(ctx, "u-1", "item-gone")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateFailed, row.Status)
}

func TestRunSweepCoversMultipleUsers(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-2", time.Now())))

	for _, userID := range []string{"u-1", "u-2"} {
		item := plannedNote(userID, "item-"+userID, "t", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, f.items.Add(ctx, item))
		require.NoError(t, f.statuses.Upsert(ctx, failedRow(userID, item.ID, 0, time.Hour)))
	}

	result := f.scheduler.RunSweep(ctx)
	f.bus.Wait()

	assert.Equal(t, 2, result.Retried)
	assert.Len(t, f.client.created(), 2)
}

func TestRemovedRowsNeverRetried(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accounts.Upsert(ctx, testAccount("u-1", time.Now())))

	require.NoError(t, f.items.Add(ctx, plannedNote("u-1", "item-1", "t", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))))
	row := failedRow("u-1", "item-1", 1, time.Hour)
	row.Status = models.SyncStateRemoved
	require.NoError(t, f.statuses.Upsert(ctx, row))

	result := f.scheduler.RunSweep(ctx)

	assert.Zero(t, result.Retried)
	assert.Zero(t, result.Skipped)
	assert.Empty(t, f.client.created())
}

func TestRunSweepSkipsWhenConfigDisabled(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	// rows were listed before the user disabled their account
	account := testAccount("u-1", time.Now())
	account.Enabled = false
	require.NoError(t, f.accounts.Upsert(ctx, account))

	require.NoError(t, f.items.Add(ctx, plannedNote("u-1", "item-1", "t", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, f.statuses.Upsert(ctx, failedRow("u-1", "item-1", 1, time.Hour)))

	result := f.scheduler.RunSweep(ctx)

	assert.Zero(t, result.Retried)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.client.created())
}
