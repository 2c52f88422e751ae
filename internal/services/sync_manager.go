package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mealsync/server/internal/caldav"
	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/models"
	"github.com/mealsync/server/internal/observability"
	"github.com/mealsync/server/internal/repository"
)

// ErrNotConfigured is returned when a user has no enabled CalDAV account.
// No status row is created or modified in that case.
var ErrNotConfigured = errors.New("caldav is not configured for this user")

// SyncRequest describes one planned item to push to the calendar
type SyncRequest struct {
	UserID        string
	ItemID        string
	ItemType      string
	PlannedItemID *string
	EventTitle    string
	Date          time.Time
	Slot          string
	RecipeID      *string
}

// ServerSyncResult is the outcome of one server in a household fan-out
type ServerSyncResult struct {
	ServerURL string
	UserID    string
	Err       error
}

// SyncManager pushes planned items to users' CalDAV servers and keeps the
// per-item status rows consistent with the outcome of every attempt.
type SyncManager struct {
	accountRepo repository.CaldavAccountRepo
	statusRepo  repository.SyncStatusRepo
	household   repository.HouseholdRepo
	factory     caldav.ClientFactory
	bus         *events.Bus
	appBaseURL  string
	metrics     *observability.SyncMetrics
	logger      *observability.Logger
}

// NewSyncManager creates a SyncManager
func NewSyncManager(
	accountRepo repository.CaldavAccountRepo,
	statusRepo repository.SyncStatusRepo,
	household repository.HouseholdRepo,
	factory caldav.ClientFactory,
	bus *events.Bus,
	appBaseURL string,
) *SyncManager {
	return &SyncManager{
		accountRepo: accountRepo,
		statusRepo:  statusRepo,
		household:   household,
		factory:     factory,
		bus:         bus,
		appBaseURL:  appBaseURL,
		logger:      observability.GetLogger().WithField("component", "sync_manager"),
	}
}

// SetMetrics attaches the sync metrics instruments. Optional; a nil
// receiver on the instruments is a no-op.
func (m *SyncManager) SetMetrics(metrics *observability.SyncMetrics) {
	m.metrics = metrics
}

// SyncPlannedItem pushes one planned item to the user's CalDAV server.
// A rename (existing row with a UID and a different stored title) deletes
// the old event first so at most one event exists per item. The status row
// records the outcome either way; on failure the error is also returned.
func (m *SyncManager) SyncPlannedItem(ctx context.Context, req SyncRequest) error {
	account, err := m.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to load caldav account: %w", err)
	}
	if account == nil || !account.Enabled {
		return ErrNotConfigured
	}

	existing, err := m.statusRepo.Get(ctx, req.UserID, req.ItemID)
	if err != nil {
		return fmt.Errorf("failed to load sync status: %w", err)
	}
	if existing != nil && existing.Status == models.SyncStateRemoved {
		// a tombstone means the item was deleted; never revive it
		return nil
	}

	client, err := m.factory.ClientFor(account)
	if err != nil {
		return m.recordFailure(ctx, req, existing, err)
	}

	if existing != nil && existing.CaldavEventUID != nil && existing.EventTitle != req.EventTitle {
		m.logger.WithFields(map[string]interface{}{
			"user_id": req.UserID,
			"item_id": req.ItemID,
		}).Info("title changed, recreating calendar event")
		if err := client.DeleteEvent(ctx, *existing.CaldavEventUID); err != nil {
			m.logger.WithField("item_id", req.ItemID).Warnf("failed to delete renamed event: %v", err)
		}
		existing.CaldavEventUID = nil
	}

	window, err := account.SlotWindowFor(req.Slot)
	if err != nil {
		return m.recordFailure(ctx, req, existing, err)
	}
	start, end := window.Bounds(req.Date)

	event := caldav.Event{
		Title: req.EventTitle,
		Start: start,
		End:   end,
	}
	if req.RecipeID != nil {
		link := fmt.Sprintf("%s/recipes/%s", m.appBaseURL, *req.RecipeID)
		event.Description = link
		event.Link = link
	}

	uid, err := client.CreateEvent(ctx, event)
	if err != nil {
		return m.recordFailure(ctx, req, existing, err)
	}

	status := m.statusFor(req, existing)
	status.Status = models.SyncStateSynced
	status.CaldavEventUID = &uid
	status.RetryCount = 0
	status.ErrorMessage = nil
	now := time.Now().UTC()
	status.LastSyncAt = &now

	if err := m.statusRepo.Upsert(ctx, status); err != nil {
		return fmt.Errorf("failed to persist sync status: %w", err)
	}

	m.metrics.RecordSyncAttempt(ctx, req.ItemType, true)
	m.bus.Publish(events.ItemStatusUpdated, &events.StatusEvent{UserID: req.UserID, Status: status})
	m.bus.Publish(events.SyncCompleted, &events.StatusEvent{UserID: req.UserID, Status: status})
	return nil
}

// DeletePlannedItem removes an item's calendar event and tombstones its
// status row. Remote failures are recorded but never retried; there is no
// item left to resynchronize.
func (m *SyncManager) DeletePlannedItem(ctx context.Context, userID, itemID string) error {
	existing, err := m.statusRepo.Get(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to load sync status: %w", err)
	}
	if existing == nil {
		return nil
	}

	var deleteErr error
	if existing.CaldavEventUID != nil {
		account, err := m.accountRepo.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load caldav account: %w", err)
		}
		if account != nil && account.Enabled {
			client, err := m.factory.ClientFor(account)
			if err != nil {
				deleteErr = err
			} else {
				deleteErr = client.DeleteEvent(ctx, *existing.CaldavEventUID)
			}
			m.metrics.RecordEventDelete(ctx, deleteErr == nil)
		}
	}

	var errorMessage *string
	if deleteErr != nil {
		m.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"item_id": itemID,
		}).Warnf("failed to delete calendar event, tombstoning anyway: %v", deleteErr)
		msg := TruncateError(deleteErr.Error())
		errorMessage = &msg
	}

	if err := m.statusRepo.MarkRemoved(ctx, userID, itemID, errorMessage); err != nil {
		return fmt.Errorf("failed to mark sync status removed: %w", err)
	}

	removed, err := m.statusRepo.Get(ctx, userID, itemID)
	if err == nil && removed != nil {
		m.bus.Publish(events.ItemStatusUpdated, &events.StatusEvent{UserID: userID, Status: removed})
	}
	return nil
}

// SyncToHouseholdServers pushes one item to every distinct CalDAV server
// among a household's members. Servers shared by several members get a
// single event, using the first-registered member's credentials. The calls
// run concurrently and each outcome is collected independently.
func (m *SyncManager) SyncToHouseholdServers(ctx context.Context, householdID string, req SyncRequest) ([]ServerSyncResult, error) {
	memberIDs, err := m.household.GetMemberUserIDs(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve household members: %w", err)
	}

	accounts, err := m.accountRepo.ListEnabledByUserIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load household accounts: %w", err)
	}

	// accounts arrive ordered by registration time, so the first account
	// seen for a URL wins
	seen := make(map[string]bool)
	var targets []*models.CaldavAccount
	for _, account := range accounts {
		if seen[account.ServerURL] {
			continue
		}
		seen[account.ServerURL] = true
		targets = append(targets, account)
	}

	results := make([]ServerSyncResult, len(targets))
	var wg sync.WaitGroup
	for i, account := range targets {
		wg.Add(1)
		go func(i int, account *models.CaldavAccount) {
			defer wg.Done()
			memberReq := req
			memberReq.UserID = account.UserID
			results[i] = ServerSyncResult{
				ServerURL: account.ServerURL,
				UserID:    account.UserID,
				Err:       m.SyncPlannedItem(ctx, memberReq),
			}
		}(i, account)
	}
	wg.Wait()

	return results, nil
}

// statusFor returns the row to write for this attempt, carrying forward
// identity fields from the existing row when there is one.
func (m *SyncManager) statusFor(req SyncRequest, existing *models.SyncStatus) *models.SyncStatus {
	status := models.NewSyncStatus(req.UserID, req.ItemID, req.ItemType, req.PlannedItemID, req.EventTitle)
	if existing != nil {
		status.CreatedAt = existing.CreatedAt
		status.RetryCount = existing.RetryCount
	}
	return status
}

func (m *SyncManager) recordFailure(ctx context.Context, req SyncRequest, existing *models.SyncStatus, cause error) error {
	status := m.statusFor(req, existing)
	status.Status = models.SyncStateFailed
	status.CaldavEventUID = nil
	if existing != nil {
		status.RetryCount = existing.RetryCount + 1
	}
	msg := TruncateError(cause.Error())
	status.ErrorMessage = &msg
	now := time.Now().UTC()
	status.LastSyncAt = &now

	if err := m.statusRepo.Upsert(ctx, status); err != nil {
		m.logger.WithField("item_id", req.ItemID).Errorf("failed to persist failed sync status: %v", err)
	}

	m.metrics.RecordSyncAttempt(ctx, req.ItemType, false)
	m.bus.Publish(events.ItemStatusUpdated, &events.StatusEvent{UserID: req.UserID, Status: status})
	m.bus.Publish(events.SyncFailed, &events.StatusEvent{UserID: req.UserID, Status: status})

	return fmt.Errorf("failed to sync item %s: %w", req.ItemID, cause)
}
