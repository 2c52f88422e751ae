package services

import (
	"context"
	"errors"
	"time"

	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/models"
	"github.com/mealsync/server/internal/observability"
	"github.com/mealsync/server/internal/repository"
)

// EventTrigger translates planned item lifecycle events into sync manager
// calls. Each handler isolates its own failures so one item's sync error
// never prevents later events from being processed.
type EventTrigger struct {
	manager  *SyncManager
	itemRepo repository.PlannedItemRepo
	status   repository.SyncStatusRepo
	bus      *events.Bus
	logger   *observability.Logger
}

// NewEventTrigger creates an EventTrigger
func NewEventTrigger(
	manager *SyncManager,
	itemRepo repository.PlannedItemRepo,
	status repository.SyncStatusRepo,
	bus *events.Bus,
) *EventTrigger {
	return &EventTrigger{
		manager:  manager,
		itemRepo: itemRepo,
		status:   status,
		bus:      bus,
		logger:   observability.GetLogger().WithField("component", "event_trigger"),
	}
}

// Register wires the trigger onto the bus. Call once at startup.
func (t *EventTrigger) Register() {
	t.bus.Subscribe(events.ItemPlanned, func(_ events.EventType, payload interface{}) {
		if event, ok := payload.(*events.ItemEvent); ok {
			t.handleItemPlanned(context.Background(), event)
		}
	})
	t.bus.Subscribe(events.ItemUpdated, func(_ events.EventType, payload interface{}) {
		if event, ok := payload.(*events.ItemEvent); ok {
			t.handleItemUpdated(context.Background(), event)
		}
	})
	t.bus.Subscribe(events.ItemDeleted, func(_ events.EventType, payload interface{}) {
		if event, ok := payload.(*events.ItemDeletedEvent); ok {
			t.handleItemDeleted(context.Background(), event)
		}
	})
	t.bus.Subscribe(events.RecipeRenamed, func(_ events.EventType, payload interface{}) {
		if event, ok := payload.(*events.RecipeRenamedEvent); ok {
			t.handleRecipeRenamed(context.Background(), event)
		}
	})
}

func (t *EventTrigger) handleItemPlanned(ctx context.Context, event *events.ItemEvent) {
	req := requestFromItem(event.Item)
	if event.Item.HouseholdID != nil {
		if _, err := t.manager.SyncToHouseholdServers(ctx, *event.Item.HouseholdID, req); err != nil {
			t.logger.WithField("item_id", event.Item.ID).Errorf("household sync failed: %v", err)
		}
		return
	}
	if err := t.manager.SyncPlannedItem(ctx, req); err != nil && !errors.Is(err, ErrNotConfigured) {
		t.logger.WithField("item_id", event.Item.ID).Errorf("sync failed: %v", err)
	}
}

func (t *EventTrigger) handleItemUpdated(ctx context.Context, event *events.ItemEvent) {
	existing, err := t.status.Get(ctx, event.UserID, event.Item.ID)
	if err != nil {
		t.logger.WithField("item_id", event.Item.ID).Errorf("failed to load sync status: %v", err)
		return
	}
	if existing == nil {
		// never synced, nothing on the calendar to move
		return
	}
	if err := t.manager.SyncPlannedItem(ctx, requestFromItem(event.Item)); err != nil && !errors.Is(err, ErrNotConfigured) {
		t.logger.WithField("item_id", event.Item.ID).Errorf("resync failed: %v", err)
	}
}

func (t *EventTrigger) handleItemDeleted(ctx context.Context, event *events.ItemDeletedEvent) {
	if err := t.manager.DeletePlannedItem(ctx, event.UserID, event.ItemID); err != nil {
		t.logger.WithField("item_id", event.ItemID).Errorf("delete sync failed: %v", err)
	}
}

func (t *EventTrigger) handleRecipeRenamed(ctx context.Context, event *events.RecipeRenamedEvent) {
	items, err := t.itemRepo.ListByRecipe(ctx, event.RecipeID)
	if err != nil {
		t.logger.WithField("recipe_id", event.RecipeID).Errorf("failed to list planned items: %v", err)
		return
	}
	for _, item := range items {
		req := requestFromItem(item)
		req.EventTitle = event.NewName
		if err := t.manager.SyncPlannedItem(ctx, req); err != nil && !errors.Is(err, ErrNotConfigured) {
			t.logger.WithField("item_id", item.ID).Errorf("rename resync failed: %v", err)
		}
	}
}

// FullResync pushes every future-dated planned item for the user,
// regardless of existing sync state. Individual failures are counted,
// never aborting the run.
func (t *EventTrigger) FullResync(ctx context.Context, userID string) (*models.BulkSyncResult, error) {
	t.bus.Publish(events.SyncStarted, &events.SyncRunEvent{UserID: userID})

	items, err := t.itemRepo.ListFutureByUser(ctx, userID, time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}

	result := &models.BulkSyncResult{}
	for _, item := range items {
		if err := t.manager.SyncPlannedItem(ctx, requestFromItem(item)); err != nil {
			if errors.Is(err, ErrNotConfigured) {
				return result, err
			}
			result.TotalFailed++
			continue
		}
		result.TotalSynced++
	}

	t.bus.Publish(events.InitialSyncComplete, &events.SyncRunEvent{UserID: userID, Result: result})
	return result, nil
}

// RetryUserSync re-attempts the user's pending and failed rows, re-resolving
// each item's live data first. Rows whose item no longer exists are skipped.
func (t *EventTrigger) RetryUserSync(ctx context.Context, userID string) (*models.RetrySyncResult, error) {
	statuses, err := t.status.ListRetryable(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &models.RetrySyncResult{}
	for _, status := range statuses {
		item, err := t.itemRepo.GetByID(ctx, status.ItemID)
		if err != nil {
			t.logger.WithField("item_id", status.ItemID).Errorf("failed to resolve item: %v", err)
			result.TotalFailed++
			continue
		}
		if item == nil {
			continue
		}
		if err := t.manager.SyncPlannedItem(ctx, requestFromItem(item)); err != nil {
			if errors.Is(err, ErrNotConfigured) {
				return result, err
			}
			result.TotalFailed++
			continue
		}
		result.TotalRetried++
	}
	return result, nil
}

func requestFromItem(item *models.PlannedItem) SyncRequest {
	itemID := item.ID
	return SyncRequest{
		UserID:        item.UserID,
		ItemID:        itemID,
		ItemType:      item.ItemType,
		PlannedItemID: &itemID,
		EventTitle:    item.Title,
		Date:          item.Date,
		Slot:          item.Slot,
		RecipeID:      item.RecipeID,
	}
}
