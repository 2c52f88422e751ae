package events

import (
	"sync"

	"github.com/mealsync/server/internal/models"
	"github.com/mealsync/server/internal/observability"
)

// EventType identifies a domain event
type EventType string

const (
	ItemPlanned         EventType = "item.planned"
	ItemUpdated         EventType = "item.updated"
	ItemDeleted         EventType = "item.deleted"
	RecipeRenamed       EventType = "recipe.renamed"
	ItemStatusUpdated   EventType = "sync.itemStatusUpdated"
	SyncStarted         EventType = "sync.started"
	SyncCompleted       EventType = "sync.completed"
	SyncFailed          EventType = "sync.failed"
	InitialSyncComplete EventType = "sync.initialComplete"
	ConfigSaved         EventType = "caldav.configSaved"
)

// ItemEvent carries a planned item lifecycle change
type ItemEvent struct {
	UserID string
	Item   *models.PlannedItem
}

// ItemDeletedEvent carries a deletion. The item row is already gone, so
// only identifiers travel with it.
type ItemDeletedEvent struct {
	UserID string
	ItemID string
}

// RecipeRenamedEvent carries a recipe rename affecting planned items
type RecipeRenamedEvent struct {
	UserID   string
	RecipeID string
	NewName  string
}

// StatusEvent carries a sync status transition for one item
type StatusEvent struct {
	UserID string
	Status *models.SyncStatus
}

// SyncRunEvent carries the outcome of a bulk sync run
type SyncRunEvent struct {
	UserID string
	Result *models.BulkSyncResult
}

// ConfigSavedEvent signals that a user saved their calendar settings
type ConfigSavedEvent struct {
	UserID string
}

// Handler receives a published event. The payload type depends on the
// EventType the handler subscribed to.
type Handler func(eventType EventType, payload interface{})

// Bus is an in-process publish/subscribe dispatcher. Subscriptions are
// wired once at startup; Publish never blocks the caller on handler work.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
	closed   bool
	logger   *observability.Logger
}

// NewBus creates an event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   observability.GetLogger().WithField("component", "events"),
	}
}

// Subscribe registers a handler for an event type. Not safe to call
// concurrently with Publish; register all handlers before serving.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish dispatches the event to all subscribed handlers, each on its
// own goroutine. A panicking handler is logged and does not take down
// the process or other handlers.
func (b *Bus) Publish(eventType EventType, payload interface{}) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := b.handlers[eventType]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.
						WithField("event_type", string(eventType)).
						Errorf("event handler panicked: %v", r)
				}
			}()
			h(eventType, payload)
		}(handler)
	}
}

// Wait blocks until all in-flight handlers have returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Close stops accepting new events and waits for in-flight handlers
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
