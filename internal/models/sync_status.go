package models

import "time"

// Sync state constants
const (
	SyncStatePending = "pending"
	SyncStateSynced  = "synced"
	SyncStateFailed  = "failed"
	SyncStateRemoved = "removed"
)

// SyncStatus tracks one planned item's synchronization state with the
// external CalDAV server. Exactly zero or one row exists per (userId, itemId).
// A removed row is a tombstone: it stays queryable for history but is never
// revived and is excluded from retry sweeps.
type SyncStatus struct {
	UserID         string     `json:"userId"`
	ItemID         string     `json:"itemId"` // stable logical id, not the CalDAV UID
	ItemType       string     `json:"itemType"`
	PlannedItemID  *string    `json:"plannedItemId,omitempty"`
	EventTitle     string     `json:"eventTitle"` // last title pushed, used to detect renames
	Status         string     `json:"syncStatus"`
	CaldavEventUID *string    `json:"caldavEventUid,omitempty"` // non-nil only when synced
	RetryCount     int        `json:"retryCount"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewSyncStatus creates a pending status row for an item's first sync attempt
func NewSyncStatus(userID, itemID, itemType string, plannedItemID *string, eventTitle string) *SyncStatus {
	now := time.Now().UTC()
	return &SyncStatus{
		UserID:        userID,
		ItemID:        itemID,
		ItemType:      itemType,
		PlannedItemID: plannedItemID,
		EventTitle:    eventTitle,
		Status:        SyncStatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsRetryable reports whether the row is eligible for retry sweeps
func (s *SyncStatus) IsRetryable() bool {
	return s.Status == SyncStatePending || s.Status == SyncStateFailed
}
