package models

import "time"

// CaldavAccountResponse is the safe config format (no password material)
type CaldavAccountResponse struct {
	UserID          string    `json:"userId"`
	ServerURL       string    `json:"serverUrl"`
	Username        string    `json:"username"`
	Enabled         bool      `json:"enabled"`
	BreakfastWindow string    `json:"breakfastWindow"`
	LunchWindow     string    `json:"lunchWindow"`
	DinnerWindow    string    `json:"dinnerWindow"`
	SnackWindow     string    `json:"snackWindow"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ToResponse converts a CaldavAccount to its safe API form
func (a *CaldavAccount) ToResponse() CaldavAccountResponse {
	return CaldavAccountResponse{
		UserID:          a.UserID,
		ServerURL:       a.ServerURL,
		Username:        a.Username,
		Enabled:         a.Enabled,
		BreakfastWindow: a.BreakfastWindow,
		LunchWindow:     a.LunchWindow,
		DinnerWindow:    a.DinnerWindow,
		SnackWindow:     a.SnackWindow,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// SaveCaldavAccountRequest is the request body for saving a CalDAV config.
// An empty password keeps the previously stored one.
type SaveCaldavAccountRequest struct {
	ServerURL       string `json:"serverUrl"`
	Username        string `json:"username"`
	Password        string `json:"password,omitempty"`
	Enabled         bool   `json:"enabled"`
	BreakfastWindow string `json:"breakfastWindow,omitempty"`
	LunchWindow     string `json:"lunchWindow,omitempty"`
	DinnerWindow    string `json:"dinnerWindow,omitempty"`
	SnackWindow     string `json:"snackWindow,omitempty"`
}

// TestConnectionRequest probes a CalDAV server without saving anything
type TestConnectionRequest struct {
	ServerURL string `json:"serverUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// TestConnectionResponse reports the probe outcome
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SyncStatusListResponse is the paginated sync status list
type SyncStatusListResponse struct {
	Statuses   []*SyncStatus `json:"statuses"`
	TotalCount int           `json:"totalCount"`
	Skip       int           `json:"skip"`
	Take       int           `json:"take"`
}

// SyncSummary holds per-state row counts for one user
type SyncSummary struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

// BulkSyncResult aggregates a full resync over a user's planned items
type BulkSyncResult struct {
	TotalSynced int `json:"totalSynced"`
	TotalFailed int `json:"totalFailed"`
}

// RetrySyncResult aggregates a single-user retry pass
type RetrySyncResult struct {
	TotalRetried int `json:"totalRetried"`
	TotalFailed  int `json:"totalFailed"`
}

// SweepResult aggregates one scheduler pass over all users
type SweepResult struct {
	Retried int `json:"retried"`
	Skipped int `json:"skipped"`
}

// TriggerSyncResponse acknowledges a fire-and-forget bulk operation
type TriggerSyncResponse struct {
	Started bool `json:"started"`
}
