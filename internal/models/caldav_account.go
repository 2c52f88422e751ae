package models

import (
	"fmt"
	"strings"
	"time"
)

// CaldavAccount holds a user's CalDAV server configuration. At most one
// account exists per user. The password is stored encrypted and decrypted
// only when a protocol client is built from the account.
type CaldavAccount struct {
	UserID          string    `json:"userId"`
	ServerURL       string    `json:"serverUrl"`
	Username        string    `json:"username"`
	PasswordEnc     string    `json:"-"` // encrypted at rest, never exposed
	Enabled         bool      `json:"enabled"`
	BreakfastWindow string    `json:"breakfastWindow"` // HH:MM-HH:MM
	LunchWindow     string    `json:"lunchWindow"`
	DinnerWindow    string    `json:"dinnerWindow"`
	SnackWindow     string    `json:"snackWindow"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Default meal time windows
const (
	DefaultBreakfastWindow = "07:00-08:00"
	DefaultLunchWindow     = "12:00-13:00"
	DefaultDinnerWindow    = "18:00-19:00"
	DefaultSnackWindow     = "15:00-15:30"
)

// SlotWindowFor returns the configured time window for a meal slot
func (a *CaldavAccount) SlotWindowFor(slot string) (SlotWindow, error) {
	var raw string
	switch slot {
	case SlotBreakfast:
		raw = a.BreakfastWindow
	case SlotLunch:
		raw = a.LunchWindow
	case SlotDinner:
		raw = a.DinnerWindow
	case SlotSnack:
		raw = a.SnackWindow
	default:
		return SlotWindow{}, fmt.Errorf("unknown meal slot %q", slot)
	}
	return ParseSlotWindow(raw)
}

// SlotWindow is a time-of-day range for one meal slot
type SlotWindow struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// ParseSlotWindow parses a "HH:MM-HH:MM" range
func ParseSlotWindow(s string) (SlotWindow, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return SlotWindow{}, fmt.Errorf("invalid time window %q: expected HH:MM-HH:MM", s)
	}

	var w SlotWindow
	if _, err := fmt.Sscanf(parts[0], "%d:%d", &w.StartHour, &w.StartMinute); err != nil {
		return SlotWindow{}, fmt.Errorf("invalid window start %q: %w", parts[0], err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d:%d", &w.EndHour, &w.EndMinute); err != nil {
		return SlotWindow{}, fmt.Errorf("invalid window end %q: %w", parts[1], err)
	}

	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 ||
		w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return SlotWindow{}, fmt.Errorf("time window %q out of range", s)
	}

	return w, nil
}

// Bounds combines the window with a calendar date. Times are constructed as
// UTC wall-clock equivalents of the configured range; no timezone conversion
// is applied.
func (w SlotWindow) Bounds(date time.Time) (start, end time.Time) {
	start = time.Date(date.Year(), date.Month(), date.Day(), w.StartHour, w.StartMinute, 0, 0, time.UTC)
	end = time.Date(date.Year(), date.Month(), date.Day(), w.EndHour, w.EndMinute, 0, 0, time.UTC)
	return start, end
}

// Validate checks the account fields that must be present before saving
func (a *CaldavAccount) Validate() error {
	if strings.TrimSpace(a.ServerURL) == "" {
		return fmt.Errorf("server URL is required")
	}
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("username is required")
	}
	for _, raw := range []string{a.BreakfastWindow, a.LunchWindow, a.DinnerWindow, a.SnackWindow} {
		if _, err := ParseSlotWindow(raw); err != nil {
			return err
		}
	}
	return nil
}
