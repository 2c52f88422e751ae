package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotWindow(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SlotWindow
		wantErr bool
	}{
		{"standard range", "07:00-08:00", SlotWindow{7, 0, 8, 0}, false},
		{"half hours", "18:30-19:45", SlotWindow{18, 30, 19, 45}, false},
		{"surrounding whitespace", " 12:00-13:00 ", SlotWindow{12, 0, 13, 0}, false},
		{"missing dash", "12:00", SlotWindow{}, true},
		{"garbage", "noonish", SlotWindow{}, true},
		{"hour out of range", "25:00-26:00", SlotWindow{}, true},
		{"minute out of range", "12:61-13:00", SlotWindow{}, true},
		{"empty", "", SlotWindow{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSlotWindow(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlotWindowBounds(t *testing.T) {
	w, err := ParseSlotWindow("18:00-19:00")
	require.NoError(t, err)

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	start, end := w.Bounds(date)

	assert.Equal(t, time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC), end)
}

func TestCaldavAccountSlotWindowFor(t *testing.T) {
	acct := &CaldavAccount{
		BreakfastWindow: DefaultBreakfastWindow,
		LunchWindow:     DefaultLunchWindow,
		DinnerWindow:    DefaultDinnerWindow,
		SnackWindow:     DefaultSnackWindow,
	}

	t.Run("resolves each slot", func(t *testing.T) {
		for _, slot := range []string{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack} {
			_, err := acct.SlotWindowFor(slot)
			assert.NoError(t, err, slot)
		}
	})

	t.Run("rejects unknown slot", func(t *testing.T) {
		_, err := acct.SlotWindowFor("brunch")
		assert.Error(t, err)
	})
}

func TestCaldavAccountValidate(t *testing.T) {
	valid := &CaldavAccount{
		ServerURL:       "https://dav.example.com/calendars/alice/meals/",
		Username:        "alice",
		BreakfastWindow: DefaultBreakfastWindow,
		LunchWindow:     DefaultLunchWindow,
		DinnerWindow:    DefaultDinnerWindow,
		SnackWindow:     DefaultSnackWindow,
	}
	assert.NoError(t, valid.Validate())

	t.Run("missing server URL", func(t *testing.T) {
		a := *valid
		a.ServerURL = " "
		assert.Error(t, a.Validate())
	})

	t.Run("bad window", func(t *testing.T) {
		a := *valid
		a.DinnerWindow = "dinner time"
		assert.Error(t, a.Validate())
	})
}
