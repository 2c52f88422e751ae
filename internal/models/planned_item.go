package models

import (
	"time"

	"github.com/google/uuid"
)

// Item type constants
const (
	ItemTypeRecipe = "recipe"
	ItemTypeNote   = "note"
)

// Meal slot constants
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotSnack     = "snack"
)

// ValidSlot reports whether s names a known meal slot
func ValidSlot(s string) bool {
	switch s {
	case SlotBreakfast, SlotLunch, SlotDinner, SlotSnack:
		return true
	}
	return false
}

// PlannedItem is a recipe or note scheduled onto a calendar date and meal slot
type PlannedItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	HouseholdID *string   `json:"householdId,omitempty"`
	ItemType    string    `json:"itemType"` // recipe | note
	Title       string    `json:"title"`
	RecipeID    *string   `json:"recipeId,omitempty"`
	Date        time.Time `json:"date"` // calendar date, midnight UTC
	Slot        string    `json:"slot"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewPlannedItem creates a planned item for the given user, date and slot
func NewPlannedItem(userID, itemType, title, slot string, date time.Time) *PlannedItem {
	now := time.Now().UTC()
	return &PlannedItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ItemType:  itemType,
		Title:     title,
		Slot:      slot,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Recipe is the minimal recipe record the sync engine needs (title + identity)
type Recipe struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecipe creates a recipe owned by the given user
func NewRecipe(userID, name string) *Recipe {
	now := time.Now().UTC()
	return &Recipe{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
