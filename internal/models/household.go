package models

import (
	"time"

	"github.com/google/uuid"
)

// Household groups users that plan meals together
type Household struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// HouseholdMember links a user to a household
type HouseholdMember struct {
	HouseholdID string    `json:"householdId"`
	UserID      string    `json:"userId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// NewHousehold creates a new household owned by the given user
func NewHousehold(name, ownerID string) *Household {
	return &Household{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
}
