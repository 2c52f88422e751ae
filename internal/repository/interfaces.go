package repository

import (
	"context"
	"time"

	"github.com/mealsync/server/internal/models"
)

// UserRepo defines the interface for user persistence operations
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*models.User, error)
	Add(ctx context.Context, user *models.User) error
	ListIDs(ctx context.Context) ([]string, error)
}

// HouseholdRepo defines the interface for household membership lookups
type HouseholdRepo interface {
	GetMemberUserIDs(ctx context.Context, householdID string) ([]string, error)
	Add(ctx context.Context, household *models.Household) error
	AddMember(ctx context.Context, householdID, userID string) error
}

// RecipeRepo defines the interface for recipe persistence operations
type RecipeRepo interface {
	GetByID(ctx context.Context, id string) (*models.Recipe, error)
	Add(ctx context.Context, recipe *models.Recipe) error
	Rename(ctx context.Context, id, newName string) error
}

// PlannedItemRepo defines the interface for planned item persistence
type PlannedItemRepo interface {
	GetByID(ctx context.Context, id string) (*models.PlannedItem, error)
	Add(ctx context.Context, item *models.PlannedItem) error
	Update(ctx context.Context, item *models.PlannedItem) error
	Delete(ctx context.Context, id string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PlannedItem, error)
	ListFutureByUser(ctx context.Context, userID string, from time.Time) ([]*models.PlannedItem, error)
	ListByRecipe(ctx context.Context, recipeID string) ([]*models.PlannedItem, error)
	UpdateTitlesByRecipe(ctx context.Context, recipeID, newTitle string) (int, error)
}

// CaldavAccountRepo defines the interface for CalDAV account config persistence
type CaldavAccountRepo interface {
	GetByUserID(ctx context.Context, userID string) (*models.CaldavAccount, error)
	Upsert(ctx context.Context, account *models.CaldavAccount) error
	Delete(ctx context.Context, userID string) (bool, error)
	// ListEnabledByUserIDs returns enabled accounts for the given users,
	// ordered by account creation time (oldest first).
	ListEnabledByUserIDs(ctx context.Context, userIDs []string) ([]*models.CaldavAccount, error)
}

// SyncStatusRepo defines the interface for sync status persistence
type SyncStatusRepo interface {
	Get(ctx context.Context, userID, itemID string) (*models.SyncStatus, error)
	// Upsert atomically inserts or replaces the row keyed by (userID, itemID).
	Upsert(ctx context.Context, status *models.SyncStatus) error
	// MarkRemoved tombstones the row; the CalDAV UID is cleared so removed
	// rows never claim a live external event.
	MarkRemoved(ctx context.Context, userID, itemID string, errorMessage *string) error
	ListByUser(ctx context.Context, userID, statusFilter string, skip, take int) ([]*models.SyncStatus, error)
	CountByUser(ctx context.Context, userID, statusFilter string) (int, error)
	// ListRetryable returns pending/failed rows for one user.
	ListRetryable(ctx context.Context, userID string) ([]*models.SyncStatus, error)
	// ListUserIDsWithRetryable returns every user with at least one
	// pending/failed row.
	ListUserIDsWithRetryable(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, userID string) (*models.SyncSummary, error)
}
