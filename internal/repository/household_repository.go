package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mealsync/server/internal/models"
)

// HouseholdRepository implements HouseholdRepo for PostgreSQL/SQLite
type HouseholdRepository struct {
	db *sql.DB
}

// NewHouseholdRepository creates a new HouseholdRepository
func NewHouseholdRepository(db *sql.DB) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

func (r *HouseholdRepository) GetMemberUserIDs(ctx context.Context, householdID string) ([]string, error) {
	query := `SELECT user_id FROM household_members WHERE household_id = $1 ORDER BY joined_at`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *HouseholdRepository) Add(ctx context.Context, household *models.Household) error {
	query := `INSERT INTO households (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query,
		household.ID, household.Name, household.OwnerID, household.CreatedAt,
	)
	return err
}

func (r *HouseholdRepository) AddMember(ctx context.Context, householdID, userID string) error {
	query := `INSERT INTO household_members (household_id, user_id, joined_at) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, householdID, userID, time.Now().UTC())
	return err
}
