package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mealsync/server/internal/models"
)

// PlannedItemRepository implements PlannedItemRepo for PostgreSQL/SQLite
type PlannedItemRepository struct {
	db *sql.DB
}

// NewPlannedItemRepository creates a new PlannedItemRepository
func NewPlannedItemRepository(db *sql.DB) *PlannedItemRepository {
	return &PlannedItemRepository{db: db}
}

const plannedItemColumns = `id, user_id, household_id, item_type, title, recipe_id, date, slot, created_at, updated_at`

func scanPlannedItem(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.PlannedItem, error) {
	var item models.PlannedItem
	err := scanner.Scan(
		&item.ID, &item.UserID, &item.HouseholdID, &item.ItemType, &item.Title,
		&item.RecipeID, &item.Date, &item.Slot, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PlannedItemRepository) GetByID(ctx context.Context, id string) (*models.PlannedItem, error) {
	query := `SELECT ` + plannedItemColumns + ` FROM planned_items WHERE id = $1`

	item, err := scanPlannedItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PlannedItemRepository) Add(ctx context.Context, item *models.PlannedItem) error {
	query := `INSERT INTO planned_items (` + plannedItemColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.HouseholdID, item.ItemType, item.Title,
		item.RecipeID, item.Date, item.Slot, item.CreatedAt, item.UpdatedAt,
	)
	return err
}

func (r *PlannedItemRepository) Update(ctx context.Context, item *models.PlannedItem) error {
	query := `UPDATE planned_items
			  SET title = $1, recipe_id = $2, date = $3, slot = $4, updated_at = $5
			  WHERE id = $6`

	_, err := r.db.ExecContext(ctx, query,
		item.Title, item.RecipeID, item.Date, item.Slot, time.Now().UTC(), item.ID,
	)
	return err
}

func (r *PlannedItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM planned_items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PlannedItemRepository) ListByUser(ctx context.Context, userID string) ([]*models.PlannedItem, error) {
	query := `SELECT ` + plannedItemColumns + ` FROM planned_items
			  WHERE user_id = $1 ORDER BY date, slot`
	return r.queryItems(ctx, query, userID)
}

func (r *PlannedItemRepository) ListFutureByUser(ctx context.Context, userID string, from time.Time) ([]*models.PlannedItem, error) {
	query := `SELECT ` + plannedItemColumns + ` FROM planned_items
			  WHERE user_id = $1 AND date >= $2 ORDER BY date, slot`
	return r.queryItems(ctx, query, userID, from)
}

func (r *PlannedItemRepository) ListByRecipe(ctx context.Context, recipeID string) ([]*models.PlannedItem, error) {
	query := `SELECT ` + plannedItemColumns + ` FROM planned_items
			  WHERE recipe_id = $1 ORDER BY date, slot`
	return r.queryItems(ctx, query, recipeID)
}

func (r *PlannedItemRepository) UpdateTitlesByRecipe(ctx context.Context, recipeID, newTitle string) (int, error) {
	query := `UPDATE planned_items SET title = $1, updated_at = $2 WHERE recipe_id = $3`

	result, err := r.db.ExecContext(ctx, query, newTitle, time.Now().UTC(), recipeID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *PlannedItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.PlannedItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.PlannedItem
	for rows.Next() {
		item, err := scanPlannedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
