package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mealsync/server/internal/models"
)

// RecipeRepository implements RecipeRepo for PostgreSQL/SQLite
type RecipeRepository struct {
	db *sql.DB
}

// NewRecipeRepository creates a new RecipeRepository
func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*models.Recipe, error) {
	query := `SELECT id, user_id, name, created_at, updated_at FROM recipes WHERE id = $1`

	var recipe models.Recipe
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&recipe.ID, &recipe.UserID, &recipe.Name, &recipe.CreatedAt, &recipe.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *RecipeRepository) Add(ctx context.Context, recipe *models.Recipe) error {
	query := `INSERT INTO recipes (id, user_id, name, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		recipe.ID, recipe.UserID, recipe.Name, recipe.CreatedAt, recipe.UpdatedAt,
	)
	return err
}

func (r *RecipeRepository) Rename(ctx context.Context, id, newName string) error {
	query := `UPDATE recipes SET name = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, newName, time.Now().UTC(), id)
	return err
}
