package repository

import (
	"context"
	"database/sql"

	"github.com/mealsync/server/internal/models"
)

// UserRepository implements UserRepo for PostgreSQL/SQLite
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, display_name, api_key_hash, created_at, is_active
			  FROM users WHERE id = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.APIKeyHash,
		&user.CreatedAt, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByAPIKeyHash(ctx context.Context, keyHash string) (*models.User, error) {
	query := `SELECT id, email, display_name, api_key_hash, created_at, is_active
			  FROM users WHERE api_key_hash = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.APIKeyHash,
		&user.CreatedAt, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Add(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, email, display_name, api_key_hash, created_at, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.APIKeyHash,
		user.CreatedAt, user.IsActive,
	)
	return err
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE is_active = $1`, true)
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
