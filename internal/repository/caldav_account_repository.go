package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mealsync/server/internal/models"
)

// CaldavAccountRepository implements CaldavAccountRepo for PostgreSQL/SQLite
type CaldavAccountRepository struct {
	db *sql.DB
}

// NewCaldavAccountRepository creates a new CaldavAccountRepository
func NewCaldavAccountRepository(db *sql.DB) *CaldavAccountRepository {
	return &CaldavAccountRepository{db: db}
}

const caldavAccountColumns = `user_id, server_url, username, password_enc, enabled,
	breakfast_window, lunch_window, dinner_window, snack_window, created_at, updated_at`

func scanCaldavAccount(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.CaldavAccount, error) {
	var acct models.CaldavAccount
	err := scanner.Scan(
		&acct.UserID, &acct.ServerURL, &acct.Username, &acct.PasswordEnc, &acct.Enabled,
		&acct.BreakfastWindow, &acct.LunchWindow, &acct.DinnerWindow, &acct.SnackWindow,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *CaldavAccountRepository) GetByUserID(ctx context.Context, userID string) (*models.CaldavAccount, error) {
	query := `SELECT ` + caldavAccountColumns + ` FROM caldav_accounts WHERE user_id = $1`

	acct, err := scanCaldavAccount(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (r *CaldavAccountRepository) Upsert(ctx context.Context, account *models.CaldavAccount) error {
	query := `INSERT INTO caldav_accounts (` + caldavAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			server_url = EXCLUDED.server_url,
			username = EXCLUDED.username,
			password_enc = EXCLUDED.password_enc,
			enabled = EXCLUDED.enabled,
			breakfast_window = EXCLUDED.breakfast_window,
			lunch_window = EXCLUDED.lunch_window,
			dinner_window = EXCLUDED.dinner_window,
			snack_window = EXCLUDED.snack_window,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		account.UserID, account.ServerURL, account.Username, account.PasswordEnc, account.Enabled,
		account.BreakfastWindow, account.LunchWindow, account.DinnerWindow, account.SnackWindow,
		account.CreatedAt, time.Now().UTC(),
	)
	return err
}

func (r *CaldavAccountRepository) Delete(ctx context.Context, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM caldav_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *CaldavAccountRepository) ListEnabledByUserIDs(ctx context.Context, userIDs []string) ([]*models.CaldavAccount, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, 0, len(userIDs)+1)
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, true)

	query := `SELECT ` + caldavAccountColumns + ` FROM caldav_accounts
		WHERE user_id IN (` + strings.Join(placeholders, ", ") + `)
		AND enabled = $` + fmt.Sprint(len(userIDs)+1) + `
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.CaldavAccount
	for rows.Next() {
		acct, err := scanCaldavAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}
