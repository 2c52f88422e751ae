package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mealsync/server/internal/models"
)

// SyncStatusRepository implements SyncStatusRepo for PostgreSQL/SQLite
type SyncStatusRepository struct {
	db *sql.DB
}

// NewSyncStatusRepository creates a new SyncStatusRepository
func NewSyncStatusRepository(db *sql.DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

const syncStatusColumns = `user_id, item_id, item_type, planned_item_id, event_title,
	sync_status, caldav_event_uid, retry_count, error_message, last_sync_at, created_at, updated_at`

func scanSyncStatus(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.SyncStatus, error) {
	var st models.SyncStatus
	err := scanner.Scan(
		&st.UserID, &st.ItemID, &st.ItemType, &st.PlannedItemID, &st.EventTitle,
		&st.Status, &st.CaldavEventUID, &st.RetryCount, &st.ErrorMessage,
		&st.LastSyncAt, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *SyncStatusRepository) Get(ctx context.Context, userID, itemID string) (*models.SyncStatus, error) {
	query := `SELECT ` + syncStatusColumns + ` FROM sync_statuses
			  WHERE user_id = $1 AND item_id = $2`

	st, err := scanSyncStatus(r.db.QueryRowContext(ctx, query, userID, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Upsert writes the full outcome of a sync attempt in a single statement so
// two concurrent attempts for the same item can never interleave partial
// state. Last writer wins.
func (r *SyncStatusRepository) Upsert(ctx context.Context, status *models.SyncStatus) error {
	query := `INSERT INTO sync_statuses (` + syncStatusColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			item_type = EXCLUDED.item_type,
			planned_item_id = EXCLUDED.planned_item_id,
			event_title = EXCLUDED.event_title,
			sync_status = EXCLUDED.sync_status,
			caldav_event_uid = EXCLUDED.caldav_event_uid,
			retry_count = EXCLUDED.retry_count,
			error_message = EXCLUDED.error_message,
			last_sync_at = EXCLUDED.last_sync_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		status.UserID, status.ItemID, status.ItemType, status.PlannedItemID, status.EventTitle,
		status.Status, status.CaldavEventUID, status.RetryCount, status.ErrorMessage,
		status.LastSyncAt, status.CreatedAt, time.Now().UTC(),
	)
	return err
}

func (r *SyncStatusRepository) MarkRemoved(ctx context.Context, userID, itemID string, errorMessage *string) error {
	query := `UPDATE sync_statuses
			  SET sync_status = $1, caldav_event_uid = NULL, error_message = $2, updated_at = $3
			  WHERE user_id = $4 AND item_id = $5`

	_, err := r.db.ExecContext(ctx, query,
		models.SyncStateRemoved, errorMessage, time.Now().UTC(), userID, itemID,
	)
	return err
}

func (r *SyncStatusRepository) ListByUser(ctx context.Context, userID, statusFilter string, skip, take int) ([]*models.SyncStatus, error) {
	query := `SELECT ` + syncStatusColumns + ` FROM sync_statuses WHERE user_id = $1`
	args := []interface{}{userID}

	if statusFilter != "" {
		query += ` AND sync_status = $2`
		args = append(args, statusFilter)
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, take, skip)

	return r.queryStatuses(ctx, query, args...)
}

func (r *SyncStatusRepository) CountByUser(ctx context.Context, userID, statusFilter string) (int, error) {
	query := `SELECT COUNT(*) FROM sync_statuses WHERE user_id = $1`
	args := []interface{}{userID}

	if statusFilter != "" {
		query += ` AND sync_status = $2`
		args = append(args, statusFilter)
	}

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *SyncStatusRepository) ListRetryable(ctx context.Context, userID string) ([]*models.SyncStatus, error) {
	query := `SELECT ` + syncStatusColumns + ` FROM sync_statuses
			  WHERE user_id = $1 AND sync_status IN ($2, $3)
			  ORDER BY updated_at`

	return r.queryStatuses(ctx, query, userID, models.SyncStatePending, models.SyncStateFailed)
}

func (r *SyncStatusRepository) ListUserIDsWithRetryable(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM sync_statuses WHERE sync_status IN ($1, $2)`

	rows, err := r.db.QueryContext(ctx, query, models.SyncStatePending, models.SyncStateFailed)
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

func (r *SyncStatusRepository) Summary(ctx context.Context, userID string) (*models.SyncSummary, error) {
	query := `SELECT sync_status, COUNT(*) FROM sync_statuses
			  WHERE user_id = $1 GROUP BY sync_status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &models.SyncSummary{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case models.SyncStatePending:
			summary.Pending = count
		case models.SyncStateSynced:
			summary.Synced = count
		case models.SyncStateFailed:
			summary.Failed = count
		case models.SyncStateRemoved:
			summary.Removed = count
		}
	}
	return summary, rows.Err()
}

func (r *SyncStatusRepository) queryStatuses(ctx context.Context, query string, args ...interface{}) ([]*models.SyncStatus, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []*models.SyncStatus
	for rows.Next() {
		st, err := scanSyncStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
