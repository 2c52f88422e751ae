package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		api_key_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_users_api_key_hash ON users(api_key_hash);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS households (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS household_members (
		household_id TEXT NOT NULL REFERENCES households(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (household_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_household_members_user ON household_members(user_id);

	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_user ON recipes(user_id);

	CREATE TABLE IF NOT EXISTS planned_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		household_id TEXT REFERENCES households(id),
		item_type TEXT NOT NULL,
		title TEXT NOT NULL,
		recipe_id TEXT REFERENCES recipes(id),
		date TIMESTAMP NOT NULL,
		slot TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_planned_items_user_date ON planned_items(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_planned_items_recipe ON planned_items(recipe_id);

	CREATE TABLE IF NOT EXISTS caldav_accounts (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		server_url TEXT NOT NULL,
		username TEXT NOT NULL,
		password_enc TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		breakfast_window TEXT NOT NULL,
		lunch_window TEXT NOT NULL,
		dinner_window TEXT NOT NULL,
		snack_window TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sync_statuses (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		planned_item_id TEXT,
		event_title TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending',
		caldav_event_uid TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		last_sync_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_sync_statuses_user_status ON sync_statuses(user_id, sync_status);
	`

	_, err := db.Exec(schema)
	return err
}
