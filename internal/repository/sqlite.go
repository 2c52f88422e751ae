package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		api_key_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_users_api_key_hash ON users(api_key_hash);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- Households and membership
	CREATE TABLE IF NOT EXISTS households (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS household_members (
		household_id TEXT NOT NULL REFERENCES households(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (household_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_household_members_user ON household_members(user_id);

	-- Recipes (title source for planned recipe items)
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_user ON recipes(user_id);

	-- Planned items (recipes/notes on the meal calendar)
	CREATE TABLE IF NOT EXISTS planned_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		household_id TEXT REFERENCES households(id),
		item_type TEXT NOT NULL,
		title TEXT NOT NULL,
		recipe_id TEXT REFERENCES recipes(id),
		date DATETIME NOT NULL,
		slot TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_planned_items_user_date ON planned_items(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_planned_items_recipe ON planned_items(recipe_id);

	-- CalDAV account config, at most one per user
	CREATE TABLE IF NOT EXISTS caldav_accounts (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		server_url TEXT NOT NULL,
		username TEXT NOT NULL,
		password_enc TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		breakfast_window TEXT NOT NULL,
		lunch_window TEXT NOT NULL,
		dinner_window TEXT NOT NULL,
		snack_window TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-item sync state with the external calendar
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
		last_sync_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_sync_statuses_user_status ON sync_statuses(user_id, sync_status);
	`

	_, err := db.Exec(schema)
	return err
}
