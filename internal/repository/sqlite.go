package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB wraps the database connection
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// NewSQLiteDB creates a new SQLite database connection with connection pool settings
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	// Transactions take the write lock at BEGIN so concurrent updates queue
	// on the busy timeout instead of failing to upgrade a read lock.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; keep the pool small
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &SQLiteDB{db: db, path: dbPath}, nil
}

// Path returns the database file path
func (s *SQLiteDB) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// InitSchema creates the database tables and runs migrations
func (s *SQLiteDB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		year INTEGER NOT NULL,
		genre TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL CHECK (status IN ('want_to_watch', 'watching', 'completed')),
		rating INTEGER CHECK (rating IS NULL OR (rating BETWEEN 1 AND 10)),
		notes TEXT,
		tmdb_id INTEGER,
		poster_url TEXT,
		date_added TEXT NOT NULL,
		date_completed TEXT,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tv_shows (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		year INTEGER NOT NULL,
		genre TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL CHECK (status IN ('want_to_watch', 'watching', 'completed')),
		current_season INTEGER,
		current_episode INTEGER,
		total_seasons INTEGER,
		rating INTEGER CHECK (rating IS NULL OR (rating BETWEEN 1 AND 10)),
		notes TEXT,
		tmdb_id INTEGER,
		poster_url TEXT,
		date_added TEXT NOT NULL,
		date_completed TEXT,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS catalog_cache (
		cache_key TEXT PRIMARY KEY,
		payload_json TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		language TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movies_user_status ON movies(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_movies_user_seq ON movies(user_id, seq);
	CREATE INDEX IF NOT EXISTS idx_tv_shows_user_status ON tv_shows(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_tv_shows_user_seq ON tv_shows(user_id, seq);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return s.runMigrations()
}

// runMigrations executes pending database migrations
func (s *SQLiteDB) runMigrations() error {
	for _, table := range []string{"movies", "tv_shows"} {
		// Tables created before catalog linking lack tmdb_id and poster_url
		var tmdbID sql.NullInt64
		err := s.db.QueryRow("SELECT tmdb_id FROM " + table + " LIMIT 1").Scan(&tmdbID)
		if err != nil && err != sql.ErrNoRows {
			if err := s.migrateCatalogColumns(table); err != nil {
				return fmt.Errorf("failed to migrate %s: %w", table, err)
			}
		}
		if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_` + table + `_tmdb ON ` + table + `(user_id, tmdb_id)`); err != nil {
			return err
		}
	}
	return nil
}

// migrateCatalogColumns adds the tmdb_id and poster_url columns to table
func (s *SQLiteDB) migrateCatalogColumns(table string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`ALTER TABLE ` + table + ` ADD COLUMN tmdb_id INTEGER`); err != nil {
		return err
	}
	if _, err := tx.Exec(`ALTER TABLE ` + table + ` ADD COLUMN poster_url TEXT`); err != nil {
		return err
	}

	return tx.Commit()
}

// SnapshotTo writes a consistent copy of the database to path, which must
// not exist yet.
func (s *SQLiteDB) SnapshotTo(path string) error {
	_, err := s.db.Exec(`VACUUM INTO ?`, path)
	return err
}
