package repository

import (
	"database/sql"
	"time"

	"sequel-tracker/internal/timeutil"
)

// CatalogCacheRepository stores raw catalog responses keyed by request.
type CatalogCacheRepository struct {
	db *sql.DB
}

// NewCatalogCacheRepository creates a new CatalogCacheRepository.
func NewCatalogCacheRepository(sqliteDB *SQLiteDB) *CatalogCacheRepository {
	return &CatalogCacheRepository{db: sqliteDB.db}
}

// Get returns the cached payload JSON and its fetch time for key.
func (r *CatalogCacheRepository) Get(key string) (string, time.Time, bool, error) {
	var payload, fetchedAt string
	err := r.db.QueryRow(`
		SELECT payload_json, fetched_at
		FROM catalog_cache
		WHERE cache_key = ?
	`, key).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	t, err := timeutil.Parse(fetchedAt)
	if err != nil {
		return "", time.Time{}, false, err
	}
	return payload, t, true, nil
}

// Upsert writes the latest payload JSON for key.
func (r *CatalogCacheRepository) Upsert(key, payloadJSON string, fetchedAt time.Time, language string) error {
	_, err := r.db.Exec(`
		INSERT INTO catalog_cache (cache_key, payload_json, fetched_at, language)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload_json = excluded.payload_json,
			fetched_at = excluded.fetched_at,
			language = excluded.language
	`, key, payloadJSON, timeutil.Format(fetchedAt), language)
	return err
}

// Purge removes entries fetched before cutoff and returns how many were removed.
func (r *CatalogCacheRepository) Purge(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM catalog_cache WHERE fetched_at < ?`, timeutil.Format(cutoff))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
