package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sequel-tracker/internal/timeutil"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func encodeGenre(genre []string) (string, error) {
	if genre == nil {
		genre = []string{}
	}
	b, err := json.Marshal(genre)
	if err != nil {
		return "", fmt.Errorf("failed to encode genre: %w", err)
	}
	return string(b), nil
}

func decodeGenre(raw string) ([]string, error) {
	genre := []string{}
	if raw == "" {
		return genre, nil
	}
	if err := json.Unmarshal([]byte(raw), &genre); err != nil {
		return nil, fmt.Errorf("failed to decode genre: %w", err)
	}
	return genre, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timeutil.Format(*v), Valid: true}
}

func timePtr(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := timeutil.Parse(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
