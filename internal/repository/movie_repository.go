package repository

import (
	"database/sql"
	"errors"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/timeutil"
)

const movieColumns = `id, title, year, genre, status, rating, notes, tmdb_id, poster_url, date_added, date_completed`

// MovieRepository handles movie rows owned by a single user
type MovieRepository struct {
	db     dbtx
	base   *sql.DB
	userID string
}

// NewMovieRepository creates a new MovieRepository scoped to userID
func NewMovieRepository(sqliteDB *SQLiteDB, userID string) *MovieRepository {
	return &MovieRepository{db: sqliteDB.db, base: sqliteDB.db, userID: userID}
}

func (r *MovieRepository) BeginTx() (*sql.Tx, error) {
	if r.base == nil {
		return nil, errors.New("movie repository: transactions not supported on tx-scoped repo")
	}
	return r.base.Begin()
}

func (r *MovieRepository) WithTx(tx *sql.Tx) *MovieRepository {
	return &MovieRepository{db: tx, userID: r.userID}
}

// Create inserts a new movie
func (r *MovieRepository) Create(movie *models.TrackedMovie) error {
	genre, err := encodeGenre(movie.Genre)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO movies (id, user_id, title, year, genre, status, rating, notes, tmdb_id, poster_url,
			date_added, date_completed, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM movies))
	`, movie.ID, r.userID, movie.Title, movie.Year, genre, string(movie.Status),
		nullInt(movie.Rating), nullString(movie.Notes), nullInt(movie.TMDBID), nullString(movie.PosterURL),
		timeutil.Format(movie.DateAdded), nullTime(movie.DateCompleted))
	return err
}

// GetByID retrieves a movie by its ID, or nil when it does not exist
func (r *MovieRepository) GetByID(id string) (*models.TrackedMovie, error) {
	row := r.db.QueryRow(`SELECT `+movieColumns+` FROM movies WHERE id = ? AND user_id = ?`, id, r.userID)
	movie, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// GetAll retrieves every movie in insertion order
func (r *MovieRepository) GetAll() ([]models.TrackedMovie, error) {
	rows, err := r.db.Query(`SELECT `+movieColumns+` FROM movies WHERE user_id = ? ORDER BY seq`, r.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []models.TrackedMovie{}
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *movie)
	}
	return movies, rows.Err()
}

// Update writes every mutable column of movie
func (r *MovieRepository) Update(movie *models.TrackedMovie) error {
	genre, err := encodeGenre(movie.Genre)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE movies
		SET title = ?, year = ?, genre = ?, status = ?, rating = ?, notes = ?, tmdb_id = ?, poster_url = ?,
			date_completed = ?
		WHERE id = ? AND user_id = ?
	`, movie.Title, movie.Year, genre, string(movie.Status), nullInt(movie.Rating), nullString(movie.Notes),
		nullInt(movie.TMDBID), nullString(movie.PosterURL), nullTime(movie.DateCompleted), movie.ID, r.userID)
	return err
}

// Delete removes a movie and reports whether a row was deleted
func (r *MovieRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM movies WHERE id = ? AND user_id = ?`, id, r.userID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByStatus returns the number of movies per status
func (r *MovieRepository) CountByStatus() (map[models.Status]int, error) {
	return countByStatus(r.db, "movies", r.userID)
}

func scanMovie(row rowScanner) (*models.TrackedMovie, error) {
	var (
		movie          models.TrackedMovie
		genre, status  string
		dateAdded      string
		rating, tmdbID sql.NullInt64
		notes, poster  sql.NullString
		dateCompleted  sql.NullString
	)
	err := row.Scan(
		&movie.ID, &movie.Title, &movie.Year, &genre, &status,
		&rating, &notes, &tmdbID, &poster, &dateAdded, &dateCompleted,
	)
	if err != nil {
		return nil, err
	}

	if movie.Genre, err = decodeGenre(genre); err != nil {
		return nil, err
	}
	if movie.DateAdded, err = timeutil.Parse(dateAdded); err != nil {
		return nil, err
	}
	if movie.DateCompleted, err = timePtr(dateCompleted); err != nil {
		return nil, err
	}
	movie.Status = models.Status(status)
	movie.Rating = intPtr(rating)
	movie.Notes = stringPtr(notes)
	movie.TMDBID = intPtr(tmdbID)
	movie.PosterURL = stringPtr(poster)
	return &movie, nil
}

// countByStatus groups a tracking table by status for one user
func countByStatus(db dbtx, table, userID string) (map[models.Status]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM `+table+` WHERE user_id = ? GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}
