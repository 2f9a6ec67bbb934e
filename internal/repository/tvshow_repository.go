package repository

import (
	"database/sql"
	"errors"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/timeutil"
)

const tvShowColumns = `id, title, year, genre, status, current_season, current_episode, total_seasons,
	rating, notes, tmdb_id, poster_url, date_added, date_completed`

// TVShowRepository handles TV show rows owned by a single user
type TVShowRepository struct {
	db     dbtx
	base   *sql.DB
	userID string
}

// NewTVShowRepository creates a new TVShowRepository scoped to userID
func NewTVShowRepository(sqliteDB *SQLiteDB, userID string) *TVShowRepository {
	return &TVShowRepository{db: sqliteDB.db, base: sqliteDB.db, userID: userID}
}

func (r *TVShowRepository) BeginTx() (*sql.Tx, error) {
	if r.base == nil {
		return nil, errors.New("tvshow repository: transactions not supported on tx-scoped repo")
	}
	return r.base.Begin()
}

func (r *TVShowRepository) WithTx(tx *sql.Tx) *TVShowRepository {
	return &TVShowRepository{db: tx, userID: r.userID}
}

// Create inserts a new TV show
func (r *TVShowRepository) Create(show *models.TrackedTVShow) error {
	genre, err := encodeGenre(show.Genre)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO tv_shows (id, user_id, title, year, genre, status, current_season, current_episode, total_seasons,
			rating, notes, tmdb_id, poster_url, date_added, date_completed, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM tv_shows))
	`, show.ID, r.userID, show.Title, show.Year, genre, string(show.Status),
		nullInt(show.CurrentSeason), nullInt(show.CurrentEpisode), nullInt(show.TotalSeasons),
		nullInt(show.Rating), nullString(show.Notes), nullInt(show.TMDBID), nullString(show.PosterURL),
		timeutil.Format(show.DateAdded), nullTime(show.DateCompleted))
	return err
}

// GetByID retrieves a TV show by its ID, or nil when it does not exist
func (r *TVShowRepository) GetByID(id string) (*models.TrackedTVShow, error) {
	row := r.db.QueryRow(`SELECT `+tvShowColumns+` FROM tv_shows WHERE id = ? AND user_id = ?`, id, r.userID)
	show, err := scanTVShow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return show, nil
}

// GetAll retrieves every TV show in insertion order
func (r *TVShowRepository) GetAll() ([]models.TrackedTVShow, error) {
	rows, err := r.db.Query(`SELECT `+tvShowColumns+` FROM tv_shows WHERE user_id = ? ORDER BY seq`, r.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shows := []models.TrackedTVShow{}
	for rows.Next() {
		show, err := scanTVShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, *show)
	}
	return shows, rows.Err()
}

// Update writes every mutable column of show
func (r *TVShowRepository) Update(show *models.TrackedTVShow) error {
	genre, err := encodeGenre(show.Genre)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE tv_shows
		SET title = ?, year = ?, genre = ?, status = ?, current_season = ?, current_episode = ?, total_seasons = ?,
			rating = ?, notes = ?, tmdb_id = ?, poster_url = ?, date_completed = ?
		WHERE id = ? AND user_id = ?
	`, show.Title, show.Year, genre, string(show.Status),
		nullInt(show.CurrentSeason), nullInt(show.CurrentEpisode), nullInt(show.TotalSeasons),
		nullInt(show.Rating), nullString(show.Notes), nullInt(show.TMDBID), nullString(show.PosterURL),
		nullTime(show.DateCompleted), show.ID, r.userID)
	return err
}

// Delete removes a TV show and reports whether a row was deleted
func (r *TVShowRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM tv_shows WHERE id = ? AND user_id = ?`, id, r.userID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByStatus returns the number of TV shows per status
func (r *TVShowRepository) CountByStatus() (map[models.Status]int, error) {
	return countByStatus(r.db, "tv_shows", r.userID)
}

func scanTVShow(row rowScanner) (*models.TrackedTVShow, error) {
	var (
		show                     models.TrackedTVShow
		genre, status, dateAdded string
		season, episode, seasons sql.NullInt64
		rating, tmdbID           sql.NullInt64
		notes, poster            sql.NullString
		dateCompleted            sql.NullString
	)
	err := row.Scan(
		&show.ID, &show.Title, &show.Year, &genre, &status,
		&season, &episode, &seasons,
		&rating, &notes, &tmdbID, &poster, &dateAdded, &dateCompleted,
	)
	if err != nil {
		return nil, err
	}

	if show.Genre, err = decodeGenre(genre); err != nil {
		return nil, err
	}
	if show.DateAdded, err = timeutil.Parse(dateAdded); err != nil {
		return nil, err
	}
	if show.DateCompleted, err = timePtr(dateCompleted); err != nil {
		return nil, err
	}
	show.Status = models.Status(status)
	show.CurrentSeason = intPtr(season)
	show.CurrentEpisode = intPtr(episode)
	show.TotalSeasons = intPtr(seasons)
	show.Rating = intPtr(rating)
	show.Notes = stringPtr(notes)
	show.TMDBID = intPtr(tmdbID)
	show.PosterURL = stringPtr(poster)
	return &show, nil
}
