package repository

import (
	"fmt"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/store"
	"sequel-tracker/internal/timeutil"
)

// TrackingStore is the durable tracking store backed by SQLite. Every
// query is scoped to one user id, the way the managed backend scopes rows
// to the authenticated user.
type TrackingStore struct {
	movies *MovieRepository
	shows  *TVShowRepository
}

var _ store.Store = (*TrackingStore)(nil)

// NewTrackingStore creates a TrackingStore for userID
func NewTrackingStore(sqliteDB *SQLiteDB, userID string) *TrackingStore {
	return &TrackingStore{
		movies: NewMovieRepository(sqliteDB, userID),
		shows:  NewTVShowRepository(sqliteDB, userID),
	}
}

// AddMovie inserts a new movie
func (s *TrackingStore) AddMovie(in models.MovieInput) (*models.TrackedMovie, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	movie := models.NewMovie(store.NewMovieID(), in, timeutil.Now())
	if err := s.movies.Create(movie); err != nil {
		return nil, fmt.Errorf("failed to create movie: %w", err)
	}
	return movie, nil
}

// GetMovie returns the movie with the given id, or nil if absent
func (s *TrackingStore) GetMovie(id string) (*models.TrackedMovie, error) {
	return s.movies.GetByID(id)
}

// AllMovies returns every movie owned by the user
func (s *TrackingStore) AllMovies() ([]models.TrackedMovie, error) {
	return s.movies.GetAll()
}

// UpdateMovie merges u into an existing movie inside a transaction
func (s *TrackingStore) UpdateMovie(id string, u models.MovieUpdate) (*models.TrackedMovie, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.movies.BeginTx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	repo := s.movies.WithTx(tx)
	movie, err := repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	if movie == nil {
		return nil, nil
	}

	movie.Apply(u, timeutil.Now())
	if err := repo.Update(movie); err != nil {
		return nil, fmt.Errorf("failed to update movie: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return movie, nil
}

// DeleteMovie removes a movie and reports whether it existed
func (s *TrackingStore) DeleteMovie(id string) (bool, error) {
	return s.movies.Delete(id)
}

// AddTVShow inserts a new TV show
func (s *TrackingStore) AddTVShow(in models.TVShowInput) (*models.TrackedTVShow, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	show := models.NewTVShow(store.NewTVShowID(), in, timeutil.Now())
	if err := s.shows.Create(show); err != nil {
		return nil, fmt.Errorf("failed to create TV show: %w", err)
	}
	return show, nil
}

// GetTVShow returns the TV show with the given id, or nil if absent
func (s *TrackingStore) GetTVShow(id string) (*models.TrackedTVShow, error) {
	return s.shows.GetByID(id)
}

// AllTVShows returns every TV show owned by the user
func (s *TrackingStore) AllTVShows() ([]models.TrackedTVShow, error) {
	return s.shows.GetAll()
}

// UpdateTVShow merges u into an existing TV show inside a transaction
func (s *TrackingStore) UpdateTVShow(id string, u models.TVShowUpdate) (*models.TrackedTVShow, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.shows.BeginTx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	repo := s.shows.WithTx(tx)
	show, err := repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get TV show: %w", err)
	}
	if show == nil {
		return nil, nil
	}

	show.Apply(u, timeutil.Now())
	if err := repo.Update(show); err != nil {
		return nil, fmt.Errorf("failed to update TV show: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return show, nil
}

// DeleteTVShow removes a TV show and reports whether it existed
func (s *TrackingStore) DeleteTVShow(id string) (bool, error) {
	return s.shows.Delete(id)
}

// Stats counts both collections by status
func (s *TrackingStore) Stats() (*models.Stats, error) {
	movieCounts, err := s.movies.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}
	showCounts, err := s.shows.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count TV shows: %w", err)
	}

	stats := &models.Stats{}
	for status, n := range movieCounts {
		stats.Movies.Add(status, n)
	}
	for status, n := range showCounts {
		stats.TVShows.Add(status, n)
	}
	stats.Total.Movies = stats.Movies.Total
	stats.Total.TVShows = stats.TVShows.Total
	return stats, nil
}
