package store

import (
	"slices"
	"sync"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/timeutil"
)

// MemoryStore keeps both collections in process memory. Each operation
// holds the lock for its whole duration, so concurrent hosts observe
// every add, update and delete atomically.
type MemoryStore struct {
	mu sync.RWMutex

	movies     map[string]*models.TrackedMovie
	movieOrder []string

	shows     map[string]*models.TrackedTVShow
	showOrder []string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		movies: make(map[string]*models.TrackedMovie),
		shows:  make(map[string]*models.TrackedTVShow),
	}
}

// AddMovie inserts a new movie and returns the stored record
func (s *MemoryStore) AddMovie(in models.MovieInput) (*models.TrackedMovie, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	movie := models.NewMovie(NewMovieID(), in, timeutil.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[movie.ID] = movie
	s.movieOrder = append(s.movieOrder, movie.ID)
	return movie.Clone(), nil
}

// GetMovie returns the movie with the given id, or nil if absent
func (s *MemoryStore) GetMovie(id string) (*models.TrackedMovie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movie, ok := s.movies[id]
	if !ok {
		return nil, nil
	}
	return movie.Clone(), nil
}

// AllMovies returns every movie in insertion order
func (s *MemoryStore) AllMovies() ([]models.TrackedMovie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movies := make([]models.TrackedMovie, 0, len(s.movieOrder))
	for _, id := range s.movieOrder {
		movies = append(movies, *s.movies[id].Clone())
	}
	return movies, nil
}

// UpdateMovie merges u into an existing movie. It returns nil when the
// id is unknown and never creates a record.
func (s *MemoryStore) UpdateMovie(id string, u models.MovieUpdate) (*models.TrackedMovie, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	movie, ok := s.movies[id]
	if !ok {
		return nil, nil
	}
	movie.Apply(u, timeutil.Now())
	return movie.Clone(), nil
}

// DeleteMovie removes a movie and reports whether it existed
func (s *MemoryStore) DeleteMovie(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return false, nil
	}
	delete(s.movies, id)
	s.movieOrder = slices.DeleteFunc(s.movieOrder, func(v string) bool { return v == id })
	return true, nil
}

// AddTVShow inserts a new TV show and returns the stored record
func (s *MemoryStore) AddTVShow(in models.TVShowInput) (*models.TrackedTVShow, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	show := models.NewTVShow(NewTVShowID(), in, timeutil.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows[show.ID] = show
	s.showOrder = append(s.showOrder, show.ID)
	return show.Clone(), nil
}

// GetTVShow returns the TV show with the given id, or nil if absent
func (s *MemoryStore) GetTVShow(id string) (*models.TrackedTVShow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	show, ok := s.shows[id]
	if !ok {
		return nil, nil
	}
	return show.Clone(), nil
}

// AllTVShows returns every TV show in insertion order
func (s *MemoryStore) AllTVShows() ([]models.TrackedTVShow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shows := make([]models.TrackedTVShow, 0, len(s.showOrder))
	for _, id := range s.showOrder {
		shows = append(shows, *s.shows[id].Clone())
	}
	return shows, nil
}

// UpdateTVShow merges u into an existing TV show
func (s *MemoryStore) UpdateTVShow(id string, u models.TVShowUpdate) (*models.TrackedTVShow, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	show, ok := s.shows[id]
	if !ok {
		return nil, nil
	}
	show.Apply(u, timeutil.Now())
	return show.Clone(), nil
}

// DeleteTVShow removes a TV show and reports whether it existed
func (s *MemoryStore) DeleteTVShow(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shows[id]; !ok {
		return false, nil
	}
	delete(s.shows, id)
	s.showOrder = slices.DeleteFunc(s.showOrder, func(v string) bool { return v == id })
	return true, nil
}

// Stats counts the live collections by status
func (s *MemoryStore) Stats() (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{}
	for _, m := range s.movies {
		stats.Movies.Add(m.Status, 1)
	}
	for _, sh := range s.shows {
		stats.TVShows.Add(sh.Status, 1)
	}
	stats.Total.Movies = stats.Movies.Total
	stats.Total.TVShows = stats.TVShows.Total
	return stats, nil
}
