// Package store holds the tracking store contract and its in-memory
// implementation. The SQLite implementation lives in internal/repository.
package store

import (
	"github.com/google/uuid"

	"sequel-tracker/internal/models"
)

const (
	movieIDPrefix  = "movie_"
	tvShowIDPrefix = "tv_"
)

// Store owns the movie and TV show collections.
//
// Lookups, updates and deletes that target an unknown id report absence
// (nil record, false) rather than an error. Update never creates a record.
type Store interface {
	AddMovie(in models.MovieInput) (*models.TrackedMovie, error)
	GetMovie(id string) (*models.TrackedMovie, error)
	AllMovies() ([]models.TrackedMovie, error)
	UpdateMovie(id string, u models.MovieUpdate) (*models.TrackedMovie, error)
	DeleteMovie(id string) (bool, error)

	AddTVShow(in models.TVShowInput) (*models.TrackedTVShow, error)
	GetTVShow(id string) (*models.TrackedTVShow, error)
	AllTVShows() ([]models.TrackedTVShow, error)
	UpdateTVShow(id string, u models.TVShowUpdate) (*models.TrackedTVShow, error)
	DeleteTVShow(id string) (bool, error)

	Stats() (*models.Stats, error)
}

// NewMovieID generates a fresh movie identifier.
func NewMovieID() string {
	return movieIDPrefix + uuid.NewString()
}

// NewTVShowID generates a fresh TV show identifier.
func NewTVShowID() string {
	return tvShowIDPrefix + uuid.NewString()
}

// Fixtures are records inserted into a fresh store at startup.
type Fixtures struct {
	Movies  []models.MovieInput
	TVShows []models.TVShowInput
}

// DefaultFixtures returns the sample records shipped with the tracker.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Movies: []models.MovieInput{
			{
				Title:  "The Matrix",
				Year:   1999,
				Genre:  []string{"Action", "Sci-Fi"},
				Status: models.StatusCompleted,
				Rating: models.IntPtr(9),
				Notes:  models.StringPtr("Mind-bending classic!"),
			},
		},
		TVShows: []models.TVShowInput{
			{
				Title:          "Breaking Bad",
				Year:           2008,
				Genre:          []string{"Drama", "Crime"},
				Status:         models.StatusCompleted,
				CurrentSeason:  models.IntPtr(5),
				CurrentEpisode: models.IntPtr(16),
				TotalSeasons:   models.IntPtr(5),
				Rating:         models.IntPtr(10),
				Notes:          models.StringPtr("One of the best series ever made"),
			},
		},
	}
}

// Seed inserts every fixture into s.
func Seed(s Store, f Fixtures) error {
	for _, in := range f.Movies {
		if _, err := s.AddMovie(in); err != nil {
			return err
		}
	}
	for _, in := range f.TVShows {
		if _, err := s.AddTVShow(in); err != nil {
			return err
		}
	}
	return nil
}
