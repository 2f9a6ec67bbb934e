package store

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/timeutil"
)

func fixedClock(t *testing.T, at time.Time) *time.Time {
	t.Helper()
	now := at
	timeutil.SetNowFunc(func() time.Time { return now })
	t.Cleanup(func() { timeutil.SetNowFunc(nil) })
	return &now
}

func genStatus() gopter.Gen {
	return gen.OneConstOf(models.StatusWantToWatch, models.StatusWatching, models.StatusCompleted)
}

// Property: every added record gets a distinct id with the kind prefix and
// reads back with the fields it was added with.
func TestAddGetRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	s := NewMemoryStore()
	seen := make(map[string]bool)

	properties.Property("added movie reads back unchanged under a fresh id", prop.ForAll(
		func(title string, year int, genre []string, status models.Status) bool {
			in := models.MovieInput{Title: title, Year: year, Genre: genre, Status: status}
			added, err := s.AddMovie(in)
			if err != nil {
				t.Logf("add failed: %v", err)
				return false
			}
			if seen[added.ID] || !strings.HasPrefix(added.ID, "movie_") {
				return false
			}
			seen[added.ID] = true

			got, err := s.GetMovie(added.ID)
			if err != nil || got == nil {
				return false
			}
			return got.Title == title &&
				got.Year == year &&
				fmt.Sprint(got.Genre) == fmt.Sprint(genre) &&
				got.Status == status &&
				got.DateCompleted == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.IntRange(1888, 2100),
		gen.SliceOf(gen.AlphaString()),
		genStatus(),
	))

	properties.Property("added TV show reads back unchanged under a fresh id", prop.ForAll(
		func(title string, season, episode int, status models.Status) bool {
			in := models.TVShowInput{
				Title:          title,
				Year:           2000,
				Genre:          []string{"Drama"},
				Status:         status,
				CurrentSeason:  models.IntPtr(season),
				CurrentEpisode: models.IntPtr(episode),
			}
			added, err := s.AddTVShow(in)
			if err != nil {
				return false
			}
			if seen[added.ID] || !strings.HasPrefix(added.ID, "tv_") {
				return false
			}
			seen[added.ID] = true

			got, err := s.GetTVShow(added.ID)
			if err != nil || got == nil {
				return false
			}
			return got.Title == title &&
				*got.CurrentSeason == season &&
				*got.CurrentEpisode == episode &&
				got.Status == status
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.IntRange(1, 30),
		gen.IntRange(1, 30),
		genStatus(),
	))

	properties.TestingRun(t)
}

func TestUpdateUnknownIDNeverCreates(t *testing.T) {
	s := NewMemoryStore()

	movie, err := s.UpdateMovie("movie_missing", models.MovieUpdate{Status: models.StatusPtr(models.StatusCompleted)})
	require.NoError(t, err)
	assert.Nil(t, movie)

	show, err := s.UpdateTVShow("tv_missing", models.TVShowUpdate{CurrentSeason: models.IntPtr(1)})
	require.NoError(t, err)
	assert.Nil(t, show)

	movies, _ := s.AllMovies()
	shows, _ := s.AllTVShows()
	assert.Empty(t, movies)
	assert.Empty(t, shows)
}

func TestCompletionStampSetOnceAndPreserved(t *testing.T) {
	now := fixedClock(t, time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))
	s := NewMemoryStore()

	added, err := s.AddMovie(models.MovieInput{Title: "Arrival", Year: 2016, Genre: []string{"Sci-Fi"}, Status: models.StatusWatching})
	require.NoError(t, err)
	assert.Nil(t, added.DateCompleted)

	first, err := s.UpdateMovie(added.ID, models.MovieUpdate{Status: models.StatusPtr(models.StatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, first.DateCompleted)
	stamp := *first.DateCompleted

	*now = now.Add(72 * time.Hour)
	second, err := s.UpdateMovie(added.ID, models.MovieUpdate{Status: models.StatusPtr(models.StatusCompleted), Rating: models.IntPtr(9)})
	require.NoError(t, err)
	assert.True(t, stamp.Equal(*second.DateCompleted))
	assert.Equal(t, 9, *second.Rating)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	show, err := s.AddTVShow(models.TVShowInput{Title: "Dark", Year: 2017, Genre: []string{"Mystery"}, Status: models.StatusWatching})
	require.NoError(t, err)

	deleted, err := s.DeleteTVShow(show.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteTVShow(show.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := s.GetTVShow(show.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStats(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.AddMovie(models.MovieInput{Title: "A", Year: 2001, Genre: []string{}, Status: models.StatusCompleted})
	require.NoError(t, err)
	_, err = s.AddMovie(models.MovieInput{Title: "B", Year: 2002, Genre: []string{}, Status: models.StatusWantToWatch})
	require.NoError(t, err)
	_, err = s.AddTVShow(models.TVShowInput{Title: "C", Year: 2003, Genre: []string{}, Status: models.StatusWatching})
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)

	assert.Equal(t, models.Totals{Movies: 2, TVShows: 1}, stats.Total)
	assert.Equal(t, 1, stats.Movies.WantToWatch)
	assert.Equal(t, 0, stats.Movies.Watching)
	assert.Equal(t, 1, stats.Movies.Completed)
	assert.Equal(t, 0, stats.TVShows.WantToWatch)
	assert.Equal(t, 1, stats.TVShows.Watching)
	assert.Equal(t, 0, stats.TVShows.Completed)
}

func TestValidationAtStoreBoundary(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.AddMovie(models.MovieInput{Title: "X", Year: 2000, Status: models.StatusWatching, Rating: models.IntPtr(42)})
	assert.ErrorIs(t, err, models.ErrInvalidRating)

	movie, err := s.AddMovie(models.MovieInput{Title: "X", Year: 2000, Status: models.StatusWatching})
	require.NoError(t, err)

	_, err = s.UpdateMovie(movie.ID, models.MovieUpdate{Status: models.StatusPtr("abandoned")})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	got, _ := s.GetMovie(movie.ID)
	assert.Equal(t, models.StatusWatching, got.Status)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	movie, err := s.AddMovie(models.MovieInput{Title: "Heat", Year: 1995, Genre: []string{"Crime"}, Status: models.StatusWatching})
	require.NoError(t, err)

	movie.Title = "changed"
	movie.Genre[0] = "changed"

	got, _ := s.GetMovie(movie.ID)
	assert.Equal(t, "Heat", got.Title)
	assert.Equal(t, []string{"Crime"}, got.Genre)
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	var ids []string
	for i := 0; i < 5; i++ {
		m, err := s.AddMovie(models.MovieInput{Title: fmt.Sprintf("M%d", i), Year: 2000 + i, Status: models.StatusWantToWatch})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	_, err := s.DeleteMovie(ids[2])
	require.NoError(t, err)

	movies, err := s.AllMovies()
	require.NoError(t, err)
	var got []string
	for _, m := range movies {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{ids[0], ids[1], ids[3], ids[4]}, got)
}

func TestSeedDefaultFixtures(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, Seed(s, DefaultFixtures()))

	movies, _ := s.AllMovies()
	shows, _ := s.AllTVShows()
	require.Len(t, movies, 1)
	require.Len(t, shows, 1)

	assert.Equal(t, "The Matrix", movies[0].Title)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, movies[0].Genre)
	assert.Equal(t, 9, *movies[0].Rating)
	assert.Equal(t, "Breaking Bad", shows[0].Title)
	assert.Equal(t, 16, *shows[0].CurrentEpisode)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := s.AddMovie(models.MovieInput{Title: fmt.Sprintf("M%d", i), Year: 2000, Status: models.StatusWatching})
			if err != nil {
				return
			}
			_, _ = s.UpdateMovie(m.ID, models.MovieUpdate{Status: models.StatusPtr(models.StatusCompleted)})
			_, _ = s.Stats()
		}(i)
	}
	wg.Wait()

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Total.Movies)
	assert.Equal(t, 20, stats.Movies.Completed)
}
