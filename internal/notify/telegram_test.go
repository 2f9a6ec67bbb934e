package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sequel-tracker/internal/mcp"
	"sequel-tracker/internal/models"
	"sequel-tracker/internal/store"
)

func newTestCommands(t *testing.T, seed bool) (*Commands, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	if seed {
		require.NoError(t, store.Seed(s, store.DefaultFixtures()))
	}
	return NewCommands(mcp.NewServer(s, zap.NewNop())), s
}

func TestReplyHelpAndUnknown(t *testing.T) {
	c, _ := newTestCommands(t, false)
	ctx := context.Background()

	assert.Equal(t, helpText, c.Reply(ctx, "/start", nil))
	assert.Equal(t, helpText, c.Reply(ctx, "/help", nil))
	assert.Equal(t, "Unknown command. "+helpText, c.Reply(ctx, "/dance", nil))
}

func TestReplyLists(t *testing.T) {
	c, s := newTestCommands(t, true)
	ctx := context.Background()

	movies, _ := s.AllMovies()
	shows, _ := s.AllTVShows()

	assert.Equal(t, "1. The Matrix (1999) [completed]\n   "+movies[0].ID, c.Reply(ctx, "/movies", nil))
	assert.Equal(t, "1. Breaking Bad (2008) [completed] S5E16\n   "+shows[0].ID, c.Reply(ctx, "/shows", nil))

	empty, _ := newTestCommands(t, false)
	assert.Equal(t, "No movies tracked yet.", empty.Reply(ctx, "/movies", nil))
	assert.Equal(t, "No TV shows tracked yet.", empty.Reply(ctx, "/shows", nil))
}

func TestReplyStats(t *testing.T) {
	c, _ := newTestCommands(t, true)

	got := c.Reply(context.Background(), "/stats", nil)
	assert.Equal(t, "🎬 Movies: 1\n   want to watch: 0\n   watching: 0\n   completed: 1\n"+
		"\n📺 TV shows: 1\n   want to watch: 0\n   watching: 0\n   completed: 1\n", got)
}

func TestReplyRecommend(t *testing.T) {
	c, _ := newTestCommands(t, true)
	ctx := context.Background()

	assert.Equal(t,
		"Based on your 1 completed movies, you seem to enjoy: Action, Sci-Fi\n\n"+
			"Based on your 1 completed TV shows, you seem to enjoy: Drama, Crime",
		c.Reply(ctx, "/recommend", nil))
	assert.Equal(t,
		"Based on your 1 completed TV shows, you seem to enjoy: Drama, Crime",
		c.Reply(ctx, "/recommend", []string{"tv-shows"}))
	assert.Equal(t, "⚠️ Invalid recommendation type: anime", c.Reply(ctx, "/recommend", []string{"anime"}))
}

func TestReplyComplete(t *testing.T) {
	c, s := newTestCommands(t, false)
	ctx := context.Background()

	movie, err := s.AddMovie(models.MovieInput{Title: "Heat", Year: 1995, Status: models.StatusWatching})
	require.NoError(t, err)

	assert.Equal(t, "Usage: /complete <movie-id>", c.Reply(ctx, "/complete", nil))
	assert.Equal(t, "Successfully updated movie: Heat\nNew status: completed", c.Reply(ctx, "/complete", []string{movie.ID}))
	assert.Equal(t, "⚠️ Movie with ID movie_nope not found", c.Reply(ctx, "/complete", []string{"movie_nope"}))

	got, _ := s.GetMovie(movie.ID)
	assert.NotNil(t, got.DateCompleted)
}

func TestReplyProgress(t *testing.T) {
	c, s := newTestCommands(t, false)
	ctx := context.Background()

	show, err := s.AddTVShow(models.TVShowInput{Title: "Dark", Year: 2017, Status: models.StatusWatching})
	require.NoError(t, err)

	assert.Equal(t, "Usage: /progress <show-id> <season> <episode>", c.Reply(ctx, "/progress", []string{show.ID, "2"}))
	assert.Equal(t, "Season and episode must be numbers", c.Reply(ctx, "/progress", []string{show.ID, "two", "3"}))
	assert.Equal(t,
		"Successfully updated TV show: Dark\nProgress: S2E3\nStatus: watching",
		c.Reply(ctx, "/progress", []string{show.ID, "2", "3"}))
	assert.Equal(t, "⚠️ TV show with ID tv_nope not found", c.Reply(ctx, "/progress", []string{"tv_nope", "1", "1"}))
}

func TestFormatDigest(t *testing.T) {
	now := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

	empty := FormatDigest(&models.Stats{}, now)
	assert.Equal(t, "📊 Sequel Tracker digest (2024-05-06)\n\nNothing tracked yet. Add a movie or TV show to get started 🍿", empty)

	stats := &models.Stats{
		Total:   models.Totals{Movies: 2, TVShows: 1},
		Movies:  models.KindStats{Total: 2, Watching: 1, Completed: 1},
		TVShows: models.KindStats{Total: 1, Watching: 1},
	}
	got := FormatDigest(stats, now)
	assert.True(t, strings.HasPrefix(got, "📊 Sequel Tracker digest (2024-05-06)\n\n🎬 Movies: 2\n"))
	assert.True(t, strings.HasSuffix(got, "\n▶️ 2 in progress"))

	stats.Movies.Watching, stats.TVShows.Watching = 0, 0
	assert.NotContains(t, FormatDigest(stats, now), "in progress")
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	_, err := NewTelegramBot("", 0, nil, zap.NewNop())
	assert.Error(t, err)
}
