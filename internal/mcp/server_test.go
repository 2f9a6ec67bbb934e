package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/store"
	"sequel-tracker/internal/timeutil"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewServer(s, zap.NewNop()), s
}

func call(t *testing.T, srv *Server, name string, args any) (*CallToolResult, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return srv.CallTool(context.Background(), name, raw)
}

func idFromText(t *testing.T, text string) string {
	t.Helper()
	i := strings.Index(text, "ID: ")
	require.GreaterOrEqual(t, i, 0, text)
	return strings.TrimSpace(text[i+len("ID: "):])
}

func requireCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, code, e.Code, e.Message)
	return e
}

func TestListResources(t *testing.T) {
	srv, _ := newTestServer(t)

	resources := srv.ListResources()
	require.Len(t, resources, 3)
	assert.Equal(t, Resource{
		URI:         "sequel://movies/all",
		MimeType:    "application/json",
		Name:        "All Movies",
		Description: "List of all tracked movies",
	}, resources[0])
	assert.Equal(t, "sequel://tv-shows/all", resources[1].URI)
	assert.Equal(t, "sequel://stats", resources[2].URI)
}

func TestReadUnknownResource(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.ReadResource("sequel://unknown")
	e := requireCode(t, err, InvalidRequest)
	assert.Equal(t, "Unknown resource: sequel://unknown", e.Message)
}

func TestReadStatsResource(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, store.Seed(s, store.DefaultFixtures()))

	result, err := srv.ReadResource(URIStats)
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, URIStats, result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MimeType)

	var stats models.Stats
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &stats))
	assert.Equal(t, models.Totals{Movies: 1, TVShows: 1}, stats.Total)
	assert.Equal(t, 1, stats.TVShows.Completed)
	assert.Contains(t, result.Contents[0].Text, "\n  \"total\"")
}

func TestListToolsDeclaresSchemas(t *testing.T) {
	srv, _ := newTestServer(t)

	tools := srv.ListTools()
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	assert.Equal(t, []string{
		"add_movie", "add_tv_show", "update_movie_status", "update_tv_show_progress",
		"get_recommendations", "delete_movie", "delete_tv_show",
	}, names)

	addMovie := tools[0].InputSchema
	assert.Equal(t, "object", addMovie.Type)
	assert.Equal(t, []string{"title", "year", "genre", "status"}, addMovie.Required)
	assert.Equal(t, []string{"want_to_watch", "watching", "completed"}, addMovie.Properties["status"].Enum)
	assert.Equal(t, 1.0, *addMovie.Properties["rating"].Minimum)
	assert.Equal(t, 10.0, *addMovie.Properties["rating"].Maximum)
	assert.Equal(t, "string", addMovie.Properties["genre"].Items.Type)
	assert.Equal(t, "number", addMovie.Properties["tmdbId"].Type)
}

func TestAddMovieRoundTrip(t *testing.T) {
	srv, s := newTestServer(t)

	result, err := call(t, srv, ToolAddMovie, map[string]any{
		"title":  "X",
		"year":   2000,
		"genre":  []string{"Drama"},
		"status": "want_to_watch",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Text(), "Successfully added movie: X (2000)\nID: movie_"))

	movie, err := s.GetMovie(idFromText(t, result.Text()))
	require.NoError(t, err)
	require.NotNil(t, movie)
	assert.Equal(t, "X", movie.Title)
	assert.Equal(t, 2000, movie.Year)
	assert.Equal(t, []string{"Drama"}, movie.Genre)
	assert.Equal(t, models.StatusWantToWatch, movie.Status)
	assert.Nil(t, movie.Rating)
	assert.Nil(t, movie.Notes)
	assert.Nil(t, movie.DateCompleted)
	assert.Nil(t, movie.TMDBID)
}

func TestAddMovieKeepsCatalogLink(t *testing.T) {
	srv, s := newTestServer(t)

	result, err := call(t, srv, ToolAddMovie, map[string]any{
		"title":     "Inception",
		"year":      2010,
		"genre":     []string{"Action"},
		"status":    "want_to_watch",
		"tmdbId":    27205,
		"posterUrl": "https://image.tmdb.org/t/p/w500/i.jpg",
	})
	require.NoError(t, err)

	movie, err := s.GetMovie(idFromText(t, result.Text()))
	require.NoError(t, err)
	require.NotNil(t, movie.TMDBID)
	assert.Equal(t, 27205, *movie.TMDBID)
	require.NotNil(t, movie.PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/i.jpg", *movie.PosterURL)
}

func TestAddTVShow(t *testing.T) {
	srv, s := newTestServer(t)

	result, err := call(t, srv, ToolAddTVShow, map[string]any{
		"title":         "The Wire",
		"year":          2002,
		"genre":         []string{"Crime"},
		"status":        "watching",
		"currentSeason": 3,
		"totalSeasons":  5,
		"rating":        10,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Text(), "Successfully added TV show: The Wire (2002)\nID: tv_"))

	show, err := s.GetTVShow(idFromText(t, result.Text()))
	require.NoError(t, err)
	assert.Equal(t, 3, *show.CurrentSeason)
	assert.Nil(t, show.CurrentEpisode)
	assert.Equal(t, 10, *show.Rating)
}

func TestUnknownTool(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := call(t, srv, "rate_everything", map[string]any{})
	e := requireCode(t, err, MethodNotFound)
	assert.Equal(t, "Unknown tool: rate_everything", e.Message)
}

func TestMissingAndIllTypedArguments(t *testing.T) {
	srv, s := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args any
	}{
		{"missing title", ToolAddMovie, map[string]any{"year": 2000, "genre": []string{}, "status": "watching"}},
		{"null status", ToolAddTVShow, map[string]any{"title": "T", "year": 2000, "genre": []string{}, "status": nil}},
		{"year as string", ToolAddMovie, map[string]any{"title": "T", "year": "2000", "genre": []string{}, "status": "watching"}},
		{"missing id", ToolUpdateMovieStatus, map[string]any{"status": "completed"}},
		{"missing type", ToolGetRecommendations, map[string]any{}},
		{"unknown type", ToolGetRecommendations, map[string]any{"type": "anime"}},
		{"arguments not an object", ToolDeleteMovie, []string{"movie_1"}},
		{"rating out of range", ToolAddMovie, map[string]any{"title": "T", "year": 2000, "genre": []string{}, "status": "watching", "rating": 11}},
		{"unknown status", ToolAddMovie, map[string]any{"title": "T", "year": 2000, "genre": []string{}, "status": "dropped"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, srv, tt.tool, tt.args)
			requireCode(t, err, InvalidParams)
		})
	}

	movies, _ := s.AllMovies()
	assert.Empty(t, movies)
}

func TestUpdateMovieStatus(t *testing.T) {
	stampAt := time.Date(2024, 4, 1, 21, 0, 0, 0, time.UTC)
	timeutil.SetNowFunc(func() time.Time { return stampAt })
	t.Cleanup(func() { timeutil.SetNowFunc(nil) })

	srv, s := newTestServer(t)
	movie, err := s.AddMovie(models.MovieInput{Title: "Heat", Year: 1995, Genre: []string{"Crime"}, Status: models.StatusWatching})
	require.NoError(t, err)

	result, err := call(t, srv, ToolUpdateMovieStatus, map[string]any{
		"id":     movie.ID,
		"status": "completed",
		"rating": 9,
		"notes":  "Diner scene",
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully updated movie: Heat\nNew status: completed", result.Text())

	got, _ := s.GetMovie(movie.ID)
	require.NotNil(t, got.DateCompleted)
	assert.True(t, stampAt.Equal(*got.DateCompleted))
	assert.Equal(t, 9, *got.Rating)
	assert.Equal(t, "Diner scene", *got.Notes)
}

func TestUpdateUnknownIDs(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := call(t, srv, ToolUpdateMovieStatus, map[string]any{"id": "movie_nope", "status": "completed"})
	e := requireCode(t, err, InvalidRequest)
	assert.Equal(t, "Movie with ID movie_nope not found", e.Message)

	_, err = call(t, srv, ToolUpdateTVShowProgress, map[string]any{"id": "tv_nope", "currentSeason": 2})
	e = requireCode(t, err, InvalidRequest)
	assert.Equal(t, "TV show with ID tv_nope not found", e.Message)
}

func TestUpdateTVShowProgress(t *testing.T) {
	srv, s := newTestServer(t)
	show, err := s.AddTVShow(models.TVShowInput{Title: "Dark", Year: 2017, Genre: []string{"Mystery"}, Status: models.StatusWantToWatch})
	require.NoError(t, err)

	result, err := call(t, srv, ToolUpdateTVShowProgress, map[string]any{
		"id":             show.ID,
		"currentSeason":  1,
		"currentEpisode": 4,
		"status":         "watching",
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully updated TV show: Dark\nProgress: S1E4\nStatus: watching", result.Text())

	result, err = call(t, srv, ToolUpdateTVShowProgress, map[string]any{"id": show.ID, "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, "Successfully updated TV show: Dark\nProgress: S1E4\nStatus: completed", result.Text())

	got, _ := s.GetTVShow(show.ID)
	assert.NotNil(t, got.DateCompleted)
}

func TestUpdateTVShowProgressWithoutEpisode(t *testing.T) {
	srv, s := newTestServer(t)
	show, err := s.AddTVShow(models.TVShowInput{Title: "Dark", Year: 2017, Status: models.StatusWantToWatch})
	require.NoError(t, err)

	result, err := call(t, srv, ToolUpdateTVShowProgress, map[string]any{"id": show.ID, "status": "watching"})
	require.NoError(t, err)
	assert.Equal(t, "Successfully updated TV show: Dark\nProgress: S?E?\nStatus: watching", result.Text())
}

func TestGetRecommendations(t *testing.T) {
	srv, s := newTestServer(t)

	result, err := call(t, srv, ToolGetRecommendations, map[string]any{"type": "both"})
	require.NoError(t, err)
	assert.Equal(t, "Start tracking some movies and TV shows to get personalized recommendations!", result.Text())

	for _, g := range [][]string{{"Action"}, {"Action"}, {"Drama"}} {
		_, err := s.AddMovie(models.MovieInput{Title: "M", Year: 2000, Genre: g, Status: models.StatusCompleted})
		require.NoError(t, err)
	}

	result, err = call(t, srv, ToolGetRecommendations, map[string]any{"type": "movies", "genre": "Drama"})
	require.NoError(t, err)
	assert.Equal(t, "Based on your 3 completed movies, you seem to enjoy: Action, Drama", result.Text())
}

func TestDeleteTools(t *testing.T) {
	srv, s := newTestServer(t)
	movie, err := s.AddMovie(models.MovieInput{Title: "Heat", Year: 1995, Status: models.StatusWatching})
	require.NoError(t, err)

	result, err := call(t, srv, ToolDeleteMovie, map[string]any{"id": movie.ID})
	require.NoError(t, err)
	assert.Equal(t, "Deleted movie "+movie.ID, result.Text())

	result, err = call(t, srv, ToolDeleteMovie, map[string]any{"id": movie.ID})
	require.NoError(t, err)
	assert.Equal(t, "No movie with ID "+movie.ID, result.Text())

	result, err = call(t, srv, ToolDeleteTVShow, map[string]any{"id": "tv_nope"})
	require.NoError(t, err)
	assert.Equal(t, "No TV show with ID tv_nope", result.Text())
}

func rpc(t *testing.T, srv *Server, msg string) map[string]any {
	t.Helper()
	out := srv.HandleMessage(context.Background(), []byte(msg))
	require.NotNil(t, out)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "2.0", resp["jsonrpc"])
	return resp
}

func errorCode(resp map[string]any) float64 {
	e, _ := resp["error"].(map[string]any)
	code, _ := e["code"].(float64)
	return code
}

func TestHandleMessage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	result := resp["result"].(map[string]any)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])
	assert.Equal(t, "sequel-tracker-mcp", result["serverInfo"].(map[string]any)["name"])
	assert.Equal(t, float64(1), resp["id"])

	assert.Nil(t, srv.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":"p","method":"ping"}`)
	assert.Equal(t, map[string]any{}, resp["result"])
	assert.Equal(t, "p", resp["id"])

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	assert.Len(t, resp["result"].(map[string]any)["tools"], 7)

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"sequel://unknown"}}`)
	assert.Equal(t, float64(InvalidRequest), errorCode(resp))
	assert.Equal(t, "Unknown resource: sequel://unknown", resp["error"].(map[string]any)["message"])

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"add_movie","arguments":{"title":"X","year":2000,"genre":["Drama"],"status":"completed"}}}`)
	content := resp["result"].(map[string]any)["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0].(map[string]any)["type"])

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope"}}`)
	assert.Equal(t, float64(MethodNotFound), errorCode(resp))

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":6,"method":"resources/subscribe"}`)
	assert.Equal(t, float64(MethodNotFound), errorCode(resp))

	resp = rpc(t, srv, `{"jsonrpc":"2.0","id":7,"method":"resources/read"}`)
	assert.Equal(t, float64(InvalidParams), errorCode(resp))

	resp = rpc(t, srv, `{"jsonrpc":"1.0","id":8,"method":"ping"}`)
	assert.Equal(t, float64(InvalidRequest), errorCode(resp))

	resp = rpc(t, srv, `{not json`)
	assert.Equal(t, float64(ParseError), errorCode(resp))
	assert.Nil(t, resp["id"])
}

func TestServeStdio(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, store.Seed(s, store.DefaultFixtures()))

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"sequel://movies/all"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_recommendations","arguments":{"type":"tv-shows"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, srv.ServeStdio(context.Background(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var read struct {
		ID     int                `json:"id"`
		Result ReadResourceResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &read))
	assert.Equal(t, 2, read.ID)
	var movies []models.TrackedMovie
	require.NoError(t, json.Unmarshal([]byte(read.Result.Contents[0].Text), &movies))
	require.Len(t, movies, 1)
	assert.Equal(t, "The Matrix", movies[0].Title)

	var rec struct {
		Result CallToolResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "Based on your 1 completed TV shows, you seem to enjoy: Drama, Crime", rec.Result.Text())
}

func TestServeStdioStopsOnCancelledContext(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := srv.ServeStdio(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
