package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"sequel-tracker/internal/mcp"
	"sequel-tracker/internal/models"
	"sequel-tracker/internal/timeutil"
)

const pollTimeout = 10 * time.Second

// TelegramBot exposes the tracker through Telegram commands. Every command
// is answered through the protocol adapter.
type TelegramBot struct {
	bot    *tele.Bot
	server *mcp.Server
	chatID int64
	logger *zap.Logger
}

// NewTelegramBot creates a new TelegramBot. When chatID is non-zero, only
// that chat is served and it receives the daily digest.
func NewTelegramBot(token string, chatID int64, server *mcp.Server, logger *zap.Logger) (*TelegramBot, error) {
	if token == "" {
		return nil, errors.New("telegram bot not configured: missing bot token")
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram handler failed", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	t := &TelegramBot{bot: b, server: server, chatID: chatID, logger: logger}
	t.register()
	return t, nil
}

func (t *TelegramBot) register() {
	t.bot.Use(t.restrictChat)
	for _, command := range []string{"/start", "/help", "/stats", "/movies", "/shows", "/recommend", "/complete", "/progress"} {
		t.bot.Handle(command, func(c tele.Context) error {
			return c.Send(t.Reply(context.Background(), command, c.Args()))
		})
	}
}

func (t *TelegramBot) restrictChat(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if t.chatID != 0 && (c.Chat() == nil || c.Chat().ID != t.chatID) {
			t.logger.Warn("ignoring message from unknown chat")
			return nil
		}
		return next(c)
	}
}

// Start begins long polling; it blocks until Stop is called.
func (t *TelegramBot) Start() {
	t.logger.Info("telegram bot started")
	t.bot.Start()
}

// Stop stops long polling
func (t *TelegramBot) Stop() {
	t.bot.Stop()
}

// SendDigest sends the stats digest to the configured chat
func (t *TelegramBot) SendDigest() error {
	if t.chatID == 0 {
		return errors.New("telegram digest not configured: missing chat ID")
	}
	stats, err := readResource[models.Stats](t.server, mcp.URIStats)
	if err != nil {
		return err
	}
	if _, err := t.bot.Send(&tele.Chat{ID: t.chatID}, FormatDigest(stats, timeutil.Now())); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Reply computes the answer to one command
func (t *TelegramBot) Reply(ctx context.Context, command string, args []string) string {
	return NewCommands(t.server).Reply(ctx, command, args)
}

// Commands answers bot commands using the protocol adapter. It holds no
// Telegram state so it can be exercised directly.
type Commands struct {
	server *mcp.Server
}

// NewCommands creates a new Commands
func NewCommands(server *mcp.Server) *Commands {
	return &Commands{server: server}
}

// Reply computes the answer to one command
func (c *Commands) Reply(ctx context.Context, command string, args []string) string {
	var (
		text string
		err  error
	)
	switch command {
	case "/start", "/help":
		text = helpText
	case "/stats":
		var stats *models.Stats
		if stats, err = readResource[models.Stats](c.server, mcp.URIStats); err == nil {
			text = FormatStats(stats)
		}
	case "/movies":
		var movies *[]models.TrackedMovie
		if movies, err = readResource[[]models.TrackedMovie](c.server, mcp.URIMovies); err == nil {
			text = FormatMovies(*movies)
		}
	case "/shows":
		var shows *[]models.TrackedTVShow
		if shows, err = readResource[[]models.TrackedTVShow](c.server, mcp.URITVShows); err == nil {
			text = FormatTVShows(*shows)
		}
	case "/recommend":
		kind := "both"
		if len(args) > 0 {
			kind = args[0]
		}
		text, err = c.callTool(ctx, mcp.ToolGetRecommendations, map[string]any{"type": kind})
	case "/complete":
		if len(args) != 1 {
			return "Usage: /complete <movie-id>"
		}
		text, err = c.callTool(ctx, mcp.ToolUpdateMovieStatus, map[string]any{
			"id":     args[0],
			"status": models.StatusCompleted,
		})
	case "/progress":
		if len(args) != 3 {
			return "Usage: /progress <show-id> <season> <episode>"
		}
		season, serr := strconv.Atoi(args[1])
		episode, eerr := strconv.Atoi(args[2])
		if serr != nil || eerr != nil {
			return "Season and episode must be numbers"
		}
		text, err = c.callTool(ctx, mcp.ToolUpdateTVShowProgress, map[string]any{
			"id":             args[0],
			"currentSeason":  season,
			"currentEpisode": episode,
		})
	default:
		return "Unknown command. " + helpText
	}

	if err != nil {
		var mcpErr *mcp.Error
		if errors.As(err, &mcpErr) {
			return "⚠️ " + mcpErr.Message
		}
		return "⚠️ " + err.Error()
	}
	return text
}

func (c *Commands) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	result, err := c.server.CallTool(ctx, name, raw)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

func readResource[T any](server *mcp.Server, uri string) (*T, error) {
	result, err := server.ReadResource(uri)
	if err != nil {
		return nil, err
	}
	if len(result.Contents) == 0 {
		return nil, fmt.Errorf("resource %s returned no content", uri)
	}
	var v T
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", uri, err)
	}
	return &v, nil
}

const helpText = `Commands:
/stats - viewing statistics
/movies - tracked movies
/shows - tracked TV shows
/recommend [movies|tv-shows|both] - genre recommendations
/complete <movie-id> - mark a movie completed
/progress <show-id> <season> <episode> - update TV show progress`

// FormatStats renders the statistics view
func FormatStats(stats *models.Stats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎬 Movies: %d\n", stats.Total.Movies))
	sb.WriteString(formatKind(stats.Movies))
	sb.WriteString(fmt.Sprintf("\n📺 TV shows: %d\n", stats.Total.TVShows))
	sb.WriteString(formatKind(stats.TVShows))
	return sb.String()
}

func formatKind(k models.KindStats) string {
	return fmt.Sprintf("   want to watch: %d\n   watching: %d\n   completed: %d\n", k.WantToWatch, k.Watching, k.Completed)
}

// FormatDigest renders the daily digest message
func FormatDigest(stats *models.Stats, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Sequel Tracker digest (%s)\n\n", now.Format("2006-01-02")))

	inProgress := stats.Movies.Watching + stats.TVShows.Watching
	if stats.Total.Movies+stats.Total.TVShows == 0 {
		sb.WriteString("Nothing tracked yet. Add a movie or TV show to get started 🍿")
		return sb.String()
	}

	sb.WriteString(FormatStats(stats))
	if inProgress > 0 {
		sb.WriteString(fmt.Sprintf("\n▶️ %d in progress", inProgress))
	}
	return sb.String()
}

// FormatMovies renders the movie list
func FormatMovies(movies []models.TrackedMovie) string {
	if len(movies) == 0 {
		return "No movies tracked yet."
	}
	var sb strings.Builder
	for i, m := range movies {
		sb.WriteString(fmt.Sprintf("%d. %s (%d) [%s]\n   %s", i+1, m.Title, m.Year, m.Status, m.ID))
		if i < len(movies)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatTVShows renders the TV show list
func FormatTVShows(shows []models.TrackedTVShow) string {
	if len(shows) == 0 {
		return "No TV shows tracked yet."
	}
	var sb strings.Builder
	for i, s := range shows {
		sb.WriteString(fmt.Sprintf("%d. %s (%d) [%s]", i+1, s.Title, s.Year, s.Status))
		if s.CurrentSeason != nil && s.CurrentEpisode != nil {
			sb.WriteString(fmt.Sprintf(" S%dE%d", *s.CurrentSeason, *s.CurrentEpisode))
		}
		sb.WriteString("\n   " + s.ID)
		if i < len(shows)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
