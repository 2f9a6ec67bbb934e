package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sequel-tracker/internal/repository"
	"sequel-tracker/internal/timeutil"
	"sequel-tracker/internal/tmdb"
)

var (
	ErrQueryRequired    = errors.New("query parameter is required")
	ErrInvalidMediaType = errors.New("type must be movie or tv")
	ErrInvalidCategory  = errors.New("category must be popular or trending")
)

const (
	MediaMovie = "movie"
	MediaTV    = "tv"
	MediaMulti = "multi"

	CategoryPopular  = "popular"
	CategoryTrending = "trending"
)

// CatalogService serves catalog search and discovery, caching TMDB
// responses in SQLite when a cache repository is configured.
type CatalogService struct {
	client *tmdb.Client
	cache  *repository.CatalogCacheRepository
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	genres map[tmdb.MediaType]genreTable
}

type genreTable struct {
	names     map[int]string
	fetchedAt time.Time
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(client *tmdb.Client, cache *repository.CatalogCacheRepository, ttl time.Duration, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		genres: make(map[tmdb.MediaType]genreTable),
	}
}

// Search looks up movies, TV shows or both. An empty mediaType means multi.
func (s *CatalogService) Search(ctx context.Context, query, mediaType string, page int) (*tmdb.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	if mediaType == "" {
		mediaType = MediaMulti
	}

	var fetch func() (*tmdb.Page, error)
	switch mediaType {
	case MediaMovie:
		fetch = func() (*tmdb.Page, error) { return s.client.SearchMovies(ctx, query, page) }
	case MediaTV:
		fetch = func() (*tmdb.Page, error) { return s.client.SearchTV(ctx, query, page) }
	case MediaMulti:
		fetch = func() (*tmdb.Page, error) { return s.client.SearchMulti(ctx, query, page) }
	default:
		return nil, ErrInvalidMediaType
	}

	key := fmt.Sprintf("search:%s:%s:%d:%s", mediaType, strings.ToLower(query), page, s.client.Language())
	return s.annotated(ctx, key, fetch)
}

// Discover lists popular or trending titles of one media type.
func (s *CatalogService) Discover(ctx context.Context, mediaType, category string, page int) (*tmdb.Page, error) {
	if category == "" {
		category = CategoryPopular
	}

	var fetch func() (*tmdb.Page, error)
	switch {
	case mediaType == MediaMovie && category == CategoryPopular:
		fetch = func() (*tmdb.Page, error) { return s.client.PopularMovies(ctx, page) }
	case mediaType == MediaMovie && category == CategoryTrending:
		fetch = func() (*tmdb.Page, error) { return s.client.TrendingMovies(ctx, "week") }
	case mediaType == MediaTV && category == CategoryPopular:
		fetch = func() (*tmdb.Page, error) { return s.client.PopularTV(ctx, page) }
	case mediaType == MediaTV && category == CategoryTrending:
		fetch = func() (*tmdb.Page, error) { return s.client.TrendingTV(ctx, "week") }
	case mediaType != MediaMovie && mediaType != MediaTV:
		return nil, ErrInvalidMediaType
	default:
		return nil, ErrInvalidCategory
	}

	key := fmt.Sprintf("discover:%s:%s:%d:%s", mediaType, category, page, s.client.Language())
	return s.annotated(ctx, key, fetch)
}

// PurgeExpired drops cache entries older than the TTL.
func (s *CatalogService) PurgeExpired() (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Purge(timeutil.Now().Add(-s.ttl))
}

// GenreNames returns the genre table for one media type, keyed by TMDB
// genre id. Tables are kept in memory for the cache TTL.
func (s *CatalogService) GenreNames(ctx context.Context, mediaType tmdb.MediaType) (map[int]string, error) {
	s.mu.Lock()
	table, ok := s.genres[mediaType]
	s.mu.Unlock()
	if ok && timeutil.Now().Sub(table.fetchedAt) <= s.ttl {
		return table.names, nil
	}

	var (
		genres []tmdb.Genre
		err    error
	)
	switch mediaType {
	case tmdb.MediaTypeMovie:
		genres, err = s.client.MovieGenres(ctx)
	case tmdb.MediaTypeTV:
		genres, err = s.client.TVGenres(ctx)
	default:
		return nil, ErrInvalidMediaType
	}
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(genres))
	for _, g := range genres {
		names[g.ID] = g.Name
	}
	s.mu.Lock()
	s.genres[mediaType] = genreTable{names: names, fetchedAt: timeutil.Now()}
	s.mu.Unlock()
	return names, nil
}

// annotated returns the cached or fetched page with genre ids resolved to
// names, so a result carries everything needed to track it. A genre lookup
// failure leaves names empty rather than failing the page.
func (s *CatalogService) annotated(ctx context.Context, key string, fetch func() (*tmdb.Page, error)) (*tmdb.Page, error) {
	page, err := s.cached(key, fetch)
	if err != nil {
		return nil, err
	}

	for i := range page.Results {
		item := &page.Results[i]
		names, err := s.GenreNames(ctx, item.MediaType)
		if err != nil {
			s.logger.Warn("failed to resolve catalog genres", zap.String("media_type", string(item.MediaType)), zap.Error(err))
			return page, nil
		}
		item.Genres = make([]string, 0, len(item.GenreIDs))
		for _, id := range item.GenreIDs {
			if name, ok := names[id]; ok {
				item.Genres = append(item.Genres, name)
			}
		}
	}
	return page, nil
}

func (s *CatalogService) cached(key string, fetch func() (*tmdb.Page, error)) (*tmdb.Page, error) {
	if s.cache == nil {
		return fetch()
	}

	if page, ok := s.lookup(key); ok {
		return page, nil
	}

	page, err := fetch()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog payload: %w", err)
	}
	if err := s.cache.Upsert(key, string(payload), timeutil.Now(), s.client.Language()); err != nil {
		s.logger.Warn("failed to cache catalog response", zap.String("key", key), zap.Error(err))
	}
	return page, nil
}

// lookup returns a fresh cached page. Cache failures are logged and treated
// as misses.
func (s *CatalogService) lookup(key string) (*tmdb.Page, bool) {
	payload, fetchedAt, ok, err := s.cache.Get(key)
	if err != nil {
		s.logger.Warn("failed to read catalog cache", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok || timeutil.Now().Sub(fetchedAt) > s.ttl {
		return nil, false
	}

	var page tmdb.Page
	if err := json.Unmarshal([]byte(payload), &page); err != nil {
		s.logger.Warn("failed to decode cached catalog payload", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	s.logger.Debug("catalog cache hit", zap.String("key", key))
	return &page, true
}
