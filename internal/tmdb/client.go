package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
	defaultTimeout      = 10 * time.Second
	requestInterval     = 100 * time.Millisecond // spacing between requests to stay under TMDB limits
	defaultLanguage     = "en-US"
)

// Client handles all interactions with the TMDB API
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// APIError represents an error returned by the TMDB API
type APIError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB API error (code %d): %s", e.StatusCode, e.StatusMessage)
}

// NewClient creates a new TMDB API client
func NewClient(apiKey string) *Client {
	return NewClientWithHTTP(apiKey, &http.Client{Timeout: defaultTimeout})
}

// NewClientWithHTTP creates a new TMDB API client with a custom HTTP client
func NewClientWithHTTP(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		language:   defaultLanguage,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(requestInterval), 1),
	}
}

// SetBaseURL allows overriding the base URL (useful for testing)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetRateLimiter replaces the request limiter
func (c *Client) SetRateLimiter(limiter *rate.Limiter) {
	c.limiter = limiter
}

// SetLanguage sets the language requested from TMDB
func (c *Client) SetLanguage(language string) {
	if language != "" {
		c.language = language
	}
}

// Language returns the language requested from TMDB
func (c *Client) Language() string {
	return c.language
}

// SearchMovies searches movies by title. Calls /search/movie.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*Page, error) {
	return c.search(ctx, "/search/movie", query, page, MediaTypeMovie)
}

// SearchTV searches TV shows by name. Calls /search/tv.
func (c *Client) SearchTV(ctx context.Context, query string, page int) (*Page, error) {
	return c.search(ctx, "/search/tv", query, page, MediaTypeTV)
}

// SearchMulti searches movies and TV shows together. Calls /search/multi;
// people in the response are dropped.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*Page, error) {
	return c.search(ctx, "/search/multi", query, page, "")
}

func (c *Client) search(ctx context.Context, path, query string, page int, mediaType MediaType) (*Page, error) {
	if query == "" {
		return emptyPage(), nil
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(normalizePage(page)))
	params.Set("include_adult", "false")

	var raw rawPage
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", path, err)
	}
	return raw.normalize(mediaType), nil
}

// PopularMovies lists popular movies. Calls /movie/popular.
func (c *Client) PopularMovies(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "/movie/popular", page, MediaTypeMovie)
}

// PopularTV lists popular TV shows. Calls /tv/popular.
func (c *Client) PopularTV(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "/tv/popular", page, MediaTypeTV)
}

// TrendingMovies lists trending movies for window "day" or "week".
func (c *Client) TrendingMovies(ctx context.Context, window string) (*Page, error) {
	return c.list(ctx, "/trending/movie/"+normalizeWindow(window), 1, MediaTypeMovie)
}

// TrendingTV lists trending TV shows for window "day" or "week".
func (c *Client) TrendingTV(ctx context.Context, window string) (*Page, error) {
	return c.list(ctx, "/trending/tv/"+normalizeWindow(window), 1, MediaTypeTV)
}

func (c *Client) list(ctx context.Context, path string, page int, mediaType MediaType) (*Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(normalizePage(page)))

	var raw rawPage
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	return raw.normalize(mediaType), nil
}

// MovieGenres returns the movie genre table. Calls /genre/movie/list.
func (c *Client) MovieGenres(ctx context.Context) ([]Genre, error) {
	return c.genres(ctx, "/genre/movie/list")
}

// TVGenres returns the TV genre table. Calls /genre/tv/list.
func (c *Client) TVGenres(ctx context.Context) ([]Genre, error) {
	return c.genres(ctx, "/genre/tv/list")
}

func (c *Client) genres(ctx context.Context, path string) ([]Genre, error) {
	var resp struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, path, url.Values{}, &resp); err != nil {
		return nil, fmt.Errorf("failed to get genres: %w", err)
	}
	if resp.Genres == nil {
		return []Genre{}, nil
	}
	return resp.Genres, nil
}

// get performs a rate-limited GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkResponse checks the HTTP response for errors
func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode),
		}
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &APIError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	if apiErr.StatusCode == 0 {
		apiErr.StatusCode = resp.StatusCode
	}
	if apiErr.StatusMessage == "" {
		apiErr.StatusMessage = fmt.Sprintf("HTTP %d error", resp.StatusCode)
	}

	return &apiErr
}

// PosterURL builds a poster image URL; empty paths yield "".
func PosterURL(posterPath, size string) string {
	if posterPath == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return DefaultImageBaseURL + "/" + size + posterPath
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizeWindow(window string) string {
	if window == "day" {
		return "day"
	}
	return "week"
}
