package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/store"
)

// RecommendationType selects which collections feed a recommendation
type RecommendationType string

const (
	RecommendMovies  RecommendationType = "movies"
	RecommendTVShows RecommendationType = "tv-shows"
	RecommendBoth    RecommendationType = "both"
)

const (
	topGenreCount = 3

	FallbackRecommendation = "Start tracking some movies and TV shows to get personalized recommendations!"
)

var ErrInvalidRecommendationType = errors.New("type must be one of movies, tv-shows, both")

// Valid reports whether t is a known recommendation type
func (t RecommendationType) Valid() bool {
	switch t {
	case RecommendMovies, RecommendTVShows, RecommendBoth:
		return true
	}
	return false
}

func (t RecommendationType) includesMovies() bool {
	return t == RecommendMovies || t == RecommendBoth
}

func (t RecommendationType) includesTVShows() bool {
	return t == RecommendTVShows || t == RecommendBoth
}

// RecommendationService summarizes viewing taste from completed records
type RecommendationService struct {
	store  store.Store
	logger *zap.Logger
}

// NewRecommendationService creates a new RecommendationService
func NewRecommendationService(s store.Store, logger *zap.Logger) *RecommendationService {
	return &RecommendationService{store: s, logger: logger}
}

// Recommend builds one paragraph per requested kind from the genre tags of
// completed records. The genre argument is accepted but does not change the
// tally.
func (s *RecommendationService) Recommend(t RecommendationType, genre string) (string, error) {
	if !t.Valid() {
		return "", ErrInvalidRecommendationType
	}
	if genre != "" {
		s.logger.Debug("recommendation genre filter ignored", zap.String("genre", genre))
	}

	var (
		paragraphs []string
		completed  int
	)

	if t.includesMovies() {
		movies, err := s.store.AllMovies()
		if err != nil {
			return "", fmt.Errorf("failed to list movies: %w", err)
		}
		var genres [][]string
		for _, m := range movies {
			if m.Status == models.StatusCompleted {
				genres = append(genres, m.Genre)
			}
		}
		completed += len(genres)
		paragraphs = append(paragraphs, paragraph(len(genres), "movies", genres))
	}

	if t.includesTVShows() {
		shows, err := s.store.AllTVShows()
		if err != nil {
			return "", fmt.Errorf("failed to list TV shows: %w", err)
		}
		var genres [][]string
		for _, sh := range shows {
			if sh.Status == models.StatusCompleted {
				genres = append(genres, sh.Genre)
			}
		}
		completed += len(genres)
		paragraphs = append(paragraphs, paragraph(len(genres), "TV shows", genres))
	}

	if completed == 0 {
		return FallbackRecommendation, nil
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// paragraph renders one kind's sentence. A kind with no completions still
// reports its zero count with an empty genre list.
func paragraph(count int, noun string, genres [][]string) string {
	return fmt.Sprintf("Based on your %d completed %s, you seem to enjoy: %s",
		count, noun, strings.Join(TopGenres(genres, topGenreCount), ", "))
}

// TopGenres tallies genre tags and returns the n most frequent, ordered by
// descending count with ties kept in first-encountered order.
func TopGenres(genres [][]string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, tags := range genres {
		for _, g := range tags {
			if _, seen := counts[g]; !seen {
				order = append(order, g)
			}
			counts[g]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}
