package models

import (
	"errors"
	"strings"
	"time"
)

// Status represents the viewing progress of a tracked item
type Status string

const (
	StatusWantToWatch Status = "want_to_watch"
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
)

// Statuses lists every accepted status value
var Statuses = []Status{StatusWantToWatch, StatusWatching, StatusCompleted}

// Valid reports whether s is one of the accepted status values
func (s Status) Valid() bool {
	switch s {
	case StatusWantToWatch, StatusWatching, StatusCompleted:
		return true
	}
	return false
}

const (
	MinRating = 1
	MaxRating = 10
)

var (
	ErrEmptyTitle    = errors.New("title cannot be empty")
	ErrInvalidStatus = errors.New("status must be one of want_to_watch, watching, completed")
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
)

// TrackedMovie represents a movie on the personal list
type TrackedMovie struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Year          int        `json:"year"`
	Genre         []string   `json:"genre"`
	Status        Status     `json:"status"`
	Rating        *int       `json:"rating,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	TMDBID        *int       `json:"tmdbId,omitempty"`
	PosterURL     *string    `json:"posterUrl,omitempty"`
	DateAdded     time.Time  `json:"dateAdded"`
	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
}

// TrackedTVShow represents a TV show on the personal list
type TrackedTVShow struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Year           int        `json:"year"`
	Genre          []string   `json:"genre"`
	Status         Status     `json:"status"`
	CurrentSeason  *int       `json:"currentSeason,omitempty"`
	CurrentEpisode *int       `json:"currentEpisode,omitempty"`
	TotalSeasons   *int       `json:"totalSeasons,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	TMDBID         *int       `json:"tmdbId,omitempty"`
	PosterURL      *string    `json:"posterUrl,omitempty"`
	DateAdded      time.Time  `json:"dateAdded"`
	DateCompleted  *time.Time `json:"dateCompleted,omitempty"`
}

// MovieInput holds the fields supplied when adding a movie. The binding
// tags mark the fields every add must carry.
type MovieInput struct {
	Title     string   `json:"title" binding:"required"`
	Year      int      `json:"year" binding:"required"`
	Genre     []string `json:"genre" binding:"required"`
	Status    Status   `json:"status" binding:"required"`
	Rating    *int     `json:"rating,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
	TMDBID    *int     `json:"tmdbId,omitempty"`
	PosterURL *string  `json:"posterUrl,omitempty"`
}

// TVShowInput holds the fields supplied when adding a TV show
type TVShowInput struct {
	Title          string   `json:"title" binding:"required"`
	Year           int      `json:"year" binding:"required"`
	Genre          []string `json:"genre" binding:"required"`
	Status         Status   `json:"status" binding:"required"`
	CurrentSeason  *int     `json:"currentSeason,omitempty"`
	CurrentEpisode *int     `json:"currentEpisode,omitempty"`
	TotalSeasons   *int     `json:"totalSeasons,omitempty"`
	Rating         *int     `json:"rating,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	TMDBID         *int     `json:"tmdbId,omitempty"`
	PosterURL      *string  `json:"posterUrl,omitempty"`
}

// MovieUpdate is a partial update; nil fields keep their previous value
type MovieUpdate struct {
	Title         *string    `json:"title,omitempty"`
	Year          *int       `json:"year,omitempty"`
	Genre         []string   `json:"genre,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	Rating        *int       `json:"rating,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	TMDBID        *int       `json:"tmdbId,omitempty"`
	PosterURL     *string    `json:"posterUrl,omitempty"`
	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
}

// TVShowUpdate is a partial update; nil fields keep their previous value
type TVShowUpdate struct {
	Title          *string    `json:"title,omitempty"`
	Year           *int       `json:"year,omitempty"`
	Genre          []string   `json:"genre,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	CurrentSeason  *int       `json:"currentSeason,omitempty"`
	CurrentEpisode *int       `json:"currentEpisode,omitempty"`
	TotalSeasons   *int       `json:"totalSeasons,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	TMDBID         *int       `json:"tmdbId,omitempty"`
	PosterURL      *string    `json:"posterUrl,omitempty"`
	DateCompleted  *time.Time `json:"dateCompleted,omitempty"`
}

// KindStats holds per-status counts for one collection
type KindStats struct {
	Total       int `json:"total"`
	WantToWatch int `json:"wantToWatch"`
	Watching    int `json:"watching"`
	Completed   int `json:"completed"`
}

// Add counts one record with the given status
func (k *KindStats) Add(status Status, n int) {
	k.Total += n
	switch status {
	case StatusWantToWatch:
		k.WantToWatch += n
	case StatusWatching:
		k.Watching += n
	case StatusCompleted:
		k.Completed += n
	}
}

// Totals holds collection sizes
type Totals struct {
	Movies  int `json:"movies"`
	TVShows int `json:"tvShows"`
}

// Stats is the derived statistics view over both collections
type Stats struct {
	Total   Totals    `json:"total"`
	Movies  KindStats `json:"movies"`
	TVShows KindStats `json:"tvShows"`
}

// Validate checks the record invariants of a new movie
func (in MovieInput) Validate() error {
	return validateFields(in.Title, in.Status, in.Rating)
}

// Validate checks the record invariants of a new TV show
func (in TVShowInput) Validate() error {
	return validateFields(in.Title, in.Status, in.Rating)
}

// Validate checks only the fields being changed
func (u MovieUpdate) Validate() error {
	return validateUpdate(u.Title, u.Status, u.Rating)
}

// Validate checks only the fields being changed
func (u TVShowUpdate) Validate() error {
	return validateUpdate(u.Title, u.Status, u.Rating)
}

func validateFields(title string, status Status, rating *int) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return validateRating(rating)
}

func validateUpdate(title *string, status *Status, rating *int) error {
	if title != nil && strings.TrimSpace(*title) == "" {
		return ErrEmptyTitle
	}
	if status != nil && !status.Valid() {
		return ErrInvalidStatus
	}
	return validateRating(rating)
}

func validateRating(rating *int) error {
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return ErrInvalidRating
	}
	return nil
}

// NewMovie builds a movie record from its input. Adding never stamps
// DateCompleted; only updates do.
func NewMovie(id string, in MovieInput, now time.Time) *TrackedMovie {
	m := &TrackedMovie{
		ID:        id,
		Title:     in.Title,
		Year:      in.Year,
		Genre:     cloneStrings(in.Genre),
		Status:    in.Status,
		Rating:    cloneInt(in.Rating),
		Notes:     cloneString(in.Notes),
		TMDBID:    cloneInt(in.TMDBID),
		PosterURL: cloneString(in.PosterURL),
		DateAdded: now,
	}
	return m
}

// NewTVShow builds a TV show record from its input
func NewTVShow(id string, in TVShowInput, now time.Time) *TrackedTVShow {
	s := &TrackedTVShow{
		ID:             id,
		Title:          in.Title,
		Year:           in.Year,
		Genre:          cloneStrings(in.Genre),
		Status:         in.Status,
		CurrentSeason:  cloneInt(in.CurrentSeason),
		CurrentEpisode: cloneInt(in.CurrentEpisode),
		TotalSeasons:   cloneInt(in.TotalSeasons),
		Rating:         cloneInt(in.Rating),
		Notes:          cloneString(in.Notes),
		TMDBID:         cloneInt(in.TMDBID),
		PosterURL:      cloneString(in.PosterURL),
		DateAdded:      now,
	}
	return s
}

// Apply merges u into m and then applies the completion stamp rule.
// ID and DateAdded are never touched.
func (m *TrackedMovie) Apply(u MovieUpdate, now time.Time) {
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.Year != nil {
		m.Year = *u.Year
	}
	if u.Genre != nil {
		m.Genre = cloneStrings(u.Genre)
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.Rating != nil {
		m.Rating = cloneInt(u.Rating)
	}
	if u.Notes != nil {
		m.Notes = cloneString(u.Notes)
	}
	if u.TMDBID != nil {
		m.TMDBID = cloneInt(u.TMDBID)
	}
	if u.PosterURL != nil {
		m.PosterURL = cloneString(u.PosterURL)
	}
	m.DateCompleted = stampCompletion(u.Status, m.DateCompleted, u.DateCompleted, now)
}

// Apply merges u into s and then applies the completion stamp rule.
func (s *TrackedTVShow) Apply(u TVShowUpdate, now time.Time) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Year != nil {
		s.Year = *u.Year
	}
	if u.Genre != nil {
		s.Genre = cloneStrings(u.Genre)
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.CurrentSeason != nil {
		s.CurrentSeason = cloneInt(u.CurrentSeason)
	}
	if u.CurrentEpisode != nil {
		s.CurrentEpisode = cloneInt(u.CurrentEpisode)
	}
	if u.TotalSeasons != nil {
		s.TotalSeasons = cloneInt(u.TotalSeasons)
	}
	if u.Rating != nil {
		s.Rating = cloneInt(u.Rating)
	}
	if u.Notes != nil {
		s.Notes = cloneString(u.Notes)
	}
	if u.TMDBID != nil {
		s.TMDBID = cloneInt(u.TMDBID)
	}
	if u.PosterURL != nil {
		s.PosterURL = cloneString(u.PosterURL)
	}
	s.DateCompleted = stampCompletion(u.Status, s.DateCompleted, u.DateCompleted, now)
}

// stampCompletion returns the dateCompleted value after a merge.
// An explicit value always wins; otherwise an existing stamp is kept;
// otherwise an update that sets status to completed stamps now.
func stampCompletion(status *Status, existing, supplied *time.Time, now time.Time) *time.Time {
	if supplied != nil {
		t := *supplied
		return &t
	}
	if existing != nil {
		return existing
	}
	if status != nil && *status == StatusCompleted {
		t := now
		return &t
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Clone returns a deep copy so callers cannot mutate stored state
func (m *TrackedMovie) Clone() *TrackedMovie {
	c := *m
	c.Genre = cloneStrings(m.Genre)
	c.Rating = cloneInt(m.Rating)
	c.Notes = cloneString(m.Notes)
	c.TMDBID = cloneInt(m.TMDBID)
	c.PosterURL = cloneString(m.PosterURL)
	c.DateCompleted = cloneTime(m.DateCompleted)
	return &c
}

// Clone returns a deep copy so callers cannot mutate stored state
func (s *TrackedTVShow) Clone() *TrackedTVShow {
	c := *s
	c.Genre = cloneStrings(s.Genre)
	c.CurrentSeason = cloneInt(s.CurrentSeason)
	c.CurrentEpisode = cloneInt(s.CurrentEpisode)
	c.TotalSeasons = cloneInt(s.TotalSeasons)
	c.Rating = cloneInt(s.Rating)
	c.Notes = cloneString(s.Notes)
	c.TMDBID = cloneInt(s.TMDBID)
	c.PosterURL = cloneString(s.PosterURL)
	c.DateCompleted = cloneTime(s.DateCompleted)
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v
func StringPtr(v string) *string { return &v }

// StatusPtr returns a pointer to v
func StatusPtr(v Status) *Status { return &v }
