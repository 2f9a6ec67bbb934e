package tmdb

import "strconv"

// MediaType distinguishes movies from TV shows in catalog results
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Item is a catalog entry normalized across movies and TV shows
type Item struct {
	ID          int       `json:"id"`
	MediaType   MediaType `json:"media_type"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	PosterPath  string    `json:"poster_path,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Overview    string    `json:"overview"`
	VoteAverage float64   `json:"vote_average"`
	GenreIDs    []int     `json:"genre_ids"`
	Genres      []string  `json:"genres,omitempty"`
}

// Page is one page of catalog results
type Page struct {
	Page         int    `json:"page"`
	Results      []Item `json:"results"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}

// Genre is an entry of the TMDB genre table
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// rawResult holds the union of movie and TV fields as TMDB returns them
type rawResult struct {
	ID           int       `json:"id"`
	MediaType    MediaType `json:"media_type"`
	Title        string    `json:"title"`
	Name         string    `json:"name"`
	ReleaseDate  string    `json:"release_date"`
	FirstAirDate string    `json:"first_air_date"`
	PosterPath   string    `json:"poster_path"`
	Overview     string    `json:"overview"`
	VoteAverage  float64   `json:"vote_average"`
	GenreIDs     []int     `json:"genre_ids"`
}

type rawPage struct {
	Page         int         `json:"page"`
	Results      []rawResult `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// normalize converts a raw page. fallback is used when results carry no
// media_type of their own; multi-search results without a movie or tv
// type (people) are skipped.
func (p rawPage) normalize(fallback MediaType) *Page {
	page := &Page{
		Page:         p.Page,
		Results:      make([]Item, 0, len(p.Results)),
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
	}
	for _, r := range p.Results {
		mediaType := r.MediaType
		if mediaType == "" {
			mediaType = fallback
		}
		switch mediaType {
		case MediaTypeMovie:
			page.Results = append(page.Results, r.item(mediaType, r.Title, r.ReleaseDate))
		case MediaTypeTV:
			page.Results = append(page.Results, r.item(mediaType, r.Name, r.FirstAirDate))
		}
	}
	return page
}

func (r rawResult) item(mediaType MediaType, title, date string) Item {
	genreIDs := r.GenreIDs
	if genreIDs == nil {
		genreIDs = []int{}
	}
	return Item{
		ID:          r.ID,
		MediaType:   mediaType,
		Title:       title,
		Year:        ExtractYear(date),
		PosterPath:  r.PosterPath,
		PosterURL:   PosterURL(r.PosterPath, ""),
		Overview:    r.Overview,
		VoteAverage: r.VoteAverage,
		GenreIDs:    genreIDs,
	}
}

// ExtractYear returns the year of a YYYY-MM-DD date, or 0 when it is missing
func ExtractYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func emptyPage() *Page {
	return &Page{Page: 1, Results: []Item{}}
}
