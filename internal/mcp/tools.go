package mcp

import (
	"bytes"
	"encoding/json"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/service"
)

const (
	ToolAddMovie             = "add_movie"
	ToolAddTVShow            = "add_tv_show"
	ToolUpdateMovieStatus    = "update_movie_status"
	ToolUpdateTVShowProgress = "update_tv_show_progress"
	ToolGetRecommendations   = "get_recommendations"
	ToolDeleteMovie          = "delete_movie"
	ToolDeleteTVShow         = "delete_tv_show"
)

// ToolCall is a decoded tool invocation; each tool has its own argument type.
type ToolCall interface {
	ToolName() string
}

type AddMovieCall struct {
	models.MovieInput
}

type AddTVShowCall struct {
	models.TVShowInput
}

type UpdateMovieStatusCall struct {
	ID     string        `json:"id"`
	Status models.Status `json:"status"`
	Rating *int          `json:"rating"`
	Notes  *string       `json:"notes"`
}

type UpdateTVShowProgressCall struct {
	ID             string         `json:"id"`
	CurrentSeason  *int           `json:"currentSeason"`
	CurrentEpisode *int           `json:"currentEpisode"`
	Status         *models.Status `json:"status"`
	Rating         *int           `json:"rating"`
	Notes          *string        `json:"notes"`
}

type GetRecommendationsCall struct {
	Type  service.RecommendationType `json:"type"`
	Genre string                     `json:"genre"`
}

type DeleteMovieCall struct {
	ID string `json:"id"`
}

type DeleteTVShowCall struct {
	ID string `json:"id"`
}

func (*AddMovieCall) ToolName() string             { return ToolAddMovie }
func (*AddTVShowCall) ToolName() string            { return ToolAddTVShow }
func (*UpdateMovieStatusCall) ToolName() string    { return ToolUpdateMovieStatus }
func (*UpdateTVShowProgressCall) ToolName() string { return ToolUpdateTVShowProgress }
func (*GetRecommendationsCall) ToolName() string   { return ToolGetRecommendations }
func (*DeleteMovieCall) ToolName() string          { return ToolDeleteMovie }
func (*DeleteTVShowCall) ToolName() string         { return ToolDeleteTVShow }

// Update converts the call into a store update
func (c *UpdateMovieStatusCall) Update() models.MovieUpdate {
	status := c.Status
	return models.MovieUpdate{Status: &status, Rating: c.Rating, Notes: c.Notes}
}

// Update converts the call into a store update
func (c *UpdateTVShowProgressCall) Update() models.TVShowUpdate {
	return models.TVShowUpdate{
		CurrentSeason:  c.CurrentSeason,
		CurrentEpisode: c.CurrentEpisode,
		Status:         c.Status,
		Rating:         c.Rating,
		Notes:          c.Notes,
	}
}

// ParseToolCall validates raw arguments against the named tool's required
// keys and decodes them into the tool's argument type.
func ParseToolCall(name string, raw json.RawMessage) (ToolCall, error) {
	tool, ok := lookupTool(name)
	if !ok {
		return nil, NewError(MethodNotFound, "Unknown tool: %s", name)
	}

	var call ToolCall
	switch name {
	case ToolAddMovie:
		call = &AddMovieCall{}
	case ToolAddTVShow:
		call = &AddTVShowCall{}
	case ToolUpdateMovieStatus:
		call = &UpdateMovieStatusCall{}
	case ToolUpdateTVShowProgress:
		call = &UpdateTVShowProgressCall{}
	case ToolGetRecommendations:
		call = &GetRecommendationsCall{}
	case ToolDeleteMovie:
		call = &DeleteMovieCall{}
	case ToolDeleteTVShow:
		call = &DeleteTVShowCall{}
	}

	if err := decodeArguments(name, raw, tool.InputSchema.Required, call); err != nil {
		return nil, err
	}

	if c, ok := call.(*GetRecommendationsCall); ok && !c.Type.Valid() {
		return nil, NewError(InvalidParams, "Invalid recommendation type: %s", c.Type)
	}
	return call, nil
}

func decodeArguments(name string, raw json.RawMessage, required []string, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = json.RawMessage("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return NewError(InvalidParams, "Arguments for %s must be an object", name)
	}
	for _, key := range required {
		v, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return NewError(InvalidParams, "Missing required argument: %s", key)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(InvalidParams, "Invalid arguments for %s: %v", name, err)
	}
	return nil
}

func lookupTool(name string) (Tool, bool) {
	for _, t := range toolDefinitions {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func statusProperty(description string) Property {
	enum := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		enum[i] = string(s)
	}
	return Property{Type: "string", Enum: enum, Description: description}
}

func ratingProperty() Property {
	lo, hi := float64(models.MinRating), float64(models.MaxRating)
	return Property{Type: "number", Minimum: &lo, Maximum: &hi, Description: "Personal rating (1-10)"}
}

func genreProperty(description string) Property {
	return Property{Type: "array", Items: &Property{Type: "string"}, Description: description}
}

var toolDefinitions = []Tool{
	{
		Name:        ToolAddMovie,
		Description: "Add a new movie to the tracking list",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"title":     {Type: "string", Description: "Movie title"},
				"year":      {Type: "number", Description: "Release year"},
				"genre":     genreProperty("Movie genres"),
				"status":    statusProperty("Viewing status"),
				"rating":    ratingProperty(),
				"notes":     {Type: "string", Description: "Personal notes"},
				"tmdbId":    {Type: "number", Description: "TMDB id when added from a catalog search"},
				"posterUrl": {Type: "string", Description: "Poster image URL"},
			},
			Required: []string{"title", "year", "genre", "status"},
		},
	},
	{
		Name:        ToolAddTVShow,
		Description: "Add a new TV show to the tracking list",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"title":          {Type: "string", Description: "TV show title"},
				"year":           {Type: "number", Description: "First air year"},
				"genre":          genreProperty("TV show genres"),
				"status":         statusProperty("Viewing status"),
				"currentSeason":  {Type: "number", Description: "Current season number"},
				"currentEpisode": {Type: "number", Description: "Current episode number"},
				"totalSeasons":   {Type: "number", Description: "Total number of seasons"},
				"rating":         ratingProperty(),
				"notes":          {Type: "string", Description: "Personal notes"},
				"tmdbId":         {Type: "number", Description: "TMDB id when added from a catalog search"},
				"posterUrl":      {Type: "string", Description: "Poster image URL"},
			},
			Required: []string{"title", "year", "genre", "status"},
		},
	},
	{
		Name:        ToolUpdateMovieStatus,
		Description: "Update the viewing status of a movie",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id":     {Type: "string", Description: "Movie ID"},
				"status": statusProperty("New viewing status"),
				"rating": ratingProperty(),
				"notes":  {Type: "string", Description: "Personal notes"},
			},
			Required: []string{"id", "status"},
		},
	},
	{
		Name:        ToolUpdateTVShowProgress,
		Description: "Update the viewing progress of a TV show",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id":             {Type: "string", Description: "TV show ID"},
				"currentSeason":  {Type: "number", Description: "Current season number"},
				"currentEpisode": {Type: "number", Description: "Current episode number"},
				"status":         statusProperty("New viewing status"),
				"rating":         ratingProperty(),
				"notes":          {Type: "string", Description: "Personal notes"},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        ToolGetRecommendations,
		Description: "Get personalized recommendations based on viewing history",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"type": {
					Type:        "string",
					Enum:        []string{string(service.RecommendMovies), string(service.RecommendTVShows), string(service.RecommendBoth)},
					Description: "Type of recommendations to get",
				},
				"genre": {Type: "string", Description: "Preferred genre filter"},
			},
			Required: []string{"type"},
		},
	},
	{
		Name:        ToolDeleteMovie,
		Description: "Remove a movie from the tracking list",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id": {Type: "string", Description: "Movie ID"},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        ToolDeleteTVShow,
		Description: "Remove a TV show from the tracking list",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id": {Type: "string", Description: "TV show ID"},
			},
			Required: []string{"id"},
		},
	},
}
