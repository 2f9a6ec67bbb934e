// Package mcp adapts the tracking store to a JSON-RPC 2.0 tool and resource
// protocol, served over stdio or HTTP.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"sequel-tracker/internal/models"
	"sequel-tracker/internal/service"
	"sequel-tracker/internal/store"
)

const (
	URIMovies  = "sequel://movies/all"
	URITVShows = "sequel://tv-shows/all"
	URIStats   = "sequel://stats"

	// MaxMessageSize bounds one JSON-RPC message on every transport
	MaxMessageSize = 4 << 20
)

var resourceDefinitions = []Resource{
	{URI: URIMovies, MimeType: mimeTypeJSON, Name: "All Movies", Description: "List of all tracked movies"},
	{URI: URITVShows, MimeType: mimeTypeJSON, Name: "All TV Shows", Description: "List of all tracked TV shows"},
	{URI: URIStats, MimeType: mimeTypeJSON, Name: "Statistics", Description: "Viewing statistics and insights"},
}

// Server dispatches resource reads and tool calls against a store
type Server struct {
	store  store.Store
	recs   *service.RecommendationService
	logger *zap.Logger
}

// NewServer creates a new Server over s
func NewServer(s store.Store, logger *zap.Logger) *Server {
	return &Server{
		store:  s,
		recs:   service.NewRecommendationService(s, logger),
		logger: logger,
	}
}

// ListResources returns the resource catalog
func (s *Server) ListResources() []Resource {
	out := make([]Resource, len(resourceDefinitions))
	copy(out, resourceDefinitions)
	return out
}

// ListTools returns the tool catalog with input schemas
func (s *Server) ListTools() []Tool {
	out := make([]Tool, len(toolDefinitions))
	copy(out, toolDefinitions)
	return out
}

// ReadResource renders the named resource as indented JSON
func (s *Server) ReadResource(uri string) (*ReadResourceResult, error) {
	var (
		data any
		err  error
	)
	switch uri {
	case URIMovies:
		data, err = s.store.AllMovies()
	case URITVShows:
		data, err = s.store.AllTVShows()
	case URIStats:
		data, err = s.store.Stats()
	default:
		return nil, NewError(InvalidRequest, "Unknown resource: %s", uri)
	}
	if err != nil {
		return nil, NewError(InternalError, "failed to read %s: %v", uri, err)
	}

	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, NewError(InternalError, "failed to encode %s: %v", uri, err)
	}
	return &ReadResourceResult{
		Contents: []ResourceContents{{URI: uri, MimeType: mimeTypeJSON, Text: string(text)}},
	}, nil
}

// CallTool decodes and executes one tool invocation
func (s *Server) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallToolResult, error) {
	call, err := ParseToolCall(name, args)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, call)
}

// Execute runs an already decoded tool call
func (s *Server) Execute(ctx context.Context, call ToolCall) (*CallToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(InternalError, "%v", err)
	}

	switch c := call.(type) {
	case *AddMovieCall:
		movie, err := s.store.AddMovie(c.MovieInput)
		if err != nil {
			return nil, storeError("add movie", err)
		}
		s.logger.Info("movie added", zap.String("id", movie.ID), zap.String("title", movie.Title))
		return TextResult(fmt.Sprintf("Successfully added movie: %s (%d)\nID: %s", movie.Title, movie.Year, movie.ID)), nil

	case *AddTVShowCall:
		show, err := s.store.AddTVShow(c.TVShowInput)
		if err != nil {
			return nil, storeError("add TV show", err)
		}
		s.logger.Info("tv show added", zap.String("id", show.ID), zap.String("title", show.Title))
		return TextResult(fmt.Sprintf("Successfully added TV show: %s (%d)\nID: %s", show.Title, show.Year, show.ID)), nil

	case *UpdateMovieStatusCall:
		movie, err := s.store.UpdateMovie(c.ID, c.Update())
		if err != nil {
			return nil, storeError("update movie", err)
		}
		if movie == nil {
			return nil, NewError(InvalidRequest, "Movie with ID %s not found", c.ID)
		}
		return TextResult(fmt.Sprintf("Successfully updated movie: %s\nNew status: %s", movie.Title, movie.Status)), nil

	case *UpdateTVShowProgressCall:
		show, err := s.store.UpdateTVShow(c.ID, c.Update())
		if err != nil {
			return nil, storeError("update TV show", err)
		}
		if show == nil {
			return nil, NewError(InvalidRequest, "TV show with ID %s not found", c.ID)
		}
		return TextResult(fmt.Sprintf("Successfully updated TV show: %s\nProgress: S%sE%s\nStatus: %s",
			show.Title, progressNumber(show.CurrentSeason), progressNumber(show.CurrentEpisode), show.Status)), nil

	case *GetRecommendationsCall:
		text, err := s.recs.Recommend(c.Type, c.Genre)
		if err != nil {
			if errors.Is(err, service.ErrInvalidRecommendationType) {
				return nil, NewError(InvalidParams, "%v", err)
			}
			return nil, NewError(InternalError, "failed to build recommendations: %v", err)
		}
		return TextResult(text), nil

	case *DeleteMovieCall:
		deleted, err := s.store.DeleteMovie(c.ID)
		if err != nil {
			return nil, storeError("delete movie", err)
		}
		if !deleted {
			return TextResult("No movie with ID " + c.ID), nil
		}
		return TextResult("Deleted movie " + c.ID), nil

	case *DeleteTVShowCall:
		deleted, err := s.store.DeleteTVShow(c.ID)
		if err != nil {
			return nil, storeError("delete TV show", err)
		}
		if !deleted {
			return TextResult("No TV show with ID " + c.ID), nil
		}
		return TextResult("Deleted TV show " + c.ID), nil
	}

	return nil, NewError(MethodNotFound, "Unknown tool: %s", call.ToolName())
}

// HandleMessage processes one JSON-RPC message and returns the encoded
// response, or nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, msg []byte) []byte {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return s.encode(Response{JSONRPC: jsonRPCVersion, Error: NewError(ParseError, "Parse error: %v", err)})
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return s.encode(Response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: NewError(InvalidRequest, "Invalid request")})
	}

	result, err := s.dispatch(ctx, &req)
	if req.IsNotification() {
		if err != nil {
			s.logger.Debug("notification failed",
				zap.String("method", req.Method),
				zap.Int("code", int(CodeOf(err))),
				zap.Error(err),
			)
		}
		return nil
	}

	resp := Response{JSONRPC: jsonRPCVersion, ID: req.ID}
	if err != nil {
		resp.Error = toError(err)
		s.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.Int("code", int(resp.Error.Code)),
			zap.String("message", resp.Error.Message),
		)
	} else {
		resp.Result = result
	}
	return s.encode(resp)
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: map[string]any{
				"resources": map[string]any{},
				"tools":     map[string]any{},
			},
			ServerInfo: ServerInfo{Name: ServerName, Version: ServerVersion},
		}, nil

	case "notifications/initialized":
		return nil, nil

	case "ping":
		return struct{}{}, nil

	case "resources/list":
		return ListResourcesResult{Resources: s.ListResources()}, nil

	case "resources/read":
		var params ReadResourceParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.ReadResource(params.URI)

	case "tools/list":
		return ListToolsResult{Tools: s.ListTools()}, nil

	case "tools/call":
		var params CallToolParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.CallTool(ctx, params.Name, params.Arguments)
	}

	return nil, NewError(MethodNotFound, "Method not found: %s", req.Method)
}

// ServeStdio reads newline-delimited messages from r and writes responses
// to w until r is exhausted or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
	out := bufio.NewWriter(w)

	s.logger.Info("sequel tracker MCP server running on stdio")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := out.Write(append(resp, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("failed to flush response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) encode(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		data, _ = json.Marshal(Response{
			JSONRPC: jsonRPCVersion,
			ID:      resp.ID,
			Error:   NewError(InternalError, "failed to encode response"),
		})
	}
	return data
}

func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return NewError(InvalidParams, "Missing params")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(InvalidParams, "Invalid params: %v", err)
	}
	return nil
}

// storeError maps validation failures to InvalidParams and everything else
// to InternalError.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrEmptyTitle),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidRating):
		return NewError(InvalidParams, "%v", err)
	}
	return NewError(InternalError, "failed to %s: %v", op, err)
}

func progressNumber(v *int) string {
	if v == nil {
		return "?"
	}
	return strconv.Itoa(*v)
}
