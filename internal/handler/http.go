package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sequel-tracker/internal/mcp"
	"sequel-tracker/internal/models"
	"sequel-tracker/internal/service"
	"sequel-tracker/internal/store"
	"sequel-tracker/internal/tmdb"
)

// HTTPHandler handles HTTP requests for the REST API and the /mcp endpoint
type HTTPHandler struct {
	store     store.Store
	catalog   *service.CatalogService
	recs      *service.RecommendationService
	backupSvc *service.BackupService
	mcpServer *mcp.Server
	apiToken  string
	logger    *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler. catalog and backupSvc may be nil,
// in which case their routes answer 503.
func NewHTTPHandler(
	s store.Store,
	catalog *service.CatalogService,
	backupSvc *service.BackupService,
	mcpServer *mcp.Server,
	apiToken string,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		store:     s,
		catalog:   catalog,
		recs:      service.NewRecommendationService(s, logger),
		backupSvc: backupSvc,
		mcpServer: mcpServer,
		apiToken:  strings.TrimSpace(apiToken),
		logger:    logger,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	// Health check stays outside the auth group
	r.GET("/api/health", h.Health)

	api := r.Group("/api")
	api.Use(h.authMiddleware)

	// Catalog
	api.GET("/search", h.Search)
	api.GET("/discover", h.Discover)

	// Movies
	api.GET("/movies", h.ListMovies)
	api.POST("/movies", h.AddMovie)
	api.GET("/movies/:id", h.GetMovie)
	api.PATCH("/movies/:id", h.UpdateMovie)
	api.DELETE("/movies/:id", h.DeleteMovie)

	// TV shows
	api.GET("/tv-shows", h.ListTVShows)
	api.POST("/tv-shows", h.AddTVShow)
	api.GET("/tv-shows/:id", h.GetTVShow)
	api.PATCH("/tv-shows/:id", h.UpdateTVShow)
	api.DELETE("/tv-shows/:id", h.DeleteTVShow)

	api.GET("/stats", h.GetStats)
	api.GET("/recommendations", h.GetRecommendations)

	// Backups
	api.POST("/backup", func(c *gin.Context) {
		if h.backupSvc == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backups require the sqlite store backend"})
			return
		}
		backupPath, err := h.backupSvc.Backup()
		if err != nil {
			h.internalError(c, "backup failed", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"backup_path": backupPath})
	})

	r.POST("/mcp", h.authMiddleware, h.MCP)
}

// Search searches the catalog
func (h *HTTPHandler) Search(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog not configured"})
		return
	}
	page, err := h.catalog.Search(c.Request.Context(), c.Query("q"), c.Query("type"), h.getPage(c))
	if err != nil {
		h.catalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Discover lists popular or trending catalog titles
func (h *HTTPHandler) Discover(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog not configured"})
		return
	}
	mediaType := c.DefaultQuery("type", service.MediaMovie)
	category := c.DefaultQuery("category", service.CategoryPopular)
	page, err := h.catalog.Discover(c.Request.Context(), mediaType, category, h.getPage(c))
	if err != nil {
		h.catalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListMovies returns every tracked movie
func (h *HTTPHandler) ListMovies(c *gin.Context) {
	movies, err := h.store.AllMovies()
	if err != nil {
		h.internalError(c, "failed to list movies", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movies": movies})
}

// AddMovie adds a movie
func (h *HTTPHandler) AddMovie(c *gin.Context) {
	var req models.MovieInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movie, err := h.store.AddMovie(req)
	if err != nil {
		h.storeError(c, "failed to add movie", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"movie": movie})
}

// GetMovie returns one movie
func (h *HTTPHandler) GetMovie(c *gin.Context) {
	movie, err := h.store.GetMovie(c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to get movie", err)
		return
	}
	if movie == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "movie not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"movie": movie})
}

// UpdateMovie applies a partial update to a movie
func (h *HTTPHandler) UpdateMovie(c *gin.Context) {
	var req models.MovieUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movie, err := h.store.UpdateMovie(c.Param("id"), req)
	if err != nil {
		h.storeError(c, "failed to update movie", err)
		return
	}
	if movie == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "movie not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"movie": movie})
}

// DeleteMovie removes a movie
func (h *HTTPHandler) DeleteMovie(c *gin.Context) {
	deleted, err := h.store.DeleteMovie(c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to delete movie", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "movie not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ListTVShows returns every tracked TV show
func (h *HTTPHandler) ListTVShows(c *gin.Context) {
	shows, err := h.store.AllTVShows()
	if err != nil {
		h.internalError(c, "failed to list TV shows", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tv_shows": shows})
}

// AddTVShow adds a TV show
func (h *HTTPHandler) AddTVShow(c *gin.Context) {
	var req models.TVShowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	show, err := h.store.AddTVShow(req)
	if err != nil {
		h.storeError(c, "failed to add TV show", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tv_show": show})
}

// GetTVShow returns one TV show
func (h *HTTPHandler) GetTVShow(c *gin.Context) {
	show, err := h.store.GetTVShow(c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to get TV show", err)
		return
	}
	if show == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tv show not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tv_show": show})
}

// UpdateTVShow applies a partial update to a TV show
func (h *HTTPHandler) UpdateTVShow(c *gin.Context) {
	var req models.TVShowUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	show, err := h.store.UpdateTVShow(c.Param("id"), req)
	if err != nil {
		h.storeError(c, "failed to update TV show", err)
		return
	}
	if show == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tv show not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tv_show": show})
}

// DeleteTVShow removes a TV show
func (h *HTTPHandler) DeleteTVShow(c *gin.Context) {
	deleted, err := h.store.DeleteTVShow(c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to delete TV show", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "tv show not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GetStats returns the statistics view
func (h *HTTPHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		h.internalError(c, "failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRecommendations returns the genre-based recommendation text
func (h *HTTPHandler) GetRecommendations(c *gin.Context) {
	kind := service.RecommendationType(c.DefaultQuery("type", string(service.RecommendBoth)))
	text, err := h.recs.Recommend(kind, c.Query("genre"))
	if errors.Is(err, service.ErrInvalidRecommendationType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "failed to build recommendations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": text})
}

// MCP serves one JSON-RPC message over HTTP
func (h *HTTPHandler) MCP(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, mcp.MaxMessageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := h.mcpServer.HandleMessage(c.Request.Context(), body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.Data(http.StatusOK, "application/json", resp)
}

// Health returns health status and, when backups are enabled, the time of
// the newest backup
func (h *HTTPHandler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.backupSvc != nil {
		last, ok, err := h.backupSvc.LastBackup()
		switch {
		case err != nil:
			h.logger.Warn("failed to read last backup time", zap.Error(err))
		case ok:
			resp["last_backup"] = last.Format(time.RFC3339)
		default:
			resp["last_backup"] = nil
		}
	}
	c.JSON(http.StatusOK, resp)
}

// authMiddleware enforces Bearer token authentication against the configured API token.
func (h *HTTPHandler) authMiddleware(c *gin.Context) {
	expected := h.apiToken
	if expected == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "WEB_API_TOKEN not set"})
		c.Abort()
		return
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		c.Abort()
		return
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		c.Abort()
		return
	}

	c.Next()
}

// Helper functions

func (h *HTTPHandler) getPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *HTTPHandler) storeError(c *gin.Context, msg string, err error) {
	if errors.Is(err, models.ErrEmptyTitle) || errors.Is(err, models.ErrInvalidStatus) || errors.Is(err, models.ErrInvalidRating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.internalError(c, msg, err)
}

func (h *HTTPHandler) catalogError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrQueryRequired) || errors.Is(err, service.ErrInvalidMediaType) || errors.Is(err, service.ErrInvalidCategory) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var apiErr *tmdb.APIError
	if errors.As(err, &apiErr) {
		h.logger.Warn("catalog request failed", zap.Int("status", apiErr.StatusCode), zap.String("message", apiErr.StatusMessage))
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Error()})
		return
	}
	h.internalError(c, "catalog request failed", err)
}

func (h *HTTPHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
