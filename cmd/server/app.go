package main

import (
	"fmt"

	"go.uber.org/zap"

	"sequel-tracker/internal/config"
	"sequel-tracker/internal/logger"
	"sequel-tracker/internal/mcp"
	"sequel-tracker/internal/repository"
	"sequel-tracker/internal/service"
	"sequel-tracker/internal/store"
	"sequel-tracker/internal/tmdb"
)

// app owns the long-lived collaborators shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *repository.SQLiteDB
	store   store.Store
	catalog *service.CatalogService
	backup  *service.BackupService
	mcp     *mcp.Server
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := logger.New(cfg.LogLevel, cfg.Production())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}

	var cache *repository.CatalogCacheRepository
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := repository.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database schema: %w", err)
		}
		a.db = db
		a.store = repository.NewTrackingStore(db, cfg.UserID)
		a.backup = service.NewBackupService(db, cfg.BackupDir, log)
		cache = repository.NewCatalogCacheRepository(db)
		log.Info("using sqlite store", zap.String("path", cfg.DBPath), zap.String("user_id", cfg.UserID))
	default:
		mem := store.NewMemoryStore()
		if cfg.SeedFixtures {
			if err := store.Seed(mem, store.DefaultFixtures()); err != nil {
				return nil, fmt.Errorf("failed to seed store: %w", err)
			}
		}
		a.store = mem
		log.Info("using in-memory store", zap.Bool("seeded", cfg.SeedFixtures))
	}

	if cfg.TMDBAPIKey == "" {
		log.Warn("TMDB_API_KEY not set; catalog requests will fail")
	}
	client := tmdb.NewClient(cfg.TMDBAPIKey)
	client.SetBaseURL(cfg.TMDBBaseURL)
	client.SetLanguage(cfg.TMDBLanguage)
	a.catalog = service.NewCatalogService(client, cache, cfg.TMDBCacheTTL, log)

	if cache != nil {
		if n, err := a.catalog.PurgeExpired(); err != nil {
			log.Warn("failed to purge catalog cache", zap.Error(err))
		} else if n > 0 {
			log.Info("purged expired catalog entries", zap.Int64("count", n))
		}
	}

	a.mcp = mcp.NewServer(a.store, log)
	return a, nil
}

// Close releases the database and flushes the logger
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
