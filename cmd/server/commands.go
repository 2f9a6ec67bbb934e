package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sequel-tracker/internal/config"
	"sequel-tracker/internal/handler"
	"sequel-tracker/internal/notify"
	"sequel-tracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sequel-tracker",
		Short:        "Personal movie and TV show tracker",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMCPCmd(), newBackupCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error { return serve(cmd.Context(), a) })
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool and resource protocol over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return a.mcp.ServeStdio(ctx, os.Stdin, os.Stdout)
			})
		},
	}
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the SQLite database and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if a.backup == nil {
					return errors.New("backup requires STORE_BACKEND=sqlite")
				}
				path, err := a.backup.Backup()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func withApp(run func(a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(a)
}

func serve(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.logger))

	h := handler.NewHTTPHandler(a.store, a.catalog, a.backup, a.mcp, a.cfg.WebAPIToken, a.logger)
	h.RegisterRoutes(r)

	if a.cfg.WebAPIToken == "" {
		a.logger.Warn("WEB_API_TOKEN not set; /api and /mcp will reject requests")
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var bot *notify.TelegramBot
	if a.cfg.TelegramEnabled() {
		var err error
		bot, err = notify.NewTelegramBot(a.cfg.TelegramBotToken, a.cfg.TelegramChatID, a.mcp, a.logger)
		if err != nil {
			return err
		}
		go bot.Start()
	}

	var digest service.DigestSender
	if bot != nil && a.cfg.TelegramChatID != 0 {
		digest = bot
	}
	var backupper service.Backupper
	if a.backup != nil {
		backupper = a.backup
	}
	scheduler := service.NewScheduler(digest, backupper, a.cfg.DigestTime, a.logger)
	scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	scheduler.Stop()
	if bot != nil {
		bot.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", zap.Error(err))
	}
	return serveErr
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
