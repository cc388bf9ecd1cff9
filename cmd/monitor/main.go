package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/broadcast"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/config"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/database"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/email"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/formatter"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/monitor"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/pipeline"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/secret"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/server"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting netcodigo monitor")

	if err := run(cfg, logger); err != nil {
		logger.Error("monitor stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("monitor stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database, schema and settings row included
	db, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database ready", "path", cfg.DatabasePath)

	cipher, err := secret.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	if !cipher.Enabled() {
		logger.Warn("ENCRYPTION_KEY not set, mailbox passwords are stored in clear")
	}

	// Result store
	var results store.Store
	switch cfg.StoreBackend {
	case "redis":
		rdb, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		results = rdb
		logger.Info("using redis result store", "addr", cfg.RedisAddr)
	default:
		results = store.NewMemory()
	}

	// Sinks
	hub := broadcast.NewHub(results, cfg.WSAllowedOrigins, logger)
	sinks := []pipeline.Sink{hub}

	if cfg.TelegramEnabled() {
		notifier, err := telegram.NewNotifier(telegram.NotifierDeps{
			Config:    cfg,
			Store:     results,
			Formatter: formatter.NewTelegramFormatter(time.Local),
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, notifier)
		go notifier.Start(ctx)
		logger.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
	}

	dispatcher := pipeline.NewDispatcher(pipeline.New(), results, logger, sinks...)
	go dispatcher.Run(ctx)

	emailManager := email.NewManager(cfg, dispatcher, logger)

	mon := monitor.New(monitor.Deps{
		Config:  cfg,
		Repo:    db,
		Cipher:  cipher,
		Watcher: emailManager,
		Logger:  logger,
	})
	if err := mon.Start(ctx); err != nil {
		return err
	}

	if mon.Settings().MailgunSigningKey == "" {
		logger.Warn("MAILGUN_SIGNING_KEY not set, webhook signatures are not verified")
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Deps{
		Monitor:   mon,
		Store:     results,
		Submitter: dispatcher,
		Realtime:  hub,
		Logger:    logger,
	})
	srv := router.Server(":" + cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err = <-errCh:
		logger.Error("http server failed", "error", err)
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shut down http server", "error", err)
	}
	if err := mon.Shutdown(shutdownCtx); err != nil {
		logger.Warn("some mailboxes did not close cleanly", "error", err)
	}

	return err
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
