package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsdesk/app/api"
	"github.com/lysyi3m/newsdesk/app/cache"
	"github.com/lysyi3m/newsdesk/app/cfg"
	"github.com/lysyi3m/newsdesk/app/database"
	"github.com/lysyi3m/newsdesk/app/feed"
	"github.com/lysyi3m/newsdesk/app/pipeline"
	"github.com/lysyi3m/newsdesk/app/session"
	"github.com/lysyi3m/newsdesk/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	slog.SetDefault(newLogger(appCfg.Debug))

	if err := run(appCfg); err != nil {
		slog.Error("Newsdesk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Newsdesk server", "version", appCfg.Version, "display_tz", appCfg.Location.String())

	ctx := context.Background()

	feedCache, err := newCache(ctx, appCfg.RedisURL)
	if err != nil {
		return err
	}
	defer feedCache.Close()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	bookmarkRepo := database.NewBookmarkRepository(db)

	channelCache := feed.NewChannelCache(appCfg.ChannelsDir)
	if err := channelCache.Run(); err != nil {
		return fmt.Errorf("failed to load channel configurations: %w", err)
	}
	slog.Info("Channel configurations loaded", "count", channelCache.GetChannelCount(), "dir", appCfg.ChannelsDir)

	// The client timeout bounds every fetch; channel timeouts can only shorten it.
	httpClient := &http.Client{Timeout: appCfg.GetFetchTimeout()}
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), feedCache, appCfg.GetCacheTTL(), appCfg.UserAgent, appCfg.FetchWorkers)

	refreshPipeline := pipeline.New(
		channelCache,
		fetcher,
		feed.NewNormalizer(appCfg.Location),
		feed.NewClassifier(),
		feed.NewFilterer(),
		appCfg.GetRefreshInterval(),
	)

	sessions := session.NewStore(appCfg.GetLookback(), appCfg.GetSessionTTL())

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(channelCache, sessions, refreshPipeline, fetcher,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	if appCfg.ExtractBatch > 0 {
		scheduler.EnableContentExtraction(tasks.ContentExtraction{
			Store:      bookmarkRepo,
			HTTPClient: httpClient,
			Extractor:  feed.NewContentExtractor(),
			UserAgent:  appCfg.UserAgent,
			Timeout:    appCfg.GetFetchTimeout(),
			BatchSize:  appCfg.ExtractBatch,
		})
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(channelCache, sessions, refreshPipeline, bookmarkRepo, appCfg.Location)
	if !appCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "auth_required", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}

func newCache(ctx context.Context, redisURL string) (cache.Cache, error) {
	if redisURL == "" {
		slog.Info("Using in-process feed cache")
		return cache.NewMemory(), nil
	}

	redisCache, err := cache.NewRedis(ctx, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("Using redis feed cache")
	return redisCache, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
