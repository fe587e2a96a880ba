// Package main wires together the page capture service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/api"
	"github.com/igentity/pagecapture/internal/browser"
	"github.com/igentity/pagecapture/internal/config"
	"github.com/igentity/pagecapture/internal/events"
	eventspubsub "github.com/igentity/pagecapture/internal/events/pubsub"
	"github.com/igentity/pagecapture/internal/history"
	"github.com/igentity/pagecapture/internal/logging"
	"github.com/igentity/pagecapture/internal/render"
	"github.com/igentity/pagecapture/internal/telemetry"
	"github.com/igentity/pagecapture/internal/upload"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := browser.NewPool(browser.Config{
		MaxConcurrent: cfg.Browser.MaxConcurrent,
		UserAgent:     cfg.Browser.UserAgent,
	}, logger.Named("browser"))
	if err != nil {
		logger.Fatal("browser pool init failed", zap.Error(err))
	}
	if err := pool.Start(ctx); err != nil {
		logger.Fatal("browser launch failed", zap.Error(err))
	}
	defer pool.Stop()

	pipeline := render.NewPipeline(render.PipelineConfig{
		NavigationTimeout:    cfg.NavigationTimeout(),
		DefaultPostLoadDelay: cfg.PostLoadDelay(),
	}, logger.Named("pipeline"))
	capture := render.NewService(pool, pipeline, render.ServiceConfig{
		OperationTimeout:          cfg.OperationTimeout(),
		CaptureTimeout:            cfg.CaptureTimeout(),
		ExtractionTimeout:         cfg.ExtractionTimeout(),
		DefaultMinWidth:           cfg.Image.MinWidth,
		DefaultMinHeight:          cfg.Image.MinHeight,
		DefaultMaxImages:          cfg.Image.MaxImages,
		DefaultIncludeBackgrounds: cfg.Image.IncludeBackgrounds,
	}, logger.Named("render"))

	uploads, err := newUploadProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	publisher, err := newEventPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("events init failed", zap.Error(err))
	}
	store, err := newHistoryStore(ctx, cfg)
	if err != nil {
		logger.Fatal("history init failed", zap.Error(err))
	}
	defer store.Close()

	apiServer := api.NewServer(capture, uploads, publisher, store, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newUploadProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (upload.Provider, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		return upload.NewGCSProvider(ctx, upload.GCSConfig{
			Bucket:          cfg.Storage.Bucket,
			PublicAccess:    cfg.Storage.PublicAccess,
			SignedURLExpiry: time.Duration(cfg.Storage.SignedURLExpirySec) * time.Second,
		}, logger.Named("gcs"))
	default:
		return upload.NewMemoryProvider(), nil
	}
}

func newEventPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	switch cfg.Events.Provider {
	case "pubsub":
		return eventspubsub.New(ctx, cfg.Events.ProjectID, cfg.Events.TopicName)
	default:
		return events.NewMemoryPublisher(), nil
	}
}

func newHistoryStore(ctx context.Context, cfg config.Config) (history.Store, error) {
	if cfg.History.DSN == "" {
		return history.NoopStore{}, nil
	}
	return history.NewPostgresStore(ctx, history.PostgresConfig{
		DSN:   cfg.History.DSN,
		Table: cfg.History.Table,
	})
}
