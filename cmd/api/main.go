package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"video-annotator/internal/config"
	"video-annotator/internal/http"
	"video-annotator/internal/service"
	"video-annotator/internal/storage"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API stores time-anchored shape annotations for a video and renders them as overlays.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Video Annotator API
//   description: |
//     CRUD API for circle, rectangle, line and text annotations placed on a video timeline.
//     Coordinates are normalized to the displayed video box; times are in seconds.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Open the annotation store
	storePath := cfg.DBPath
	if storage.Driver(cfg.StoreDriver) == storage.DriverBadger {
		storePath = cfg.BadgerPath
	}
	store, err := storage.Open(storage.Driver(cfg.StoreDriver), storePath)
	if err != nil {
		log.Fatalf("Failed to open annotation store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close annotation store", "error", err)
		}
	}()
	slog.Info("Annotation store initialized", "driver", cfg.StoreDriver, "path", storePath)

	annotationService := service.NewAnnotationService(store, service.Defaults{
		Duration: cfg.DefaultDuration,
		Color:    cfg.DefaultColor,
		Video:    service.DefaultDefaults().Video,
	}, cfg.WindowPolicy)

	video, err := config.NewVideoHolder(cfg.VideoConfigPath, config.VideoConfig{Src: cfg.VideoSrc})
	if err != nil {
		log.Fatalf("Failed to load video config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.VideoConfigPath != "" {
		if err := video.StartWatcher(ctx); err != nil {
			log.Fatalf("Failed to watch video config: %v", err)
		}
		slog.Info("Watching video config", "path", cfg.VideoConfigPath)
	}

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		Service:            annotationService,
		Video:              video,
		Policy:             cfg.WindowPolicy,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting API server", "addr", srv.Addr, "window_policy", cfg.WindowPolicy.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("API server failed", "error", err)
		video.Wait()
		os.Exit(1)
	}
	video.Wait()
	slog.Info("API server stopped")
}
