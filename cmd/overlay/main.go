package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"time"

	"video-annotator/internal/annotation"
	"video-annotator/internal/apiclient"
	"video-annotator/internal/config"
	"video-annotator/internal/history"
	"video-annotator/internal/remotesync"
	"video-annotator/internal/render"
)

func main() {
	at := flag.Float64("t", 0, "playback time in seconds")
	width := flag.Int("width", 1280, "frame width in pixels")
	height := flag.Int("height", 720, "frame height in pixels")
	out := flag.String("out", "overlay.png", "output PNG path")
	timeout := flag.Duration("timeout", 10*time.Second, "API request timeout")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	if *at < 0 || *width <= 0 || *height <= 0 {
		log.Fatalf("Invalid frame: t=%v width=%d height=%d", *at, *width, *height)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := history.New()
	adapter := remotesync.New(store, apiclient.NewClient(cfg.APIBaseURL),
		remotesync.WithCache(remotesync.NewFileCache(cfg.CachePath)),
		remotesync.WithVideo(cfg.Video),
		remotesync.WithLogger(slog.Default().With("component", "sync")),
	)

	src, err := adapter.Load(ctx)
	if err != nil {
		// Load already fell back; render whatever it found
		slog.Warn("Remote unavailable, using fallback", "source", src.String(), "error", err)
	}

	visible := annotation.VisibleAt(store.Live(), *at, cfg.WindowPolicy)
	img := render.NewCanvas(render.DefaultOptions()).Draw(render.Frame{
		Width:       *width,
		Height:      *height,
		Annotations: visible,
	})

	if err := writePNG(*out, img); err != nil {
		log.Fatalf("Failed to write overlay: %v", err)
	}
	slog.Info("Overlay written", "path", *out, "t", *at, "visible", len(visible), "source", src.String())
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.EncodePNG(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
