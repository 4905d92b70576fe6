package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// VideoConfig describes the video the overlay is attached to.
type VideoConfig struct {
	Src     string `yaml:"src" json:"src"`
	Title   string `yaml:"title,omitempty" json:"title,omitempty"`
	VideoID string `yaml:"videoId,omitempty" json:"videoId,omitempty"`
}

// LoadVideoFile parses a YAML video config. A file without src is rejected.
func LoadVideoFile(path string) (VideoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VideoConfig{}, fmt.Errorf("read video config: %w", err)
	}
	var v VideoConfig
	if err := yaml.Unmarshal(data, &v); err != nil {
		return VideoConfig{}, fmt.Errorf("parse video config: %w", err)
	}
	v.Src = strings.TrimSpace(v.Src)
	if v.Src == "" {
		return VideoConfig{}, errors.New("video config: src is required")
	}
	return v, nil
}

// VideoHolder serves the current video config and reloads it when the file
// changes. A reload that fails keeps the last good value.
type VideoHolder struct {
	mu      sync.RWMutex
	current VideoConfig
	path    string
	logger  *slog.Logger

	debounce time.Duration
	done     chan struct{}
}

// NewVideoHolder loads path when set, otherwise serves fallback.
func NewVideoHolder(path string, fallback VideoConfig) (*VideoHolder, error) {
	h := &VideoHolder{
		current:  fallback,
		path:     path,
		logger:   slog.Default().With("component", "video_config"),
		debounce: 250 * time.Millisecond,
	}
	if path == "" {
		return h, nil
	}
	v, err := LoadVideoFile(path)
	if err != nil {
		return nil, err
	}
	h.current = v
	return h, nil
}

// Current returns the video config (thread-safe read).
func (h *VideoHolder) Current() VideoConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the file. On failure the previous value stays in place.
func (h *VideoHolder) Reload() error {
	if h.path == "" {
		return nil
	}
	v, err := LoadVideoFile(h.path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	old := h.current
	h.current = v
	h.mu.Unlock()

	if old != v {
		h.logger.Info("video config reloaded", "src", v.Src, "video_id", v.VideoID)
	}
	return nil
}

// StartWatcher watches the config file until ctx is done. It watches the
// parent directory so editors that replace the file atomically are seen.
// Without a path this is a no-op.
func (h *VideoHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch video config: %w", err)
	}

	h.done = make(chan struct{})
	go h.watchLoop(ctx, watcher)
	h.logger.Info("watching video config", "path", h.path)
	return nil
}

// Wait blocks until a started watcher has exited.
func (h *VideoHolder) Wait() {
	if h.done != nil {
		<-h.done
	}
}

func (h *VideoHolder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(h.done)
	defer func() {
		_ = watcher.Close()
	}()

	target := filepath.Clean(h.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Debounce: reset timer on each event
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(h.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := h.Reload(); err != nil {
				h.logger.Warn("video config reload failed, keeping previous value", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error("video config watcher error", "error", err)
		}
	}
}
