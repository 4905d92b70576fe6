package remotesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"video-annotator/internal/annotation"
)

// ErrNoCache is returned by Cache.Load when nothing has been saved yet.
var ErrNoCache = errors.New("no cached annotations")

// Cache keeps the last persisted annotation set for offline start-up.
type Cache interface {
	Load() ([]annotation.Annotation, error)
	Save(recs []annotation.Annotation) error
}

// FileCache stores the set as a JSON file, replaced atomically on save.
type FileCache struct {
	Path string
}

// NewFileCache returns a cache backed by path.
func NewFileCache(path string) *FileCache {
	return &FileCache{Path: path}
}

type cacheFile struct {
	Version     int                     `json:"version"`
	Annotations []annotation.Annotation `json:"annotations"`
}

const cacheVersion = 1

// Load reads the cached set. A missing file yields ErrNoCache.
func (c *FileCache) Load() ([]annotation.Annotation, error) {
	raw, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCache
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	var f cacheFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode cache %s: %w", c.Path, err)
	}
	if f.Version != cacheVersion {
		return nil, fmt.Errorf("cache %s has version %d, want %d", c.Path, f.Version, cacheVersion)
	}
	if f.Annotations == nil {
		f.Annotations = []annotation.Annotation{}
	}
	return f.Annotations, nil
}

// Save writes recs with fsync and atomic rename so a crash never leaves a
// torn file behind.
func (c *FileCache) Save(recs []annotation.Annotation) error {
	if recs == nil {
		recs = []annotation.Annotation{}
	}
	raw, err := json.MarshalIndent(cacheFile{Version: cacheVersion, Annotations: recs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if dir := filepath.Dir(c.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	pending, err := renameio.NewPendingFile(c.Path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending cache file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(raw); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace cache: %w", err)
	}
	return nil
}
