package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_annotation_store.go -package=mocks video-annotator/internal/storage AnnotationStore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"video-annotator/internal/annotation"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ListFilter narrows List. The zero value lists everything.
type ListFilter struct {
	Video string
}

func (f ListFilter) match(a annotation.Annotation) bool {
	return f.Video == "" || a.Video == f.Video
}

// AnnotationStore defines the interface for annotation document storage.
type AnnotationStore interface {
	// List returns records sorted by timestamp, then creation time.
	List(ctx context.Context, filter ListFilter) ([]annotation.Annotation, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*annotation.Annotation, error)
	// Create assigns a fresh id and both timestamps, overwriting whatever
	// the caller put there.
	Create(ctx context.Context, rec *annotation.Annotation) error
	// Update applies patch to the stored record and bumps updatedAt.
	Update(ctx context.Context, id string, patch annotation.Patch) (*annotation.Annotation, error)
	// Delete returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Driver selects an AnnotationStore backend.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverBadger Driver = "badger"
)

// Open opens the backend named by driver at path (a database file for
// sqlite, a directory for badger).
func Open(driver Driver, path string) (AnnotationStore, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLiteStore(path)
	case DriverBadger:
		return OpenBadgerStore(path)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// stamp prepares rec for insertion.
func stamp(rec *annotation.Annotation, now time.Time) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = now
	rec.UpdatedAt = now
}

// clock returns the current time at millisecond precision, the resolution
// the JSON documents round-trip at.
func clock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func sortRecords(list []annotation.Annotation) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp != list[j].Timestamp {
			return list[i].Timestamp < list[j].Timestamp
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
