package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"video-annotator/internal/annotation"
)

// SQLiteStore keeps each annotation as a JSON document in the annotations
// table. It implements the AnnotationStore interface.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLiteStore opens and migrates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// List returns records sorted by timestamp, then creation time.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]annotation.Annotation, error) {
	query := "SELECT doc FROM annotations"
	var args []any
	if filter.Video != "" {
		query += " WHERE video = ?"
		args = append(args, filter.Video)
	}
	query += " ORDER BY timestamp, created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	list := []annotation.Annotation{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		var rec annotation.Annotation
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode annotation: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotations: %w", err)
	}
	return list, nil
}

// Get returns ErrNotFound for unknown ids.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*annotation.Annotation, error) {
	return getDoc(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc(ctx context.Context, q queryer, id string) (*annotation.Annotation, error) {
	var doc string
	err := q.QueryRowContext(ctx, "SELECT doc FROM annotations WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query annotation: %w", err)
	}

	var rec annotation.Annotation
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode annotation: %w", err)
	}
	return &rec, nil
}

// Create assigns a fresh uuid and both timestamps, then inserts rec.
func (s *SQLiteStore) Create(ctx context.Context, rec *annotation.Annotation) error {
	stamp(rec, clock())
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, video, timestamp, doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Video, rec.Timestamp, string(doc), rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}
	return nil
}

// Update applies patch inside a transaction and bumps updated_at.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch annotation.Patch) (*annotation.Annotation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := getDoc(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(*current)
	next.UpdatedAt = clock()

	doc, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotation: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE annotations SET timestamp = ?, doc = ?, updated_at = ? WHERE id = ?",
		next.Timestamp, string(doc), next.UpdatedAt.UnixNano(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update annotation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit annotation update: %w", err)
	}
	return &next, nil
}

// Delete returns ErrNotFound when no row matched.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM annotations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete annotation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
