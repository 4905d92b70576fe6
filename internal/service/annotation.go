package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_annotation_service.go -package=mocks video-annotator/internal/service AnnotationService

import (
	"context"
	"errors"
	"fmt"
	"math"

	"video-annotator/internal/annotation"
	"video-annotator/internal/contextutil"
	"video-annotator/internal/storage"
)

// Defaults fill in fields a client left out on create.
type Defaults struct {
	Duration float64
	Color    string
	Video    string
}

// DefaultDefaults returns the stock defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Duration: annotation.DefaultDuration,
		Color:    annotation.DefaultColor,
		Video:    annotation.DefaultVideo,
	}
}

// AnnotationService is the business layer over the document store.
type AnnotationService interface {
	// List returns every annotation of video ("" for all), ordered by timestamp.
	List(ctx context.Context, video string) ([]annotation.Annotation, error)
	Get(ctx context.Context, id string) (annotation.Annotation, error)
	// Create applies defaults, validates and persists rec. Any id on rec is
	// ignored.
	Create(ctx context.Context, rec annotation.Annotation) (annotation.Annotation, error)
	// Update applies patch to the stored record and validates the result
	// before persisting it.
	Update(ctx context.Context, id string, patch annotation.Patch) (annotation.Annotation, error)
	Delete(ctx context.Context, id string) error
	// VisibleAt returns the annotations of video whose window contains t.
	VisibleAt(ctx context.Context, video string, t float64) ([]annotation.Annotation, error)
	Ping(ctx context.Context) error
}

// annotationService implements AnnotationService.
type annotationService struct {
	store    storage.AnnotationStore
	defaults Defaults
	policy   annotation.WindowPolicy
}

// NewAnnotationService creates a new AnnotationService.
func NewAnnotationService(store storage.AnnotationStore, defaults Defaults, policy annotation.WindowPolicy) AnnotationService {
	return &annotationService{
		store:    store,
		defaults: defaults,
		policy:   policy,
	}
}

func (s *annotationService) List(ctx context.Context, video string) ([]annotation.Annotation, error) {
	list, err := s.store.List(ctx, storage.ListFilter{Video: video})
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to list annotations", "video", video, "error", err)
		return nil, storeError(err, "failed to list annotations")
	}
	return list, nil
}

func (s *annotationService) Get(ctx context.Context, id string) (annotation.Annotation, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return annotation.Annotation{}, storeError(err, fmt.Sprintf("failed to get annotation %s", id))
	}
	return *rec, nil
}

func (s *annotationService) Create(ctx context.Context, rec annotation.Annotation) (annotation.Annotation, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rec.ID = ""
	if rec.Duration == 0 {
		rec.Duration = s.defaults.Duration
	}
	if rec.Color == "" {
		rec.Color = s.defaults.Color
	}
	if rec.Video == "" {
		rec.Video = s.defaults.Video
	}

	if err := annotation.Validate(rec); err != nil {
		logger.WarnContext(ctx, "rejected annotation", "type", rec.Type, "error", err)
		return annotation.Annotation{}, validationError(err)
	}

	if err := s.store.Create(ctx, &rec); err != nil {
		logger.ErrorContext(ctx, "failed to create annotation", "error", err)
		return annotation.Annotation{}, storeError(err, "failed to create annotation")
	}

	logger.InfoContext(ctx, "annotation created", "id", rec.ID, "type", rec.Type, "timestamp", rec.Timestamp)
	return rec, nil
}

func (s *annotationService) Update(ctx context.Context, id string, patch annotation.Patch) (annotation.Annotation, error) {
	logger := contextutil.LoggerFromContext(ctx)

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return annotation.Annotation{}, storeError(err, fmt.Sprintf("failed to get annotation %s", id))
	}
	if patch.Empty() {
		return *current, nil
	}

	if err := annotation.Validate(patch.Apply(*current)); err != nil {
		logger.WarnContext(ctx, "rejected annotation update", "id", id, "error", err)
		return annotation.Annotation{}, validationError(err)
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		logger.ErrorContext(ctx, "failed to update annotation", "id", id, "error", err)
		return annotation.Annotation{}, storeError(err, fmt.Sprintf("failed to update annotation %s", id))
	}

	logger.InfoContext(ctx, "annotation updated", "id", id)
	return *updated, nil
}

func (s *annotationService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err, fmt.Sprintf("failed to delete annotation %s", id))
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "annotation deleted", "id", id)
	return nil
}

func (s *annotationService) VisibleAt(ctx context.Context, video string, t float64) ([]annotation.Annotation, error) {
	if math.IsNaN(t) || t < 0 {
		return nil, &ValidationError{Field: "t", Message: "must be a time >= 0"}
	}
	list, err := s.List(ctx, video)
	if err != nil {
		return nil, err
	}
	return annotation.VisibleAt(list, t, s.policy), nil
}

func (s *annotationService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return storeError(err, "store unavailable")
	}
	return nil
}

// storeError maps storage failures onto the service sentinels.
func storeError(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return WrapError(ErrNotFound, msg)
	}
	return WrapError(fmt.Errorf("%w: %w", ErrStorage, err), msg)
}
