package annotation

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"video-annotator/internal/geometry"
)

// Type identifies the shape variant of an annotation.
type Type string

const (
	TypeCircle    Type = "circle"
	TypeRectangle Type = "rectangle"
	TypeLine      Type = "line"
	TypeText      Type = "text"
)

// Valid reports whether t is one of the four known variants.
func (t Type) Valid() bool {
	switch t {
	case TypeCircle, TypeRectangle, TypeLine, TypeText:
		return true
	}
	return false
}

const (
	// DefaultDuration is how long an annotation stays visible, in seconds.
	DefaultDuration = 3.0
	// DefaultColor is the stroke color used when none is given.
	DefaultColor = "#FF5722"
	// DefaultVideo groups annotations when no video id is supplied.
	DefaultVideo = "default"
)

// Annotation is a shape pinned to a playback window. All geometry is
// normalized to [0,1] of the rendered video box:
//
//	circle:    X, Y (center), Radius
//	rectangle: X, Y (top-left), Width, Height
//	line:      Points[0], Points[1]
//	text:      X, Y (anchor), Text
//
// swagger:model Annotation
type Annotation struct {
	ID        string           `json:"id"`
	Type      Type             `json:"type"`
	Video     string           `json:"video,omitempty"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Radius    float64          `json:"radius,omitempty"`
	Width     float64          `json:"width,omitempty"`
	Height    float64          `json:"height,omitempty"`
	Points    []geometry.Point `json:"points,omitempty"`
	Text      string           `json:"text,omitempty"`
	Timestamp float64          `json:"timestamp"`
	Duration  float64          `json:"duration"`
	Color     string           `json:"color,omitempty"`
	CreatedAt time.Time        `json:"createdAt,omitzero"`
	UpdatedAt time.Time        `json:"updatedAt,omitzero"`
}

// End is the playback time at which the fixed window closes.
func (a Annotation) End() float64 {
	return a.Timestamp + a.Duration
}

// ActiveAt reports whether t falls inside [Timestamp, Timestamp+Duration].
func (a Annotation) ActiveAt(t float64) bool {
	return a.Timestamp <= t && t <= a.End()
}

// Clone returns a deep copy; Points is the only shared backing array.
func (a Annotation) Clone() Annotation {
	if a.Points != nil {
		a.Points = append([]geometry.Point(nil), a.Points...)
	}
	return a
}

// Equal compares two records field by field.
func (a Annotation) Equal(b Annotation) bool {
	if len(a.Points) != len(b.Points) {
		return false
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return false
		}
	}
	a.Points, b.Points = nil, nil
	return a.ID == b.ID && a.Type == b.Type && a.Video == b.Video &&
		a.X == b.X && a.Y == b.Y && a.Radius == b.Radius &&
		a.Width == b.Width && a.Height == b.Height && a.Text == b.Text &&
		a.Timestamp == b.Timestamp && a.Duration == b.Duration &&
		a.Color == b.Color && a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid annotation")

// FieldError names the offending field of an invalid record.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

// Validate enforces the record invariants: a known type, exactly the
// geometry of that type populated, timestamp >= 0 and duration > 0.
// Coordinates outside [0,1] are accepted.
func Validate(a Annotation) error {
	if !a.Type.Valid() {
		return invalid("type", fmt.Sprintf("unknown type %q", a.Type))
	}
	if math.IsNaN(a.Timestamp) || a.Timestamp < 0 {
		return invalid("timestamp", "must be >= 0")
	}
	if math.IsNaN(a.Duration) || a.Duration <= 0 {
		return invalid("duration", "must be > 0")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"x", a.X}, {"y", a.Y}, {"radius", a.Radius}, {"width", a.Width}, {"height", a.Height}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid(f.name, "must be a finite number")
		}
	}

	hasBox := a.Width != 0 || a.Height != 0
	switch a.Type {
	case TypeCircle:
		if a.Radius < 0 {
			return invalid("radius", "must be >= 0")
		}
		if hasBox || len(a.Points) > 0 || a.Text != "" {
			return invalid("type", "circle carries geometry of another shape")
		}
	case TypeRectangle:
		if a.Width < 0 || a.Height < 0 {
			return invalid("width", "width and height must be >= 0")
		}
		if a.Radius != 0 || len(a.Points) > 0 || a.Text != "" {
			return invalid("type", "rectangle carries geometry of another shape")
		}
	case TypeLine:
		if len(a.Points) != 2 {
			return invalid("points", "line needs exactly two points")
		}
		if a.Radius != 0 || hasBox || a.Text != "" {
			return invalid("type", "line carries geometry of another shape")
		}
	case TypeText:
		if a.Text == "" {
			return invalid("text", "cannot be empty")
		}
		if a.Radius != 0 || hasBox || len(a.Points) > 0 {
			return invalid("type", "text carries geometry of another shape")
		}
	}
	return nil
}

// Patch is a partial update. Nil fields are left unchanged.
//
// swagger:model AnnotationPatch
type Patch struct {
	X         *float64         `json:"x,omitempty"`
	Y         *float64         `json:"y,omitempty"`
	Radius    *float64         `json:"radius,omitempty"`
	Width     *float64         `json:"width,omitempty"`
	Height    *float64         `json:"height,omitempty"`
	Points    []geometry.Point `json:"points,omitempty"`
	Text      *string          `json:"text,omitempty"`
	Timestamp *float64         `json:"timestamp,omitempty"`
	Duration  *float64         `json:"duration,omitempty"`
	Color     *string          `json:"color,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Radius == nil && p.Width == nil &&
		p.Height == nil && p.Points == nil && p.Text == nil &&
		p.Timestamp == nil && p.Duration == nil && p.Color == nil
}

// Apply returns a copy of a with the patch applied. ID and Type never change.
func (p Patch) Apply(a Annotation) Annotation {
	out := a.Clone()
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Radius != nil {
		out.Radius = *p.Radius
	}
	if p.Width != nil {
		out.Width = *p.Width
	}
	if p.Height != nil {
		out.Height = *p.Height
	}
	if p.Points != nil {
		out.Points = append([]geometry.Point(nil), p.Points...)
	}
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Timestamp != nil {
		out.Timestamp = *p.Timestamp
	}
	if p.Duration != nil {
		out.Duration = *p.Duration
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	return out
}

// Revert undoes p on a field by field: every field p sets that a still
// holds at the patched value is restored from before. Fields changed since
// are left alone.
func (p Patch) Revert(a, before Annotation) Annotation {
	out := a.Clone()
	revertField(p.X, &out.X, before.X)
	revertField(p.Y, &out.Y, before.Y)
	revertField(p.Radius, &out.Radius, before.Radius)
	revertField(p.Width, &out.Width, before.Width)
	revertField(p.Height, &out.Height, before.Height)
	revertField(p.Text, &out.Text, before.Text)
	revertField(p.Timestamp, &out.Timestamp, before.Timestamp)
	revertField(p.Duration, &out.Duration, before.Duration)
	revertField(p.Color, &out.Color, before.Color)
	if p.Points != nil && slices.Equal(out.Points, p.Points) {
		out.Points = append([]geometry.Point(nil), before.Points...)
	}
	return out
}

func revertField[T comparable](patched *T, field *T, before T) {
	if patched != nil && *field == *patched {
		*field = before
	}
}

// GeometryPatch builds a patch that carries the geometry of a, as used when
// committing a drag.
func GeometryPatch(a Annotation) Patch {
	var p Patch
	switch a.Type {
	case TypeLine:
		p.Points = append([]geometry.Point(nil), a.Points...)
	default:
		x, y := a.X, a.Y
		p.X, p.Y = &x, &y
	}
	return p
}

// FullPatch builds a patch that overwrites every mutable field with the
// values of a.
func FullPatch(a Annotation) Patch {
	p := Patch{
		X:         ptr(a.X),
		Y:         ptr(a.Y),
		Timestamp: ptr(a.Timestamp),
		Duration:  ptr(a.Duration),
		Color:     ptr(a.Color),
	}
	switch a.Type {
	case TypeCircle:
		p.Radius = ptr(a.Radius)
	case TypeRectangle:
		p.Width, p.Height = ptr(a.Width), ptr(a.Height)
	case TypeLine:
		p.Points = append([]geometry.Point(nil), a.Points...)
	case TypeText:
		p.Text = ptr(a.Text)
	}
	return p
}

func ptr[T any](v T) *T {
	return &v
}
