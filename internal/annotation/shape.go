package annotation

import (
	"math"
	"strings"

	"video-annotator/internal/geometry"
)

// DefaultMinExtentPx is the smallest pixel extent a drawn shape may have
// before it is discarded as an accidental click.
const DefaultMinExtentPx = 5.0

// NewDraft starts a drag-drawn shape at anchor with zero size. Text is not a
// draggable type; use NewText for it.
func NewDraft(t Type, anchor geometry.Point, timestamp, duration float64, color string) (Annotation, bool) {
	a := Annotation{
		Type:      t,
		Timestamp: timestamp,
		Duration:  duration,
		Color:     color,
	}
	switch t {
	case TypeCircle, TypeRectangle:
		a.X, a.Y = anchor.X, anchor.Y
	case TypeLine:
		a.Points = []geometry.Point{anchor, anchor}
	default:
		return Annotation{}, false
	}
	return a, true
}

// Extend recomputes the geometry of an in-progress draft from its anchor and
// the current pointer position.
func Extend(draft Annotation, anchor, current geometry.Point) Annotation {
	out := draft.Clone()
	switch draft.Type {
	case TypeRectangle:
		out.X = math.Min(anchor.X, current.X)
		out.Y = math.Min(anchor.Y, current.Y)
		out.Width = math.Abs(current.X - anchor.X)
		out.Height = math.Abs(current.Y - anchor.Y)
	case TypeCircle:
		out.X, out.Y = anchor.X, anchor.Y
		out.Radius = geometry.Distance(anchor, current)
	case TypeLine:
		out.Points = []geometry.Point{anchor, current}
	}
	return out
}

// NewText builds a text annotation from a submitted string. Content that is
// blank after trimming yields false.
func NewText(anchor geometry.Point, text string, timestamp, duration float64, color string) (Annotation, bool) {
	if strings.TrimSpace(text) == "" {
		return Annotation{}, false
	}
	return Annotation{
		Type:      TypeText,
		X:         anchor.X,
		Y:         anchor.Y,
		Text:      text,
		Timestamp: timestamp,
		Duration:  duration,
		Color:     color,
	}, true
}

// Translate moves the whole shape by delta (normalized units).
func Translate(a Annotation, delta geometry.Point) Annotation {
	out := a.Clone()
	if a.Type == TypeLine {
		for i := range out.Points {
			out.Points[i] = out.Points[i].Add(delta)
		}
		return out
	}
	out.X += delta.X
	out.Y += delta.Y
	return out
}

// PixelExtent returns the largest pixel dimension of the shape's bounding
// box inside box. Text has no drawn extent and reports +Inf.
func PixelExtent(a Annotation, box geometry.Size) float64 {
	switch a.Type {
	case TypeRectangle:
		return math.Max(a.Width*box.Width, a.Height*box.Height)
	case TypeCircle:
		return 2 * a.Radius * math.Max(box.Width, box.Height)
	case TypeLine:
		if len(a.Points) != 2 {
			return 0
		}
		return math.Max(
			math.Abs(a.Points[1].X-a.Points[0].X)*box.Width,
			math.Abs(a.Points[1].Y-a.Points[0].Y)*box.Height,
		)
	}
	return math.Inf(1)
}

// IsDegenerate reports whether a completed drag-drawn shape is too small to
// keep. An unmeasured box makes every drawn shape degenerate.
func IsDegenerate(a Annotation, box geometry.Size, minPx float64) bool {
	if a.Type == TypeText {
		return false
	}
	if !box.Measured() {
		return true
	}
	return PixelExtent(a, box) < minPx
}
