// Package hittest decides which annotation, if any, lies under a pointer.
//
// All tests run in normalized units. Pixel tolerances are converted once
// per layout with ForBox, so a Tester must be rebuilt whenever the video box
// changes size.
package hittest

import (
	"math"
	"unicode/utf8"

	"video-annotator/internal/annotation"
	"video-annotator/internal/geometry"
)

// PixelOptions are the selection tolerances in screen pixels.
type PixelOptions struct {
	// PaddingPx grows every shape's hit area.
	PaddingPx float64
	// FontSizePx is the font size text annotations are rendered at.
	FontSizePx float64
	// GlyphWidthEm approximates the average glyph advance as a fraction of
	// the font size.
	GlyphWidthEm float64
	// LineHeightEm is the text line height as a fraction of the font size.
	LineHeightEm float64
}

// DefaultPixelOptions mirrors the renderer's text metrics.
func DefaultPixelOptions() PixelOptions {
	return PixelOptions{
		PaddingPx:    5,
		FontSizePx:   16,
		GlyphWidthEm: 0.6,
		LineHeightEm: 1.2,
	}
}

// Tester performs point-in-shape tests in normalized units.
type Tester struct {
	// PadX and PadY pad boxes per axis.
	PadX, PadY float64
	// Pad is the scalar tolerance used for radial and segment distances.
	Pad float64
	// GlyphWidth and LineHeight size the approximate text box.
	GlyphWidth, LineHeight float64
}

// ForBox converts pixel options into a Tester for the given layout. The
// second result is false when the box has not been measured.
func ForBox(box geometry.Size, opts PixelOptions) (Tester, bool) {
	if !box.Measured() {
		return Tester{}, false
	}
	return Tester{
		PadX:       opts.PaddingPx / box.Width,
		PadY:       opts.PaddingPx / box.Height,
		Pad:        opts.PaddingPx / math.Min(box.Width, box.Height),
		GlyphWidth: opts.FontSizePx * opts.GlyphWidthEm / box.Width,
		LineHeight: opts.FontSizePx * opts.LineHeightEm / box.Height,
	}, true
}

// Uniform returns a Tester with the same normalized padding on every axis
// and no text metrics.
func Uniform(pad float64) Tester {
	return Tester{PadX: pad, PadY: pad, Pad: pad}
}

// TextBox approximates the normalized box a text annotation covers.
func (t Tester) TextBox(a annotation.Annotation) geometry.Rect {
	w := float64(utf8.RuneCountInString(a.Text)) * t.GlyphWidth
	return geometry.Rect{
		Min: geometry.Point{X: a.X, Y: a.Y},
		Max: geometry.Point{X: a.X + w, Y: a.Y + t.LineHeight},
	}
}

// Hit reports whether p selects a.
func (t Tester) Hit(p geometry.Point, a annotation.Annotation) bool {
	switch a.Type {
	case annotation.TypeRectangle:
		box := geometry.Rect{
			Min: geometry.Point{X: a.X, Y: a.Y},
			Max: geometry.Point{X: a.X + a.Width, Y: a.Y + a.Height},
		}
		return box.Inset(-t.PadX, -t.PadY).Contains(p)
	case annotation.TypeText:
		return t.TextBox(a).Inset(-t.PadX, -t.PadY).Contains(p)
	case annotation.TypeCircle:
		return geometry.Distance(p, geometry.Point{X: a.X, Y: a.Y}) <= a.Radius+t.Pad
	case annotation.TypeLine:
		if len(a.Points) != 2 {
			return false
		}
		return geometry.SegmentDistance(p, a.Points[0], a.Points[1]) <= t.Pad
	}
	return false
}

// Pick returns the index of the topmost annotation under p. Annotations later
// in list are drawn on top and win on overlap. eligible filters candidates by
// index; nil means all are eligible. It returns -1 on a miss.
func (t Tester) Pick(list []annotation.Annotation, p geometry.Point, eligible func(i int) bool) int {
	for i := len(list) - 1; i >= 0; i-- {
		if eligible != nil && !eligible(i) {
			continue
		}
		if t.Hit(p, list[i]) {
			return i
		}
	}
	return -1
}

// Eligibility builds the candidate filter used for selection: annotations
// visible at time now under policy, plus the selected one regardless of its
// window.
func Eligibility(list []annotation.Annotation, now float64, policy annotation.WindowPolicy, selectedID string) func(i int) bool {
	mask := annotation.VisibleMask(list, now, policy)
	return func(i int) bool {
		return mask[i] || (selectedID != "" && list[i].ID == selectedID)
	}
}
