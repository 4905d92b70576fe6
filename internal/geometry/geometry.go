package geometry

import "math"

// Point is a 2D coordinate. Depending on context it holds pixels relative to
// the video's rendered box or normalized [0,1] units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered size of the video box in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Measured reports whether the box has been laid out.
func (s Size) Measured() bool {
	return s.Width > 0 && s.Height > 0
}

// ToRelative converts a pixel point into normalized units of box.
// It returns the zero point and false when the box is not measured yet;
// callers must treat that as "not ready" rather than a position.
func ToRelative(p Point, box Size) (Point, bool) {
	if !box.Measured() {
		return Point{}, false
	}
	return Point{X: p.X / box.Width, Y: p.Y / box.Height}, true
}

// ToPixel converts a normalized point back into pixels of box. No clamping.
func ToPixel(p Point, box Size) Point {
	return Point{X: p.X * box.Width, Y: p.Y * box.Height}
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance is the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// SegmentDistance returns the distance from p to the segment a-b, using the
// projection parameter clamped to [0,1]. A zero-length segment degrades to
// point distance.
func SegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = Clamp(t, 0, 1)
	return Distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampUnit clamps both coordinates into [0,1] for display.
func ClampUnit(p Point) Point {
	return Point{X: Clamp(p.X, 0, 1), Y: Clamp(p.Y, 0, 1)}
}

// Rect is an axis-aligned box described by its min and max corners.
type Rect struct {
	Min Point
	Max Point
}

// Inset grows (negative) or shrinks (positive) r by dx, dy on every side.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X + dx, Y: r.Min.Y + dy},
		Max: Point{X: r.Max.X - dx, Y: r.Max.Y - dy},
	}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Bounds returns the smallest Rect containing all points.
func Bounds(points ...Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}
