package hittest

import (
	"testing"

	"video-annotator/internal/annotation"
	"video-annotator/internal/geometry"
)

func rect(id string, x, y, w, h float64) annotation.Annotation {
	return annotation.Annotation{ID: id, Type: annotation.TypeRectangle, X: x, Y: y, Width: w, Height: h, Duration: 3}
}

func circle(id string, x, y, r float64) annotation.Annotation {
	return annotation.Annotation{ID: id, Type: annotation.TypeCircle, X: x, Y: y, Radius: r, Duration: 3}
}

func TestHit_RectangleCenterAlwaysHits(t *testing.T) {
	a := rect("r", 0.2, 0.3, 0.4, 0.1)
	center := geometry.Point{X: 0.4, Y: 0.35}
	for _, pad := range []float64{0, 0.001, 0.05, 1} {
		if !Uniform(pad).Hit(center, a) {
			t.Errorf("Hit(center) with padding %v = false", pad)
		}
	}

	degenerate := rect("z", 0.5, 0.5, 0, 0)
	if !Uniform(0).Hit(geometry.Point{X: 0.5, Y: 0.5}, degenerate) {
		t.Error("Hit() zero-size rectangle center should hit")
	}
}

func TestHit_Rectangle(t *testing.T) {
	a := rect("r", 0.2, 0.2, 0.3, 0.2)
	tests := []struct {
		name string
		p    geometry.Point
		pad  float64
		want bool
	}{
		{name: "inside", p: geometry.Point{X: 0.3, Y: 0.3}, pad: 0, want: true},
		{name: "edge", p: geometry.Point{X: 0.5, Y: 0.4}, pad: 0, want: true},
		{name: "just outside without padding", p: geometry.Point{X: 0.51, Y: 0.3}, pad: 0, want: false},
		{name: "just outside within padding", p: geometry.Point{X: 0.51, Y: 0.3}, pad: 0.02, want: true},
		{name: "far away", p: geometry.Point{X: 0.9, Y: 0.9}, pad: 0.02, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Uniform(tt.pad).Hit(tt.p, a); got != tt.want {
				t.Errorf("Hit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHit_CircleBeyondRadiusPlusPaddingMisses(t *testing.T) {
	a := circle("c", 0.5, 0.5, 0.1)
	for _, pad := range []float64{0, 0.01, 0.1} {
		tester := Uniform(pad)
		limit := a.Radius + pad
		far := geometry.Point{X: 0.5 + limit + 1e-6, Y: 0.5}
		if tester.Hit(far, a) {
			t.Errorf("Hit() at distance %v with padding %v should miss", limit+1e-6, pad)
		}
		diag := geometry.Point{X: 0.5 + (limit+0.01)*0.6, Y: 0.5 + (limit+0.01)*0.8}
		if tester.Hit(diag, a) {
			t.Errorf("Hit() diagonal beyond radius+padding %v should miss", pad)
		}
		near := geometry.Point{X: 0.5, Y: 0.5 + limit*0.99}
		if !tester.Hit(near, a) {
			t.Errorf("Hit() within radius+padding %v should hit", pad)
		}
	}
}

func TestHit_Line(t *testing.T) {
	a := annotation.Annotation{
		ID:     "l",
		Type:   annotation.TypeLine,
		Points: []geometry.Point{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.5}},
	}
	tester := Uniform(0.01)

	tests := []struct {
		name string
		p    geometry.Point
		want bool
	}{
		{name: "on the segment", p: geometry.Point{X: 0.3, Y: 0.3}, want: true},
		{name: "close to the segment", p: geometry.Point{X: 0.305, Y: 0.3}, want: true},
		{name: "on extension beyond endpoint", p: geometry.Point{X: 0.7, Y: 0.7}, want: false},
		{name: "off the segment", p: geometry.Point{X: 0.3, Y: 0.4}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tester.Hit(tt.p, a); got != tt.want {
				t.Errorf("Hit() = %v, want %v", got, tt.want)
			}
		})
	}

	broken := annotation.Annotation{Type: annotation.TypeLine, Points: []geometry.Point{{}}}
	if tester.Hit(geometry.Point{}, broken) {
		t.Error("Hit() line without two points should miss")
	}
}

func TestHit_TextUsesApproximateBox(t *testing.T) {
	box := geometry.Size{Width: 1000, Height: 500}
	tester, ok := ForBox(box, DefaultPixelOptions())
	if !ok {
		t.Fatal("ForBox() not ok")
	}
	// "hello" at 16px: 5 * 9.6px = 48px wide, 19.2px tall.
	a := annotation.Annotation{Type: annotation.TypeText, X: 0.1, Y: 0.1, Text: "hello"}

	inside, _ := geometry.ToRelative(geometry.Point{X: 100 + 40, Y: 50 + 10}, box)
	if !tester.Hit(inside, a) {
		t.Error("Hit() inside the text box should hit")
	}
	padded, _ := geometry.ToRelative(geometry.Point{X: 100 + 48 + 4, Y: 50 + 10}, box)
	if !tester.Hit(padded, a) {
		t.Error("Hit() within padding of the text box should hit")
	}
	outside, _ := geometry.ToRelative(geometry.Point{X: 100 + 48 + 20, Y: 50 + 10}, box)
	if tester.Hit(outside, a) {
		t.Error("Hit() past the text box should miss")
	}
}

func TestForBox_Unmeasured(t *testing.T) {
	if _, ok := ForBox(geometry.Size{Width: 640}, DefaultPixelOptions()); ok {
		t.Error("ForBox() should report not ready for unmeasured box")
	}
}

func TestPick_TopmostWins(t *testing.T) {
	list := []annotation.Annotation{
		rect("bottom", 0.1, 0.1, 0.5, 0.5),
		rect("top", 0.2, 0.2, 0.2, 0.2),
	}
	tester := Uniform(0)

	if i := tester.Pick(list, geometry.Point{X: 0.3, Y: 0.3}, nil); i != 1 {
		t.Errorf("Pick() overlap = %d, want 1", i)
	}
	if i := tester.Pick(list, geometry.Point{X: 0.15, Y: 0.15}, nil); i != 0 {
		t.Errorf("Pick() bottom only = %d, want 0", i)
	}
	if i := tester.Pick(list, geometry.Point{X: 0.9, Y: 0.9}, nil); i != -1 {
		t.Errorf("Pick() miss = %d, want -1", i)
	}
}

func TestEligibility(t *testing.T) {
	list := []annotation.Annotation{
		{ID: "early", Type: annotation.TypeRectangle, X: 0, Y: 0, Width: 1, Height: 1, Timestamp: 0, Duration: 1},
		{ID: "late", Type: annotation.TypeRectangle, X: 0, Y: 0, Width: 1, Height: 1, Timestamp: 10, Duration: 1},
	}
	tester := Uniform(0)
	p := geometry.Point{X: 0.5, Y: 0.5}

	if i := tester.Pick(list, p, Eligibility(list, 0.5, annotation.WindowFixed, "")); i != 0 {
		t.Errorf("Pick() at t=0.5 = %d, want 0", i)
	}
	if i := tester.Pick(list, p, Eligibility(list, 5, annotation.WindowFixed, "")); i != -1 {
		t.Errorf("Pick() at t=5 = %d, want -1", i)
	}
	if i := tester.Pick(list, p, Eligibility(list, 5, annotation.WindowFixed, "late")); i != 1 {
		t.Errorf("Pick() selected off-window = %d, want 1", i)
	}
}
