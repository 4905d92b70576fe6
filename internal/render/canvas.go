// Package render rasterizes the annotations of one playback instant into a
// transparent overlay image the size of the video box.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"video-annotator/internal/annotation"
	"video-annotator/internal/geometry"
)

// Frame is everything needed to paint one overlay.
type Frame struct {
	Width, Height int
	// Annotations are drawn in order, later ones on top.
	Annotations []annotation.Annotation
	// Selected gets a highlight box when it is among Annotations.
	Selected string
	// Draft is the shape currently being drawn, if any.
	Draft *annotation.Annotation
}

// Box returns the frame size as a geometry.Size.
func (f Frame) Box() geometry.Size {
	return geometry.Size{Width: float64(f.Width), Height: float64(f.Height)}
}

// Options tune stroke and text metrics.
type Options struct {
	StrokePx       float64
	FontSizePx     float64
	SelectionColor color.RGBA
	SelectionPadPx float64
	SelectionDash  float64
}

// DefaultOptions match the browser overlay.
func DefaultOptions() Options {
	return Options{
		StrokePx:       2,
		FontSizePx:     16,
		SelectionColor: color.RGBA{R: 0xFF, G: 0xD7, A: 0xFF},
		SelectionPadPx: 3,
		SelectionDash:  6,
	}
}

// Canvas paints frames. It is safe for concurrent use.
type Canvas struct {
	opts Options
	face font.Face
}

// NewCanvas prepares the text face. If the bundled font cannot be loaded the
// canvas falls back to a fixed 7x13 bitmap face.
func NewCanvas(opts Options) *Canvas {
	c := &Canvas{opts: opts, face: basicfont.Face7x13}
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		if face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: opts.FontSizePx, DPI: 72, Hinting: font.HintingFull}); err == nil {
			c.face = face
		}
	}
	return c
}

// Draw paints f onto a new transparent image.
func (c *Canvas) Draw(f Frame) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(f.Width, 0), max(f.Height, 0)))
	if f.Width <= 0 || f.Height <= 0 {
		return dst
	}
	box := f.Box()

	var selected *annotation.Annotation
	for i := range f.Annotations {
		a := f.Annotations[i]
		c.drawShape(dst, a, box)
		if f.Selected != "" && a.ID == f.Selected {
			selected = &a
		}
	}
	if f.Draft != nil {
		c.drawShape(dst, *f.Draft, box)
	}
	if selected != nil {
		c.drawSelection(dst, *selected, box)
	}
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func (c *Canvas) drawShape(dst *image.RGBA, a annotation.Annotation, box geometry.Size) {
	col := image.NewUniform(ParseColor(a.Color))
	half := c.opts.StrokePx / 2

	switch a.Type {
	case annotation.TypeRectangle:
		tl := geometry.ToPixel(geometry.Point{X: a.X, Y: a.Y}, box)
		br := geometry.ToPixel(geometry.Point{X: a.X + a.Width, Y: a.Y + a.Height}, box)
		z := newRasterizer(dst)
		rectPath(z, tl.X-half, tl.Y-half, br.X+half, br.Y+half, false)
		if br.X-tl.X > c.opts.StrokePx && br.Y-tl.Y > c.opts.StrokePx {
			rectPath(z, tl.X+half, tl.Y+half, br.X-half, br.Y-half, true)
		}
		z.Draw(dst, dst.Bounds(), col, image.Point{})
	case annotation.TypeCircle:
		center := geometry.ToPixel(geometry.Point{X: a.X, Y: a.Y}, box)
		rx, ry := a.Radius*box.Width, a.Radius*box.Height
		z := newRasterizer(dst)
		ellipsePath(z, center, rx+half, ry+half, false)
		if rx > half && ry > half {
			ellipsePath(z, center, rx-half, ry-half, true)
		}
		z.Draw(dst, dst.Bounds(), col, image.Point{})
	case annotation.TypeLine:
		if len(a.Points) != 2 {
			return
		}
		z := newRasterizer(dst)
		segmentPath(z, geometry.ToPixel(a.Points[0], box), geometry.ToPixel(a.Points[1], box), half)
		z.Draw(dst, dst.Bounds(), col, image.Point{})
	case annotation.TypeText:
		anchor := geometry.ToPixel(geometry.Point{X: a.X, Y: a.Y}, box)
		d := &font.Drawer{Dst: dst, Src: col, Face: c.face}
		d.Dot = fixed.P(int(math.Round(anchor.X)), int(math.Round(anchor.Y+c.opts.FontSizePx)))
		d.DrawString(a.Text)
	}
}

// bounds is the pixel box the selection highlight surrounds.
func (c *Canvas) bounds(a annotation.Annotation, box geometry.Size) geometry.Rect {
	switch a.Type {
	case annotation.TypeRectangle:
		return geometry.Rect{
			Min: geometry.ToPixel(geometry.Point{X: a.X, Y: a.Y}, box),
			Max: geometry.ToPixel(geometry.Point{X: a.X + a.Width, Y: a.Y + a.Height}, box),
		}
	case annotation.TypeCircle:
		center := geometry.ToPixel(geometry.Point{X: a.X, Y: a.Y}, box)
		rx, ry := a.Radius*box.Width, a.Radius*box.Height
		return geometry.Rect{
			Min: geometry.Point{X: center.X - rx, Y: center.Y - ry},
			Max: geometry.Point{X: center.X + rx, Y: center.Y + ry},
		}
	case annotation.TypeLine:
		pts := make([]geometry.Point, len(a.Points))
		for i, p := range a.Points {
			pts[i] = geometry.ToPixel(p, box)
		}
		return geometry.Bounds(pts...)
	case annotation.TypeText:
		anchor := geometry.ToPixel(geometry.Point{X: a.X, Y: a.Y}, box)
		w := float64(font.MeasureString(c.face, a.Text)) / 64
		return geometry.Rect{Min: anchor, Max: geometry.Point{X: anchor.X + w, Y: anchor.Y + c.opts.FontSizePx}}
	}
	return geometry.Rect{}
}

func (c *Canvas) drawSelection(dst *image.RGBA, a annotation.Annotation, box geometry.Size) {
	r := c.bounds(a, box).Inset(-c.opts.SelectionPadPx, -c.opts.SelectionPadPx)
	corners := []geometry.Point{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}

	z := newRasterizer(dst)
	half := c.opts.StrokePx / 2
	dash := c.opts.SelectionDash
	for i := range corners {
		from, to := corners[i], corners[(i+1)%len(corners)]
		length := geometry.Distance(from, to)
		if length == 0 || dash <= 0 {
			continue
		}
		dir := to.Sub(from)
		for s := 0.0; s < length; s += 2 * dash {
			e := math.Min(s+dash, length)
			p0 := geometry.Point{X: from.X + dir.X*s/length, Y: from.Y + dir.Y*s/length}
			p1 := geometry.Point{X: from.X + dir.X*e/length, Y: from.Y + dir.Y*e/length}
			segmentPath(z, p0, p1, half)
		}
	}
	z.Draw(dst, dst.Bounds(), image.NewUniform(c.opts.SelectionColor), image.Point{})
}

func newRasterizer(dst *image.RGBA) *vector.Rasterizer {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	return z
}

// rectPath adds a closed rectangle. reverse flips the winding so an inner
// rectangle punches a hole in an outer one.
func rectPath(z *vector.Rasterizer, x0, y0, x1, y1 float64, reverse bool) {
	pts := [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	if reverse {
		pts[1], pts[3] = pts[3], pts[1]
	}
	z.MoveTo(float32(pts[0][0]), float32(pts[0][1]))
	for _, p := range pts[1:] {
		z.LineTo(float32(p[0]), float32(p[1]))
	}
	z.ClosePath()
}

// ellipsePath adds a closed polygonal ellipse.
func ellipsePath(z *vector.Rasterizer, c geometry.Point, rx, ry float64, reverse bool) {
	steps := int(math.Ceil(2 * math.Pi * math.Max(rx, ry) / 2))
	steps = max(steps, 16)
	for i := 0; i <= steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		if reverse {
			angle = -angle
		}
		x := float32(c.X + math.Cos(angle)*rx)
		y := float32(c.Y + math.Sin(angle)*ry)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

// segmentPath adds a quad of half-width half around p0-p1. Every quad has
// the same winding, so overlapping segments never cancel out.
func segmentPath(z *vector.Rasterizer, p0, p1 geometry.Point, half float64) {
	d := p1.Sub(p0)
	length := math.Hypot(d.X, d.Y)
	if length == 0 {
		rectPath(z, p0.X-half, p0.Y-half, p0.X+half, p0.Y+half, false)
		return
	}
	nx, ny := -d.Y/length*half, d.X/length*half
	z.MoveTo(float32(p0.X+nx), float32(p0.Y+ny))
	z.LineTo(float32(p1.X+nx), float32(p1.Y+ny))
	z.LineTo(float32(p1.X-nx), float32(p1.Y-ny))
	z.LineTo(float32(p0.X-nx), float32(p0.Y-ny))
	z.ClosePath()
}

// ParseColor accepts #RGB, #RRGGBB, #RRGGBBAA and CSS color names. Anything
// else yields the default annotation color.
func ParseColor(s string) color.RGBA {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return c
	}
	c, ok := parseHex(s)
	if !ok {
		c, _ = parseHex(strings.ToLower(annotation.DefaultColor))
	}
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func parseHex(s string) (color.NRGBA, bool) {
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}
