// Package chart owns the render loop: the visible window, pointer
// interaction, hit-testing, and drawing of candles and indicator series
// onto a Surface.
package chart

import (
	"image"
	"image/color"
	"math"
)

// Surface is the draw target the renderer paints into. Implementations
// must tolerate out-of-bounds coordinates by clipping.
type Surface interface {
	Size() (w, h int)
	Clear(c color.Color)
	// Line draws a 1px line between two points.
	Line(x1, y1, x2, y2 float64, c color.Color)
	// FillRect fills the axis-aligned rectangle at (x, y) with the given
	// width and height.
	FillRect(x, y, w, h float64, c color.Color)
}

// Raster is an in-memory Surface backed by an image.RGBA.
type Raster struct {
	img *image.RGBA
}

// NewRaster creates a raster surface of the given pixel size.
func NewRaster(w, h int) *Raster {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image exposes the backing image for encoding or inspection.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

func (r *Raster) Clear(c color.Color) {
	b := r.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r.img.Set(x, y, c)
		}
	}
}

func (r *Raster) set(x, y int, c color.Color) {
	if image.Pt(x, y).In(r.img.Bounds()) {
		r.img.Set(x, y, c)
	}
}

// Line draws with integer DDA stepping; good enough for chart strokes.
func (r *Raster) Line(x1, y1, x2, y2 float64, c color.Color) {
	if !finite(x1) || !finite(y1) || !finite(x2) || !finite(y2) {
		return
	}
	dx := x2 - x1
	dy := y2 - y1
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	if steps < 1 {
		r.set(int(math.Round(x1)), int(math.Round(y1)), c)
		return
	}
	sx := dx / steps
	sy := dy / steps
	x, y := x1, y1
	for i := 0.0; i <= steps; i++ {
		r.set(int(math.Round(x)), int(math.Round(y)), c)
		x += sx
		y += sy
	}
}

func (r *Raster) FillRect(x, y, w, h float64, c color.Color) {
	if !finite(x) || !finite(y) || !finite(w) || !finite(h) {
		return
	}
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	x0 := int(math.Round(x))
	y0 := int(math.Round(y))
	x1 := int(math.Round(x + w))
	y1 := int(math.Round(y + h))
	if x1 == x0 {
		x1 = x0 + 1
	}
	if y1 == y0 {
		y1 = y0 + 1
	}
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			r.set(px, py, c)
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
