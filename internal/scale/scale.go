// Package scale provides the pure coordinate-mapping primitives for the
// chart: value↔pixel on the price axis and index↔pixel on the time axis.
// Scales are ephemeral — rebuilt every render from the current window and
// surface size, never stored.
package scale

// Linear maps a value range onto a vertical pixel span.
//
// Pixel space is top-down: the maximum value maps to Top (smallest pixel)
// and the minimum value maps to Top+Height (largest pixel).
type Linear struct {
	Min    float64
	Max    float64
	Height float64
	Top    float64
}

// NewLinear creates a price-axis scale over [min, max] for a pixel area of
// the given height starting at top.
func NewLinear(min, max, height, top float64) Linear {
	return Linear{Min: min, Max: max, Height: height, Top: top}
}

// ToPixels converts a value to its vertical pixel position.
// A degenerate range (max == min) maps every value to the vertical midpoint
// instead of dividing by zero.
func (s Linear) ToPixels(value float64) float64 {
	span := s.Max - s.Min
	if span == 0 {
		return s.Top + s.Height/2
	}
	return s.Top + (s.Max-value)/span*s.Height
}

// FromPixels is the algebraic inverse of ToPixels.
// For a degenerate range every pixel maps back to Min.
func (s Linear) FromPixels(pixel float64) float64 {
	if s.Height == 0 || s.Max == s.Min {
		return s.Min
	}
	return s.Max - (pixel-s.Top)/s.Height*(s.Max-s.Min)
}

// Time maps candle indices onto a horizontal pixel span for a visible
// window of VisibleCount bars starting at StartIndex.
type Time struct {
	StartIndex   float64
	VisibleCount int
	Width        float64
}

// NewTime creates a time-axis scale. visibleCount is floored to 1 to avoid
// a zero bar width.
func NewTime(startIndex float64, visibleCount int, width float64) Time {
	if visibleCount < 1 {
		visibleCount = 1
	}
	return Time{StartIndex: startIndex, VisibleCount: visibleCount, Width: width}
}

// BarWidth returns the pixel width of one bar slot.
func (s Time) BarWidth() float64 {
	return s.Width / float64(s.VisibleCount)
}

// IndexToPixels returns the pixel x of the center of the bar at index i.
func (s Time) IndexToPixels(i float64) float64 {
	bw := s.BarWidth()
	return (i-s.StartIndex)*bw + bw/2
}

// PixelsToIndex is the exact inverse of IndexToPixels.
func (s Time) PixelsToIndex(x float64) float64 {
	bw := s.BarWidth()
	if bw == 0 {
		return s.StartIndex
	}
	return (x-bw/2)/bw + s.StartIndex
}
