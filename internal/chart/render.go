package chart

import (
	"image/color"
	"math"

	"chartcore/internal/indicator"
	"chartcore/internal/model"
	"chartcore/internal/reconcile"
	"chartcore/internal/registry"
	"chartcore/internal/scale"
)

// Theme holds the render colors. Exact values are styling, not behavior.
type Theme struct {
	Background color.RGBA
	Grid       color.RGBA
	BullBody   color.RGBA
	BearBody   color.RGBA
	Wick       color.RGBA
	PriceLine  color.RGBA
	Fallback   color.RGBA // series with no parseable instance color
	ProfileUp  color.RGBA
	ProfileDn  color.RGBA
	ProfilePOC color.RGBA
}

// DefaultTheme is a dark chart palette.
var DefaultTheme = Theme{
	Background: color.RGBA{16, 18, 24, 255},
	Grid:       color.RGBA{38, 42, 52, 255},
	BullBody:   color.RGBA{38, 166, 154, 255},
	BearBody:   color.RGBA{239, 83, 80, 255},
	Wick:       color.RGBA{120, 128, 140, 255},
	PriceLine:  color.RGBA{255, 200, 60, 255},
	Fallback:   color.RGBA{90, 140, 255, 255},
	ProfileUp:  color.RGBA{38, 166, 154, 120},
	ProfileDn:  color.RGBA{239, 83, 80, 120},
	ProfilePOC: color.RGBA{255, 200, 60, 255},
}

const (
	mainPaneShare   = 0.65 // of total height, when sub-panes exist
	profileMaxShare = 0.30 // of pane width for the widest profile row
	gridRows        = 5
	gridColSpacing  = 10 // bars between vertical grid lines
)

// pane is one vertical slab of the surface with its own price scale.
type pane struct {
	top    float64
	height float64
}

// render redraws the whole chart: grid, candles, indicator series by render
// hint, and overlays. Degenerate data (flat range, NaN values) must never
// panic — the scale guards the former, point filtering the latter.
func (e *Engine) render() {
	s := e.surface
	wpx, hpx := s.Size()
	s.Clear(e.Theme.Background)

	candles := e.store.VisibleSlice(e.window)
	ts := e.timeScale()

	separate := e.separateInstances()
	main := pane{top: 0, height: float64(hpx)}
	var subs []pane
	if len(separate) > 0 {
		main.height = float64(hpx) * mainPaneShare
		subH := (float64(hpx) - main.height) / float64(len(separate))
		for i := range separate {
			subs = append(subs, pane{top: main.height + float64(i)*subH, height: subH})
		}
	}

	e.drawGrid(main, float64(wpx))
	if len(candles) == 0 {
		return
	}

	ps := e.priceScale(candles, main)
	lo, _ := e.window.Bounds(e.store.Len())
	e.drawCandles(candles, lo, ts, ps)

	// Overlay indicators share the main pane's price scale.
	for _, in := range e.rec.Instances() {
		out := in.Output()
		if out == nil || !in.Visible || in.Desc.Pane != registry.Overlay {
			continue
		}
		if p, ok := out.(indicator.Profile); ok {
			e.drawProfile(p, main, float64(wpx))
			continue
		}
		e.drawOutput(out, in, ts, ps)
	}

	// Separate panes scale to their own series.
	for i, in := range separate {
		out := in.Output()
		sub := subs[i]
		e.drawGrid(sub, float64(wpx))
		sps := e.seriesScale(out, lo, sub)
		e.drawOutput(out, in, ts, sps)
	}

	e.drawPriceLine(ps, float64(wpx))
}

// separateInstances returns visible sub-pane indicators with outputs.
func (e *Engine) separateInstances() []*reconcile.Instance {
	var out []*reconcile.Instance
	for _, in := range e.rec.Instances() {
		if in.Visible && in.Desc.Pane == registry.Separate && in.Output() != nil {
			out = append(out, in)
		}
	}
	return out
}

// priceScale builds the main pane's scale from the visible slice's
// high/low plus the padding margin. A flat slice still yields a valid,
// centered mapping via the Linear degenerate-range rule.
func (e *Engine) priceScale(candles []model.Candle, p pane) scale.Linear {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range candles {
		if finite(candles[i].Low) {
			lo = math.Min(lo, candles[i].Low)
		}
		if finite(candles[i].High) {
			hi = math.Max(hi, candles[i].High)
		}
	}
	if lo > hi { // all-garbage slice
		lo, hi = 0, 0
	}
	pad := (hi - lo) * e.PricePadding
	return scale.NewLinear(lo-pad, hi+pad, p.height, p.top)
}

// seriesScale fits a sub-pane scale to an output's visible points.
func (e *Engine) seriesScale(out indicator.Output, fromIdx int, p pane) scale.Linear {
	lo, hi := math.Inf(1), math.Inf(-1)
	to := fromIdx + e.window.VisibleCount
	for _, s := range out.Series() {
		for i := fromIdx; i < to && i < len(s.Points); i++ {
			if !s.Points[i].Defined() {
				continue
			}
			lo = math.Min(lo, s.Points[i].Value)
			hi = math.Max(hi, s.Points[i].Value)
		}
	}
	if lo > hi {
		lo, hi = 0, 0
	}
	pad := (hi - lo) * e.PricePadding
	return scale.NewLinear(lo-pad, hi+pad, p.height, p.top)
}

func (e *Engine) drawGrid(p pane, width float64) {
	for i := 0; i <= gridRows; i++ {
		y := p.top + p.height*float64(i)/gridRows
		e.surface.Line(0, y, width, y, e.Theme.Grid)
	}
	ts := e.timeScale()
	first := int(math.Ceil(e.window.StartIndex))
	for i := first; i < first+e.window.VisibleCount; i++ {
		if i%gridColSpacing != 0 {
			continue
		}
		x := ts.IndexToPixels(float64(i))
		e.surface.Line(x, p.top, x, p.top+p.height, e.Theme.Grid)
	}
}

// drawCandles paints wicks then bodies. firstIdx is the absolute index of
// candles[0] so pixel positions line up with the time scale.
func (e *Engine) drawCandles(candles []model.Candle, firstIdx int, ts scale.Time, ps scale.Linear) {
	bodyW := ts.BarWidth() * 0.7
	for i := range candles {
		c := &candles[i]
		x := ts.IndexToPixels(float64(firstIdx + i))

		e.surface.Line(x, ps.ToPixels(c.High), x, ps.ToPixels(c.Low), e.Theme.Wick)

		top, bottom := c.Open, c.Close
		body := e.Theme.BearBody
		if c.Bullish() {
			top, bottom = c.Close, c.Open
			body = e.Theme.BullBody
		}
		y := ps.ToPixels(top)
		h := ps.ToPixels(bottom) - y
		e.surface.FillRect(x-bodyW/2, y, bodyW, math.Max(h, 1), body)
	}
}

// drawOutput renders an indicator's series according to its hint.
func (e *Engine) drawOutput(out indicator.Output, in *reconcile.Instance, ts scale.Time, ps scale.Linear) {
	col := parseHexColor(in.Color, e.Theme.Fallback)
	switch o := out.(type) {
	case indicator.Histogram:
		for _, s := range o.LineSet {
			e.drawLineSeries(s.Points, ts, ps, col)
		}
		e.drawHistogramSeries(o.Bars.Points, ts, ps)
	default:
		for _, s := range out.Series() {
			e.drawLineSeries(s.Points, ts, ps, col)
		}
	}
}

// drawLineSeries connects consecutive defined points; NaN gaps break the
// line rather than drawing through.
func (e *Engine) drawLineSeries(points []model.DataPoint, ts scale.Time, ps scale.Linear, col color.RGBA) {
	prev := -1
	for i := range points {
		if !points[i].Defined() {
			prev = -1
			continue
		}
		if prev >= 0 {
			e.surface.Line(
				ts.IndexToPixels(float64(prev)), ps.ToPixels(points[prev].Value),
				ts.IndexToPixels(float64(i)), ps.ToPixels(points[i].Value),
				col)
		}
		prev = i
	}
}

// drawHistogramSeries draws bars from the zero line, green above and red
// below.
func (e *Engine) drawHistogramSeries(points []model.DataPoint, ts scale.Time, ps scale.Linear) {
	zero := ps.ToPixels(0)
	barW := ts.BarWidth() * 0.5
	for i := range points {
		if !points[i].Defined() {
			continue
		}
		y := ps.ToPixels(points[i].Value)
		col := e.Theme.BullBody
		if points[i].Value < 0 {
			col = e.Theme.BearBody
		}
		e.surface.FillRect(ts.IndexToPixels(float64(i))-barW/2, math.Min(y, zero), barW, math.Abs(zero-y), col)
	}
}

// drawProfile paints the visible-range volume rows against the right edge
// of the main pane, POC row highlighted.
func (e *Engine) drawProfile(p indicator.Profile, pn pane, width float64) {
	if len(p.Rows) == 0 {
		return
	}
	maxVol := 0.0
	for _, r := range p.Rows {
		maxVol = math.Max(maxVol, r.Total())
	}
	if maxVol == 0 {
		return
	}
	ps := scale.NewLinear(p.Rows[0].PriceLow, p.Rows[len(p.Rows)-1].PriceHigh, pn.height, pn.top)
	for i, r := range p.Rows {
		yTop := ps.ToPixels(r.PriceHigh)
		yBot := ps.ToPixels(r.PriceLow)
		h := math.Max(yBot-yTop-1, 1)
		total := r.Total() / maxVol * width * profileMaxShare
		buyW := 0.0
		if r.Total() > 0 {
			buyW = total * (r.Buy / r.Total())
		}
		e.surface.FillRect(width-total, yTop, buyW, h, e.Theme.ProfileUp)
		e.surface.FillRect(width-total+buyW, yTop, total-buyW, h, e.Theme.ProfileDn)
		if i == p.POC {
			e.surface.Line(width-total, (yTop+yBot)/2, width, (yTop+yBot)/2, e.Theme.ProfilePOC)
		}
	}
}

// drawPriceLine marks the last close across the pane.
func (e *Engine) drawPriceLine(ps scale.Linear, width float64) {
	last, ok := e.store.Last()
	if !ok || !finite(last.Close) {
		return
	}
	y := ps.ToPixels(last.Close)
	for x := 0.0; x < width; x += 8 {
		e.surface.Line(x, y, x+4, y, e.Theme.PriceLine)
	}
}

// parseHexColor accepts "#rrggbb" (or "#rgb"); anything else falls back.
func parseHexColor(s string, fallback color.RGBA) color.RGBA {
	hex := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	if len(s) == 0 || s[0] != '#' {
		return fallback
	}
	switch len(s) {
	case 7:
		var v [6]uint8
		for i := 0; i < 6; i++ {
			d, ok := hex(s[i+1])
			if !ok {
				return fallback
			}
			v[i] = d
		}
		return color.RGBA{v[0]<<4 | v[1], v[2]<<4 | v[3], v[4]<<4 | v[5], 255}
	case 4:
		var v [3]uint8
		for i := 0; i < 3; i++ {
			d, ok := hex(s[i+1])
			if !ok {
				return fallback
			}
			v[i] = d
		}
		return color.RGBA{v[0] * 17, v[1] * 17, v[2] * 17, 255}
	}
	return fallback
}
