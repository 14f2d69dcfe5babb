// Package model defines the core data types shared across the chart engine:
// candles, indicator data points, and the visible window.
package model

import (
	"encoding/json"
	"math"
)

// CandleState tracks a bar's lifecycle.
type CandleState int

const (
	// Forming is the in-progress bar for the current time bucket.
	// At most the last candle of a series may be Forming.
	Forming CandleState = iota
	// Confirmed is a closed bar; immutable from here on.
	Confirmed
	// Historical is a closed bar loaded from a bulk/backfill fetch.
	Historical
)

func (s CandleState) String() string {
	switch s {
	case Forming:
		return "FORMING"
	case Confirmed:
		return "CONFIRMED"
	case Historical:
		return "HISTORICAL"
	}
	return "UNKNOWN"
}

// Candle is one OHLCV bar for a fixed time bucket.
// Time is the bucket start in Unix seconds and is strictly increasing
// within a series.
type Candle struct {
	Time   int64       `json:"time"`
	Open   float64     `json:"open"`
	High   float64     `json:"high"`
	Low    float64     `json:"low"`
	Close  float64     `json:"close"`
	Volume float64     `json:"volume"`
	State  CandleState `json:"state"`
}

// Bullish reports whether the bar closed at or above its open.
func (c *Candle) Bullish() bool {
	return c.Close >= c.Open
}

// TypicalPrice returns (H+L+C)/3, the price used by VWAP-family indicators.
func (c *Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// DataPoint is one indicator output sample. Value may be NaN to mean
// "undefined at this index" (warm-up, or a mathematically undefined point).
// Renderers skip NaN points instead of erroring.
type DataPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Defined reports whether the point carries a plottable value.
func (p DataPoint) Defined() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

// Window is the visible slice of the candle array: [StartIndex,
// StartIndex+VisibleCount). StartIndex is fractional so panning can be
// sub-bar smooth; VisibleCount is never below 1.
type Window struct {
	StartIndex   float64 `json:"start_index"`
	VisibleCount int     `json:"visible_count"`
}

// Clamp bounds the window against a series of the given length so it never
// extends before index 0 or entirely past the last candle.
func (w Window) Clamp(length int) Window {
	if w.VisibleCount < 1 {
		w.VisibleCount = 1
	}
	if length == 0 {
		w.StartIndex = 0
		return w
	}
	max := float64(length - 1)
	if w.StartIndex > max {
		w.StartIndex = max
	}
	if w.StartIndex < 0 {
		w.StartIndex = 0
	}
	return w
}

// Bounds returns the integer candle-index range [lo, hi) covered by the
// window, clamped to [0, length).
func (w Window) Bounds(length int) (lo, hi int) {
	w = w.Clamp(length)
	lo = int(math.Floor(w.StartIndex))
	hi = lo + w.VisibleCount
	if lo < 0 {
		lo = 0
	}
	if hi > length {
		hi = length
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}
