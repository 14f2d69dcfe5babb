// Package session detects calendar boundaries in a bar series: the start of
// the current session (day), week, or month. Anchored-VWAP anchors resolve
// through these boundaries.
package session

import (
	"time"

	"chartcore/internal/model"
)

// Anchor modes accepted by AnchorIndex.
const (
	AnchorSession = "session"
	AnchorWeek    = "week"
	AnchorMonth   = "month"
	AnchorCustom  = "custom"
)

// Location is the calendar zone boundaries are evaluated in.
var Location = time.UTC

// AnchorIndex resolves an anchor mode to the candle index the anchored
// window starts at. Boundaries are found by comparing calendar fields of
// successive candles: the most recent index whose day/week/month differs
// from its predecessor. Custom anchors take the first candle at or after
// anchorTime. Returns 0 when no boundary exists in the series (the whole
// series is one period) or the series is empty.
func AnchorIndex(candles []model.Candle, mode string, anchorTime int64) int {
	if len(candles) == 0 {
		return 0
	}
	switch mode {
	case AnchorCustom:
		for i := range candles {
			if candles[i].Time >= anchorTime {
				return i
			}
		}
		return len(candles) - 1
	case AnchorSession, AnchorWeek, AnchorMonth:
		for i := len(candles) - 1; i > 0; i-- {
			if boundary(mode, candles[i-1].Time, candles[i].Time) {
				return i
			}
		}
		return 0
	}
	return 0
}

// boundary reports whether the calendar period changed between two
// successive bar timestamps.
func boundary(mode string, prev, cur int64) bool {
	a := time.Unix(prev, 0).In(Location)
	b := time.Unix(cur, 0).In(Location)
	switch mode {
	case AnchorSession:
		return a.YearDay() != b.YearDay() || a.Year() != b.Year()
	case AnchorWeek:
		ay, aw := a.ISOWeek()
		by, bw := b.ISOWeek()
		return aw != bw || ay != by
	case AnchorMonth:
		return a.Month() != b.Month() || a.Year() != b.Year()
	}
	return false
}
