package indicator

import (
	"math"

	"chartcore/internal/model"
	"chartcore/internal/registry"
)

// ProfileRow is one horizontal volume bucket of the visible-range profile.
type ProfileRow struct {
	PriceLow  float64
	PriceHigh float64
	Buy       float64
	Sell      float64
}

// Total returns the row's combined volume.
func (r ProfileRow) Total() float64 { return r.Buy + r.Sell }

// Profile is the Visible-Range Volume Profile output. It is not a
// time-aligned series: rows partition the visible price range.
type Profile struct {
	Rows        []ProfileRow
	POC         int // row index with the maximum total volume; -1 when empty
	ValueLow    int // lowest row inside the value area
	ValueHigh   int // highest row inside the value area
	VAL         float64
	VAH         float64
	TotalVolume float64
}

func (Profile) Hint() registry.Hint   { return registry.HintProfile }
func (Profile) Series() []NamedSeries { return nil }

// VRVPCalc builds the volume profile over the candles visible in the
// window. The visible price range is split into numRows equal-height
// buckets; each visible candle's volume is spread evenly across every
// bucket its [low, high] range spans, attributed to buy volume when the
// candle closed at or above its open and to sell volume otherwise.
//
// The value area grows outward from the POC, greedily taking whichever
// adjacent bucket holds more volume (preferring upward on ties), until it
// covers valueAreaPct percent of the total visible volume.
func VRVPCalc(candles []model.Candle, win model.Window, numRows int, valueAreaPct float64) Profile {
	if numRows < 1 {
		numRows = 1
	}
	lo, hi := win.Bounds(len(candles))
	visible := candles[lo:hi]
	if len(visible) == 0 {
		return Profile{POC: -1, ValueLow: -1, ValueHigh: -1}
	}

	priceLo, priceHi := math.Inf(1), math.Inf(-1)
	for i := range visible {
		priceLo = math.Min(priceLo, visible[i].Low)
		priceHi = math.Max(priceHi, visible[i].High)
	}
	if priceHi == priceLo {
		numRows = 1 // flat range collapses to a single bucket
	}
	rowHeight := (priceHi - priceLo) / float64(numRows)

	rows := make([]ProfileRow, numRows)
	for i := range rows {
		rows[i].PriceLow = priceLo + float64(i)*rowHeight
		rows[i].PriceHigh = rows[i].PriceLow + rowHeight
	}
	rows[numRows-1].PriceHigh = priceHi

	rowOf := func(price float64) int {
		if rowHeight == 0 {
			return 0
		}
		r := int((price - priceLo) / rowHeight)
		if r < 0 {
			r = 0
		}
		if r >= numRows {
			r = numRows - 1
		}
		return r
	}

	total := 0.0
	for i := range visible {
		c := &visible[i]
		first := rowOf(c.Low)
		last := rowOf(c.High)
		perRow := c.Volume / float64(last-first+1)
		for r := first; r <= last; r++ {
			if c.Bullish() {
				rows[r].Buy += perRow
			} else {
				rows[r].Sell += perRow
			}
		}
		total += c.Volume
	}

	poc := 0
	for i := range rows {
		if rows[i].Total() > rows[poc].Total() {
			poc = i
		}
	}

	// Grow the value area outward from the POC.
	target := valueAreaPct / 100 * total
	low, high := poc, poc
	cum := rows[poc].Total()
	for cum < target {
		upOK := high+1 < numRows
		downOK := low-1 >= 0
		if !upOK && !downOK {
			break
		}
		switch {
		case upOK && !downOK:
			high++
			cum += rows[high].Total()
		case downOK && !upOK:
			low--
			cum += rows[low].Total()
		default:
			// Prefer upward when adjacent volumes are equal.
			if rows[high+1].Total() >= rows[low-1].Total() {
				high++
				cum += rows[high].Total()
			} else {
				low--
				cum += rows[low].Total()
			}
		}
	}

	return Profile{
		Rows:        rows,
		POC:         poc,
		ValueLow:    low,
		ValueHigh:   high,
		VAL:         rows[low].PriceLow,
		VAH:         rows[high].PriceHigh,
		TotalVolume: total,
	}
}
