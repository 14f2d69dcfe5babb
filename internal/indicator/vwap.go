package indicator

import (
	"math"

	"chartcore/internal/model"
)

// VWAPCalc computes the anchored volume-weighted average price from
// anchorIdx to the end of the series, with standard-deviation bands over
// the same anchored cumulative window (not a rolling one).
//
// vwap = Σ(v·tp)/Σv with tp = (H+L+C)/3; band deviation is the
// volume-weighted standard deviation √(Σ(v·tp²)/Σv − vwap²).
// Points before the anchor are NaN; so is any point while Σv is zero.
func VWAPCalc(candles []model.Candle, anchorIdx int, mult float64, showBands bool) Bands {
	n := len(candles)
	vwap := nanSlice(n)
	upper := nanSlice(n)
	lower := nanSlice(n)

	if anchorIdx < 0 {
		anchorIdx = 0
	}
	var sumV, sumPV, sumPPV float64
	for i := anchorIdx; i < n; i++ {
		tp := candles[i].TypicalPrice()
		v := candles[i].Volume
		sumV += v
		sumPV += tp * v
		sumPPV += tp * tp * v
		if sumV == 0 {
			continue
		}
		w := sumPV / sumV
		vwap[i] = w
		if showBands {
			variance := sumPPV/sumV - w*w
			if variance < 0 {
				variance = 0 // float cancellation on near-constant prices
			}
			sd := math.Sqrt(variance)
			upper[i] = w + mult*sd
			lower[i] = w - mult*sd
		}
	}
	return Bands{
		Middle: line("vwap", candles, vwap),
		Upper:  line("upper", candles, upper),
		Lower:  line("lower", candles, lower),
	}
}
