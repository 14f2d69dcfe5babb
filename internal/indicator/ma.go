package indicator

import (
	"math"

	"chartcore/internal/model"
)

// SMACalc is the arithmetic mean of the trailing period closes.
// Warm-up: period-1 leading NaNs.
func SMACalc(candles []model.Candle, period int) Lines {
	return Lines{Set: []NamedSeries{line("sma", candles, smaOver(closes(candles), period))}}
}

// EMACalc seeds from the SMA of the first period closes, then applies
// smoothing factor k = 2/(period+1).
func EMACalc(candles []model.Candle, period int) Lines {
	return Lines{Set: []NamedSeries{line("ema", candles, emaOver(closes(candles), period))}}
}

// WMACalc is the linearly weighted moving average: the most recent close
// gets weight period, the oldest weight 1.
func WMACalc(candles []model.Candle, period int) Lines {
	return Lines{Set: []NamedSeries{line("wma", candles, wmaOver(closes(candles), period))}}
}

func wmaOver(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += values[i-period+1+j] * float64(j+1)
		}
		out[i] = sum / denom
	}
	return out
}

// HMACalc is the Hull moving average:
// WMA(2*WMA(period/2) - WMA(period), sqrt(period)).
func HMACalc(candles []model.Candle, period int) Lines {
	vals := closes(candles)
	half := wmaOver(vals, period/2)
	full := wmaOver(vals, period)
	diff := nanSlice(len(vals))
	for i := range vals {
		if !math.IsNaN(half[i]) && !math.IsNaN(full[i]) {
			diff[i] = 2*half[i] - full[i]
		}
	}
	sq := int(math.Round(math.Sqrt(float64(period))))
	if sq < 1 {
		sq = 1
	}
	return Lines{Set: []NamedSeries{line("hma", candles, wmaOverNaN(diff, sq))}}
}

// wmaOverNaN is wmaOver tolerating leading NaNs in the input.
func wmaOverNaN(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	start := firstFinite(values)
	if start < 0 || period < 1 {
		return out
	}
	denom := float64(period*(period+1)) / 2
	for i := start + period - 1; i < len(values); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += values[i-period+1+j] * float64(j+1)
		}
		out[i] = sum / denom
	}
	return out
}
