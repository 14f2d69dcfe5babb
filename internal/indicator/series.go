package indicator

import (
	"math"

	"chartcore/internal/model"
)

// Float-series primitives shared by the calculators. All of them preserve
// the alignment contract: output length equals input length, with NaN for
// indices where not enough history exists yet.

var nan = math.NaN()

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// attach pairs a value slice with the candle timestamps.
func attach(candles []model.Candle, values []float64) []model.DataPoint {
	out := make([]model.DataPoint, len(candles))
	for i := range candles {
		out[i] = model.DataPoint{Time: candles[i].Time, Value: values[i]}
	}
	return out
}

// firstFinite returns the index of the first non-NaN value, or -1.
func firstFinite(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// smaOver computes a rolling arithmetic mean with period-1 leading NaNs.
// Leading NaNs in the input shift the warm-up accordingly.
func smaOver(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	start := firstFinite(values)
	if start < 0 {
		return out
	}
	sum := 0.0
	for i := start; i < len(values); i++ {
		sum += values[i]
		if i-start >= period {
			sum -= values[i-period]
		}
		if i-start >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// emaOver computes an exponential moving average seeded from the SMA of the
// first period finite values, smoothing factor k = 2/(period+1).
func emaOver(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	start := firstFinite(values)
	if start < 0 || len(values)-start < period {
		return out
	}
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[start+period-1] = prev
	for i := start + period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// wilderOver applies Wilder's smoothing (RMA): seed = SMA(period), then
// prev*(period-1)/period + value/period.
func wilderOver(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	start := firstFinite(values)
	if start < 0 || len(values)-start < period {
		return out
	}
	p := float64(period)
	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	prev := sum / p
	out[start+period-1] = prev
	for i := start + period; i < len(values); i++ {
		prev = (prev*(p-1) + values[i]) / p
		out[i] = prev
	}
	return out
}

// stdevWindow computes the population standard deviation of the trailing
// period values ending at each index, NaN during warm-up.
func stdevWindow(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	start := firstFinite(values)
	if start < 0 {
		return out
	}
	for i := start + period - 1; i < len(values); i++ {
		mean := 0.0
		for j := i - period + 1; j <= i; j++ {
			mean += values[j]
		}
		mean /= float64(period)
		vsum := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			vsum += d * d
		}
		out[i] = math.Sqrt(vsum / float64(period))
	}
	return out
}

// rollMax / rollMin return the trailing-window extremes, NaN during warm-up.
func rollMax(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period - 1; i < len(values); i++ {
		m := values[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

func rollMin(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period - 1; i < len(values); i++ {
		m := values[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if values[j] < m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

// trueRange returns the per-bar true range; index 0 falls back to high-low.
func trueRange(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		hl := candles[i].High - candles[i].Low
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}
