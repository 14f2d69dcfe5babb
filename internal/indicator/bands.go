package indicator

import (
	"math"

	"chartcore/internal/model"
)

// BollingerCalc: middle = SMA(period); upper/lower = middle ± stddevMult ×
// population standard deviation of the period window.
func BollingerCalc(candles []model.Candle, period int, stddevMult float64) Bands {
	vals := closes(candles)
	mid := smaOver(vals, period)
	sd := stdevWindow(vals, period)
	upper := nanSlice(len(vals))
	lower := nanSlice(len(vals))
	for i := range vals {
		if !math.IsNaN(mid[i]) && !math.IsNaN(sd[i]) {
			upper[i] = mid[i] + stddevMult*sd[i]
			lower[i] = mid[i] - stddevMult*sd[i]
		}
	}
	return Bands{
		Middle: line("middle", candles, mid),
		Upper:  line("upper", candles, upper),
		Lower:  line("lower", candles, lower),
	}
}

// ATRCalc: Wilder-smoothed true range.
func ATRCalc(candles []model.Candle, period int) Lines {
	return Lines{Set: []NamedSeries{line("atr", candles, atrOver(candles, period))}}
}

func atrOver(candles []model.Candle, period int) []float64 {
	return wilderOver(trueRange(candles), period)
}

// KeltnerCalc: middle = EMA(close, emaPeriod); envelope = ± mult × ATR.
func KeltnerCalc(candles []model.Candle, emaPeriod, atrPeriod int, mult float64) Bands {
	mid := emaOver(closes(candles), emaPeriod)
	atr := atrOver(candles, atrPeriod)
	upper := nanSlice(len(candles))
	lower := nanSlice(len(candles))
	for i := range candles {
		if !math.IsNaN(mid[i]) && !math.IsNaN(atr[i]) {
			upper[i] = mid[i] + mult*atr[i]
			lower[i] = mid[i] - mult*atr[i]
		}
	}
	return Bands{
		Middle: line("middle", candles, mid),
		Upper:  line("upper", candles, upper),
		Lower:  line("lower", candles, lower),
	}
}

// DonchianCalc: upper/lower = highest high / lowest low over the period;
// middle is their midpoint.
func DonchianCalc(candles []model.Candle, period int) Bands {
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i := range candles {
		highs[i] = candles[i].High
		lows[i] = candles[i].Low
	}
	upper := rollMax(highs, period)
	lower := rollMin(lows, period)
	mid := nanSlice(len(candles))
	for i := range candles {
		if !math.IsNaN(upper[i]) && !math.IsNaN(lower[i]) {
			mid[i] = (upper[i] + lower[i]) / 2
		}
	}
	return Bands{
		Middle: line("middle", candles, mid),
		Upper:  line("upper", candles, upper),
		Lower:  line("lower", candles, lower),
	}
}
