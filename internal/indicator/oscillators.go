package indicator

import (
	"math"

	"chartcore/internal/model"
)

// RSICalc computes Wilder's Relative Strength Index, bounded to [0, 100].
// Warm-up: the first period points are NaN.
func RSICalc(candles []model.Candle, period int) Lines {
	vals := closes(candles)
	out := nanSlice(len(vals))
	if period >= 1 && len(vals) > period {
		p := float64(period)
		avgGain, avgLoss := 0.0, 0.0
		for i := 1; i <= period; i++ {
			d := vals[i] - vals[i-1]
			if d > 0 {
				avgGain += d
			} else {
				avgLoss -= d
			}
		}
		avgGain /= p
		avgLoss /= p
		out[period] = rsiValue(avgGain, avgLoss)
		for i := period + 1; i < len(vals); i++ {
			d := vals[i] - vals[i-1]
			gain, loss := 0.0, 0.0
			if d > 0 {
				gain = d
			} else {
				loss = -d
			}
			avgGain = (avgGain*(p-1) + gain) / p
			avgLoss = (avgLoss*(p-1) + loss) / p
			out[i] = rsiValue(avgGain, avgLoss)
		}
	}
	return Lines{Set: []NamedSeries{line("rsi", candles, out)}}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDCalc: macd = fastEMA - slowEMA; signal = EMA(macd, signalPeriod);
// histogram = macd - signal.
func MACDCalc(candles []model.Candle, fast, slow, signal int) Histogram {
	vals := closes(candles)
	fastEMA := emaOver(vals, fast)
	slowEMA := emaOver(vals, slow)
	macd := nanSlice(len(vals))
	for i := range vals {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}
	sig := emaOver(macd, signal)
	hist := nanSlice(len(vals))
	for i := range vals {
		if !math.IsNaN(macd[i]) && !math.IsNaN(sig[i]) {
			hist[i] = macd[i] - sig[i]
		}
	}
	return Histogram{
		LineSet: []NamedSeries{line("macd", candles, macd), line("signal", candles, sig)},
		Bars:    line("histogram", candles, hist),
	}
}

// StochasticCalc: raw %K = 100*(close-lowestLow)/(highestHigh-lowestLow)
// over kPeriod, smoothed by `smooth`; %D = SMA(%K, dPeriod). A flat
// high/low window yields NaN rather than a division by zero.
func StochasticCalc(candles []model.Candle, kPeriod, dPeriod, smooth int) Lines {
	raw := rawStochastic(candles, kPeriod)
	k := smaOverNaN(raw, smooth)
	d := smaOverNaN(k, dPeriod)
	return Lines{Set: []NamedSeries{line("k", candles, k), line("d", candles, d)}}
}

func rawStochastic(candles []model.Candle, period int) []float64 {
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i := range candles {
		highs[i] = candles[i].High
		lows[i] = candles[i].Low
	}
	hh := rollMax(highs, period)
	ll := rollMin(lows, period)
	out := nanSlice(len(candles))
	for i := range candles {
		if math.IsNaN(hh[i]) || math.IsNaN(ll[i]) {
			continue
		}
		span := hh[i] - ll[i]
		if span == 0 {
			continue // undefined on a flat window
		}
		out[i] = 100 * (candles[i].Close - ll[i]) / span
	}
	return out
}

// smaOverNaN is smaOver tolerating interior NaNs: a window containing any
// NaN yields NaN.
func smaOverNaN(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// StochRSICalc applies the stochastic formula to an RSI series.
func StochRSICalc(candles []model.Candle, rsiPeriod, stochPeriod, kSmooth, dSmooth int) Lines {
	rsi := RSICalc(candles, rsiPeriod).Set[0].Points
	vals := make([]float64, len(rsi))
	for i := range rsi {
		vals[i] = rsi[i].Value
	}
	raw := nanSlice(len(vals))
	for i := stochPeriod - 1; i < len(vals); i++ {
		hh, ll := math.Inf(-1), math.Inf(1)
		ok := true
		for j := i - stochPeriod + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				ok = false
				break
			}
			hh = math.Max(hh, vals[j])
			ll = math.Min(ll, vals[j])
		}
		if !ok || hh == ll {
			continue
		}
		raw[i] = 100 * (vals[i] - ll) / (hh - ll)
	}
	k := smaOverNaN(raw, kSmooth)
	d := smaOverNaN(k, dSmooth)
	return Lines{Set: []NamedSeries{line("k", candles, k), line("d", candles, d)}}
}

// CCICalc: (typical - SMA(typical)) / (0.015 * mean absolute deviation).
func CCICalc(candles []model.Candle, period int) Lines {
	tp := make([]float64, len(candles))
	for i := range candles {
		tp[i] = candles[i].TypicalPrice()
	}
	sma := smaOver(tp, period)
	out := nanSlice(len(candles))
	for i := period - 1; i < len(candles); i++ {
		dev := 0.0
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - sma[i])
		}
		dev /= float64(period)
		if dev == 0 {
			continue
		}
		out[i] = (tp[i] - sma[i]) / (0.015 * dev)
	}
	return Lines{Set: []NamedSeries{line("cci", candles, out)}}
}

// ROCCalc: 100 * (close - close[period ago]) / close[period ago].
func ROCCalc(candles []model.Candle, period int) Lines {
	vals := closes(candles)
	out := nanSlice(len(vals))
	for i := period; i < len(vals); i++ {
		prev := vals[i-period]
		if prev == 0 {
			continue
		}
		out[i] = 100 * (vals[i] - prev) / prev
	}
	return Lines{Set: []NamedSeries{line("roc", candles, out)}}
}

// WilliamsRCalc: -100 * (highestHigh - close) / (highestHigh - lowestLow).
func WilliamsRCalc(candles []model.Candle, period int) Lines {
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i := range candles {
		highs[i] = candles[i].High
		lows[i] = candles[i].Low
	}
	hh := rollMax(highs, period)
	ll := rollMin(lows, period)
	out := nanSlice(len(candles))
	for i := period - 1; i < len(candles); i++ {
		span := hh[i] - ll[i]
		if span == 0 {
			continue
		}
		out[i] = -100 * (hh[i] - candles[i].Close) / span
	}
	return Lines{Set: []NamedSeries{line("willr", candles, out)}}
}

// TRIXCalc: 1-bar percent rate of change of a triple-smoothed EMA.
func TRIXCalc(candles []model.Candle, period int) Lines {
	e1 := emaOver(closes(candles), period)
	e2 := emaOver(e1, period)
	e3 := emaOver(e2, period)
	out := nanSlice(len(candles))
	for i := 1; i < len(e3); i++ {
		if math.IsNaN(e3[i]) || math.IsNaN(e3[i-1]) || e3[i-1] == 0 {
			continue
		}
		out[i] = 100 * (e3[i] - e3[i-1]) / e3[i-1]
	}
	return Lines{Set: []NamedSeries{line("trix", candles, out)}}
}
