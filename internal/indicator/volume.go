package indicator

import "chartcore/internal/model"

// OBVCalc: running total of volume, added on up closes and subtracted on
// down closes.
func OBVCalc(candles []model.Candle) Lines {
	out := nanSlice(len(candles))
	obv := 0.0
	for i := range candles {
		if i > 0 {
			if candles[i].Close > candles[i-1].Close {
				obv += candles[i].Volume
			} else if candles[i].Close < candles[i-1].Close {
				obv -= candles[i].Volume
			}
		}
		out[i] = obv
	}
	return Lines{Set: []NamedSeries{line("obv", candles, out)}}
}

// MFICalc: money flow index over typical-price raw money flow, bounded to
// [0, 100]. All-positive flow maps to 100 rather than dividing by zero.
func MFICalc(candles []model.Candle, period int) Lines {
	n := len(candles)
	out := nanSlice(n)
	if n < 2 || period < 1 {
		return Lines{Set: []NamedSeries{line("mfi", candles, out)}}
	}
	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		tp := candles[i].TypicalPrice()
		prev := candles[i-1].TypicalPrice()
		flow := tp * candles[i].Volume
		if tp > prev {
			pos[i] = flow
		} else if tp < prev {
			neg[i] = flow
		}
	}
	for i := period; i < n; i++ {
		var p, q float64
		for j := i - period + 1; j <= i; j++ {
			p += pos[j]
			q += neg[j]
		}
		if q == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+p/q)
	}
	return Lines{Set: []NamedSeries{line("mfi", candles, out)}}
}

// moneyFlowVolume is the per-bar Chaikin money flow volume:
// ((close-low)-(high-close))/(high-low) × volume; 0 on a zero-range bar.
func moneyFlowVolume(c model.Candle) float64 {
	span := c.High - c.Low
	if span == 0 {
		return 0
	}
	mult := ((c.Close - c.Low) - (c.High - c.Close)) / span
	return mult * c.Volume
}

// CMFCalc: sum of money flow volume over the period divided by the volume
// sum. Zero total volume yields NaN.
func CMFCalc(candles []model.Candle, period int) Lines {
	n := len(candles)
	out := nanSlice(n)
	for i := period - 1; i < n; i++ {
		var mfv, vol float64
		for j := i - period + 1; j <= i; j++ {
			mfv += moneyFlowVolume(candles[j])
			vol += candles[j].Volume
		}
		if vol == 0 {
			continue
		}
		out[i] = mfv / vol
	}
	return Lines{Set: []NamedSeries{line("cmf", candles, out)}}
}

// ADLCalc: cumulative money flow volume.
func ADLCalc(candles []model.Candle) Lines {
	out := nanSlice(len(candles))
	sum := 0.0
	for i := range candles {
		sum += moneyFlowVolume(candles[i])
		out[i] = sum
	}
	return Lines{Set: []NamedSeries{line("adl", candles, out)}}
}

// ForceIndexCalc: EMA of (close - prevClose) × volume.
func ForceIndexCalc(candles []model.Candle, period int) Lines {
	n := len(candles)
	raw := nanSlice(n)
	for i := 1; i < n; i++ {
		raw[i] = (candles[i].Close - candles[i-1].Close) * candles[i].Volume
	}
	return Lines{Set: []NamedSeries{line("force", candles, emaOver(raw, period))}}
}

// EOMCalc: Ease of Movement — midpoint move divided by the box ratio
// (volume scaled by the bar's range), SMA-smoothed. A zero range or zero
// volume bar is mathematically undefined and yields NaN.
func EOMCalc(candles []model.Candle, period int) Lines {
	n := len(candles)
	raw := nanSlice(n)
	for i := 1; i < n; i++ {
		span := candles[i].High - candles[i].Low
		if span == 0 || candles[i].Volume == 0 {
			continue
		}
		midMove := (candles[i].High+candles[i].Low)/2 - (candles[i-1].High+candles[i-1].Low)/2
		boxRatio := (candles[i].Volume / 100000000) / span
		raw[i] = midMove / boxRatio
	}
	return Lines{Set: []NamedSeries{line("eom", candles, smaOverNaN(raw, period))}}
}

// TSVCalc: Time Segmented Volume — rolling sum over the period of signed
// volume, where volume is signed by the close-to-close move and zero on an
// unchanged close.
func TSVCalc(candles []model.Candle, period int) Histogram {
	n := len(candles)
	signed := make([]float64, n)
	for i := 1; i < n; i++ {
		d := candles[i].Close - candles[i-1].Close
		switch {
		case d > 0:
			signed[i] = candles[i].Volume
		case d < 0:
			signed[i] = -candles[i].Volume
		}
	}
	out := nanSlice(n)
	for i := period; i < n; i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += signed[j]
		}
		out[i] = sum
	}
	return Histogram{Bars: line("tsv", candles, out)}
}
