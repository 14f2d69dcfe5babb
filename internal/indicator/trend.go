package indicator

import (
	"math"

	"chartcore/internal/model"
)

// ADXCalc computes the Average Directional Index with its +DI/-DI lines,
// all Wilder-smoothed over the period.
func ADXCalc(candles []model.Candle, period int) Lines {
	n := len(candles)
	tr := nanSlice(n)
	dmPlus := nanSlice(n)
	dmMinus := nanSlice(n)
	for i := 1; i < n; i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))

		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		dmPlus[i], dmMinus[i] = 0, 0
		if up > down && up > 0 {
			dmPlus[i] = up
		}
		if down > up && down > 0 {
			dmMinus[i] = down
		}
	}

	smTR := wilderOver(tr, period)
	smPlus := wilderOver(dmPlus, period)
	smMinus := wilderOver(dmMinus, period)

	plusDI := nanSlice(n)
	minusDI := nanSlice(n)
	dx := nanSlice(n)
	for i := range candles {
		if math.IsNaN(smTR[i]) || smTR[i] == 0 {
			continue
		}
		plusDI[i] = 100 * smPlus[i] / smTR[i]
		minusDI[i] = 100 * smMinus[i] / smTR[i]
		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
	}
	adx := wilderOver(dx, period)

	return Lines{Set: []NamedSeries{
		line("adx", candles, adx),
		line("plus_di", candles, plusDI),
		line("minus_di", candles, minusDI),
	}}
}

// AroonCalc: up = 100 × (period - bars since highest high) / period over a
// period+1 bar lookback; down analogously for the lowest low.
func AroonCalc(candles []model.Candle, period int) Lines {
	n := len(candles)
	up := nanSlice(n)
	down := nanSlice(n)
	for i := period; i < n; i++ {
		hiIdx, loIdx := i-period, i-period
		for j := i - period; j <= i; j++ {
			if candles[j].High >= candles[hiIdx].High {
				hiIdx = j
			}
			if candles[j].Low <= candles[loIdx].Low {
				loIdx = j
			}
		}
		up[i] = 100 * float64(period-(i-hiIdx)) / float64(period)
		down[i] = 100 * float64(period-(i-loIdx)) / float64(period)
	}
	return Lines{Set: []NamedSeries{line("up", candles, up), line("down", candles, down)}}
}

// SupertrendCalc draws the trailing stop line: the final lower band while
// in an uptrend, the final upper band while in a downtrend. Band carry and
// flip rules follow the standard formulation.
func SupertrendCalc(candles []model.Candle, atrPeriod int, mult float64) Lines {
	n := len(candles)
	atr := atrOver(candles, atrPeriod)
	out := nanSlice(n)

	var finalUpper, finalLower float64
	uptrend := true
	started := false
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) {
			continue
		}
		mid := (candles[i].High + candles[i].Low) / 2
		basicUpper := mid + mult*atr[i]
		basicLower := mid - mult*atr[i]

		if !started {
			finalUpper, finalLower = basicUpper, basicLower
			uptrend = candles[i].Close >= mid
			started = true
		} else {
			// Bands only tighten unless price closed beyond them.
			if basicUpper < finalUpper || candles[i-1].Close > finalUpper {
				finalUpper = basicUpper
			}
			if basicLower > finalLower || candles[i-1].Close < finalLower {
				finalLower = basicLower
			}
			if uptrend && candles[i].Close < finalLower {
				uptrend = false
				finalUpper = basicUpper
			} else if !uptrend && candles[i].Close > finalUpper {
				uptrend = true
				finalLower = basicLower
			}
		}

		if uptrend {
			out[i] = finalLower
		} else {
			out[i] = finalUpper
		}
	}
	return Lines{Set: []NamedSeries{line("supertrend", candles, out)}}
}

// PSARCalc computes Wilder's Parabolic SAR with the given acceleration
// step and maximum.
func PSARCalc(candles []model.Candle, step, maxStep float64) Lines {
	n := len(candles)
	out := nanSlice(n)
	if n < 2 {
		return Lines{Set: []NamedSeries{line("psar", candles, out)}}
	}

	rising := candles[1].Close >= candles[0].Close
	af := step
	var sar, ep float64
	if rising {
		sar = candles[0].Low
		ep = candles[1].High
	} else {
		sar = candles[0].High
		ep = candles[1].Low
	}
	out[1] = sar

	for i := 2; i < n; i++ {
		sar = sar + af*(ep-sar)
		if rising {
			// SAR may not enter the prior two bars' range.
			sar = math.Min(sar, math.Min(candles[i-1].Low, candles[i-2].Low))
			if candles[i].Low < sar {
				rising = false
				sar = ep
				ep = candles[i].Low
				af = step
			} else if candles[i].High > ep {
				ep = candles[i].High
				af = math.Min(af+step, maxStep)
			}
		} else {
			sar = math.Max(sar, math.Max(candles[i-1].High, candles[i-2].High))
			if candles[i].High > sar {
				rising = true
				sar = ep
				ep = candles[i].High
				af = step
			} else if candles[i].Low < ep {
				ep = candles[i].Low
				af = math.Min(af+step, maxStep)
			}
		}
		out[i] = sar
	}
	return Lines{Set: []NamedSeries{line("psar", candles, out)}}
}

// IchimokuCalc computes the five Ichimoku series. Cloud spans are shifted
// forward by the base period and the lagging close backward by the same,
// staying within the aligned array (out-of-range points are dropped).
func IchimokuCalc(candles []model.Candle, conversion, base, spanB int) Cloud {
	n := len(candles)
	conv := donchianMid(candles, conversion)
	bs := donchianMid(candles, base)
	rawSpanB := donchianMid(candles, spanB)

	spanA := nanSlice(n)
	spanBOut := nanSlice(n)
	for i := 0; i < n; i++ {
		shifted := i + base
		if shifted >= n {
			break
		}
		if !math.IsNaN(conv[i]) && !math.IsNaN(bs[i]) {
			spanA[shifted] = (conv[i] + bs[i]) / 2
		}
		if !math.IsNaN(rawSpanB[i]) {
			spanBOut[shifted] = rawSpanB[i]
		}
	}

	lagging := nanSlice(n)
	for i := base; i < n; i++ {
		lagging[i-base] = candles[i].Close
	}

	return Cloud{
		Conversion: line("conversion", candles, conv),
		Base:       line("base", candles, bs),
		SpanA:      line("span_a", candles, spanA),
		SpanB:      line("span_b", candles, spanBOut),
		Lagging:    line("lagging", candles, lagging),
	}
}

// donchianMid is (highest high + lowest low) / 2 over the period.
func donchianMid(candles []model.Candle, period int) []float64 {
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i := range candles {
		highs[i] = candles[i].High
		lows[i] = candles[i].Low
	}
	hh := rollMax(highs, period)
	ll := rollMin(lows, period)
	out := nanSlice(len(candles))
	for i := range out {
		if !math.IsNaN(hh[i]) && !math.IsNaN(ll[i]) {
			out[i] = (hh[i] + ll[i]) / 2
		}
	}
	return out
}
