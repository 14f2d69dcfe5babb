package indicator

import (
	"math"
	"testing"

	"chartcore/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func closeBar(t int64, c float64) model.Candle {
	return model.Candle{Time: t, Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 100}
}

func closeBars(cs ...float64) []model.Candle {
	out := make([]model.Candle, len(cs))
	for i, c := range cs {
		out[i] = closeBar(int64(i)*60, c)
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func assertNaN(t *testing.T, label string, got float64) {
	t.Helper()
	if !math.IsNaN(got) {
		t.Errorf("%s: got %.6f, want NaN", label, got)
	}
}

// ────────────────────────────────────────────────────────────
// SMA
// ────────────────────────────────────────────────────────────

func TestSMA_Spec_Period2(t *testing.T) {
	// Candles: closes 11, 13, 12 → SMA(2) = [NaN, 12.0, 12.5]
	candles := []model.Candle{
		{Time: 0, Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Time: 60, Open: 11, High: 14, Low: 10, Close: 13, Volume: 150},
		{Time: 120, Open: 13, High: 13, Low: 11, Close: 12, Volume: 120},
	}
	out := SMACalc(candles, 2).Set[0].Points
	assertNaN(t, "sma[0]", out[0].Value)
	assertClose(t, "sma[1]", out[1].Value, 12.0, 1e-9)
	assertClose(t, "sma[2]", out[2].Value, 12.5, 1e-9)
}

func TestSMA_WarmupContract(t *testing.T) {
	// SMA(20) over 25 candles: exactly the first 19 outputs NaN.
	candles := make([]model.Candle, 25)
	for i := range candles {
		candles[i] = closeBar(int64(i)*60, 100+float64(i))
	}
	out := SMACalc(candles, 20).Set[0].Points
	for i := 0; i < 19; i++ {
		assertNaN(t, "warmup", out[i].Value)
	}
	for i := 19; i < 25; i++ {
		if !out[i].Defined() {
			t.Errorf("sma[%d] not finite", i)
		}
	}
	// closes 100..119 → mean 109.5
	assertClose(t, "sma[19]", out[19].Value, 109.5, 1e-9)
}

// ────────────────────────────────────────────────────────────
// EMA
// ────────────────────────────────────────────────────────────

func TestEMA_SeedsFromSMA(t *testing.T) {
	// EMA(3), k = 0.5. Closes: 100, 102, 104, 103, 105.
	// Seed at index 2: (100+102+104)/3 = 102
	// idx 3: 103*0.5 + 102*0.5   = 102.5
	// idx 4: 105*0.5 + 102.5*0.5 = 103.75
	out := EMACalc(closeBars(100, 102, 104, 103, 105), 3).Set[0].Points
	assertNaN(t, "ema[0]", out[0].Value)
	assertNaN(t, "ema[1]", out[1].Value)
	assertClose(t, "ema[2]", out[2].Value, 102.0, 1e-9)
	assertClose(t, "ema[3]", out[3].Value, 102.5, 1e-9)
	assertClose(t, "ema[4]", out[4].Value, 103.75, 1e-9)
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_WarmupAndBounds(t *testing.T) {
	candles := closeBars(44, 44.5, 43.8, 44.2, 44.9, 45.1, 44.7, 45.3, 45.8, 45.5,
		46.0, 46.2, 45.9, 46.5, 46.8, 46.3, 46.9, 47.2, 46.8, 47.5)
	out := RSICalc(candles, 14).Set[0].Points
	for i := 0; i < 14; i++ {
		assertNaN(t, "rsi warmup", out[i].Value)
	}
	for i := 14; i < len(out); i++ {
		if !out[i].Defined() {
			t.Fatalf("rsi[%d] not finite", i)
		}
		if out[i].Value < 0 || out[i].Value > 100 {
			t.Errorf("rsi[%d] = %v outside [0,100]", i, out[i].Value)
		}
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	out := RSICalc(closeBars(1, 2, 3, 4, 5, 6, 7, 8), 5).Set[0].Points
	assertClose(t, "rsi monotonic up", out[7].Value, 100, 1e-9)
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestMACD_HistogramIdentity(t *testing.T) {
	candles := make([]model.Candle, 80)
	for i := range candles {
		candles[i] = closeBar(int64(i)*60, 100+10*math.Sin(float64(i)/7))
	}
	out := MACDCalc(candles, 12, 26, 9)
	macd := out.LineSet[0].Points
	sig := out.LineSet[1].Points
	hist := out.Bars.Points
	for i := range candles {
		if hist[i].Defined() {
			assertClose(t, "hist = macd - signal", hist[i].Value, macd[i].Value-sig[i].Value, 1e-9)
		}
	}
	// Signal warm-up extends beyond the MACD line's.
	if macd[25].Defined() && hist[25].Defined() {
		t.Error("histogram defined before signal warm-up complete")
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger
// ────────────────────────────────────────────────────────────

func TestBollinger_HandCalc(t *testing.T) {
	// Period 4, mult 2, closes 2, 4, 6, 8:
	// middle = 5, population stdev = sqrt((9+1+1+9)/4) = sqrt(5)
	out := BollingerCalc(closeBars(2, 4, 6, 8), 4, 2)
	sd := math.Sqrt(5)
	assertClose(t, "middle", out.Middle.Points[3].Value, 5, 1e-9)
	assertClose(t, "upper", out.Upper.Points[3].Value, 5+2*sd, 1e-9)
	assertClose(t, "lower", out.Lower.Points[3].Value, 5-2*sd, 1e-9)
	assertNaN(t, "middle warmup", out.Middle.Points[2].Value)
}

// ────────────────────────────────────────────────────────────
// Stochastic / Williams
// ────────────────────────────────────────────────────────────

func TestStochastic_FlatWindowIsNaN(t *testing.T) {
	candles := make([]model.Candle, 10)
	for i := range candles {
		candles[i] = model.Candle{Time: int64(i) * 60, Open: 5, High: 5, Low: 5, Close: 5, Volume: 1}
	}
	out := StochasticCalc(candles, 5, 3, 1)
	for i := range out.Set[0].Points {
		assertNaN(t, "flat %K", out.Set[0].Points[i].Value)
	}
}

func TestWilliamsR_Range(t *testing.T) {
	candles := make([]model.Candle, 30)
	for i := range candles {
		c := 100 + 5*math.Sin(float64(i))
		candles[i] = model.Candle{Time: int64(i) * 60, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1}
	}
	out := WilliamsRCalc(candles, 14).Set[0].Points
	for i := 13; i < 30; i++ {
		if out[i].Value > 0 || out[i].Value < -100 {
			t.Errorf("willr[%d] = %v outside [-100,0]", i, out[i].Value)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Volume family
// ────────────────────────────────────────────────────────────

func TestOBV_HandCalc(t *testing.T) {
	candles := []model.Candle{
		{Time: 0, Close: 10, Volume: 100},
		{Time: 60, Close: 11, Volume: 50},  // up → +50
		{Time: 120, Close: 10, Volume: 30}, // down → -30
		{Time: 180, Close: 10, Volume: 99}, // flat → unchanged
	}
	out := OBVCalc(candles).Set[0].Points
	want := []float64{0, 50, 20, 20}
	for i := range want {
		assertClose(t, "obv", out[i].Value, want[i], 1e-9)
	}
}

func TestEOM_ZeroRangeIsNaN(t *testing.T) {
	candles := []model.Candle{
		{Time: 0, Open: 5, High: 6, Low: 4, Close: 5, Volume: 100},
		{Time: 60, Open: 5, High: 5, Low: 5, Close: 5, Volume: 100}, // zero range
	}
	out := EOMCalc(candles, 1).Set[0].Points
	assertNaN(t, "eom zero-range", out[1].Value)
}

// ────────────────────────────────────────────────────────────
// Anchored VWAP
// ────────────────────────────────────────────────────────────

func TestVWAP_AnchoredCumulative(t *testing.T) {
	// Typical prices: bar0 tp=10 v=100, bar1 tp=20 v=300.
	candles := []model.Candle{
		{Time: 0, High: 11, Low: 9, Close: 10, Volume: 100},
		{Time: 60, High: 21, Low: 19, Close: 20, Volume: 300},
	}
	out := VWAPCalc(candles, 0, 2, false)
	assertClose(t, "vwap[0]", out.Middle.Points[0].Value, 10, 1e-9)
	// (10*100 + 20*300) / 400 = 17.5
	assertClose(t, "vwap[1]", out.Middle.Points[1].Value, 17.5, 1e-9)
	assertNaN(t, "bands disabled", out.Upper.Points[1].Value)
}

func TestVWAP_AnchorSkipsEarlierBars(t *testing.T) {
	candles := []model.Candle{
		{Time: 0, High: 11, Low: 9, Close: 10, Volume: 100},
		{Time: 60, High: 21, Low: 19, Close: 20, Volume: 300},
		{Time: 120, High: 31, Low: 29, Close: 30, Volume: 100},
	}
	out := VWAPCalc(candles, 1, 1, true)
	assertNaN(t, "before anchor", out.Middle.Points[0].Value)
	assertClose(t, "vwap at anchor", out.Middle.Points[1].Value, 20, 1e-9)
	// (20*300 + 30*100) / 400 = 22.5
	assertClose(t, "vwap after anchor", out.Middle.Points[2].Value, 22.5, 1e-9)
}
