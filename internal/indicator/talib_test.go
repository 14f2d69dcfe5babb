package indicator

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
)

// Cross-validation against go-talib for the classic formulas. talib pads
// its warm-up with zeros instead of NaN, so only the defined region is
// compared.

func talibInput(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 15*math.Sin(float64(i)/6) + float64(i)/10
	}
	return out
}

func crossCheck(t *testing.T, label string, ours []float64, theirs []float64, from int) {
	t.Helper()
	for i := from; i < len(ours); i++ {
		if math.Abs(ours[i]-theirs[i]) > 1e-6 {
			t.Errorf("%s[%d]: ours %.8f, talib %.8f", label, i, ours[i], theirs[i])
		}
	}
}

func TestCrossCheck_SMA(t *testing.T) {
	vals := talibInput(100)
	period := 20
	crossCheck(t, "sma", smaOver(vals, period), talib.Sma(vals, period), period-1)
}

func TestCrossCheck_EMA(t *testing.T) {
	vals := talibInput(100)
	period := 14
	crossCheck(t, "ema", emaOver(vals, period), talib.Ema(vals, period), period-1)
}

func TestCrossCheck_RSI(t *testing.T) {
	vals := talibInput(100)
	period := 14
	out := RSICalc(closeBars(vals...), period).Set[0].Points
	ours := make([]float64, len(out))
	for i := range out {
		ours[i] = out[i].Value
	}
	crossCheck(t, "rsi", ours, talib.Rsi(vals, period), period)
}
