package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"chartcore/internal/model"
)

func fullWindow(n int) model.Window {
	return model.Window{StartIndex: 0, VisibleCount: n}
}

func TestVRVP_SplitsVolumeAcrossSpannedRows(t *testing.T) {
	// One candle spanning the whole 0..10 range, 4 rows → 25 volume each.
	candles := []model.Candle{
		{Time: 0, Open: 2, High: 10, Low: 0, Close: 8, Volume: 100},
	}
	p := VRVPCalc(candles, fullWindow(1), 4, 70)
	if len(p.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(p.Rows))
	}
	for i, r := range p.Rows {
		if math.Abs(r.Buy-25) > 1e-9 { // close >= open → buy volume
			t.Errorf("row %d buy = %v, want 25", i, r.Buy)
		}
		if r.Sell != 0 {
			t.Errorf("row %d sell = %v, want 0", i, r.Sell)
		}
	}
}

func TestVRVP_BuySellAttribution(t *testing.T) {
	candles := []model.Candle{
		{Time: 0, Open: 1, High: 2, Low: 0, Close: 2, Volume: 60},  // bullish
		{Time: 60, Open: 2, High: 2, Low: 0, Close: 1, Volume: 40}, // bearish
	}
	p := VRVPCalc(candles, fullWindow(2), 2, 70)
	var buy, sell float64
	for _, r := range p.Rows {
		buy += r.Buy
		sell += r.Sell
	}
	if math.Abs(buy-60) > 1e-9 || math.Abs(sell-40) > 1e-9 {
		t.Errorf("buy/sell = %v/%v, want 60/40", buy, sell)
	}
}

func TestVRVP_POCAndValueArea(t *testing.T) {
	// Three candles, each confined to its own row; middle row dominates.
	// Visible price range 0.1..2.9, 3 rows of height ~0.9333.
	candles := []model.Candle{
		{Time: 0, Open: 0.5, High: 0.9, Low: 0.1, Close: 0.8, Volume: 10},
		{Time: 60, Open: 1.5, High: 1.9, Low: 1.1, Close: 1.8, Volume: 80},
		{Time: 120, Open: 2.5, High: 2.9, Low: 2.1, Close: 2.8, Volume: 30},
	}
	p := VRVPCalc(candles, fullWindow(3), 3, 70)
	if p.POC != 1 {
		t.Fatalf("POC = %d, want 1", p.POC)
	}
	// 70% of 120 = 84 → POC row (80) plus the larger neighbor (30, above).
	if p.ValueLow != 1 || p.ValueHigh != 2 {
		t.Errorf("value area rows = [%d, %d], want [1, 2]", p.ValueLow, p.ValueHigh)
	}
	assertClose(t, "VAL", p.VAL, p.Rows[1].PriceLow, 1e-9)
	assertClose(t, "VAH", p.VAH, 2.9, 1e-9)
}

func TestVRVP_TieBreakPrefersUpward(t *testing.T) {
	// Equal neighbors around the POC: expansion must go up first.
	candles := []model.Candle{
		{Time: 0, Open: 0.5, High: 0.9, Low: 0.1, Close: 0.8, Volume: 20},
		{Time: 60, Open: 1.5, High: 1.9, Low: 1.1, Close: 1.8, Volume: 50},
		{Time: 120, Open: 2.5, High: 2.9, Low: 2.1, Close: 2.8, Volume: 20},
	}
	p := VRVPCalc(candles, fullWindow(3), 3, 60)
	// 60% of 90 = 54 → POC (50) + one neighbor; tie → upward.
	if p.ValueLow != 1 || p.ValueHigh != 2 {
		t.Errorf("value area rows = [%d, %d], want [1, 2] (upward tie-break)", p.ValueLow, p.ValueHigh)
	}
}

func TestVRVP_EmptyAndFlat(t *testing.T) {
	p := VRVPCalc(nil, fullWindow(0), 10, 70)
	if p.POC != -1 || len(p.Rows) != 0 {
		t.Errorf("empty profile: POC=%d rows=%d", p.POC, len(p.Rows))
	}

	flat := []model.Candle{{Time: 0, Open: 5, High: 5, Low: 5, Close: 5, Volume: 42}}
	p = VRVPCalc(flat, fullWindow(1), 10, 70)
	if len(p.Rows) != 1 {
		t.Fatalf("flat range rows = %d, want 1", len(p.Rows))
	}
	assertClose(t, "flat volume", p.Rows[0].Total(), 42, 1e-9)
}

func TestVRVP_UsesOnlyVisibleCandles(t *testing.T) {
	candles := []model.Candle{
		{Time: 0, Open: 1, High: 100, Low: 99, Close: 2, Volume: 1000}, // outside window
		{Time: 60, Open: 1, High: 2, Low: 0, Close: 2, Volume: 10},
		{Time: 120, Open: 1, High: 2, Low: 0, Close: 2, Volume: 10},
	}
	p := VRVPCalc(candles, model.Window{StartIndex: 1, VisibleCount: 2}, 4, 70)
	assertClose(t, "visible-only total", p.TotalVolume, 20, 1e-9)
	// Price range comes from visible bars only.
	top := p.Rows[len(p.Rows)-1].PriceHigh
	assertClose(t, "visible price top", top, 2, 1e-9)
}

func TestProperty_VRVPValueAreaCoversTarget(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	properties.Property("value area cumulative volume >= target pct", prop.ForAll(
		func(seed int64, n, rows int, pct float64) bool {
			rng := newTestRand(seed)
			candles := make([]model.Candle, n)
			for i := range candles {
				base := 50 + 20*rng()
				span := 5 * rng()
				candles[i] = model.Candle{
					Time: int64(i) * 60,
					Open: base, High: base + span, Low: base - span, Close: base + span*(rng()-0.5),
					Volume: 1 + 100*rng(),
				}
			}
			p := VRVPCalc(candles, fullWindow(n), rows, pct)
			var cum float64
			for i := p.ValueLow; i <= p.ValueHigh; i++ {
				cum += p.Rows[i].Total()
			}
			covered := cum >= pct/100*p.TotalVolume-1e-6
			wholeRange := p.ValueLow == 0 && p.ValueHigh == len(p.Rows)-1
			return covered || wholeRange
		},
		gen.Int64Range(1, 1<<30),
		gen.IntRange(1, 60),
		gen.IntRange(2, 40),
		gen.Float64Range(10, 95),
	))

	properties.TestingRun(t)
}

// newTestRand returns a deterministic [0,1) generator (xorshift) so
// property failures reproduce from the seed.
func newTestRand(seed int64) func() float64 {
	s := uint64(seed)
	return func() float64 {
		s ^= s << 13
		s ^= s >> 7
		s ^= s << 17
		return float64(s%1_000_000) / 1_000_000
	}
}
