package indicator

import (
	"fmt"

	"chartcore/internal/model"
	"chartcore/internal/registry"
	"chartcore/internal/session"
)

// Compute dispatches one calculation. params must already be resolved
// against the type's descriptor (registry.Descriptor.Resolve). view is the
// current visible window — only visible-range indicators (VRVP) read it.
func Compute(typ registry.Type, candles []model.Candle, params registry.Params, view model.Window) (Output, error) {
	switch typ {
	case registry.SMA:
		return SMACalc(candles, params.Int("period")), nil
	case registry.EMA:
		return EMACalc(candles, params.Int("period")), nil
	case registry.WMA:
		return WMACalc(candles, params.Int("period")), nil
	case registry.HMA:
		return HMACalc(candles, params.Int("period")), nil
	case registry.RSI:
		return RSICalc(candles, params.Int("period")), nil
	case registry.MACD:
		return MACDCalc(candles, params.Int("fast"), params.Int("slow"), params.Int("signal")), nil
	case registry.Bollinger:
		return BollingerCalc(candles, params.Int("period"), params.Float("stddev")), nil
	case registry.Stochastic:
		return StochasticCalc(candles, params.Int("k_period"), params.Int("d_period"), params.Int("smooth")), nil
	case registry.StochRSI:
		return StochRSICalc(candles, params.Int("rsi_period"), params.Int("stoch_period"),
			params.Int("k_smooth"), params.Int("d_smooth")), nil
	case registry.CCI:
		return CCICalc(candles, params.Int("period")), nil
	case registry.ROC:
		return ROCCalc(candles, params.Int("period")), nil
	case registry.WilliamsR:
		return WilliamsRCalc(candles, params.Int("period")), nil
	case registry.TRIX:
		return TRIXCalc(candles, params.Int("period")), nil
	case registry.ATR:
		return ATRCalc(candles, params.Int("period")), nil
	case registry.Keltner:
		return KeltnerCalc(candles, params.Int("ema_period"), params.Int("atr_period"), params.Float("multiplier")), nil
	case registry.Donchian:
		return DonchianCalc(candles, params.Int("period")), nil
	case registry.ADX:
		return ADXCalc(candles, params.Int("period")), nil
	case registry.Aroon:
		return AroonCalc(candles, params.Int("period")), nil
	case registry.Supertrend:
		return SupertrendCalc(candles, params.Int("atr_period"), params.Float("multiplier")), nil
	case registry.PSAR:
		return PSARCalc(candles, params.Float("step"), params.Float("max_step")), nil
	case registry.Ichimoku:
		return IchimokuCalc(candles, params.Int("conversion"), params.Int("base"), params.Int("span_b")), nil
	case registry.OBV:
		return OBVCalc(candles), nil
	case registry.MFI:
		return MFICalc(candles, params.Int("period")), nil
	case registry.CMF:
		return CMFCalc(candles, params.Int("period")), nil
	case registry.ADL:
		return ADLCalc(candles), nil
	case registry.ForceIndex:
		return ForceIndexCalc(candles, params.Int("period")), nil
	case registry.EOM:
		return EOMCalc(candles, params.Int("period")), nil
	case registry.TSV:
		return TSVCalc(candles, params.Int("period")), nil
	case registry.VWAP:
		anchor := session.AnchorIndex(candles, params.Str("anchor"), int64(params.Float("anchor_time")))
		return VWAPCalc(candles, anchor, params.Float("multiplier"), params.Bool("show_bands")), nil
	case registry.VRVP:
		return VRVPCalc(candles, view, params.Int("rows"), params.Float("value_area")), nil
	}
	return nil, fmt.Errorf("indicator: no calculator for type %q", typ)
}
