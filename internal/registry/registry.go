// Package registry is the static indicator catalog: for every indicator
// type it declares the configurable parameters, output series names, render
// hint, and pane placement. The catalog drives both parameter editing and
// the renderer's series construction; it contains no computation.
package registry

import (
	"errors"
	"fmt"
)

// Type identifies an indicator in the catalog.
type Type string

const (
	SMA        Type = "SMA"
	EMA        Type = "EMA"
	WMA        Type = "WMA"
	HMA        Type = "HMA"
	RSI        Type = "RSI"
	MACD       Type = "MACD"
	Bollinger  Type = "BBANDS"
	Stochastic Type = "STOCH"
	StochRSI   Type = "STOCHRSI"
	CCI        Type = "CCI"
	ROC        Type = "ROC"
	WilliamsR  Type = "WILLR"
	TRIX       Type = "TRIX"
	ATR        Type = "ATR"
	Keltner    Type = "KELTNER"
	Donchian   Type = "DONCHIAN"
	ADX        Type = "ADX"
	Aroon      Type = "AROON"
	Supertrend Type = "SUPERTREND"
	PSAR       Type = "PSAR"
	Ichimoku   Type = "ICHIMOKU"
	OBV        Type = "OBV"
	MFI        Type = "MFI"
	CMF        Type = "CMF"
	ADL        Type = "ADL"
	ForceIndex Type = "FORCE"
	EOM        Type = "EOM"
	TSV        Type = "TSV"
	VWAP       Type = "VWAP"
	VRVP       Type = "VRVP"
)

// Hint tells the renderer how an indicator's outputs are drawn.
type Hint int

const (
	HintLine Hint = iota
	HintHistogram
	HintBands
	HintCloud
	HintProfile
)

// Pane places an indicator on the main price chart or in its own sub-pane.
type Pane int

const (
	Overlay Pane = iota
	Separate
)

// ParamKind is the UI type of a parameter.
type ParamKind int

const (
	Number ParamKind = iota
	Color
	Boolean
	Select
)

// ParamDef declares one configurable parameter.
type ParamDef struct {
	Name    string
	Kind    ParamKind
	Default any
	Min     float64 // Number only
	Max     float64
	Step    float64
	Options []string // Select only
}

// Descriptor is one catalog entry.
type Descriptor struct {
	Type    Type
	Label   string
	Params  []ParamDef
	Outputs []string
	Hint    Hint
	Pane    Pane
}

// ErrUnknownType is returned by Lookup for a type not in the catalog.
var ErrUnknownType = errors.New("registry: unknown indicator type")

func num(name string, def, min, max, step float64) ParamDef {
	return ParamDef{Name: name, Kind: Number, Default: def, Min: min, Max: max, Step: step}
}

func period(def float64) ParamDef { return num("period", def, 1, 500, 1) }

var catalog = []Descriptor{
	{SMA, "Simple Moving Average", []ParamDef{period(20)}, []string{"sma"}, HintLine, Overlay},
	{EMA, "Exponential Moving Average", []ParamDef{period(20)}, []string{"ema"}, HintLine, Overlay},
	{WMA, "Weighted Moving Average", []ParamDef{period(20)}, []string{"wma"}, HintLine, Overlay},
	{HMA, "Hull Moving Average", []ParamDef{period(16)}, []string{"hma"}, HintLine, Overlay},
	{RSI, "Relative Strength Index", []ParamDef{period(14)}, []string{"rsi"}, HintLine, Separate},
	{MACD, "MACD", []ParamDef{
		num("fast", 12, 1, 500, 1), num("slow", 26, 1, 500, 1), num("signal", 9, 1, 500, 1),
	}, []string{"macd", "signal", "histogram"}, HintHistogram, Separate},
	{Bollinger, "Bollinger Bands", []ParamDef{
		period(20), num("stddev", 2, 0.1, 10, 0.1),
	}, []string{"middle", "upper", "lower"}, HintBands, Overlay},
	{Stochastic, "Stochastic", []ParamDef{
		num("k_period", 14, 1, 500, 1), num("d_period", 3, 1, 100, 1), num("smooth", 3, 1, 100, 1),
	}, []string{"k", "d"}, HintLine, Separate},
	{StochRSI, "Stochastic RSI", []ParamDef{
		num("rsi_period", 14, 2, 500, 1), num("stoch_period", 14, 1, 500, 1),
		num("k_smooth", 3, 1, 100, 1), num("d_smooth", 3, 1, 100, 1),
	}, []string{"k", "d"}, HintLine, Separate},
	{CCI, "Commodity Channel Index", []ParamDef{period(20)}, []string{"cci"}, HintLine, Separate},
	{ROC, "Rate of Change", []ParamDef{period(12)}, []string{"roc"}, HintLine, Separate},
	{WilliamsR, "Williams %R", []ParamDef{period(14)}, []string{"willr"}, HintLine, Separate},
	{TRIX, "TRIX", []ParamDef{period(15)}, []string{"trix"}, HintLine, Separate},
	{ATR, "Average True Range", []ParamDef{period(14)}, []string{"atr"}, HintLine, Separate},
	{Keltner, "Keltner Channels", []ParamDef{
		num("ema_period", 20, 1, 500, 1), num("atr_period", 10, 1, 500, 1), num("multiplier", 2, 0.1, 10, 0.1),
	}, []string{"middle", "upper", "lower"}, HintBands, Overlay},
	{Donchian, "Donchian Channels", []ParamDef{period(20)}, []string{"middle", "upper", "lower"}, HintBands, Overlay},
	{ADX, "Average Directional Index", []ParamDef{period(14)}, []string{"adx", "plus_di", "minus_di"}, HintLine, Separate},
	{Aroon, "Aroon", []ParamDef{period(25)}, []string{"up", "down"}, HintLine, Separate},
	{Supertrend, "Supertrend", []ParamDef{
		num("atr_period", 10, 1, 500, 1), num("multiplier", 3, 0.1, 20, 0.1),
	}, []string{"supertrend"}, HintLine, Overlay},
	{PSAR, "Parabolic SAR", []ParamDef{
		num("step", 0.02, 0.001, 1, 0.001), num("max_step", 0.2, 0.01, 1, 0.01),
	}, []string{"psar"}, HintLine, Overlay},
	{Ichimoku, "Ichimoku Cloud", []ParamDef{
		num("conversion", 9, 1, 500, 1), num("base", 26, 1, 500, 1), num("span_b", 52, 1, 500, 1),
	}, []string{"conversion", "base", "span_a", "span_b", "lagging"}, HintCloud, Overlay},
	{OBV, "On-Balance Volume", nil, []string{"obv"}, HintLine, Separate},
	{MFI, "Money Flow Index", []ParamDef{period(14)}, []string{"mfi"}, HintLine, Separate},
	{CMF, "Chaikin Money Flow", []ParamDef{period(20)}, []string{"cmf"}, HintLine, Separate},
	{ADL, "Accumulation/Distribution Line", nil, []string{"adl"}, HintLine, Separate},
	{ForceIndex, "Force Index", []ParamDef{period(13)}, []string{"force"}, HintLine, Separate},
	{EOM, "Ease of Movement", []ParamDef{period(14)}, []string{"eom"}, HintLine, Separate},
	{TSV, "Time Segmented Volume", []ParamDef{period(13)}, []string{"tsv"}, HintHistogram, Separate},
	{VWAP, "Anchored VWAP", []ParamDef{
		{Name: "anchor", Kind: Select, Default: "session", Options: []string{"session", "week", "month", "custom"}},
		num("anchor_time", 0, 0, 4102444800, 1), // unix seconds, used when anchor=custom
		num("multiplier", 2, 0.1, 10, 0.1),
		{Name: "show_bands", Kind: Boolean, Default: true},
	}, []string{"vwap", "upper", "lower"}, HintBands, Overlay},
	{VRVP, "Visible Range Volume Profile", []ParamDef{
		num("rows", 24, 2, 200, 1),
		num("value_area", 70, 1, 100, 1),
		{Name: "up_color", Kind: Color, Default: "#26a69a"},
		{Name: "down_color", Kind: Color, Default: "#ef5350"},
	}, []string{"profile"}, HintProfile, Overlay},
}

var byType = func() map[Type]Descriptor {
	m := make(map[Type]Descriptor, len(catalog))
	for _, d := range catalog {
		m[d.Type] = d
	}
	return m
}()

// Lookup returns the descriptor for an indicator type.
func Lookup(t Type) (Descriptor, error) {
	d, ok := byType[t]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return d, nil
}

// All returns the catalog in declaration order.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}
