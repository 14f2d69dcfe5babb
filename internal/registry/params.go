package registry

import (
	"errors"
	"fmt"
)

// Params is a validated parameter set for one indicator instance. Values
// are guaranteed present and of the declared kind after Descriptor.Resolve,
// so the typed getters never fail.
type Params map[string]any

// ErrBadParam is returned by Resolve for an unknown, mistyped, or
// out-of-range parameter value.
var ErrBadParam = errors.New("registry: invalid parameter")

// Resolve merges the supplied values over the descriptor's defaults and
// validates kinds and ranges. Unknown parameter names are rejected rather
// than ignored so a typo never silently falls back to a default.
func (d Descriptor) Resolve(supplied map[string]any) (Params, error) {
	defs := make(map[string]ParamDef, len(d.Params))
	out := make(Params, len(d.Params))
	for _, pd := range d.Params {
		defs[pd.Name] = pd
		out[pd.Name] = pd.Default
	}

	for name, val := range supplied {
		pd, ok := defs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrBadParam, d.Type, name)
		}
		switch pd.Kind {
		case Number:
			f, ok := toFloat(val)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s: want number, got %T", ErrBadParam, d.Type, name, val)
			}
			if f < pd.Min || f > pd.Max {
				return nil, fmt.Errorf("%w: %s.%s: %v outside [%v, %v]", ErrBadParam, d.Type, name, f, pd.Min, pd.Max)
			}
			out[name] = f
		case Boolean:
			b, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s: want bool, got %T", ErrBadParam, d.Type, name, val)
			}
			out[name] = b
		case Color:
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s: want color string, got %T", ErrBadParam, d.Type, name, val)
			}
			out[name] = s
		case Select:
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s: want option string, got %T", ErrBadParam, d.Type, name, val)
			}
			found := false
			for _, opt := range pd.Options {
				if opt == s {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("%w: %s.%s: %q not in %v", ErrBadParam, d.Type, name, s, pd.Options)
			}
			out[name] = s
		}
	}
	return out, nil
}

// Int returns a number parameter truncated to int.
func (p Params) Int(name string) int {
	f, _ := toFloat(p[name])
	return int(f)
}

// Float returns a number parameter.
func (p Params) Float(name string) float64 {
	f, _ := toFloat(p[name])
	return f
}

// Bool returns a boolean parameter.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// Str returns a select or color parameter.
func (p Params) Str(name string) string {
	s, _ := p[name].(string)
	return s
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
