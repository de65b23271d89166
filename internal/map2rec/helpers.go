package map2rec

import "errors"

var ErrUnsupportedKind = errors.New("unsupported map2rec kind")

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	default:
		return "", false
	}
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case float32:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func asStrings(v any) ([]string, bool) {
	switch xs := v.(type) {
	case []string:
		return append([]string(nil), xs...), true
	case []any:
		out := make([]string, 0, len(xs))
		for _, item := range xs {
			s, ok := asString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asWeightedOperators(v any) ([]WeightedOperator, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]WeightedOperator, 0, len(raw))
	for _, item := range raw {
		switch x := item.(type) {
		case map[string]any:
			name, ok1 := asString(x["name"])
			weight, ok2 := asFloat64(x["weight"])
			if !ok1 || !ok2 {
				return nil, false
			}
			out = append(out, WeightedOperator{Name: name, Weight: weight})
		case []any:
			if len(x) != 2 {
				return nil, false
			}
			name, ok1 := asString(x[0])
			weight, ok2 := asFloat64(x[1])
			if !ok1 || !ok2 {
				return nil, false
			}
			out = append(out, WeightedOperator{Name: name, Weight: weight})
		default:
			return nil, false
		}
	}
	return out, true
}

func asAtomSpecs(v any) ([]AtomSpec, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]AtomSpec, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		element, ok := asString(m["element"])
		if !ok {
			return nil, false
		}
		atom := AtomSpec{Element: element}
		if charge, ok := asInt(m["charge"]); ok {
			atom.Charge = charge
		}
		out = append(out, atom)
	}
	return out, true
}

func asBondSpecs(v any) ([]BondSpec, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]BondSpec, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		a, ok1 := asInt(m["a"])
		b, ok2 := asInt(m["b"])
		if !ok1 || !ok2 {
			return nil, false
		}
		bond := BondSpec{A: a, B: b, Order: 1}
		if order, ok := asInt(m["order"]); ok {
			bond.Order = order
		}
		out = append(out, bond)
	}
	return out, true
}
