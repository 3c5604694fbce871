package action

import "reflect"

// Predicate tests a single parameter value (and whether it was present at
// all) during dispatch variant selection.
type Predicate func(value interface{}, present bool) bool

// IsA matches when the argument's concrete type equals sample's.
func IsA(sample interface{}) Predicate {
	want := reflect.TypeOf(sample)
	return func(v interface{}, present bool) bool {
		return present && reflect.TypeOf(v) == want
	}
}

// IsOfType matches when the argument's concrete type equals any of
// samples'.
func IsOfType(samples ...interface{}) Predicate {
	types := make([]reflect.Type, len(samples))
	for i, s := range samples {
		types[i] = reflect.TypeOf(s)
	}
	return func(v interface{}, present bool) bool {
		if !present {
			return false
		}
		t := reflect.TypeOf(v)
		for _, want := range types {
			if t == want {
				return true
			}
		}
		return false
	}
}

// InRange matches a present numeric argument in [lo, hi].
func InRange(lo, hi float64) Predicate {
	return func(v interface{}, present bool) bool {
		if !present {
			return false
		}
		f, ok := toFloat(v)
		return ok && f >= lo && f <= hi
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// When is the AND combinator: every predicate must match.
func When(preds ...Predicate) Predicate {
	return func(v interface{}, present bool) bool {
		for _, p := range preds {
			if !p(v, present) {
				return false
			}
		}
		return true
	}
}

// Either is the OR combinator: at least one predicate must match.
func Either(preds ...Predicate) Predicate {
	return func(v interface{}, present bool) bool {
		for _, p := range preds {
			if p(v, present) {
				return true
			}
		}
		return false
	}
}

// OneOf is the XOR combinator: exactly one predicate must match.
func OneOf(preds ...Predicate) Predicate {
	return func(v interface{}, present bool) bool {
		count := 0
		for _, p := range preds {
			if p(v, present) {
				count++
			}
		}
		return count == 1
	}
}

// Optional wraps p so that an absent argument also matches (the variant
// accepts the parameter being omitted entirely).
func Optional(p Predicate) Predicate {
	return func(v interface{}, present bool) bool {
		if !present {
			return true
		}
		return p(v, present)
	}
}

// NotPresent matches only when the argument is absent.
func NotPresent() Predicate {
	return func(_ interface{}, present bool) bool { return !present }
}

// Call wraps an arbitrary user predicate function; it only runs when the
// argument is present.
func Call(f func(interface{}) bool) Predicate {
	return func(v interface{}, present bool) bool {
		return present && f(v)
	}
}

// Any matches unconditionally, present or not; useful for parameters whose
// variant selection depends only on name/arity.
func Any() Predicate {
	return func(interface{}, bool) bool { return true }
}
