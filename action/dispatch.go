package action

import (
	"fmt"
	"sort"
	"sync"
)

// ErrNoVariant is returned when no registered variant's predicates and
// parameter signature match a dispatch call's arguments.
var ErrNoVariant = fmt.Errorf("action: no matching dispatch variant")

// Param is one named, predicate-guarded parameter of a dispatch Variant.
type Param struct {
	Name      string
	Predicate Predicate
}

// Variant is one overload of a dispatched action's execute step. Variants
// register in source order and are tried in that order; the first whose
// parameter set (names) and per-parameter predicates all match wins.
type Variant struct {
	Name   string
	Params []Param
	Fn     func(asset Asset, ctx Context, args map[string]interface{}) interface{}
}

// signature is the variant's memoized, sorted parameter-name set, computed
// once the first time the variant is considered and cached thereafter —
// mirroring the "memoizes parameter signatures... once per function"
// behavior.
type signature struct {
	names []string
}

// has reports whether name is one of the signature's declared parameter
// names, via binary search over the sorted slice signatureOf built.
func (s signature) has(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Dispatch is a named multi-variant dispatch point: a dispatched action
// registers one or more Variants under it, and Call selects and invokes the
// first matching one.
type Dispatch struct {
	mu       sync.RWMutex
	name     string
	variants []*Variant
	sigCache map[*Variant]signature
}

// NewDispatch returns an empty dispatch namespace named name (used only for
// diagnostics and the no-variant error).
func NewDispatch(name string) *Dispatch {
	return &Dispatch{name: name, sigCache: map[*Variant]signature{}}
}

// Register appends v to the variant list, in call order.
func (d *Dispatch) Register(v *Variant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.variants = append(d.variants, v)
}

func (d *Dispatch) signatureOf(v *Variant) signature {
	d.mu.RLock()
	sig, ok := d.sigCache[v]
	d.mu.RUnlock()
	if ok {
		return sig
	}

	names := make([]string, len(v.Params))
	for i, p := range v.Params {
		names[i] = p.Name
	}
	sort.Strings(names)
	sig = signature{names: names}

	d.mu.Lock()
	d.sigCache[v] = sig
	d.mu.Unlock()
	return sig
}

// Call selects the first variant whose parameter signature and predicates
// match args, then invokes it directly — Call does not itself recover a
// panic or wrap a Go error from the matched variant; the surrounding
// Action's Execute/Invoke is responsible for that, so a throwing variant's
// exception always propagates out of Call rather than being swallowed
// here.
func (d *Dispatch) Call(asset Asset, ctx Context, args map[string]interface{}) interface{} {
	d.mu.RLock()
	variants := append([]*Variant(nil), d.variants...)
	d.mu.RUnlock()

	for _, v := range variants {
		if d.matches(v, args) {
			return v.Fn(asset, ctx, args)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoVariant, d.name)
}

// matches reports whether v is selectable for args: every key in args must
// be one of v's declared parameter names (the memoized signature rejects
// calls carrying extra, undeclared keys), and every declared parameter's
// predicate must accept the (possibly absent) value supplied for it.
func (d *Dispatch) matches(v *Variant, args map[string]interface{}) bool {
	sig := d.signatureOf(v)
	for key := range args {
		if !sig.has(key) {
			return false
		}
	}

	for _, p := range v.Params {
		val, present := args[p.Name]
		pred := p.Predicate
		if pred == nil {
			pred = Any()
		}
		if !pred(val, present) {
			return false
		}
	}
	return true
}
