package path

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when a path step expects a mapping but finds a
// sequence (or vice versa).
var ErrTypeMismatch = errors.New("path: type mismatch during navigation")

// ErrNotFound is returned by Iter when a key is missing or an index is out
// of range. Get and Del report such a miss through their def argument.
var ErrNotFound = errors.New("path: not found")

// Exception is a sentinel value recognized by Get/Del: when the supplied
// default is an Exception, navigation failure raises it instead of
// returning it as a plain value.
type Exception struct{ Err error }

func (e Exception) Error() string { return e.Err.Error() }

// Raise wraps err so that Get/Del/Iter raise it on miss instead of
// returning it as a sentinel value.
func Raise(err error) Exception { return Exception{Err: err} }

// Get descends root along p, visiting each node (GetWithStack also records
// the visited nodes and takes an abort hook). On success the node found is returned together with a nil
// error. On failure, if def is an Exception it is returned as the error;
// otherwise def is returned as the value with a nil error.
func Get(root interface{}, p Path, def interface{}) (interface{}, error) {
	return GetWithStack(root, p, def, nil, nil)
}

// GetWithStack is Get with access to the visited-node stack and an abort
// hook. stack, if non-nil, is appended with every node visited including
// root. abort, if non-nil, is consulted before each descent step and can
// short-circuit the walk (as a miss) by returning true.
func GetWithStack(root interface{}, p Path, def interface{}, stack *[]interface{}, abort func(interface{}) bool) (interface{}, error) {
	current := root
	if stack != nil {
		*stack = append(*stack, current)
	}
	for _, c := range p.components {
		if abort != nil && abort(current) {
			return resolveMiss(def)
		}
		next, err := step(current, c)
		if err != nil {
			return resolveMiss(def)
		}
		current = next
		if stack != nil {
			*stack = append(*stack, current)
		}
	}
	return current, nil
}

func step(current interface{}, c Component) (interface{}, error) {
	switch key := c.(type) {
	case string:
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected mapping for key %q, got %T", ErrTypeMismatch, key, current)
		}
		v, ok := m[key]
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrNotFound, key)
		}
		return v, nil
	case int:
		s, ok := asSlice(current)
		if !ok {
			return nil, fmt.Errorf("%w: expected sequence for index %d, got %T", ErrTypeMismatch, key, current)
		}
		if key < 0 || key >= len(s) {
			return nil, fmt.Errorf("%w: index %d out of range (len %d)", ErrNotFound, key, len(s))
		}
		return s[key], nil
	default:
		return nil, fmt.Errorf("%w: unsupported component %T", ErrTypeMismatch, c)
	}
}

// asSlice accepts either a plain []interface{} (as produced by encoding/json
// decoding) or a *[]interface{} (as produced by Set while growing a
// sequence in place) and returns the underlying slice.
func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case *[]interface{}:
		return *s, true
	default:
		return nil, false
	}
}

func resolveMiss(def interface{}) (interface{}, error) {
	if exc, ok := def.(Exception); ok {
		return nil, exc
	}
	return def, nil
}

// DefaultGetter materializes the container to use for an intermediate
// mapping/sequence step during Set, or the default value to use for a
// missing key, depending on which the caller wants to customize.
type DefaultGetter func(container interface{}, key Component) (interface{}, bool)

// NodeCreatedHook is notified every time Set materializes an intermediate
// container at container[key].
type NodeCreatedHook func(container interface{}, key Component)

// Set materializes intermediate nodes while walking root along p and
// assigns value at the final step. The choice between creating a mapping or
// a sequence for a non-last step is driven by the *next* step's component
// type: a string next-step implies a mapping, an int next-step implies a
// sequence. Out-of-range integer steps extend sequences with nil
// placeholders. Set requires root to already be a mapping or *[]interface{}
// container reachable by reference; since Go slices are not addressable
// through a bare interface{}, root must be a map[string]interface{} or a
// *[]interface{} so in-place sequence growth is observable to the caller.
func Set(root interface{}, p Path, value interface{}, getDefault DefaultGetter, onCreate NodeCreatedHook) error {
	if p.IsRoot() {
		return ErrEmptyPath
	}
	current := root
	for i := 0; i < p.Len()-1; i++ {
		key := p.At(i)
		nextIsString := false
		if s, ok := p.At(i + 1).(string); ok {
			_ = s
			nextIsString = true
		}
		nv, err := descendOrCreate(current, key, nextIsString, getDefault, onCreate)
		if err != nil {
			return err
		}
		current = nv
	}
	return assign(current, p.At(p.Len()-1), value)
}

func descendOrCreate(current interface{}, key Component, nextIsMapping bool, getDefault DefaultGetter, onCreate NodeCreatedHook) (interface{}, error) {
	switch k := key.(type) {
	case string:
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected mapping for key %q, got %T", ErrTypeMismatch, k, current)
		}
		if v, ok := m[k]; ok {
			return v, nil
		}
		if getDefault != nil {
			if v, ok := getDefault(current, key); ok {
				m[k] = v
				if onCreate != nil {
					onCreate(current, key)
				}
				return v, nil
			}
		}
		var created interface{}
		if nextIsMapping {
			created = map[string]interface{}{}
		} else {
			created = &[]interface{}{}
		}
		m[k] = derefSlicePtr(created)
		if onCreate != nil {
			onCreate(current, key)
		}
		return derefSlicePtr(created), nil
	case int:
		sp, ok := current.(*[]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected sequence for index %d, got %T", ErrTypeMismatch, k, current)
		}
		ensureLen(sp, k+1)
		if (*sp)[k] == nil {
			if getDefault != nil {
				if v, ok := getDefault(current, key); ok {
					(*sp)[k] = v
					if onCreate != nil {
						onCreate(current, key)
					}
					return v, nil
				}
			}
			var created interface{}
			if nextIsMapping {
				created = map[string]interface{}{}
			} else {
				created = &[]interface{}{}
			}
			(*sp)[k] = derefSlicePtr(created)
			if onCreate != nil {
				onCreate(current, key)
			}
		}
		return (*sp)[k], nil
	default:
		return nil, fmt.Errorf("%w: unsupported component %T", ErrTypeMismatch, key)
	}
}

// derefSlicePtr returns v unchanged: a sequence created by Set is stored in
// its parent container as the *[]interface{} itself, so later Set calls can
// grow it in place. Get and Iter read it through asSlice, which accepts both
// the pointer and a plain []interface{}.
func derefSlicePtr(v interface{}) interface{} {
	if sp, ok := v.(*[]interface{}); ok {
		return sp
	}
	return v
}

func ensureLen(sp *[]interface{}, n int) {
	for len(*sp) < n {
		*sp = append(*sp, nil)
	}
}

func assign(current interface{}, key Component, value interface{}) error {
	switch k := key.(type) {
	case string:
		m, ok := current.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: expected mapping for key %q, got %T", ErrTypeMismatch, k, current)
		}
		m[k] = value
		return nil
	case int:
		sp, ok := current.(*[]interface{})
		if !ok {
			return fmt.Errorf("%w: expected sequence for index %d, got %T", ErrTypeMismatch, k, current)
		}
		ensureLen(sp, k+1)
		(*sp)[k] = value
		return nil
	default:
		return fmt.Errorf("%w: unsupported component %T", ErrTypeMismatch, key)
	}
}

// Del removes the value at p from root and returns it, or returns def if p
// does not resolve to an existing entry. Removing from a sequence stores the
// shortened sequence back into the container that holds it; a sequence
// passed as root itself must be a *[]interface{} for the shorter length to
// be visible to the caller.
func Del(root interface{}, p Path, def interface{}) (interface{}, error) {
	if p.IsRoot() {
		return resolveMiss(def)
	}
	parentPath := p.Slice(0, p.Len()-1)
	parent, err := Get(root, parentPath, nil)
	if err != nil {
		return resolveMiss(def)
	}
	last := p.At(p.Len() - 1)
	switch k := last.(type) {
	case string:
		m, ok := parent.(map[string]interface{})
		if !ok {
			return resolveMiss(def)
		}
		v, ok := m[k]
		if !ok {
			return resolveMiss(def)
		}
		delete(m, k)
		return v, nil
	case int:
		s, ok := parent.([]interface{})
		if !ok {
			if sp, ok2 := parent.(*[]interface{}); ok2 {
				s = *sp
			} else {
				return resolveMiss(def)
			}
		}
		if k < 0 || k >= len(s) {
			return resolveMiss(def)
		}
		v := s[k]
		copy(s[k:], s[k+1:])
		s = s[:len(s)-1]
		if sp, ok2 := parent.(*[]interface{}); ok2 {
			*sp = s
		} else if parentPath.Len() > 0 {
			grand, _ := Get(root, parentPath.Slice(0, parentPath.Len()-1), nil)
			switch gk := parentPath.At(parentPath.Len() - 1).(type) {
			case string:
				if gm, ok3 := grand.(map[string]interface{}); ok3 {
					gm[gk] = s
				}
			case int:
				if gs, ok3 := asSlice(grand); ok3 {
					gs[gk] = s
				}
			}
		}
		return v, nil
	default:
		return resolveMiss(def)
	}
}

// RepairFunc is consulted by Iter on a miss; if it returns (replacement,
// true), the replacement is spliced into the walk and iteration continues,
// otherwise Iter fails like Get.
type RepairFunc func(node interface{}, failedComponent Component) (interface{}, bool)

// Iter lazily walks root along p, invoking visit for every node seen
// (including root). If a step is missing and onMiss is non-nil, onMiss may
// supply a replacement node to splice in and continue; otherwise Iter stops
// and returns ErrNotFound/ErrTypeMismatch.
func Iter(root interface{}, p Path, visit func(interface{}), onMiss RepairFunc) error {
	current := root
	if visit != nil {
		visit(current)
	}
	for _, c := range p.components {
		next, err := step(current, c)
		if err != nil {
			if onMiss != nil {
				if repl, ok := onMiss(current, c); ok {
					current = repl
					if visit != nil {
						visit(current)
					}
					continue
				}
			}
			return err
		}
		current = next
		if visit != nil {
			visit(current)
		}
	}
	return nil
}
