// Package path implements the path algebra over nested mapping/sequence
// structures that the asset store uses to address directories and assets.
// A Path is an ordered sequence of Components, each either a string
// (mapping key) or an int (sequence index). String form uses dots to
// separate keys and bracketed integers for indices, e.g.
// "company.members[0].name".
package path

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a path string cannot be parsed.
var ErrMalformed = errors.New("path: malformed path string")

// ErrEmptyPath is returned by operations that require at least one
// component (path_set on an empty path, for instance).
var ErrEmptyPath = errors.New("path: empty path")

// Component is either a string (mapping key) or an int (sequence index).
// Only those two underlying types are meaningful; anything else passed to
// FromComponents is rejected.
type Component interface{}

// Path is an ordered, immutable-by-convention sequence of Components.
// Callers that need to mutate a Path in place should use Clone first.
type Path struct {
	components []Component
}

// Root is the empty path.
func Root() Path {
	return Path{}
}

// New parses a dotted/bracketed path string. An empty string yields Root().
func New(s string) (Path, error) {
	if s == "" {
		return Root(), nil
	}
	var components []Component
	for _, part := range strings.Split(s, ".") {
		key, indices, err := splitKeyIndices(part)
		if err != nil {
			return Path{}, err
		}
		if key == "" {
			return Path{}, fmt.Errorf("%w: empty key segment in %q", ErrMalformed, s)
		}
		components = append(components, key)
		components = append(components, indices...)
	}
	return Path{components: components}, nil
}

// MustNew is New but panics on error; intended for static paths in code.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}
	return p
}

// splitKeyIndices peels the mapping-key prefix off a dotted-path segment
// and parses zero or more trailing "[n]" index components.
func splitKeyIndices(part string) (string, []Component, error) {
	bracket := strings.IndexByte(part, '[')
	if bracket == -1 {
		return part, nil, nil
	}
	key := part[:bracket]
	rest := part[bracket:]
	var indices []Component
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("%w: unmatched '[' in %q", ErrMalformed, part)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, fmt.Errorf("%w: unmatched '[' in %q", ErrMalformed, part)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad index %q in %q", ErrMalformed, rest[1:end], part)
		}
		indices = append(indices, n)
		rest = rest[end+1:]
	}
	return key, indices, nil
}

// FromComponents builds a Path from a slice of string/int components,
// copying the slice so later mutation of components does not alias it.
func FromComponents(components []Component) (Path, error) {
	out := make([]Component, len(components))
	for i, c := range components {
		switch c.(type) {
		case string, int:
			out[i] = c
		default:
			return Path{}, fmt.Errorf("%w: component %d has unsupported type %T", ErrMalformed, i, c)
		}
	}
	return Path{components: out}, nil
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	out := make([]Component, len(p.components))
	copy(out, p.components)
	return Path{components: out}
}

// Len returns the number of components.
func (p Path) Len() int { return len(p.components) }

// IsRoot reports whether p has no components.
func (p Path) IsRoot() bool { return len(p.components) == 0 }

// At returns the i'th component.
func (p Path) At(i int) Component { return p.components[i] }

// Components returns a copy of the underlying component slice.
func (p Path) Components() []Component {
	out := make([]Component, len(p.components))
	copy(out, p.components)
	return out
}

// Join appends other's components to p and returns the concatenation.
func (p Path) Join(other Path) Path {
	out := make([]Component, 0, len(p.components)+len(other.components))
	out = append(out, p.components...)
	out = append(out, other.components...)
	return Path{components: out}
}

// JoinComponent appends a single component.
func (p Path) JoinComponent(c Component) Path {
	out := make([]Component, 0, len(p.components)+1)
	out = append(out, p.components...)
	out = append(out, c)
	return Path{components: out}
}

// Slice returns the half-open range [from:to) of components as a new Path.
// Negative or out-of-range bounds are clamped, mirroring slice semantics.
func (p Path) Slice(from, to int) Path {
	if from < 0 {
		from = 0
	}
	if to > len(p.components) {
		to = len(p.components)
	}
	if from >= to {
		return Root()
	}
	out := make([]Component, to-from)
	copy(out, p.components[from:to])
	return Path{components: out}
}

// Head returns the first component and the remaining tail. It panics on an
// empty path; callers should check IsRoot first.
func (p Path) Head() (Component, Path) {
	return p.components[0], p.Slice(1, p.Len())
}

// String renders the path in canonical dotted/bracketed form.
func (p Path) String() string {
	var b strings.Builder
	first := true
	for _, c := range p.components {
		switch v := c.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		case string:
			if !first {
				b.WriteByte('.')
			}
			b.WriteString(v)
		}
		first = false
	}
	return b.String()
}

// Equal reports whether p and other have identical components in order.
func (p Path) Equal(other Path) bool {
	if len(p.components) != len(other.components) {
		return false
	}
	for i := range p.components {
		if p.components[i] != other.components[i] {
			return false
		}
	}
	return true
}
