// Package identity implements the named-entity credential registry the
// asset store uses for permission checks: users, groups, and roles are all
// represented uniformly as Entity values with an ordered parent list and a
// materialized, inherited credential view.
package identity

import (
	"fmt"
	"regexp"
	"sync"
)

// Wildcard is the entity name every freshly created Entity inherits from,
// and the name permission bits key to for "other" access.
const Wildcard = "*"

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ErrInvalidName is returned when an entity name fails the
// "[A-Za-z0-9_]+" naming pattern.
var ErrInvalidName = fmt.Errorf("identity: name must match [A-Za-z0-9_]+")

// ErrAlreadyExists is returned by Registry.Create for a duplicate name.
var ErrAlreadyExists = fmt.Errorf("identity: entity already exists")

// ErrNotFound is returned when a referenced entity name is unknown.
var ErrNotFound = fmt.Errorf("identity: entity not found")

// Entity is a named identity unit: a user, group, or role, with no type
// distinction at this level.
type Entity struct {
	mu sync.RWMutex

	name            string
	coreCredentials map[string]bool // "r:name", "w:name", "x:name", ... set directly on this entity
	parents         []string        // ordered parent entity names (parent-first walk)
	merged          map[string]bool // materialized self+parents view
	meta            map[string]interface{}
}

// newEntity constructs an Entity with its own core r/w/x credentials
// already granted: an entity always directly holds its own r/w/x.
func newEntity(name string) *Entity {
	e := &Entity{
		name:            name,
		coreCredentials: map[string]bool{},
		meta:            map[string]interface{}{},
	}
	e.coreCredentials["r:"+name] = true
	e.coreCredentials["w:"+name] = true
	e.coreCredentials["x:"+name] = true
	return e
}

// Name returns the entity's name.
func (e *Entity) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// Parents returns a copy of the ordered parent-name list.
func (e *Entity) Parents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.parents))
	copy(out, e.parents)
	return out
}

// Meta returns the entity's free-form metadata map (fullname, email,
// umask, ...). Mutating the returned map mutates the entity's metadata.
func (e *Entity) Meta() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.meta
}

// Has reports whether the materialized (self+parents) credential view
// grants key (e.g. "r:bob").
func (e *Entity) Has(credential string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.merged[credential]
}

// Registry is a name->Entity map plus the always-present wildcard entity.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewRegistry returns a Registry seeded with the "*" wildcard entity.
func NewRegistry() *Registry {
	r := &Registry{entities: map[string]*Entity{}}
	wild := newEntity(Wildcard)
	wild.materialize(r)
	r.entities[Wildcard] = wild
	return r
}

// Create registers a new Entity named name, inheriting (in order) from
// parents. Every freshly created entity also inherits the wildcard entity,
// unless name is itself the wildcard.
func (r *Registry) Create(name string, parents ...string) (*Entity, error) {
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	for _, p := range parents {
		if _, ok := r.entities[p]; !ok {
			return nil, fmt.Errorf("%w: parent %q", ErrNotFound, p)
		}
	}

	e := newEntity(name)
	e.parents = append(e.parents, parents...)
	if name != Wildcard {
		hasWildcard := false
		for _, p := range e.parents {
			if p == Wildcard {
				hasWildcard = true
				break
			}
		}
		if !hasWildcard {
			e.parents = append(e.parents, Wildcard)
		}
	}
	e.materialize(r)
	r.entities[name] = e
	return e, nil
}

// Get returns the named entity, or ErrNotFound.
func (r *Registry) Get(name string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// AddParent adds an inheritance layer to entity name and re-materializes
// its (and nothing else's — children of name must be re-added/rebuilt by
// the caller if cascading re-materialization is desired) credential view.
// Cycles are not detected; callers must prevent them.
func (r *Registry) AddParent(name, parent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if _, ok := r.entities[parent]; !ok {
		return fmt.Errorf("%w: parent %q", ErrNotFound, parent)
	}
	for _, p := range e.parents {
		if p == parent {
			return nil
		}
	}
	e.parents = append(e.parents, parent)
	e.materialize(r)
	return nil
}

// RemoveEntity deletes name from the registry, first stripping it from the
// parent list of every entity that directly inherits from it.
func (r *Registry) RemoveEntity(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	for _, e := range r.entities {
		if e.name == name {
			continue
		}
		filtered := e.parents[:0:0]
		changed := false
		for _, p := range e.parents {
			if p == name {
				changed = true
				continue
			}
			filtered = append(filtered, p)
		}
		if changed {
			e.parents = filtered
			e.materialize(r)
		}
	}
	delete(r.entities, name)
	return nil
}

// materialize rebuilds e.merged by walking e's parents in order (parent
// first) then overlaying e's own core credentials, so a child's own
// credentials always win over an inherited one.
func (e *Entity) materialize(r *Registry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := map[string]bool{}
	for _, pname := range e.parents {
		parent, ok := r.entities[pname]
		if !ok {
			continue
		}
		parent.mu.RLock()
		for k, v := range parent.merged {
			merged[k] = v
		}
		parent.mu.RUnlock()
	}
	for k, v := range e.coreCredentials {
		merged[k] = v
	}
	e.merged = merged
}

// HasRight is the registry-scoped rights query: does name currently hold
// right (a single letter, "r"/"w"/"x"/... ) per its materialized view?
func (r *Registry) HasRight(name, right string) bool {
	e, err := r.Get(name)
	if err != nil {
		return false
	}
	return e.Has(right + ":" + name)
}

// Inherits reports whether entity transitively inherits from ancestor
// (including entity == ancestor), by walking the materialized parent set.
// Because Entity.merged only stores credential keys (not the parent graph
// itself), Inherits instead checks whether entity holds ancestor's own
// identity credential (e.g. "r:ancestor") — which, by construction, is
// granted to entity's merged view exactly when ancestor lies on its
// parent chain.
func (r *Registry) Inherits(entity, ancestor string) bool {
	if entity == ancestor {
		return true
	}
	e, err := r.Get(entity)
	if err != nil {
		return false
	}
	return e.Has("r:" + ancestor)
}
