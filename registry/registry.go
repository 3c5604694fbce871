// Package registry implements the declarative action catalog: a
// YAML manifest describing every Action type the store's gateway and
// built-in actions may construct, loaded once at startup and kept in a
// mutex-guarded lookup table keyed by action name.
package registry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Descriptor is one manifest entry: the portable (module path, class
// name) locator persistence.Registry decodes an action's object_source
// envelope against, plus catalog-level metadata.
type Descriptor struct {
	Name         string   `yaml:"name"`
	ModulePath   string   `yaml:"module_path"`
	ClassName    string   `yaml:"class_name"`
	Description  string   `yaml:"description,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// manifest is the on-disk YAML document shape.
type manifest struct {
	Actions []Descriptor `yaml:"actions"`
}

// Catalog is the in-memory, mutex-guarded action descriptor table.
type Catalog struct {
	mu       sync.RWMutex
	path     string
	entries  map[string]*Descriptor
}

// NewCatalog returns a Catalog backed by the YAML manifest at path,
// loading it immediately. A missing file is not an error: NewCatalog
// returns an empty catalog a caller can Register into and Save later.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path, entries: map[string]*Descriptor{}}
	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("registry: loading catalog: %w", err)
	}
	return c, nil
}

// Load (re)reads the manifest from disk, replacing the in-memory table.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("registry: reading %s: %w", c.path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("registry: parsing %s: %w", c.path, err)
	}

	entries := make(map[string]*Descriptor, len(m.Actions))
	for i := range m.Actions {
		d := m.Actions[i]
		entries[d.Name] = &d
	}
	c.entries = entries
	return nil
}

// Save writes the current table back to the manifest file.
func (c *Catalog) Save() error {
	c.mu.RLock()
	m := manifest{Actions: make([]Descriptor, 0, len(c.entries))}
	for _, d := range c.entries {
		m.Actions = append(m.Actions, *d)
	}
	c.mu.RUnlock()

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("registry: marshaling catalog: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("registry: writing %s: %w", c.path, err)
	}
	return nil
}

// Register adds or replaces a descriptor and persists the catalog.
func (c *Catalog) Register(d Descriptor) error {
	c.mu.Lock()
	c.entries[d.Name] = &d
	c.mu.Unlock()
	return c.Save()
}

// Unregister removes a descriptor by name and persists the catalog.
func (c *Catalog) Unregister(name string) error {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
	return c.Save()
}

// Get returns the descriptor registered under name.
func (c *Catalog) Get(name string) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("registry: no action named %q", name)
	}
	return d, nil
}

// List returns every registered descriptor, in no particular order.
func (c *Catalog) List() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Descriptor, 0, len(c.entries))
	for _, d := range c.entries {
		out = append(out, d)
	}
	return out
}

// FindByCapability returns every descriptor advertising capability.
func (c *Catalog) FindByCapability(capability string) []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var matches []*Descriptor
	for _, d := range c.entries {
		for _, cap := range d.Capabilities {
			if cap == capability {
				matches = append(matches, d)
				break
			}
		}
	}
	return matches
}
