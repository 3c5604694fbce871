package persistence

import (
	"sync"

	"github.com/google/uuid"
)

// Module is one hot-reloadable unit: a compiled plugin image loaded from
// a portable module path; Lookup resolves its symbols on demand. Generation identifies this particular load distinctly from
// whatever image previously lived at the same portable path, so a log
// line naming a Generation always points at one specific plugin.Open call.
type Module struct {
	PortablePath string
	HostPath     string
	Generation   string
	handle       pluginHandle
}

// Lookup resolves a symbol exported by the plugin (a registered Codec
// constructor, an Action factory, ...).
func (m *Module) Lookup(symbol string) (interface{}, error) {
	return m.handle.Lookup(symbol)
}

// ModuleTable is the process-wide table of loaded modules, mirroring the
// persistence layer's role as the hot-reload vehicle: a module loaded once
// can be reloaded later by portable path, replacing its table entry.
type ModuleTable struct {
	mu       sync.RWMutex
	modules  map[string]*Module
	resolver *PortablePathResolver
}

// NewModuleTable returns an empty table resolving portable paths against
// resolver.
func NewModuleTable(resolver *PortablePathResolver) *ModuleTable {
	return &ModuleTable{modules: map[string]*Module{}, resolver: resolver}
}

// Reload loads (or re-loads) the plugin at portablePath and registers it
// under that path in the table, replacing any prior image.
func (t *ModuleTable) Reload(portablePath string) (*Module, error) {
	host, err := t.resolver.Resolve(portablePath)
	if err != nil {
		return nil, err
	}
	handle, err := openPlugin(host)
	if err != nil {
		return nil, err
	}
	m := &Module{PortablePath: portablePath, HostPath: host, Generation: uuid.NewString(), handle: handle}

	t.mu.Lock()
	t.modules[portablePath] = m
	t.mu.Unlock()
	return m, nil
}

// Get returns the already-loaded module at portablePath, if any.
func (t *ModuleTable) Get(portablePath string) (*Module, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.modules[portablePath]
	return m, ok
}
