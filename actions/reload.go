package actions

import (
	"fmt"
	"sync"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/persistence"
)

var (
	modulesMu sync.RWMutex
	modules   *persistence.ModuleTable
)

// SetModuleTable installs the process-wide hot-reload module table,
// rooted wherever the bootstrap code resolves portable module paths
// against. Reload refuses to run until this has been called once.
func SetModuleTable(t *persistence.ModuleTable) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = t
}

func moduleTable() (*persistence.ModuleTable, error) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	if modules == nil {
		return nil, fmt.Errorf("actions: hot-reload is not configured (call SetModuleTable at startup)")
	}
	return modules, nil
}

// actionConstructor is the symbol every reloadable plugin exports: a
// factory rebuilding an action.Action from the same constructor
// parameters the asset on disk already carries. This must be a type
// alias, not a named type — plugin.Lookup returns a value of the plain
// unnamed function type, and a type assertion only succeeds against the
// exact dynamic type, which a distinct named type would never match.
type actionConstructor = func(ctorParams map[string]interface{}) action.Action

// Reload is the "bin.reload" built-in: recompiles nothing itself, but
// (re)loads a plugin image at a portable module path, looks up its
// exported constructor, and swaps the target asset's action for a fresh
// instance built from its own persisted constructor parameters — the
// direct analogue of re-importing a Python module in place and
// re-instantiating the class it defines.
type Reload struct {
	action.Stateless
}

func (Reload) Help() action.Help {
	return action.Help{
		Description: "reload the action backing an asset from a freshly (re)loaded plugin",
		Args: []action.ArgHelp{
			{Name: "path", Type: "string"},
			{Name: "module", Type: "string"},
			{Name: "symbol", Type: "string", Optional: true},
		},
		Returns: "a confirmation string",
	}
}

func (Reload) Execute(_ action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	uc, err := asStoreContext(ctx)
	if err != nil {
		return err
	}

	table, err := moduleTable()
	if err != nil {
		return err
	}

	path := stringArg(args, "path", "")
	modulePath := stringArg(args, "module", "")
	symbolName := stringArg(args, "symbol", "NewAction")
	if path == "" || modulePath == "" {
		return fmt.Errorf("actions: reload requires path and module arguments")
	}

	target, err := uc.Store().Acquire(uc, path, nil)
	if err != nil {
		return err
	}

	mod, err := table.Reload(modulePath)
	if err != nil {
		return fmt.Errorf("actions: loading %s: %w", modulePath, err)
	}
	symbol, err := mod.Lookup(symbolName)
	if err != nil {
		return fmt.Errorf("actions: looking up %s in %s: %w", symbolName, modulePath, err)
	}
	ctor, ok := symbol.(actionConstructor)
	if !ok {
		return fmt.Errorf("actions: %s in %s is not an action constructor", symbolName, modulePath)
	}

	ctorParams := map[string]interface{}{}
	if old, ok := target.Action().(persistence.Persistable); ok {
		ctorParams = old.CtorParams()
	}

	target.SetAction(ctor(ctorParams))
	if err := uc.Store().Store(uc, target, "", 0, false); err != nil {
		return fmt.Errorf("actions: persisting reloaded asset at %s: %w", path, err)
	}

	return fmt.Sprintf("reloaded %s:%s at %s (generation %s)", modulePath, symbolName, path, mod.Generation)
}
