package store

import (
	"strings"
	"sync"
	"time"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/path"
	"assetstore.evalgo.org/permission"
)

// unstoredID is the local id an Asset carries before it has ever been
// written to a backend.
const unstoredID int64 = -1

// Asset is the persistent record pairing an executable action with
// configuration, dependencies, results, and permissions. It implements
// action.Asset so the action package can operate on it without importing
// store.
//
// Every public mutator locks mu. None of them call another public mutator
// while holding the lock, so a single non-reentrant sync.Mutex is
// sufficient to give the "per-asset reentrant lock" guarantee the
// concurrency model asks for: nothing inside this package ever needs to
// re-enter its own lock.
type Asset struct {
	mu sync.Mutex

	id             int64
	act            action.Action
	args           map[string]interface{}
	perm           *permission.Permissions
	updateStrategy string
	meta           map[string]interface{}
	result         *action.CallResult
	refs           []action.Reference
	help           action.Help
	phony          bool

	created      time.Time
	lastModified time.Time
	lastBuild    time.Time
}

// NewAsset returns a Fresh asset (id == -1, not yet stored) wrapping act,
// owned per perm, with the "basic" update strategy.
func NewAsset(act action.Action, perm *permission.Permissions) *Asset {
	now := time.Now()
	return &Asset{
		id:             unstoredID,
		act:            act,
		args:           map[string]interface{}{},
		perm:           perm,
		updateStrategy: "basic",
		meta:           map[string]interface{}{},
		created:        now,
		lastModified:   now,
	}
}

// ID implements action.Asset.
func (a *Asset) ID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// SetID assigns id (used once, by Store.Store, when allocating a fresh
// asset its first id).
func (a *Asset) SetID(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = id
}

// IsFresh reports whether the asset has never been assigned an id.
func (a *Asset) IsFresh() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id == unstoredID
}

// Action returns the wrapped action.
func (a *Asset) Action() action.Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.act
}

// SetAction replaces the wrapped action (the reload built-in's effect) and
// bumps last_modification. It does not touch the recorded result or build
// timestamps: a reload swaps the code, not the asset's history.
func (a *Asset) SetAction(act action.Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.act = act
	a.touch()
}

// Args implements action.Asset, returning the live argument map.
func (a *Asset) Args() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.args
}

// SetArgs replaces the argument map wholesale and bumps last_modification.
func (a *Asset) SetArgs(args map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.args = args
	a.touch()
}

// Permissions implements action.Asset.
func (a *Asset) Permissions() *permission.Permissions {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.perm
}

// SetPermissions replaces the asset's Permissions and bumps
// last_modification.
func (a *Asset) SetPermissions(p *permission.Permissions) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.perm = p
	a.touch()
}

// References implements action.Asset.
func (a *Asset) References() []action.Reference {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]action.Reference, len(a.refs))
	copy(out, a.refs)
	return out
}

// AddReference appends an asset reference (ById or ByPath) to the
// dependency list and bumps last_modification.
func (a *Asset) AddReference(ref action.Reference) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refs = append(a.refs, ref)
	a.touch()
}

// Help returns the asset's help record, falling back to the wrapped
// action's own Help() when none was set explicitly.
func (a *Asset) Help() action.Help {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.help.Description != "" || len(a.help.Args) > 0 {
		return a.help
	}
	if a.act != nil {
		return a.act.Help()
	}
	return action.Help{}
}

// SetHelp overrides the asset's hand-built help record.
func (a *Asset) SetHelp(h action.Help) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.help = h
}

// UpdateStrategy returns the asset's update strategy name ("basic" or
// "make").
func (a *Asset) UpdateStrategy() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updateStrategy
}

// SetUpdateStrategy sets the update strategy name.
func (a *Asset) SetUpdateStrategy(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updateStrategy = name
	a.touch()
}

// Phony reports whether the asset is marked phony (the make strategy
// always considers a phony asset to need updating).
func (a *Asset) Phony() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phony
}

// SetPhony sets the phony flag.
func (a *Asset) SetPhony(phony bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phony = phony
	a.touch()
}

// Created, LastModified, LastBuild report the asset's three timestamps.
func (a *Asset) Created() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.created
}

func (a *Asset) LastModified() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastModified
}

func (a *Asset) LastBuild() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastBuild
}

// Result returns the last captured build result (nil before any build).
func (a *Asset) Result() *action.CallResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// RecordResult stores result; a Valid result additionally bumps
// last_build.
func (a *Asset) RecordResult(result *action.CallResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result = result
	a.touch()
	if result.IsValid() {
		a.lastBuild = a.lastModified
	}
}

// touch bumps last_modified; callers must already hold mu.
func (a *Asset) touch() {
	a.lastModified = time.Now()
}

// metaExternalToInternal maps an externally addressed meta key (using "_"
// where the caller would otherwise need a literal ".") to its internal
// dotted path form, e.g. "owner_fullname" -> "owner.fullname".
func metaExternalToInternal(key string) string {
	return strings.ReplaceAll(key, "_", ".")
}

// MetaGet resolves key (in its external, underscore form) against the
// asset's free-form meta map, descending nested maps the way the internal
// dotted form addresses them.
func (a *Asset) MetaGet(key string, def interface{}) (interface{}, error) {
	a.mu.Lock()
	meta := a.meta
	a.mu.Unlock()

	p, err := path.New(metaExternalToInternal(key))
	if err != nil {
		return nil, err
	}
	if p.IsRoot() {
		return meta, nil
	}
	return path.Get(meta, p, def)
}

// MetaSet writes value at key (external form) in the asset's meta map,
// materializing intermediate maps as needed, and bumps last_modification.
func (a *Asset) MetaSet(key string, value interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := path.New(metaExternalToInternal(key))
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return path.ErrEmptyPath
	}
	if err := path.Set(a.meta, p, value, nil, nil); err != nil {
		return err
	}
	a.touch()
	return nil
}

// Meta implements action.Asset, returning the live meta map (internal
// dotted-key form, as stored).
func (a *Asset) Meta() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta
}

// Clone returns an isolated copy: a deep copy of the mutable args/meta/refs
// containers (so later mutation of the original is never observed through
// the clone), but a shallow copy of the action and permissions pointers,
// per the clone-isolation invariant.
func (a *Asset) Clone() *Asset {
	a.mu.Lock()
	defer a.mu.Unlock()

	clone := &Asset{
		id:             a.id,
		act:            a.act,  // shallow: actions are stateless-by-convention or self-locking
		perm:           a.perm, // shallow: Permissions is treated as a value-ish record
		updateStrategy: a.updateStrategy,
		args:           deepCopyMap(a.args),
		meta:           deepCopyMap(a.meta),
		result:         a.result,
		refs:           append([]action.Reference(nil), a.refs...),
		help:           a.help,
		phony:          a.phony,
		created:        a.created,
		lastModified:   a.lastModified,
		lastBuild:      a.lastBuild,
	}
	return clone
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
