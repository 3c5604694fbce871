package action

import (
	"fmt"
	"runtime/debug"
	"time"

	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/permission"
)

// Asset is the subset of asset-record behavior an Action needs. The store
// package's concrete asset type implements this; keeping it as an interface
// here lets action stay free of any dependency on store, which depends on
// action instead.
type Asset interface {
	ID() int64
	Args() map[string]interface{}
	Meta() map[string]interface{}
	Permissions() *permission.Permissions
	References() []Reference
}

// StaleChecker is the subset of asset state BaseAction's default
// UpdateRequired inspects to decide whether a make-strategy rebuild is
// due. store.Asset implements this; an Asset that doesn't is simply
// never considered stale by the default check.
type StaleChecker interface {
	Phony() bool
	Result() *CallResult
	LastBuild() time.Time
	LastModified() time.Time
}

// Reference is an asset reference (by id or by path) that re-enters the
// store to resolve or update. store.ByID, store.ByPath, and
// store.ActiveAsset implement this.
type Reference interface {
	Resolve(ctx Context) (Asset, error)
	// Update re-enters the store's own update pipeline for the referenced
	// asset, running its update strategy with args as overrides. The
	// default dependency handling (BaseAction.UpdateDependency) calls this
	// with an empty map, which is what actually rebuilds a stale
	// dependency rather than merely loading its last recorded result.
	Update(ctx Context, args map[string]interface{}) *CallResult
}

// Context is the subset of update-context behavior an Action needs:
// identity lookups and permission checks, without store giving action a
// dependency on the concrete store type.
type Context interface {
	GetUser() string
	GetGroup() string
	Registry() *identity.Registry
	PermissionGranted(p *permission.Permissions, right permission.Right) bool
	PushIdentity(user, group string)
	PopIdentity()
}

// ArgHelp describes one parameter in a Help record.
type ArgHelp struct {
	Name     string
	Type     string
	Optional bool
}

// Help is the structured description an action returns for self-inspection
// (the "help"/"info" built-in actions render these).
type Help struct {
	Description string
	Args        []ArgHelp
	Returns     string
}

// Action is the contract every asset action implements: execute plus the
// pre/post observers the update strategies and dispatcher drive.
type Action interface {
	// Execute runs the action's core behavior. A returned value is wrapped
	// in Valid; Invoke additionally recovers a panic into an Error. If
	// Execute itself returns a *CallResult, it passes through unchanged.
	Execute(asset Asset, ctx Context, args map[string]interface{}) interface{}

	PreExecute(asset Asset, ctx Context, args map[string]interface{}) error
	// PostExecute observes the captured result; a non-nil return replaces
	// it.
	PostExecute(asset Asset, ctx Context, args map[string]interface{}, result *CallResult) *CallResult

	PreUpdate(asset Asset, ctx Context) error
	UpdateRequired(asset Asset, ctx Context) (bool, error)
	UpdateDependency(asset Asset, ctx Context, dep Reference) error

	Help() Help
	// AcceptsInnerAccess reports whether the store should promote this
	// action's mount into an ActiveAsset, routing trailing path components
	// to _inner_get (the store binds no _inner_set or _inner_del).
	AcceptsInnerAccess() bool
}

// BaseAction supplies no-op defaults for every Action method except
// Execute; concrete actions embed it and implement Execute (and override
// whichever observers they need).
type BaseAction struct{}

func (BaseAction) PreExecute(Asset, Context, map[string]interface{}) error { return nil }

func (BaseAction) PostExecute(Asset, Context, map[string]interface{}, *CallResult) *CallResult {
	return nil
}

func (BaseAction) PreUpdate(Asset, Context) error { return nil }

// UpdateRequired's default behavior is the make strategy's own staleness
// test: a rebuild is required when the asset is phony, has never been
// built, was modified since its last build, or any of its direct
// dependencies were modified since their own last build.
func (BaseAction) UpdateRequired(asset Asset, ctx Context) (bool, error) {
	target, ok := asset.(StaleChecker)
	if !ok {
		return false, nil
	}
	if target.Phony() || target.Result() == nil || target.LastBuild().Before(target.LastModified()) {
		return true, nil
	}
	for _, ref := range asset.References() {
		dep, err := ref.Resolve(ctx)
		if err != nil {
			return false, err
		}
		depStale, ok := dep.(StaleChecker)
		if !ok {
			continue
		}
		if depStale.LastBuild().Before(depStale.LastModified()) {
			return true, nil
		}
	}
	return false, nil
}

// UpdateDependency's default behavior re-runs the dependency's own update
// strategy with no argument overrides, rebuilding it if its own strategy
// finds it stale, per the make strategy's default dependency handling.
func (BaseAction) UpdateDependency(asset Asset, ctx Context, dep Reference) error {
	result := dep.Update(ctx, map[string]interface{}{})
	if result.IsError() {
		return fmt.Errorf("action: %s", result.Message())
	}
	return nil
}

func (BaseAction) Help() Help { return Help{} }

func (BaseAction) AcceptsInnerAccess() bool { return false }

// Invoke runs the full execute pipeline: pre_execute, execute (panic- and
// error-safe), post_execute. This is the one place a raw panic or error
// from action code is captured and turned into a CallResult, matching the
// propagation policy that exceptions never unwind past an update call.
func Invoke(a Action, asset Asset, ctx Context, args map[string]interface{}) (result *CallResult) {
	if err := a.PreExecute(asset, ctx, args); err != nil {
		return Failed(err.Error(), fmt.Sprintf("%T", err), "", nil)
	}

	result = safeExecute(a, asset, ctx, args)

	if replacement := a.PostExecute(asset, ctx, args, result); replacement != nil {
		result = replacement
	}
	return result
}

func safeExecute(a Action, asset Asset, ctx Context, args map[string]interface{}) (result *CallResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Sprintf("%v", r), fmt.Sprintf("%T", r), string(debug.Stack()), nil)
		}
	}()

	out := a.Execute(asset, ctx, args)
	switch v := out.(type) {
	case *CallResult:
		return v
	case error:
		return Failed(v.Error(), fmt.Sprintf("%T", v), "", nil)
	default:
		return Valid(v)
	}
}
