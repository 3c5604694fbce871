package store

import (
	"fmt"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/permission"
)

// ByID is an asset reference that resolves by re-acquiring an asset
// directly by its stored id.
type ByID struct {
	ID int64
}

// Resolve implements action.Reference.
func (r ByID) Resolve(ctx action.Context) (action.Asset, error) {
	uc, err := asUpdateContext(ctx)
	if err != nil {
		return nil, err
	}
	return uc.store.AcquireByID(uc, r.ID)
}

// Update implements action.Reference by re-entering the store's own
// update pipeline for the referenced asset, running its update strategy
// with args as overrides — this is what actually rebuilds a stale
// dependency, as opposed to Resolve's plain load.
func (r ByID) Update(ctx action.Context, args map[string]interface{}) *action.CallResult {
	uc, err := asUpdateContext(ctx)
	if err != nil {
		return action.FromError(err)
	}
	dep, err := uc.store.AcquireByID(uc, r.ID)
	if err != nil {
		return action.FromError(err)
	}
	return Update(dep, uc, args)
}

// ByPath is an asset reference that resolves by re-acquiring an asset
// through a full store traversal from the root.
type ByPath struct {
	Path string
}

// Resolve implements action.Reference.
func (r ByPath) Resolve(ctx action.Context) (action.Asset, error) {
	uc, err := asUpdateContext(ctx)
	if err != nil {
		return nil, err
	}
	return uc.store.Acquire(uc, r.Path, nil)
}

// Update implements action.Reference, re-entering the store's update
// pipeline for the path-resolved asset (see ByID.Update).
func (r ByPath) Update(ctx action.Context, args map[string]interface{}) *action.CallResult {
	uc, err := asUpdateContext(ctx)
	if err != nil {
		return action.FromError(err)
	}
	dep, err := uc.store.Acquire(uc, r.Path, nil)
	if err != nil {
		return action.FromError(err)
	}
	return Update(dep, uc, args)
}

// ActiveAsset extends ByID with its own Permissions, marking the
// referenced asset as mounted with inner-access support: trailing path
// components past the mount are bound into the update context as
// _inner_get (joined with dots) rather than rejected as a missing child.
// The store binds no _inner_set or _inner_del.
type ActiveAsset struct {
	ByID
	Perm *permission.Permissions
}

// NewActiveAsset mounts id with its own Permissions, distinct from the
// underlying asset's own (e.g. to expose a narrower mode at this mount
// point than the asset carries elsewhere).
func NewActiveAsset(id int64, perm *permission.Permissions) *ActiveAsset {
	return &ActiveAsset{ByID: ByID{ID: id}, Perm: perm}
}

func asUpdateContext(ctx action.Context) (*UpdateContext, error) {
	uc, ok := ctx.(*UpdateContext)
	if !ok {
		return nil, fmt.Errorf("%w: reference resolution requires a *store.UpdateContext, got %T", ErrInvalidArgument, ctx)
	}
	return uc, nil
}
