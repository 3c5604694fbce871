package store

import (
	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/permission"
)

// Update runs a's update strategy ("basic" or "make", defaulting to
// basic for any unrecognized name) with the caller-supplied argument
// overrides, and records the resulting CallResult on the asset that was
// actually executed (the clone, for a pure read or an argument-overridden
// call).
func Update(a *Asset, ctx *UpdateContext, args map[string]interface{}) *action.CallResult {
	switch a.UpdateStrategy() {
	case "make":
		return updateMake(a, ctx, args)
	default:
		return updateBasic(a, ctx, args)
	}
}

// flattenedArgs walks a's reference chain recursively (deepest dependency
// first), merging each visited asset's own argument map; a's own args
// apply after the chain, and callerArgs — the explicit overrides passed to
// update() — always win last.
func flattenedArgs(a *Asset, ctx *UpdateContext, callerArgs map[string]interface{}) (map[string]interface{}, error) {
	chain, err := flattenReferenceChain(a, ctx, map[int64]bool{})
	if err != nil {
		return nil, err
	}
	merged := map[string]interface{}{}
	for _, dep := range chain {
		for k, v := range dep.Args() {
			merged[k] = v
		}
	}
	for k, v := range a.Args() {
		merged[k] = v
	}
	for k, v := range callerArgs {
		merged[k] = v
	}
	return merged, nil
}

func flattenReferenceChain(a *Asset, ctx *UpdateContext, seen map[int64]bool) ([]*Asset, error) {
	var chain []*Asset
	for _, ref := range a.References() {
		resolved, err := ref.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		dep, ok := resolved.(*Asset)
		if !ok {
			continue
		}
		if id := dep.ID(); id != unstoredID {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		nested, err := flattenReferenceChain(dep, ctx, seen)
		if err != nil {
			return nil, err
		}
		chain = append(chain, nested...)
		chain = append(chain, dep)
	}
	return chain, nil
}

// updateBasic implements the basic strategy: a read (no overrides) runs in
// place if w is granted, otherwise on a clone; an override requires x and
// always runs on a clone.
func updateBasic(a *Asset, ctx *UpdateContext, args map[string]interface{}) *action.CallResult {
	merged, err := flattenedArgs(a, ctx, args)
	if err != nil {
		return action.FromError(err)
	}

	if len(args) == 0 {
		if !ctx.PermissionGranted(a.Permissions(), permission.Read) {
			return action.Failed("read access denied", "", "", nil)
		}
		if ctx.PermissionGranted(a.Permissions(), permission.Write) {
			result := action.Invoke(a.Action(), a, ctx, merged)
			a.RecordResult(result)
			return result
		}
		clone := a.Clone()
		return action.Invoke(clone.Action(), clone, ctx, merged)
	}

	if !ctx.PermissionGranted(a.Permissions(), permission.Execute) {
		return action.Failed("execute access denied", "", "", nil)
	}
	clone := a.Clone()
	clone.SetArgs(merged)
	result := action.Invoke(clone.Action(), clone, ctx, merged)
	clone.RecordResult(result)
	return result
}

// updateMake implements the make strategy: rebuild dependencies first if
// any are stale (or this asset is phony / never built), then run the
// action in place. Staleness itself is delegated to the action's own
// UpdateRequired, so a concrete action can override what "stale" means.
func updateMake(a *Asset, ctx *UpdateContext, args map[string]interface{}) *action.CallResult {
	required, err := a.Action().UpdateRequired(a, ctx)
	if err != nil {
		return action.FromError(err)
	}

	if required {
		if err := a.Action().PreUpdate(a, ctx); err != nil {
			return action.FromError(err)
		}
		for _, ref := range a.References() {
			if err := a.Action().UpdateDependency(a, ctx, ref); err != nil {
				return action.FromError(err)
			}
		}
	}

	merged, err := flattenedArgs(a, ctx, args)
	if err != nil {
		return action.FromError(err)
	}
	result := action.Invoke(a.Action(), a, ctx, merged)
	a.RecordResult(result)
	return result
}
