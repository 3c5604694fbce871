// Package actions implements the store's built-in assets: directory
// listing, per-asset help and info, the hot-reload updater, and the
// inner-access "call" indirection. Every type here is a plain
// action.Action that the bootstrap code (see storeconfig/cmd) mounts as a
// stored asset under its conventional bin.* path.
package actions

import (
	"fmt"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/store"
)

// asStoreContext recovers the concrete *store.UpdateContext a built-in
// needs to reach the store itself (Acquire/Update/Store), something
// action.Context's minimal interface does not expose. Every built-in in
// this package is store-specific by nature, so this cast is expected to
// always succeed in this store's own deployment; it is still checked
// rather than asserted blindly, since nothing stops a future caller from
// driving these actions through a different Context implementation.
func asStoreContext(ctx action.Context) (*store.UpdateContext, error) {
	uc, ok := ctx.(*store.UpdateContext)
	if !ok {
		return nil, fmt.Errorf("actions: requires a *store.UpdateContext, got %T", ctx)
	}
	return uc, nil
}

func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}
