package actions

import (
	"fmt"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/store"
)

// Call is the "bin.call" built-in: resolve the asset at _ref and run its
// update strategy with the remaining keyword arguments as overrides. This
// is the only sanctioned way one asset's action reaches another asset by
// path at call time rather than through a declared reference, used for
// inner-access smoke tests and as the indirection a site index page uses
// to delegate to bin.ls.
type Call struct {
	action.Stateless
}

func (Call) Help() action.Help {
	return action.Help{
		Description: "call an asset identified by a store path",
		Args: []action.ArgHelp{
			{Name: "_ref", Type: "string"},
		},
		Returns: "the called asset's CallResult",
	}
}

func (Call) Execute(_ action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	uc, err := asStoreContext(ctx)
	if err != nil {
		return err
	}
	ref := stringArg(args, "_ref", "")
	if ref == "" {
		return fmt.Errorf("actions: call requires a _ref argument")
	}

	target, err := uc.Store().Acquire(uc, ref, nil)
	if err != nil {
		return err
	}

	overrides := make(map[string]interface{}, len(args))
	for k, v := range args {
		if k == "_ref" {
			continue
		}
		overrides[k] = v
	}

	return store.Update(target, uc, overrides)
}
