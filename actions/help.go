package actions

import "assetstore.evalgo.org/action"

// GetHelp is the "bin.help" built-in: resolve path and return the help
// record the asset there advertises (its own, if it set one, else its
// action's).
type GetHelp struct {
	action.Stateless
}

func (GetHelp) Help() action.Help {
	return action.Help{
		Description: "return the help record for an asset",
		Args:        []action.ArgHelp{{Name: "path", Type: "string"}},
		Returns:     "action.Help",
	}
}

func (GetHelp) Execute(_ action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	uc, err := asStoreContext(ctx)
	if err != nil {
		return err
	}
	target, err := uc.Store().Acquire(uc, stringArg(args, "path", ""), nil)
	if err != nil {
		return err
	}
	return target.Help()
}
