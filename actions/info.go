package actions

import (
	"time"

	"github.com/dustin/go-humanize"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/store"
)

// ReferenceInfo describes one entry in an asset's dependency list, in
// whichever form it was declared.
type ReferenceInfo struct {
	Kind string // "id" or "path"
	ID   int64  `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

// AssetInfo is the value GetAssetInfo returns: everything about an asset
// except its raw argument map and action internals.
type AssetInfo struct {
	ID             int64
	Owner          string
	Group          string
	Mode           string
	UpdateStrategy string
	Phony          bool
	Created        time.Time
	LastModified   time.Time
	LastBuild      time.Time
	// Age is LastModified rendered relative to now ("3 hours ago"), a
	// human-readable form rather than raw RFC3339.
	Age        string
	References []ReferenceInfo
}

// GetAssetInfo is the "bin.info" built-in: resolve path and describe the
// asset found there (ownership, mode, timestamps, dependency list), for
// inspection without running the asset's own action.
type GetAssetInfo struct {
	action.Stateless
}

func (GetAssetInfo) Help() action.Help {
	return action.Help{
		Description: "return ownership, mode and dependency info for an asset",
		Args:        []action.ArgHelp{{Name: "path", Type: "string"}},
		Returns:     "AssetInfo",
	}
}

func (GetAssetInfo) Execute(_ action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	uc, err := asStoreContext(ctx)
	if err != nil {
		return err
	}
	path := stringArg(args, "path", "")
	target, err := uc.Store().Acquire(uc, path, nil)
	if err != nil {
		return err
	}

	perm := target.Permissions()
	refs := target.References()
	infos := make([]ReferenceInfo, 0, len(refs))
	for _, ref := range refs {
		switch r := ref.(type) {
		case store.ByID:
			infos = append(infos, ReferenceInfo{Kind: "id", ID: r.ID})
		case store.ByPath:
			infos = append(infos, ReferenceInfo{Kind: "path", Path: r.Path})
		}
	}

	return &AssetInfo{
		ID:             target.ID(),
		Owner:          perm.Owner,
		Group:          perm.Group,
		Mode:           perm.ModeString(),
		UpdateStrategy: target.UpdateStrategy(),
		Phony:          target.Phony(),
		Created:        target.Created(),
		LastModified:   target.LastModified(),
		LastBuild:      target.LastBuild(),
		Age:            humanize.Time(target.LastModified()),
		References:     infos,
	}
}
