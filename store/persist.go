package store

import (
	"time"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/persistence"
)

// RegisterCodecs wires every store-owned type into reg's persistence
// registry: the external-type builtins (Asset timestamps encode through
// them), Permissions, the directory-tree node types, the two asset
// reference variants, and Asset itself. Concrete Action implementations
// register their own codecs (see the actions package).
func RegisterCodecs(reg *persistence.Registry) {
	reg.RegisterBuiltins()
	registerPermissionsCodec(reg)
	registerDirectoryCodec(reg)
	registerActiveAssetCodec(reg)
	registerSymLinkCodec(reg)
	registerByIDCodec(reg)
	registerByPathCodec(reg)
	registerAssetCodec(reg)
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func registerPermissionsCodec(reg *persistence.Registry) {
	reg.Register(&permission.Permissions{}, &persistence.Codec{
		ModulePath: "[]/permission",
		ClassName:  "Permissions",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			p := v.(*permission.Permissions)
			bits := make(map[string]interface{}, len(p.Bits))
			for k, val := range p.Bits {
				bits[k] = val
			}
			return map[string]interface{}{"owner": p.Owner, "group": p.Group, "bits": bits}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			owner, _ := params["owner"].(string)
			group, _ := params["group"].(string)
			p := permission.New(owner, group)
			if bits, ok := params["bits"].(map[string]interface{}); ok {
				for k, val := range bits {
					if b, ok := val.(bool); ok {
						p.Bits[k] = b
					}
				}
			}
			return p, nil
		},
	})
}

func registerDirectoryCodec(reg *persistence.Registry) {
	reg.Register(&Directory{}, &persistence.Codec{
		ModulePath: "[]/store",
		ClassName:  "Directory",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			d := v.(*Directory)
			d.mu.RLock()
			defer d.mu.RUnlock()
			children := make(map[string]interface{}, len(d.children))
			for k, val := range d.children {
				children[k] = val
			}
			return map[string]interface{}{"perm": d.perm, "children": children}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			perm, _ := params["perm"].(*permission.Permissions)
			d := NewDirectory(perm)
			if children, ok := params["children"].(map[string]interface{}); ok {
				for k, val := range children {
					d.children[k] = normalizeDirEntry(val)
				}
			}
			return d, nil
		},
	})
}

// normalizeDirEntry repairs the one type that does not survive a JSON
// round-trip unaided: a bare asset id decodes as float64 (the only type a
// directory entry can be besides *Directory/*ActiveAsset/SymLink, all of
// which carry their own envelope and decode correctly already).
func normalizeDirEntry(v interface{}) interface{} {
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return v
}

func registerActiveAssetCodec(reg *persistence.Registry) {
	reg.Register(&ActiveAsset{}, &persistence.Codec{
		ModulePath: "[]/store",
		ClassName:  "ActiveAsset",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			a := v.(*ActiveAsset)
			return map[string]interface{}{"id": a.ID, "perm": a.Perm}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			perm, _ := params["perm"].(*permission.Permissions)
			return NewActiveAsset(toInt64(params["id"]), perm), nil
		},
	})
}

func registerSymLinkCodec(reg *persistence.Registry) {
	reg.Register(SymLink{}, &persistence.Codec{
		ModulePath: "[]/store",
		ClassName:  "SymLink",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"target": v.(SymLink).Target}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			target, _ := params["target"].(string)
			return SymLink{Target: target}, nil
		},
	})
}

func registerByIDCodec(reg *persistence.Registry) {
	reg.Register(ByID{}, &persistence.Codec{
		ModulePath: "[]/store",
		ClassName:  "ByID",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"id": v.(ByID).ID}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			return ByID{ID: toInt64(params["id"])}, nil
		},
	})
}

func registerByPathCodec(reg *persistence.Registry) {
	reg.Register(ByPath{}, &persistence.Codec{
		ModulePath: "[]/store",
		ClassName:  "ByPath",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"path": v.(ByPath).Path}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			p, _ := params["path"].(string)
			return ByPath{Path: p}, nil
		},
	})
}

func registerAssetCodec(reg *persistence.Registry) {
	reg.Register(&Asset{}, &persistence.Codec{
		ModulePath: "[]/store",
		ClassName:  "Asset",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			a := v.(*Asset)
			refs := a.References()
			encodedRefs := make([]interface{}, len(refs))
			for i, r := range refs {
				encodedRefs[i] = r
			}
			return map[string]interface{}{
				"id":              a.ID(),
				"action":          a.Action(),
				"args":            a.Args(),
				"permissions":     a.Permissions(),
				"update_strategy": a.UpdateStrategy(),
				"meta":            a.Meta(),
				"phony":           a.Phony(),
				"created":         a.Created(),
				"last_modified":   a.LastModified(),
				"last_build":      a.LastBuild(),
				"references":      encodedRefs,
			}, nil
		},
		Decode: func(params map[string]interface{}, _ string) (interface{}, error) {
			act, _ := params["action"].(action.Action)
			perm, _ := params["permissions"].(*permission.Permissions)
			a := NewAsset(act, perm)
			a.id = toInt64(params["id"])
			if args, ok := params["args"].(map[string]interface{}); ok {
				a.args = args
			}
			if strat, ok := params["update_strategy"].(string); ok {
				a.updateStrategy = strat
			}
			if meta, ok := params["meta"].(map[string]interface{}); ok {
				a.meta = meta
			}
			if phony, ok := params["phony"].(bool); ok {
				a.phony = phony
			}
			if created, ok := params["created"].(time.Time); ok {
				a.created = created
			}
			if lm, ok := params["last_modified"].(time.Time); ok {
				a.lastModified = lm
			}
			if lb, ok := params["last_build"].(time.Time); ok {
				a.lastBuild = lb
			}
			if refsRaw, ok := params["references"].([]interface{}); ok {
				for _, r := range refsRaw {
					if ref, ok := r.(action.Reference); ok {
						a.refs = append(a.refs, ref)
					}
				}
			}
			return a, nil
		},
	})
}
