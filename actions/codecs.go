package actions

import "assetstore.evalgo.org/persistence"

// Persistable identity methods. Every built-in here is stateless (no
// constructor parameters survive a store/load cycle), so ModulePath and
// ClassName alone are enough for the registry to reconstruct it.

func (ListDirectory) ModulePath() string { return "[]/actions" }
func (ListDirectory) ClassName() string  { return "ListDirectory" }
func (ListDirectory) Version() string    { return "1" }

func (GetAssetInfo) ModulePath() string { return "[]/actions" }
func (GetAssetInfo) ClassName() string  { return "GetAssetInfo" }
func (GetAssetInfo) Version() string    { return "1" }

func (GetHelp) ModulePath() string { return "[]/actions" }
func (GetHelp) ClassName() string  { return "GetHelp" }
func (GetHelp) Version() string    { return "1" }

func (Call) ModulePath() string { return "[]/actions" }
func (Call) ClassName() string  { return "Call" }
func (Call) Version() string    { return "1" }

func (Reload) ModulePath() string { return "[]/actions" }
func (Reload) ClassName() string  { return "Reload" }
func (Reload) Version() string    { return "1" }

// RegisterCodecs wires every built-in action in this package into reg, so
// a persisted Asset referencing one of them decodes back to a usable
// action.Action.
func RegisterCodecs(reg *persistence.Registry) {
	registerStateless(reg, "ListDirectory", func() interface{} { return ListDirectory{} })
	registerStateless(reg, "GetAssetInfo", func() interface{} { return GetAssetInfo{} })
	registerStateless(reg, "GetHelp", func() interface{} { return GetHelp{} })
	registerStateless(reg, "Call", func() interface{} { return Call{} })
	registerStateless(reg, "Reload", func() interface{} { return Reload{} })
}

func registerStateless(reg *persistence.Registry, className string, zero func() interface{}) {
	reg.Register(zero(), &persistence.Codec{
		ModulePath: "[]/actions",
		ClassName:  className,
		Version:    "1",
		Encode: func(interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
		Decode: func(map[string]interface{}, string) (interface{}, error) {
			return zero(), nil
		},
	})
}
