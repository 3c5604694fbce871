package actions_test

import (
	"testing"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/actions"
	"assetstore.evalgo.org/backend/filebackend"
	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/persistence"
	"assetstore.evalgo.org/store"
	"assetstore.evalgo.org/store/idcache"
)

func newTestHarness(t *testing.T) (*store.Store, *identity.Registry, *store.UpdateContext) {
	t.Helper()

	be, err := filebackend.New(t.TempDir())
	if err != nil {
		t.Fatalf("filebackend.New: %v", err)
	}

	reg := identity.NewRegistry()
	reg.Create("alice")
	reg.Create("staff")
	reg.Create("bob", "staff")

	persist := persistence.NewRegistry()
	store.RegisterCodecs(persist)
	actions.RegisterCodecs(persist)

	ids := idcache.NewMemory(100000)

	st := store.New(be, persist, ids, "alice", "staff")
	st.SetRootPermissions(rootPerm("alice", "staff", 0755))
	ctx := store.NewUpdateContext(st, reg, "alice", "staff")
	return st, reg, ctx
}

func rootPerm(owner, group string, mode int) *permission.Permissions {
	p := permission.New(owner, group)
	if err := p.Chmod(mode); err != nil {
		panic(err)
	}
	return p
}

func TestListDirectoryReadsRootByDefault(t *testing.T) {
	st, _, ctx := newTestHarness(t)

	leaf := store.NewAsset(actions.ListDirectory{}, rootPerm("alice", "staff", 0644))
	if err := st.Store(ctx, leaf, "readme", 0, false); err != nil {
		t.Fatalf("store leaf: %v", err)
	}

	ls := actions.ListDirectory{}
	result := ls.Execute(nil, ctx, map[string]interface{}{})
	cr, ok := result.(*action.CallResult)
	if !ok {
		t.Fatalf("result = %#v, want *action.CallResult", result)
	}
	if cr.IsError() {
		t.Fatalf("ls failed: %s", cr.Message())
	}
	listing, ok := cr.Value().(*store.ReadDirResult)
	if !ok {
		t.Fatalf("value = %#v, want *store.ReadDirResult", cr.Value())
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "readme" {
		t.Fatalf("entries = %#v, want one entry named readme", listing.Entries)
	}
}

func TestListDirectoryHTMLVariant(t *testing.T) {
	_, _, ctx := newTestHarness(t)

	ls := actions.ListDirectory{}
	result := ls.Execute(nil, ctx, map[string]interface{}{"html": "1"})
	cr, ok := result.(*action.CallResult)
	if !ok || cr.IsError() {
		t.Fatalf("result = %#v", result)
	}
	page, ok := cr.Value().(string)
	if !ok || page == "" {
		t.Fatalf("expected a non-empty html page, got %#v", cr.Value())
	}
}

func TestGetAssetInfoReportsOwnershipAndMode(t *testing.T) {
	st, _, ctx := newTestHarness(t)

	leaf := store.NewAsset(actions.ListDirectory{}, rootPerm("alice", "staff", 0644))
	if err := st.Store(ctx, leaf, "doc", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	info := actions.GetAssetInfo{}
	result := info.Execute(nil, ctx, map[string]interface{}{"path": "doc"})
	got, ok := result.(*actions.AssetInfo)
	if !ok {
		t.Fatalf("result = %#v, want *actions.AssetInfo", result)
	}
	if got.Owner != "alice" || got.Group != "staff" {
		t.Fatalf("owner/group = %s/%s, want alice/staff", got.Owner, got.Group)
	}
	if got.ID != leaf.ID() {
		t.Fatalf("ID = %d, want %d", got.ID, leaf.ID())
	}
	if got.Mode != "rw-r--r--" {
		t.Fatalf("Mode = %q, want rw-r--r--", got.Mode)
	}
}

func TestGetHelpReturnsActionHelp(t *testing.T) {
	st, _, ctx := newTestHarness(t)

	leaf := store.NewAsset(actions.ListDirectory{}, rootPerm("alice", "staff", 0644))
	if err := st.Store(ctx, leaf, "doc", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	h := actions.GetHelp{}
	result := h.Execute(nil, ctx, map[string]interface{}{"path": "doc"})
	help, ok := result.(action.Help)
	if !ok {
		t.Fatalf("result = %#v, want action.Help", result)
	}
	if help.Description == "" {
		t.Fatal("expected a non-empty help description")
	}
}

func TestCallDelegatesToReferencedAssetWithOverrides(t *testing.T) {
	st, _, ctx := newTestHarness(t)

	leaf := store.NewAsset(echoAction{}, rootPerm("alice", "staff", 0755))
	leaf.SetArgs(map[string]interface{}{"value": "default"})
	if err := st.Store(ctx, leaf, "echo", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	call := actions.Call{}
	result := call.Execute(nil, ctx, map[string]interface{}{"_ref": "echo", "value": "overridden"})
	cr, ok := result.(*action.CallResult)
	if !ok {
		t.Fatalf("result = %#v, want *action.CallResult", result)
	}
	if cr.IsError() {
		t.Fatalf("call failed: %s", cr.Message())
	}
	if cr.Value() != "overridden" {
		t.Fatalf("value = %v, want overridden", cr.Value())
	}
}

func TestReloadFailsCleanlyWithoutAModuleTableConfigured(t *testing.T) {
	st, _, ctx := newTestHarness(t)

	leaf := store.NewAsset(echoAction{}, rootPerm("alice", "staff", 0755))
	if err := st.Store(ctx, leaf, "echo", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	reload := actions.Reload{}
	result := reload.Execute(nil, ctx, map[string]interface{}{
		"path":   "echo",
		"module": "[]/plugins/echo.so",
	})
	if _, ok := result.(error); !ok {
		t.Fatalf("result = %#v, want an error when no module table is configured", result)
	}
}

func TestCallRequiresRef(t *testing.T) {
	_, _, ctx := newTestHarness(t)
	call := actions.Call{}
	result := call.Execute(nil, ctx, map[string]interface{}{})
	if _, ok := result.(error); !ok {
		t.Fatalf("result = %#v, want an error for a missing _ref", result)
	}
}

// echoAction is a minimal Stateless+Persistable action for exercising Call
// and the argument-merge path without pulling in the store package's own
// internal test helpers.
type echoAction struct {
	action.Stateless
}

func (echoAction) Execute(_ action.Asset, _ action.Context, args map[string]interface{}) interface{} {
	return args["value"]
}

func (echoAction) ModulePath() string { return "[]/actions_test" }
func (echoAction) ClassName() string  { return "EchoAction" }
func (echoAction) Version() string    { return "1" }
