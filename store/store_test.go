package store

import (
	"context"
	"sync"
	"testing"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/backend"
	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/persistence"
	"assetstore.evalgo.org/store/idcache"
)

// memBackend is a trivial in-process backend.Backend for exercising the
// store without a real filesystem/bolt/S3 driver.
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }

func (b *memBackend) Get(_ context.Context, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *memBackend) Put(_ context.Context, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[id] = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, id)
	return nil
}

func (b *memBackend) List(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.data))
	for k := range b.data {
		out = append(out, k)
	}
	return out, nil
}

func (b *memBackend) Close() error { return nil }

// echoAction is a minimal test action: it returns whatever args["value"] was
// passed, so update/acquire tests can observe the full plumbing end to end.
// It implements persistence.Persistable, which the encoder uses, and
// registerEchoActionCodec registers the Codec the decoder finds it by, so it
// round-trips through Store/Save like a real action would.
type echoAction struct {
	action.Stateless
}

func (echoAction) Execute(asset action.Asset, _ action.Context, args map[string]interface{}) interface{} {
	return args["value"]
}

func (echoAction) ModulePath() string { return "[]/store_test" }
func (echoAction) ClassName() string  { return "EchoAction" }
func (echoAction) Version() string    { return "1" }

func registerEchoActionCodec(reg *persistence.Registry) {
	reg.Register(echoAction{}, &persistence.Codec{
		ModulePath: "[]/store_test",
		ClassName:  "EchoAction",
		Version:    "1",
		Encode: func(v interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
		Decode: func(map[string]interface{}, string) (interface{}, error) {
			return echoAction{}, nil
		},
	})
}

func newTestHarness(t *testing.T) (*Store, *identity.Registry, *memBackend) {
	t.Helper()
	reg := identity.NewRegistry()
	if _, err := reg.Create("alice"); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if _, err := reg.Create("staff"); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if _, err := reg.Create("bob", "staff"); err != nil {
		t.Fatalf("create bob: %v", err)
	}

	be := newMemBackend()
	persist := persistence.NewRegistry()
	RegisterCodecs(persist)
	registerEchoActionCodec(persist)
	ids := idcache.NewMemory(defaultFirstID)
	st := New(be, persist, ids, "alice", "staff")
	return st, reg, be
}

func rootPerm(owner, group string, mode int) *permission.Permissions {
	p := permission.New(owner, group)
	_ = p.Chmod(mode)
	return p
}

func TestMkdirAndStoreAcquireRoundTrip(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	if err := st.Mkdir(ctx, "projects", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	asset := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	asset.SetArgs(map[string]interface{}{"value": "hello"})
	if err := st.Store(ctx, asset, "projects.widget", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := st.Acquire(ctx, "projects.widget", nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.ID() != asset.ID() {
		t.Fatalf("acquired asset id = %d, want %d", got.ID(), asset.ID())
	}
}

func TestAcquireMissingPathReturnsDefaultOrError(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	if _, err := st.Acquire(ctx, "nonexistent.path", nil); err == nil {
		t.Fatal("expected ErrNotFound for missing path with nil default")
	}

	def := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	got, err := st.Acquire(ctx, "nonexistent.path", def)
	if err != nil {
		t.Fatalf("acquire with default: %v", err)
	}
	if got != def {
		t.Fatal("expected the supplied default to be returned verbatim on a miss")
	}
}

func TestAcquirePermissionDeniedPropagatesRegardlessOfDefault(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0700)) // no access for others
	ctxBob := NewUpdateContext(st, reg, "bob", "staff")

	def := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	if _, err := st.Acquire(ctxBob, "anything", def); err == nil {
		t.Fatal("expected permission-denied error even with a non-nil default")
	}
}

func TestRemoveDeletesEntryAndUncachesAsset(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	asset := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	if err := st.Store(ctx, asset, "thing", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := st.Remove(ctx, "thing"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.Acquire(ctx, "thing", nil); err == nil {
		t.Fatal("expected ErrNotFound after remove")
	}
}

func TestReadDirSynthesizesVirtualAsset(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	if err := st.Mkdir(ctx, "projects", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	asset := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	if err := st.Store(ctx, asset, "projects.widget", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	dirAsset, err := st.Acquire(ctx, "projects", nil)
	if err != nil {
		t.Fatalf("acquire directory: %v", err)
	}
	result := action.Invoke(dirAsset.Action(), dirAsset, ctx, nil)
	if result.IsError() {
		t.Fatalf("readdir execute failed: %s", result.Message())
	}
	listing, ok := result.Value().(*ReadDirResult)
	if !ok {
		t.Fatalf("expected *ReadDirResult, got %T", result.Value())
	}
	if listing.Path != "projects" {
		t.Fatalf("listing.Path = %q, want %q", listing.Path, "projects")
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "widget" {
		t.Fatalf("unexpected entries: %#v", listing.Entries)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, reg, be := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	asset := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	asset.SetArgs(map[string]interface{}{"value": "persisted"})
	if err := st.Store(ctx, asset, "widget", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := st.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	persist := persistence.NewRegistry()
	RegisterCodecs(persist)
	registerEchoActionCodec(persist)
	ids2 := idcache.NewMemory(0)
	st2 := New(be, persist, ids2, "alice", "staff")
	if err := st2.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx2 := NewUpdateContext(st2, reg, "alice", "staff")
	got, err := st2.Acquire(ctx2, "widget", nil)
	if err != nil {
		t.Fatalf("acquire after reload: %v", err)
	}
	if got.ID() != asset.ID() {
		t.Fatalf("reloaded asset id = %d, want %d", got.ID(), asset.ID())
	}
}
