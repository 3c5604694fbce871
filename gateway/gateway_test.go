package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"assetstore.evalgo.org/actions"
	"assetstore.evalgo.org/backend/filebackend"
	"assetstore.evalgo.org/gateway"
	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/persistence"
	"assetstore.evalgo.org/store"
	"assetstore.evalgo.org/store/idcache"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	be, err := filebackend.New(t.TempDir())
	if err != nil {
		t.Fatalf("filebackend.New: %v", err)
	}

	reg := identity.NewRegistry()
	reg.Create("alice")

	persist := persistence.NewRegistry()
	store.RegisterCodecs(persist)
	actions.RegisterCodecs(persist)

	ids := idcache.NewMemory(1000)
	st := store.New(be, persist, ids, "alice", identity.Wildcard)

	rootPerm := permission.New("alice", identity.Wildcard)
	if err := rootPerm.Chmod(0755); err != nil {
		t.Fatalf("chmod root: %v", err)
	}
	st.SetRootPermissions(rootPerm)

	seedCtx := store.NewUpdateContext(st, reg, "alice", identity.Wildcard)
	leafPerm := permission.New("alice", identity.Wildcard)
	if err := leafPerm.Chmod(0644); err != nil {
		t.Fatalf("chmod leaf: %v", err)
	}
	leaf := store.NewAsset(actions.ListDirectory{}, leafPerm)
	if err := st.Store(seedCtx, leaf, "doc", 0, false); err != nil {
		t.Fatalf("seed doc: %v", err)
	}

	if err := st.Mkdir(seedCtx, "bin", 0755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	binPerm := permission.New("alice", identity.Wildcard)
	if err := binPerm.Chmod(0755); err != nil {
		t.Fatalf("chmod bin.info: %v", err)
	}
	infoAsset := store.NewAsset(actions.GetAssetInfo{}, binPerm)
	if err := st.Store(seedCtx, infoAsset, "bin.info", 0, false); err != nil {
		t.Fatalf("seed bin.info: %v", err)
	}

	h := &gateway.Handler{Store: st, Registry: reg, Version: "test"}
	e := gateway.NewEchoServer(gateway.DefaultConfig(), h)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeAssetListsRootByDefault(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var listing struct {
		Entries []struct {
			Name string `json:"Name"`
		} `json:"Entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := map[string]bool{}
	for _, e := range listing.Entries {
		names[e.Name] = true
	}
	if !names["doc"] || !names["bin"] {
		t.Fatalf("entries = %+v, want doc and bin", listing.Entries)
	}
}

func TestServeAssetResolvesAssetQueryParam(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/?asset=bin.info&path=doc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var info struct {
		Owner string `json:"Owner"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Owner != "alice" {
		t.Fatalf("owner = %q, want alice", info.Owner)
	}
}

func TestServeAssetMissingPathReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/?asset=nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestHealthzReportsVersion(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var health gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Version != "test" {
		t.Fatalf("version = %q, want test", health.Version)
	}
}
