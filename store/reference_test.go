package store

import (
	"testing"

	"assetstore.evalgo.org/permission"
)

func TestByIDResolve(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	asset := NewAsset(echoAction{}, rootPerm("alice", "staff", 0644))
	if err := st.Store(ctx, asset, "widget", 0, false); err != nil {
		t.Fatalf("store: %v", err)
	}

	resolved, err := (ByID{ID: asset.ID()}).Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if resolved.ID() != asset.ID() {
		t.Fatalf("resolved id = %d, want %d", resolved.ID(), asset.ID())
	}
}

func TestByPathResolveMissReturnsNotFound(t *testing.T) {
	st, reg, _ := newTestHarness(t)
	st.root.SetPerm(rootPerm("alice", "staff", 0755))
	ctx := NewUpdateContext(st, reg, "alice", "staff")

	_, err := (ByPath{Path: "nowhere"}).Resolve(ctx)
	if err == nil {
		t.Fatal("expected an error resolving a missing path")
	}
}

func TestResolveRejectsForeignContext(t *testing.T) {
	if _, err := (ByID{ID: 1}).Resolve(nil); err == nil {
		t.Fatal("expected asUpdateContext to reject a nil action.Context")
	}
}

func TestActiveAssetMountsOwnPermissions(t *testing.T) {
	perm := permission.New("alice", "staff")
	aa := NewActiveAsset(7, perm)
	if aa.ID != 7 {
		t.Fatalf("ActiveAsset.ID = %d, want 7", aa.ID)
	}
	if aa.Perm != perm {
		t.Fatal("ActiveAsset must carry the exact Permissions pointer it was constructed with")
	}
}
