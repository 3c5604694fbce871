package store

import (
	"testing"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/permission"
)

func TestAssetMetaGetSetNestedViaUnderscoreKeys(t *testing.T) {
	a := NewAsset(echoAction{}, permission.New("alice", "staff"))

	if err := a.MetaSet("owner_fullname", "Alice Liddell"); err != nil {
		t.Fatalf("meta set: %v", err)
	}
	got, err := a.MetaGet("owner_fullname", nil)
	if err != nil {
		t.Fatalf("meta get: %v", err)
	}
	if got != "Alice Liddell" {
		t.Fatalf("meta get = %v, want Alice Liddell", got)
	}

	missing, err := a.MetaGet("owner_nickname", "default")
	if err != nil {
		t.Fatalf("meta get missing: %v", err)
	}
	if missing != "default" {
		t.Fatalf("meta get missing = %v, want default", missing)
	}
}

func TestAssetCloneIsolatesMutableState(t *testing.T) {
	a := NewAsset(echoAction{}, permission.New("alice", "staff"))
	a.SetArgs(map[string]interface{}{"nested": map[string]interface{}{"k": "v"}})
	a.AddReference(ByID{ID: 42})

	clone := a.Clone()
	clone.Args()["nested"].(map[string]interface{})["k"] = "changed"
	clone.AddReference(ByID{ID: 99})

	if a.Args()["nested"].(map[string]interface{})["k"] != "v" {
		t.Fatal("mutating the clone's nested arg leaked back into the original")
	}
	if len(a.References()) != 1 {
		t.Fatalf("original references mutated by clone: %d", len(a.References()))
	}
	if len(clone.References()) != 2 {
		t.Fatalf("clone references = %d, want 2", len(clone.References()))
	}
}

func TestAssetRecordResultBumpsLastBuildOnlyWhenValid(t *testing.T) {
	a := NewAsset(echoAction{}, permission.New("alice", "staff"))
	before := a.LastBuild()

	a.RecordResult(action.Failed("boom", "", "", nil))
	if a.LastBuild() != before {
		t.Fatal("a failed result must not bump last_build")
	}

	a.RecordResult(action.Valid("ok"))
	if !a.LastBuild().After(before) {
		t.Fatal("a valid result must bump last_build to last_modified")
	}
}
