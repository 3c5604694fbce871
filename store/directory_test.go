package store

import (
	"reflect"
	"testing"

	"assetstore.evalgo.org/permission"
)

func TestDirectoryNamesExcludesEmptyKeyAndSorts(t *testing.T) {
	d := NewDirectory(permission.New("alice", "staff"))
	d.Set("zeta", int64(3))
	d.Set("alpha", int64(1))
	d.Set("", permission.New("alice", "staff")) // distinguished perm-only slot, never surfaced

	if got, want := d.Names(), []string{"alpha", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestDirectoryHardLinkSharesOneInstance(t *testing.T) {
	root := NewDirectory(permission.New("alice", "staff"))
	child := NewDirectory(permission.New("alice", "staff"))
	root.Set("a", child)
	root.Set("b", child) // hard link: same pointer under a second name

	child.Set("marker", int64(7))

	viaA, _ := root.Get("a")
	viaB, _ := root.Get("b")
	if viaA.(*Directory) != viaB.(*Directory) {
		t.Fatal("hard-linked entries must be the identical *Directory pointer")
	}
	if v, _ := viaB.(*Directory).Get("marker"); v != int64(7) {
		t.Fatal("mutation through one hard-linked name must be visible through the other")
	}
}

func TestDirectoryDeleteRemovesEntry(t *testing.T) {
	d := NewDirectory(permission.New("alice", "staff"))
	d.Set("gone", int64(1))
	d.Delete("gone")
	if _, found := d.Get("gone"); found {
		t.Fatal("expected entry to be removed")
	}
}
