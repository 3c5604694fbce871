package store

import (
	"sort"
	"sync"

	"assetstore.evalgo.org/permission"
)

// SymLink is a directory entry that restarts traversal at Target, a
// dotted-path string, when encountered.
type SymLink struct {
	Target string
}

// Directory is a mapping node in the asset tree: named children plus its
// own Permissions. A hard link is simply the same *Directory pointer
// stored under two different names — Go's reference semantics give the
// "shared view" for free, with no separate wrapper type needed.
type Directory struct {
	mu       sync.RWMutex
	perm     *permission.Permissions
	children map[string]interface{} // name -> *Directory | int64 | *ActiveAsset | SymLink
}

// NewDirectory returns an empty Directory owned per perm.
func NewDirectory(perm *permission.Permissions) *Directory {
	return &Directory{perm: perm, children: map[string]interface{}{}}
}

// Perm returns the directory's own Permissions (always present, per the
// root-permissions invariant).
func (d *Directory) Perm() *permission.Permissions {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.perm
}

// SetPerm replaces the directory's own Permissions (chmod/chown/chgrp on a
// directory).
func (d *Directory) SetPerm(p *permission.Permissions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.perm = p
}

// Get returns the child entry named name, if any. The empty-string
// permissions key is never exposed through Get by callers that go through
// Names/ReadDir, but Get itself does not special-case it — callers asking
// for "" explicitly would only ever be doing so by construction error.
func (d *Directory) Get(name string) (interface{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.children[name]
	return v, ok
}

// Set places entry at name.
func (d *Directory) Set(name string, entry interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children[name] = entry
}

// Delete removes the child entry named name.
func (d *Directory) Delete(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.children, name)
}

// Names returns the directory's child names in sorted order, excluding the
// distinguished empty-string permissions key — the read-directory-never-
// exposes-the-permissions-key invariant.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.children))
	for name := range d.children {
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
