package store

import (
	"fmt"
	"time"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/permission"
)

// EntryInfo describes one child in a ReadDirResult: its name, ownership,
// short-form mode string, whether it is itself a directory, and (for asset
// entries) when it was last modified. LastModified is the zero time for
// directories and symlinks, which carry no modification timestamp of their
// own.
type EntryInfo struct {
	Name         string
	Owner        string
	Group        string
	Mode         string
	Directory    bool
	LastModified time.Time
}

// ReadDirResult is the value a directory-listing asset's Execute produces.
type ReadDirResult struct {
	Path    string
	Perm    *permission.Permissions
	Entries []EntryInfo
}

// readDirAction is the virtual action the store synthesizes when
// acquisition terminates on a directory mapping node.
type readDirAction struct {
	action.Stateless
	store *Store
	dir   *Directory
	path  string
}

func (r *readDirAction) Execute(_ action.Asset, ctx action.Context, _ map[string]interface{}) interface{} {
	if !ctx.PermissionGranted(r.dir.Perm(), permission.Read) {
		return fmt.Errorf("%w: read denied on directory %q", ErrPermissionDenied, r.path)
	}

	uc, _ := ctx.(*UpdateContext)
	names := r.dir.Names()
	entries := make([]EntryInfo, 0, len(names))
	for _, name := range names {
		entry, _ := r.dir.Get(name)
		entries = append(entries, r.store.describeEntry(uc, name, entry))
	}
	return &ReadDirResult{Path: r.path, Perm: r.dir.Perm(), Entries: entries}
}

func (r *readDirAction) Help() action.Help {
	return action.Help{Description: "list the children of a directory node", Returns: "ReadDirResult"}
}

func (s *Store) describeEntry(ctx *UpdateContext, name string, entry interface{}) EntryInfo {
	switch t := entry.(type) {
	case *Directory:
		p := t.Perm()
		return EntryInfo{Name: name, Owner: p.Owner, Group: p.Group, Mode: p.ModeString(), Directory: true}
	case *ActiveAsset:
		lm := time.Time{}
		if a, err := s.loadAsset(ctx, t.ID); err == nil {
			lm = a.LastModified()
		}
		return EntryInfo{Name: name, Owner: t.Perm.Owner, Group: t.Perm.Group, Mode: t.Perm.ModeString(), Directory: false, LastModified: lm}
	case int64:
		if a, err := s.loadAsset(ctx, t); err == nil {
			p := a.Permissions()
			return EntryInfo{Name: name, Owner: p.Owner, Group: p.Group, Mode: p.ModeString(), Directory: false, LastModified: a.LastModified()}
		}
		return EntryInfo{Name: name, Directory: false}
	case SymLink:
		return EntryInfo{Name: name, Mode: "lrwxrwxrwx", Directory: false}
	default:
		return EntryInfo{Name: name}
	}
}

// synthesizeReadDir wraps dir in a Fresh, unstored Asset bound to a
// readDirAction, for the virtual "directory as asset" acquisition case.
// dirPath is the dotted path the directory was reached at, reported back
// in the ReadDirResult.
func (s *Store) synthesizeReadDir(dir *Directory, dirPath string) *Asset {
	ra := &readDirAction{store: s, dir: dir, path: dirPath}
	return NewAsset(ra, dir.Perm())
}
