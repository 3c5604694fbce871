// Package store implements the persistent asset tree: directory mapping,
// asset records, id allocation, and the permission-gated traversal that
// acquires assets by path or by id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/applog"
	"assetstore.evalgo.org/backend"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/persistence"
	"assetstore.evalgo.org/store/idcache"
)

const (
	directoryBlobID = "directory"
	nextIDBlobID     = "nextId"
	defaultFirstID   = int64(100000)
)

// Store is the directory tree plus the pluggable backend and distributed
// id-cache it persists through. A single reader/writer lock serializes
// tree mutations (Store/Mkdir/Remove) against tree reads (Acquire/ReadDir),
// matching the concurrency model's root-to-leaf lock-ordering contract.
type Store struct {
	mu   sync.RWMutex
	root *Directory

	be      backend.Backend
	persist *persistence.Registry
	ids     idcache.Cache

	cacheMu sync.RWMutex
	cache   map[int64]*Asset

	firstID int64
	log     *applog.Context
}

// New returns a Store rooted at a fresh empty directory owned by
// rootOwner/rootGroup, backed by be and caching ids/blobs through ids.
func New(be backend.Backend, persist *persistence.Registry, ids idcache.Cache, rootOwner, rootGroup string) *Store {
	root := NewDirectory(permission.New(rootOwner, rootGroup))
	return &Store{
		root:    root,
		be:      be,
		persist: persist,
		ids:     ids,
		cache:   map[int64]*Asset{},
		firstID: defaultFirstID,
		log:     applog.Base.WithField("component", "store"),
	}
}

// SetRootPermissions replaces the root directory's Permissions. New
// leaves the root with nothing granted to anyone; bootstrap code calls
// this once, before any identity-gated traversal happens, to open it up
// (conventionally 0755: owner rwx, everyone else r-x).
func (s *Store) SetRootPermissions(p *permission.Permissions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.SetPerm(p)
}

// Load reads the directory tree and next-id counter from the backend. A
// backend with nothing stored yet (fresh deployment) is not an error: Load
// leaves the empty root directory in place and seeds the id counter at
// firstID.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.be.Get(ctx, directoryBlobID)
	if errors.Is(err, backend.ErrNotFound) {
		return s.ids.SeedNextID(ctx, s.firstID)
	}
	if err != nil {
		return fmt.Errorf("%w: loading directory: %v", ErrBackendUnavailable, err)
	}
	decoded, err := s.persist.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: decoding directory: %v", ErrSerialization, err)
	}
	dir, ok := decoded.(*Directory)
	if !ok {
		return fmt.Errorf("%w: persisted directory decoded to %T", ErrSerialization, decoded)
	}
	s.root = dir

	nextData, err := s.be.Get(ctx, nextIDBlobID)
	if errors.Is(err, backend.ErrNotFound) {
		return s.ids.SeedNextID(ctx, s.firstID)
	}
	if err != nil {
		return fmt.Errorf("%w: loading next-id counter: %v", ErrBackendUnavailable, err)
	}
	var n int64
	if err := json.Unmarshal(nextData, &n); err != nil {
		return fmt.Errorf("%w: decoding next-id counter: %v", ErrSerialization, err)
	}
	if n < s.firstID {
		n = s.firstID
	}
	return s.ids.SeedNextID(ctx, n)
}

// Save writes the directory tree and next-id counter back to the backend.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	data, err := s.persist.Marshal(s.root)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: encoding directory: %v", ErrSerialization, err)
	}
	if err := s.be.Put(ctx, directoryBlobID, data); err != nil {
		return fmt.Errorf("%w: saving directory: %v", ErrBackendUnavailable, err)
	}

	n, err := s.ids.Peek(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading next-id counter: %v", ErrBackendUnavailable, err)
	}
	nextData, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: encoding next-id counter: %v", ErrSerialization, err)
	}
	if err := s.be.Put(ctx, nextIDBlobID, nextData); err != nil {
		return fmt.Errorf("%w: saving next-id counter: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func splitStorePath(raw string) ([]string, error) {
	if strings.Contains(raw, "[") {
		return nil, fmt.Errorf("%w: store paths may not contain '[': %q", ErrInvalidArgument, raw)
	}
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty path segment in %q", ErrInvalidArgument, raw)
		}
	}
	return parts, nil
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

// Acquire resolves rawPath from the root, permission-gated at every step.
// A navigational miss (path segment not found, or a non-directory node
// reached with path segments still pending that it cannot service)
// returns def if def is non-nil, or ErrNotFound otherwise. Permission
// failures always propagate as errors, regardless of def.
func (s *Store) Acquire(ctx *UpdateContext, rawPath string, def *Asset) (*Asset, error) {
	components, err := splitStorePath(rawPath)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acquireComponents(ctx, components, def, 0)
}

// AcquireByID loads an asset directly by its stored id, bypassing path
// traversal and its permission gating (the caller already holds a
// reference obtained through a permission-checked path, or is the store's
// own internal machinery).
func (s *Store) AcquireByID(ctx *UpdateContext, id int64) (*Asset, error) {
	return s.loadAsset(ctx, id)
}

func (s *Store) acquireComponents(ctx *UpdateContext, components []string, def *Asset, depth int) (*Asset, error) {
	if depth > maxSymlinkDepth {
		return nil, ErrTraversalTooDeep
	}

	var node interface{} = s.root
	effectivePerm := s.root.Perm()
	i := 0
	for i < len(components) {
		if !ctx.PermissionGranted(effectivePerm, permission.Execute) {
			return nil, fmt.Errorf("%w: execute denied at %q", ErrPermissionDenied, strings.Join(components[:i+1], "."))
		}
		dir, ok := node.(*Directory)
		if !ok {
			break // leaf entry reached with components still pending: they become "extras"
		}
		entry, found := dir.Get(components[i])
		if !found {
			return s.acquireMiss(def)
		}
		node = entry
		switch t := entry.(type) {
		case *Directory:
			effectivePerm = t.Perm()
		case *ActiveAsset:
			effectivePerm = t.Perm
		}
		i++
	}

	consumed := strings.Join(components[:i], ".")
	return s.resolveTerminal(ctx, node, effectivePerm, components[i:], consumed, def, depth)
}

func (s *Store) acquireMiss(def *Asset) (*Asset, error) {
	if def != nil {
		return def, nil
	}
	return nil, ErrNotFound
}

func (s *Store) resolveTerminal(ctx *UpdateContext, node interface{}, effectivePerm *permission.Permissions, extras []string, consumedPath string, def *Asset, depth int) (*Asset, error) {
	switch t := node.(type) {
	case *Directory:
		return s.synthesizeReadDir(t, consumedPath), nil

	case int64:
		if len(extras) > 0 {
			return s.acquireMiss(def)
		}
		asset, err := s.loadAsset(ctx, t)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return s.acquireMiss(def)
			}
			return nil, err
		}
		return asset, nil

	case *ActiveAsset:
		asset, err := s.loadAsset(ctx, t.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return s.acquireMiss(def)
			}
			return nil, err
		}
		if len(extras) == 0 {
			return asset, nil
		}
		if !ctx.PermissionGranted(t.Perm, permission.Execute) {
			return nil, fmt.Errorf("%w: execute denied on mounted asset", ErrPermissionDenied)
		}
		clone := asset.Clone()
		ctx.Set("_inner_get", strings.Join(extras, "."))
		return clone, nil

	case SymLink:
		targetComponents, err := splitStorePath(t.Target)
		if err != nil {
			return nil, err
		}
		combined := append(append([]string{}, targetComponents...), extras...)
		return s.acquireComponents(ctx, combined, def, depth+1)

	default:
		return nil, fmt.Errorf("%w: unrecognized directory entry type %T", ErrInvalidArgument, node)
	}
}

// loadAsset returns the asset for id, consulting the in-process cache,
// then the distributed blob cache, then the backend — caching the result
// at each miss level once found.
func (s *Store) loadAsset(ctx *UpdateContext, id int64) (*Asset, error) {
	s.cacheMu.RLock()
	if a, ok := s.cache[id]; ok {
		s.cacheMu.RUnlock()
		return a, nil
	}
	s.cacheMu.RUnlock()

	background := context.Background()
	key := idKey(id)

	if data, ok, err := s.ids.GetBlob(background, key); err == nil && ok {
		if asset, decodeErr := s.decodeAsset(data); decodeErr == nil {
			s.cacheAsset(id, asset)
			return asset, nil
		}
	}

	data, err := s.be.Get(background, key)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading asset %d: %v", ErrBackendUnavailable, id, err)
	}
	asset, err := s.decodeAsset(data)
	if err != nil {
		return nil, err
	}
	s.cacheAsset(id, asset)
	_ = s.ids.PutBlob(background, key, data)
	return asset, nil
}

func (s *Store) decodeAsset(data []byte) (*Asset, error) {
	decoded, err := s.persist.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding asset: %v", ErrSerialization, err)
	}
	asset, ok := decoded.(*Asset)
	if !ok {
		return nil, fmt.Errorf("%w: asset blob decoded to %T", ErrSerialization, decoded)
	}
	return asset, nil
}

func (s *Store) cacheAsset(id int64, a *Asset) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[id] = a
}

func (s *Store) uncacheAsset(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.cache, id)
	_ = s.ids.InvalidateBlob(context.Background(), idKey(id))
}

// storeAssetBlob serializes and writes a single asset record to the
// backend, independent of any directory-tree mutation.
func (s *Store) storeAssetBlob(ctx context.Context, a *Asset) error {
	data, err := s.persist.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: encoding asset %d: %v", ErrSerialization, a.ID(), err)
	}
	if err := s.be.Put(ctx, idKey(a.ID()), data); err != nil {
		return fmt.Errorf("%w: storing asset %d: %v", ErrBackendUnavailable, a.ID(), err)
	}
	s.cacheAsset(a.ID(), a)
	return nil
}

// Store writes a onto the backend (allocating an id if fresh), and, if
// mountPath is non-empty, splices it into the directory tree at that path,
// materializing missing intermediate directories as it goes. When hasMode
// is true, mode synthesizes the asset's Permissions for
// owner=ctx.GetUser()/group=ctx.GetGroup() before the write.
func (s *Store) Store(ctx *UpdateContext, a *Asset, mountPath string, mode int, hasMode bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hasMode {
		perm := permission.New(ctx.GetUser(), ctx.GetGroup())
		if err := perm.Chmod(mode); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		a.SetPermissions(perm)
	}

	if a.IsFresh() {
		id, err := s.ids.NextID(context.Background())
		if err != nil {
			return fmt.Errorf("%w: allocating id: %v", ErrBackendUnavailable, err)
		}
		a.SetID(id)
	}

	if err := s.storeAssetBlob(context.Background(), a); err != nil {
		return err
	}

	if mountPath == "" {
		return nil
	}

	components, err := splitStorePath(mountPath)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: empty mount path", ErrInvalidArgument)
	}

	parent, err := s.materializeParent(ctx, components[:len(components)-1])
	if err != nil {
		return err
	}

	name := components[len(components)-1]
	if err := s.checkWriteAndSticky(ctx, parent, name); err != nil {
		return err
	}

	var entry interface{} = a.ID()
	if a.Action() != nil && a.Action().AcceptsInnerAccess() {
		entry = NewActiveAsset(a.ID(), a.Permissions())
	}
	parent.Set(name, entry)
	return nil
}

// materializeParent walks components from the root, creating missing
// intermediate directories, gated by w on the would-be parent's effective
// permissions at each creation.
func (s *Store) materializeParent(ctx *UpdateContext, components []string) (*Directory, error) {
	dir := s.root
	for _, name := range components {
		entry, found := dir.Get(name)
		if found {
			next, ok := entry.(*Directory)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a directory", ErrTypeMismatch, name)
			}
			dir = next
			continue
		}
		if !ctx.PermissionGranted(dir.Perm(), permission.Write) {
			return nil, fmt.Errorf("%w: write denied creating %q", ErrPermissionDenied, name)
		}
		child := NewDirectory(permission.New(ctx.GetUser(), ctx.GetGroup()))
		dir.Set(name, child)
		dir = child
	}
	return dir, nil
}

// checkWriteAndSticky gates the final write at name under parent: w is
// required on parent; if parent is sticky, an existing entry at name may
// only be overwritten by its owner.
func (s *Store) checkWriteAndSticky(ctx *UpdateContext, parent *Directory, name string) error {
	if !ctx.PermissionGranted(parent.Perm(), permission.Write) {
		return fmt.Errorf("%w: write denied on parent directory", ErrPermissionDenied)
	}
	existing, found := parent.Get(name)
	if !found || !parent.Perm().IsSticky() {
		return nil
	}
	owner := s.entryOwner(ctx, existing)
	if owner != "" && !parent.Perm().CanOverwrite(ctx.GetUser(), owner) {
		return fmt.Errorf("%w: sticky directory: only %s may overwrite %q", ErrPermissionDenied, owner, name)
	}
	return nil
}

func (s *Store) entryOwner(ctx *UpdateContext, entry interface{}) string {
	switch t := entry.(type) {
	case *Directory:
		return t.Perm().Owner
	case *ActiveAsset:
		return t.Perm.Owner
	case int64:
		if a, err := s.loadAsset(ctx, t); err == nil {
			return a.Permissions().Owner
		}
	}
	return ""
}

// Mkdir creates an empty directory at path with Permissions derived from
// mode, under the same write/sticky gating as Store.
func (s *Store) Mkdir(ctx *UpdateContext, rawPath string, mode int) error {
	components, err := splitStorePath(rawPath)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: mkdir requires a non-empty path", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.materializeParent(ctx, components[:len(components)-1])
	if err != nil {
		return err
	}
	name := components[len(components)-1]
	if err := s.checkWriteAndSticky(ctx, parent, name); err != nil {
		return err
	}

	perm := permission.New(ctx.GetUser(), ctx.GetGroup())
	if err := perm.Chmod(mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	parent.Set(name, NewDirectory(perm))
	return nil
}

// Remove deletes the child entry at path. Removing a directory does not
// cascade into its contents.
func (s *Store) Remove(ctx *UpdateContext, rawPath string) error {
	components, err := splitStorePath(rawPath)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: remove requires a non-empty path", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parentComponents := components[:len(components)-1]
	dir := s.root
	for _, name := range parentComponents {
		entry, found := dir.Get(name)
		if !found {
			return ErrNotFound
		}
		next, ok := entry.(*Directory)
		if !ok {
			return fmt.Errorf("%w: %q is not a directory", ErrTypeMismatch, name)
		}
		dir = next
	}

	name := components[len(components)-1]
	entry, found := dir.Get(name)
	if !found {
		return ErrNotFound
	}
	if err := s.checkWriteAndSticky(ctx, dir, name); err != nil {
		return err
	}
	if id, ok := entry.(int64); ok {
		s.uncacheAsset(id)
	}
	if aa, ok := entry.(*ActiveAsset); ok {
		s.uncacheAsset(aa.ID)
	}
	dir.Delete(name)
	return nil
}
