package persistence

import (
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// PortablePathResolver translates bracketed portable module paths
// ("[]/store", "[HOME]/.assetstore/plugins/x.so") into host filesystem
// paths, so persisted object_source locators survive moving the store
// between machines or users.
type PortablePathResolver struct {
	root string // filesystem path substituted for "[]"
}

// NewPortablePathResolver returns a resolver rooted at root (typically the
// store's base directory).
func NewPortablePathResolver(root string) *PortablePathResolver {
	return &PortablePathResolver{root: root}
}

// Resolve converts a portable path to a host filesystem path.
func (r *PortablePathResolver) Resolve(portable string) (string, error) {
	switch {
	case strings.HasPrefix(portable, "[]/"):
		return filepath.Join(r.root, strings.TrimPrefix(portable, "[]/")), nil
	case portable == "[]":
		return r.root, nil
	case strings.HasPrefix(portable, "[HOME]/"):
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("persistence: resolving [HOME]: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(portable, "[HOME]/")), nil
	case portable == "[HOME]":
		return homedir.Dir()
	default:
		return "", fmt.Errorf("persistence: unrecognized portable path %q", portable)
	}
}

// Portable converts a host filesystem path back to its portable form,
// preferring the "[]" root prefix and falling back to "[HOME]" if host
// falls under the user's home directory.
func (r *PortablePathResolver) Portable(host string) (string, error) {
	if rel, err := filepath.Rel(r.root, host); err == nil && !strings.HasPrefix(rel, "..") {
		if rel == "." {
			return "[]", nil
		}
		return "[]/" + filepath.ToSlash(rel), nil
	}
	home, err := homedir.Dir()
	if err == nil {
		if rel, relErr := filepath.Rel(home, host); relErr == nil && !strings.HasPrefix(rel, "..") {
			if rel == "." {
				return "[HOME]", nil
			}
			return "[HOME]/" + filepath.ToSlash(rel), nil
		}
	}
	return "", fmt.Errorf("persistence: %q is outside both the store root and the home directory", host)
}
