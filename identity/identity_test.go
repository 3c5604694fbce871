package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHasWildcard(t *testing.T) {
	reg := NewRegistry()
	e, err := reg.Get(Wildcard)
	require.NoError(t, err)
	assert.True(t, e.Has("r:*"))
}

func TestCreateGrantsOwnRWXAndInheritsWildcard(t *testing.T) {
	reg := NewRegistry()
	alice, err := reg.Create("alice")
	require.NoError(t, err)
	assert.True(t, alice.Has("r:alice"))
	assert.True(t, alice.Has("w:alice"))
	assert.True(t, alice.Has("x:alice"))
	assert.Contains(t, alice.Parents(), Wildcard)
}

func TestInheritanceMergesParentRights(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create("developers")
	require.NoError(t, err)
	bob, err := reg.Create("bob", "developers")
	require.NoError(t, err)

	assert.True(t, reg.Inherits("bob", "developers"))
	assert.True(t, bob.Has("r:developers"))
}

func TestRejectsInvalidName(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create("bad name!")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRemoveEntityStripsFromChildren(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create("team")
	require.NoError(t, err)
	bob, err := reg.Create("bob", "team")
	require.NoError(t, err)
	require.Contains(t, bob.Parents(), "team")

	require.NoError(t, reg.RemoveEntity("team"))
	assert.NotContains(t, bob.Parents(), "team")
}

func TestAddParentReMaterializes(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create("system")
	require.NoError(t, err)
	root, err := reg.Create("root")
	require.NoError(t, err)
	assert.False(t, root.Has("r:system"))

	require.NoError(t, reg.AddParent("root", "system"))
	assert.True(t, root.Has("r:system"))
}
