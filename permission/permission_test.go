package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetstore.evalgo.org/identity"
)

func TestChmodDerivesBitsPerDigit(t *testing.T) {
	reg := identity.NewRegistry()
	_, err := reg.Create("developers")
	require.NoError(t, err)
	_, err = reg.Create("bob", "developers")
	require.NoError(t, err)

	p := New("bob", "developers")
	require.NoError(t, p.Chmod(0754))

	assert.True(t, IsRightGranted(reg, "bob", Read, p))
	assert.True(t, IsRightGranted(reg, "bob", Write, p))
	assert.True(t, IsRightGranted(reg, "bob", Execute, p))

	// group (developers) = 5 -> r-x, so write must not be granted to group members
	assert.False(t, p.Has(Write, "developers"))
	assert.True(t, p.Has(Read, "developers"))
	assert.True(t, p.Has(Execute, "developers"))

	// other = 4 -> r--
	assert.True(t, p.Has(Read, "*"))
	assert.False(t, p.Has(Write, "*"))
	assert.False(t, p.Has(Execute, "*"))
}

func TestChmodStringForm(t *testing.T) {
	p := New("root", "system")
	require.NoError(t, p.Chmod("1775"))
	assert.True(t, p.IsSticky())
	assert.True(t, p.Has(Read, "root"))
	assert.True(t, p.Has(Write, "root"))
	assert.True(t, p.Has(Execute, "root"))
}

func TestGroupInheritanceGrantsRight(t *testing.T) {
	reg := identity.NewRegistry()
	_, err := reg.Create("developers")
	require.NoError(t, err)
	_, err = reg.Create("team", "developers")
	require.NoError(t, err)
	_, err = reg.Create("bob", "team")
	require.NoError(t, err)

	p := New("root", "developers")
	require.NoError(t, p.Chmod(0070)) // group rwx, owner/other none

	assert.True(t, IsRightGranted(reg, "bob", Execute, p))
}

func TestWildcardGrantsOthers(t *testing.T) {
	reg := identity.NewRegistry()
	_, err := reg.Create("charly")
	require.NoError(t, err)

	p := New("root", "system")
	require.NoError(t, p.Chmod(0004)) // other read only

	assert.True(t, IsRightGranted(reg, "charly", Read, p))
	assert.False(t, IsRightGranted(reg, "charly", Write, p))
}

func TestStickyOwnership(t *testing.T) {
	dir := New("root", "system")
	require.NoError(t, dir.Chmod("1775"))

	assert.True(t, dir.CanOverwrite("alice", "alice"))
	assert.False(t, dir.CanOverwrite("bob", "alice"))
}

// Decoding mode 05775 digit-by-digit (special=5, owner=7, group=7, other=5)
// yields owner/group rwx and other r-x, with the "+" contributed by the
// setuid+sticky bits the special digit sets on "*". See DESIGN.md for the
// digit-decomposition rationale.
func TestShortReprMatchesFullMode(t *testing.T) {
	p := New("bob", "developers")
	require.NoError(t, p.Chmod(05775))
	assert.Equal(t, "rwxrwxr-x+ bob developers", p.ShortRepr())
}

func TestChownMigratesBits(t *testing.T) {
	p := New("alice", "team")
	require.NoError(t, p.Chmod(0700))
	p.Chown("bob")
	assert.Equal(t, "bob", p.Owner)
	assert.True(t, p.Has(Read, "bob"))
	assert.False(t, p.Has(Read, "alice"))
}
