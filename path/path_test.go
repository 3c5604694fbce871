package path

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndRenderRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"bin",
		"bin.ls",
		"company.members[0].name",
		"a[0][1].b",
	}
	for _, s := range cases {
		p, err := New(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.String(), "render(parse(%q))", s)
	}
}

func TestParseRejectsEmptyKey(t *testing.T) {
	_, err := New("a..b")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseRejectsUnmatchedBracket(t *testing.T) {
	_, err := New("a[0")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGetSetRoundTrip(t *testing.T) {
	root := map[string]interface{}{}
	p := MustNew("a.b[0].c")
	require.NoError(t, Set(root, p, "value", nil, nil))

	got, err := Get(root, p, nil)
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestGetSetOutOfRangeExtends(t *testing.T) {
	root := map[string]interface{}{}
	p := MustNew("items[2]")
	require.NoError(t, Set(root, p, "x", nil, nil))

	// index 0 and 1 must exist as nil placeholders
	items := root["items"]
	sp, ok := items.(*[]interface{})
	require.True(t, ok)
	require.Len(t, *sp, 3)
	assert.Nil(t, (*sp)[0])
	assert.Nil(t, (*sp)[1])
	assert.Equal(t, "x", (*sp)[2])
}

func TestGetDefaultOnMiss(t *testing.T) {
	root := map[string]interface{}{}
	got, err := Get(root, MustNew("missing.key"), "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestGetRaisesExceptionDefault(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := Get(map[string]interface{}{}, MustNew("x"), Raise(sentinel))
	assert.ErrorIs(t, err, sentinel)
}

func TestGetDeleteThenMissingReturnsDefault(t *testing.T) {
	root := map[string]interface{}{}
	p := MustNew("a.b")
	require.NoError(t, Set(root, p, 42, nil, nil))

	_, err := Get(root, p, nil)
	require.NoError(t, err)

	_, err = Del(root, p, nil)
	require.NoError(t, err)

	got, err := Get(root, p, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetEmptyPathFails(t *testing.T) {
	err := Set(map[string]interface{}{}, Root(), 1, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestIterVisitsEveryNode(t *testing.T) {
	root := map[string]interface{}{}
	require.NoError(t, Set(root, MustNew("a.b"), "v", nil, nil))

	var visited []interface{}
	err := Iter(root, MustNew("a.b"), func(n interface{}) {
		visited = append(visited, n)
	}, nil)
	require.NoError(t, err)
	require.Len(t, visited, 3)
	assert.Equal(t, "v", visited[2])
}

func TestIterRepairOnMiss(t *testing.T) {
	root := map[string]interface{}{}
	repaired := map[string]interface{}{"y": "z"}

	err := Iter(root, MustNew("a.y"), nil, func(node interface{}, failed Component) (interface{}, bool) {
		if failed == "a" {
			return repaired, true
		}
		return nil, false
	})
	require.NoError(t, err)
}

func TestJoinAndSlice(t *testing.T) {
	a := MustNew("a.b")
	b := MustNew("c[0]")
	joined := a.Join(b)
	assert.Equal(t, "a.b.c[0]", joined.String())

	assert.Equal(t, "b.c", joined.Slice(1, 3).String())
}
