package boltbackend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetstore.evalgo.org/backend"
)

func TestPutGetDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Put(ctx, "asset/one", []byte("payload")))

	got, err := b.Get(ctx, "asset/one")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	ids, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"asset/one"}, ids)

	require.NoError(t, b.Delete(ctx, "asset/one"))
	_, err = b.Get(ctx, "asset/one")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}
