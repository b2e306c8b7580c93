package nodebuilder

import (
	"context"
	"testing"

	"github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenStore(dir)
	assert.ErrorIs(t, err, ErrNotInited)

	err = Init(*DefaultConfig(), dir)
	require.NoError(t, err)

	store, err := OpenStore(dir)
	require.NoError(t, err)

	_, err = OpenStore(dir)
	assert.ErrorIs(t, err, ErrOpened)

	data, err := store.Datastore()
	assert.NoError(t, err)
	assert.NotNil(t, data)

	cfg, err := store.Config()
	assert.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg.DASer.SampleSize = 20
	require.NoError(t, store.PutConfig(cfg))
	cfg, err = store.Config()
	require.NoError(t, err)
	assert.EqualValues(t, 20, cfg.DASer.SampleSize)

	err = store.Close()
	assert.NoError(t, err)

	// the lock is released on close
	store, err = OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestDatastorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(*DefaultConfig(), dir))

	store, err := OpenStore(dir)
	require.NoError(t, err)
	ds, err := store.Datastore()
	require.NoError(t, err)
	// the same datastore is handed out until close
	again, err := store.Datastore()
	require.NoError(t, err)
	assert.Same(t, ds, again)

	key := datastore.NewKey("/archived_fragments/abc")
	require.NoError(t, ds.Put(ctx, key, []byte("fragment")))
	require.NoError(t, store.Close())

	store, err = OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	ds, err = store.Datastore()
	require.NoError(t, err)
	val, err := ds.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("fragment"), val)
}
