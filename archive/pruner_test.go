package archive

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/fragment/fragmenttest"
)

func TestPruner_Prune(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	mock := clock.NewMock()
	store, err := NewStore(ds_sync.MutexWrap(datastore.NewMapDatastore()), WithClock(mock))
	require.NoError(t, err)
	pruner, err := NewPruner(store, WithRetention(time.Hour, time.Minute))
	require.NoError(t, err)

	prod := fragmenttest.NewProducer(t)
	frags := prod.Slot(t, 10, fragment.KindData, 4)
	put := func(f *fragment.Fragment) Key {
		v, err := fragment.Verify(f, prod.Pubkey)
		require.NoError(t, err)
		key, err := store.Put(ctx, v, prod.Pubkey)
		require.NoError(t, err)
		return key
	}

	old := put(frags[0])
	mock.Add(45 * time.Minute)
	recent := put(frags[1])
	mock.Add(30 * time.Minute)

	n, err := pruner.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetByKey(ctx, old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByKey(ctx, recent)
	require.NoError(t, err)

	n, err = pruner.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPruner_KeepsReverified(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	mock := clock.NewMock()
	store, err := NewStore(ds_sync.MutexWrap(datastore.NewMapDatastore()), WithClock(mock))
	require.NoError(t, err)
	pruner, err := NewPruner(store, WithRetention(time.Hour, time.Minute))
	require.NoError(t, err)

	prod := fragmenttest.NewProducer(t)
	f := prod.Slot(t, 10, fragment.KindData, 4)[0]
	v, err := fragment.Verify(f, prod.Pubkey)
	require.NoError(t, err)

	archivedAt := mock.Now().UTC()
	key, err := store.Put(ctx, v, prod.Pubkey)
	require.NoError(t, err)
	raw, err := store.GetRaw(ctx, key)
	require.NoError(t, err)

	// the same fragment verifies again shortly before it would expire
	mock.Add(59 * time.Minute)
	_, err = store.Put(ctx, v, prod.Pubkey)
	require.NoError(t, err)
	mock.Add(2 * time.Minute)

	n, err := pruner.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rec, err := store.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, archivedAt.Equal(rec.ArchivedAt))
	stored, err := store.GetRaw(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)
	last, err := store.LastVerified(ctx, key)
	require.NoError(t, err)
	assert.True(t, archivedAt.Add(59*time.Minute).Equal(last))

	// retention counts from the last verification
	mock.Add(time.Hour)
	n, err = pruner.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = store.GetByKey(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.verified.Get(ctx, key.dsKey())
	assert.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestPruner_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	mock := clock.NewMock()
	store, err := NewStore(ds_sync.MutexWrap(datastore.NewMapDatastore()), WithClock(mock))
	require.NoError(t, err)
	pruner, err := NewPruner(store, WithRetention(time.Hour, time.Minute))
	require.NoError(t, err)

	prod := fragmenttest.NewProducer(t)
	f := prod.Slot(t, 10, fragment.KindCoding, 2)[0]
	v, err := fragment.Verify(f, prod.Pubkey)
	require.NoError(t, err)
	key, err := store.Put(ctx, v, prod.Pubkey)
	require.NoError(t, err)

	require.NoError(t, pruner.Start(ctx))
	t.Cleanup(func() { require.NoError(t, pruner.Stop(ctx)) })

	mock.Add(2 * time.Hour)

	assert.Eventually(t, func() bool {
		has, err := store.Has(ctx, key)
		return err == nil && !has
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPruner_Disabled(t *testing.T) {
	store, err := NewStore(ds_sync.MutexWrap(datastore.NewMapDatastore()))
	require.NoError(t, err)
	pruner, err := NewPruner(store)
	require.NoError(t, err)

	require.NoError(t, pruner.Start(context.Background()))
	require.NoError(t, pruner.Stop(context.Background()))
}
