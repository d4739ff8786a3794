package repositories_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOrderStore_PrependNewestFirst(t *testing.T) {
	store := repositories.NewLocalOrderStore(repositories.NewMemoryKeyValueStore())

	first := newOrder("u1", time.Now())
	second := newOrder("u2", time.Now())
	require.NoError(t, store.Prepend(first))
	require.NoError(t, store.Prepend(second))

	all, err := store.List(models.AllOrders())
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids(all))

	mine, err := store.List(models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, ids(mine))
}

func TestLocalOrderStore_ConcurrentPrepends(t *testing.T) {
	store := repositories.NewLocalOrderStore(repositories.NewMemoryKeyValueStore())

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Prepend(newOrder("u1", time.Now())))
		}()
	}
	wg.Wait()

	all, err := store.List(models.AllOrders())
	require.NoError(t, err)
	assert.Len(t, all, writers)
}

func TestLocalOrderStore_RemoveAndUpdate(t *testing.T) {
	store := repositories.NewLocalOrderStore(repositories.NewMemoryKeyValueStore())
	o := newOrder("u1", time.Now())
	require.NoError(t, store.Prepend(o))

	require.NoError(t, store.UpdateStatus(o.ID, models.StatusManufacturing))
	all, err := store.List(models.AllOrders())
	require.NoError(t, err)
	assert.Equal(t, models.StatusManufacturing, all[0].Status)

	assert.ErrorIs(t, store.UpdateStatus("missing", models.StatusShipping), repositories.ErrNotFound)

	removed, err := store.Remove(o.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Remove(o.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLocalOrderStore_RemoveUnchanged(t *testing.T) {
	store := repositories.NewLocalOrderStore(repositories.NewMemoryKeyValueStore())
	o := newOrder("u1", time.Now())
	require.NoError(t, store.Prepend(o))

	require.NoError(t, store.UpdateStatus(o.ID, models.StatusShipping))
	current, err := store.RemoveUnchanged(o)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.StatusShipping, current.Status)

	all, err := store.List(models.AllOrders())
	require.NoError(t, err)
	assert.Len(t, all, 1, "a changed record stays until its newer status is handled")

	current, err = store.RemoveUnchanged(all[0])
	require.NoError(t, err)
	assert.Nil(t, current)
	all, err = store.List(models.AllOrders())
	require.NoError(t, err)
	assert.Empty(t, all)

	current, err = store.RemoveUnchanged(o)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestLocalOrderStore_SharedDirectoryAcrossStores(t *testing.T) {
	dir := t.TempDir()
	const perStore = 50

	var stores []*repositories.LocalOrderStore
	for i := 0; i < 2; i++ {
		kv, err := repositories.NewFileKeyValueStore(dir)
		require.NoError(t, err)
		stores = append(stores, repositories.NewLocalOrderStore(kv))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for _, store := range stores {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(store *repositories.LocalOrderStore) {
				defer wg.Done()
				errs <- store.Prepend(newOrder("u1", time.Now()))
			}(store)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := stores[0].List(models.AllOrders())
	require.NoError(t, err)
	assert.Len(t, all, 2*perStore)
}

func TestFileKeyValueStore_Lock(t *testing.T) {
	dir := t.TempDir()
	kv, err := repositories.NewFileKeyValueStore(dir)
	require.NoError(t, err)

	unlock, err := kv.Lock(repositories.LocalOrdersKey)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, repositories.LocalOrdersKey+".lock"))
	assert.NoError(t, err)
	require.NoError(t, unlock())

	_, err = kv.Lock("../escape")
	assert.ErrorIs(t, err, repositories.ErrLocalStorageUnavailable)
}

func TestLocalOrderStore_Failures(t *testing.T) {
	kv := repositories.NewMemoryKeyValueStore()
	store := repositories.NewLocalOrderStore(kv)

	kv.SetFailure(errors.New("quota exceeded"))
	err := store.Prepend(newOrder("u1", time.Now()))
	assert.ErrorIs(t, err, repositories.ErrLocalStorageUnavailable)

	kv.SetFailure(nil)
	require.NoError(t, kv.Set(repositories.LocalOrdersKey, []byte("{not json")))
	_, err = store.List(models.AllOrders())
	assert.ErrorIs(t, err, repositories.ErrLocalStorageUnavailable)
}

func TestFileKeyValueStore(t *testing.T) {
	dir := t.TempDir()
	kv, err := repositories.NewFileKeyValueStore(dir)
	require.NoError(t, err)

	v, err := kv.Get("mock_orders")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, kv.Set("mock_orders", []byte(`[]`)))
	v, err = kv.Get("mock_orders")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	_, err = os.Stat(filepath.Join(dir, "mock_orders.json"))
	assert.NoError(t, err)

	assert.ErrorIs(t, kv.Set("../escape", []byte("x")), repositories.ErrLocalStorageUnavailable)
}

func TestLocalOrderStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	kv, err := repositories.NewFileKeyValueStore(dir)
	require.NoError(t, err)
	o := newOrder("u1", time.Now())
	require.NoError(t, repositories.NewLocalOrderStore(kv).Prepend(o))

	reopened, err := repositories.NewFileKeyValueStore(dir)
	require.NoError(t, err)
	all, err := repositories.NewLocalOrderStore(reopened).List(models.UserOrders("u1"))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, o.ID, all[0].ID)
}
