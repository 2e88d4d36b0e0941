package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStore_SetOverwrites(t *testing.T) {
	rs := NewReadStore()

	_, ok := rs.Get(CollectionVariants, "SKU-1")
	assert.False(t, ok)

	rs.Set(CollectionVariants, "SKU-1", "first")
	rs.Set(CollectionVariants, "SKU-1", "second")

	got, ok := rs.Get(CollectionVariants, "SKU-1")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestReadStore_CollectionsAreSeparate(t *testing.T) {
	rs := NewReadStore()
	rs.Set(CollectionVariants, "SKU-1", 1)

	_, ok := rs.Get("other", "SKU-1")

	assert.False(t, ok)
	assert.Nil(t, rs.GetAll("other"))
}

func TestReadStore_GetAllSortedByID(t *testing.T) {
	rs := NewReadStore()
	rs.Set(CollectionVariants, "SKU-3", 3)
	rs.Set(CollectionVariants, "SKU-1", 1)
	rs.Set(CollectionVariants, "SKU-2", 2)

	assert.Equal(t, []any{1, 2, 3}, rs.GetAll(CollectionVariants))
}

func TestReadStore_ConcurrentAccess(t *testing.T) {
	rs := NewReadStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rs.Set(CollectionVariants, "SKU", i)
		}()
		go func() {
			defer wg.Done()
			rs.GetAll(CollectionVariants)
		}()
	}
	wg.Wait()

	assert.Len(t, rs.GetAll(CollectionVariants), 1)
}
