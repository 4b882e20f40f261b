package domain

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarehouseStockDefaultsToZero(t *testing.T) {
	w := NewWarehouse("w1", "Rotterdam")
	assert.Equal(t, 0, w.Stock("unknown"))
}

func TestWarehouseAddStock(t *testing.T) {
	w := NewWarehouse("w1", "Rotterdam")

	require.NoError(t, w.AddStock("p1", 10))
	require.NoError(t, w.AddStock("p1", 5))
	assert.Equal(t, 15, w.Stock("p1"))

	assert.Error(t, w.AddStock("p1", -1))
	assert.Equal(t, 15, w.Stock("p1"))
}

func TestWarehouseReserve(t *testing.T) {
	ctx := context.Background()
	w := NewWarehouse("w1", "Rotterdam")
	require.NoError(t, w.AddStock("p1", 3))

	ok, err := w.Reserve(ctx, "p1", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, w.Stock("p1"))

	// Shortfall fails without mutation.
	ok, err = w.Reserve(ctx, "p1", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, w.Stock("p1"))

	_, err = w.Reserve(ctx, "p1", 0)
	assert.Error(t, err)
}

func TestWarehouseRelease(t *testing.T) {
	ctx := context.Background()
	w := NewWarehouse("w1", "Rotterdam")
	require.NoError(t, w.AddStock("p1", 5))

	ok, err := w.Reserve(ctx, "p1", 5)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, w.Release(ctx, "p1", 5))
	assert.Equal(t, 5, w.Stock("p1"))
}

func TestWarehouseConcurrentReserve(t *testing.T) {
	const (
		initial  = 50
		quantity = 3
		workers  = 100
	)

	ctx := context.Background()
	w := NewWarehouse("w1", "Rotterdam")
	require.NoError(t, w.AddStock("p1", initial))

	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := w.Reserve(ctx, "p1", quantity)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, successes, int64(initial/quantity))
	assert.GreaterOrEqual(t, w.Stock("p1"), 0)
	assert.Equal(t, initial-int(successes)*quantity, w.Stock("p1"))
}
