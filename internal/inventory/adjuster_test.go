package inventory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

func TestSubtractDecrementsStock(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 100, 10))
	adj := &inventory.Adjuster{Store: store}

	lvl, err := adj.Subtract(context.Background(), "m1", 10, "u1", "bill:1")
	require.NoError(t, err)
	require.Equal(t, 90, lvl.Stock.Current)
	require.Equal(t, 100, lvl.Previous)
	require.Equal(t, inventory.StockStatusIn, lvl.StockStatus)
	require.Equal(t, 90, store.current("m1"))
	require.Len(t, store.movements, 1)
	require.Equal(t, "bill:1", store.movements[0].Reference)
}

func TestSubtractInsufficientLeavesStockUnchanged(t *testing.T) {
	store := newMemStore(medicine("m1", "Amoxicillin", "A1", 5, 10))
	adj := &inventory.Adjuster{Store: store}
	before := testutil.ToFloat64(obs.StockAdjustmentsTotal.WithLabelValues("subtract", "insufficient"))

	_, err := adj.Subtract(context.Background(), "m1", 10, "u1", "")
	require.True(t, common.HasCode(err, common.CodeInsufficientStock))
	shortage, ok := common.Shortage(err)
	require.True(t, ok)
	require.Equal(t, 5, shortage.Available)
	require.Equal(t, 10, shortage.Requested)
	require.Equal(t, "Amoxicillin", shortage.MedicineName)
	require.Equal(t, 5, store.current("m1"))
	require.Empty(t, store.movements)
	require.Equal(t, before+1, testutil.ToFloat64(obs.StockAdjustmentsTotal.WithLabelValues("subtract", "insufficient")))
}

func TestSubtractUnknownMedicine(t *testing.T) {
	adj := &inventory.Adjuster{Store: newMemStore()}
	_, err := adj.Subtract(context.Background(), "missing", 1, "u1", "")
	require.True(t, common.HasCode(err, common.CodeNotFound))
}

func TestNegativeQuantityRejected(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 10, 1))
	adj := &inventory.Adjuster{Store: store}
	for _, fn := range []func(context.Context, string, int, string, string) (inventory.StockLevel, error){adj.Add, adj.Subtract, adj.Set} {
		_, err := fn(context.Background(), "m1", -1, "u1", "")
		require.True(t, common.HasCode(err, common.CodeValidation))
	}
	require.Equal(t, 10, store.current("m1"))
}

func TestAddAndSet(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 10, 1))
	adj := &inventory.Adjuster{Store: store}

	lvl, err := adj.Add(context.Background(), "m1", 15, "u1", "restock")
	require.NoError(t, err)
	require.Equal(t, 25, lvl.Stock.Current)

	lvl, err = adj.Set(context.Background(), "m1", 0, "u1", "count")
	require.NoError(t, err)
	require.Equal(t, 0, lvl.Stock.Current)
	require.Equal(t, inventory.StockStatusOut, lvl.StockStatus)
}

func TestLowStockEmitsEvent(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 12, 10))
	emitter := &captureEmitter{}
	adj := &inventory.Adjuster{Store: store, Events: emitter}

	_, err := adj.Subtract(context.Background(), "m1", 1, "u1", "")
	require.NoError(t, err)
	require.Empty(t, emitter.topics)

	lvl, err := adj.Subtract(context.Background(), "m1", 1, "u1", "")
	require.NoError(t, err)
	require.Equal(t, inventory.StockStatusLow, lvl.StockStatus)
	require.Equal(t, []string{events.TopicStockLow}, emitter.topics)
}

func TestRestockBelowMinimumEmitsNothing(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 12, 10))
	emitter := &captureEmitter{}
	adj := &inventory.Adjuster{Store: store, Events: emitter}

	lvl, err := adj.Set(context.Background(), "m1", 3, "u1", "")
	require.NoError(t, err)
	require.Equal(t, inventory.StockStatusLow, lvl.StockStatus)

	lvl, err = adj.Add(context.Background(), "m1", 2, "u1", "")
	require.NoError(t, err)
	require.Equal(t, 5, lvl.Stock.Current)
	require.Equal(t, inventory.StockStatusLow, lvl.StockStatus)
	require.Empty(t, emitter.topics)

	_, err = adj.Subtract(context.Background(), "m1", 1, "u1", "")
	require.NoError(t, err)
	require.Equal(t, []string{events.TopicStockLow}, emitter.topics)
}

func TestLowStockEmitFailureIsIgnored(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 1, 10))
	adj := &inventory.Adjuster{Store: store, Events: &captureEmitter{err: context.DeadlineExceeded}}

	lvl, err := adj.Subtract(context.Background(), "m1", 1, "u1", "")
	require.NoError(t, err)
	require.Equal(t, 0, lvl.Stock.Current)
}

func TestConcurrentSubtractsNeverOversell(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 10, 0))
	adj := &inventory.Adjuster{Store: store}

	var ok, short int64
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adj.Subtract(context.Background(), "m1", 1, "u1", "")
			if err == nil {
				atomic.AddInt64(&ok, 1)
				return
			}
			if common.HasCode(err, common.CodeInsufficientStock) {
				atomic.AddInt64(&short, 1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 10, ok)
	require.EqualValues(t, 15, short)
	require.Equal(t, 0, store.current("m1"))
}

func TestAdjusterNotConfigured(t *testing.T) {
	var adj *inventory.Adjuster
	_, err := adj.Add(context.Background(), "m1", 1, "", "")
	require.Error(t, err)
}
