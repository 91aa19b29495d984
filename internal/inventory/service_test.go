package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/inventory"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func validInput(batch string) inventory.MedicineInput {
	return inventory.MedicineInput{
		Name:              "Paracetamol",
		Category:          inventory.CategoryTablet,
		Dosage:            "1 tablet",
		Strength:          "500mg",
		Manufacturer:      "Cipla",
		BatchNumber:       batch,
		ManufacturingDate: baseTime.AddDate(-1, 0, 0),
		ExpiryDate:        baseTime.AddDate(1, 0, 0),
		Stock:             inventory.StockInput{Current: intPtr(40)},
		Pricing:           inventory.PricingInput{PurchasePrice: floatPtr(1), SellingPrice: floatPtr(2), MRP: floatPtr(2.5)},
	}
}

func newService(store *memStore) *inventory.Service {
	return &inventory.Service{Store: store, Now: func() time.Time { return baseTime }}
}

func TestCreateAppliesDefaultsAndDerivedStatus(t *testing.T) {
	svc := newService(newMemStore())
	m, err := svc.Create(context.Background(), validInput("B1"), "u1")
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.Equal(t, 10, m.Stock.Minimum)
	require.Equal(t, 1000, m.Stock.Maximum)
	require.True(t, m.IsActive)
	require.Equal(t, "u1", m.CreatedBy)
	require.Equal(t, inventory.StockStatusIn, m.StockStatus)
	require.Equal(t, inventory.ExpiryStatusValid, m.ExpiryStatus)
}

func TestCreateRejectsExpiryBeforeManufacture(t *testing.T) {
	in := validInput("B1")
	in.ExpiryDate = in.ManufacturingDate.AddDate(0, 0, -1)
	_, err := newService(newMemStore()).Create(context.Background(), in, "u1")
	require.True(t, common.HasCode(err, common.CodeValidation))
}

func TestCreateRejectsMissingPrice(t *testing.T) {
	in := validInput("B1")
	in.Pricing.MRP = nil
	_, err := newService(newMemStore()).Create(context.Background(), in, "u1")
	require.True(t, common.HasCode(err, common.CodeValidation))
}

func TestCreateDuplicateBatchConflicts(t *testing.T) {
	svc := newService(newMemStore())
	_, err := svc.Create(context.Background(), validInput("B1"), "u1")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validInput("B1"), "u1")
	require.True(t, common.HasCode(err, common.CodeConflict))
}

func TestUpdateKeepsCurrentStock(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	m, err := svc.Create(context.Background(), validInput("B1"), "u1")
	require.NoError(t, err)

	in := validInput("B1")
	in.Stock.Current = intPtr(999)
	in.Name = "Paracetamol Forte"
	updated, err := svc.Update(context.Background(), m.ID, in, "u2")
	require.NoError(t, err)
	require.Equal(t, "Paracetamol Forte", updated.Name)
	require.Equal(t, 40, updated.Stock.Current)
	require.Equal(t, "u2", updated.UpdatedBy)
}

func TestStockStatusBoundaries(t *testing.T) {
	require.Equal(t, inventory.StockStatusOut, inventory.Stock{Current: 0, Minimum: 10}.Status())
	require.Equal(t, inventory.StockStatusLow, inventory.Stock{Current: 10, Minimum: 10}.Status())
	require.Equal(t, inventory.StockStatusIn, inventory.Stock{Current: 11, Minimum: 10}.Status())
}

func TestExpiryStatus(t *testing.T) {
	require.Equal(t, inventory.ExpiryStatusExpired, inventory.ExpiryStatusAt(baseTime, baseTime))
	require.Equal(t, inventory.ExpiryStatusExpiringSoon, inventory.ExpiryStatusAt(baseTime.AddDate(0, 5, 0), baseTime))
	require.Equal(t, inventory.ExpiryStatusValid, inventory.ExpiryStatusAt(baseTime.AddDate(0, 7, 0), baseTime))
}

func TestAlerts(t *testing.T) {
	low := medicine("m1", "Paracetamol", "B1", 3, 10)
	ok := medicine("m2", "Ibuprofen", "B2", 50, 10)
	ok.ExpiryDate = baseTime.AddDate(0, 0, 10)
	later := medicine("m3", "Cetirizine", "B3", 50, 10)
	later.ExpiryDate = baseTime.AddDate(0, 0, 20)
	svc := newService(newMemStore(low, ok, later))

	items, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "m1", items[0].ID)
	require.Equal(t, inventory.StockStatusLow, items[0].StockStatus)

	items, err = svc.Expiring(context.Background(), 15)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "m2", items[0].ID)

	items, err = svc.Expiring(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "m2", items[0].ID)
}

func TestDeactivateHidesFromMatcher(t *testing.T) {
	store := newMemStore(medicine("m1", "Paracetamol", "B1", 10, 1))
	svc := newService(store)
	require.NoError(t, svc.Deactivate(context.Background(), "m1", "admin"))

	got, err := svc.Matcher().Match(context.Background(), "paracetamol", "B1")
	require.NoError(t, err)
	require.Nil(t, got)

	err = svc.Deactivate(context.Background(), "missing", "admin")
	require.True(t, common.HasCode(err, common.CodeNotFound))
}

func TestAdjustStockRejectsUnknownOperation(t *testing.T) {
	svc := newService(newMemStore(medicine("m1", "Paracetamol", "B1", 10, 1)))
	_, err := svc.AdjustStock(context.Background(), "m1", "multiply", 2, "u1")
	require.True(t, common.HasCode(err, common.CodeValidation))
}

func TestListDefaultsToActiveFirstPage(t *testing.T) {
	inactive := medicine("m2", "Ibuprofen", "B2", 50, 10)
	inactive.IsActive = false
	svc := newService(newMemStore(medicine("m1", "Paracetamol", "B1", 50, 10), inactive))

	items, pg, err := svc.List(context.Background(), inventory.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, pg.Page)
	require.Equal(t, 20, pg.PerPage)
	require.Equal(t, 1, pg.TotalItems)
}
