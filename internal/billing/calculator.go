package billing

import (
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/money"
)

// ComputeLineItem fills totalPrice and taxAmount. A discount larger than the
// total price is passed through, so taxable and tax may be negative.
func ComputeLineItem(item LineItem) (LineItem, error) {
	if item.Quantity < 1 {
		return LineItem{}, common.ValidationError("quantity must be at least 1", map[string]any{"medicineName": item.MedicineName, "quantity": item.Quantity})
	}
	if item.UnitPrice < 0 {
		return LineItem{}, common.ValidationError("unitPrice must not be negative", map[string]any{"medicineName": item.MedicineName, "unitPrice": item.UnitPrice})
	}
	if item.Discount < 0 {
		return LineItem{}, common.ValidationError("discount must not be negative", map[string]any{"medicineName": item.MedicineName, "discount": item.Discount})
	}
	if item.TaxRate < 0 {
		return LineItem{}, common.ValidationError("taxRate must not be negative", map[string]any{"medicineName": item.MedicineName, "taxRate": item.TaxRate})
	}
	item.TotalPrice = money.Mul(float64(item.Quantity), item.UnitPrice)
	item.TaxAmount = money.TaxOn(item.TotalPrice, item.Discount, item.TaxRate)
	return item, nil
}

// lineItemFrom converts a request item, applying the default tax rate when
// none was given. An explicit zero rate is kept. Name and batch are stored as
// entered; the matcher trims its own copy.
func lineItemFrom(in ItemInput, defaultTaxRate float64) LineItem {
	rate := defaultTaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	item := LineItem{
		MedicineName: in.MedicineName,
		BatchNumber:  in.BatchNumber,
		Quantity:     in.Quantity,
		Discount:     in.Discount,
		TaxRate:      rate,
	}
	if in.UnitPrice != nil {
		item.UnitPrice = *in.UnitPrice
	}
	return item
}

// computeItems validates and computes every requested item in order.
func computeItems(inputs []ItemInput, defaultTaxRate float64) ([]LineItem, error) {
	items := make([]LineItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := ComputeLineItem(lineItemFrom(in, defaultTaxRate))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
