package billing

import "github.com/noah-isme/backend-apotek/internal/money"

// RecomputeTotals derives every bill-level amount from the items and the
// payment fields. Caller-supplied totals are always overwritten.
func RecomputeTotals(b *Bill) {
	if b == nil {
		return
	}
	prices := make([]float64, len(b.Items))
	discounts := make([]float64, len(b.Items))
	taxes := make([]float64, len(b.Items))
	for i, item := range b.Items {
		prices[i] = item.TotalPrice
		discounts[i] = item.Discount
		taxes[i] = item.TaxAmount
	}
	b.Subtotal = money.Sum(prices...)
	b.TotalDiscount = money.Sum(discounts...)
	b.TotalTax = money.Sum(taxes...)
	b.GrandTotal = money.Sum(b.Subtotal, -b.TotalDiscount, b.TotalTax)

	switch {
	case b.AmountPaid >= b.GrandTotal:
		b.PaymentStatus = PaymentPaid
	case b.AmountPaid > 0:
		b.PaymentStatus = PaymentPartiallyPaid
	default:
		b.PaymentStatus = PaymentPending
	}

	b.ChangeGiven = 0
	if b.PaymentMethod == PaymentCash && b.AmountPaid > b.GrandTotal {
		b.ChangeGiven = money.Sum(b.AmountPaid, -b.GrandTotal)
	}
	b.AmountDue = 0
	if due := money.Sum(b.GrandTotal, -b.AmountPaid); due > 0 {
		b.AmountDue = due
	}
}

// withView fills the derived fields that are not stored.
func withView(b Bill) Bill {
	b.BillReference = Reference(b.ID)
	b.AmountDue = 0
	if due := money.Sum(b.GrandTotal, -b.AmountPaid); due > 0 {
		b.AmountDue = due
	}
	return b
}
