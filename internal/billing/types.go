// Package billing turns a proposed sale into a persisted bill. It resolves
// line items against inventory, decrements stock, derives every money total
// and closes out a linked prescription.
package billing

import (
	"strings"
	"time"
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

// Payment methods.
const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "net-banking"
	PaymentOther      PaymentMethod = "other"
)

// PaymentStatus is derived from amountPaid against grandTotal.
type PaymentStatus string

// Payment statuses. Refunded is never derived; it exists for stored data.
const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentPartiallyPaid PaymentStatus = "partially-paid"
	PaymentRefunded      PaymentStatus = "refunded"
)

// Status is the lifecycle state of a bill.
type Status string

// Bill statuses.
const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
	StatusCancelled Status = "cancelled"
)

// DefaultTaxRate applies to items that omit taxRate.
const DefaultTaxRate = 12.0

// Customer on a bill.
type Customer struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,mobile"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Address   string `json:"address,omitempty"`
	GSTNumber string `json:"gstNumber,omitempty"`
}

// LineItem is one sold medicine. MedicineID is a weak reference; name and
// batch are always kept as entered.
type LineItem struct {
	MedicineID   *string `json:"medicineId"`
	MedicineName string  `json:"medicineName"`
	BatchNumber  string  `json:"batchNumber"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	Discount     float64 `json:"discount"`
	TaxRate      float64 `json:"taxRate"`
	TotalPrice   float64 `json:"totalPrice"`
	TaxAmount    float64 `json:"taxAmount"`
}

// Bill is the persisted sale.
type Bill struct {
	ID             string        `json:"id"`
	BillReference  string        `json:"billReference"`
	Customer       Customer      `json:"customer"`
	PrescriptionID *string       `json:"prescriptionId,omitempty"`
	Items          []LineItem    `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	TotalDiscount  float64       `json:"totalDiscount"`
	TotalTax       float64       `json:"totalTax"`
	GrandTotal     float64       `json:"grandTotal"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	AmountPaid     float64       `json:"amountPaid"`
	ChangeGiven    float64       `json:"changeGiven"`
	AmountDue      float64       `json:"amountDue"`
	Notes          string        `json:"notes,omitempty"`
	Status         Status        `json:"status"`
	CreatedBy      string        `json:"createdBy"`
	UpdatedBy      string        `json:"updatedBy,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Reference renders BILL- followed by the last eight characters of id, upper-cased.
func Reference(id string) string {
	tail := id
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return "BILL-" + strings.ToUpper(tail)
}

// ItemInput is a requested line item.
type ItemInput struct {
	MedicineName string   `json:"medicineName" validate:"required"`
	BatchNumber  string   `json:"batchNumber" validate:"required"`
	Quantity     int      `json:"quantity" validate:"required,min=1"`
	UnitPrice    *float64 `json:"unitPrice" validate:"required,min=0"`
	Discount     float64  `json:"discount" validate:"min=0"`
	TaxRate      *float64 `json:"taxRate" validate:"omitempty,min=0"`
}

// CreateInput is the payload of a new bill.
type CreateInput struct {
	Customer       Customer      `json:"customer"`
	Items          []ItemInput   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash card upi net-banking other"`
	AmountPaid     float64       `json:"amountPaid" validate:"min=0"`
	PrescriptionID string        `json:"prescription"`
	Notes          string        `json:"notes"`
}

// UpdateInput replaces the mutable parts of a bill.
type UpdateInput struct {
	CreateInput
	Status Status `json:"status" validate:"omitempty,oneof=draft finalized"`
}

// ListFilter narrows bill listings.
type ListFilter struct {
	Search        string
	PaymentStatus PaymentStatus
	From          *time.Time
	To            *time.Time
	SortBy        string
	SortDesc      bool
	Page          int
	PerPage       int
}
