// Package inventory owns medicine records and their stock levels. The Matcher
// resolves free-text bill lines to stock records and the Adjuster is the only
// writer of stock quantities.
package inventory

import (
	"time"
)

// Category classifies a medicine's form.
type Category string

// Medicine categories.
const (
	CategoryTablet    Category = "tablet"
	CategorySyrup     Category = "syrup"
	CategoryInjection Category = "injection"
	CategoryCream     Category = "cream"
	CategoryCapsule   Category = "capsule"
	CategoryDrops     Category = "drops"
	CategoryPowder    Category = "powder"
	CategoryOther     Category = "other"
)

// Stock status values derived from a stock level.
const (
	StockStatusOut = "out-of-stock"
	StockStatusLow = "low-stock"
	StockStatusIn  = "in-stock"
)

// Expiry status values derived from the expiry date.
const (
	ExpiryStatusExpired      = "expired"
	ExpiryStatusExpiringSoon = "expiring-soon"
	ExpiryStatusValid        = "valid"
)

// Default stock thresholds applied when a medicine is created without them.
const (
	DefaultMinimum = 10
	DefaultMaximum = 1000
)

// Stock is the tracked quantity on hand for one medicine batch.
type Stock struct {
	Current int `json:"current"`
	Minimum int `json:"minimum"`
	Maximum int `json:"maximum"`
}

// Status derives the stock status.
func (s Stock) Status() string {
	switch {
	case s.Current <= 0:
		return StockStatusOut
	case s.Current <= s.Minimum:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// Pricing holds the purchase and sale prices of a medicine.
type Pricing struct {
	PurchasePrice float64 `json:"purchasePrice"`
	SellingPrice  float64 `json:"sellingPrice"`
	MRP           float64 `json:"mrp"`
}

// Supplier identifies where a batch was bought.
type Supplier struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
	Address string `json:"address,omitempty"`
}

// Medicine is a stock record for a single batch.
type Medicine struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	GenericName          string    `json:"genericName,omitempty"`
	Brand                string    `json:"brand,omitempty"`
	Category             Category  `json:"category"`
	Dosage               string    `json:"dosage"`
	Strength             string    `json:"strength"`
	Manufacturer         string    `json:"manufacturer"`
	BatchNumber          string    `json:"batchNumber"`
	ManufacturingDate    time.Time `json:"manufacturingDate"`
	ExpiryDate           time.Time `json:"expiryDate"`
	Stock                Stock     `json:"stock"`
	Pricing              Pricing   `json:"pricing"`
	Description          string    `json:"description,omitempty"`
	SideEffects          []string  `json:"sideEffects,omitempty"`
	Contraindications    []string  `json:"contraindications,omitempty"`
	StorageConditions    string    `json:"storageConditions,omitempty"`
	PrescriptionRequired bool      `json:"prescriptionRequired"`
	Supplier             *Supplier `json:"supplier,omitempty"`
	IsActive             bool      `json:"isActive"`
	CreatedBy            string    `json:"createdBy,omitempty"`
	UpdatedBy            string    `json:"updatedBy,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`

	StockStatus  string `json:"stockStatus"`
	ExpiryStatus string `json:"expiryStatus"`
}

// ExpiryStatusAt derives the expiry status relative to now. Anything expiring
// within six months counts as expiring soon.
func ExpiryStatusAt(expiry, now time.Time) string {
	switch {
	case !expiry.After(now):
		return ExpiryStatusExpired
	case !expiry.After(now.AddDate(0, 6, 0)):
		return ExpiryStatusExpiringSoon
	default:
		return ExpiryStatusValid
	}
}

// WithDerived fills the derived status fields.
func (m Medicine) WithDerived(now time.Time) Medicine {
	m.StockStatus = m.Stock.Status()
	m.ExpiryStatus = ExpiryStatusAt(m.ExpiryDate, now)
	return m
}

// StockKind names a stock mutation.
type StockKind string

// Stock mutation kinds.
const (
	StockAdd      StockKind = "add"
	StockSubtract StockKind = "subtract"
	StockSet      StockKind = "set"
)

// ParseStockKind validates an operation name.
func ParseStockKind(op string) (StockKind, bool) {
	switch StockKind(op) {
	case StockAdd, StockSubtract, StockSet:
		return StockKind(op), true
	}
	return "", false
}

// StockMutation is a single request against a stock record.
type StockMutation struct {
	MedicineID string
	Kind       StockKind
	Quantity   int
	Actor      string
	Reference  string
}

// StockLevel is a stock record after (or before) a mutation.
type StockLevel struct {
	MedicineID  string `json:"medicineId"`
	Name        string `json:"name"`
	BatchNumber string `json:"batchNumber"`
	Stock       Stock  `json:"stock"`
	Previous    int    `json:"previous"`
	StockStatus string `json:"stockStatus"`
}

// Listing status filters.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusAll      = "all"
)

// ListFilter narrows medicine listings.
type ListFilter struct {
	Search      string
	Category    Category
	Status      string
	StockStatus string
	SortBy      string
	SortDesc    bool
	Page        int
	PerPage     int
}
