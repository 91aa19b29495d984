package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
)

// Store persists medicines.
type Store interface {
	MatchFinder
	StockStore
	FindActiveByName(ctx context.Context, text string) (*Medicine, error)
	CreateMedicine(ctx context.Context, m Medicine) (Medicine, error)
	GetMedicine(ctx context.Context, id string) (Medicine, error)
	UpdateMedicine(ctx context.Context, m Medicine) (Medicine, error)
	ListMedicines(ctx context.Context, f ListFilter) ([]Medicine, int, error)
	ListLowStock(ctx context.Context) ([]Medicine, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]Medicine, error)
	DeactivateMedicine(ctx context.Context, id, actor string, at time.Time) error
}

// Service implements medicine management on top of Store.
type Service struct {
	Store             Store
	Events            events.Emitter
	Logger            zerolog.Logger
	DefaultMinimum    int
	ExpiryWarningDays int
	Now               func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("inventory service not configured")
	}
	return nil
}

// Matcher returns a matcher backed by the service store.
func (s *Service) Matcher() Matcher {
	return Matcher{Finder: s.Store}
}

// Adjuster returns the stock adjuster backed by the service store.
func (s *Service) Adjuster() *Adjuster {
	return &Adjuster{Store: s.Store, Events: s.Events, Logger: s.Logger}
}

// MedicineInput is the writable shape of a medicine.
type MedicineInput struct {
	Name                 string       `json:"name" validate:"required,min=2,max=200"`
	GenericName          string       `json:"genericName" validate:"max=200"`
	Brand                string       `json:"brand" validate:"max=100"`
	Category             Category     `json:"category" validate:"required,oneof=tablet syrup injection cream capsule drops powder other"`
	Dosage               string       `json:"dosage" validate:"required"`
	Strength             string       `json:"strength" validate:"required"`
	Manufacturer         string       `json:"manufacturer" validate:"required"`
	BatchNumber          string       `json:"batchNumber" validate:"required"`
	ManufacturingDate    time.Time    `json:"manufacturingDate" validate:"required"`
	ExpiryDate           time.Time    `json:"expiryDate" validate:"required,gtfield=ManufacturingDate"`
	Stock                StockInput   `json:"stock"`
	Pricing              PricingInput `json:"pricing"`
	Description          string       `json:"description"`
	SideEffects          []string     `json:"sideEffects"`
	Contraindications    []string     `json:"contraindications"`
	StorageConditions    string       `json:"storageConditions"`
	PrescriptionRequired bool         `json:"prescriptionRequired"`
	Supplier             *Supplier    `json:"supplier"`
}

// StockInput carries optional thresholds.
type StockInput struct {
	Current *int `json:"current" validate:"required,min=0"`
	Minimum *int `json:"minimum" validate:"omitempty,min=0"`
	Maximum *int `json:"maximum" validate:"omitempty,min=1"`
}

// PricingInput requires every price to be present.
type PricingInput struct {
	PurchasePrice *float64 `json:"purchasePrice" validate:"required,min=0"`
	SellingPrice  *float64 `json:"sellingPrice" validate:"required,min=0"`
	MRP           *float64 `json:"mrp" validate:"required,min=0"`
}

func (s *Service) fromInput(in MedicineInput) Medicine {
	minimum := s.DefaultMinimum
	if minimum <= 0 {
		minimum = DefaultMinimum
	}
	if in.Stock.Minimum != nil {
		minimum = *in.Stock.Minimum
	}
	maximum := DefaultMaximum
	if in.Stock.Maximum != nil {
		maximum = *in.Stock.Maximum
	}
	m := Medicine{
		Name:                 strings.TrimSpace(in.Name),
		GenericName:          strings.TrimSpace(in.GenericName),
		Brand:                strings.TrimSpace(in.Brand),
		Category:             in.Category,
		Dosage:               strings.TrimSpace(in.Dosage),
		Strength:             strings.TrimSpace(in.Strength),
		Manufacturer:         strings.TrimSpace(in.Manufacturer),
		BatchNumber:          strings.TrimSpace(in.BatchNumber),
		ManufacturingDate:    in.ManufacturingDate,
		ExpiryDate:           in.ExpiryDate,
		Stock:                Stock{Minimum: minimum, Maximum: maximum},
		Description:          strings.TrimSpace(in.Description),
		SideEffects:          in.SideEffects,
		Contraindications:    in.Contraindications,
		StorageConditions:    strings.TrimSpace(in.StorageConditions),
		PrescriptionRequired: in.PrescriptionRequired,
		Supplier:             in.Supplier,
	}
	if in.Stock.Current != nil {
		m.Stock.Current = *in.Stock.Current
	}
	if in.Pricing.PurchasePrice != nil {
		m.Pricing.PurchasePrice = *in.Pricing.PurchasePrice
	}
	if in.Pricing.SellingPrice != nil {
		m.Pricing.SellingPrice = *in.Pricing.SellingPrice
	}
	if in.Pricing.MRP != nil {
		m.Pricing.MRP = *in.Pricing.MRP
	}
	return m
}

// Create validates and stores a new medicine. Duplicate batch numbers yield CONFLICT.
func (s *Service) Create(ctx context.Context, in MedicineInput, actor string) (Medicine, error) {
	if err := s.ready(); err != nil {
		return Medicine{}, err
	}
	if err := common.ValidateStruct(in); err != nil {
		return Medicine{}, err
	}
	m := s.fromInput(in)
	now := s.now()
	m.IsActive = true
	m.CreatedBy = actor
	m.CreatedAt = now
	m.UpdatedAt = now
	created, err := s.Store.CreateMedicine(ctx, m)
	if err != nil {
		return Medicine{}, err
	}
	return created.WithDerived(now), nil
}

// Get returns a medicine by id.
func (s *Service) Get(ctx context.Context, id string) (Medicine, error) {
	if err := s.ready(); err != nil {
		return Medicine{}, err
	}
	m, err := s.Store.GetMedicine(ctx, strings.TrimSpace(id))
	if err != nil {
		return Medicine{}, err
	}
	return m.WithDerived(s.now()), nil
}

// Update replaces the writable fields of a medicine. The current stock level in
// the payload is ignored; quantities only change through the adjuster.
func (s *Service) Update(ctx context.Context, id string, in MedicineInput, actor string) (Medicine, error) {
	if err := s.ready(); err != nil {
		return Medicine{}, err
	}
	if err := common.ValidateStruct(in); err != nil {
		return Medicine{}, err
	}
	existing, err := s.Store.GetMedicine(ctx, strings.TrimSpace(id))
	if err != nil {
		return Medicine{}, err
	}
	m := s.fromInput(in)
	m.ID = existing.ID
	m.Stock.Current = existing.Stock.Current
	m.IsActive = existing.IsActive
	m.CreatedBy = existing.CreatedBy
	m.CreatedAt = existing.CreatedAt
	m.UpdatedBy = actor
	m.UpdatedAt = s.now()
	updated, err := s.Store.UpdateMedicine(ctx, m)
	if err != nil {
		return Medicine{}, err
	}
	return updated.WithDerived(s.now()), nil
}

// Deactivate soft deletes a medicine. Inactive medicines never match bill lines.
func (s *Service) Deactivate(ctx context.Context, id, actor string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.Store.DeactivateMedicine(ctx, strings.TrimSpace(id), actor, s.now())
}

// List returns a filtered page of medicines and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Medicine, common.Pagination, error) {
	if err := s.ready(); err != nil {
		return nil, common.Pagination{}, err
	}
	f = normalizeFilter(f)
	items, total, err := s.Store.ListMedicines(ctx, f)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	now := s.now()
	for i := range items {
		items[i] = items[i].WithDerived(now)
	}
	return items, common.NewPagination(f.Page, f.PerPage, total), nil
}

// LowStock lists active medicines at or below their minimum.
func (s *Service) LowStock(ctx context.Context) ([]Medicine, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items, err := s.Store.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i] = items[i].WithDerived(now)
	}
	return items, nil
}

// Expiring lists active medicines expiring within the next days days, soonest first.
func (s *Service) Expiring(ctx context.Context, days int) ([]Medicine, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.ExpiryWarningDays
	}
	if days <= 0 {
		days = 30
	}
	now := s.now()
	items, err := s.Store.ListExpiring(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = items[i].WithDerived(now)
	}
	return items, nil
}

// AdjustStock applies an add, subtract or set operation through the adjuster.
func (s *Service) AdjustStock(ctx context.Context, id, operation string, quantity int, actor string) (StockLevel, error) {
	if err := s.ready(); err != nil {
		return StockLevel{}, err
	}
	kind, ok := ParseStockKind(strings.ToLower(strings.TrimSpace(operation)))
	if !ok {
		return StockLevel{}, common.ValidationError(`Invalid operation. Use "add", "subtract", or "set"`, nil)
	}
	return s.Adjuster().Apply(ctx, StockMutation{
		MedicineID: id,
		Kind:       kind,
		Quantity:   quantity,
		Actor:      actor,
		Reference:  "manual",
	})
}

var sortColumns = map[string]bool{
	"name":         true,
	"createdAt":    true,
	"expiryDate":   true,
	"stock":        true,
	"sellingPrice": true,
}

func normalizeFilter(f ListFilter) ListFilter {
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.PerPage > common.MaxPerPage {
		f.PerPage = common.MaxPerPage
	}
	if !sortColumns[f.SortBy] {
		f.SortBy = "name"
	}
	switch f.Status {
	case StatusActive, StatusInactive, StatusAll:
	default:
		f.Status = StatusActive
	}
	switch f.StockStatus {
	case StockStatusIn, StockStatusLow, StockStatusOut:
	default:
		f.StockStatus = ""
	}
	return f
}
