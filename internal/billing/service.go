package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

// Store persists bills. InsertBill keeps the id chosen by the caller.
type Store interface {
	InsertBill(ctx context.Context, b Bill) (Bill, error)
	GetBill(ctx context.Context, id string) (Bill, error)
	UpdateBill(ctx context.Context, b Bill) (Bill, error)
	ListBills(ctx context.Context, f ListFilter) ([]Bill, int, error)
}

// Matcher resolves a line item to a stock record.
type Matcher interface {
	Match(ctx context.Context, name, batch string) (*inventory.Medicine, error)
}

// StockAdjuster decrements stock for matched items.
type StockAdjuster interface {
	Subtract(ctx context.Context, medicineID string, qty int, actor, reference string) (inventory.StockLevel, error)
}

// Linker marks the prescription a bill fulfils as dispensed.
type Linker interface {
	MarkDispensed(ctx context.Context, id, actor string, at time.Time) error
}

// Locker serializes writers of one record.
type Locker interface {
	WithRecord(ctx context.Context, kind, id string, fn func(context.Context) error) error
}

// Service is the bill lifecycle controller.
type Service struct {
	Store          Store
	Matcher        Matcher
	Stock          StockAdjuster
	Prescriptions  Linker
	Locks          Locker
	Events         events.Emitter
	Logger         zerolog.Logger
	DefaultTaxRate float64
	Now            func() time.Time
	NewID          func() string
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) taxRate() float64 {
	if s.DefaultTaxRate > 0 {
		return s.DefaultTaxRate
	}
	return DefaultTaxRate
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("billing service not configured")
	}
	if (s.Matcher == nil) != (s.Stock == nil) {
		return errors.New("billing service: matcher and stock adjuster must be configured together")
	}
	return nil
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.Locks == nil {
		return fn(ctx)
	}
	return s.Locks.WithRecord(ctx, "bill", id, fn)
}

func normalizeCustomer(c Customer) Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Address = strings.TrimSpace(c.Address)
	c.GSTNumber = strings.TrimSpace(c.GSTNumber)
	return c
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// Create validates the request, decrements stock for every item that matches
// inventory, persists the finalized bill and then links the prescription.
// Stock already decremented for earlier items stays decremented when a later
// item fails; the ledger rows carry the bill id that was never persisted.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (Bill, error) {
	if err := s.ready(); err != nil {
		return Bill{}, err
	}
	in.Customer = normalizeCustomer(in.Customer)
	if err := common.ValidateStruct(in); err != nil {
		return Bill{}, err
	}
	items, err := computeItems(in.Items, s.taxRate())
	if err != nil {
		return Bill{}, err
	}

	id := s.newID()
	log := s.Logger.With().Str("bill_id", id).Logger()
	if err := s.reserveStock(ctx, id, items, actor, log); err != nil {
		return Bill{}, err
	}

	now := s.now()
	b := Bill{
		ID:             id,
		Customer:       in.Customer,
		PrescriptionID: optional(in.PrescriptionID),
		Items:          items,
		PaymentMethod:  in.PaymentMethod,
		AmountPaid:     in.AmountPaid,
		Notes:          strings.TrimSpace(in.Notes),
		Status:         StatusFinalized,
		CreatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	RecomputeTotals(&b)
	created, err := s.Store.InsertBill(ctx, b)
	if err != nil {
		log.Error().Err(err).Msg("bill insert failed after stock was decremented")
		return Bill{}, fmt.Errorf("insert bill: %w", err)
	}
	obs.BillsCreatedTotal.WithLabelValues(string(created.PaymentMethod)).Inc()
	obs.BillGrandTotal.Observe(created.GrandTotal)

	if created.PrescriptionID != nil && s.Prescriptions != nil {
		if err := s.Prescriptions.MarkDispensed(ctx, *created.PrescriptionID, actor, now); err != nil {
			obs.PrescriptionLinkFailuresTotal.Inc()
			log.Warn().Err(err).Str("prescription_id", *created.PrescriptionID).Msg("prescription link failed")
		}
	}
	s.emit(ctx, events.TopicBillCreated, created, log)
	return withView(created), nil
}

// reserveStock matches each item and subtracts its quantity, item by item.
func (s *Service) reserveStock(ctx context.Context, billID string, items []LineItem, actor string, log zerolog.Logger) error {
	if s.Matcher == nil {
		return nil
	}
	ref := "bill:" + billID
	for i := range items {
		med, err := s.Matcher.Match(ctx, items[i].MedicineName, items[i].BatchNumber)
		if err != nil {
			return fmt.Errorf("match %s: %w", items[i].MedicineName, err)
		}
		if med == nil {
			continue
		}
		medID := med.ID
		items[i].MedicineID = &medID
		if _, err := s.Stock.Subtract(ctx, medID, items[i].Quantity, actor, ref); err != nil {
			if i > 0 {
				log.Warn().Int("items_applied", i).Str("reference", ref).Msg("bill aborted after partial stock decrement")
			}
			if shortage, ok := common.Shortage(err); ok {
				shortage.MedicineName = items[i].MedicineName
				return common.InsufficientStockError(shortage)
			}
			return err
		}
	}
	return nil
}

// relink re-resolves weak medicine references without touching stock.
func (s *Service) relink(ctx context.Context, items []LineItem) error {
	if s.Matcher == nil {
		return nil
	}
	for i := range items {
		med, err := s.Matcher.Match(ctx, items[i].MedicineName, items[i].BatchNumber)
		if err != nil {
			return fmt.Errorf("match %s: %w", items[i].MedicineName, err)
		}
		if med != nil {
			medID := med.ID
			items[i].MedicineID = &medID
		}
	}
	return nil
}

// Update replaces customer, items, payment and notes and re-derives totals.
// Stock is not reconciled against the revised items.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, actor string) (Bill, error) {
	if err := s.ready(); err != nil {
		return Bill{}, err
	}
	in.Customer = normalizeCustomer(in.Customer)
	if err := common.ValidateStruct(in); err != nil {
		return Bill{}, err
	}
	items, err := computeItems(in.Items, s.taxRate())
	if err != nil {
		return Bill{}, err
	}
	id = strings.TrimSpace(id)

	var updated Bill
	err = s.withLock(ctx, id, func(ctx context.Context) error {
		existing, err := s.Store.GetBill(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status == StatusCancelled {
			return common.ConflictError("cancelled bills cannot be modified", nil)
		}
		if err := s.relink(ctx, items); err != nil {
			return err
		}
		b := existing
		b.Customer = in.Customer
		b.Items = items
		b.PaymentMethod = in.PaymentMethod
		b.AmountPaid = in.AmountPaid
		b.Notes = strings.TrimSpace(in.Notes)
		if p := optional(in.PrescriptionID); p != nil {
			b.PrescriptionID = p
		}
		if in.Status != "" {
			b.Status = in.Status
		}
		b.UpdatedBy = actor
		b.UpdatedAt = s.now()
		RecomputeTotals(&b)
		updated, err = s.Store.UpdateBill(ctx, b)
		return err
	})
	if err != nil {
		return Bill{}, err
	}
	s.emit(ctx, events.TopicBillUpdated, updated, s.Logger)
	return withView(updated), nil
}

// Cancel marks a bill cancelled. Stock is not restored and a cancelled bill
// cannot be cancelled again.
func (s *Service) Cancel(ctx context.Context, id, actor string) (Bill, error) {
	if err := s.ready(); err != nil {
		return Bill{}, err
	}
	id = strings.TrimSpace(id)
	var cancelled Bill
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		existing, err := s.Store.GetBill(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status == StatusCancelled {
			return common.ConflictError("bill is already cancelled", nil)
		}
		existing.Status = StatusCancelled
		existing.UpdatedBy = actor
		existing.UpdatedAt = s.now()
		cancelled, err = s.Store.UpdateBill(ctx, existing)
		return err
	})
	if err != nil {
		return Bill{}, err
	}
	obs.BillCancellationsTotal.Inc()
	s.emit(ctx, events.TopicBillCancelled, cancelled, s.Logger)
	return withView(cancelled), nil
}

// Get returns a bill by id.
func (s *Service) Get(ctx context.Context, id string) (Bill, error) {
	if err := s.ready(); err != nil {
		return Bill{}, err
	}
	b, err := s.Store.GetBill(ctx, strings.TrimSpace(id))
	if err != nil {
		return Bill{}, err
	}
	return withView(b), nil
}

var sortable = map[string]bool{"createdAt": true, "grandTotal": true, "customerName": true}

// List returns a page of bills, newest first by default.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Bill, common.Pagination, error) {
	if err := s.ready(); err != nil {
		return nil, common.Pagination{}, err
	}
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
	if !sortable[f.SortBy] {
		f.SortBy = "createdAt"
	}
	switch f.PaymentStatus {
	case "", PaymentPending, PaymentPaid, PaymentPartiallyPaid, PaymentRefunded:
	default:
		return nil, common.Pagination{}, common.ValidationError("invalid paymentStatus", map[string]any{"paymentStatus": f.PaymentStatus})
	}
	items, total, err := s.Store.ListBills(ctx, f)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	for i := range items {
		items[i] = withView(items[i])
	}
	return items, common.NewPagination(f.Page, f.PerPage, total), nil
}

// EventPayload is published for bill lifecycle topics.
type EventPayload struct {
	ID            string        `json:"id"`
	BillReference string        `json:"billReference"`
	Status        Status        `json:"status"`
	GrandTotal    float64       `json:"grandTotal"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CustomerName  string        `json:"customerName"`
	Actor         string        `json:"actor"`
}

func (s *Service) emit(ctx context.Context, topic string, b Bill, log zerolog.Logger) {
	if s.Events == nil {
		return
	}
	actor := b.UpdatedBy
	if actor == "" {
		actor = b.CreatedBy
	}
	payload := EventPayload{
		ID:            b.ID,
		BillReference: Reference(b.ID),
		Status:        b.Status,
		GrandTotal:    b.GrandTotal,
		PaymentMethod: b.PaymentMethod,
		PaymentStatus: b.PaymentStatus,
		CustomerName:  b.Customer.Name,
		Actor:         actor,
	}
	if _, err := s.Events.Emit(ctx, topic, b.ID, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("emit bill event failed")
	}
}
