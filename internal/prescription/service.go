package prescription

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/inventory"
)

// Store persists prescriptions. CreatePrescription assigns a PrescriptionID
// itself when the caller leaves it empty.
type Store interface {
	CreatePrescription(ctx context.Context, p Prescription) (Prescription, error)
	GetPrescription(ctx context.Context, id string) (Prescription, error)
	UpdatePrescription(ctx context.Context, p Prescription) (Prescription, error)
	SetStatus(ctx context.Context, id string, change StatusChange) (Prescription, error)
	ListPrescriptions(ctx context.Context, f ListFilter) ([]Prescription, int, error)
	DeletePrescription(ctx context.Context, id string) error
}

// MedicineResolver links prescribed names to active inventory.
type MedicineResolver interface {
	FindActiveByName(ctx context.Context, text string) (*inventory.Medicine, error)
}

// Service implements prescription workflows.
type Service struct {
	Store     Store
	IDs       IDGenerator
	Medicines MedicineResolver
	Events    events.Emitter
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("prescription service not configured")
	}
	return nil
}

// DispensedPayload is published on events.TopicPrescriptionDispensed.
type DispensedPayload struct {
	ID             string    `json:"id"`
	PrescriptionID string    `json:"prescriptionId"`
	Status         Status    `json:"status"`
	DispensedBy    string    `json:"dispensedBy"`
	DispensedAt    time.Time `json:"dispensedAt"`
}

func (s *Service) build(ctx context.Context, in Input) (Prescription, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Prescription{}, err
	}
	items, err := s.resolve(ctx, in.Medicines)
	if err != nil {
		return Prescription{}, err
	}
	p := Prescription{
		Patient:    in.Patient,
		Doctor:     in.Doctor,
		Medicines:  items,
		Diagnosis:  strings.TrimSpace(in.Diagnosis),
		Symptoms:   in.Symptoms,
		VitalSigns: in.VitalSigns,
		Allergies:  in.Allergies,
		Notes:      strings.TrimSpace(in.Notes),
	}
	p.Patient.Name = strings.TrimSpace(p.Patient.Name)
	p.Doctor.Name = strings.TrimSpace(p.Doctor.Name)
	if in.PrescriptionDate != nil {
		p.PrescriptionDate = *in.PrescriptionDate
	} else {
		p.PrescriptionDate = s.now()
	}
	return p, nil
}

func (s *Service) resolve(ctx context.Context, items []Item) ([]Item, error) {
	out := make([]Item, len(items))
	for i, item := range items {
		item.MedicineName = strings.TrimSpace(item.MedicineName)
		item.MedicineID = nil
		if s.Medicines != nil {
			med, err := s.Medicines.FindActiveByName(ctx, item.MedicineName)
			if err != nil {
				return nil, err
			}
			if med != nil {
				id := med.ID
				item.MedicineID = &id
			}
		}
		out[i] = item
	}
	return out, nil
}

// Create stores a new pending prescription.
func (s *Service) Create(ctx context.Context, in Input, actor string) (Prescription, error) {
	if err := s.ready(); err != nil {
		return Prescription{}, err
	}
	p, err := s.build(ctx, in)
	if err != nil {
		return Prescription{}, err
	}
	now := s.now()
	if s.IDs != nil {
		id, err := s.IDs.Next(ctx, now)
		if err != nil {
			// the store falls back to counting today's rows
			s.Logger.Warn().Err(err).Msg("prescription id generator unavailable")
		} else {
			p.PrescriptionID = id
		}
	}
	p.Status = StatusPending
	p.CreatedBy = actor
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.Store.CreatePrescription(ctx, p)
}

// Update replaces the clinical content of a prescription. Status and
// dispensing fields are untouched.
func (s *Service) Update(ctx context.Context, id string, in Input, actor string) (Prescription, error) {
	if err := s.ready(); err != nil {
		return Prescription{}, err
	}
	existing, err := s.Store.GetPrescription(ctx, id)
	if err != nil {
		return Prescription{}, err
	}
	p, err := s.build(ctx, in)
	if err != nil {
		return Prescription{}, err
	}
	p.ID = existing.ID
	p.PrescriptionID = existing.PrescriptionID
	p.Status = existing.Status
	p.DispensedBy = existing.DispensedBy
	p.DispensedAt = existing.DispensedAt
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	p.UpdatedBy = actor
	p.UpdatedAt = s.now()
	return s.Store.UpdatePrescription(ctx, p)
}

// Get returns a prescription by id.
func (s *Service) Get(ctx context.Context, id string) (Prescription, error) {
	if err := s.ready(); err != nil {
		return Prescription{}, err
	}
	return s.Store.GetPrescription(ctx, strings.TrimSpace(id))
}

// List returns a page of prescriptions, newest prescription date first by default.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Prescription, common.Pagination, error) {
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
	if f.Status != "" && !f.Status.Valid() {
		return nil, common.Pagination{}, common.ValidationError("Invalid status", nil)
	}
	switch f.SortBy {
	case "prescriptionDate", "createdAt", "patientName":
	default:
		f.SortBy = "prescriptionDate"
	}
	items, total, err := s.Store.ListPrescriptions(ctx, f)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return items, common.NewPagination(f.Page, f.PerPage, total), nil
}

// UpdateStatus moves a prescription to status. Dispensing statuses record who
// dispensed and when.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, actor string) (Prescription, error) {
	if err := s.ready(); err != nil {
		return Prescription{}, err
	}
	if !status.Valid() {
		return Prescription{}, common.ValidationError("Invalid status", map[string]any{"status": status})
	}
	now := s.now()
	change := StatusChange{Status: status, Actor: actor, At: now}
	if status == StatusDispensed || status == StatusPartiallyDispensed {
		change.DispensedBy = &actor
		change.DispensedAt = &now
	}
	p, err := s.Store.SetStatus(ctx, strings.TrimSpace(id), change)
	if err != nil {
		return Prescription{}, err
	}
	if status == StatusDispensed {
		s.emitDispensed(ctx, p, actor, now)
	}
	return p, nil
}

// MarkDispensed closes out a prescription after a bill has been raised for it.
func (s *Service) MarkDispensed(ctx context.Context, id, actor string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	if at.IsZero() {
		at = s.now()
	}
	p, err := s.Store.SetStatus(ctx, strings.TrimSpace(id), StatusChange{
		Status:      StatusDispensed,
		Actor:       actor,
		At:          at,
		DispensedBy: &actor,
		DispensedAt: &at,
	})
	if err != nil {
		return err
	}
	s.emitDispensed(ctx, p, actor, at)
	return nil
}

func (s *Service) emitDispensed(ctx context.Context, p Prescription, actor string, at time.Time) {
	if s.Events == nil {
		return
	}
	payload := DispensedPayload{ID: p.ID, PrescriptionID: p.PrescriptionID, Status: p.Status, DispensedBy: actor, DispensedAt: at}
	if _, err := s.Events.Emit(ctx, events.TopicPrescriptionDispensed, p.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("prescription_id", p.ID).Msg("emit prescription.dispensed failed")
	}
}

// Delete removes a prescription permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.Store.DeletePrescription(ctx, strings.TrimSpace(id))
}
