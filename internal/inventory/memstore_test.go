package inventory_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/inventory"
)

type memStore struct {
	mu        sync.Mutex
	meds      map[string]inventory.Medicine
	movements []inventory.StockMutation
	failGet   error
}

func newMemStore(meds ...inventory.Medicine) *memStore {
	s := &memStore{meds: map[string]inventory.Medicine{}}
	for _, m := range meds {
		s.meds[m.ID] = m
	}
	return s
}

func (s *memStore) ordered() []inventory.Medicine {
	out := make([]inventory.Medicine, 0, len(s.meds))
	for _, m := range s.meds {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *memStore) FindMatch(_ context.Context, text, batch string) (*inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.ordered() {
		if m.IsActive && m.BatchNumber == batch && inventory.NameMatches(m, text) {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindActiveByName(_ context.Context, text string) (*inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.ordered() {
		if m.IsActive && strings.Contains(strings.ToLower(m.Name), strings.ToLower(text)) {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memStore) ApplyStock(_ context.Context, mut inventory.StockMutation) (inventory.StockLevel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meds[mut.MedicineID]
	if !ok {
		return inventory.StockLevel{}, false, nil
	}
	before := m.Stock.Current
	switch mut.Kind {
	case inventory.StockAdd:
		m.Stock.Current += mut.Quantity
	case inventory.StockSubtract:
		if m.Stock.Current < mut.Quantity {
			return inventory.StockLevel{}, false, nil
		}
		m.Stock.Current -= mut.Quantity
	case inventory.StockSet:
		m.Stock.Current = mut.Quantity
	}
	m.UpdatedBy = mut.Actor
	s.meds[m.ID] = m
	s.movements = append(s.movements, mut)
	return inventory.StockLevel{MedicineID: m.ID, Name: m.Name, BatchNumber: m.BatchNumber, Stock: m.Stock, Previous: before}, true, nil
}

func (s *memStore) GetStock(_ context.Context, id string) (inventory.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return inventory.StockLevel{}, s.failGet
	}
	m, ok := s.meds[id]
	if !ok {
		return inventory.StockLevel{}, common.NotFoundError("Medicine")
	}
	return inventory.StockLevel{MedicineID: m.ID, Name: m.Name, BatchNumber: m.BatchNumber, Stock: m.Stock, Previous: m.Stock.Current}, nil
}

func (s *memStore) CreateMedicine(_ context.Context, m inventory.Medicine) (inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.meds {
		if existing.BatchNumber == m.BatchNumber {
			return inventory.Medicine{}, common.ConflictError("Medicine with this batch number already exists", nil)
		}
	}
	m.ID = uuid.NewString()
	m.UpdatedBy = m.CreatedBy
	s.meds[m.ID] = m
	return m, nil
}

func (s *memStore) GetMedicine(_ context.Context, id string) (inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meds[id]
	if !ok {
		return inventory.Medicine{}, common.NotFoundError("Medicine")
	}
	return m, nil
}

func (s *memStore) UpdateMedicine(_ context.Context, m inventory.Medicine) (inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meds[m.ID]; !ok {
		return inventory.Medicine{}, common.NotFoundError("Medicine")
	}
	s.meds[m.ID] = m
	return m, nil
}

func (s *memStore) ListMedicines(_ context.Context, f inventory.ListFilter) ([]inventory.Medicine, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Medicine
	for _, m := range s.ordered() {
		if f.Status == inventory.StatusActive && !m.IsActive {
			continue
		}
		if f.Search != "" && !inventory.NameMatches(m, f.Search) {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.StockStatus != "" && m.Stock.Status() != f.StockStatus {
			continue
		}
		out = append(out, m)
	}
	return out, len(out), nil
}

func (s *memStore) ListLowStock(_ context.Context) ([]inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Medicine
	for _, m := range s.ordered() {
		if m.IsActive && m.Stock.Current <= m.Stock.Minimum {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListExpiring(_ context.Context, from, to time.Time) ([]inventory.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Medicine
	for _, m := range s.ordered() {
		if m.IsActive && !m.ExpiryDate.Before(from) && !m.ExpiryDate.After(to) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (s *memStore) DeactivateMedicine(_ context.Context, id, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meds[id]
	if !ok {
		return common.NotFoundError("Medicine")
	}
	m.IsActive = false
	m.UpdatedBy = actor
	m.UpdatedAt = at
	s.meds[id] = m
	return nil
}

func (s *memStore) current(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meds[id].Stock.Current
}

type captureEmitter struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	return events.Event{Topic: topic, AggregateID: aggregateID}, c.err
}

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func medicine(id, name, batch string, current, minimum int) inventory.Medicine {
	return inventory.Medicine{
		ID:          id,
		Name:        name,
		Category:    inventory.CategoryTablet,
		BatchNumber: batch,
		ExpiryDate:  baseTime.AddDate(2, 0, 0),
		Stock:       inventory.Stock{Current: current, Minimum: minimum, Maximum: 1000},
		IsActive:    true,
		CreatedAt:   baseTime,
	}
}
