package billing_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/inventory"
)

// stockFake backs the real inventory matcher and adjuster.
type stockFake struct {
	mu   sync.Mutex
	meds map[string]*inventory.Medicine
	refs []string
}

func newStock(meds ...inventory.Medicine) *stockFake {
	f := &stockFake{meds: map[string]*inventory.Medicine{}}
	for i := range meds {
		m := meds[i]
		f.meds[m.ID] = &m
	}
	return f
}

func (f *stockFake) FindMatch(_ context.Context, text, batch string) (*inventory.Medicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.meds))
	for id := range f.meds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := f.meds[id]
		if m.IsActive && m.BatchNumber == batch && inventory.NameMatches(*m, text) {
			found := *m
			return &found, nil
		}
	}
	return nil, nil
}

func (f *stockFake) ApplyStock(_ context.Context, mut inventory.StockMutation) (inventory.StockLevel, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meds[mut.MedicineID]
	if !ok {
		return inventory.StockLevel{}, false, nil
	}
	before := m.Stock.Current
	switch mut.Kind {
	case inventory.StockSubtract:
		if m.Stock.Current < mut.Quantity {
			return inventory.StockLevel{}, false, nil
		}
		m.Stock.Current -= mut.Quantity
	case inventory.StockAdd:
		m.Stock.Current += mut.Quantity
	case inventory.StockSet:
		m.Stock.Current = mut.Quantity
	}
	m.UpdatedBy = mut.Actor
	f.refs = append(f.refs, mut.Reference)
	return inventory.StockLevel{MedicineID: m.ID, Name: m.Name, BatchNumber: m.BatchNumber, Stock: m.Stock, Previous: before}, true, nil
}

func (f *stockFake) GetStock(_ context.Context, id string) (inventory.StockLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meds[id]
	if !ok {
		return inventory.StockLevel{}, common.NotFoundError("Medicine")
	}
	return inventory.StockLevel{MedicineID: m.ID, Name: m.Name, BatchNumber: m.BatchNumber, Stock: m.Stock}, nil
}

func (f *stockFake) current(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meds[id].Stock.Current
}

type billStore struct {
	mu    sync.Mutex
	bills map[string]billing.Bill
}

func newBillStore() *billStore {
	return &billStore{bills: map[string]billing.Bill{}}
}

func (s *billStore) InsertBill(_ context.Context, b billing.Bill) (billing.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[b.ID] = b
	return b, nil
}

func (s *billStore) GetBill(_ context.Context, id string) (billing.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return billing.Bill{}, common.NotFoundError("Bill")
	}
	return b, nil
}

func (s *billStore) UpdateBill(_ context.Context, b billing.Bill) (billing.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; !ok {
		return billing.Bill{}, common.NotFoundError("Bill")
	}
	s.bills[b.ID] = b
	return b, nil
}

func (s *billStore) ListBills(_ context.Context, f billing.ListFilter) ([]billing.Bill, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []billing.Bill
	for _, b := range s.bills {
		if f.PaymentStatus != "" && b.PaymentStatus != f.PaymentStatus {
			continue
		}
		out = append(out, b)
	}
	return out, len(out), nil
}

type linkCall struct {
	id, actor string
	at        time.Time
}

type fakeLinker struct {
	calls []linkCall
	err   error
}

func (l *fakeLinker) MarkDispensed(_ context.Context, id, actor string, at time.Time) error {
	l.calls = append(l.calls, linkCall{id: id, actor: actor, at: at})
	return l.err
}

type recordingLocker struct {
	keys []string
}

func (l *recordingLocker) WithRecord(ctx context.Context, kind, id string, fn func(context.Context) error) error {
	l.keys = append(l.keys, kind+":"+id)
	return fn(ctx)
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

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func stocked(id, name, batch string, current int) inventory.Medicine {
	return inventory.Medicine{
		ID:          id,
		Name:        name,
		BatchNumber: batch,
		Stock:       inventory.Stock{Current: current, Minimum: 0, Maximum: 1000},
		IsActive:    true,
	}
}

type harness struct {
	svc     *billing.Service
	stock   *stockFake
	bills   *billStore
	linker  *fakeLinker
	locker  *recordingLocker
	emitter *captureEmitter
}

func newHarness(meds ...inventory.Medicine) *harness {
	stock := newStock(meds...)
	h := &harness{
		stock:   stock,
		bills:   newBillStore(),
		linker:  &fakeLinker{},
		locker:  &recordingLocker{},
		emitter: &captureEmitter{},
	}
	seq := 0
	h.svc = &billing.Service{
		Store:         h.bills,
		Matcher:       inventory.Matcher{Finder: stock},
		Stock:         &inventory.Adjuster{Store: stock},
		Prescriptions: h.linker,
		Locks:         h.locker,
		Events:        h.emitter,
		Now:           func() time.Time { return fixedNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("00000000-0000-4000-8000-%012d", seq)
		},
	}
	return h
}

func price(v float64) *float64 { return &v }
