package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/queue"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
)

type memStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Reservation
	clock  func() time.Time
	// staleOnce makes the next conditional write report a concurrent change.
	staleOnce bool
}

func newMemStore(clock func() time.Time) *memStore {
	return &memStore{rows: map[uint64]model.Reservation{}, clock: clock}
}

func (m *memStore) Create(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	res.ID = m.nextID
	res.CreatedAt = m.clock().Add(time.Duration(m.nextID) * time.Millisecond)
	res.UpdatedAt = res.CreatedAt
	m.rows[res.ID] = *res
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) List(_ context.Context, f repository.ReservationFilter) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range m.rows {
		if f.CustomerID != nil && r.CustomerID != *f.CustomerID {
			continue
		}
		if f.CompanyID != nil && (!r.IsCompanyBooking || r.CompanyID == nil || *r.CompanyID != *f.CompanyID) {
			continue
		}
		if f.RoomID != nil && r.RoomID != *f.RoomID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) FindConflict(_ context.Context, roomID uint64, in, out time.Time, excludeID uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.RoomID == roomID && r.ID != excludeID && r.Status.Blocking() && r.Overlaps(in, out) {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memStore) Update(_ context.Context, res *model.Reservation, expected model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[res.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.staleOnce || cur.Status != expected {
		m.staleOnce = false
		return repository.ErrStaleStatus
	}
	m.rows[res.ID] = *res
	return nil
}

func (m *memStore) TransitionStatus(_ context.Context, id uint64, from, to model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.staleOnce || cur.Status != from {
		m.staleOnce = false
		return repository.ErrStaleStatus
	}
	cur.Status = to
	m.rows[id] = cur
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) ListNoShowCandidates(_ context.Context, now time.Time) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, r := range m.rows {
		if r.Status == model.StatusNoShow && r.PaymentMethod == model.PaymentCreditCard && !r.CheckInDate.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// put stores a reservation as is, bypassing the engine.
func (m *memStore) put(r model.Reservation) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.rows[r.ID] = r
	return r.ID
}

func (m *memStore) status(id uint64) model.ReservationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

type memRooms struct {
	mu      sync.Mutex
	rooms   map[uint64]model.Room
	failFor map[uint64]bool
}

func newMemRooms(rooms ...model.Room) *memRooms {
	m := &memRooms{rooms: map[uint64]model.Room{}, failFor: map[uint64]bool{}}
	for _, r := range rooms {
		m.rooms[r.ID] = r
	}
	return m
}

func (m *memRooms) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memRooms) UpdateStatus(_ context.Context, id uint64, st model.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[id] {
		return errors.New("room store unavailable")
	}
	r, ok := m.rooms[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = st
	m.rooms[id] = r
	return nil
}

func (m *memRooms) status(id uint64) model.RoomStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id].Status
}

type memBills struct {
	mu    sync.Mutex
	bills []model.Billing
}

func (m *memBills) FindByReservation(_ context.Context, id uint64) (*model.Billing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bills {
		if b.ReservationID == id {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memBills) Create(_ context.Context, b *model.Billing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.bills {
		if x.ReservationID == b.ReservationID {
			return repository.ErrDuplicate
		}
	}
	b.ID = uint64(len(m.bills) + 1)
	m.bills = append(m.bills, *b)
	return nil
}

func (m *memBills) forReservation(id uint64) []model.Billing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Billing
	for _, b := range m.bills {
		if b.ReservationID == id {
			out = append(out, b)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
