package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/queue"
	"github.com/iliyamo/zoo-booking/internal/repository"
)

// memStore is an in-memory BookingStore and Catalog.  WithTx holds one
// mutex for the whole transaction and works on a copy of the bookings,
// which is at least as strict as the room type row lock and gives
// rollback for free.
type memStore struct {
	mu        sync.Mutex
	tickets   map[uint64]*model.Ticket
	roomTypes map[uint64]*model.RoomType
	hotels    map[uint64]string
	bookings  map[uint64]*model.Booking
	nextID    uint64
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		tickets:   map[uint64]*model.Ticket{},
		roomTypes: map[uint64]*model.RoomType{},
		hotels:    map[uint64]string{},
		bookings:  map[uint64]*model.Booking{},
		clock:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addTicket(id uint64, typ string, price string) {
	m.tickets[id] = &model.Ticket{ID: id, Type: typ, Price: decimal.RequireFromString(price)}
}

func (m *memStore) addRoomType(id, hotelID uint64, price string, total int) {
	m.hotels[hotelID] = "Safari Lodge"
	m.roomTypes[id] = &model.RoomType{
		ID: id, HotelID: hotelID, Name: "Standard Room",
		PricePerNight: decimal.RequireFromString(price), TotalRooms: total,
	}
}

func (m *memStore) setRoomPrice(id uint64, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomTypes[id].PricePerNight = decimal.RequireFromString(price)
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

func (m *memStore) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *memStore) GetRoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.roomTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rt
	return &c, nil
}

func (m *memStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (m *memStore) list(keep func(*model.Booking) bool) []*model.Booking {
	out := []*model.Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (m *memStore) ListAll(ctx context.Context) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(*model.Booking) bool { return true }), nil
}

func (m *memStore) OccupiedRooms(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return occupied(m.bookings, roomTypeID, checkIn, checkOut), nil
}

func (m *memStore) DeleteBooking(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx repository.BookingTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := make(map[uint64]*model.Booking, len(m.bookings))
	for id, b := range m.bookings {
		work[id] = cloneBooking(b)
	}
	tx := &memTx{store: m, bookings: work, nextID: m.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	m.bookings = work
	m.nextID = tx.nextID
	return nil
}

func occupied(bookings map[uint64]*model.Booking, roomTypeID uint64, checkIn, checkOut model.Date) int {
	n := 0
	for _, b := range bookings {
		if b.RoomTypeID == nil || *b.RoomTypeID != roomTypeID || !b.Status.HoldsCapacity() {
			continue
		}
		if b.CheckIn.Before(checkOut.Time) && b.CheckOut.After(checkIn.Time) {
			n += b.Quantity
		}
	}
	return n
}

type memTx struct {
	store    *memStore
	bookings map[uint64]*model.Booking
	nextID   uint64
}

func (t *memTx) LockRoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	rt, ok := t.store.roomTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rt
	return &c, nil
}

func (t *memTx) OccupiedRooms(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date) (int, error) {
	return occupied(t.bookings, roomTypeID, checkIn, checkOut), nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	t.nextID++
	b.ID = t.nextID
	now := t.store.tick()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.TicketID != nil {
		if tk, ok := t.store.tickets[*b.TicketID]; ok {
			typ := tk.Type
			b.TicketType = &typ
		}
	}
	if b.RoomTypeID != nil {
		if rt, ok := t.store.roomTypes[*b.RoomTypeID]; ok {
			name, hotel := rt.Name, t.store.hotels[rt.HotelID]
			b.RoomTypeName, b.HotelName = &name, &hotel
		}
	}
	t.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (t *memTx) LockBookingsBySession(ctx context.Context, sessionID string) ([]*model.Booking, error) {
	out := []*model.Booking{}
	for _, b := range t.bookings {
		if b.PaymentSessionID != nil && *b.PaymentSessionID == sessionID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpdateStatus(ctx context.Context, id uint64, from []model.BookingStatus, to model.BookingStatus) (bool, error) {
	b, ok := t.bookings[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			b.UpdatedAt = t.store.tick()
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) SetPaymentSession(ctx context.Context, id uint64, sessionID string) error {
	b, ok := t.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	s := sessionID
	b.PaymentSessionID = &s
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingStatusChangedEvent
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(ctx context.Context, ev queue.BookingStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Status)
	}
	return out
}

var (
	_ repository.BookingStore = (*memStore)(nil)
	_ repository.Catalog      = (*memStore)(nil)
	_ repository.BookingTx    = (*memTx)(nil)
)
