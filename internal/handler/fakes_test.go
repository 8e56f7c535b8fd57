package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/zoo-booking/internal/gateway"
	"github.com/iliyamo/zoo-booking/internal/middleware"
	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/repository"
	"github.com/iliyamo/zoo-booking/internal/service"
	"github.com/iliyamo/zoo-booking/internal/utils"
)

// asUser injects the identity JWTAuth would set.
func asUser(id uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserID, id)
			c.Set(middleware.CtxRole, role)
			return next(c)
		}
	}
}

func doRequest(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type mockBookingAPI struct {
	CreateFunc   func(ctx context.Context, p service.Principal, req service.CreateRequest) (*model.Booking, error)
	GetFunc      func(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error)
	ListMineFunc func(ctx context.Context, p service.Principal) ([]*model.Booking, error)
	CancelFunc   func(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error)
}

func (m *mockBookingAPI) Create(ctx context.Context, p service.Principal, req service.CreateRequest) (*model.Booking, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p, req)
	}
	return nil, nil
}

func (m *mockBookingAPI) Get(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, p, id)
	}
	return nil, nil
}

func (m *mockBookingAPI) ListMine(ctx context.Context, p service.Principal) ([]*model.Booking, error) {
	if m.ListMineFunc != nil {
		return m.ListMineFunc(ctx, p)
	}
	return nil, nil
}

func (m *mockBookingAPI) Cancel(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, p, id)
	}
	return nil, nil
}

type mockCatalog struct {
	tickets []model.Ticket
	hotels  []model.Hotel
	rooms   map[uint64]*model.RoomType

	created *model.Ticket
	updated *model.RoomType
	err     error
}

func (m *mockCatalog) ListTickets(ctx context.Context) ([]model.Ticket, error) { return m.tickets, m.err }

func (m *mockCatalog) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			t := m.tickets[i]
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCatalog) ListHotels(ctx context.Context) ([]model.Hotel, error) { return m.hotels, m.err }

func (m *mockCatalog) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	for i := range m.hotels {
		if m.hotels[i].ID == id {
			h := m.hotels[i]
			return &h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCatalog) ListRoomTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	out := []model.RoomType{}
	for _, rt := range m.rooms {
		if rt.HotelID == hotelID {
			out = append(out, *rt)
		}
	}
	return out, nil
}

func (m *mockCatalog) CreateTicket(ctx context.Context, t *model.Ticket) error {
	if m.err != nil {
		return m.err
	}
	t.ID = uint64(len(m.tickets) + 1)
	m.created = t
	m.tickets = append(m.tickets, *t)
	return nil
}

func (m *mockCatalog) UpdateTicket(ctx context.Context, t *model.Ticket) error { return m.err }

func (m *mockCatalog) DeleteTicket(ctx context.Context, id uint64) error { return m.err }

func (m *mockCatalog) GetRoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	rt, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (m *mockCatalog) UpdateRoomType(ctx context.Context, rt *model.RoomType) error {
	if m.err != nil {
		return m.err
	}
	m.updated = rt
	return nil
}

type mockAvailability struct {
	AvailabilityFunc func(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut model.Date) (int, error)
}

func (m *mockAvailability) Availability(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut model.Date) (int, error) {
	if m.AvailabilityFunc != nil {
		return m.AvailabilityFunc(ctx, hotelID, roomTypeID, checkIn, checkOut)
	}
	return 0, nil
}

type mockPaymentAPI struct {
	CheckoutFunc      func(ctx context.Context, p service.Principal, in service.CheckoutInput) (*gateway.CheckoutSession, error)
	HandleWebhookFunc func(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

func (m *mockPaymentAPI) Checkout(ctx context.Context, p service.Principal, in service.CheckoutInput) (*gateway.CheckoutSession, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, p, in)
	}
	return nil, nil
}

func (m *mockPaymentAPI) HandleWebhook(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error) {
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(ctx, payload, signature)
	}
	return nil, nil
}

// memUsers implements UserStore and AdminUsers.
type memUsers struct {
	users  map[uint64]model.User
	nextID uint64
}

func newMemUsers() *memUsers { return &memUsers{users: map[uint64]model.User{}, nextID: 1} }

func (m *memUsers) Create(ctx context.Context, email, password, name, role string, cost int) (uint64, error) {
	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := hashForTest(password)
	if err != nil {
		return 0, err
	}
	id := m.nextID
	m.nextID++
	m.users[id] = model.User{ID: id, Email: email, PasswordHash: hash, Name: name, Role: role, IsActive: true, CreatedAt: time.Now()}
	return id, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range m.users {
		if other.ID != id && other.Email == email {
			return repository.ErrEmailExists
		}
	}
	u.Name, u.Email = name, email
	m.users[id] = u
	return nil
}

func (m *memUsers) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	hash, err := hashForTest(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memUsers) List(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) Update(ctx context.Context, u *model.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id uint64) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memTokens struct {
	byHash  map[string]uint64
	revoked map[string]bool
}

func newMemTokens() *memTokens {
	return &memTokens{byHash: map[string]uint64{}, revoked: map[string]bool{}}
}

func (m *memTokens) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	m.byHash[tokenHash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	uid, ok := m.byHash[tokenHash]
	if !ok || m.revoked[tokenHash] {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (m *memTokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	m.revoked[tokenHash] = true
	return nil
}

func (m *memTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	for h, uid := range m.byHash {
		if uid == userID {
			m.revoked[h] = true
		}
	}
	return nil
}

func hashForTest(password string) (string, error) {
	return utils.HashPassword(password, bcrypt.MinCost)
}
