package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/repository"
	"github.com/iliyamo/zoo-booking/internal/service"
)

type mockAdminBookings struct {
	SetStatusFunc func(ctx context.Context, id uint64, to model.BookingStatus) (*model.Booking, error)
	deleted       []uint64
}

func (m *mockAdminBookings) ListAll(ctx context.Context) ([]*model.Booking, error) { return nil, nil }

func (m *mockAdminBookings) SetStatus(ctx context.Context, id uint64, to model.BookingStatus) (*model.Booking, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, to)
	}
	return &model.Booking{ID: id, Status: to}, nil
}

func (m *mockAdminBookings) Delete(ctx context.Context, id uint64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type adminFixture struct {
	users    *memUsers
	catalog  *mockCatalog
	bookings *mockAdminBookings
	purges   int
	e        *echo.Echo
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{users: newMemUsers(), catalog: testCatalog(), bookings: &mockAdminBookings{}}
	_, err := f.users.Create(context.Background(), "admin@zoo.example", "password123", "Admin", model.RoleAdmin, 0)
	require.NoError(t, err)
	_, err = f.users.Create(context.Background(), "guest@zoo.example", "password123", "Guest", model.RoleUser, 0)
	require.NoError(t, err)

	h := NewAdminHandler(f.users, f.catalog, f.bookings, func(ctx context.Context) error {
		f.purges++
		return nil
	})
	f.e = echo.New()
	g := f.e.Group("/v1/admin", asUser(1, model.RoleAdmin))
	g.GET("/users", h.ListUsers)
	g.PUT("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)
	g.GET("/bookings", h.ListBookings)
	g.PUT("/bookings/:id", h.SetBookingStatus)
	g.DELETE("/bookings/:id", h.DeleteBooking)
	g.POST("/tickets", h.CreateTicket)
	g.PUT("/tickets/:id", h.UpdateTicket)
	g.DELETE("/tickets/:id", h.DeleteTicket)
	g.PUT("/room-types/:id", h.UpdateRoomType)
	return f
}

func TestAdmin_DeleteSelfRejected(t *testing.T) {
	f := newAdminFixture(t)
	rec := doRequest(t, f.e, http.MethodDelete, "/v1/admin/users/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := f.users.GetByID(context.Background(), 1)
	assert.NoError(t, err)

	rec = doRequest(t, f.e, http.MethodDelete, "/v1/admin/users/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = f.users.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdmin_UpdateUser(t *testing.T) {
	f := newAdminFixture(t)

	rec := doRequest(t, f.e, http.MethodPut, "/v1/admin/users/2", `{"role":"admin","is_active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u, _ := f.users.GetByID(context.Background(), 2)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.False(t, u.IsActive)
	assert.Equal(t, "Guest", u.Name)

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/users/2", `{"role":"OWNER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/users/1", `{"role":"USER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "self demotion")

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/users/77", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_SetBookingStatus(t *testing.T) {
	f := newAdminFixture(t)
	f.bookings.SetStatusFunc = func(ctx context.Context, id uint64, to model.BookingStatus) (*model.Booking, error) {
		if to == model.StatusPending {
			return nil, &service.StateError{Status: "confirmed", Want: "pending"}
		}
		return &model.Booking{ID: id, Status: to}, nil
	}

	rec := doRequest(t, f.e, http.MethodPut, "/v1/admin/bookings/3", `{"status":"Completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/bookings/3", `{"status":"pending"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/bookings/3", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_TicketLifecyclePurgesCache(t *testing.T) {
	f := newAdminFixture(t)

	rec := doRequest(t, f.e, http.MethodPost, "/v1/admin/tickets", `{"type":"Senior","price":"15.505"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, f.catalog.created)
	assert.True(t, decimal.RequireFromString("15.51").Equal(f.catalog.created.Price))

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/tickets/1", `{"price":25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"Adult"`)

	rec = doRequest(t, f.e, http.MethodDelete, "/v1/admin/tickets/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 3, f.purges)

	rec = doRequest(t, f.e, http.MethodPost, "/v1/admin/tickets", `{"type":"Free","price":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_DeleteReferencedTicket(t *testing.T) {
	f := newAdminFixture(t)
	f.catalog.err = repository.ErrConflict
	rec := doRequest(t, f.e, http.MethodDelete, "/v1/admin/tickets/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, f.purges)
}

func TestAdmin_UpdateRoomType(t *testing.T) {
	f := newAdminFixture(t)

	rec := doRequest(t, f.e, http.MethodPut, "/v1/admin/room-types/3", `{"total_rooms":8,"price_per_night":"1750"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, f.catalog.updated)
	assert.Equal(t, 8, f.catalog.updated.TotalRooms)
	assert.Equal(t, "Savannah Suite", f.catalog.updated.Name)
	assert.True(t, decimal.NewFromInt(1750).Equal(f.catalog.updated.PricePerNight))
	assert.Equal(t, 1, f.purges)

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/room-types/3", `{"total_rooms":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, f.e, http.MethodPut, "/v1/admin/room-types/99", `{"total_rooms":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
