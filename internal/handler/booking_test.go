package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/service"
)

func setupBookingRouter(api BookingAPI, userID uint64, role string) *echo.Echo {
	e := echo.New()
	h := NewBookingHandler(api)
	g := e.Group("/v1/bookings", asUser(userID, role))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/cancel", h.Cancel)
	return e
}

func TestBookingCreate_Hotel(t *testing.T) {
	var got service.CreateRequest
	var gotPrincipal service.Principal
	api := &mockBookingAPI{
		CreateFunc: func(ctx context.Context, p service.Principal, req service.CreateRequest) (*model.Booking, error) {
			got, gotPrincipal = req, p
			return &model.Booking{
				ID: 9, UserID: p.UserID, BookingType: model.BookingTypeHotel, RoomTypeID: req.RoomTypeID,
				CheckIn: req.CheckIn, CheckOut: req.CheckOut, Quantity: 1,
				Status: model.StatusPending, TotalPrice: decimal.NewFromInt(3000),
			}, nil
		},
	}
	e := setupBookingRouter(api, 7, model.RoleUser)

	rec := doRequest(t, e, http.MethodPost, "/v1/bookings",
		`{"booking_type":"hotel","room_type_id":3,"check_in":"2025-07-01","check_out":"2025-07-03"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.BookingTypeHotel, got.BookingType)
	require.NotNil(t, got.RoomTypeID)
	assert.Equal(t, uint64(3), *got.RoomTypeID)
	assert.Equal(t, "2025-07-01", got.CheckIn.String())
	assert.Nil(t, got.Quantity)
	assert.Equal(t, uint64(7), gotPrincipal.UserID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "3000", body["total_price"])
	assert.Equal(t, "2025-07-03", body["check_out"])
}

func TestBookingCreate_BadDate(t *testing.T) {
	e := setupBookingRouter(&mockBookingAPI{}, 7, model.RoleUser)
	rec := doRequest(t, e, http.MethodPost, "/v1/bookings",
		`{"booking_type":"hotel","room_type_id":3,"check_in":"07/01/2025","check_out":"2025-07-03"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingCreate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKey    string
	}{
		{"validation", &service.ValidationError{Msg: "quantity must be at least 1"}, http.StatusBadRequest, "error"},
		{"capacity", &service.CapacityError{Available: 1, Requested: 2}, http.StatusConflict, "available_rooms"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "error"},
		{"internal", assert.AnError, http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockBookingAPI{
				CreateFunc: func(ctx context.Context, p service.Principal, req service.CreateRequest) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			e := setupBookingRouter(api, 7, model.RoleUser)
			rec := doRequest(t, e, http.MethodPost, "/v1/bookings", `{"booking_type":"ticket","ticket_id":1,"quantity":2}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, tt.wantKey)
		})
	}
}

func TestBookingCreate_InternalErrorHidesDetail(t *testing.T) {
	api := &mockBookingAPI{
		CreateFunc: func(ctx context.Context, p service.Principal, req service.CreateRequest) (*model.Booking, error) {
			return nil, assert.AnError
		},
	}
	e := setupBookingRouter(api, 7, model.RoleUser)
	rec := doRequest(t, e, http.MethodPost, "/v1/bookings", `{"booking_type":"ticket","ticket_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestBookingList_EmptyIsArray(t *testing.T) {
	e := setupBookingRouter(&mockBookingAPI{}, 7, model.RoleUser)
	rec := doRequest(t, e, http.MethodGet, "/v1/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestBookingGet(t *testing.T) {
	api := &mockBookingAPI{
		GetFunc: func(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error) {
			if id != 5 {
				return nil, service.ErrNotFound
			}
			if p.UserID != 1 {
				return nil, service.ErrForbidden
			}
			return &model.Booking{ID: 5, UserID: 1, Status: model.StatusPending}, nil
		},
	}

	t.Run("owner", func(t *testing.T) {
		rec := doRequest(t, setupBookingRouter(api, 1, model.RoleUser), http.MethodGet, "/v1/bookings/5", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("other user", func(t *testing.T) {
		rec := doRequest(t, setupBookingRouter(api, 2, model.RoleUser), http.MethodGet, "/v1/bookings/5", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("missing", func(t *testing.T) {
		rec := doRequest(t, setupBookingRouter(api, 1, model.RoleUser), http.MethodGet, "/v1/bookings/6", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("bad id", func(t *testing.T) {
		rec := doRequest(t, setupBookingRouter(api, 1, model.RoleUser), http.MethodGet, "/v1/bookings/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBookingCancel_AlreadyCancelled(t *testing.T) {
	api := &mockBookingAPI{
		CancelFunc: func(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error) {
			return nil, &service.StateError{Status: string(model.StatusCancelled)}
		},
	}
	rec := doRequest(t, setupBookingRouter(api, 1, model.RoleUser), http.MethodPut, "/v1/bookings/5/cancel", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already cancelled")
}

func TestBookingCancel_PassesAdminRole(t *testing.T) {
	var got service.Principal
	api := &mockBookingAPI{
		CancelFunc: func(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error) {
			got = p
			return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
		},
	}
	rec := doRequest(t, setupBookingRouter(api, 99, model.RoleAdmin), http.MethodPut, "/v1/bookings/5/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.IsAdmin())
}

func TestBooking_Unauthenticated(t *testing.T) {
	e := echo.New()
	h := NewBookingHandler(&mockBookingAPI{})
	e.GET("/v1/bookings", h.List)
	rec := doRequest(t, e, http.MethodGet, "/v1/bookings", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
