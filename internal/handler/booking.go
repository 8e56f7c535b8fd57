package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/service"
)

// BookingAPI is the part of service.BookingService used by customers.
type BookingAPI interface {
	Create(ctx context.Context, p service.Principal, req service.CreateRequest) (*model.Booking, error)
	Get(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error)
	ListMine(ctx context.Context, p service.Principal) ([]*model.Booking, error)
	Cancel(ctx context.Context, p service.Principal, id uint64) (*model.Booking, error)
}

// BookingHandler serves the authenticated booking endpoints.  All
// methods assume JWTAuth has run.
type BookingHandler struct {
	Bookings BookingAPI
}

func NewBookingHandler(bookings BookingAPI) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

type createBookingReq struct {
	BookingType string      `json:"booking_type"`
	TicketID    *uint64     `json:"ticket_id"`
	RoomTypeID  *uint64     `json:"room_type_id"`
	CheckIn     *model.Date `json:"check_in"`
	CheckOut    *model.Date `json:"check_out"`
	Quantity    *int        `json:"quantity"`
}

// Create handles POST /v1/bookings and answers 201 with the pending
// booking and its frozen total_price.
func (h *BookingHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.Create(ctx, p, service.CreateRequest{
		BookingType: model.BookingType(strings.ToLower(strings.TrimSpace(req.BookingType))),
		TicketID:    req.TicketID,
		RoomTypeID:  req.RoomTypeID,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Quantity:    req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /v1/bookings.
func (h *BookingHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Bookings.ListMine(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []*model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.Get(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles PUT /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.Cancel(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
