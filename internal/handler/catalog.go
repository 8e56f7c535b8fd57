package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/zoo-booking/internal/model"
)

// CatalogReader is the read side of repository.CatalogRepo.
type CatalogReader interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	GetTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	ListHotels(ctx context.Context) ([]model.Hotel, error)
	GetHotel(ctx context.Context, id uint64) (*model.Hotel, error)
	ListRoomTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error)
}

// AvailabilityChecker computes free rooms for a date range.
type AvailabilityChecker interface {
	Availability(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut model.Date) (int, error)
}

// CatalogHandler serves the public ticket and hotel endpoints.
type CatalogHandler struct {
	Catalog CatalogReader
	Rooms   AvailabilityChecker
}

func NewCatalogHandler(catalog CatalogReader, rooms AvailabilityChecker) *CatalogHandler {
	if catalog == nil || rooms == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: catalog, Rooms: rooms}
}

// ListTickets handles GET /v1/tickets.
func (h *CatalogHandler) ListTickets(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	tickets, err := h.Catalog.ListTickets(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}

// GetTicket handles GET /v1/tickets/:id.
func (h *CatalogHandler) GetTicket(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Catalog.GetTicket(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListHotels handles GET /v1/hotels.  Each hotel carries its room types.
func (h *CatalogHandler) ListHotels(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	hotels, err := h.Catalog.ListHotels(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": hotels})
}

// GetHotel handles GET /v1/hotels/:id.
func (h *CatalogHandler) GetHotel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	hotel, err := h.Catalog.GetHotel(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, hotel)
}

// ListRoomTypes handles GET /v1/hotels/:id/rooms.
func (h *CatalogHandler) ListRoomTypes(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := h.Catalog.GetHotel(ctx, id); err != nil {
		return writeError(c, err)
	}
	rooms, err := h.Catalog.ListRoomTypes(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}

// Availability handles
// GET /v1/hotels/:id/rooms/:roomId/availability?check_in=&check_out=.
func (h *CatalogHandler) Availability(c echo.Context) error {
	hotelID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	roomTypeID, ok := parseID(c, "roomId")
	if !ok {
		return badRequest(c, "invalid room type id")
	}
	rawIn, rawOut := strings.TrimSpace(c.QueryParam("check_in")), strings.TrimSpace(c.QueryParam("check_out"))
	if rawIn == "" || rawOut == "" {
		return badRequest(c, "check_in and check_out are required")
	}
	checkIn, err := model.ParseDate(rawIn)
	if err != nil {
		return badRequest(c, "check_in must be YYYY-MM-DD")
	}
	checkOut, err := model.ParseDate(rawOut)
	if err != nil {
		return badRequest(c, "check_out must be YYYY-MM-DD")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	free, err := h.Rooms.Availability(ctx, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_type_id":    roomTypeID,
		"check_in":        checkIn,
		"check_out":       checkOut,
		"available_rooms": free,
	})
}
