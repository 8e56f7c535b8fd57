package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/zoo-booking/internal/model"
)

// AdminUsers is the user management subset of repository.UserRepo.
type AdminUsers interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
}

// AdminCatalog is the write side of repository.CatalogRepo.
type AdminCatalog interface {
	GetTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	CreateTicket(ctx context.Context, t *model.Ticket) error
	UpdateTicket(ctx context.Context, t *model.Ticket) error
	DeleteTicket(ctx context.Context, id uint64) error
	GetRoomType(ctx context.Context, id uint64) (*model.RoomType, error)
	UpdateRoomType(ctx context.Context, rt *model.RoomType) error
}

// AdminBookings is the admin subset of service.BookingService.
type AdminBookings interface {
	ListAll(ctx context.Context) ([]*model.Booking, error)
	SetStatus(ctx context.Context, id uint64, to model.BookingStatus) (*model.Booking, error)
	Delete(ctx context.Context, id uint64) error
}

// AdminHandler serves /v1/admin.  Routes are mounted behind
// RequireRole(ADMIN).  Purge, when set, drops cached catalog
// responses after a catalog edit.
type AdminHandler struct {
	Users    AdminUsers
	Catalog  AdminCatalog
	Bookings AdminBookings
	Purge    func(ctx context.Context) error
}

func NewAdminHandler(users AdminUsers, catalog AdminCatalog, bookings AdminBookings, purge func(ctx context.Context) error) *AdminHandler {
	if users == nil || catalog == nil || bookings == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Catalog: catalog, Bookings: bookings, Purge: purge}
}

func (h *AdminHandler) purgeCatalog(ctx context.Context) {
	if h.Purge == nil {
		return
	}
	if err := h.Purge(ctx); err != nil {
		logrus.WithError(err).Warn("catalog cache purge failed")
	}
}

// ----- users -----

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

type updateUserReq struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser handles PUT /v1/admin/users/:id.  Omitted fields keep
// their value.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return badRequest(c, "name must not be empty")
		}
		u.Name = name
	}
	if req.Role != nil {
		role := strings.ToUpper(strings.TrimSpace(*req.Role))
		if role != model.RoleUser && role != model.RoleAdmin {
			return badRequest(c, "role must be USER or ADMIN")
		}
		u.Role = role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if self, err := getUserID(c); err == nil && self == id && (u.Role != model.RoleAdmin || !u.IsActive) {
		return badRequest(c, "cannot demote or deactivate yourself")
	}
	if err := h.Users.Update(ctx, &u); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser handles DELETE /v1/admin/users/:id.  The user's bookings
// and refresh tokens go with it.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	if self, err := getUserID(c); err == nil && self == id {
		return badRequest(c, "cannot delete your own account")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- bookings -----

// ListBookings handles GET /v1/admin/bookings.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []*model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type setStatusReq struct {
	Status string `json:"status"`
}

// SetBookingStatus handles PUT /v1/admin/bookings/:id.
func (h *AdminHandler) SetBookingStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		return badRequest(c, "status required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.SetStatus(ctx, id, model.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// DeleteBooking handles DELETE /v1/admin/bookings/:id.
func (h *AdminHandler) DeleteBooking(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Bookings.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- catalog -----

type ticketReq struct {
	Type        *string          `json:"type"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
}

// CreateTicket handles POST /v1/admin/tickets.
func (h *AdminHandler) CreateTicket(c echo.Context) error {
	var req ticketReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Type == nil || strings.TrimSpace(*req.Type) == "" || req.Price == nil {
		return badRequest(c, "type and price are required")
	}
	if req.Price.IsNegative() {
		return badRequest(c, "price must not be negative")
	}
	t := &model.Ticket{Type: strings.TrimSpace(*req.Type), Price: req.Price.Round(2), Description: req.Description}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Catalog.CreateTicket(ctx, t); err != nil {
		return writeError(c, err)
	}
	h.purgeCatalog(ctx)
	return c.JSON(http.StatusCreated, t)
}

// UpdateTicket handles PUT /v1/admin/tickets/:id.  Bookings already
// made keep their total price.
func (h *AdminHandler) UpdateTicket(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var req ticketReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Catalog.GetTicket(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if req.Type != nil {
		if strings.TrimSpace(*req.Type) == "" {
			return badRequest(c, "type must not be empty")
		}
		t.Type = strings.TrimSpace(*req.Type)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return badRequest(c, "price must not be negative")
		}
		t.Price = req.Price.Round(2)
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if err := h.Catalog.UpdateTicket(ctx, t); err != nil {
		return writeError(c, err)
	}
	h.purgeCatalog(ctx)
	return c.JSON(http.StatusOK, t)
}

// DeleteTicket handles DELETE /v1/admin/tickets/:id.  A ticket still
// referenced by bookings answers 409.
func (h *AdminHandler) DeleteTicket(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Catalog.DeleteTicket(ctx, id); err != nil {
		return writeError(c, err)
	}
	h.purgeCatalog(ctx)
	return c.NoContent(http.StatusNoContent)
}

type roomTypeReq struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	PricePerNight *decimal.Decimal `json:"price_per_night"`
	TotalRooms    *int             `json:"total_rooms"`
}

// UpdateRoomType handles PUT /v1/admin/room-types/:id.
func (h *AdminHandler) UpdateRoomType(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room type id")
	}
	var req roomTypeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rt, err := h.Catalog.GetRoomType(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return badRequest(c, "name must not be empty")
		}
		rt.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rt.Description = req.Description
	}
	if req.PricePerNight != nil {
		if req.PricePerNight.IsNegative() {
			return badRequest(c, "price_per_night must not be negative")
		}
		rt.PricePerNight = req.PricePerNight.Round(2)
	}
	if req.TotalRooms != nil {
		if *req.TotalRooms < 0 {
			return badRequest(c, "total_rooms must not be negative")
		}
		rt.TotalRooms = *req.TotalRooms
	}
	if err := h.Catalog.UpdateRoomType(ctx, rt); err != nil {
		return writeError(c, err)
	}
	h.purgeCatalog(ctx)
	return c.JSON(http.StatusOK, rt)
}
