package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/zoo-booking/internal/handler"
	"github.com/iliyamo/zoo-booking/internal/middleware"
	"github.com/iliyamo/zoo-booking/internal/model"
)

// RegisterAdmin registers the /v1/admin endpoints.  Every route needs a
// valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

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
}
