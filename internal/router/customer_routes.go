package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/zoo-booking/internal/handler"
	"github.com/iliyamo/zoo-booking/internal/middleware"
	"github.com/iliyamo/zoo-booking/internal/model"
)

// RegisterCustomer registers the booking and checkout endpoints.  All
// routes require a valid JWT; both roles may use them, ownership is
// checked by the service.  writeLimit guards the endpoints that create
// rows or payment sessions.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, p *handler.PaymentHandler, jwtSecret string, writeLimit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("/bookings", b.Create, writeLimit)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.PUT("/bookings/:id/cancel", b.Cancel)

	g.POST("/checkout", p.Checkout, writeLimit)
}

// RegisterWebhook registers the payment provider callback.  It is
// authenticated by its signature, not by JWT.
func RegisterWebhook(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/v1/stripe/webhook", p.Webhook)
}
