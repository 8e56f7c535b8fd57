// Package router registers the HTTP routes of the API and the middleware
// chain in front of them.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/zoo-booking/internal/config"
	"github.com/iliyamo/zoo-booking/internal/handler"
	"github.com/iliyamo/zoo-booking/internal/middleware"
)

// Handlers groups every handler mounted by Register.
type Handlers struct {
	Auth     *handler.AuthHandler
	Catalog  *handler.CatalogHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Admin    *handler.AdminHandler
	DB       handler.Pinger
}

// Options carries what the middleware needs.  Redis may be nil, which
// turns rate limiting and caching off.
type Options struct {
	JWTSecret      string
	Redis          *redis.Client
	Cache          config.CacheConfig
	RateLimit      config.RateLimitConfig
	WriteRateLimit config.RateLimitConfig
}

// New builds an echo instance with the global middleware and every
// route registered.
func New(h Handlers, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(opt.RateLimit, opt.Redis))

	Register(e, h, opt)
	return e
}

// Register mounts all routes on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterRoutes(e, h.DB)
	RegisterAuth(e, h.Auth, opt.JWTSecret)
	RegisterPublic(e, h.Catalog, middleware.NewRedisCache(opt.Cache, opt.Redis))
	RegisterCustomer(e, h.Bookings, h.Payments, opt.JWTSecret, middleware.NewTokenBucket(opt.WriteRateLimit, opt.Redis))
	RegisterWebhook(e, h.Payments)
	RegisterAdmin(e, h.Admin, opt.JWTSecret)
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// profile endpoints /v1/me and /v1/profile.  Logout does not require JWTAuth; it
// parses the bearer itself when one is sent.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := middleware.JWTAuth(jwtSecret)
	e.GET("/v1/me", a.Me, auth)
	e.GET("/v1/profile", a.Me, auth)
	e.PUT("/v1/profile", a.UpdateProfile, auth)
	e.PUT("/v1/profile/password", a.ChangePassword, auth)
}

// RegisterPublic registers the catalog browse endpoints.  cache wraps
// the catalog listings only; availability is always computed live.
func RegisterPublic(e *echo.Echo, c *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/tickets", c.ListTickets, cache)
	e.GET("/v1/tickets/:id", c.GetTicket, cache)
	e.GET("/v1/hotels", c.ListHotels, cache)
	e.GET("/v1/hotels/:id", c.GetHotel, cache)
	e.GET("/v1/hotels/:id/rooms", c.ListRoomTypes, cache)
	e.GET("/v1/hotels/:id/rooms/:roomId/availability", c.Availability)
}
