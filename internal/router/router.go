package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-front-desk/internal/handler"
	"github.com/iliyamo/hotel-front-desk/internal/middleware"
	"github.com/iliyamo/hotel-front-desk/internal/model"
)

// Handlers groups the HTTP handlers the API is assembled from.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Reservations *handler.ReservationHandler
	Rooms        *handler.RoomHandler
	Billing      *handler.BillingHandler
	Health       echo.HandlerFunc
}

// Options carries the cross-cutting pieces.  Nil middleware is skipped and
// a nil Metrics handler leaves /metrics unregistered.
type Options struct {
	JWTSecret string
	Logger    zerolog.Logger
	RateLimit echo.MiddlewareFunc
	RoomCache echo.MiddlewareFunc
	Metrics   http.Handler
}

// New builds the Echo instance with global middleware and every route.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(o.Logger))
	e.Use(echomw.Recover())
	if o.RateLimit != nil {
		e.Use(o.RateLimit)
	}

	RegisterRoutes(e, h.Health, o.Metrics)
	RegisterAuth(e, h.Auth, h.Users, o.JWTSecret)
	RegisterReservations(e, h.Reservations, o.JWTSecret)
	RegisterRooms(e, h.Rooms, o.RoomCache, o.JWTSecret)
	RegisterBilling(e, h.Billing, o.JWTSecret)
	return e
}

// RegisterRoutes registers the operational endpoints: liveness and, when
// enabled, Prometheus metrics.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc, metrics http.Handler) {
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the public /v1/auth endpoints, the caller's own
// profile and admin user management.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout authenticates itself from the body or the bearer header.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)

	admin := middleware.RequireRole(model.RoleAdmin)
	auth.GET("/users", u.List, admin)
	auth.POST("/users", u.Create, admin)
	auth.GET("/users/:id", u.Get)
	auth.PUT("/users/:id", u.Update)
	auth.DELETE("/users/:id", u.Delete, admin)
}
