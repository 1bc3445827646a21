package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-front-desk/internal/handler"
	"github.com/iliyamo/hotel-front-desk/internal/middleware"
)

// RegisterReservations registers the reservation lifecycle under /v1.
// Every route needs a valid JWT; which caller may do what to a given
// reservation is decided by the engine, except check-in and check-out
// which are front-desk only.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations", middleware.JWTAuth(jwtSecret))
	staff := middleware.RequireRole(middleware.StaffRoles...)

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/cancel", h.Cancel)
	g.PUT("/:id/checkin", h.CheckIn, staff)
	g.PUT("/:id/checkout", h.CheckOut, staff)
	g.DELETE("/:id", h.Delete)
}
