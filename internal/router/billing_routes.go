package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-front-desk/internal/handler"
	"github.com/iliyamo/hotel-front-desk/internal/middleware"
)

// RegisterBilling registers invoices under /v1/billing.  Reads are open to
// any authenticated caller and scoped by the handler; writes are staff only.
func RegisterBilling(e *echo.Echo, h *handler.BillingHandler, jwtSecret string) {
	g := e.Group("/v1/billing", middleware.JWTAuth(jwtSecret))
	staff := middleware.RequireRole(middleware.StaffRoles...)

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, staff)
	g.PUT("/:id/payment", h.RecordPayment, staff)
}
