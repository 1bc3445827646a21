package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-front-desk/internal/handler"
	"github.com/iliyamo/hotel-front-desk/internal/middleware"
	"github.com/iliyamo/hotel-front-desk/internal/model"
)

// RegisterRooms registers public room browsing, wrapped in the response
// cache when one is given, and admin/manager room administration.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, cache echo.MiddlewareFunc, jwtSecret string) {
	var browse []echo.MiddlewareFunc
	if cache != nil {
		browse = append(browse, cache)
	}
	e.GET("/v1/rooms", h.List, browse...)
	e.GET("/v1/rooms/:id", h.Get, browse...)

	g := e.Group("/v1/rooms",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager),
	)
	g.POST("", h.Create)
	g.POST("/bulk", h.CreateBulk)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
