package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-front-desk/internal/model"
)

// RequireRole aborts with 403 unless the authenticated user has one of the
// given roles.  It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            _, role, ok := CurrentUser(c)
            if !ok || !allowed[role] {
                return deny(c, http.StatusForbidden, "forbidden")
            }
            return next(c)
        }
    }
}

// StaffRoles are the front-desk roles.
var StaffRoles = []model.Role{model.RoleAdmin, model.RoleManager, model.RoleClerk}
