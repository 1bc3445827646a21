package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-front-desk/internal/model"
)

// CurrentUser returns the identity JWTAuth stored in the context.  ok is
// false on unauthenticated requests or when the role is unknown.
func CurrentUser(c echo.Context) (uint64, model.Role, bool) {
    uid, _ := c.Get(CtxUserID).(uint64)
    raw, _ := c.Get(CtxRole).(string)
    role, known := model.ParseRole(raw)
    if uid == 0 || !known {
        return 0, "", false
    }
    return uid, role, true
}

// userKey identifies the caller for rate limiting; "anon" when no token
// has been verified yet.
func userKey(c echo.Context) string {
    if uid, ok := c.Get(CtxUserID).(uint64); ok && uid != 0 {
        return strconv.FormatUint(uid, 10)
    }
    return "anon"
}
