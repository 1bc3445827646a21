package handler

import (
    "errors"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-front-desk/internal/middleware"
    "github.com/iliyamo/hotel-front-desk/internal/service"
)

var errNoCaller = errors.New("unauthorized")

// caller returns the authenticated identity of the request.
func caller(c echo.Context) (service.Caller, error) {
    uid, role, ok := middleware.CurrentUser(c)
    if !ok {
        return service.Caller{}, errNoCaller
    }
    return service.Caller{ID: uid, Role: role}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// parseDate accepts a calendar date (2024-03-01, midnight UTC) or a full
// RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if t, err := time.Parse("2006-01-02", s); err == nil {
        return t, nil
    }
    return time.Parse(time.RFC3339, s)
}
