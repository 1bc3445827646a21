package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog/log"

    "github.com/iliyamo/hotel-front-desk/internal/repository"
    "github.com/iliyamo/hotel-front-desk/internal/service"
)

// Every response uses the envelope {success, data?, count?, message?, error?}.

func success(c echo.Context, status int, data any) error {
    return c.JSON(status, echo.Map{"success": true, "data": data})
}

func okList[T any](c echo.Context, items []T) error {
    return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}

func okMessage(c echo.Context, msg string) error {
    return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}

func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// fromError maps service and repository errors onto HTTP statuses.
// Anything unrecognised is logged and reported as a bare 500.
func fromError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
        return fail(c, http.StatusNotFound, messageOr(err, "Not found"))
    case errors.Is(err, service.ErrForbidden):
        return fail(c, http.StatusForbidden, err.Error())
    case errors.Is(err, service.ErrConflict),
        errors.Is(err, service.ErrInvalidTransition),
        errors.Is(err, service.ErrValidation):
        return fail(c, http.StatusBadRequest, err.Error())
    }
    log.Error().Err(err).
        Str("method", c.Request().Method).
        Str("route", c.Path()).
        Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
        Msg("request failed")
    return fail(c, http.StatusInternalServerError, "Server error")
}

// messageOr keeps service messages and hides bare repository sentinels.
func messageOr(err error, def string) string {
    if errors.Is(err, repository.ErrNotFound) && !errors.Is(err, service.ErrNotFound) {
        return def
    }
    return err.Error()
}
