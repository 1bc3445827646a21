package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/hotel-front-desk/internal/observability"
)

// RequestLogger logs one line per request and records HTTP metrics.  The
// route label is the matched path template, so ids do not explode metric
// cardinality.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            dur := time.Since(start)
            observability.ObserveHTTP(route, req.Method, res.Status, dur)

            ev := logger.Info()
            switch {
            case res.Status >= 500:
                ev = logger.Error().Err(err)
            case res.Status >= 400:
                ev = logger.Warn()
            }
            uid, _ := c.Get(CtxUserID).(uint64)
            ev.Str("method", req.Method).
                Str("route", route).
                Str("uri", req.RequestURI).
                Int("status", res.Status).
                Dur("duration", dur).
                Str("remote", c.RealIP()).
                Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
                Uint64("user_id", uid).
                Msg("http request")
            return nil
        }
    }
}
