package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-front-desk/internal/handler"
	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/utils"
)

const secret = "router-test-secret"

// Guards run before handlers, so zero-valued handlers are enough to test
// authentication and role enforcement.
func newTestServer() *echo.Echo {
	return New(Handlers{
		Auth:         &handler.AuthHandler{},
		Users:        &handler.UserHandler{},
		Reservations: &handler.ReservationHandler{},
		Rooms:        &handler.RoomHandler{},
		Billing:      &handler.BillingHandler{},
	}, Options{JWTSecret: secret, Logger: zerolog.Nop(), Metrics: promhttp.Handler()})
}

func token(t *testing.T, uid uint64, role model.Role) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, uid, string(role), 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestOperationalRoutes(t *testing.T) {
	e := newTestServer()

	rec := serve(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouteGuards(t *testing.T) {
	e := newTestServer()
	customer := token(t, 10, model.RoleCustomer)
	clerk := token(t, 2, model.RoleClerk)

	cases := []struct {
		method, path, auth string
		want               int
	}{
		{http.MethodGet, "/v1/reservations", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/billing", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/me", "", http.StatusUnauthorized},
		{http.MethodPut, "/v1/reservations/1/checkin", customer, http.StatusForbidden},
		{http.MethodPut, "/v1/reservations/1/checkout", customer, http.StatusForbidden},
		{http.MethodPost, "/v1/rooms", customer, http.StatusForbidden},
		{http.MethodPost, "/v1/rooms", clerk, http.StatusForbidden},
		{http.MethodDelete, "/v1/rooms/1", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/billing", customer, http.StatusForbidden},
		{http.MethodPut, "/v1/billing/1/payment", customer, http.StatusForbidden},
		{http.MethodGet, "/v1/users", clerk, http.StatusForbidden},
		{http.MethodDelete, "/v1/users/3", customer, http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := serve(e, tc.method, tc.path, tc.auth)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouteTable(t *testing.T) {
	e := newTestServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /v1/reservations", "POST /v1/reservations", "GET /v1/reservations/:id",
		"PUT /v1/reservations/:id", "PUT /v1/reservations/:id/cancel",
		"PUT /v1/reservations/:id/checkin", "PUT /v1/reservations/:id/checkout",
		"DELETE /v1/reservations/:id",
		"GET /v1/rooms", "GET /v1/rooms/:id", "POST /v1/rooms", "POST /v1/rooms/bulk",
		"PUT /v1/rooms/:id", "DELETE /v1/rooms/:id",
		"GET /v1/billing", "GET /v1/billing/:id", "POST /v1/billing", "PUT /v1/billing/:id/payment",
		"POST /v1/auth/register", "POST /v1/auth/login", "POST /v1/auth/refresh", "POST /v1/auth/logout",
		"GET /v1/me", "GET /v1/users", "POST /v1/users", "GET /v1/users/:id", "PUT /v1/users/:id", "DELETE /v1/users/:id",
	} {
		assert.True(t, have[want], "missing route %s", want)
	}
}
