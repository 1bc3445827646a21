package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-front-desk/internal/middleware"
	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
	"github.com/iliyamo/hotel-front-desk/internal/service"
	"github.com/iliyamo/hotel-front-desk/internal/utils"
)

const secret = "handler-test-secret"

func bearer(t *testing.T, uid uint64, role model.Role) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, uid, string(role), 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func call(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// stubEngine records the last call and returns canned results.
type stubEngine struct {
	mu     sync.Mutex
	who    service.Caller
	id     uint64
	opts   service.ListOptions
	create service.CreateInput
	update service.UpdateInput
	res    *model.Reservation
	list   []model.Reservation
	err    error
	lastOp string
}

func (s *stubEngine) record(op string, who service.Caller, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOp, s.who, s.id = op, who, id
}

func (s *stubEngine) List(_ context.Context, c service.Caller, opts service.ListOptions) ([]model.Reservation, error) {
	s.record("list", c, 0)
	s.opts = opts
	return s.list, s.err
}

func (s *stubEngine) Get(_ context.Context, c service.Caller, id uint64) (*model.Reservation, error) {
	s.record("get", c, id)
	return s.res, s.err
}

func (s *stubEngine) Create(_ context.Context, c service.Caller, in service.CreateInput) (*model.Reservation, error) {
	s.record("create", c, 0)
	s.create = in
	return s.res, s.err
}

func (s *stubEngine) Update(_ context.Context, c service.Caller, id uint64, in service.UpdateInput) (*model.Reservation, error) {
	s.record("update", c, id)
	s.update = in
	return s.res, s.err
}

func (s *stubEngine) Cancel(_ context.Context, c service.Caller, id uint64) (*model.Reservation, error) {
	s.record("cancel", c, id)
	return s.res, s.err
}

func (s *stubEngine) CheckIn(_ context.Context, c service.Caller, id uint64) (*model.Reservation, error) {
	s.record("checkin", c, id)
	return s.res, s.err
}

func (s *stubEngine) CheckOut(_ context.Context, c service.Caller, id uint64) (*model.Reservation, error) {
	s.record("checkout", c, id)
	return s.res, s.err
}

func (s *stubEngine) Delete(_ context.Context, c service.Caller, id uint64) error {
	s.record("delete", c, id)
	return s.err
}

type memRoomStore struct {
	mu        sync.Mutex
	rooms     map[uint64]model.Room
	nextID    uint64
	deleteErr error
}

func newMemRoomStore() *memRoomStore { return &memRoomStore{rooms: map[uint64]model.Room{}} }

func (m *memRoomStore) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rm, nil
}

func (m *memRoomStore) List(_ context.Context, f repository.RoomFilter) ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Room{}
	for id := uint64(1); id <= m.nextID; id++ {
		rm, ok := m.rooms[id]
		if !ok || (f.Status != "" && rm.Status != f.Status) || (f.Type != "" && rm.Type != f.Type) {
			continue
		}
		if f.Floor != nil && rm.Floor != *f.Floor {
			continue
		}
		out = append(out, rm)
	}
	return out, nil
}

func (m *memRoomStore) taken(number string, except uint64) bool {
	for _, rm := range m.rooms {
		if rm.Number == number && rm.ID != except {
			return true
		}
	}
	return false
}

func (m *memRoomStore) Create(_ context.Context, rm *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(rm.Number, 0) {
		return repository.ErrDuplicate
	}
	m.nextID++
	rm.ID = m.nextID
	m.rooms[rm.ID] = *rm
	return nil
}

func (m *memRoomStore) CreateBulk(ctx context.Context, rooms []model.Room) error {
	m.mu.Lock()
	for _, rm := range rooms {
		if m.taken(rm.Number, 0) {
			m.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	m.mu.Unlock()
	for i := range rooms {
		if err := m.Create(ctx, &rooms[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memRoomStore) Update(_ context.Context, rm *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(rm.Number, rm.ID) {
		return repository.ErrDuplicate
	}
	m.rooms[rm.ID] = *rm
	return nil
}

func (m *memRoomStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rooms, id)
	return nil
}

type memBillingStore struct {
	mu    sync.Mutex
	bills []model.Billing
}

func (m *memBillingStore) Create(_ context.Context, b *model.Billing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.bills {
		if x.ReservationID == b.ReservationID {
			return repository.ErrDuplicate
		}
	}
	b.ID = uint64(len(m.bills) + 1)
	m.bills = append(m.bills, *b)
	return nil
}

func (m *memBillingStore) GetByID(_ context.Context, id uint64) (*model.Billing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bills {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memBillingStore) List(_ context.Context, customerID *uint64) ([]model.Billing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Billing{}
	for _, b := range m.bills {
		if customerID == nil || b.CustomerID == *customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBillingStore) UpdatePayment(_ context.Context, b *model.Billing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bills {
		if m.bills[i].ID == b.ID {
			m.bills[i] = *b
			return nil
		}
	}
	return repository.ErrNotFound
}

type reservationsByID map[uint64]model.Reservation

func (r reservationsByID) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	res, ok := r[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &res, nil
}

type memUsers struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	nextID uint64
}

func newMemUsers() *memUsers { return &memUsers{users: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, nu repository.NewUser, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	m.nextID++
	m.users[m.nextID] = model.User{
		ID: m.nextID, Name: nu.Name, Email: nu.Email, Phone: nu.Phone,
		Role: nu.Role, CompanyName: nu.CompanyName, PasswordHash: hash,
	}
	return m.nextID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for id := m.nextID; id > 0; id-- {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *model.User, newPassword string, cost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email && x.ID != u.ID {
			return repository.ErrEmailExists
		}
	}
	if newPassword != "" {
		hash, err := utils.HashPassword(newPassword, cost)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*memToken
}

func newMemTokens() *memTokens { return &memTokens{tokens: map[string]*memToken{}} }

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[hash] = &memToken{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[hash]
	if !ok || tok.revoked || time.Now().After(tok.exp) {
		return 0, repository.ErrNotFound
	}
	return tok.userID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[hash]
	if !ok || tok.revoked || time.Now().After(tok.exp) {
		return repository.ErrNotFound
	}
	tok.revoked = true
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.tokens {
		if tok.userID == userID {
			tok.revoked = true
		}
	}
	return nil
}

func (m *memTokens) live(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tok := range m.tokens {
		if tok.userID == userID && !tok.revoked {
			n++
		}
	}
	return n
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

var errBoom = errors.New("boom")

// authed wraps routes with the real JWT middleware.
func authed(e *echo.Echo) *echo.Group {
	return e.Group("", middleware.JWTAuth(secret))
}
