package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
)

// UserHandler serves /v1/users.  Admins manage every account; any user
// may read and edit their own profile but not their role.
type UserHandler struct {
	Users      UserStore
	Tokens     TokenStore
	BcryptCost int
}

func NewUserHandler(users UserStore, tokens TokenStore, bcryptCost int) *UserHandler {
	return &UserHandler{Users: users, Tokens: tokens, BcryptCost: bcryptCost}
}

type createUserReq struct {
	registerReq
}

type updateUserReq struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Password    *string `json:"password"`
	Role        *string `json:"role"`
	CompanyName *string `json:"companyName"`
}

// List handles GET /v1/users (admin).
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return fromError(c, err)
	}
	return okList(c, users)
}

// Get handles GET /v1/users/:id (admin or self).
func (h *UserHandler) Get(c echo.Context) error {
	id, allowed, handled, err := h.target(c)
	if handled {
		return err
	}
	if !allowed {
		return fail(c, http.StatusForbidden, "Not authorized to access this user")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, u)
}

// Create handles POST /v1/users (admin).  Any role may be assigned.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !validEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "name and a valid email are required")
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		return fail(c, http.StatusBadRequest, "password must be 6 to 72 characters")
	}
	role, ok := model.ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid role")
	}
	company := strings.TrimSpace(req.CompanyName)
	if role == model.RoleTravelCompany && company == "" {
		return fail(c, http.StatusBadRequest, "companyName is required for travel companies")
	}

	ctx := c.Request().Context()
	uid, err := h.Users.Create(ctx, repository.NewUser{
		Name: req.Name, Email: req.Email, Phone: strings.TrimSpace(req.Phone),
		Password: req.Password, Role: role, CompanyName: company,
	}, h.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return fail(c, http.StatusBadRequest, "User already exists")
	}
	if err != nil {
		return fromError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusCreated, u)
}

// Update handles PUT /v1/users/:id.  Non-admins may change only their own
// name, email, phone and password.  A role change revokes the user's
// refresh tokens.
func (h *UserHandler) Update(c echo.Context) error {
	id, allowed, handled, err := h.target(c)
	if handled {
		return err
	}
	if !allowed {
		return fail(c, http.StatusForbidden, "Not authorized to update this user")
	}
	who, _ := caller(c)
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	isAdmin := who.Role == model.RoleAdmin
	if !isAdmin && (req.Role != nil || req.CompanyName != nil) {
		return fail(c, http.StatusForbidden, "Only admins can change role or company")
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return fromError(c, err)
	}
	prevRole := u.Role

	if req.Name != nil {
		if u.Name = strings.TrimSpace(*req.Name); u.Name == "" {
			return fail(c, http.StatusBadRequest, "name cannot be empty")
		}
	}
	if req.Email != nil {
		if u.Email = strings.ToLower(strings.TrimSpace(*req.Email)); !validEmail(u.Email) {
			return fail(c, http.StatusBadRequest, "Invalid email")
		}
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Role != nil {
		r, ok := model.ParseRole(strings.ToLower(strings.TrimSpace(*req.Role)))
		if !ok {
			return fail(c, http.StatusBadRequest, "Invalid role")
		}
		u.Role = r
	}
	if req.CompanyName != nil {
		u.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if u.Role == model.RoleTravelCompany && u.CompanyName == "" {
		return fail(c, http.StatusBadRequest, "companyName is required for travel companies")
	}
	var password string
	if req.Password != nil {
		if len(*req.Password) < minPasswordLen || len(*req.Password) > maxPasswordLen {
			return fail(c, http.StatusBadRequest, "password must be 6 to 72 characters")
		}
		password = *req.Password
	}

	err = h.Users.Update(ctx, &u, password, h.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return fail(c, http.StatusBadRequest, "Email already in use")
	}
	if err != nil {
		return fromError(c, err)
	}
	if u.Role != prevRole {
		if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			return fromError(c, err)
		}
	}
	return success(c, http.StatusOK, u)
}

// Delete handles DELETE /v1/users/:id (admin).  Admins cannot delete
// themselves.
func (h *UserHandler) Delete(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := pathID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	if id == who.ID {
		return fail(c, http.StatusBadRequest, "You cannot delete your own account")
	}
	err = h.Users.Delete(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return fromError(c, err)
	}
	return okMessage(c, "User deleted")
}

// target resolves the :id path parameter and whether the caller may act
// on it.  handled means a response has already been written.
func (h *UserHandler) target(c echo.Context) (id uint64, allowed, handled bool, err error) {
	who, cerr := caller(c)
	if cerr != nil {
		return 0, false, true, fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := pathID(c, "id")
	if !valid {
		return 0, false, true, fail(c, http.StatusBadRequest, "invalid user id")
	}
	return id, who.Role == model.RoleAdmin || who.ID == id, false, nil
}
