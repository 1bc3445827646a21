package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/hotel-front-desk/internal/config"
	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
	"github.com/iliyamo/hotel-front-desk/internal/utils"
)

// UserStore is the account persistence used by the auth and user handlers.
// *repository.UserRepo implements it.
type UserStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User, newPassword string, cost int) error
	Delete(ctx context.Context, id uint64) error
}

// TokenStore persists hashed refresh tokens.  *repository.TokenRepo
// implements it.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

const authTimeout = 5 * time.Second

type registerReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	Role        string `json:"role"` // customer | travel_company
	CompanyName string `json:"companyName"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

const (
	minPasswordLen = 6
	maxPasswordLen = 72
)

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// Register creates a customer or travel company account and returns a
// token pair immediately.  Staff accounts are created by an admin.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
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
	role := model.RoleCustomer
	if req.Role != "" {
		r, ok := model.ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
		if !ok || (r != model.RoleCustomer && r != model.RoleTravelCompany) {
			return fail(c, http.StatusBadRequest, "role must be customer or travel_company")
		}
		role = r
	}
	company := strings.TrimSpace(req.CompanyName)
	if role == model.RoleTravelCompany && company == "" {
		return fail(c, http.StatusBadRequest, "companyName is required for travel companies")
	}
	if role != model.RoleTravelCompany {
		company = ""
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Name: req.Name, Email: req.Email, Phone: strings.TrimSpace(req.Phone),
		Password: req.Password, Role: role, CompanyName: company,
	}, h.Cfg.BcryptCost)
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
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return fromError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
		if err := h.Users.Update(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
			log.Warn().Err(err).Uint64("user_id", u.ID).Msg("password rehash failed")
		}
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.  The role claim is reloaded so role changes take effect.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusUnauthorized, "invalid refresh")
	}
	if err != nil {
		return fromError(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid refresh")
		}
		return fromError(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusUnauthorized, "invalid refresh")
	}
	if err != nil {
		return fromError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an access token is supplied.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		err := h.Tokens.RevokeByHash(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid refresh token")
		}
		if err != nil {
			return fromError(c, err)
		}
		return okMessage(c, "Logged out")
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	raw, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		return fail(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
	}
	uid, _, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw))
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return fromError(c, err)
	}
	return okMessage(c, "Logged out of all sessions")
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	u, err := h.Users.GetByID(c.Request().Context(), who.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, u)
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
