package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,phone,role,company_name,password_hash,created_at,updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.CompanyName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	return u, err
}

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Name        string
	Email       string
	Phone       string
	Password    string
	Role        model.Role
	CompanyName string
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, role, company_name, password_hash) VALUES (?,?,?,?,?,?)",
		strings.TrimSpace(nu.Name), email, nu.Phone, string(nu.Role), nu.CompanyName, hash)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes profile fields and, when newPassword is non-empty, a
// fresh password hash.
func (r *UserRepo) Update(ctx context.Context, u *model.User, newPassword string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	q := "UPDATE users SET name=?, email=?, phone=?, role=?, company_name=?"
	args := []any{u.Name, u.Email, u.Phone, string(u.Role), u.CompanyName}
	if newPassword != "" {
		hash, err := utils.HashPassword(newPassword, cost)
		if err != nil {
			return err
		}
		q += ", password_hash=?"
		args = append(args, hash)
	}
	q += " WHERE id=?"
	args = append(args, u.ID)
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if err := affectedOne(res, ErrNotFound); err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = fresh
	return nil
}

// Delete removes a user; their refresh tokens cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return affectedOne(res, ErrNotFound)
}
