package model

import "time"

// Role is the authorization role carried in a user's access token.
type Role string

const (
    RoleAdmin         Role = "admin"
    RoleManager       Role = "manager"
    RoleClerk         Role = "clerk"
    RoleCustomer      Role = "customer"
    RoleTravelCompany Role = "travel_company"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleAdmin, RoleManager, RoleClerk, RoleCustomer, RoleTravelCompany:
        return Role(s), true
    }
    return "", false
}

// IsStaff reports whether the role belongs to hotel staff.  Staff see and
// manage every reservation.
func (r Role) IsStaff() bool {
    return r == RoleAdmin || r == RoleManager || r == RoleClerk
}

// User represents an application user record as stored in the
// `users` table.  PasswordHash is excluded from JSON so handlers can
// return the struct directly.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address.
//  Phone        – optional phone number.
//  Role         – authorization role.
//  CompanyName  – travel company name (travel_company only).
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    `json:"id"`                    // users.id
    Name         string    `json:"name"`                  // users.name
    Email        string    `json:"email"`                 // users.email
    Phone        string    `json:"phone,omitempty"`       // users.phone
    Role         Role      `json:"role"`                  // users.role
    CompanyName  string    `json:"companyName,omitempty"` // users.company_name
    PasswordHash string    `json:"-"`                     // users.password_hash
    CreatedAt    time.Time `json:"createdAt"`             // users.created_at
    UpdatedAt    time.Time `json:"updatedAt"`             // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
