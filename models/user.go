package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an account that owns contacts, invoices, stock and settings.
// AccessCount caps the number of distinct IPs with a live session; zero
// blocks the account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	Role         Role      `json:"role"`
	AccessCount  int       `json:"access_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateUserRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Role         Role   `json:"role"`
	AccessCount  *int   `json:"access_count"`
}

// UpdateUserRequest carries the admin-editable fields; nil means unchanged.
type UpdateUserRequest struct {
	Name         *string `json:"name"`
	Organization *string `json:"organization"`
	Role         *Role   `json:"role"`
	AccessCount  *int    `json:"access_count"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}
