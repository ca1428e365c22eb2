package userRepo

import (
	"context"
	"errors"

	"invoicely/models"
)

// ErrEmailTaken is returned when an account with the email already exists.
var ErrEmailTaken = errors.New("email already registered")

// UserRepository defines persistence operations for accounts. Get methods
// return (nil, nil) when no row matches.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LockByID loads the user with a row lock. Only meaningful inside a transaction.
	LockByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) (bool, error)
}
