package user

import (
	"context"

	"go.uber.org/zap"

	sessionRepo "invoicely/database/repository/session"
	userRepo "invoicely/database/repository/user"
	"invoicely/models"
	"invoicely/services/audit"
	"invoicely/utils"
)

// UserService is the admin-facing account management.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, actorID string, req models.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actorID, id string, req models.UpdateUserRequest) (*models.User, error)
	// Delete removes an account. Admins cannot delete themselves.
	Delete(ctx context.Context, actorID, id string) error
	// EnsureAdmin creates the bootstrap admin account when it does not exist.
	EnsureAdmin(ctx context.Context, email, password string) error
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo     userRepo.UserRepository
	Sessions sessionRepo.SessionRepository
	Cache    utils.SessionCache
	Audit    audit.AuditService
	Logger   *zap.Logger
}
