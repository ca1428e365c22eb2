package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userRepo "invoicely/database/repository/user"
	"invoicely/models"
	"invoicely/services/auth"
	"invoicely/utils"
)

const defaultAccessCount = 1

var errUserNotFound = utils.NewError(utils.ErrNotFound, "User not found")

func (s *DefaultUserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

func (s *DefaultUserService) Create(ctx context.Context, actorID string, req models.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, utils.NewValidationError("email", "A valid email is required")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, utils.NewValidationError("role", "Role must be admin or user")
	}
	accessCount := defaultAccessCount
	if req.AccessCount != nil {
		accessCount = *req.AccessCount
	}
	if accessCount < 0 {
		return nil, utils.NewValidationError("access_count", "Access count cannot be negative")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
		Role:         role,
		AccessCount:  accessCount,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, userRepo.ErrEmailTaken) {
			return nil, utils.NewError(utils.ErrConflict, "A user with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.Audit.Record(ctx, models.AuditEvent{
		UserID: actorID, Action: models.AuditUserCreate, EntityType: "user", EntityID: u.ID,
	})
	return u, nil
}

func (s *DefaultUserService) Update(ctx context.Context, actorID, id string, req models.UpdateUserRequest) (*models.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, errUserNotFound
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Organization != nil {
		u.Organization = strings.TrimSpace(*req.Organization)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, utils.NewValidationError("role", "Role must be admin or user")
		}
		if id == actorID && *req.Role != models.RoleAdmin {
			return nil, utils.NewError(utils.ErrBusinessRule, "You cannot remove your own admin role")
		}
		u.Role = *req.Role
	}
	blocked := false
	if req.AccessCount != nil {
		if *req.AccessCount < 0 {
			return nil, utils.NewValidationError("access_count", "Access count cannot be negative")
		}
		blocked = *req.AccessCount == 0 && u.AccessCount != 0
		u.AccessCount = *req.AccessCount
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, userRepo.ErrNoRowsAffected) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if blocked {
		s.signOutEverywhere(ctx, u.ID)
	}
	s.Audit.Record(ctx, models.AuditEvent{
		UserID: actorID, Action: models.AuditUserUpdate, EntityType: "user", EntityID: u.ID,
	})
	return u, nil
}

func (s *DefaultUserService) Delete(ctx context.Context, actorID, id string) error {
	if id == actorID {
		return utils.NewError(utils.ErrBusinessRule, "You cannot delete your own account")
	}
	s.signOutEverywhere(ctx, id)

	deleted, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !deleted {
		return errUserNotFound
	}
	s.Audit.Record(ctx, models.AuditEvent{
		UserID: actorID, Action: models.AuditUserDelete, EntityType: "user", EntityID: id,
	})
	return nil
}

// signOutEverywhere drops every session of the user, including cached ones.
func (s *DefaultUserService) signOutEverywhere(ctx context.Context, userID string) {
	ids, err := s.Sessions.DeleteForUser(ctx, userID)
	if err != nil {
		s.Logger.Warn("Failed to revoke user sessions", zap.String("userID", userID), zap.Error(err))
		return
	}
	s.Cache.Forget(ctx, ids...)
}
