package user

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"invoicely/models"
)

const adminAccessCount = 3

func (s *DefaultUserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if existing != nil {
		if existing.Role != models.RoleAdmin {
			s.Logger.Warn("Bootstrap admin email belongs to a non-admin account", zap.String("email", email))
		}
		return nil
	}

	count := adminAccessCount
	u, err := s.Create(ctx, "", models.CreateUserRequest{
		Email:       email,
		Password:    password,
		Name:        "Administrator",
		Role:        models.RoleAdmin,
		AccessCount: &count,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	s.Logger.Info("Bootstrap admin created", zap.String("userID", u.ID))
	return nil
}
