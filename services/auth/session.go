package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"invoicely/database"
	"invoicely/models"
	"invoicely/utils"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 128
)

func (s *DefaultAuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	var (
		result *LoginResult
		denied error
	)
	err = database.WithTx(ctx, s.DB, func(ctx context.Context, tx database.DBTX) error {
		repos := s.Repos(tx)
		now := s.now().UTC()

		// Consuming deletes the record, so a second use of the same token
		// finds nothing. Rejections below still commit that delete.
		record, err := repos.RefreshTokens.Consume(ctx, claims.Subject, utils.HashToken(refreshToken))
		if err != nil {
			return err
		}
		if record == nil || !now.Before(record.ExpiresAt) || record.SessionID != claims.SessionID {
			denied = ErrInvalidRefresh
			return nil
		}

		session, err := repos.Sessions.Get(ctx, record.SessionID)
		if err != nil {
			return err
		}
		if session == nil || session.UserID != claims.Subject || !now.Before(session.ExpiresAt) {
			denied = ErrSessionEnded
			return nil
		}

		// Reload so role and profile changes reach the new tokens.
		user, err := repos.Users.GetByID(ctx, claims.Subject)
		if err != nil {
			return err
		}
		if user == nil {
			denied = ErrInvalidRefresh
			return nil
		}
		if user.AccessCount == 0 {
			denied = ErrAccessBlocked
			return nil
		}

		pair, err := s.issue(ctx, repos, user, session.ID)
		if err != nil {
			return err
		}
		if err := repos.Sessions.Touch(ctx, session.ID, now, now.Add(s.Tokens.RefreshTTL())); err != nil {
			return err
		}
		result = &LoginResult{User: user, Tokens: pair}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if denied != nil {
		s.Logger.Info("Refresh rejected", zap.String("userID", claims.Subject), zap.Error(denied))
		return nil, denied
	}

	s.Cache.Remember(ctx, claims.SessionID, claims.Subject)
	s.Audit.Record(ctx, models.AuditEvent{
		UserID:     claims.Subject,
		Action:     models.AuditTokenRefreshed,
		EntityType: "session",
		EntityID:   claims.SessionID,
	})
	return result, nil
}

func (s *DefaultAuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	repos := s.repos()

	var userID, sessionID string
	if claims, err := s.Tokens.VerifyRefreshToken(refreshToken); err == nil {
		userID, sessionID = claims.Subject, claims.SessionID
		if _, err := repos.RefreshTokens.Consume(ctx, claims.Subject, utils.HashToken(refreshToken)); err != nil {
			s.Logger.Warn("Failed to delete refresh token on logout", zap.Error(err))
		}
	} else if claims, err := s.Tokens.VerifyAccessToken(accessToken); err == nil {
		userID, sessionID = claims.Subject, claims.SessionID
	}
	if sessionID == "" {
		return
	}

	if err := repos.RefreshTokens.DeleteBySession(ctx, sessionID); err != nil {
		s.Logger.Warn("Failed to delete session refresh tokens", zap.String("sessionID", sessionID), zap.Error(err))
	}
	if err := repos.Sessions.Delete(ctx, sessionID); err != nil {
		s.Logger.Warn("Failed to delete session", zap.String("sessionID", sessionID), zap.Error(err))
	}
	s.Cache.Forget(ctx, sessionID)
	s.Audit.Record(ctx, models.AuditEvent{
		UserID:     userID,
		Action:     models.AuditLogout,
		EntityType: "session",
		EntityID:   sessionID,
	})
}

func (s *DefaultAuthService) Authenticate(ctx context.Context, accessToken string) (*utils.Claims, error) {
	claims, err := s.Tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, utils.NewError(utils.ErrUnauthorized, "Invalid or expired token")
	}

	if alive, known := s.Cache.Alive(ctx, claims.SessionID); known && alive {
		return claims, nil
	}

	session, err := s.repos().Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.UserID != claims.Subject || !s.now().Before(session.ExpiresAt) {
		return nil, ErrSessionEnded
	}
	s.Cache.Remember(ctx, session.ID, session.UserID)
	return claims, nil
}

func (s *DefaultAuthService) Renew(claims *utils.Claims) (*Renewal, error) {
	lastActivity := time.Unix(claims.LastActivity, 0)
	if s.now().Sub(lastActivity) < s.RenewAfter {
		return nil, nil
	}
	token, exp, err := s.Tokens.IssueAccessToken(claims.Identity())
	if err != nil {
		return nil, err
	}
	return &Renewal{Token: token, ExpiresAt: exp}, nil
}

func (s *DefaultAuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, utils.NewError(utils.ErrNotFound, "User not found")
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash and
// signs out every other session of the user.
func (s *DefaultAuthService) ChangePassword(ctx context.Context, claims *utils.Claims, current, next string) error {
	if current == "" {
		return utils.NewValidationError("current_password", "Current password is required")
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}

	repos := s.repos()
	user, err := repos.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return utils.NewError(utils.ErrNotFound, "User not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return utils.NewValidationError("current_password", "Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := repos.Users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	revoked, err := repos.Sessions.DeleteOthers(ctx, user.ID, claims.SessionID)
	if err != nil {
		s.Logger.Warn("Failed to revoke sessions after password change", zap.String("userID", user.ID), zap.Error(err))
	}
	s.Cache.Forget(ctx, revoked...)
	s.Audit.Record(ctx, models.AuditEvent{UserID: user.ID, Action: models.AuditPasswordChange})
	return nil
}

func (s *DefaultAuthService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]models.Session, error) {
	sessions, err := s.repos().Sessions.ListActive(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for i := range sessions {
		sessions[i].Current = sessions[i].ID == currentSessionID
	}
	return sessions, nil
}

func (s *DefaultAuthService) RevokeOtherSessions(ctx context.Context, userID, currentSessionID string) (int, error) {
	revoked, err := s.repos().Sessions.DeleteOthers(ctx, userID, currentSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.Cache.Forget(ctx, revoked...)
	s.Audit.Record(ctx, models.AuditEvent{
		UserID:  userID,
		Action:  models.AuditSessionsRevoke,
		Details: map[string]string{"count": fmt.Sprint(len(revoked))},
	})
	return len(revoked), nil
}

// PurgeExpired deletes expired refresh records and sessions.
func (s *DefaultAuthService) PurgeExpired(ctx context.Context) error {
	repos := s.repos()
	now := s.now().UTC()

	tokens, err := repos.RefreshTokens.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	sessions, err := repos.Sessions.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}
	s.Logger.Info("Purged expired auth records", zap.Int64("refreshTokens", tokens), zap.Int64("sessions", sessions))
	return nil
}

func validatePassword(field, password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return utils.NewValidationError(field,
			fmt.Sprintf("Password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}
	return nil
}

// ValidatePassword applies the password length policy.
func ValidatePassword(password string) error {
	return validatePassword("password", password)
}
