package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"invoicely/database"
	"invoicely/models"
	"invoicely/utils"
)

var (
	ErrInvalidCredentials = utils.NewError(utils.ErrUnauthorized, "Invalid email or password")
	ErrAccessBlocked      = utils.NewError(utils.ErrForbidden, "Access to this account has been blocked")
	ErrDeviceLimit        = utils.NewError(utils.ErrForbidden, "Device limit reached, log out from another device first")
	ErrInvalidRefresh     = utils.NewError(utils.ErrUnauthorized, "Invalid or expired refresh token")
	ErrSessionEnded       = utils.NewError(utils.ErrUnauthorized, "Session has ended, please log in again")
)

// dummyHash is compared against when the email is unknown, so both failure
// paths pay the same bcrypt cost as a stored DefaultCost hash.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("invoicely-unknown-account"), bcrypt.DefaultCost)

func (s *DefaultAuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, utils.NewValidationError("email", "Email is required")
	}
	if password == "" {
		return nil, utils.NewValidationError("password", "Password is required")
	}

	user, err := s.repos().Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.denied(ctx, "", ip, "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.denied(ctx, user.ID, ip, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if user.AccessCount == 0 {
		s.denied(ctx, user.ID, ip, "access blocked")
		return nil, ErrAccessBlocked
	}

	var (
		result  *LoginResult
		session *models.Session
	)
	err = database.WithTx(ctx, s.DB, func(ctx context.Context, tx database.DBTX) error {
		repos := s.Repos(tx)

		// The row lock serialises concurrent logins of the same account, so
		// the device count below cannot be raced.
		locked, err := repos.Users.LockByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrInvalidCredentials
		}
		if locked.AccessCount == 0 {
			return ErrAccessBlocked
		}

		now := s.now().UTC()
		expires := now.Add(s.Tokens.RefreshTTL())

		session, err = repos.Sessions.FindActiveByIP(ctx, locked.ID, ip, now)
		if err != nil {
			return err
		}
		if session != nil {
			if err := repos.Sessions.Touch(ctx, session.ID, now, expires); err != nil {
				return err
			}
		} else {
			count, err := repos.Sessions.CountActiveIPs(ctx, locked.ID, now)
			if err != nil {
				return err
			}
			if count >= locked.AccessCount {
				return ErrDeviceLimit
			}
			session = &models.Session{
				ID:         uuid.New().String(),
				UserID:     locked.ID,
				IPAddress:  ip,
				UserAgent:  userAgent,
				CreatedAt:  now,
				LastSeenAt: now,
				ExpiresAt:  expires,
			}
			if err := repos.Sessions.Create(ctx, session); err != nil {
				return err
			}
		}

		pair, err := s.issue(ctx, repos, locked, session.ID)
		if err != nil {
			return err
		}
		result = &LoginResult{User: locked, Tokens: pair}
		return nil
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			s.denied(ctx, user.ID, ip, appErr.Message)
			return nil, err
		}
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s.Cache.Remember(ctx, session.ID, user.ID)
	s.Audit.Record(ctx, models.AuditEvent{
		UserID:     user.ID,
		Action:     models.AuditLogin,
		EntityType: "session",
		EntityID:   session.ID,
		IPAddress:  ip,
	})
	s.Logger.Info("User logged in", zap.String("userID", user.ID), zap.String("sessionID", session.ID))
	return result, nil
}

// issue signs a token pair for the user and stores the refresh record.
func (s *DefaultAuthService) issue(ctx context.Context, repos Repositories, user *models.User, sessionID string) (*utils.TokenPair, error) {
	pair, err := s.Tokens.IssuePair(identityOf(user, sessionID))
	if err != nil {
		return nil, err
	}
	err = repos.RefreshTokens.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(pair.RefreshToken),
		SessionID: sessionID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *DefaultAuthService) denied(ctx context.Context, userID, ip, reason string) {
	s.Logger.Info("Login denied", zap.String("userID", userID), zap.String("ip", ip), zap.String("reason", reason))
	if userID == "" {
		return
	}
	s.Audit.Record(ctx, models.AuditEvent{
		UserID:    userID,
		Action:    models.AuditLoginDenied,
		IPAddress: ip,
		Details:   map[string]string{"reason": reason},
	})
}

func identityOf(u *models.User, sessionID string) utils.Identity {
	return utils.Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		Name:         u.Name,
		Organization: u.Organization,
		SessionID:    sessionID,
	}
}
