package auth

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"invoicely/database"
	refreshTokenRepo "invoicely/database/repository/refreshtoken"
	sessionRepo "invoicely/database/repository/session"
	userRepo "invoicely/database/repository/user"
	"invoicely/models"
	"invoicely/services/audit"
	"invoicely/utils"
)

// Repositories groups the stores the auth flow touches. They are built per
// transaction through DefaultAuthService.Repos.
type Repositories struct {
	Users         userRepo.UserRepository
	Sessions      sessionRepo.SessionRepository
	RefreshTokens refreshTokenRepo.RefreshTokenRepository
}

// PostgresRepositories builds the Postgres-backed repositories on db.
func PostgresRepositories(db database.DBTX) Repositories {
	return Repositories{
		Users:         userRepo.NewPostgresUserRepo(db),
		Sessions:      sessionRepo.NewPostgresSessionRepo(db),
		RefreshTokens: refreshTokenRepo.NewPostgresRefreshTokenRepo(db),
	}
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User   *models.User
	Tokens *utils.TokenPair
}

// Renewal is a re-issued access token.
type Renewal struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService covers the login session lifecycle.
type AuthService interface {
	// Login checks credentials, enforces the device cap and opens a session.
	Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error)
	// Refresh rotates a refresh token. The presented token can never be used again.
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	// Logout ends whatever session the tokens point at. It never fails.
	Logout(ctx context.Context, accessToken, refreshToken string)
	// Authenticate verifies an access token and that its session is still open.
	Authenticate(ctx context.Context, accessToken string) (*utils.Claims, error)
	// Renew re-issues the access token once it is older than the renew threshold.
	Renew(claims *utils.Claims) (*Renewal, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	ChangePassword(ctx context.Context, claims *utils.Claims, current, next string) error
	ListSessions(ctx context.Context, userID, currentSessionID string) ([]models.Session, error)
	RevokeOtherSessions(ctx context.Context, userID, currentSessionID string) (int, error)
	PurgeExpired(ctx context.Context) error
}

// DefaultAuthService is the production implementation.
type DefaultAuthService struct {
	DB         *sql.DB
	Repos      func(database.DBTX) Repositories
	Tokens     *utils.TokenService
	Cache      utils.SessionCache
	Audit      audit.AuditService
	Logger     *zap.Logger
	RenewAfter time.Duration
	Now        func() time.Time
}

func (s *DefaultAuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultAuthService) repos() Repositories {
	return s.Repos(s.DB)
}
