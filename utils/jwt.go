package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every verification failure. Callers must
// not distinguish between expired, forged or malformed tokens.
var ErrInvalidToken = errors.New("invalid token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Identity is the subject data embedded in both token classes.
type Identity struct {
	UserID       string
	Email        string
	Role         string
	Name         string
	Organization string
	SessionID    string
}

// Claims is the JWT payload. LastActivity is only set on access tokens.
type Claims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	SessionID    string `json:"sid"`
	Type         string `json:"typ"`
	LastActivity int64  `json:"lastActivity,omitempty"`
	jwt.StandardClaims
}

// Identity returns the subject data carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.Subject,
		Email:        c.Email,
		Role:         c.Role,
		Name:         c.Name,
		Organization: c.Organization,
		SessionID:    c.SessionID,
	}
}

// TokenPair is what login and refresh hand back to the transport layer.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	AccessSecret     string
	RefreshSecret    string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	InactivityWindow time.Duration
}

// TokenService issues and verifies access and refresh tokens. Access and
// refresh tokens are signed with different secrets.
type TokenService struct {
	accessSecret     []byte
	refreshSecret    []byte
	accessTTL        time.Duration
	refreshTTL       time.Duration
	inactivityWindow time.Duration
	now              func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{
		accessSecret:     []byte(cfg.AccessSecret),
		refreshSecret:    []byte(cfg.RefreshSecret),
		accessTTL:        cfg.AccessTTL,
		refreshTTL:       cfg.RefreshTTL,
		inactivityWindow: cfg.InactivityWindow,
		now:              time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs an access token with lastActivity set to now.
func (s *TokenService) IssueAccessToken(id Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Email:        id.Email,
		Role:         id.Role,
		Name:         id.Name,
		Organization: id.Organization,
		SessionID:    id.SessionID,
		Type:         tokenTypeAccess,
		LastActivity: now.Unix(),
		StandardClaims: jwt.StandardClaims{
			Subject:   id.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: exp.Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefreshToken signs a refresh token. Every token gets a fresh jti so
// two tokens issued within the same second still differ.
func (s *TokenService) IssueRefreshToken(id Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.refreshTTL)
	claims := Claims{
		Email:        id.Email,
		Role:         id.Role,
		Name:         id.Name,
		Organization: id.Organization,
		SessionID:    id.SessionID,
		Type:         tokenTypeRefresh,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   id.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: exp.Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// IssuePair issues a new access and refresh token for the identity.
func (s *TokenService) IssuePair(id Identity) (*TokenPair, error) {
	access, accessExp, err := s.IssueAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(id)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken checks signature, expiry and the inactivity window.
func (s *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if claims.LastActivity == 0 {
		return nil, ErrInvalidToken
	}
	idle := s.now().Sub(time.Unix(claims.LastActivity, 0))
	if idle > s.inactivityWindow {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken checks signature and expiry only.
func (s *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, s.refreshSecret, tokenTypeRefresh)
}

func (s *TokenService) parse(tokenString string, secret []byte, typ string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	// Time-based claims are checked below against s.now.
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != typ || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == 0 || s.now().Unix() >= claims.ExpiresAt {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken computes a SHA-256 hash of the token string. Refresh tokens are
// persisted by hash only.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
