package refreshTokenRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invoicely/database"
	"invoicely/models"
)

// RefreshTokenRepository persists issued refresh tokens by (user, hash).
// Every record leaves the table through a delete: rotation, logout or expiry.
type RefreshTokenRepository interface {
	Create(ctx context.Context, rt *models.RefreshToken) error
	// Consume deletes and returns the record. It returns (nil, nil) when no
	// record matched, which includes a token that was already rotated.
	Consume(ctx context.Context, userID, tokenHash string) (*models.RefreshToken, error)
	DeleteBySession(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PostgresRefreshTokenRepo struct {
	db database.DBTX
}

func NewPostgresRefreshTokenRepo(db database.DBTX) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: db}
}

func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, rt *models.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, session_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, rt.UserID, rt.TokenHash, rt.SessionID, rt.ExpiresAt, rt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRefreshTokenRepo) Consume(ctx context.Context, userID, tokenHash string) (*models.RefreshToken, error) {
	query := `DELETE FROM refresh_tokens
		WHERE user_id = $1 AND token_hash = $2
		RETURNING session_id, expires_at, created_at`
	rt := models.RefreshToken{UserID: userID, TokenHash: tokenHash}
	err := r.db.QueryRowContext(ctx, query, userID, tokenHash).Scan(&rt.SessionID, &rt.ExpiresAt, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return &rt, nil
}

func (r *PostgresRefreshTokenRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	return nil
}

func (r *PostgresRefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
