package sessionRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invoicely/database"
	"invoicely/models"
)

// SessionRepository stores login sessions. A session is active while
// expires_at is in the future.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	FindActiveByIP(ctx context.Context, userID, ip string, now time.Time) (*models.Session, error)
	CountActiveIPs(ctx context.Context, userID string, now time.Time) (int, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]models.Session, error)
	Touch(ctx context.Context, id string, seenAt, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string) ([]string, error)
	DeleteOthers(ctx context.Context, userID, keepID string) ([]string, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

const sessionColumns = `id, user_id, ip_address, user_agent, created_at, last_seen_at, expires_at`

type PostgresSessionRepo struct {
	db database.DBTX
}

func NewPostgresSessionRepo(db database.DBTX) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func (r *PostgresSessionRepo) Create(ctx context.Context, s *models.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.IPAddress, s.UserAgent, s.CreatedAt, s.LastSeenAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *PostgresSessionRepo) FindActiveByIP(ctx context.Context, userID, ip string, now time.Time) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND ip_address = $2 AND expires_at > $3
		ORDER BY last_seen_at DESC LIMIT 1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, userID, ip, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *PostgresSessionRepo) CountActiveIPs(ctx context.Context, userID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT ip_address) FROM sessions WHERE user_id = $1 AND expires_at > $2`,
		userID, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (r *PostgresSessionRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND expires_at > $2 ORDER BY last_seen_at DESC`,
		userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return out, nil
}

func (r *PostgresSessionRepo) Touch(ctx context.Context, id string, seenAt, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = $2, expires_at = $3 WHERE id = $1`,
		id, seenAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepo) DeleteForUser(ctx context.Context, userID string) ([]string, error) {
	return r.deleteReturning(ctx, `DELETE FROM sessions WHERE user_id = $1 RETURNING id`, userID)
}

func (r *PostgresSessionRepo) DeleteOthers(ctx context.Context, userID, keepID string) ([]string, error) {
	return r.deleteReturning(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id <> $2 RETURNING id`, userID, keepID)
}

func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresSessionRepo) deleteReturning(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &s, nil
}
