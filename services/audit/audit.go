package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditRepo "invoicely/database/repository/audit"
	"invoicely/models"
)

const (
	defaultWriteTimeout = 3 * time.Second
	DefaultListLimit    = 50
	MaxListLimit        = 200
)

// AuditService records user activity. Recording never fails the caller.
type AuditService interface {
	Record(ctx context.Context, event models.AuditEvent)
	List(ctx context.Context, userID string, limit int) ([]models.AuditEvent, error)
}

type DefaultAuditService struct {
	Repo         auditRepo.AuditRepository
	Logger       *zap.Logger
	WriteTimeout time.Duration
}

func NewAuditService(repo auditRepo.AuditRepository, logger *zap.Logger) *DefaultAuditService {
	return &DefaultAuditService{Repo: repo, Logger: logger, WriteTimeout: defaultWriteTimeout}
}

func (s *DefaultAuditService) Record(ctx context.Context, event models.AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	// The request may already be finished by the time we write.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.WriteTimeout)
	defer cancel()

	if err := s.Repo.Insert(ctx, &event); err != nil {
		s.Logger.Warn("Failed to record audit event",
			zap.String("action", string(event.Action)),
			zap.String("userID", event.UserID),
			zap.Error(err),
		)
	}
}

func (s *DefaultAuditService) List(ctx context.Context, userID string, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.Repo.ListByUser(ctx, userID, int64(limit))
}

// Noop discards every event. Used by tests and when MongoDB is disabled.
type Noop struct{}

func (Noop) Record(context.Context, models.AuditEvent) {}
func (Noop) List(context.Context, string, int) ([]models.AuditEvent, error) {
	return []models.AuditEvent{}, nil
}
