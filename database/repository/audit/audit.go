package auditRepo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"invoicely/models"
)

// CollectionName is the MongoDB collection holding activity events.
const CollectionName = "audit_events"

type AuditRepository interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
	// ListByUser returns the newest events first.
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditEvent, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoAuditRepo struct {
	coll *mongo.Collection
}

// NewMongoAuditRepo returns an AuditRepository backed by the given collection.
func NewMongoAuditRepo(coll *mongo.Collection) AuditRepository {
	return &mongoAuditRepo{coll: coll}
}

func (r *mongoAuditRepo) Insert(ctx context.Context, event *models.AuditEvent) error {
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (r *mongoAuditRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.AuditEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}
	return events, nil
}

func (r *mongoAuditRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit index: %w", err)
	}
	return nil
}
