package auditRepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"invoicely/models"
)

func TestMongoAuditRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		repo := NewMongoAuditRepo(mt.Coll)
		err := repo.Insert(context.Background(), &models.AuditEvent{
			ID: "e1", UserID: "u1", Action: models.AuditLogin, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	})

	mt.Run("insert error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		repo := NewMongoAuditRepo(mt.Coll)
		err := repo.Insert(context.Background(), &models.AuditEvent{ID: "e1", UserID: "u1"})
		assert.Error(t, err)
	})

	mt.Run("list by user", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "e2"}, {Key: "user_id", Value: "u1"}, {Key: "action", Value: "logout"}},
			bson.D{{Key: "_id", Value: "e1"}, {Key: "user_id", Value: "u1"}, {Key: "action", Value: "login"}},
		)
		done := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, done)

		repo := NewMongoAuditRepo(mt.Coll)
		events, err := repo.ListByUser(context.Background(), "u1", 50)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "e2", events[0].ID)
		assert.Equal(t, models.AuditLogout, events[0].Action)
	})
}
