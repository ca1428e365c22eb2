package refreshTokenRepo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicely/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRefreshTokenRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRefreshTokenRepo(db), mock, db
}

const consumeQuery = `(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+token_hash\s*=\s*\$2\s+RETURNING\s+session_id,\s*expires_at,\s*created_at$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(time.Hour)
	created := time.Now()
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+refresh_tokens\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`).
		WithArgs("u1", "hash", "s1", exp, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.RefreshToken{
		UserID: "u1", TokenHash: "hash", SessionID: "s1", ExpiresAt: exp, CreatedAt: created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.RefreshToken{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestConsume_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(time.Hour)
	created := time.Now()
	mock.ExpectQuery(consumeQuery).
		WithArgs("u1", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "expires_at", "created_at"}).AddRow("s1", exp, created))

	rt, err := repo.Consume(context.Background(), "u1", "hash")
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, "s1", rt.SessionID)
	assert.True(t, rt.ExpiresAt.Equal(exp))
	assert.Equal(t, "hash", rt.TokenHash)
}

func TestConsume_AlreadyUsed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(consumeQuery).
		WithArgs("u1", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "expires_at", "created_at"}))

	rt, err := repo.Consume(context.Background(), "u1", "hash")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<=\s*\$1$`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
