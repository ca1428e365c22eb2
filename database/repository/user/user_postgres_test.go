package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicely/models"
)

func newRepoWithMock(t *testing.T) (*PostgresUserRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresUserRepo(db), mock, db
}

var userCols = []string{"id", "email", "password_hash", "name", "organization", "role", "access_count", "created_at", "updated_at"}

func TestCreate_NormalizesEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\b.*VALUES\s*\(\$1,.*\$9\)$`).
		WithArgs("u1", "ada@example.com", "hash", "Ada", "", "user", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "u1", Email: "  Ada@Example.com ", PasswordHash: "hash", Name: "Ada", Role: models.RoleUser, AccessCount: 1}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, "ada@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\b`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+lower\(email\)\s*=\s*\$1$`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "ada@example.com", "hash", "Ada", "Engines", "admin", 3, now, now))

	u, err := repo.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, 3, u.AccessCount)
	assert.Equal(t, "Engines", u.Organization)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLockByID_UsesForUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "a@b.c", "hash", "", "", "user", 1, now, now))

	u, err := repo.LockByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestUpdate_NoRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+name`).
		WithArgs("u1", "Ada", "", "user", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.User{ID: "u1", Name: "Ada", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+created_at$`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "a@b.c", "h", "A", "", "admin", 1, now, now).
			AddRow("u2", "b@b.c", "h", "B", "", "user", 2, now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[1].ID)
}
