package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "email", "user_name", "password_hash", "mobile", "full_name", "role", "created_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *UsersRepo) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewUsersRepo(mock, nil)
}

func TestFindByID_ScansRow(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(7), "a@x.io", "alice", "hash", "555", "Alice A", "ADMIN", created))

	rec, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "alice", rec.UserName)
	assert.Equal(t, user.RoleAdmin, rec.Role)
	assert.True(t, created.Equal(rec.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NoRowsIsNotFound(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail_NoRowsIsNotFound(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("ghost@x.io").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@x.io")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestFindAll_OrdersByID(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM users ORDER BY id ASC`).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), "a@x.io", "a", "h", "", "", "CUSTOMER", now).
			AddRow(int64(2), "b@x.io", "b", "h", "", "", "ADMIN", now))

	out, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, user.RoleAdmin, out[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_EmptyIsNonNil(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`SELECT .* FROM users ORDER BY id ASC`).
		WillReturnRows(pgxmock.NewRows(cols))

	out, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSave_InsertAssignsID(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@x.io", "alice", "hash", "", "", "CUSTOMER", now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	saved, err := repo.Save(context.Background(), user.Record{
		Email:        "a@x.io",
		UserName:     "alice",
		PasswordHash: "hash",
		Role:         user.RoleCustomer,
		CreatedAt:    now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UniqueViolationIsEmailTaken(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Save(context.Background(), user.Record{Email: "dup@x.io", Role: user.RoleCustomer})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestSave_UpdateReturnsStoredRow(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE users`).
		WithArgs(int64(3), "new@x.io", "bob", "h2", "1", "Bob", "ADMIN").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(3), "new@x.io", "bob", "h2", "1", "Bob", "ADMIN", created))

	saved, err := repo.Save(context.Background(), user.Record{
		ID: 3, Email: "new@x.io", UserName: "bob", PasswordHash: "h2",
		Mobile: "1", FullName: "Bob", Role: user.RoleAdmin,
	})
	require.NoError(t, err)
	assert.True(t, created.Equal(saved.CreatedAt), "created_at comes from the row, not the caller")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UpdateMissingRowIsNotFound(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`UPDATE users`).
		WithArgs(int64(4), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Save(context.Background(), user.Record{ID: 4, Role: user.RoleCustomer})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(context.Background(), 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs(int64(6)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), 6), user.ErrNotFound)
	})

	t.Run("driver error passes through", func(t *testing.T) {
		mock, repo := newMock(t)
		boom := errors.New("conn reset")
		mock.ExpectExec(`DELETE FROM users`).
			WithArgs(int64(8)).
			WillReturnError(boom)

		assert.ErrorIs(t, repo.Delete(context.Background(), 8), boom)
	})
}
