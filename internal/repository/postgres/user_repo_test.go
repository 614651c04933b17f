package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var accountCols = []string{"id", "email", "pwd_hash", "salt_auth", "name", "role", "created_at"}

func TestAccountRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	a := &model.Account{
		ID:       uuid.Must(uuid.NewV4()),
		Email:    "ann@x.io",
		PwdHash:  []byte("h"),
		SaltAuth: []byte("s"),
		Name:     "Ann",
		Role:     model.RoleFriend,
	}

	mock.ExpectExec(`INSERT INTO accounts \(id, email, pwd_hash, salt_auth, name, role\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs(a.ID, a.Email, a.PwdHash, a.SaltAuth, a.Name, "friend").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, a))

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(a.ID, a.Email, a.PwdHash, a.SaltAuth, a.Name, "friend").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, a), errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, email, pwd_hash, salt_auth, name, role, created_at FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(id, "ann@x.io", []byte("h"), []byte("s"), "Ann", "admin", created))
	a, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, a.ID)
	require.Equal(t, model.RoleAdmin, a.Role)
	require.Equal(t, created, a.CreatedAt)

	mock.ExpectQuery(`FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_GetByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, email, pwd_hash, salt_auth, name, role, created_at FROM accounts WHERE email=\$1`).
		WithArgs("bob@x.io").
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(id, "bob@x.io", []byte("h"), []byte("s"), "Bob", "friend", time.Now()))
	a, err := r.GetByEmail(ctx, "bob@x.io")
	require.NoError(t, err)
	require.Equal(t, "Bob", a.Name)

	mock.ExpectQuery(`FROM accounts WHERE email=\$1`).
		WithArgs("nobody@x.io").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, "nobody@x.io")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM accounts WHERE email=\$1`).
		WithArgs("slow@x.io").
		WillReturnError(context.DeadlineExceeded)
	_, err = r.GetByEmail(ctx, "slow@x.io")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
