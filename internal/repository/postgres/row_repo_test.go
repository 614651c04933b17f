package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var rowCols = []string{"id", "state_json", "updated_at"}

func TestRowRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRowRepo(db)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, state_json, updated_at FROM app_state WHERE id=\$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(rowCols).AddRow("u1", json.RawMessage(`{"users":[]}`), at))
	row, err := r.Get(ctx, "app_state", "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", row.ID)
	require.JSONEq(t, `{"users":[]}`, string(row.StateJSON))
	require.Equal(t, at, row.UpdatedAt)

	mock.ExpectQuery(`FROM app_state WHERE id=\$1`).
		WithArgs("u2").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, "app_state", "u2")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRowRepo_UnknownTable(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRowRepo(db)
	ctx := context.Background()

	_, err := r.Get(ctx, "accounts; --", "u1")
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = r.Upsert(ctx, "accounts", "u1", json.RawMessage(`{}`))
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = r.List(ctx, "signin_limiter")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRowRepo(db)
	ctx := context.Background()
	at := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"records":[]}`)

	mock.ExpectQuery(`INSERT INTO app_state \(id, state_json, updated_at\) VALUES \(\$1, \$2, now\(\)\) ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("global", []byte(payload)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(at))
	row, err := r.Upsert(ctx, "app_state", "global", payload)
	require.NoError(t, err)
	require.Equal(t, "global", row.ID)
	require.Equal(t, at, row.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRowRepo(db)
	ctx := context.Background()
	at := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, state_json, updated_at FROM app_state ORDER BY id`).
		WillReturnRows(pgxmock.NewRows(rowCols).
			AddRow("a", json.RawMessage(`{}`), at).
			AddRow("b", json.RawMessage(`{"tasks":[]}`), at))
	rows, err := r.List(ctx, "app_state")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0].ID)
	require.Equal(t, "b", rows[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
