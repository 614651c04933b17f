package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
	"github.com/jackc/pgx/v5"
)

// RowRepo implements RowRepository using PostgreSQL jsonb columns.
type RowRepo struct{ db *DB }

// NewRowRepo constructs a row repository.
func NewRowRepo(db *DB) *RowRepo { return &RowRepo{db: db} }

// tables maps exposed table names to their SQL identifiers.
var tables = map[string]string{
	"app_state": "app_state",
}

func tableName(t string) (string, error) {
	n, ok := tables[t]
	if !ok {
		return "", fmt.Errorf("table %q: %w", t, errs.ErrNotFound)
	}
	return n, nil
}

// Get selects a row by id.
func (r *RowRepo) Get(ctx context.Context, table, id string) (*model.Row, error) {
	tn, err := tableName(table)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, state_json, updated_at FROM ` + tn + ` WHERE id=$1`
	var row model.Row
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&row.ID, &row.StateJSON, &row.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Upsert inserts or replaces the row; the last write wins.
func (r *RowRepo) Upsert(ctx context.Context, table, id string, payload json.RawMessage) (*model.Row, error) {
	tn, err := tableName(table)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO ` + tn + ` (id, state_json, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET state_json = EXCLUDED.state_json, updated_at = EXCLUDED.updated_at
RETURNING updated_at`
	row := model.Row{ID: id, StateJSON: payload}
	if err := r.db.Pool.QueryRow(ctx, q, id, []byte(payload)).Scan(&row.UpdatedAt); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns all rows ordered by id.
func (r *RowRepo) List(ctx context.Context, table string) ([]model.Row, error) {
	tn, err := tableName(table)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT id, state_json, updated_at FROM `+tn+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var row model.Row
		if err := rows.Scan(&row.ID, &row.StateJSON, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
