package repository

import (
	"context"
	"encoding/json"

	"github.com/and161185/coachboard/internal/model"
)

// RowRepository stores opaque JSON state rows keyed by id.
type RowRepository interface {
	// Get returns a single row or errs.ErrNotFound.
	Get(ctx context.Context, table, id string) (*model.Row, error)
	// Upsert writes payload for id, replacing the previous value.
	Upsert(ctx context.Context, table, id string, payload json.RawMessage) (*model.Row, error)
	// List returns every row of the table ordered by id.
	List(ctx context.Context, table string) ([]model.Row, error)
}
