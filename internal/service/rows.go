package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/repository"
)

// GlobalRowID is the row shared by all callers.
const GlobalRowID = "global"

// StateTable is the only table exposed through the row API.
const StateTable = "app_state"

var rowTables = map[string]bool{StateTable: true}

func checkTable(table string) error {
	if !rowTables[table] {
		return fmt.Errorf("table %q: %w", table, errs.ErrNotFound)
	}
	return nil
}

// RowService defines access-checked operations over state rows.
type RowService interface {
	// Get returns the row id of table if the caller may read it.
	Get(ctx context.Context, c Caller, table, id string) (*model.Row, error)
	// Upsert replaces the row id of table if the caller may write it.
	Upsert(ctx context.Context, c Caller, table, id string, payload json.RawMessage) (*model.Row, error)
	// List returns every row of table. Admins only.
	List(ctx context.Context, c Caller, table string) ([]model.Row, error)
}

type RowServiceImpl struct {
	repo     repository.RowRepository
	maxBytes int
}

// NewRowService constructs RowService with a payload size limit.
func NewRowService(repo repository.RowRepository, maxBytes int) *RowServiceImpl {
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	return &RowServiceImpl{repo: repo, maxBytes: maxBytes}
}

// canAccess: admins see every row, others only their own and the global one.
func canAccess(c Caller, id string) bool {
	if c.UserID == "" {
		return false
	}
	return c.Role == model.RoleAdmin || id == c.UserID || id == GlobalRowID
}

// Get checks access and delegates to the repository.
func (s *RowServiceImpl) Get(ctx context.Context, c Caller, table, id string) (*model.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("validation: empty id: %w", errs.ErrInvalid)
	}
	if !canAccess(c, id) {
		return nil, errs.ErrForbidden
	}
	return s.repo.Get(ctx, table, id)
}

// Upsert validates the payload and replaces the row. The last write wins.
// Validation rules:
// - table is known
// - id not empty
// - payload is a JSON object no larger than maxBytes
func (s *RowServiceImpl) Upsert(ctx context.Context, c Caller, table, id string, payload json.RawMessage) (*model.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("validation: empty id: %w", errs.ErrInvalid)
	}
	if !canAccess(c, id) {
		return nil, errs.ErrForbidden
	}
	if len(payload) > s.maxBytes {
		return nil, fmt.Errorf("validation: payload too large (%d > %d): %w", len(payload), s.maxBytes, errs.ErrInvalid)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("validation: state_json must be an object: %w", errs.ErrInvalid)
	}
	return s.repo.Upsert(ctx, table, id, payload)
}

// List returns all rows for admins.
func (s *RowServiceImpl) List(ctx context.Context, c Caller, table string) ([]model.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if c.Role != model.RoleAdmin {
		return nil, errs.ErrForbidden
	}
	rows, err := s.repo.List(ctx, table)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Row{}
	}
	return rows, nil
}
