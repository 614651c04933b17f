// Package memory implements the repository interfaces in process memory.
// It backs the server when no database is configured.
package memory

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Accounts is an in-memory AccountRepository.
type Accounts struct {
	mu      sync.RWMutex
	byEmail map[string]model.Account
}

// NewAccounts returns an empty account store.
func NewAccounts() *Accounts { return &Accounts{byEmail: map[string]model.Account{}} }

func (a *Accounts) Create(_ context.Context, acc *model.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byEmail[acc.Email]; ok {
		return errs.ErrAlreadyExists
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	a.byEmail[acc.Email] = *acc
	return nil
}

func (a *Accounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, acc := range a.byEmail {
		if acc.ID == id {
			return &acc, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (a *Accounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &acc, nil
}

// Rows is an in-memory RowRepository holding any table name.
type Rows struct {
	mu   sync.RWMutex
	data map[string]map[string]model.Row
	now  func() time.Time
}

// NewRows returns an empty row store.
func NewRows() *Rows { return &Rows{data: map[string]map[string]model.Row{}, now: time.Now} }

func (r *Rows) Get(_ context.Context, table, id string) (*model.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.data[table][id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	row.StateJSON = slices.Clone(row.StateJSON)
	return &row, nil
}

func (r *Rows) Upsert(_ context.Context, table, id string, payload json.RawMessage) (*model.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[table]
	if !ok {
		t = map[string]model.Row{}
		r.data[table] = t
	}
	row := model.Row{ID: id, StateJSON: slices.Clone(payload), UpdatedAt: r.now().UTC()}
	t[id] = row
	return &row, nil
}

func (r *Rows) List(_ context.Context, table string) ([]model.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Row, 0, len(r.data[table]))
	for _, row := range r.data[table] {
		row.StateJSON = slices.Clone(row.StateJSON)
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b model.Row) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}
