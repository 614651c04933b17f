package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/repository"
)

type fakeRows struct {
	rows map[string]json.RawMessage

	upserts int
	listErr error
}

var _ repository.RowRepository = (*fakeRows)(nil)

func (f *fakeRows) Get(_ context.Context, _, id string) (*model.Row, error) {
	v, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &model.Row{ID: id, StateJSON: v}, nil
}

func (f *fakeRows) Upsert(_ context.Context, _, id string, payload json.RawMessage) (*model.Row, error) {
	if f.rows == nil {
		f.rows = map[string]json.RawMessage{}
	}
	f.upserts++
	f.rows[id] = payload
	return &model.Row{ID: id, StateJSON: payload}, nil
}

func (f *fakeRows) List(context.Context, string) ([]model.Row, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Row
	for id, v := range f.rows {
		out = append(out, model.Row{ID: id, StateJSON: v})
	}
	return out, nil
}

var (
	friend = Caller{UserID: "u1", Role: model.RoleFriend}
	admin  = Caller{UserID: "a1", Role: model.RoleAdmin}
)

func TestRows_AccessRules(t *testing.T) {
	t.Parallel()
	repo := &fakeRows{rows: map[string]json.RawMessage{
		"u1":     json.RawMessage(`{}`),
		"u2":     json.RawMessage(`{}`),
		"global": json.RawMessage(`{}`),
	}}
	s := NewRowService(repo, 0)
	ctx := context.Background()

	for _, tc := range []struct {
		c    Caller
		id   string
		want error
	}{
		{friend, "u1", nil},
		{friend, "global", nil},
		{friend, "u2", errs.ErrForbidden},
		{admin, "u2", nil},
		{Caller{}, "global", errs.ErrForbidden},
		{friend, "missing-but-own", errs.ErrForbidden},
		{admin, "missing", errs.ErrNotFound},
	} {
		_, err := s.Get(ctx, tc.c, "app_state", tc.id)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s reading %s: got %v want %v", tc.c.UserID, tc.id, err, tc.want)
		}
	}

	if _, err := s.Upsert(ctx, friend, "app_state", "u2", json.RawMessage(`{}`)); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden writing foreign row, got %v", err)
	}
	if repo.upserts != 0 {
		t.Fatalf("forbidden write reached the repository")
	}
}

func TestRows_UpsertValidation(t *testing.T) {
	t.Parallel()
	repo := &fakeRows{}
	s := NewRowService(repo, 32)
	ctx := context.Background()

	for _, p := range []string{``, `null`, `[1,2]`, `"x"`, `{broken`, `{"k":"` + strings.Repeat("x", 40) + `"}`} {
		if _, err := s.Upsert(ctx, friend, "app_state", "u1", json.RawMessage(p)); !errors.Is(err, errs.ErrInvalid) {
			t.Fatalf("payload %q: want ErrInvalid, got %v", p, err)
		}
	}
	if _, err := s.Upsert(ctx, friend, "app_state", "", json.RawMessage(`{}`)); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("want ErrInvalid on empty id, got %v", err)
	}

	row, err := s.Upsert(ctx, friend, "app_state", "u1", json.RawMessage(`{"users":[]}`))
	if err != nil || row.ID != "u1" {
		t.Fatalf("Upsert: %+v err=%v", row, err)
	}
	if _, err := s.Upsert(ctx, friend, "app_state", "u1", json.RawMessage(`{"tasks":[]}`)); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if string(repo.rows["u1"]) != `{"tasks":[]}` {
		t.Fatalf("last write must win, got %s", repo.rows["u1"])
	}
}

func TestRows_List(t *testing.T) {
	t.Parallel()
	repo := &fakeRows{}
	s := NewRowService(repo, 0)
	ctx := context.Background()

	if _, err := s.List(ctx, friend, "app_state"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden for non-admin, got %v", err)
	}
	rows, err := s.List(ctx, admin, "app_state")
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("empty list must be non-nil: %v err=%v", rows, err)
	}

	repo.listErr = errors.New("boom")
	if _, err := s.List(ctx, admin, "app_state"); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestRows_UnknownTable(t *testing.T) {
	t.Parallel()
	repo := &fakeRows{}
	s := NewRowService(repo, 0)
	ctx := context.Background()

	if _, err := s.Get(ctx, admin, "accounts", "u1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get: want ErrNotFound, got %v", err)
	}
	if _, err := s.Upsert(ctx, friend, "bogus", "u1", json.RawMessage(`{}`)); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Upsert: want ErrNotFound, got %v", err)
	}
	if _, err := s.List(ctx, admin, "signin_limiter"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("List: want ErrNotFound, got %v", err)
	}
	if repo.upserts != 0 {
		t.Fatalf("unknown table reached the repository")
	}
}
