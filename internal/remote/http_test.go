package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/limiter"
	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/repository/memory"
	"github.com/and161185/coachboard/internal/server/httpapi"
	"github.com/and161185/coachboard/internal/service"
)

const key = "anon"

func newStore(t *testing.T) *httptest.Server {
	t.Helper()
	auth := service.NewAuthService(memory.NewAccounts(), []byte("sign"), time.Hour, limiter.NewMemory(limiter.DefaultSettings))
	rows := service.NewRowService(memory.NewRows(), 0)
	ts := httptest.NewServer(httpapi.New(auth, rows, key, zaptest.NewLogger(t)).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, ts *httptest.Server, sessions SessionStore) *HTTP {
	t.Helper()
	return NewHTTP(ts.URL+"/", key, sessions, ts.Client(), zaptest.NewLogger(t))
}

func TestNew_Variant(t *testing.T) {
	require.IsType(t, Disabled{}, New(Config{}, nil))
	require.IsType(t, Disabled{}, New(Config{URL: "http://x"}, nil))
	require.IsType(t, Disabled{}, New(Config{APIKey: "k"}, nil))
	c := New(Config{URL: "http://x", APIKey: "k"}, nil)
	require.IsType(t, &HTTP{}, c)
	require.True(t, c.Enabled())
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	var d Disabled
	require.False(t, d.Enabled())
	_, err := d.SignIn(ctx, "a", "b")
	require.ErrorIs(t, err, errs.ErrRemoteDisabled)
	_, err = d.SignUp(ctx, "a", "b", model.UserMeta{})
	require.ErrorIs(t, err, errs.ErrRemoteDisabled)
	_, err = d.SelectRow(ctx, StateTable, "u")
	require.ErrorIs(t, err, errs.ErrRemoteDisabled)
	require.ErrorIs(t, d.UpsertRow(ctx, StateTable, "u", nil), errs.ErrRemoteDisabled)
	_, err = d.SelectAllRows(ctx, StateTable)
	require.ErrorIs(t, err, errs.ErrRemoteDisabled)
	require.NoError(t, d.SignOut(ctx))
	s, err := d.Session(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
	d.OnAuthStateChange(func(*model.Session) { t.Fatal("must not fire") })()
}

func TestHTTP_AuthLifecycle(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()
	c := newClient(t, ts, &MemorySessions{})

	var (
		mu     sync.Mutex
		events []*model.Session
	)
	unsub := c.OnAuthStateChange(func(s *model.Session) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	})

	u, err := c.SignUp(ctx, "ann@x.io", "pw", model.UserMeta{Name: "Ann", Role: model.RoleFriend})
	require.NoError(t, err)
	require.Equal(t, "Ann", u.Name)

	s, err := c.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, u.ID, s.User.ID)

	require.NoError(t, c.SignOut(ctx))
	s, err = c.Session(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = c.SignIn(ctx, "ann@x.io", "wrong")
	require.ErrorIs(t, err, errs.ErrAuth)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = c.SignUp(ctx, "ann@x.io", "pw", model.UserMeta{Role: model.RoleFriend})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = c.SignIn(ctx, "ann@x.io", "pw")
	require.NoError(t, err)

	unsub()
	require.NoError(t, c.SignOut(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	require.NotNil(t, events[0])
	require.Nil(t, events[1])
	require.NotNil(t, events[2])
}

func TestHTTP_RowsAndAggregateAccess(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	friend := newClient(t, ts, &MemorySessions{})
	f, err := friend.SignUp(ctx, "f@x.io", "pw", model.UserMeta{Role: model.RoleFriend})
	require.NoError(t, err)

	_, err = friend.SelectRow(ctx, StateTable, f.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, friend.UpsertRow(ctx, StateTable, f.ID, json.RawMessage(`{"statuses":[]}`)))
	got, err := friend.SelectRow(ctx, StateTable, f.ID)
	require.NoError(t, err)
	require.JSONEq(t, `{"statuses":[]}`, string(got))

	_, err = friend.SelectAllRows(ctx, StateTable)
	require.ErrorIs(t, err, errs.ErrForbidden)

	coach := newClient(t, ts, &MemorySessions{})
	_, err = coach.SignUp(ctx, "c@x.io", "pw", model.UserMeta{Role: model.RoleAdmin})
	require.NoError(t, err)
	rows, err := coach.SelectAllRows(ctx, StateTable)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, f.ID, rows[0].ID)

	anon := newClient(t, ts, &MemorySessions{})
	_, err = anon.SelectRow(ctx, StateTable, f.ID)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestHTTP_SessionPersistsAcrossClients(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first := newClient(t, ts, FileSessions{Path: path})
	u, err := first.SignUp(ctx, "p@x.io", "pw", model.UserMeta{Role: model.RoleFriend})
	require.NoError(t, err)

	second := newClient(t, ts, FileSessions{Path: path})
	s, err := second.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, u.ID, s.User.ID)
}

func TestHTTP_SessionExpiredOrRejected(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	sessions := &MemorySessions{}
	require.NoError(t, sessions.Save(model.Session{AccessToken: "forged", ExpiresAt: time.Now().Add(time.Hour)}))
	c := newClient(t, ts, sessions)
	s, err := c.Session(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
	left, _ := sessions.Load()
	require.Nil(t, left, "rejected token must be cleared")

	require.NoError(t, sessions.Save(model.Session{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	s, err = c.Session(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestHTTP_SessionKeptWhenServerUnreachable(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()
	sessions := &MemorySessions{}
	c := newClient(t, ts, sessions)
	_, err := c.SignUp(ctx, "o@x.io", "pw", model.UserMeta{Role: model.RoleFriend})
	require.NoError(t, err)

	ts.Close()
	s, err := c.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestHTTP_ErrorEnvelopeAndStatusMapping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, key, r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"slow down"}}`))
	}))
	defer ts.Close()

	c := newClient(t, ts, &MemorySessions{})
	_, err := c.SelectRow(context.Background(), StateTable, "x")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "rate_limited", ae.Code)
	require.Equal(t, "slow down", ae.Message)

	for status, want := range map[int]error{
		http.StatusBadRequest:   errs.ErrInvalid,
		http.StatusUnauthorized: errs.ErrUnauthorized,
		http.StatusForbidden:    errs.ErrForbidden,
		http.StatusNotFound:     errs.ErrNotFound,
		http.StatusConflict:     errs.ErrAlreadyExists,
	} {
		require.ErrorIs(t, &APIError{Status: status}, want)
	}
	require.Nil(t, (&APIError{Status: 500}).Unwrap())
}
