// Package remote is the client for the hosted row store: authentication and
// row-level select/upsert keyed by user id.
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
)

// StateTable is the table holding one serialized AppState per user.
const StateTable = "app_state"

// Client is the remote store contract used by the sync layer and the shell.
type Client interface {
	// Enabled reports whether the remote store is configured.
	Enabled() bool

	// SignUp creates an account and establishes a session for it.
	SignUp(ctx context.Context, email, password string, meta model.UserMeta) (model.User, error)
	// SignIn establishes a session for an existing account.
	SignIn(ctx context.Context, email, password string) (model.User, error)
	// SignOut drops the current session.
	SignOut(ctx context.Context) error
	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*model.Session, error)
	// OnAuthStateChange registers fn for session transitions (nil on sign-out).
	OnAuthStateChange(fn func(*model.Session)) (unsubscribe func())

	// SelectRow returns the stored payload for id or errs.ErrNotFound.
	SelectRow(ctx context.Context, table, id string) (json.RawMessage, error)
	// UpsertRow stores payload for id, replacing any existing row.
	UpsertRow(ctx context.Context, table, id string, payload json.RawMessage) error
	// SelectAllRows returns every row of table. Admin only.
	SelectAllRows(ctx context.Context, table string) ([]model.Row, error)
}

// Config selects and configures the client variant.
type Config struct {
	URL      string
	APIKey   string
	Sessions SessionStore
	Timeout  time.Duration
}

// New returns an HTTP client when both URL and API key are set, otherwise a
// Disabled client.
func New(cfg Config, log *zap.Logger) Client {
	if cfg.URL == "" || cfg.APIKey == "" {
		return Disabled{}
	}
	if cfg.Sessions == nil {
		cfg.Sessions = &MemorySessions{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return NewHTTP(cfg.URL, cfg.APIKey, cfg.Sessions, &http.Client{Timeout: cfg.Timeout}, log)
}

// Disabled is the inert client used when the remote store is not configured.
type Disabled struct{}

var _ Client = Disabled{}

func (Disabled) Enabled() bool { return false }

func (Disabled) SignUp(context.Context, string, string, model.UserMeta) (model.User, error) {
	return model.User{}, errs.ErrRemoteDisabled
}

func (Disabled) SignIn(context.Context, string, string) (model.User, error) {
	return model.User{}, errs.ErrRemoteDisabled
}

func (Disabled) SignOut(context.Context) error { return nil }

func (Disabled) Session(context.Context) (*model.Session, error) { return nil, nil }

func (Disabled) OnAuthStateChange(func(*model.Session)) func() { return func() {} }

func (Disabled) SelectRow(context.Context, string, string) (json.RawMessage, error) {
	return nil, errs.ErrRemoteDisabled
}

func (Disabled) UpsertRow(context.Context, string, string, json.RawMessage) error {
	return errs.ErrRemoteDisabled
}

func (Disabled) SelectAllRows(context.Context, string) ([]model.Row, error) {
	return nil, errs.ErrRemoteDisabled
}
