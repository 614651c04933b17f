package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/convert"
	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
)

// APIError is a non-2xx response from the row store.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the HTTP status onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return errs.ErrInvalid
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusConflict:
		return errs.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	}
	return nil
}

// HTTP talks to the row-store server over its JSON API.
type HTTP struct {
	base     string
	apiKey   string
	hc       *http.Client
	sessions SessionStore
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]func(*model.Session)
	nextID    int
}

var _ Client = (*HTTP)(nil)

// NewHTTP constructs an HTTP client rooted at baseURL.
func NewHTTP(baseURL, apiKey string, sessions SessionStore, hc *http.Client, log *zap.Logger) *HTTP {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTP{
		base:      strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		hc:        hc,
		sessions:  sessions,
		log:       log,
		now:       time.Now,
		listeners: map[int]func(*model.Session){},
	}
}

func (c *HTTP) Enabled() bool { return true }

// --- auth ---

// SignUp registers an account and stores the returned session.
func (c *HTTP) SignUp(ctx context.Context, email, password string, meta model.UserMeta) (model.User, error) {
	var resp convert.SessionResponse
	body := convert.SignUpRequest{Email: email, Password: password, Data: meta}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &resp); err != nil {
		return model.User{}, fmt.Errorf("%w: %w", errs.ErrAuth, err)
	}
	return c.establish(resp)
}

// SignIn exchanges credentials for a session.
func (c *HTTP) SignIn(ctx context.Context, email, password string) (model.User, error) {
	var resp convert.SessionResponse
	body := convert.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", "", body, &resp); err != nil {
		return model.User{}, fmt.Errorf("%w: %w", errs.ErrAuth, err)
	}
	return c.establish(resp)
}

func (c *HTTP) establish(resp convert.SessionResponse) (model.User, error) {
	s := convert.ToSession(resp)
	if err := c.sessions.Save(s); err != nil {
		return model.User{}, fmt.Errorf("save session: %w", err)
	}
	c.emit(&s)
	return s.User, nil
}

// SignOut clears the stored session. Tokens are stateless on the server.
func (c *HTTP) SignOut(_ context.Context) error {
	if err := c.sessions.Clear(); err != nil {
		return err
	}
	c.emit(nil)
	return nil
}

// Session loads the stored session and refreshes its user profile. An
// unreachable server keeps the cached session; a rejected token clears it.
func (c *HTTP) Session(ctx context.Context) (*model.Session, error) {
	s, err := c.sessions.Load()
	if err != nil || s == nil {
		return nil, err
	}
	if s.Expired(c.now()) {
		_ = c.sessions.Clear()
		return nil, nil
	}

	var ur convert.UserResponse
	err = c.do(ctx, http.MethodGet, "/auth/v1/user", s.AccessToken, nil, &ur)
	switch {
	case err == nil:
		s.User = ur.User
		if serr := c.sessions.Save(*s); serr != nil {
			c.log.Warn("persist refreshed session", zap.Error(serr))
		}
	case errors.Is(err, errs.ErrUnauthorized):
		_ = c.sessions.Clear()
		return nil, nil
	default:
		c.log.Warn("refresh session user; using cached profile", zap.Error(err))
	}
	return s, nil
}

// OnAuthStateChange registers fn; the returned func removes it.
func (c *HTTP) OnAuthStateChange(fn func(*model.Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *HTTP) emit(s *model.Session) {
	c.mu.Lock()
	fns := make([]func(*model.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// --- rows ---

// SelectRow fetches the payload stored for id.
func (c *HTTP) SelectRow(ctx context.Context, table, id string) (json.RawMessage, error) {
	var row model.Row
	if err := c.do(ctx, http.MethodGet, rowPath(table, id), c.token(), nil, &row); err != nil {
		return nil, err
	}
	return row.StateJSON, nil
}

// UpsertRow replaces the payload stored for id.
func (c *HTTP) UpsertRow(ctx context.Context, table, id string, payload json.RawMessage) error {
	return c.do(ctx, http.MethodPut, rowPath(table, id), c.token(), convert.UpsertRowRequest{StateJSON: payload}, nil)
}

// SelectAllRows lists every row of table.
func (c *HTTP) SelectAllRows(ctx context.Context, table string) ([]model.Row, error) {
	var rows []model.Row
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+url.PathEscape(table), c.token(), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func rowPath(table, id string) string {
	return "/rest/v1/" + url.PathEscape(table) + "/" + url.PathEscape(id)
}

func (c *HTTP) token() string {
	s, err := c.sessions.Load()
	if err != nil || s == nil {
		return ""
	}
	return s.AccessToken
}

// do performs one JSON round trip. in and out may be nil.
func (c *HTTP) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var eb convert.ErrorBody
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb) == nil && eb.Error.Code != "" {
			ae.Code, ae.Message = eb.Error.Code, eb.Error.Message
		}
		return ae
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
