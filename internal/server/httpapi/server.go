// Package httpapi exposes the row-store auth and row endpoints over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/convert"
	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/service"
)

const maxBody = 8 << 20

// Server wires services into HTTP handlers.
type Server struct {
	auth   service.AuthService
	rows   service.RowService
	apiKey string
	log    *zap.Logger

	trustProxy bool
}

// New constructs a server with injected services.
func New(auth service.AuthService, rows service.RowService, apiKey string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, rows: rows, apiKey: apiKey, log: log}
}

// TrustProxy makes the limiter key on forwarding headers instead of the
// peer address. Only safe when a reverse proxy overwrites those headers.
func (s *Server) TrustProxy(on bool) *Server {
	s.trustProxy = on
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(APIKey(s.apiKey))

		r.Post("/auth/v1/signup", s.signUp)
		r.Post("/auth/v1/token", s.signIn)
		r.With(s.RequireUser).Get("/auth/v1/user", s.user)

		r.Route("/rest/v1/{table}", func(r chi.Router) {
			r.Use(s.RequireUser)
			r.Get("/", s.listRows)
			r.Get("/{id}", s.getRow)
			r.Put("/{id}", s.putRow)
		})
	})
	return r
}

// --- auth ---

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req convert.SignUpRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := convert.NormalizeSignUp(req)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errs.ErrInvalid, err))
		return
	}
	tok, acc, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.Data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("account created", zap.String("user", acc.ID.String()), zap.String("role", string(acc.Role)))
	writeJSON(w, http.StatusCreated, convert.ToSessionResponse(tok, acc))
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req convert.Credentials
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req = convert.NormalizeCredentials(req)
	if req.Email == "" || req.Password == "" {
		s.fail(w, r, fmt.Errorf("empty email/password: %w", errs.ErrInvalid))
		return
	}
	tok, acc, err := s.auth.SignInWithIP(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToSessionResponse(tok, acc))
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromCtx(r.Context())
	acc, err := s.auth.Account(r.Context(), claims.Subject)
	if errors.Is(err, errs.ErrNotFound) {
		// token outlived its account
		err = fmt.Errorf("account gone: %w", errs.ErrUnauthorized)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.UserResponse{User: acc.User()})
}

// --- rows ---

func caller(r *http.Request) service.Caller {
	c, _ := ClaimsFromCtx(r.Context())
	return c.Caller()
}

func (s *Server) getRow(w http.ResponseWriter, r *http.Request) {
	row, err := s.rows.Get(r.Context(), caller(r), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) putRow(w http.ResponseWriter, r *http.Request) {
	var req convert.UpsertRowRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := s.rows.Upsert(r.Context(), caller(r), chi.URLParam(r, "table"), chi.URLParam(r, "id"), req.StateJSON)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) listRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows.List(r.Context(), caller(r), chi.URLParam(r, "table"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("bad json body: %w", errs.ErrInvalid)
	}
	return nil
}

// clientIP is the address the limiter keys on: the peer address, or the
// forwarded one when the server trusts its proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
