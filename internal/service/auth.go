// Package service contains the row-store server's authentication and row access services.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgcrypto "github.com/and161185/coachboard/internal/crypto"
	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/limiter"
	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are carried in issued access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID string
	Role   model.Role
}

// Caller projects the token claims into a principal.
func (c Claims) Caller() Caller { return Caller{UserID: c.Subject, Role: c.Role} }

// AuthService defines account and token operations.
type AuthService interface {
	// SignUp creates an account and signs it in.
	SignUp(ctx context.Context, email, password string, meta model.UserMeta) (model.Tokens, model.Account, error)
	// SignInWithIP applies rate-limiting and authenticates the account.
	SignInWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.Account, error)
	// Account loads the account behind a token subject.
	Account(ctx context.Context, id string) (model.Account, error)
	// ParseToken verifies an access token and returns its claims.
	ParseToken(token string) (Claims, error)
}

type AuthServiceImpl struct {
	accounts  repository.AccountRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time

	closedAdminSignUp bool
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(accounts repository.AccountRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{accounts: accounts, signKey: signKey, accessTTL: accessTTL, lim: lim, now: time.Now}
}

// AllowAdminSignUp controls whether SignUp accepts the admin role. It is
// allowed by default; deployments that provision coaches out of band turn
// it off.
func (s *AuthServiceImpl) AllowAdminSignUp(on bool) *AuthServiceImpl {
	s.closedAdminSignUp = !on
	return s
}

// SignUp creates an account with a per-account salt. Email and meta are
// expected to be normalized by the caller.
func (s *AuthServiceImpl) SignUp(ctx context.Context, email, password string, meta model.UserMeta) (model.Tokens, model.Account, error) {
	if email == "" || password == "" {
		return model.Tokens{}, model.Account{}, fmt.Errorf("empty email/password: %w", errs.ErrInvalid)
	}
	if !meta.Role.Valid() {
		return model.Tokens{}, model.Account{}, fmt.Errorf("role %q: %w", meta.Role, errs.ErrInvalid)
	}
	if meta.Role == model.RoleAdmin && s.closedAdminSignUp {
		return model.Tokens{}, model.Account{}, fmt.Errorf("admin sign-up disabled: %w", errs.ErrForbidden)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash([]byte(password))
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}

	a := model.Account{
		ID:        uid,
		Email:     email,
		PwdHash:   hash,
		SaltAuth:  salt,
		Name:      meta.Name,
		Role:      meta.Role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, &a); err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	tok, err := s.issueAccessToken(a)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	return tok, a, nil
}

// SignInWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) SignInWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.Account, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Account{}, errs.ErrRateLimited
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.Account{}, err
	}
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), a.SaltAuth, a.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.Account{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.Account{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issueAccessToken(*a)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	return tok, *a, nil
}

// Account loads an account by its string id.
func (s *AuthServiceImpl) Account(ctx context.Context, id string) (model.Account, error) {
	uid, err := uuid.FromString(id)
	if err != nil {
		return model.Account{}, errs.ErrNotFound
	}
	a, err := s.accounts.GetByID(ctx, uid)
	if err != nil {
		return model.Account{}, err
	}
	return *a, nil
}

// issueAccessToken creates a signed HS256 JWT for the account.
func (s *AuthServiceImpl) issueAccessToken(a model.Account) (model.Tokens, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: a.Email,
		Name:  a.Name,
		Role:  a.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// ParseToken verifies the HS256 signature and the time claims.
func (s *AuthServiceImpl) ParseToken(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("invalid token: %w", errs.ErrUnauthorized)
	}
	if _, err := uuid.FromString(claims.Subject); err != nil {
		return Claims{}, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized)
	}
	return claims, nil
}
