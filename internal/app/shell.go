// Package app holds the single in-memory application state, drives the
// session lifecycle and persists every accepted mutation.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/remote"
	"github.com/and161185/coachboard/internal/state"
)

// Phase is the session lifecycle stage.
type Phase int

const (
	Unauthenticated Phase = iota
	SessionPending
	Loading
	Ready
)

func (p Phase) String() string {
	switch p {
	case Unauthenticated:
		return "unauthenticated"
	case SessionPending:
		return "session-pending"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Syncer loads and persists state.
type Syncer interface {
	LoadState(ctx context.Context, userID string, role model.Role) model.AppState
	SaveStateAsync(ctx context.Context, userID string, st model.AppState)
	Wait()
}

// Shell owns the current AppState. Mutations are accepted only once the
// initial load has completed, so the first save can never overwrite the
// stored state with a fresh default.
type Shell struct {
	remote remote.Client
	sync   Syncer
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	phase   Phase
	session *model.Session
	st      model.AppState
	unsub   func()
}

// New constructs a shell in the Unauthenticated phase.
func New(rc remote.Client, s Syncer, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{remote: rc, sync: s, log: log, now: wallClock}
}

// wallClock drops the zone and monotonic reading so stored timestamps
// survive an encode/decode round trip unchanged.
func wallClock() time.Time { return time.Now().UTC().Round(0) }

// Start resumes a stored session, or loads the shared local state when the
// remote store is not configured. It subscribes to auth changes so that a
// later sign-out discards the in-memory state.
func (sh *Shell) Start(ctx context.Context) error {
	sh.mu.Lock()
	if sh.unsub == nil {
		sh.unsub = sh.remote.OnAuthStateChange(func(s *model.Session) {
			if s == nil {
				sh.reset()
			}
		})
	}
	sh.phase = SessionPending
	sh.mu.Unlock()

	if !sh.remote.Enabled() {
		sh.load(ctx, nil)
		return nil
	}

	s, err := sh.remote.Session(ctx)
	if err != nil {
		sh.reset()
		return fmt.Errorf("session: %w", err)
	}
	if s == nil {
		sh.reset()
		return nil
	}
	sh.load(ctx, s)
	return nil
}

// SignUp creates an account and loads its state.
func (sh *Shell) SignUp(ctx context.Context, email, password string, meta model.UserMeta) (model.User, error) {
	sh.setPhase(SessionPending)
	u, err := sh.remote.SignUp(ctx, email, password, meta)
	if err != nil {
		sh.reset()
		return model.User{}, err
	}
	return u, sh.afterAuth(ctx)
}

// SignIn authenticates and loads the user's state.
func (sh *Shell) SignIn(ctx context.Context, email, password string) (model.User, error) {
	sh.setPhase(SessionPending)
	u, err := sh.remote.SignIn(ctx, email, password)
	if err != nil {
		sh.reset()
		return model.User{}, err
	}
	return u, sh.afterAuth(ctx)
}

func (sh *Shell) afterAuth(ctx context.Context) error {
	s, err := sh.remote.Session(ctx)
	if err != nil || s == nil {
		sh.reset()
		if err == nil {
			err = errs.ErrUnauthorized
		}
		return fmt.Errorf("session after sign-in: %w", err)
	}
	sh.load(ctx, s)
	return nil
}

// SignOut waits for pending saves, drops the session and discards state.
func (sh *Shell) SignOut(ctx context.Context) error {
	sh.sync.Wait()
	err := sh.remote.SignOut(ctx)
	sh.reset()
	return err
}

func (sh *Shell) load(ctx context.Context, s *model.Session) {
	sh.mu.Lock()
	sh.phase = Loading
	sh.session = s
	sh.mu.Unlock()

	var (
		userID string
		role   model.Role
	)
	if s != nil {
		userID, role = s.User.ID, s.User.Role
	}
	st := sh.sync.LoadState(ctx, userID, role)
	if s != nil {
		st = state.SetCurrentUser(s.User)(st)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	// a sign-out during the load wins
	if sh.phase != Loading {
		return
	}
	sh.st = st
	sh.phase = Ready
	sh.log.Debug("state ready", zap.String("user", userID), zap.String("role", string(role)))
}

func (sh *Shell) reset() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.phase = Unauthenticated
	sh.session = nil
	sh.st = model.AppState{}
}

func (sh *Shell) setPhase(p Phase) {
	sh.mu.Lock()
	sh.phase = p
	sh.mu.Unlock()
}

// Phase reports the lifecycle stage.
func (sh *Shell) Phase() Phase {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.phase
}

// State returns the current state. The returned value shares slices with the
// shell and must be treated as read-only.
func (sh *Shell) State() model.AppState {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.st
}

// Session returns the active session, or nil in local-only mode.
func (sh *Shell) Session() *model.Session {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.session
}

// ActorID is the id mutations are attributed to.
func (sh *Shell) ActorID() string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.st.CurrentUser != nil {
		return sh.st.CurrentUser.ID
	}
	return LocalActor
}

// LocalActor attributes actions taken without a signed-in user.
const LocalActor = "local"

// Dispatch applies r to the current state and saves the result without
// waiting for durability.
func (sh *Shell) Dispatch(ctx context.Context, r state.Reducer) (model.AppState, error) {
	sh.mu.Lock()
	if sh.phase != Ready {
		p := sh.phase
		sh.mu.Unlock()
		return model.AppState{}, fmt.Errorf("dispatch in %s: %w", p, errs.ErrNotReady)
	}
	sh.st = r(sh.st)
	st := sh.st
	var userID string
	if sh.session != nil {
		userID = sh.session.User.ID
	}
	sh.mu.Unlock()

	sh.sync.SaveStateAsync(ctx, userID, st)
	return st, nil
}

// Flush blocks until every save started by Dispatch has completed.
func (sh *Shell) Flush() { sh.sync.Wait() }

// Close unsubscribes from auth changes and flushes pending saves.
func (sh *Shell) Close() {
	sh.mu.Lock()
	unsub := sh.unsub
	sh.unsub = nil
	sh.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	sh.Flush()
}
