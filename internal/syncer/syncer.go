// Package syncer loads and persists application state across the remote
// store and the local cache.
//
// Loading is remote-first with a local fallback and a default-state
// fallback; saving writes locally and then remotely on a best-effort basis.
// Concurrent writers to the same row are last-write-wins by completion
// order; there is no version check.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/localcache"
	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/remote"
	"github.com/and161185/coachboard/internal/state"
)

// RowStore is the subset of the remote client the sync layer needs.
type RowStore interface {
	Enabled() bool
	SelectRow(ctx context.Context, table, id string) (json.RawMessage, error)
	UpsertRow(ctx context.Context, table, id string, payload json.RawMessage) error
	SelectAllRows(ctx context.Context, table string) ([]model.Row, error)
}

// Service is the state sync service.
type Service struct {
	remote RowStore
	cache  localcache.Cache
	log    *zap.Logger

	inflight sync.WaitGroup
}

// New wires a sync service. A nil remote behaves like a disabled one.
func New(rs RowStore, cache localcache.Cache, log *zap.Logger) *Service {
	if rs == nil {
		rs = remote.Disabled{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{remote: rs, cache: cache, log: log}
}

// LoadState returns the state for userID. It never fails: each source's
// error is logged and the next source is tried, ending with DefaultState.
// Admins get the aggregated view when the remote store is available.
func (s *Service) LoadState(ctx context.Context, userID string, role model.Role) model.AppState {
	if role == model.RoleAdmin && s.remote.Enabled() {
		return s.LoadMasterState(ctx)
	}

	log := s.log.With(zap.String("user", userID))

	if s.remote.Enabled() && userID != "" {
		raw, err := s.remote.SelectRow(ctx, remote.StateTable, userID)
		switch {
		case err == nil:
			st, derr := state.Decode(raw)
			if derr == nil {
				log.Debug("state loaded", zap.String("source", "remote"))
				return st
			}
			if !errors.Is(derr, state.ErrEmpty) {
				log.Warn("remote state unreadable", zap.Error(derr))
			}
		case errors.Is(err, errs.ErrNotFound):
			log.Debug("no remote row")
		default:
			log.Warn("remote load failed", zap.Error(err))
		}
	}

	key := localcache.Key(userID)
	raw, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("local cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		st, derr := state.Decode(raw)
		if derr == nil {
			log.Debug("state loaded", zap.String("source", "local"))
			return st
		}
		log.Warn("local state unreadable", zap.String("key", key), zap.Error(derr))
	}

	log.Debug("state loaded", zap.String("source", "default"))
	return model.DefaultState()
}

// SaveState writes st to the local cache and then, if configured, to the
// remote store. Failures are logged and never returned.
func (s *Service) SaveState(ctx context.Context, userID string, st model.AppState) {
	log := s.log.With(zap.String("user", userID))

	raw, err := state.Encode(st)
	if err != nil {
		log.Error("encode state", zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, localcache.Key(userID), raw); err != nil {
		log.Warn("local save failed", zap.Error(err))
	}

	if !s.remote.Enabled() || userID == "" {
		return
	}
	if err := s.remote.UpsertRow(ctx, remote.StateTable, userID, raw); err != nil {
		log.Warn("remote save failed", zap.Error(err))
		return
	}
	log.Debug("state saved", zap.Int("bytes", len(raw)))
}

// SaveStateAsync runs SaveState without blocking the caller. The save is
// detached from ctx cancellation so an in-flight write is never aborted.
func (s *Service) SaveStateAsync(ctx context.Context, userID string, st model.AppState) {
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.SaveState(ctx, userID, st)
	}()
}

// Wait blocks until all saves started with SaveStateAsync have finished.
func (s *Service) Wait() { s.inflight.Wait() }
