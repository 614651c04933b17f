package syncer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/model"
	"github.com/and161185/coachboard/internal/remote"
	"github.com/and161185/coachboard/internal/state"
)

// LoadMasterState folds every user's row into one admin view. A failed
// listing yields DefaultState rather than partial data; rows with an empty
// or unreadable payload are skipped.
func (s *Service) LoadMasterState(ctx context.Context) model.AppState {
	rows, err := s.remote.SelectAllRows(ctx, remote.StateTable)
	if err != nil {
		s.log.Warn("admin aggregation failed", zap.Error(err))
		return model.DefaultState()
	}

	states := make([]model.AppState, 0, len(rows))
	for _, r := range rows {
		st, err := state.Decode(r.StateJSON)
		if err != nil {
			if !errors.Is(err, state.ErrEmpty) {
				s.log.Warn("skip unreadable row", zap.String("row", r.ID), zap.Error(err))
			}
			continue
		}
		states = append(states, st)
	}
	s.log.Debug("admin aggregation", zap.Int("rows", len(rows)), zap.Int("merged", len(states)))
	return state.Merge(model.DefaultState(), states...)
}
