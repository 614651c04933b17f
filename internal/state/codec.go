// Package state holds pure transitions over model.AppState: reducers for
// user actions, the admin merge fold, and the persisted JSON codec.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/coachboard/internal/model"
)

// ErrEmpty reports a blob that carries no state (empty or JSON null).
var ErrEmpty = errors.New("empty state blob")

// Encode serializes the whole state.
func Encode(s model.AppState) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a persisted blob. Empty and null payloads yield ErrEmpty so
// callers can fall through to the next source.
func Decode(b []byte) (model.AppState, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.AppState{}, ErrEmpty
	}
	var s model.AppState
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return model.AppState{}, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}
