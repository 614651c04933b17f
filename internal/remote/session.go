package remote

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/coachboard/internal/model"
)

// SessionStore persists the current session between runs.
type SessionStore interface {
	Load() (*model.Session, error)
	Save(s model.Session) error
	Clear() error
}

// FileSessions keeps the session as JSON in a single file.
type FileSessions struct{ Path string }

// Load returns nil when no session file exists.
func (f FileSessions) Load() (*model.Session, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f FileSessions) Save(s model.Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, b, 0o600)
}

func (f FileSessions) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemorySessions keeps the session for the lifetime of the process.
type MemorySessions struct {
	mu sync.Mutex
	s  *model.Session
}

func (m *MemorySessions) Load() (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	c := *m.s
	return &c, nil
}

func (m *MemorySessions) Save(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = &s
	return nil
}

func (m *MemorySessions) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
