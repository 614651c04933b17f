// Package localcache stores serialized application state on the client device.
package localcache

import (
	"context"
	"sync"
)

// KeyPrefix namespaces state blobs in the cache.
const KeyPrefix = "coachboard_state_"

// GlobalKey is used when no user is signed in.
const GlobalKey = KeyPrefix + "global"

// Key returns the cache key for a user, or GlobalKey for an empty user id.
func Key(userID string) string {
	if userID == "" {
		return GlobalKey
	}
	return KeyPrefix + userID
}

// Cache is a durable key-value slot per user.
type Cache interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Memory is a process-local Cache.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
