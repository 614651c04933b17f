package limiter

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory keeps failure counters in process memory with the same rules as PG.
type Memory struct {
	mu  sync.Mutex
	cfg Settings
	m   map[string]*memEntry
	now func() time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(cfg Settings) *Memory {
	if cfg.MaxFails <= 0 {
		cfg = DefaultSettings
	}
	return &Memory{cfg: cfg, m: map[string]*memEntry{}, now: time.Now}
}

func memKey(email string, ipHash []byte) string { return email + "\x00" + string(ipHash) }

func (l *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[memKey(email, ipHash)]
	if now := l.now(); ok && e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, memKey(email, ipHash))
	return nil
}

func (l *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.prune(now)
	k := memKey(email, ipHash)
	e, ok := l.m[k]
	if !ok || now.Sub(e.updatedAt) > l.cfg.Window {
		e = &memEntry{}
		l.m[k] = e
	}
	e.fails++
	e.updatedAt = now
	if e.fails < l.cfg.MaxFails {
		return false, 0, nil
	}
	e.blockedUntil = now.Add(l.cfg.BlockFor)
	return true, l.cfg.BlockFor, nil
}

// prune drops counters whose window and block have both lapsed.
func (l *Memory) prune(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.updatedAt) > l.cfg.Window && !e.blockedUntil.After(now) {
			delete(l.m, k)
		}
	}
}
