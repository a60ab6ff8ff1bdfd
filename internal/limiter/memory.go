package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
)

type entry struct {
	fails        int
	blockedUntil time.Time
	updatedAt    time.Time
}

// Memory is an in-process limiter used with the memory storage backend.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	policy  Policy
	clock   clock.Clock
}

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy, clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{entries: make(map[string]*entry), policy: p, clock: clk}
}

func memKey(email string, ipHash []byte) string { return NormalizeEmail(email) + "|" + string(ipHash) }

// Allow reports whether login is currently allowed and a retry-after duration.
func (m *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[memKey(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := m.clock.Now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success clears the counters.
func (m *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memKey(email, ipHash)] = &entry{updatedAt: m.clock.Now()}
	return nil
}

// Failure records a failed attempt; may set a block until a future time.
func (m *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	k := memKey(email, ipHash)
	e, ok := m.entries[k]
	if !ok || now.Sub(e.updatedAt) > m.policy.Window {
		e = &entry{}
		m.entries[k] = e
	}
	e.fails++
	e.updatedAt = now
	if e.fails < m.policy.MaxFails {
		return false, 0, nil
	}
	e.blockedUntil = now.Add(m.policy.BlockFor)
	return true, m.policy.BlockFor, nil
}

// Purge drops stale entries whose block has expired.
func (m *Memory) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var n int64
	for k, e := range m.entries {
		if e.updatedAt.Before(before) && !e.blockedUntil.After(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}
