package budget

import (
	"context"
	"sync"
	"time"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
)

// memCounterStore is an in-memory CounterStore with per-key creation TTLs.
type memCounterStore struct {
	mu      sync.Mutex
	data    map[string]int64
	calls   int
	addErr  error
	getErr  error
	lastKey string
}

func newMemCounterStore() *memCounterStore {
	return &memCounterStore{data: make(map[string]int64)}
}

func (m *memCounterStore) Add(_ context.Context, key string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastKey = key
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.data[key] += amount
	return m.data[key], nil
}

func (m *memCounterStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	// 10s into a minute so small advances stay in the same bucket.
	return &fakeClock{t: time.UnixMilli(1_700_000_040_000).Add(10 * time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// stubTaker returns canned limiter results.
type stubTaker struct {
	decision budget.Decision
	err      error
	calls    int
}

func (s *stubTaker) TakeTokens(context.Context, budget.Kind, string, int64) (budget.Decision, error) {
	s.calls++
	return s.decision, s.err
}
