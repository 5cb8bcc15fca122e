package quota

import (
	"context"
	"sync"
	"time"
)

type record struct {
	day       string
	remaining int
}

// MemoryManager is the in-process Manager used when Redis is not configured
// and in tests. A single mutex serializes all counter mutations, which keeps
// authorize-then-consume races within one process impossible to observe.
type MemoryManager struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]*record
}

// NewMemoryManager creates an in-memory manager. now may be nil, defaulting
// to time.Now.
func NewMemoryManager(now func() time.Time) *MemoryManager {
	if now == nil {
		now = time.Now
	}
	return &MemoryManager{now: now, records: make(map[string]*record)}
}

// roll fetches the identity's record, creating or hard-resetting it when the
// stored day differs from today. Callers must hold the mutex.
func (m *MemoryManager) roll(identity string, allowance int) *record {
	today := dayKey(m.now())
	rec, ok := m.records[identity]
	if !ok || rec.day != today {
		rec = &record{day: today, remaining: allowance}
		m.records[identity] = rec
	}
	return rec
}

func (m *MemoryManager) Authorize(_ context.Context, identity string, allowance int) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.roll(identity, allowance)
	return Result{Allowed: rec.remaining > 0, Remaining: rec.remaining}, nil
}

func (m *MemoryManager) Consume(_ context.Context, identity string, allowance int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.roll(identity, allowance)
	if rec.remaining > 0 {
		rec.remaining--
	}
	return nil
}
