package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/sawpanic/signalrun/internal/signal"
)

// MemoryStore is an in-process SignalStore used when no database is configured
type MemoryStore struct {
	mu      sync.RWMutex
	signals map[string]signal.Signal
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{signals: make(map[string]signal.Signal)}
}

func (m *MemoryStore) Insert(ctx context.Context, s *signal.Signal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.signals[s.AuditID]; ok {
		return false, nil
	}
	cp := *s
	cp.Reasons = append([]string(nil), s.Reasons...)
	m.signals[s.AuditID] = cp
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, auditID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.signals, auditID)
	return nil
}

func (m *MemoryStore) GetByAuditID(ctx context.Context, auditID string) (*signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.signals[auditID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) List(ctx context.Context, tr TimeRange, limit int) ([]*signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*signal.Signal
	for _, s := range m.signals {
		if tr.Contains(s.GeneratedAt) {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].AuditID < out[j].AuditID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CountBySetup(ctx context.Context, tr TimeRange) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, s := range m.signals {
		if tr.Contains(s.GeneratedAt) {
			counts[string(s.Setup)]++
		}
	}
	return counts, nil
}
