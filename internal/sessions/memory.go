package sessions

import (
	"context"
	"sync"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
)

// MemoryStore keeps session snapshots in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]draft.SessionSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]draft.SessionSnapshot)}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*draft.Session, error) {
	m.mu.RLock()
	snap, ok := m.snaps[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return draft.RestoreSession(snap), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *draft.Session) error {
	snap := s.Snapshot()
	m.mu.Lock()
	m.snaps[s.ID] = snap
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.snaps, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) IDs(ctx context.Context, roundID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.snaps))
	for id, snap := range m.snaps {
		if roundID == "" || snap.Round.ID == roundID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
