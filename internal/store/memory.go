package store

import (
	"context"
	"sync"
)

// Memory keeps everything in a map. Used by tests and for DSN-less dev
// runs; same contract as the gorm store.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]SessionRecord
	events   map[string][]EventRecord
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]SessionRecord),
		events:   make(map[string][]EventRecord),
	}
}

func (m *Memory) SaveSession(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.ID] = rec
	return nil
}

func (m *Memory) AppendEvents(_ context.Context, events []EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.events[e.SessionID] = append(m.events[e.SessionID], e)
	}
	return nil
}

func (m *Memory) LoadSession(_ context.Context, id string) (SessionRecord, []EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return SessionRecord{}, nil, ErrNotFound
	}
	events := make([]EventRecord, len(m.events[id]))
	copy(events, m.events[id])
	return rec, events, nil
}

func (m *Memory) ListActive(_ context.Context) ([]SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SessionRecord
	for _, rec := range m.sessions {
		if rec.Status != "ended" {
			out = append(out, rec)
		}
	}
	return out, nil
}
