package stream

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory stand-in for RedisStore, mirroring the same
// XADD/XREADGROUP/XACK semantics for tests and local development without a
// real Redis. Not for production use.
type MemoryStore struct {
	mu      sync.Mutex
	streams map[string][]Entry // service -> pending (unacked, unread) entries in order
	groups  map[string]bool    // service -> group created
	seq     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[string][]Entry),
		groups:  make(map[string]bool),
	}
}

func (m *MemoryStore) EnsureGroup(service, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[service+"/"+group] = true
	return nil
}

func (m *MemoryStore) Append(service string, ticketID int64, maxLen int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := fmt.Sprintf("%d-%d", time.Now().UnixMilli(), m.seq)
	m.streams[service] = append(m.streams[service], Entry{ID: id, TicketID: ticketID})

	if maxLen > 0 && int64(len(m.streams[service])) > maxLen {
		overflow := int64(len(m.streams[service])) - maxLen
		m.streams[service] = m.streams[service][overflow:]
	}
	return id, nil
}

// ReadGroup returns and removes up to count pending entries; block is
// ignored since the in-memory queue never blocks.
func (m *MemoryStore) ReadGroup(service, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.streams[service]
	if len(entries) == 0 {
		return nil, nil
	}
	n := count
	if n > int64(len(entries)) {
		n = int64(len(entries))
	}
	out := entries[:n]
	m.streams[service] = entries[n:]
	return out, nil
}

func (m *MemoryStore) Ack(service, group, entryID string) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
