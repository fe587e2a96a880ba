package events

import (
	"context"
	"strconv"
	"sync"
)

// MemoryPublisher records published payloads in memory. It backs tests and
// deployments with no broker configured.
type MemoryPublisher struct {
	mu       sync.Mutex
	payloads []any
}

// NewMemoryPublisher returns an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish appends the payload and returns its sequence number as the
// message ID.
func (m *MemoryPublisher) Publish(_ context.Context, payload any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return strconv.Itoa(len(m.payloads)), nil
}

// Payloads returns a copy of everything published so far.
func (m *MemoryPublisher) Payloads() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.payloads))
	copy(out, m.payloads)
	return out
}
