package upload

import (
	"context"
	"sync"
)

// MemoryProvider keeps saved objects in a map. It backs tests and local
// development runs where no bucket is available.
type MemoryProvider struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryProvider returns an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{objects: make(map[string][]byte)}
}

// Save stores a copy of data under objectName.
func (m *MemoryProvider) Save(_ context.Context, objectName string, data []byte, contentType string) (Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[objectName] = buf
	return Object{
		URL:         "memory://" + objectName,
		FileName:    objectName,
		FileSize:    len(data),
		ContentType: contentType,
	}, nil
}

// Get returns a stored object's bytes.
func (m *MemoryProvider) Get(objectName string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectName]
	return data, ok
}

// Len reports how many objects have been saved.
func (m *MemoryProvider) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
