package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is a process-local Store. Documents are held encoded, so callers
// never share backing arrays with what was saved.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
	// FailSave, when set, is consulted before every Save.
	FailSave func(name string) error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, name string, v any) error {
	m.mu.RLock()
	data, ok := m.docs[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (m *Memory) Save(_ context.Context, name string, v any) error {
	if err := validName(name); err != nil {
		return err
	}
	if m.FailSave != nil {
		if err := m.FailSave(name); err != nil {
			return err
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	m.mu.Lock()
	m.docs[name] = data
	m.mu.Unlock()
	return nil
}

// Raw returns the encoded document, if any.
func (m *Memory) Raw(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[name]
	return data, ok
}

// Put stores an already-encoded document.
func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	m.docs[name] = data
	m.mu.Unlock()
}

func (m *Memory) Close() error { return nil }
