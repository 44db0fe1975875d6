package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/serialization"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu       sync.RWMutex
	projects map[string][]byte
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		projects: make(map[string][]byte),
	}
}

// Save serializes the project into the mock store.
func (m *MockStore) Save(ctx context.Context, name string, project *core.Project, featureLevel int) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := serialization.Serialize(project, featureLevel)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[name] = raw
	return nil
}

// Put stores a raw document, bypassing serialization.
func (m *MockStore) Put(name string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[name] = append([]byte(nil), raw...)
}

// Raw returns a copy of the stored document.
func (m *MockStore) Raw(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.projects[name]
	return append([]byte(nil), raw...), ok
}

// Load deserializes a stored project.
func (m *MockStore) Load(ctx context.Context, name string, factory *core.Factory) (*serialization.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, ok := m.Raw(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return serialization.Deserialize(raw, factory)
}

// List returns the stored names, sorted.
func (m *MockStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.projects))
	for name := range m.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a project by name.
func (m *MockStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.projects, name)
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
