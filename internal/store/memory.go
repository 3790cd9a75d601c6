package store

import (
	"context"
	"sync"

	"siteflow/internal/domain"
)

// Memory holds encoded contexts in a map so callers never share the
// result maps of a stored record.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, projectName string) (domain.ProjectContext, error) {
	m.mu.RLock()
	data, ok := m.items[projectName]
	m.mu.RUnlock()
	if !ok {
		return domain.ProjectContext{}, ErrNotFound
	}
	return decode(projectName, data)
}

func (m *Memory) FindByPartialName(_ context.Context, pattern string) ([]domain.ProjectContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []domain.ProjectContext{}
	for name, data := range m.items {
		if !matches(name, pattern) {
			continue
		}
		pc, err := decode(name, data)
		if err != nil {
			return nil, err
		}
		res = append(res, pc)
	}
	sortByName(res)
	return res, nil
}

func (m *Memory) Save(_ context.Context, pc domain.ProjectContext) error {
	data, err := encode(pc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[pc.ProjectName] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, projectName string) error {
	m.mu.Lock()
	delete(m.items, projectName)
	m.mu.Unlock()
	return nil
}
