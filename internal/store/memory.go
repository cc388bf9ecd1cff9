package store

import (
	"context"
	"sync"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Memory is a process-lifetime Store
type Memory struct {
	mu      sync.RWMutex
	results map[string]*models.ExtractionResult
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{results: make(map[string]*models.ExtractionResult)}
}

// Get returns the latest result for recipient
func (m *Memory) Get(ctx context.Context, recipient string) (*models.ExtractionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[recipient]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *result
	return &cp, nil
}

// Upsert replaces the result cached for result.Recipient
func (m *Memory) Upsert(ctx context.Context, result *models.ExtractionResult) error {
	cp := *result

	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[result.Recipient] = &cp
	return nil
}

// List returns every cached result, newest first
func (m *Memory) List(ctx context.Context) ([]*models.ExtractionResult, error) {
	m.mu.RLock()
	results := make([]*models.ExtractionResult, 0, len(m.results))
	for _, r := range m.results {
		cp := *r
		results = append(results, &cp)
	}
	m.mu.RUnlock()

	sortNewestFirst(results)
	return results, nil
}
