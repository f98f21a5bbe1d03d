package settings

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps settings in process memory. Changes are lost
// on restart.
type InMemoryRepository struct {
	mu       sync.RWMutex
	settings map[string]*Setting
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{settings: make(map[string]*Setting)}
}

// Get retrieves a single setting by key.
func (r *InMemoryRepository) Get(_ context.Context, key string) (*Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[key]
	if !ok {
		return nil, ErrSettingNotFound
	}
	c := *s
	return &c, nil
}

// GetAll retrieves all stored settings.
func (r *InMemoryRepository) GetAll(_ context.Context) (map[string]*Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Setting, len(r.settings))
	for k, v := range r.settings {
		c := *v
		result[k] = &c
	}
	return result, nil
}

// SetMany creates or updates settings atomically.
func (r *InMemoryRepository) SetMany(_ context.Context, settings []*Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, s := range settings {
		r.settings[s.Key] = &Setting{Key: s.Key, Value: s.Value, UpdatedAt: now}
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
