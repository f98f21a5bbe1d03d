package settings

import "context"

// Repository defines the interface for settings storage.
type Repository interface {
	// Get retrieves a single setting by key.
	Get(ctx context.Context, key string) (*Setting, error)

	// GetAll retrieves all stored settings.
	GetAll(ctx context.Context) (map[string]*Setting, error)

	// SetMany creates or updates settings atomically.
	SetMany(ctx context.Context, settings []*Setting) error
}
