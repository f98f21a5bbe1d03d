package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the settings service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long stored settings are cached (default: 1 minute).
	CacheTTL time.Duration

	// Defaults override the built-in defaults when set.
	Defaults map[string]*Setting
}

// Subscriber is told about the new settings after every update.
type Subscriber func(Snapshot)

// Service reads settings with caching and default fallback, and notifies
// subscribers when they change.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults map[string]*Setting

	mu          sync.RWMutex
	cache       map[string]*Setting
	cacheExpiry time.Time

	// updateMu serialises updates so subscribers see them in order.
	updateMu    sync.Mutex
	subMu       sync.RWMutex
	subscribers []Subscriber
}

// NewService creates a new settings service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}

	defaults := Defaults()
	for k, v := range cfg.Defaults {
		defaults[k] = v
	}

	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository()
	}

	return &Service{
		repo:     repo,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		defaults: defaults,
	}
}

// Get returns a setting, falling back to its default. It returns nil for
// unknown keys.
func (s *Service) Get(ctx context.Context, key string) *Setting {
	return s.All(ctx)[key]
}

// All returns every setting, stored values merged over defaults.
func (s *Service) All(ctx context.Context) map[string]*Setting {
	result := make(map[string]*Setting, len(s.defaults))
	for k, v := range s.defaults {
		result[k] = v
	}
	for k, v := range s.stored(ctx) {
		if _, known := s.defaults[k]; known {
			result[k] = v
		}
	}
	return result
}

// List returns every setting ordered by key.
func (s *Service) List(ctx context.Context) []Setting {
	all := s.All(ctx)
	list := make([]Setting, 0, len(all))
	for _, v := range all {
		list = append(list, *v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

// Snapshot returns the typed view of the current settings.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	return snapshotOf(s.All(ctx))
}

// Update validates and stores the changes, then notifies subscribers.
// Nothing is stored if any update is invalid.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (Snapshot, error) {
	if len(req.Updates) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no updates", ErrInvalidValue)
	}

	changes := make([]*Setting, 0, len(req.Updates))
	for _, u := range req.Updates {
		v, err := Normalize(u)
		if err != nil {
			return Snapshot{}, err
		}
		changes = append(changes, &Setting{Key: u.Key, Value: v})
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	if err := s.repo.SetMany(ctx, changes); err != nil {
		return Snapshot{}, fmt.Errorf("store settings: %w", err)
	}
	s.InvalidateCache()

	keys := make([]string, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, c.Key)
	}
	s.logger.Info().
		Strs("keys", keys).
		Str("reason", req.Reason).
		Msg("settings updated")

	snap := s.Snapshot(ctx)
	s.notify(snap)
	return snap, nil
}

// Subscribe registers fn to run after every update.
func (s *Service) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// InvalidateCache clears cached settings, forcing a reload on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheExpiry = time.Time{}
}

// IsCachedOnlyAirQuality reports whether air quality must come from cache.
func (s *Service) IsCachedOnlyAirQuality(ctx context.Context) bool {
	return s.Get(ctx, KeyCachedOnlyAirQuality).BoolValue(false)
}

func (s *Service) notify(snap Snapshot) {
	s.subMu.RLock()
	subs := append([]Subscriber(nil), s.subscribers...)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// stored returns the repository's settings through the cache. On error
// the last cached values are kept.
func (s *Service) stored(ctx context.Context) map[string]*Setting {
	s.mu.RLock()
	if s.cache != nil && time.Now().Before(s.cacheExpiry) {
		cached := s.cache
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	settings, err := s.repo.GetAll(ctx)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			s.logger.Warn().Err(err).Msg("failed to load settings, using cached or default values")
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.cache
	}

	s.mu.Lock()
	s.cache = settings
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return settings
}
