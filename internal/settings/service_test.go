package settings_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airas/airas/internal/banding"
	"github.com/airas/airas/internal/settings"
)

func newService(repo settings.Repository) *settings.Service {
	return settings.NewService(settings.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
	})
}

// failingRepository fails every call after the first broken flag is set.
type failingRepository struct {
	*settings.InMemoryRepository
	broken atomic.Bool
	loads  atomic.Int32
}

func (r *failingRepository) GetAll(ctx context.Context) (map[string]*settings.Setting, error) {
	r.loads.Add(1)
	if r.broken.Load() {
		return nil, errors.New("connection refused")
	}
	return r.InMemoryRepository.GetAll(ctx)
}

func (r *failingRepository) SetMany(ctx context.Context, s []*settings.Setting) error {
	if r.broken.Load() {
		return errors.New("connection refused")
	}
	return r.InMemoryRepository.SetMany(ctx, s)
}

func TestService_Defaults(t *testing.T) {
	svc := newService(settings.NewInMemoryRepository())
	ctx := context.Background()

	snap := svc.Snapshot(ctx)
	assert.True(t, snap.AutoRefresh)
	assert.Equal(t, 15*time.Minute, snap.RefreshInterval)
	assert.Equal(t, banding.ScaleEuropean, snap.AQIScale)
	assert.False(t, snap.CachedOnlyAirQuality)

	list := svc.List(ctx)
	require.Len(t, list, 4)
	assert.Equal(t, settings.KeyAQIScale, list[0].Key)
	assert.Equal(t, settings.KeyRefreshIntervalMinutes, list[3].Key)

	assert.Nil(t, svc.Get(ctx, "routing_bike_only"))
}

func TestService_Update(t *testing.T) {
	svc := newService(settings.NewInMemoryRepository())
	ctx := context.Background()

	snap, err := svc.Update(ctx, settings.UpdateRequest{
		Updates: []settings.Update{
			{Key: settings.KeyRefreshIntervalMinutes, Value: float64(5)},
			{Key: settings.KeyAQIScale, Value: "us"},
			{Key: settings.KeyCachedOnlyAirQuality, Value: true},
		},
		Reason: "provider maintenance",
	})
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, snap.RefreshInterval)
	assert.Equal(t, banding.ScaleUS, snap.AQIScale)
	assert.True(t, snap.CachedOnlyAirQuality)
	assert.True(t, svc.IsCachedOnlyAirQuality(ctx))
	assert.Equal(t, snap, svc.Snapshot(ctx))
}

func TestService_UpdateValidation(t *testing.T) {
	tests := []struct {
		name   string
		update settings.Update
		target error
	}{
		{name: "unknown key", update: settings.Update{Key: "disable_train_mode", Value: true}, target: settings.ErrUnknownSetting},
		{name: "bool as string", update: settings.Update{Key: settings.KeyAutoRefresh, Value: "yes"}, target: settings.ErrInvalidValue},
		{name: "interval too small", update: settings.Update{Key: settings.KeyRefreshIntervalMinutes, Value: float64(0)}, target: settings.ErrInvalidValue},
		{name: "interval too large", update: settings.Update{Key: settings.KeyRefreshIntervalMinutes, Value: float64(24*60 + 1)}, target: settings.ErrInvalidValue},
		{name: "fractional interval", update: settings.Update{Key: settings.KeyRefreshIntervalMinutes, Value: 2.5}, target: settings.ErrInvalidValue},
		{name: "interval as string", update: settings.Update{Key: settings.KeyRefreshIntervalMinutes, Value: "5"}, target: settings.ErrInvalidValue},
		{name: "unknown scale", update: settings.Update{Key: settings.KeyAQIScale, Value: "china"}, target: settings.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(settings.NewInMemoryRepository())
			ctx := context.Background()

			_, err := svc.Update(ctx, settings.UpdateRequest{Updates: []settings.Update{
				{Key: settings.KeyAutoRefresh, Value: false},
				tt.update,
			}})
			assert.ErrorIs(t, err, tt.target)

			// Nothing is applied when any update is invalid.
			assert.True(t, svc.Snapshot(ctx).AutoRefresh)
		})
	}
}

func TestService_UpdateEmpty(t *testing.T) {
	svc := newService(settings.NewInMemoryRepository())
	_, err := svc.Update(context.Background(), settings.UpdateRequest{})
	assert.ErrorIs(t, err, settings.ErrInvalidValue)
}

func TestService_Subscribers(t *testing.T) {
	svc := newService(settings.NewInMemoryRepository())
	ctx := context.Background()

	var got []settings.Snapshot
	svc.Subscribe(func(s settings.Snapshot) { got = append(got, s) })

	_, err := svc.Update(ctx, settings.UpdateRequest{Updates: []settings.Update{{Key: settings.KeyAutoRefresh, Value: false}}})
	require.NoError(t, err)
	_, err = svc.Update(ctx, settings.UpdateRequest{Updates: []settings.Update{{Key: settings.KeyRefreshIntervalMinutes, Value: 30}}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.False(t, got[0].AutoRefresh)
	assert.Equal(t, 15*time.Minute, got[0].RefreshInterval)
	assert.False(t, got[1].AutoRefresh)
	assert.Equal(t, 30*time.Minute, got[1].RefreshInterval)

	// Failed updates notify nobody.
	_, err = svc.Update(ctx, settings.UpdateRequest{Updates: []settings.Update{{Key: "nope", Value: 1}}})
	require.Error(t, err)
	assert.Len(t, got, 2)
}

func TestService_CachesRepository(t *testing.T) {
	repo := &failingRepository{InMemoryRepository: settings.NewInMemoryRepository()}
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.Update(ctx, settings.UpdateRequest{Updates: []settings.Update{{Key: settings.KeyAQIScale, Value: "us"}}})
	require.NoError(t, err)

	loads := repo.loads.Load()
	for i := 0; i < 5; i++ {
		assert.Equal(t, banding.ScaleUS, svc.Snapshot(ctx).AQIScale)
	}
	assert.Equal(t, loads, repo.loads.Load(), "reads within the TTL hit the cache")

	// Within the TTL a broken repository is not consulted.
	repo.broken.Store(true)
	assert.Equal(t, banding.ScaleUS, svc.Snapshot(ctx).AQIScale)

	// After invalidation there is nothing cached, so defaults apply.
	svc.InvalidateCache()
	assert.Equal(t, banding.ScaleEuropean, svc.Snapshot(ctx).AQIScale)

	_, err = svc.Update(ctx, settings.UpdateRequest{Updates: []settings.Update{{Key: settings.KeyAutoRefresh, Value: false}}})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSetting_Values(t *testing.T) {
	var missing *settings.Setting
	assert.True(t, missing.BoolValue(true))
	assert.Equal(t, 7, missing.IntValue(7))
	assert.Equal(t, "x", missing.StringValue("x"))

	s := &settings.Setting{Value: float64(12)}
	assert.Equal(t, 12, s.IntValue(0))
	assert.True(t, s.BoolValue(false))
	assert.Equal(t, "def", s.StringValue("def"))
}
