package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/airas/airas/internal/airquality"
)

// ProviderMetrics records upstream provider calls. It satisfies the
// resilience client's request observer.
type ProviderMetrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewProviderMetrics creates the provider instruments on meter.
func NewProviderMetrics(meter metric.Meter) (*ProviderMetrics, error) {
	requests, err := meter.Int64Counter(
		"airas.provider.requests",
		metric.WithDescription("Upstream provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"airas.provider.failures",
		metric.WithDescription("Upstream provider requests that failed or returned 5xx"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"airas.provider.duration",
		metric.WithDescription("Upstream provider latency including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{requests: requests, failures: failures, duration: duration}, nil
}

// ObserveRequest records one provider call.
func (m *ProviderMetrics) ObserveRequest(ctx context.Context, provider string, statusCode int, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", statusClass(statusCode, err)),
	)

	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if err != nil || statusCode >= 500 {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
	}
}

func statusClass(code int, err error) string {
	if err != nil || code == 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}

// CacheSource reports the state of the report cache.
type CacheSource interface {
	CacheStatus() airquality.CacheStatus
}

// RegisterCacheMetrics exposes cached location counts and data age as
// observable gauges read from source at each collection.
func RegisterCacheMetrics(meter metric.Meter, source CacheSource, now func() time.Time) error {
	entries, err := meter.Int64ObservableGauge(
		"airas.cache.locations",
		metric.WithDescription("Cached report locations by freshness"),
		metric.WithUnit("{location}"),
	)
	if err != nil {
		return err
	}
	age, err := meter.Float64ObservableGauge(
		"airas.cache.newest_age",
		metric.WithDescription("Age of the most recently fetched report"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := source.CacheStatus()
		fresh := st.Locations - st.Expired
		expired := max(st.Expired-st.Stale, 0)
		o.ObserveInt64(entries, int64(fresh), metric.WithAttributes(attribute.String("state", "fresh")))
		o.ObserveInt64(entries, int64(expired), metric.WithAttributes(attribute.String("state", "expired")))
		o.ObserveInt64(entries, int64(st.Stale), metric.WithAttributes(attribute.String("state", "stale")))
		if st.HasData {
			o.ObserveFloat64(age, now().Sub(st.NewestFetchedAt).Seconds())
		}
		return nil
	}, entries, age)
	return err
}
