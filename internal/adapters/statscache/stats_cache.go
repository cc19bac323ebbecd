package statscache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/adapters/userprovider"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/logging"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/reporting"
)

// StatsCache serves the aggregated user stats, refreshing them from the
// upstream admin API at most once per timeout window. Concurrent callers
// during a refresh attach to the in-flight refresh instead of issuing
// their own upstream calls.
type StatsCache struct {
	provider userprovider.UserProvider
	timeout  time.Duration
	nowFunc  func() time.Time

	mutex     sync.Mutex
	stats     domain.Stats
	fetchedAt time.Time
	hasValue  bool
	inflight  *refresh

	metrics statsCacheMetricsCollection
}

// One refresh cycle. Waiters block on done and read stats/err afterwards;
// both are written exactly once before done is closed.
type refresh struct {
	done  chan struct{}
	stats domain.Stats
	err   error
}

func New(provider userprovider.UserProvider, timeout time.Duration, nowFunc func() time.Time) (*StatsCache, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	meter := otel.Meter("statscache")
	metrics, err := setupStatsCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &StatsCache{
		provider: provider,
		timeout:  timeout,
		nowFunc:  nowFunc,

		metrics: metrics,
	}, nil
}

// GetStats returns the cached stats if they are fresh, and otherwise
// refreshes them through the user provider. A failed refresh is returned to
// every caller waiting on it and leaves any previously cached value
// untouched, so the next call is free to try again.
func (c *StatsCache) GetStats(ctx context.Context) (domain.Stats, error) {
	logger := logging.FromContext(ctx)

	c.mutex.Lock()

	if c.hasValue && c.nowFunc().Sub(c.fetchedAt) < c.timeout {
		stats := c.stats
		c.mutex.Unlock()

		logger.InfoContext(ctx, "Getting stats", "cache", "hit")
		c.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", "hit")))
		return stats, nil
	}

	if c.inflight != nil {
		current := c.inflight
		c.mutex.Unlock()

		logger.InfoContext(ctx, "Getting stats", "cache", "wait")
		c.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", "wait")))

		// NOTE: Deliberately not selecting on ctx here: the refresh is
		// shared, and the admin API is assumed to answer in bounded time.
		// TODO: bound the wait once the upstream call carries a timeout
		<-current.done
		return current.stats, current.err
	}

	current := &refresh{done: make(chan struct{})}
	c.inflight = current
	hadValue := c.hasValue
	c.mutex.Unlock()

	logger.InfoContext(ctx, "Getting stats", "cache", "miss")
	c.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", "miss")))

	ctx = reporting.AddExtrasToContext(ctx, map[string]string{
		"cachedValuePresent": fmt.Sprint(hadValue),
	})

	// The upstream call runs without holding the mutex so readers of a
	// fresh value are never blocked on network latency
	users, err := c.provider.ListUsers(ctx)
	now := c.nowFunc()
	if err != nil {
		// NOTE: UserProvider implementations handle their own error reporting
		current.err = fmt.Errorf("failed to refresh stats: %w", err)
	} else {
		current.stats = domain.ComputeStats(users, now)
	}

	c.mutex.Lock()
	if current.err == nil {
		c.stats = current.stats
		c.fetchedAt = now
		c.hasValue = true
	}
	// A failed refresh leaves the previous value and timestamp untouched
	c.inflight = nil
	c.mutex.Unlock()

	close(current.done)

	c.metrics.refreshCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", current.err == nil)))

	return current.stats, current.err
}

type statsCacheMetricsCollection struct {
	requestCount metric.Int64Counter
	refreshCount metric.Int64Counter
}

func setupStatsCacheMetrics(meter metric.Meter) (statsCacheMetricsCollection, error) {
	requestCount, err := meter.Int64Counter(
		"statscache/requests",
		metric.WithDescription("Stats lookups by cache outcome"),
	)
	if err != nil {
		return statsCacheMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	refreshCount, err := meter.Int64Counter(
		"statscache/refreshes",
		metric.WithDescription("Upstream refresh attempts"),
	)
	if err != nil {
		return statsCacheMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return statsCacheMetricsCollection{
		requestCount: requestCount,
		refreshCount: refreshCount,
	}, nil
}
