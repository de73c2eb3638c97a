// Package geocache caches forward-geocoding responses in front of a provider.
package geocache

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
	"github.com/couchcryptid/outage-alert-service/internal/observability"
)

// Backend stores geocoding responses by normalized query.
type Backend interface {
	Get(ctx context.Context, key string) (domain.GeocodeResponse, bool, error)
	Set(ctx context.Context, key string, resp domain.GeocodeResponse) error
	// Name labels the backend in metrics.
	Name() string
}

// CachedGeocoder wraps a Geocoder with a response cache. Only usable
// responses are stored so a transient ZERO_RESULTS can be retried later.
type CachedGeocoder struct {
	inner   domain.Geocoder
	backend Backend
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, backend Backend, metrics *observability.Metrics, logger *slog.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		backend: backend,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.GeocodeResponse, error) {
	key := cacheKey(address)
	name := c.backend.Name()

	resp, ok, err := c.backend.Get(ctx, key)
	switch {
	case err != nil:
		// A broken cache must not block geocoding.
		c.metrics.GeocodeCache.WithLabelValues(name, "error").Inc()
		c.logger.Warn("geocode cache read failed", "backend", name, "error", err)
	case ok:
		c.metrics.GeocodeCache.WithLabelValues(name, "hit").Inc()
		return resp, nil
	default:
		c.metrics.GeocodeCache.WithLabelValues(name, "miss").Inc()
	}

	resp, err = c.inner.Geocode(ctx, address)
	if err != nil {
		return resp, err
	}
	if resp.Usable() {
		if err := c.backend.Set(ctx, key, resp); err != nil {
			c.metrics.GeocodeCache.WithLabelValues(name, "error").Inc()
			c.logger.Warn("geocode cache write failed", "backend", name, "error", err)
		}
	}
	return resp, nil
}

// cacheKey folds case and whitespace so trivially different spellings of the
// same query share an entry.
func cacheKey(address string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}
