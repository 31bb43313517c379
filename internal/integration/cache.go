package integration

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/forecast"
)

// ttlCache holds the last successful result of a feed for ttl.
// Failures are never cached. A zero ttl disables caching.
type ttlCache[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	value     T
	fetchedAt time.Time
}

func (c *ttlCache[T]) get(ctx context.Context, name string, fetch func(context.Context) (T, error)) (T, error) {
	if c.ttl <= 0 {
		return fetch(ctx)
	}

	c.mu.Lock()
	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		value, fetchedAt := c.value, c.fetchedAt
		c.mu.Unlock()
		log.Printf("Using cached %s data (last updated: %s)", name, fetchedAt.Format(time.RFC3339))
		return value, nil
	}
	c.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.value = value
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return value, nil
}

// SpaceWeatherSource provides both global NOAA feeds
type SpaceWeatherSource interface {
	forecast.GeomagneticSource
	forecast.SolarWindSource
}

// CachedSpaceWeather shares the global space weather feeds between the
// forecasts of one delivery cycle, so NOAA is not asked once per subscriber.
// Cached slices are shared and must be treated as read-only.
type CachedSpaceWeather struct {
	source SpaceWeatherSource
	kp     ttlCache[[]forecast.KpEntry]
	plasma ttlCache[[]float64]
}

// NewCachedSpaceWeather wraps source. With ttl <= 0 every call goes to the source.
func NewCachedSpaceWeather(source SpaceWeatherSource, ttl time.Duration) *CachedSpaceWeather {
	c := &CachedSpaceWeather{source: source}
	c.kp.ttl, c.kp.now = ttl, time.Now
	c.plasma.ttl, c.plasma.now = ttl, time.Now
	if ttl > 0 {
		log.Printf("Space weather feeds are cached for %s", ttl)
	}
	return c
}

// FetchGeomagnetic returns the Kp-index forecast, from cache when fresh
func (c *CachedSpaceWeather) FetchGeomagnetic(ctx context.Context) ([]forecast.KpEntry, error) {
	return c.kp.get(ctx, "noaa-kp", c.source.FetchGeomagnetic)
}

// FetchSolarWind returns plasma speeds, from cache when fresh
func (c *CachedSpaceWeather) FetchSolarWind(ctx context.Context) ([]float64, error) {
	return c.plasma.get(ctx, "noaa-plasma", c.source.FetchSolarWind)
}
