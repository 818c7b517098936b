// Package oracle resolves the current pair price from an ordered list of
// sources with a short-lived cache and a bounded staleness fallback.
package oracle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"limitswap/internal/domain"
)

// Source is a single price provider. Price returns the pair price in quote
// units per base unit.
type Source interface {
	Name() string
	Price(ctx context.Context) (float64, error)
}

// Oracle queries sources in priority order. A result younger than the cache
// TTL is served without touching any source. When every source fails, a
// cached price no older than maxStale is served instead; past that the
// caller gets domain.ErrPriceUnavailable.
type Oracle struct {
	sources  []Source
	ttl      time.Duration
	maxStale time.Duration
	timeout  time.Duration
	log      *slog.Logger

	// now is a test hook.
	now func() time.Time

	mu       sync.Mutex
	cached   float64
	cachedAt time.Time
}

// New creates an Oracle over the given sources, highest priority first.
func New(sources []Source, ttl, maxStale, timeout time.Duration, log *slog.Logger) *Oracle {
	return &Oracle{
		sources:  sources,
		ttl:      ttl,
		maxStale: maxStale,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// Price returns the current pair price. Calls are serialized so concurrent
// callers share one source round trip.
func (o *Oracle) Price(ctx context.Context) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if !o.cachedAt.IsZero() && now.Sub(o.cachedAt) < o.ttl {
		return o.cached, nil
	}

	for _, src := range o.sources {
		price, err := o.query(ctx, src)
		if err != nil {
			o.log.Warn("price source failed", "source", src.Name(), "error", err)
			continue
		}
		o.cached = price
		o.cachedAt = now
		return price, nil
	}

	if !o.cachedAt.IsZero() && now.Sub(o.cachedAt) <= o.maxStale {
		o.log.Warn("all price sources failed, serving stale price",
			"age", now.Sub(o.cachedAt).String(), "price", o.cached)
		return o.cached, nil
	}

	return 0, domain.ErrPriceUnavailable
}

func (o *Oracle) query(ctx context.Context, src Source) (float64, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return src.Price(ctx)
}
