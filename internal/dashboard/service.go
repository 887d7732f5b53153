// Package dashboard is the data access layer of the market dashboard: it
// fetches backend data per filter selection, caches it in Redis and keeps
// each dashboard section's outcome independent of the others.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/filters"
)

// ErrNotReady is returned for data requests made before year and quarter
// are known.
var ErrNotReady = errors.New("dashboard: selection not ready")

// Backend is the subset of the statistics API the dashboard reads.
type Backend interface {
	Filters(ctx context.Context) (market.FilterOptions, error)
	KPIs(ctx context.Context, q market.Query) (market.KPIs, error)
	CompanyRanking(ctx context.Context, q market.Query) (market.CompanyRanking, error)
	Distribution(ctx context.Context, q market.Query, g market.Granularity) (market.Distribution, error)
}

// CacheObserver is notified of cache hits and misses per scope.
type CacheObserver interface {
	CacheHit(scope string)
	CacheMiss(scope string)
}

// Config tunes cache lifetimes.
type Config struct {
	DataTTL    time.Duration
	FiltersTTL time.Duration
}

// Service coordinates backend calls with the cache layer.
type Service struct {
	backend  Backend
	cache    *Cache
	cfg      Config
	group    singleflight.Group
	observer CacheObserver
	logger   *slog.Logger
}

// NewService wires a Backend with a Cache helper. cache may be nil.
func NewService(backend Backend, cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if cfg.DataTTL <= 0 {
		cfg.DataTTL = 5 * time.Minute
	}
	if cfg.FiltersTTL <= 0 {
		cfg.FiltersTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, cache: cache, cfg: cfg, logger: logger}
}

// WithObserver attaches cache hit/miss reporting.
func (s *Service) WithObserver(o CacheObserver) *Service {
	s.observer = o
	return s
}

// Cache exposes the cache helper for invalidation.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Filters returns the filter options offered by the backend.
func (s *Service) Filters(ctx context.Context) (market.FilterOptions, error) {
	return fetch(ctx, s, filters.ScopeFilters, filters.ScopeFilters, s.cfg.FiltersTTL,
		func(ctx context.Context) (market.FilterOptions, error) {
			return s.backend.Filters(ctx)
		})
}

// KPIs returns the market totals for sel.
func (s *Service) KPIs(ctx context.Context, sel filters.Selection) (market.KPIs, error) {
	if !sel.Ready() {
		return market.KPIs{}, ErrNotReady
	}
	return fetch(ctx, s, filters.ScopeKPIs, sel.Key(filters.ScopeKPIs), s.cfg.DataTTL,
		func(ctx context.Context) (market.KPIs, error) {
			return s.backend.KPIs(ctx, sel.Query())
		})
}

// Ranking returns the company ranking for sel, limited to sel.TopN companies.
func (s *Service) Ranking(ctx context.Context, sel filters.Selection) (market.CompanyRanking, error) {
	if !sel.Ready() {
		return market.CompanyRanking{}, ErrNotReady
	}
	return fetch(ctx, s, filters.ScopeRanking, sel.Key(filters.ScopeRanking), s.cfg.DataTTL,
		func(ctx context.Context) (market.CompanyRanking, error) {
			return s.backend.CompanyRanking(ctx, sel.RankingQuery())
		})
}

// Distribution returns the ramo split, or the subramo split when sel has a
// ramo filter.
func (s *Service) Distribution(ctx context.Context, sel filters.Selection) (market.Distribution, error) {
	if !sel.Ready() {
		return market.Distribution{}, ErrNotReady
	}
	return fetch(ctx, s, filters.ScopeDistribution, sel.Key(filters.ScopeDistribution), s.cfg.DataTTL,
		func(ctx context.Context) (market.Distribution, error) {
			return s.backend.Distribution(ctx, sel.Query(), sel.Granularity())
		})
}

// Section is the outcome of one dashboard query. Key identifies the request
// that produced it, so a section can never be paired with another
// selection's data.
type Section[T any] struct {
	Key  string
	Data T
	Err  error
	Idle bool
}

// OK reports whether the section holds data.
func (s Section[T]) OK() bool {
	return !s.Idle && s.Err == nil
}

// Snapshot holds every data section of the dashboard for one selection.
type Snapshot struct {
	Selection    filters.Selection
	KPIs         Section[market.KPIs]
	Ranking      Section[market.CompanyRanking]
	Distribution Section[market.Distribution]
}

// Load fetches all data sections for sel concurrently. A failure in one
// section is recorded on that section only.
func (s *Service) Load(ctx context.Context, sel filters.Selection) Snapshot {
	snap := Snapshot{
		Selection:    sel,
		KPIs:         Section[market.KPIs]{Key: sel.Key(filters.ScopeKPIs)},
		Ranking:      Section[market.CompanyRanking]{Key: sel.Key(filters.ScopeRanking)},
		Distribution: Section[market.Distribution]{Key: sel.Key(filters.ScopeDistribution)},
	}
	if !sel.Ready() {
		snap.KPIs.Idle = true
		snap.Ranking.Idle = true
		snap.Distribution.Idle = true
		return snap
	}

	var g errgroup.Group
	g.Go(func() error {
		snap.KPIs.Data, snap.KPIs.Err = s.KPIs(ctx, sel)
		return nil
	})
	g.Go(func() error {
		snap.Ranking.Data, snap.Ranking.Err = s.Ranking(ctx, sel)
		return nil
	})
	g.Go(func() error {
		snap.Distribution.Data, snap.Distribution.Err = s.Distribution(ctx, sel)
		return nil
	})
	_ = g.Wait()
	return snap
}

// Invalidate drops every cached response by bumping the cache version.
func (s *Service) Invalidate(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: bump cache: %w", err)
	}
	s.logger.Info("dashboard cache invalidated", slog.Int64("version", ver))
	return nil
}

// fetch coalesces concurrent identical requests and reads through the cache.
// The shared call runs detached from the first caller's cancellation so its
// result stays valid for every waiter; each caller still stops waiting when
// its own context ends.
func fetch[T any](ctx context.Context, s *Service, scope, key string, ttl time.Duration, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	cacheKey, err := s.cache.BuildKey(ctx, "dashboard", key)
	if err != nil {
		s.logger.Warn("dashboard cache version unavailable", slog.String("scope", scope), slog.Any("error", err))
		cacheKey = "dashboard:" + key
	}

	ch := s.group.DoChan(cacheKey, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		var out T
		hit, err := s.cache.FetchJSON(shared, cacheKey, ttl, &out, func(ctx context.Context) (any, error) {
			return loader(ctx)
		})
		if errors.Is(err, ErrCacheUnavailable) {
			s.logger.Warn("dashboard cache unavailable, loading directly", slog.String("scope", scope), slog.Any("error", err))
			out, err = loader(shared)
		}
		if err != nil {
			return zero, err
		}
		s.observe(scope, hit)
		return out, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (s *Service) observe(scope string, hit bool) {
	if s.observer == nil {
		return
	}
	if hit {
		s.observer.CacheHit(scope)
		return
	}
	s.observer.CacheMiss(scope)
}
