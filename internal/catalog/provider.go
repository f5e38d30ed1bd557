package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

// RowsCache shares raw catalog rows between processes. Implementations
// report a miss with ok=false and a nil error.
type RowsCache interface {
	GetRows(ctx context.Context) ([]Row, bool, error)
	SetRows(ctx context.Context, rows []Row) error
	Invalidate(ctx context.Context) error
}

// Provider serves a catalog built from Source, cached for TTL. A failed
// fetch is returned to the caller as is; no stale catalog is served.
type Provider struct {
	source Source
	shared RowsCache
	opts   BuildOptions
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	current  *domain.Catalog
	loadedAt time.Time

	group singleflight.Group
}

type ProviderOption func(*Provider)

// WithRowsCache adds a shared cache consulted before the source.
func WithRowsCache(c RowsCache) ProviderOption {
	return func(p *Provider) { p.shared = c }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) { p.now = now }
}

func NewProvider(source Source, ttl time.Duration, opts BuildOptions, options ...ProviderOption) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	p := &Provider{
		source: source,
		opts:   opts,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Get returns the cached catalog while it is younger than the TTL, otherwise
// reloads it. Concurrent reloads are coalesced into a single fetch.
func (p *Provider) Get(ctx context.Context) (*domain.Catalog, error) {
	p.mu.RLock()
	cat, loadedAt := p.current, p.loadedAt
	p.mu.RUnlock()

	if cat != nil && p.now().Sub(loadedAt) < p.ttl {
		return cat, nil
	}

	v, err, _ := p.group.Do("catalog", func() (interface{}, error) {
		return p.reload(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Catalog), nil
}

// Invalidate drops the local catalog and the shared rows.
func (p *Provider) Invalidate(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.loadedAt = time.Time{}
	p.mu.Unlock()

	if p.shared != nil {
		return p.shared.Invalidate(ctx)
	}
	return nil
}

// LoadedAt reports when the current catalog was built; zero when none is cached.
func (p *Provider) LoadedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadedAt
}

func (p *Provider) reload(ctx context.Context) (*domain.Catalog, error) {
	rows, err := p.rows(ctx)
	if err != nil {
		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
		return nil, err
	}

	cat := Build(rows, p.opts)

	p.mu.Lock()
	p.current = cat
	p.loadedAt = p.now()
	p.mu.Unlock()

	log.Debug().Int("skus", cat.Len()).Msg("catalog: reloaded")
	return cat, nil
}

func (p *Provider) rows(ctx context.Context) ([]Row, error) {
	if p.shared != nil {
		rows, ok, err := p.shared.GetRows(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("catalog: shared cache get failed")
		} else if ok {
			return rows, nil
		}
	}

	rows, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if p.shared != nil {
		if err := p.shared.SetRows(ctx, rows); err != nil {
			log.Warn().Err(err).Msg("catalog: shared cache set failed")
		}
	}
	return rows, nil
}
