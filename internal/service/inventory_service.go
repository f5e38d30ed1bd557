package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/report"
	"github.com/rs/zerolog/log"
)

// CatalogProvider is satisfied by *catalog.Provider.
type CatalogProvider interface {
	Get(ctx context.Context) (*domain.Catalog, error)
	Invalidate(ctx context.Context) error
	LoadedAt() time.Time
}

// Adjuster performs a single entrada/saida outside of a batch.
type Adjuster interface {
	Adjust(ctx context.Context, code string, quantity int, direction domain.Direction, actor string) (domain.MutationResponse, error)
}

type InventoryService struct {
	catalog      CatalogProvider
	adjuster     Adjuster
	defaultActor string
}

// NewInventoryService accepts a nil adjuster; Adjust then fails with ErrNoAdjuster.
func NewInventoryService(provider CatalogProvider, adjuster Adjuster, defaultActor string) *InventoryService {
	if defaultActor == "" {
		defaultActor = "sistema"
	}
	return &InventoryService{catalog: provider, adjuster: adjuster, defaultActor: defaultActor}
}

func (s *InventoryService) Catalog(ctx context.Context) (*domain.Catalog, error) {
	return loadCatalog(ctx, s.catalog)
}

func (s *InventoryService) List(ctx context.Context, filter report.Filter) ([]report.Item, error) {
	items, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(items), nil
}

func (s *InventoryService) Summary(ctx context.Context, filter report.Filter) (report.Summary, error) {
	items, err := s.List(ctx, filter)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(items), nil
}

func (s *InventoryService) Categories(ctx context.Context) ([]string, error) {
	cat, err := loadCatalog(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	categories := cat.Categories()
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *InventoryService) Bundles(ctx context.Context) ([]domain.SKU, error) {
	cat, err := loadCatalog(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	bundles := cat.Bundles()
	if bundles == nil {
		bundles = []domain.SKU{}
	}
	return bundles, nil
}

func (s *InventoryService) Critical(ctx context.Context) (report.CriticalReport, error) {
	items, err := s.items(ctx)
	if err != nil {
		return report.CriticalReport{}, err
	}
	return report.Critical(items), nil
}

func (s *InventoryService) ByCategory(ctx context.Context) ([]report.CategoryStats, error) {
	items, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	return report.ByCategory(items), nil
}

// Refresh drops the cached catalog and loads it again.
func (s *InventoryService) Refresh(ctx context.Context) (*domain.Catalog, error) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("inventory: catalog invalidate failed")
	}
	return loadCatalog(ctx, s.catalog)
}

// Adjust moves stock of one catalog SKU. The catalog is invalidated after a
// successful call so the next read reflects the new stock.
func (s *InventoryService) Adjust(ctx context.Context, code string, quantity int, direction domain.Direction, actor string) (domain.MutationResponse, error) {
	if s.adjuster == nil {
		return domain.MutationResponse{}, ErrNoAdjuster
	}

	cat, err := loadCatalog(ctx, s.catalog)
	if err != nil {
		return domain.MutationResponse{}, err
	}
	sku, ok := cat.Get(code)
	if !ok {
		return domain.MutationResponse{}, fmt.Errorf("%w: %s", ErrUnknownSKU, domain.NormalizeCode(code))
	}

	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = s.defaultActor
	}

	resp, err := s.adjuster.Adjust(ctx, sku.Code, quantity, direction, actor)
	if err != nil {
		return domain.MutationResponse{}, err
	}

	log.Info().
		Str("sku", sku.Code).
		Int("quantity", quantity).
		Str("direction", string(direction)).
		Str("actor", actor).
		Bool("success", resp.Success).
		Msg("inventory: stock adjusted")

	if resp.Success {
		if err := s.catalog.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("inventory: catalog invalidate failed")
		}
	}
	return resp, nil
}

func (s *InventoryService) items(ctx context.Context) ([]report.Item, error) {
	cat, err := loadCatalog(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	return report.Annotate(cat), nil
}

func loadCatalog(ctx context.Context, provider CatalogProvider) (*domain.Catalog, error) {
	cat, err := provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, ErrCatalogNotLoaded
	}
	return cat, nil
}
