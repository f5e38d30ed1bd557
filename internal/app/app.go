// Package app assembles the components shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/cache"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/catalog"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/config"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/drawdown"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/drive"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/ingest"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/service"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/storage"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/webhook"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	SourceURL   = "url"
	SourceDrive = "drive"
)

// App holds the wired services and the handles that need closing.
type App struct {
	Inventory *service.InventoryService
	Drawdown  *service.DrawdownService
	Provider  *catalog.Provider
	// Drive is nil unless Drive credentials are configured.
	Drive *drive.Service

	redis *redis.Client
	db    *postgres.DB
}

// Options override what New would otherwise open from config.
type Options struct {
	// DB is used for the audit log instead of postgres.NewDB.
	DB *postgres.DB
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{}

	redisClient, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using local caches")
		redisClient = nil
	}
	a.redis = redisClient

	if creds := strings.TrimSpace(cfg.Catalog.DriveCredentials); creds != "" {
		svc, err := drive.NewService(ctx, creds)
		if err != nil {
			if strings.EqualFold(cfg.Catalog.Source, SourceDrive) {
				a.Close()
				return nil, fmt.Errorf("init drive: %w", err)
			}
			log.Warn().Err(err).Msg("drive: could not initialize, discovery routes disabled")
		} else {
			a.Drive = svc
		}
	}

	source, err := a.catalogSource(cfg.Catalog)
	if err != nil {
		a.Close()
		return nil, err
	}

	catalogTTL := time.Duration(cfg.Cache.CatalogTTLSeconds) * time.Second
	a.Provider = catalog.NewProvider(source, catalogTTL,
		catalog.BuildOptions{BundleFlag: cfg.Catalog.BundleFlag},
		catalog.WithRowsCache(cache.NewCatalogRowsCache(redisClient, catalogTTL)),
	)

	hook := webhook.NewClient(cfg.Webhook.URL, time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second)
	var (
		mutator  drawdown.StockMutator
		adjuster service.Adjuster
	)
	if hook.Configured() {
		mutator = hook
		adjuster = hook
	} else {
		log.Warn().Msg("webhook url not configured, only simulations are available")
	}

	history, err := a.history(ctx, cfg.Database, opts.DB)
	if err != nil {
		a.Close()
		return nil, err
	}

	archive, err := storage.New(cfg.Storage)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, archive disabled")
		archive = storage.NewNoop()
	}

	previews := cache.NewPreviewStore(redisClient, time.Duration(cfg.Cache.PreviewTTLSeconds)*time.Second)

	a.Inventory = service.NewInventoryService(a.Provider, adjuster, cfg.App.DefaultActor)
	a.Drawdown = service.NewDrawdownService(service.DrawdownDeps{
		Catalog:       a.Provider,
		Previews:      previews,
		Orchestrator:  drawdown.NewOrchestrator(mutator, drawdown.WithDefaultActor(cfg.App.DefaultActor)),
		History:       history,
		Archive:       archive,
		ArchivePrefix: cfg.Storage.Prefix,
		Ingest:        ingest.Options{MaxBytes: cfg.App.UploadMaxBytes},
	})

	return a, nil
}

func (a *App) catalogSource(cfg config.CatalogConfig) (catalog.Source, error) {
	timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", SourceURL:
		return catalog.NewSheetSource(cfg.SheetURL, timeout), nil
	case SourceDrive:
		if a.Drive == nil {
			return nil, fmt.Errorf("catalog source %q needs GOOGLE_DRIVE_CREDENTIALS_JSON", SourceDrive)
		}
		if cfg.DriveFileID == "" {
			return nil, fmt.Errorf("catalog source %q needs CATALOG_DRIVE_FILE_ID", SourceDrive)
		}
		return drive.NewCatalogSource(a.Drive, cfg.DriveFileID), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

func (a *App) history(ctx context.Context, cfg config.DatabaseConfig, db *postgres.DB) (repository.DrawdownRepository, error) {
	if db == nil && !cfg.Enabled {
		return repository.NewNoopDrawdownRepository(), nil
	}
	if db == nil {
		var err error
		db, err = postgres.NewDB(&cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}
	a.db = db
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return postgres.NewDrawdownRepository(db), nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}
}
