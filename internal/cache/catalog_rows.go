package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/catalog"
	"github.com/redis/go-redis/v9"
)

const (
	catalogKeyPrefix  = "catalog:"
	catalogRowsKey    = catalogKeyPrefix + "rows"
	defaultCatalogTTL = 30 * time.Second
)

type redisCatalogRowsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCatalogRowsCache struct{}

// NewCatalogRowsCache shares the raw sheet rows between API instances so a
// refresh cycle hits the sheet once. A nil client yields the noop cache.
func NewCatalogRowsCache(client *redis.Client, ttl time.Duration) catalog.RowsCache {
	if client == nil {
		return &noopCatalogRowsCache{}
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &redisCatalogRowsCache{client: client, ttl: ttl}
}

func (c *redisCatalogRowsCache) GetRows(ctx context.Context) ([]catalog.Row, bool, error) {
	payload, err := c.client.Get(ctx, catalogRowsKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rows []catalog.Row
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, fmt.Errorf("decode cached catalog rows: %w", err)
	}
	return rows, true, nil
}

func (c *redisCatalogRowsCache) SetRows(ctx context.Context, rows []catalog.Row) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode catalog rows: %w", err)
	}
	if err := c.client.Set(ctx, catalogRowsKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisCatalogRowsCache) Invalidate(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, catalogKeyPrefix)
}

func (n *noopCatalogRowsCache) GetRows(ctx context.Context) ([]catalog.Row, bool, error) {
	return nil, false, nil
}

func (n *noopCatalogRowsCache) SetRows(ctx context.Context, rows []catalog.Row) error {
	return nil
}

func (n *noopCatalogRowsCache) Invalidate(ctx context.Context) error {
	return nil
}
