package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	previewKeyPrefix  = "drawdown:preview:"
	defaultPreviewTTL = 15 * time.Minute
)

// PreviewStore holds reconciliations waiting for confirmation. Take removes
// the preview atomically, so a batch can be submitted at most once.
type PreviewStore interface {
	Put(ctx context.Context, preview *domain.Preview) error
	Peek(ctx context.Context, batchID string) (*domain.Preview, bool, error)
	Take(ctx context.Context, batchID string) (*domain.Preview, bool, error)
}

type redisPreviewStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPreviewStore returns a redis store, or an in-memory one when client is nil.
func NewPreviewStore(client *redis.Client, ttl time.Duration) PreviewStore {
	if ttl <= 0 {
		ttl = defaultPreviewTTL
	}
	if client == nil {
		return NewMemoryPreviewStore(ttl)
	}
	return &redisPreviewStore{client: client, ttl: ttl}
}

func (s *redisPreviewStore) Put(ctx context.Context, preview *domain.Preview) error {
	payload, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := s.client.Set(ctx, previewKeyPrefix+preview.BatchID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisPreviewStore) Peek(ctx context.Context, batchID string) (*domain.Preview, bool, error) {
	payload, err := s.client.Get(ctx, previewKeyPrefix+batchID).Bytes()
	return decodePreview(payload, err)
}

func (s *redisPreviewStore) Take(ctx context.Context, batchID string) (*domain.Preview, bool, error) {
	payload, err := s.client.GetDel(ctx, previewKeyPrefix+batchID).Bytes()
	return decodePreview(payload, err)
}

func decodePreview(payload []byte, err error) (*domain.Preview, bool, error) {
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var preview domain.Preview
	if err := json.Unmarshal(payload, &preview); err != nil {
		return nil, false, fmt.Errorf("decode preview: %w", err)
	}
	return &preview, true, nil
}

type memoryEntry struct {
	preview   *domain.Preview
	expiresAt time.Time
}

// MemoryPreviewStore is the single-process PreviewStore.
type MemoryPreviewStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryPreviewStore(ttl time.Duration) *MemoryPreviewStore {
	if ttl <= 0 {
		ttl = defaultPreviewTTL
	}
	return &MemoryPreviewStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryPreviewStore) Put(ctx context.Context, preview *domain.Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	s.entries[preview.BatchID] = memoryEntry{preview: preview, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryPreviewStore) Peek(ctx context.Context, batchID string) (*domain.Preview, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[batchID]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.preview, true, nil
}

func (s *MemoryPreviewStore) Take(ctx context.Context, batchID string) (*domain.Preview, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[batchID]
	if !ok {
		return nil, false, nil
	}
	delete(s.entries, batchID)
	if !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.preview, true, nil
}

// caller holds mu
func (s *MemoryPreviewStore) evictExpired() {
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
