package store

import (
	"context"
	"fmt"
	"time"

	"cpq-console/internal/common/database"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/models"
)

// CachedBackend serves List calls for slow-changing reference collections
// from Redis. Any mutation through it drops the cached pages.
type CachedBackend[T any] struct {
	Backend[T]
	kv     *database.RedisClient
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedBackend[T any](inner Backend[T], kv *database.RedisClient, name string, ttl time.Duration, log logger.Logger) *CachedBackend[T] {
	return &CachedBackend[T]{
		Backend: inner,
		kv:      kv,
		prefix:  "cpq:ref:" + name,
		ttl:     ttl,
		logger:  log,
	}
}

func (b *CachedBackend[T]) key(p models.ListParams) string {
	return fmt.Sprintf("%s:%d:%d:%s", b.prefix, p.Page, p.Limit, p.Query)
}

func (b *CachedBackend[T]) List(ctx context.Context, p models.ListParams) (*models.Page[T], error) {
	var cached models.Page[T]
	err := b.kv.GetJSON(ctx, b.key(p), &cached)
	if err == nil {
		return &cached, nil
	}
	if err != database.ErrKeyNotFound {
		b.logger.Warn("Reference cache read failed", map[string]interface{}{"key": b.key(p), "error": err.Error()})
	}

	page, err := b.Backend.List(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := b.kv.SetJSON(ctx, b.key(p), page, b.ttl); err != nil {
		b.logger.Warn("Reference cache write failed", map[string]interface{}{"key": b.key(p), "error": err.Error()})
	}
	return page, nil
}

func (b *CachedBackend[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	defer b.invalidate(ctx)
	return b.Backend.Create(ctx, payload)
}

func (b *CachedBackend[T]) Update(ctx context.Context, id string, payload interface{}) (T, error) {
	defer b.invalidate(ctx)
	return b.Backend.Update(ctx, id, payload)
}

func (b *CachedBackend[T]) Delete(ctx context.Context, id string) error {
	defer b.invalidate(ctx)
	return b.Backend.Delete(ctx, id)
}

func (b *CachedBackend[T]) SetStatus(ctx context.Context, id string, status models.Status) (T, error) {
	defer b.invalidate(ctx)
	return b.Backend.SetStatus(ctx, id, status)
}

func (b *CachedBackend[T]) invalidate(ctx context.Context) {
	iter := b.kv.Client.Scan(ctx, 0, b.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		b.logger.Warn("Reference cache scan failed", map[string]interface{}{"prefix": b.prefix, "error": err.Error()})
		return
	}
	if len(keys) > 0 {
		_ = b.kv.Del(ctx, keys...)
	}
}
