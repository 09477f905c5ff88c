package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// The resolution hot path performs at most one tenant lookup and one
// domain lookup per request, so those two reads are the only ones cached.
// Redis being down is never an error: the decorators fall through to
// postgres.

const (
	cacheTTL         = 5 * time.Minute
	negativeCacheTTL = 30 * time.Second
	negativeMarker   = "-"
)

type cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func (c *cache) lookup(ctx context.Context, key string, dst any) (found, negative bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false, false
	}
	if string(raw) == negativeMarker {
		return true, true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Debug("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false, false
	}
	return true, false
}

func (c *cache) put(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *cache) putNegative(ctx context.Context, key string) {
	if err := c.rdb.Set(ctx, key, negativeMarker, negativeCacheTTL).Err(); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *cache) drop(ctx context.Context, keys ...string) {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func tenantSlugKey(slug string) string { return "qalileo:tenant:slug:" + slug }

func domainHostKey(hostname string) string { return "qalileo:domain:" + hostname }

// CachedTenantStore decorates a TenantStore with a read-through cache on
// the slug lookup used by hostname resolution.
type CachedTenantStore struct {
	inner domain.TenantStore
	cache cache
}

func NewCachedTenantStore(inner domain.TenantStore, rdb *redis.Client, logger *zap.Logger) *CachedTenantStore {
	return &CachedTenantStore{inner: inner, cache: cache{rdb: rdb, logger: logger}}
}

func (s *CachedTenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	if err := s.inner.Create(ctx, t); err != nil {
		return err
	}
	s.cache.drop(ctx, tenantSlugKey(t.Slug))
	return nil
}

func (s *CachedTenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return s.inner.GetByID(ctx, id)
}

func (s *CachedTenantStore) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	key := tenantSlugKey(slug)
	t := &domain.Tenant{}
	if found, negative := s.cache.lookup(ctx, key, t); found {
		if negative {
			return nil, ErrNotFound
		}
		return t, nil
	}

	t, err := s.inner.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.cache.putNegative(ctx, key)
		}
		return nil, err
	}
	s.cache.put(ctx, key, t)
	return t, nil
}

func (s *CachedTenantStore) Update(ctx context.Context, t *domain.Tenant) error {
	// The slug may have changed, so the stale entry is fetched first to
	// drop both keys.
	old, err := s.inner.GetByID(ctx, t.ID)
	if err := s.inner.Update(ctx, t); err != nil {
		return err
	}
	keys := []string{tenantSlugKey(t.Slug)}
	if err == nil && old.Slug != t.Slug {
		keys = append(keys, tenantSlugKey(old.Slug))
	}
	s.cache.drop(ctx, keys...)
	return nil
}

var _ domain.TenantStore = (*CachedTenantStore)(nil)

// CachedDomainStore decorates a DomainStore with a read-through cache on
// the hostname lookup used by hostname resolution.
type CachedDomainStore struct {
	inner domain.DomainStore
	cache cache
}

func NewCachedDomainStore(inner domain.DomainStore, rdb *redis.Client, logger *zap.Logger) *CachedDomainStore {
	return &CachedDomainStore{inner: inner, cache: cache{rdb: rdb, logger: logger}}
}

func (s *CachedDomainStore) Create(ctx context.Context, d *domain.CustomDomain) error {
	if err := s.inner.Create(ctx, d); err != nil {
		return err
	}
	s.cache.drop(ctx, domainHostKey(d.Domain))
	return nil
}

func (s *CachedDomainStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error) {
	return s.inner.GetByID(ctx, id)
}

func (s *CachedDomainStore) GetByDomain(ctx context.Context, hostname string) (*domain.CustomDomain, error) {
	key := domainHostKey(hostname)
	d := &domain.CustomDomain{}
	if found, negative := s.cache.lookup(ctx, key, d); found {
		if negative {
			return nil, ErrNotFound
		}
		return d, nil
	}

	d, err := s.inner.GetByDomain(ctx, hostname)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.cache.putNegative(ctx, key)
		}
		return nil, err
	}
	s.cache.put(ctx, key, d)
	return d, nil
}

func (s *CachedDomainStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomDomain, error) {
	return s.inner.ListByTenant(ctx, tenantID)
}

func (s *CachedDomainStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.DomainState) error {
	d, err := s.inner.GetByID(ctx, id)
	if err := s.inner.UpdateState(ctx, id, state); err != nil {
		return err
	}
	if err == nil {
		s.cache.drop(ctx, domainHostKey(d.Domain))
	}
	return nil
}

func (s *CachedDomainStore) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.inner.GetByID(ctx, id)
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	if err == nil {
		s.cache.drop(ctx, domainHostKey(d.Domain))
	}
	return nil
}

var _ domain.DomainStore = (*CachedDomainStore)(nil)
