// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
)

// ValuationStore is the combined write and read side of valuation persistence.
type ValuationStore interface {
	usecase.ValuationRepository
	usecase.ValuationReader
}

// CachingValuationRepository decorates a ValuationStore with Redis caching.
// Reads go through the cache; every upsert invalidates the affected keys.
type CachingValuationRepository struct {
	inner     ValuationStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ ValuationStore = (*CachingValuationRepository)(nil)

// NewCachingValuationRepository decorates a ValuationStore with Redis caching.
// If ttl is 0, entries expire at the top of the next hour, when the next ingest
// run is scheduled. If namespace is empty, it uses "valuation".
func NewCachingValuationRepository(rdb *redis.Client, ttl time.Duration, inner ValuationStore, namespace string) *CachingValuationRepository {
	if ttl < 0 {
		ttl = 0
	}
	if namespace == "" {
		namespace = "valuation"
	}
	return &CachingValuationRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingValuationRepository) expiry() time.Duration {
	if c.ttl > 0 {
		return c.ttl
	}
	return TimeUntilNextHour()
}

// UpsertSector upserts the sector and invalidates the cached sector list.
func (c *CachingValuationRepository) UpsertSector(ctx context.Context, sector entity.Sector) (int64, error) {
	n, err := c.inner.UpsertSector(ctx, sector)
	if err != nil {
		return 0, err
	}
	if c.rdb != nil {
		c.invalidate(ctx, c.sectorsKey())
	}
	return n, nil
}

// UpsertCompanies upserts the companies and invalidates every cached company entry.
func (c *CachingValuationRepository) UpsertCompanies(ctx context.Context, sectorID entity.SectorID, companies []entity.Company) (int64, error) {
	n, err := c.inner.UpsertCompanies(ctx, sectorID, companies)
	if err != nil {
		return 0, err
	}
	if c.rdb == nil || len(companies) == 0 {
		return n, nil
	}
	c.invalidate(ctx, c.companiesPrefix()+"*")
	return n, nil
}

// ListSectors returns sectors, checking the cache first.
func (c *CachingValuationRepository) ListSectors(ctx context.Context) ([]entity.Sector, error) {
	if c.rdb == nil {
		return c.inner.ListSectors(ctx)
	}
	key := c.sectorsKey()

	var cached []cachedSector
	if c.load(ctx, key, &cached) {
		if out, err := fromCachedSectors(cached); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.ListSectors(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, toCachedSectors(out))
	return out, nil
}

// ListCompanies returns companies with valuations in currency, checking the cache first.
func (c *CachingValuationRepository) ListCompanies(ctx context.Context, currency entity.Currency) ([]entity.Company, error) {
	if c.rdb == nil {
		return c.inner.ListCompanies(ctx, currency)
	}
	key := c.companiesKey("list", currency)

	var cached []cachedCompany
	if c.load(ctx, key, &cached) {
		if out, err := fromCachedCompanies(cached); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.ListCompanies(ctx, currency)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, toCachedCompanies(out))
	return out, nil
}

// FindCompany returns one company, checking the cache first. Misses are not cached.
func (c *CachingValuationRepository) FindCompany(ctx context.Context, symbol entity.Symbol, currency entity.Currency) (entity.Company, error) {
	if c.rdb == nil {
		return c.inner.FindCompany(ctx, symbol, currency)
	}
	key := c.companiesKey(symbol.String(), currency)

	var cached cachedCompany
	if c.load(ctx, key, &cached) {
		if out, err := cached.toEntity(); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.FindCompany(ctx, symbol, currency)
	if err != nil {
		return entity.Company{}, err
	}
	c.store(ctx, key, toCachedCompany(out))
	return out, nil
}

// load reads key into v. Corrupted entries are deleted and reported as a miss.
func (c *CachingValuationRepository) load(ctx context.Context, key string, v any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

// store writes v under key (best effort).
func (c *CachingValuationRepository) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, b, c.expiry()).Err()
}

func (c *CachingValuationRepository) invalidate(ctx context.Context, pattern string) {
	// Best effort: don't fail the upsert if cache deletion fails
	if err := c.deleteByPattern(ctx, pattern); err != nil {
		slog.Warn("failed to invalidate valuation cache", "pattern", pattern, "error", err)
	}
}

func (c *CachingValuationRepository) sectorsKey() string {
	return c.namespace + ":sectors"
}

func (c *CachingValuationRepository) companiesPrefix() string {
	return c.namespace + ":companies:"
}

// companiesKey generates a cache key for a company query.
func (c *CachingValuationRepository) companiesKey(what string, currency entity.Currency) string {
	return fmt.Sprintf("%s%s:%s", c.companiesPrefix(), safe(what), safe(currency.String()))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingValuationRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
