package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spigell/fitscore/internal/crm"
	"go.uber.org/zap"
)

const (
	DefaultCacheTTL = 5 * time.Minute
	cachePrefix     = "fitscore:"
)

// ErrListingUnsupported is returned when the wrapped backend cannot enumerate contacts.
var ErrListingUnsupported = errors.New("record backend does not support listing contacts")

// Cache is a read-through Redis cache in front of another record backend.
// Redis failures are logged and fall through to the wrapped backend; absent records are not cached.
type Cache struct {
	next   crm.Records
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(next crm.Records, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *Cache) GetContact(ctx context.Context, id string) (*crm.Contact, error) {
	return readThrough(ctx, c, "contact:"+id, func(ctx context.Context) (*crm.Contact, error) {
		return c.next.GetContact(ctx, id)
	})
}

func (c *Cache) GetProduct(ctx context.Context, id string) (*crm.Product, error) {
	return readThrough(ctx, c, "product:"+id, func(ctx context.Context) (*crm.Product, error) {
		return c.next.GetProduct(ctx, id)
	})
}

func (c *Cache) GetPipeline(ctx context.Context, contactID string) (*crm.Pipeline, error) {
	return readThrough(ctx, c, "pipeline:"+contactID, func(ctx context.Context) (*crm.Pipeline, error) {
		return c.next.GetPipeline(ctx, contactID)
	})
}

func (c *Cache) GetPersona(ctx context.Context, id string) (*crm.Persona, error) {
	return readThrough(ctx, c, "persona:"+id, func(ctx context.Context) (*crm.Persona, error) {
		return c.next.GetPersona(ctx, id)
	})
}

func (c *Cache) ListPersonas(ctx context.Context, tenantID string) ([]*crm.Persona, error) {
	return readThrough(ctx, c, "personas:"+tenantID, func(ctx context.Context) ([]*crm.Persona, error) {
		return c.next.ListPersonas(ctx, tenantID)
	})
}

// ListContacts is not cached; batch listings are read once per run.
func (c *Cache) ListContacts(ctx context.Context, tenantID string) ([]*crm.Contact, error) {
	lister, ok := c.next.(crm.ContactLister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	return lister.ListContacts(ctx, tenantID)
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	key = cachePrefix + key

	var value T
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &value); err == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return value, nil
		}
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
		c.logger.Debug("cache miss", zap.String("key", key))
	default:
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err = load(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return value, fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if string(encoded) == "null" {
		return value, nil
	}

	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return value, nil
}
